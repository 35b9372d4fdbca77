package ordmap

import (
	"math/rand"
	"testing"

	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/valueword"
)

// testAlloc is a minimal Allocator backed directly by a cellpool.Pool, good
// enough for unit tests; internal/execctx provides the real tiered version.
type testAlloc struct{ pool *cellpool.Pool }

func newTestAlloc() *testAlloc { return &testAlloc{pool: cellpool.NewPool(0)} }

func (a *testAlloc) AllocCell() *cellpool.Cell {
	head, n := a.pool.RefillBatch(1)
	if n != 1 {
		panic("out of cells")
	}
	return head
}

func val(i int64) valueword.Handle {
	h, ok := valueword.EncodeSmallInt(i)
	if !ok {
		panic("out of range")
	}
	return h
}

func TestEmptyMap(t *testing.T) {
	a := newTestAlloc()
	m := NewEmpty(a, SemanticPlainMap)
	if Size(m) != 0 {
		t.Fatalf("expected empty map, size=%d", Size(m))
	}
	if _, ok := Get(m, 42); ok {
		t.Fatalf("expected miss on empty map")
	}
}

func TestSetGetPersistence(t *testing.T) {
	a := newTestAlloc()
	m0 := NewEmpty(a, SemanticPlainMap)
	m1 := Set(a, m0, 1, val(100))
	m2 := Set(a, m1, 2, val(200))

	if Size(m0) != 0 || Size(m1) != 1 || Size(m2) != 2 {
		t.Fatalf("sizes: %d %d %d", Size(m0), Size(m1), Size(m2))
	}
	if v, ok := Get(m1, 2); ok {
		t.Fatalf("m1 should not see key 2, got %v", v)
	}
	if v, ok := Get(m2, 1); !ok {
		t.Fatalf("m2 missing key 1")
	} else if n, _ := valueword.AsSmallInt(v); n != 100 {
		t.Fatalf("m2[1] = %d, want 100", n)
	}
}

func TestOverwrite(t *testing.T) {
	a := newTestAlloc()
	m := NewEmpty(a, SemanticPlainMap)
	m = Set(a, m, 5, val(1))
	m = Set(a, m, 5, val(2))
	if Size(m) != 1 {
		t.Fatalf("expected overwrite to keep size 1, got %d", Size(m))
	}
	v, _ := Get(m, 5)
	if n, _ := valueword.AsSmallInt(v); n != 2 {
		t.Fatalf("expected overwritten value 2, got %d", n)
	}
}

func TestRemove(t *testing.T) {
	a := newTestAlloc()
	m := NewEmpty(a, SemanticPlainMap)
	for i := int64(0); i < 20; i++ {
		m = Set(a, m, uint64(i), val(i))
	}
	before := m
	m = Remove(a, m, 10)
	if Size(m) != 19 {
		t.Fatalf("expected size 19 after remove, got %d", Size(m))
	}
	if Has(m, 10) {
		t.Fatalf("key 10 should be gone")
	}
	if !Has(before, 10) {
		t.Fatalf("removing from m should not affect earlier snapshot")
	}
	for i := int64(0); i < 20; i++ {
		if i == 10 {
			continue
		}
		if v, ok := Get(m, uint64(i)); !ok {
			t.Fatalf("missing key %d after unrelated removal", i)
		} else if n, _ := valueword.AsSmallInt(v); n != i {
			t.Fatalf("key %d = %d, want %d", i, n, i)
		}
	}
}

func TestRandomizedAgainstReference(t *testing.T) {
	a := newTestAlloc()
	m := NewEmpty(a, SemanticPlainMap)
	ref := map[uint64]int64{}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		key := uint64(rng.Intn(200))
		if rng.Intn(4) == 0 {
			m = Remove(a, m, key)
			delete(ref, key)
		} else {
			v := rng.Int63n(1000)
			m = Set(a, m, key, val(v))
			ref[key] = v
		}
	}

	if Size(m) != uint64(len(ref)) {
		t.Fatalf("size mismatch: map=%d ref=%d", Size(m), len(ref))
	}
	for k, want := range ref {
		got, ok := Get(m, k)
		if !ok {
			t.Fatalf("missing key %d", k)
		}
		if n, _ := valueword.AsSmallInt(got); n != want {
			t.Fatalf("key %d = %d, want %d", k, n, want)
		}
	}

	seen := 0
	ForEach(m, func(k uint64, v valueword.Handle) bool {
		want, ok := ref[k]
		if !ok {
			t.Fatalf("unexpected key %d from ForEach", k)
		}
		if n, _ := valueword.AsSmallInt(v); n != want {
			t.Fatalf("ForEach key %d = %d, want %d", k, n, want)
		}
		seen++
		return true
	})
	if seen != len(ref) {
		t.Fatalf("ForEach visited %d entries, want %d", seen, len(ref))
	}
}

func TestForEachAscendingOrder(t *testing.T) {
	a := newTestAlloc()
	m := NewEmpty(a, SemanticPlainMap)
	keys := []uint64{5, 1, 9, 3, 7, 0, 8}
	for _, k := range keys {
		m = Set(a, m, k, val(int64(k)))
	}
	var last uint64
	first := true
	ForEach(m, func(k uint64, _ valueword.Handle) bool {
		if !first && k <= last {
			t.Fatalf("ForEach not ascending: %d after %d", k, last)
		}
		last, first = k, false
		return true
	})
}

func TestSemanticPreservedAcrossMutation(t *testing.T) {
	a := newTestAlloc()
	m := NewEmpty(a, SemanticSet)
	m = Set(a, m, 1, val(1))
	m = Remove(a, m, 1)
	if Semantic(m) != SemanticSet {
		t.Fatalf("semantic marker lost across mutation")
	}
}
