package setms

import (
	"testing"

	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/valueword"
)

type testAlloc struct{ pool *cellpool.Pool }

func newTestAlloc() *testAlloc { return &testAlloc{pool: cellpool.NewPool(0)} }

func (a *testAlloc) AllocCell() *cellpool.Cell {
	head, n := a.pool.RefillBatch(1)
	if n != 1 {
		panic("out of cells")
	}
	return head
}

func identityHash(h valueword.Handle) uint64 {
	n, _ := valueword.AsSmallInt(h)
	return uint64(n)
}

func sv(i int64) valueword.Handle {
	h, _ := valueword.EncodeSmallInt(i)
	return h
}

func TestSetAddContainsDiscard(t *testing.T) {
	a := newTestAlloc()
	s := NewSet(a)
	if !IsSet(s) || IsMultiset(s) || IsSparseMap(s) {
		t.Fatalf("classification wrong for fresh set")
	}
	s = Add(a, s, identityHash, sv(7))
	if !Contains(s, identityHash, sv(7)) {
		t.Fatalf("expected set to contain 7")
	}
	s = Discard(a, s, identityHash, sv(7))
	if Contains(s, identityHash, sv(7)) {
		t.Fatalf("expected set to no longer contain 7")
	}
}

func TestMultisetIncrementAndDecrement(t *testing.T) {
	a := newTestAlloc()
	ms := NewMultiset(a)
	if !IsMultiset(ms) {
		t.Fatalf("expected multiset classification")
	}
	ms = Increment(a, ms, identityHash, sv(3), 2)
	if Count(ms, identityHash, sv(3)) != 2 {
		t.Fatalf("expected count 2")
	}
	ms = Increment(a, ms, identityHash, sv(3), 3)
	if Count(ms, identityHash, sv(3)) != 5 {
		t.Fatalf("expected count 5")
	}
	ms = Increment(a, ms, identityHash, sv(3), -5)
	if Count(ms, identityHash, sv(3)) != 0 {
		t.Fatalf("expected element removed once count hits zero")
	}
	if Size(ms) != 0 {
		t.Fatalf("expected multiset empty after full decrement, size=%d", Size(ms))
	}
}

func TestMultisetForEach(t *testing.T) {
	a := newTestAlloc()
	ms := NewMultiset(a)
	ms = Increment(a, ms, identityHash, sv(1), 1)
	ms = Increment(a, ms, identityHash, sv(2), 4)

	total := map[int64]uint64{}
	ForEachMultiset(ms, func(el valueword.Handle, count uint64) bool {
		n, _ := valueword.AsSmallInt(el)
		total[n] = count
		return true
	})
	if total[1] != 1 || total[2] != 4 {
		t.Fatalf("unexpected multiset contents: %v", total)
	}
}
