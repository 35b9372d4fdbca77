package object

import (
	"errors"
	"hash/maphash"
	"testing"

	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/ordmap"
	"github.com/Voskan/protocore/internal/rope"
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

func nameHandle(a *testAlloc, s string) (valueword.Handle, uint64) {
	h := rope.FromUTF8(a, []byte(CanonicalizeName(s)))
	seed := maphash.MakeSeed()
	return h, NameHash(seed, h)
}

func TestNewCloneNewChild(t *testing.T) {
	a := newTestAlloc()
	mr := &MutableRoots{}

	o := New(a, mr, false)
	if IsMutable(o) {
		t.Fatalf("expected immutable object")
	}
	clone := Clone(a, mr, o, false)
	if clone == o {
		t.Fatalf("clone should be a distinct handle")
	}

	child := NewChild(a, mr, o, false)
	if !HasParent(mr, child, o) {
		t.Fatalf("expected child to have o as parent")
	}
}

func TestSetAttributeImmutable(t *testing.T) {
	a := newTestAlloc()
	mr := &MutableRoots{}
	o := New(a, mr, false)

	name, hash := nameHandle(a, "x")
	val, _ := valueword.EncodeSmallInt(42)

	o2 := SetAttribute(a, mr, o, hash, val)
	if o2 == o {
		t.Fatalf("expected a new handle for immutable object mutation")
	}
	if _, ok := GetAttribute(nil, mr, o, name, hash, nil); ok {
		t.Fatalf("original object should be unaffected")
	}
	got, ok := GetAttribute(nil, mr, o2, name, hash, nil)
	if !ok {
		t.Fatalf("expected attribute to resolve on o2")
	}
	if n, _ := valueword.AsSmallInt(got); n != 42 {
		t.Fatalf("got %d, want 42", n)
	}
}

func TestSetAttributeMutable(t *testing.T) {
	a := newTestAlloc()
	mr := &MutableRoots{}
	o := New(a, mr, true)

	name, hash := nameHandle(a, "y")
	val, _ := valueword.EncodeSmallInt(7)

	o2 := SetAttribute(a, mr, o, hash, val)
	if o2 != o {
		t.Fatalf("expected same stable handle for mutable object")
	}
	got, ok := GetAttribute(nil, mr, o, name, hash, nil)
	if !ok || func() int64 { n, _ := valueword.AsSmallInt(got); return n }() != 7 {
		t.Fatalf("expected mutation visible through original handle")
	}
}

func TestAttributeInheritance(t *testing.T) {
	a := newTestAlloc()
	mr := &MutableRoots{}
	parent := New(a, mr, false)
	name, hash := nameHandle(a, "inherited")
	val, _ := valueword.EncodeSmallInt(1)
	parent = SetAttribute(a, mr, parent, hash, val)

	child := NewChild(a, mr, parent, false)
	if !HasAttribute(nil, mr, child, name, hash) {
		t.Fatalf("expected child to inherit parent's attribute")
	}
	if !HasOwnAttribute(mr, parent, hash) {
		t.Fatalf("expected parent to own the attribute directly")
	}
	if HasOwnAttribute(mr, child, hash) {
		t.Fatalf("child should not own the attribute directly")
	}
}

func TestAddParentLinearization(t *testing.T) {
	a := newTestAlloc()
	mr := &MutableRoots{}
	grandparent := New(a, mr, false)
	parent := NewChild(a, mr, grandparent, false)
	o := New(a, mr, false)

	o, err := AddParent(a, mr, o, parent)
	if err != nil {
		t.Fatalf("AddParent: %v", err)
	}
	if !HasParent(mr, o, parent) || !HasParent(mr, o, grandparent) {
		t.Fatalf("expected o to see both parent and grandparent after AddParent")
	}

	before := o
	o, err = AddParent(a, mr, o, parent)
	if err != nil {
		t.Fatalf("AddParent (re-add): %v", err)
	}
	if o != before {
		t.Fatalf("re-adding an existing parent should be a no-op")
	}
}

func TestAddParentDetectsCycle(t *testing.T) {
	a := newTestAlloc()
	mr := &MutableRoots{}
	grandparent := New(a, mr, false)
	parent := NewChild(a, mr, grandparent, false)

	if _, err := AddParent(a, mr, grandparent, parent); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle making an object its own descendant's parent, got %v", err)
	}
	if _, err := AddParent(a, mr, parent, parent); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle adding an object as its own parent, got %v", err)
	}
}

func TestAttrCacheRoundTrip(t *testing.T) {
	a := newTestAlloc()
	mr := &MutableRoots{}
	cache := NewAttrCache()
	o := New(a, mr, false)
	name, hash := nameHandle(a, "z")
	val, _ := valueword.EncodeSmallInt(5)
	o = SetAttribute(a, mr, o, hash, val)

	if _, ok := cache.Lookup(o, name, hash); ok {
		t.Fatalf("expected cold cache miss")
	}
	got, ok := GetAttribute(cache, mr, o, name, hash, nil)
	if !ok {
		t.Fatalf("expected resolution to succeed")
	}
	cached, ok := cache.Lookup(o, name, hash)
	if !ok || cached != got {
		t.Fatalf("expected lookup to have warmed the cache")
	}
}

func TestGetAttributesMergesChain(t *testing.T) {
	a := newTestAlloc()
	mr := &MutableRoots{}
	base := New(a, mr, false)
	nameA, hashA := nameHandle(a, "a")
	nameB, hashB := nameHandle(a, "b")
	valA, _ := valueword.EncodeSmallInt(1)
	valB, _ := valueword.EncodeSmallInt(2)
	base = SetAttribute(a, mr, base, hashA, valA)

	child := NewChild(a, mr, base, false)
	child = SetAttribute(a, mr, child, hashB, valB)

	merged := GetAttributes(a, mr, child)
	if _, ok := ordmap.Get(merged, hashA); !ok {
		t.Fatalf("expected merged attrs to include inherited %v", nameA)
	}
	if _, ok := ordmap.Get(merged, hashB); !ok {
		t.Fatalf("expected merged attrs to include own %v", nameB)
	}
}
