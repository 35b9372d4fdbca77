// Package setms implements Set and Multiset (C7) as thin layers over
// internal/ordmap, keyed by the element's structural hash, matching spec
// §3.6: "a set is an ordered persistent map whose key is the element's
// hash and whose value is the element itself."
//
// Multiset additionally needs an occurrence count alongside each element.
// Rather than reach for internal/rope's generic tuple, a multiset entry
// gets its own tiny cell shape defined in this package.
//
// © 2025 protocore authors. MIT License.
package setms

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/ordmap"
	"github.com/Voskan/protocore/internal/valueword"
)

// ShapeMultisetEntry is the Cell.Kind for a multiset (element, count) pair,
// stored under valueword.TagSparseMap (the same tag ordmap nodes use; GC
// dispatch keys off Cell.Kind, not Tag, to tell the shapes apart).
const ShapeMultisetEntry uint8 = 100

type multisetEntry struct {
	element valueword.Handle
	count   uint64
}

func init() { cellpool.MustFit[multisetEntry]() }

// Allocator is re-exported so callers don't need to import ordmap directly.
type Allocator = ordmap.Allocator

func newEntry(alloc Allocator, element valueword.Handle, count uint64) valueword.Handle {
	c := alloc.AllocCell()
	c.Tag = valueword.TagSparseMap
	c.Kind = ShapeMultisetEntry
	e := cellpool.PayloadAs[multisetEntry](c)
	e.element = element
	e.count = count
	return valueword.WrapHeap(valueword.TagSparseMap, cellpool.Addr(c))
}

func entryOf(h valueword.Handle) *multisetEntry {
	addr, ok := valueword.HeapAddr(h)
	if !ok {
		panic("setms: handle is not a heap reference")
	}
	return cellpool.PayloadAs[multisetEntry](cellpool.FromAddr(addr))
}

// HashFn computes the structural hash used to key set/multiset elements.
// The caller passes it with every call; this package computes no hash of
// its own, and its tests use a trivial stand-in.
type HashFn func(valueword.Handle) uint64

// NewSet returns an empty Set handle.
func NewSet(alloc Allocator) valueword.Handle {
	return ordmap.NewEmpty(alloc, ordmap.SemanticSet)
}

// NewMultiset returns an empty Multiset handle.
func NewMultiset(alloc Allocator) valueword.Handle {
	return ordmap.NewEmpty(alloc, ordmap.SemanticMultiset)
}

// IsSet / IsMultiset / IsSparseMap classify a TagSparseMap handle by its
// header's semantic marker. See SPEC_FULL.md §4 Open Question 1: a handle
// reached through aliasing after heavy subtree sharing could in principle
// carry a stale marker, which is an accepted, bounded imprecision mirroring
// the original design's own static (not dynamic) Set/Map distinction.
func IsSet(h valueword.Handle) bool {
	return valueword.TagOf(h) == valueword.TagSparseMap && ordmap.Semantic(h) == ordmap.SemanticSet
}

func IsMultiset(h valueword.Handle) bool {
	return valueword.TagOf(h) == valueword.TagSparseMap && ordmap.Semantic(h) == ordmap.SemanticMultiset
}

func IsSparseMap(h valueword.Handle) bool {
	return valueword.TagOf(h) == valueword.TagSparseMap && ordmap.Semantic(h) == ordmap.SemanticPlainMap
}

// Size reports the number of distinct elements (Set) or distinct element
// keys (Multiset; use TotalCount for the sum of occurrences).
func Size(h valueword.Handle) uint64 { return ordmap.Size(h) }

/* ---------------- Set ---------------- */

func Contains(h valueword.Handle, hash HashFn, element valueword.Handle) bool {
	_, ok := ordmap.Get(h, hash(element))
	return ok
}

func Add(alloc Allocator, h valueword.Handle, hash HashFn, element valueword.Handle) valueword.Handle {
	return ordmap.Set(alloc, h, hash(element), element)
}

func Discard(alloc Allocator, h valueword.Handle, hash HashFn, element valueword.Handle) valueword.Handle {
	return ordmap.Remove(alloc, h, hash(element))
}

// ForEach visits every element of a Set in ascending hash order.
func ForEach(h valueword.Handle, fn func(element valueword.Handle) bool) {
	ordmap.ForEachValue(h, fn)
}

/* ---------------- Multiset ---------------- */

// Count returns the occurrence count of element (0 if absent).
func Count(h valueword.Handle, hash HashFn, element valueword.Handle) uint64 {
	v, ok := ordmap.Get(h, hash(element))
	if !ok {
		return 0
	}
	return entryOf(v).count
}

// Increment adds n (n may be negative to decrement) to element's occurrence
// count, removing the entry entirely if the count drops to zero or below.
func Increment(alloc Allocator, h valueword.Handle, hash HashFn, element valueword.Handle, n int64) valueword.Handle {
	key := hash(element)
	cur := int64(0)
	if v, ok := ordmap.Get(h, key); ok {
		cur = int64(entryOf(v).count)
	}
	next := cur + n
	if next <= 0 {
		return ordmap.Remove(alloc, h, key)
	}
	return ordmap.Set(alloc, h, key, newEntry(alloc, element, uint64(next)))
}

// ForEachMultiset visits every distinct (element, count) pair in ascending
// hash order.
func ForEachMultiset(h valueword.Handle, fn func(element valueword.Handle, count uint64) bool) {
	ordmap.ForEachValue(h, func(v valueword.Handle) bool {
		e := entryOf(v)
		return fn(e.element, e.count)
	})
}
