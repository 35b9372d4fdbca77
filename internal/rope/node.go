// Package rope implements the fixed-fanout indexed rope (C5) backing tuple
// and string values, plus the process-wide interner (C6) that deduplicates
// structurally equal ropes (spec §3.5/§4.5).
//
// Tuples and strings share this package's tree algorithm: a string is a
// rope whose elements are embedded Unicode-scalar handles
// (valueword.EncodeRune), so the only difference between the two is which
// valueword.Tag their cells carry. Every exported function therefore takes
// the tag to stamp on newly allocated nodes.
//
// Divergence from spec wording: §3.5 describes leaves holding up to a
// fanout constant F (32 or 64) scalar values per cell. With protocore's
// uniform 64-byte cell (internal/cellpool), a leaf's fixed-size element
// array is bounded by the 48-byte payload budget, giving a real fanout of
// 5 handles — not 32/64. The tree is still a self-balancing, size-
// augmented binary AVL over these 5-element chunks (structurally identical
// to internal/seqlist's join/split discipline), so every complexity bound
// and operation in §4.4/§4.5 still holds, just with a smaller constant
// factor than the spec's illustrative F. See DESIGN.md.
//
// © 2025 protocore authors. MIT License.
package rope

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/valueword"
)

// Fanout is the maximum number of element handles held directly in a leaf.
const Fanout = 5

const (
	ShapeLeaf uint8 = iota
	ShapeInternal
)

type leaf struct {
	length uint32
	_      [4]byte
	elems  [Fanout]valueword.Handle
}

type internalNode struct {
	prev   valueword.Handle
	next   valueword.Handle
	size   uint32
	height int32
}

func init() {
	cellpool.MustFit[leaf]()
	cellpool.MustFit[internalNode]()
}

type Allocator interface {
	AllocCell() *cellpool.Cell
}

// Empty is the canonical empty rope for any tag.
var Empty = valueword.None

func isLeaf(h valueword.Handle) bool {
	addr, ok := valueword.HeapAddr(h)
	if !ok {
		return false
	}
	return cellpool.FromAddr(addr).Kind == ShapeLeaf
}

func leafOf(h valueword.Handle) *leaf {
	addr, _ := valueword.HeapAddr(h)
	return cellpool.PayloadAs[leaf](cellpool.FromAddr(addr))
}

func internalOf(h valueword.Handle) *internalNode {
	addr, _ := valueword.HeapAddr(h)
	return cellpool.PayloadAs[internalNode](cellpool.FromAddr(addr))
}

func newLeaf(alloc Allocator, tag valueword.Tag, elems []valueword.Handle) valueword.Handle {
	c := alloc.AllocCell()
	c.Tag = tag
	c.Kind = ShapeLeaf
	l := cellpool.PayloadAs[leaf](c)
	l.length = uint32(len(elems))
	copy(l.elems[:], elems)
	return valueword.WrapHeap(tag, cellpool.Addr(c))
}

func newInternal(alloc Allocator, tag valueword.Tag, prev, next valueword.Handle) valueword.Handle {
	c := alloc.AllocCell()
	c.Tag = tag
	c.Kind = ShapeInternal
	n := cellpool.PayloadAs[internalNode](c)
	n.prev = prev
	n.next = next
	n.size = sizeOf(prev) + sizeOf(next)
	n.height = 1 + maxInt(heightOf(prev), heightOf(next))
	return valueword.WrapHeap(tag, cellpool.Addr(c))
}

func sizeOf(h valueword.Handle) uint32 {
	if valueword.IsNone(h) {
		return 0
	}
	if isLeaf(h) {
		return leafOf(h).length
	}
	return internalOf(h).size
}

func heightOf(h valueword.Handle) int32 {
	if valueword.IsNone(h) {
		return 0
	}
	if isLeaf(h) {
		return 1
	}
	return internalOf(h).height
}

func maxInt(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// Size returns the total element count of the rope rooted at h.
func Size(h valueword.Handle) uint64 { return uint64(sizeOf(h)) }
