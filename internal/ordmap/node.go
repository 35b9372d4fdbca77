// Package ordmap implements the persistent, self-balancing ordered map
// keyed by a 64-bit hash (C3 of spec.md §3.3/§4.3). It backs attribute
// dictionaries, sparse integer-keyed maps, and — through internal/setms —
// sets and multisets.
//
// Every exported Map value is a Handle to a small "header" cell holding a
// semantic marker (plain map / set / multiset, consulted only by
// internal/setms's IsSet/IsMultiset/IsSparseMap) plus a pointer to
// the actual AVL root. Interior AVL nodes are a second, distinct cell shape
// that never escapes as a top-level Handle. Two shapes sharing one pointer
// tag (valueword.TagSparseMap) is how spec §3.1's tag table is read here;
// see SPEC_FULL.md §4 Open Question 1 and DESIGN.md for the rationale.
//
// © 2025 protocore authors. MIT License.
package ordmap

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/valueword"
)

// Cell shapes sharing valueword.TagSparseMap / TagSparseMapIter.
const (
	ShapeMapHeader uint8 = iota
	ShapeMapNode
	ShapeMapIterator
)

// Semantic markers stored in a header cell, read by internal/setms's
// IsSet/IsMultiset/IsSparseMap classification.
const (
	SemanticPlainMap uint8 = iota
	SemanticSet
	SemanticMultiset
)

type header struct {
	semantic uint8
	_        [7]byte
	root     valueword.Handle
}

type mapNode struct {
	key    uint64
	value  valueword.Handle
	prev   valueword.Handle // left subtree: smaller keys
	next   valueword.Handle // right subtree: larger keys
	size   uint32
	height int32
	hash   uint64
}

func init() {
	cellpool.MustFit[header]()
	cellpool.MustFit[mapNode]()
}

// Allocator is implemented by internal/execctx.BoundAllocator (built for a
// context by internal/threadmgr.Thread.BoundAllocator). It is the escalation
// chain's entry point described in spec §4.2.
type Allocator interface {
	AllocCell() *cellpool.Cell
}

func newCell(alloc Allocator, tag valueword.Tag, shape uint8) *cellpool.Cell {
	c := alloc.AllocCell()
	c.Tag = tag
	c.Kind = shape
	return c
}

func headerOf(h valueword.Handle) *header {
	addr, ok := valueword.HeapAddr(h)
	if !ok {
		panic("ordmap: handle is not a heap reference")
	}
	return cellpool.PayloadAs[header](cellpool.FromAddr(addr))
}

func nodeOf(h valueword.Handle) *mapNode {
	addr, ok := valueword.HeapAddr(h)
	if !ok {
		panic("ordmap: handle is not a heap reference")
	}
	return cellpool.PayloadAs[mapNode](cellpool.FromAddr(addr))
}

func newHeader(alloc Allocator, semantic uint8, root valueword.Handle) valueword.Handle {
	c := newCell(alloc, valueword.TagSparseMap, ShapeMapHeader)
	h := cellpool.PayloadAs[header](c)
	h.semantic = semantic
	h.root = root
	return valueword.WrapHeap(valueword.TagSparseMap, cellpool.Addr(c))
}

func newNode(alloc Allocator, key uint64, value, prev, next valueword.Handle) valueword.Handle {
	c := newCell(alloc, valueword.TagSparseMap, ShapeMapNode)
	n := cellpool.PayloadAs[mapNode](c)
	n.key = key
	n.value = value
	n.prev = prev
	n.next = next
	n.size = 1 + sizeOf(prev) + sizeOf(next)
	n.height = 1 + maxInt(heightOf(prev), heightOf(next))
	n.hash = xorHash(prev) ^ xorHash(next) ^ (key*0x9E3779B97F4A7C15 + uint64(value))
	return valueword.WrapHeap(valueword.TagSparseMap, cellpool.Addr(c))
}

func sizeOf(h valueword.Handle) uint32 {
	if valueword.IsNone(h) {
		return 0
	}
	return nodeOf(h).size
}

func heightOf(h valueword.Handle) int32 {
	if valueword.IsNone(h) {
		return 0
	}
	return nodeOf(h).height
}

func xorHash(h valueword.Handle) uint64 {
	if valueword.IsNone(h) {
		return 0
	}
	return nodeOf(h).hash
}

func maxInt(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// Semantic reports the semantic marker stored in the map's header handle.
func Semantic(h valueword.Handle) uint8 {
	return headerOf(h).semantic
}
