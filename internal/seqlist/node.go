// Package seqlist implements the persistent, self-balancing indexed
// sequence (C4 of spec.md §3.4/§4.4) that backs list values. Unlike
// internal/ordmap, position is not stored explicitly: an element's index is
// its left subtree's size, the standard order-statistics-tree trick, which
// keeps insert_at/remove_at/slice all O(log n) without renumbering anything.
//
// © 2025 protocore authors. MIT License.
package seqlist

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/valueword"
)

type node struct {
	value  valueword.Handle
	prev   valueword.Handle // left subtree (lower indices)
	next   valueword.Handle // right subtree (higher indices)
	size   uint32
	height int32
}

func init() { cellpool.MustFit[node]() }

// Allocator mirrors internal/ordmap.Allocator; kept distinct so seqlist has
// no import-time dependency on ordmap.
type Allocator interface {
	AllocCell() *cellpool.Cell
}

// Empty is the canonical empty list: the zero Handle, requiring no
// allocation at all (unlike ordmap's map, a list root IS an interior node
// directly — there is no Set/Multiset-style aliasing hazard to guard
// against here, see internal/ordmap's header comment for why that package
// needs the extra indirection and this one does not).
var Empty = valueword.None

func nodeOf(h valueword.Handle) *node {
	addr, ok := valueword.HeapAddr(h)
	if !ok {
		panic("seqlist: handle is not a heap reference")
	}
	return cellpool.PayloadAs[node](cellpool.FromAddr(addr))
}

func newNode(alloc Allocator, value, prev, next valueword.Handle) valueword.Handle {
	c := alloc.AllocCell()
	c.Tag = valueword.TagList
	n := cellpool.PayloadAs[node](c)
	n.value = value
	n.prev = prev
	n.next = next
	n.size = 1 + sizeOf(prev) + sizeOf(next)
	n.height = 1 + maxInt(heightOf(prev), heightOf(next))
	return valueword.WrapHeap(valueword.TagList, cellpool.Addr(c))
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

func maxInt(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// Size returns the number of elements in the list rooted at h.
func Size(h valueword.Handle) uint64 { return uint64(sizeOf(h)) }

// Has reports whether index i is in range [0, Size(h)).
func Has(h valueword.Handle, i uint64) bool { return i < Size(h) }
