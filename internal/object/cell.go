// Package object implements the prototype-based object model (C8) and
// attribute resolution (C9) from spec.md §3.7/§4.7/§4.8: object cells with
// a parent-link chain, an attribute map, mutable-reference indirection via
// a process-wide CAS-updated mutable-root table, and a thread-private
// direct-mapped attribute cache.
//
// © 2025 protocore authors. MIT License.
package object

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/valueword"
)

const (
	ShapeObject uint8 = iota
	ShapeParentLink
)

type objectPayload struct {
	parentChain valueword.Handle
	attrs       valueword.Handle
	mutableRef  uint64
}

type parentLinkPayload struct {
	object valueword.Handle
	next   valueword.Handle
}

func init() {
	cellpool.MustFit[objectPayload]()
	cellpool.MustFit[parentLinkPayload]()
}

// Allocator mirrors the other kind packages' allocator seam.
type Allocator interface {
	AllocCell() *cellpool.Cell
}

func newObjectCell(alloc Allocator, parentChain, attrs valueword.Handle, mutableRef uint64) valueword.Handle {
	c := alloc.AllocCell()
	c.Tag = valueword.TagObject
	c.Kind = ShapeObject
	p := cellpool.PayloadAs[objectPayload](c)
	p.parentChain = parentChain
	p.attrs = attrs
	p.mutableRef = mutableRef
	return valueword.WrapHeap(valueword.TagObject, cellpool.Addr(c))
}

func newParentLink(alloc Allocator, object, next valueword.Handle) valueword.Handle {
	c := alloc.AllocCell()
	c.Tag = valueword.TagObject
	c.Kind = ShapeParentLink
	p := cellpool.PayloadAs[parentLinkPayload](c)
	p.object = object
	p.next = next
	return valueword.WrapHeap(valueword.TagObject, cellpool.Addr(c))
}

func objectOf(h valueword.Handle) *objectPayload {
	addr, ok := valueword.HeapAddr(h)
	if !ok {
		panic("object: handle is not a heap reference")
	}
	return cellpool.PayloadAs[objectPayload](cellpool.FromAddr(addr))
}

func linkOf(h valueword.Handle) *parentLinkPayload {
	addr, ok := valueword.HeapAddr(h)
	if !ok {
		panic("object: handle is not a heap reference")
	}
	return cellpool.PayloadAs[parentLinkPayload](cellpool.FromAddr(addr))
}

// IsMutable reports whether o carries a non-zero mutable-ref id.
func IsMutable(o valueword.Handle) bool { return objectOf(o).mutableRef != 0 }

// chainToSlice walks a parent-link chain front to back.
func chainToSlice(chain valueword.Handle) []valueword.Handle {
	var out []valueword.Handle
	for !valueword.IsNone(chain) {
		l := linkOf(chain)
		out = append(out, l.object)
		chain = l.next
	}
	return out
}

// buildChain constructs a parent-link chain from a slice, front to back.
func buildChain(alloc Allocator, elems []valueword.Handle) valueword.Handle {
	chain := valueword.None
	for i := len(elems) - 1; i >= 0; i-- {
		chain = newParentLink(alloc, elems[i], chain)
	}
	return chain
}

func containsHandle(xs []valueword.Handle, x valueword.Handle) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
