package execctx

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/valueword"
)

// Queue is the space's collector input queue (spec §4.9 "Destruction":
// "the context's young generation is handed off to the space's collector
// input queue"). Implemented by pkg's Space (Space.Enqueue).
type Queue interface {
	Enqueue(head *cellpool.Cell, n int)
}

// Exit implements context destruction (spec §4.9 "Destruction"): the
// context's young generation is handed off to the space's collector input
// queue, and if a heap-allocated return value is pending, a return-
// reference cell is allocated in the parent context so the value survives
// the gap between the callee's young generation draining and the caller
// observing the return.
func Exit(alloc Allocator, ctx *Context, queue Queue) {
	if ctx.youngGen != nil {
		queue.Enqueue(ctx.youngGen, ctx.youngN)
		ctx.youngGen = nil
		ctx.youngN = 0
	}

	if ctx.Parent == nil {
		return
	}
	rv := ctx.returnValue
	if valueword.IsNone(rv) {
		return
	}
	if _, ok := valueword.HeapAddr(rv); !ok {
		return // embedded value: no heap cell to keep alive
	}
	refCell := newReturnRefCell(alloc, rv)
	ctx.Parent.prependYoung(refCell)
}
