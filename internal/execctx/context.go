// Package execctx implements execution contexts (C10) from spec.md §3.8/
// §4.9: the stack-allocated record every call frame carries — parent
// pointer, automatic-locals array, closure-locals map, young-generation
// list, return-value slot, and local free-list — plus the tiered cell
// allocator (C2, §4.2) each context drives.
//
// © 2025 protocore authors. MIT License.
package execctx

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/ordmap"
	"github.com/Voskan/protocore/internal/valueword"
)

// Context is a call frame (spec §3.8). Space and Thread are stored as
// opaque references: execctx only ever forwards them (to children, and to
// the GC's root walk), it never calls into them, so there is no need for
// this package to depend on internal/gc or internal/threadmgr.
type Context struct {
	Parent *Context
	Space  any
	Thread any

	locals []valueword.Handle // automatic locals, index-addressed
	names  []uint64           // parallel: parameter/local-name hash per slot

	closureLocals valueword.Handle // persistent ordmap keyed by name hash

	youngGen *cellpool.Cell // head of this context's young-generation list
	youngN   int

	localFree  *cellpool.Cell // this context's local free-list head
	localFreeN int

	returnValue valueword.Handle
}

// Callbacks are the embedder-supplied hooks invoked during parameter
// binding (spec §4.9 step 4).
type Callbacks struct {
	ParameterTwiceAssigned func(ctx *Context, nameHash uint64)
	ParameterNotFound      func(ctx *Context, nameHash uint64)
}

// TooManyPositional is returned by New when more positional arguments are
// supplied than there are parameters (spec §4.9 step 3).
type TooManyPositional struct {
	Got, Want int
}

func (e *TooManyPositional) Error() string {
	return "execctx: too many positional arguments"
}

// Allocator is the cell-allocation seam used for closure-locals map
// mutations and return-reference cells.
type Allocator interface {
	AllocCell() *cellpool.Cell
}

// New constructs a context per spec §4.9. paramNames is the full
// parameter-name-hash list (used for positional and keyword binding);
// localNames is the complete automatic-locals name-hash list, of which the
// first len(paramNames) slots double as parameter slots. positional and
// keyword supply the call's arguments. parent may be nil for a space's
// root context.
func New(
	alloc Allocator,
	parent *Context,
	space, thread any,
	paramNames []uint64,
	localNames []uint64,
	positional []valueword.Handle,
	keyword map[uint64]valueword.Handle,
	cb Callbacks,
) (*Context, error) {
	if parent != nil {
		if space == nil {
			space = parent.Space
		}
		if thread == nil {
			thread = parent.Thread
		}
	}

	ctx := &Context{
		Parent:        parent,
		Space:         space,
		Thread:        thread,
		locals:        make([]valueword.Handle, len(localNames)),
		names:         append([]uint64(nil), localNames...),
		closureLocals: ordmap.NewEmpty(alloc, ordmap.SemanticPlainMap),
	}

	if len(positional) > len(paramNames) {
		return nil, &TooManyPositional{Got: len(positional), Want: len(paramNames)}
	}
	for i, v := range positional {
		ctx.locals[i] = v
	}

	bound := make(map[uint64]bool, len(positional))
	for i := 0; i < len(positional); i++ {
		bound[paramNames[i]] = true
	}

	for nameHash, v := range keyword {
		slot := indexOf(paramNames, nameHash)
		if slot < 0 {
			if cb.ParameterNotFound != nil {
				cb.ParameterNotFound(ctx, nameHash)
			}
			continue
		}
		if bound[nameHash] {
			if cb.ParameterTwiceAssigned != nil {
				cb.ParameterTwiceAssigned(ctx, nameHash)
			}
			continue
		}
		ctx.locals[slot] = v
		bound[nameHash] = true
	}

	return ctx, nil
}

func indexOf(names []uint64, h uint64) int {
	for i, n := range names {
		if n == h {
			return i
		}
	}
	return -1
}

// GetLocal/SetLocal address the automatic-locals array by slot index.
func (c *Context) GetLocal(slot int) valueword.Handle {
	if slot < 0 || slot >= len(c.locals) {
		return valueword.None
	}
	return c.locals[slot]
}

func (c *Context) SetLocal(slot int, v valueword.Handle) {
	if slot < 0 || slot >= len(c.locals) {
		return
	}
	c.locals[slot] = v
}

// GetClosureLocal/SetClosureLocal address the closure-locals persistent
// map by parameter-name hash.
func (c *Context) GetClosureLocal(nameHash uint64) (valueword.Handle, bool) {
	return ordmap.Get(c.closureLocals, nameHash)
}

func (c *Context) SetClosureLocal(alloc Allocator, nameHash uint64, v valueword.Handle) {
	c.closureLocals = ordmap.Set(alloc, c.closureLocals, nameHash, v)
}

// ReturnValue/SetReturnValue address the context's return-value slot.
func (c *Context) ReturnValue() valueword.Handle { return c.returnValue }

func (c *Context) SetReturnValue(v valueword.Handle) { c.returnValue = v }

// ForEachLocal visits every (nameHash, value) automatic-local slot, used by
// the GC root walk (spec §4.10 "each context's automatic-locals array").
func (c *Context) ForEachLocal(fn func(nameHash uint64, v valueword.Handle)) {
	for i, v := range c.locals {
		fn(c.names[i], v)
	}
}

// ClosureLocals exposes the closure-locals map root, used by the GC root
// walk (spec §4.10 "each context's closure-locals map").
func (c *Context) ClosureLocals() valueword.Handle { return c.closureLocals }

// YoungGenHead exposes the young-generation list head, used by the GC root
// walk (spec §4.10 "each context's young-generation head").
func (c *Context) YoungGenHead() (*cellpool.Cell, int) { return c.youngGen, c.youngN }

// LocalFreeAddrs reports the addresses of cells sitting idle on this
// context's private local free-list (spare cells claimed from a batch
// refill but not yet handed out to a caller). These carry no content and
// are referenced by no root, so the sweep phase must treat them the same
// way it treats the space pool's own free-list — present in neither the
// live set nor eligible for re-reclaiming — or a cell could be hand out
// twice: once to this context's next local allocation, once to whatever
// the sweep's reclaimed list feeds next (see internal/gc.Sweep).
func (c *Context) LocalFreeAddrs() []uintptr {
	var out []uintptr
	for cell := c.localFree; cell != nil; cell = cell.Next {
		out = append(out, cellpool.Addr(cell))
	}
	return out
}
