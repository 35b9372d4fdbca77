package gc

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/ordmap"
	"github.com/Voskan/protocore/internal/valueword"
)

// Allocator is the cell-allocation seam the live-set map is built with.
// The mark phase runs with the world stopped, so this can safely be a
// plain pool-backed allocator (no tiered policy, no safepoint checks).
type Allocator interface {
	AllocCell() *cellpool.Cell
}

// RootSet enumerates every handle the embedding space considers a GC root
// (spec §4.10): each thread's context chain, each context's automatic-
// locals array and closure-locals map and young-generation head, the
// mutable-root map, the interned-tuple root, the module-root list, and
// the space's literal cache. Implemented by pkg.Space; gc only consumes
// it, so it stays a plain callback type to avoid importing pkg (which
// would be a cycle: pkg imports gc).
type RootSet func(visit func(valueword.Handle))

// liveKey returns the ordmap key a heap handle is recorded under in the
// live-set: its cell address, which is unique and stable for the handle's
// entire lifetime (spec §4.10 "keyed by cell hash").
func liveKey(h valueword.Handle) (uint64, bool) {
	addr, ok := valueword.HeapAddr(h)
	if !ok {
		return 0, false
	}
	return uint64(addr), true
}

// Mark builds the live-set persistent map by tracing every root
// transitively (spec §4.10 "Marking"). Recursion stops whenever a cell's
// key is already present in the live set, which also guards against
// reference cycles (object parent chains, mutually-recursive closures).
func Mark(alloc Allocator, roots RootSet) valueword.Handle {
	live := ordmap.NewEmpty(alloc, ordmap.SemanticPlainMap)
	roots(func(h valueword.Handle) {
		live = markOne(alloc, live, h)
	})
	return live
}

func markOne(alloc Allocator, live valueword.Handle, h valueword.Handle) valueword.Handle {
	key, ok := liveKey(h)
	if !ok {
		return live // embedded immediate: nothing to trace
	}
	if ordmap.Has(live, key) {
		return live
	}
	live = ordmap.Set(alloc, live, key, h)

	addr, _ := valueword.HeapAddr(h)
	cell := cellpool.FromAddr(addr)
	fn, ok := lookupTracer(cell.Tag, cell.Kind)
	if !ok {
		return live
	}
	fn(cell, func(child valueword.Handle) {
		live = markOne(alloc, live, child)
	})
	return live
}

// IsLive reports whether the cell at addr was reached during the most
// recent Mark pass.
func IsLive(live valueword.Handle, addr uintptr) bool {
	return ordmap.Has(live, uint64(addr))
}
