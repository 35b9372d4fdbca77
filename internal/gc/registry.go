// Package gc implements the concurrent generational collector (C11) from
// spec.md §4.10: a RUNNING → REQUEST_STW → WORLD_STOPPED → RUNNING/ENDING
// state machine, a mark phase that traces roots into a live-set persistent
// map, a sweep phase that finalizes and recycles unreached cells, and the
// safepoint protocol every allocation and managed-state transition
// participates in (§5). The collector has no goroutine of its own: each
// mark-sweep-recycle pass runs inline on whichever caller observes full
// quiescence (the last thread to park, or RequestGC's caller when no
// threads are registered).
//
// gc never imports the kind packages (internal/ordmap, internal/rope,
// internal/object, internal/setms, internal/execctx): each of those
// registers a trace function for its own (Tag, Kind) cell shapes via
// RegisterTracer, the same registration-by-side-effect idiom Go's
// database/sql uses for drivers. This keeps gc generic and keeps the
// dependency graph acyclic (those packages may freely import gc; gc must
// never import them back).
//
// © 2025 protocore authors. MIT License.
package gc

import (
	"sync"

	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/valueword"
)

// TraceFunc visits every child Handle directly referenced by a cell's
// payload, calling visit for each. It must not recurse itself; the mark
// phase (mark.go) owns recursion and cycle/duplicate detection via the
// live-set map.
type TraceFunc func(cell *cellpool.Cell, visit func(valueword.Handle))

type tracerKey struct {
	tag  valueword.Tag
	kind uint8
}

var (
	tracerMu sync.RWMutex
	tracers  = map[tracerKey]TraceFunc{}
)

// RegisterTracer installs the trace function for cells carrying the given
// (tag, kind) pair. Called from each kind package's init().
func RegisterTracer(tag valueword.Tag, kind uint8, fn TraceFunc) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	tracers[tracerKey{tag, kind}] = fn
}

func lookupTracer(tag valueword.Tag, kind uint8) (TraceFunc, bool) {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	fn, ok := tracers[tracerKey{tag, kind}]
	return fn, ok
}

// FinalizeFunc runs a kind-specific cleanup when the sweep phase reclaims
// a cell that owns native resources (spec §4.12 "shadow finalization":
// external buffers free their malloc'd segment, external pointers invoke
// their registered finalizer).
type FinalizeFunc func(cell *cellpool.Cell)

var (
	finalizerMu sync.RWMutex
	finalizers  = map[tracerKey]FinalizeFunc{}
)

// RegisterFinalizer installs the finalize function for cells carrying the
// given (tag, kind) pair. Called from the init() of internal/external and
// internal/bignum.
func RegisterFinalizer(tag valueword.Tag, kind uint8, fn FinalizeFunc) {
	finalizerMu.Lock()
	defer finalizerMu.Unlock()
	finalizers[tracerKey{tag, kind}] = fn
}

func lookupFinalizer(tag valueword.Tag, kind uint8) (FinalizeFunc, bool) {
	finalizerMu.RLock()
	defer finalizerMu.RUnlock()
	fn, ok := finalizers[tracerKey{tag, kind}]
	return fn, ok
}
