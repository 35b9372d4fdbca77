// Package external implements ProtoExternalBuffer and ProtoExternalPointer
// (C13) from spec.md §4.12: GC-finalized descriptors for native resources.
// A buffer owns a contiguous segment of configurable size; a pointer
// wraps a borrowed native pointer plus an optional cleanup callback. Both
// use shadow finalization — when the collector sweeps the descriptor
// cell, the registered finalizer runs before the cell is zeroed.
//
// © 2025 protocore authors. MIT License.
package external

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/gc"
	"github.com/Voskan/protocore/internal/valueword"
)

// ShapeBuffer/ShapePointer are the Cell.Kind values for the two C13
// descriptor shapes, both stamped under valueword.TagExternalBuffer /
// valueword.TagExternalPointer respectively — unlike setms/object, these
// two kinds don't share a tag, so kind 0 is fine for both.
const (
	ShapeBuffer  uint8 = 0
	ShapePointer uint8 = 0
)

// bufferPayload/pointerPayload hold only a side-table id: the actual
// native-shaped resource (a []byte segment; a raw unsafe.Pointer plus its
// Finalizer func value) is never packed into a Cell's payload bytes. A
// Cell's data field is a plain [PayloadSize]byte with no pointer-ness in
// its static type, so Go's precise garbage collector does not scan it —
// anything stored there that looks like a pointer at runtime is invisible
// to the Go runtime's own collector and could be reclaimed out from under
// this package while still "reachable" through the descriptor's cell.
// Indirecting through an id into the ordinary Go map in registry (below)
// keeps every real pointer in normal, GC-visible Go memory, the same
// id-plus-side-table shape internal/object's MutableRoots uses for
// mutable object snapshots.
type bufferPayload struct{ id uint64 }
type pointerPayload struct{ id uint64 }

func init() {
	cellpool.MustFit[bufferPayload]()
	cellpool.MustFit[pointerPayload]()

	gc.RegisterFinalizer(valueword.TagExternalBuffer, ShapeBuffer, func(c *cellpool.Cell) {
		id := cellpool.PayloadAs[bufferPayload](c).id
		reg.freeBuffer(id)
	})
	gc.RegisterFinalizer(valueword.TagExternalPointer, ShapePointer, func(c *cellpool.Cell) {
		id := cellpool.PayloadAs[pointerPayload](c).id
		reg.freePointer(id)
	})
}

// Allocator is the cell-allocation seam, matching every other kind
// package's Allocator interface.
type Allocator interface {
	AllocCell() *cellpool.Cell
}

// Finalizer is the embedder-supplied cleanup invoked when an
// ExternalPointer's descriptor is swept (spec §4.12). ptr is the borrowed
// native pointer itself, not the descriptor.
type Finalizer func(ptr unsafe.Pointer)

type bufferEntry struct {
	data []byte
}

type pointerEntry struct {
	ptr       unsafe.Pointer
	finalizer Finalizer
}

// registry is the shadow side table keyed by an id minted once per
// descriptor, guarded by a plain mutex: unlike MutableRoots (a persistent
// ordmap of Handle values, CAS-published), these values are raw []byte
// segments, unsafe.Pointer, and func values — none of which an ordmap
// keyed on valueword.Handle could hold, so a mutex-guarded native Go map
// is the right tool here rather than forcing the persistent-map idiom
// onto data it cannot represent.
type registry struct {
	mu       sync.Mutex
	buffers  map[uint64]*bufferEntry
	pointers map[uint64]*pointerEntry
}

var (
	nextID uint64
	reg    = &registry{
		buffers:  make(map[uint64]*bufferEntry),
		pointers: make(map[uint64]*pointerEntry),
	}
)

func allocID() uint64 { return atomic.AddUint64(&nextID, 1) }

func (r *registry) freeBuffer(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buffers, id)
}

func (r *registry) freePointer(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.pointers[id]; ok {
		if e.finalizer != nil {
			e.finalizer(e.ptr)
		}
		delete(r.pointers, id)
	}
}

// NewBuffer allocates a ProtoExternalBuffer owning a size-byte segment
// (spec §4.12: "owns a contiguous malloc-aligned segment of configurable
// size"). The segment is ordinary Go-managed memory rather than a literal
// malloc call — this library has no cgo dependency to make that real —
// but it is reachable only through this descriptor's raw pointer, exactly
// as spec'd: the embedder sees a stable address valid for the descriptor's
// lifetime and must not retain it past the descriptor's last reachable
// moment.
func NewBuffer(alloc Allocator, size int) valueword.Handle {
	id := allocID()
	reg.mu.Lock()
	reg.buffers[id] = &bufferEntry{data: make([]byte, size)}
	reg.mu.Unlock()

	c := alloc.AllocCell()
	c.Tag = valueword.TagExternalBuffer
	c.Kind = ShapeBuffer
	cellpool.PayloadAs[bufferPayload](c).id = id
	return valueword.WrapHeap(valueword.TagExternalBuffer, cellpool.Addr(c))
}

// GetRawPointer returns the segment's address, stable for the
// descriptor's lifetime (spec §4.12 get_raw_pointer).
func GetRawPointer(h valueword.Handle) unsafe.Pointer {
	e := bufferEntryOf(h)
	if len(e.data) == 0 {
		return nil
	}
	return unsafe.Pointer(&e.data[0])
}

// Size reports the buffer's configured size in bytes.
func Size(h valueword.Handle) int {
	return len(bufferEntryOf(h).data)
}

func bufferEntryOf(h valueword.Handle) *bufferEntry {
	id := cellpool.PayloadAs[bufferPayload](cellOf(h)).id
	reg.mu.Lock()
	defer reg.mu.Unlock()
	e, ok := reg.buffers[id]
	if !ok {
		panic("external: buffer descriptor finalized or never registered")
	}
	return e
}

// NewPointer wraps a borrowed native pointer and an optional finalizer
// (spec §4.12 ProtoExternalPointer). finalizer may be nil, meaning the
// runtime does not own ptr and performs no cleanup on sweep.
func NewPointer(alloc Allocator, ptr unsafe.Pointer, finalizer Finalizer) valueword.Handle {
	id := allocID()
	reg.mu.Lock()
	reg.pointers[id] = &pointerEntry{ptr: ptr, finalizer: finalizer}
	reg.mu.Unlock()

	c := alloc.AllocCell()
	c.Tag = valueword.TagExternalPointer
	c.Kind = ShapePointer
	cellpool.PayloadAs[pointerPayload](c).id = id
	return valueword.WrapHeap(valueword.TagExternalPointer, cellpool.Addr(c))
}

// GetPointer returns the wrapped native pointer.
func GetPointer(h valueword.Handle) unsafe.Pointer {
	id := cellpool.PayloadAs[pointerPayload](cellOf(h)).id
	reg.mu.Lock()
	defer reg.mu.Unlock()
	e, ok := reg.pointers[id]
	if !ok {
		panic("external: pointer descriptor finalized or never registered")
	}
	return e.ptr
}

func cellOf(h valueword.Handle) *cellpool.Cell {
	addr, ok := valueword.HeapAddr(h)
	if !ok {
		panic("external: handle is not a heap reference")
	}
	return cellpool.FromAddr(addr)
}
