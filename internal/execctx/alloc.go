package execctx

import "github.com/Voskan/protocore/internal/cellpool"

// CellSource is satisfied directly by *cellpool.Pool: both a thread's
// private pool and the space's global pool refill in batches under this
// same seam (spec §4.2 steps 2-4).
type CellSource interface {
	RefillBatch(n int) (*cellpool.Cell, int)
}

// Safepoint is the GC coordination seam a context's allocator parks
// against (spec §4.2 "on every allocation, if the global stop-the-world
// flag is set, the caller parks"; §5 safepoint protocol). Implemented by
// internal/gc's collector.
type Safepoint interface {
	// Park blocks the caller if the global STW flag is currently armed,
	// returning once the collector signals resumption; it is a no-op
	// otherwise.
	Park()
	// RequestGC wakes the collector because the allocator could not find
	// any free cells, and blocks until the collector either frees some
	// (recovered=true) or gives up (recovered=false).
	RequestGC() (recovered bool)
}

// AllocCell implements the tiered allocation policy of spec §4.2:
// (1) the context's own local free-list, (2) the owning thread's private
// pool, (3) the space's global pool (which itself transparently grows the
// heap by a new Block before reporting empty), (4) waking the collector
// and retrying once, (5) the embedder's out-of-memory callback.
//
// The returned cell is zeroed and already prepended to this context's
// young-generation list; it is not yet reachable from any root.
func (c *Context) AllocCell(threadPool, spacePool CellSource, sp Safepoint, onOOM func()) *cellpool.Cell {
	sp.Park()

	if c.localFree != nil {
		cell := c.localFree
		c.localFree = cell.Next
		c.localFreeN--
		cell.Next = nil
		c.prependYoung(cell)
		return cell
	}

	if head, n := threadPool.RefillBatch(cellpool.BatchSize); n > 0 {
		return c.takeFromBatch(head, n)
	}

	if head, n := spacePool.RefillBatch(cellpool.BatchSize); n > 0 {
		return c.takeFromBatch(head, n)
	}

	if recovered := sp.RequestGC(); recovered {
		if head, n := spacePool.RefillBatch(cellpool.BatchSize); n > 0 {
			return c.takeFromBatch(head, n)
		}
	}

	if onOOM != nil {
		onOOM()
	}
	panic("execctx: out of memory")
}

// takeFromBatch claims the first cell of a freshly refilled batch for
// immediate use, stashing the rest on this context's local free-list.
func (c *Context) takeFromBatch(head *cellpool.Cell, n int) *cellpool.Cell {
	cell := head
	rest := cell.Next
	cell.Next = nil
	if n > 1 {
		c.localFree = rest
		c.localFreeN = n - 1
	}
	c.prependYoung(cell)
	return cell
}

func (c *Context) prependYoung(cell *cellpool.Cell) {
	cell.Next = c.youngGen
	c.youngGen = cell
	c.youngN++
}

// BoundAllocator adapts a context plus its pools/safepoint into the plain
// Allocator seam (AllocCell() *cellpool.Cell) used throughout the other
// kind packages (ordmap, rope, object, ...), so any persistent-structure
// mutation performed on behalf of this context goes through the same
// tiered policy as every other allocation.
type BoundAllocator struct {
	Ctx         *Context
	ThreadPool  CellSource
	SpacePool   CellSource
	Safepoint   Safepoint
	OutOfMemory func()
}

func (b BoundAllocator) AllocCell() *cellpool.Cell {
	return b.Ctx.AllocCell(b.ThreadPool, b.SpacePool, b.Safepoint, b.OutOfMemory)
}
