package gc

import "github.com/Voskan/protocore/internal/cellpool"

// Heap is the full pool seam a GC cycle needs: batch allocation (to build
// the live-set map), block enumeration and free-set inspection for
// Sweep, and Recycle to return reclaimed cells. *cellpool.Pool satisfies
// this directly.
type Heap interface {
	RefillBatch(n int) (*cellpool.Cell, int)
	BlockSource
	Recycle(head *cellpool.Cell, n int)
}

// poolAllocator adapts a Heap's batch refill into the single-cell
// Allocator seam Mark needs to grow the live-set map.
type poolAllocator struct{ heap Heap }

func (p poolAllocator) AllocCell() *cellpool.Cell {
	head, n := p.heap.RefillBatch(1)
	if n != 1 {
		panic("gc: heap exhausted while building the live-set map")
	}
	return head
}

// Cycle bundles one mark-sweep-recycle pass (spec §4.10) into the
// Collector.runFn shape. Construct with NewCycle and pass Run as the New
// collector's run callback.
type Cycle struct {
	Heap  Heap
	Roots RootSet

	// LastReclaimed is the number of cells recycled by the most recent Run,
	// consulted by Collector.FreeHint indirectly through the pool's own
	// Stats rather than read directly.
	LastReclaimed int
}

func NewCycle(heap Heap, roots RootSet) *Cycle {
	return &Cycle{Heap: heap, Roots: roots}
}

// Run performs exactly one mark phase followed by one sweep-and-recycle
// phase. It must only be invoked with the world already stopped (the
// Collector guarantees this).
func (c *Cycle) Run() {
	live := Mark(poolAllocator{c.Heap}, c.Roots)
	reclaimed, n := Sweep(c.Heap, live)
	c.Heap.Recycle(reclaimed, n)
	c.LastReclaimed = n
}
