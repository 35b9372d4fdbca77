package gc

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/valueword"
)

// BlockSource exposes every allocated block in the space's heap extent
// plus the set of cells already sitting idle on the free-list, both
// satisfied directly by *cellpool.Pool.
type BlockSource interface {
	AllBlocks() []*cellpool.Block
	FreeAddrs() map[uintptr]struct{}
}

// Sweep walks every cell in every block (spec §4.10 "Sweeping"): a cell
// not present in the live set is finalized (its kind-specific finalizer,
// used by external buffers/pointers to free native memory), zeroed, and
// collected into a singly linked reclaimed list, which the caller hands
// to the pool's Recycle. live is the root handle returned by Mark.
//
// Cells already sitting on the pool's free-list (never handed out since
// the last sweep, so no Handle anywhere could reference them) are
// skipped outright: reclaiming them a second time would splice the same
// cell into two free chains at once, handing out one physical cell for
// two logical allocations.
func Sweep(pool BlockSource, live valueword.Handle) (reclaimed *cellpool.Cell, count int) {
	free := pool.FreeAddrs()
	var head, tail *cellpool.Cell
	for _, b := range pool.AllBlocks() {
		cells := b.Cells()
		for i := range cells {
			c := &cells[i]
			addr := cellpool.Addr(c)
			if _, alreadyFree := free[addr]; alreadyFree {
				continue
			}
			if IsLive(live, addr) {
				continue
			}
			if fn, ok := lookupFinalizer(c.Tag, c.Kind); ok {
				fn(c)
			}
			c.Reset()
			if head == nil {
				head = c
			} else {
				tail.Next = c
			}
			tail = c
			count++
		}
	}
	if tail != nil {
		tail.Next = nil
	}
	return head, count
}
