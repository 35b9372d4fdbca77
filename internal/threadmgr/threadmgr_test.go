package threadmgr_test

import (
	"testing"

	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/execctx"
	"github.com/Voskan/protocore/internal/gc"
	"github.com/Voskan/protocore/internal/threadmgr"
)

type fakeQueue struct {
	enqueued int
}

func (q *fakeQueue) Enqueue(head *cellpool.Cell, n int) { q.enqueued += n }

func newConfig(name string, spacePool *cellpool.Pool, collector *gc.Collector, queue execctx.Queue) threadmgr.Config {
	return threadmgr.Config{
		Name:      name,
		SpacePool: spacePool,
		Collector: collector,
		Queue:     queue,
	}
}

func TestNewThreadRegistersAndUnregisters(t *testing.T) {
	reg := threadmgr.NewRegistry()
	collector := gc.New(func() {})
	spacePool := cellpool.NewPool(0)
	queue := &fakeQueue{}

	th := threadmgr.NewThread(reg, newConfig("main", spacePool, collector, queue))
	if reg.Len() != 1 {
		t.Fatalf("expected 1 registered thread, got %d", reg.Len())
	}
	if !th.Managed() {
		t.Fatalf("expected new thread to start managed")
	}

	th.Exit()
	if reg.Len() != 0 {
		t.Fatalf("expected thread to unregister on exit, registry still has %d", reg.Len())
	}
}

func TestSetManagedUnmanagedRoundTrip(t *testing.T) {
	reg := threadmgr.NewRegistry()
	collector := gc.New(func() {})
	spacePool := cellpool.NewPool(0)
	queue := &fakeQueue{}

	th := threadmgr.NewThread(reg, newConfig("worker", spacePool, collector, queue))
	defer th.Exit()

	th.SetUnmanaged()
	if th.Managed() {
		t.Fatalf("expected thread to be unmanaged after SetUnmanaged")
	}
	th.SetManaged()
	if !th.Managed() {
		t.Fatalf("expected thread to be managed again after SetManaged")
	}
}

func TestSpawnRunsEntryAndJoinWaits(t *testing.T) {
	reg := threadmgr.NewRegistry()
	collector := gc.New(func() {})
	spacePool := cellpool.NewPool(0)
	queue := &fakeQueue{}

	alloc := func() *cellpool.Cell {
		head, n := spacePool.RefillBatch(1)
		if n != 1 {
			t.Fatalf("out of cells")
		}
		return head
	}
	rootAlloc := allocFunc(alloc)
	rootCtx, err := execctx.New(rootAlloc, nil, "space", nil, nil, nil, nil, nil, execctx.Callbacks{})
	if err != nil {
		t.Fatalf("unexpected error building root context: %v", err)
	}

	var ran bool
	th := threadmgr.Spawn(reg, newConfig("worker", spacePool, collector, queue), rootCtx, func(ctx *execctx.Context) {
		ran = true
		ctx.SetReturnValue(rootCtx.ReturnValue())
	})
	th.Join()

	if !ran {
		t.Fatalf("expected entry procedure to run")
	}
	if reg.Len() != 0 {
		t.Fatalf("expected spawned thread to unregister after its entry returns")
	}
}

type allocFunc func() *cellpool.Cell

func (f allocFunc) AllocCell() *cellpool.Cell { return f() }

func TestForEachVisitsAllRegisteredThreads(t *testing.T) {
	reg := threadmgr.NewRegistry()
	collector := gc.New(func() {})
	spacePool := cellpool.NewPool(0)
	queue := &fakeQueue{}

	a := threadmgr.NewThread(reg, newConfig("a", spacePool, collector, queue))
	b := threadmgr.NewThread(reg, newConfig("b", spacePool, collector, queue))
	defer a.Exit()
	defer b.Exit()

	seen := map[uint64]bool{}
	reg.ForEach(func(th *threadmgr.Thread) {
		seen[th.ID()] = true
	})
	if !seen[a.ID()] || !seen[b.ID()] {
		t.Fatalf("expected ForEach to visit both registered threads")
	}
}
