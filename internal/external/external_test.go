package external_test

import (
	"testing"
	"unsafe"

	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/external"
	"github.com/Voskan/protocore/internal/gc"
	"github.com/Voskan/protocore/internal/valueword"
)

type testAlloc struct{ pool *cellpool.Pool }

func (a testAlloc) AllocCell() *cellpool.Cell {
	head, n := a.pool.RefillBatch(1)
	if n != 1 {
		panic("out of cells")
	}
	return head
}

func TestNewBufferRawPointerStable(t *testing.T) {
	pool := cellpool.NewPool(0)
	a := testAlloc{pool}

	h := external.NewBuffer(a, 16)
	p1 := external.GetRawPointer(h)
	p2 := external.GetRawPointer(h)
	if p1 != p2 {
		t.Fatalf("expected stable address across calls")
	}
	if external.Size(h) != 16 {
		t.Fatalf("got size %d, want 16", external.Size(h))
	}
}

func TestNewPointerFinalizerRunsOnSweep(t *testing.T) {
	pool := cellpool.NewPool(0)
	a := testAlloc{pool}

	var freed bool
	var freedPtr unsafe.Pointer
	var native int = 42
	native2 := &native

	h := external.NewPointer(a, unsafe.Pointer(native2), func(ptr unsafe.Pointer) {
		freed = true
		freedPtr = ptr
	})
	if got := external.GetPointer(h); got != unsafe.Pointer(native2) {
		t.Fatalf("expected GetPointer to return the wrapped pointer")
	}

	roots := gc.RootSet(func(visit func(valueword.Handle)) {})
	live := gc.Mark(a, roots)
	reclaimed, n := gc.Sweep(pool, live)
	if n == 0 {
		t.Fatalf("expected the unrooted pointer descriptor to be swept")
	}
	pool.Recycle(reclaimed, n)

	if !freed {
		t.Fatalf("expected finalizer to run on sweep")
	}
	if freedPtr != unsafe.Pointer(native2) {
		t.Fatalf("expected finalizer to receive the wrapped pointer")
	}
}

func TestBufferFinalizedOnSweepIsUnusable(t *testing.T) {
	pool := cellpool.NewPool(0)
	a := testAlloc{pool}

	h := external.NewBuffer(a, 8)

	roots := gc.RootSet(func(visit func(valueword.Handle)) {})
	live := gc.Mark(a, roots)
	reclaimed, n := gc.Sweep(pool, live)
	if n == 0 {
		t.Fatalf("expected the unrooted buffer descriptor to be swept")
	}
	pool.Recycle(reclaimed, n)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected GetRawPointer on a finalized descriptor to panic")
		}
	}()
	external.GetRawPointer(h)
}
