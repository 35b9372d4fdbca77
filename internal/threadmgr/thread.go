package threadmgr

import (
	"sync"
	"sync/atomic"

	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/execctx"
	"github.com/Voskan/protocore/internal/gc"
	"github.com/Voskan/protocore/internal/object"
	"github.com/Voskan/protocore/internal/valueword"
)

// EntryFunc is a thread's entry procedure (spec §4.11 new_thread): it runs
// on the fresh context NewThread built for it.
type EntryFunc func(ctx *execctx.Context)

// Config supplies everything a thread needs to participate in allocation
// and collection: the space's global pool and safepoint (the collector
// itself satisfies execctx.Safepoint), the collector's input queue for
// young-generation hand-off on context exit, and the out-of-memory
// callback. All four are owned by the space and shared by every thread.
type Config struct {
	Name         string
	Space        any
	SpacePool    execctx.CellSource
	Collector    *gc.Collector
	Queue        execctx.Queue
	OutOfMemory  func()
	LocalPoolMax int64 // 0 means unbounded, per cellpool.NewPool
}

// Thread is a managed or unmanaged runtime thread (spec §3.9): a name, the
// owning space, a managed/unmanaged counter, a current-context pointer, a
// private free-list, and a direct-mapped attribute cache.
type Thread struct {
	id       uint64
	Name     string
	Space    any
	registry *Registry

	collector   *gc.Collector
	spacePool   execctx.CellSource
	queue       execctx.Queue
	outOfMemory func()

	localPool *cellpool.Pool // this thread's private cell free-list (spec §4.2 step 2)
	attrCache *object.AttrCache

	managedCount atomic.Int32 // >0 means managed; starts managed
	current      atomic.Pointer[execctx.Context]

	// spawnParent is the frame exit must stop BEFORE tearing down: the
	// space's root context (or another thread's frame) that this
	// thread's own root context was spawned from. Without this boundary,
	// exit's walk up ctx.Parent would keep going past the thread's own
	// frames and tear down a context chain shared with its spawner.
	spawnParent *execctx.Context

	done     chan struct{}
	exitOnce sync.Once
}

// NewThread registers a new thread with reg and the space's collector. The
// thread starts managed (counter = 1) and with no current context; the
// caller installs one via SetCurrent before running any entry procedure
// (spawn does this for OS-thread-backed threads; a space's bootstrap root
// thread does it directly).
func NewThread(reg *Registry, cfg Config) *Thread {
	t := &Thread{
		Name:        cfg.Name,
		Space:       cfg.Space,
		registry:    reg,
		collector:   cfg.Collector,
		spacePool:   cfg.SpacePool,
		queue:       cfg.Queue,
		outOfMemory: cfg.OutOfMemory,
		localPool:   cellpool.NewPool(cfg.LocalPoolMax),
		attrCache:   object.NewAttrCache(),
		done:        make(chan struct{}),
	}
	t.managedCount.Store(1)
	t.id = reg.register(t)
	cfg.Collector.RegisterThread()
	return t
}

// ID is the thread's registry id, used to name it externally alongside
// Name (spec §4.11 "Thread naming").
func (t *Thread) ID() uint64 { return t.id }

// AttrCache exposes this thread's private direct-mapped attribute cache
// (spec §3.9), passed to object.GetAttribute by whatever evaluator runs on
// this thread.
func (t *Thread) AttrCache() *object.AttrCache { return t.attrCache }

// Current returns the thread's current-context pointer, part of the GC's
// root set (spec §4.10 "every thread's current context chain").
func (t *Thread) Current() *execctx.Context { return t.current.Load() }

// SetCurrent installs ctx as the thread's current context. Called when a
// call enters a new frame and when it returns to the caller's frame.
func (t *Thread) SetCurrent(ctx *execctx.Context) { t.current.Store(ctx) }

// BoundAllocator adapts ctx plus this thread's pools/safepoint into the
// plain execctx.Allocator seam, for use by whatever persistent-structure
// mutation the running call performs against ctx.
func (t *Thread) BoundAllocator(ctx *execctx.Context) execctx.BoundAllocator {
	return execctx.BoundAllocator{
		Ctx:         ctx,
		ThreadPool:  t.localPool,
		SpacePool:   t.spacePool,
		Safepoint:   t.collector,
		OutOfMemory: t.outOfMemory,
	}
}

// NewContext binds a fresh child context of parent to this thread, per
// spec §4.9's "inherit space and thread from parent if provided".
func (t *Thread) NewContext(
	parent *execctx.Context,
	paramNames, localNames []uint64,
	positional []valueword.Handle,
	keyword map[uint64]valueword.Handle,
	cb execctx.Callbacks,
) (*execctx.Context, error) {
	alloc := t.BoundAllocator(parent)
	return execctx.New(alloc, parent, t.Space, t, paramNames, localNames, positional, keyword, cb)
}

// Spawn implements new_thread (spec §4.11): it registers a new managed
// thread, builds its root context as a child of rootCtx (the space's root
// context), installs it as current, and runs entry on a fresh goroutine —
// this runtime's stand-in for "spawns an OS thread", since every managed
// thread here is already backed by a real OS-schedulable goroutine and the
// safepoint protocol (not an OS-level mechanism) is what makes GC
// coordination correct regardless of how the thread is scheduled.
func Spawn(reg *Registry, cfg Config, rootCtx *execctx.Context, entry EntryFunc) *Thread {
	t := NewThread(reg, cfg)
	alloc := t.BoundAllocator(rootCtx)
	ctx, err := execctx.New(alloc, rootCtx, cfg.Space, t, nil, nil, nil, nil, execctx.Callbacks{})
	if err != nil {
		// New cannot fail with nil paramNames/positional; guard anyway
		// rather than leaving the thread half-registered.
		t.exit()
		return t
	}
	t.spawnParent = rootCtx
	t.SetCurrent(ctx)
	go func() {
		defer t.exit()
		entry(ctx)
	}()
	return t
}

// Detach marks the thread fire-and-forget: Join will no longer be called
// by the spawner. Since every thread here already runs on its own
// goroutine independent of its spawner, Detach is a documentation-only
// no-op — the goroutine was never attached to anything that needed
// releasing.
func (t *Thread) Detach() {}

// Join blocks until the thread's entry procedure returns and its context
// chain has been torn down.
func (t *Thread) Join() {
	<-t.done
}

// SetManaged increments the managed counter (spec §4.11 set_managed). On
// the 0→1 transition the thread becomes subject to the safepoint protocol
// again, so it must immediately check the STW flag before proceeding
// (spec §5 "every thread transition from unmanaged to managed checks the
// STW flag").
func (t *Thread) SetManaged() {
	if t.managedCount.Add(1) == 1 {
		t.collector.RegisterThread()
		t.collector.Park()
	}
}

// SetUnmanaged decrements the managed counter (spec §4.11
// set_unmanaged). On the 1→0 transition the thread stops being required
// to park at safepoints; the embedder must then guarantee it holds no raw
// cell references until it calls SetManaged again.
func (t *Thread) SetUnmanaged() {
	if t.managedCount.Add(-1) == 0 {
		t.collector.UnregisterThread()
	}
}

// Managed reports whether the thread currently counts toward the
// collector's running-threads tally.
func (t *Thread) Managed() bool { return t.managedCount.Load() > 0 }

// exit implements the teardown half of spec §4.11's exit: the context
// chain from the thread's current context up to (and including) its root
// is handed off to the collector's queue one frame at a time via
// execctx.Exit, then the thread unregisters itself. Idempotent: a thread
// that is both explicitly exited and reaped by its goroutine's deferred
// call only tears down once.
func (t *Thread) exit() {
	t.exitOnce.Do(func() {
		for ctx := t.current.Load(); ctx != nil && ctx != t.spawnParent; {
			parent := ctx.Parent
			alloc := t.BoundAllocator(ctx)
			execctx.Exit(alloc, ctx, t.queue)
			ctx = parent
		}
		t.current.Store(nil)
		if t.Managed() {
			t.collector.UnregisterThread()
		}
		t.registry.unregister(t.id)
		close(t.done)
	})
}

// Exit is the public form of exit, for an entry procedure that wants to
// unwind its own context chain early (spec §4.11 exit: "from within the
// target thread detaches and tears down its context chain").
func (t *Thread) Exit() { t.exit() }
