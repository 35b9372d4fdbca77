package protocore

// space.go is the central wiring point: it owns the heap (cellpool.Pool),
// the collector (gc.Collector driving a gc.Cycle), the thread registry,
// the mutable-root table, the interner, and the module cache, and
// assembles the gc.RootSet callback every one of those pieces feeds into
// (spec §4.10: thread context chains, mutable roots, interned tuples/
// strings, module roots). It plays the role the teacher's Cache[K,V]
// played as the single embedder-facing type, generalized from "a sharded
// key/value store" to "a protoCore runtime instance".
//
// © 2025 protocore authors. MIT License.

import (
	"context"
	"errors"
	"fmt"
	"hash/maphash"
	"time"

	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/execctx"
	"github.com/Voskan/protocore/internal/gc"
	"github.com/Voskan/protocore/internal/modcache"
	"github.com/Voskan/protocore/internal/object"
	"github.com/Voskan/protocore/internal/rope"
	"github.com/Voskan/protocore/internal/threadmgr"
	"github.com/Voskan/protocore/internal/valueword"
)

// Space is one protoCore runtime instance: the unit of heap ownership, GC,
// and thread scheduling (spec §3.1 "Space"). Every handle produced by one
// Space is meaningless to another — there is no cross-Space sharing.
type Space struct {
	cfg     *config
	metrics metricsSink

	pool      *cellpool.Pool
	collector *gc.Collector

	threads *threadmgr.Registry
	roots   object.MutableRoots
	interns rope.Interner

	modCache  *modcache.ModuleCache
	providers *modcache.ProviderRegistry
	resolver  *modcache.Resolver
	nameSeed  maphash.Seed

	rootThread *threadmgr.Thread
	rootCtx    *execctx.Context
}

// New constructs a Space and its bootstrap root thread/context.
func New(opts ...Option) (*Space, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	modCache, err := modcache.Open(modcache.Options{Dir: cfg.moduleCacheDir, Logger: cfg.logger})
	if err != nil {
		return nil, err
	}
	providers := modcache.NewProviderRegistry()
	for _, p := range cfg.providers {
		if err := providers.Register(p); err != nil {
			modCache.Close()
			return nil, err
		}
	}

	sp := &Space{
		cfg:       cfg,
		metrics:   newMetricsSink(cfg.registry),
		pool:      cellpool.NewPool(cfg.maxCells),
		threads:   threadmgr.NewRegistry(),
		modCache:  modCache,
		providers: providers,
		nameSeed:  maphash.MakeSeed(),
	}
	sp.resolver = modcache.NewResolver(modCache, providers, sp.nameSeed)

	cycle := gc.NewCycle(sp.pool, sp.rootSet)
	sp.collector = gc.New(func() {
		start := time.Now()
		cycle.Run()
		sp.metrics.incGCSweep()
		sp.metrics.observeGCPause(time.Since(start))
		total, free := sp.pool.Stats()
		sp.metrics.setLiveCells(total - free)
	})
	sp.collector.FreeHint = func() int64 {
		_, free := sp.pool.Stats()
		return free
	}

	threadCfg := threadmgr.Config{
		Name:         "root",
		Space:        sp,
		SpacePool:    sp.pool,
		Collector:    sp.collector,
		Queue:        sp,
		OutOfMemory:  sp.onOutOfMemory,
		LocalPoolMax: 0,
	}
	sp.rootThread = threadmgr.NewThread(sp.threads, threadCfg)

	// The root context does not exist yet, so BoundAllocator (which
	// dereferences an existing *Context's own local free-list) cannot be
	// used to build it; bootstrap with a direct pool allocator instead,
	// same shape as gc.Mark's own poolAllocator.
	rootCtx, err := execctx.New(directAllocator{sp.pool}, nil, sp, sp.rootThread, nil, nil, nil, nil, execctx.Callbacks{})
	if err != nil {
		modCache.Close()
		return nil, err
	}
	sp.rootCtx = rootCtx
	sp.rootThread.SetCurrent(rootCtx)

	return sp, nil
}

// NameSeed returns the space's one shared maphash.Seed, used by every
// package that hashes attribute/element names against a rope (object's
// NameHash, the module resolver's wrapper-attribute hash, and setms'
// element hash) so the same name always hashes the same way within this
// Space.
func (sp *Space) NameSeed() maphash.Seed { return sp.nameSeed }

// directAllocator satisfies every internal package's Allocator seam by
// pulling straight from the space's pool, bypassing the per-context
// local free-list entirely. It exists only to bootstrap the root
// context, the one allocation that happens before any *execctx.Context
// exists to own a local free-list.
type directAllocator struct{ pool *cellpool.Pool }

func (d directAllocator) AllocCell() *cellpool.Cell {
	head, n := d.pool.RefillBatch(1)
	if n != 1 {
		panic("protocore: pool exhausted while bootstrapping the root context")
	}
	return head
}

// AllocCell satisfies pkg.Allocator and bignum.Allocator/object.Allocator
// for callers that operate directly against the root context (e.g. a
// single-threaded embedder that never spawns additional threads).
func (sp *Space) AllocCell() *cellpool.Cell {
	return sp.rootThread.BoundAllocator(sp.rootCtx).AllocCell()
}

// RootContext returns the space's bootstrap execution context.
func (sp *Space) RootContext() *execctx.Context { return sp.rootCtx }

// RootThread returns the space's bootstrap thread.
func (sp *Space) RootThread() *threadmgr.Thread { return sp.rootThread }

// MutableRoots exposes the space's mutable-root table to whatever package
// performs object mutation (internal/object itself, via the pkg-level
// wrappers this file's sibling files add).
func (sp *Space) MutableRoots() *object.MutableRoots { return &sp.roots }

// Interner exposes the space's tuple/string dictionary.
func (sp *Space) Interner() *rope.Interner { return &sp.interns }

// Enqueue implements execctx.Queue: a context's young generation is
// handed to the collector on frame exit (spec §4.9 step 6) by splicing it
// directly into the space's pool free-list rather than sweeping it
// immediately — the next GC cycle's mark phase will trace live survivors
// out of the space's persistent structures before this generation is next
// swept, and until then its cells are simply not free, matching
// "an exited context's young generation becomes part of the next
// generation it is swept with" (spec §4.9).
func (sp *Space) Enqueue(head *cellpool.Cell, n int) {
	sp.pool.Recycle(head, n)
}

// onOutOfMemory runs the embedder's OutOfMemory callback if one was
// registered, otherwise panics: OutOfMemory alone is fatal unless an
// embedder opts out of that (spec's error-handling model).
func (sp *Space) onOutOfMemory() {
	if sp.cfg.outOfMemory != nil {
		sp.cfg.outOfMemory()
		return
	}
	panic("protocore: out of memory")
}

// rootSet is the gc.RootSet this Space feeds its collector: every
// thread's current context chain, the mutable-root dictionary, the
// interned-tuple/string dictionary, and every installed module's root
// wrapper (spec §4.10).
func (sp *Space) rootSet(visit func(valueword.Handle)) {
	sp.threads.ForEach(func(t *threadmgr.Thread) {
		for ctx := t.Current(); ctx != nil; ctx = ctx.Parent {
			ctx.ForEachLocal(func(_ uint64, v valueword.Handle) { visit(v) })
			visit(ctx.ClosureLocals())
			visit(ctx.ReturnValue())
			if head, n := ctx.YoungGenHead(); n > 0 {
				visitYoungGen(head, visit)
			}
		}
	})
	visit(sp.roots.Root())
	visit(sp.interns.Root())
	sp.modCache.ForEachModuleRoot(visit)
}

// visitYoungGen walks a context's young-generation cell list, treating
// every cell's raw payload as a potential Handle root. Cells that do not
// encode a heap handle in their first payload word are harmless to visit
// with an invalid handle — gc.Mark silently ignores any value that does
// not decode to a live heap address — so no per-kind dispatch is needed
// here; the precise per-kind tracing happens once Mark follows the
// handles that do resolve.
func visitYoungGen(head *cellpool.Cell, visit func(valueword.Handle)) {
	for c := head; c != nil; c = c.Next {
		visit(*cellpool.PayloadAs[valueword.Handle](c))
	}
}

// Collect forces an immediate GC cycle (spec §4.10's RequestGC entry
// point), reporting whether any cells were reclaimed.
func (sp *Space) Collect() bool { return sp.collector.RequestGC() }

// Stats reports the heap's total and free cell counts.
func (sp *Space) Stats() (totalCells, freeCells int64) { return sp.pool.Stats() }

// RegisterProvider adds a module provider after construction.
func (sp *Space) RegisterProvider(p modcache.Provider) error { return sp.providers.Register(p) }

// InvalidConversion implements invalidConversionHook, giving asBignum (and
// any other cross-kind coercion) a chance to recover via the embedder's
// WithInvalidConversionCallback before reporting ErrWrongKind. Reports
// ok == false if no callback was registered.
func (sp *Space) InvalidConversion(from, to string) (Value, bool) {
	if sp.cfg.invalidConversion == nil {
		return valueword.None, false
	}
	return sp.cfg.invalidConversion(from, to)
}

// GetImportModule implements get_import_module (spec §4.13): resolve
// logicalPath against the configured resolution chain, returning a
// wrapper object with the module's content installed under attrName.
// alloc is typically Space.AllocCell or a thread's BoundAllocator.
func (sp *Space) GetImportModule(ctx context.Context, alloc Allocator, logicalPath, attrName string) (Value, error) {
	wrapper, err := sp.resolver.GetImportModule(ctx, alloc, &sp.roots, sp.cfg.resolutionChain, logicalPath, attrName)
	if err != nil {
		sp.metrics.incModuleCacheMiss()
		if errors.Is(err, modcache.ErrNotFound) {
			return valueword.None, fmt.Errorf("%w: %v", ErrModuleNotFound, err)
		}
		return valueword.None, err
	}
	sp.metrics.incModuleCacheHit()
	return wrapper, nil
}

// Shutdown tears down the collector and closes the module cache's
// underlying Badger instance. A Space must not be used after Shutdown.
func (sp *Space) Shutdown() {
	sp.collector.Shutdown()
	sp.modCache.Close()
}

// Spawn implements new_thread (spec §4.11), running entry on a fresh
// managed thread whose root context is a child of parent (or the space's
// own root context if parent is nil).
func (sp *Space) Spawn(parent *execctx.Context, entry threadmgr.EntryFunc) *threadmgr.Thread {
	if parent == nil {
		parent = sp.rootCtx
	}
	cfg := threadmgr.Config{
		Space:        sp,
		SpacePool:    sp.pool,
		Collector:    sp.collector,
		Queue:        sp,
		OutOfMemory:  sp.onOutOfMemory,
		LocalPoolMax: 0,
	}
	return threadmgr.Spawn(sp.threads, cfg, parent, entry)
}
