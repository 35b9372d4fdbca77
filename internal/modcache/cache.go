// Package modcache implements the module loader boundary (C14) from
// spec.md §4.13: the process-wide shared module cache, the provider
// registry (GUID/alias deduplication), the filesystem provider, and
// resolution-chain parsing for get_import_module. The space proper and
// the module-root GC scan live one layer up in pkg/; this package owns
// everything the boundary contract specifies.
//
// © 2025 protocore authors. MIT License.
package modcache

import (
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/Voskan/protocore/internal/valueword"
)

// ModuleCache is the process-wide, thread-safe key→value cache keyed by
// logical path (spec §3.13/§4.13). It is backed by an embedded Badger KV
// store rather than a bare map: Badger already gives concurrent
// transactional access and optional on-disk persistence for free, which
// is exactly the "thread-safe key→value cache" spec.md treats as an
// external collaborator's concern rather than invent a second one. The
// cached value is the resolved module's raw content bytes; the live
// valueword.Handle wrapper built from those bytes is per-resolution (a
// Handle is a process-local heap reference and cannot be the thing a
// durable KV store holds across restarts).
type ModuleCache struct {
	db  *badger.DB
	log *zap.Logger

	rootsMu     sync.Mutex // dedicated mutex, spec §5 "module-roots list uses a dedicated mutex"
	moduleRoots []valueword.Handle
}

// Options configures a ModuleCache's embedded Badger instance. Dir empty
// means in-memory only (spec's "Persisted state: None" for the runtime
// core itself — any on-disk persistence is the embedder's opt-in choice,
// made here by setting Dir).
type Options struct {
	Dir    string
	Logger *zap.Logger
}

// Open constructs a ModuleCache. Dir == "" opens Badger in pure in-memory
// mode (badger.DefaultOptions("").WithInMemory(true)), matching the
// runtime's own "no persisted state by default" stance while still
// reusing Badger for its concurrency guarantees.
func Open(opts Options) (*ModuleCache, error) {
	bopts := badger.DefaultOptions(opts.Dir)
	if opts.Dir == "" {
		bopts = bopts.WithInMemory(true)
	}
	bopts = bopts.WithLogger(nil) // Badger's own logger is replaced by zap at the call sites below
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("modcache: open badger: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &ModuleCache{db: db, log: log}, nil
}

// Close releases the underlying Badger handle.
func (c *ModuleCache) Close() error {
	return c.db.Close()
}

// get returns the cached raw content for logicalPath, if present.
func (c *ModuleCache) get(logicalPath string) ([]byte, bool) {
	var content []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(logicalPath))
		if err != nil {
			return err
		}
		return item.Value(func(b []byte) error {
			content = append([]byte(nil), b...)
			return nil
		})
	})
	if err != nil {
		return nil, false
	}
	return content, true
}

// put inserts logicalPath's resolved content into the cache.
func (c *ModuleCache) put(logicalPath string, content []byte) {
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(logicalPath), content)
	}); err != nil {
		c.log.Warn("modcache: badger put failed", zap.String("path", logicalPath), zap.Error(err))
	}
}

// appendModuleRoot records wrapper in the space's module-root list under
// the dedicated mutex (spec §4.10 roots: "the module-root list"; §5: "it
// is never traversed concurrently with GC").
func (c *ModuleCache) appendModuleRoot(wrapper valueword.Handle) {
	c.rootsMu.Lock()
	defer c.rootsMu.Unlock()
	c.moduleRoots = append(c.moduleRoots, wrapper)
}

// ForEachModuleRoot visits every installed module wrapper. Used by the
// GC root walk (spec §4.10 "the module-root list").
func (c *ModuleCache) ForEachModuleRoot(fn func(valueword.Handle)) {
	c.rootsMu.Lock()
	snapshot := append([]valueword.Handle(nil), c.moduleRoots...)
	c.rootsMu.Unlock()
	for _, h := range snapshot {
		fn(h)
	}
}
