package object

import (
	"sync/atomic"

	"github.com/Voskan/protocore/internal/ordmap"
	"github.com/Voskan/protocore/internal/valueword"
)

// MutableRoots is the process-wide (per-Space) mutable-root table (spec
// §3.7): a CAS-published map from mutable-ref id to the object's current
// immutable snapshot. Updates are read-derive-CAS loops, matching the
// interner's lock-free discipline (internal/rope.Interner) rather than a
// mutex, per spec §5 "the mutable-root and interner root are pure CAS
// loops without a lock."
type MutableRoots struct {
	root   atomic.Uint64
	nextID atomic.Uint64
}

// Root returns the mutable-root table's current top-level dictionary
// Handle (valueword.None if nothing has been registered yet), so the
// space's GC root walk can trace every mutable object's every snapshot
// generation reachable through it.
func (m *MutableRoots) Root() valueword.Handle {
	return valueword.Handle(m.root.Load())
}

// allocID returns a fresh, never-reused mutable-ref id. Ids start at 1;
// 0 is reserved to mean "immutable" (spec §3.7 invariant (b)).
func (m *MutableRoots) allocID() uint64 {
	return m.nextID.Add(1)
}

// register installs the initial snapshot for a freshly allocated id.
func (m *MutableRoots) register(alloc Allocator, id uint64, initial valueword.Handle) {
	for {
		rootBits := m.root.Load()
		var dict valueword.Handle
		if rootBits == 0 {
			dict = ordmap.NewEmpty(alloc, ordmap.SemanticPlainMap)
		} else {
			dict = valueword.Handle(rootBits)
		}
		newDict := ordmap.Set(alloc, dict, id, initial)
		if m.root.CompareAndSwap(rootBits, uint64(newDict)) {
			return
		}
	}
}

// current returns the current immutable snapshot for id.
func (m *MutableRoots) current(id uint64) (valueword.Handle, bool) {
	rootBits := m.root.Load()
	if rootBits == 0 {
		return valueword.None, false
	}
	return ordmap.Get(valueword.Handle(rootBits), id)
}

// update performs a CAS loop replacing id's snapshot with derive(old).
func (m *MutableRoots) update(alloc Allocator, id uint64, derive func(old valueword.Handle) valueword.Handle) {
	for {
		rootBits := m.root.Load()
		dict := valueword.Handle(rootBits)
		old, ok := ordmap.Get(dict, id)
		if !ok {
			panic("object: mutable-root entry missing for registered id")
		}
		newSnapshot := derive(old)
		newDict := ordmap.Set(alloc, dict, id, newSnapshot)
		if m.root.CompareAndSwap(rootBits, uint64(newDict)) {
			return
		}
	}
}

// currentOf resolves o to its current immutable snapshot: o itself if
// immutable, or the mutable-root table's entry for o's id otherwise.
func currentOf(mr *MutableRoots, o valueword.Handle) *objectPayload {
	p := objectOf(o)
	if p.mutableRef == 0 {
		return p
	}
	snap, ok := mr.current(p.mutableRef)
	if !ok {
		panic("object: dangling mutable reference")
	}
	return objectOf(snap)
}
