// Package threadmgr implements the thread manager (C12) from spec.md
// §3.9/§4.11: managed/unmanaged thread state, the safepoint protocol that
// ties every thread back into internal/gc's stop-the-world coordination,
// and the process-wide thread registry the collector's root walk scans.
//
// © 2025 protocore authors. MIT License.
package threadmgr

import (
	"sync"

	set3 "github.com/TomTonic/Set3"
)

// Registry is the thread registry of spec §4.10's root list ("every
// thread's current context chain") and §5's "thread registry uses a
// spinlock on a registered-atomic boolean; list updates are rare". Updates
// here are serialized by a plain mutex rather than a spinlock — Go's
// runtime-integrated sync.Mutex already degrades to the cheap
// compare-and-swap fast path under no contention, and thread
// register/unregister genuinely is rare (spawn and exit only).
//
// Membership is tracked in a Set3 (grounded on the TomTonic-multimap
// package's use of Set3 for deduplicated id sets): lookup's existence
// check is answered by Set3.Contains, not a map probe. Iteration for the
// GC root walk still goes through the companion byID map, since Set3
// itself stores no value alongside each id — only byID associates an id
// with its *Thread.
type Registry struct {
	mu     sync.Mutex
	ids    *set3.Set3[uint64]
	byID   map[uint64]*Thread
	nextID uint64
}

// NewRegistry constructs an empty thread registry.
func NewRegistry() *Registry {
	return &Registry{
		ids:  set3.Empty[uint64](),
		byID: make(map[uint64]*Thread),
	}
}

// register assigns the next id to t and records it. Called once from
// NewThread.
func (r *Registry) register(t *Thread) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.ids.Add(id)
	r.byID[id] = t
	return id
}

// unregister drops id from the registry. Called once from Thread.exit.
func (r *Registry) unregister(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids.Remove(id)
	delete(r.byID, id)
}

// ForEach visits every currently registered thread. Used by the space's
// GC root walk (spec §4.10: "every thread's current context chain"); the
// snapshot is taken under the lock and then walked outside it, so a
// concurrent register/unregister during the walk cannot deadlock against
// a thread that is itself blocked parking for the same GC cycle.
func (r *Registry) ForEach(fn func(*Thread)) {
	r.mu.Lock()
	snapshot := make([]*Thread, 0, len(r.byID))
	for _, t := range r.byID {
		snapshot = append(snapshot, t)
	}
	r.mu.Unlock()
	for _, t := range snapshot {
		fn(t)
	}
}

// Len reports the number of currently registered threads.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.ids.Len())
}

// Lookup resolves a thread by its registry id, used by join. Existence is
// decided by Set3.Contains; byID supplies the *Thread itself once
// membership is confirmed.
func (r *Registry) lookup(id uint64) (*Thread, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ids.Contains(id) {
		return nil, false
	}
	t, ok := r.byID[id]
	return t, ok
}
