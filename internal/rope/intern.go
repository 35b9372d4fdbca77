package rope

import (
	"hash/maphash"
	"sync/atomic"

	"github.com/Voskan/protocore/internal/ordmap"
	"github.com/Voskan/protocore/internal/seqlist"
	"github.com/Voskan/protocore/internal/valueword"
)

// Interner is the process-wide (in practice, per-Space) tuple/string
// dictionary (C6): a balanced map keyed by structural hash, whose buckets
// hold every distinct rope observed with that hash (collisions are
// resolved by element-wise comparison, spec §3.5/§4.5). It is published
// through a single atomic word so installs are a lock-free CAS loop, not a
// mutex, matching spec §4.10's "mutable-root and interner root are pure
// CAS loops without a lock."
type Interner struct {
	root atomic.Uint64 // 0 means "no dictionary yet", otherwise an ordmap header Handle
}

// StructuralHash computes the seeded 64-bit hash of a rope's element
// sequence, used both to key the interner and (by internal/object, for
// attribute names and set/multiset elements) wherever spec calls for
// "the element's hash". Uses stdlib hash/maphash, the same mechanism the
// teacher itself reaches for in pkg/shard.go — see DESIGN.md for why this
// is used in place of a pack dependency with no confirmed API.
func StructuralHash(seed maphash.Seed, tag valueword.Tag, h valueword.Handle) uint64 {
	var hh maphash.Hash
	hh.SetSeed(seed)
	var buf [8]byte
	putU64(buf[:], uint64(tag))
	hh.Write(buf[:])
	ForEach(h, func(elem valueword.Handle) bool {
		putU64(buf[:], uint64(elem))
		hh.Write(buf[:])
		return true
	})
	return hh.Sum64()
}

func putU64(buf []byte, v uint64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}

// Root returns the interner's current top-level dictionary Handle
// (valueword.None if nothing has been interned yet), so the space's GC
// root walk can trace every interned rope/string.
func (in *Interner) Root() valueword.Handle {
	return valueword.Handle(in.root.Load())
}

// Intern installs candidate into the dictionary, returning either candidate
// itself (now the canonical representative for its structural content) or
// a pre-existing equal rope, in which case candidate's cells become
// garbage for the next GC cycle to reclaim.
func (in *Interner) Intern(alloc Allocator, tag valueword.Tag, candidate valueword.Handle, hash uint64) valueword.Handle {
	for {
		rootBits := in.root.Load()
		var dict valueword.Handle
		if rootBits == 0 {
			dict = ordmap.NewEmpty(alloc, ordmap.SemanticPlainMap)
		} else {
			dict = valueword.Handle(rootBits)
		}

		bucket, _ := ordmap.Get(dict, hash)
		if existing, ok := findEqual(bucket, tag, candidate); ok {
			return existing
		}

		newBucket := seqlist.AppendLast(alloc, bucket, candidate)
		newDict := ordmap.Set(alloc, dict, hash, newBucket)
		if in.root.CompareAndSwap(rootBits, uint64(newDict)) {
			return candidate
		}
		// Lost the race to a concurrent installer; re-read and retry.
	}
}

func findEqual(bucket valueword.Handle, tag valueword.Tag, candidate valueword.Handle) (valueword.Handle, bool) {
	var found valueword.Handle
	ok := false
	seqlist.ForEach(bucket, func(v valueword.Handle) bool {
		if Equal(tag, v, candidate) {
			found, ok = v, true
			return false
		}
		return true
	})
	return found, ok
}

// Equal reports whether two ropes of the same tag have element-wise equal
// content. Elements compare by raw handle equality: embedded immediates
// compare by value, heap references by identity, which for already-interned
// sub-elements (nested tuples, strings) is exactly structural equality
// (spec §3.1 invariant (c)).
func Equal(tag valueword.Tag, a, b valueword.Handle) bool {
	if Size(a) != Size(b) {
		return false
	}
	equal := true
	n := Size(a)
	for i := uint64(0); i < n && equal; i++ {
		va, _ := GetAt(a, i)
		vb, _ := GetAt(b, i)
		if va != vb {
			equal = false
		}
	}
	return equal
}
