package object

import (
	"errors"

	"github.com/Voskan/protocore/internal/ordmap"
	"github.com/Voskan/protocore/internal/valueword"
)

// ErrCycle is returned by AddParent when splicing p into o's chain would
// make o its own ancestor (spec §3.7 invariant (d)). The pkg-level
// wrapper translates this into protocore.ErrCycleInPrototype.
var ErrCycle = errors.New("object: AddParent would introduce a prototype-chain cycle")

// New creates an object with an empty parent chain and attribute map. If
// mutable, a fresh mutable-ref id is allocated and registered in mr.
func New(alloc Allocator, mr *MutableRoots, mutable bool) valueword.Handle {
	attrs := ordmap.NewEmpty(alloc, ordmap.SemanticPlainMap)
	if !mutable {
		return newObjectCell(alloc, valueword.None, attrs, 0)
	}
	id := mr.allocID()
	initial := newObjectCell(alloc, valueword.None, attrs, 0)
	mr.register(alloc, id, initial)
	return newObjectCell(alloc, valueword.None, attrs, id)
}

// Clone produces a new object sharing o's current parent chain and
// attribute map (spec §4.7).
func Clone(alloc Allocator, mr *MutableRoots, o valueword.Handle, mutable bool) valueword.Handle {
	cur := currentOf(mr, o)
	if !mutable {
		return newObjectCell(alloc, cur.parentChain, cur.attrs, 0)
	}
	id := mr.allocID()
	initial := newObjectCell(alloc, cur.parentChain, cur.attrs, 0)
	mr.register(alloc, id, initial)
	return newObjectCell(alloc, cur.parentChain, cur.attrs, id)
}

// NewChild creates an object whose parent chain begins with a link to o,
// followed by o's own chain (spec §4.7).
func NewChild(alloc Allocator, mr *MutableRoots, o valueword.Handle, mutable bool) valueword.Handle {
	cur := currentOf(mr, o)
	chain := newParentLink(alloc, o, cur.parentChain)
	attrs := ordmap.NewEmpty(alloc, ordmap.SemanticPlainMap)
	if !mutable {
		return newObjectCell(alloc, chain, attrs, 0)
	}
	id := mr.allocID()
	initial := newObjectCell(alloc, chain, attrs, 0)
	mr.register(alloc, id, initial)
	return newObjectCell(alloc, chain, attrs, id)
}

// HasParent reports whether p appears in o's current parent-link chain.
func HasParent(mr *MutableRoots, o, p valueword.Handle) bool {
	return containsHandle(chainToSlice(currentOf(mr, o).parentChain), p)
}

// AddParent linearizes p into o's parent chain (spec §4.7): every ancestor
// of p not already reachable from o is appended (preserving p's own
// linearization order), followed by p itself. A no-op if p is already in
// o's chain. Applies the immutable-object-returns-new-cell /
// mutable-object-CAS-loop dual pattern described in spec §4.7.
//
// Returns ErrCycle, leaving o untouched, if p is o itself or already has o
// among its own ancestors — splicing p in either case would make o
// reachable from itself (spec §3.7 invariant (d): "the prototype chain is
// acyclic").
func AddParent(alloc Allocator, mr *MutableRoots, o, p valueword.Handle) (valueword.Handle, error) {
	cur := currentOf(mr, o)
	existing := chainToSlice(cur.parentChain)
	if containsHandle(existing, p) {
		return o, nil
	}

	pChain := chainToSlice(currentOf(mr, p).parentChain)
	if p == o || containsHandle(pChain, o) {
		return o, ErrCycle
	}

	var fresh []valueword.Handle
	for _, anc := range pChain {
		if !containsHandle(existing, anc) && !containsHandle(fresh, anc) {
			fresh = append(fresh, anc)
		}
	}
	newElems := append(append(append([]valueword.Handle{}, existing...), fresh...), p)
	newChain := buildChain(alloc, newElems)

	if objectOf(o).mutableRef == 0 {
		return newObjectCell(alloc, newChain, cur.attrs, 0), nil
	}
	id := objectOf(o).mutableRef
	mr.update(alloc, id, func(old valueword.Handle) valueword.Handle {
		oldP := objectOf(old)
		return newObjectCell(alloc, newChain, oldP.attrs, 0)
	})
	return o, nil
}

// SetAttribute binds name (identified by nameHash) to value. On an
// immutable object this returns a new handle; on a mutable object it CAS-
// updates the mutable-root table and returns the same handle (spec §4.7).
// The caller's attribute cache (internal/object.AttrCache) must be
// invalidated for (o, nameHash) separately — see AttrCache.Invalidate.
func SetAttribute(alloc Allocator, mr *MutableRoots, o valueword.Handle, nameHash uint64, value valueword.Handle) valueword.Handle {
	cur := currentOf(mr, o)
	newAttrs := ordmap.Set(alloc, cur.attrs, nameHash, value)

	if objectOf(o).mutableRef == 0 {
		return newObjectCell(alloc, cur.parentChain, newAttrs, 0)
	}
	id := objectOf(o).mutableRef
	mr.update(alloc, id, func(old valueword.Handle) valueword.Handle {
		oldP := objectOf(old)
		return newObjectCell(alloc, oldP.parentChain, newAttrs, 0)
	})
	return o
}
