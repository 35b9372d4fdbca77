package object

import (
	"github.com/Voskan/protocore/internal/ordmap"
	"github.com/Voskan/protocore/internal/valueword"
)

// maxChainWalk bounds attribute resolution's parent-chain walk, guarding
// against a cyclic or pathologically long linearization (SPEC_FULL.md §4
// Open Question resolution). Exhausting it is treated the same as
// not-found rather than panicking, since a well-formed program can never
// legitimately reach it (AddParent's linearization is itself acyclic and
// bounded by the number of AddParent calls ever made).
const maxChainWalk = 100000

// AttributeNotFoundFunc is the attribute_not_found_get callback (spec
// §4.8 step 3, §6): invoked with the object and attribute-name handle
// once the full parent chain has been walked with no binding found. A
// true return substitutes its value for "not found".
type AttributeNotFoundFunc func(o, name valueword.Handle) (valueword.Handle, bool)

// GetAttribute resolves name (pre-hashed as nameHash) on o: the cache
// first, then o's own attribute map, then each ancestor in o's
// parent-link chain in linearization order (spec §4.8). Reports
// (value, true) on success. If the chain is exhausted and onNotFound is
// non-nil, it is invoked once as the final fallback before reporting
// (none, false); onNotFound may be nil, in which case exhaustion reports
// not-found directly.
func GetAttribute(cache *AttrCache, mr *MutableRoots, o, name valueword.Handle, nameHash uint64, onNotFound AttributeNotFoundFunc) (valueword.Handle, bool) {
	if cache != nil {
		if v, ok := cache.Lookup(o, name, nameHash); ok {
			return v, true
		}
	}

	cur := currentOf(mr, o)
	if v, ok := ordmap.Get(cur.attrs, nameHash); ok {
		if cache != nil {
			cache.Store(o, name, v, nameHash)
		}
		return v, true
	}

	chain := cur.parentChain
	for i := 0; i < maxChainWalk && !valueword.IsNone(chain); i++ {
		l := linkOf(chain)
		ancestor := currentOf(mr, l.object)
		if v, ok := ordmap.Get(ancestor.attrs, nameHash); ok {
			if cache != nil {
				cache.Store(o, name, v, nameHash)
			}
			return v, true
		}
		chain = l.next
	}
	if onNotFound != nil {
		return onNotFound(o, name)
	}
	return valueword.None, false
}

// HasAttribute reports whether name resolves on o or any ancestor. The
// attribute_not_found_get callback is never consulted here: existence
// checks must not trigger the embedder's "get" recovery path.
func HasAttribute(cache *AttrCache, mr *MutableRoots, o, name valueword.Handle, nameHash uint64) bool {
	_, ok := GetAttribute(cache, mr, o, name, nameHash, nil)
	return ok
}

// HasOwnAttribute reports whether name is bound directly on o, without
// consulting the parent chain.
func HasOwnAttribute(mr *MutableRoots, o valueword.Handle, nameHash uint64) bool {
	return ordmap.Has(currentOf(mr, o).attrs, nameHash)
}

// GetOwnAttributes returns o's own attribute map (not merged with
// ancestors).
func GetOwnAttributes(mr *MutableRoots, o valueword.Handle) valueword.Handle {
	return currentOf(mr, o).attrs
}

// GetAttributes returns the full attribute view of o: its own attributes
// merged over every ancestor's, with entries nearer to o in the
// linearized chain taking precedence over entries further away (spec
// §4.8). The walk is bounded the same way as GetAttribute. The result is a
// freshly built ordmap, since the merge generally shares no single
// existing map's structure.
func GetAttributes(alloc Allocator, mr *MutableRoots, o valueword.Handle) valueword.Handle {
	cur := currentOf(mr, o)

	var chainAttrs []valueword.Handle
	chain := cur.parentChain
	for i := 0; i < maxChainWalk && !valueword.IsNone(chain); i++ {
		l := linkOf(chain)
		chainAttrs = append(chainAttrs, currentOf(mr, l.object).attrs)
		chain = l.next
	}

	result := ordmap.NewEmpty(alloc, ordmap.SemanticPlainMap)
	// Fold furthest ancestor first so nearer bindings (ending with o's
	// own) overwrite on key collisions.
	for i := len(chainAttrs) - 1; i >= 0; i-- {
		result = mergeInto(alloc, result, chainAttrs[i])
	}
	result = mergeInto(alloc, result, cur.attrs)
	return result
}

func mergeInto(alloc Allocator, dst, src valueword.Handle) valueword.Handle {
	ordmap.ForEach(src, func(k uint64, v valueword.Handle) bool {
		dst = ordmap.Set(alloc, dst, k, v)
		return true
	})
	return dst
}
