package ordmap

import "github.com/Voskan/protocore/internal/valueword"

// NewEmpty allocates a fresh empty map header carrying the given semantic
// marker. Every subsequent mutation allocates a new header plus O(log n)
// interior nodes and returns a brand new Handle; the old Handle (and
// everything reachable from it) remains valid and unchanged, per spec §3.3
// "every operation is non-destructive".
func NewEmpty(alloc Allocator, semantic uint8) valueword.Handle {
	return newHeader(alloc, semantic, valueword.None)
}

// Size returns the number of entries in the map.
func Size(h valueword.Handle) uint64 {
	return uint64(sizeOf(headerOf(h).root))
}

// Has reports whether key is present.
func Has(h valueword.Handle, key uint64) bool {
	_, ok := Get(h, key)
	return ok
}

// Get looks up key, returning (value, true) if present.
func Get(h valueword.Handle, key uint64) (valueword.Handle, bool) {
	n := headerOf(h).root
	for !valueword.IsNone(n) {
		nd := nodeOf(n)
		switch {
		case key < nd.key:
			n = nd.prev
		case key > nd.key:
			n = nd.next
		default:
			return nd.value, true
		}
	}
	return valueword.None, false
}

// Set returns a new map with key bound to value (overwriting any existing
// binding), sharing every subtree unaffected by the change.
func Set(alloc Allocator, h valueword.Handle, key uint64, value valueword.Handle) valueword.Handle {
	hdr := headerOf(h)
	newRoot := insert(alloc, hdr.root, key, value)
	return newHeader(alloc, hdr.semantic, newRoot)
}

// Remove returns a new map with key absent. If key was not present, the
// returned map is structurally identical (and may share the same root).
func Remove(alloc Allocator, h valueword.Handle, key uint64) valueword.Handle {
	hdr := headerOf(h)
	newRoot, _ := remove(alloc, hdr.root, key)
	return newHeader(alloc, hdr.semantic, newRoot)
}

// ForEach walks entries in ascending key order, calling fn(key, value) for
// each. fn returning false stops the walk early. This is the supplemented
// processElements bulk visitor from original_source (Dictionary::forEach).
func ForEach(h valueword.Handle, fn func(key uint64, value valueword.Handle) bool) {
	forEach(headerOf(h).root, fn)
}

func forEach(n valueword.Handle, fn func(uint64, valueword.Handle) bool) bool {
	if valueword.IsNone(n) {
		return true
	}
	nd := nodeOf(n)
	if !forEach(nd.prev, fn) {
		return false
	}
	if !fn(nd.key, nd.value) {
		return false
	}
	return forEach(nd.next, fn)
}

// ForEachValue is the supplemented processValues visitor: like ForEach but
// only exposes values, matching original_source's Dictionary::forEachValue
// fast path that skips re-deriving the key.
func ForEachValue(h valueword.Handle, fn func(value valueword.Handle) bool) {
	ForEach(h, func(_ uint64, v valueword.Handle) bool { return fn(v) })
}

// --- AVL maintenance -------------------------------------------------------

func insert(alloc Allocator, n valueword.Handle, key uint64, value valueword.Handle) valueword.Handle {
	if valueword.IsNone(n) {
		return newNode(alloc, key, value, valueword.None, valueword.None)
	}
	nd := nodeOf(n)
	switch {
	case key < nd.key:
		return rebalance(alloc, insert(alloc, nd.prev, key, value), nd.key, nd.value, nd.next)
	case key > nd.key:
		return rebalance(alloc, nd.prev, nd.key, nd.value, insert(alloc, nd.next, key, value))
	default:
		return newNode(alloc, key, value, nd.prev, nd.next)
	}
}

func remove(alloc Allocator, n valueword.Handle, key uint64) (valueword.Handle, bool) {
	if valueword.IsNone(n) {
		return n, false
	}
	nd := nodeOf(n)
	switch {
	case key < nd.key:
		left, removed := remove(alloc, nd.prev, key)
		if !removed {
			return n, false
		}
		return rebalance(alloc, left, nd.key, nd.value, nd.next), true
	case key > nd.key:
		right, removed := remove(alloc, nd.next, key)
		if !removed {
			return n, false
		}
		return rebalance(alloc, nd.prev, nd.key, nd.value, right), true
	default:
		if valueword.IsNone(nd.prev) {
			return nd.next, true
		}
		if valueword.IsNone(nd.next) {
			return nd.prev, true
		}
		succKey, succValue := minEntry(nd.next)
		newRight, _ := remove(alloc, nd.next, succKey)
		return rebalance(alloc, nd.prev, succKey, succValue, newRight), true
	}
}

func minEntry(n valueword.Handle) (uint64, valueword.Handle) {
	nd := nodeOf(n)
	for !valueword.IsNone(nd.prev) {
		nd = nodeOf(nd.prev)
	}
	return nd.key, nd.value
}

func balanceFactor(left, right valueword.Handle) int32 {
	return heightOf(left) - heightOf(right)
}

// rebalance builds a fresh node for (left, key, value, right) and restores
// the AVL height invariant with at most one rotation (or a double rotation),
// matching the shape of a textbook persistent AVL map.
func rebalance(alloc Allocator, left valueword.Handle, key uint64, value, right valueword.Handle) valueword.Handle {
	bf := balanceFactor(left, right)
	switch {
	case bf > 1:
		ln := nodeOf(left)
		if balanceFactor(ln.prev, ln.next) < 0 {
			left = rotateLeft(alloc, left)
		}
		return rotateRight(alloc, newNode(alloc, key, value, left, right))
	case bf < -1:
		rn := nodeOf(right)
		if balanceFactor(rn.prev, rn.next) > 0 {
			right = rotateRight(alloc, right)
		}
		return rotateLeft(alloc, newNode(alloc, key, value, left, right))
	default:
		return newNode(alloc, key, value, left, right)
	}
}

func rotateLeft(alloc Allocator, n valueword.Handle) valueword.Handle {
	nd := nodeOf(n)
	r := nodeOf(nd.next)
	newLeft := newNode(alloc, nd.key, nd.value, nd.prev, r.prev)
	return newNode(alloc, r.key, r.value, newLeft, r.next)
}

func rotateRight(alloc Allocator, n valueword.Handle) valueword.Handle {
	nd := nodeOf(n)
	l := nodeOf(nd.prev)
	newRight := newNode(alloc, nd.key, nd.value, l.next, nd.next)
	return newNode(alloc, l.key, l.value, l.prev, newRight)
}
