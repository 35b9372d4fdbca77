package seqlist

import "github.com/Voskan/protocore/internal/valueword"

// GetAt returns the element at index i.
func GetAt(h valueword.Handle, i uint64) (valueword.Handle, bool) {
	if i >= Size(h) {
		return valueword.None, false
	}
	for {
		n := nodeOf(h)
		lsz := uint64(sizeOf(n.prev))
		switch {
		case i < lsz:
			h = n.prev
		case i > lsz:
			i -= lsz + 1
			h = n.next
		default:
			return n.value, true
		}
	}
}

// GetFirst / GetLast are the supplemented original_source convenience
// accessors (List::getFirst / List::getLast).
func GetFirst(h valueword.Handle) (valueword.Handle, bool) { return GetAt(h, 0) }
func GetLast(h valueword.Handle) (valueword.Handle, bool) {
	n := Size(h)
	if n == 0 {
		return valueword.None, false
	}
	return GetAt(h, n-1)
}

// SetAt returns a new list with index i rebound to value.
func SetAt(alloc Allocator, h valueword.Handle, i uint64, value valueword.Handle) valueword.Handle {
	n := nodeOf(h)
	lsz := uint64(sizeOf(n.prev))
	switch {
	case i < lsz:
		return rebalance(alloc, SetAt(alloc, n.prev, i, value), n.value, n.next)
	case i > lsz:
		return rebalance(alloc, n.prev, n.value, SetAt(alloc, n.next, i-lsz-1, value))
	default:
		return newNode(alloc, value, n.prev, n.next)
	}
}

// InsertAt returns a new list with value inserted so that it becomes
// element i (0 <= i <= Size(h)).
func InsertAt(alloc Allocator, h valueword.Handle, i uint64, value valueword.Handle) valueword.Handle {
	if valueword.IsNone(h) {
		return newNode(alloc, value, valueword.None, valueword.None)
	}
	n := nodeOf(h)
	lsz := uint64(sizeOf(n.prev))
	if i <= lsz {
		return rebalance(alloc, InsertAt(alloc, n.prev, i, value), n.value, n.next)
	}
	return rebalance(alloc, n.prev, n.value, InsertAt(alloc, n.next, i-lsz-1, value))
}

// AppendFirst / AppendLast prepend / append a single element.
func AppendFirst(alloc Allocator, h valueword.Handle, value valueword.Handle) valueword.Handle {
	return InsertAt(alloc, h, 0, value)
}
func AppendLast(alloc Allocator, h valueword.Handle, value valueword.Handle) valueword.Handle {
	return InsertAt(alloc, h, Size(h), value)
}

// RemoveAt returns a new list with index i removed.
func RemoveAt(alloc Allocator, h valueword.Handle, i uint64) valueword.Handle {
	n := nodeOf(h)
	lsz := uint64(sizeOf(n.prev))
	switch {
	case i < lsz:
		return rebalance(alloc, RemoveAt(alloc, n.prev, i), n.value, n.next)
	case i > lsz:
		return rebalance(alloc, n.prev, n.value, RemoveAt(alloc, n.next, i-lsz-1))
	default:
		return concat(alloc, n.prev, n.next)
	}
}

// Extend concatenates two lists: the supplemented List::extend.
func Extend(alloc Allocator, a, b valueword.Handle) valueword.Handle {
	return concat(alloc, a, b)
}

// Slice returns the half-open range [from, to) as a new list sharing
// structure with h.
func Slice(alloc Allocator, h valueword.Handle, from, to uint64) valueword.Handle {
	_, right := splitAt(alloc, h, from)
	left, _ := splitAt(alloc, right, to-from)
	return left
}

// RemoveSlice removes the half-open range [from, to).
func RemoveSlice(alloc Allocator, h valueword.Handle, from, to uint64) valueword.Handle {
	left, right := splitAt(alloc, h, from)
	_, tail := splitAt(alloc, right, to-from)
	return concat(alloc, left, tail)
}

// SplitFirst removes and returns the first count elements (as one list) and
// the remainder, the supplemented List::splitFirst.
func SplitFirst(alloc Allocator, h valueword.Handle, count uint64) (removed, rest valueword.Handle) {
	return splitAt(alloc, h, count)
}

// SplitLast removes and returns the last count elements (as one list) and
// the remainder, the supplemented List::splitLast.
func SplitLast(alloc Allocator, h valueword.Handle, count uint64) (rest, removed valueword.Handle) {
	return splitAt(alloc, h, Size(h)-count)
}

// ForEach visits elements in index order; returning false from fn stops
// early (the supplemented List::processElements bulk visitor).
func ForEach(h valueword.Handle, fn func(value valueword.Handle) bool) {
	forEach(h, fn)
}

func forEach(h valueword.Handle, fn func(valueword.Handle) bool) bool {
	if valueword.IsNone(h) {
		return true
	}
	n := nodeOf(h)
	if !forEach(n.prev, fn) {
		return false
	}
	if !fn(n.value) {
		return false
	}
	return forEach(n.next, fn)
}

// --- AVL + split/join maintenance ------------------------------------------

func balanceFactor(left, right valueword.Handle) int32 {
	return heightOf(left) - heightOf(right)
}

func rebalance(alloc Allocator, left valueword.Handle, value valueword.Handle, right valueword.Handle) valueword.Handle {
	bf := balanceFactor(left, right)
	switch {
	case bf > 1:
		ln := nodeOf(left)
		if balanceFactor(ln.prev, ln.next) < 0 {
			left = rotateLeft(alloc, left)
		}
		return rotateRight(alloc, newNode(alloc, value, left, right))
	case bf < -1:
		rn := nodeOf(right)
		if balanceFactor(rn.prev, rn.next) > 0 {
			right = rotateRight(alloc, right)
		}
		return rotateLeft(alloc, newNode(alloc, value, left, right))
	default:
		return newNode(alloc, value, left, right)
	}
}

func rotateLeft(alloc Allocator, h valueword.Handle) valueword.Handle {
	n := nodeOf(h)
	r := nodeOf(n.next)
	newLeft := newNode(alloc, n.value, n.prev, r.prev)
	return newNode(alloc, r.value, newLeft, r.next)
}

func rotateRight(alloc Allocator, h valueword.Handle) valueword.Handle {
	n := nodeOf(h)
	l := nodeOf(n.prev)
	newRight := newNode(alloc, n.value, l.next, n.next)
	return newNode(alloc, l.value, l.prev, newRight)
}

// concat joins two lists that are each internally balanced into one
// balanced list, using the classic AVL-join-by-height-spine algorithm:
// descend the taller tree's spine toward the shorter one, splice the
// shorter tree in once heights come within one of each other, then
// rebalance back up.
func concat(alloc Allocator, left, right valueword.Handle) valueword.Handle {
	if valueword.IsNone(left) {
		return right
	}
	if valueword.IsNone(right) {
		return left
	}
	lh, rh := heightOf(left), heightOf(right)
	switch {
	case lh > rh+1:
		ln := nodeOf(left)
		return rebalance(alloc, ln.prev, ln.value, concat(alloc, ln.next, right))
	case rh > lh+1:
		rn := nodeOf(right)
		return rebalance(alloc, concat(alloc, left, rn.prev), rn.value, rn.next)
	default:
		// Heights within one of each other: pull the rightmost element of
		// left (or leftmost of right, symmetric) up as the new root pivot.
		lv, lrest := removeLast(alloc, left)
		return rebalance(alloc, lrest, lv, right)
	}
}

func removeLast(alloc Allocator, h valueword.Handle) (value valueword.Handle, rest valueword.Handle) {
	n := nodeOf(h)
	if valueword.IsNone(n.next) {
		return n.value, n.prev
	}
	v, newNext := removeLast(alloc, n.next)
	return v, rebalance(alloc, n.prev, n.value, newNext)
}

// splitAt splits h into [0, i) and [i, Size(h)).
func splitAt(alloc Allocator, h valueword.Handle, i uint64) (left, right valueword.Handle) {
	if valueword.IsNone(h) {
		return valueword.None, valueword.None
	}
	n := nodeOf(h)
	lsz := uint64(sizeOf(n.prev))
	switch {
	case i <= lsz:
		ll, lr := splitAt(alloc, n.prev, i)
		return ll, concat(alloc, concat(alloc, lr, newNode(alloc, n.value, valueword.None, valueword.None)), n.next)
	default:
		rl, rr := splitAt(alloc, n.next, i-lsz-1)
		return concat(alloc, n.prev, concat(alloc, newNode(alloc, n.value, valueword.None, valueword.None), rl)), rr
	}
}
