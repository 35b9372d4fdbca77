package rope

import "github.com/Voskan/protocore/internal/valueword"

// Build constructs a balanced rope from elements, chunking them into
// Fanout-sized leaves and concatenating each leaf onto the result in turn.
func Build(alloc Allocator, tag valueword.Tag, elements []valueword.Handle) valueword.Handle {
	result := Empty
	for i := 0; i < len(elements); i += Fanout {
		end := i + Fanout
		if end > len(elements) {
			end = len(elements)
		}
		leafHandle := newLeaf(alloc, tag, elements[i:end])
		result = concat(alloc, tag, result, leafHandle)
	}
	return result
}

// GetAt returns the element at index i.
func GetAt(h valueword.Handle, i uint64) (valueword.Handle, bool) {
	if i >= Size(h) {
		return valueword.None, false
	}
	for {
		if isLeaf(h) {
			return leafOf(h).elems[i], true
		}
		n := internalOf(h)
		lsz := uint64(sizeOf(n.prev))
		if i < lsz {
			h = n.prev
		} else {
			i -= lsz
			h = n.next
		}
	}
}

// InsertAt returns a new rope with value inserted as element i.
func InsertAt(alloc Allocator, tag valueword.Tag, h valueword.Handle, i uint64, value valueword.Handle) valueword.Handle {
	left, right := splitAt(alloc, tag, h, i)
	mid := newLeaf(alloc, tag, []valueword.Handle{value})
	return concat(alloc, tag, concat(alloc, tag, left, mid), right)
}

// AppendFirst / AppendLast prepend / append a single element.
func AppendFirst(alloc Allocator, tag valueword.Tag, h, value valueword.Handle) valueword.Handle {
	return InsertAt(alloc, tag, h, 0, value)
}
func AppendLast(alloc Allocator, tag valueword.Tag, h, value valueword.Handle) valueword.Handle {
	return InsertAt(alloc, tag, h, Size(h), value)
}

// RemoveAt returns a new rope with index i removed.
func RemoveAt(alloc Allocator, tag valueword.Tag, h valueword.Handle, i uint64) valueword.Handle {
	left, midRight := splitAt(alloc, tag, h, i)
	_, right := splitAt(alloc, tag, midRight, 1)
	return concat(alloc, tag, left, right)
}

// SetAt returns a new rope with index i rebound to value.
func SetAt(alloc Allocator, tag valueword.Tag, h valueword.Handle, i uint64, value valueword.Handle) valueword.Handle {
	return InsertAt(alloc, tag, RemoveAt(alloc, tag, h, i), i, value)
}

// Extend concatenates two ropes sharing the same tag.
func Extend(alloc Allocator, tag valueword.Tag, a, b valueword.Handle) valueword.Handle {
	return concat(alloc, tag, a, b)
}

// Slice returns the half-open range [from, to).
func Slice(alloc Allocator, tag valueword.Tag, h valueword.Handle, from, to uint64) valueword.Handle {
	_, right := splitAt(alloc, tag, h, from)
	left, _ := splitAt(alloc, tag, right, to-from)
	return left
}

// RemoveSlice removes the half-open range [from, to).
func RemoveSlice(alloc Allocator, tag valueword.Tag, h valueword.Handle, from, to uint64) valueword.Handle {
	left, right := splitAt(alloc, tag, h, from)
	_, tail := splitAt(alloc, tag, right, to-from)
	return concat(alloc, tag, left, tail)
}

// SplitFirst / SplitLast mirror internal/seqlist's supplemented API.
func SplitFirst(alloc Allocator, tag valueword.Tag, h valueword.Handle, count uint64) (removed, rest valueword.Handle) {
	return splitAt(alloc, tag, h, count)
}
func SplitLast(alloc Allocator, tag valueword.Tag, h valueword.Handle, count uint64) (rest, removed valueword.Handle) {
	return splitAt(alloc, tag, h, Size(h)-count)
}

// ForEach visits elements in index order.
func ForEach(h valueword.Handle, fn func(valueword.Handle) bool) {
	forEach(h, fn)
}

func forEach(h valueword.Handle, fn func(valueword.Handle) bool) bool {
	if valueword.IsNone(h) {
		return true
	}
	if isLeaf(h) {
		l := leafOf(h)
		for i := uint32(0); i < l.length; i++ {
			if !fn(l.elems[i]) {
				return false
			}
		}
		return true
	}
	n := internalOf(h)
	if !forEach(n.prev, fn) {
		return false
	}
	return forEach(n.next, fn)
}

// --- split / concat / rebalance --------------------------------------------

// splitAt splits h into [0, i) and [i, Size(h)), allocating fresh leaf
// cells for any leaf that must be cut mid-chunk.
func splitAt(alloc Allocator, tag valueword.Tag, h valueword.Handle, i uint64) (left, right valueword.Handle) {
	if valueword.IsNone(h) {
		return valueword.None, valueword.None
	}
	if isLeaf(h) {
		l := leafOf(h)
		left = leafSlice(alloc, tag, l.elems[:l.length], 0, i)
		right = leafSlice(alloc, tag, l.elems[:l.length], i, uint64(l.length))
		return left, right
	}
	n := internalOf(h)
	lsz := uint64(sizeOf(n.prev))
	if i <= lsz {
		ll, lr := splitAt(alloc, tag, n.prev, i)
		return ll, concat(alloc, tag, lr, n.next)
	}
	rl, rr := splitAt(alloc, tag, n.next, i-lsz)
	return concat(alloc, tag, n.prev, rl), rr
}

func leafSlice(alloc Allocator, tag valueword.Tag, elems []valueword.Handle, from, to uint64) valueword.Handle {
	if from >= to {
		return valueword.None
	}
	return newLeaf(alloc, tag, elems[from:to])
}

func concat(alloc Allocator, tag valueword.Tag, left, right valueword.Handle) valueword.Handle {
	if valueword.IsNone(left) {
		return right
	}
	if valueword.IsNone(right) {
		return left
	}
	if isLeaf(left) && isLeaf(right) {
		ll, rl := leafOf(left), leafOf(right)
		merged := make([]valueword.Handle, 0, int(ll.length)+int(rl.length))
		merged = append(merged, ll.elems[:ll.length]...)
		merged = append(merged, rl.elems[:rl.length]...)
		if len(merged) <= Fanout {
			return newLeaf(alloc, tag, merged)
		}
		mid := len(merged) / 2
		l1 := newLeaf(alloc, tag, merged[:mid])
		l2 := newLeaf(alloc, tag, merged[mid:])
		return newInternal(alloc, tag, l1, l2)
	}

	lh, rh := heightOf(left), heightOf(right)
	switch {
	case lh > rh+1:
		ln := internalOf(left)
		return rebalance(alloc, tag, ln.prev, concat(alloc, tag, ln.next, right))
	case rh > lh+1:
		rn := internalOf(right)
		return rebalance(alloc, tag, concat(alloc, tag, left, rn.prev), rn.next)
	default:
		return rebalance(alloc, tag, left, right)
	}
}

func rebalance(alloc Allocator, tag valueword.Tag, left, right valueword.Handle) valueword.Handle {
	bf := heightOf(left) - heightOf(right)
	switch {
	case bf > 1:
		ln := internalOf(left)
		// The pre-rotation (double-rotation case) only applies when the
		// heavier grandchild is itself an internal node; a leaf grandchild
		// cannot be reinterpreted via internalOf.
		if !isLeaf(ln.next) && heightOf(ln.prev) < heightOf(ln.next) {
			left = rotateLeft(alloc, tag, left)
		}
		return rotateRight(alloc, tag, newInternal(alloc, tag, left, right))
	case bf < -1:
		rn := internalOf(right)
		if !isLeaf(rn.prev) && heightOf(rn.next) < heightOf(rn.prev) {
			right = rotateRight(alloc, tag, right)
		}
		return rotateLeft(alloc, tag, newInternal(alloc, tag, left, right))
	default:
		return newInternal(alloc, tag, left, right)
	}
}

func rotateLeft(alloc Allocator, tag valueword.Tag, h valueword.Handle) valueword.Handle {
	n := internalOf(h)
	r := internalOf(n.next)
	newLeftNode := newInternal(alloc, tag, n.prev, r.prev)
	return newInternal(alloc, tag, newLeftNode, r.next)
}

func rotateRight(alloc Allocator, tag valueword.Tag, h valueword.Handle) valueword.Handle {
	n := internalOf(h)
	l := internalOf(n.prev)
	newRightNode := newInternal(alloc, tag, l.next, n.next)
	return newInternal(alloc, tag, l.prev, newRightNode)
}
