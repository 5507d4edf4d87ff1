package pairmap

import (
	"cmp"
	"container/heap"
	"iter"
	"slices"
)

// Map is a bidirectional one-to-one map between L and R.
type Map[L cmp.Ordered, R comparable] struct {
	forward map[L]R
	reverse map[R]L

	// rightOnly counts pairs whose left side is absent; they live in reverse only.
	rightOnly int

	lefts maxHeap[L]
}

// New creates an empty map.
func New[L cmp.Ordered, R comparable]() *Map[L, R] {
	return &Map[L, R]{
		forward: make(map[L]R),
		reverse: make(map[R]L),
	}
}

// Add inserts the pair (l, r).
//
// Both l and r must be unique within the map; adding a value that is already
// present on either side leaves the map in an unspecified state. Pairs where
// both sides are absent are ignored.
func (m *Map[L, R]) Add(l L, r R) {
	var (
		zl L
		zr R
	)
	switch {
	case l == zl && r == zr:
		return
	case l == zl:
		m.reverse[r] = zl
		m.rightOnly++
		return
	}

	m.forward[l] = r
	if r != zr {
		m.reverse[r] = l
	}
	heap.Push(&m.lefts, l)
}

// RemoveByLeft removes the pair whose left side is l and reports whether one existed.
func (m *Map[L, R]) RemoveByLeft(l L) bool {
	r, ok := m.forward[l]
	if !ok {
		return false
	}
	delete(m.forward, l)
	var zr R
	if r != zr {
		delete(m.reverse, r)
	}
	m.prune()
	return true
}

// RemoveByRight removes the pair whose right side is r and reports whether one existed.
func (m *Map[L, R]) RemoveByRight(r R) bool {
	l, ok := m.reverse[r]
	if !ok {
		return false
	}
	delete(m.reverse, r)
	var zl L
	if l == zl {
		m.rightOnly--
		return true
	}
	delete(m.forward, l)
	m.prune()
	return true
}

// FindLeftByRight returns the left value paired with r.
// The returned left is the zero value when the pair has no left side.
func (m *Map[L, R]) FindLeftByRight(r R) (L, bool) {
	l, ok := m.reverse[r]
	return l, ok
}

// FindRightByLeft returns the right value paired with l.
// The returned right is the zero value when the pair has no right side.
func (m *Map[L, R]) FindRightByLeft(l L) (R, bool) {
	r, ok := m.forward[l]
	return r, ok
}

// ContainsLeft reports whether l is present.
func (m *Map[L, R]) ContainsLeft(l L) bool {
	_, ok := m.forward[l]
	return ok
}

// ContainsRight reports whether r is present.
func (m *Map[L, R]) ContainsRight(r R) bool {
	_, ok := m.reverse[r]
	return ok
}

// MaxLeft returns the largest left value currently present.
func (m *Map[L, R]) MaxLeft() (L, bool) {
	if len(m.lefts) == 0 {
		var zl L
		return zl, false
	}
	return m.lefts[0], true
}

// Count returns the number of pairs.
func (m *Map[L, R]) Count() int {
	return len(m.forward) + m.rightOnly
}

// Clear removes all pairs.
func (m *Map[L, R]) Clear() {
	clear(m.forward)
	clear(m.reverse)
	m.rightOnly = 0
	m.lefts = m.lefts[:0]
}

// All yields every pair that has a left side, in ascending left order.
func (m *Map[L, R]) All() iter.Seq2[L, R] {
	return func(yield func(L, R) bool) {
		keys := make([]L, 0, len(m.forward))
		for l := range m.forward {
			keys = append(keys, l)
		}
		slices.Sort(keys)
		for _, l := range keys {
			if !yield(l, m.forward[l]) {
				return
			}
		}
	}
}

// prune drops heap entries that no longer exist so that lefts[0] is always live.
func (m *Map[L, R]) prune() {
	for len(m.lefts) > 0 {
		if _, ok := m.forward[m.lefts[0]]; ok {
			break
		}
		heap.Pop(&m.lefts)
	}
	// Stale entries below the top accumulate after many removals; rebuild
	// once they outnumber the live ones.
	if len(m.lefts) > 2*len(m.forward)+16 {
		m.lefts = m.lefts[:0]
		for l := range m.forward {
			m.lefts = append(m.lefts, l)
		}
		heap.Init(&m.lefts)
	}
}

type maxHeap[T cmp.Ordered] []T

func (h maxHeap[T]) Len() int           { return len(h) }
func (h maxHeap[T]) Less(i, j int) bool { return h[i] > h[j] }
func (h maxHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap[T]) Push(x any)        { *h = append(*h, x.(T)) }

func (h *maxHeap[T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
