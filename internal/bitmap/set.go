package bitmap

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// Set is a set of store positions.
type Set struct {
	rb *roaring.Bitmap
}

// New creates an empty set.
func New() *Set {
	return &Set{rb: roaring.New()}
}

// Of creates a set holding the given positions.
func Of(positions ...uint32) *Set {
	return &Set{rb: roaring.BitmapOf(positions...)}
}

// Add adds a position.
func (s *Set) Add(pos uint32) {
	s.rb.Add(pos)
}

// Remove removes a position.
func (s *Set) Remove(pos uint32) {
	s.rb.Remove(pos)
}

// Contains reports whether pos is in the set. A nil set is empty.
func (s *Set) Contains(pos uint32) bool {
	return s != nil && s.rb.Contains(pos)
}

// IsEmpty reports whether the set is empty. A nil set is empty.
func (s *Set) IsEmpty() bool {
	return s == nil || s.rb.IsEmpty()
}

// Cardinality returns the number of positions in the set.
func (s *Set) Cardinality() int {
	if s == nil {
		return 0
	}
	return int(s.rb.GetCardinality())
}

// Min returns the smallest position.
func (s *Set) Min() (uint32, bool) {
	if s.IsEmpty() {
		return 0, false
	}
	return s.rb.Minimum(), true
}

// Max returns the largest position.
func (s *Set) Max() (uint32, bool) {
	if s.IsEmpty() {
		return 0, false
	}
	return s.rb.Maximum(), true
}

// Clone returns a deep copy. Cloning a nil set yields an empty set.
func (s *Set) Clone() *Set {
	if s == nil {
		return New()
	}
	return &Set{rb: s.rb.Clone()}
}

// All iterates positions in ascending order.
func (s *Set) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		if s == nil {
			return
		}
		it := s.rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// Slice returns the positions in ascending order.
func (s *Set) Slice() []uint32 {
	if s == nil {
		return nil
	}
	return s.rb.ToArray()
}

// Clear removes all positions.
func (s *Set) Clear() {
	s.rb.Clear()
}

// And returns the intersection of a and b as a new set. Nil operands are empty.
func And(a, b *Set) *Set {
	if a.IsEmpty() || b.IsEmpty() {
		return New()
	}
	return &Set{rb: roaring.And(a.rb, b.rb)}
}

// Or returns the union of the given sets as a new set.
func Or(sets ...*Set) *Set {
	out := roaring.New()
	for _, s := range sets {
		if s != nil {
			out.Or(s.rb)
		}
	}
	return &Set{rb: out}
}
