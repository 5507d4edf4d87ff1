package bitmap

// Index is an inverted index from a key to the positions carrying it.
type Index[K comparable] struct {
	m map[K]*Set
}

// NewIndex creates an empty index.
func NewIndex[K comparable]() *Index[K] {
	return &Index[K]{m: make(map[K]*Set)}
}

// Add records pos under key.
func (x *Index[K]) Add(key K, pos uint32) {
	s, ok := x.m[key]
	if !ok {
		s = New()
		x.m[key] = s
	}
	s.Add(pos)
}

// Remove drops pos from key, deleting the key once its set is empty.
func (x *Index[K]) Remove(key K, pos uint32) {
	s, ok := x.m[key]
	if !ok {
		return
	}
	s.Remove(pos)
	if s.IsEmpty() {
		delete(x.m, key)
	}
}

// Get returns the positions under key. The result is nil when the key is
// unknown and must not be modified by the caller.
func (x *Index[K]) Get(key K) *Set {
	return x.m[key]
}

// Has reports whether any position is recorded under key.
func (x *Index[K]) Has(key K) bool {
	return !x.m[key].IsEmpty()
}

// Len returns the number of distinct keys.
func (x *Index[K]) Len() int {
	return len(x.m)
}

// Keys returns the keys in unspecified order.
func (x *Index[K]) Keys() []K {
	keys := make([]K, 0, len(x.m))
	for k := range x.m {
		keys = append(keys, k)
	}
	return keys
}

// Clear removes every key.
func (x *Index[K]) Clear() {
	clear(x.m)
}
