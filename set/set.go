package set

// Set is a minimal set of comparable values. The zero value is ready to use.
type Set[T comparable] struct {
	set map[T]struct{}
}

// Add inserts k and reports whether it was not already present.
func (s *Set[T]) Add(k T) bool {
	if s.set == nil {
		s.set = make(map[T]struct{})
	}
	if _, ok := s.set[k]; ok {
		return false
	}
	s.set[k] = struct{}{}
	return true
}

// Remove deletes k.
func (s *Set[T]) Remove(k T) {
	delete(s.set, k)
}

// Contains reports whether k is present.
func (s *Set[T]) Contains(k T) bool {
	_, ok := s.set[k]
	return ok
}

// Len returns the number of elements.
func (s *Set[T]) Len() int {
	return len(s.set)
}
