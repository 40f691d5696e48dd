package set

// Ordered is a set that iterates in insertion order. The zero value is ready to use.
type Ordered[T comparable] struct {
	index map[T]int
	items []T
}

// OrderedOf returns the unique values of vs in the order they first appear.
func OrderedOf[T comparable](vs ...T) *Ordered[T] {
	s := &Ordered[T]{}
	s.Add(vs...)
	return s
}

func (s *Ordered[T]) Add(vs ...T) {
	if s.index == nil {
		s.index = make(map[T]int, len(vs))
	}
	for _, v := range vs {
		if _, ok := s.index[v]; ok {
			continue
		}
		s.index[v] = len(s.items)
		s.items = append(s.items, v)
	}
}

func (s *Ordered[T]) Contains(v T) bool {
	_, ok := s.index[v]
	return ok
}

// IndexOf returns the insertion position of v, or -1.
func (s *Ordered[T]) IndexOf(v T) int {
	if i, ok := s.index[v]; ok {
		return i
	}
	return -1
}

func (s *Ordered[T]) Len() int {
	return len(s.items)
}

// ToSlice returns a copy of the values in insertion order.
func (s *Ordered[T]) ToSlice() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}
