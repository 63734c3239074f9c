// Package list holds the small unordered containers shared by the scheduler and squads.
package list

// Unordered is a slice with O(1) removal by swapping in the last element.
// Iteration order is unstable across removals.
type Unordered[T comparable] struct {
	items []T
}

func NewUnordered[T comparable](capacity int) *Unordered[T] {
	return &Unordered[T]{items: make([]T, 0, capacity)}
}

func (l *Unordered[T]) Add(v T) {
	l.items = append(l.items, v)
}

// SwapRemove finds v with a linear scan and overwrites it with the last element.
func (l *Unordered[T]) SwapRemove(v T) bool {
	for i, candidate := range l.items {
		if candidate != v {
			continue
		}
		l.SwapRemoveAt(i)
		return true
	}
	return false
}

func (l *Unordered[T]) SwapRemoveAt(i int) {
	last := len(l.items) - 1
	l.items[i] = l.items[last]
	var zero T
	l.items[last] = zero
	l.items = l.items[:last]
}

func (l *Unordered[T]) Contains(v T) bool {
	for _, candidate := range l.items {
		if candidate == v {
			return true
		}
	}
	return false
}

// Items exposes the backing slice. Callers must not hold it across a removal.
func (l *Unordered[T]) Items() []T { return l.items }
func (l *Unordered[T]) Len() int   { return len(l.items) }

// Last returns the last element, if any.
func (l *Unordered[T]) Last() (T, bool) {
	if len(l.items) == 0 {
		var zero T
		return zero, false
	}
	return l.items[len(l.items)-1], true
}

// Set is a de-duplicated Unordered list backed by a membership map.
type Set[T comparable] struct {
	members map[T]struct{}
	list    Unordered[T]
}

func NewSet[T comparable](capacity int) *Set[T] {
	return &Set[T]{
		members: make(map[T]struct{}, capacity),
		list:    Unordered[T]{items: make([]T, 0, capacity)},
	}
}

// Add inserts v and reports whether it was newly added.
func (s *Set[T]) Add(v T) bool {
	if _, ok := s.members[v]; ok {
		return false
	}
	s.members[v] = struct{}{}
	s.list.Add(v)
	return true
}

// Remove deletes v and reports whether it was a member.
func (s *Set[T]) Remove(v T) bool {
	if _, ok := s.members[v]; !ok {
		return false
	}
	delete(s.members, v)
	s.list.SwapRemove(v)
	return true
}

func (s *Set[T]) Has(v T) bool {
	_, ok := s.members[v]
	return ok
}

func (s *Set[T]) Items() []T { return s.list.Items() }
func (s *Set[T]) Len() int   { return s.list.Len() }
