package ecs

import "fmt"

// Lifecycle is implemented by all component stores so the Registry can add and
// remove an entity's data in every store from a single call site.
type Lifecycle interface {
	Add(id EntityID)
	Remove(id EntityID)
}

// ComponentArray is an id-indexed component store. Ids come from an EntityArray,
// which keeps them compact, so a slice beats a map here.
type ComponentArray[C any] struct {
	data  []*C
	count int
	newFn func(EntityID) *C
}

// NewComponentArray creates a store. newFn default-constructs a component for an id;
// nil means new(C).
func NewComponentArray[C any](newFn func(EntityID) *C) *ComponentArray[C] {
	if newFn == nil {
		newFn = func(EntityID) *C { return new(C) }
	}
	return &ComponentArray[C]{
		data:  make([]*C, 0, 64),
		newFn: newFn,
	}
}

func (s *ComponentArray[C]) Add(id EntityID) {
	for int(id) >= len(s.data) {
		s.data = append(s.data, nil)
	}
	if s.data[id] == nil {
		s.count++
	}
	s.data[id] = s.newFn(id)
}

func (s *ComponentArray[C]) Remove(id EntityID) {
	if !s.Has(id) {
		return
	}
	s.data[id] = nil
	s.count--
	for n := len(s.data); n > 0 && s.data[n-1] == nil; n-- {
		s.data = s.data[:n-1]
	}
}

func (s *ComponentArray[C]) Get(id EntityID) (*C, bool) {
	if !s.Has(id) {
		return nil, false
	}
	return s.data[id], true
}

// Lookup is Get for call sites that treat a missing component as a lifecycle bug.
func (s *ComponentArray[C]) Lookup(id EntityID) (*C, error) {
	c, ok := s.Get(id)
	if !ok {
		return nil, fmt.Errorf("component %T for entity %d: %w", c, id, ErrNotFound)
	}
	return c, nil
}

func (s *ComponentArray[C]) Has(id EntityID) bool {
	return id >= 0 && int(id) < len(s.data) && s.data[id] != nil
}

func (s *ComponentArray[C]) Len() int {
	return s.count
}
