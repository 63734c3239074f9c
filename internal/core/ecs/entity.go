package ecs

import (
	"errors"
	"fmt"
)

// EntityID is a stable handle into one EntityArray. Freed ids are reused, so an id is
// only meaningful while its entity is live.
type EntityID int

var (
	ErrNotFound           = errors.New("entity not found")
	ErrNotReserved        = errors.New("entity id was not reserved")
	ErrRegistrationClosed = errors.New("registration closed")
)

// Entity is implemented by every value stored in an EntityArray.
type Entity interface {
	ID() EntityID
}

// EntityArray is a slot map: values are densely packed, ids resolve through an
// id→index table. Add, Remove and Lookup are O(1). Iteration order is unspecified
// and changes on removal.
type EntityArray[T Entity] struct {
	values   []T
	slots    []int // id → index into values, -1 when free
	free     []EntityID
	reserved EntityID
}

func NewEntityArray[T Entity](capacity int) *EntityArray[T] {
	return &EntityArray[T]{
		values:   make([]T, 0, capacity),
		slots:    make([]int, 0, capacity),
		free:     make([]EntityID, 0, capacity),
		reserved: -1,
	}
}

// Reserve hands out the id for the next Add, reusing a freed id when one exists.
// Calling Reserve again before Add returns the same pending id.
func (a *EntityArray[T]) Reserve() EntityID {
	if a.reserved >= 0 {
		return a.reserved
	}
	index := len(a.values)
	var id EntityID
	if n := len(a.free); n > 0 {
		id = a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[id] = index
	} else {
		id = EntityID(len(a.slots))
		a.slots = append(a.slots, index)
	}
	a.reserved = id
	return id
}

// Add stores a value whose id came from the pending Reserve.
func (a *EntityArray[T]) Add(v T) error {
	id := v.ID()
	if a.reserved < 0 || id != a.reserved {
		return fmt.Errorf("add entity %d: %w", id, ErrNotReserved)
	}
	a.values = append(a.values, v)
	a.reserved = -1
	return nil
}

// Remove swap-removes the entity's value and frees its id. The id table shrinks
// instead when the removed id is the highest one. Returns false for unknown ids.
func (a *EntityArray[T]) Remove(id EntityID) bool {
	if !a.Has(id) {
		return false
	}
	index := a.slots[id]
	last := len(a.values) - 1
	moved := a.values[last]
	a.values[index] = moved
	var zero T
	a.values[last] = zero
	a.values = a.values[:last]

	if len(a.values) == 0 && a.reserved < 0 {
		a.slots = a.slots[:0]
		a.free = a.free[:0]
		return true
	}

	if int(id) == len(a.slots)-1 {
		a.slots = a.slots[:id]
	} else {
		a.slots[id] = -1
		a.free = append(a.free, id)
	}

	if index != last {
		a.slots[moved.ID()] = index
	}
	if a.reserved >= 0 {
		a.slots[a.reserved] = len(a.values)
	}
	return true
}

// Has reports whether id refers to a live entity.
func (a *EntityArray[T]) Has(id EntityID) bool {
	if id < 0 || int(id) >= len(a.slots) {
		return false
	}
	index := a.slots[id]
	return index >= 0 && index < len(a.values)
}

// Lookup resolves id to its value, failing with ErrNotFound when id is not live.
func (a *EntityArray[T]) Lookup(id EntityID) (T, error) {
	if !a.Has(id) {
		var zero T
		return zero, fmt.Errorf("lookup entity %d: %w", id, ErrNotFound)
	}
	return a.values[a.slots[id]], nil
}

// Values is the dense backing array. Do not hold it across a Remove.
func (a *EntityArray[T]) Values() []T { return a.values }
func (a *EntityArray[T]) Len() int    { return len(a.values) }
