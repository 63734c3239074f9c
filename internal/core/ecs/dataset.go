package ecs

import "fmt"

// Dataset pairs an EntityArray with its component stores. AddEntity and
// RemoveEntity are the only way entities enter or leave, so every live id has
// exactly one entry in every registered store.
type Dataset[T Entity] struct {
	name         string
	Entities     *EntityArray[T]
	registry     *Registry
	destroyQueue []EntityID
}

func NewDataset[T Entity](name string, capacity int) *Dataset[T] {
	return &Dataset[T]{
		name:         name,
		Entities:     NewEntityArray[T](capacity),
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 16),
	}
}

func (d *Dataset[T]) Name() string { return d.name }

// RegisterComponent adds a store. Stores must be registered before the first entity.
func (d *Dataset[T]) RegisterComponent(store Lifecycle) error {
	if d.Entities.Len() > 0 {
		return fmt.Errorf("%s: register component with %d live entities: %w", d.name, d.Entities.Len(), ErrRegistrationClosed)
	}
	d.registry.Register(store)
	return nil
}

// AddEntity reserves an id, builds the entity for it and creates its components.
func (d *Dataset[T]) AddEntity(build func(EntityID) T) (T, error) {
	id := d.Entities.Reserve()
	v := build(id)
	if err := d.Entities.Add(v); err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", d.name, err)
	}
	d.registry.AddAll(id)
	return v, nil
}

// RemoveEntity drops the entity and all of its components.
func (d *Dataset[T]) RemoveEntity(id EntityID) error {
	if !d.Entities.Remove(id) {
		return fmt.Errorf("%s: remove entity %d: %w", d.name, id, ErrNotFound)
	}
	d.registry.RemoveAll(id)
	return nil
}

func (d *Dataset[T]) Lookup(id EntityID) (T, error) {
	return d.Entities.Lookup(id)
}

// MarkForDestruction queues an entity for end-of-tick removal.
func (d *Dataset[T]) MarkForDestruction(id EntityID) {
	for _, queued := range d.destroyQueue {
		if queued == id {
			return
		}
	}
	d.destroyQueue = append(d.destroyQueue, id)
}

// FlushDestroyQueue hands every queued id to remove, which is expected to run the
// owner's full teardown and end with RemoveEntity.
func (d *Dataset[T]) FlushDestroyQueue(remove func(EntityID)) {
	for _, id := range d.destroyQueue {
		remove(id)
	}
	d.destroyQueue = d.destroyQueue[:0]
}

func (d *Dataset[T]) PendingDestruction() int { return len(d.destroyQueue) }
