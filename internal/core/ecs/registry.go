package ecs

// Registry tracks all component stores of one Dataset and drives their lifecycle.
type Registry struct {
	stores []Lifecycle
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Lifecycle, 0, 16),
	}
}

// Register adds a component store to the registry.
func (r *Registry) Register(store Lifecycle) {
	r.stores = append(r.stores, store)
}

// AddAll creates the entity's entry in every registered store.
func (r *Registry) AddAll(id EntityID) {
	for _, s := range r.stores {
		s.Add(id)
	}
}

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}

func (r *Registry) Len() int { return len(r.stores) }
