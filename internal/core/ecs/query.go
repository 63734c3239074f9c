package ecs

// EachWith iterates the dataset's live entities together with their component
// from store. Entities without the component are skipped.
func EachWith[T Entity, C any](d *Dataset[T], store *ComponentArray[C], fn func(T, *C)) {
	for _, e := range d.Entities.Values() {
		if c, ok := store.Get(e.ID()); ok {
			fn(e, c)
		}
	}
}
