package ecs

import "reflect"

// Resources holds world-scoped singletons keyed by their pointer type, at
// most one per type. Free ids are reused.
type Resources struct {
	items   []any
	types   map[reflect.Type]int
	freeIDs []int
}

// Add stores res and returns its id. It reports false if a resource of the
// same type is already present.
func (r *Resources) Add(res any) (int, bool) {
	if res == nil {
		return -1, false
	}
	t := reflect.TypeOf(res)
	if r.types == nil {
		r.types = make(map[reflect.Type]int)
	}
	if _, ok := r.types[t]; ok {
		return -1, false
	}
	var id int
	if len(r.freeIDs) > 0 {
		id = r.freeIDs[len(r.freeIDs)-1]
		r.freeIDs = r.freeIDs[:len(r.freeIDs)-1]
		r.items[id] = res
	} else {
		r.items = append(r.items, res)
		id = len(r.items) - 1
	}
	r.types[t] = id
	return id, true
}

// Has checks if a resource with the given id exists.
func (r *Resources) Has(id int) bool {
	return id >= 0 && id < len(r.items) && r.items[id] != nil
}

// Remove drops the resource by id, marking the id free for reuse.
func (r *Resources) Remove(id int) {
	if !r.Has(id) {
		return
	}
	delete(r.types, reflect.TypeOf(r.items[id]))
	r.items[id] = nil
	r.freeIDs = append(r.freeIDs, id)
}

func (r *Resources) each(fn func(any)) {
	for _, res := range r.items {
		if res != nil {
			fn(res)
		}
	}
}

// AddResource registers res on w. It reports false when a *T is already present.
func AddResource[T any](w *World, res *T) bool {
	if w == nil || res == nil {
		return false
	}
	_, ok := w.resources.Add(res)
	return ok
}

// GetResource returns the *T registered on w.
func GetResource[T any](w *World) (*T, bool) {
	if w == nil || w.resources.types == nil {
		return nil, false
	}
	id, ok := w.resources.types[reflect.TypeOf((**T)(nil)).Elem()]
	if !ok {
		return nil, false
	}
	res, ok := w.resources.items[id].(*T)
	return res, ok
}

// RemoveResource drops the *T registered on w.
func RemoveResource[T any](w *World) bool {
	if w == nil || w.resources.types == nil {
		return false
	}
	id, ok := w.resources.types[reflect.TypeOf((**T)(nil)).Elem()]
	if !ok {
		return false
	}
	w.resources.Remove(id)
	return true
}
