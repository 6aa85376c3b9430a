package ecs

import (
	"slices"

	"github.com/milk9111/rigidcore/ecs/component"
)

// World owns entities, component stores, resources and system order.
type World struct {
	entities  entityStore
	stores    map[component.ComponentID]*SparseSet
	systems   []System
	resources Resources
	despawn   []func(Entity)
	tick      uint64
}

// NewWorld creates an empty ECS world.
func NewWorld() *World {
	return &World{stores: make(map[component.ComponentID]*SparseSet)}
}

// CreateEntity allocates a new entity.
func (w *World) CreateEntity() Entity {
	return w.entities.create()
}

// DestroyEntity runs despawn hooks, drops every component of e and frees
// its slot. It returns false for handles that are not alive.
func (w *World) DestroyEntity(e Entity) bool {
	if w == nil || !w.entities.isAlive(e) {
		return false
	}
	for _, hook := range w.despawn {
		hook(e)
	}
	for _, store := range w.stores {
		store.Remove(e)
	}
	return w.entities.destroy(e)
}

// OnDespawn registers a hook called from DestroyEntity while e's components
// are still readable.
func (w *World) OnDespawn(hook func(Entity)) {
	if w == nil || hook == nil {
		return
	}
	w.despawn = append(w.despawn, hook)
}

// IsAlive reports whether an entity handle is valid.
func (w *World) IsAlive(e Entity) bool {
	if w == nil {
		return false
	}
	return w.entities.isAlive(e)
}

// Entities returns every live entity in slot order.
func (w *World) Entities() []Entity {
	if w == nil {
		return nil
	}
	return w.entities.all()
}

// AddSystem appends a system to the update order.
func (w *World) AddSystem(s System) {
	if s == nil {
		return
	}
	w.systems = append(w.systems, s)
}

// Update runs all systems once, then ages every registered event stream.
func (w *World) Update() {
	if w == nil {
		return
	}
	for _, s := range w.systems {
		if s != nil {
			s.Update(w)
		}
	}
	w.resources.each(func(res any) {
		if u, ok := res.(eventUpdater); ok {
			u.Update()
		}
	})
	w.tick++
}

// Tick returns the number of completed Update calls.
func (w *World) Tick() uint64 {
	if w == nil {
		return 0
	}
	return w.tick
}

// Resources returns the world's resource registry.
func (w *World) Resources() *Resources {
	if w == nil {
		return nil
	}
	return &w.resources
}

// Store returns the storage for a component kind, creating it on demand.
func (w *World) Store(id component.ComponentID) *SparseSet {
	if w == nil || id == 0 {
		return nil
	}
	if w.stores == nil {
		w.stores = make(map[component.ComponentID]*SparseSet)
	}
	s, ok := w.stores[id]
	if !ok {
		s = &SparseSet{}
		w.stores[id] = s
	}
	return s
}

func (w *World) lookup(id component.ComponentID) *SparseSet {
	if w == nil || w.stores == nil {
		return nil
	}
	return w.stores[id]
}

// AddComponent stores value for e under the kind id.
func (w *World) AddComponent(e Entity, id component.ComponentID, value any) error {
	if id == 0 {
		return component.ErrInvalidComponentKind
	}
	if value == nil {
		return component.ErrNilComponent
	}
	if !w.IsAlive(e) {
		return component.ErrEntityNotAlive
	}
	w.Store(id).Set(e, value)
	return nil
}

// GetComponent returns the raw component stored for e.
func (w *World) GetComponent(e Entity, id component.ComponentID) (any, bool) {
	s := w.lookup(id)
	if s == nil || !w.IsAlive(e) {
		return nil, false
	}
	v := s.Get(e)
	return v, v != nil
}

// HasComponent reports whether e carries the kind.
func (w *World) HasComponent(e Entity, id component.ComponentID) bool {
	return w.IsAlive(e) && w.lookup(id).Has(e)
}

// RemoveComponent drops the kind from e.
func (w *World) RemoveComponent(e Entity, id component.ComponentID) bool {
	return w.lookup(id).Remove(e)
}

// Query returns live entities carrying every kind. Two-kind queries walk the
// smaller store; longer ones follow the first kind's store.
func (w *World) Query(kinds ...component.Kind) []Entity {
	if w == nil || len(kinds) == 0 {
		return nil
	}
	sets := make([]*SparseSet, 0, len(kinds))
	for _, k := range kinds {
		s := w.lookup(k.ID())
		if s == nil {
			return nil
		}
		sets = append(sets, s)
	}
	if len(sets) == 2 {
		both := IntersectEntities(sets[0], sets[1])
		return slices.DeleteFunc(both, func(e Entity) bool { return !w.entities.isAlive(e) })
	}

	var out []Entity
	for _, e := range sets[0].Entities() {
		if !w.entities.isAlive(e) {
			continue
		}
		ok := true
		for _, s := range sets[1:] {
			if !s.Has(e) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, e)
		}
	}
	return out
}
