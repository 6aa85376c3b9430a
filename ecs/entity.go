package ecs

import "strconv"

// Entity is an opaque handle: the low 32 bits index the slot, the high 32
// bits carry the slot generation so stale handles never alias a new entity.
type Entity uint64

type entityID uint32
type generation uint32

const entityIDBits = 32

func makeEntity(id entityID, gen generation) Entity {
	return Entity(uint64(gen)<<entityIDBits | uint64(id))
}

func (e Entity) id() entityID {
	return entityID(uint32(e))
}

func (e Entity) generation() generation {
	return generation(uint32(uint64(e) >> entityIDBits))
}

func (e Entity) String() string {
	return strconv.FormatUint(uint64(e), 10)
}

// Valid reports whether e could name an entity. Slot ids start at 1.
func (e Entity) Valid() bool {
	return e.id() > 0
}
