package collision

import (
	"fmt"

	"github.com/milk9111/rigidcore/ecs"
)

// EventKind identifies collision event types.
type EventKind uint8

const (
	// Started: the two entities started to collide.
	Started EventKind = iota + 1
	// Stopped: the two entities no longer collide.
	Stopped
)

func (k EventKind) String() string {
	switch k {
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is emitted when the collision state between two entities changes.
type Event struct {
	Kind EventKind
	A    ecs.Entity
	B    ecs.Entity
}

func StartedEvent(a, b ecs.Entity) Event { return Event{Kind: Started, A: a, B: b} }
func StoppedEvent(a, b ecs.Entity) Event { return Event{Kind: Stopped, A: a, B: b} }

// Pair returns the unordered pair the event refers to.
func (e Event) Pair() Pair {
	return NewPair(e.A, e.B)
}

// Involves reports whether ent is one of the two entities.
func (e Event) Involves(ent ecs.Entity) bool {
	return e.A == ent || e.B == ent
}

// Other returns the partner of ent.
func (e Event) Other(ent ecs.Entity) (ecs.Entity, bool) {
	return e.Pair().Other(ent)
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%s, %s)", e.Kind, e.A, e.B)
}
