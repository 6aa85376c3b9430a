package feed

import (
	"github.com/milk9111/rigidcore/collision"
	"github.com/milk9111/rigidcore/ecs"
)

// Publisher receives one batch per step that produced collision events.
type Publisher interface {
	Publish(step uint64, events []collision.Event) int
}

// System forwards the world's collision events to a Publisher through its
// own reader, so it never competes with other listeners.
type System struct {
	out    Publisher
	reader *ecs.EventReader[collision.Event]
}

func NewSystem(w *ecs.World, out Publisher) *System {
	return &System{
		out:    out,
		reader: ecs.RegisterEvents[collision.Event](w).NewReader(),
	}
}

func (s *System) Update(w *ecs.World) {
	if s == nil || s.out == nil || w == nil {
		return
	}
	if events := s.reader.Read(); len(events) > 0 {
		s.out.Publish(w.Tick(), events)
	}
}
