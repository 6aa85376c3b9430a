package ecs

// eventUpdater is implemented by every Events[T]; World.Update ages all
// event streams registered as resources.
type eventUpdater interface {
	Update()
}

type eventInstance[T any] struct {
	seq   uint64
	event T
}

// Events is a step-scoped, double-buffered event stream. Events sent during a
// step stay readable through the following step, then are dropped. Any number
// of EventReaders consume it independently.
type Events[T any] struct {
	prev []eventInstance[T]
	cur  []eventInstance[T]
	next uint64
}

// NewEvents creates an empty stream.
func NewEvents[T any]() *Events[T] {
	return &Events[T]{}
}

// Send appends one event to the current step's buffer.
func (ev *Events[T]) Send(event T) {
	ev.cur = append(ev.cur, eventInstance[T]{seq: ev.next, event: event})
	ev.next++
}

// SendBatch appends events in order.
func (ev *Events[T]) SendBatch(events []T) {
	for _, e := range events {
		ev.Send(e)
	}
}

// Update ends a step: events from the previous step are dropped and the
// current buffer becomes the previous one.
func (ev *Events[T]) Update() {
	clear(ev.prev)
	ev.prev, ev.cur = ev.cur, ev.prev[:0]
}

// Len returns the number of retained events.
func (ev *Events[T]) Len() int {
	return len(ev.prev) + len(ev.cur)
}

// Clear drops every retained event. Readers keep their cursors.
func (ev *Events[T]) Clear() {
	clear(ev.prev)
	clear(ev.cur)
	ev.prev = ev.prev[:0]
	ev.cur = ev.cur[:0]
}

func (ev *Events[T]) oldest() uint64 {
	switch {
	case len(ev.prev) > 0:
		return ev.prev[0].seq
	case len(ev.cur) > 0:
		return ev.cur[0].seq
	default:
		return ev.next
	}
}

// NewReader returns a cursor positioned at the oldest retained event.
func (ev *Events[T]) NewReader() *EventReader[T] {
	return &EventReader[T]{events: ev, next: ev.oldest()}
}

// EventReader tracks one listener's read position over an Events stream.
type EventReader[T any] struct {
	events *Events[T]
	next   uint64
	missed uint64
}

// Read returns every retained event this reader has not seen yet and
// advances the cursor past them.
func (r *EventReader[T]) Read() []T {
	if r == nil || r.events == nil {
		return nil
	}
	if oldest := r.events.oldest(); r.next < oldest {
		r.missed += oldest - r.next
		r.next = oldest
	}
	var out []T
	for _, buf := range [2][]eventInstance[T]{r.events.prev, r.events.cur} {
		for _, inst := range buf {
			if inst.seq >= r.next {
				out = append(out, inst.event)
			}
		}
	}
	r.next = r.events.next
	return out
}

// Missed returns how many events were dropped before this reader saw them.
func (r *EventReader[T]) Missed() uint64 {
	if r == nil {
		return 0
	}
	return r.missed
}

// RegisterEvents returns the stream of T registered on w, creating it on
// first use so World.Update ages it every step.
func RegisterEvents[T any](w *World) *Events[T] {
	if ev, ok := GetResource[Events[T]](w); ok {
		return ev
	}
	ev := NewEvents[T]()
	AddResource(w, ev)
	return ev
}
