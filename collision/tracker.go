package collision

import (
	"slices"

	"github.com/milk9111/rigidcore/common"
	"github.com/milk9111/rigidcore/ecs"
)

// Tracker keeps the set of pairs that were overlapping at the last Step and
// turns each change into one Started or Stopped event.
//
// A Tracker has a single writer: Despawn and Step must not run concurrently
// with each other. The returned event slices are owned by the caller.
type Tracker struct {
	active    map[Pair]struct{}
	despawned map[ecs.Entity]struct{}
	alive     func(ecs.Entity) bool
	log       common.Logger
}

type Option func(*Tracker)

// WithLogger sets the logger used for rejected self pairs.
func WithLogger(l common.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// WithAliveFilter drops overlaps that name an entity the host no longer
// knows, so a detector lagging behind a despawn cannot restart a pair.
func WithAliveFilter(alive func(ecs.Entity) bool) Option {
	return func(t *Tracker) {
		t.alive = alive
	}
}

func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		active:    make(map[Pair]struct{}),
		despawned: make(map[ecs.Entity]struct{}),
		log:       common.NopLogger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Despawn records that e was removed from the host. The next Step stops
// every active pair involving e before anything else and ignores e in that
// step's overlap set.
func (t *Tracker) Despawn(e ecs.Entity) {
	t.despawned[e] = struct{}{}
}

// Step diffs the overlap set of one detection pass against the active set.
// Pairs may appear in either order and more than once; self pairs are
// ignored. Stopped events come before Started events in the result.
func (t *Tracker) Step(current []Pair) []Event {
	var stopped, started []Event

	if len(t.despawned) > 0 {
		for _, p := range t.sortedActive() {
			if t.isDespawned(p.A) || t.isDespawned(p.B) {
				delete(t.active, p)
				stopped = append(stopped, StoppedEvent(p.A, p.B))
			}
		}
	}

	seen := make(map[Pair]struct{}, len(current))
	for _, raw := range current {
		p := raw.Canonical()
		if !p.Valid() {
			t.log.Debug("Tracker: ignoring self pair", "entity", p.A)
			continue
		}
		if t.isDespawned(p.A) || t.isDespawned(p.B) {
			continue
		}
		if t.alive != nil && (!t.alive(p.A) || !t.alive(p.B)) {
			t.log.Debug("Tracker: ignoring pair with dead entity", "pair", p)
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if _, ok := t.active[p]; !ok {
			t.active[p] = struct{}{}
			started = append(started, StartedEvent(p.A, p.B))
		}
	}

	for _, p := range t.sortedActive() {
		if _, ok := seen[p]; ok {
			continue
		}
		delete(t.active, p)
		stopped = append(stopped, StoppedEvent(p.A, p.B))
	}

	clear(t.despawned)
	return append(stopped, started...)
}

func (t *Tracker) isDespawned(e ecs.Entity) bool {
	_, ok := t.despawned[e]
	return ok
}

func (t *Tracker) sortedActive() []Pair {
	out := make([]Pair, 0, len(t.active))
	for p := range t.active {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Pair) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// Active reports whether the pair is currently in contact, in either order.
func (t *Tracker) Active(p Pair) bool {
	_, ok := t.active[p.Canonical()]
	return ok
}

// ActivePairs returns the active pairs in a stable order.
func (t *Tracker) ActivePairs() []Pair {
	return t.sortedActive()
}

// Partners returns the entities currently in contact with e.
func (t *Tracker) Partners(e ecs.Entity) []ecs.Entity {
	var out []ecs.Entity
	for _, p := range t.sortedActive() {
		if other, ok := p.Other(e); ok {
			out = append(out, other)
		}
	}
	return out
}

// Len returns the number of active pairs.
func (t *Tracker) Len() int {
	return len(t.active)
}

// Clear stops every active pair and returns the Stopped events. Pending
// despawn notifications are dropped.
func (t *Tracker) Clear() []Event {
	var out []Event
	for _, p := range t.sortedActive() {
		out = append(out, StoppedEvent(p.A, p.B))
	}
	clear(t.active)
	clear(t.despawned)
	return out
}

// Reset forgets all state without reporting anything.
func (t *Tracker) Reset() {
	clear(t.active)
	clear(t.despawned)
}
