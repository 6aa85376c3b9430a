package system

import (
	"github.com/milk9111/rigidcore/collision"
	"github.com/milk9111/rigidcore/common"
	"github.com/milk9111/rigidcore/ecs"
)

// CollisionSystem runs the detector and the pair tracker once per step and
// publishes the resulting events to the world's collision event stream.
type CollisionSystem struct {
	detector Detector
	tracker  *collision.Tracker
	events   *ecs.Events[collision.Event]
	log      common.Logger
	world    *ecs.World
	last     []collision.Event
}

// NewCollisionSystem wires the tracker to w: despawns reach the tracker
// through a world hook and overlaps naming dead entities are dropped.
func NewCollisionSystem(w *ecs.World, detector Detector, log common.Logger) *CollisionSystem {
	if log == nil {
		log = common.NopLogger
	}
	cs := &CollisionSystem{
		detector: detector,
		tracker:  collision.NewTracker(collision.WithLogger(log), collision.WithAliveFilter(w.IsAlive)),
		events:   ecs.RegisterEvents[collision.Event](w),
		log:      log,
		world:    w,
	}
	w.OnDespawn(cs.tracker.Despawn)
	return cs
}

// Tracker exposes the active pair set for response and queries.
func (cs *CollisionSystem) Tracker() *collision.Tracker {
	if cs == nil {
		return nil
	}
	return cs.tracker
}

// Events returns the stream this system publishes to.
func (cs *CollisionSystem) Events() *ecs.Events[collision.Event] {
	if cs == nil {
		return nil
	}
	return cs.events
}

// LastBatch returns the events produced by the most recent Update.
func (cs *CollisionSystem) LastBatch() []collision.Event {
	if cs == nil {
		return nil
	}
	return cs.last
}

func (cs *CollisionSystem) Update(w *ecs.World) {
	if cs == nil || w == nil {
		return
	}
	if w != cs.world {
		cs.log.Warn("CollisionSystem: updated with a foreign world")
		return
	}

	var current []collision.Pair
	if cs.detector != nil {
		current = cs.detector.Overlaps(w)
	}

	cs.last = cs.tracker.Step(current)
	if len(cs.last) == 0 {
		return
	}
	cs.events.SendBatch(cs.last)
	cs.log.Debug("CollisionSystem: step", "tick", w.Tick(), "events", len(cs.last), "active", cs.tracker.Len())
}
