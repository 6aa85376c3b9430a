package system

import (
	"github.com/milk9111/rigidcore/common"
	"github.com/milk9111/rigidcore/ecs"
	"github.com/milk9111/rigidcore/ecs/component"
)

// PhysicsConfig selects the collaborators of a physics schedule. Nil
// fields get defaults: a CPDetector, DefaultGravity and DefaultTimeStep.
type PhysicsConfig struct {
	Detector Detector
	Gravity  *component.GravityCell
	Dt       float32
	Log      common.Logger
}

// Physics holds the systems of one physics schedule so callers can reach
// the tracker and add listeners after construction.
type Physics struct {
	Collision *CollisionSystem
	Response  *ResponseSystem
	Integrate *IntegrateSystem
	Gravity   *component.GravityCell
}

// NewPhysicsSchedule registers detection, tracking, response and
// integration on w, in that order. Systems added to w afterwards run after
// integration and see the same step's collision events.
func NewPhysicsSchedule(w *ecs.World, cfg PhysicsConfig) *Physics {
	if cfg.Log == nil {
		cfg.Log = common.NopLogger
	}
	if cfg.Detector == nil {
		cfg.Detector = NewCPDetector(cfg.Log)
	}
	if cfg.Gravity == nil {
		cfg.Gravity = component.NewGravityCell(component.DefaultGravity)
	}

	p := &Physics{Gravity: cfg.Gravity}
	p.Collision = NewCollisionSystem(w, cfg.Detector, cfg.Log)
	p.Response = NewResponseSystem(p.Collision.Tracker(), cfg.Log)
	p.Integrate = NewIntegrateSystem(cfg.Gravity, cfg.Dt, cfg.Log)

	w.AddSystem(p.Collision)
	w.AddSystem(p.Response)
	w.AddSystem(p.Integrate)
	return p
}
