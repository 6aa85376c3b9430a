package system

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/rigidcore/common"
	"github.com/milk9111/rigidcore/ecs"
	"github.com/milk9111/rigidcore/ecs/component"
)

// DefaultTimeStep is used when IntegrateSystem.Dt is not positive.
const DefaultTimeStep float32 = 1.0 / 60.0

// IntegrateSystem advances Dynamic bodies with semi-implicit Euler: gravity
// first changes the velocity, then the new velocity moves the transform.
// Static and Sensor bodies are never written. Entities without a Velocity
// have nothing to integrate.
type IntegrateSystem struct {
	Gravity *component.GravityCell
	Dt      float32
	Log     common.Logger
}

func NewIntegrateSystem(gravity *component.GravityCell, dt float32, log common.Logger) *IntegrateSystem {
	if log == nil {
		log = common.NopLogger
	}
	return &IntegrateSystem{Gravity: gravity, Dt: dt, Log: log}
}

func (is *IntegrateSystem) Update(w *ecs.World) {
	if is == nil || w == nil {
		return
	}
	dt := is.Dt
	if !(dt > 0) {
		dt = DefaultTimeStep
	}
	g := is.Gravity.Get().Vector

	ecs.ForEach2(w, component.VelocityComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, v *component.Velocity, t *component.Transform) {
		kind := *ecs.GetOr(w, e, component.BodyKindComponent.Kind(), component.Dynamic)
		if !kind.Moves() {
			return
		}

		next := *v
		if kind.ReceivesForces() {
			scale := float32(1)
			if gs, ok := ecs.Get(w, e, component.GravityScaleComponent.Kind()); ok {
				scale = gs.Scale
			}
			next.Linear = v.Linear.Add(g.Mul(scale * dt))
		}

		pose := component.Transform{
			Position: t.Position.Add(next.Linear.Mul(dt)),
			Rotation: integrateRotation(t.Orientation(), next.Angular, dt),
		}

		is.store(w, e, next, pose)
	})
}

// store replaces velocity and pose as whole values, never field by field.
func (is *IntegrateSystem) store(w *ecs.World, e ecs.Entity, v component.Velocity, pose component.Transform) {
	log := is.Log
	if log == nil {
		log = common.NopLogger
	}
	if err := ecs.Add(w, e, component.VelocityComponent.Kind(), &v); err != nil {
		log.Error("IntegrateSystem: set velocity", "entity", e, "err", err)
	}
	if err := ecs.Add(w, e, component.TransformComponent.Kind(), &pose); err != nil {
		log.Error("IntegrateSystem: set transform", "entity", e, "err", err)
	}
}

func integrateRotation(q common.Quat, angular component.AxisAngle, dt float32) common.Quat {
	if angular.IsZero() {
		return q
	}
	axis, l := common.Normalize(angular.Axis)
	if l == 0 {
		return q
	}
	delta := mgl32.QuatRotate(angular.Angle*dt, axis)
	return delta.Mul(q).Normalize()
}
