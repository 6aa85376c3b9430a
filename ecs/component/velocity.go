package component

import "github.com/milk9111/rigidcore/common"

// AxisAngle is an angular velocity: a rotation axis and a speed in
// radians per second. When Angle is zero the axis carries no meaning and
// may be any value, including zero.
type AxisAngle struct {
	Axis  common.Vec3
	Angle float32
}

func NewAxisAngle(axis common.Vec3, angle float32) AxisAngle {
	return AxisAngle{Axis: axis, Angle: angle}
}

// AxisAngleFromVector splits an angular velocity vector into direction and speed.
func AxisAngleFromVector(v common.Vec3) AxisAngle {
	axis, speed := common.Normalize(v)
	if speed == 0 {
		return AxisAngle{}
	}
	return AxisAngle{Axis: axis, Angle: speed}
}

// IsZero reports whether there is no rotation.
func (a AxisAngle) IsZero() bool {
	return common.NearZero(a.Angle)
}

// Vector returns axis*angle with the axis normalized. A zero rotation or a
// zero axis gives the zero vector.
func (a AxisAngle) Vector() common.Vec3 {
	if a.IsZero() {
		return common.Vec3{}
	}
	axis, l := common.Normalize(a.Axis)
	if l == 0 {
		return common.Vec3{}
	}
	return axis.Mul(a.Angle)
}

// Velocity is replaced as a whole by the integrator every step.
type Velocity struct {
	Linear  common.Vec3
	Angular AxisAngle
}

func NewVelocity(linear common.Vec3, angular AxisAngle) Velocity {
	return Velocity{Linear: linear, Angular: angular}
}

func ZeroVelocity() Velocity {
	return Velocity{}
}

// WithLinear returns a copy with the linear part replaced.
func (v Velocity) WithLinear(linear common.Vec3) Velocity {
	v.Linear = linear
	return v
}

// WithAngular returns a copy with the angular part replaced.
func (v Velocity) WithAngular(angular AxisAngle) Velocity {
	v.Angular = angular
	return v
}

var VelocityComponent = NewComponent[Velocity]()
