package component

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/rigidcore/common"
)

// Transform is the body pose the integrator writes and the detector reads.
type Transform struct {
	Position common.Vec3
	Rotation common.Quat
}

func NewTransform(position common.Vec3) Transform {
	return Transform{Position: position, Rotation: mgl32.QuatIdent()}
}

// Orientation returns Rotation, or identity when it was left zero.
func (t Transform) Orientation() common.Quat {
	if t.Rotation.Len() == 0 {
		return mgl32.QuatIdent()
	}
	return t.Rotation
}

var TransformComponent = NewComponent[Transform]()
