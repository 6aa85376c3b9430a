package component

import (
	"errors"
	"fmt"

	"github.com/milk9111/rigidcore/common"
)

var ErrInvalidDensity = errors.New("component: invalid density")

// PhysicMaterial holds the properties the resolution stage reads.
type PhysicMaterial struct {
	// Restitution is how much a body bounces, typically in [0, 1].
	Restitution float32
	// Density must be > 0 on Dynamic bodies and is ignored on Static and
	// Sensor bodies.
	Density float32
}

const (
	// PerfectlyInelasticRestitution loses all kinetic energy on contact.
	PerfectlyInelasticRestitution float32 = 0
	// PerfectlyElasticRestitution keeps all kinetic energy on contact.
	PerfectlyElasticRestitution float32 = 1
)

// DefaultPhysicMaterial is used for entities without a PhysicMaterial.
func DefaultPhysicMaterial() PhysicMaterial {
	return PhysicMaterial{
		Restitution: PerfectlyInelasticRestitution,
		Density:     1,
	}
}

// Validate reports a non-positive density on a Dynamic body. Other kinds
// are not checked.
func (m PhysicMaterial) Validate(kind BodyKind) error {
	if kind != Dynamic {
		return nil
	}
	if !(m.Density > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidDensity, m.Density)
	}
	return nil
}

// CombinedRestitution is the restitution used for a pair: the bouncier of
// the two, clamped to [0, 1].
func CombinedRestitution(a, b PhysicMaterial) float32 {
	r := a.Restitution
	if b.Restitution > r {
		r = b.Restitution
	}
	return common.Clamp(r, PerfectlyInelasticRestitution, PerfectlyElasticRestitution)
}

var PhysicMaterialComponent = NewComponent[PhysicMaterial]()
