package component

import (
	"errors"
	"fmt"
	"math"

	"github.com/milk9111/rigidcore/common"
)

var ErrInvalidShape = errors.New("component: invalid shape")

type ShapeKind uint8

const (
	ShapeSphere ShapeKind = iota + 1
	ShapeCapsule
	ShapeCuboid
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapeCapsule:
		return "capsule"
	case ShapeCuboid:
		return "cuboid"
	default:
		return fmt.Sprintf("ShapeKind(%d)", uint8(k))
	}
}

// Shape is the geometric description of a body. It is one of Sphere,
// Capsule or Cuboid. Values are never validated on construction; the
// detector and integrator decide what to do with non-positive parameters.
type Shape interface {
	ShapeKind() ShapeKind
	// BoundingRadius is the radius of a sphere centred on the body that
	// encloses the shape.
	BoundingRadius() float32
	// Volume is used for mass. A cuboid with no depth is measured as an area.
	Volume() float32
	validate(planar bool) error
}

// Sphere is a sphere, or a circle in 2d.
type Sphere struct {
	Radius float32
}

// Capsule is a segment of length 2*HalfSegment along the local Y axis,
// swept by Radius.
type Capsule struct {
	HalfSegment float32
	Radius      float32
}

// Cuboid is a box given by its half extents. 2d consumers ignore Z.
type Cuboid struct {
	HalfExtents common.Vec3
}

func (Sphere) ShapeKind() ShapeKind  { return ShapeSphere }
func (Capsule) ShapeKind() ShapeKind { return ShapeCapsule }
func (Cuboid) ShapeKind() ShapeKind  { return ShapeCuboid }

func (s Sphere) BoundingRadius() float32  { return s.Radius }
func (c Capsule) BoundingRadius() float32 { return c.HalfSegment + c.Radius }
func (c Cuboid) BoundingRadius() float32  { return common.Length(c.HalfExtents) }

func (s Sphere) Volume() float32 {
	return 4.0 / 3.0 * math.Pi * s.Radius * s.Radius * s.Radius
}

func (c Capsule) Volume() float32 {
	r2 := c.Radius * c.Radius
	return math.Pi*r2*2*c.HalfSegment + 4.0/3.0*math.Pi*r2*c.Radius
}

func (c Cuboid) Volume() float32 {
	h := c.HalfExtents
	if h.Z() <= 0 {
		return 4 * h.X() * h.Y()
	}
	return 8 * h.X() * h.Y() * h.Z()
}

func (s Sphere) validate(bool) error {
	if !(s.Radius > 0) {
		return fmt.Errorf("%w: sphere radius %v", ErrInvalidShape, s.Radius)
	}
	return nil
}

func (c Capsule) validate(bool) error {
	if !(c.Radius > 0) || !(c.HalfSegment > 0) {
		return fmt.Errorf("%w: capsule half segment %v radius %v", ErrInvalidShape, c.HalfSegment, c.Radius)
	}
	return nil
}

func (c Cuboid) validate(planar bool) error {
	h := c.HalfExtents
	if !(h.X() > 0) || !(h.Y() > 0) || (!planar && !(h.Z() > 0)) {
		return fmt.Errorf("%w: cuboid half extents %v", ErrInvalidShape, h)
	}
	return nil
}

// ValidateShape checks that every parameter a 3d consumer reads is positive.
func ValidateShape(s Shape) error {
	if s == nil {
		return fmt.Errorf("%w: nil", ErrInvalidShape)
	}
	return s.validate(false)
}

// ValidatePlanarShape is ValidateShape for 2d consumers, which ignore the
// cuboid's Z extent.
func ValidatePlanarShape(s Shape) error {
	if s == nil {
		return fmt.Errorf("%w: nil", ErrInvalidShape)
	}
	return s.validate(true)
}

// Collider attaches a Shape to an entity. Entities without one take no part
// in detection. Replace the whole component to change the shape.
type Collider struct {
	Shape Shape
}

var ColliderComponent = NewComponent[Collider]()
