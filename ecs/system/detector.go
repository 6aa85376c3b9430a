package system

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/chewxy/math32"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/rigidcore/collision"
	"github.com/milk9111/rigidcore/common"
	"github.com/milk9111/rigidcore/ecs"
	"github.com/milk9111/rigidcore/ecs/component"
)

// Detector produces the set of entity pairs whose shapes overlap this step.
type Detector interface {
	Overlaps(w *ecs.World) []collision.Pair
}

// CPDetector finds overlaps with Chipmunk2D in the XY plane. Every entity
// with a Collider and a Transform gets a kinematic body that follows the
// Transform; Z positions and rotation about X or Y are ignored.
type CPDetector struct {
	space    *cp.Space
	entities map[ecs.Entity]*bodyInfo
	invalid  map[ecs.Entity]component.Shape
	log      common.Logger
}

type bodyInfo struct {
	body   *cp.Body
	shape  *cp.Shape
	source component.Shape
	kind   component.BodyKind
}

func NewCPDetector(log common.Logger) *CPDetector {
	if log == nil {
		log = common.NopLogger
	}
	return &CPDetector{
		space:    cp.NewSpace(),
		entities: make(map[ecs.Entity]*bodyInfo),
		invalid:  make(map[ecs.Entity]component.Shape),
		log:      log,
	}
}

// Overlaps syncs bodies with the world and returns each overlapping pair
// once, ordered.
func (d *CPDetector) Overlaps(w *ecs.World) []collision.Pair {
	if d == nil || w == nil {
		return nil
	}
	if d.space == nil {
		d.space = cp.NewSpace()
	}

	d.cleanupEntities(w)

	type candidate struct {
		entity ecs.Entity
		shape  *cp.Shape
		bb     cp.BB
		layer  component.CollisionLayer
	}
	var candidates []candidate

	for _, e := range w.Query(component.ColliderComponent.Kind(), component.TransformComponent.Kind()) {
		collider, ok := ecs.Get(w, e, component.ColliderComponent.Kind())
		if !ok {
			continue
		}
		transform, ok := ecs.Get(w, e, component.TransformComponent.Kind())
		if !ok {
			continue
		}

		info := d.syncEntity(w, e, collider.Shape)
		if info == nil {
			continue
		}

		pos := transform.Position
		info.body.SetPosition(cp.Vector{X: float64(pos.X()), Y: float64(pos.Y())})
		info.body.SetAngle(float64(planarAngle(transform.Orientation())))
		// the space is never stepped, so refresh the cached bounds and
		// vertices ShapesCollide reads
		bb := info.shape.CacheBB()

		layer := *ecs.GetOr(w, e, component.CollisionLayerComponent.Kind(), component.DefaultCollisionLayer)
		candidates = append(candidates, candidate{entity: e, shape: info.shape, bb: bb, layer: layer})
	}

	// sweep along X, then let Chipmunk decide on the survivors
	slices.SortFunc(candidates, func(a, b candidate) int { return cmp.Compare(a.bb.L, b.bb.L) })

	var out []collision.Pair
	for i := range candidates {
		a := candidates[i]
		for j := i + 1; j < len(candidates); j++ {
			b := candidates[j]
			if b.bb.L > a.bb.R {
				break
			}
			if !a.bb.Intersects(b.bb) || !a.layer.Collides(b.layer) {
				continue
			}
			if cp.ShapesCollide(a.shape, b.shape).Count > 0 {
				out = append(out, collision.NewPair(a.entity, b.entity))
			}
		}
	}

	slices.SortFunc(out, func(a, b collision.Pair) int {
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

// syncEntity returns the body for e, building or rebuilding it when the
// attached shape changed. Invalid shapes are skipped and reported once.
func (d *CPDetector) syncEntity(w *ecs.World, e ecs.Entity, shape component.Shape) *bodyInfo {
	if err := component.ValidatePlanarShape(shape); err != nil {
		if prev, seen := d.invalid[e]; !seen || prev != shape {
			d.log.Warn("CPDetector: skipping collider", "entity", e, "err", err)
			d.invalid[e] = shape
		}
		d.removeEntity(e)
		return nil
	}
	delete(d.invalid, e)

	kind := kindOf(w, e)
	info := d.entities[e]
	if info != nil && info.source == shape && info.kind == kind {
		return info
	}
	if info != nil {
		d.removeEntity(e)
	}

	info = d.createBodyInfo(e, shape, kind)
	if info == nil {
		d.log.Warn("CPDetector: unsupported shape type", "entity", e, "shape", fmt.Sprintf("%T", shape))
		return nil
	}
	d.entities[e] = info
	body := component.PhysicsBody{Body: info.body, Shape: info.shape, Source: shape}
	if err := ecs.Add(w, e, component.PhysicsBodyComponent.Kind(), &body); err != nil {
		d.log.Error("CPDetector: attach physics body", "entity", e, "err", err)
	}
	return info
}

func (d *CPDetector) createBodyInfo(e ecs.Entity, shape component.Shape, kind component.BodyKind) *bodyInfo {
	body := cp.NewKinematicBody()

	var cpShape *cp.Shape
	switch s := shape.(type) {
	case component.Sphere:
		cpShape = cp.NewCircle(body, float64(s.Radius), cp.Vector{})
	case component.Capsule:
		h := float64(s.HalfSegment)
		cpShape = cp.NewSegment(body, cp.Vector{X: 0, Y: -h}, cp.Vector{X: 0, Y: h}, float64(s.Radius))
	case component.Cuboid:
		cpShape = cp.NewBox(body, float64(2*s.HalfExtents.X()), float64(2*s.HalfExtents.Y()), 0)
	default:
		return nil
	}
	// overlap tests ignore the flag; it marks the attached PhysicsBody
	cpShape.SetSensor(kind == component.Sensor)
	cpShape.UserData = e

	d.space.AddBody(body)
	d.space.AddShape(cpShape)
	d.log.Debug("CPDetector: created body", "entity", e, "shape", shape.ShapeKind(), "kind", kind)

	return &bodyInfo{body: body, shape: cpShape, source: shape, kind: kind}
}

func (d *CPDetector) cleanupEntities(w *ecs.World) {
	for e := range d.entities {
		if w.IsAlive(e) && ecs.Has(w, e, component.ColliderComponent.Kind()) && ecs.Has(w, e, component.TransformComponent.Kind()) {
			continue
		}
		d.removeEntity(e)
		ecs.Remove(w, e, component.PhysicsBodyComponent.Kind())
	}
	for e := range d.invalid {
		if !w.IsAlive(e) {
			delete(d.invalid, e)
		}
	}
}

func (d *CPDetector) removeEntity(e ecs.Entity) {
	info, ok := d.entities[e]
	if !ok {
		return
	}
	if info.shape != nil {
		d.space.RemoveShape(info.shape)
	}
	if info.body != nil {
		d.space.RemoveBody(info.body)
	}
	delete(d.entities, e)
}

// planarAngle extracts the rotation about Z from an orientation.
func planarAngle(q common.Quat) float32 {
	x, y, z, w := q.V.X(), q.V.Y(), q.V.Z(), q.W
	return math32.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
}

func kindOf(w *ecs.World, e ecs.Entity) component.BodyKind {
	if k, ok := ecs.Get(w, e, component.BodyKindComponent.Kind()); ok {
		return *k
	}
	return component.Dynamic
}
