package prefabs

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/rigidcore/common"
	"github.com/milk9111/rigidcore/ecs"
	"github.com/milk9111/rigidcore/ecs/component"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownShape     = errors.New("prefabs: unknown shape")
	ErrUnknownComponent = errors.New("prefabs: unknown component")
)

// BodySpec is a body prefab: a name and its components keyed by name.
type BodySpec struct {
	Name       string         `yaml:"name"`
	Components map[string]any `yaml:"components"`
}

func LoadBodySpec(filename string) (BodySpec, error) {
	return LoadSpec[BodySpec](filename)
}

func DecodeComponentSpec[T any](raw any) (T, error) {
	var zero T
	if raw == nil {
		return zero, nil
	}
	b, err := yaml.Marshal(raw)
	if err != nil {
		return zero, err
	}
	var out T
	if err := yaml.Unmarshal(b, &out); err != nil {
		return zero, err
	}
	return out, nil
}

// BuildBody creates an entity carrying the spec's components. Absent
// components keep their defaults: Dynamic kind, default material, identity
// transform at the origin. On error nothing is left in the world.
func BuildBody(w *ecs.World, spec BodySpec) (ecs.Entity, error) {
	e := w.CreateEntity()
	if err := applyComponents(w, e, spec); err != nil {
		w.DestroyEntity(e)
		return 0, fmt.Errorf("prefabs: build %s: %w", spec.Name, err)
	}
	return e, nil
}

func applyComponents(w *ecs.World, e ecs.Entity, spec BodySpec) error {
	kind := component.Dynamic
	if raw, ok := spec.Components["body_kind"]; ok {
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("body_kind: %w: %v", component.ErrUnknownBodyKind, raw)
		}
		k, err := component.ParseBodyKind(s)
		if err != nil {
			return err
		}
		kind = k
	}
	if err := ecs.Add(w, e, component.BodyKindComponent.Kind(), &kind); err != nil {
		return err
	}

	transform := component.NewTransform(common.Vec3{})
	if err := ecs.Add(w, e, component.TransformComponent.Kind(), &transform); err != nil {
		return err
	}

	names := make([]string, 0, len(spec.Components))
	for name := range spec.Components {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		raw := spec.Components[name]
		var err error
		switch name {
		case "body_kind":
			continue
		case "collider":
			err = addCollider(w, e, raw)
		case "material":
			err = addMaterial(w, e, raw, kind)
		case "velocity":
			err = addVelocity(w, e, raw)
		case "transform":
			err = addTransform(w, e, raw)
		case "gravity_scale":
			err = addGravityScale(w, e, raw)
		case "collision_layer":
			err = addCollisionLayer(w, e, raw)
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownComponent, name)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// ShapeFromSpec converts a collider spec. Parameters are not validated.
func ShapeFromSpec(spec ColliderComponentSpec) (component.Shape, error) {
	switch strings.ToLower(strings.TrimSpace(spec.Shape)) {
	case "sphere", "ball", "circle":
		return component.Sphere{Radius: spec.Radius}, nil
	case "capsule":
		return component.Capsule{HalfSegment: spec.HalfSegment, Radius: spec.Radius}, nil
	case "cuboid", "box":
		return component.Cuboid{HalfExtents: vec3(spec.HalfExtents)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, spec.Shape)
	}
}

func addCollider(w *ecs.World, e ecs.Entity, raw any) error {
	spec, err := DecodeComponentSpec[ColliderComponentSpec](raw)
	if err != nil {
		return err
	}
	shape, err := ShapeFromSpec(spec)
	if err != nil {
		return err
	}
	return ecs.Add(w, e, component.ColliderComponent.Kind(), &component.Collider{Shape: shape})
}

func addMaterial(w *ecs.World, e ecs.Entity, raw any, kind component.BodyKind) error {
	spec, err := DecodeComponentSpec[MaterialComponentSpec](raw)
	if err != nil {
		return err
	}
	m := component.DefaultPhysicMaterial()
	m.Restitution = spec.Restitution
	if spec.Density != nil {
		m.Density = *spec.Density
	}
	if err := m.Validate(kind); err != nil {
		return err
	}
	return ecs.Add(w, e, component.PhysicMaterialComponent.Kind(), &m)
}

func addVelocity(w *ecs.World, e ecs.Entity, raw any) error {
	spec, err := DecodeComponentSpec[VelocityComponentSpec](raw)
	if err != nil {
		return err
	}
	v := component.NewVelocity(vec3(spec.Linear), component.AxisAngleFromVector(vec3(spec.Angular)))
	return ecs.Add(w, e, component.VelocityComponent.Kind(), &v)
}

func addTransform(w *ecs.World, e ecs.Entity, raw any) error {
	spec, err := DecodeComponentSpec[TransformComponentSpec](raw)
	if err != nil {
		return err
	}
	t := component.NewTransform(vec3(spec.Position))
	if rot := component.AxisAngleFromVector(vec3(spec.Rotation)); !rot.IsZero() {
		t.Rotation = mgl32.QuatRotate(rot.Angle, rot.Axis)
	}
	return ecs.Add(w, e, component.TransformComponent.Kind(), &t)
}

func addGravityScale(w *ecs.World, e ecs.Entity, raw any) error {
	spec, err := DecodeComponentSpec[GravityScaleComponentSpec](raw)
	if err != nil {
		return err
	}
	return ecs.Add(w, e, component.GravityScaleComponent.Kind(), &component.GravityScale{Scale: spec.Scale})
}

func addCollisionLayer(w *ecs.World, e ecs.Entity, raw any) error {
	spec, err := DecodeComponentSpec[CollisionLayerComponentSpec](raw)
	if err != nil {
		return err
	}
	return ecs.Add(w, e, component.CollisionLayerComponent.Kind(), &component.CollisionLayer{Category: spec.Category, Mask: spec.Mask})
}

// BuildScene loads every prefab the scene names and places it. Prefabs are
// loaded once each. The first failure stops the build; bodies built so far
// stay in the world and are returned.
func BuildScene(w *ecs.World, scene SceneSpec) ([]ecs.Entity, error) {
	cache := make(map[string]BodySpec)
	out := make([]ecs.Entity, 0, len(scene.Bodies))
	for i, placed := range scene.Bodies {
		spec, ok := cache[placed.Prefab]
		if !ok {
			var err error
			spec, err = LoadBodySpec(placed.Prefab)
			if err != nil {
				return out, fmt.Errorf("prefabs: scene %s body %d: %w", scene.Name, i, err)
			}
			cache[placed.Prefab] = spec
		}
		e, err := BuildBody(w, spec)
		if err != nil {
			return out, fmt.Errorf("prefabs: scene %s body %d: %w", scene.Name, i, err)
		}
		if placed.Position != nil {
			moved := *ecs.GetOr(w, e, component.TransformComponent.Kind(), component.NewTransform(common.Vec3{}))
			moved.Position = vec3(*placed.Position)
			if err := ecs.Add(w, e, component.TransformComponent.Kind(), &moved); err != nil {
				return out, fmt.Errorf("prefabs: scene %s body %d: place: %w", scene.Name, i, err)
			}
		}
		out = append(out, e)
	}
	return out, nil
}
