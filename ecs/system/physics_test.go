package system

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/rigidcore/collision"
	"github.com/milk9111/rigidcore/common"
	"github.com/milk9111/rigidcore/ecs"
	"github.com/milk9111/rigidcore/ecs/component"
)

type body struct {
	pos      common.Vec3
	kind     component.BodyKind
	shape    component.Shape
	velocity *component.Velocity
	material *component.PhysicMaterial
}

func spawn(t *testing.T, w *ecs.World, b body) ecs.Entity {
	t.Helper()
	e := w.CreateEntity()
	tr := component.NewTransform(b.pos)
	must(t, ecs.Add(w, e, component.TransformComponent.Kind(), &tr))
	kind := b.kind
	must(t, ecs.Add(w, e, component.BodyKindComponent.Kind(), &kind))
	if b.shape != nil {
		must(t, ecs.Add(w, e, component.ColliderComponent.Kind(), &component.Collider{Shape: b.shape}))
	}
	if b.velocity != nil {
		v := *b.velocity
		must(t, ecs.Add(w, e, component.VelocityComponent.Kind(), &v))
	}
	if b.material != nil {
		m := *b.material
		must(t, ecs.Add(w, e, component.PhysicMaterialComponent.Kind(), &m))
	}
	return e
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func velocity(x, y, z float32) *component.Velocity {
	v := component.NewVelocity(common.Vec3{x, y, z}, component.AxisAngle{})
	return &v
}

func near(a, b float32) bool {
	return math32.Abs(a-b) < 1e-4
}

func TestIntegrateOnlyMovesDynamicBodies(t *testing.T) {
	cases := []struct {
		name    string
		kind    component.BodyKind
		wantPos common.Vec3
		wantVel common.Vec3
	}{
		{"dynamic", component.Dynamic, common.Vec3{1, -2.5 + 0.5, 0}, common.Vec3{2, -5 + 1, 0}},
		{"static", component.Static, common.Vec3{0, 0, 0}, common.Vec3{2, 1, 0}},
		{"sensor", component.Sensor, common.Vec3{0, 0, 0}, common.Vec3{2, 1, 0}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := ecs.NewWorld()
			gravity := component.NewGravityCell(component.Gravity{Vector: common.Vec3{0, -10, 0}})
			w.AddSystem(NewIntegrateSystem(gravity, 0.5, nil))
			e := spawn(t, w, body{kind: c.kind, velocity: velocity(2, 1, 0)})

			w.Update()

			tr, _ := ecs.Get(w, e, component.TransformComponent.Kind())
			v, _ := ecs.Get(w, e, component.VelocityComponent.Kind())
			if tr.Position != c.wantPos {
				t.Fatalf("position = %v, want %v", tr.Position, c.wantPos)
			}
			if v.Linear != c.wantVel {
				t.Fatalf("velocity = %v, want %v", v.Linear, c.wantVel)
			}
		})
	}
}

func TestIntegrateReadsGravityEachStep(t *testing.T) {
	w := ecs.NewWorld()
	gravity := component.NewGravityCell(component.Gravity{})
	w.AddSystem(NewIntegrateSystem(gravity, 1, nil))
	e := spawn(t, w, body{velocity: velocity(0, 0, 0)})

	w.Update()
	gravity.Set(component.Gravity{Vector: common.Vec3{0, 0, -1}})
	w.Update()

	v, _ := ecs.Get(w, e, component.VelocityComponent.Kind())
	if v.Linear != (common.Vec3{0, 0, -1}) {
		t.Fatalf("velocity = %v, want the new gravity applied once", v.Linear)
	}
}

func TestIntegrateGravityScaleAndMissingVelocity(t *testing.T) {
	w := ecs.NewWorld()
	w.AddSystem(NewIntegrateSystem(component.NewGravityCell(component.DefaultGravity), 1, nil))

	floating := spawn(t, w, body{velocity: velocity(0, 0, 0)})
	must(t, ecs.Add(w, floating, component.GravityScaleComponent.Kind(), &component.GravityScale{Scale: 0}))
	still := spawn(t, w, body{pos: common.Vec3{3, 3, 3}})

	w.Update()

	if v, _ := ecs.Get(w, floating, component.VelocityComponent.Kind()); v.Linear != (common.Vec3{}) {
		t.Fatalf("zero gravity scale still accelerated: %v", v.Linear)
	}
	if ecs.Has(w, still, component.VelocityComponent.Kind()) {
		t.Fatal("integrator must not invent a velocity")
	}
	if tr, _ := ecs.Get(w, still, component.TransformComponent.Kind()); tr.Position != (common.Vec3{3, 3, 3}) {
		t.Fatalf("body without velocity moved to %v", tr.Position)
	}
}

func TestIntegrateLogsFailedWrites(t *testing.T) {
	var buf bytes.Buffer
	w := ecs.NewWorld()
	is := NewIntegrateSystem(component.NewGravityCell(component.DefaultGravity), 1, common.NewTextLogger(&buf, "debug"))

	e := spawn(t, w, body{velocity: velocity(1, 0, 0)})
	w.DestroyEntity(e)
	is.store(w, e, component.ZeroVelocity(), component.NewTransform(common.Vec3{}))

	out := buf.String()
	if !strings.Contains(out, "IntegrateSystem: set velocity") || !strings.Contains(out, "IntegrateSystem: set transform") {
		t.Fatalf("expected both failed writes logged, got %q", out)
	}
}

func TestIntegrateRotation(t *testing.T) {
	w := ecs.NewWorld()
	w.AddSystem(NewIntegrateSystem(component.NewGravityCell(component.Gravity{}), 1, nil))
	v := component.NewVelocity(common.Vec3{}, component.NewAxisAngle(common.Vec3{0, 0, 2}, math32.Pi/2))
	e := spawn(t, w, body{velocity: &v})

	w.Update()

	tr, _ := ecs.Get(w, e, component.TransformComponent.Kind())
	want := mgl32.QuatRotate(math32.Pi/2, common.Vec3{0, 0, 1})
	if !tr.Rotation.ApproxEqualThreshold(want, 1e-5) {
		t.Fatalf("rotation = %v, want %v", tr.Rotation, want)
	}
	if got := planarAngle(tr.Rotation); !near(got, math32.Pi/2) {
		t.Fatalf("planar angle = %v", got)
	}
}

type fixedPairs []collision.Pair

func (f fixedPairs) ActivePairs() []collision.Pair { return f }

func TestResponse(t *testing.T) {
	elastic := &component.PhysicMaterial{Restitution: component.PerfectlyElasticRestitution, Density: 1}
	sphere := component.Sphere{Radius: 1}

	t.Run("dynamic_bounces_off_static", func(t *testing.T) {
		w := ecs.NewWorld()
		a := spawn(t, w, body{shape: sphere, velocity: velocity(2, 0, 0), material: elastic})
		b := spawn(t, w, body{pos: common.Vec3{1.5, 0, 0}, kind: component.Static, shape: sphere, velocity: velocity(0, 0, 0)})
		NewResponseSystem(fixedPairs{collision.NewPair(a, b)}, nil).Update(w)

		va, _ := ecs.Get(w, a, component.VelocityComponent.Kind())
		vb, _ := ecs.Get(w, b, component.VelocityComponent.Kind())
		if !near(va.Linear.X(), -2) {
			t.Fatalf("dynamic velocity = %v, want -2 on X", va.Linear)
		}
		if vb.Linear != (common.Vec3{}) {
			t.Fatalf("static body velocity changed to %v", vb.Linear)
		}
	})

	t.Run("equal_masses_swap", func(t *testing.T) {
		w := ecs.NewWorld()
		a := spawn(t, w, body{shape: sphere, velocity: velocity(1, 0, 0), material: elastic})
		b := spawn(t, w, body{pos: common.Vec3{1.5, 0, 0}, shape: sphere, velocity: velocity(-1, 0, 0), material: elastic})
		NewResponseSystem(fixedPairs{collision.NewPair(a, b)}, nil).Update(w)

		va, _ := ecs.Get(w, a, component.VelocityComponent.Kind())
		vb, _ := ecs.Get(w, b, component.VelocityComponent.Kind())
		if !near(va.Linear.X(), -1) || !near(vb.Linear.X(), 1) {
			t.Fatalf("velocities = %v, %v", va.Linear, vb.Linear)
		}
	})

	t.Run("inelastic_stops", func(t *testing.T) {
		w := ecs.NewWorld()
		a := spawn(t, w, body{shape: sphere, velocity: velocity(3, 0, 0)})
		b := spawn(t, w, body{pos: common.Vec3{1.5, 0, 0}, kind: component.Static, shape: sphere})
		NewResponseSystem(fixedPairs{collision.NewPair(a, b)}, nil).Update(w)

		va, _ := ecs.Get(w, a, component.VelocityComponent.Kind())
		if !near(va.Linear.X(), 0) {
			t.Fatalf("velocity = %v, want 0 on X", va.Linear)
		}
	})

	skipped := []struct {
		name   string
		kindA  component.BodyKind
		kindB  component.BodyKind
		velA   *component.Velocity
		posB   common.Vec3
		expect common.Vec3
	}{
		{"sensor", component.Dynamic, component.Sensor, velocity(2, 0, 0), common.Vec3{1.5, 0, 0}, common.Vec3{2, 0, 0}},
		{"static_static", component.Static, component.Static, velocity(2, 0, 0), common.Vec3{1.5, 0, 0}, common.Vec3{2, 0, 0}},
		{"separating", component.Dynamic, component.Static, velocity(-2, 0, 0), common.Vec3{1.5, 0, 0}, common.Vec3{-2, 0, 0}},
	}
	for _, c := range skipped {
		t.Run("skips_"+c.name, func(t *testing.T) {
			w := ecs.NewWorld()
			a := spawn(t, w, body{kind: c.kindA, shape: sphere, velocity: c.velA, material: elastic})
			b := spawn(t, w, body{pos: c.posB, kind: c.kindB, shape: sphere, velocity: velocity(0, 0, 0)})
			NewResponseSystem(fixedPairs{collision.NewPair(a, b)}, nil).Update(w)

			va, _ := ecs.Get(w, a, component.VelocityComponent.Kind())
			if va.Linear != c.expect {
				t.Fatalf("velocity = %v, want %v", va.Linear, c.expect)
			}
		})
	}
}

func TestCPDetectorOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b component.Shape
		posB common.Vec3
		want bool
	}{
		{"spheres_overlap", component.Sphere{Radius: 1}, component.Sphere{Radius: 1}, common.Vec3{1.5, 0, 0}, true},
		{"spheres_apart", component.Sphere{Radius: 1}, component.Sphere{Radius: 1}, common.Vec3{3, 0, 0}, false},
		{"z_is_ignored", component.Sphere{Radius: 1}, component.Sphere{Radius: 1}, common.Vec3{1.5, 0, 50}, true},
		{"capsule_cuboid", component.Capsule{HalfSegment: 2, Radius: 0.5}, component.Cuboid{HalfExtents: common.Vec3{1, 1, 1}}, common.Vec3{0, 2.5, 0}, true},
		{"capsule_end_clear", component.Capsule{HalfSegment: 2, Radius: 0.5}, component.Cuboid{HalfExtents: common.Vec3{1, 1, 1}}, common.Vec3{0, 4, 0}, false},
		{"flat_cuboid", component.Cuboid{HalfExtents: common.Vec3{1, 1, 0}}, component.Sphere{Radius: 1}, common.Vec3{1.5, 0, 0}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := ecs.NewWorld()
			d := NewCPDetector(nil)
			a := spawn(t, w, body{shape: c.a})
			b := spawn(t, w, body{pos: c.posB, shape: c.b})

			got := d.Overlaps(w)
			if c.want {
				if len(got) != 1 || got[0] != collision.NewPair(a, b) {
					t.Fatalf("expected pair (%v, %v), got %v", a, b, got)
				}
			} else if len(got) != 0 {
				t.Fatalf("expected no overlap, got %v", got)
			}
			if !ecs.Has(w, a, component.PhysicsBodyComponent.Kind()) {
				t.Fatal("detector should attach a physics body")
			}
		})
	}
}

func TestCPDetectorFollowsWorld(t *testing.T) {
	w := ecs.NewWorld()
	d := NewCPDetector(nil)
	a := spawn(t, w, body{shape: component.Sphere{Radius: 1}})
	b := spawn(t, w, body{pos: common.Vec3{5, 0, 0}, shape: component.Sphere{Radius: 1}})
	bad := spawn(t, w, body{shape: component.Sphere{Radius: 0}})
	noShape := spawn(t, w, body{})

	if got := d.Overlaps(w); len(got) != 0 {
		t.Fatalf("expected nothing, got %v", got)
	}
	if ecs.Has(w, bad, component.PhysicsBodyComponent.Kind()) || ecs.Has(w, noShape, component.PhysicsBodyComponent.Kind()) {
		t.Fatal("invalid or missing shapes must not get a body")
	}

	moved := component.NewTransform(common.Vec3{1, 0, 0})
	must(t, ecs.Add(w, b, component.TransformComponent.Kind(), &moved))
	if got := d.Overlaps(w); len(got) != 1 || got[0] != collision.NewPair(a, b) {
		t.Fatalf("moved body should overlap, got %v", got)
	}

	grown := component.Collider{Shape: component.Sphere{Radius: 3}}
	must(t, ecs.Add(w, bad, component.ColliderComponent.Kind(), &grown))
	if got := d.Overlaps(w); len(got) != 3 {
		t.Fatalf("replaced shape should join detection, got %v", got)
	}

	w.DestroyEntity(b)
	got := d.Overlaps(w)
	for _, p := range got {
		if p.Involves(b) {
			t.Fatalf("destroyed entity still detected: %v", got)
		}
	}
	if _, ok := d.entities[b]; ok {
		t.Fatal("destroyed entity kept its body")
	}
}

func TestCPDetectorFollowsRotation(t *testing.T) {
	w := ecs.NewWorld()
	d := NewCPDetector(nil)
	bar := spawn(t, w, body{shape: component.Cuboid{HalfExtents: common.Vec3{1, 0.1, 1}}})
	ball := spawn(t, w, body{pos: common.Vec3{0, 0.8, 0}, shape: component.Sphere{Radius: 0.2}})

	if got := d.Overlaps(w); len(got) != 0 {
		t.Fatalf("flat bar should miss the ball, got %v", got)
	}

	turned := component.Transform{Rotation: mgl32.QuatRotate(math32.Pi/2, common.Vec3{0, 0, 1})}
	must(t, ecs.Add(w, bar, component.TransformComponent.Kind(), &turned))
	if got := d.Overlaps(w); len(got) != 1 || got[0] != collision.NewPair(bar, ball) {
		t.Fatalf("upright bar should reach the ball, got %v", got)
	}
}

func TestCPDetectorRebuildsOnKindChange(t *testing.T) {
	w := ecs.NewWorld()
	d := NewCPDetector(nil)
	e := spawn(t, w, body{shape: component.Sphere{Radius: 1}})
	d.Overlaps(w)

	pb, ok := ecs.Get(w, e, component.PhysicsBodyComponent.Kind())
	if !ok || pb.Shape.Sensor() {
		t.Fatal("dynamic collider should have a solid shape")
	}
	first := pb.Shape

	sensor := component.Sensor
	must(t, ecs.Add(w, e, component.BodyKindComponent.Kind(), &sensor))
	d.Overlaps(w)

	pb, _ = ecs.Get(w, e, component.PhysicsBodyComponent.Kind())
	if pb.Shape == first || !pb.Shape.Sensor() {
		t.Fatal("kind change should rebuild the shape as a sensor")
	}
}

func TestCPDetectorCollisionLayers(t *testing.T) {
	w := ecs.NewWorld()
	d := NewCPDetector(nil)
	a := spawn(t, w, body{shape: component.Sphere{Radius: 1}})
	b := spawn(t, w, body{pos: common.Vec3{1, 0, 0}, shape: component.Sphere{Radius: 1}})
	c := spawn(t, w, body{pos: common.Vec3{-1, 0, 0}, shape: component.Sphere{Radius: 1}})

	must(t, ecs.Add(w, a, component.CollisionLayerComponent.Kind(), &component.CollisionLayer{Category: 2, Mask: 2}))
	must(t, ecs.Add(w, b, component.CollisionLayerComponent.Kind(), &component.CollisionLayer{Category: 2, Mask: 2}))

	got := d.Overlaps(w)
	if len(got) != 1 || got[0] != collision.NewPair(a, b) {
		t.Fatalf("only the layer-2 pair should remain, got %v (c=%v)", got, c)
	}
}

func TestPhysicsScheduleEvents(t *testing.T) {
	w := ecs.NewWorld()
	p := NewPhysicsSchedule(w, PhysicsConfig{Gravity: component.NewGravityCell(component.Gravity{}), Dt: 1})
	reader := p.Collision.Events().NewReader()

	a := spawn(t, w, body{shape: component.Sphere{Radius: 1}, velocity: velocity(0, 0, 0)})
	b := spawn(t, w, body{pos: common.Vec3{1.5, 0, 0}, kind: component.Static, shape: component.Sphere{Radius: 1}})
	c := spawn(t, w, body{pos: common.Vec3{0, 1.5, 0}, kind: component.Sensor, shape: component.Sphere{Radius: 1}})

	w.Update()
	got := reader.Read()
	want := []collision.Event{collision.StartedEvent(a, b), collision.StartedEvent(a, c)}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("step 1 events = %v, want %v", got, want)
	}

	w.Update()
	if got := reader.Read(); len(got) != 0 {
		t.Fatalf("persisting contacts must be silent, got %v", got)
	}

	w.DestroyEntity(b)
	w.Update()
	got = reader.Read()
	if len(got) != 1 || got[0] != collision.StoppedEvent(a, b) {
		t.Fatalf("despawn should stop exactly one pair, got %v", got)
	}
	if p.Collision.Tracker().Len() != 1 {
		t.Fatalf("expected the sensor contact to remain, got %v", p.Collision.Tracker().ActivePairs())
	}
}

func TestScriptListener(t *testing.T) {
	const src = `
if is_undefined(state.started) {
	state.started = 0
	state.stopped = 0
}
if event.kind == "started" {
	state.started += 1
	state.last_kind = kind_of(event.b)
	state.alive = is_alive(event.a)
} else {
	state.stopped += 1
}
log("saw", event.kind)
`
	w := ecs.NewWorld()
	a := spawn(t, w, body{})
	b := spawn(t, w, body{kind: component.Static})
	sl, err := NewScriptListener(w, "test", []byte(src), nil)
	if err != nil {
		t.Fatal(err)
	}
	w.AddSystem(sl)

	events := ecs.RegisterEvents[collision.Event](w)
	events.SendBatch([]collision.Event{collision.StartedEvent(a, b), collision.StoppedEvent(a, b)})
	w.Update()
	events.Send(collision.StartedEvent(a, b))
	w.Update()

	state := sl.State()
	if state["started"] != 2 || state["stopped"] != 1 {
		t.Fatalf("state = %v", state)
	}
	if state["last_kind"] != "static" || state["alive"] != true {
		t.Fatalf("helpers returned %v", state)
	}
	if runs, failures := sl.Runs(); runs != 3 || failures != 0 {
		t.Fatalf("runs = %d failures = %d", runs, failures)
	}

	if err := sl.Reload([]byte("state.x = ")); err == nil {
		t.Fatal("broken script should fail to compile")
	}

	broken, err := NewScriptListener(w, "broken", []byte(`x := 1 / state.missing`), nil)
	if err != nil {
		t.Fatal(err)
	}
	w.AddSystem(broken)
	events.Send(collision.StoppedEvent(a, b))
	w.Update()
	if _, failures := broken.Runs(); failures == 0 {
		t.Fatal("runtime errors should be counted, not propagated")
	}
}
