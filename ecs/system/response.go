package system

import (
	"github.com/milk9111/rigidcore/collision"
	"github.com/milk9111/rigidcore/common"
	"github.com/milk9111/rigidcore/ecs"
	"github.com/milk9111/rigidcore/ecs/component"
)

// ActivePairs is the view of the tracker the response stage reads.
type ActivePairs interface {
	ActivePairs() []collision.Pair
}

// ResponseSystem applies a restitution impulse along the line between the
// centres of every active pair that is still approaching. Only Dynamic
// bodies change velocity; a Static body acts as infinite mass and Sensor
// pairs are never resolved.
type ResponseSystem struct {
	pairs ActivePairs
	log   common.Logger
}

func NewResponseSystem(pairs ActivePairs, log common.Logger) *ResponseSystem {
	if log == nil {
		log = common.NopLogger
	}
	return &ResponseSystem{pairs: pairs, log: log}
}

type responseBody struct {
	kind     component.BodyKind
	material component.PhysicMaterial
	position common.Vec3
	velocity *component.Velocity
	invMass  float32
}

func (rs *ResponseSystem) Update(w *ecs.World) {
	if rs == nil || rs.pairs == nil || w == nil {
		return
	}

	for _, p := range rs.pairs.ActivePairs() {
		a, okA := rs.body(w, p.A)
		b, okB := rs.body(w, p.B)
		if !okA || !okB {
			continue
		}
		if !a.kind.ParticipatesInResponse(b.kind) {
			continue
		}
		rs.resolve(w, p, a, b)
	}
}

func (rs *ResponseSystem) body(w *ecs.World, e ecs.Entity) (responseBody, bool) {
	transform, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return responseBody{}, false
	}
	rb := responseBody{
		kind:     *ecs.GetOr(w, e, component.BodyKindComponent.Kind(), component.Dynamic),
		material: *ecs.GetOr(w, e, component.PhysicMaterialComponent.Kind(), component.DefaultPhysicMaterial()),
		position: transform.Position,
	}
	if v, ok := ecs.Get(w, e, component.VelocityComponent.Kind()); ok {
		rb.velocity = v
	}
	if rb.kind.RespondsToImpulses() && rb.velocity != nil {
		rb.invMass = 1 / mass(w, e, rb.material)
	}
	return rb, true
}

// mass is density times the collider volume. A body without a usable
// density or shape weighs 1.
func mass(w *ecs.World, e ecs.Entity, m component.PhysicMaterial) float32 {
	density := m.Density
	if !(density > 0) {
		density = component.DefaultPhysicMaterial().Density
	}
	volume := float32(1)
	if c, ok := ecs.Get(w, e, component.ColliderComponent.Kind()); ok && c.Shape != nil {
		if v := c.Shape.Volume(); v > 0 {
			volume = v
		}
	}
	return density * volume
}

func (rs *ResponseSystem) resolve(w *ecs.World, p collision.Pair, a, b responseBody) {
	invSum := a.invMass + b.invMass
	if invSum == 0 {
		return
	}
	normal, dist := common.Normalize(b.position.Sub(a.position))
	if dist == 0 {
		return
	}

	var va, vb common.Vec3
	if a.velocity != nil {
		va = a.velocity.Linear
	}
	if b.velocity != nil {
		vb = b.velocity.Linear
	}
	approach := vb.Sub(va).Dot(normal)
	if approach >= 0 {
		return
	}

	e := component.CombinedRestitution(a.material, b.material)
	j := -(1 + e) * approach / invSum

	if a.invMass > 0 {
		next := a.velocity.WithLinear(va.Sub(normal.Mul(j * a.invMass)))
		if err := ecs.Add(w, p.A, component.VelocityComponent.Kind(), &next); err != nil {
			rs.log.Error("ResponseSystem: set velocity", "entity", p.A, "err", err)
		}
	}
	if b.invMass > 0 {
		next := b.velocity.WithLinear(vb.Add(normal.Mul(j * b.invMass)))
		if err := ecs.Add(w, p.B, component.VelocityComponent.Kind(), &next); err != nil {
			rs.log.Error("ResponseSystem: set velocity", "entity", p.B, "err", err)
		}
	}
}
