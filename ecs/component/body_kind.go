package component

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownBodyKind = errors.New("component: unknown body kind")

// BodyKind decides whether a body receives forces and takes part in
// collision response. The zero value is Dynamic; an entity without a
// BodyKind is Dynamic too.
type BodyKind uint8

const (
	// Dynamic bodies are moved by forces and impulses.
	Dynamic BodyKind = iota
	// Static bodies never move but push Dynamic bodies back, like a
	// Dynamic body with infinite mass and zero velocity.
	Static
	// Sensor bodies are detected but neither move nor respond. Other
	// bodies pass through them.
	Sensor
)

func (k BodyKind) String() string {
	switch k {
	case Dynamic:
		return "dynamic"
	case Static:
		return "static"
	case Sensor:
		return "sensor"
	default:
		return fmt.Sprintf("BodyKind(%d)", uint8(k))
	}
}

// ParseBodyKind accepts the names returned by String, case-insensitively.
// The empty string is Dynamic.
func ParseBodyKind(s string) (BodyKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dynamic":
		return Dynamic, nil
	case "static":
		return Static, nil
	case "sensor":
		return Sensor, nil
	default:
		return Dynamic, fmt.Errorf("%w: %q", ErrUnknownBodyKind, s)
	}
}

// ReceivesForces reports whether gravity and other forces apply.
func (k BodyKind) ReceivesForces() bool { return k == Dynamic }

// Moves reports whether the integrator advances the body's position.
func (k BodyKind) Moves() bool { return k == Dynamic }

// RespondsToImpulses reports whether collision response changes the body's velocity.
func (k BodyKind) RespondsToImpulses() bool { return k == Dynamic }

// ParticipatesInResponse reports whether a colliding pair of these kinds is
// resolved at all. Sensors never are and two Static bodies have nothing to
// resolve.
func (k BodyKind) ParticipatesInResponse(other BodyKind) bool {
	if k == Sensor || other == Sensor {
		return false
	}
	return k == Dynamic || other == Dynamic
}

var BodyKindComponent = NewComponent[BodyKind]()
