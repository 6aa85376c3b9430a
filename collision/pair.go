// Package collision tracks which entity pairs are in contact and reports
// each start and end of a contact exactly once.
package collision

import (
	"fmt"

	"github.com/milk9111/rigidcore/ecs"
)

// Pair is an unordered pair of entities. NewPair stores the lower entity
// first so (a, b) and (b, a) compare equal and can key a map.
type Pair struct {
	A ecs.Entity
	B ecs.Entity
}

func NewPair(a, b ecs.Entity) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Valid is false for self pairs.
func (p Pair) Valid() bool {
	return p.A != p.B
}

// Canonical returns p with its entities ordered.
func (p Pair) Canonical() Pair {
	return NewPair(p.A, p.B)
}

// Involves reports whether e is one of the pair.
func (p Pair) Involves(e ecs.Entity) bool {
	return p.A == e || p.B == e
}

// Other returns the partner of e, or false if e is not in the pair.
func (p Pair) Other(e ecs.Entity) (ecs.Entity, bool) {
	switch e {
	case p.A:
		return p.B, true
	case p.B:
		return p.A, true
	default:
		return 0, false
	}
}

func (p Pair) String() string {
	return fmt.Sprintf("(%s, %s)", p.A, p.B)
}

// Less orders pairs by A then B.
func (p Pair) Less(o Pair) bool {
	if p.A != o.A {
		return p.A < o.A
	}
	return p.B < o.B
}
