package component

import (
	"sync/atomic"

	"github.com/milk9111/rigidcore/common"
)

// Gravity is the world acceleration applied to bodies that receive forces.
type Gravity struct {
	Vector common.Vec3
}

// DefaultGravity pulls towards -Y at 9.81 units/s².
var DefaultGravity = Gravity{Vector: common.Vec3{0, -9.81, 0}}

type gravitySnapshot struct {
	value   Gravity
	version uint64
}

// GravityCell holds the current gravity shared by the host and the
// integrator. Writes are last-write-wins and visible to the next Load;
// each write bumps the version.
type GravityCell struct {
	v atomic.Pointer[gravitySnapshot]
}

func NewGravityCell(g Gravity) *GravityCell {
	c := &GravityCell{}
	c.v.Store(&gravitySnapshot{value: g})
	return c
}

// Set replaces the gravity and returns the new version.
func (c *GravityCell) Set(g Gravity) uint64 {
	for {
		old := c.v.Load()
		next := &gravitySnapshot{value: g, version: 1}
		if old != nil {
			next.version = old.version + 1
		}
		if c.v.CompareAndSwap(old, next) {
			return next.version
		}
	}
}

// Load returns the current gravity and its version. A nil or unset cell
// reads as zero gravity at version 0.
func (c *GravityCell) Load() (Gravity, uint64) {
	if c == nil {
		return Gravity{}, 0
	}
	s := c.v.Load()
	if s == nil {
		return Gravity{}, 0
	}
	return s.value, s.version
}

// Get returns the current gravity.
func (c *GravityCell) Get() Gravity {
	g, _ := c.Load()
	return g
}
