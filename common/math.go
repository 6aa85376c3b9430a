package common

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Vec3 is the vector type shared by every physics component.
type Vec3 = mgl32.Vec3

// Quat is the orientation type written by the integrator.
type Quat = mgl32.Quat

// Epsilon is the tolerance below which a length or speed is treated as zero.
const Epsilon float32 = 1e-6

func Lerp(a, b, t float32) float32 {
	return a + t*(b-a)
}

func Clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}

// NearZero reports whether |v| is within Epsilon.
func NearZero(v float32) bool {
	return math32.Abs(v) <= Epsilon
}

// Length returns |v| without going through float64.
func Length(v Vec3) float32 {
	return math32.Sqrt(v.Dot(v))
}

// Normalize returns v scaled to unit length and its original length.
// A zero vector is returned unchanged with length 0.
func Normalize(v Vec3) (Vec3, float32) {
	l := Length(v)
	if NearZero(l) {
		return v, 0
	}
	return v.Mul(1 / l), l
}
