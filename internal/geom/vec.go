package geom

import (
	"math"

	"github.com/jakecoffman/cp"
)

// Vec3 is a world-space position. Y is up; the allocation grid lives on the X/Z plane.
type Vec3 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z} }

func (v Vec3) Scale(f float64) Vec3 { return Vec3{X: v.X * f, Y: v.Y * f, Z: v.Z * f} }

func (v Vec3) DistSq(o Vec3) float64 {
	d := v.Sub(o)
	return d.X*d.X + d.Y*d.Y + d.Z*d.Z
}

// Flat projects the position onto the ground plane.
func (v Vec3) Flat() cp.Vector { return cp.Vector{X: v.X, Y: v.Z} }

// FromFlat lifts a ground-plane point back into world space at height y.
func FromFlat(p cp.Vector, y float64) Vec3 { return Vec3{X: p.X, Y: y, Z: p.Y} }

// epsilon below which a vector is treated as zero length.
const epsilon = 1e-9

// Unit returns v normalized, or the zero vector when v has no length.
func Unit(v cp.Vector) cp.Vector {
	l := v.Length()
	if l < epsilon {
		return cp.Vector{}
	}
	return v.Mult(1 / l)
}

// IsZero reports whether v is (numerically) the zero vector.
func IsZero(v cp.Vector) bool { return v.Length() < epsilon }

func Clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

// InverseLerp maps value from [a, b] onto [0, 1], clamped. a may be greater than b.
func InverseLerp(a, b, value float64) float64 {
	if a == b {
		return 0
	}
	return Clamp01((value - a) / (b - a))
}
