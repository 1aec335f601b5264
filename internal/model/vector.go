package model

import "math"

// Vec3 is a point or direction in world space.
// X is horizontal (towards the structure), Y is vertical, Z is depth.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * s
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Length returns the Euclidean magnitude
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// PlanarDistance returns the distance between v and o ignoring the depth axis
func (v Vec3) PlanarDistance(o Vec3) float64 {
	return math.Hypot(v.X-o.X, v.Y-o.Y)
}

// IsFinite reports whether every component is a finite number
func (v Vec3) IsFinite() bool {
	for _, c := range [...]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Normalize returns the unit vector in the direction of v.
// The second result is false when v has no usable direction.
func (v Vec3) Normalize() (Vec3, bool) {
	if !v.IsFinite() {
		return Vec3{}, false
	}
	// Divide by the largest component first so the length of huge or tiny
	// vectors neither overflows nor underflows
	m := math.Max(math.Abs(v.X), math.Max(math.Abs(v.Y), math.Abs(v.Z)))
	if m == 0 {
		return Vec3{}, false
	}
	v = Vec3{X: v.X / m, Y: v.Y / m, Z: v.Z / m}
	return v.Scale(1 / v.Length()), true
}

// DirectionFromAngle builds a unit vector in the X/Y launch plane from an angle in radians
func DirectionFromAngle(theta float64) Vec3 {
	return Vec3{X: math.Cos(theta), Y: math.Sin(theta)}
}
