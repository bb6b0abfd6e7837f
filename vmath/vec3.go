// Package vmath provides the small vector type shared by the simulation packages.
package vmath

import "math"

// Vec3 is a position or displacement in domain coordinates.
// Planar simulations keep Z at zero.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Len2 returns the squared length.
func (v Vec3) Len2() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Len returns the Euclidean length.
func (v Vec3) Len() float64 {
	return math.Sqrt(v.Len2())
}

// Outer returns the six distinct entries of the symmetric outer product v⊗v
// in the order xx, xy, xz, yy, yz, zz.
func (v Vec3) Outer() [6]float64 {
	return [6]float64{
		v.X * v.X,
		v.X * v.Y,
		v.X * v.Z,
		v.Y * v.Y,
		v.Y * v.Z,
		v.Z * v.Z,
	}
}
