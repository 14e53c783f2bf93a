// Package vmath holds small float helpers shared by physics, level and input
// All 3D values are mgl64 vectors in a y-up, right-handed frame
package vmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the tolerance used for float comparisons across the simulation
const Epsilon = 1e-9

// Up is the world up axis
var Up = mgl64.Vec3{0, 1, 0}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ApproxEqual reports whether a and b differ by at most tol
func ApproxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// Finite reports whether every component of v is a real number
func Finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// PlanarDistance is the distance between a and b projected onto the x/z plane
func PlanarDistance(a, b mgl64.Vec3) float64 {
	return math.Hypot(a.X()-b.X(), a.Z()-b.Z())
}

// PlanarLen is the length of v projected onto the x/z plane
func PlanarLen(v mgl64.Vec3) float64 {
	return math.Hypot(v.X(), v.Z())
}
