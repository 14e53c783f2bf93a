package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeKind enumerates collision primitives
type ShapeKind uint8

const (
	ShapeSphere ShapeKind = iota + 1
	ShapeBox
	ShapePlane
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapeBox:
		return "box"
	case ShapePlane:
		return "plane"
	default:
		return "shape"
	}
}

// Shape is a tagged union; only the fields of Kind are read
type Shape struct {
	Kind        ShapeKind
	Radius      float64    // sphere
	HalfExtents mgl64.Vec3 // box
}

// Sphere returns a sphere of radius r
func Sphere(r float64) Shape {
	return Shape{Kind: ShapeSphere, Radius: r}
}

// Box returns a box of full size width x height x depth
func Box(width, height, depth float64) Shape {
	return Shape{Kind: ShapeBox, HalfExtents: mgl64.Vec3{width / 2, height / 2, depth / 2}}
}

// Plane returns an infinite plane whose normal is the body's local +Y
func Plane() Shape {
	return Shape{Kind: ShapePlane}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func (s Shape) validate() error {
	switch s.Kind {
	case ShapeSphere:
		if !positive(s.Radius) {
			return &InvalidShapeError{Kind: s.Kind, Reason: "radius must be positive"}
		}
	case ShapeBox:
		for _, h := range s.HalfExtents {
			if !positive(h) {
				return &InvalidShapeError{Kind: s.Kind, Reason: "extents must be positive"}
			}
		}
	case ShapePlane:
	default:
		return &InvalidShapeError{Kind: s.Kind, Reason: "unknown kind"}
	}
	return nil
}

// halfHeight is the vertical distance from center to the lowest point
func (s Shape) halfHeight() float64 {
	switch s.Kind {
	case ShapeSphere:
		return s.Radius
	case ShapeBox:
		return s.HalfExtents.Y()
	}
	return 0
}
