package vmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Identity returns the unit quaternion
func Identity() mgl64.Quat {
	return mgl64.QuatIdent()
}

// IsZeroQuat reports an unset quaternion (all components zero)
func IsZeroQuat(q mgl64.Quat) bool {
	return q.W == 0 && q.V == (mgl64.Vec3{})
}

// OrIdentity substitutes the identity for an unset quaternion
func OrIdentity(q mgl64.Quat) mgl64.Quat {
	if IsZeroQuat(q) {
		return mgl64.QuatIdent()
	}
	return q.Normalize()
}

// Yaw returns a rotation about the up axis that maps +X onto the planar
// direction (dx, dz)
func Yaw(dx, dz float64) mgl64.Quat {
	return mgl64.QuatRotate(-math.Atan2(dz, dx), Up)
}

// Euler builds a rotation from XYZ-ordered angles in radians
func Euler(x, y, z float64) mgl64.Quat {
	return mgl64.AnglesToQuat(x, y, z, mgl64.XYZ)
}

// PlanarAngle returns the heading of q's local +X axis in the x/z plane,
// measured from +X toward +Z
func PlanarAngle(q mgl64.Quat) float64 {
	x := q.Rotate(mgl64.Vec3{1, 0, 0})
	return math.Atan2(x.Z(), x.X())
}

// FromPlanarAngle is the inverse of PlanarAngle for pure yaw rotations
func FromPlanarAngle(a float64) mgl64.Quat {
	return mgl64.QuatRotate(-a, Up)
}

// Tilted reports whether q moves the local up axis off the world up axis
func Tilted(q mgl64.Quat) bool {
	return q.Rotate(Up).Y() < 1-1e-6
}
