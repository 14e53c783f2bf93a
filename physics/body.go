package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/lixenwraith/roller/vmath"
)

// Handle addresses a body; the zero Handle is never valid
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports the unset handle
func (h Handle) IsZero() bool { return h.gen == 0 }

func (h Handle) String() string {
	return fmt.Sprintf("body#%d.%d", h.index, h.gen)
}

// BodyDef describes a body to create
// Zero damping falls back to the world defaults; a zero Orientation is identity
type BodyDef struct {
	Shape          Shape
	Mass           float64 // 0 = static
	Position       mgl64.Vec3
	Orientation    mgl64.Quat
	LinearDamping  float64
	AngularDamping float64
	Material       MaterialID
	Tag            string
}

type role uint8

const (
	roleCollider role = iota // planar solver body
	roleSupport              // floor, plane or ramp surface
)

type body struct {
	handle   Handle
	shape    Shape
	mass     float64
	tag      string
	material MaterialID
	role     role

	linearDamping, angularDamping float64

	// Solver state for colliders
	cpBody  *cp.Body
	cpShape *cp.Shape
	prev    cp.Vector // planar position before the current sub-step

	// Vertical state for dynamic bodies
	y, vy     float64
	forceY    float64
	supported bool
	ground    *body
	normal    mgl64.Vec3

	// Orientation for spheres, statics and supports
	pos    mgl64.Vec3
	rot    mgl64.Quat
	angVel mgl64.Vec3

	surface *surface
}

func (b *body) dynamic() bool { return b.mass > 0 }

func (def BodyDef) validate(w *World) error {
	if err := def.Shape.validate(); err != nil {
		return err
	}
	if math.IsNaN(def.Mass) || def.Mass < 0 || math.IsInf(def.Mass, 0) {
		return &InvalidShapeError{Kind: def.Shape.Kind, Reason: "mass must be finite and non-negative"}
	}
	if def.Shape.Kind == ShapePlane && def.Mass > 0 {
		return &InvalidShapeError{Kind: def.Shape.Kind, Reason: "plane must be static"}
	}
	if !vmath.Finite(def.Position) {
		return &InvalidShapeError{Kind: def.Shape.Kind, Reason: "position must be finite"}
	}
	if def.LinearDamping < 0 || def.LinearDamping >= 1 || def.AngularDamping < 0 || def.AngularDamping >= 1 {
		return &InvalidShapeError{Kind: def.Shape.Kind, Reason: "damping must be in [0, 1)"}
	}
	if !w.hasMaterial(def.Material) {
		return &InvalidShapeError{Kind: def.Shape.Kind, Reason: fmt.Sprintf("unknown material %d", def.Material)}
	}
	return nil
}

// integrateVelocity replaces the solver's velocity step so each body carries
// its own damping; forces are consumed by the first sub-step that sees them
func (b *body) integrateVelocity(cb *cp.Body, gravity cp.Vector, _ float64, dt float64) {
	lin := math.Pow(1-b.linearDamping, dt)
	ang := math.Pow(1-b.angularDamping, dt)

	w0 := cb.AngularVelocity()
	cp.BodyUpdateVelocity(cb, gravity, lin, dt)
	// The stock update damps spin with the linear factor
	cb.SetAngularVelocity(cb.AngularVelocity() + w0*(ang-lin))
}

func (b *body) position() mgl64.Vec3 {
	if b.cpBody != nil && b.dynamic() {
		p := b.cpBody.Position()
		return mgl64.Vec3{p.X, b.y, p.Y}
	}
	return b.pos
}

func (b *body) orientation() mgl64.Quat {
	if b.cpBody != nil && b.dynamic() && b.shape.Kind != ShapeSphere {
		return vmath.FromPlanarAngle(b.cpBody.Angle())
	}
	return b.rot
}

func (b *body) velocity() mgl64.Vec3 {
	if b.cpBody != nil && b.dynamic() {
		v := b.cpBody.Velocity()
		return mgl64.Vec3{v.X, b.vy, v.Y}
	}
	return mgl64.Vec3{}
}

func (b *body) angularVelocity() mgl64.Vec3 {
	if b.cpBody == nil || !b.dynamic() {
		return mgl64.Vec3{}
	}
	if b.shape.Kind == ShapeSphere {
		return b.angVel
	}
	// Solver angle turns +X toward +Z, a negative rotation about +Y
	return mgl64.Vec3{0, -b.cpBody.AngularVelocity(), 0}
}

// roll advances a sphere's orientation as if rolling without slip
func (b *body) roll(dt float64) {
	v := b.cpBody.Velocity()
	speed := math.Hypot(v.X, v.Y)
	if speed < vmath.Epsilon {
		b.angVel = mgl64.Vec3{}
		return
	}
	// Up x velocity
	axis := mgl64.Vec3{v.Y, 0, -v.X}.Mul(1 / speed)
	b.angVel = axis.Mul(speed / b.shape.Radius)
	b.rot = mgl64.QuatRotate(speed*dt/b.shape.Radius, axis).Mul(b.rot).Normalize()
}
