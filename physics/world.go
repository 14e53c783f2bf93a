// Package physics is the rigid-body world behind the rolling ball
//
// Planar dynamics (ball, walls, upright boxes) run in a Chipmunk2D space with
// world x/z mapped onto solver x/y. The vertical axis is resolved by a support
// layer: floor slabs, planes and tilted ramp slabs provide the resting height,
// the slope push and free fall when a body leaves every support footprint.
// A slab taller than the step height blocks bodies that run into its side.
package physics

import (
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/lixenwraith/roller/vmath"
)

// Config tunes the world
type Config struct {
	FixedStep   float64 // seconds per sub-step
	MaxSubSteps int     // sub-steps per Step before excess lag is dropped
	Iterations  int     // solver iterations
	Gravity     mgl64.Vec3

	DefaultLinearDamping  float64
	DefaultAngularDamping float64

	// Static boxes whose top is at or below this height become supports
	GroundTolerance float64
	// Highest ledge a body climbs onto without a wall
	StepHeight float64
	// Surfaces steeper than this (normal y) do not support bodies
	MinSupportNormalY float64
	// Minimum impact speed that reports a landing contact
	LandingSpeed float64
	// Minimum rebound speed before a landing bounces
	BounceSpeed float64
}

// DefaultConfig returns the tuning used by the game
func DefaultConfig() Config {
	return Config{
		FixedStep:             1.0 / 60.0,
		MaxSubSteps:           15,
		Iterations:            10,
		Gravity:               mgl64.Vec3{0, -9.82, 0},
		DefaultLinearDamping:  0.01,
		DefaultAngularDamping: 0.01,
		GroundTolerance:       1e-6,
		StepHeight:            0.25,
		MinSupportNormalY:     0.3,
		LandingSpeed:          0.5,
		BounceSpeed:           1.0,
	}
}

const collisionTypeBody cp.CollisionType = 1

// stepEpsilon absorbs float drift so N steps of 1/60 equal one step of N/60
const stepEpsilon = 1e-9

type slot struct {
	gen  uint32
	body *body
}

// World owns every body and steps the simulation
// Not safe for concurrent use; the frame thread drives it
type World struct {
	cfg     Config
	log     *log.Logger
	space   *cp.Space
	gravity mgl64.Vec3

	slots []slot
	free  []uint32
	count int

	materials     []material
	freeMaterials []MaterialID
	pairs         map[materialPair]material

	accumulator float64
	subSteps    uint64

	subs    []contactSub
	nextSub SubscriptionID
	pending []Contact
}

// NewWorld creates an empty world; nil logger discards output
func NewWorld(cfg Config, logger *log.Logger) *World {
	def := DefaultConfig()
	if cfg.FixedStep <= 0 {
		cfg.FixedStep = def.FixedStep
	}
	if cfg.MaxSubSteps <= 0 {
		cfg.MaxSubSteps = def.MaxSubSteps
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = def.Iterations
	}
	if cfg.StepHeight <= 0 {
		cfg.StepHeight = def.StepHeight
	}
	if cfg.MinSupportNormalY <= 0 {
		cfg.MinSupportNormalY = def.MinSupportNormalY
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	w := &World{
		cfg:       cfg,
		log:       logger,
		space:     cp.NewSpace(),
		materials: []material{{friction: defaultFriction, restitution: defaultRestitution}},
		pairs:     make(map[materialPair]material),
	}
	w.space.Iterations = uint(cfg.Iterations)
	w.SetGravity(cfg.Gravity)

	handler := w.space.NewCollisionHandler(collisionTypeBody, collisionTypeBody)
	handler.BeginFunc = w.beginContact
	return w
}

// Config returns the effective configuration
func (w *World) Config() Config { return w.cfg }

// SetGravity replaces the gravity vector
func (w *World) SetGravity(g mgl64.Vec3) {
	w.gravity = g
	w.space.SetGravity(cp.Vector{X: g.X(), Y: g.Z()})
}

// Gravity returns the current gravity vector
func (w *World) Gravity() mgl64.Vec3 { return w.gravity }

// BodyCount returns the number of live bodies
func (w *World) BodyCount() int { return w.count }

// SubStepsTotal returns the number of fixed sub-steps run since creation
func (w *World) SubStepsTotal() uint64 { return w.subSteps }

// CreateBody adds a body and returns its handle
func (w *World) CreateBody(def BodyDef) (Handle, error) {
	if err := def.validate(w); err != nil {
		return Handle{}, err
	}

	b := &body{
		shape:          def.Shape,
		mass:           def.Mass,
		tag:            def.Tag,
		material:       def.Material,
		linearDamping:  def.LinearDamping,
		angularDamping: def.AngularDamping,
		pos:            def.Position,
		rot:            vmath.OrIdentity(def.Orientation),
		y:              def.Position.Y(),
	}
	if b.linearDamping == 0 {
		b.linearDamping = w.cfg.DefaultLinearDamping
	}
	if b.angularDamping == 0 {
		b.angularDamping = w.cfg.DefaultAngularDamping
	}

	switch {
	case def.Shape.Kind == ShapePlane:
		b.role = roleSupport
	case def.Shape.Kind == ShapeBox && def.Mass == 0 &&
		(vmath.Tilted(b.rot) || def.Position.Y()+def.Shape.HalfExtents.Y() <= w.cfg.GroundTolerance):
		b.role = roleSupport
	default:
		b.role = roleCollider
	}

	b.handle = w.allocate(b)
	if b.role == roleSupport {
		b.surface = newSurface(b.shape, b.pos, b.rot)
	} else {
		w.attachCollider(b)
	}
	w.count++

	w.log.Debug("body created", "handle", b.handle, "shape", b.shape.Kind, "mass", b.mass, "tag", b.tag)
	return b.handle, nil
}

func (w *World) allocate(b *body) Handle {
	var idx uint32
	if n := len(w.free); n > 0 {
		idx = w.free[n-1]
		w.free = w.free[:n-1]
	} else {
		idx = uint32(len(w.slots))
		w.slots = append(w.slots, slot{})
	}
	s := &w.slots[idx]
	s.gen++
	s.body = b
	return Handle{index: idx, gen: s.gen}
}

func (w *World) attachCollider(b *body) {
	var cb *cp.Body
	if b.dynamic() {
		var moment float64
		switch b.shape.Kind {
		case ShapeSphere:
			moment = cp.MomentForCircle(b.mass, 0, b.shape.Radius, cp.Vector{})
		default:
			moment = cp.MomentForBox(b.mass, 2*b.shape.HalfExtents.X(), 2*b.shape.HalfExtents.Z())
		}
		cb = cp.NewBody(b.mass, moment)
		cb.SetVelocityUpdateFunc(b.integrateVelocity)
	} else {
		cb = cp.NewStaticBody()
	}
	cb.SetPosition(cp.Vector{X: b.pos.X(), Y: b.pos.Z()})
	cb.SetAngle(vmath.PlanarAngle(b.rot))
	cb.UserData = b
	w.space.AddBody(cb)

	var shape *cp.Shape
	switch b.shape.Kind {
	case ShapeSphere:
		shape = cp.NewCircle(cb, b.shape.Radius, cp.Vector{})
	default:
		shape = cp.NewBox(cb, 2*b.shape.HalfExtents.X(), 2*b.shape.HalfExtents.Z(), 0)
	}
	m := w.materials[b.material]
	shape.SetFriction(m.friction)
	shape.SetElasticity(m.restitution)
	shape.SetCollisionType(collisionTypeBody)
	shape.UserData = b
	w.space.AddShape(shape)

	b.cpBody, b.cpShape = cb, shape
}

// RemoveBody deletes a body; removing an invalid handle is a no-op
func (w *World) RemoveBody(h Handle) {
	b := w.lookup(h)
	if b == nil {
		return
	}
	if b.cpBody != nil {
		w.space.RemoveShape(b.cpShape)
		w.space.RemoveBody(b.cpBody)
		b.cpBody, b.cpShape = nil, nil
	}
	s := &w.slots[h.index]
	s.body = nil
	s.gen++
	w.free = append(w.free, h.index)
	w.count--
}

// Valid reports whether h addresses a live body
func (w *World) Valid(h Handle) bool { return w.lookup(h) != nil }

func (w *World) lookup(h Handle) *body {
	if h.gen == 0 || int(h.index) >= len(w.slots) {
		return nil
	}
	s := w.slots[h.index]
	if s.gen != h.gen {
		return nil
	}
	return s.body
}

func (w *World) get(h Handle, op string) (*body, error) {
	if b := w.lookup(h); b != nil {
		return b, nil
	}
	return nil, &StaleHandleError{Handle: h, Op: op}
}

// ApplyForce accumulates a force for the next sub-step
// A nil point applies at the center of mass; static bodies ignore forces
func (w *World) ApplyForce(h Handle, force mgl64.Vec3, at *mgl64.Vec3) error {
	b, err := w.get(h, "apply force")
	if err != nil {
		return err
	}
	if !vmath.Finite(force) {
		return fmt.Errorf("physics: apply force to %s: non-finite force %v", h, force)
	}
	if !b.dynamic() {
		return nil
	}
	point := b.cpBody.Position()
	if at != nil {
		point = cp.Vector{X: at.X(), Y: at.Z()}
	}
	b.cpBody.ApplyForceAtWorldPoint(cp.Vector{X: force.X(), Y: force.Z()}, point)
	b.forceY += force.Y()
	return nil
}

// Step advances the simulation by dt seconds of wall time
// Runs whole fixed sub-steps out of the accumulated time, at most MaxSubSteps;
// lag beyond that is dropped. Contact callbacks run after the last sub-step.
// Returns the number of sub-steps run.
func (w *World) Step(dt float64) int {
	if !(dt > 0) || math.IsInf(dt, 0) {
		dt = 0
	}
	step := w.cfg.FixedStep
	w.accumulator += dt

	n := 0
	for w.accumulator >= step-stepEpsilon && n < w.cfg.MaxSubSteps {
		w.subStep(step)
		w.accumulator -= step
		n++
	}
	if w.accumulator < 0 {
		w.accumulator = 0
	}
	if w.accumulator >= step-stepEpsilon {
		w.log.Debug("physics lag dropped", "seconds", w.accumulator)
		w.accumulator = 0
	}

	w.dispatchContacts()
	return n
}

func (w *World) subStep(dt float64) {
	for i := range w.slots {
		b := w.slots[i].body
		if b == nil || b.cpBody == nil || !b.dynamic() {
			continue
		}
		b.prev = b.cpBody.Position()
		if f := w.slopeForce(b); f != (mgl64.Vec3{}) {
			b.cpBody.ApplyForceAtWorldPoint(cp.Vector{X: f.X(), Y: f.Z()}, b.cpBody.Position())
		}
	}

	w.space.Step(dt)

	for i := range w.slots {
		b := w.slots[i].body
		if b == nil || b.cpBody == nil || !b.dynamic() {
			continue
		}
		w.block(b)
		ay := w.gravity.Y() + b.forceY/b.mass
		b.forceY = 0
		b.vy = b.vy*math.Pow(1-b.linearDamping, dt) + ay*dt
		b.y += b.vy * dt
		w.settle(b)
		if b.shape.Kind == ShapeSphere {
			b.roll(dt)
		}
	}
	w.subSteps++
}

// Position returns the body's center in world space
func (w *World) Position(h Handle) (mgl64.Vec3, error) {
	b, err := w.get(h, "position")
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return b.position(), nil
}

// Orientation returns the body's rotation
func (w *World) Orientation(h Handle) (mgl64.Quat, error) {
	b, err := w.get(h, "orientation")
	if err != nil {
		return mgl64.Quat{}, err
	}
	return b.orientation(), nil
}

// Velocity returns the body's linear velocity
func (w *World) Velocity(h Handle) (mgl64.Vec3, error) {
	b, err := w.get(h, "velocity")
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return b.velocity(), nil
}

// AngularVelocity returns the body's angular velocity
func (w *World) AngularVelocity(h Handle) (mgl64.Vec3, error) {
	b, err := w.get(h, "angular velocity")
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return b.angularVelocity(), nil
}

// Tag returns the user tag given at creation
func (w *World) Tag(h Handle) (string, error) {
	b, err := w.get(h, "tag")
	if err != nil {
		return "", err
	}
	return b.tag, nil
}

// Supported reports whether a dynamic body rests on a support surface
func (w *World) Supported(h Handle) (bool, error) {
	b, err := w.get(h, "supported")
	if err != nil {
		return false, err
	}
	return b.supported, nil
}

// SetPosition teleports a body
func (w *World) SetPosition(h Handle, p mgl64.Vec3) error {
	b, err := w.get(h, "set position")
	if err != nil {
		return err
	}
	if !vmath.Finite(p) {
		return fmt.Errorf("physics: set position of %s: non-finite position %v", h, p)
	}
	b.pos = p
	switch {
	case b.surface != nil:
		b.surface = newSurface(b.shape, b.pos, b.rot)
	case b.dynamic():
		b.cpBody.SetPosition(cp.Vector{X: p.X(), Y: p.Z()})
		b.y = p.Y()
		b.supported, b.ground = false, nil
	default:
		b.cpBody.SetPosition(cp.Vector{X: p.X(), Y: p.Z()})
		w.reindex(b)
	}
	return nil
}

// reindex moves a static collider's shape to its new transform in the
// static spatial index
func (w *World) reindex(b *body) {
	w.space.RemoveShape(b.cpShape)
	w.space.AddShape(b.cpShape)
}

// SetOrientation replaces the body's rotation
// Planar colliders keep only the heading
func (w *World) SetOrientation(h Handle, q mgl64.Quat) error {
	b, err := w.get(h, "set orientation")
	if err != nil {
		return err
	}
	b.rot = vmath.OrIdentity(q)
	switch {
	case b.surface != nil:
		b.surface = newSurface(b.shape, b.pos, b.rot)
	case b.shape.Kind == ShapeSphere:
	default:
		b.cpBody.SetAngle(vmath.PlanarAngle(b.rot))
		if !b.dynamic() {
			w.reindex(b)
		}
	}
	return nil
}

// SetVelocity replaces the linear velocity of a dynamic body
func (w *World) SetVelocity(h Handle, v mgl64.Vec3) error {
	b, err := w.get(h, "set velocity")
	if err != nil {
		return err
	}
	if !b.dynamic() {
		return nil
	}
	b.cpBody.SetVelocity(v.X(), v.Z())
	b.vy = v.Y()
	return nil
}

// SetAngularVelocity replaces the angular velocity of a dynamic body
func (w *World) SetAngularVelocity(h Handle, av mgl64.Vec3) error {
	b, err := w.get(h, "set angular velocity")
	if err != nil {
		return err
	}
	if !b.dynamic() {
		return nil
	}
	b.angVel = av
	b.cpBody.SetAngularVelocity(-av.Y())
	return nil
}
