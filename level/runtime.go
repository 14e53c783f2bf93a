package level

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/lixenwraith/roller/event"
	"github.com/lixenwraith/roller/physics"
	"github.com/lixenwraith/roller/render"
	"github.com/lixenwraith/roller/vmath"
)

// errNotInitialized is returned by operations that need live bodies
var errNotInitialized = errors.New("level: runtime not initialized")

// RuntimeConfig holds the level rules
type RuntimeConfig struct {
	FallLimit      float64 // ball y below this counts as out of bounds
	BoundaryMargin float64 // planar slack outside the floor before a reset
	WinRadius      float64 // planar distance to the end marker that wins
	RollingSpeed   float64 // planar speed above which the ball counts as rolling

	CollisionSpeed         float64 // minimum impact speed for a collision cue
	CollisionVolumeDivisor float64 // impact speed mapped to full volume
	CollisionVolumeScale   float64
	RollVolumeDivisor      float64
	RollVolumeScale        float64

	BallDamping   float64
	WallThickness float64
	WallMaterial  Material
}

// DefaultRuntimeConfig returns the game rules
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		FallLimit:              -10,
		BoundaryMargin:         5,
		WinRadius:              1.5,
		RollingSpeed:           0.5,
		CollisionSpeed:         1,
		CollisionVolumeDivisor: 10,
		CollisionVolumeScale:   0.5,
		RollVolumeDivisor:      10,
		RollVolumeScale:        0.3,
		BallDamping:            0.2,
		WallThickness:          0.5,
		WallMaterial:           Material{Type: "standard", Color: 0x8B4513, Metalness: 0.1, Roughness: 0.9},
	}
}

// RuntimeState is the runtime lifecycle
type RuntimeState uint8

const (
	StateUninitialized RuntimeState = iota
	StateInitialized
	StateCompleted
)

func (s RuntimeState) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateCompleted:
		return "completed"
	default:
		return "uninitialized"
	}
}

// Stats is the completion record
type Stats struct {
	Elapsed float64
	ParTime float64
}

type binding struct {
	body  physics.Handle
	proxy render.Proxy
}

// Runtime is one live level: bodies in the world, proxies in the scene,
// the timer and the rolling/win bookkeeping
type Runtime struct {
	id      int
	desc    Description
	world   *physics.World
	factory render.Factory
	bus     *event.Bus
	cfg     RuntimeConfig
	log     *log.Logger

	state   RuntimeState
	elapsed float64
	rolling bool

	ball      physics.Handle
	floor     physics.Handle
	walls     []physics.Handle
	obstacles []physics.Handle
	bindings  []binding
	markers   []render.Proxy
	materials []physics.MaterialID
	contacts  physics.SubscriptionID
}

// NewRuntime prepares a runtime; nothing touches the world until Init
func NewRuntime(id int, desc Description, world *physics.World, factory render.Factory, bus *event.Bus, cfg RuntimeConfig, logger *log.Logger) *Runtime {
	if factory == nil {
		factory = render.Discard{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runtime{
		id:      id,
		desc:    desc.Clone(),
		world:   world,
		factory: factory,
		bus:     bus,
		cfg:     cfg,
		log:     logger,
	}
}

// ID returns the catalog id
func (r *Runtime) ID() int { return r.id }

// Description returns a copy of the blueprint
func (r *Runtime) Description() Description { return r.desc.Clone() }

// State returns the lifecycle state
func (r *Runtime) State() RuntimeState { return r.state }

// Elapsed returns seconds of play since the last reset
func (r *Runtime) Elapsed() float64 { return r.elapsed }

// Completed reports whether the win condition has fired
func (r *Runtime) Completed() bool { return r.state == StateCompleted }

// Rolling reports the current rolling flag
func (r *Runtime) Rolling() bool { return r.rolling }

// Ball returns the ball handle; zero before Init
func (r *Runtime) Ball() physics.Handle { return r.ball }

// CompletionStats returns the timer and par time
func (r *Runtime) CompletionStats() Stats {
	return Stats{Elapsed: r.elapsed, ParTime: r.desc.ParTime}
}

func toRender(m Material) render.Material {
	return render.Material{Type: m.Type, Color: m.Color, Metalness: m.Metalness, Roughness: m.Roughness}
}

// Init builds every body and proxy; later calls are no-ops
// A failure removes whatever was built and leaves the runtime uninitialized
func (r *Runtime) Init() error {
	if r.state != StateUninitialized {
		return nil
	}
	if err := r.desc.Validate(); err != nil {
		return err
	}
	if err := r.build(); err != nil {
		r.teardown()
		return fmt.Errorf("level %d: init: %w", r.id, err)
	}
	r.contacts = r.world.OnContactBegin(r, runtimeContact)
	r.state = StateInitialized
	if err := r.Reset(); err != nil {
		return err
	}
	r.log.Debug("level initialized", "level", r.id, "walls", len(r.walls), "obstacles", len(r.obstacles))
	return nil
}

func (r *Runtime) build() error {
	d := r.desc

	// 1. Materials
	floorMat := r.world.CreateMaterial(d.Floor.Material.Surface())
	ballMat := r.world.CreateMaterial(d.Ball.Material.Surface())
	bf, br := d.Ball.Material.Surface()
	ff, fr := d.Floor.Material.Surface()
	r.world.CreateContactMaterial(ballMat, floorMat, math.Sqrt(bf*ff), math.Sqrt(br*fr))
	wallMat := r.world.CreateMaterial(r.cfg.WallMaterial.Surface())
	r.materials = append(r.materials, floorMat, ballMat, wallMat)

	// 2. Floor slab, top face at y=0
	floorSize := mgl64.Vec3{d.Size.Width, d.Size.Height, d.Size.Depth}
	h, err := r.add(physics.BodyDef{
		Shape:    physics.Box(floorSize.X(), floorSize.Y(), floorSize.Z()),
		Position: mgl64.Vec3{0, -d.Size.Height / 2, 0},
		Material: floorMat,
		Tag:      "floor",
	}, render.ProxySpec{Kind: render.KindFloor, Size: floorSize, Material: toRender(d.Floor.Material)})
	if err != nil {
		return err
	}
	r.floor = h

	// 3. Walls, yawed along their segment
	for i, w := range d.Walls {
		length := w.Length()
		size := mgl64.Vec3{length, w.Height, r.cfg.WallThickness}
		h, err := r.add(physics.BodyDef{
			Shape:       physics.Box(size.X(), size.Y(), size.Z()),
			Position:    mgl64.Vec3{(w.Start.X + w.End.X) / 2, w.Height / 2, (w.Start.Z + w.End.Z) / 2},
			Orientation: vmath.Yaw(w.End.X-w.Start.X, w.End.Z-w.Start.Z),
			Material:    wallMat,
			Tag:         fmt.Sprintf("wall-%d", i),
		}, render.ProxySpec{Kind: render.KindWall, Size: size, Material: toRender(r.cfg.WallMaterial)})
		if err != nil {
			return err
		}
		r.walls = append(r.walls, h)
	}

	// 4. Obstacles
	for i, o := range d.Obstacles {
		size := mgl64.Vec3{o.Size.Width, o.Size.Height, o.Size.Depth}
		mat := r.world.CreateMaterial(o.Material.Surface())
		r.materials = append(r.materials, mat)
		def := physics.BodyDef{
			Shape:    physics.Box(size.X(), size.Y(), size.Z()),
			Position: o.Position.Vec(),
			Material: mat,
			Tag:      fmt.Sprintf("%s-%d", o.Kind, i),
		}
		kind := render.KindBox
		if o.Kind == ObstacleRamp {
			def.Orientation = vmath.Euler(o.Rotation.X, o.Rotation.Y, o.Rotation.Z)
			kind = render.KindRamp
		}
		h, err := r.add(def, render.ProxySpec{Kind: kind, Size: size, Material: toRender(o.Material)})
		if err != nil {
			return err
		}
		r.obstacles = append(r.obstacles, h)
	}

	// 5. Ball
	h, err = r.add(physics.BodyDef{
		Shape:          physics.Sphere(d.Ball.Radius),
		Mass:           d.Ball.Mass,
		Position:       d.Start.Vec(),
		LinearDamping:  r.cfg.BallDamping,
		AngularDamping: r.cfg.BallDamping,
		Material:       ballMat,
		Tag:            "ball",
	}, render.ProxySpec{Kind: render.KindBall, Radius: d.Ball.Radius, Material: toRender(d.Ball.Material)})
	if err != nil {
		return err
	}
	r.ball = h

	// 6. Markers, render only
	for _, m := range []struct {
		kind render.Kind
		at   Point3
	}{
		{render.KindStartMarker, d.Start},
		{render.KindEndMarker, d.End},
	} {
		p := r.factory.CreateProxy(render.ProxySpec{Kind: m.kind, Radius: r.cfg.WinRadius})
		p.SetTransform(mgl64.Vec3{m.at.X, 0.01, m.at.Z}, mgl64.QuatIdent())
		r.markers = append(r.markers, p)
	}
	return nil
}

// add creates a body and its proxy and records the binding
func (r *Runtime) add(def physics.BodyDef, spec render.ProxySpec) (physics.Handle, error) {
	h, err := r.world.CreateBody(def)
	if err != nil {
		return physics.Handle{}, fmt.Errorf("create %s: %w", def.Tag, err)
	}
	p := r.factory.CreateProxy(spec)
	r.bindings = append(r.bindings, binding{body: h, proxy: p})
	return h, r.sync(binding{body: h, proxy: p})
}

func (r *Runtime) sync(b binding) error {
	pos, err := r.world.Position(b.body)
	if err != nil {
		return err
	}
	rot, err := r.world.Orientation(b.body)
	if err != nil {
		return err
	}
	b.proxy.SetTransform(pos, rot)
	return nil
}

// Reset returns the ball to the start and clears the timer and win flag
func (r *Runtime) Reset() error {
	if r.state == StateUninitialized {
		return nil
	}
	if err := r.ResetBall(); err != nil {
		return err
	}
	r.elapsed = 0
	r.state = StateInitialized
	r.setRolling(false, 0)
	return nil
}

// ResetBall moves the ball to the start at rest without touching the timer
func (r *Runtime) ResetBall() error {
	if r.state == StateUninitialized {
		return errNotInitialized
	}
	if err := r.world.SetPosition(r.ball, r.desc.Start.Vec()); err != nil {
		return err
	}
	if err := r.world.SetVelocity(r.ball, mgl64.Vec3{}); err != nil {
		return err
	}
	return r.world.SetAngularVelocity(r.ball, mgl64.Vec3{})
}

// Update advances the timer, mirrors bodies onto proxies, tracks rolling and
// applies the boundary rule; a no-op unless initialized
func (r *Runtime) Update(dt float64) error {
	if r.state != StateInitialized {
		return nil
	}
	r.elapsed += dt

	for _, b := range r.bindings {
		if err := r.sync(b); err != nil {
			return err
		}
	}

	v, err := r.world.Velocity(r.ball)
	if err != nil {
		return err
	}
	speed := vmath.PlanarLen(v)
	r.setRolling(speed > r.cfg.RollingSpeed, speed)

	_, err = r.CheckBoundaries()
	return err
}

func (r *Runtime) setRolling(rolling bool, speed float64) {
	if rolling == r.rolling {
		return
	}
	r.rolling = rolling
	if r.bus == nil {
		return
	}
	if rolling {
		vol := math.Min(speed/r.cfg.RollVolumeDivisor, 1) * r.cfg.RollVolumeScale
		r.bus.Publish(event.TopicRollStart, event.RollPayload{Speed: speed, Volume: vol})
	} else {
		r.bus.Publish(event.TopicRollStop, nil)
	}
}

// CheckBoundaries resets the ball when it fell or left the floor area
// The timer keeps running; returns true when a reset happened
func (r *Runtime) CheckBoundaries() (bool, error) {
	if r.state == StateUninitialized {
		return false, nil
	}
	p, err := r.world.Position(r.ball)
	if err != nil {
		return false, err
	}
	hw := r.desc.Size.Width/2 + r.cfg.BoundaryMargin
	hd := r.desc.Size.Depth/2 + r.cfg.BoundaryMargin
	if p.Y() >= r.cfg.FallLimit && math.Abs(p.X()) <= hw && math.Abs(p.Z()) <= hd {
		return false, nil
	}
	r.log.Debug("ball out of bounds", "level", r.id, "pos", p)
	if err := r.ResetBall(); err != nil {
		return false, err
	}
	r.setRolling(false, 0)
	return true, nil
}

// CheckWinCondition reports the first time the ball reaches the end marker
// and locks the runtime as completed
func (r *Runtime) CheckWinCondition() (bool, error) {
	if r.state != StateInitialized {
		return false, nil
	}
	p, err := r.world.Position(r.ball)
	if err != nil {
		return false, err
	}
	if vmath.PlanarDistance(p, r.desc.End.Vec()) >= r.cfg.WinRadius {
		return false, nil
	}
	r.state = StateCompleted
	r.log.Debug("level complete", "level", r.id, "elapsed", r.elapsed)
	return true, nil
}

// Unload removes every body and proxy; the runtime returns to uninitialized
func (r *Runtime) Unload() {
	if r.state == StateUninitialized && len(r.bindings) == 0 {
		return
	}
	r.setRolling(false, 0)
	r.teardown()
	r.state = StateUninitialized
	r.elapsed = 0
}

func (r *Runtime) teardown() {
	if r.contacts != 0 {
		r.world.OffContactBegin(r.contacts)
		r.contacts = 0
	}
	for _, b := range r.bindings {
		r.world.RemoveBody(b.body)
		b.proxy.Remove()
	}
	for _, p := range r.markers {
		p.Remove()
	}
	for _, m := range r.materials {
		r.world.ReleaseMaterial(m)
	}
	r.bindings, r.markers = nil, nil
	r.walls, r.obstacles = nil, nil
	r.materials = nil
	r.ball, r.floor = physics.Handle{}, physics.Handle{}
}

// runtimeContact turns ball impacts into collision cues
func runtimeContact(ctx any, c physics.Contact) {
	r := ctx.(*Runtime)
	if r.state != StateInitialized || !c.Involves(r.ball) {
		return
	}
	if c.RelativeSpeed <= r.cfg.CollisionSpeed || r.bus == nil {
		return
	}
	vol := math.Min(c.RelativeSpeed/r.cfg.CollisionVolumeDivisor, 1) * r.cfg.CollisionVolumeScale
	r.bus.Publish(event.TopicCollision, event.CollisionPayload{RelativeSpeed: c.RelativeSpeed, Volume: vol})
}
