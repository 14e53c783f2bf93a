// Package input turns tilt and drag input into a smoothed, calibrated
// steering signal
package input

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/lixenwraith/roller/vmath"
)

// Mode identifies the active source
type Mode uint8

const (
	ModeNone Mode = iota
	ModeTilt
	ModeTouch
)

func (m Mode) String() string {
	switch m {
	case ModeTilt:
		return "tilt"
	case ModeTouch:
		return "touch"
	default:
		return "none"
	}
}

// Config tunes the controller
type Config struct {
	Smoothing        float64 // weight of the previous filtered value, [0,1)
	TouchRange       float64 // degrees reported at full drag
	Sensitivity      float64 // force multiplier
	UseTouchControls bool
}

// DefaultConfig favours the previous reading so sensor jitter is damped
func DefaultConfig() Config {
	return Config{
		Smoothing:   0.8,
		TouchRange:  20,
		Sensitivity: 1,
	}
}

// Sample is a steering reading in degrees
// Beta tilts along z (forward/back), Gamma along x (left/right)
type Sample struct {
	Beta  float64
	Gamma float64
}

// Controller normalizes tilt and drag input into one signal
//
// Tilt pipeline: raw -> exponential filter -> minus calibration offset
// Touch pipeline: drag offset from touch-down point / half extent,
// clamped to [-1,1], times TouchRange; release returns to zero
//
// Only the active source's events are accepted. Not safe for concurrent use;
// sources on other goroutines must hand events to the frame thread.
type Controller struct {
	cfg   Config
	log   *log.Logger
	tilt  TiltSource
	touch TouchSource

	started bool
	mode    Mode
	stop    func()

	// Permission prompts run off the frame thread when a poster is set
	poster      Poster
	attachGen   uint64
	permPending bool

	filtered    Sample
	calibration Sample

	touching    bool
	touchOrigin [2]float64
	touchValue  Sample

	listeners []func(Sample)
}

// NewController creates a controller over the given sources; either may be nil
func NewController(cfg Config, tilt TiltSource, touch TouchSource, logger *log.Logger) *Controller {
	def := DefaultConfig()
	if cfg.Smoothing < 0 || cfg.Smoothing >= 1 {
		cfg.Smoothing = def.Smoothing
	}
	if cfg.TouchRange <= 0 {
		cfg.TouchRange = def.TouchRange
	}
	if cfg.Sensitivity <= 0 {
		cfg.Sensitivity = def.Sensitivity
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Controller{cfg: cfg, log: logger, tilt: tilt, touch: touch}
}

// Start attaches the configured source
// Tilt failures fall back to touch; an error is returned only when no
// source could be attached
func (c *Controller) Start(ctx context.Context) error {
	if c.started {
		return nil
	}
	if err := c.attach(ctx); err != nil {
		return err
	}
	c.started = true
	return nil
}

// Stop detaches the active source
func (c *Controller) Stop() {
	c.detach()
	c.started = false
}

// Mode returns the active source kind
func (c *Controller) Mode() Mode { return c.mode }

// SetPoster moves tilt permission prompts onto their own goroutine
// Touch steers until the answer is posted back; nil restores blocking prompts
func (c *Controller) SetPoster(p Poster) { c.poster = p }

// PermissionPending reports a tilt permission prompt awaiting its answer
func (c *Controller) PermissionPending() bool { return c.permPending }

// UseTouchControls reports the configured preference
func (c *Controller) UseTouchControls() bool { return c.cfg.UseTouchControls }

// SetUseTouchControls switches sources, detaching the old one first
func (c *Controller) SetUseTouchControls(ctx context.Context, use bool) error {
	c.cfg.UseTouchControls = use
	if !c.started {
		return nil
	}
	c.detach()
	return c.attach(ctx)
}

func (c *Controller) attach(ctx context.Context) error {
	if !c.cfg.UseTouchControls {
		err := c.attachTilt(ctx)
		if err == nil {
			return nil
		}
		var unsupported *UnsupportedInputError
		if !errors.As(err, &unsupported) {
			return err
		}
		c.log.Warn("tilt unavailable, using touch", "err", err)
	}
	return c.attachTouch()
}

func (c *Controller) attachTilt(ctx context.Context) error {
	if c.tilt == nil || !c.tilt.Supported() {
		return &UnsupportedInputError{Source: "tilt"}
	}
	if c.poster != nil && c.touch != nil {
		return c.requestTilt(ctx)
	}
	if err := c.tilt.RequestPermission(ctx); err != nil {
		return &UnsupportedInputError{Source: "tilt", Err: err}
	}
	return c.listenTilt()
}

// requestTilt steers by touch while the prompt is open; the posted answer
// switches to tilt unless the source changed in between
func (c *Controller) requestTilt(ctx context.Context) error {
	if err := c.attachTouch(); err != nil {
		return err
	}
	gen := c.attachGen
	c.permPending = true
	tilt, poster := c.tilt, c.poster
	go func() {
		err := tilt.RequestPermission(ctx)
		poster.Post(func() { c.permissionAnswered(gen, err) })
	}()
	return nil
}

func (c *Controller) permissionAnswered(gen uint64, err error) {
	if gen != c.attachGen {
		return
	}
	c.permPending = false
	if err != nil {
		c.log.Warn("tilt unavailable, using touch", "err", err)
		return
	}
	c.detach()
	if err := c.listenTilt(); err != nil {
		c.log.Warn("tilt unavailable, using touch", "err", err)
		if err := c.attachTouch(); err != nil {
			c.log.Error("no input source", "err", err)
		}
	}
}

func (c *Controller) listenTilt() error {
	stop, err := c.tilt.ListenTilt(c)
	if err != nil {
		return &UnsupportedInputError{Source: "tilt", Err: err}
	}
	c.stop = stop
	c.mode = ModeTilt
	c.log.Debug("input source attached", "mode", c.mode)
	return nil
}

func (c *Controller) attachTouch() error {
	if c.touch == nil {
		return &UnsupportedInputError{Source: "touch"}
	}
	stop, err := c.touch.ListenTouch(c)
	if err != nil {
		return &UnsupportedInputError{Source: "touch", Err: err}
	}
	c.stop = stop
	c.mode = ModeTouch
	c.log.Debug("input source attached", "mode", c.mode)
	return nil
}

func (c *Controller) detach() {
	c.attachGen++
	c.permPending = false
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	c.mode = ModeNone
	c.touching = false
	c.touchValue = Sample{}
}

// HandleTilt filters a tilt reading; ignored unless tilt is active
func (c *Controller) HandleTilt(ev TiltEvent) {
	if c.mode != ModeTilt || !ev.Valid {
		return
	}
	if !vmath.Finite(mgl64.Vec3{ev.Beta, ev.Gamma, 0}) {
		return
	}
	s := c.cfg.Smoothing
	c.filtered.Beta = c.filtered.Beta*s + ev.Beta*(1-s)
	c.filtered.Gamma = c.filtered.Gamma*s + ev.Gamma*(1-s)
	c.notify()
}

// HandleTouchStart records the drag reference point
func (c *Controller) HandleTouchStart(x, y float64) {
	if c.mode != ModeTouch {
		return
	}
	c.touching = true
	c.touchOrigin = [2]float64{x, y}
	c.touchValue = Sample{}
	c.notify()
}

// HandleTouchMove maps the drag offset to a sample
func (c *Controller) HandleTouchMove(x, y float64) {
	if c.mode != ModeTouch || !c.touching {
		return
	}
	w, h := c.touch.Extent()
	if w <= 0 || h <= 0 {
		return
	}
	dx := vmath.Clamp((x-c.touchOrigin[0])/(w/2), -1, 1)
	dy := vmath.Clamp((y-c.touchOrigin[1])/(h/2), -1, 1)
	c.touchValue = Sample{Beta: dy * c.cfg.TouchRange, Gamma: dx * c.cfg.TouchRange}
	c.notify()
}

// HandleTouchEnd releases the drag; the signal returns to zero
func (c *Controller) HandleTouchEnd() {
	if c.mode != ModeTouch || !c.touching {
		return
	}
	c.touching = false
	c.touchValue = Sample{}
	c.notify()
}

// Orientation returns the current steering sample
func (c *Controller) Orientation() Sample {
	switch c.mode {
	case ModeTilt:
		return Sample{
			Beta:  c.filtered.Beta - c.calibration.Beta,
			Gamma: c.filtered.Gamma - c.calibration.Gamma,
		}
	case ModeTouch:
		return c.touchValue
	default:
		return Sample{}
	}
}

// Calibrate makes the current filtered tilt the neutral position
func (c *Controller) Calibrate() {
	c.calibration = c.filtered
	c.log.Debug("input calibrated", "beta", c.calibration.Beta, "gamma", c.calibration.Gamma)
	c.notify()
}

// Calibration returns the stored neutral offset
func (c *Controller) Calibration() Sample { return c.calibration }

// Sensitivity returns the force multiplier
func (c *Controller) Sensitivity() float64 { return c.cfg.Sensitivity }

// SetSensitivity changes the force multiplier; non-positive values are ignored
func (c *Controller) SetSensitivity(k float64) {
	if k > 0 {
		c.cfg.Sensitivity = k
	}
}

// Force converts the current sample into a planar force
// Gamma drives x, Beta drives z; gravity owns y
func (c *Controller) Force() mgl64.Vec3 {
	o := c.Orientation()
	k := c.cfg.Sensitivity
	return mgl64.Vec3{o.Gamma * k, 0, o.Beta * k}
}

// OnChange registers fn to receive every updated sample
func (c *Controller) OnChange(fn func(Sample)) {
	if fn != nil {
		c.listeners = append(c.listeners, fn)
	}
}

func (c *Controller) notify() {
	if len(c.listeners) == 0 {
		return
	}
	o := c.Orientation()
	for _, fn := range c.listeners {
		fn(o)
	}
}
