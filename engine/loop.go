// Package engine drives the simulation: a fixed-timestep loop on top of a
// cooperative frame host
package engine

import (
	"time"
)

// LoopConfig tunes the loop
type LoopConfig struct {
	FixedStep     float64       // seconds per update
	MaxFrameDelta float64       // longest frame delta accepted, in seconds
	FPSWindow     time.Duration // FPS sampling window
}

// DefaultLoopConfig returns 60 Hz updates with a 0.25 s frame clamp
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		FixedStep:     1.0 / 60.0,
		MaxFrameDelta: 0.25,
		FPSWindow:     time.Second,
	}
}

// stepEpsilon lets N frames of exactly N fixed steps run N updates despite
// float drift in the accumulator
const stepEpsilon = 1e-9

// Loop runs update at a fixed rate and render once per frame
//
// Lifecycle:
//   - Start: stopped -> running, requests the first frame
//   - Pause/Resume: cancel or re-request frames; the accumulator is kept and
//     the frame clock restarts on resume so a pause never becomes a time jump
//   - Stop: running or paused -> stopped
type Loop struct {
	host   FrameHost
	update func(dt float64)
	render func()
	cfg    LoopConfig

	running bool
	paused  bool
	frame   FrameID

	lastTime    time.Duration
	accumulator float64

	fps          float64
	windowFrames int
	windowStart  time.Duration
	updatesTotal uint64
	framesTotal  uint64
}

// NewLoop binds callbacks to a host; zero config fields take defaults
func NewLoop(host FrameHost, update func(dt float64), render func(), cfg LoopConfig) *Loop {
	def := DefaultLoopConfig()
	if cfg.FixedStep <= 0 {
		cfg.FixedStep = def.FixedStep
	}
	if cfg.MaxFrameDelta <= 0 {
		cfg.MaxFrameDelta = def.MaxFrameDelta
	}
	if cfg.FPSWindow <= 0 {
		cfg.FPSWindow = def.FPSWindow
	}
	if update == nil {
		update = func(float64) {}
	}
	if render == nil {
		render = func() {}
	}
	return &Loop{host: host, update: update, render: render, cfg: cfg}
}

// Start begins requesting frames; no-op when already running
func (l *Loop) Start() {
	if l.running {
		return
	}
	l.running = true
	l.paused = false
	l.accumulator = 0
	l.lastTime = l.host.Now()
	l.windowStart = l.lastTime
	l.windowFrames = 0
	l.request()
}

// Stop cancels the pending frame; no-op when stopped
func (l *Loop) Stop() {
	if !l.running {
		return
	}
	l.running = false
	l.paused = false
	l.cancel()
}

// Pause cancels the pending frame; no-op unless running
func (l *Loop) Pause() {
	if !l.running || l.paused {
		return
	}
	l.paused = true
	l.cancel()
}

// Resume restarts the frame clock and requests a frame; no-op unless paused
func (l *Loop) Resume() {
	if !l.running || !l.paused {
		return
	}
	l.paused = false
	l.lastTime = l.host.Now()
	l.request()
}

// Running reports whether the loop was started and not stopped
func (l *Loop) Running() bool { return l.running }

// Paused reports whether the loop is paused
func (l *Loop) Paused() bool { return l.paused }

// FPS returns the frame rate measured over the last completed window
func (l *Loop) FPS() float64 { return l.fps }

// UpdatesTotal returns the number of fixed updates run
func (l *Loop) UpdatesTotal() uint64 { return l.updatesTotal }

// FramesTotal returns the number of frames rendered
func (l *Loop) FramesTotal() uint64 { return l.framesTotal }

func (l *Loop) request() {
	l.frame = l.host.RequestFrame(l.tick)
}

func (l *Loop) cancel() {
	if l.frame != 0 {
		l.host.CancelFrame(l.frame)
		l.frame = 0
	}
}

func (l *Loop) tick(now time.Duration) {
	l.frame = 0
	if !l.running || l.paused {
		return
	}

	// 1. Frame delta, clamped against stalls and clock skew
	delta := (now - l.lastTime).Seconds()
	l.lastTime = now
	if delta < 0 {
		delta = 0
	}
	if delta > l.cfg.MaxFrameDelta {
		delta = l.cfg.MaxFrameDelta
	}

	// 2. FPS window
	l.windowFrames++
	if elapsed := now - l.windowStart; elapsed >= l.cfg.FPSWindow {
		l.fps = float64(l.windowFrames) / elapsed.Seconds()
		l.windowFrames = 0
		l.windowStart = now
	}

	// 3. Fixed updates; an update may pause or stop the loop
	l.accumulator += delta
	step := l.cfg.FixedStep
	for l.accumulator >= step-stepEpsilon {
		l.update(step)
		l.accumulator -= step
		l.updatesTotal++
		if !l.running || l.paused {
			break
		}
	}
	if l.accumulator < 0 {
		l.accumulator = 0
	}

	// 4. One render per frame
	l.render()
	l.framesTotal++

	if l.running && !l.paused {
		l.request()
	}
}
