// Package session is the top-level game state machine: it starts levels,
// drives the physics world from the steering controller, rates completions
// and persists progress
package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/lixenwraith/roller/config"
	"github.com/lixenwraith/roller/engine"
	"github.com/lixenwraith/roller/event"
	"github.com/lixenwraith/roller/input"
	"github.com/lixenwraith/roller/level"
	"github.com/lixenwraith/roller/maze"
	"github.com/lixenwraith/roller/physics"
	"github.com/lixenwraith/roller/render"
	"github.com/lixenwraith/roller/resource"
	"github.com/lixenwraith/roller/status"
	"github.com/lixenwraith/roller/storage"
)

var (
	ErrNoLevel     = errors.New("session: no level loaded")
	ErrMissingDeps = errors.New("session: missing dependency")
	errNoResources = errors.New("no resource loader configured")
	defaultGravity = mgl64.Vec3{0, -9.8, 0}
)

// Steering is the orientation controller as seen by the session
type Steering interface {
	Start(ctx context.Context) error
	Stop()
	Force() mgl64.Vec3
	Calibrate()
	SetSensitivity(k float64)
	UseTouchControls() bool
	SetUseTouchControls(ctx context.Context, use bool) error
	Mode() input.Mode
}

// Store is asynchronous key/value persistence; completions run on the
// frame thread
type Store interface {
	Save(key string, v any, done func(error))
	Load(key string, done func(data []byte, ok bool, err error))
}

// Resources loads global assets and hand-authored level files
type Resources interface {
	Load(ctx context.Context, entries []resource.Entry, progress resource.Progress) (*resource.Bundle, error)
	Level(path string) (level.Description, error)
}

// Deps are the collaborators a session coordinates
// Store, Resources, Bus, Factory, Render and Logger are optional
type Deps struct {
	Host      engine.FrameHost
	World     *physics.World
	Generator *maze.Generator
	Catalog   *level.Catalog
	Steering  Steering
	Store     Store
	Resources Resources
	Bus       *event.Bus
	Factory   render.Factory
	Render    func(Snapshot)
	Logger    *log.Logger
}

// Config tunes the session
type Config struct {
	Loop     engine.LoopConfig
	Runtime  level.RuntimeConfig
	Gravity  mgl64.Vec3
	Settings config.Settings
	// Manifest lists the global resources loaded by Init; mandatory entries
	// that fail prevent every Start
	Manifest []resource.Entry
	Progress resource.Progress
}

// DefaultConfig returns the game rules with default settings
func DefaultConfig() Config {
	return Config{
		Loop:     engine.DefaultLoopConfig(),
		Runtime:  level.DefaultRuntimeConfig(),
		Gravity:  defaultGravity,
		Settings: config.DefaultSettings(),
	}
}

// Snapshot is the HUD view of the session
type Snapshot struct {
	State     State
	LevelID   int
	Name      string
	Elapsed   float64
	ParTime   float64
	Stars     int // earned by the current completion, 0 before
	BestStars int
	Rolling   bool
	InputMode input.Mode
	FPS       float64
	Bodies    int
	SubSteps  uint64
}

// Session coordinates one player's game
//
// Every method runs on the frame thread; asynchronous work reaches the
// session only through completions posted by the host
type Session struct {
	host    engine.FrameHost
	world   *physics.World
	gen     *maze.Generator
	catalog *level.Catalog
	ctrl    Steering
	store   Store
	res     Resources
	bus     *event.Bus
	factory render.Factory
	draw    func(Snapshot)
	log     *log.Logger
	cfg     Config
	loop    *engine.Loop

	state   State
	visible bool
	rt      *level.Runtime
	info    level.Info
	stars   int
	err     error

	bundle *resource.Bundle
	resErr error

	settings      config.Settings
	settingsEpoch uint64
	progress      map[int]Record
	completed     []int
	lastLevel     int
}

// New validates deps and builds an idle session
func New(deps Deps, cfg Config) (*Session, error) {
	switch {
	case deps.Host == nil:
		return nil, fmt.Errorf("%w: host", ErrMissingDeps)
	case deps.World == nil:
		return nil, fmt.Errorf("%w: world", ErrMissingDeps)
	case deps.Generator == nil:
		return nil, fmt.Errorf("%w: generator", ErrMissingDeps)
	case deps.Catalog == nil:
		return nil, fmt.Errorf("%w: catalog", ErrMissingDeps)
	case deps.Steering == nil:
		return nil, fmt.Errorf("%w: steering", ErrMissingDeps)
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	if cfg.Gravity == (mgl64.Vec3{}) {
		cfg.Gravity = defaultGravity
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	factory := deps.Factory
	if factory == nil {
		factory = render.Discard{}
	}

	s := &Session{
		host:     deps.Host,
		world:    deps.World,
		gen:      deps.Generator,
		catalog:  deps.Catalog,
		ctrl:     deps.Steering,
		store:    deps.Store,
		res:      deps.Resources,
		bus:      deps.Bus,
		factory:  factory,
		draw:     deps.Render,
		log:      logger,
		cfg:      cfg,
		visible:  true,
		settings: cfg.Settings,
		progress: make(map[int]Record),
	}
	s.loop = engine.NewLoop(deps.Host, s.Update, s.Render, cfg.Loop)
	return s, nil
}

// Init loads the global resources and requests the stored settings and
// progress; stored values arrive through later completions
// A mandatory resource failure is returned and remembered: Start refuses
// to run with partial assets
func (s *Session) Init(ctx context.Context) error {
	s.applySettings(ctx, s.settings)
	s.loadStored()

	if len(s.cfg.Manifest) == 0 {
		return nil
	}
	if s.res == nil {
		s.resErr = &resource.LoadError{ID: "manifest", Err: errNoResources}
		return s.resErr
	}
	bundle, err := s.res.Load(ctx, s.cfg.Manifest, s.cfg.Progress)
	if err != nil {
		s.log.Error("global resources failed", "err", err)
		s.resErr = err
		return err
	}
	s.bundle = bundle
	return nil
}

// Bundle returns the global resources loaded by Init
func (s *Session) Bundle() *resource.Bundle { return s.bundle }

// Start unloads any current level and begins level id
func (s *Session) Start(ctx context.Context, id int) error {
	if s.resErr != nil {
		return fmt.Errorf("session: global resources: %w", s.resErr)
	}
	info, err := s.catalog.Lookup(id)
	if err != nil {
		return err
	}
	desc, err := s.describe(info)
	if err != nil {
		return err
	}

	s.teardown()
	s.world.SetGravity(s.cfg.Gravity)

	rt := level.NewRuntime(info.ID, desc, s.world, s.factory, s.bus, s.cfg.Runtime, s.log)
	if err := rt.Init(); err != nil {
		return err
	}
	if err := s.ctrl.Start(ctx); err != nil {
		rt.Unload()
		return fmt.Errorf("session: input: %w", err)
	}

	s.rt, s.info, s.stars, s.err = rt, info, 0, nil
	s.state = StateRunning
	s.loop.Start()
	if !s.visible {
		s.Pause()
	}

	s.lastLevel = info.ID
	s.save(storage.KeyLastLevel, info.ID)
	s.publish(event.TopicGameStart, event.GameStartPayload{LevelID: info.ID, Name: info.Name})
	s.log.Info("level started", "level", info.ID, "name", info.Name, "input", s.ctrl.Mode())
	return nil
}

// describe builds the blueprint from the catalog entry: a hand-authored
// file when named, the generator otherwise; the catalog par time wins
func (s *Session) describe(info level.Info) (level.Description, error) {
	var desc level.Description
	var err error
	if info.File == "" {
		desc, err = s.gen.Generate(info.Difficulty, info.Seed)
	} else {
		desc, err = s.levelFile(info)
	}
	if err != nil {
		return desc, fmt.Errorf("session: level %d: %w", info.ID, err)
	}
	desc.ParTime = info.ParTime
	if desc.Name == "" {
		desc.Name = info.Name
	}
	return desc, nil
}

// levelFile resolves a manifest level id loaded by Init, then falls back to
// reading the file as a path
func (s *Session) levelFile(info level.Info) (level.Description, error) {
	if s.bundle != nil {
		if d, ok := s.bundle.Level(info.File); ok {
			return d, nil
		}
	}
	if s.res == nil {
		return level.Description{}, &resource.LoadError{ID: info.Name, Path: info.File, Err: errNoResources}
	}
	return s.res.Level(info.File)
}

// Update is the fixed-step callback: steer, step, update the level, then
// check the win condition; a no-op unless running
func (s *Session) Update(dt float64) {
	if s.state != StateRunning || s.rt == nil {
		return
	}
	if err := s.world.ApplyForce(s.rt.Ball(), s.ctrl.Force(), nil); err != nil {
		s.fail(err)
		return
	}
	s.world.Step(dt)

	// Boundary resets happen inside the runtime update; the win check runs
	// on the settled position afterwards
	if err := s.rt.Update(dt); err != nil {
		s.fail(err)
		return
	}
	won, err := s.rt.CheckWinCondition()
	if err != nil {
		s.fail(err)
		return
	}
	if won {
		s.complete()
	}
}

func (s *Session) complete() {
	s.state = StateCompleted
	s.loop.Pause()

	stats := s.rt.CompletionStats()
	s.stars = Stars(stats.Elapsed, stats.ParTime)
	improved := s.recordCompletion(s.info.ID, s.stars, stats.Elapsed, stats.ParTime)

	s.log.Info("level complete", "level", s.info.ID, "elapsed", stats.Elapsed, "stars", s.stars)
	s.publish(event.TopicLevelComplete, event.LevelCompletePayload{
		LevelID:  s.info.ID,
		Elapsed:  stats.Elapsed,
		ParTime:  stats.ParTime,
		Stars:    s.stars,
		Improved: improved,
	})
	s.publish(event.TopicWin, event.LevelPayload{LevelID: s.info.ID})
}

// fail ends the session on a contract violation from the world or runtime
func (s *Session) fail(err error) {
	s.log.Error("session aborted", "level", s.info.ID, "err", err)
	id := s.info.ID
	s.teardown()
	s.err = err
	s.publish(event.TopicGameEnd, event.GameEndPayload{LevelID: id, Reason: ReasonError})
}

// Err returns the error that aborted the last session, if any
func (s *Session) Err() error { return s.err }

// Render is the per-frame callback
func (s *Session) Render() {
	if s.draw != nil {
		s.draw(s.Snapshot())
	}
}

// Pause stops simulation; a no-op unless running
func (s *Session) Pause() {
	if s.state != StateRunning {
		return
	}
	s.state = StatePaused
	s.loop.Pause()
	s.publish(event.TopicGamePause, nil)
}

// Resume continues a paused session; a no-op unless paused
func (s *Session) Resume() {
	if s.state != StatePaused {
		return
	}
	s.state = StateRunning
	s.loop.Resume()
	s.publish(event.TopicGameResume, nil)
}

// SetVisible records display visibility; hiding forces a running session
// into pause, showing does not resume it
func (s *Session) SetVisible(visible bool) {
	s.visible = visible
	if !visible {
		s.Pause()
	}
}

// Reset returns the ball to the start and clears the timer
// A completed level is replayed
func (s *Session) Reset() error {
	if s.rt == nil {
		return ErrNoLevel
	}
	if err := s.rt.Reset(); err != nil {
		return err
	}
	s.stars = 0
	if s.state == StateCompleted {
		s.state = StateRunning
		s.loop.Resume()
	}
	s.publish(event.TopicLevelReset, event.LevelPayload{LevelID: s.info.ID})
	return nil
}

// End returns to idle; a no-op when already idle
func (s *Session) End() {
	if s.state == StateIdle {
		return
	}
	s.endWith(ReasonUser)
}

func (s *Session) endWith(reason string) {
	id := s.info.ID
	s.teardown()
	s.publish(event.TopicGameEnd, event.GameEndPayload{LevelID: id, Reason: reason})
	s.log.Info("session ended", "level", id, "reason", reason)
}

// teardown stops the loop and input and unloads the level
func (s *Session) teardown() {
	s.loop.Stop()
	if s.rt != nil {
		s.rt.Unload()
		s.ctrl.Stop()
		s.rt = nil
	}
	s.state = StateIdle
}

// NextLevel starts the level after the current one
// After the last level the session ends and false is returned
func (s *Session) NextLevel(ctx context.Context) (bool, error) {
	if s.rt == nil {
		return false, ErrNoLevel
	}
	next, ok := s.catalog.Next(s.info.ID)
	if !ok {
		s.endWith(ReasonFinished)
		return false, nil
	}
	if err := s.Start(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Calibrate takes the current tilt as neutral
func (s *Session) Calibrate() { s.ctrl.Calibrate() }

// UpdateSettings validates, applies and saves st
func (s *Session) UpdateSettings(ctx context.Context, st config.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.settingsEpoch++
	s.applySettings(ctx, st)
	s.save(storage.KeySettings, st)
	return nil
}

// SetUseTouchControls switches between tilt and touch and saves the choice
func (s *Session) SetUseTouchControls(ctx context.Context, use bool) error {
	st := s.settings
	st.UseTouchControls = use
	return s.UpdateSettings(ctx, st)
}

// State returns the lifecycle state
func (s *Session) State() State { return s.state }

// Level returns the active catalog entry
func (s *Session) Level() (level.Info, bool) { return s.info, s.rt != nil }

// Snapshot returns the HUD view
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		State:     s.state,
		Stars:     s.stars,
		InputMode: s.ctrl.Mode(),
		FPS:       s.loop.FPS(),
		Bodies:    s.world.BodyCount(),
		SubSteps:  s.world.SubStepsTotal(),
	}
	if s.rt != nil {
		stats := s.rt.CompletionStats()
		snap.LevelID = s.info.ID
		snap.Name = s.info.Name
		snap.Elapsed = stats.Elapsed
		snap.ParTime = stats.ParTime
		snap.Rolling = s.rt.Rolling()
		snap.BestStars = s.LevelStars(s.info.ID)
	}
	return snap
}

func (s *Session) publish(topic event.Topic, payload any) {
	if s.bus != nil {
		s.bus.Publish(topic, payload)
	}
}

// Collect copies session counters into r; register it with r.Register
func (s *Session) Collect(r *status.Registry) {
	snap := s.Snapshot()
	r.Floats.Get(status.MetricFPS).Set(snap.FPS)
	r.Ints.Get(status.MetricUpdates).Store(int64(s.loop.UpdatesTotal()))
	r.Ints.Get(status.MetricSubSteps).Store(int64(snap.SubSteps))
	r.Ints.Get(status.MetricBodies).Store(int64(snap.Bodies))
	r.Strings.Get(status.MetricState).Store(snap.State.String())
	r.Ints.Get(status.MetricLevel).Store(int64(snap.LevelID))
	r.Floats.Get(status.MetricElapsed).Set(snap.Elapsed)
	r.Strings.Get(status.MetricInputMode).Store(snap.InputMode.String())
}
