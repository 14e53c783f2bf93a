package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/roller/audio"
	"github.com/lixenwraith/roller/config"
	"github.com/lixenwraith/roller/engine"
	"github.com/lixenwraith/roller/event"
	"github.com/lixenwraith/roller/input"
	"github.com/lixenwraith/roller/maze"
	"github.com/lixenwraith/roller/network"
	"github.com/lixenwraith/roller/physics"
	"github.com/lixenwraith/roller/render"
	"github.com/lixenwraith/roller/resource"
	"github.com/lixenwraith/roller/service"
	"github.com/lixenwraith/roller/session"
	"github.com/lixenwraith/roller/status"
	"github.com/lixenwraith/roller/storage"
)

const (
	manifestFile = "manifest.yaml"
	storeTimeout = 5 * time.Second
)

// app owns every subsystem of the terminal game
// All methods run on the frame host thread except close
type app struct {
	cfg    config.Config
	log    *log.Logger
	ctx    context.Context
	quit   func()
	screen tcell.Screen
	host   engine.FrameHost

	services *service.Hub
	bus      *event.Bus
	store    *storage.Async
	player   *audio.Player
	keyboard *input.KeyboardSource
	keymap   *input.Keymap
	ctrl     *input.Controller
	bridge   *network.Bridge
	scene    *render.Scene
	term     *render.Terminal
	registry *status.Registry
	sess     *session.Session

	notice string
}

// newApp wires the subsystems; the bridge listens when configured
// Nothing is played until begin
func newApp(ctx context.Context, quit func(), cfg config.Config, screen tcell.Screen, host engine.FrameHost, logger *log.Logger) (*app, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	a := &app{
		cfg:      cfg,
		log:      logger,
		ctx:      ctx,
		quit:     quit,
		screen:   screen,
		host:     host,
		services: service.NewHub(logger),
		bus:      event.NewBus(logger),
		keyboard: input.NewKeyboardSource(cfg.KeyHold(), cfg.Input.KeyStep),
		scene:    render.NewScene(),
		registry: status.NewRegistry(),
	}

	keymap, err := cfg.Keymap()
	if err != nil {
		return nil, err
	}
	a.keymap = keymap

	backend, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a.store = storage.NewAsync(backend, host, storeTimeout, logger)
	a.player = audio.NewPlayer(cfg.AudioConfig(), logger)
	a.player.Attach(a.bus)
	svcs := []service.Service{storeService{a.store}, audioService{a.player}}

	// The bridge supplies phone tilt; the keyboard stands in for touch
	var tilt input.TiltSource
	if bcfg := cfg.BridgeConfig(); bcfg.Enabled() {
		a.bridge = network.NewBridge(bcfg, host, logger)
		svcs = append(svcs, bridgeService{a.bridge})
		tilt = a.bridge
	}
	if err := registerAll(a.services, svcs); err != nil {
		if cerr := a.store.Close(); cerr != nil {
			logger.Warn("store close", "err", cerr)
		}
		return nil, err
	}
	if err := a.services.StartAll(ctx); err != nil {
		return nil, err
	}
	if a.bridge != nil {
		logger.Info("sensor bridge listening", "addr", a.bridge.Addr())
	}
	a.ctrl = input.NewController(cfg.InputConfig(), tilt, a.keyboard, logger)
	a.ctrl.SetPoster(host)

	a.term = render.NewTerminal(screen, a.scene)
	a.term.SetQuality(render.ParseQuality(string(cfg.Settings.Quality)))
	a.bus.Subscribe(event.TopicSettingsChange, func(payload any) {
		if p, ok := payload.(event.SettingsPayload); ok {
			a.term.SetQuality(render.ParseQuality(p.Quality))
		}
	})
	a.bus.Subscribe(event.TopicGameStart, func(any) { a.notice = "" })
	a.bus.Subscribe(event.TopicGameEnd, func(payload any) {
		if p, ok := payload.(event.GameEndPayload); ok && p.Reason == session.ReasonFinished {
			a.notice = "All levels complete!  q: quit"
		}
	})

	gen, err := maze.NewGenerator(maze.DefaultConfig())
	if err != nil {
		a.close()
		return nil, err
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		a.close()
		return nil, err
	}

	scfg := session.DefaultConfig()
	scfg.Loop.FixedStep = 1 / float64(cfg.FPS)
	scfg.Settings = cfg.Settings

	var res session.Resources
	if cfg.Assets != "" {
		fsys := os.DirFS(cfg.Assets)
		manifest, err := readManifest(fsys)
		if err != nil {
			a.close()
			return nil, err
		}
		scfg.Manifest = manifest.Entries
		res = resource.NewLoader(fsys, logger)
	}

	a.sess, err = session.New(session.Deps{
		Host:      host,
		World:     physics.NewWorld(physics.DefaultConfig(), logger),
		Generator: gen,
		Catalog:   catalog,
		Steering:  a.ctrl,
		Store:     a.store,
		Resources: res,
		Bus:       a.bus,
		Factory:   a.scene,
		Render:    a.draw,
		Logger:    logger,
	}, scfg)
	if err != nil {
		a.close()
		return nil, err
	}

	a.registry.Register(a.sess.Collect)
	a.registry.Register(a.collect)
	return a, nil
}

// openStore returns sqlite at the configured path or an in-memory store
func openStore(cfg config.Config) (storage.Store, error) {
	if cfg.DataPath == "" {
		return storage.NewMemory(), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DataPath), 0o755); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	return storage.OpenSQLite(cfg.DataPath, cfg.Namespace)
}

func readManifest(fsys fs.FS) (resource.Manifest, error) {
	data, err := fs.ReadFile(fsys, manifestFile)
	if errors.Is(err, fs.ErrNotExist) {
		return resource.Manifest{}, nil
	}
	if err != nil {
		return resource.Manifest{}, fmt.Errorf("assets: %w", err)
	}
	return resource.ParseManifest(data)
}

// begin loads resources and stored state, then starts level id
// id 0 resumes the last played level once the stored record arrives
func (a *app) begin(id int) error {
	if err := a.sess.Init(a.ctx); err != nil {
		return err
	}
	if b := a.sess.Bundle(); b != nil {
		a.player.UseSounds(b.Sounds)
	}
	if id > 0 {
		return a.start(id)
	}

	// The store runs requests in order, so this completion follows the
	// session's own lastLevel load
	a.store.Load(storage.KeyLastLevel, func([]byte, bool, error) {
		id := a.cfg.StartLevel
		if last, ok := a.sess.LastLevel(); ok {
			id = last
		}
		if err := a.start(id); err != nil {
			a.log.Error("resume failed", "level", id, "err", err)
			a.notice = err.Error()
			a.redraw()
		}
	})
	return nil
}

func (a *app) start(id int) error {
	if err := a.sess.Start(a.ctx, id); err != nil {
		return fmt.Errorf("start level %d: %w", id, err)
	}
	return nil
}

// handleEvent applies one terminal event
func (a *app) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		a.handleAction(a.keymap.Resolve(ev))
	case *tcell.EventResize:
		a.screen.Sync()
	case *tcell.EventFocus:
		a.sess.SetVisible(ev.Focused)
	}
	if a.sess.State() != session.StateRunning {
		a.redraw()
	}
}

func (a *app) handleAction(action input.Action) {
	if dir, ok := action.Direction(); ok {
		a.keyboard.Press(dir, a.host.Now())
		return
	}

	switch action {
	case input.ActionQuit:
		a.sess.End()
		a.quit()
	case input.ActionPause:
		switch a.sess.State() {
		case session.StateRunning:
			a.sess.Pause()
		case session.StatePaused:
			a.sess.Resume()
		}
	case input.ActionReset:
		if err := a.sess.Reset(); err != nil && !errors.Is(err, session.ErrNoLevel) {
			a.log.Error("reset failed", "err", err)
		}
	case input.ActionCalibrate:
		a.sess.Calibrate()
	case input.ActionNextLevel:
		if a.sess.State() != session.StateCompleted {
			return
		}
		if _, err := a.sess.NextLevel(a.ctx); err != nil {
			a.log.Error("next level failed", "err", err)
			a.notice = err.Error()
		}
	case input.ActionToggleTouch:
		use := !a.sess.Settings().UseTouchControls
		if err := a.sess.SetUseTouchControls(a.ctx, use); err != nil {
			a.log.Warn("input switch failed", "err", err)
		}
	case input.ActionToggleMute:
		a.player.SetMuted(!a.player.Muted())
	}
}

// collect copies bridge and audio counters into the registry
func (a *app) collect(r *status.Registry) {
	if a.bridge != nil {
		st := a.bridge.Stats()
		r.Ints.Get(status.MetricPeers).Store(int64(st.Peers))
		r.Ints.Get(status.MetricRejected).Store(int64(st.Rejected))
	}
	var cues int64
	for _, n := range a.player.Stats().Played {
		cues += int64(n)
	}
	r.Ints.Get(status.MetricCues).Store(cues)
	r.Bools.Get(status.MetricAudioMuted).Store(a.player.Muted())
}

// draw is the per-frame render callback
func (a *app) draw(snap session.Snapshot) {
	a.keyboard.Expire(a.host.Now())
	w, _ := a.screen.Size()
	a.term.Draw(render.HUD{Lines: a.hud(snap, w)})
}

func (a *app) redraw() { a.draw(a.sess.Snapshot()) }

func stars(n int) string {
	n = max(0, min(n, 3))
	return strings.Repeat("★", n) + strings.Repeat("☆", 3-n)
}

// hud formats the status lines under the map
func (a *app) hud(snap session.Snapshot, width int) []string {
	var lines []string
	if snap.LevelID != 0 {
		lines = append(lines, fmt.Sprintf("Level %d: %s  time %.1fs  par %.0fs  best %s  input %s",
			snap.LevelID, snap.Name, snap.Elapsed, snap.ParTime, stars(snap.BestStars), snap.InputMode))
	}

	switch {
	case a.notice != "":
		lines = append(lines, a.notice)
	case snap.State == session.StatePaused:
		lines = append(lines, "PAUSED  p: resume  q: quit")
	case snap.State == session.StateCompleted:
		lines = append(lines, fmt.Sprintf("COMPLETE %s in %.1fs  n: next level  r: retry", stars(snap.Stars), snap.Elapsed))
	case snap.State == session.StateRunning && snap.Elapsed < 3:
		lines = append(lines, "arrows/wasd: tilt  c: calibrate  t: touch/tilt  p: pause")
	}

	if a.cfg.Debug {
		a.registry.Collect()
		lines = append(lines, a.registry.Lines(width)...)
	}
	return lines
}

// close stops the services in reverse start order; queued saves are
// flushed before the database closes
func (a *app) close() {
	if err := a.services.StopAll(); err != nil {
		a.log.Warn("shutdown", "err", err)
	}
}
