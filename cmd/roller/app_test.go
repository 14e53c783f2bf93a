package main

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/roller/config"
	"github.com/lixenwraith/roller/engine"
	"github.com/lixenwraith/roller/render"
	"github.com/lixenwraith/roller/service"
	"github.com/lixenwraith/roller/session"
	"github.com/lixenwraith/roller/storage"
)

const frame = 20 * time.Millisecond

type testApp struct {
	*app
	host   *engine.ManualHost
	screen tcell.SimulationScreen
	quits  int
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := config.Default()
	cfg.DataPath = ""
	cfg.Audio.Enabled = false

	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen Init error = %v", err)
	}
	screen.SetSize(80, 30)
	t.Cleanup(screen.Fini)

	ta := &testApp{host: engine.NewManualHost(), screen: screen}
	a, err := newApp(context.Background(), func() { ta.quits++ }, cfg, screen, ta.host, nil)
	if err != nil {
		t.Fatalf("newApp error = %v", err)
	}
	t.Cleanup(a.close)
	ta.app = a

	if err := a.begin(1); err != nil {
		t.Fatalf("begin error = %v", err)
	}
	return ta
}

func (ta *testApp) key(r rune) {
	ta.handleEvent(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
}

func TestBeginStartsLevel(t *testing.T) {
	ta := newTestApp(t)
	ta.host.RunFrames(3, frame)

	if ta.sess.State() != session.StateRunning {
		t.Fatalf("State = %v, want running", ta.sess.State())
	}
	if _, ok := ta.scene.Find(render.KindBall); !ok {
		t.Error("scene has no ball")
	}
	if !ta.player.Silent() {
		t.Error("player not silent with audio disabled")
	}
	if got := ta.services.Started(); !slices.Equal(got, []string{"store", "audio"}) {
		t.Errorf("services started = %v, want [store audio]", got)
	}

	ta.close()
	if got := ta.services.Started(); len(got) != 0 {
		t.Errorf("services after close = %v, want none", got)
	}
}

func TestPauseKeyToggles(t *testing.T) {
	ta := newTestApp(t)
	ta.key('p')
	if ta.sess.State() != session.StatePaused {
		t.Fatalf("State = %v, want paused", ta.sess.State())
	}
	lines := ta.hud(ta.sess.Snapshot(), 80)
	if len(lines) < 2 || lines[1] != "PAUSED  p: resume  q: quit" {
		t.Errorf("hud = %q", lines)
	}
	ta.key('p')
	if ta.sess.State() != session.StateRunning {
		t.Errorf("State = %v, want running", ta.sess.State())
	}
}

func TestFocusLossPauses(t *testing.T) {
	ta := newTestApp(t)
	ta.handleEvent(tcell.NewEventFocus(false))
	if ta.sess.State() != session.StatePaused {
		t.Fatalf("State = %v, want paused", ta.sess.State())
	}
	ta.handleEvent(tcell.NewEventFocus(true))
	if ta.sess.State() != session.StatePaused {
		t.Errorf("State after focus = %v, want paused", ta.sess.State())
	}
}

func TestQuitKey(t *testing.T) {
	ta := newTestApp(t)
	ta.handleEvent(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl))
	if ta.quits != 1 {
		t.Errorf("quit called %d times, want 1", ta.quits)
	}
	if ta.sess.State() != session.StateIdle {
		t.Errorf("State = %v, want idle", ta.sess.State())
	}
}

func TestToggleKeys(t *testing.T) {
	ta := newTestApp(t)

	ta.key('m')
	if !ta.player.Muted() {
		t.Error("m did not mute")
	}

	ta.key('t')
	if !ta.sess.Settings().UseTouchControls {
		t.Error("t did not switch to touch controls")
	}
}

func TestArrowSteersKeyboard(t *testing.T) {
	ta := newTestApp(t)
	ta.sess.SetUseTouchControls(context.Background(), true)

	ta.handleEvent(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone))
	if !ta.keyboard.Active() {
		t.Fatal("arrow key did not start a drag")
	}
	if f := ta.ctrl.Force(); f.X() <= 0 {
		t.Errorf("Force = %v, want +x", f)
	}

	// Released after the hold expires on a later frame
	ta.host.RunFrames(20, frame)
	if ta.keyboard.Active() {
		t.Error("drag still active after hold")
	}
}

func TestQualityFollowsSettings(t *testing.T) {
	ta := newTestApp(t)
	st := ta.sess.Settings()
	st.Quality = config.QualityHigh
	if err := ta.sess.UpdateSettings(context.Background(), st); err != nil {
		t.Fatalf("UpdateSettings error = %v", err)
	}
	if ta.term.Quality() != render.QualityHigh {
		t.Errorf("Quality = %v, want high", ta.term.Quality())
	}
}

func TestDebugHUDShowsMetrics(t *testing.T) {
	ta := newTestApp(t)
	ta.cfg.Debug = true
	ta.host.Advance(frame)

	lines := ta.hud(ta.sess.Snapshot(), 80)
	found := false
	for _, l := range lines {
		if len(l) > 0 && l[0] == 'a' {
			found = true
		}
	}
	if !found {
		t.Errorf("hud = %q, want metric rows", lines)
	}
}

func TestStars(t *testing.T) {
	if got := stars(2); got != "★★☆" {
		t.Errorf("stars(2) = %q", got)
	}
	if got := stars(5); got != "★★★" {
		t.Errorf("stars(5) = %q", got)
	}
}

func TestRegisterAllRejectsDuplicate(t *testing.T) {
	store := storage.NewAsync(storage.NewMemory(), engine.NewManualHost(), time.Second, nil)
	t.Cleanup(func() { store.Close() })

	hub := service.NewHub(nil)
	err := registerAll(hub, []service.Service{storeService{store}, storeService{store}})
	if !errors.Is(err, service.ErrDuplicate) {
		t.Errorf("registerAll error = %v, want ErrDuplicate", err)
	}
	if _, ok := hub.Get("store"); !ok {
		t.Error("first store service not registered")
	}
}
