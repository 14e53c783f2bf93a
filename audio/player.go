// Package audio maps game events to sound: wav buffers when loaded,
// synthesized cues otherwise
package audio

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/roller/event"
)

// Cue identifies a game sound
type Cue uint8

const (
	CueCollision Cue = iota
	CueWin
	CueRoll
	cueCount
)

// cueIDs are the resource IDs looked up for each cue
var cueIDs = [cueCount]string{
	CueCollision: "collision",
	CueWin:       "win",
	CueRoll:      "roll",
}

func (c Cue) String() string {
	if c < cueCount {
		return cueIDs[c]
	}
	return "unknown"
}

// Stats counts cues since creation
type Stats struct {
	Played [cueCount]int
	Silent bool
}

// Player mixes one-shot effects and the rolling loop
//
// Architecture:
//   - One beep mixer behind a master volume; the speaker pulls from it on
//     its own goroutine, so mixer changes happen under the speaker lock
//   - Without an output device the player runs silent and only counts cues
//   - Bus handlers are the only producers; Attach subscribes, Detach stops
type Player struct {
	cfg  Config
	log  *log.Logger
	rate beep.SampleRate

	mu      sync.Mutex // guards mixer state when no speaker is open
	speaker bool
	silent  bool
	mixer   *beep.Mixer
	master  *effects.Volume
	sounds  map[string]*beep.Buffer

	roll       *beep.Ctrl
	rollVolume *effects.Volume

	bus  *event.Bus
	subs []event.SubscriptionID

	stats Stats
}

// NewPlayer creates a player; no device is opened until OpenSpeaker
func NewPlayer(cfg Config, logger *log.Logger) *Player {
	def := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	mixer := &beep.Mixer{}
	p := &Player{
		cfg:    cfg,
		log:    logger,
		rate:   beep.SampleRate(cfg.SampleRate),
		mixer:  mixer,
		master: newVolume(mixer, 1),
		sounds: make(map[string]*beep.Buffer),
		silent: !cfg.Enabled,
	}
	return p
}

// OpenSpeaker starts playback on the default device
// A missing device switches the player to silent mode instead of failing
func (p *Player) OpenSpeaker() {
	if p.silent || p.speaker {
		return
	}
	if err := speaker.Init(p.rate, p.rate.N(p.cfg.Buffer)); err != nil {
		p.log.Warn("audio device unavailable, running silent", "err", err)
		p.silent = true
		return
	}
	p.speaker = true
	speaker.Play(p.master)
}

// Close stops playback and detaches from the bus
func (p *Player) Close() {
	p.Detach()
	p.lock()
	p.mixer.Clear()
	p.roll = nil
	p.unlock()
	if p.speaker {
		speaker.Close()
		p.speaker = false
	}
}

func (p *Player) lock() {
	if p.speaker {
		speaker.Lock()
		return
	}
	p.mu.Lock()
}

func (p *Player) unlock() {
	if p.speaker {
		speaker.Unlock()
		return
	}
	p.mu.Unlock()
}

// Silent reports whether output is disabled
func (p *Player) Silent() bool { return p.silent }

// UseSounds installs decoded buffers keyed by cue resource ID
func (p *Player) UseSounds(sounds map[string]*beep.Buffer) {
	for id, buf := range sounds {
		if buf != nil {
			p.sounds[id] = buf
		}
	}
}

// SetVolumes updates music and effect gain, clamped to [0,1]
func (p *Player) SetVolumes(music, sfx float64) {
	p.cfg.MusicVolume = clamp01(music)
	p.cfg.SfxVolume = clamp01(sfx)
	p.lock()
	if p.rollVolume != nil {
		setGain(p.rollVolume, p.cfg.MusicVolume)
	}
	p.unlock()
}

// SetMuted silences the master output
func (p *Player) SetMuted(muted bool) {
	p.lock()
	p.master.Silent = muted
	p.unlock()
}

// Muted reports the master mute state
func (p *Player) Muted() bool {
	p.lock()
	defer p.unlock()
	return p.master.Silent
}

// Stats returns cue counters
func (p *Player) Stats() Stats {
	s := p.stats
	s.Silent = p.silent
	return s
}

// Active returns the number of streams in the mixer
func (p *Player) Active() int {
	p.lock()
	defer p.unlock()
	return p.mixer.Len()
}

// Attach subscribes to game events on bus, replacing a previous attachment
func (p *Player) Attach(bus *event.Bus) {
	p.Detach()
	p.bus = bus
	p.subs = []event.SubscriptionID{
		bus.Subscribe(event.TopicCollision, func(payload any) {
			if c, ok := payload.(event.CollisionPayload); ok {
				p.Play(CueCollision, c.Volume)
			}
		}),
		bus.Subscribe(event.TopicWin, func(any) { p.Play(CueWin, 1) }),
		bus.Subscribe(event.TopicRollStart, func(payload any) {
			if r, ok := payload.(event.RollPayload); ok {
				p.StartRoll(r.Volume)
			}
		}),
		bus.Subscribe(event.TopicRollStop, func(any) { p.StopRoll() }),
		bus.Subscribe(event.TopicGamePause, func(any) { p.StopRoll() }),
		bus.Subscribe(event.TopicGameEnd, func(any) { p.StopRoll() }),
		bus.Subscribe(event.TopicSettingsChange, func(payload any) {
			if s, ok := payload.(event.SettingsPayload); ok {
				p.SetVolumes(s.MusicVolume, s.SfxVolume)
			}
		}),
	}
}

// Detach removes all bus subscriptions
func (p *Player) Detach() {
	if p.bus == nil {
		return
	}
	for _, id := range p.subs {
		p.bus.Unsubscribe(id)
	}
	p.bus, p.subs = nil, nil
}

// Play mixes a one-shot cue at gain volume×sfx volume
func (p *Player) Play(cue Cue, volume float64) {
	if cue >= cueCount || cue == CueRoll {
		return
	}
	p.stats.Played[cue]++
	if p.silent {
		return
	}

	gain := clamp01(volume) * p.cfg.SfxVolume
	if gain <= 0 {
		return
	}
	s := newVolume(p.source(cue), gain)

	p.lock()
	p.mixer.Add(s)
	p.unlock()
}

// StartRoll starts the rolling loop or updates its gain
func (p *Player) StartRoll(volume float64) {
	if p.silent {
		return
	}
	gain := clamp01(volume) * p.cfg.MusicVolume

	p.lock()
	defer p.unlock()
	if p.roll != nil && !p.roll.Paused {
		setGain(p.rollVolume, gain)
		return
	}
	p.stats.Played[CueRoll]++
	p.rollVolume = newVolume(p.source(CueRoll), gain)
	p.roll = &beep.Ctrl{Streamer: p.rollVolume}
	p.mixer.Add(p.roll)
}

// StopRoll pauses the rolling loop
func (p *Player) StopRoll() {
	p.lock()
	defer p.unlock()
	if p.roll != nil {
		p.roll.Paused = true
		p.roll.Streamer = nil // drained on the next mix pass
		p.roll = nil
	}
}

// Rolling reports whether the rolling loop plays
func (p *Player) Rolling() bool {
	p.lock()
	defer p.unlock()
	return p.roll != nil
}

// source returns the loaded buffer for cue, resampled to the output rate,
// or the synthesized fallback
func (p *Player) source(cue Cue) beep.Streamer {
	if buf, ok := p.sounds[cueIDs[cue]]; ok && buf.Len() > 0 {
		var s beep.Streamer = buf.Streamer(0, buf.Len())
		if cue == CueRoll {
			s = beep.Loop(-1, buf.Streamer(0, buf.Len()))
		}
		if buf.Format().SampleRate != p.rate {
			s = beep.Resample(4, buf.Format().SampleRate, p.rate, s)
		}
		return s
	}
	switch cue {
	case CueCollision:
		return collisionSound(p.rate)
	case CueWin:
		return winSound(p.rate)
	default:
		return rollSound(p.rate)
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
