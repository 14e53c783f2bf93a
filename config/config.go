// Package config loads the roller YAML configuration and holds the
// player's settings model
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/roller/audio"
	"github.com/lixenwraith/roller/input"
	"github.com/lixenwraith/roller/level"
	"github.com/lixenwraith/roller/network"
	"github.com/lixenwraith/roller/storage"
)

// Config is the file-level configuration of the terminal game
type Config struct {
	Debug     bool   `yaml:"debug"`
	LogPath   string `yaml:"log_path"`
	DataPath  string `yaml:"data_path"` // sqlite database; empty keeps progress in memory
	Namespace string `yaml:"namespace"`
	Assets    string `yaml:"assets"` // directory holding manifest.yaml; empty uses synthesized sounds only

	StartLevel int `yaml:"start_level"`
	FPS        int `yaml:"fps"`

	Audio  Audio  `yaml:"audio"`
	Input  Input  `yaml:"input"`
	Bridge Bridge `yaml:"bridge"`

	// Levels replaces the shipped campaign; an entry with a file plays that
	// manifest level id or assets path instead of a generated maze
	Levels []level.Info `yaml:"levels"`

	// Keys overrides bindings: key or rune name to action name
	Keys map[string]string `yaml:"keys"`

	// Settings seed the preferences until a stored record is loaded
	Settings Settings `yaml:"settings"`
}

// Audio configures the output device
type Audio struct {
	Enabled    bool `yaml:"enabled"`
	SampleRate int  `yaml:"sample_rate"`
	BufferMs   int  `yaml:"buffer_ms"`
}

// Input tunes the orientation filter and the keyboard drag emulation
type Input struct {
	Smoothing  float64 `yaml:"smoothing"`
	TouchRange float64 `yaml:"touch_range"`
	KeyHoldMs  int     `yaml:"key_hold_ms"`
	KeyStep    float64 `yaml:"key_step"`
}

// Bridge configures the phone sensor websocket
type Bridge struct {
	Listen      string `yaml:"listen"` // empty disables the bridge
	Path        string `yaml:"path"`
	MaxPeers    int    `yaml:"max_peers"`
	Compression bool   `yaml:"compression"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		LogPath:    "logs/roller.log",
		DataPath:   "data/roller.db",
		Namespace:  storage.DefaultNamespace,
		StartLevel: 1,
		FPS:        60,
		Audio: Audio{
			Enabled:    true,
			SampleRate: 44100,
			BufferMs:   100,
		},
		Input: Input{
			Smoothing:  0.8,
			TouchRange: 20,
			KeyHoldMs:  200,
			KeyStep:    0.5,
		},
		Bridge: Bridge{
			Path:     "/input",
			MaxPeers: 4,
		},
		Settings: DefaultSettings(),
	}
}

// Load reads path over the defaults; an empty path returns the defaults
// Unknown keys are rejected so typos surface instead of silently reverting
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := cfg.decode(raw); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes YAML bytes over the defaults
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := cfg.decode(raw); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(raw []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks every section
func (c Config) Validate() error {
	if c.StartLevel < 1 {
		return fmt.Errorf("config: start level %d must be at least 1", c.StartLevel)
	}
	if c.FPS <= 0 || c.FPS > 240 {
		return fmt.Errorf("config: fps %d outside 1..240", c.FPS)
	}
	if c.Input.Smoothing < 0 || c.Input.Smoothing >= 1 {
		return fmt.Errorf("config: smoothing %v outside [0,1)", c.Input.Smoothing)
	}
	if c.Input.TouchRange <= 0 {
		return fmt.Errorf("config: touch range %v must be positive", c.Input.TouchRange)
	}
	if err := c.AudioConfig().Validate(); err != nil {
		return err
	}
	if c.Bridge.Listen != "" {
		if err := c.BridgeConfig().Validate(); err != nil {
			return err
		}
	}
	if _, err := c.Keymap(); err != nil {
		return err
	}
	if _, err := c.Catalog(); err != nil {
		return err
	}
	return c.Settings.Validate()
}

// FrameInterval returns the frame host refresh interval
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

// AudioConfig maps the audio section and the volume settings
func (c Config) AudioConfig() audio.Config {
	a := audio.DefaultConfig()
	a.Enabled = c.Audio.Enabled
	if c.Audio.SampleRate > 0 {
		a.SampleRate = c.Audio.SampleRate
	}
	if c.Audio.BufferMs > 0 {
		a.Buffer = time.Duration(c.Audio.BufferMs) * time.Millisecond
	}
	a.MusicVolume = c.Settings.MusicVolume
	a.SfxVolume = c.Settings.SfxVolume
	return a
}

// InputConfig maps the input section and the steering settings
func (c Config) InputConfig() input.Config {
	return input.Config{
		Smoothing:        c.Input.Smoothing,
		TouchRange:       c.Input.TouchRange,
		Sensitivity:      c.Settings.Sensitivity.Multiplier(),
		UseTouchControls: c.Settings.UseTouchControls,
	}
}

// KeyHold returns how long an arrow key press keeps steering
func (c Config) KeyHold() time.Duration {
	return time.Duration(c.Input.KeyHoldMs) * time.Millisecond
}

// BridgeConfig maps the bridge section
func (c Config) BridgeConfig() network.Config {
	n := network.DefaultConfig()
	n.Address = c.Bridge.Listen
	if c.Bridge.Path != "" {
		n.Path = c.Bridge.Path
	}
	if c.Bridge.MaxPeers > 0 {
		n.MaxPeers = c.Bridge.MaxPeers
	}
	n.Compression = c.Bridge.Compression
	return n
}

// Keymap returns the default bindings with the configured overrides
func (c Config) Keymap() (*input.Keymap, error) {
	km := input.DefaultKeymap()
	if len(c.Keys) == 0 {
		return km, nil
	}
	if err := km.Override(c.Keys); err != nil {
		return km, fmt.Errorf("config: keys: %w", err)
	}
	return km, nil
}

// Catalog returns the configured campaign, or the shipped one when the
// levels section is empty
func (c Config) Catalog() (*level.Catalog, error) {
	if len(c.Levels) == 0 {
		return level.DefaultCatalog(), nil
	}
	cat, err := level.NewCatalog(c.Levels)
	if err != nil {
		return nil, fmt.Errorf("config: levels: %w", err)
	}
	return cat, nil
}
