// Package resource loads game assets (level files, sounds) from a file
// system described by a manifest
package resource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/roller/level"
)

// ErrResourceLoad marks every asset load failure
var ErrResourceLoad = errors.New("resource: load failed")

// LoadError reports the entry that failed
type LoadError struct {
	ID   string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("resource: load %s (%s): %v", e.ID, e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrResourceLoad, e.Err}
}

// Kind selects the decoder for an entry
type Kind string

const (
	KindLevel Kind = "level"
	KindSound Kind = "sound"
)

// Entry is one manifest item
// Optional entries that fail are logged and skipped
type Entry struct {
	ID       string `yaml:"id"`
	Kind     Kind   `yaml:"kind"`
	Path     string `yaml:"path"`
	Optional bool   `yaml:"optional,omitempty"`
}

// Manifest lists the assets loaded at startup
type Manifest struct {
	Entries []Entry `yaml:"entries"`
}

// ParseManifest decodes a YAML manifest
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("resource: manifest: %w", err)
	}
	seen := make(map[string]bool, len(m.Entries))
	for i, e := range m.Entries {
		switch {
		case e.ID == "":
			return Manifest{}, fmt.Errorf("resource: manifest entry %d: empty id", i)
		case e.Path == "":
			return Manifest{}, fmt.Errorf("resource: manifest entry %q: empty path", e.ID)
		case e.Kind != KindLevel && e.Kind != KindSound:
			return Manifest{}, fmt.Errorf("resource: manifest entry %q: unknown kind %q", e.ID, e.Kind)
		case seen[e.ID]:
			return Manifest{}, fmt.Errorf("resource: manifest entry %q: duplicate id", e.ID)
		}
		seen[e.ID] = true
	}
	return m, nil
}

// Bundle holds loaded assets by entry ID
type Bundle struct {
	Levels map[string]level.Description
	Sounds map[string]*beep.Buffer
}

func newBundle() *Bundle {
	return &Bundle{
		Levels: make(map[string]level.Description),
		Sounds: make(map[string]*beep.Buffer),
	}
}

// Level returns a copy of a loaded level
func (b *Bundle) Level(id string) (level.Description, bool) {
	d, ok := b.Levels[id]
	if !ok {
		return level.Description{}, false
	}
	return d.Clone(), true
}

// Sound returns a loaded sound buffer
func (b *Bundle) Sound(id string) (*beep.Buffer, bool) {
	s, ok := b.Sounds[id]
	return s, ok
}

// Progress receives the fraction of entries processed, in [0,1]
type Progress func(fraction float64)

// Loader reads assets from a file system
type Loader struct {
	fsys fs.FS
	log  *log.Logger
}

// NewLoader creates a loader over fsys
func NewLoader(fsys fs.FS, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Loader{fsys: fsys, log: logger}
}

// Load reads every entry in order
// The first failing mandatory entry aborts the load with a *LoadError
func (l *Loader) Load(ctx context.Context, entries []Entry, progress Progress) (*Bundle, error) {
	b := newBundle()
	total := len(entries)
	if progress != nil && total == 0 {
		progress(1)
	}

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, &LoadError{ID: e.ID, Path: e.Path, Err: err}
		}

		if err := l.loadEntry(b, e); err != nil {
			if !e.Optional {
				return nil, err
			}
			l.log.Warn("optional resource skipped", "id", e.ID, "err", err)
		}

		if progress != nil {
			progress(float64(i+1) / float64(total))
		}
	}

	l.log.Debug("resources loaded", "levels", len(b.Levels), "sounds", len(b.Sounds))
	return b, nil
}

func (l *Loader) loadEntry(b *Bundle, e Entry) error {
	switch e.Kind {
	case KindLevel:
		d, err := l.Level(e.Path)
		if err != nil {
			return &LoadError{ID: e.ID, Path: e.Path, Err: err}
		}
		b.Levels[e.ID] = d
	case KindSound:
		buf, err := l.Sound(e.Path)
		if err != nil {
			return &LoadError{ID: e.ID, Path: e.Path, Err: err}
		}
		b.Sounds[e.ID] = buf
	default:
		return &LoadError{ID: e.ID, Path: e.Path, Err: fmt.Errorf("unknown kind %q", e.Kind)}
	}
	return nil
}

// Level reads a JSON or zstd-compressed JSON level file
func (l *Loader) Level(path string) (level.Description, error) {
	data, err := fs.ReadFile(l.fsys, path)
	if err != nil {
		return level.Description{}, err
	}
	return level.Decode(path, data)
}

// Sound decodes a WAV file into memory
func (l *Loader) Sound(path string) (*beep.Buffer, error) {
	data, err := fs.ReadFile(l.fsys, path)
	if err != nil {
		return nil, err
	}
	streamer, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, err
	}
	return buf, nil
}
