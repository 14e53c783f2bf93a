package resource

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"testing/fstest"
)

const courtyard = `{
  "name": "courtyard",
  "parTime": 40,
  "size": {"width": 12, "height": 1, "depth": 12},
  "start": {"x": -4, "y": 0.5, "z": -4},
  "end": {"x": 4, "y": 0.5, "z": 4},
  "walls": [{"start": {"x": -2, "z": 0}, "end": {"x": 2, "z": 0}, "height": 2}],
  "ball": {"radius": 0.5, "mass": 1}
}`

// pcmWAV builds a mono 16-bit PCM file with n samples
func pcmWAV(n int) []byte {
	var b bytes.Buffer
	dataSize := uint32(n * 2)
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, 36+dataSize)
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))     // PCM
	binary.Write(&b, binary.LittleEndian, uint16(1))     // channels
	binary.Write(&b, binary.LittleEndian, uint32(8000))  // sample rate
	binary.Write(&b, binary.LittleEndian, uint32(16000)) // byte rate
	binary.Write(&b, binary.LittleEndian, uint16(2))     // block align
	binary.Write(&b, binary.LittleEndian, uint16(16))    // bits per sample
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, dataSize)
	for i := 0; i < n; i++ {
		binary.Write(&b, binary.LittleEndian, int16(i*100))
	}
	return b.Bytes()
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"levels/courtyard.json": {Data: []byte(courtyard)},
		"levels/broken.json":    {Data: []byte(`{"size":`)},
		"sounds/collision.wav":  {Data: pcmWAV(100)},
		"sounds/noise.wav":      {Data: []byte("not a wav")},
	}
}

func TestLoadBundle(t *testing.T) {
	l := NewLoader(testFS(), nil)
	var fractions []float64
	b, err := l.Load(context.Background(), []Entry{
		{ID: "courtyard", Kind: KindLevel, Path: "levels/courtyard.json"},
		{ID: "collision", Kind: KindSound, Path: "sounds/collision.wav"},
	}, func(f float64) { fractions = append(fractions, f) })
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	d, ok := b.Level("courtyard")
	if !ok || d.Name != "courtyard" || d.ParTime != 40 {
		t.Errorf("Level(courtyard) = %+v, %v", d, ok)
	}
	s, ok := b.Sound("collision")
	if !ok {
		t.Fatal("Sound(collision) missing")
	}
	if s.Len() != 100 {
		t.Errorf("sound Len() = %d, want 100", s.Len())
	}
	if s.Format().SampleRate != 8000 {
		t.Errorf("sample rate = %v, want 8000", s.Format().SampleRate)
	}

	if len(fractions) != 2 || fractions[0] != 0.5 || fractions[1] != 1 {
		t.Errorf("progress = %v, want [0.5 1]", fractions)
	}
}

func TestLoadMandatoryFailure(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
	}{
		{"missing file", Entry{ID: "win", Kind: KindSound, Path: "sounds/win.wav"}},
		{"bad wav", Entry{ID: "noise", Kind: KindSound, Path: "sounds/noise.wav"}},
		{"bad level", Entry{ID: "broken", Kind: KindLevel, Path: "levels/broken.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(testFS(), nil).Load(context.Background(), []Entry{tt.entry}, nil)
			if !errors.Is(err, ErrResourceLoad) {
				t.Fatalf("Load() error = %v, want ErrResourceLoad", err)
			}
			var le *LoadError
			if !errors.As(err, &le) || le.ID != tt.entry.ID {
				t.Errorf("error = %#v, want LoadError for %s", err, tt.entry.ID)
			}
		})
	}
}

func TestLoadOptionalSkipped(t *testing.T) {
	b, err := NewLoader(testFS(), nil).Load(context.Background(), []Entry{
		{ID: "win", Kind: KindSound, Path: "sounds/win.wav", Optional: true},
		{ID: "courtyard", Kind: KindLevel, Path: "levels/courtyard.json"},
	}, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := b.Sound("win"); ok {
		t.Error("optional failed sound present")
	}
	if _, ok := b.Level("courtyard"); !ok {
		t.Error("level after skipped entry missing")
	}
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader(testFS(), nil).Load(ctx, []Entry{
		{ID: "courtyard", Kind: KindLevel, Path: "levels/courtyard.json"},
	}, nil)
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrResourceLoad) {
		t.Errorf("Load() error = %v, want cancelled LoadError", err)
	}
}

func TestBundleLevelIsCopy(t *testing.T) {
	b, err := NewLoader(testFS(), nil).Load(context.Background(), []Entry{
		{ID: "courtyard", Kind: KindLevel, Path: "levels/courtyard.json"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	d, _ := b.Level("courtyard")
	d.Walls[0].Height = 99
	again, _ := b.Level("courtyard")
	if again.Walls[0].Height != 2 {
		t.Errorf("bundle level mutated through copy: height %v", again.Walls[0].Height)
	}
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`
entries:
  - id: collision
    kind: sound
    path: sounds/collision.wav
    optional: true
  - id: courtyard
    kind: level
    path: levels/courtyard.json
`))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}
	if len(m.Entries) != 2 || !m.Entries[0].Optional || m.Entries[1].Kind != KindLevel {
		t.Errorf("ParseManifest() = %+v", m)
	}

	bad := []string{
		`entries: [{id: a, kind: video, path: x}]`,
		`entries: [{id: a, kind: sound}]`,
		`entries: [{kind: sound, path: x}]`,
		`entries: [{id: a, kind: sound, path: x}, {id: a, kind: level, path: y}]`,
		`entries: {`,
	}
	for _, doc := range bad {
		if _, err := ParseManifest([]byte(doc)); err == nil {
			t.Errorf("ParseManifest(%q) succeeded", doc)
		}
	}
}
