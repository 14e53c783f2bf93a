package maze

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/lixenwraith/roller/level"
)

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := NewGenerator(DefaultConfig())
	if err != nil {
		t.Fatalf("NewGenerator error = %v", err)
	}
	return g
}

func TestLCGSequence(t *testing.T) {
	r := NewLCG(1)
	// (1*9301 + 49297) % 233280 = 58598
	if got, want := r.Float64(), 58598.0/233280.0; got != want {
		t.Errorf("first value = %v, want %v", got, want)
	}

	a, b := NewLCG(-7), NewLCG(-7)
	for i := 0; i < 100; i++ {
		va, vb := a.Float64(), b.Float64()
		if va != vb {
			t.Fatalf("streams diverged at %d: %v != %v", i, va, vb)
		}
		if va < 0 || va >= 1 {
			t.Fatalf("value %v outside [0,1)", va)
		}
	}
}

func TestSizeAndComplexity(t *testing.T) {
	g := newTestGenerator(t)
	tests := []struct {
		difficulty int
		size       float64
		complexity float64
	}{
		{1, 10, 0.5 / 3},
		{2, 15, 1.0 / 3},
		{3, 20, 0.5},
		{4, 25, 2.0 / 3},
		{5, 30, 5.0 / 6},
	}
	for _, tt := range tests {
		if got := g.Size(tt.difficulty); got != tt.size {
			t.Errorf("Size(%d) = %v, want %v", tt.difficulty, got, tt.size)
		}
		if got := g.Complexity(tt.difficulty); math.Abs(got-tt.complexity) > 1e-12 {
			t.Errorf("Complexity(%d) = %v, want %v", tt.difficulty, got, tt.complexity)
		}
	}
}

func TestGenerateRejectsDifficulty(t *testing.T) {
	g := newTestGenerator(t)
	for _, d := range []int{0, 6, -1} {
		if _, err := g.Generate(d, 1); !errors.Is(err, ErrDifficulty) {
			t.Errorf("Generate(%d) error = %v, want ErrDifficulty", d, err)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	g := newTestGenerator(t)
	for d := MinDifficulty; d <= MaxDifficulty; d++ {
		a, err := g.Generate(d, 4242)
		if err != nil {
			t.Fatalf("Generate(%d) error = %v", d, err)
		}
		b, _ := g.Generate(d, 4242)
		ja, err := level.Marshal(a)
		if err != nil {
			t.Fatalf("Marshal error = %v", err)
		}
		jb, _ := level.Marshal(b)
		if !bytes.Equal(ja, jb) {
			t.Errorf("difficulty %d: same seed produced different descriptions", d)
		}
		if err := a.Validate(); err != nil {
			t.Errorf("difficulty %d: Validate error = %v", d, err)
		}
	}
}

func TestOuterWallsAlwaysPresent(t *testing.T) {
	g := newTestGenerator(t)
	for d := MinDifficulty; d <= MaxDifficulty; d++ {
		desc, _ := g.Generate(d, int64(d*17))
		if len(desc.Walls) < 4 {
			t.Fatalf("difficulty %d: %d walls, want at least 4", d, len(desc.Walls))
		}
		h := desc.Size.Width / 2
		for i, w := range desc.Walls[:4] {
			if w.Height != 2 {
				t.Errorf("difficulty %d: outer wall %d height = %v, want 2", d, i, w.Height)
			}
			onEdge := math.Abs(w.Start.X) == h || math.Abs(w.Start.Z) == h
			if !onEdge || w.Length() != desc.Size.Width {
				t.Errorf("difficulty %d: wall %d = %+v is not a boundary wall", d, i, w)
			}
		}
	}
}

func TestTemplatesIgnoreSeed(t *testing.T) {
	g := newTestGenerator(t)
	for _, d := range []int{1, 2} {
		a, _ := g.Generate(d, 1)
		b, _ := g.Generate(d, 99999)
		ja, _ := level.Marshal(withoutSeed(a))
		jb, _ := level.Marshal(withoutSeed(b))
		if !bytes.Equal(ja, jb) {
			t.Errorf("difficulty %d layout depends on seed", d)
		}
	}
}

func withoutSeed(d level.Description) level.Description {
	d.Seed = 0
	return d
}

func TestCarvedMazeIsConnected(t *testing.T) {
	g := newTestGenerator(t)
	for d := 3; d <= MaxDifficulty; d++ {
		for seed := int64(0); seed < 25; seed++ {
			l, err := g.Layout(d, seed*7919)
			if err != nil {
				t.Fatalf("Layout(%d, %d) error = %v", d, seed, err)
			}
			if l.Grid == nil {
				t.Fatalf("Layout(%d) has no grid", d)
			}
			if !l.Grid.Reachable(l.StartCell, l.EndCell) {
				t.Errorf("difficulty %d seed %d: end cell unreachable from start", d, seed)
			}
			for r := 0; r < l.Grid.Rows; r++ {
				for c := 0; c < l.Grid.Cols; c++ {
					if !l.Grid.Visited(Cell{r, c}) {
						t.Errorf("difficulty %d seed %d: cell (%d,%d) never carved", d, seed, r, c)
					}
				}
			}
		}
	}
}

func TestObstacleCountsAndClearance(t *testing.T) {
	g := newTestGenerator(t)
	cfg := g.Config()
	for seed := int64(1); seed <= 20; seed++ {
		for d := MinDifficulty; d <= MaxDifficulty; d++ {
			desc, _ := g.Generate(d, seed)
			var boxes, ramps int
			for _, o := range desc.Obstacles {
				clearance := cfg.BoxClearance
				if o.Kind == level.ObstacleRamp {
					ramps++
					clearance = cfg.RampClearance
				} else {
					boxes++
				}
				for _, p := range []level.Point3{desc.Start, desc.End} {
					if dist := math.Hypot(o.Position.X-p.X, o.Position.Z-p.Z); dist < clearance {
						t.Errorf("d%d seed %d: %s at distance %v from marker, want >= %v", d, seed, o.Kind, dist, clearance)
					}
				}
			}
			if boxes > cfg.BoxCount[d] || ramps > cfg.RampCount[d] {
				t.Errorf("d%d seed %d: %d boxes %d ramps, want at most %d and %d",
					d, seed, boxes, ramps, cfg.BoxCount[d], cfg.RampCount[d])
			}
			if d < 4 && len(desc.Obstacles) != 0 {
				t.Errorf("d%d has %d obstacles, want none", d, len(desc.Obstacles))
			}
		}
	}
}

func TestRampAngles(t *testing.T) {
	g := newTestGenerator(t)
	steepest := 0.0
	for seed := int64(1); seed <= 30; seed++ {
		desc, _ := g.Generate(5, seed)
		for _, o := range desc.Obstacles {
			if o.Kind != level.ObstacleRamp {
				continue
			}
			angle := o.Rotation.X + o.Rotation.Z
			if angle < math.Pi/12 || angle > math.Pi/4 {
				t.Errorf("seed %d: ramp angle %v outside [15deg, 45deg]", seed, angle)
			}
			steepest = math.Max(steepest, angle)
			if o.Rotation.X != 0 && o.Rotation.Z != 0 {
				t.Errorf("seed %d: ramp tilted about two axes: %+v", seed, o.Rotation)
			}
		}
	}
	if steepest <= math.Pi/6 {
		t.Errorf("steepest ramp = %v over 30 seeds, want some above 30deg", steepest)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WallGapRatio = 0
	if _, err := NewGenerator(cfg); err == nil {
		t.Error("NewGenerator accepted zero wall gap ratio")
	}
	cfg = DefaultConfig()
	cfg.MaxSize = 5
	if _, err := NewGenerator(cfg); err == nil {
		t.Error("NewGenerator accepted max size below min size")
	}
}
