package status

import (
	"sync"
	"testing"
)

func TestMetricMapStablePointer(t *testing.T) {
	m := NewMetricMap[Float]()
	a := m.Get("x")
	a.Set(1.5)
	if b := m.Get("x"); b != a || b.Get() != 1.5 {
		t.Errorf("Get(x) = %p (%v), want %p (1.5)", b, b.Get(), a)
	}
	if !m.Has("x") || m.Has("y") || m.Count() != 1 {
		t.Errorf("Has/Count mismatch: count %d", m.Count())
	}
}

func TestFloatConcurrentAdd(t *testing.T) {
	var f Float
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				f.Add(0.5)
			}
		}()
	}
	wg.Wait()
	if got := f.Get(); got != 4000 {
		t.Errorf("Get() = %v, want 4000", got)
	}
}

func TestFloatSmooth(t *testing.T) {
	var f Float
	if got := f.Smooth(60, 0.1); got != 60 {
		t.Errorf("first Smooth() = %v, want 60", got)
	}
	if got := f.Smooth(50, 0.1); got != 59 {
		t.Errorf("Smooth() = %v, want 59", got)
	}
}

func TestTextTruncates(t *testing.T) {
	var s Text
	if s.Load() != "" {
		t.Errorf("zero Load() = %q", s.Load())
	}
	long := "ééééééééééééééééééééééééééééééééééééééé"
	s.Store(long)
	if got := []rune(s.Load()); len(got) != MaxTextLen {
		t.Errorf("stored %d runes, want %d", len(got), MaxTextLen)
	}
}

func TestRegistryCollectAndSnapshot(t *testing.T) {
	r := NewRegistry()
	frames := 0
	r.Register(func(r *Registry) {
		frames++
		r.Ints.Get(MetricBodies).Store(int64(frames))
		r.Floats.Get(MetricFPS).Set(59.96)
		r.Strings.Get(MetricState).Store("running")
		r.Bools.Get(MetricAudioMuted).Store(true)
	})
	r.Collect()
	r.Collect()

	got := r.Snapshot()
	want := []Metric{
		{MetricAudioMuted, "true"},
		{MetricFPS, "60.0"},
		{MetricBodies, "2"},
		{MetricState, "running"},
	}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	lines := r.Lines(40)
	if len(lines) != 2 {
		t.Fatalf("Lines(40) = %q, want 2 rows", lines)
	}
	if lines[0] != "audio.muted=true engine.fps=60.0" {
		t.Errorf("Lines(40)[0] = %q", lines[0])
	}
}
