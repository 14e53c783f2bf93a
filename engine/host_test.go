package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManualHostPostOrder(t *testing.T) {
	host := NewManualHost()
	var order []int
	host.Post(func() { order = append(order, 1) })
	host.Post(func() {
		order = append(order, 2)
		host.Post(func() { order = append(order, 4) })
	})
	host.Post(func() { order = append(order, 3) })
	host.RequestFrame(func(time.Duration) { order = append(order, 5) })

	host.Advance(frame60)

	want := []int{1, 2, 3, 4, 5}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}
}

func TestManualHostCancel(t *testing.T) {
	host := NewManualHost()
	calls := 0
	id := host.RequestFrame(func(time.Duration) { calls++ })
	if id == 0 {
		t.Fatal("RequestFrame returned zero id")
	}
	host.CancelFrame(id)
	host.CancelFrame(id) // idempotent

	if ran := host.Advance(frame60); ran != 0 {
		t.Errorf("Advance ran %d frames, want 0", ran)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestManualHostCancelWithinFrame(t *testing.T) {
	host := NewManualHost()
	var second FrameID
	secondCalls := 0
	host.RequestFrame(func(time.Duration) { host.CancelFrame(second) })
	second = host.RequestFrame(func(time.Duration) { secondCalls++ })

	if ran := host.Advance(frame60); ran != 1 {
		t.Errorf("Advance ran %d frames, want 1", ran)
	}
	if secondCalls != 0 {
		t.Errorf("cancelled frame ran %d times", secondCalls)
	}
}

func TestManualHostRequestDuringFrame(t *testing.T) {
	host := NewManualHost()
	var stamps []time.Duration
	var fn FrameFunc
	fn = func(now time.Duration) {
		stamps = append(stamps, now)
		host.RequestFrame(fn)
	}
	host.RequestFrame(fn)

	host.Advance(10 * time.Millisecond)
	host.Advance(10 * time.Millisecond)

	if len(stamps) != 2 {
		t.Fatalf("frames = %d, want 2", len(stamps))
	}
	if stamps[0] != 10*time.Millisecond || stamps[1] != 20*time.Millisecond {
		t.Errorf("stamps = %v, want [10ms 20ms]", stamps)
	}
	if host.Now() != 20*time.Millisecond {
		t.Errorf("Now() = %v, want 20ms", host.Now())
	}
}

func TestTickerHostNow(t *testing.T) {
	clock := NewMockClock(time.Unix(1000, 0))
	host := NewTickerHost(0, clock)
	clock.Advance(1500 * time.Millisecond)
	if got := host.Now(); got != 1500*time.Millisecond {
		t.Errorf("Now() = %v, want 1.5s", got)
	}
}

func TestTickerHostRun(t *testing.T) {
	host := NewTickerHost(time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- host.Run(ctx) }()

	posted := make(chan struct{})
	host.Post(func() { close(posted) })
	select {
	case <-posted:
	case <-time.After(2 * time.Second):
		t.Fatal("posted work did not run")
	}

	framed := make(chan time.Duration, 1)
	host.Post(func() {
		host.RequestFrame(func(now time.Duration) { framed <- now })
	})
	select {
	case <-framed:
	case <-time.After(2 * time.Second):
		t.Fatal("frame did not run")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
