package engine

import (
	"context"
	"sync"
	"time"
)

// FrameID identifies a requested frame; zero is never issued
type FrameID uint64

// FrameFunc receives the host's timestamp for the frame
type FrameFunc func(now time.Duration)

// FrameHost schedules frame callbacks, one callback per request
// Post queues work to run on the frame thread before the next frame, in order
type FrameHost interface {
	RequestFrame(fn FrameFunc) FrameID
	CancelFrame(id FrameID)
	Now() time.Duration
	Post(fn func())
}

type frameRequest struct {
	id FrameID
	fn FrameFunc
}

// frameQueue holds the shared bookkeeping of both hosts
type frameQueue struct {
	mu       sync.Mutex
	nextID   FrameID
	requests []frameRequest
	due      []frameRequest // requests being served by the current frame
	posted   []func()
}

func (q *frameQueue) request(fn FrameFunc) FrameID {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	q.requests = append(q.requests, frameRequest{id: q.nextID, fn: fn})
	return q.nextID
}

func (q *frameQueue) cancel(id FrameID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, r := range q.requests {
		if r.id == id {
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			return
		}
	}
	for i := range q.due {
		if q.due[i].id == id {
			q.due[i].fn = nil
			return
		}
	}
}

func (q *frameQueue) post(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.posted = append(q.posted, fn)
}

func (q *frameQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// drain runs posted work in order, including work posted while draining
func (q *frameQueue) drain() {
	for {
		q.mu.Lock()
		work := q.posted
		q.posted = nil
		q.mu.Unlock()
		if len(work) == 0 {
			return
		}
		for _, fn := range work {
			fn()
		}
	}
}

// run drains posted work, then invokes every frame requested before this
// call; requests made by callbacks wait for the next frame
func (q *frameQueue) run(now time.Duration) int {
	q.drain()

	q.mu.Lock()
	q.due = q.requests
	q.requests = nil
	q.mu.Unlock()

	ran := 0
	for i := 0; ; i++ {
		q.mu.Lock()
		if i >= len(q.due) {
			q.due = nil
			q.mu.Unlock()
			return ran
		}
		r := q.due[i]
		q.mu.Unlock()

		if r.fn != nil {
			r.fn(now)
			ran++
		}
	}
}

// ManualHost advances only when told to; deterministic for tests and
// headless simulation
type ManualHost struct {
	frameQueue
	now time.Duration
}

// NewManualHost creates a host at time zero
func NewManualHost() *ManualHost {
	return &ManualHost{}
}

func (h *ManualHost) RequestFrame(fn FrameFunc) FrameID { return h.request(fn) }
func (h *ManualHost) CancelFrame(id FrameID)            { h.cancel(id) }
func (h *ManualHost) Post(fn func())                    { h.post(fn) }

// Now returns the simulated time
func (h *ManualHost) Now() time.Duration { return h.now }

// Pending returns the number of outstanding frame requests
func (h *ManualHost) Pending() int { return h.pending() }

// Advance moves time forward by d and runs one frame
// Returns the number of frame callbacks invoked
func (h *ManualHost) Advance(d time.Duration) int {
	h.now += d
	return h.run(h.now)
}

// RunFrames advances n frames of d each
func (h *ManualHost) RunFrames(n int, d time.Duration) {
	for i := 0; i < n; i++ {
		h.Advance(d)
	}
}

// TickerHost drives frames from a ticker at a fixed refresh interval
type TickerHost struct {
	frameQueue
	clock    Clock
	start    time.Time
	interval time.Duration
	wake     chan struct{}
}

// NewTickerHost creates a host ticking every interval
func NewTickerHost(interval time.Duration, clock Clock) *TickerHost {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &TickerHost{
		clock:    clock,
		start:    clock.Now(),
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

func (h *TickerHost) RequestFrame(fn FrameFunc) FrameID { return h.request(fn) }
func (h *TickerHost) CancelFrame(id FrameID)            { h.cancel(id) }

// Post queues fn for the frame thread; safe from any goroutine
// Run is woken so the work does not wait for the next tick
func (h *TickerHost) Post(fn func()) {
	h.post(fn)
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Now returns time since the host was created
func (h *TickerHost) Now() time.Duration { return h.clock.Now().Sub(h.start) }

// Run services frames and posted work until ctx is cancelled
func (h *TickerHost) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.run(h.Now())
		case <-h.wake:
			// Posted work runs promptly even while no frame is requested
			h.drain()
		}
	}
}
