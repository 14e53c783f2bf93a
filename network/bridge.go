// Package network bridges a phone's sensors into the input controller
// over a websocket: deviceorientation and touch events stream in, the
// bridge re-posts them onto the frame thread
package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lixenwraith/roller/input"
)

var (
	ErrNoPeer            = errors.New("network: no tilt-capable peer connected")
	ErrPermissionDenied  = errors.New("network: orientation permission denied")
	ErrPermissionTimeout = errors.New("network: orientation permission timed out")
	ErrClosed            = errors.New("network: bridge closed")
)

// Poster runs work on the frame thread
type Poster interface {
	Post(fn func())
}

// Stats counts bridge traffic
type Stats struct {
	Peers    int
	Received uint64
	Rejected uint64
}

// Bridge is a websocket endpoint acting as both tilt and touch source
//
// Connection goroutines only decode and enqueue; sinks run on the frame
// thread through the poster, so the controller stays single-threaded
type Bridge struct {
	cfg      Config
	poster   Poster
	log      *log.Logger
	upgrader websocket.Upgrader

	mu        sync.Mutex
	peers     map[PeerID]*peer
	nextID    PeerID
	tiltSink  input.TiltSink
	touchSink input.TouchSink
	extent    [2]float64
	waiters   []chan bool
	closed    bool
	wg        sync.WaitGroup

	server   *http.Server
	listener net.Listener

	received atomic.Uint64
	rejected atomic.Uint64
}

var (
	_ input.TiltSource  = (*Bridge)(nil)
	_ input.TouchSource = (*Bridge)(nil)
)

// NewBridge creates a bridge; nothing listens until Start
// A nil poster delivers events on the connection goroutine
func NewBridge(cfg Config, poster Poster, logger *log.Logger) *Bridge {
	def := DefaultConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.MaxPeers <= 0 {
		cfg.MaxPeers = def.MaxPeers
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = def.SendQueueSize
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PermissionTimeout <= 0 {
		cfg.PermissionTimeout = def.PermissionTimeout
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Bridge{
		cfg:    cfg,
		poster: poster,
		log:    logger,
		peers:  make(map[PeerID]*peer),
		upgrader: websocket.Upgrader{
			HandshakeTimeout:  cfg.HandshakeTimeout,
			ReadBufferSize:    cfg.ReadBufferSize,
			WriteBufferSize:   cfg.WriteBufferSize,
			EnableCompression: cfg.Compression,
			CheckOrigin:       func(r *http.Request) bool { return true }, // phones on the LAN load the page from elsewhere
		},
	}
}

// Start listens on the configured address and serves in the background
func (b *Bridge) Start() error {
	ln, err := net.Listen("tcp", b.cfg.Address)
	if err != nil {
		return fmt.Errorf("network: listen %s: %w", b.cfg.Address, err)
	}
	b.listener = ln
	b.server = &http.Server{
		Handler:           b.Handler(),
		ReadHeaderTimeout: b.cfg.HandshakeTimeout,
	}
	go func() {
		if err := b.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.log.Error("input bridge stopped", "err", err)
		}
	}()
	b.log.Info("input bridge listening", "addr", ln.Addr().String(), "path", b.cfg.Path)
	return nil
}

// Addr returns the bound address once started
func (b *Bridge) Addr() string {
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Handler serves the websocket endpoint at the configured path
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(b.cfg.Path, b.serveInput)
	return mux
}

// Close stops the listener, disconnects every peer and waits for their
// goroutines
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	peers := make([]*peer, 0, len(b.peers))
	for _, p := range b.peers {
		peers = append(peers, p)
	}
	b.mu.Unlock()

	var err error
	if b.server != nil {
		err = b.server.Close()
	}
	// Hijacked websocket connections survive server.Close
	for _, p := range peers {
		p.close()
	}
	b.wg.Wait()
	return err
}

func (b *Bridge) serveInput(w http.ResponseWriter, r *http.Request) {
	if b.PeerCount() >= b.cfg.MaxPeers {
		http.Error(w, "too many peers", http.StatusServiceUnavailable)
		return
	}
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	p, err := b.addPeer(conn)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}
	defer b.wg.Done()

	go p.writeLoop(b.cfg.WriteTimeout)
	p.readLoop(b.cfg.ReadTimeout, b.handle, b.reject)
	b.removePeer(p)
}

func (b *Bridge) addPeer(conn *websocket.Conn) (*peer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	if len(b.peers) >= b.cfg.MaxPeers {
		return nil, errors.New("max peers reached")
	}
	b.nextID++
	p := newPeer(b.nextID, conn, b.cfg.SendQueueSize)
	b.peers[p.id] = p
	b.wg.Add(1)
	b.log.Info("peer connected", "peer", p.id, "remote", p.addr)
	return p, nil
}

func (b *Bridge) removePeer(p *peer) {
	b.mu.Lock()
	delete(b.peers, p.id)
	b.mu.Unlock()

	// A dropped connection must not leave the ball steered by a stale drag
	if p.touching.Load() {
		b.deliver(func() {
			if s := b.currentTouchSink(); s != nil {
				s.HandleTouchEnd()
			}
		})
	}
	b.log.Info("peer disconnected", "peer", p.id)
}

func (b *Bridge) reject(p *peer, err error) {
	b.rejected.Add(1)
	b.log.Debug("frame rejected", "peer", p.id, "err", err)
}

// handle routes a decoded message; runs on the peer's goroutine
func (b *Bridge) handle(p *peer, msg Message) {
	b.received.Add(1)

	switch msg.Type {
	case MsgHello:
		p.tilt.Store(msg.Tilt)
		b.setExtent(msg.Width, msg.Height)
		p.send(Message{Type: MsgHello})

	case MsgPing:
		p.send(Message{Type: MsgPong})

	case MsgPermission:
		b.resolvePermission(msg.Granted)

	case MsgOrientation:
		ev := input.TiltEvent{Valid: msg.Beta != nil && msg.Gamma != nil}
		if msg.Alpha != nil {
			ev.Alpha = *msg.Alpha
		}
		if ev.Valid {
			ev.Beta, ev.Gamma = *msg.Beta, *msg.Gamma
		}
		b.deliver(func() {
			if s := b.currentTiltSink(); s != nil {
				s.HandleTilt(ev)
			}
		})

	case MsgTouchStart:
		b.setExtent(msg.Width, msg.Height)
		p.touching.Store(true)
		x, y := msg.X, msg.Y
		b.deliver(func() {
			if s := b.currentTouchSink(); s != nil {
				s.HandleTouchStart(x, y)
			}
		})

	case MsgTouchMove:
		b.setExtent(msg.Width, msg.Height)
		x, y := msg.X, msg.Y
		b.deliver(func() {
			if s := b.currentTouchSink(); s != nil {
				s.HandleTouchMove(x, y)
			}
		})

	case MsgTouchEnd:
		p.touching.Store(false)
		b.deliver(func() {
			if s := b.currentTouchSink(); s != nil {
				s.HandleTouchEnd()
			}
		})
	}
}

func (b *Bridge) deliver(fn func()) {
	if b.poster == nil {
		fn()
		return
	}
	b.poster.Post(fn)
}

func (b *Bridge) setExtent(w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	b.mu.Lock()
	b.extent = [2]float64{w, h}
	b.mu.Unlock()
}

func (b *Bridge) currentTiltSink() input.TiltSink {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tiltSink
}

func (b *Bridge) currentTouchSink() input.TouchSink {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.touchSink
}

// Supported reports whether any connected phone exposes orientation events
func (b *Bridge) Supported() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.peers {
		if p.tilt.Load() {
			return true
		}
	}
	return false
}

// RequestPermission asks tilt-capable phones to grant orientation access
// and blocks until the first answer, the permission timeout or ctx
func (b *Bridge) RequestPermission(ctx context.Context) error {
	reply := make(chan bool, 1)

	b.mu.Lock()
	var targets []*peer
	for _, p := range b.peers {
		if p.tilt.Load() {
			targets = append(targets, p)
		}
	}
	if len(targets) == 0 {
		b.mu.Unlock()
		return ErrNoPeer
	}
	b.waiters = append(b.waiters, reply)
	b.mu.Unlock()
	defer b.dropWaiter(reply)

	for _, p := range targets {
		p.send(Message{Type: MsgPermission})
	}

	timer := time.NewTimer(b.cfg.PermissionTimeout)
	defer timer.Stop()

	select {
	case granted := <-reply:
		if !granted {
			return ErrPermissionDenied
		}
		return nil
	case <-timer.C:
		return ErrPermissionTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bridge) resolvePermission(granted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.waiters {
		select {
		case w <- granted:
		default:
		}
	}
	b.waiters = nil
}

func (b *Bridge) dropWaiter(reply chan bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, w := range b.waiters {
		if w == reply {
			b.waiters = append(b.waiters[:i], b.waiters[i+1:]...)
			return
		}
	}
}

// ListenTilt routes orientation frames to sink until stop is called
func (b *Bridge) ListenTilt(sink input.TiltSink) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	b.tiltSink = sink
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.tiltSink == sink {
			b.tiltSink = nil
		}
	}, nil
}

// ListenTouch routes touch frames to sink until stop is called
func (b *Bridge) ListenTouch(sink input.TouchSink) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	b.touchSink = sink
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.touchSink == sink {
			b.touchSink = nil
		}
	}, nil
}

// Extent returns the phone's last reported touch container size
// Zero until a phone sends its viewport
func (b *Bridge) Extent() (width, height float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.extent[0], b.extent[1]
}

// PeerCount returns the number of connected phones
func (b *Bridge) PeerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.peers)
}

// Stats returns traffic counters
func (b *Bridge) Stats() Stats {
	return Stats{
		Peers:    b.PeerCount(),
		Received: b.received.Load(),
		Rejected: b.rejected.Load(),
	}
}
