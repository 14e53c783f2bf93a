package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/lixenwraith/roller/input"
)

// chanPoster hands posted work to the test goroutine
type chanPoster chan func()

func (p chanPoster) Post(fn func()) { p <- fn }

func (p chanPoster) run(t *testing.T) {
	t.Helper()
	select {
	case fn := <-p:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("no work posted")
	}
}

type recorder struct {
	tilts   []input.TiltEvent
	touches []string
}

func (r *recorder) HandleTilt(ev input.TiltEvent) { r.tilts = append(r.tilts, ev) }
func (r *recorder) HandleTouchStart(x, y float64) {
	r.touches = append(r.touches, fmt.Sprintf("start %v,%v", x, y))
}
func (r *recorder) HandleTouchMove(x, y float64) {
	r.touches = append(r.touches, fmt.Sprintf("move %v,%v", x, y))
}
func (r *recorder) HandleTouchEnd() { r.touches = append(r.touches, "end") }

func newTestBridge(t *testing.T, cfg Config) (*Bridge, chanPoster, *httptest.Server) {
	t.Helper()
	poster := make(chanPoster, 64)
	b := NewBridge(cfg, poster, nil)
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(func() {
		b.Close()
		srv.Close()
	})
	return b, poster, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/input"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeBinary(t *testing.T, conn *websocket.Conn, m Message) {
	t.Helper()
	data, err := msgpack.Marshal(&m)
	if err != nil {
		t.Fatalf("msgpack.Marshal() error = %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
}

func read(t *testing.T, conn *websocket.Conn) (int, Message) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frameType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	m, err := Decode(frameType, data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return frameType, m
}

// hello announces the phone and waits for the acknowledgement
func hello(t *testing.T, conn *websocket.Conn, tilt bool) {
	t.Helper()
	if err := conn.WriteJSON(Message{Type: MsgHello, Tilt: tilt, Width: 400, Height: 800}); err != nil {
		t.Fatalf("WriteJSON(hello) error = %v", err)
	}
	if _, m := read(t, conn); m.Type != MsgHello {
		t.Fatalf("reply type = %q, want hello", m.Type)
	}
}

func TestBridgeOrientation(t *testing.T) {
	b, poster, srv := newTestBridge(t, DefaultConfig())
	conn := dial(t, srv)

	if b.Supported() {
		t.Error("Supported() = true before hello")
	}
	hello(t, conn, true)
	if !b.Supported() {
		t.Fatal("Supported() = false after tilt hello")
	}

	rec := &recorder{}
	stop, err := b.ListenTilt(rec)
	if err != nil {
		t.Fatalf("ListenTilt() error = %v", err)
	}

	conn.WriteJSON(Message{Type: MsgOrientation, Alpha: Float(90), Beta: Float(10), Gamma: Float(-5)})
	poster.run(t)
	conn.WriteJSON(Message{Type: MsgOrientation, Beta: Float(3)})
	poster.run(t)

	want := []input.TiltEvent{
		{Alpha: 90, Beta: 10, Gamma: -5, Valid: true},
		{Valid: false},
	}
	if len(rec.tilts) != len(want) {
		t.Fatalf("tilts = %v, want %v", rec.tilts, want)
	}
	for i := range want {
		if rec.tilts[i] != want[i] {
			t.Errorf("tilts[%d] = %+v, want %+v", i, rec.tilts[i], want[i])
		}
	}

	stop()
	conn.WriteJSON(Message{Type: MsgOrientation, Beta: Float(1), Gamma: Float(1)})
	poster.run(t)
	if len(rec.tilts) != 2 {
		t.Errorf("tilts after stop = %d, want 2", len(rec.tilts))
	}
}

func TestBridgeTouchBinary(t *testing.T) {
	b, poster, srv := newTestBridge(t, DefaultConfig())
	conn := dial(t, srv)

	rec := &recorder{}
	if _, err := b.ListenTouch(rec); err != nil {
		t.Fatalf("ListenTouch() error = %v", err)
	}

	writeBinary(t, conn, Message{Type: MsgTouchStart, X: 200, Y: 400, Width: 600, Height: 900})
	writeBinary(t, conn, Message{Type: MsgTouchMove, X: 260, Y: 380})
	writeBinary(t, conn, Message{Type: MsgTouchEnd})
	for range 3 {
		poster.run(t)
	}

	want := []string{"start 200,400", "move 260,380", "end"}
	if fmt.Sprint(rec.touches) != fmt.Sprint(want) {
		t.Errorf("touches = %v, want %v", rec.touches, want)
	}
	if w, h := b.Extent(); w != 600 || h != 900 {
		t.Errorf("Extent() = %v,%v, want 600,900", w, h)
	}

	writeBinary(t, conn, Message{Type: MsgPing})
	frameType, m := read(t, conn)
	if frameType != websocket.BinaryMessage || m.Type != MsgPong {
		t.Errorf("ping reply = %d %q, want binary pong", frameType, m.Type)
	}
}

func TestBridgeDisconnectEndsDrag(t *testing.T) {
	b, poster, srv := newTestBridge(t, DefaultConfig())
	conn := dial(t, srv)

	rec := &recorder{}
	b.ListenTouch(rec)

	conn.WriteJSON(Message{Type: MsgTouchStart, X: 1, Y: 1, Width: 2, Height: 2})
	poster.run(t)
	conn.Close()
	poster.run(t)

	if n := len(rec.touches); n != 2 || rec.touches[n-1] != "end" {
		t.Errorf("touches = %v, want start then end", rec.touches)
	}
	if b.PeerCount() != 0 {
		t.Errorf("PeerCount() = %d after disconnect, want 0", b.PeerCount())
	}
}

func TestBridgeDrivesController(t *testing.T) {
	b, poster, srv := newTestBridge(t, DefaultConfig())
	conn := dial(t, srv)
	hello(t, conn, true)

	// Phone grants the permission prompt
	answered := make(chan struct{})
	go func() {
		defer close(answered)
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if m, err := Decode(websocket.TextMessage, data); err == nil && m.Type == MsgPermission {
			conn.WriteJSON(Message{Type: MsgPermission, Granted: true})
		}
	}()

	ctrl := input.NewController(input.DefaultConfig(), b, b, nil)
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if ctrl.Mode() != input.ModeTilt {
		t.Fatalf("Mode() = %v, want tilt", ctrl.Mode())
	}
	<-answered

	conn.WriteJSON(Message{Type: MsgOrientation, Beta: Float(10), Gamma: Float(-10)})
	poster.run(t)

	got := ctrl.Orientation()
	if d := got.Beta - 2; d > 1e-9 || d < -1e-9 {
		t.Errorf("Beta = %v, want 2", got.Beta)
	}
	if d := got.Gamma + 2; d > 1e-9 || d < -1e-9 {
		t.Errorf("Gamma = %v, want -2", got.Gamma)
	}
}

func TestRequestPermission(t *testing.T) {
	t.Run("no peer", func(t *testing.T) {
		b, _, _ := newTestBridge(t, DefaultConfig())
		if err := b.RequestPermission(context.Background()); !errors.Is(err, ErrNoPeer) {
			t.Errorf("RequestPermission() error = %v, want ErrNoPeer", err)
		}
	})

	t.Run("denied", func(t *testing.T) {
		b, _, srv := newTestBridge(t, DefaultConfig())
		conn := dial(t, srv)
		hello(t, conn, true)
		go func() {
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			if _, _, err := conn.ReadMessage(); err == nil {
				conn.WriteJSON(Message{Type: MsgPermission, Granted: false})
			}
		}()
		if err := b.RequestPermission(context.Background()); !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("RequestPermission() error = %v, want ErrPermissionDenied", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PermissionTimeout = 50 * time.Millisecond
		b, _, srv := newTestBridge(t, cfg)
		conn := dial(t, srv)
		hello(t, conn, true)
		if err := b.RequestPermission(context.Background()); !errors.Is(err, ErrPermissionTimeout) {
			t.Errorf("RequestPermission() error = %v, want ErrPermissionTimeout", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		b, _, srv := newTestBridge(t, DefaultConfig())
		conn := dial(t, srv)
		hello(t, conn, true)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := b.RequestPermission(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("RequestPermission() error = %v, want context.Canceled", err)
		}
	})
}

func TestBridgeMaxPeers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPeers = 1
	_, _, srv := newTestBridge(t, cfg)
	hello(t, dial(t, srv), false)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/input"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second Dial() succeeded with MaxPeers 1")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("second Dial() response = %v, want 503", resp)
	}
}

func TestBridgeRejectsBadFrames(t *testing.T) {
	b, _, srv := newTestBridge(t, DefaultConfig())
	conn := dial(t, srv)

	conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	conn.WriteJSON(map[string]string{"type": "teleport"})
	conn.WriteJSON(Message{Type: MsgPing})
	if _, m := read(t, conn); m.Type != MsgPong {
		t.Fatalf("reply = %q, want pong", m.Type)
	}

	s := b.Stats()
	if s.Rejected != 2 || s.Received != 1 || s.Peers != 1 {
		t.Errorf("Stats() = %+v, want 2 rejected, 1 received, 1 peer", s)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		frameType int
		data      []byte
		want      MessageType
		wantErr   bool
	}{
		{"json", websocket.TextMessage, []byte(`{"type":"touchend"}`), MsgTouchEnd, false},
		{"unknown type", websocket.TextMessage, []byte(`{"type":"warp"}`), "", true},
		{"bad json", websocket.TextMessage, []byte(`{`), "", true},
		{"bad msgpack", websocket.BinaryMessage, []byte{0xc1}, "", true},
		{"control frame", websocket.PingMessage, nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode(tt.frameType, tt.data)
			if tt.wantErr {
				if !errors.Is(err, ErrProtocol) {
					t.Errorf("Decode() error = %v, want ErrProtocol", err)
				}
				return
			}
			if err != nil || m.Type != tt.want {
				t.Errorf("Decode() = %q, %v, want %q", m.Type, err, tt.want)
			}
		})
	}
}

func TestBridgeClosed(t *testing.T) {
	b := NewBridge(DefaultConfig(), nil, nil)
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := b.ListenTilt(&recorder{}); !errors.Is(err, ErrClosed) {
		t.Errorf("ListenTilt() after Close error = %v, want ErrClosed", err)
	}
}

func TestBridgeStartListens(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	b := NewBridge(cfg, nil, nil)
	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer b.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+b.Addr()+"/input", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	conn.Close()
}
