package network

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// PeerID uniquely identifies a connected phone
type PeerID uint32

// peer is one websocket client streaming sensor data
type peer struct {
	id   PeerID
	addr string
	conn *websocket.Conn

	lastSeen atomic.Int64 // UnixNano
	outSeq   atomic.Uint32

	// Capabilities reported by hello
	tilt atomic.Bool
	// Replies use the encoding of the last received frame
	binary   atomic.Bool
	touching atomic.Bool

	sendCh    chan Message
	closeCh   chan struct{}
	closeOnce sync.Once
}

func newPeer(id PeerID, conn *websocket.Conn, sendQueueSize int) *peer {
	p := &peer{
		id:      id,
		addr:    conn.RemoteAddr().String(),
		conn:    conn,
		sendCh:  make(chan Message, sendQueueSize),
		closeCh: make(chan struct{}),
	}
	p.lastSeen.Store(time.Now().UnixNano())
	return p
}

// send queues a message for transmission
// Returns false if the peer is closing or its queue is full
func (p *peer) send(msg Message) bool {
	select {
	case <-p.closeCh:
		return false
	default:
	}

	msg.Seq = p.outSeq.Add(1)
	select {
	case p.sendCh <- msg:
		return true
	default:
		return false
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() {
		close(p.closeCh)
		p.conn.Close()
	})
}

// readLoop decodes frames until the connection fails or idles past timeout
// Undecodable frames are reported to reject and skipped
func (p *peer) readLoop(timeout time.Duration, handle func(*peer, Message), reject func(*peer, error)) {
	defer p.close()

	for {
		_ = p.conn.SetReadDeadline(time.Now().Add(timeout))
		frameType, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		p.lastSeen.Store(time.Now().UnixNano())

		msg, err := Decode(frameType, data)
		if err != nil {
			reject(p, err)
			continue
		}
		p.binary.Store(frameType == websocket.BinaryMessage)
		handle(p, msg)
	}
}

// writeLoop sends queued messages
func (p *peer) writeLoop(timeout time.Duration) {
	defer p.close()

	for {
		select {
		case <-p.closeCh:
			return
		case msg := <-p.sendCh:
			frameType, data, err := Encode(msg, p.binary.Load())
			if err != nil {
				return
			}
			_ = p.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := p.conn.WriteMessage(frameType, data); err != nil {
				return
			}
		}
	}
}
