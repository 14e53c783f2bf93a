package network

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrProtocol marks a frame that could not be decoded or carries an unknown type
var ErrProtocol = errors.New("network: protocol")

// MessageType identifies the semantic meaning of a message
type MessageType string

const (
	// Session
	MsgHello      MessageType = "hello"      // client capabilities and viewport
	MsgPermission MessageType = "permission" // server asks, client answers with Granted
	MsgPing       MessageType = "ping"
	MsgPong       MessageType = "pong"

	// Sensor stream
	MsgOrientation MessageType = "orientation" // deviceorientation alpha/beta/gamma in degrees
	MsgTouchStart  MessageType = "touchstart"
	MsgTouchMove   MessageType = "touchmove"
	MsgTouchEnd    MessageType = "touchend"
)

func (t MessageType) known() bool {
	switch t {
	case MsgHello, MsgPermission, MsgPing, MsgPong,
		MsgOrientation, MsgTouchStart, MsgTouchMove, MsgTouchEnd:
		return true
	}
	return false
}

// Message is one frame in either direction
// Text frames carry JSON, binary frames carry msgpack with the same field names
type Message struct {
	Type MessageType `json:"type" msgpack:"type"`
	Seq  uint32      `json:"seq,omitempty" msgpack:"seq,omitempty"`

	// Orientation; nil angles mean the device reported none
	Alpha *float64 `json:"alpha,omitempty" msgpack:"alpha,omitempty"`
	Beta  *float64 `json:"beta,omitempty" msgpack:"beta,omitempty"`
	Gamma *float64 `json:"gamma,omitempty" msgpack:"gamma,omitempty"`

	// Touch position and container extent in CSS pixels
	X      float64 `json:"x,omitempty" msgpack:"x,omitempty"`
	Y      float64 `json:"y,omitempty" msgpack:"y,omitempty"`
	Width  float64 `json:"width,omitempty" msgpack:"width,omitempty"`
	Height float64 `json:"height,omitempty" msgpack:"height,omitempty"`

	// Hello: device exposes orientation events
	Tilt bool `json:"tilt,omitempty" msgpack:"tilt,omitempty"`
	// Permission reply
	Granted bool `json:"granted,omitempty" msgpack:"granted,omitempty"`
}

// Decode parses a websocket frame by its frame type
func Decode(frameType int, data []byte) (Message, error) {
	var m Message
	var err error
	switch frameType {
	case websocket.TextMessage:
		err = json.Unmarshal(data, &m)
	case websocket.BinaryMessage:
		err = msgpack.Unmarshal(data, &m)
	default:
		return m, fmt.Errorf("%w: frame type %d", ErrProtocol, frameType)
	}
	if err != nil {
		return m, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if !m.Type.known() {
		return m, fmt.Errorf("%w: unknown message type %q", ErrProtocol, m.Type)
	}
	return m, nil
}

// Encode serializes m as a binary msgpack frame or a JSON text frame
func Encode(m Message, binary bool) (frameType int, data []byte, err error) {
	if binary {
		data, err = msgpack.Marshal(&m)
		return websocket.BinaryMessage, data, err
	}
	data, err = json.Marshal(m)
	return websocket.TextMessage, data, err
}

// Float returns a pointer for optional angle fields
func Float(v float64) *float64 { return &v }
