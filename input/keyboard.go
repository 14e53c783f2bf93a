package input

import (
	"time"

	"github.com/lixenwraith/roller/vmath"
)

// Direction is a keyboard steering nudge
type Direction uint8

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

// KeyboardSource emulates a drag from key presses
// Terminals report presses but not releases, so the drag ends once no key
// has been pressed for Hold; each press adds Step of the full drag range
// along its axis
type KeyboardSource struct {
	Hold time.Duration
	Step float64

	sink      TouchSink
	active    bool
	x, y      float64 // offset in half extents, [-1,1]
	lastPress time.Duration
}

// NewKeyboardSource creates a source that releases after hold
func NewKeyboardSource(hold time.Duration, step float64) *KeyboardSource {
	if hold <= 0 {
		hold = 200 * time.Millisecond
	}
	if step <= 0 || step > 1 {
		step = 0.5
	}
	return &KeyboardSource{Hold: hold, Step: step}
}

// Extent is a unit container; offsets are reported in half extents
func (k *KeyboardSource) Extent() (float64, float64) { return 2, 2 }

// ListenTouch attaches sink until the returned stop is called
func (k *KeyboardSource) ListenTouch(sink TouchSink) (func(), error) {
	k.sink = sink
	k.active = false
	k.x, k.y = 0, 0
	return func() {
		if k.sink == sink {
			k.sink = nil
			k.active = false
			k.x, k.y = 0, 0
		}
	}, nil
}

// Press nudges the drag toward dir at time now
func (k *KeyboardSource) Press(dir Direction, now time.Duration) {
	if k.sink == nil {
		return
	}
	if !k.active {
		k.active = true
		k.x, k.y = 0, 0
		k.sink.HandleTouchStart(1, 1)
	}
	switch dir {
	case DirUp:
		k.y = vmath.Clamp(k.y-k.Step, -1, 1)
	case DirDown:
		k.y = vmath.Clamp(k.y+k.Step, -1, 1)
	case DirLeft:
		k.x = vmath.Clamp(k.x-k.Step, -1, 1)
	case DirRight:
		k.x = vmath.Clamp(k.x+k.Step, -1, 1)
	}
	k.lastPress = now
	k.sink.HandleTouchMove(1+k.x, 1+k.y)
}

// Expire releases the drag when no key was pressed for Hold
func (k *KeyboardSource) Expire(now time.Duration) {
	if k.active && now-k.lastPress >= k.Hold {
		k.Release()
	}
}

// Release ends the drag immediately
func (k *KeyboardSource) Release() {
	if !k.active {
		return
	}
	k.active = false
	k.x, k.y = 0, 0
	if k.sink != nil {
		k.sink.HandleTouchEnd()
	}
}

// Active reports whether a drag is in progress
func (k *KeyboardSource) Active() bool { return k.active }
