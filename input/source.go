package input

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedInput marks a tilt source that is missing or denied
var ErrUnsupportedInput = errors.New("input: unsupported")

// UnsupportedInputError reports why tilt sensing could not start
type UnsupportedInputError struct {
	Source string
	Err    error
}

func (e *UnsupportedInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("input: %s unsupported: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("input: %s unsupported", e.Source)
}

func (e *UnsupportedInputError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUnsupportedInput, e.Err}
	}
	return []error{ErrUnsupportedInput}
}

// TiltEvent is one device orientation reading in degrees
// Valid is false when the device reported no beta/gamma values
type TiltEvent struct {
	Alpha float64
	Beta  float64
	Gamma float64
	Valid bool
}

// TiltSink consumes orientation readings
type TiltSink interface {
	HandleTilt(ev TiltEvent)
}

// TouchSink consumes single-finger drag events in container coordinates
type TouchSink interface {
	HandleTouchStart(x, y float64)
	HandleTouchMove(x, y float64)
	HandleTouchEnd()
}

// TiltSource delivers orientation readings
// ListenTilt returns a stop function that detaches the sink
type TiltSource interface {
	Supported() bool
	RequestPermission(ctx context.Context) error
	ListenTilt(sink TiltSink) (stop func(), err error)
}

// TouchSource delivers drag events inside a container of the given extent
type TouchSource interface {
	Extent() (width, height float64)
	ListenTouch(sink TouchSink) (stop func(), err error)
}

// Poster runs fn on the goroutine that owns the controller
type Poster interface {
	Post(fn func())
}
