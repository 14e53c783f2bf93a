package physics

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidShape marks a body definition the world refuses to build
	ErrInvalidShape = errors.New("physics: invalid shape")
	// ErrStaleHandle marks an operation on a removed or never-issued body
	ErrStaleHandle = errors.New("physics: stale body handle")
)

// InvalidShapeError reports why CreateBody rejected a definition
type InvalidShapeError struct {
	Kind   ShapeKind
	Reason string
}

func (e *InvalidShapeError) Error() string {
	return fmt.Sprintf("physics: invalid %s: %s", e.Kind, e.Reason)
}

func (e *InvalidShapeError) Unwrap() error { return ErrInvalidShape }

// StaleHandleError reports the operation attempted on an invalid handle
type StaleHandleError struct {
	Handle Handle
	Op     string
}

func (e *StaleHandleError) Error() string {
	return fmt.Sprintf("physics: %s: stale handle %s", e.Op, e.Handle)
}

func (e *StaleHandleError) Unwrap() error { return ErrStaleHandle }
