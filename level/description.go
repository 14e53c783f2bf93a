// Package level models a maze level and runs it against the physics world
package level

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidLevel marks a description that cannot be built
var ErrInvalidLevel = errors.New("level: invalid description")

// Point2 is a position on the floor plane
type Point2 struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Point3 is a world position
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec converts to an mgl64 vector
func (p Point3) Vec() mgl64.Vec3 { return mgl64.Vec3{p.X, p.Y, p.Z} }

// Size is a full extent along each axis
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

// Euler holds XYZ-ordered rotation angles in radians
type Euler struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Material carries render hints, passed through opaquely, and the surface
// coefficients the physics world uses
type Material struct {
	Type        string  `json:"type,omitempty"`
	Color       uint32  `json:"color"`
	Metalness   float64 `json:"metalness"`
	Roughness   float64 `json:"roughness"`
	Friction    float64 `json:"friction,omitempty"`
	Restitution float64 `json:"restitution,omitempty"`
}

// Surface returns friction and restitution with defaults for unset values
func (m Material) Surface() (friction, restitution float64) {
	friction, restitution = m.Friction, m.Restitution
	if friction == 0 {
		friction = 0.3
	}
	if restitution == 0 {
		restitution = 0.3
	}
	return friction, restitution
}

// Wall is a vertical segment from Start to End
type Wall struct {
	Start  Point2  `json:"start"`
	End    Point2  `json:"end"`
	Height float64 `json:"height"`
}

// Length is the planar length of the segment
func (w Wall) Length() float64 {
	return math.Hypot(w.End.X-w.Start.X, w.End.Z-w.Start.Z)
}

// ObstacleKind selects the obstacle variant
type ObstacleKind string

const (
	ObstacleBox  ObstacleKind = "box"
	ObstacleRamp ObstacleKind = "ramp"
)

// Obstacle is a box or a tilted ramp; Position is the center
type Obstacle struct {
	Kind     ObstacleKind `json:"type"`
	Position Point3       `json:"position"`
	Size     Size         `json:"size"`
	Rotation Euler        `json:"rotation"`
	Material Material     `json:"material"`
}

// Ball describes the player sphere
type Ball struct {
	Radius   float64  `json:"radius"`
	Mass     float64  `json:"mass"`
	Material Material `json:"material"`
}

// Floor describes the floor slab surface
type Floor struct {
	Material Material `json:"material"`
}

// Description is the immutable blueprint of a level
type Description struct {
	Name       string     `json:"name,omitempty"`
	Difficulty int        `json:"difficulty"`
	Seed       int64      `json:"seed"`
	ParTime    float64    `json:"parTime"`
	Size       Size       `json:"size"`
	Start      Point3     `json:"start"`
	End        Point3     `json:"end"`
	Walls      []Wall     `json:"walls"`
	Obstacles  []Obstacle `json:"obstacles"`
	Ball       Ball       `json:"ball"`
	Floor      Floor      `json:"floor"`
}

// Clone returns a deep copy
func (d Description) Clone() Description {
	c := d
	c.Walls = append([]Wall(nil), d.Walls...)
	c.Obstacles = append([]Obstacle(nil), d.Obstacles...)
	return c
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidLevel, fmt.Sprintf(format, args...))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Validate checks the description can be built into a runtime
func (d Description) Validate() error {
	s := d.Size
	if !finite(s.Width, s.Height, s.Depth) || s.Width <= 0 || s.Height <= 0 || s.Depth <= 0 {
		return invalid("size %+v must be positive", s)
	}
	if !finite(d.Ball.Radius, d.Ball.Mass) || d.Ball.Radius <= 0 || d.Ball.Mass <= 0 {
		return invalid("ball radius %v and mass %v must be positive", d.Ball.Radius, d.Ball.Mass)
	}
	if d.ParTime < 0 {
		return invalid("par time %v is negative", d.ParTime)
	}

	hw, hd := s.Width/2, s.Depth/2
	inside := func(p Point3) bool {
		return finite(p.X, p.Y, p.Z) && math.Abs(p.X) <= hw && math.Abs(p.Z) <= hd
	}
	if !inside(d.Start) {
		return invalid("start %+v outside floor", d.Start)
	}
	if !inside(d.End) {
		return invalid("end %+v outside floor", d.End)
	}

	for i, w := range d.Walls {
		if !finite(w.Start.X, w.Start.Z, w.End.X, w.End.Z, w.Height) {
			return invalid("wall %d is not finite", i)
		}
		if w.Length() == 0 {
			return invalid("wall %d has zero length", i)
		}
		if w.Height <= 0 {
			return invalid("wall %d height %v must be positive", i, w.Height)
		}
	}

	for i, o := range d.Obstacles {
		switch o.Kind {
		case ObstacleBox, ObstacleRamp:
		default:
			return invalid("obstacle %d has unknown type %q", i, o.Kind)
		}
		if !finite(o.Size.Width, o.Size.Height, o.Size.Depth) ||
			o.Size.Width <= 0 || o.Size.Height <= 0 || o.Size.Depth <= 0 {
			return invalid("obstacle %d size %+v must be positive", i, o.Size)
		}
		if !finite(o.Position.X, o.Position.Y, o.Position.Z, o.Rotation.X, o.Rotation.Y, o.Rotation.Z) {
			return invalid("obstacle %d is not finite", i)
		}
	}
	return nil
}
