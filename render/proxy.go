// Package render receives transforms for level objects and draws them
package render

import "github.com/go-gl/mathgl/mgl64"

// Kind tells a renderer what a proxy stands for
type Kind string

const (
	KindFloor       Kind = "floor"
	KindWall        Kind = "wall"
	KindBox         Kind = "box"
	KindRamp        Kind = "ramp"
	KindBall        Kind = "ball"
	KindStartMarker Kind = "start"
	KindEndMarker   Kind = "end"
)

// Material carries appearance hints; renderers may ignore any field
type Material struct {
	Type      string
	Color     uint32
	Metalness float64
	Roughness float64
}

// ProxySpec describes the visual for one level object
// Size is the full box extent; Radius applies to the ball and markers
type ProxySpec struct {
	Kind     Kind
	Size     mgl64.Vec3
	Radius   float64
	Material Material
}

// Proxy is the render-side handle of a level object
type Proxy interface {
	SetTransform(pos mgl64.Vec3, rot mgl64.Quat)
	Remove()
}

// Factory creates proxies
type Factory interface {
	CreateProxy(spec ProxySpec) Proxy
}

// Discard is a Factory for headless runs
type Discard struct{}

func (Discard) CreateProxy(ProxySpec) Proxy { return discardProxy{} }

type discardProxy struct{}

func (discardProxy) SetTransform(mgl64.Vec3, mgl64.Quat) {}
func (discardProxy) Remove()                             {}
