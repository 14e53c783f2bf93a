package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/lixenwraith/roller/vmath"
)

// surface is the upward face of a support body
// Planes are unbounded; boxes are limited to their rotated top face
type surface struct {
	bounded bool
	center  mgl64.Vec3
	half    mgl64.Vec3
	rot     mgl64.Quat
	inverse mgl64.Quat
	normal  mgl64.Vec3
	point   mgl64.Vec3
}

func newSurface(shape Shape, pos mgl64.Vec3, rot mgl64.Quat) *surface {
	n := rot.Rotate(vmath.Up).Normalize()
	s := &surface{
		center:  pos,
		rot:     rot,
		inverse: rot.Conjugate(),
		normal:  n,
		point:   pos,
	}
	if shape.Kind == ShapeBox {
		s.bounded = true
		s.half = shape.HalfExtents
		s.point = pos.Add(n.Mul(shape.HalfExtents.Y()))
	}
	return s
}

// heightAt returns the surface height above (x, z)
func (s *surface) heightAt(x, z, minNormalY float64) (float64, bool) {
	if s.normal.Y() < minNormalY {
		return 0, false
	}
	y := s.planeY(x, z)
	if !s.bounded {
		return y, true
	}
	local := s.inverse.Rotate(mgl64.Vec3{x, y, z}.Sub(s.center))
	const slack = 1e-6
	if math.Abs(local.X()) > s.half.X()+slack || math.Abs(local.Z()) > s.half.Z()+slack {
		return 0, false
	}
	return y, true
}

func (s *surface) planeY(x, z float64) float64 {
	n := s.normal
	return s.point.Y() - (n.X()*(x-s.point.X())+n.Z()*(z-s.point.Z()))/n.Y()
}

// depth is the vertical thickness of a bounded slab measured along y
func (s *surface) depth() float64 {
	return 2 * s.half.Y() / s.normal.Y()
}

// edgeNormal returns the outward planar normal of the footprint side
// nearest to (x, z)
func (s *surface) edgeNormal(x, z float64) (float64, float64) {
	local := s.inverse.Rotate(mgl64.Vec3{x, s.planeY(x, z), z}.Sub(s.center))
	axis := mgl64.Vec3{math.Copysign(1, local.X()), 0, 0}
	if math.Abs(local.Z())-s.half.Z() > math.Abs(local.X())-s.half.X() {
		axis = mgl64.Vec3{0, 0, math.Copysign(1, local.Z())}
	}
	n := s.rot.Rotate(axis)
	l := math.Hypot(n.X(), n.Z())
	if l < vmath.Epsilon {
		return 0, 0
	}
	return n.X() / l, n.Z() / l
}

// supportBelow picks the highest surface under (x, z) reachable from bottom
func (w *World) supportBelow(x, z, bottom float64) (*body, float64, bool) {
	var best *body
	bestH := math.Inf(-1)
	for i := range w.slots {
		b := w.slots[i].body
		if b == nil || b.surface == nil {
			continue
		}
		h, ok := b.surface.heightAt(x, z, w.cfg.MinSupportNormalY)
		if !ok || h > bottom+w.cfg.StepHeight {
			continue
		}
		if h > bestH {
			best, bestH = b, h
		}
	}
	return best, bestH, best != nil
}

// blockerAt returns a bounded support whose solid overlaps the body span
// [bottom, top] at (x, z) and rises above the step height
func (w *World) blockerAt(x, z, bottom, top float64) *body {
	for i := range w.slots {
		b := w.slots[i].body
		if b == nil || b.surface == nil || !b.surface.bounded {
			continue
		}
		h, ok := b.surface.heightAt(x, z, w.cfg.MinSupportNormalY)
		if !ok || h <= bottom+w.cfg.StepHeight {
			continue
		}
		if top > h-b.surface.depth() {
			return b
		}
	}
	return nil
}

// block stops a body that moved into the side of a ramp or raised slab
// The body returns to its previous planar position and its velocity into the
// side reflects with the pair restitution
func (w *World) block(b *body) {
	p := b.cpBody.Position()
	ext := b.shape.halfHeight()
	bottom, top := b.y-ext, b.y+ext
	wall := w.blockerAt(p.X, p.Y, bottom, top)
	if wall == nil {
		return
	}
	// A body already inside the slab is left to the solver
	if w.blockerAt(b.prev.X, b.prev.Y, bottom, top) != nil {
		return
	}

	nx, nz := wall.surface.edgeNormal(b.prev.X, b.prev.Y)
	v := b.cpBody.Velocity()
	b.cpBody.SetPosition(b.prev)
	into := v.X*nx + v.Y*nz
	if into >= 0 {
		return
	}
	e := w.combined(b.material, wall.material).restitution
	b.cpBody.SetVelocity(v.X-(1+e)*into*nx, v.Y-(1+e)*into*nz)
	if -into >= w.cfg.LandingSpeed {
		w.pending = append(w.pending, Contact{A: b.handle, B: wall.handle, RelativeSpeed: -into})
	}
}

// settle resolves the vertical state of a dynamic body after a sub-step
func (w *World) settle(b *body) {
	p := b.cpBody.Position()
	ext := b.shape.halfHeight()
	ground, h, ok := w.supportBelow(p.X, p.Y, b.y-ext)
	if !ok {
		b.supported, b.ground = false, nil
		return
	}

	n := ground.surface.normal
	rest := h + ext/n.Y()
	if b.shape.Kind != ShapeSphere {
		rest = h + ext
	}

	wasSupported := b.supported
	snap := vmath.Epsilon
	if wasSupported && b.vy <= 0 {
		// Follow the surface down slopes instead of hopping
		snap = w.cfg.StepHeight
	}
	if b.y > rest+snap {
		b.supported, b.ground = false, nil
		return
	}

	impact := -b.vy
	b.y = rest
	b.vy = 0
	b.supported, b.ground, b.normal = true, ground, n

	if wasSupported || impact <= 0 {
		return
	}
	if impact >= w.cfg.LandingSpeed {
		w.pending = append(w.pending, Contact{A: b.handle, B: ground.handle, RelativeSpeed: impact})
	}
	if bounce := impact * w.combined(b.material, ground.material).restitution; bounce > w.cfg.BounceSpeed {
		b.vy = bounce
		b.supported, b.ground = false, nil
	}
}

// slopeForce is the planar push a resting body receives from a tilted support
// The solver already applies the planar part of gravity
func (w *World) slopeForce(b *body) mgl64.Vec3 {
	if !b.supported {
		return mgl64.Vec3{}
	}
	n := b.normal
	k := -w.gravity.Dot(n) * b.mass
	return mgl64.Vec3{n.X() * k, 0, n.Z() * k}
}
