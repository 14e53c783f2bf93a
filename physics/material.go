package physics

// MaterialID addresses a surface material; zero is the world default
type MaterialID uint32

// DefaultMaterial is used by bodies that do not name a material
const DefaultMaterial MaterialID = 0

const (
	defaultFriction    = 0.3
	defaultRestitution = 0.3
)

type material struct {
	friction, restitution float64
	released              bool
}

type materialPair [2]MaterialID

func pairOf(a, b MaterialID) materialPair {
	if a > b {
		a, b = b, a
	}
	return materialPair{a, b}
}

// CreateMaterial registers a surface material, reusing released ids
func (w *World) CreateMaterial(friction, restitution float64) MaterialID {
	m := material{friction: friction, restitution: restitution}
	if n := len(w.freeMaterials); n > 0 {
		id := w.freeMaterials[n-1]
		w.freeMaterials = w.freeMaterials[:n-1]
		w.materials[id] = m
		return id
	}
	w.materials = append(w.materials, m)
	return MaterialID(len(w.materials) - 1)
}

// ReleaseMaterial frees id and its contact overrides for reuse
// Release only after removing the bodies that use it; the default material
// and unknown ids are ignored
func (w *World) ReleaseMaterial(id MaterialID) {
	if id == DefaultMaterial || !w.hasMaterial(id) {
		return
	}
	w.materials[id] = material{released: true}
	for pair := range w.pairs {
		if pair[0] == id || pair[1] == id {
			delete(w.pairs, pair)
		}
	}
	w.freeMaterials = append(w.freeMaterials, id)
}

// MaterialCount returns the number of live materials, the default included
func (w *World) MaterialCount() int {
	return len(w.materials) - len(w.freeMaterials)
}

// CreateContactMaterial overrides the combined coefficients for support
// contacts between a and b, in either order
// Planar collider contacts always use the product of both surfaces; the
// solver fixes arbiter coefficients before any callback runs
func (w *World) CreateContactMaterial(a, b MaterialID, friction, restitution float64) {
	w.pairs[pairOf(a, b)] = material{friction: friction, restitution: restitution}
}

func (w *World) hasMaterial(id MaterialID) bool {
	return int(id) < len(w.materials) && !w.materials[id].released
}

// combined resolves pair coefficients: explicit contact material first,
// otherwise the product of both surfaces as the solver does
func (w *World) combined(a, b MaterialID) material {
	if m, ok := w.pairs[pairOf(a, b)]; ok {
		return m
	}
	ma, mb := w.materials[a], w.materials[b]
	return material{
		friction:    ma.friction * mb.friction,
		restitution: ma.restitution * mb.restitution,
	}
}
