package render

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Node is a proxy retained by a Scene
type Node struct {
	Spec     ProxySpec
	Position mgl64.Vec3
	Rotation mgl64.Quat

	id    int
	scene *Scene
}

// SetTransform records the latest pose
func (n *Node) SetTransform(pos mgl64.Vec3, rot mgl64.Quat) {
	n.Position = pos
	n.Rotation = rot
}

// Remove detaches the node from its scene; repeated calls are no-ops
func (n *Node) Remove() {
	if n.scene == nil {
		return
	}
	n.scene.remove(n)
	n.scene = nil
}

// Scene is a retained Factory: it keeps every live node so a renderer can
// draw the whole level each frame
type Scene struct {
	nodes  []*Node
	nextID int
}

// NewScene creates an empty scene
func NewScene() *Scene {
	return &Scene{}
}

// CreateProxy adds a node with identity rotation at the origin
func (s *Scene) CreateProxy(spec ProxySpec) Proxy {
	s.nextID++
	n := &Node{Spec: spec, Rotation: mgl64.QuatIdent(), id: s.nextID, scene: s}
	s.nodes = append(s.nodes, n)
	return n
}

func (s *Scene) remove(n *Node) {
	for i, m := range s.nodes {
		if m == n {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			return
		}
	}
}

// Nodes returns live nodes in creation order
func (s *Scene) Nodes() []*Node {
	return s.nodes
}

// Find returns the first live node of kind
func (s *Scene) Find(kind Kind) (*Node, bool) {
	for _, n := range s.nodes {
		if n.Spec.Kind == kind {
			return n, true
		}
	}
	return nil, false
}

// Len returns the number of live nodes
func (s *Scene) Len() int { return len(s.nodes) }
