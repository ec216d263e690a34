// Package bsp classifies points against a loaded binary space partition.
package bsp

import "github.com/go-gl/mathgl/mgl32"

type Plane struct {
	Normal mgl32.Vec3
	Dist   float32
}

// Node is an internal splitting node. A negative child is a leaf reference
// encoded as the bitwise complement of the leaf index.
type Node struct {
	Plane    int32
	Children [2]int32
}

// Leaf is a terminal cell. VisOffset is the byte offset of its compressed
// PVS row (-1 when the compiler emitted none).
type Leaf struct {
	Mins         mgl32.Vec3
	Maxs         mgl32.Vec3
	VisOffset    int32
	AmbientFirst int
	AmbientCount int
}

type Tree struct {
	Planes []Plane
	Nodes  []Node
	Leafs  []Leaf
}

// LeafRef encodes a leaf index as a child reference.
func LeafRef(leaf int) int32 { return ^int32(leaf) }

func (t *Tree) NumLeafs() int {
	if t == nil {
		return 0
	}
	return len(t.Leafs)
}

func (t *Tree) Leaf(i int) (Leaf, bool) {
	if t == nil || i < 0 || i >= len(t.Leafs) {
		return Leaf{}, false
	}
	return t.Leafs[i], true
}

func (t *Tree) loaded() bool {
	return t != nil && len(t.Nodes) > 0 && len(t.Leafs) > 0
}

// side returns which child of node n the point falls on, or ok=false when
// the node references a plane that does not exist.
func (t *Tree) side(n int32, p mgl32.Vec3) (int32, bool) {
	node := &t.Nodes[n]
	if node.Plane < 0 || int(node.Plane) >= len(t.Planes) {
		return 0, false
	}
	plane := &t.Planes[node.Plane]
	if plane.Normal.Dot(p)-plane.Dist >= 0 {
		return node.Children[0], true
	}
	return node.Children[1], true
}

// FindLeaf walks from the root to the leaf containing p. Returns 0 when no
// tree is loaded or the tree is malformed; never panics.
func (t *Tree) FindLeaf(p mgl32.Vec3) int {
	if !t.loaded() {
		return 0
	}

	i := int32(0)
	// A well-formed tree reaches a leaf in fewer steps than it has nodes.
	for steps := 0; i >= 0; steps++ {
		if int(i) >= len(t.Nodes) || steps > len(t.Nodes) {
			return 0
		}
		child, ok := t.side(i, p)
		if !ok {
			return 0
		}
		i = child
	}

	leaf := int(^i)
	if leaf >= len(t.Leafs) {
		return 0
	}
	return leaf
}

// FindNode returns the internal node whose chosen child is the leaf that
// contains p.
func (t *Tree) FindNode(p mgl32.Vec3) int {
	if !t.loaded() {
		return 0
	}

	i := int32(0)
	for steps := 0; steps <= len(t.Nodes); steps++ {
		if i < 0 || int(i) >= len(t.Nodes) {
			return 0
		}
		child, ok := t.side(i, p)
		if !ok {
			return 0
		}
		if child < 0 {
			return int(i)
		}
		i = child
	}
	return 0
}
