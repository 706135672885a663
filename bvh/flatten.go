package bvh

import "github.com/codedhead/webrtx/math/ms3"

// Sentinel terminates stackless traversal: an exit index of Sentinel means
// the walk is done, and a leaf's entry slot carries it before the per-layer
// leaf payload replaces it during serialization.
const Sentinel uint32 = 0xFFFFFFFF

// InteriorGeometryID marks interior nodes in the BLAS node layout.
const InteriorGeometryID int32 = -1

// flatNode is a layer-independent flattened node. Entry is the node to visit
// when the box is hit (Sentinel for leaves), Exit the node to visit on a
// miss or once a leaf has been processed. Elem indexes the input element for
// leaves and is -1 otherwise.
type flatNode struct {
	box   ms3.Box
	entry uint32
	exit  uint32
	elem  int
}

// flatten lays the tree out in preorder. Every exit index that would point
// past the last node is normalized to Sentinel, so traversal of the root's
// miss path terminates without a bounds check.
func (t tree) flatten() []flatNode {
	out := make([]flatNode, 0, len(t.nodes))
	var walk func(ni int, exit uint32)
	walk = func(ni int, exit uint32) {
		n := t.nodes[ni]
		i := uint32(len(out))
		if n.left < 0 {
			out = append(out, flatNode{box: n.box, entry: Sentinel, exit: exit, elem: n.elem})
			return
		}
		out = append(out, flatNode{box: n.box, entry: i + 1, exit: exit, elem: -1})
		rightStart := i + 1 + uint32(t.nodes[n.left].size)
		walk(n.left, rightStart)
		walk(n.right, exit)
	}
	walk(t.root, uint32(len(t.nodes)))
	for i := range out {
		if out[i].exit >= uint32(len(out)) {
			out[i].exit = Sentinel
		}
	}
	return out
}
