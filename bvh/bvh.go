// Package bvh builds flattened bounding volume hierarchies for the software
// ray-tracing runtime. BuildBLAS wraps geometry primitives, BuildTLAS wraps
// transformed instances of already-built BLASes; both read caller-staged
// descriptor buffers and write std430-serialized node arrays into a fresh
// staging buffer.
//
// Trees are held in an index arena rather than a pointer graph, which maps
// directly onto the flattened output format.
package bvh

import (
	"sort"

	"github.com/codedhead/webrtx/math/ms3"
)

// Built describes a serialized hierarchy: the staging buffer holding the
// node array and the number of nodes in it. The caller owns freeing the
// buffer.
type Built struct {
	Buffer   uint32
	NumNodes uint32
}

// node is one arena entry. Leaves keep left == -1 and reference exactly one
// input element; interior nodes have exactly two children.
type node struct {
	box         ms3.Box
	left, right int
	elem        int
	size        int // node count of the subtree rooted here
}

type tree struct {
	nodes []node
	root  int
}

// buildTree constructs a binary BVH over the element bounding boxes using a
// largest-axis centroid median split. The build is deterministic: ties in
// centroid ordering keep the order the elements arrive in (element index
// order at the root, the parent's sorted order below it), so equal inputs
// always produce equal trees.
func buildTree(boxes []ms3.Box) tree {
	if len(boxes) == 0 {
		panic("bvh: no elements to build over")
	}
	order := make([]int, len(boxes))
	for i := range order {
		order[i] = i
	}
	t := tree{nodes: make([]node, 0, 2*len(boxes)-1)}
	t.root = t.build(boxes, order)
	return t
}

func (t *tree) build(boxes []ms3.Box, order []int) int {
	if len(order) == 1 {
		return t.push(node{box: boxes[order[0]], left: -1, right: -1, elem: order[0], size: 1})
	}
	bounds := ms3.EmptyBox()
	centroids := ms3.EmptyBox()
	for _, e := range order {
		bounds = bounds.Union(boxes[e])
		centroids = centroids.IncludePoint(boxes[e].Center())
	}
	axis := largestAxis(centroids.Size())
	sort.SliceStable(order, func(i, j int) bool {
		return boxes[order[i]].Center().Axis(axis) < boxes[order[j]].Center().Axis(axis)
	})
	mid := len(order) / 2
	left := t.build(boxes, order[:mid])
	right := t.build(boxes, order[mid:])
	return t.push(node{
		box:   bounds,
		left:  left,
		right: right,
		elem:  -1,
		size:  1 + t.nodes[left].size + t.nodes[right].size,
	})
}

func (t *tree) push(n node) int {
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

func largestAxis(size ms3.Vec) int {
	axis := 0
	if size.Y > size.X {
		axis = 1
	}
	if size.Z > size.Axis(axis) {
		axis = 2
	}
	return axis
}
