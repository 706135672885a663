package bvh

import (
	"log/slog"

	"github.com/codedhead/webrtx/math/ms3"
	"github.com/codedhead/webrtx/staging"
	"github.com/codedhead/webrtx/std430"
)

// std430 extent of one flattened BLAS node:
//
//	vec3 min; vec3 max;                  // [0,32)  (vec3 pads to 16)
//	u32 entry_index_or_primitive_id;     // 32
//	u32 exit_index;                      // 36
//	i32 geometry_id;                     // 40
const (
	blasNodeAlign = std430.Vec3Align
	blasNodeSize  = 44
)

// blasNodeStride is the array stride of the node type: the offset a Sizer
// reports for the second of two consecutively added nodes.
func blasNodeStride() int {
	var s std430.Sizer
	s.Add(blasNodeAlign, blasNodeSize)
	return s.Add(blasNodeAlign, blasNodeSize)
}

// BuildBLAS decodes the BLAS descriptor buffer, builds a BVH over its
// primitives and serializes the flattened hierarchy into a freshly
// allocated staging buffer. Leaves store the primitive id in the entry slot
// and the owning geometry id; interior nodes store the entry index with
// geometry_id = -1. Malformed descriptors panic.
func BuildBLAS(st *staging.Store, descriptorBufID uint32) Built {
	desc := staging.View(st.Bytes(descriptorBufID))
	prims := decodePrimitives(st, desc)
	slog.Debug("bvh: building BLAS", "geometries", desc.I32(0), "primitives", len(prims))

	boxes := make([]ms3.Box, len(prims))
	for i := range prims {
		boxes[i] = prims[i].aabb()
	}
	flat := buildTree(boxes).flatten()

	var w std430.Writer
	for _, n := range flat {
		w.Align(blasNodeAlign)
		putAabb(&w, n.box)
		if n.entry == Sentinel {
			p := &prims[n.elem]
			w.PutU32(p.primitiveID)
			w.PutU32(n.exit)
			w.PutI32(int32(p.localGeometryID))
		} else {
			w.PutU32(n.entry)
			w.PutU32(n.exit)
			w.PutI32(InteriorGeometryID)
		}
	}
	w.Align(blasNodeAlign)

	out := st.Alloc(len(flat) * blasNodeStride())
	st.SetBytes(out, w.Bytes())
	return Built{Buffer: out, NumNodes: uint32(len(flat))}
}

// putAabb writes a GPUAabb member: two vec3s plus the trailing padding that
// rounds the struct to its own alignment.
func putAabb(w *std430.Writer, b ms3.Box) {
	w.Align(std430.Vec3Align)
	w.PutVec3(b.Min)
	w.PutVec3(b.Max)
	w.Align(std430.Vec3Align)
}
