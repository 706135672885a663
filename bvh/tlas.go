package bvh

import (
	"fmt"
	"log/slog"

	"github.com/codedhead/webrtx/math/ms3"
	"github.com/codedhead/webrtx/staging"
	"github.com/codedhead/webrtx/std430"
)

// instance is one leaf candidate of a TLAS build, decoded from a fixed-size
// descriptor record.
type instance struct {
	mask                uint32
	flags               uint32
	instanceID          uint32
	sbtInstanceOffset   uint32
	instanceCustomIndex int32
	blasEntryIndex      uint32
	blasGeometryOffset  uint32
	toWorld             ms3.Mat4x3
	worldBox            ms3.Box // aabb(toWorld * blas root aabb)
}

// Words per TLAS instance record: seven scalar fields, six AABB floats and
// twelve transform floats.
const instanceRecordWords = 7 + 6 + 12

// std430 extent of one flattened TLAS node:
//
//	vec3 min; vec3 max;        // [0,32)
//	u32 entry_index;           // 32
//	u32 exit_index;            // 36
//	u32 is_leaf;               // 40
//	u32 mask;                  // 44
//	u32 flags;                 // 48
//	u32 instance_id;           // 52
//	u32 sbt_instance_offset;   // 56
//	i32 instance_custom_index; // 60
//	f32 transform_to_world[12];  // [64,112)
//	f32 transform_to_object[12]; // [112,160)
//	u32 blas_geometry_id_offset; // 160
const (
	tlasNodeAlign = std430.Vec3Align
	tlasNodeSize  = 164
)

func tlasNodeStride() int {
	var s std430.Sizer
	s.Add(tlasNodeAlign, tlasNodeSize)
	return s.Add(tlasNodeAlign, tlasNodeSize)
}

// decodeInstances reads the TLAS descriptor buffer and derives each
// instance's world-space box by transforming its BLAS root AABB.
func decodeInstances(desc staging.View) []instance {
	if desc.Words() < 1 {
		panic("bvh: TLAS descriptor too short for header")
	}
	n := desc.I32(0)
	if n <= 0 {
		panic(fmt.Sprintf("bvh: invalid TLAS header: %d instances", n))
	}
	if desc.Words() != 1+int(n)*instanceRecordWords {
		panic(fmt.Sprintf("bvh: TLAS descriptor length %d words does not match %d instances", desc.Words(), n))
	}
	instances := make([]instance, 0, n)
	for i := 0; i < int(n); i++ {
		rec := 1 + i*instanceRecordWords
		blasBox := ms3.Box{
			Min: ms3.Vec{X: desc.F32(rec + 7), Y: desc.F32(rec + 8), Z: desc.F32(rec + 9)},
			Max: ms3.Vec{X: desc.F32(rec + 10), Y: desc.F32(rec + 11), Z: desc.F32(rec + 12)},
		}
		var cols [12]float32
		for c := range cols {
			cols[c] = desc.F32(rec + 13 + c)
		}
		toWorld := ms3.Mat4x3FromCols(cols)
		instances = append(instances, instance{
			mask:                desc.U32(rec + 0),
			flags:               desc.U32(rec + 1),
			instanceID:          desc.U32(rec + 2),
			sbtInstanceOffset:   desc.U32(rec + 3),
			instanceCustomIndex: desc.I32(rec + 4),
			blasEntryIndex:      desc.U32(rec + 5),
			blasGeometryOffset:  desc.U32(rec + 6),
			toWorld:             toWorld,
			worldBox:            toWorld.TransformBox(blasBox),
		})
	}
	return instances
}

// BuildTLAS decodes the TLAS descriptor buffer, builds a BVH over the
// instances' world-space boxes and serializes the flattened hierarchy into
// a freshly allocated staging buffer. Leaves carry the full instance
// payload plus forward and inverse transforms; interior nodes zero all
// leaf-only fields. Malformed descriptors and degenerate transforms panic.
func BuildTLAS(st *staging.Store, descriptorBufID uint32) Built {
	instances := decodeInstances(staging.View(st.Bytes(descriptorBufID)))
	slog.Debug("bvh: building TLAS", "instances", len(instances))

	boxes := make([]ms3.Box, len(instances))
	for i := range instances {
		boxes[i] = instances[i].worldBox
	}
	flat := buildTree(boxes).flatten()

	var w std430.Writer
	for _, n := range flat {
		w.Align(tlasNodeAlign)
		putAabb(&w, n.box)
		if n.entry == Sentinel {
			inst := &instances[n.elem]
			w.PutU32(inst.blasEntryIndex)
			w.PutU32(n.exit)
			w.PutU32(1) // leaf
			w.PutU32(inst.mask)
			w.PutU32(inst.flags)
			w.PutU32(inst.instanceID)
			w.PutU32(inst.sbtInstanceOffset)
			w.PutI32(inst.instanceCustomIndex)
			putMat4x3(&w, inst.toWorld)
			putMat4x3(&w, inst.toWorld.Inverse())
			w.PutU32(inst.blasGeometryOffset)
		} else {
			w.PutU32(n.entry)
			w.PutU32(n.exit)
			w.PutU32(0) // interior
			for i := 0; i < 5; i++ {
				w.PutU32(0)
			}
			putMat4x3(&w, ms3.Mat4x3{})
			putMat4x3(&w, ms3.Mat4x3{})
			w.PutU32(0)
		}
	}
	w.Align(tlasNodeAlign)

	out := st.Alloc(len(flat) * tlasNodeStride())
	st.SetBytes(out, w.Bytes())
	return Built{Buffer: out, NumNodes: uint32(len(flat))}
}

func putMat4x3(w *std430.Writer, m ms3.Mat4x3) {
	for _, f := range m.Cols() {
		w.PutF32(f)
	}
}
