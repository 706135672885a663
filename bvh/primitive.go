package bvh

import (
	"fmt"

	"github.com/codedhead/webrtx/math/ms3"
	"github.com/codedhead/webrtx/staging"
)

type geometryType int32

const (
	geometryTriangle geometryType = 0
	geometryAabb     geometryType = 1
)

// BLAS geometry descriptor record fields, as 32-bit word offsets within one
// per-geometry record.
const (
	descType = iota
	descNumPrimitives
	descVbufID
	descVbufByteOffset
	descIbufID
	descIbufByteOffset

	descNumFields
)

// primitive is one leaf candidate of a BLAS build.
type primitive struct {
	localGeometryID uint32 // 0-based geometry index within the BLAS
	withinBlasID    uint32 // 0-based across all geometries of the BLAS
	primitiveID     uint32 // 0-based within its geometry

	typ  geometryType
	vbuf staging.View // positions, three floats per vertex
	ibuf staging.View // nil when the geometry is not indexed
}

// aabb computes the primitive's bounding box. Triangles resolve their three
// vertex indices through the index view when present, else sequentially;
// aabb geometries carry their bounds verbatim as six floats.
func (p *primitive) aabb() ms3.Box {
	if p.typ != geometryTriangle {
		return ms3.Box{
			Min: ms3.Vec{X: p.vbuf.F32(0), Y: p.vbuf.F32(1), Z: p.vbuf.F32(2)},
			Max: ms3.Vec{X: p.vbuf.F32(3), Y: p.vbuf.F32(4), Z: p.vbuf.F32(5)},
		}
	}
	var indices [3]int
	offset := int(3 * p.primitiveID)
	if p.ibuf != nil {
		indices[0] = int(p.ibuf.U32(offset))
		indices[1] = int(p.ibuf.U32(offset + 1))
		indices[2] = int(p.ibuf.U32(offset + 2))
	} else {
		indices[0] = offset
		indices[1] = offset + 1
		indices[2] = offset + 2
	}
	box := ms3.EmptyBox()
	for _, idx := range indices {
		vi := idx * 3
		box = box.IncludePoint(ms3.Vec{
			X: p.vbuf.F32(vi),
			Y: p.vbuf.F32(vi + 1),
			Z: p.vbuf.F32(vi + 2),
		})
	}
	return box
}

// decodePrimitives materializes the flat primitive list of a BLAS descriptor
// buffer in declaration order. Malformed descriptors are programming errors
// and panic.
func decodePrimitives(st *staging.Store, desc staging.View) []primitive {
	if desc.Words() < 2 {
		panic("bvh: BLAS descriptor too short for header")
	}
	numGeoms := desc.I32(0)
	numTotal := desc.I32(1)
	if numGeoms <= 0 || numTotal <= 0 {
		panic(fmt.Sprintf("bvh: invalid BLAS header: %d geometries, %d primitives", numGeoms, numTotal))
	}
	if desc.Words() != 2+int(numGeoms)*descNumFields {
		panic(fmt.Sprintf("bvh: BLAS descriptor length %d words does not match %d geometries", desc.Words(), numGeoms))
	}
	prims := make([]primitive, 0, numTotal)
	for gi := 0; gi < int(numGeoms); gi++ {
		rec := 2 + gi*descNumFields
		typ := geometryType(desc.I32(rec + descType))
		if typ != geometryTriangle && typ != geometryAabb {
			panic(fmt.Sprintf("bvh: unknown geometry type %d", typ))
		}
		np := desc.I32(rec + descNumPrimitives)
		vbufID := desc.I32(rec + descVbufID)
		vbufOffset := desc.I32(rec + descVbufByteOffset)
		vbuf := staging.View(st.Bytes(uint32(vbufID))[vbufOffset:])
		var ibuf staging.View
		if typ == geometryTriangle && desc.I32(rec+descIbufID) >= 0 {
			ibufID := desc.I32(rec + descIbufID)
			ibufOffset := desc.I32(rec + descIbufByteOffset)
			ibuf = staging.View(st.Bytes(uint32(ibufID))[ibufOffset:])
		}
		for pi := 0; pi < int(np); pi++ {
			prims = append(prims, primitive{
				localGeometryID: uint32(gi),
				withinBlasID:    uint32(len(prims)),
				primitiveID:     uint32(pi),
				typ:             typ,
				vbuf:            vbuf,
				ibuf:            ibuf,
			})
		}
	}
	return prims
}
