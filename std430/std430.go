// Package std430 implements the GLSL std430 buffer layout rules used when
// serializing flattened acceleration-structure nodes: scalars are naturally
// aligned, vec3 occupies 12 bytes but aligns to 16, and a struct aligns to
// the largest alignment among its members. All output is little-endian.
package std430

import (
	"encoding/binary"
	"math"

	"golang.org/x/exp/constraints"

	"github.com/codedhead/webrtx/math/ms3"
)

// Scalar and vector layout constants.
const (
	ScalarSize = 4
	Vec3Align  = 16
	Vec3Size   = 12
)

// Sizer computes member offsets of an std430 layout by sequential
// accumulation. The array stride of a record type is defined as the offset
// the Sizer reports for the second of two consecutive Add calls of that
// record.
type Sizer struct {
	offset int
}

// Add places a member with the given alignment and size and returns the
// aligned offset at which it was placed.
func (s *Sizer) Add(alignment, size int) int {
	s.offset = AlignUp(s.offset, alignment)
	off := s.offset
	s.offset += size
	return off
}

// Offset reports the current end offset.
func (s *Sizer) Offset() int { return s.offset }

// Writer serializes std430 data into a growing byte slice.
type Writer struct {
	buf []byte
}

// Align pads the buffer with zero bytes up to a multiple of n.
func (w *Writer) Align(n int) {
	for len(w.buf)%n != 0 {
		w.buf = append(w.buf, 0)
	}
}

// PutU32 appends a 4-byte aligned unsigned word.
func (w *Writer) PutU32(v uint32) {
	w.Align(ScalarSize)
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// PutI32 appends a 4-byte aligned signed word.
func (w *Writer) PutI32(v int32) { w.PutU32(uint32(v)) }

// PutF32 appends a 4-byte aligned float word.
func (w *Writer) PutF32(v float32) { w.PutU32(math.Float32bits(v)) }

// PutVec3 appends a vec3: 16-byte aligned, 12 bytes of data.
func (w *Writer) PutVec3(v ms3.Vec) {
	w.Align(Vec3Align)
	w.PutF32(v.X)
	w.PutF32(v.Y)
	w.PutF32(v.Z)
}

// Len reports the number of bytes written, including alignment padding.
func (w *Writer) Len() int { return len(w.buf) }

// Bytes returns the serialized buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// AlignUp rounds x up to the next multiple of to.
func AlignUp[T constraints.Integer](x, to T) T {
	return (x + to - 1) / to * to
}
