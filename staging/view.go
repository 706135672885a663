package staging

import (
	"encoding/binary"
	"math"
)

// View reinterprets a byte slice as a little-endian 32-bit word sequence.
// Word index i covers bytes [4i, 4i+4); the trailing bytes of a slice whose
// length is not a multiple of 4 are not addressable through the view.
type View []byte

// Words reports how many whole 32-bit words the view covers.
func (v View) Words() int { return len(v) / 4 }

// U32 reads word i as an unsigned integer.
func (v View) U32(i int) uint32 {
	return binary.LittleEndian.Uint32(v[4*i:])
}

// I32 reads word i as a signed integer.
func (v View) I32(i int) int32 { return int32(v.U32(i)) }

// F32 reads word i as an IEEE-754 single.
func (v View) F32(i int) float32 { return math.Float32frombits(v.U32(i)) }

// PutU32 stores w into word i.
func (v View) PutU32(i int, w uint32) {
	binary.LittleEndian.PutUint32(v[4*i:], w)
}

// PutI32 stores w into word i.
func (v View) PutI32(i int, w int32) { v.PutU32(i, uint32(w)) }

// PutF32 stores f into word i.
func (v View) PutF32(i int, f float32) { v.PutU32(i, math.Float32bits(f)) }
