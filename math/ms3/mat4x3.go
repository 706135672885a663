package ms3

import (
	math "github.com/chewxy/math32"
)

// Mat4x3 is a column-major affine transform: a 3×3 linear part in the first
// three columns followed by a translation column. The backing array holds
// the columns contiguously, so element (r,c) lives at index c*3+r. This is
// the wire layout instance descriptors and flattened TLAS nodes use.
type Mat4x3 struct {
	m [12]float32
}

// Mat4x3FromCols builds the transform from twelve column-major floats.
func Mat4x3FromCols(cols [12]float32) Mat4x3 { return Mat4x3{m: cols} }

// IdentityMat4x3 returns the identity affine transform.
func IdentityMat4x3() Mat4x3 {
	return Mat4x3{m: [12]float32{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
		0, 0, 0,
	}}
}

// Cols returns the transform's twelve column-major floats.
func (t Mat4x3) Cols() [12]float32 { return t.m }

// At returns element (r,c) of the transform, c in [0,4).
func (t Mat4x3) At(r, c int) float32 { return t.m[c*3+r] }

// MulPosition applies the full affine map to a position.
func (t Mat4x3) MulPosition(p Vec) Vec {
	m := &t.m
	return Vec{
		X: m[0]*p.X + m[3]*p.Y + m[6]*p.Z + m[9],
		Y: m[1]*p.X + m[4]*p.Y + m[7]*p.Z + m[10],
		Z: m[2]*p.X + m[5]*p.Y + m[8]*p.Z + m[11],
	}
}

// TransformBox returns the tightest axis-aligned box enclosing b transformed
// by t. Rather than mapping all eight corners it accumulates, per output
// axis, the per-column minima and maxima on top of the translation column,
// which bounds the transformed box exactly.
func (t Mat4x3) TransformBox(b Box) Box {
	bmin := b.Min.Array()
	bmax := b.Max.Array()
	var nmin, nmax [3]float32
	for r := 0; r < 3; r++ {
		nmin[r] = t.m[9+r]
		nmax[r] = t.m[9+r]
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			e := t.m[c*3+r]
			a, b := e*bmin[c], e*bmax[c]
			nmin[r] += math.Min(a, b)
			nmax[r] += math.Max(a, b)
		}
	}
	return Box{
		Min: Vec{X: nmin[0], Y: nmin[1], Z: nmin[2]},
		Max: Vec{X: nmax[0], Y: nmax[1], Z: nmax[2]},
	}
}

// Inverse returns the inverse affine transform, computed as the inverse of
// the 3×3 linear part applied to the negated translation. Transforms with a
// singular or non-finite linear part are programming errors and panic.
func (t Mat4x3) Inverse() Mat4x3 {
	m := &t.m
	// Cofactors of the 3x3 linear part, column-major.
	c00 := m[4]*m[8] - m[7]*m[5]
	c01 := m[7]*m[2] - m[1]*m[8]
	c02 := m[1]*m[5] - m[4]*m[2]
	det := m[0]*c00 + m[3]*c01 + m[6]*c02
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		panic("ms3: inverse of degenerate affine transform")
	}
	id := 1 / det
	var inv [12]float32
	inv[0] = c00 * id
	inv[1] = c01 * id
	inv[2] = c02 * id
	inv[3] = (m[6]*m[5] - m[3]*m[8]) * id
	inv[4] = (m[0]*m[8] - m[6]*m[2]) * id
	inv[5] = (m[3]*m[2] - m[0]*m[5]) * id
	inv[6] = (m[3]*m[7] - m[6]*m[4]) * id
	inv[7] = (m[6]*m[1] - m[0]*m[7]) * id
	inv[8] = (m[0]*m[4] - m[3]*m[1]) * id
	// Translation of the inverse: -inv(M)*T.
	tx, ty, tz := m[9], m[10], m[11]
	inv[9] = -(inv[0]*tx + inv[3]*ty + inv[6]*tz)
	inv[10] = -(inv[1]*tx + inv[4]*ty + inv[7]*tz)
	inv[11] = -(inv[2]*tx + inv[5]*ty + inv[8]*tz)
	return Mat4x3{m: inv}
}

// Mul composes two affine transforms, returning the transform equivalent to
// applying b first and then a.
func Mul(a, b Mat4x3) Mat4x3 {
	var out [12]float32
	for c := 0; c < 4; c++ {
		for r := 0; r < 3; r++ {
			var s float32
			if c == 3 {
				s = a.m[9+r]
			}
			for k := 0; k < 3; k++ {
				s += a.m[k*3+r] * b.m[c*3+k]
			}
			out[c*3+r] = s
		}
	}
	return Mat4x3{m: out}
}
