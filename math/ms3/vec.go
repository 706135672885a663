package ms3

import (
	math "github.com/chewxy/math32"
)

// Vec is a 3D vector. It is composed of 3 float32 fields for x, y, and z
// values in that order.
type Vec struct {
	X, Y, Z float32
}

// Array returns the ordered components of Vec in a 3 element array [a.x,a.y,a.z].
func (a Vec) Array() [3]float32 {
	return [3]float32{a.X, a.Y, a.Z}
}

// Axis returns component i of a, where 0 is X, 1 is Y and 2 is Z.
func (a Vec) Axis(i int) float32 {
	switch i {
	case 0:
		return a.X
	case 1:
		return a.Y
	case 2:
		return a.Z
	}
	panic("ms3: axis out of range")
}

// Max returns the maximum component of a.
func (a Vec) Max() float32 {
	return math.Max(a.X, math.Max(a.Y, a.Z))
}

// Add returns the vector sum of p and q.
func Add(p, q Vec) Vec {
	return Vec{
		X: p.X + q.X,
		Y: p.Y + q.Y,
		Z: p.Z + q.Z,
	}
}

// Sub returns the vector sum of p and -q.
func Sub(p, q Vec) Vec {
	return Vec{
		X: p.X - q.X,
		Y: p.Y - q.Y,
		Z: p.Z - q.Z,
	}
}

// Scale returns the vector p scaled by f.
func Scale(f float32, p Vec) Vec {
	return Vec{
		X: f * p.X,
		Y: f * p.Y,
		Z: f * p.Z,
	}
}

// MinElem returns a vector with the minimum components of two vectors.
func MinElem(p, q Vec) Vec {
	return Vec{
		X: math.Min(p.X, q.X),
		Y: math.Min(p.Y, q.Y),
		Z: math.Min(p.Z, q.Z),
	}
}

// MaxElem returns a vector with the maximum components of two vectors.
func MaxElem(p, q Vec) Vec {
	return Vec{
		X: math.Max(p.X, q.X),
		Y: math.Max(p.Y, q.Y),
		Z: math.Max(p.Z, q.Z),
	}
}

// EqualElem checks equality between vector elements to within a tolerance.
func EqualElem(p, q Vec, tol float32) bool {
	return math.Abs(p.X-q.X) <= tol &&
		math.Abs(p.Y-q.Y) <= tol &&
		math.Abs(p.Z-q.Z) <= tol
}
