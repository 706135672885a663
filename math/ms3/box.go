package ms3

import (
	math "github.com/chewxy/math32"
)

// Box is a 3D bounding box. Well formed Boxes have Min components
// smaller than Max components.
type Box struct {
	Min, Max Vec
}

// NewBox is shorthand for Box{Min:Vec{x0,y0,z0}, Max:Vec{x1,y1,z1}}.
// The sides are swapped so that the resulting Box is well formed.
func NewBox(x0, y0, z0, x1, y1, z1 float32) Box {
	return Box{
		Min: Vec{X: math.Min(x0, x1), Y: math.Min(y0, y1), Z: math.Min(z0, z1)},
		Max: Vec{X: math.Max(x0, x1), Y: math.Max(y0, y1), Z: math.Max(z0, z1)},
	}
}

// EmptyBox returns the identity element of Union: a box with +inf minimum
// and -inf maximum bounds that grows to any point included in it.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: Vec{X: inf, Y: inf, Z: inf},
		Max: Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// Empty returns true if a Box's volume is zero
// or if a Min component is greater than its Max component.
func (a Box) Empty() bool {
	return a.Min.X >= a.Max.X || a.Min.Y >= a.Max.Y || a.Min.Z >= a.Max.Z
}

// Size returns the size of the Box.
func (a Box) Size() Vec {
	return Sub(a.Max, a.Min)
}

// Center returns the center of the Box.
func (a Box) Center() Vec {
	return Scale(0.5, Add(a.Min, a.Max))
}

// Union returns a box enclosing both the receiver and argument Boxes.
func (a Box) Union(b Box) Box {
	return Box{
		Min: MinElem(a.Min, b.Min),
		Max: MaxElem(a.Max, b.Max),
	}
}

// IncludePoint returns a box containing both the receiver and the argument point.
func (a Box) IncludePoint(point Vec) Box {
	return Box{
		Min: MinElem(a.Min, point),
		Max: MaxElem(a.Max, point),
	}
}

// Contains returns true if v is contained within the bounds of the Box.
func (a Box) Contains(point Vec) bool {
	return a.Min.X <= point.X && point.X <= a.Max.X &&
		a.Min.Y <= point.Y && point.Y <= a.Max.Y &&
		a.Min.Z <= point.Z && point.Z <= a.Max.Z
}

// ContainsBox returns true if argument box is fully contained within receiver box.
func (a Box) ContainsBox(b Box) bool { return a.Contains(b.Min) && a.Contains(b.Max) }

// Equal returns true if a and b are within tol of eachother for each box limit component.
func (a Box) Equal(b Box, tol float32) bool {
	return EqualElem(a.Min, b.Min, tol) && EqualElem(a.Max, b.Max, tol)
}
