package ms3

import (
	"testing"
)

func TestMat4x3Identity(t *testing.T) {
	const tol = 0
	id := IdentityMat4x3()
	v := Vec{X: 1, Y: 2, Z: 3}
	if got := id.MulPosition(v); !EqualElem(got, v, tol) {
		t.Errorf("identity moved point: got %v, want %v", got, v)
	}
}

func TestMat4x3Inverse(t *testing.T) {
	const tol = 1e-5
	// Rotation-ish linear part with shear, scale and translation.
	m := Mat4x3FromCols([12]float32{
		0, 2, 0,
		-3, 0, 0,
		0.5, 0, 1,
		4, -5, 6,
	})
	inv := m.Inverse()
	got := Mul(inv, m)
	if gid := got.Cols(); !IdentityMat4x3().approxEq(Mat4x3{m: gid}, tol) {
		t.Errorf("inv(M)*M != I, got %v", gid)
	}
	p := Vec{X: -1, Y: 7, Z: 2.5}
	if back := inv.MulPosition(m.MulPosition(p)); !EqualElem(back, p, tol) {
		t.Errorf("round trip moved point: got %v, want %v", back, p)
	}
}

func TestMat4x3InverseDegenerate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for singular transform")
		}
	}()
	var zero Mat4x3
	zero.Inverse()
}

func TestTransformBox(t *testing.T) {
	const tol = 1e-5
	m := Mat4x3FromCols([12]float32{
		0, 1, 0,
		-1, 0, 0,
		0, 0, 2,
		10, 20, 30,
	})
	b := NewBox(-1, -2, -3, 4, 5, 6)
	got := m.TransformBox(b)
	// Reference: include all eight transformed corners.
	want := EmptyBox()
	for _, x := range []float32{b.Min.X, b.Max.X} {
		for _, y := range []float32{b.Min.Y, b.Max.Y} {
			for _, z := range []float32{b.Min.Z, b.Max.Z} {
				want = want.IncludePoint(m.MulPosition(Vec{X: x, Y: y, Z: z}))
			}
		}
	}
	if !got.Equal(want, tol) {
		t.Errorf("transformed box mismatch: got %+v, want %+v", got, want)
	}
}

func TestBoxUnionInclude(t *testing.T) {
	b := EmptyBox()
	b = b.IncludePoint(Vec{X: 1, Y: -1})
	b = b.IncludePoint(Vec{Z: 2})
	want := NewBox(0, -1, 0, 1, 0, 2)
	if !b.Equal(want, 0) {
		t.Errorf("grown box mismatch: got %+v, want %+v", b, want)
	}
	u := b.Union(NewBox(-5, 0, 0, 0, 0.5, 1))
	if !u.ContainsBox(b) {
		t.Error("union does not contain operand")
	}
}

func (a Mat4x3) approxEq(b Mat4x3, tol float32) bool {
	for i := range a.m {
		d := a.m[i] - b.m[i]
		if d < -tol || d > tol {
			return false
		}
	}
	return true
}
