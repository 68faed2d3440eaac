package webdom

import (
	"fmt"
	"math"
)

// Matrix represents a 4x4 transformation matrix in row-major order
// with the row-vector convention used by CSS transforms:
//
//	| m11 m12 m13 m14 |
//	| m21 m22 m23 m24 |
//	| m31 m32 m33 m34 |
//	| m41 m42 m43 m44 |
//
// A point transforms as p' = p * M, so m41..m43 carry the translation.
// The matrix tracks whether it still represents a 2D transform: 3D
// inputs and 3D operations clear the flag, and it never comes back.
type Matrix struct {
	M11, M12, M13, M14 float64
	M21, M22, M23, M24 float64
	M31, M32, M33, M34 float64
	M41, M42, M43, M44 float64

	is3D bool
}

// Point is a 4-component point in homogeneous coordinates.
type Point struct {
	X, Y, Z, W float64
}

// Identity returns the identity matrix (2D).
func Identity() Matrix {
	return Matrix{
		M11: 1, M22: 1, M33: 1, M44: 1,
	}
}

// NewMatrix2D creates a 2D matrix from the six affine components
// a, b, c, d, e, f:
//
//	| a b 0 0 |
//	| c d 0 0 |
//	| 0 0 1 0 |
//	| e f 0 1 |
func NewMatrix2D(a, b, c, d, e, f float64) Matrix {
	return Matrix{
		M11: a, M12: b,
		M21: c, M22: d,
		M33: 1,
		M41: e, M42: f, M44: 1,
	}
}

// NewMatrix3D creates a 3D matrix from all sixteen components in
// row-major order.
func NewMatrix3D(
	m11, m12, m13, m14,
	m21, m22, m23, m24,
	m31, m32, m33, m34,
	m41, m42, m43, m44 float64,
) Matrix {
	return Matrix{
		M11: m11, M12: m12, M13: m13, M14: m14,
		M21: m21, M22: m22, M23: m23, M24: m24,
		M31: m31, M32: m32, M33: m33, M34: m34,
		M41: m41, M42: m42, M43: m43, M44: m44,
		is3D: true,
	}
}

// FromValues creates a matrix from either 6 entries (a 2D matrix) or
// 16 entries (a 3D matrix, row-major). Any other length is a
// type-class error.
func FromValues(entries ...float64) (Matrix, error) {
	switch len(entries) {
	case 6:
		return NewMatrix2D(
			entries[0], entries[1], entries[2],
			entries[3], entries[4], entries[5],
		), nil
	case 16:
		return NewMatrix3D(
			entries[0], entries[1], entries[2], entries[3],
			entries[4], entries[5], entries[6], entries[7],
			entries[8], entries[9], entries[10], entries[11],
			entries[12], entries[13], entries[14], entries[15],
		), nil
	default:
		return Matrix{}, fmt.Errorf("%w: expected 6 or 16 entries, but found %d", ErrType, len(entries))
	}
}

// Is2D reports whether the matrix still represents a 2D transform.
func (m Matrix) Is2D() bool {
	return !m.is3D
}

// IsIdentity reports whether the matrix is the identity matrix.
func (m Matrix) IsIdentity() bool {
	return m.M12 == 0 && m.M13 == 0 && m.M14 == 0 &&
		m.M21 == 0 && m.M23 == 0 && m.M24 == 0 &&
		m.M31 == 0 && m.M32 == 0 && m.M34 == 0 &&
		m.M41 == 0 && m.M42 == 0 && m.M43 == 0 &&
		m.M11 == 1 && m.M22 == 1 && m.M33 == 1 && m.M44 == 1
}

// A returns the 2D component m11.
func (m Matrix) A() float64 { return m.M11 }

// B returns the 2D component m12.
func (m Matrix) B() float64 { return m.M12 }

// C returns the 2D component m21.
func (m Matrix) C() float64 { return m.M21 }

// D returns the 2D component m22.
func (m Matrix) D() float64 { return m.M22 }

// E returns the 2D component m41.
func (m Matrix) E() float64 { return m.M41 }

// F returns the 2D component m42.
func (m Matrix) F() float64 { return m.M42 }

// mul returns the row-major product a*b. With the row-vector
// convention this applies a first, then b.
func mul(a, b Matrix) Matrix {
	return Matrix{
		M11: a.M11*b.M11 + a.M12*b.M21 + a.M13*b.M31 + a.M14*b.M41,
		M12: a.M11*b.M12 + a.M12*b.M22 + a.M13*b.M32 + a.M14*b.M42,
		M13: a.M11*b.M13 + a.M12*b.M23 + a.M13*b.M33 + a.M14*b.M43,
		M14: a.M11*b.M14 + a.M12*b.M24 + a.M13*b.M34 + a.M14*b.M44,

		M21: a.M21*b.M11 + a.M22*b.M21 + a.M23*b.M31 + a.M24*b.M41,
		M22: a.M21*b.M12 + a.M22*b.M22 + a.M23*b.M32 + a.M24*b.M42,
		M23: a.M21*b.M13 + a.M22*b.M23 + a.M23*b.M33 + a.M24*b.M43,
		M24: a.M21*b.M14 + a.M22*b.M24 + a.M23*b.M34 + a.M24*b.M44,

		M31: a.M31*b.M11 + a.M32*b.M21 + a.M33*b.M31 + a.M34*b.M41,
		M32: a.M31*b.M12 + a.M32*b.M22 + a.M33*b.M32 + a.M34*b.M42,
		M33: a.M31*b.M13 + a.M32*b.M23 + a.M33*b.M33 + a.M34*b.M43,
		M34: a.M31*b.M14 + a.M32*b.M24 + a.M33*b.M34 + a.M34*b.M44,

		M41: a.M41*b.M11 + a.M42*b.M21 + a.M43*b.M31 + a.M44*b.M41,
		M42: a.M41*b.M12 + a.M42*b.M22 + a.M43*b.M32 + a.M44*b.M42,
		M43: a.M41*b.M13 + a.M42*b.M23 + a.M43*b.M33 + a.M44*b.M43,
		M44: a.M41*b.M14 + a.M42*b.M24 + a.M43*b.M34 + a.M44*b.M44,

		is3D: a.is3D || b.is3D,
	}
}

// then returns the matrix that applies the new transform n first and
// m afterwards. All derived operations compose through here.
func (m Matrix) then(n Matrix) Matrix {
	return mul(n, m)
}

// Multiply returns m * other: the other transform is applied first,
// then m, matching DOMMatrix multiplication.
func (m Matrix) Multiply(other Matrix) Matrix {
	return m.then(other)
}

// Translate returns the matrix translated by (tx, ty, tz). A non-zero
// tz makes the result 3D.
func (m Matrix) Translate(tx, ty, tz float64) Matrix {
	t := Identity()
	t.M41, t.M42, t.M43 = tx, ty, tz
	out := m.then(t)
	if tz != 0 {
		out.is3D = true
	}
	return out
}

// Scale returns the matrix scaled by (sx, sy, sz) about the origin.
// A scaleZ other than 1 makes the result 3D.
func (m Matrix) Scale(sx, sy, sz float64) Matrix {
	return m.ScaleAround(sx, sy, sz, 0, 0, 0)
}

// ScaleNonUniform returns the matrix scaled by (sx, sy) in the plane.
func (m Matrix) ScaleNonUniform(sx, sy float64) Matrix {
	return m.ScaleAround(sx, sy, 1, 0, 0, 0)
}

// ScaleAround returns the matrix scaled by (sx, sy, sz) about the
// point (ox, oy, oz).
func (m Matrix) ScaleAround(sx, sy, sz, ox, oy, oz float64) Matrix {
	out := m.Translate(ox, oy, oz)
	s := Identity()
	s.M11, s.M22, s.M33 = sx, sy, sz
	out = out.then(s)
	out = out.Translate(-ox, -oy, -oz)
	if sz != 1 || oz != 0 {
		out.is3D = true
	}
	return out
}

// Scale3D returns the matrix scaled uniformly by scale about the point
// (ox, oy, oz). The result is 3D unless scale is 1.
func (m Matrix) Scale3D(scale, ox, oy, oz float64) Matrix {
	out := m.Translate(ox, oy, oz)
	s := Identity()
	s.M11, s.M22, s.M33 = scale, scale, scale
	out = out.then(s)
	out = out.Translate(-ox, -oy, -oz)
	if scale != 1 {
		out.is3D = true
	}
	return out
}

// Rotate returns the matrix rotated by angle degrees about the z axis.
func (m Matrix) Rotate(angle float64) Matrix {
	return m.RotateXYZ(0, 0, angle)
}

// RotateXYZ returns the matrix rotated by the given angles in degrees:
// first about z, then y, then x. Non-zero x or y rotation makes the
// result 3D.
func (m Matrix) RotateXYZ(rotX, rotY, rotZ float64) Matrix {
	out := m
	if rotZ != 0 {
		out = out.then(axisRotation(0, 0, 1, rotZ*math.Pi/180))
	}
	if rotY != 0 {
		out = out.then(axisRotation(0, 1, 0, rotY*math.Pi/180))
	}
	if rotX != 0 {
		out = out.then(axisRotation(1, 0, 0, rotX*math.Pi/180))
	}
	if rotX != 0 || rotY != 0 {
		out.is3D = true
	}
	return out
}

// RotateFromVector returns the matrix rotated by the angle between the
// positive x axis and the vector (x, y). A zero or undefined angle is
// a no-op.
func (m Matrix) RotateFromVector(x, y float64) Matrix {
	if y == 0 && x >= 0 {
		return m
	}
	return m.then(axisRotation(0, 0, 1, math.Atan2(y, x)))
}

// RotateAxisAngle returns the matrix rotated by angle degrees about
// the axis (x, y, z). The axis is normalized first; a zero axis is a
// no-op. A non-zero x or y makes the result 3D.
func (m Matrix) RotateAxisAngle(x, y, z, angle float64) Matrix {
	length := math.Sqrt(x*x + y*y + z*z)
	if length == 0 {
		return m
	}
	out := m.then(axisRotation(x/length, y/length, z/length, angle*math.Pi/180))
	if x != 0 || y != 0 {
		out.is3D = true
	}
	return out
}

// SkewX returns the matrix skewed by sx degrees along the x axis.
func (m Matrix) SkewX(sx float64) Matrix {
	s := Identity()
	s.M21 = math.Tan(sx * math.Pi / 180)
	return m.then(s)
}

// SkewY returns the matrix skewed by sy degrees along the y axis.
func (m Matrix) SkewY(sy float64) Matrix {
	s := Identity()
	s.M12 = math.Tan(sy * math.Pi / 180)
	return m.then(s)
}

// FlipX returns the matrix flipped about the y axis.
func (m Matrix) FlipX() Matrix {
	f := Identity()
	f.M11 = -1
	return m.then(f)
}

// FlipY returns the matrix flipped about the x axis.
func (m Matrix) FlipY() Matrix {
	f := Identity()
	f.M22 = -1
	return m.then(f)
}

// Inverse returns the inverse matrix. If the matrix is not invertible,
// every component of the result is NaN and the result is 3D.
func (m Matrix) Inverse() Matrix {
	inv, ok := m.invert()
	if !ok {
		nan := math.NaN()
		return Matrix{
			M11: nan, M12: nan, M13: nan, M14: nan,
			M21: nan, M22: nan, M23: nan, M24: nan,
			M31: nan, M32: nan, M33: nan, M34: nan,
			M41: nan, M42: nan, M43: nan, M44: nan,
			is3D: true,
		}
	}
	return inv
}

// TransformPoint applies the transform to a 4-component point without
// normalizing the homogeneous coordinate.
func (m Matrix) TransformPoint(p Point) Point {
	return Point{
		X: p.X*m.M11 + p.Y*m.M21 + p.Z*m.M31 + p.W*m.M41,
		Y: p.X*m.M12 + p.Y*m.M22 + p.Z*m.M32 + p.W*m.M42,
		Z: p.X*m.M13 + p.Y*m.M23 + p.Z*m.M33 + p.W*m.M43,
		W: p.X*m.M14 + p.Y*m.M24 + p.Z*m.M34 + p.W*m.M44,
	}
}

// Float64Slice returns the sixteen components in row-major order.
func (m Matrix) Float64Slice() []float64 {
	return []float64{
		m.M11, m.M12, m.M13, m.M14,
		m.M21, m.M22, m.M23, m.M24,
		m.M31, m.M32, m.M33, m.M34,
		m.M41, m.M42, m.M43, m.M44,
	}
}

// Float32Slice returns the sixteen components in row-major order,
// narrowed to float32.
func (m Matrix) Float32Slice() []float32 {
	f64 := m.Float64Slice()
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}

// axisRotation builds a rotation of angle radians about the unit axis
// (x, y, z), row-vector convention.
func axisRotation(x, y, z, angle float64) Matrix {
	s := math.Sin(angle)
	c := math.Cos(angle)
	t := 1 - c
	r := Identity()
	r.M11 = c + x*x*t
	r.M12 = x*y*t + z*s
	r.M13 = x*z*t - y*s
	r.M21 = x*y*t - z*s
	r.M22 = c + y*y*t
	r.M23 = y*z*t + x*s
	r.M31 = x*z*t + y*s
	r.M32 = y*z*t - x*s
	r.M33 = c + z*z*t
	return r
}

// invert computes the full 4x4 inverse by cofactor expansion.
func (m Matrix) invert() (Matrix, bool) {
	a := m.Float64Slice()
	inv := make([]float64, 16)

	inv[0] = a[5]*a[10]*a[15] - a[5]*a[11]*a[14] - a[9]*a[6]*a[15] +
		a[9]*a[7]*a[14] + a[13]*a[6]*a[11] - a[13]*a[7]*a[10]
	inv[4] = -a[4]*a[10]*a[15] + a[4]*a[11]*a[14] + a[8]*a[6]*a[15] -
		a[8]*a[7]*a[14] - a[12]*a[6]*a[11] + a[12]*a[7]*a[10]
	inv[8] = a[4]*a[9]*a[15] - a[4]*a[11]*a[13] - a[8]*a[5]*a[15] +
		a[8]*a[7]*a[13] + a[12]*a[5]*a[11] - a[12]*a[7]*a[9]
	inv[12] = -a[4]*a[9]*a[14] + a[4]*a[10]*a[13] + a[8]*a[5]*a[14] -
		a[8]*a[6]*a[13] - a[12]*a[5]*a[10] + a[12]*a[6]*a[9]

	inv[1] = -a[1]*a[10]*a[15] + a[1]*a[11]*a[14] + a[9]*a[2]*a[15] -
		a[9]*a[3]*a[14] - a[13]*a[2]*a[11] + a[13]*a[3]*a[10]
	inv[5] = a[0]*a[10]*a[15] - a[0]*a[11]*a[14] - a[8]*a[2]*a[15] +
		a[8]*a[3]*a[14] + a[12]*a[2]*a[11] - a[12]*a[3]*a[10]
	inv[9] = -a[0]*a[9]*a[15] + a[0]*a[11]*a[13] + a[8]*a[1]*a[15] -
		a[8]*a[3]*a[13] - a[12]*a[1]*a[11] + a[12]*a[3]*a[9]
	inv[13] = a[0]*a[9]*a[14] - a[0]*a[10]*a[13] - a[8]*a[1]*a[14] +
		a[8]*a[2]*a[13] + a[12]*a[1]*a[10] - a[12]*a[2]*a[9]

	inv[2] = a[1]*a[6]*a[15] - a[1]*a[7]*a[14] - a[5]*a[2]*a[15] +
		a[5]*a[3]*a[14] + a[13]*a[2]*a[7] - a[13]*a[3]*a[6]
	inv[6] = -a[0]*a[6]*a[15] + a[0]*a[7]*a[14] + a[4]*a[2]*a[15] -
		a[4]*a[3]*a[14] - a[12]*a[2]*a[7] + a[12]*a[3]*a[6]
	inv[10] = a[0]*a[5]*a[15] - a[0]*a[7]*a[13] - a[4]*a[1]*a[15] +
		a[4]*a[3]*a[13] + a[12]*a[1]*a[7] - a[12]*a[3]*a[5]
	inv[14] = -a[0]*a[5]*a[14] + a[0]*a[6]*a[13] + a[4]*a[1]*a[14] -
		a[4]*a[2]*a[13] - a[12]*a[1]*a[6] + a[12]*a[2]*a[5]

	inv[3] = -a[1]*a[6]*a[11] + a[1]*a[7]*a[10] + a[5]*a[2]*a[11] -
		a[5]*a[3]*a[10] - a[9]*a[2]*a[7] + a[9]*a[3]*a[6]
	inv[7] = a[0]*a[6]*a[11] - a[0]*a[7]*a[10] - a[4]*a[2]*a[11] +
		a[4]*a[3]*a[10] + a[8]*a[2]*a[7] - a[8]*a[3]*a[6]
	inv[11] = -a[0]*a[5]*a[11] + a[0]*a[7]*a[9] + a[4]*a[1]*a[11] -
		a[4]*a[3]*a[9] - a[8]*a[1]*a[7] + a[8]*a[3]*a[5]
	inv[15] = a[0]*a[5]*a[10] - a[0]*a[6]*a[9] - a[4]*a[1]*a[10] +
		a[4]*a[2]*a[9] + a[8]*a[1]*a[6] - a[8]*a[2]*a[5]

	det := a[0]*inv[0] + a[1]*inv[4] + a[2]*inv[8] + a[3]*inv[12]
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Matrix{}, false
	}

	for i := range inv {
		inv[i] /= det
	}

	out, _ := FromValues(inv...)
	out.is3D = m.is3D
	return out, true
}
