package math

import "math"

// Mat3 is a 3x3 matrix in column-major order, matching Mat4.
// Layout: [m0 m3 m6]
//
//	[m1 m4 m7]
//	[m2 m5 m8]
type Mat3 [9]float64

// Mat3Identity returns an identity matrix.
func Mat3Identity() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// Mat3FromColumns builds a matrix whose columns are x, y and z.
// For an orthonormal basis this is the rotation taking world axes onto the basis.
func Mat3FromColumns(x, y, z Vec3) Mat3 {
	return Mat3{
		x.X, x.Y, x.Z,
		y.X, y.Y, y.Z,
		z.X, z.Y, z.Z,
	}
}

// Col returns column i (0, 1 or 2).
func (m Mat3) Col(i int) Vec3 {
	return Vec3{m[i*3], m[i*3+1], m[i*3+2]}
}

// MulVec3 returns m * v.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[3]*v.Y + m[6]*v.Z,
		m[1]*v.X + m[4]*v.Y + m[7]*v.Z,
		m[2]*v.X + m[5]*v.Y + m[8]*v.Z,
	}
}

// Mul returns m * other.
func (m Mat3) Mul(other Mat3) Mat3 {
	var result Mat3
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			result[col*3+row] =
				m[0*3+row]*other[col*3+0] +
					m[1*3+row]*other[col*3+1] +
					m[2*3+row]*other[col*3+2]
		}
	}
	return result
}

// Transpose returns the transposed matrix.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// Det returns the determinant.
func (m Mat3) Det() float64 {
	return m[0]*(m[4]*m[8]-m[7]*m[5]) -
		m[3]*(m[1]*m[8]-m[7]*m[2]) +
		m[6]*(m[1]*m[5]-m[4]*m[2])
}

// IsOrthonormal reports whether the columns are unit length and pairwise
// orthogonal within eps.
func (m Mat3) IsOrthonormal(eps float64) bool {
	x, y, z := m.Col(0), m.Col(1), m.Col(2)
	for _, c := range []Vec3{x, y, z} {
		if math.Abs(c.Length()-1) > eps {
			return false
		}
	}
	return math.Abs(x.Dot(y)) <= eps &&
		math.Abs(y.Dot(z)) <= eps &&
		math.Abs(x.Dot(z)) <= eps
}
