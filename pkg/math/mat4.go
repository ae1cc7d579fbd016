package math

// Mat4 is a 4x4 matrix in column-major order (glTF and OpenGL compatible).
// Layout: [m0 m4 m8  m12]
//
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
type Mat4 [16]float32

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate returns a translation matrix.
func Translate(x, y, z float32) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

// Rotation returns a matrix whose upper-left 3x3 block is the row-major
// orientation rot, as stored by the simulator (rot[row][col]). Element (r, c)
// of the result is rot[r][c], so m[0..2] holds rot[0][0], rot[1][0], rot[2][0].
func Rotation(rot [3][3]float32) Mat4 {
	m := Identity()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[c*4+r] = rot[r][c]
		}
	}
	return m
}

// Compose builds the rigid transform that rotates by rot, then moves to pos.
// The translation column is pos and the bottom row is [0 0 0 1].
func Compose(rot [3][3]float32, pos Vec3) Mat4 {
	return Translate(pos.X, pos.Y, pos.Z).Mul(Rotation(rot))
}

// Mul multiplies this matrix by another (m * other).
func (m Mat4) Mul(other Mat4) Mat4 {
	var result Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			result[col*4+row] =
				m[0*4+row]*other[col*4+0] +
					m[1*4+row]*other[col*4+1] +
					m[2*4+row]*other[col*4+2] +
					m[3*4+row]*other[col*4+3]
		}
	}
	return result
}

// TransformPoint transforms a 3D point by this matrix (assumes w=1).
func (m Mat4) TransformPoint(p [3]float32) [3]float32 {
	x := m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12]
	y := m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13]
	z := m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14]
	w := m[3]*p[0] + m[7]*p[1] + m[11]*p[2] + m[15]
	if w != 0 && w != 1 {
		return [3]float32{x / w, y / w, z / w}
	}
	return [3]float32{x, y, z}
}

// TransformVec3 transforms a Vec3 point by this matrix.
func (m Mat4) TransformVec3(v Vec3) Vec3 {
	p := m.TransformPoint(v.Array())
	return Vec3{p[0], p[1], p[2]}
}

// FromFloat64s narrows a column-major float64 matrix, as stored in glTF nodes.
func FromFloat64s(v [16]float64) Mat4 {
	var m Mat4
	for i, f := range v {
		m[i] = float32(f)
	}
	return m
}

// Float64s widens the matrix to float64, keeping column-major order.
func (m Mat4) Float64s() [16]float64 {
	var out [16]float64
	for i, v := range m {
		out[i] = float64(v)
	}
	return out
}
