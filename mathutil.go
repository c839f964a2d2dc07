package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Thin glue over mgl32's Vec3/Mat3/Quat. Vector algebra (Add, Sub, Mul,
// Cross, Dot, Normalize, Len) comes straight from mgl32; this file only
// supplies the handful of matrix/quaternion operations the solver needs
// that are easiest to keep local and unambiguous: matrix-vector product,
// matrix product and transpose (mgl32.Mat3 is a plain [9]float32 in
// column-major order, so these are direct array arithmetic), quaternion
// composition, and the semi-implicit quaternion integration q3Body uses.

// mat3Get indexes a Mat3 in column-major order: element (row, col) lives
// at col*3+row.
func mat3Get(m mgl32.Mat3, row, col int) float32 { return m[col*3+row] }

func mat3Identity() mgl32.Mat3 {
	return mgl32.Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

func mat3MulVec3(m mgl32.Mat3, v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		mat3Get(m, 0, 0)*v[0] + mat3Get(m, 0, 1)*v[1] + mat3Get(m, 0, 2)*v[2],
		mat3Get(m, 1, 0)*v[0] + mat3Get(m, 1, 1)*v[1] + mat3Get(m, 1, 2)*v[2],
		mat3Get(m, 2, 0)*v[0] + mat3Get(m, 2, 1)*v[1] + mat3Get(m, 2, 2)*v[2],
	}
}

func mat3Mul(a, b mgl32.Mat3) mgl32.Mat3 {
	var out mgl32.Mat3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			var sum float32
			for k := 0; k < 3; k++ {
				sum += mat3Get(a, row, k) * mat3Get(b, k, col)
			}
			out[col*3+row] = sum
		}
	}
	return out
}

func mat3Transpose(m mgl32.Mat3) mgl32.Mat3 {
	return mgl32.Mat3{
		mat3Get(m, 0, 0), mat3Get(m, 0, 1), mat3Get(m, 0, 2),
		mat3Get(m, 1, 0), mat3Get(m, 1, 1), mat3Get(m, 1, 2),
		mat3Get(m, 2, 0), mat3Get(m, 2, 1), mat3Get(m, 2, 2),
	}
}

func mat3Diag(x, y, z float32) mgl32.Mat3 {
	return mgl32.Mat3{x, 0, 0, 0, y, 0, 0, 0, z}
}

// mat3Inverse inverts a general 3x3 matrix via the adjugate/determinant
// method. Used only for inverting a body's (generally non-diagonal, once
// rotated) inertia tensor; a singular tensor (degenerate geometry) yields
// the zero matrix rather than a divide-by-zero, consistent with §7's
// "zero-length results are clamped to zero" policy.
func mat3Inverse(m mgl32.Mat3) mgl32.Mat3 {
	a, b, c := mat3Get(m, 0, 0), mat3Get(m, 0, 1), mat3Get(m, 0, 2)
	d, e, f := mat3Get(m, 1, 0), mat3Get(m, 1, 1), mat3Get(m, 1, 2)
	g, h, i := mat3Get(m, 2, 0), mat3Get(m, 2, 1), mat3Get(m, 2, 2)

	det := a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
	if absF(det) < 1e-12 {
		return mgl32.Mat3{}
	}
	invDet := 1 / det

	var out mgl32.Mat3
	set := func(row, col int, v float32) { out[col*3+row] = v }
	set(0, 0, (e*i-f*h)*invDet)
	set(0, 1, (c*h-b*i)*invDet)
	set(0, 2, (b*f-c*e)*invDet)
	set(1, 0, (f*g-d*i)*invDet)
	set(1, 1, (a*i-c*g)*invDet)
	set(1, 2, (c*d-a*f)*invDet)
	set(2, 0, (d*h-e*g)*invDet)
	set(2, 1, (b*g-a*h)*invDet)
	set(2, 2, (a*e-b*d)*invDet)
	return out
}

// mat3FromColumns builds a matrix from three column vectors. The
// narrowphase reads a box's world axes with mat3Col rather than this.
func mat3FromColumns(c0, c1, c2 mgl32.Vec3) mgl32.Mat3 {
	return mgl32.Mat3{
		c0[0], c0[1], c0[2],
		c1[0], c1[1], c1[2],
		c2[0], c2[1], c2[2],
	}
}

func mat3Col(m mgl32.Mat3, col int) mgl32.Vec3 {
	return mgl32.Vec3{mat3Get(m, 0, col), mat3Get(m, 1, col), mat3Get(m, 2, col)}
}

// quatToMat3 builds the rotation matrix for a unit quaternion.
func quatToMat3(q mgl32.Quat) mgl32.Mat3 {
	x, y, z, w := q.V[0], q.V[1], q.V[2], q.W
	x2, y2, z2 := x+x, y+y, z+z
	xx, xy, xz := x*x2, x*y2, x*z2
	yy, yz, zz := y*y2, y*z2, z*z2
	wx, wy, wz := w*x2, w*y2, w*z2

	return mgl32.Mat3{
		1 - (yy + zz), xy + wz, xz - wy,
		xy - wz, 1 - (xx + zz), yz + wx,
		xz + wy, yz - wx, 1 - (xx + yy),
	}
}

// quatMul returns the Hamilton product q1 ⊗ q2: applying the result
// rotates by q2 first, then by q1.
func quatMul(q1, q2 mgl32.Quat) mgl32.Quat {
	w := q1.W*q2.W - q1.V.Dot(q2.V)
	v := q2.V.Mul(q1.W).Add(q1.V.Mul(q2.W)).Add(q1.V.Cross(q2.V))
	return mgl32.Quat{W: w, V: v}
}

func quatNormalize(q mgl32.Quat) mgl32.Quat {
	n := float32(math.Sqrt(float64(q.W*q.W + q.V.Dot(q.V))))
	if n <= 1e-12 {
		return mgl32.Quat{W: 1, V: mgl32.Vec3{}}
	}
	inv := 1 / n
	return mgl32.Quat{W: q.W * inv, V: q.V.Mul(inv)}
}

// integrateQuat advances q by angular velocity w over dt using the
// standard semi-implicit q̇ = 0.5 * (0,w) ⊗ q update, followed by
// renormalization (§4.5, "Numerical safety").
func integrateQuat(q mgl32.Quat, w mgl32.Vec3, dt float32) mgl32.Quat {
	wq := mgl32.Quat{W: 0, V: w}
	dq := quatMul(wq, q) // w is world-frame: dq = (0,w) * q
	next := mgl32.Quat{
		W: q.W + 0.5*dt*dq.W,
		V: q.V.Add(dq.V.Mul(0.5 * dt)),
	}
	return quatNormalize(next)
}

func quatFromAxisAngle(axis mgl32.Vec3, angle float32) mgl32.Quat {
	if axis.Len() < 1e-12 {
		return mgl32.Quat{W: 1}
	}
	axis = axis.Normalize()
	half := angle * 0.5
	s := float32(math.Sin(float64(half)))
	c := float32(math.Cos(float64(half)))
	return mgl32.Quat{W: c, V: axis.Mul(s)}
}

// safeInv returns 1/x, or 0 when x is non-positive — the "division by
// constraint mass" guard from §4.5.
func safeInv(x float32) float32 {
	if x > 0 {
		return 1 / x
	}
	return 0
}

func clampF(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func absF(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
