package physics

import "github.com/go-gl/mathgl/mgl32"

// Transform is a rigid affine transform: a rotation matrix and a world
// position, matching the source's `Transform = { rotation: Mat3, position:
// Vec3 }` (§3).
type Transform struct {
	Rotation mgl32.Mat3
	Position mgl32.Vec3
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: mat3Identity()}
}

// TransformFromQuat builds a Transform whose rotation matrix is derived
// from the given quaternion, at the given position.
func TransformFromQuat(position mgl32.Vec3, q mgl32.Quat) Transform {
	return Transform{Rotation: quatToMat3(q), Position: position}
}

// Point maps a point from this transform's local space into world space.
func (t Transform) Point(local mgl32.Vec3) mgl32.Vec3 {
	return t.Position.Add(mat3MulVec3(t.Rotation, local))
}

// Vector maps a free vector (direction) from local space into world
// space; unlike Point, it ignores translation.
func (t Transform) Vector(local mgl32.Vec3) mgl32.Vec3 {
	return mat3MulVec3(t.Rotation, local)
}

// InvPoint maps a world-space point into this transform's local space.
func (t Transform) InvPoint(world mgl32.Vec3) mgl32.Vec3 {
	return mat3MulVec3(mat3Transpose(t.Rotation), world.Sub(t.Position))
}

// InvVector maps a world-space free vector into local space.
func (t Transform) InvVector(world mgl32.Vec3) mgl32.Vec3 {
	return mat3MulVec3(mat3Transpose(t.Rotation), world)
}

// Mul composes two transforms: applying the result to a point is the same
// as applying `inner` and then `t`.
func (t Transform) Mul(inner Transform) Transform {
	return Transform{
		Rotation: mat3Mul(t.Rotation, inner.Rotation),
		Position: t.Point(inner.Position),
	}
}
