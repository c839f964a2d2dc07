package physics

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Box is an oriented bounding box collider attached to exactly one Body
// (§3, §9 — the source's multi-box-per-body form is simplified here to
// a single box per body).
type Box struct {
	Local       Transform // transform of the box inside its body's frame
	Extent      mgl32.Vec3 // half-extents along the box's own axes
	Friction    float32
	Restitution float32
	Density     float32
	Sensor      bool

	body            *Body
	broadPhaseIndex int32

	// DebugTag is an opaque identifier for log/trace correlation only; it
	// plays no role in engine identity (§ SPEC_FULL "domain stack").
	DebugTag string
}

// BoxDef configures a Box passed to Body.SetBox. Extents is the *full*
// extent along each local axis; the stored half-extent is Extents*0.5
// (§6).
type BoxDef struct {
	Transform   Transform
	Extents     mgl32.Vec3
	Friction    float32
	Restitution float32
	Density     float32
	Sensor      bool
}

// DefaultBoxDef returns a BoxDef with the documented defaults
// (friction 0.4, restitution 0.2, density 1.0) and a unit cube.
func DefaultBoxDef() BoxDef {
	return BoxDef{
		Transform:   Identity(),
		Extents:     mgl32.Vec3{1, 1, 1},
		Friction:    0.4,
		Restitution: 0.2,
		Density:     1.0,
	}
}

// Body returns the box's owning body.
func (b *Box) Body() *Body { return b.body }

// WorldTransform returns the box's transform composed with its body's
// current world transform.
func (b *Box) WorldTransform() Transform {
	return b.body.transform.Mul(b.Local)
}

// ComputeAABB returns the box's tight world-space AABB for the given body
// transform, by projecting the box's half-extents through its rotation
// (§4.7 uses this for the exact per-candidate AABB test).
func (b *Box) ComputeAABB(bodyTx Transform) AABB {
	tx := bodyTx.Mul(b.Local)
	// World-space extent of an OBB's AABB is the sum, per axis, of the
	// absolute projection of each local half-extent axis.
	ex := mat3Col(tx.Rotation, 0).Mul(b.Extent[0])
	ey := mat3Col(tx.Rotation, 1).Mul(b.Extent[1])
	ez := mat3Col(tx.Rotation, 2).Mul(b.Extent[2])
	worldExtent := mgl32.Vec3{
		absF(ex[0]) + absF(ey[0]) + absF(ez[0]),
		absF(ex[1]) + absF(ey[1]) + absF(ez[1]),
		absF(ex[2]) + absF(ey[2]) + absF(ez[2]),
	}
	return AABB{Min: tx.Position.Sub(worldExtent), Max: tx.Position.Add(worldExtent)}
}

// massData holds the intermediate mass properties of a single box, in the
// owning body's local frame, before it is folded into the body's total.
type massData struct {
	inertia mgl32.Mat3
	center  mgl32.Vec3
	mass    float32
}

// computeMass computes this box's mass, its center of mass in the body's
// local frame, and its inertia tensor already shifted to the body's
// origin (i.e. combining the box's own inertia with the parallel-axis
// term for its offset from the body origin) — mirroring q3Box::ComputeMass.
func (b *Box) computeMass() massData {
	ex, ey, ez := b.Extent[0], b.Extent[1], b.Extent[2]
	mass := 8 * ex * ey * ez * b.Density

	ex2, ey2, ez2 := 4*ex*ex, 4*ey*ey, 4*ez*ez
	ix := (mass / 12) * (ey2 + ez2)
	iy := (mass / 12) * (ex2 + ez2)
	iz := (mass / 12) * (ex2 + ey2)
	localInertia := mat3Diag(ix, iy, iz)

	r := b.Local.Rotation
	inertia := mat3Mul(mat3Mul(r, localInertia), mat3Transpose(r))
	p := b.Local.Position
	shift := mat3Scale(mat3Sub(mat3Scale(mat3Identity(), p.Dot(p)), outerProduct(p, p)), mass)
	inertia = matAdd(inertia, shift)

	return massData{inertia: inertia, center: p, mass: mass}
}

// TestPoint reports whether world point p lies inside the box, given the
// body's current world transform (§4.7).
func (b *Box) TestPoint(bodyTx Transform, p mgl32.Vec3) bool {
	tx := bodyTx.Mul(b.Local)
	local := tx.InvPoint(p)
	return absF(local[0]) <= b.Extent[0] && absF(local[1]) <= b.Extent[1] && absF(local[2]) <= b.Extent[2]
}

// Raycast intersects a world-space ray against the box in its own local
// space via the slab method (§4.7), returning the hit distance and world
// normal.
func (b *Box) Raycast(bodyTx Transform, start, dir mgl32.Vec3, maxT float32) (hit bool, t float32, normal mgl32.Vec3) {
	tx := bodyTx.Mul(b.Local)
	localStart := tx.InvPoint(start)
	localDir := tx.InvVector(dir)

	localAABB := AABB{Min: b.Extent.Mul(-1), Max: b.Extent}
	ok, tHit := localAABB.RayCast(localStart, localDir, maxT)
	if !ok {
		return false, 0, mgl32.Vec3{}
	}

	hitLocal := localStart.Add(localDir.Mul(tHit))
	n := localFaceNormal(hitLocal, b.Extent)
	return true, tHit, tx.Vector(n)
}

// localFaceNormal picks the axis-aligned face normal of the local point
// hitLocal on a box with the given half-extents (the axis whose distance
// to its extent is smallest).
func localFaceNormal(hitLocal, extent mgl32.Vec3) mgl32.Vec3 {
	best := 0
	bestDist := float32(1e30)
	sign := float32(1)
	for axis := 0; axis < 3; axis++ {
		d := extent[axis] - absF(hitLocal[axis])
		if d < bestDist {
			bestDist = d
			best = axis
			if hitLocal[axis] < 0 {
				sign = -1
			} else {
				sign = 1
			}
		}
	}
	n := mgl32.Vec3{}
	n[best] = sign
	return n
}

func newDebugTag() string { return uuid.NewString() }

// small Mat3 helpers used only by computeMass, kept local to avoid
// growing mathutil.go's general-purpose surface for a single call site.
func mat3Scale(m mgl32.Mat3, s float32) mgl32.Mat3 {
	var out mgl32.Mat3
	for i := range m {
		out[i] = m[i] * s
	}
	return out
}

func matAdd(a, b mgl32.Mat3) mgl32.Mat3 {
	var out mgl32.Mat3
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func mat3Sub(a, b mgl32.Mat3) mgl32.Mat3 {
	var out mgl32.Mat3
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func outerProduct(a, b mgl32.Vec3) mgl32.Mat3 {
	return mgl32.Mat3{
		a[0] * b[0], a[1] * b[0], a[2] * b[0],
		a[0] * b[1], a[1] * b[1], a[2] * b[1],
		a[0] * b[2], a[1] * b[2], a[2] * b[2],
	}
}
