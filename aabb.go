package physics

import "github.com/go-gl/mathgl/mgl32"

// AABB is an axis-aligned bounding box in world space (§3).
type AABB struct {
	Min, Max mgl32.Vec3
}

// Contains reports whether other lies entirely within a.
func (a AABB) Contains(other AABB) bool {
	return a.Min[0] <= other.Min[0] && a.Min[1] <= other.Min[1] && a.Min[2] <= other.Min[2] &&
		a.Max[0] >= other.Max[0] && a.Max[1] >= other.Max[1] && a.Max[2] >= other.Max[2]
}

// ContainsPoint reports whether p lies within a (inclusive).
func (a AABB) ContainsPoint(p mgl32.Vec3) bool {
	return p[0] >= a.Min[0] && p[0] <= a.Max[0] &&
		p[1] >= a.Min[1] && p[1] <= a.Max[1] &&
		p[2] >= a.Min[2] && p[2] <= a.Max[2]
}

// Overlaps is `AABBtoAABB` from §3: true if a and b intersect on every
// axis.
func (a AABB) Overlaps(b AABB) bool {
	if a.Max[0] < b.Min[0] || a.Min[0] > b.Max[0] {
		return false
	}
	if a.Max[1] < b.Min[1] || a.Min[1] > b.Max[1] {
		return false
	}
	if a.Max[2] < b.Min[2] || a.Min[2] > b.Max[2] {
		return false
	}
	return true
}

// SurfaceArea returns twice the sum of the box's face areas — cheap and
// monotonic, which is all the broadphase's insertion heuristic needs.
func (a AABB) SurfaceArea() float32 {
	d := a.Max.Sub(a.Min)
	return 2 * (d[0]*d[1] + d[1]*d[2] + d[2]*d[0])
}

// Combine returns the smallest AABB containing both a and b.
func (a AABB) Combine(b AABB) AABB {
	return AABB{
		Min: mgl32.Vec3{minF(a.Min[0], b.Min[0]), minF(a.Min[1], b.Min[1]), minF(a.Min[2], b.Min[2])},
		Max: mgl32.Vec3{maxF(a.Max[0], b.Max[0]), maxF(a.Max[1], b.Max[1]), maxF(a.Max[2], b.Max[2])},
	}
}

// Fatten expands the box by margin on every axis (§4.1).
func (a AABB) Fatten(margin float32) AABB {
	m := mgl32.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

func (a AABB) Center() mgl32.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// RayCast performs a slab test against a, guarding axis-aligned rays with
// a small epsilon on the direction components (§4.1). dir is expected to
// be a unit vector; maxT bounds the accepted hit distance.
func (a AABB) RayCast(start, dir mgl32.Vec3, maxT float32) (hit bool, tmin float32) {
	const epsilon = 1e-8
	tmin = 0
	tmax := maxT

	for axis := 0; axis < 3; axis++ {
		d := dir[axis]
		if absF(d) < epsilon {
			// Ray parallel to this slab: must already be within it.
			if start[axis] < a.Min[axis] || start[axis] > a.Max[axis] {
				return false, 0
			}
			continue
		}
		invD := 1 / d
		t1 := (a.Min[axis] - start[axis]) * invD
		t2 := (a.Max[axis] - start[axis]) * invD
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = maxF(tmin, t1)
		tmax = minF(tmax, t2)
		if tmin > tmax {
			return false, 0
		}
	}
	return true, tmin
}

// HalfSpace is an oriented plane `dot(normal, x) = offset`, used by the
// narrowphase to clip an incident face against a reference face's side
// planes.
type HalfSpace struct {
	Normal mgl32.Vec3
	Offset float32
}

// Distance returns the signed distance of p from the plane, positive on
// the side the normal points to.
func (h HalfSpace) Distance(p mgl32.Vec3) float32 {
	return h.Normal.Dot(p) - h.Offset
}
