package physics

import "github.com/go-gl/mathgl/mgl32"

// Broadphase generates candidate colliding pairs from a set of moving
// fattened AABBs (§4.1). DynamicTreeBroadphase is one conforming
// implementation. Scene maps the handles a Broadphase returns back to
// boxes only for *DynamicTreeBroadphase; with any other implementation
// Scene resolves no handle to a box, so it adds no contacts and its
// queries report nothing.
type Broadphase interface {
	Insert(box *Box, tight AABB) int32
	Remove(handle int32)
	// Update re-fattens and stores the tight AABB, and marks the handle
	// moved, only when the stored fat AABB no longer contains it; it
	// reports whether it did so (§4.1 "move set").
	Update(handle int32, tight AABB) bool
	TestOverlap(a, b int32) bool
	// GeneratePairs returns every unique overlapping pair among the
	// handles marked moved since the last call, then clears the moved
	// set.
	GeneratePairs() []BroadphasePair
	QueryAABB(aabb AABB, cb func(handle int32) bool)
	QueryRay(start, dir mgl32.Vec3, maxT float32, cb func(handle int32) bool)
}

// BroadphasePair is one candidate pair reported by GeneratePairs.
type BroadphasePair struct {
	A, B int32
}
