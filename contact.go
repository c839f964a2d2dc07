package physics

import "math"

// ContactEdge is one node of the intrusive doubly-linked list a Body
// keeps of the constraints touching it (q3ContactEdge), letting the
// island builder and body removal walk a body's contacts without a
// separate index.
type ContactEdge struct {
	other      *Body
	constraint *ContactConstraint
	prev, next *ContactEdge
}

// Other returns the body on the far side of this edge.
func (e *ContactEdge) Other() *Body { return e.other }

// ContactConstraint pairs two boxes under active broadphase overlap and
// carries their manifold plus solver/island bookkeeping across frames
// (§3, §4.3, §4.4).
type ContactConstraint struct {
	A, B *Box

	edgeA, edgeB ContactEdge

	Friction    float32
	Restitution float32

	manifold Manifold

	// Colliding records whether the latest TestCollisions produced any
	// contact points; WasColliding is copied from the previous frame's
	// Colliding before TestCollisions overwrites it.
	Colliding    bool
	WasColliding bool

	// Island is reset every Step and set by the island builder (§4.4).
	Island bool

	// Sensor pairs generate no impulses (the island builder skips them)
	// but are still tracked, with a fresh manifold every Step.
	Sensor bool
}

// Manifold exposes the constraint's current manifold for read-only
// inspection (rendering, debugging, sensor callbacks).
func (c *ContactConstraint) Manifold() *Manifold { return &c.manifold }

// mixFriction and mixRestitution match q3's per-pair mixing rules: the
// geometric mean for friction, the max for restitution (§4.3).
func mixFriction(a, b float32) float32 {
	return float32(math.Sqrt(float64(a * b)))
}

func mixRestitution(a, b float32) float32 {
	return maxF(a, b)
}
