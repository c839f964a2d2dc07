package physics

import "github.com/go-gl/mathgl/mgl32"

// Contact is a single point in a Manifold (§3). Everything past Position
// and Penetration is solver bookkeeping that persists across frames via
// warm starting.
type Contact struct {
	Position mgl32.Vec3
	Penetration float32

	NormalImpulse    float32
	TangentImpulse   [2]float32
	Bias             float32
	NormalMass       float32
	TangentMass      [2]float32

	FP FeaturePair

	// WarmStarted counts how many consecutive frames this contact point
	// has carried an impulse forward; purely a debug/visual signal (§4.3),
	// never read by the solver.
	WarmStarted uint8
}

// Manifold is the result of one narrowphase test between two boxes (§3).
type Manifold struct {
	A, B *Box

	Normal   mgl32.Vec3 // from A to B
	Tangents [2]mgl32.Vec3

	Contacts     [8]Contact
	ContactCount int

	Sensor bool
}

// computeBasis derives two tangent vectors orthogonal to normal and to
// each other, using the same "pick the least-parallel world axis" trick
// as the source (avoids degenerate cross products when normal is close
// to a coordinate axis).
func computeBasis(normal mgl32.Vec3) (t1, t2 mgl32.Vec3) {
	var axis mgl32.Vec3
	if absF(normal[0]) >= 0.57735 {
		axis = mgl32.Vec3{0, 1, 0}
	} else {
		axis = mgl32.Vec3{1, 0, 0}
	}
	t1 = axis.Cross(normal)
	if t1.Dot(t1) < 1e-12 {
		axis = mgl32.Vec3{0, 0, 1}
		t1 = axis.Cross(normal)
	}
	t1 = t1.Normalize()
	t2 = normal.Cross(t1).Normalize()
	return t1, t2
}
