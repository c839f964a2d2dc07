package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFloorScene(gravity mgl32.Vec3, iterations int) (*Scene, *Body) {
	scene := NewScene(1.0/60.0, gravity, iterations)
	floor := scene.CreateBody(BodyDef{BodyType: Static})
	def := DefaultBoxDef()
	def.Extents = mgl32.Vec3{50, 1, 50}
	floor.SetBox(def)
	return scene, floor
}

func unitCubeDef(pos mgl32.Vec3) BodyDef {
	d := DefaultBodyDef()
	d.Position = pos
	return d
}

// S1: a unit cube dropped onto a floor settles to rest near its
// half-extent above the floor's top surface.
func TestScene_S1_SingleBoxRest(t *testing.T) {
	scene, _ := newFloorScene(mgl32.Vec3{0, -9.8, 0}, 20)
	box := scene.CreateBody(unitCubeDef(mgl32.Vec3{0, 2, 0}))
	box.SetBox(DefaultBoxDef())

	for i := 0; i < 240; i++ {
		scene.Step()
	}

	y := box.WorldCenter()[1]
	if y < 0.95 || y > 1.10 {
		t.Errorf("resting height y=%f, want within [0.95, 1.10]", y)
	}
	if box.LinearVelocity().Len() >= 0.01 {
		t.Errorf("expected the body to have settled, |v|=%f", box.LinearVelocity().Len())
	}
}

// S2: two stacked unit cubes settle near their geometric rest heights.
func TestScene_S2_TwoBoxStack(t *testing.T) {
	scene, _ := newFloorScene(mgl32.Vec3{0, -9.8, 0}, 20)
	lower := scene.CreateBody(unitCubeDef(mgl32.Vec3{0, 2, 0}))
	lower.SetBox(DefaultBoxDef())
	upper := scene.CreateBody(unitCubeDef(mgl32.Vec3{0, 4, 0}))
	upper.SetBox(DefaultBoxDef())

	for i := 0; i < 240; i++ {
		scene.Step()
	}

	if d := absF(lower.WorldCenter()[1] - 1); d > 0.15 {
		t.Errorf("lower box y=%f, want within 0.15 of 1.0", lower.WorldCenter()[1])
	}
	if d := absF(upper.WorldCenter()[1] - 3); d > 0.15 {
		t.Errorf("upper box y=%f, want within 0.15 of 3.0", upper.WorldCenter()[1])
	}
	if lower.LinearVelocity().Len() >= 0.02 {
		t.Errorf("lower box should have settled, |v|=%f", lower.LinearVelocity().Len())
	}
	if upper.LinearVelocity().Len() >= 0.02 {
		t.Errorf("upper box should have settled, |v|=%f", upper.LinearVelocity().Len())
	}
}

// S3: a fully elastic cube dropped onto a non-restituting floor bounces
// back near its drop height.
func TestScene_S3_RestitutionBounce(t *testing.T) {
	scene, floor := newFloorScene(mgl32.Vec3{0, -9.8, 0}, 20)
	floor.Box().Restitution = 0

	box := scene.CreateBody(unitCubeDef(mgl32.Vec3{0, 5, 0}))
	def := DefaultBoxDef()
	def.Restitution = 1.0
	box.SetBox(def)

	apex := float32(0)
	wasFalling := false
	for i := 0; i < 400; i++ {
		scene.Step()
		v := box.LinearVelocity()[1]
		y := box.WorldCenter()[1]
		if wasFalling && v > 0 {
			// just bounced; track the apex of the rebound
		}
		if v < 0 {
			wasFalling = true
		}
		if wasFalling && v >= 0 && y > apex {
			apex = y
		}
	}

	if apex < 4.7 {
		t.Errorf("rebound apex y=%f, want >= 4.7", apex)
	}
}

// S4: a downward ray against the S1 floor+box configuration reports the
// expected time of impact, hit point, and normal.
func TestScene_S4_RayHit(t *testing.T) {
	scene, _ := newFloorScene(mgl32.Vec3{0, -9.8, 0}, 20)
	box := scene.CreateBody(unitCubeDef(mgl32.Vec3{0, 2, 0}))
	box.SetBox(DefaultBoxDef())

	for i := 0; i < 240; i++ {
		scene.Step()
	}

	var hitTOI float32
	var hitNormal mgl32.Vec3
	var hitY float32
	found := false
	scene.RayCast(RayCastData{Start: mgl32.Vec3{0, 10, 0}, Dir: mgl32.Vec3{0, -1, 0}, T: 100}, func(b *Box, hit RayCastData) bool {
		if !found || hit.TOI < hitTOI {
			found = true
			hitTOI = hit.TOI
			hitNormal = hit.Normal
			hitY = 10 - hit.TOI
		}
		return true
	})

	if !found {
		t.Fatalf("expected the ray to hit the resting box")
	}
	if hitTOI < 8.9 || hitTOI > 9.1 {
		t.Errorf("toi=%f, want within [8.9, 9.1]", hitTOI)
	}
	if hitY < 0.9 || hitY > 1.1 {
		t.Errorf("impact point y=%f, want within [0.9, 1.1]", hitY)
	}
	if absF(hitNormal[1]-1) > 1e-2 {
		t.Errorf("expected an upward-facing normal, got %v", hitNormal)
	}
}

// S5: with zero gravity and no contacts, a moving body coasts at constant
// velocity — pure momentum conservation.
func TestScene_S5_NoGravityMomentum(t *testing.T) {
	scene := NewScene(1.0/60.0, mgl32.Vec3{}, 4)
	box := scene.CreateBody(BodyDef{BodyType: Dynamic, GravityScale: 1, Position: mgl32.Vec3{}, LinearVelocity: mgl32.Vec3{1, 0, 0}})
	box.SetBox(DefaultBoxDef())

	for i := 0; i < 60; i++ {
		scene.Step()
	}

	pos := box.WorldCenter()
	if absF(pos[0]-1.0) > 1e-3 {
		t.Errorf("position.x=%f, want ~1.0", pos[0])
	}
	v := box.LinearVelocity()
	if absF(v[0]-1.0) > 1e-4 {
		t.Errorf("velocity should be unchanged by a contact-free, gravity-free simulation, got %v", v)
	}
}

// A Kinematic body has infinite mass but still integrates its own
// velocity into position (§3): gravity and solving must never touch it,
// but Step must still advance it exactly like a Dynamic body would.
func TestScene_KinematicBodyIntegratesButIgnoresGravity(t *testing.T) {
	scene := NewScene(1.0/60.0, mgl32.Vec3{0, -9.8, 0}, 8)
	kin := scene.CreateBody(BodyDef{BodyType: Kinematic, LinearVelocity: mgl32.Vec3{0, 3, 0}})

	for i := 0; i < 30; i++ {
		scene.Step()
	}

	wantY := float32(3) * 30 * (1.0 / 60.0)
	if !almostEqualF(kin.WorldCenter()[1], wantY, 1e-3) {
		t.Errorf("kinematic body position.y=%f, want %f (v*dt integrated every Step)", kin.WorldCenter()[1], wantY)
	}
	if kin.LinearVelocity() != (mgl32.Vec3{0, 3, 0}) {
		t.Errorf("kinematic velocity should never be touched by gravity or solving, got %v", kin.LinearVelocity())
	}
}

// S6: three mutually overlapping boxes generate exactly C(3,2)=3
// constraints after their first Step, and a second, motionless Step adds
// none new.
func TestScene_S6_PairDeduplication(t *testing.T) {
	scene := NewScene(1.0/60.0, mgl32.Vec3{}, 4)
	scene.SetGravity(mgl32.Vec3{})

	positions := []mgl32.Vec3{{0, 0, 0}, {0.2, 0, 0}, {-0.2, 0, 0}}
	for _, p := range positions {
		b := scene.CreateBody(BodyDef{BodyType: Dynamic, Position: p})
		b.SetBox(DefaultBoxDef())
	}

	scene.Step()
	if got := len(scene.contactManager.list); got != 3 {
		t.Fatalf("expected 3 constraints after the first Step, got %d", got)
	}

	scene.Step()
	if got := len(scene.contactManager.list); got != 3 {
		t.Errorf("expected the constraint count to remain 3 on a motionless Step, got %d", got)
	}
}

// invariant 3: a static body never moves, regardless of gravity or
// nearby dynamic activity.
func TestScene_Invariant_StaticBodyNeverMoves(t *testing.T) {
	scene, floor := newFloorScene(mgl32.Vec3{0, -9.8, 0}, 10)
	box := scene.CreateBody(unitCubeDef(mgl32.Vec3{0, 2, 0}))
	box.SetBox(DefaultBoxDef())

	start := floor.Position()
	for i := 0; i < 60; i++ {
		scene.Step()
	}
	if floor.Position() != start {
		t.Errorf("static floor moved from %v to %v", start, floor.Position())
	}
	if floor.LinearVelocity() != (mgl32.Vec3{}) {
		t.Errorf("static floor should never accumulate velocity, got %v", floor.LinearVelocity())
	}
}

// invariant 2: every body's orientation quaternion stays normalized
// across repeated Steps, even under sustained angular velocity.
func TestScene_Invariant_QuaternionStaysNormalized(t *testing.T) {
	scene := NewScene(1.0/60.0, mgl32.Vec3{}, 4)
	box := scene.CreateBody(BodyDef{BodyType: Dynamic, AngularVelocity: mgl32.Vec3{3, 1, 2}})
	box.SetBox(DefaultBoxDef())

	for i := 0; i < 300; i++ {
		scene.Step()
		q := box.Quaternion()
		mag := sqrtApprox(q.W*q.W + q.V[0]*q.V[0] + q.V[1]*q.V[1] + q.V[2]*q.V[2])
		if absF(mag-1) > 1e-3 {
			t.Fatalf("quaternion drifted from unit length at step %d: |q|=%f", i, mag)
		}
	}
}

// invariant 1: force and torque accumulators are cleared at the end of
// every Step (momentum closure — no residual force carries forward).
func TestScene_Invariant_ForceAccumulatorsClearEachStep(t *testing.T) {
	scene := NewScene(1.0/60.0, mgl32.Vec3{}, 4)
	box := scene.CreateBody(BodyDef{BodyType: Dynamic})
	box.SetBox(DefaultBoxDef())
	box.ApplyLinearForce(mgl32.Vec3{10, 0, 0})

	scene.Step()

	if box.force != (mgl32.Vec3{}) {
		t.Errorf("expected the force accumulator to be cleared after Step, got %v", box.force)
	}
	if box.torque != (mgl32.Vec3{}) {
		t.Errorf("expected the torque accumulator to be cleared after Step, got %v", box.torque)
	}
}

// invariant 7: the broadphase reports a new overlap within at most two
// Steps of two bodies coming into range (one to move, one to detect).
// b covers 9.5 units in its first Step (v*dt = 570/60), so its tight AABB
// overlaps a's after that Step.
func TestScene_Invariant_BroadphaseCompletenessWithinTwoSteps(t *testing.T) {
	scene := NewScene(1.0/60.0, mgl32.Vec3{}, 4)
	a := scene.CreateBody(BodyDef{BodyType: Dynamic, Position: mgl32.Vec3{0, 0, 0}})
	a.SetBox(DefaultBoxDef())
	b := scene.CreateBody(BodyDef{BodyType: Dynamic, Position: mgl32.Vec3{10, 0, 0}, LinearVelocity: mgl32.Vec3{-570, 0, 0}})
	b.SetBox(DefaultBoxDef())

	found := false
	for i := 0; i < 2 && !found; i++ {
		scene.Step()
		if len(scene.contactManager.list) > 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an overlap to be reported within 2 Steps of the bodies converging")
	}
}

// Two dynamic stacks resting on opposite ends of one long floor form two
// disjoint islands in the same Step; both must see the floor as an
// island member (§4.4), which requires the floor's island bit to be
// released between islands rather than once per Step.
func TestScene_TwoDisjointIslandsBothIncludeSharedStaticFloor(t *testing.T) {
	scene := NewScene(1.0/60.0, mgl32.Vec3{0, -9.8, 0}, 8)
	floor := scene.CreateBody(BodyDef{BodyType: Static})
	floorDef := DefaultBoxDef()
	floorDef.Extents = mgl32.Vec3{50, 1, 50}
	floor.SetBox(floorDef)

	left := scene.CreateBody(unitCubeDef(mgl32.Vec3{-10, 0.9, 0}))
	left.SetBox(DefaultBoxDef())
	right := scene.CreateBody(unitCubeDef(mgl32.Vec3{10, 0.9, 0}))
	right.SetBox(DefaultBoxDef())

	scene.Step()

	if !almostEqualF(left.LinearVelocity()[1], right.LinearVelocity()[1], 1e-3) {
		t.Errorf("two symmetric, disjoint stacks on the same floor should behave identically, got left=%v right=%v", left.LinearVelocity(), right.LinearVelocity())
	}
}

func TestScene_RemoveBodyTwicePanicsUnderStrict(t *testing.T) {
	scene := NewScene(1.0/60.0, mgl32.Vec3{}, 4)
	scene.SetStrict(true)
	b := scene.CreateBody(BodyDef{BodyType: Dynamic})
	b.SetBox(DefaultBoxDef())

	require.NoError(t, scene.RemoveBody(b), "unexpected error on first removal")

	require.PanicsWithValue(t, ErrAlreadyRemoved, func() {
		scene.RemoveBody(b)
	}, "expected strict mode to panic on double removal")
}

func TestScene_QueryPointFindsContainingBox(t *testing.T) {
	scene := NewScene(1.0/60.0, mgl32.Vec3{}, 4)
	b := scene.CreateBody(BodyDef{BodyType: Static, Position: mgl32.Vec3{0, 0, 0}})
	b.SetBox(DefaultBoxDef())

	hit := false
	scene.QueryPoint(mgl32.Vec3{0.1, 0.1, 0.1}, func(box *Box) bool {
		hit = true
		return true
	})
	assert.True(t, hit, "expected QueryPoint to find the box containing the query point")

	hit = false
	scene.QueryPoint(mgl32.Vec3{100, 100, 100}, func(box *Box) bool {
		hit = true
		return true
	})
	assert.False(t, hit, "expected QueryPoint to find nothing far from the box")
}
