package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func unitCubeBoxAt(pos mgl32.Vec3) *Box {
	body := &Body{transform: Transform{Rotation: mat3Identity(), Position: pos}}
	box := &Box{Local: Identity(), Extent: mgl32.Vec3{0.5, 0.5, 0.5}, body: body}
	body.box = box
	return box
}

func TestBoxToBoxSeparatedProducesNoContacts(t *testing.T) {
	a := unitCubeBoxAt(mgl32.Vec3{0, 0, 0})
	b := unitCubeBoxAt(mgl32.Vec3{10, 0, 0})

	var m Manifold
	boxToBox(&m, a, b)

	if m.ContactCount != 0 {
		t.Errorf("separated boxes should produce no contacts, got %d", m.ContactCount)
	}
}

func TestBoxToBoxFaceContactStackedCubes(t *testing.T) {
	// B rests slightly into A from above: a face manifold with up to 4
	// points and a normal pointing from A toward B (§4.2, §8 invariant 6).
	a := unitCubeBoxAt(mgl32.Vec3{0, 0, 0})
	b := unitCubeBoxAt(mgl32.Vec3{0, 0.9, 0})

	var m Manifold
	boxToBox(&m, a, b)

	if m.ContactCount == 0 {
		t.Fatalf("expected overlapping stacked cubes to produce contacts")
	}
	if m.ContactCount > 4 {
		t.Errorf("manifold cardinality invariant violated: contactCount=%d", m.ContactCount)
	}
	if absF(absF(m.Normal[1])-1) > 1e-3 {
		t.Errorf("expected the contact normal to point along Y for axis-aligned stacked cubes, got %v", m.Normal)
	}
	for i := 0; i < m.ContactCount; i++ {
		if m.Contacts[i].Penetration <= 0 {
			t.Errorf("contact %d has non-positive penetration %f for overlapping boxes", i, m.Contacts[i].Penetration)
		}
	}
}

func TestBoxToBoxTouchingButNotOverlappingStillReportsContact(t *testing.T) {
	// Exactly touching (zero separation) is still "not separated" under
	// the SAT test's sep>0 rejection rule.
	a := unitCubeBoxAt(mgl32.Vec3{0, 0, 0})
	b := unitCubeBoxAt(mgl32.Vec3{0, 1.0, 0})

	var m Manifold
	boxToBox(&m, a, b)

	if m.ContactCount == 0 {
		t.Errorf("expected exactly-touching boxes to still report a contact manifold")
	}
}

func TestSatTestDetectsSeparationAlongFaceAxis(t *testing.T) {
	a := obbFrameOf(unitCubeBoxAt(mgl32.Vec3{0, 0, 0}))
	b := obbFrameOf(unitCubeBoxAt(mgl32.Vec3{5, 0, 0}))

	separated, _, _, _ := satTest(a, b)
	if !separated {
		t.Errorf("expected SAT to detect separation along the X face axis")
	}
}

func TestComputeBasisOrthogonalToNormalAndEachOther(t *testing.T) {
	normal := mgl32.Vec3{0, 1, 0}
	t1, t2 := computeBasis(normal)

	if absF(t1.Dot(normal)) > 1e-5 {
		t.Errorf("tangent1 not orthogonal to normal: dot=%f", t1.Dot(normal))
	}
	if absF(t2.Dot(normal)) > 1e-5 {
		t.Errorf("tangent2 not orthogonal to normal: dot=%f", t2.Dot(normal))
	}
	if absF(t1.Dot(t2)) > 1e-5 {
		t.Errorf("tangent1 not orthogonal to tangent2: dot=%f", t1.Dot(t2))
	}
}

func TestClipPolygonKeepsOnlyInsidePoints(t *testing.T) {
	square := []clipVertex{
		{v: mgl32.Vec3{-1, -1, 0}, edgeID: 0, clippedBy: noClipID},
		{v: mgl32.Vec3{1, -1, 0}, edgeID: 1, clippedBy: noClipID},
		{v: mgl32.Vec3{1, 1, 0}, edgeID: 2, clippedBy: noClipID},
		{v: mgl32.Vec3{-1, 1, 0}, edgeID: 3, clippedBy: noClipID},
	}
	plane := HalfSpace{Normal: mgl32.Vec3{1, 0, 0}, Offset: 0} // keep x<=0
	clipped := clipPolygon(square, plane, 9)

	for _, v := range clipped {
		if v.v[0] > 1e-5 {
			t.Errorf("clipped vertex %v lies outside the half-space", v.v)
		}
	}
	if len(clipped) < 3 {
		t.Errorf("clipping a square in half should leave at least a triangle, got %d points", len(clipped))
	}
}

func TestReducePointsCapsAtFour(t *testing.T) {
	plane := HalfSpace{Normal: mgl32.Vec3{0, 1, 0}, Offset: 0}
	var points []clipVertex
	for i := 0; i < 6; i++ {
		points = append(points, clipVertex{v: mgl32.Vec3{float32(i), -1, 0}})
	}
	reduced := reducePoints(points, plane)
	if len(reduced) > 4 {
		t.Errorf("reducePoints should cap manifold points at 4, got %d", len(reduced))
	}
}
