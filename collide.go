package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Narrowphase: OBB-vs-OBB manifold generation via separating-axis test
// plus Sutherland–Hodgman face clipping (§4.2). Grounded on the
// qu3e/q3Collide algorithm (Dirk Gregorius' "robust contact creation"
// method also used by Box2D's polygon clipper), generalized to 3D boxes.

const (
	// collideAbsoluteTolerance and collideRelativeTolerance implement the
	// "0.95 × faceOverlap + absoluteTol" edge-beats-face hysteresis from
	// §4.2; non-normative magnitudes, matching the source's order of
	// magnitude.
	collideRelativeTolerance = 0.95
	collideAbsoluteTolerance = float32(0.005)
)

// obbFrame is the world-space working representation of one box during
// narrowphase: center, three orthonormal world axes, and half-extents
// along those axes.
type obbFrame struct {
	center mgl32.Vec3
	axes   [3]mgl32.Vec3
	extent mgl32.Vec3
}

func obbFrameOf(box *Box) obbFrame {
	tx := box.WorldTransform()
	return obbFrame{
		center: tx.Position,
		axes:   [3]mgl32.Vec3{mat3Col(tx.Rotation, 0), mat3Col(tx.Rotation, 1), mat3Col(tx.Rotation, 2)},
		extent: box.Extent,
	}
}

func (f obbFrame) corner(i int) mgl32.Vec3 {
	p := f.center
	for k := 0; k < 3; k++ {
		sign := float32(-1)
		if i&(1<<uint(k)) != 0 {
			sign = 1
		}
		p = p.Add(f.axes[k].Mul(sign * f.extent[k]))
	}
	return p
}

func otherAxes(axis int) [2]int {
	switch axis {
	case 0:
		return [2]int{1, 2}
	case 1:
		return [2]int{0, 2}
	default:
		return [2]int{0, 1}
	}
}

// faceAxisAndSign decodes a face id 0..5 (+X,-X,+Y,-Y,+Z,-Z) into its
// axis index and outward sign.
func faceAxisAndSign(face int) (axis int, sign float32) {
	axis = face / 2
	if face%2 == 0 {
		return axis, 1
	}
	return axis, -1
}

// faceCorners returns the 4 corner indices (see obbFrame.corner) that
// bound face id, ordered as a quad loop.
func faceCorners(face int) [4]int {
	axis, sign := faceAxisAndSign(face)
	others := otherAxes(axis)
	bit := 0
	if sign > 0 {
		bit = 1 << uint(axis)
	}
	raster := [4]int{
		bit,
		bit | (1 << uint(others[0])),
		bit | (1 << uint(others[0])) | (1 << uint(others[1])),
		bit | (1 << uint(others[1])),
	}
	return raster
}

// edgeAt decodes edge id 0..11 (axis*4+combo) into its two corner
// indices; combo enumerates the 4 fixed-bit states of the other two axes
// in ascending-axis order.
func edgeAt(id int) (int, int) {
	axis := id / 4
	combo := id % 4
	others := otherAxes(axis)
	b0 := combo & 1
	b1 := (combo >> 1) & 1
	base := (b0 << uint(others[0])) | (b1 << uint(others[1]))
	return base, base | (1 << uint(axis))
}

func projectRadius(f obbFrame, axis mgl32.Vec3) float32 {
	return f.extent[0]*absF(f.axes[0].Dot(axis)) +
		f.extent[1]*absF(f.axes[1].Dot(axis)) +
		f.extent[2]*absF(f.axes[2].Dot(axis))
}

// axisSeparation returns the signed separation of a and b along axis
// (positive means separated, i.e. this is a valid separating axis).
// ok is false when axis is degenerate (near-zero length, from
// near-parallel edges) and should be skipped.
func axisSeparation(a, b obbFrame, axis mgl32.Vec3) (sep float32, ok bool) {
	l := axis.Len()
	if l < 1e-6 {
		return 0, false
	}
	axis = axis.Mul(1 / l)
	ra := projectRadius(a, axis)
	rb := projectRadius(b, axis)
	d := absF(b.center.Sub(a.center).Dot(axis))
	return d - (ra + rb), true
}

type faceCandidate struct {
	fromA  bool // true: axis is a face normal of A; false: of B
	index  int
	sep    float32
	normal mgl32.Vec3
}

type edgeCandidate struct {
	i, j   int // A's edge axis i, B's edge axis j
	sep    float32
	normal mgl32.Vec3
}

// satTest runs the 15-axis separating-axis test (§4.2), returning the
// winning face and edge candidates. separated is true the instant any
// axis proves the boxes disjoint.
func satTest(a, b obbFrame) (separated bool, bestFace faceCandidate, bestEdge edgeCandidate, hasEdge bool) {
	bestFace.sep = -math.MaxFloat32
	for i := 0; i < 3; i++ {
		sep, _ := axisSeparation(a, b, a.axes[i])
		if sep > 0 {
			return true, bestFace, bestEdge, false
		}
		if sep > bestFace.sep {
			bestFace = faceCandidate{fromA: true, index: i, sep: sep, normal: a.axes[i]}
		}
	}
	for j := 0; j < 3; j++ {
		sep, _ := axisSeparation(a, b, b.axes[j])
		if sep > 0 {
			return true, bestFace, bestEdge, false
		}
		if sep > bestFace.sep {
			bestFace = faceCandidate{fromA: false, index: j, sep: sep, normal: b.axes[j]}
		}
	}

	bestEdge.sep = -math.MaxFloat32
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			axis := a.axes[i].Cross(b.axes[j])
			sep, ok := axisSeparation(a, b, axis)
			if !ok {
				continue
			}
			if sep > 0 {
				return true, bestFace, bestEdge, false
			}
			if sep > bestEdge.sep {
				hasEdge = true
				bestEdge = edgeCandidate{i: i, j: j, sep: sep, normal: axis.Normalize()}
			}
		}
	}
	return false, bestFace, bestEdge, hasEdge
}

// clipVertex is a polygon vertex carrying enough feature identity to
// reconstruct a stable FeaturePair once clipping settles (§4.2, §9).
type clipVertex struct {
	v         mgl32.Vec3
	edgeID    uint8 // originating incident edge (0..3 within its face)
	clippedBy uint8 // reference side-plane id (0..3) that last clipped this point, or noClipID
}

const noClipID uint8 = 4

func clipPolygon(poly []clipVertex, plane HalfSpace, refEdgeID uint8) []clipVertex {
	if len(poly) == 0 {
		return poly
	}
	out := make([]clipVertex, 0, len(poly)+1)
	n := len(poly)
	for i := 0; i < n; i++ {
		cur := poly[i]
		next := poly[(i+1)%n]
		curDist := plane.Distance(cur.v)
		nextDist := plane.Distance(next.v)
		curInside := curDist <= 0
		nextInside := nextDist <= 0

		if curInside {
			out = append(out, cur)
		}
		if curInside != nextInside {
			denom := curDist - nextDist
			if absF(denom) > 1e-9 {
				t := curDist / denom
				ip := cur.v.Add(next.v.Sub(cur.v).Mul(t))
				out = append(out, clipVertex{v: ip, edgeID: cur.edgeID, clippedBy: refEdgeID})
			}
		}
	}
	return out
}

func signedArea(a, b, c mgl32.Vec3, normal mgl32.Vec3) float32 {
	return b.Sub(a).Cross(c.Sub(a)).Dot(normal)
}

// reducePoints implements the 4-point reduction of §4.2: keep the
// deepest point, then the farthest from it, then the point maximizing
// signed area with those two, then the point maximizing the summed
// absolute area against the resulting triangle.
func reducePoints(points []clipVertex, plane HalfSpace) []clipVertex {
	if len(points) <= 4 {
		return points
	}
	normal := plane.Normal

	deepestIdx := 0
	deepestD := plane.Distance(points[0].v)
	for i := 1; i < len(points); i++ {
		d := plane.Distance(points[i].v)
		if d < deepestD {
			deepestD = d
			deepestIdx = i
		}
	}
	p1 := points[deepestIdx]

	farIdx := -1
	farDist := float32(-1)
	for i, p := range points {
		if i == deepestIdx {
			continue
		}
		d := p.v.Sub(p1.v).Dot(p.v.Sub(p1.v))
		if d > farDist {
			farDist = d
			farIdx = i
		}
	}
	p2 := points[farIdx]

	thirdIdx := -1
	var bestArea float32
	for i, p := range points {
		if i == deepestIdx || i == farIdx {
			continue
		}
		area := signedArea(p1.v, p2.v, p.v, normal)
		if thirdIdx == -1 || area > bestArea {
			bestArea = area
			thirdIdx = i
		}
	}
	if thirdIdx == -1 {
		return []clipVertex{p1, p2}
	}
	p3 := points[thirdIdx]

	fourthIdx := -1
	bestAbsArea := float32(-1)
	for i, p := range points {
		if i == deepestIdx || i == farIdx || i == thirdIdx {
			continue
		}
		total := absF(signedArea(p1.v, p2.v, p.v, normal)) +
			absF(signedArea(p2.v, p3.v, p.v, normal)) +
			absF(signedArea(p3.v, p1.v, p.v, normal))
		if total > bestAbsArea {
			bestAbsArea = total
			fourthIdx = i
		}
	}
	if fourthIdx == -1 {
		return []clipVertex{p1, p2, p3}
	}
	return []clipVertex{p1, p2, p3, points[fourthIdx]}
}

// clipFaceContact builds a face manifold given which box is the
// reference (§4.2): picks the most anti-parallel incident face, clips it
// against the reference face's four side planes, keeps points below the
// reference face, and reduces to at most 4.
func clipFaceContact(m *Manifold, aFrame, bFrame obbFrame, refIsA bool, refFace int) {
	var refFrame, incFrame obbFrame
	if refIsA {
		refFrame, incFrame = aFrame, bFrame
	} else {
		refFrame, incFrame = bFrame, aFrame
	}

	refAxis, refSign := faceAxisAndSign(refFace)
	refNormal := refFrame.axes[refAxis].Mul(refSign)
	refPlane := HalfSpace{Normal: refNormal, Offset: refFrame.center.Dot(refNormal) + refFrame.extent[refAxis]}

	bestDot := float32(math.MaxFloat32)
	incFace := 0
	for f := 0; f < 6; f++ {
		axis, sign := faceAxisAndSign(f)
		n := incFrame.axes[axis].Mul(sign)
		d := n.Dot(refNormal)
		if d < bestDot {
			bestDot = d
			incFace = f
		}
	}

	corners := faceCorners(incFace)
	poly := make([]clipVertex, 4)
	for i := 0; i < 4; i++ {
		poly[i] = clipVertex{v: incFrame.corner(corners[i]), edgeID: uint8(i), clippedBy: noClipID}
	}

	others := otherAxes(refAxis)
	for k, ax := range others {
		for signIdx, sign := range [2]float32{1, -1} {
			n := refFrame.axes[ax].Mul(sign)
			plane := HalfSpace{Normal: n, Offset: refFrame.center.Dot(n) + refFrame.extent[ax]}
			edgeID := uint8(k*2 + signIdx)
			poly = clipPolygon(poly, plane, edgeID)
			if len(poly) == 0 {
				break
			}
		}
		if len(poly) == 0 {
			break
		}
	}

	var below []clipVertex
	for _, v := range poly {
		if refPlane.Distance(v.v) <= 0 {
			below = append(below, v)
		}
	}
	below = reducePoints(below, refPlane)

	m.ContactCount = 0
	for _, v := range below {
		if m.ContactCount >= 8 {
			break
		}
		d := refPlane.Distance(v.v)
		c := &m.Contacts[m.ContactCount]
		*c = Contact{
			Position:    v.v,
			Penetration: -d,
			FP:          FeaturePair{InR: v.clippedBy, OutR: uint8(refFace), InI: uint8(incFace), OutI: v.edgeID},
		}
		m.ContactCount++
	}

	if refIsA {
		m.Normal = refNormal
	} else {
		m.Normal = refNormal.Mul(-1)
	}
}

func closestEdgeID(frame obbFrame, axis int, otherCenter mgl32.Vec3) int {
	others := otherAxes(axis)
	rel := otherCenter.Sub(frame.center)
	b0 := 0
	if rel.Dot(frame.axes[others[0]]) >= 0 {
		b0 = 1
	}
	b1 := 0
	if rel.Dot(frame.axes[others[1]]) >= 0 {
		b1 = 1
	}
	return axis*4 + (b0 | (b1 << 1))
}

// closestPointsSegmentSegment finds the closest points between segments
// (p1,q1) and (p2,q2) (Ericson, Real-Time Collision Detection §5.1.9).
func closestPointsSegmentSegment(p1, q1, p2, q2 mgl32.Vec3) (c1, c2 mgl32.Vec3) {
	const epsilon = 1e-9
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	var s, t float32
	switch {
	case a <= epsilon && e <= epsilon:
		return p1, p2
	case a <= epsilon:
		s = 0
		t = clampF(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e <= epsilon {
			t = 0
			s = clampF(-c/a, 0, 1)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom != 0 {
				s = clampF((b*f-c*e)/denom, 0, 1)
			} else {
				s = 0
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clampF(-c/a, 0, 1)
			} else if t > 1 {
				t = 1
				s = clampF((b-c)/a, 0, 1)
			}
		}
	}
	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}

func axisPenetration(a, b obbFrame, axis mgl32.Vec3) float32 {
	ra := projectRadius(a, axis)
	rb := projectRadius(b, axis)
	d := absF(b.center.Sub(a.center).Dot(axis))
	return ra + rb - d
}

// clipEdgeContact builds a single-point edge-edge manifold (§4.2).
func clipEdgeContact(m *Manifold, aFrame, bFrame obbFrame, i, j int, axis mgl32.Vec3) {
	if bFrame.center.Sub(aFrame.center).Dot(axis) < 0 {
		axis = axis.Mul(-1)
	}

	edgeIDA := closestEdgeID(aFrame, i, bFrame.center)
	edgeIDB := closestEdgeID(bFrame, j, aFrame.center)

	a0, a1 := edgeAt(edgeIDA)
	b0, b1 := edgeAt(edgeIDB)
	cp1, cp2 := closestPointsSegmentSegment(aFrame.corner(a0), aFrame.corner(a1), bFrame.corner(b0), bFrame.corner(b1))

	m.Normal = axis
	m.ContactCount = 1
	m.Contacts[0] = Contact{
		Position:    cp1.Add(cp2).Mul(0.5),
		Penetration: axisPenetration(aFrame, bFrame, axis),
		FP:          edgeFeaturePair(uint8(edgeIDA), uint8(edgeIDB)),
	}
}

// boxToBox is the OBB-vs-OBB narrowphase entry point (§4.2).
func boxToBox(m *Manifold, a, b *Box) {
	m.A, m.B = a, b
	m.ContactCount = 0
	m.Sensor = a.Sensor || b.Sensor

	af := obbFrameOf(a)
	bf := obbFrameOf(b)

	separated, bestFace, bestEdge, hasEdge := satTest(af, bf)
	if separated {
		return
	}

	useEdge := hasEdge && bestEdge.sep > collideRelativeTolerance*bestFace.sep+collideAbsoluteTolerance
	if useEdge {
		clipEdgeContact(m, af, bf, bestEdge.i, bestEdge.j, bestEdge.normal)
	} else {
		refIsA := bestFace.fromA
		frame := bf
		other := bf.center
		if refIsA {
			frame = af
		} else {
			other = af.center
		}
		sign := 0
		if other.Sub(frame.center).Dot(frame.axes[bestFace.index]) < 0 {
			sign = 1
		}
		clipFaceContact(m, af, bf, refIsA, bestFace.index*2+sign)
	}

	if m.ContactCount > 0 {
		m.Tangents[0], m.Tangents[1] = computeBasis(m.Normal)
	}
}
