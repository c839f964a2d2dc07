package physics

import "github.com/go-gl/mathgl/mgl32"

// Render is the debug-draw sink used by callers that want to visualize
// a Scene's bodies and contacts (§6, §9): a polymorphic callback
// interface rather than a concrete GPU backend, mirroring how the
// source's q3Render is implemented by the demo host and never by the
// physics library itself.
type Render interface {
	SetPenColor(r, g, b, a float32)
	SetPenPosition(x, y, z float32)
	SetScale(sx, sy, sz float32)
	SetTriNormal(x, y, z float32)

	Line(a, b mgl32.Vec3)
	Triangle(a, b, c mgl32.Vec3)
	Point(p mgl32.Vec3)
}

// DebugDraw renders every body's box as a wireframe and every persisted
// contact point as a Render.Point, using the box's own extents/rotation
// so the caller's Render implementation stays purely a drawing sink.
func (s *Scene) DebugDraw(r Render) {
	for _, b := range s.bodies {
		if b.box == nil {
			continue
		}
		drawBoxWireframe(r, b.box)
	}
	for c := range s.contactManager.list {
		m := &c.manifold
		for i := 0; i < m.ContactCount; i++ {
			r.Point(m.Contacts[i].Position)
		}
	}
}

func drawBoxWireframe(r Render, box *Box) {
	tx := box.WorldTransform()
	e := box.Extent

	var corners [8]mgl32.Vec3
	for i := 0; i < 8; i++ {
		local := mgl32.Vec3{e[0], e[1], e[2]}
		if i&1 == 0 {
			local[0] = -local[0]
		}
		if i&2 == 0 {
			local[1] = -local[1]
		}
		if i&4 == 0 {
			local[2] = -local[2]
		}
		corners[i] = tx.Point(local)
	}

	edges := [12][2]int{
		{0, 1}, {2, 3}, {4, 5}, {6, 7},
		{0, 2}, {1, 3}, {4, 6}, {5, 7},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}
	for _, e := range edges {
		r.Line(corners[e[0]], corners[e[1]])
	}
}
