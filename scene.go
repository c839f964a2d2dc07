package physics

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
)

// Scene is the top-level simulation orchestrator (§3, §6): it owns the
// body list, the contact manager, and the broadphase, and drives the
// canonical Step sequence of §4.6. Grounded on the source's q3Scene,
// adapted from its Box-array/allocator-driven layout to plain Go slices
// and maps.
type Scene struct {
	dt         float32
	gravity    mgl32.Vec3
	iterations int

	enableFriction bool

	// strict turns InvalidOperation cases into panics instead of returned
	// errors, mirroring the source's debug-assert/release-undefined split
	// (§7).
	strict bool

	bodies       map[int32]*Body
	nextBodyID   int32
	pendingNewBox bool

	contactManager *ContactManager

	logger Logger
}

// NewScene constructs a Scene with a fixed timestep, gravity vector, and
// solver iteration count (clamped to ≥1), backed by a dynamic AABB tree
// broadphase (§6).
func NewScene(dt float32, gravity mgl32.Vec3, iterations int, opts ...SceneOption) *Scene {
	if iterations < 1 {
		iterations = 1
	}
	s := &Scene{
		dt:             dt,
		gravity:        gravity,
		iterations:     iterations,
		enableFriction: true,
		bodies:         make(map[int32]*Body),
		logger:         NewNopLogger(),
	}
	s.contactManager = newContactManager(NewDynamicTreeBroadphase(), s.logger)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SceneOption configures optional Scene construction parameters.
type SceneOption func(*Scene)

// WithLogger overrides the Scene's default no-op Logger.
func WithLogger(l Logger) SceneOption {
	return func(s *Scene) {
		s.logger = l
		s.contactManager.logger = l
	}
}

// WithBroadphase overrides the default dynamic-tree broadphase. Only a
// *DynamicTreeBroadphase has its handles resolved to boxes (see
// boxFromHandle); with any other implementation no contacts are created
// and queries report nothing.
func WithBroadphase(bp Broadphase) SceneOption {
	return func(s *Scene) {
		s.contactManager.broadphase = bp
	}
}

// CreateBody allocates a new Body per def and registers it with the
// Scene (§6).
func (s *Scene) CreateBody(def BodyDef) *Body {
	id := s.nextBodyID
	s.nextBodyID++

	q := quatFromAxisAngle(def.Axis, def.Angle)
	b := &Body{
		id:              id,
		scene:           s,
		kind:            def.BodyType,
		transform:       TransformFromQuat(def.Position, q),
		quat:            q,
		linearVelocity:  def.LinearVelocity,
		angularVelocity: def.AngularVelocity,
		gravityScale:    def.GravityScale,
		linearDamping:   def.LinearDamping,
		angularDamping:  def.AngularDamping,
		awake:           true,
	}
	b.calculateMassData()
	s.bodies[id] = b
	return b
}

// RemoveBody detaches b's box (destroying its contacts) and drops it
// from the scene. Returns ErrAlreadyRemoved if called twice.
func (s *Scene) RemoveBody(b *Body) error {
	if b.removed {
		if s.strict {
			panic(ErrAlreadyRemoved)
		}
		return ErrAlreadyRemoved
	}
	b.RemoveBox()
	delete(s.bodies, b.id)
	b.removed = true
	return nil
}

// RemoveAllBodies clears every body and contact from the scene.
func (s *Scene) RemoveAllBodies() {
	for _, b := range s.bodies {
		_ = s.RemoveBody(b)
	}
}

// SetStrict toggles whether InvalidOperation cases (§7) panic instead of
// returning an error — the debug-assert half of "fatal assertion in
// debug; in release, documented as undefined".
func (s *Scene) SetStrict(strict bool) { s.strict = strict }

// SetGravity replaces the scene's gravity vector.
func (s *Scene) SetGravity(g mgl32.Vec3) { s.gravity = g }

// SetEnableFriction toggles the solver's Coulomb friction pass.
func (s *Scene) SetEnableFriction(enabled bool) { s.enableFriction = enabled }

// SetIterations sets the solver's per-Step iteration count, clamped to
// at least 1 (§6).
func (s *Scene) SetIterations(n int) {
	if n < 1 {
		n = 1
	}
	s.iterations = n
}

// Step advances the simulation by the scene's fixed dt, following the
// canonical seven-step sequence of §4.6.
func (s *Scene) Step() {
	if s.pendingNewBox {
		for _, pair := range s.contactManager.broadphase.GeneratePairs() {
			s.addPair(pair)
		}
		s.pendingNewBox = false
	}

	s.contactManager.TestCollisions()

	for _, b := range s.bodies {
		b.island = false
	}

	for _, b := range s.bodies {
		if b.island || b.kind == Static || !b.awake {
			continue
		}
		is := buildIsland(b)
		is.integratePreSolve(s.dt, s.gravity)

		solver := newContactSolver(is, s.enableFriction)
		solver.PreSolve(s.dt)
		for i := 0; i < s.iterations; i++ {
			solver.Solve()
		}
		solver.PostSolve()

		integrateIsland(is, s.dt)

		releaseStaticIslandFlags(is)
	}

	for _, b := range s.bodies {
		if b.kind != Static {
			b.synchronizeProxies()
		}
	}

	for _, pair := range s.contactManager.broadphase.GeneratePairs() {
		s.addPair(pair)
	}

	for _, b := range s.bodies {
		b.force = mgl32.Vec3{}
		b.torque = mgl32.Vec3{}
	}
}

func (s *Scene) addPair(pair BroadphasePair) {
	a := s.boxFromHandle(pair.A)
	b := s.boxFromHandle(pair.B)
	if a == nil || b == nil {
		return
	}
	s.contactManager.AddContact(a, b)
}

// boxFromHandle resolves a broadphase handle back to its Box. The
// DynamicTreeBroadphase stores the box pointer on the leaf node itself,
// so this is a direct lookup through a small type assertion rather than
// a Scene-owned index.
func (s *Scene) boxFromHandle(handle int32) *Box {
	if dt, ok := s.contactManager.broadphase.(*DynamicTreeBroadphase); ok {
		if int(handle) < 0 || int(handle) >= len(dt.nodes) {
			return nil
		}
		return dt.nodes[handle].box
	}
	return nil
}

// QueryAABB reports every box whose broadphase AABB overlaps aabb,
// exactly (via Box.ComputeAABB) filtered before invoking cb (§4.7). cb
// returning false stops the query early.
func (s *Scene) QueryAABB(aabb AABB, cb func(b *Box) bool) {
	s.contactManager.broadphase.QueryAABB(aabb, func(handle int32) bool {
		box := s.boxFromHandle(handle)
		if box == nil {
			return true
		}
		if !box.ComputeAABB(box.body.transform).Overlaps(aabb) {
			return true
		}
		return cb(box)
	})
}

// QueryPoint reports every box containing world point p (§4.7).
func (s *Scene) QueryPoint(p mgl32.Vec3, cb func(b *Box) bool) {
	aabb := AABB{Min: p, Max: p}
	s.contactManager.broadphase.QueryAABB(aabb, func(handle int32) bool {
		box := s.boxFromHandle(handle)
		if box == nil {
			return true
		}
		if !box.TestPoint(box.body.transform, p) {
			return true
		}
		return cb(box)
	})
}

// RayCastData carries a raycast's input and, once RayCast returns, its
// output (§6).
type RayCastData struct {
	Start mgl32.Vec3
	Dir   mgl32.Vec3 // must be unit length
	T     float32

	TOI    float32
	Normal mgl32.Vec3
}

// RayCast intersects the ray against every candidate box the broadphase
// returns, invoking cb for each actual hit with the per-box TOI and
// normal filled into a copy of data (§4.7).
func (s *Scene) RayCast(data RayCastData, cb func(b *Box, hit RayCastData) bool) {
	s.contactManager.broadphase.QueryRay(data.Start, data.Dir, data.T, func(handle int32) bool {
		box := s.boxFromHandle(handle)
		if box == nil {
			return true
		}
		hit, t, n := box.Raycast(box.body.transform, data.Start, data.Dir, data.T)
		if !hit {
			return true
		}
		out := data
		out.TOI = t
		out.Normal = n
		return cb(box, out)
	})
}

// DebugDump writes a human-readable reconstruction of every body and box
// in the scene (§6 "Persisted state: a debug dump may emit human
// readable reconstruction commands").
func (s *Scene) DebugDump(w io.Writer) {
	for _, b := range s.bodies {
		fmt.Fprintf(w, "body id=%d kind=%s pos=%v quat=%v v=%v w=%v\n",
			b.id, b.kind, b.transform.Position, b.quat, b.linearVelocity, b.angularVelocity)
		if b.box != nil {
			fmt.Fprintf(w, "  box tag=%s extent=%v friction=%.3f restitution=%.3f sensor=%v\n",
				b.box.DebugTag, b.box.Extent, b.box.Friction, b.box.Restitution, b.box.Sensor)
		}
	}
}
