package physics

import "github.com/go-gl/mathgl/mgl32"

// BodyKind is one of {Static, Dynamic, Kinematic} (§3).
type BodyKind int

const (
	Dynamic BodyKind = iota
	Static
	Kinematic
)

func (k BodyKind) String() string {
	switch k {
	case Static:
		return "Static"
	case Kinematic:
		return "Kinematic"
	default:
		return "Dynamic"
	}
}

// BodyDef configures a Body passed to Scene.CreateBody (§6).
type BodyDef struct {
	Axis             mgl32.Vec3
	Angle            float32
	Position         mgl32.Vec3
	LinearVelocity   mgl32.Vec3
	AngularVelocity  mgl32.Vec3
	GravityScale     float32
	LinearDamping    float32
	AngularDamping   float32
	BodyType         BodyKind
}

// DefaultBodyDef returns a BodyDef with the documented defaults
// (gravityScale=1, linearDamping=0, angularDamping=0.1, dynamic body along
// the +Y axis with zero rotation).
func DefaultBodyDef() BodyDef {
	return BodyDef{
		Axis:            mgl32.Vec3{0, 1, 0},
		GravityScale:    1,
		AngularDamping:  0.1,
		BodyType:        Dynamic,
	}
}

// Body is a rigid body with exactly one OBB collider attached (§3, §9).
type Body struct {
	id    int32
	scene *Scene

	kind BodyKind

	transform Transform
	quat      mgl32.Quat

	linearVelocity  mgl32.Vec3
	angularVelocity mgl32.Vec3
	force           mgl32.Vec3
	torque          mgl32.Vec3

	localCenter mgl32.Vec3
	worldCenter mgl32.Vec3

	mass    float32
	invMass float32

	invInertiaModel mgl32.Mat3
	invInertiaWorld mgl32.Mat3

	gravityScale   float32
	linearDamping  float32
	angularDamping float32

	box *Box

	// island is reset at the start of every Step (§4.4).
	island bool
	// awake is the sleeping/islanding extension point §9 asks
	// implementers to leave; this module never clears it itself.
	awake bool

	edgeList *ContactEdge

	removed bool
}

// ID returns the body's stable handle within its Scene.
func (b *Body) ID() int32 { return b.id }

// Kind returns the body's Static/Dynamic/Kinematic classification.
func (b *Body) Kind() BodyKind { return b.kind }

// Transform returns the body's current world transform.
func (b *Body) Transform() Transform { return b.transform }

// Position returns the body's world-space origin (not its center of
// mass — see WorldCenter).
func (b *Body) Position() mgl32.Vec3 { return b.transform.Position }

// WorldCenter returns the body's world-space center of mass.
func (b *Body) WorldCenter() mgl32.Vec3 { return b.worldCenter }

// Quaternion returns the body's authoritative orientation.
func (b *Body) Quaternion() mgl32.Quat { return b.quat }

// LinearVelocity returns the body's current linear velocity.
func (b *Body) LinearVelocity() mgl32.Vec3 { return b.linearVelocity }

// AngularVelocity returns the body's current angular velocity.
func (b *Body) AngularVelocity() mgl32.Vec3 { return b.angularVelocity }

// Box returns the body's collider, or nil if none has been set.
func (b *Body) Box() *Box { return b.box }

// IsAwake reports whether the body currently participates in solving.
// Always true until an extension wires in a sleep policy (§9).
func (b *Body) IsAwake() bool { return b.awake }

// Wake marks the body as awake. Safe to call on any body kind.
func (b *Body) Wake() { b.awake = true }

func (b *Body) isStaticOrKinematic() bool { return b.kind == Static || b.kind == Kinematic }

// fail reports an InvalidOperation (§7): panics when the owning Scene is
// in strict mode, otherwise returns the typed error.
func (b *Body) fail(op, reason string) error {
	err := invalidOp(op, reason)
	if b.scene != nil && b.scene.strict {
		panic(err)
	}
	return err
}

// SetLinearVelocity sets the body's linear velocity. Returns
// ErrInvalidOperation for a Static body (§7, §6).
func (b *Body) SetLinearVelocity(v mgl32.Vec3) error {
	if b.kind == Static {
		return b.fail("SetLinearVelocity", "body is static")
	}
	b.linearVelocity = v
	b.Wake()
	return nil
}

// SetAngularVelocity sets the body's angular velocity. Returns
// ErrInvalidOperation for a Static body.
func (b *Body) SetAngularVelocity(w mgl32.Vec3) error {
	if b.kind == Static {
		return b.fail("SetAngularVelocity", "body is static")
	}
	b.angularVelocity = w
	b.Wake()
	return nil
}

// ApplyLinearForce accumulates a force (scaled by mass, matching the
// source) for the next Step's integration.
func (b *Body) ApplyLinearForce(force mgl32.Vec3) {
	if b.kind != Dynamic {
		return
	}
	b.force = b.force.Add(force.Mul(b.mass))
	b.Wake()
}

// ApplyForceAtWorldPoint applies force at world point p, generating both
// a linear force and the torque induced by the offset from the body's
// center of mass.
func (b *Body) ApplyForceAtWorldPoint(force, p mgl32.Vec3) {
	if b.kind != Dynamic {
		return
	}
	b.force = b.force.Add(force.Mul(b.mass))
	b.torque = b.torque.Add(p.Sub(b.worldCenter).Cross(force))
	b.Wake()
}

// ApplyLinearImpulse applies an instantaneous change in momentum.
func (b *Body) ApplyLinearImpulse(impulse mgl32.Vec3) {
	if b.kind != Dynamic {
		return
	}
	b.linearVelocity = b.linearVelocity.Add(impulse.Mul(b.invMass))
	b.Wake()
}

// ApplyLinearImpulseAtWorldPoint applies an instantaneous impulse at
// world point p, inducing both linear and angular velocity change.
func (b *Body) ApplyLinearImpulseAtWorldPoint(impulse, p mgl32.Vec3) {
	if b.kind != Dynamic {
		return
	}
	b.linearVelocity = b.linearVelocity.Add(impulse.Mul(b.invMass))
	b.angularVelocity = b.angularVelocity.Add(mat3MulVec3(b.invInertiaWorld, p.Sub(b.worldCenter).Cross(impulse)))
	b.Wake()
}

// ApplyTorque accumulates torque for the next Step's integration.
func (b *Body) ApplyTorque(torque mgl32.Vec3) {
	if b.kind != Dynamic {
		return
	}
	b.torque = b.torque.Add(torque)
	b.Wake()
}

// VelocityAtWorldPoint returns the instantaneous world-space velocity of
// the material point of the body currently at p.
func (b *Body) VelocityAtWorldPoint(p mgl32.Vec3) mgl32.Vec3 {
	r := p.Sub(b.worldCenter)
	return b.linearVelocity.Add(b.angularVelocity.Cross(r))
}

// LocalPoint maps a world point into the body's local frame.
func (b *Body) LocalPoint(p mgl32.Vec3) mgl32.Vec3 { return b.transform.InvPoint(p) }

// WorldPoint maps a body-local point into world space.
func (b *Body) WorldPoint(p mgl32.Vec3) mgl32.Vec3 { return b.transform.Point(p) }

// canCollide implements the body-level pair filter (§4.3): a body never
// collides with itself, and every pair needs at least one dynamic body.
func (b *Body) canCollide(other *Body) bool {
	if b == other {
		return false
	}
	return b.kind == Dynamic || other.kind == Dynamic
}

// SetBox attaches (or replaces) this body's collider, recomputes its mass
// data, and inserts it into the broadphase.
func (b *Body) SetBox(def BoxDef) (*Box, error) {
	if b.box != nil {
		b.RemoveBox()
	}

	box := &Box{
		Local:       def.Transform,
		Extent:      def.Extents.Mul(0.5),
		Friction:    def.Friction,
		Restitution: def.Restitution,
		Density:     def.Density,
		Sensor:      def.Sensor,
		body:        b,
		DebugTag:    newDebugTag(),
	}
	b.box = box
	b.calculateMassData()

	aabb := box.ComputeAABB(b.transform)
	box.broadPhaseIndex = b.scene.contactManager.broadphase.Insert(box, aabb)
	b.scene.pendingNewBox = true

	return box, nil
}

// RemoveBox detaches the body's collider, destroying every contact that
// referenced it.
func (b *Body) RemoveBox() {
	if b.box == nil {
		return
	}
	b.scene.contactManager.removeContactsFromBody(b)
	b.scene.contactManager.broadphase.Remove(b.box.broadPhaseIndex)
	b.box = nil
	b.calculateMassData()
}

// calculateMassData rebuilds mass, inverse mass, and model-space inverse
// inertia from the current box (q3Body::CalculateMassData, §3).
func (b *Body) calculateMassData() {
	b.invInertiaModel = mgl32.Mat3{}
	b.invInertiaWorld = mgl32.Mat3{}
	b.mass = 0
	b.invMass = 0

	if b.isStaticOrKinematic() {
		b.localCenter = mgl32.Vec3{}
		b.worldCenter = b.transform.Position
		return
	}

	var lc mgl32.Vec3
	var inertia mgl32.Mat3
	var mass float32

	if b.box != nil && b.box.Density != 0 {
		md := b.box.computeMass()
		mass += md.mass
		inertia = matAdd(inertia, md.inertia)
		lc = lc.Add(md.center.Mul(md.mass))
	}

	if mass > 0 {
		b.mass = mass
		b.invMass = 1 / mass
		lc = lc.Mul(b.invMass)
		shift := mat3Scale(mat3Sub(mat3Scale(mat3Identity(), lc.Dot(lc)), outerProduct(lc, lc)), mass)
		inertia = mat3Sub(inertia, shift)
		b.invInertiaModel = mat3Inverse(inertia)
	} else {
		// Geometric degeneracy guard (§7): force dynamic bodies to have
		// mass, with zero inertia (no angular response).
		b.mass = 1
		b.invMass = 1
		b.invInertiaModel = mgl32.Mat3{}
		if b.scene != nil {
			b.scene.logger.Warnf("body %d has zero mass, clamping to 1 with zero inertia", b.id)
		}
	}

	b.localCenter = lc
	b.worldCenter = b.transform.Point(lc)
}

// synchronizeProxies recomputes the body's transform from its center of
// mass, then pushes the fresh AABB into the broadphase (q3Body::
// SynchronizeProxies).
func (b *Body) synchronizeProxies() {
	b.transform.Position = b.worldCenter.Sub(mat3MulVec3(b.transform.Rotation, b.localCenter))

	if b.box == nil {
		return
	}
	aabb := b.box.ComputeAABB(b.transform)
	b.scene.contactManager.broadphase.Update(b.box.broadPhaseIndex, aabb)
}
