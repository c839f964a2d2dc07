package physics

import "github.com/go-gl/mathgl/mgl32"

// baumgarteBeta and slop are the penetration-bias constants of §4.5;
// non-normative but matching the source.
const (
	baumgarteBeta = 0.2
	penetrationSlop = float32(0.05)
	restitutionVelocityThreshold = float32(-1.0)
)

// contactSolver packs an island's per-body velocity scratch and
// per-contact constraint state so the iteration loop never touches Body
// fields directly (§4.5 "State").
type contactSolver struct {
	is *island

	bodyIndex map[*Body]int

	constraints []solverConstraint

	enableFriction bool
}

type solverContact struct {
	ra, rb      mgl32.Vec3
	penetration float32

	normalMass    float32
	tangentMass   [2]float32
	bias          float32
	normalImpulse float32
	tangentImpulse [2]float32

	source *Contact
}

type solverConstraint struct {
	indexA, indexB int
	mA, mB         float32
	iA, iB         mgl32.Mat3
	normal         mgl32.Vec3
	tangents       [2]mgl32.Vec3
	restitution    float32
	friction       float32

	contacts []solverContact

	source *ContactConstraint
}

func newContactSolver(is *island, enableFriction bool) *contactSolver {
	cs := &contactSolver{is: is, enableFriction: enableFriction, bodyIndex: make(map[*Body]int, len(is.bodies))}
	for i, b := range is.bodies {
		cs.bodyIndex[b] = i
	}

	for _, cc := range is.constraints {
		m := &cc.manifold
		sc := solverConstraint{
			indexA:      cs.bodyIndex[cc.A.body],
			indexB:      cs.bodyIndex[cc.B.body],
			mA:          cc.A.body.invMass,
			mB:          cc.B.body.invMass,
			iA:          cc.A.body.invInertiaWorld,
			iB:          cc.B.body.invInertiaWorld,
			normal:      m.Normal,
			tangents:    m.Tangents,
			restitution: cc.Restitution,
			friction:    cc.Friction,
			source:      cc,
		}
		for i := 0; i < m.ContactCount; i++ {
			c := &m.Contacts[i]
			sc.contacts = append(sc.contacts, solverContact{
				ra:          c.Position.Sub(cc.A.body.worldCenter),
				rb:          c.Position.Sub(cc.B.body.worldCenter),
				penetration: c.Penetration,
				source:      c,
			})
		}
		cs.constraints = append(cs.constraints, sc)
	}
	return cs
}

func angularMassTerm(inv mgl32.Mat3, r, n mgl32.Vec3) float32 {
	t := r.Cross(n)
	return t.Dot(mat3MulVec3(inv, t))
}

func relativeVelocity(cs *contactSolver, sc *solverConstraint, c *solverContact) mgl32.Vec3 {
	vA := cs.is.velocities[sc.indexA]
	vB := cs.is.velocities[sc.indexB]
	pointA := vA.linear.Add(vA.angular.Cross(c.ra))
	pointB := vB.linear.Add(vB.angular.Cross(c.rb))
	return pointB.Sub(pointA)
}

func (cs *contactSolver) applyImpulse(sc *solverConstraint, c *solverContact, impulse mgl32.Vec3) {
	vA := &cs.is.velocities[sc.indexA]
	vB := &cs.is.velocities[sc.indexB]
	vA.linear = vA.linear.Sub(impulse.Mul(sc.mA))
	vA.angular = vA.angular.Sub(mat3MulVec3(sc.iA, c.ra.Cross(impulse)))
	vB.linear = vB.linear.Add(impulse.Mul(sc.mB))
	vB.angular = vB.angular.Add(mat3MulVec3(sc.iB, c.rb.Cross(impulse)))
}

// PreSolve computes constraint masses and restitution/Baumgarte bias,
// then immediately applies each contact's persisted (warm-started)
// impulse (§4.5 "PreSolve").
func (cs *contactSolver) PreSolve(dt float32) {
	for ci := range cs.constraints {
		sc := &cs.constraints[ci]
		for pi := range sc.contacts {
			c := &sc.contacts[pi]

			c.normalMass = safeInv(sc.mA + sc.mB + angularMassTerm(sc.iA, c.ra, sc.normal) + angularMassTerm(sc.iB, c.rb, sc.normal))
			for t := 0; t < 2; t++ {
				c.tangentMass[t] = safeInv(sc.mA + sc.mB + angularMassTerm(sc.iA, c.ra, sc.tangents[t]) + angularMassTerm(sc.iB, c.rb, sc.tangents[t]))
			}

			vrel := relativeVelocity(cs, sc, c).Dot(sc.normal)
			var bias float32
			if vrel < restitutionVelocityThreshold {
				bias = -sc.restitution * vrel
			}
			bias += -(baumgarteBeta / dt) * maxF(c.penetration-penetrationSlop, 0)
			c.bias = bias

			c.normalImpulse = c.source.NormalImpulse
			c.tangentImpulse = c.source.TangentImpulse

			p := sc.normal.Mul(c.normalImpulse).
				Add(sc.tangents[0].Mul(c.tangentImpulse[0])).
				Add(sc.tangents[1].Mul(c.tangentImpulse[1]))
			cs.applyImpulse(sc, c, p)
		}
	}
}

// Solve runs one sequential-impulse iteration: a Coulomb friction pass
// per tangent axis, clamped to the friction cone of the *current* normal
// impulse, then a normal pass clamped to non-negative accumulation
// (§4.5 "Solve").
func (cs *contactSolver) Solve() {
	for ci := range cs.constraints {
		sc := &cs.constraints[ci]
		for pi := range sc.contacts {
			c := &sc.contacts[pi]

			if cs.enableFriction {
				for t := 0; t < 2; t++ {
					tangent := sc.tangents[t]
					lambda := -c.tangentMass[t] * relativeVelocity(cs, sc, c).Dot(tangent)

					maxFriction := sc.friction * c.normalImpulse
					oldAcc := c.tangentImpulse[t]
					newAcc := clampF(oldAcc+lambda, -maxFriction, maxFriction)
					lambda = newAcc - oldAcc
					c.tangentImpulse[t] = newAcc

					cs.applyImpulse(sc, c, tangent.Mul(lambda))
				}
			}

			lambda := c.normalMass * (c.bias - relativeVelocity(cs, sc, c).Dot(sc.normal))
			oldAcc := c.normalImpulse
			newAcc := maxF(oldAcc+lambda, 0)
			lambda = newAcc - oldAcc
			c.normalImpulse = newAcc

			cs.applyImpulse(sc, c, sc.normal.Mul(lambda))
		}
	}
}

// PostSolve copies scratch velocities back into bodies (statics are
// never part of an island's mutated set since their invMass is zero,
// but are guarded here regardless) and writes the accumulated impulses
// back into the persisted manifold for next Step's warm start.
func (cs *contactSolver) PostSolve() {
	for i, b := range cs.is.bodies {
		if b.isStaticOrKinematic() {
			continue
		}
		v := cs.is.velocities[i]
		b.linearVelocity = v.linear
		b.angularVelocity = v.angular
	}

	for ci := range cs.constraints {
		sc := &cs.constraints[ci]
		for pi := range sc.contacts {
			c := &sc.contacts[pi]
			c.source.NormalImpulse = c.normalImpulse
			c.source.TangentImpulse = c.tangentImpulse
			c.source.Bias = c.bias
			c.source.NormalMass = c.normalMass
			c.source.TangentMass = c.tangentMass
		}
	}
}

// integrateIsland advances position and orientation for every non-static
// body in the island (§4.5 "PostSolve" position step, §4.6 step 4).
// Kinematic bodies have infinite mass but still integrate: only Static
// bodies are excluded.
func integrateIsland(is *island, dt float32) {
	for _, b := range is.bodies {
		if b.kind == Static {
			continue
		}
		b.worldCenter = b.worldCenter.Add(b.linearVelocity.Mul(dt))
		b.quat = integrateQuat(b.quat, b.angularVelocity, dt)
		b.transform.Rotation = quatToMat3(b.quat)
		b.invInertiaWorld = mat3Mul(mat3Mul(b.transform.Rotation, b.invInertiaModel), mat3Transpose(b.transform.Rotation))
	}
}
