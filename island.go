package physics

import "github.com/go-gl/mathgl/mgl32"

// island is the transient per-Step connected-component of bodies joined
// by colliding, non-sensor constraints (§3, §4.4). Grounded on
// q3Island's flat body/constraint arrays, built by DFS from a seed body.
type island struct {
	bodies      []*Body
	velocities  []islandVelocity
	constraints []*ContactConstraint

	dt      float32
	gravity mgl32.Vec3

	enableFriction bool
	iterations     int
}

type islandVelocity struct {
	linear  mgl32.Vec3
	angular mgl32.Vec3
}

// buildIsland performs the DFS of §4.4: recursion stops only at static
// bodies (they never propagate the search, but are still added as
// immovable members so the solver can react against them). A kinematic
// neighbor is added the same way but does not stop the DFS from
// continuing through it, since it belongs to exactly one island like any
// other non-static body. Only colliding non-sensor constraints are
// followed.
func buildIsland(seed *Body) *island {
	is := &island{}
	stack := []*Body{seed}
	seed.island = true

	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		is.bodies = append(is.bodies, b)

		if b.kind == Static {
			continue
		}

		for e := b.edgeList; e != nil; e = e.next {
			c := e.constraint
			if c.Island || c.Sensor || !c.Colliding {
				continue
			}
			c.Island = true
			is.constraints = append(is.constraints, c)

			other := e.other
			if !other.island {
				other.island = true
				stack = append(stack, other)
			}
		}
	}

	return is
}

// releaseStaticIslandFlags clears the island bit on every static member
// of is once it has been solved, so a static floor touched by two
// disjoint dynamic clusters can be pulled into a second, later island
// within the same Step (§4.4). Dynamic and Kinematic bodies keep their
// bit set for the rest of the Step since each of them belongs to
// exactly one island.
func releaseStaticIslandFlags(is *island) {
	for _, b := range is.bodies {
		if b.kind == Static {
			b.island = false
		}
	}
}

// integratePreSolve applies gravity and force/torque accumulators, then
// exponential damping, to every dynamic body in the island, refreshing
// each body's world inertia tensor along the way, before snapshotting
// the island's velocity scratch buffer (q3Island::Solve, first block).
func (is *island) integratePreSolve(dt float32, gravity mgl32.Vec3) {
	is.dt = dt
	is.gravity = gravity
	is.velocities = make([]islandVelocity, len(is.bodies))

	for i, b := range is.bodies {
		if b.kind == Dynamic {
			b.force = b.force.Add(gravity.Mul(b.gravityScale * b.mass))

			r := b.transform.Rotation
			b.invInertiaWorld = mat3Mul(mat3Mul(r, b.invInertiaModel), mat3Transpose(r))

			b.linearVelocity = b.linearVelocity.Add(b.force.Mul(b.invMass * dt))
			b.angularVelocity = b.angularVelocity.Add(mat3MulVec3(b.invInertiaWorld, b.torque).Mul(dt))

			b.linearVelocity = b.linearVelocity.Mul(1 / (1 + dt*b.linearDamping))
			b.angularVelocity = b.angularVelocity.Mul(1 / (1 + dt*b.angularDamping))
		}

		is.velocities[i] = islandVelocity{linear: b.linearVelocity, angular: b.angularVelocity}
	}
}
