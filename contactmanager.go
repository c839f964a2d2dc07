package physics

// ContactManager owns every ContactConstraint and the broadphase that
// feeds it candidate pairs (§3, §4.3). Grounded on q3ContactManager's
// AddContact/TestCollisions/RemoveContact sequence.
type ContactManager struct {
	broadphase Broadphase
	list       map[*ContactConstraint]struct{}
	logger     Logger
}

func newContactManager(bp Broadphase, logger Logger) *ContactManager {
	return &ContactManager{
		broadphase: bp,
		list:       make(map[*ContactConstraint]struct{}),
		logger:     logger,
	}
}

// AddContact implements §4.3 "Adding pairs": filters by body-level
// collision rules, rejects an already-tracked ordered pair, and
// otherwise allocates a fresh constraint linked into both bodies'
// adjacency lists.
func (cm *ContactManager) AddContact(a, b *Box) {
	bodyA, bodyB := a.body, b.body
	if !bodyA.canCollide(bodyB) {
		return
	}

	for e := bodyA.edgeList; e != nil; e = e.next {
		if e.other == bodyB {
			c := e.constraint
			if (c.A == a && c.B == b) || (c.A == b && c.B == a) {
				return
			}
		}
	}

	c := &ContactConstraint{
		A: a, B: b,
		Friction:    mixFriction(a.Friction, b.Friction),
		Restitution: mixRestitution(a.Restitution, b.Restitution),
		Sensor:      a.Sensor || b.Sensor,
	}
	c.manifold.A, c.manifold.B = a, b

	c.edgeA = ContactEdge{other: bodyB, constraint: c}
	c.edgeB = ContactEdge{other: bodyA, constraint: c}
	linkEdge(&bodyA.edgeList, &c.edgeA)
	linkEdge(&bodyB.edgeList, &c.edgeB)

	cm.list[c] = struct{}{}
}

func linkEdge(head **ContactEdge, e *ContactEdge) {
	e.next = *head
	e.prev = nil
	if *head != nil {
		(*head).prev = e
	}
	*head = e
}

func unlinkEdge(head **ContactEdge, e *ContactEdge) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		*head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	e.prev, e.next = nil, nil
}

// TestCollisions implements §4.3 "TestCollisions": drop constraints the
// broadphase or filter no longer permit, otherwise recompute the
// manifold and transfer warm-start impulses by FeaturePair identity.
func (cm *ContactManager) TestCollisions() {
	for c := range cm.list {
		c.Island = false

		if !c.A.body.canCollide(c.B.body) || !cm.broadphase.TestOverlap(c.A.broadPhaseIndex, c.B.broadPhaseIndex) {
			cm.removeContact(c)
			continue
		}

		old := c.manifold
		boxToBox(&c.manifold, c.A, c.B)

		c.WasColliding = c.Colliding
		c.Colliding = c.manifold.ContactCount > 0

		transferWarmStart(&old, &c.manifold)
	}
}

// transferWarmStart matches new contacts to old ones by FeaturePair.Key
// and carries forward accumulated impulses, re-projecting the 2D
// friction impulse into the fresh tangent basis (§4.3).
func transferWarmStart(old, fresh *Manifold) {
	for i := 0; i < fresh.ContactCount; i++ {
		nc := &fresh.Contacts[i]
		for j := 0; j < old.ContactCount; j++ {
			oc := &old.Contacts[j]
			if oc.FP.Key() != nc.FP.Key() {
				continue
			}
			oldTangentWorld := old.Tangents[0].Mul(oc.TangentImpulse[0]).Add(old.Tangents[1].Mul(oc.TangentImpulse[1]))
			nc.NormalImpulse = oc.NormalImpulse
			nc.TangentImpulse[0] = oldTangentWorld.Dot(fresh.Tangents[0])
			nc.TangentImpulse[1] = oldTangentWorld.Dot(fresh.Tangents[1])
			nc.WarmStarted = oc.WarmStarted + 1
			break
		}
	}
}

func (cm *ContactManager) removeContact(c *ContactConstraint) {
	unlinkEdge(&c.A.body.edgeList, &c.edgeA)
	unlinkEdge(&c.B.body.edgeList, &c.edgeB)
	delete(cm.list, c)
	cm.logger.Debugf("dropped contact %s/%s", c.A.DebugTag, c.B.DebugTag)
}

// RemoveContact implements the public removal path used when a box or
// body is destroyed mid-simulation.
func (cm *ContactManager) RemoveContact(c *ContactConstraint) {
	cm.removeContact(c)
}

// removeContactsFromBody implements §4.3 "Removing": walks b's edge
// list destroying each constraint, capturing `next` before removal so
// the traversal tolerates the self-unlinking that removeContact
// performs.
func (cm *ContactManager) removeContactsFromBody(b *Body) {
	e := b.edgeList
	for e != nil {
		next := e.next
		cm.removeContact(e.constraint)
		e = next
	}
}
