package physics

import "github.com/go-gl/mathgl/mgl32"

// DynamicTreeBroadphase is a dynamic AABB tree broadphase (§4.1),
// grounded on the node-pool/free-list structure of Box2D's b2DynamicTree
// (ported to Go in the reference pack) and adapted to q3's fattening and
// move-set contract. Leaves hold a *Box; internal nodes hold the union
// of their children's AABBs. Insertion picks the sibling leaf that
// minimizes the resulting surface-area cost; this implementation skips
// Box2D's post-insertion tree rotation rebalancing, trading a slightly
// less balanced tree for a much smaller implementation, acceptable
// since §4.1 leaves the data structure to the implementer.
type DynamicTreeBroadphase struct {
	nodes    []treeNode
	root     int32
	freeList int32

	movedList []int32

	kFattener float32
}

type treeNode struct {
	aabb           AABB
	box            *Box
	parent         int32
	child1, child2 int32
	height         int32 // -1: free, 0: leaf, >0: internal
}

const treeNullNode int32 = -1

// NewDynamicTreeBroadphase constructs an empty tree with the documented
// fattening margin (§4.1, k_fattener = 0.5).
func NewDynamicTreeBroadphase() *DynamicTreeBroadphase {
	return &DynamicTreeBroadphase{
		root:      treeNullNode,
		freeList:  treeNullNode,
		kFattener: 0.5,
	}
}

func (t *DynamicTreeBroadphase) allocateNode() int32 {
	if t.freeList == treeNullNode {
		t.nodes = append(t.nodes, treeNode{parent: treeNullNode, child1: treeNullNode, child2: treeNullNode, height: -1})
		return int32(len(t.nodes) - 1)
	}
	id := t.freeList
	t.freeList = t.nodes[id].next()
	t.nodes[id] = treeNode{parent: treeNullNode, child1: treeNullNode, child2: treeNullNode, height: -1}
	return id
}

// next reuses the parent field as a free-list link for freed nodes.
func (n treeNode) next() int32 { return n.parent }

func (t *DynamicTreeBroadphase) freeNode(id int32) {
	t.nodes[id] = treeNode{parent: t.freeList, child1: treeNullNode, child2: treeNullNode, height: -1}
	t.freeList = id
}

func (t *DynamicTreeBroadphase) fatten(aabb AABB) AABB {
	return aabb.Fatten(t.kFattener)
}

// Insert implements Broadphase.
func (t *DynamicTreeBroadphase) Insert(box *Box, tight AABB) int32 {
	leaf := t.allocateNode()
	t.nodes[leaf].aabb = t.fatten(tight)
	t.nodes[leaf].box = box
	t.nodes[leaf].height = 0
	t.insertLeaf(leaf)
	t.markMoved(leaf)
	return leaf
}

// Remove implements Broadphase.
func (t *DynamicTreeBroadphase) Remove(handle int32) {
	t.removeLeaf(handle)
	t.freeNode(handle)
	t.unmarkMoved(handle)
}

// Update implements Broadphase. Only re-inserts the leaf (and marks it
// moved) when the existing fat AABB no longer contains the fresh tight
// AABB, matching the "resynchronize only on escape" rule of §4.1.
func (t *DynamicTreeBroadphase) Update(handle int32, tight AABB) bool {
	if t.nodes[handle].aabb.Contains(tight) {
		return false
	}
	t.removeLeaf(handle)
	t.nodes[handle].aabb = t.fatten(tight)
	t.insertLeaf(handle)
	t.markMoved(handle)
	return true
}

func (t *DynamicTreeBroadphase) TestOverlap(a, b int32) bool {
	return t.nodes[a].aabb.Overlaps(t.nodes[b].aabb)
}

func (t *DynamicTreeBroadphase) markMoved(id int32) {
	for _, m := range t.movedList {
		if m == id {
			return
		}
	}
	t.movedList = append(t.movedList, id)
}

func (t *DynamicTreeBroadphase) unmarkMoved(id int32) {
	for i, m := range t.movedList {
		if m == id {
			t.movedList = append(t.movedList[:i], t.movedList[i+1:]...)
			return
		}
	}
}

// GeneratePairs implements Broadphase: for every moved leaf, query the
// tree for overlaps and keep pairs with A<B (dedup by canonical order,
// plus a scratch set to avoid reporting the same unordered pair twice
// when both members moved this step).
func (t *DynamicTreeBroadphase) GeneratePairs() []BroadphasePair {
	var pairs []BroadphasePair
	seen := make(map[int64]struct{})

	for _, m := range t.movedList {
		aabb := t.nodes[m].aabb
		t.query(t.root, aabb, func(other int32) bool {
			if other == m {
				return true
			}
			a, b := m, other
			if a > b {
				a, b = b, a
			}
			key := int64(a)<<32 | int64(uint32(b))
			if _, ok := seen[key]; ok {
				return true
			}
			seen[key] = struct{}{}
			pairs = append(pairs, BroadphasePair{A: a, B: b})
			return true
		})
	}
	t.movedList = t.movedList[:0]
	return pairs
}

func (t *DynamicTreeBroadphase) QueryAABB(aabb AABB, cb func(handle int32) bool) {
	t.query(t.root, aabb, cb)
}

func (t *DynamicTreeBroadphase) query(node int32, aabb AABB, cb func(handle int32) bool) {
	if node == treeNullNode {
		return
	}
	stack := []int32{node}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == treeNullNode {
			continue
		}
		n := &t.nodes[id]
		if !n.aabb.Overlaps(aabb) {
			continue
		}
		if n.height == 0 {
			if !cb(id) {
				return
			}
		} else {
			stack = append(stack, n.child1, n.child2)
		}
	}
}

func (t *DynamicTreeBroadphase) QueryRay(start, dir mgl32.Vec3, maxT float32, cb func(handle int32) bool) {
	if t.root == treeNullNode {
		return
	}
	stack := []int32{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == treeNullNode {
			continue
		}
		n := &t.nodes[id]
		if ok, _ := n.aabb.RayCast(start, dir, maxT); !ok {
			continue
		}
		if n.height == 0 {
			if !cb(id) {
				return
			}
		} else {
			stack = append(stack, n.child1, n.child2)
		}
	}
}

// insertLeaf implements Box2D's cost-minimizing sibling search: descend
// from the root always choosing the child whose enlargement to contain
// the new leaf costs least, then split that sibling into a fresh
// internal node parenting both.
func (t *DynamicTreeBroadphase) insertLeaf(leaf int32) {
	if t.root == treeNullNode {
		t.root = leaf
		t.nodes[leaf].parent = treeNullNode
		return
	}

	leafAABB := t.nodes[leaf].aabb
	index := t.root
	for t.nodes[index].height != 0 {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		area := t.nodes[index].aabb.SurfaceArea()
		combined := t.nodes[index].aabb.Combine(leafAABB)
		combinedArea := combined.SurfaceArea()

		cost := 2 * combinedArea
		inheritanceCost := 2 * (combinedArea - area)

		cost1 := t.childCost(child1, leafAABB) + inheritanceCost
		cost2 := t.childCost(child2, leafAABB) + inheritanceCost

		if cost < cost1 && cost < cost2 {
			break
		}
		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index
	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].aabb = t.nodes[sibling].aabb.Combine(leafAABB)
	t.nodes[newParent].height = t.nodes[sibling].height + 1

	if oldParent != treeNullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
		t.nodes[newParent].child1 = sibling
		t.nodes[newParent].child2 = leaf
		t.nodes[sibling].parent = newParent
		t.nodes[leaf].parent = newParent
	} else {
		t.nodes[newParent].child1 = sibling
		t.nodes[newParent].child2 = leaf
		t.nodes[sibling].parent = newParent
		t.nodes[leaf].parent = newParent
		t.root = newParent
	}

	t.refitAncestors(t.nodes[leaf].parent)
}

func (t *DynamicTreeBroadphase) childCost(child int32, leafAABB AABB) float32 {
	combined := t.nodes[child].aabb.Combine(leafAABB)
	if t.nodes[child].height == 0 {
		return combined.SurfaceArea()
	}
	return combined.SurfaceArea() - t.nodes[child].aabb.SurfaceArea()
}

func (t *DynamicTreeBroadphase) refitAncestors(index int32) {
	for index != treeNullNode {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2
		t.nodes[index].aabb = t.nodes[child1].aabb.Combine(t.nodes[child2].aabb)
		t.nodes[index].height = 1 + maxI(t.nodes[child1].height, t.nodes[child2].height)
		index = t.nodes[index].parent
	}
}

func (t *DynamicTreeBroadphase) removeLeaf(leaf int32) {
	if leaf == t.root {
		t.root = treeNullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	var sibling int32
	if t.nodes[parent].child1 == leaf {
		sibling = t.nodes[parent].child2
	} else {
		sibling = t.nodes[parent].child1
	}

	if grandParent != treeNullNode {
		if t.nodes[grandParent].child1 == parent {
			t.nodes[grandParent].child1 = sibling
		} else {
			t.nodes[grandParent].child2 = sibling
		}
		t.nodes[sibling].parent = grandParent
		t.freeNode(parent)
		t.refitAncestors(grandParent)
	} else {
		t.root = sibling
		t.nodes[sibling].parent = treeNullNode
		t.freeNode(parent)
	}
}

func maxI(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
