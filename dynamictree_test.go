package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func aabbAt(pos mgl32.Vec3, half float32) AABB {
	h := mgl32.Vec3{half, half, half}
	return AABB{Min: pos.Sub(h), Max: pos.Add(h)}
}

func TestDynamicTreeInsertAndTestOverlap(t *testing.T) {
	tree := NewDynamicTreeBroadphase()
	a := tree.Insert(&Box{}, aabbAt(mgl32.Vec3{0, 0, 0}, 0.5))
	b := tree.Insert(&Box{}, aabbAt(mgl32.Vec3{0.5, 0, 0}, 0.5))
	c := tree.Insert(&Box{}, aabbAt(mgl32.Vec3{100, 0, 0}, 0.5))

	if !tree.TestOverlap(a, b) {
		t.Errorf("expected a and b's fattened AABBs to overlap")
	}
	if tree.TestOverlap(a, c) {
		t.Errorf("expected a and c not to overlap")
	}
}

func TestDynamicTreeGeneratePairsDedupsAndClearsMovedSet(t *testing.T) {
	tree := NewDynamicTreeBroadphase()
	tree.Insert(&Box{}, aabbAt(mgl32.Vec3{0, 0, 0}, 0.5))
	tree.Insert(&Box{}, aabbAt(mgl32.Vec3{0.5, 0, 0}, 0.5))

	pairs := tree.GeneratePairs()
	if len(pairs) != 1 {
		t.Fatalf("expected exactly 1 overlapping pair, got %d", len(pairs))
	}

	// The moved set is drained by GeneratePairs; a second call with no
	// intervening Insert/Update should report nothing new (§4.1).
	again := tree.GeneratePairs()
	if len(again) != 0 {
		t.Errorf("expected no new pairs after the moved set was drained, got %d", len(again))
	}
}

func TestDynamicTreeThreeOverlappingBoxesProduceThreePairs(t *testing.T) {
	// §8 S6: C(3,2) = 3 pairs from 3 mutually overlapping boxes.
	tree := NewDynamicTreeBroadphase()
	tree.Insert(&Box{}, aabbAt(mgl32.Vec3{0, 0, 0}, 1))
	tree.Insert(&Box{}, aabbAt(mgl32.Vec3{0.2, 0, 0}, 1))
	tree.Insert(&Box{}, aabbAt(mgl32.Vec3{-0.2, 0, 0}, 1))

	pairs := tree.GeneratePairs()
	if len(pairs) != 3 {
		t.Errorf("expected 3 pairs from 3 mutually overlapping boxes, got %d", len(pairs))
	}
}

func TestDynamicTreeUpdateOnlyReinsertsWhenEscapingFatAABB(t *testing.T) {
	tree := NewDynamicTreeBroadphase()
	handle := tree.Insert(&Box{}, aabbAt(mgl32.Vec3{0, 0, 0}, 0.5))
	tree.GeneratePairs() // drain the initial moved set

	// A tiny move within the fattened margin should not require a
	// resynchronization.
	moved := tree.Update(handle, aabbAt(mgl32.Vec3{0.01, 0, 0}, 0.5))
	if moved {
		t.Errorf("expected a small move within the fat AABB not to trigger re-insertion")
	}

	// A move well past the fattening margin must resynchronize.
	moved = tree.Update(handle, aabbAt(mgl32.Vec3{50, 0, 0}, 0.5))
	if !moved {
		t.Errorf("expected a move past the fat AABB margin to trigger re-insertion")
	}
}

func TestDynamicTreeRemoveDropsFromQueries(t *testing.T) {
	tree := NewDynamicTreeBroadphase()
	handle := tree.Insert(&Box{}, aabbAt(mgl32.Vec3{0, 0, 0}, 0.5))
	tree.Remove(handle)

	found := false
	tree.QueryAABB(aabbAt(mgl32.Vec3{0, 0, 0}, 10), func(h int32) bool {
		found = true
		return true
	})
	if found {
		t.Errorf("expected a removed node not to appear in queries")
	}
}

func TestDynamicTreeQueryRayFindsIntersectingLeaf(t *testing.T) {
	tree := NewDynamicTreeBroadphase()
	box := &Box{}
	tree.Insert(box, aabbAt(mgl32.Vec3{0, 0, 0}, 1))

	hits := 0
	tree.QueryRay(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, -1, 0}, 100, func(h int32) bool {
		hits++
		return true
	})
	if hits != 1 {
		t.Errorf("expected the ray to hit exactly 1 leaf, got %d", hits)
	}
}
