package tickdriver

import "testing"

func TestBoundedNeighborsKeepsNearest(t *testing.T) {
	b := newBoundedNeighbors(3)

	offers := []struct {
		hash   uint64
		distSq float64
	}{
		{1, 10}, {2, 5}, {3, 20}, {4, 1}, {5, 15},
	}
	for _, o := range offers {
		b.offer(o.hash, int(o.hash), o.distSq)
	}

	indices := b.indices()
	if len(indices) != 3 {
		t.Fatalf("expected 3 kept candidates, got %d", len(indices))
	}

	kept := make(map[int]bool)
	for _, idx := range indices {
		kept[idx] = true
	}
	// The three nearest candidates were hash 4 (distSq 1), hash 2 (5), hash 1 (10).
	for _, want := range []int{4, 2, 1} {
		if !kept[want] {
			t.Errorf("expected candidate with index %d to survive, kept=%v", want, indices)
		}
	}
}

func TestBoundedNeighborsDedupsByHash(t *testing.T) {
	b := newBoundedNeighbors(5)
	accepted1 := b.offer(7, 0, 10)
	accepted2 := b.offer(7, 1, 2)

	if !accepted1 {
		t.Fatal("first offer of a fresh hash should be accepted")
	}
	if accepted2 {
		t.Fatal("second offer of the same hash should be rejected as a duplicate")
	}
	if len(b.indices()) != 1 {
		t.Fatalf("expected exactly one kept candidate, got %d", len(b.indices()))
	}
}

func TestBoundedNeighborsZeroCapacityKeepsNothing(t *testing.T) {
	b := newBoundedNeighbors(0)
	if b.offer(1, 0, 5) {
		t.Fatal("a zero-capacity bounded set should never accept an offer")
	}
	if len(b.indices()) != 0 {
		t.Fatal("expected no kept candidates")
	}
}
