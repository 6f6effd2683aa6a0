package tickdriver

import "container/heap"

// candidate is one neighbor found during gathering: its grid hash (for
// dedup across multi-registered cells), handle and squared distance to the
// querying agent. Grounded on the teacher's pathfinding.go PathHeap, the
// one stdlib container/heap usage in the retrieved pack — generalized from
// a min-heap over path-node cost to a bounded max-heap over neighbor
// distance (spec.md §4.6's "max-heap of size maxNeighbors").
type candidate struct {
	hash   uint64
	index  int // position of the source Avoiding record, resolved by the caller
	distSq float64
}

// maxHeap is a max-heap by distSq: the farthest candidate sits at index 0,
// so bounding its size to maxNeighbors means popping the farthest whenever
// a strictly nearer candidate arrives.
type maxHeap []candidate

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i].distSq > h[j].distSq }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// boundedNeighbors keeps the maxN nearest candidates pushed to it,
// deduping by hash (a handle multi-registered across several cells must
// only be considered once, per spec.md §4.6).
type boundedNeighbors struct {
	h    maxHeap
	maxN int
	seen map[uint64]struct{}
}

func newBoundedNeighbors(maxN int) *boundedNeighbors {
	return &boundedNeighbors{maxN: maxN, seen: make(map[uint64]struct{})}
}

// offer considers one candidate, returning true if it was kept.
func (b *boundedNeighbors) offer(hash uint64, index int, distSq float64) bool {
	if _, dup := b.seen[hash]; dup {
		return false
	}
	if b.maxN <= 0 {
		return false
	}
	if len(b.h) < b.maxN {
		heap.Push(&b.h, candidate{hash: hash, index: index, distSq: distSq})
		b.seen[hash] = struct{}{}
		return true
	}
	if distSq >= b.h[0].distSq {
		return false
	}
	delete(b.seen, b.h[0].hash)
	heap.Pop(&b.h)
	heap.Push(&b.h, candidate{hash: hash, index: index, distSq: distSq})
	b.seen[hash] = struct{}{}
	return true
}

func (b *boundedNeighbors) indices() []int {
	out := make([]int, len(b.h))
	for i, c := range b.h {
		out[i] = c.index
	}
	return out
}
