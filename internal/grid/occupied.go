package grid

// OccupiedCellsQueues is a set of sharded MPSC queues of cell indices,
// written during registration and drained only by the next tick's Reset
// (spec.md §3). Sharding by `cellIndex % len(shards)` lets Reset drain all
// shards in parallel without any shard-to-shard coordination.
type OccupiedCellsQueues struct {
	shards []chan int
}

// NewOccupiedCellsQueues creates numShards queues, each sized to hold every
// cell the grid could possibly enqueue in one tick — registration dedups
// via Cell.MarkRegisteredIfFirst, so a cell is enqueued at most once per
// tick and the buffer can never overflow.
func NewOccupiedCellsQueues(numShards, totalCells int) *OccupiedCellsQueues {
	if numShards < 1 {
		numShards = 1
	}
	shards := make([]chan int, numShards)
	capPerShard := totalCells/numShards + 1
	for i := range shards {
		shards[i] = make(chan int, capPerShard)
	}
	return &OccupiedCellsQueues{shards: shards}
}

// NumShards returns the number of shards (== MaxThreadsAllowed).
func (q *OccupiedCellsQueues) NumShards() int { return len(q.shards) }

// Enqueue records cellIndex as occupied this tick. Safe for concurrent
// callers sharing the same shard (a registration phase's batches run in
// their own goroutines but target the same grid).
func (q *OccupiedCellsQueues) Enqueue(cellIndex int) {
	shard := cellIndex % len(q.shards)
	q.shards[shard] <- cellIndex
}

// DrainShard pops every index currently queued on shard i without blocking.
func (q *OccupiedCellsQueues) DrainShard(i int) []int {
	ch := q.shards[i]
	out := make([]int, 0, len(ch))
	for {
		select {
		case idx := <-ch:
			out = append(out, idx)
		default:
			return out
		}
	}
}
