// Package workpool is the single place that spawns goroutines for the grid's
// registration and decouple phases, giving every phase the same
// data-parallel fork-join discipline (spec.md §5). Fan-in of per-batch
// completion signals is done with channerics.Merge rather than a bare
// sync.WaitGroup, grounded on niceyeti-tabular/main.go's worker-fan-in
// pattern (`channerics.Merge(done, workers...)`).
package workpool

import (
	"log"

	channerics "github.com/niceyeti/channerics/channels"
)

// Plan computes the (threadCount, batchSize) split for n items given a
// minimum batch size and a maximum thread cap (spec.md §5).
func Plan(n, minBatchSize, maxThreads int) (threadCount, batchSize int) {
	if n <= 0 {
		return 0, 0
	}
	if maxThreads < 1 {
		maxThreads = 1
	}
	if minBatchSize < 1 {
		minBatchSize = 1
	}

	threadCount = n / minBatchSize
	if threadCount < 1 {
		threadCount = 1
	}
	if threadCount > maxThreads {
		threadCount = maxThreads
	}
	batchSize = (n + threadCount - 1) / threadCount
	return threadCount, batchSize
}

// Run splits [0,n) into Plan-sized batches and runs fn(start, end) for each
// batch on its own goroutine, joining only once every batch has completed.
// A batch that panics is recovered and logged rather than taking the whole
// tick down with it — the phase's other batches still complete and the
// barrier still closes, leaving the panicking batch's writes partial for
// that batch's index range only (spec.md §7 treats this as a programming fault, not a
// condition to recover application state from).
func Run(n, minBatchSize, maxThreads int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	threadCount, batchSize := Plan(n, minBatchSize, maxThreads)

	done := make(chan struct{})
	defer close(done)

	workers := make([]<-chan struct{}, 0, threadCount)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		ch := make(chan struct{}, 1)
		go runBatch(start, end, fn, ch)
		workers = append(workers, (<-chan struct{})(ch))
	}

	joined := channerics.Merge(done, workers...)
	for range workers {
		<-joined
	}
}

func runBatch(start, end int, fn func(start, end int), done chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("workpool: batch [%d,%d) panicked: %v", start, end, r)
		}
		done <- struct{}{}
	}()
	fn(start, end)
}
