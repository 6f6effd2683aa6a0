package grid

import (
	"runtime"
	"sync/atomic"
)

// spinlock is a tiny single-owner busy-wait lock, preferred over sync.Mutex
// per spec.md §9: cell contention is low because writes are spatially
// distributed, so the cost of a kernel futex wait is rarely worth paying.
// Backoff yields the scheduler rather than spinning hot under contention.
type spinlock struct {
	state atomic.Bool
}

func (s *spinlock) Lock() {
	backoff := 1
	for !s.state.CompareAndSwap(false, true) {
		for i := 0; i < backoff; i++ {
			runtime.Gosched()
		}
		if backoff < 64 {
			backoff *= 2
		}
	}
}

func (s *spinlock) Unlock() {
	s.state.Store(false)
}
