package workpool

import (
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPlanSplitsIntoBoundedBatches(t *testing.T) {
	Convey("Given 100 items, a min batch size of 8 and a max of 4 threads", t, func() {
		threads, batchSize := Plan(100, 8, 4)

		Convey("It should use the thread cap and a batch size covering all items", func() {
			So(threads, ShouldEqual, 4)
			So(batchSize*threads, ShouldBeGreaterThanOrEqualTo, 100)
		})
	})

	Convey("Given fewer items than the minimum batch size", t, func() {
		threads, _ := Plan(3, 8, 4)

		Convey("It should fall back to a single thread", func() {
			So(threads, ShouldEqual, 1)
		})
	})

	Convey("Given zero items", t, func() {
		threads, batchSize := Plan(0, 8, 4)

		Convey("It should report no work", func() {
			So(threads, ShouldEqual, 0)
			So(batchSize, ShouldEqual, 0)
		})
	})
}

func TestRunCoversEveryIndexExactlyOnce(t *testing.T) {
	Convey("Given 237 items split across several goroutines", t, func() {
		const n = 237
		var hits [n]int32

		Run(n, 5, 4, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})

		Convey("Every index should have been visited exactly once", func() {
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("index %d visited %d times", i, h)
				}
			}
			So(true, ShouldBeTrue)
		})
	})
}

// A panicking batch must not prevent the other batches from completing or
// the barrier from closing.
func TestRunRecoversPanickingBatch(t *testing.T) {
	Convey("Given one batch that panics", t, func() {
		const n = 40
		var completed int32

		done := make(chan struct{})
		go func() {
			defer close(done)
			Run(n, 2, 4, func(start, end int) {
				if start == 0 {
					panic("synthetic batch failure")
				}
				atomic.AddInt32(&completed, int32(end-start))
			})
		}()
		<-done

		Convey("Run should still return and the other batches should have completed", func() {
			So(completed, ShouldBeGreaterThan, 0)
			So(int(completed), ShouldBeLessThan, n)
		})
	})
}
