package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMap(t *testing.T) {
	Convey("Given a list where some operations fail", t, func() {
		items := []int{0, 1, 2, 3, 4, 5, 6}
		failing := map[int]bool{1: true, 4: true, 6: true}

		Convey("When mapping over it", func() {
			results := Map(context.Background(), items, Options{Concurrency: 3},
				func(_ context.Context, n int) (string, error) {
					if failing[n] {
						return "", fmt.Errorf("item %d broke", n)
					}
					return fmt.Sprintf("ok-%d", n), nil
				})

			Convey("Then every item produces exactly one result in order", func() {
				So(results, ShouldHaveLength, len(items))
				for i, r := range results {
					So(r.Index, ShouldEqual, i)
				}
			})

			Convey("Then failures and successes are counted exactly", func() {
				failed := 0
				for _, r := range results {
					if !r.Ok() {
						failed++
					}
				}
				So(failed, ShouldEqual, len(failing))
				So(results[2].Value, ShouldEqual, "ok-2")
				So(results[4].Err, ShouldNotBeNil)
			})
		})
	})

	Convey("Given a concurrency bound", t, func() {
		var inFlight, peak atomic.Int32

		Convey("When mapping with concurrency 2", func() {
			Map(context.Background(), make([]int, 10), Options{Concurrency: 2},
				func(_ context.Context, _ int) (struct{}, error) {
					cur := inFlight.Add(1)
					for {
						old := peak.Load()
						if cur <= old || peak.CompareAndSwap(old, cur) {
							break
						}
					}
					time.Sleep(10 * time.Millisecond)
					inFlight.Add(-1)
					return struct{}{}, nil
				})

			Convey("Then no more than 2 items run at once", func() {
				So(peak.Load(), ShouldBeLessThanOrEqualTo, 2)
			})
		})
	})

	Convey("Given a panicking operation", t, func() {
		results := Map(context.Background(), []int{0, 1}, Options{Concurrency: 2},
			func(_ context.Context, n int) (int, error) {
				if n == 0 {
					panic("boom")
				}
				return n, nil
			})

		Convey("Then the panic is captured as that item's failure", func() {
			So(results[0].Err, ShouldNotBeNil)
			So(results[0].Err.Error(), ShouldContainSubstring, "boom")
			So(results[1].Ok(), ShouldBeTrue)
		})
	})

	Convey("Given a per-item timeout", t, func() {
		results := Map(context.Background(), []int{0, 1}, Options{Concurrency: 2, Timeout: 30 * time.Millisecond},
			func(ctx context.Context, n int) (int, error) {
				if n == 0 {
					select {
					case <-time.After(time.Second):
					case <-ctx.Done():
						return 0, ctx.Err()
					}
				}
				return n, nil
			})

		Convey("Then the slow item fails without blocking the fast one", func() {
			So(errors.Is(results[0].Err, context.DeadlineExceeded), ShouldBeTrue)
			So(results[1].Ok(), ShouldBeTrue)
		})
	})

	Convey("Given an aggregate deadline shorter than the work", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		var release sync.WaitGroup
		release.Add(1)
		defer release.Done()

		start := time.Now()
		results := Map(ctx, []int{0, 1, 2}, Options{Concurrency: 3},
			func(_ context.Context, n int) (int, error) {
				if n > 0 {
					release.Wait()
				}
				return n, nil
			})

		Convey("Then Map returns at the deadline with every item resolved", func() {
			So(time.Since(start), ShouldBeLessThan, time.Second)
			So(results, ShouldHaveLength, 3)
			So(results[0].Ok(), ShouldBeTrue)
			So(results[2].Err, ShouldNotBeNil)
		})
	})

	Convey("Given an empty item list", t, func() {
		results := Map(context.Background(), nil, Options{}, func(_ context.Context, _ int) (int, error) {
			return 0, nil
		})
		So(results, ShouldBeEmpty)
	})
}
