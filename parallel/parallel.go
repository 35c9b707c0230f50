// Package parallel implements a bounded-parallelism task runner for batched network operations.
//
// It is the single fan-out primitive in the application: federated search and
// cache warmup both schedule their per-site work through Map. Each item's
// failure or timeout is captured in its own Result and never cancels sibling
// tasks.
package parallel

import (
	"context"
	"fmt"
	"time"
)

// Options bound a Map run.
type Options struct {
	// Concurrency is the maximum number of items in flight. Values below 1 mean 1.
	Concurrency int
	// Timeout applies per item. Zero means no per-item timeout.
	Timeout time.Duration
}

// Result carries the outcome of one item's operation.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Ok reports whether the item's operation succeeded.
func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// Map executes op over every item with at most opts.Concurrency in flight.
//
// The returned slice always has len(items) entries, ordered by item index.
// An item whose op returns an error, panics, or exceeds opts.Timeout yields a
// failed Result; the remaining items still run to completion. Map returns
// once every item has produced a result or ctx is done, whichever comes
// first; items still running at ctx expiry are abandoned and reported as
// failed with ctx's error.
func Map[I, T any](ctx context.Context, items []I, opts Options, op func(context.Context, I) (T, error)) []Result[T] {
	results := make([]Result[T], len(items))
	for i := range results {
		results[i].Index = i
	}
	if len(items) == 0 {
		return results
	}

	workers := opts.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	sem := make(chan struct{}, workers)
	done := make(chan Result[T], len(items))

	for i, item := range items {
		go func(idx int, it I) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				done <- Result[T]{Index: idx, Err: ctx.Err()}
				return
			}
			done <- runOne(ctx, idx, it, opts.Timeout, op)
		}(i, item)
	}

	completed := make([]bool, len(items))
	collected := 0
	for collected < len(items) {
		select {
		case r := <-done:
			results[r.Index] = r
			completed[r.Index] = true
			collected++
		case <-ctx.Done():
			// Collect whatever already finished, then mark the rest failed.
			// Late results from abandoned tasks are discarded with the channel.
			for {
				select {
				case r := <-done:
					results[r.Index] = r
					completed[r.Index] = true
					continue
				default:
				}
				break
			}
			for i := range results {
				if !completed[i] {
					results[i] = Result[T]{Index: i, Err: ctx.Err()}
				}
			}
			return results
		}
	}
	return results
}

// runOne executes a single item with panic isolation and per-item timeout.
func runOne[I, T any](ctx context.Context, idx int, item I, timeout time.Duration, op func(context.Context, I) (T, error)) Result[T] {
	res := Result[T]{Index: idx}

	itemCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		itemCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		value T
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("task panicked: %v", r)}
			}
		}()
		v, err := op(itemCtx, item)
		ch <- outcome{value: v, err: err}
	}()

	select {
	case out := <-ch:
		res.Value = out.value
		res.Err = out.err
	case <-itemCtx.Done():
		res.Err = itemCtx.Err()
	}
	return res
}
