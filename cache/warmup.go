// Package cache implements the tiered result cache.
package cache

import (
	"context"
	"time"

	"github.com/ovod-cli/ovod/log"
	"github.com/ovod-cli/ovod/parallel"
)

// WarmupOptions configure a warmup run.
type WarmupOptions struct {
	// Delay before the run starts; lets the application finish its own
	// startup I/O first.
	Delay time.Duration
	// Concurrency bounds in-flight provider calls.
	Concurrency int
	// Timeout applies per key.
	Timeout time.Duration
	// TTL for warmed entries. Zero uses the cache default.
	TTL time.Duration
}

// Warmup pre-populates keys by invoking provider for each one that is not
// already cached. It blocks for the startup delay and the run itself, so
// callers normally launch it on its own goroutine. Individual provider
// failures are logged and skipped.
func (c *Cache) Warmup(ctx context.Context, keys []string, opts WarmupOptions, provider func(context.Context, string) ([]byte, error)) {
	if len(keys) == 0 {
		return
	}

	if opts.Delay > 0 {
		select {
		case <-time.After(opts.Delay):
		case <-ctx.Done():
			return
		}
	}

	var cold []string
	for _, key := range keys {
		if _, ok := c.Get(key); !ok {
			cold = append(cold, key)
		}
	}
	if len(cold) == 0 {
		return
	}

	results := parallel.Map(ctx, cold, parallel.Options{
		Concurrency: opts.Concurrency,
		Timeout:     opts.Timeout,
	}, func(ctx context.Context, key string) (struct{}, error) {
		value, err := provider(ctx, key)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, c.Put(key, value, opts.TTL)
	})

	warmed := 0
	for i, r := range results {
		if r.Ok() {
			warmed++
			continue
		}
		log.Warnf("cache warmup: %s: %v", cold[i], r.Err)
	}
	log.Infof("cache warmup populated %d/%d keys", warmed, len(cold))
}
