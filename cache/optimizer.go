// Package cache implements the tiered result cache.
package cache

import (
	"sync"
	"time"

	"github.com/ovod-cli/ovod/log"
)

// Optimizer layers access-pattern analysis over a Cache: it tracks per-key
// access count and recency and periodically removes keys that no longer earn
// their space.
type Optimizer struct {
	cache *Cache

	mu       sync.Mutex
	accesses map[string]*accessRecord

	stop chan struct{}
	once sync.Once
}

type accessRecord struct {
	count    int64
	lastSeen time.Time
}

// Thresholds for the cleanup predicate.
const (
	// idleThreshold marks a key stale outright.
	idleThreshold = 24 * time.Hour
	// moderateStaleness is the lower bar combined with access-pattern
	// clauses.
	moderateStaleness = 6 * time.Hour
	// lowFrequency is the access count below which a moderately stale key
	// is a candidate.
	lowFrequency = 3
)

// NewOptimizer wraps cache. Call Track on every logical access and Start to
// launch the periodic cleanup.
func NewOptimizer(cache *Cache) *Optimizer {
	return &Optimizer{
		cache:    cache,
		accesses: make(map[string]*accessRecord),
		stop:     make(chan struct{}),
	}
}

// Track records one access of key.
func (o *Optimizer) Track(key string) {
	o.mu.Lock()
	rec, found := o.accesses[key]
	if !found {
		rec = &accessRecord{}
		o.accesses[key] = rec
	}
	rec.count++
	rec.lastSeen = time.Now()
	o.mu.Unlock()
}

// candidate reports whether a key's access pattern marks it for cleanup:
// idle beyond the long threshold, or rarely accessed and moderately stale,
// or touched exactly once and moderately stale.
func candidate(rec *accessRecord, now time.Time) bool {
	idle := now.Sub(rec.lastSeen)
	switch {
	case idle > idleThreshold:
		return true
	case rec.count < lowFrequency && idle > moderateStaleness:
		return true
	case rec.count == 1 && idle > moderateStaleness:
		return true
	default:
		return false
	}
}

// Run performs one cleanup pass and returns how many keys were removed.
func (o *Optimizer) Run() int {
	now := time.Now()

	o.mu.Lock()
	var victims []string
	for key, rec := range o.accesses {
		if candidate(rec, now) {
			victims = append(victims, key)
			delete(o.accesses, key)
		}
	}
	o.mu.Unlock()

	for _, key := range victims {
		o.cache.Remove(key)
	}
	if len(victims) > 0 {
		log.Infof("cache optimizer removed %d cold entries", len(victims))
	}
	return len(victims)
}

// Start launches periodic cleanup passes.
func (o *Optimizer) Start(interval time.Duration) {
	if interval <= 0 {
		return
	}
	o.once.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					o.Run()
				case <-o.stop:
					return
				}
			}
		}()
	})
}

// Close stops the periodic cleanup.
func (o *Optimizer) Close() {
	close(o.stop)
}
