// Package cache implements the tiered result cache: a bounded in-memory map
// over a disk-backed store.
//
// Reads check memory first and fall through to disk. A disk hit is NOT
// promoted back into the memory tier; memory is populated on Put only. Every
// entry carries an absolute expiry stamp, and a read against an expired
// entry is a miss that removes the entry as a side effect.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ovod-cli/ovod/filesystem"
	"github.com/ovod-cli/ovod/log"
)

// Options bound the cache tiers.
type Options struct {
	// Dir is the disk tier directory.
	Dir string
	// DefaultTTL applies when Put receives a zero TTL.
	DefaultTTL time.Duration
	// MemoryEntries bounds the memory tier; least-recently-accessed entries
	// are evicted past it. Values below 1 mean 256.
	MemoryEntries int
	// DiskLimit is the disk tier ceiling in bytes; a cleanup pass past it
	// deletes oldest files until usage drops to 80%. Zero disables the
	// ceiling.
	DiskLimit int64
}

// TierStats counts activity for one tier.
type TierStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Expired   int64 `json:"expired"`
}

// Stats is a point-in-time view of both tiers.
type Stats struct {
	Memory        TierStats `json:"memory"`
	MemoryEntries int       `json:"memory_entries"`
	Disk          TierStats `json:"disk"`
	DiskBytes     int64     `json:"disk_bytes"`
	DiskFiles     int       `json:"disk_files"`
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// envelope is the disk tier's file format. Value holds arbitrary bytes, so
// it is base64-coded by the JSON layer rather than embedded raw.
type envelope struct {
	ExpiresAt time.Time `json:"expires_at"`
	Value     []byte    `json:"value"`
}

// Cache is safe for concurrent use.
type Cache struct {
	opts Options

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently accessed
	stats   Stats

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// New builds a Cache and ensures its disk directory exists.
func New(opts Options) (*Cache, error) {
	if opts.MemoryEntries < 1 {
		opts.MemoryEntries = 256
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = time.Hour
	}
	if err := filesystem.API().MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{
		opts:      opts,
		entries:   make(map[string]*list.Element),
		order:     list.New(),
		sweepStop: make(chan struct{}),
	}, nil
}

// Fingerprint derives a deterministic cache key from an operation name and
// its parameters.
func Fingerprint(op string, params ...string) string {
	h := sha256.New()
	h.Write([]byte(op))
	for _, p := range params {
		h.Write([]byte{0})
		h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the raw cached bytes for key, or ok=false on miss.
func (c *Cache) Get(key string) ([]byte, bool) {
	now := time.Now()

	c.mu.Lock()
	if el, found := c.entries[key]; found {
		entry := el.Value.(*memoryEntry)
		if now.After(entry.expiresAt) {
			c.removeElement(el)
			c.stats.Memory.Expired++
			c.stats.Memory.Misses++
			c.mu.Unlock()
			c.removeDisk(key, true)
			return nil, false
		}
		c.order.MoveToFront(el)
		c.stats.Memory.Hits++
		value := entry.value
		c.mu.Unlock()
		return value, true
	}
	c.stats.Memory.Misses++
	c.mu.Unlock()

	data, err := filesystem.API().ReadFile(c.path(key))
	if err != nil {
		c.countDisk(func(t *TierStats) { t.Misses++ })
		return nil, false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warnf("cache: corrupt entry %s: %v", key, err)
		c.removeDisk(key, false)
		c.countDisk(func(t *TierStats) { t.Misses++ })
		return nil, false
	}
	if now.After(env.ExpiresAt) {
		c.removeDisk(key, true)
		c.countDisk(func(t *TierStats) { t.Misses++ })
		return nil, false
	}

	c.countDisk(func(t *TierStats) { t.Hits++ })
	return env.Value, true
}

// GetJSON decodes the cached value for key into target.
func (c *Cache) GetJSON(key string, target any) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		log.Warnf("cache: decode %s: %v", key, err)
		return false
	}
	return true
}

// Put stores value in both tiers with the given TTL (zero means the default).
func (c *Cache) Put(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.opts.DefaultTTL
	}
	expiresAt := time.Now().Add(ttl)

	c.mu.Lock()
	if el, found := c.entries[key]; found {
		entry := el.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(el)
	} else {
		c.entries[key] = c.order.PushFront(&memoryEntry{key: key, value: value, expiresAt: expiresAt})
		for len(c.entries) > c.opts.MemoryEntries {
			c.removeElement(c.order.Back())
			c.stats.Memory.Evictions++
		}
	}
	c.mu.Unlock()

	data, err := json.Marshal(envelope{ExpiresAt: expiresAt, Value: value})
	if err != nil {
		return err
	}
	if err := filesystem.API().WriteFile(c.path(key), data, 0o644); err != nil {
		return err
	}

	c.enforceDiskLimit()
	return nil
}

// PutJSON encodes value and stores it.
func (c *Cache) PutJSON(key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Put(key, data, ttl)
}

// Remove deletes key from both tiers.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	if el, found := c.entries[key]; found {
		c.removeElement(el)
	}
	c.mu.Unlock()
	c.removeDisk(key, false)
}

// Clear drops every entry in both tiers.
func (c *Cache) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.mu.Unlock()

	names, err := c.diskKeys()
	if err != nil {
		return err
	}
	for _, name := range names {
		_ = filesystem.API().Remove(c.path(name))
	}
	return nil
}

// Stats returns a snapshot including current tier sizes.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	snap := c.stats
	snap.MemoryEntries = len(c.entries)
	c.mu.Unlock()

	if names, err := c.diskKeys(); err == nil {
		snap.DiskFiles = len(names)
		for _, name := range names {
			if info, err := filesystem.API().Stat(c.path(name)); err == nil {
				snap.DiskBytes += info.Size()
			}
		}
	}
	return snap
}

// StartSweep launches the background expiry sweep. Safe to call once.
func (c *Cache) StartSweep(interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.sweepOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					c.sweep()
				case <-c.sweepStop:
					return
				}
			}
		}()
	})
}

// Close stops the background sweep.
func (c *Cache) Close() {
	close(c.sweepStop)
}

// sweep removes expired entries from both tiers.
func (c *Cache) sweep() {
	now := time.Now()

	c.mu.Lock()
	for _, el := range c.entries {
		if now.After(el.Value.(*memoryEntry).expiresAt) {
			c.removeElement(el)
			c.stats.Memory.Expired++
		}
	}
	c.mu.Unlock()

	names, err := c.diskKeys()
	if err != nil {
		return
	}
	for _, name := range names {
		data, err := filesystem.API().ReadFile(c.path(name))
		if err != nil {
			continue
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil || now.After(env.ExpiresAt) {
			c.removeDisk(name, err == nil)
		}
	}
}

// enforceDiskLimit deletes oldest-by-modification-time files until usage
// drops to 80% of the ceiling.
func (c *Cache) enforceDiskLimit() {
	if c.opts.DiskLimit <= 0 {
		return
	}

	names, err := c.diskKeys()
	if err != nil {
		return
	}

	type fileInfo struct {
		name    string
		size    int64
		modTime time.Time
	}
	var files []fileInfo
	var total int64
	for _, name := range names {
		info, err := filesystem.API().Stat(c.path(name))
		if err != nil {
			continue
		}
		files = append(files, fileInfo{name: name, size: info.Size(), modTime: info.ModTime()})
		total += info.Size()
	}
	if total <= c.opts.DiskLimit {
		return
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	target := c.opts.DiskLimit * 8 / 10
	for _, f := range files {
		if total <= target {
			break
		}
		c.removeDisk(f.name, false)
		c.countDisk(func(t *TierStats) { t.Evictions++ })
		total -= f.size
	}
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.opts.Dir, key)
}

func (c *Cache) diskKeys() ([]string, error) {
	infos, err := filesystem.API().ReadDir(c.opts.Dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	return names, nil
}

// removeElement must run under c.mu.
func (c *Cache) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	entry := el.Value.(*memoryEntry)
	delete(c.entries, entry.key)
	c.order.Remove(el)
}

func (c *Cache) removeDisk(key string, expired bool) {
	if err := filesystem.API().Remove(c.path(key)); err == nil && expired {
		c.countDisk(func(t *TierStats) { t.Expired++ })
	}
}

func (c *Cache) countDisk(fn func(*TierStats)) {
	c.mu.Lock()
	fn(&c.stats.Disk)
	c.mu.Unlock()
}
