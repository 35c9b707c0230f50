package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ovod-cli/ovod/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func newTestCache(t *testing.T, opts Options) *Cache {
	t.Helper()
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	c, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCache(t *testing.T) {
	Convey("Given a cache entry with a TTL", t, func() {
		c := newTestCache(t, Options{DefaultTTL: time.Hour})
		So(c.Put("k", []byte("v"), 50*time.Millisecond), ShouldBeNil)

		Convey("When read before the TTL elapses", func() {
			v, ok := c.Get("k")
			So(ok, ShouldBeTrue)
			So(string(v), ShouldEqual, "v")
		})

		Convey("When read after the TTL elapses", func() {
			time.Sleep(70 * time.Millisecond)
			_, ok := c.Get("k")

			Convey("Then the read is a miss", func() {
				So(ok, ShouldBeFalse)
			})

			Convey("And the entry leaves the internal accounting", func() {
				stats := c.Stats()
				So(stats.MemoryEntries, ShouldEqual, 0)
				So(stats.DiskFiles, ShouldEqual, 0)
				So(stats.Memory.Expired, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a memory tier bounded to two entries", t, func() {
		c := newTestCache(t, Options{MemoryEntries: 2, DefaultTTL: time.Hour})
		So(c.Put("a", []byte("1"), 0), ShouldBeNil)
		So(c.Put("b", []byte("2"), 0), ShouldBeNil)

		Convey("When touching a and inserting c", func() {
			_, _ = c.Get("a")
			So(c.Put("c", []byte("3"), 0), ShouldBeNil)

			Convey("Then the least-recently-accessed entry is evicted from memory", func() {
				stats := c.Stats()
				So(stats.MemoryEntries, ShouldEqual, 2)
				So(stats.Memory.Evictions, ShouldEqual, 1)
			})

			Convey("And the evicted key still serves from disk without promotion", func() {
				before := c.Stats().MemoryEntries
				v, ok := c.Get("b")
				So(ok, ShouldBeTrue)
				So(string(v), ShouldEqual, "2")
				So(c.Stats().MemoryEntries, ShouldEqual, before)
				So(c.Stats().Disk.Hits, ShouldEqual, 1)
			})
		})
	})

	Convey("Given JSON round-tripping", t, func() {
		c := newTestCache(t, Options{DefaultTTL: time.Hour})
		type payload struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		}
		So(c.PutJSON("p", payload{Name: "x", Count: 3}, 0), ShouldBeNil)

		var out payload
		So(c.GetJSON("p", &out), ShouldBeTrue)
		So(out, ShouldResemble, payload{Name: "x", Count: 3})
	})

	Convey("Given Remove and Clear", t, func() {
		c := newTestCache(t, Options{DefaultTTL: time.Hour})
		So(c.Put("a", []byte("1"), 0), ShouldBeNil)
		So(c.Put("b", []byte("2"), 0), ShouldBeNil)

		Convey("When removing one key", func() {
			c.Remove("a")
			_, ok := c.Get("a")
			So(ok, ShouldBeFalse)
			_, ok = c.Get("b")
			So(ok, ShouldBeTrue)
		})

		Convey("When clearing", func() {
			So(c.Clear(), ShouldBeNil)
			stats := c.Stats()
			So(stats.MemoryEntries, ShouldEqual, 0)
			So(stats.DiskFiles, ShouldEqual, 0)
		})
	})

	Convey("Given a disk ceiling", t, func() {
		c := newTestCache(t, Options{DefaultTTL: time.Hour, DiskLimit: 1024})

		Convey("When writes exceed the ceiling", func() {
			big := make([]byte, 300)
			for i := 0; i < 8; i++ {
				So(c.Put(fmt.Sprintf("k%d", i), big, 0), ShouldBeNil)
			}

			Convey("Then usage drops to at most 80 percent of the ceiling", func() {
				So(c.Stats().DiskBytes, ShouldBeLessThanOrEqualTo, int64(1024*8/10))
			})
		})
	})
}

func TestFingerprint(t *testing.T) {
	Convey("Given operation parameters", t, func() {
		Convey("Then equivalent inputs produce equal keys", func() {
			So(Fingerprint("search", "Movie ", "site1"), ShouldEqual, Fingerprint("search", "movie", "site1"))
		})

		Convey("Then different operations produce different keys", func() {
			So(Fingerprint("search", "a"), ShouldNotEqual, Fingerprint("detail", "a"))
		})

		Convey("Then parameter boundaries matter", func() {
			So(Fingerprint("op", "ab", "c"), ShouldNotEqual, Fingerprint("op", "a", "bc"))
		})
	})
}

func TestOptimizer(t *testing.T) {
	Convey("Given tracked access records", t, func() {
		now := time.Now()

		Convey("Then a long-idle key is a candidate", func() {
			So(candidate(&accessRecord{count: 50, lastSeen: now.Add(-25 * time.Hour)}, now), ShouldBeTrue)
		})

		Convey("Then a rarely-used moderately-stale key is a candidate", func() {
			So(candidate(&accessRecord{count: 2, lastSeen: now.Add(-7 * time.Hour)}, now), ShouldBeTrue)
		})

		Convey("Then a single-use moderately-stale key is a candidate", func() {
			So(candidate(&accessRecord{count: 1, lastSeen: now.Add(-7 * time.Hour)}, now), ShouldBeTrue)
		})

		Convey("Then a hot key is kept", func() {
			So(candidate(&accessRecord{count: 50, lastSeen: now.Add(-time.Minute)}, now), ShouldBeFalse)
		})

		Convey("Then a fresh single-use key is kept", func() {
			So(candidate(&accessRecord{count: 1, lastSeen: now.Add(-time.Hour)}, now), ShouldBeFalse)
		})
	})

	Convey("Given an optimizer over a cache", t, func() {
		c := newTestCache(t, Options{DefaultTTL: time.Hour})
		o := NewOptimizer(c)
		So(c.Put("cold", []byte("1"), 0), ShouldBeNil)
		So(c.Put("hot", []byte("2"), 0), ShouldBeNil)

		o.Track("cold")
		o.Track("hot")
		o.mu.Lock()
		o.accesses["cold"].lastSeen = time.Now().Add(-48 * time.Hour)
		o.mu.Unlock()

		Convey("When running a cleanup pass", func() {
			removed := o.Run()

			Convey("Then only the cold key is removed", func() {
				So(removed, ShouldEqual, 1)
				_, ok := c.Get("cold")
				So(ok, ShouldBeFalse)
				_, ok = c.Get("hot")
				So(ok, ShouldBeTrue)
			})
		})
	})
}

func TestWarmup(t *testing.T) {
	Convey("Given a cache with one key already warm", t, func() {
		c := newTestCache(t, Options{DefaultTTL: time.Hour})
		So(c.Put("warm", []byte("old"), 0), ShouldBeNil)

		var calls atomic.Int32
		provider := func(_ context.Context, key string) ([]byte, error) {
			calls.Add(1)
			if key == "bad" {
				return nil, fmt.Errorf("site down")
			}
			return []byte("fresh:" + key), nil
		}

		Convey("When warming a key set with one failing key", func() {
			c.Warmup(context.Background(), []string{"warm", "cold", "bad"}, WarmupOptions{
				Concurrency: 2,
				Timeout:     time.Second,
			}, provider)

			Convey("Then only cold keys hit the provider", func() {
				So(calls.Load(), ShouldEqual, 2)
			})

			Convey("Then the cold key is populated", func() {
				v, ok := c.Get("cold")
				So(ok, ShouldBeTrue)
				So(string(v), ShouldEqual, "fresh:cold")
			})

			Convey("Then the failing key stays absent without failing the run", func() {
				_, ok := c.Get("bad")
				So(ok, ShouldBeFalse)
			})

			Convey("Then the pre-warm value is untouched", func() {
				v, _ := c.Get("warm")
				So(string(v), ShouldEqual, "old")
			})
		})
	})
}
