// Package hook implements the ordered request/response transformation pipeline
// that every HTTP call issued by a site adapter traverses.
//
// Hooks are pure transformations over value-typed envelopes: a chain is an
// explicit priority-sorted list folded left-to-right, each hook receiving the
// previous hook's output. Given the same input envelope and the same hook
// configuration, a chain always produces the same output envelope.
package hook

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/ovod-cli/ovod/log"
)

// Request is the mutable envelope for an outgoing call. Hooks return a
// modified copy; the envelope owns its header and meta maps.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	Meta    map[string]string
}

// Response is the mutable envelope for an incoming result.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Headers     map[string]string
	Body        []byte
	Meta        map[string]string
}

// Clone returns a deep copy so a hook can modify the envelope freely.
func (r Request) Clone() Request {
	r.Headers = cloneMap(r.Headers)
	r.Meta = cloneMap(r.Meta)
	r.Body = append([]byte(nil), r.Body...)
	return r
}

// Clone returns a deep copy so a hook can modify the envelope freely.
func (r Response) Clone() Response {
	r.Headers = cloneMap(r.Headers)
	r.Meta = cloneMap(r.Meta)
	r.Body = append([]byte(nil), r.Body...)
	return r
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// RequestHook transforms an outgoing request envelope.
type RequestHook interface {
	Name() string
	// Priority orders the chain; lower values run first.
	Priority() int
	Matches(req Request) bool
	Process(req Request) (Request, error)
}

// ResponseHook transforms an incoming response envelope.
type ResponseHook interface {
	Name() string
	Priority() int
	Matches(resp Response) bool
	Process(resp Response) (Response, error)
}

// Stats tracks chain activity with internally-synchronized counters; the
// chain is shared by every concurrent adapter invocation.
type Stats struct {
	processed atomic.Int64
	modified  atomic.Int64
	errors    atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Processed        int64   `json:"processed"`
	Modified         int64   `json:"modified"`
	Errors           int64   `json:"errors"`
	ModificationRate float64 `json:"modification_rate"`
	ErrorRate        float64 `json:"error_rate"`
}

// Snapshot returns current counter values with derived rates.
func (s *Stats) Snapshot() Snapshot {
	p := s.processed.Load()
	snap := Snapshot{
		Processed: p,
		Modified:  s.modified.Load(),
		Errors:    s.errors.Load(),
	}
	if p > 0 {
		snap.ModificationRate = float64(snap.Modified) / float64(p)
		snap.ErrorRate = float64(snap.Errors) / float64(p)
	}
	return snap
}

// RequestChain applies matching request hooks in priority order.
type RequestChain struct {
	hooks []RequestHook
	stats Stats
}

// NewRequestChain sorts hooks by ascending priority. Hooks with equal
// priority keep their registration order.
func NewRequestChain(hooks ...RequestHook) *RequestChain {
	sorted := append([]RequestHook(nil), hooks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &RequestChain{hooks: sorted}
}

// Apply folds the request through every matching hook. A failing hook is
// skipped (its input becomes the next hook's input) so one misbehaving hook
// cannot abort the call; the failure only surfaces in the stats.
func (c *RequestChain) Apply(req Request) Request {
	c.stats.processed.Add(1)
	current := req.Clone()
	changed := false

	for _, h := range c.hooks {
		if !h.Matches(current) {
			continue
		}
		next, err := h.Process(current.Clone())
		if err != nil {
			c.stats.errors.Add(1)
			log.Warnf("request hook %s failed: %v", h.Name(), err)
			continue
		}
		if !requestEqual(current, next) {
			changed = true
		}
		current = next
	}

	if changed {
		c.stats.modified.Add(1)
	}
	return current
}

// Stats exposes the chain counters.
func (c *RequestChain) Stats() Snapshot {
	return c.stats.Snapshot()
}

// ResponseChain applies matching response hooks in priority order.
type ResponseChain struct {
	hooks []ResponseHook
	stats Stats
}

// NewResponseChain sorts hooks by ascending priority.
func NewResponseChain(hooks ...ResponseHook) *ResponseChain {
	sorted := append([]ResponseHook(nil), hooks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &ResponseChain{hooks: sorted}
}

// Apply folds the response through every matching hook.
func (c *ResponseChain) Apply(resp Response) Response {
	c.stats.processed.Add(1)
	current := resp.Clone()
	changed := false

	for _, h := range c.hooks {
		if !h.Matches(current) {
			continue
		}
		next, err := h.Process(current.Clone())
		if err != nil {
			c.stats.errors.Add(1)
			log.Warnf("response hook %s failed: %v", h.Name(), err)
			continue
		}
		if !responseEqual(current, next) {
			changed = true
		}
		current = next
	}

	if changed {
		c.stats.modified.Add(1)
	}
	return current
}

// Stats exposes the chain counters.
func (c *ResponseChain) Stats() Snapshot {
	return c.stats.Snapshot()
}

func requestEqual(a, b Request) bool {
	return a.Method == b.Method &&
		a.URL == b.URL &&
		string(a.Body) == string(b.Body) &&
		mapsEqual(a.Headers, b.Headers) &&
		mapsEqual(a.Meta, b.Meta)
}

func responseEqual(a, b Response) bool {
	return a.StatusCode == b.StatusCode &&
		a.ContentType == b.ContentType &&
		string(a.Body) == string(b.Body) &&
		mapsEqual(a.Headers, b.Headers) &&
		mapsEqual(a.Meta, b.Meta)
}

func mapsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// stamp formats processing metadata timestamps consistently across hooks.
func stamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
