// Package hook implements the ordered request/response transformation pipeline.
package hook

import (
	"hash/fnv"
	"net/url"
	"sort"
	"strings"
)

// User agents rotated for hosts without a more specific classification.
// Selection is keyed on the host so repeated calls to the same site present
// a stable identity and the chain stays deterministic.
var rotationPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

const mobileUserAgent = "Mozilla/5.0 (Linux; Android 13; SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
const apiUserAgent = "okhttp/3.15"

// URLRewrite replaces configured substrings in the request URL.
type URLRewrite struct {
	// Rules maps pattern -> replacement, applied in sorted pattern order so
	// the rewrite result does not depend on map iteration.
	Rules map[string]string
}

func (URLRewrite) Name() string     { return "url-rewrite" }
func (URLRewrite) Priority() int    { return 10 }
func (h URLRewrite) Matches(Request) bool {
	return len(h.Rules) > 0
}

func (h URLRewrite) Process(req Request) (Request, error) {
	for _, pattern := range sortedKeys(h.Rules) {
		req.URL = strings.ReplaceAll(req.URL, pattern, h.Rules[pattern])
	}
	return req, nil
}

// HTTPSUpgrade rewrites http:// to https:// for hosts known to serve TLS.
type HTTPSUpgrade struct {
	Hosts []string
}

func (HTTPSUpgrade) Name() string  { return "https-upgrade" }
func (HTTPSUpgrade) Priority() int { return 20 }

func (h HTTPSUpgrade) Matches(req Request) bool {
	return strings.HasPrefix(req.URL, "http://") && hostIn(req.URL, h.Hosts)
}

func (h HTTPSUpgrade) Process(req Request) (Request, error) {
	req.URL = "https://" + strings.TrimPrefix(req.URL, "http://")
	return req, nil
}

// TrackingStrip removes analytics query parameters before the request leaves
// the process.
type TrackingStrip struct{}

var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "spm", "scm", "from_source",
}

func (TrackingStrip) Name() string  { return "tracking-strip" }
func (TrackingStrip) Priority() int { return 30 }

func (TrackingStrip) Matches(req Request) bool {
	return strings.Contains(req.URL, "?")
}

func (TrackingStrip) Process(req Request) (Request, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return req, err
	}
	q := u.Query()
	removed := false
	for _, p := range trackingParams {
		if q.Has(p) {
			q.Del(p)
			removed = true
		}
	}
	if removed {
		u.RawQuery = q.Encode()
		req.URL = u.String()
	}
	return req, nil
}

// DefaultHeaders injects baseline headers without overriding anything the
// caller already set.
type DefaultHeaders struct{}

var defaultHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "zh-CN,zh;q=0.8,en-US;q=0.5,en;q=0.3",
}

func (DefaultHeaders) Name() string      { return "default-headers" }
func (DefaultHeaders) Priority() int     { return 40 }
func (DefaultHeaders) Matches(Request) bool { return true }

func (DefaultHeaders) Process(req Request) (Request, error) {
	for k, v := range defaultHeaders {
		if _, set := req.Headers[k]; !set {
			req.Headers[k] = v
		}
	}
	return req, nil
}

// UserAgent classifies the target and assigns a matching User-Agent unless
// the caller provided one.
type UserAgent struct{}

func (UserAgent) Name() string  { return "user-agent" }
func (UserAgent) Priority() int { return 50 }

func (UserAgent) Matches(req Request) bool {
	_, set := req.Headers["User-Agent"]
	return !set
}

func (UserAgent) Process(req Request) (Request, error) {
	host, path := hostAndPath(req.URL)
	switch {
	case strings.HasPrefix(host, "m.") || hasPathSegment(path, "m"):
		req.Headers["User-Agent"] = mobileUserAgent
	case strings.HasPrefix(host, "api.") || hasPathSegment(path, "api"):
		req.Headers["User-Agent"] = apiUserAgent
	default:
		req.Headers["User-Agent"] = rotationPool[hostHash(req.URL)%uint32(len(rotationPool))]
	}
	return req, nil
}

func hostAndPath(rawURL string) (host, path string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ""
	}
	return strings.ToLower(u.Hostname()), strings.ToLower(u.Path)
}

func hasPathSegment(path, segment string) bool {
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}

// Referer synthesizes a same-origin Referer for hosts on the allow-list.
type Referer struct {
	Hosts []string
}

func (Referer) Name() string  { return "referer" }
func (Referer) Priority() int { return 60 }

func (h Referer) Matches(req Request) bool {
	if _, set := req.Headers["Referer"]; set {
		return false
	}
	return hostIn(req.URL, h.Hosts)
}

func (h Referer) Process(req Request) (Request, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return req, err
	}
	req.Headers["Referer"] = u.Scheme + "://" + u.Host + "/"
	return req, nil
}

// StreamQuirks adds the Origin and Sec-Fetch headers certain streaming
// platforms refuse to serve without.
type StreamQuirks struct{}

var streamingHosts = []string{
	"bilivideo.com", "bilibili.com", "iqiyipic.com", "qq.com",
	"youku.com", "mgtv.com", "aliyundrive.net",
}

func (StreamQuirks) Name() string  { return "stream-quirks" }
func (StreamQuirks) Priority() int { return 70 }

func (StreamQuirks) Matches(req Request) bool {
	return hostIn(req.URL, streamingHosts)
}

func (StreamQuirks) Process(req Request) (Request, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return req, err
	}
	if _, set := req.Headers["Origin"]; !set {
		req.Headers["Origin"] = u.Scheme + "://" + u.Host
	}
	req.Headers["Sec-Fetch-Mode"] = "cors"
	req.Headers["Sec-Fetch-Site"] = "cross-site"
	return req, nil
}

// CacheControl assigns a client cache policy inferred from the URL's file
// extension; static assets tolerate long reuse, pages do not.
type CacheControl struct{}

func (CacheControl) Name() string      { return "cache-control" }
func (CacheControl) Priority() int     { return 80 }
func (CacheControl) Matches(Request) bool { return true }

func (CacheControl) Process(req Request) (Request, error) {
	if _, set := req.Headers["Cache-Control"]; set {
		return req, nil
	}
	lower := strings.ToLower(req.URL)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case hasAnySuffix(lower, ".jpg", ".jpeg", ".png", ".webp", ".gif"):
		req.Headers["Cache-Control"] = "max-age=86400"
	case hasAnySuffix(lower, ".js", ".css", ".woff2"):
		req.Headers["Cache-Control"] = "max-age=3600"
	default:
		req.Headers["Cache-Control"] = "no-cache"
	}
	return req, nil
}

// DefaultRequestHooks builds the standard request chain from configuration.
func DefaultRequestHooks(rewrites map[string]string, httpsHosts, refererHosts []string) []RequestHook {
	return []RequestHook{
		URLRewrite{Rules: rewrites},
		HTTPSUpgrade{Hosts: httpsHosts},
		TrackingStrip{},
		DefaultHeaders{},
		UserAgent{},
		Referer{Hosts: refererHosts},
		StreamQuirks{},
		CacheControl{},
	}
}

func hostIn(rawURL string, hosts []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	for _, h := range hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func hostHash(rawURL string) uint32 {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Hostname()
	}
	f := fnv.New32a()
	_, _ = f.Write([]byte(host))
	return f.Sum32()
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
