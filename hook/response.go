// Package hook implements the ordered request/response transformation pipeline.
package hook

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/ovod-cli/ovod/log"
)

// StatusGate replaces error-status bodies with a small normalized JSON
// document so downstream parsers see one error shape regardless of what the
// upstream site returned.
type StatusGate struct{}

func (StatusGate) Name() string  { return "status-gate" }
func (StatusGate) Priority() int { return 10 }

func (StatusGate) Matches(resp Response) bool {
	return resp.StatusCode >= 400
}

func (StatusGate) Process(resp Response) (Response, error) {
	var message string
	switch resp.StatusCode {
	case 403:
		message = "access denied by upstream site"
	case 404:
		message = "resource not found on upstream site"
	default:
		if resp.StatusCode >= 500 {
			message = "upstream site error"
		} else {
			message = "upstream request rejected"
		}
	}

	body, err := json.Marshal(map[string]any{
		"error":  message,
		"status": resp.StatusCode,
		"url":    resp.URL,
	})
	if err != nil {
		return resp, err
	}
	resp.Body = body
	resp.ContentType = "application/json"
	resp.Meta["status_gate"] = "replaced"
	return resp, nil
}

// ContentClean dispatches on content type: JSON bodies are sanitized
// recursively, HTML bodies have non-content markup stripped, and plain text
// is normalized. Other content types (images, media) pass through untouched.
type ContentClean struct{}

func (ContentClean) Name() string  { return "content-clean" }
func (ContentClean) Priority() int { return 20 }

func (ContentClean) Matches(resp Response) bool {
	ct := resp.ContentType
	return strings.Contains(ct, "json") ||
		strings.Contains(ct, "html") ||
		strings.Contains(ct, "text/plain")
}

func (ContentClean) Process(resp Response) (Response, error) {
	switch {
	case strings.Contains(resp.ContentType, "json"):
		cleaned, err := sanitizeJSON(resp.Body)
		if err != nil {
			return resp, fmt.Errorf("sanitize json: %w", err)
		}
		resp.Body = cleaned
	case strings.Contains(resp.ContentType, "html"):
		resp.Body = []byte(cleanHTML(string(resp.Body)))
	default:
		resp.Body = []byte(cleanText(string(resp.Body)))
	}
	return resp, nil
}

// sensitiveKeys are dropped from JSON objects at any nesting depth. Spider
// APIs occasionally echo request credentials back in their payloads.
var sensitiveKeys = []string{"password", "token", "secret", "session", "cookie", "auth"}

func sensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// sanitizeJSON re-encodes the body with sensitive object keys removed and
// string values cleaned. Invalid JSON is an error; the hook chain will keep
// the original body in that case.
func sanitizeJSON(body []byte) ([]byte, error) {
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, err
	}
	return json.Marshal(sanitizeValue(value))
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if sensitiveKey(k) {
				continue
			}
			out[k] = sanitizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = sanitizeValue(val)
		}
		return out
	case string:
		return cleanText(t)
	default:
		return v
	}
}

var (
	scriptRe  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleRe   = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	blankRe   = regexp.MustCompile(`\n{3,}`)
	spaceRe   = regexp.MustCompile(`[ \t]{2,}`)
)

// cleanHTML strips script, style and comment blocks and collapses runs of
// whitespace. The document structure the selector engine depends on is kept.
func cleanHTML(s string) string {
	s = scriptRe.ReplaceAllString(s, "")
	s = styleRe.ReplaceAllString(s, "")
	s = commentRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	s = blankRe.ReplaceAllString(s, "\n\n")
	return s
}

// cleanText unescapes HTML entities and drops control characters other than
// tab and newline.
func cleanText(s string) string {
	s = html.UnescapeString(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// RegexFilter removes user-configured patterns from textual response bodies.
// Patterns come from configuration; ones that fail to compile are skipped at
// construction time, not per request.
type RegexFilter struct {
	patterns []*regexp.Regexp
}

// NewRegexFilter compiles the configured expressions, returning the filter
// and the patterns it rejected.
func NewRegexFilter(exprs []string) (RegexFilter, []string) {
	var f RegexFilter
	var bad []string
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			bad = append(bad, expr)
			continue
		}
		f.patterns = append(f.patterns, re)
	}
	return f, bad
}

func (RegexFilter) Name() string  { return "regex-filter" }
func (RegexFilter) Priority() int { return 30 }

func (f RegexFilter) Matches(resp Response) bool {
	if len(f.patterns) == 0 {
		return false
	}
	ct := resp.ContentType
	return strings.Contains(ct, "text") || strings.Contains(ct, "html") || strings.Contains(ct, "json")
}

func (f RegexFilter) Process(resp Response) (Response, error) {
	body := resp.Body
	for _, re := range f.patterns {
		body = re.ReplaceAll(body, nil)
	}
	resp.Body = body
	return resp, nil
}

// Stamp records processing metadata on the envelope. It runs last so the
// stamp reflects the fully-transformed response.
type Stamp struct{}

func (Stamp) Name() string          { return "stamp" }
func (Stamp) Priority() int         { return 90 }
func (Stamp) Matches(Response) bool { return true }

func (Stamp) Process(resp Response) (Response, error) {
	resp.Meta["processed_by"] = "ovod"
	resp.Meta["processed_at"] = stamp()
	return resp, nil
}

// DefaultResponseHooks builds the standard response chain from configuration.
func DefaultResponseHooks(filterExprs []string) []ResponseHook {
	filter, bad := NewRegexFilter(filterExprs)
	for _, expr := range bad {
		log.Warnf("ignoring invalid content filter pattern %q", expr)
	}
	return []ResponseHook{
		StatusGate{},
		ContentClean{},
		filter,
		Stamp{},
	}
}
