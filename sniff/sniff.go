// Package sniff recognizes real media URLs inside pages and free text.
//
// "Sniffing" resolves a play URL by scanning a non-direct page response for
// an embedded media URL, as opposed to "parsing" which hands an opaque token
// to a dedicated parse endpoint.
package sniff

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/ovod-cli/ovod/network"
)

// mediaURL matches direct media links: long URLs ending in a known media
// extension, tos video segments, or rtmp streams.
var mediaURL = regexp.MustCompile(`https?://[^\s"'<>\\]{12,}\.(?:m3u8|mp4|mkv|flv|mp3|m4a|aac|mpd)(?:\?[^\s"'<>\\]*)?|https?://[^\s"'<>\\]*?video/tos[^\s"'<>\\]*|rtmp:[^\s"'<>\\]+`)

// pushURL matches anything a user might paste to play directly.
var pushURL = regexp.MustCompile(`(?:https?|thunder|magnet|ed2k|video):\S+`)

// adFragments disqualify otherwise media-looking URLs.
var adFragments = []string{
	"/ad/", "/ads/", "googleads", "doubleclick", "/log?", "/stat?",
	"tracking", "analytics",
}

// IsMediaURL reports whether url points directly at playable media.
// Wrapped URLs (url=http..., v=http...) and plain pages are rejected.
func IsMediaURL(raw string) bool {
	if raw == "" {
		return false
	}
	lower := strings.ToLower(raw)
	for _, frag := range adFragments {
		if strings.Contains(lower, frag) {
			return false
		}
	}
	if strings.Contains(lower, "url=http") || strings.Contains(lower, "v=http") || strings.Contains(lower, ".html") {
		return false
	}
	return mediaURL.MatchString(raw)
}

// ExtractURL pulls the first playable-looking URL out of free text, for push
// flows where users paste share messages. Text that is already structured
// (JSON or an encoded episode group) passes through untouched.
func ExtractURL(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") || strings.Contains(trimmed, "$") {
		return trimmed
	}
	if m := pushURL.FindString(trimmed); m != "" {
		return m
	}
	return trimmed
}

// Scan extracts every candidate media URL from a page body, best first.
// Candidates failing IsMediaURL are dropped; duplicates collapse to their
// first occurrence.
func Scan(body []byte) []string {
	matches := mediaURL.FindAllString(string(body), -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		m = strings.TrimRight(m, `\'"`)
		if seen[m] || !IsMediaURL(m) {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// Page fetches pageURL through client and returns the first media URL found
// in its body, or ok=false when the page embeds none.
func Page(ctx context.Context, client *network.Client, pageURL string, headers map[string]string) (string, bool) {
	resp, err := client.Get(ctx, pageURL, headers)
	if err != nil {
		return "", false
	}

	candidates := Scan(resp.Body)
	if len(candidates) == 0 {
		return "", false
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return candidates[0], true
	}
	// Prefer a same-host candidate; CDNs spread across hosts, but an
	// on-host URL is least likely to be an injected third-party player.
	for _, c := range candidates {
		if u, err := url.Parse(c); err == nil && u.Host == base.Host {
			return c, true
		}
	}
	return candidates[0], true
}
