// Package source defines the domain models and the adapter contract for site content retrieval.
package source

import "strings"

// Flag is one named play-source grouping within an item's detail, holding an
// ordered episode list.
type Flag struct {
	Name     string    `json:"name"`
	Episodes []Episode `json:"episodes"`
}

// Episode is one playable entry of a Flag. URL stays opaque until Player
// resolves it.
type Episode struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Playback is the result of resolving an episode.
type Playback struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"header,omitempty"`
	// Parse signals the player must hand the URL to a parse endpoint.
	Parse bool `json:"parse"`
	// Sniff signals the URL is a page to scan for the real media URL.
	Sniff bool `json:"sniff"`
	// DRM parameters for protected streams.
	DRMKey    string `json:"drm_key,omitempty"`
	DRMScheme string `json:"drm_scheme,omitempty"`
	// Elapsed resume position in seconds, when the site reports one.
	Elapsed int `json:"elapsed,omitempty"`
}

// Play-source wire codec. Detail payloads in the MacCMS convention carry
// flags as "flag1$$$flag2" and per-flag episodes as "ep$url#ep$url".
const (
	flagSeparator    = "$$$"
	episodeSeparator = "#"
	nameURLSeparator = "$"
)

// EncodeFlags renders flags into the from/url string pair.
func EncodeFlags(flags []Flag) (playFrom, playURL string) {
	froms := make([]string, 0, len(flags))
	urls := make([]string, 0, len(flags))
	for _, f := range flags {
		froms = append(froms, f.Name)
		eps := make([]string, 0, len(f.Episodes))
		for _, e := range f.Episodes {
			eps = append(eps, e.Name+nameURLSeparator+e.URL)
		}
		urls = append(urls, strings.Join(eps, episodeSeparator))
	}
	return strings.Join(froms, flagSeparator), strings.Join(urls, flagSeparator)
}

// DecodeFlags parses the from/url string pair back into flags. Mismatched
// group counts are tolerated by truncating to the shorter side; a group with
// a missing "$" yields an episode whose URL doubles as its name.
func DecodeFlags(playFrom, playURL string) []Flag {
	if playFrom == "" && playURL == "" {
		return nil
	}

	names := strings.Split(playFrom, flagSeparator)
	groups := strings.Split(playURL, flagSeparator)
	n := len(names)
	if len(groups) < n {
		n = len(groups)
	}

	flags := make([]Flag, 0, n)
	for i := 0; i < n; i++ {
		flag := Flag{Name: strings.TrimSpace(names[i])}
		for _, raw := range strings.Split(groups[i], episodeSeparator) {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			name, url, found := strings.Cut(raw, nameURLSeparator)
			if !found {
				name, url = raw, raw
			}
			flag.Episodes = append(flag.Episodes, Episode{Name: name, URL: url})
		}
		flags = append(flags, flag)
	}
	return flags
}

// FindEpisode locates the episode addressed by flag name and opaque id
// within an item's flags. The id is matched against episode URLs first, then
// names, mirroring how players echo back whichever token they were given.
func FindEpisode(flags []Flag, flagName, id string) (Episode, bool) {
	for _, f := range flags {
		if f.Name != flagName {
			continue
		}
		for _, e := range f.Episodes {
			if e.URL == id {
				return e, true
			}
		}
		for _, e := range f.Episodes {
			if e.Name == id {
				return e, true
			}
		}
	}
	return Episode{}, false
}
