// Package site models the remotely-configured site list a deployment scrapes from.
package site

import (
	"encoding/json"
	"fmt"
)

// Kind is the closed set of adapter variants. A descriptor's numeric type
// code maps onto exactly one Kind at parse time; unknown codes are rejected
// there, so everything downstream can match exhaustively.
type Kind int

const (
	// KindRuleBased drives the generic selector engine over site HTML.
	KindRuleBased Kind = iota
	// KindJSONAPI talks to MacCMS-style videolist endpoints.
	KindJSONAPI
	// KindSpecial is a hand-written scraper registered by site key.
	KindSpecial
	// KindCloud browses an authenticated cloud drive.
	KindCloud
	// KindCustom runs a Lua-scripted adapter.
	KindCustom
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindRuleBased:
		return "rulebased"
	case KindJSONAPI:
		return "jsonapi"
	case KindSpecial:
		return "special"
	case KindCloud:
		return "cloud"
	case KindCustom:
		return "custom"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Type codes from the site-list convention.
const (
	typeCodeRuleBased = 0
	typeCodeJSONAPI   = 1
	typeCodeSpecial   = 2
	typeCodeCloud     = 4
	typeCodeCustom    = 3
)

// KindOf maps a descriptor type code to its Kind.
func KindOf(code int) (Kind, error) {
	switch code {
	case typeCodeRuleBased:
		return KindRuleBased, nil
	case typeCodeJSONAPI:
		return KindJSONAPI, nil
	case typeCodeSpecial:
		return KindSpecial, nil
	case typeCodeCloud:
		return KindCloud, nil
	case typeCodeCustom:
		return KindCustom, nil
	default:
		return 0, fmt.Errorf("unknown site type code %d", code)
	}
}

// Descriptor is one immutable site entry from the remote configuration.
type Descriptor struct {
	Key         string            `json:"key"`
	Name        string            `json:"name"`
	Kind        Kind              `json:"-"`
	API         string            `json:"api"`
	Headers     map[string]string `json:"header,omitempty"`
	Searchable  bool              `json:"-"`
	Filterable  bool              `json:"-"`
	QuickSearch bool              `json:"-"`
	// Ext carries the variant-specific blob: a RuleSet for rule-based
	// sites, a server address for cloud drives, a script URL for custom
	// adapters. Kept raw; the adapter decodes it.
	Ext json.RawMessage `json:"ext,omitempty"`
}

// Parse is one external play-URL parse endpoint.
type Parse struct {
	Name string          `json:"name"`
	Type int             `json:"type"`
	URL  string          `json:"url"`
	Ext  json.RawMessage `json:"ext,omitempty"`
}

// Config is the full parsed remote configuration.
type Config struct {
	Sites  []Descriptor
	Parses []Parse
	// Flags lists play-source names that require an external parse.
	Flags []string
	// Spider is the upstream jar/script reference; recorded, not executed.
	Spider string
}

// Site returns the descriptor for key.
func (c *Config) Site(key string) (Descriptor, bool) {
	for _, s := range c.Sites {
		if s.Key == key {
			return s, true
		}
	}
	return Descriptor{}, false
}

// Searchable returns the descriptors participating in federated search.
func (c *Config) Searchable() []Descriptor {
	var out []Descriptor
	for _, s := range c.Sites {
		if s.Searchable {
			out = append(out, s)
		}
	}
	return out
}
