// Package site models the remotely-configured site list a deployment scrapes from.
package site

import (
	"encoding/json"
	"fmt"

	"github.com/ovod-cli/ovod/source"
)

// RuleSet is the ext blob of a rule-based site: URL templates plus the
// selector rules the extraction engine applies to each page type. Every rule
// string may carry "||"-separated fallback candidates.
type RuleSet struct {
	// Base URLs. Templates substitute {tid}, {page}, {wd}, {id}.
	Host        string `json:"host"`
	HomeURL     string `json:"homeUrl"`
	CategoryURL string `json:"cateUrl"`
	DetailURL   string `json:"detailUrl"`
	SearchURL   string `json:"searchUrl"`

	// Home page.
	CategoryRule     string `json:"cateRule"`
	CategoryNameRule string `json:"cateNameRule"`
	CategoryIDRule   string `json:"cateIdRule"`

	// List pages (home recommendations, category pages, search results).
	ListRule   string `json:"listRule"`
	NameRule   string `json:"nameRule"`
	IDRule     string `json:"idRule"`
	PicRule    string `json:"picRule"`
	RemarkRule string `json:"remarkRule"`
	PageRule   string `json:"pageRule"`

	// Detail page.
	TitleRule    string `json:"titleRule"`
	YearRule     string `json:"yearRule"`
	AreaRule     string `json:"areaRule"`
	ActorRule    string `json:"actorRule"`
	DirectorRule string `json:"directorRule"`
	ContentRule  string `json:"contentRule"`

	// Play flags and episodes on the detail page.
	FlagRule        string `json:"flagRule"`
	FlagNameRule    string `json:"flagNameRule"`
	EpisodeRule     string `json:"episodeRule"`
	EpisodeNameRule string `json:"episodeNameRule"`
	EpisodeURLRule  string `json:"episodeUrlRule"`

	// Player page.
	PlayerRule string `json:"playerRule"`
	// SniffPlayer marks episode URLs as pages to sniff rather than direct
	// media.
	SniffPlayer bool `json:"sniff"`

	// Filters declares per-category refinement axes, keyed by category id.
	// Served when the caller asks for filter metadata on a filterable site.
	Filters map[string][]source.Filter `json:"filter"`
}

// DecodeRuleSet parses a descriptor's ext blob into a RuleSet.
func DecodeRuleSet(ext json.RawMessage) (RuleSet, error) {
	var rs RuleSet
	if len(ext) == 0 {
		return rs, fmt.Errorf("rule-based site has empty ext")
	}
	if err := json.Unmarshal(ext, &rs); err != nil {
		return rs, fmt.Errorf("decode rule set: %w", err)
	}
	if rs.Host == "" {
		return rs, fmt.Errorf("rule set missing host")
	}
	return rs, nil
}
