// Package site models the remotely-configured site list a deployment scrapes from.
package site

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ovod-cli/ovod/filesystem"
	"github.com/ovod-cli/ovod/log"
	"github.com/ovod-cli/ovod/network"
	"github.com/ovod-cli/ovod/where"
)

// rawConfig mirrors the site-list JSON document. Booleans arrive as 0/1
// integers and the type code selects the adapter variant.
type rawConfig struct {
	Spider string    `json:"spider"`
	Sites  []rawSite `json:"sites"`
	Parses []Parse   `json:"parses"`
	Flags  []string  `json:"flags"`
}

type rawSite struct {
	Key         string            `json:"key"`
	Name        string            `json:"name"`
	Type        int               `json:"type"`
	API         string            `json:"api"`
	Searchable  int               `json:"searchable"`
	QuickSearch int               `json:"quickSearch"`
	Filterable  int               `json:"filterable"`
	Header      map[string]string `json:"header"`
	Ext         json.RawMessage   `json:"ext"`
}

// Fetch downloads the configuration document, parses it, and mirrors the raw
// bytes to disk so later runs can start without network access.
func Fetch(ctx context.Context, client *network.Client, url string) (*Config, error) {
	resp, err := client.Get(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch site config: %w", err)
	}

	cfg, err := parse(resp.Body)
	if err != nil {
		return nil, err
	}

	if err := filesystem.API().WriteFile(where.SiteConfig(), resp.Body, 0o644); err != nil {
		log.Warnf("mirror site config: %v", err)
	}
	return cfg, nil
}

// LoadCached parses the last successfully fetched configuration from disk.
func LoadCached() (*Config, error) {
	data, err := filesystem.API().ReadFile(where.SiteConfig())
	if err != nil {
		return nil, fmt.Errorf("read cached site config: %w", err)
	}
	return parse(data)
}

// Load fetches the remote configuration, falling back to the disk mirror
// when the fetch fails.
func Load(ctx context.Context, client *network.Client, url string) (*Config, error) {
	cfg, err := Fetch(ctx, client, url)
	if err == nil {
		return cfg, nil
	}

	log.Warnf("site config fetch failed, trying disk mirror: %v", err)
	cached, cerr := LoadCached()
	if cerr != nil {
		return nil, err
	}
	return cached, nil
}

// parse decodes and validates the document. Sites with unknown type codes or
// duplicate keys are dropped with a warning; one bad entry must not take the
// whole deployment down.
func parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse site config: %w", err)
	}
	if len(raw.Sites) == 0 {
		return nil, fmt.Errorf("site config contains no sites")
	}

	cfg := &Config{
		Parses: raw.Parses,
		Flags:  raw.Flags,
		Spider: raw.Spider,
	}

	seen := make(map[string]bool, len(raw.Sites))
	for _, rs := range raw.Sites {
		if rs.Key == "" || rs.API == "" {
			log.Warnf("dropping site %q: missing key or api", rs.Name)
			continue
		}
		if seen[rs.Key] {
			log.Warnf("dropping site %q: duplicate key %q", rs.Name, rs.Key)
			continue
		}

		kind, err := KindOf(rs.Type)
		if err != nil {
			log.Warnf("dropping site %q: %v", rs.Key, err)
			continue
		}

		seen[rs.Key] = true
		cfg.Sites = append(cfg.Sites, Descriptor{
			Key:         rs.Key,
			Name:        rs.Name,
			Kind:        kind,
			API:         rs.API,
			Headers:     rs.Header,
			Searchable:  rs.Searchable == 1,
			QuickSearch: rs.QuickSearch == 1,
			Filterable:  rs.Filterable == 1,
			Ext:         rs.Ext,
		})
	}

	if len(cfg.Sites) == 0 {
		return nil, fmt.Errorf("site config contains no usable sites")
	}
	return cfg, nil
}
