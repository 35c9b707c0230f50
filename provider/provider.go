// Package provider constructs site adapters and coordinates federated operations across them.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	levenshtein "github.com/ka-weihe/fast-levenshtein"

	"github.com/ovod-cli/ovod/cache"
	"github.com/ovod-cli/ovod/internal/scraper"
	"github.com/ovod-cli/ovod/log"
	"github.com/ovod-cli/ovod/network"
	"github.com/ovod-cli/ovod/parallel"
	"github.com/ovod-cli/ovod/provider/cloud"
	"github.com/ovod-cli/ovod/provider/custom"
	"github.com/ovod-cli/ovod/provider/jsonapi"
	"github.com/ovod-cli/ovod/provider/rulebased"
	"github.com/ovod-cli/ovod/provider/special"
	"github.com/ovod-cli/ovod/site"
	"github.com/ovod-cli/ovod/source"
	"github.com/ovod-cli/ovod/where"
)

// Options tune federated operations.
type Options struct {
	// SearchConcurrency bounds simultaneous per-site searches.
	SearchConcurrency int
	// SiteTimeout applies to each site during fan-out.
	SiteTimeout time.Duration
	// CacheTTL applies to cached operation results.
	CacheTTL time.Duration
}

// SiteResult groups one site's federated-search outcome.
type SiteResult struct {
	SiteKey  string        `json:"site_key"`
	SiteName string        `json:"site_name"`
	Items    []source.Item `json:"items"`
	Err      error         `json:"-"`
}

// Manager owns adapter construction and dispatch. Adapters are built lazily
// per site key and reused; construction matches the descriptor Kind
// exhaustively, so an unknown variant cannot reach runtime dispatch.
type Manager struct {
	config *site.Config
	client *network.Client
	store  *cache.Cache
	opt    *cache.Optimizer
	opts   Options

	mu        sync.Mutex
	instances map[string]source.Source
}

// NewManager builds a Manager. opt may be nil to disable access tracking.
func NewManager(config *site.Config, client *network.Client, store *cache.Cache, opt *cache.Optimizer, opts Options) *Manager {
	if opts.SearchConcurrency < 1 {
		opts.SearchConcurrency = 8
	}
	if opts.SiteTimeout <= 0 {
		opts.SiteTimeout = 15 * time.Second
	}
	return &Manager{
		config:    config,
		client:    client,
		store:     store,
		opt:       opt,
		opts:      opts,
		instances: make(map[string]source.Source),
	}
}

// Config exposes the active site configuration.
func (m *Manager) Config() *site.Config {
	return m.config
}

// Source returns the adapter for a site key, constructing it on first use.
func (m *Manager) Source(key string) (source.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, found := m.instances[key]; found {
		return s, nil
	}

	desc, found := m.config.Site(key)
	if !found {
		return nil, fmt.Errorf("unknown site %q", key)
	}

	s, err := m.build(desc)
	if err != nil {
		return nil, fmt.Errorf("site %q: %w", key, err)
	}
	m.instances[key] = s
	return s, nil
}

// build matches the descriptor Kind exhaustively.
func (m *Manager) build(desc site.Descriptor) (source.Source, error) {
	switch desc.Kind {
	case site.KindRuleBased:
		return rulebased.New(desc, m.client)
	case site.KindJSONAPI:
		return jsonapi.New(desc, m.client), nil
	case site.KindSpecial:
		return special.New(desc, m.client)
	case site.KindCloud:
		return cloud.New(desc, m.client)
	case site.KindCustom:
		path, err := m.scriptPath(desc)
		if err != nil {
			return nil, err
		}
		return custom.LoadSource(desc.Key, desc.Name, path, m.client)
	default:
		return nil, fmt.Errorf("unhandled site kind %s", desc.Kind)
	}
}

// scriptPath resolves a custom site's Lua script, refreshing the local copy
// from its remote URL when one is configured.
func (m *Manager) scriptPath(desc site.Descriptor) (string, error) {
	var ext struct {
		Script string `json:"script"`
		URL    string `json:"url"`
	}
	if len(desc.Ext) > 0 {
		if err := json.Unmarshal(desc.Ext, &ext); err != nil {
			return "", fmt.Errorf("decode script ext: %w", err)
		}
	}
	if ext.Script == "" {
		ext.Script = desc.Key + ".lua"
	}

	path := filepath.Join(where.Sources(), ext.Script)
	if ext.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), m.opts.SiteTimeout)
		defer cancel()
		if _, err := scraper.Update(ctx, m.client, ext.URL, path); err != nil {
			log.Warnf("script refresh for %s failed, using local copy: %v", desc.Key, err)
		}
	}
	return path, nil
}

// Home dispatches to one site with result caching.
func (m *Manager) Home(ctx context.Context, key string, filter bool) (source.Home, error) {
	var home source.Home
	fp := cache.Fingerprint("home", key, fmt.Sprint(filter))
	if m.cached(fp, &home) {
		return home, nil
	}

	s, err := m.Source(key)
	if err != nil {
		return source.Home{}, err
	}
	home, err = s.Home(ctx, filter)
	if err != nil {
		return source.Home{}, err
	}
	m.remember(fp, home)
	return home, nil
}

// Category dispatches to one site with result caching.
func (m *Manager) Category(ctx context.Context, key, tid string, page int, filter bool, extend map[string]string) (source.ItemPage, error) {
	var result source.ItemPage
	fp := cache.Fingerprint("category", key, tid, fmt.Sprint(page), encodeExtend(extend))
	if m.cached(fp, &result) {
		return result, nil
	}

	s, err := m.Source(key)
	if err != nil {
		return source.ItemPage{}, err
	}
	result, err = s.Category(ctx, tid, page, filter, extend)
	if err != nil {
		return source.ItemPage{}, err
	}
	m.remember(fp, result)
	return result, nil
}

// Detail dispatches to one site with result caching.
func (m *Manager) Detail(ctx context.Context, key string, ids []string) ([]source.Item, error) {
	var items []source.Item
	fp := cache.Fingerprint("detail", key, strings.Join(ids, ","))
	if m.cached(fp, &items) {
		return items, nil
	}

	s, err := m.Source(key)
	if err != nil {
		return nil, err
	}
	items, err = s.Detail(ctx, ids)
	if err != nil {
		return nil, err
	}
	m.remember(fp, items)
	return items, nil
}

// Search dispatches to one site. Capability errors surface immediately.
func (m *Manager) Search(ctx context.Context, key, keyword string, quick bool) ([]source.Item, error) {
	s, err := m.Source(key)
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, keyword, quick)
}

// SearchAll fans a query out to every searchable site. One site's failure or
// timeout never fails the aggregate: its SiteResult carries the error and
// the responsive sites' results are returned, ordered by relevance to the
// query. ctx bounds the whole fan-out.
func (m *Manager) SearchAll(ctx context.Context, keyword string) []SiteResult {
	sites := m.config.Searchable()
	if len(sites) == 0 {
		return nil
	}

	results := parallel.Map(ctx, sites, parallel.Options{
		Concurrency: m.opts.SearchConcurrency,
		Timeout:     m.opts.SiteTimeout,
	}, func(ctx context.Context, desc site.Descriptor) ([]source.Item, error) {
		s, err := m.Source(desc.Key)
		if err != nil {
			return nil, err
		}
		items, err := s.Search(ctx, keyword, false)
		if err != nil {
			return nil, err
		}
		for i := range items {
			items[i].SiteKey = desc.Key
		}
		return items, nil
	})

	out := make([]SiteResult, 0, len(sites))
	for i, r := range results {
		sr := SiteResult{
			SiteKey:  sites[i].Key,
			SiteName: sites[i].Name,
			Items:    r.Value,
			Err:      r.Err,
		}
		if r.Err != nil {
			log.Warnf("search %q on %s: %v", keyword, sites[i].Key, r.Err)
		}
		rankItems(sr.Items, keyword)
		out = append(out, sr)
	}

	// Sites with matches first, best match first.
	sort.SliceStable(out, func(i, j int) bool {
		return bestDistance(out[i].Items, keyword) < bestDistance(out[j].Items, keyword)
	})
	return out
}

// rankItems orders one site's matches by edit distance to the query.
func rankItems(items []source.Item, keyword string) {
	kw := strings.ToLower(keyword)
	sort.SliceStable(items, func(i, j int) bool {
		return levenshtein.Distance(strings.ToLower(items[i].Name), kw) <
			levenshtein.Distance(strings.ToLower(items[j].Name), kw)
	})
}

func bestDistance(items []source.Item, keyword string) int {
	if len(items) == 0 {
		return int(^uint(0) >> 1)
	}
	return levenshtein.Distance(strings.ToLower(items[0].Name), strings.ToLower(keyword))
}

func (m *Manager) cached(fp string, target any) bool {
	if m.store == nil {
		return false
	}
	if m.opt != nil {
		m.opt.Track(fp)
	}
	return m.store.GetJSON(fp, target)
}

func (m *Manager) remember(fp string, value any) {
	if m.store == nil {
		return
	}
	if err := m.store.PutJSON(fp, value, m.opts.CacheTTL); err != nil {
		log.Warnf("cache write %s: %v", fp, err)
	}
}

func encodeExtend(extend map[string]string) string {
	if len(extend) == 0 {
		return ""
	}
	keys := make([]string, 0, len(extend))
	for k := range extend {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(extend[k])
		b.WriteByte('&')
	}
	return b.String()
}
