// Package jsonapi implements the adapter for MacCMS-style JSON videolist endpoints.
//
// These sites expose a conventional API:
//
//	?ac=videolist            → paged item list, filterable by t (type) and wd (keyword)
//	?ac=videolist&ids=1,2    → full detail including play_from / play_url
//	?ac=list                 → category tree
//
// The payload already matches the normalized content model, so the adapter is
// mostly a transport with defensive decoding.
package jsonapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ovod-cli/ovod/log"
	"github.com/ovod-cli/ovod/network"
	"github.com/ovod-cli/ovod/site"
	"github.com/ovod-cli/ovod/source"
)

// Adapter implements source.Source for one MacCMS site.
type Adapter struct {
	desc    site.Descriptor
	client  *network.Client
	filters map[string][]source.Filter
}

// New builds the adapter. A filterable site may declare refinement axes in
// its ext blob as {"filter": {"<type_id>": [{key, name, value: [{n, v}]}]}};
// a malformed declaration is logged and the site stays usable without
// filters.
func New(desc site.Descriptor, client *network.Client) *Adapter {
	a := &Adapter{desc: desc, client: client}
	if desc.Filterable && len(desc.Ext) > 0 {
		var ext struct {
			Filter map[string][]source.Filter `json:"filter"`
		}
		if err := json.Unmarshal(desc.Ext, &ext); err != nil {
			log.Warnf("site %s: malformed filter ext: %v", desc.Key, err)
		}
		a.filters = ext.Filter
	}
	return a
}

func (a *Adapter) Key() string  { return a.desc.Key }
func (a *Adapter) Name() string { return a.desc.Name }

// payload is the MacCMS response shape. Numeric fields arrive as either
// numbers or strings depending on the site's PHP version; flexInt absorbs
// both.
type payload struct {
	Class []struct {
		TypeID   flexInt `json:"type_id"`
		TypeName string  `json:"type_name"`
	} `json:"class"`
	List      []rawItem `json:"list"`
	Page      flexInt   `json:"page"`
	PageCount flexInt   `json:"pagecount"`
	Limit     flexInt   `json:"limit"`
	Total     flexInt   `json:"total"`
}

type rawItem struct {
	ID       flexInt `json:"vod_id"`
	Name     string  `json:"vod_name"`
	Pic      string  `json:"vod_pic"`
	Remarks  string  `json:"vod_remarks"`
	Year     string  `json:"vod_year"`
	Area     string  `json:"vod_area"`
	Actor    string  `json:"vod_actor"`
	Director string  `json:"vod_director"`
	Content  string  `json:"vod_content"`
	PlayFrom string  `json:"vod_play_from"`
	PlayURL  string  `json:"vod_play_url"`
}

// flexInt decodes JSON numbers and numeric strings alike.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

func (a *Adapter) Home(ctx context.Context, filter bool) (source.Home, error) {
	p, err := a.fetch(ctx, url.Values{"ac": {"videolist"}})
	if err != nil {
		return source.Home{}, err
	}

	home := source.Home{}
	for _, c := range p.Class {
		cat := source.Category{
			ID:   strconv.Itoa(int(c.TypeID)),
			Name: c.TypeName,
		}
		if filter && a.desc.Filterable {
			cat.Filters = a.filters[cat.ID]
		}
		home.Categories = append(home.Categories, cat)
	}
	home.Items = items(p.List)
	return home, nil
}

func (a *Adapter) Category(ctx context.Context, tid string, page int, _ bool, extend map[string]string) (source.ItemPage, error) {
	values := url.Values{"ac": {"videolist"}, "t": {tid}, "pg": {strconv.Itoa(page)}}
	for k, v := range extend {
		if v != "" {
			values.Set(k, v)
		}
	}

	p, err := a.fetch(ctx, values)
	if err != nil {
		return source.ItemPage{}, err
	}
	return source.ItemPage{
		Items:     items(p.List),
		Page:      int(p.Page),
		PageCount: int(p.PageCount),
		Limit:     int(p.Limit),
		Total:     int(p.Total),
	}, nil
}

func (a *Adapter) Detail(ctx context.Context, ids []string) ([]source.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	p, err := a.fetch(ctx, url.Values{"ac": {"videolist"}, "ids": {strings.Join(ids, ",")}})
	if err != nil {
		return nil, err
	}
	if len(p.List) == 0 {
		return nil, source.ErrNotFound
	}
	return items(p.List), nil
}

func (a *Adapter) Search(ctx context.Context, keyword string, _ bool) ([]source.Item, error) {
	if !a.desc.Searchable {
		return nil, source.ErrSearchUnsupported
	}

	p, err := a.fetch(ctx, url.Values{"ac": {"videolist"}, "wd": {keyword}})
	if err != nil {
		return nil, err
	}
	return items(p.List), nil
}

func (a *Adapter) Player(ctx context.Context, flag, id string, vipFlags []string) (source.Playback, error) {
	pb := source.Playback{URL: id, Headers: a.desc.Headers}
	for _, vip := range vipFlags {
		if flag == vip {
			pb.Parse = true
			break
		}
	}
	if !pb.Parse && !strings.Contains(id, ".m3u8") && !strings.Contains(id, ".mp4") {
		pb.Sniff = true
	}
	return pb, nil
}

// fetch performs one API call and decodes its payload.
func (a *Adapter) fetch(ctx context.Context, values url.Values) (*payload, error) {
	api := a.desc.API
	sep := "?"
	if strings.Contains(api, "?") {
		sep = "&"
	}

	resp, err := a.client.Get(ctx, api+sep+values.Encode(), a.desc.Headers)
	if err != nil {
		return nil, err
	}

	var p payload
	if err := json.Unmarshal(resp.Body, &p); err != nil {
		log.Warnf("site %s: malformed payload: %v", a.desc.Key, err)
		return nil, fmt.Errorf("site %s: decode payload: %w", a.desc.Key, err)
	}
	return &p, nil
}

func items(raw []rawItem) []source.Item {
	out := make([]source.Item, 0, len(raw))
	for _, r := range raw {
		if r.Name == "" {
			continue
		}
		out = append(out, source.Item{
			ID:       strconv.Itoa(int(r.ID)),
			Name:     r.Name,
			Pic:      r.Pic,
			Remarks:  r.Remarks,
			Year:     r.Year,
			Area:     r.Area,
			Actor:    r.Actor,
			Director: r.Director,
			Content:  strings.TrimSpace(r.Content),
			Flags:    source.DecodeFlags(r.PlayFrom, r.PlayURL),
		})
	}
	return out
}
