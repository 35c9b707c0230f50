// Package rulebased implements the generic rule-driven HTML adapter.
//
// Behavior is entirely declarative: a site.RuleSet supplies URL templates and
// selector rules, and the adapter walks pages with the rule engine. A rule
// that matches nothing degrades to an empty field, never an error, so a
// partially-broken site still returns whatever could be extracted.
package rulebased

import (
	"bytes"
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ovod-cli/ovod/log"
	"github.com/ovod-cli/ovod/network"
	"github.com/ovod-cli/ovod/rule"
	"github.com/ovod-cli/ovod/site"
	"github.com/ovod-cli/ovod/source"
)

// Adapter implements source.Source over a RuleSet.
type Adapter struct {
	desc   site.Descriptor
	rules  site.RuleSet
	client *network.Client
}

// New decodes the descriptor's rule set and fills unset rules with the Mac
// defaults.
func New(desc site.Descriptor, client *network.Client) (*Adapter, error) {
	rules, err := site.DecodeRuleSet(desc.Ext)
	if err != nil {
		return nil, err
	}
	applyDefaults(&rules)
	return &Adapter{desc: desc, rules: rules, client: client}, nil
}

func (a *Adapter) Key() string  { return a.desc.Key }
func (a *Adapter) Name() string { return a.desc.Name }

func (a *Adapter) Home(ctx context.Context, filter bool) (source.Home, error) {
	pageURL := a.expand(a.rules.HomeURL, nil)
	doc, err := a.document(ctx, pageURL)
	if err != nil {
		return source.Home{}, err
	}

	home := source.Home{}
	_ = rule.EachContainer(doc, a.rules.CategoryRule, func(_ int, s *goquery.Selection) {
		name, _ := rule.Extract(s, a.rules.CategoryNameRule)
		id, _ := rule.Extract(s, a.rules.CategoryIDRule)
		if name == "" {
			return
		}
		if id == "" {
			id = name
		}
		cat := source.Category{ID: id, Name: name}
		if filter && a.desc.Filterable {
			cat.Filters = a.rules.Filters[id]
		}
		home.Categories = append(home.Categories, cat)
	})
	home.Items = a.items(doc, pageURL)
	return home, nil
}

func (a *Adapter) Category(ctx context.Context, tid string, page int, _ bool, _ map[string]string) (source.ItemPage, error) {
	pageURL := a.expand(a.rules.CategoryURL, map[string]string{
		"tid":  tid,
		"page": strconv.Itoa(page),
	})
	doc, err := a.document(ctx, pageURL)
	if err != nil {
		return source.ItemPage{}, err
	}

	result := source.ItemPage{Items: a.items(doc, pageURL), Page: page}
	if raw, _ := rule.Extract(doc.Selection, a.rules.PageRule); raw != "" {
		if n, err := strconv.Atoi(digits(raw)); err == nil {
			result.PageCount = n
		}
	}
	return result, nil
}

func (a *Adapter) Detail(ctx context.Context, ids []string) ([]source.Item, error) {
	var out []source.Item
	for _, id := range ids {
		item, err := a.detailOne(ctx, id)
		if err != nil {
			log.Warnf("site %s: detail %s: %v", a.desc.Key, id, err)
			continue
		}
		out = append(out, item)
	}
	if len(out) == 0 && len(ids) > 0 {
		return nil, source.ErrNotFound
	}
	return out, nil
}

func (a *Adapter) detailOne(ctx context.Context, id string) (source.Item, error) {
	pageURL := a.expand(a.rules.DetailURL, map[string]string{"id": id})
	doc, err := a.document(ctx, pageURL)
	if err != nil {
		return source.Item{}, err
	}

	item := source.Item{ID: id}
	item.Name, _ = rule.Extract(doc.Selection, a.rules.TitleRule)
	item.Year, _ = rule.Extract(doc.Selection, a.rules.YearRule)
	item.Area, _ = rule.Extract(doc.Selection, a.rules.AreaRule)
	item.Actor, _ = rule.Extract(doc.Selection, a.rules.ActorRule)
	item.Director, _ = rule.Extract(doc.Selection, a.rules.DirectorRule)
	item.Content, _ = rule.Extract(doc.Selection, a.rules.ContentRule)
	if pic, _ := rule.Extract(doc.Selection, a.rules.PicRule); pic != "" {
		item.Pic = rule.AbsURL(pageURL, pic)
	}
	item.Flags = a.flags(doc, pageURL)
	return item, nil
}

func (a *Adapter) Search(ctx context.Context, keyword string, _ bool) ([]source.Item, error) {
	if !a.desc.Searchable {
		return nil, source.ErrSearchUnsupported
	}

	pageURL := a.expand(a.rules.SearchURL, map[string]string{"wd": url.QueryEscape(keyword)})
	doc, err := a.document(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return a.items(doc, pageURL), nil
}

func (a *Adapter) Player(ctx context.Context, flag, id string, vipFlags []string) (source.Playback, error) {
	pb := source.Playback{Headers: a.desc.Headers}
	for _, vip := range vipFlags {
		if flag == vip {
			pb.Parse = true
			pb.URL = id
			return pb, nil
		}
	}

	pageURL := rule.AbsURL(a.rules.Host, id)
	if a.rules.PlayerRule != "" {
		doc, err := a.document(ctx, pageURL)
		if err != nil {
			return source.Playback{}, err
		}
		if v, _ := rule.Extract(doc.Selection, a.rules.PlayerRule); v != "" {
			pb.URL = rule.AbsURL(pageURL, v)
			return pb, nil
		}
	}

	pb.URL = pageURL
	pb.Sniff = a.rules.SniffPlayer || !strings.Contains(pageURL, ".m3u8")
	return pb, nil
}

// items extracts the list cells of any listing page.
func (a *Adapter) items(doc *goquery.Document, pageURL string) []source.Item {
	var out []source.Item
	_ = rule.EachContainer(doc, a.rules.ListRule, func(_ int, s *goquery.Selection) {
		name, _ := rule.Extract(s, a.rules.NameRule)
		id, _ := rule.Extract(s, a.rules.IDRule)
		if name == "" || id == "" {
			return
		}
		pic, _ := rule.Extract(s, a.rules.PicRule)
		remark, _ := rule.Extract(s, a.rules.RemarkRule)
		out = append(out, source.Item{
			ID:      id,
			Name:    name,
			Pic:     rule.AbsURL(pageURL, pic),
			Remarks: remark,
		})
	})
	return out
}

// flags extracts the play-source groups of a detail page. Flag names and
// episode groups are paired by index; a page with fewer name cells than
// groups falls back to numbered names.
func (a *Adapter) flags(doc *goquery.Document, pageURL string) []source.Flag {
	names, _ := rule.ExtractAll(doc.Selection, a.rules.FlagNameRule)

	var flags []source.Flag
	_ = rule.EachContainer(doc, a.rules.FlagRule, func(i int, s *goquery.Selection) {
		flag := source.Flag{}
		if i < len(names) {
			flag.Name = names[i]
		} else {
			flag.Name = "线路" + strconv.Itoa(i+1)
		}

		_ = rule.EachContainer(asDocument(s), a.rules.EpisodeRule, func(_ int, ep *goquery.Selection) {
			name, _ := rule.Extract(ep, a.rules.EpisodeNameRule)
			href, _ := rule.Extract(ep, a.rules.EpisodeURLRule)
			if href == "" {
				return
			}
			if name == "" {
				name = href
			}
			flag.Episodes = append(flag.Episodes, source.Episode{
				Name: name,
				URL:  rule.AbsURL(pageURL, href),
			})
		})

		if len(flag.Episodes) > 0 {
			flags = append(flags, flag)
		}
	})
	return flags
}

// document fetches pageURL and parses it.
func (a *Adapter) document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := a.client.Get(ctx, pageURL, a.desc.Headers)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
}

// expand substitutes {placeholders} into a URL template and anchors it at
// the site host.
func (a *Adapter) expand(template string, vars map[string]string) string {
	s := template
	for k, v := range vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return rule.AbsURL(a.rules.Host, s)
}

// asDocument rescopes a selection so EachContainer can run inside it.
func asDocument(s *goquery.Selection) *goquery.Document {
	return goquery.NewDocumentFromNode(s.Nodes[0])
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
