// Package special holds hand-written adapters for sites whose markup the
// generic rule engine cannot express.
package special

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ovod-cli/ovod/network"
	"github.com/ovod-cli/ovod/rule"
	"github.com/ovod-cli/ovod/site"
	"github.com/ovod-cli/ovod/source"
)

// Builder constructs a registered special adapter.
type Builder func(desc site.Descriptor, client *network.Client) source.Source

var registry = map[string]Builder{}

// Register binds a builder to a site key. Called from init functions.
func Register(key string, builder Builder) {
	registry[key] = builder
}

// New looks up the adapter registered for the descriptor's key.
func New(desc site.Descriptor, client *network.Client) (source.Source, error) {
	builder, found := registry[desc.Key]
	if !found {
		return nil, fmt.Errorf("no special adapter registered for site %q", desc.Key)
	}
	return builder(desc, client), nil
}

func init() {
	Register("czzy", newCzzy)
}

// czzy scrapes a site whose pagination lives in free text ("第1/24页") and
// whose episode anchors are grouped by free-form headers instead of
// structured playlist markup.
type czzy struct {
	desc   site.Descriptor
	client *network.Client
}

func newCzzy(desc site.Descriptor, client *network.Client) source.Source {
	return &czzy{desc: desc, client: client}
}

func (c *czzy) Key() string  { return c.desc.Key }
func (c *czzy) Name() string { return c.desc.Name }

var czzyPagination = regexp.MustCompile(`第\s*(\d+)\s*/\s*(\d+)\s*页`)

func (c *czzy) Home(ctx context.Context, _ bool) (source.Home, error) {
	doc, err := c.document(ctx, c.desc.API)
	if err != nil {
		return source.Home{}, err
	}

	home := source.Home{}
	doc.Find("div.mi_btcon").Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Find("div.bt_tit a").Text())
		href, _ := s.Find("div.bt_tit a").Attr("href")
		if name == "" || href == "" {
			return
		}
		home.Categories = append(home.Categories, source.Category{ID: href, Name: name})
	})
	home.Items = c.cells(doc)
	return home, nil
}

func (c *czzy) Category(ctx context.Context, tid string, page int, _ bool, _ map[string]string) (source.ItemPage, error) {
	pageURL := rule.AbsURL(c.desc.API, strings.TrimSuffix(tid, "/")+"/page/"+strconv.Itoa(page))
	doc, err := c.document(ctx, pageURL)
	if err != nil {
		return source.ItemPage{}, err
	}

	result := source.ItemPage{Items: c.cells(doc), Page: page}
	if m := czzyPagination.FindStringSubmatch(doc.Find("div.pagenavi_txt").Text()); len(m) == 3 {
		result.Page, _ = strconv.Atoi(m[1])
		result.PageCount, _ = strconv.Atoi(m[2])
	}
	return result, nil
}

func (c *czzy) Detail(ctx context.Context, ids []string) ([]source.Item, error) {
	var out []source.Item
	for _, id := range ids {
		doc, err := c.document(ctx, rule.AbsURL(c.desc.API, id))
		if err != nil {
			continue
		}

		item := source.Item{
			ID:      id,
			Name:    strings.TrimSpace(doc.Find("div.dytext h1").Text()),
			Content: strings.TrimSpace(doc.Find("div.yp_context").Text()),
		}
		if pic, ok := doc.Find("div.dyimg img").Attr("src"); ok {
			item.Pic = rule.AbsURL(c.desc.API, pic)
		}

		// Episode anchors are grouped under repeated header paragraphs;
		// each group becomes one flag.
		doc.Find("div.paly_list_btn").Each(func(i int, s *goquery.Selection) {
			flag := source.Flag{Name: "线路" + strconv.Itoa(i+1)}
			s.Find("a").Each(func(_ int, a *goquery.Selection) {
				href, ok := a.Attr("href")
				if !ok {
					return
				}
				flag.Episodes = append(flag.Episodes, source.Episode{
					Name: strings.TrimSpace(a.Text()),
					URL:  rule.AbsURL(c.desc.API, href),
				})
			})
			if len(flag.Episodes) > 0 {
				item.Flags = append(item.Flags, flag)
			}
		})

		out = append(out, item)
	}
	if len(out) == 0 && len(ids) > 0 {
		return nil, source.ErrNotFound
	}
	return out, nil
}

func (c *czzy) Search(ctx context.Context, keyword string, _ bool) ([]source.Item, error) {
	if !c.desc.Searchable {
		return nil, source.ErrSearchUnsupported
	}

	doc, err := c.document(ctx, rule.AbsURL(c.desc.API, "/xssearch?q="+url.QueryEscape(keyword)))
	if err != nil {
		return nil, err
	}
	return c.cells(doc), nil
}

func (c *czzy) Player(_ context.Context, flag, id string, vipFlags []string) (source.Playback, error) {
	pb := source.Playback{URL: id, Headers: c.desc.Headers}
	for _, vip := range vipFlags {
		if flag == vip {
			pb.Parse = true
			return pb, nil
		}
	}
	pb.Sniff = true
	return pb, nil
}

func (c *czzy) cells(doc *goquery.Document) []source.Item {
	var out []source.Item
	doc.Find("div.mi_ne_kd ul li, div.bt_img ul li").Each(func(_ int, s *goquery.Selection) {
		a := s.Find("a").First()
		href, ok := a.Attr("href")
		name := strings.TrimSpace(s.Find("div.dytit a").Text())
		if name == "" {
			name = strings.TrimSpace(a.Text())
		}
		if name == "" {
			name, _ = a.Attr("title")
		}
		if !ok || name == "" {
			return
		}

		item := source.Item{ID: href, Name: name}
		if pic, ok := s.Find("img").Attr("data-original"); ok {
			item.Pic = rule.AbsURL(c.desc.API, pic)
		} else if pic, ok := s.Find("img").Attr("src"); ok {
			item.Pic = rule.AbsURL(c.desc.API, pic)
		}
		item.Remarks = strings.TrimSpace(s.Find("div.hdinfo, span.hdinfo").Text())
		out = append(out, item)
	})
	return out
}

func (c *czzy) document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := c.client.Get(ctx, pageURL, c.desc.Headers)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
}
