package jsonapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ovod-cli/ovod/network"
	"github.com/ovod-cli/ovod/site"
	"github.com/ovod-cli/ovod/source"
)

// detailBody mixes numeric and quoted numbers the way MacCMS deployments do.
const detailBody = `{
	"class": [
		{"type_id": 1, "type_name": "Movies"},
		{"type_id": "2", "type_name": "Shows"}
	],
	"list": [
		{
			"vod_id": "77",
			"vod_name": "Deep Space",
			"vod_pic": "https://img.example/77.jpg",
			"vod_remarks": "EP12",
			"vod_year": "2023",
			"vod_play_from": "m3u8$$$mirror",
			"vod_play_url": "EP01$https://cdn.example/1.m3u8#EP02$https://cdn.example/2.m3u8$$$EP01$https://m.example/1"
		},
		{"vod_id": 78, "vod_name": ""}
	],
	"page": "1",
	"pagecount": 3,
	"limit": "20",
	"total": "55"
}`

func testAdapter(t *testing.T, handler http.HandlerFunc) (*Adapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := network.New(network.Options{Timeout: 5 * time.Second}, nil, nil)
	desc := site.Descriptor{Key: "mac", Name: "Mac", Kind: site.KindJSONAPI, API: srv.URL, Searchable: true}
	return New(desc, client), srv
}

func TestCategory(t *testing.T) {
	Convey("Given a videolist endpoint with mixed number encodings", t, func() {
		var gotQuery string
		a, _ := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(detailBody))
		})

		Convey("When listing a category with an extend filter", func() {
			page, err := a.Category(context.Background(), "1", 2, false, map[string]string{"year": "2023", "area": ""})
			So(err, ShouldBeNil)

			Convey("Then the request carries the list parameters", func() {
				So(gotQuery, ShouldContainSubstring, "ac=videolist")
				So(gotQuery, ShouldContainSubstring, "t=1")
				So(gotQuery, ShouldContainSubstring, "pg=2")
				So(gotQuery, ShouldContainSubstring, "year=2023")
				So(gotQuery, ShouldNotContainSubstring, "area=")
			})

			Convey("Then quoted and bare numbers decode alike", func() {
				So(page.Page, ShouldEqual, 1)
				So(page.PageCount, ShouldEqual, 3)
				So(page.Limit, ShouldEqual, 20)
				So(page.Total, ShouldEqual, 55)
			})

			Convey("Then nameless rows are dropped", func() {
				So(page.Items, ShouldHaveLength, 1)
			})

			Convey("Then play strings expand into flags", func() {
				item := page.Items[0]
				So(item.Flags, ShouldHaveLength, 2)
				So(item.Flags[0].Name, ShouldEqual, "m3u8")
				So(item.Flags[0].Episodes, ShouldHaveLength, 2)
				So(item.Flags[0].Episodes[1].URL, ShouldEqual, "https://cdn.example/2.m3u8")
			})
		})
	})
}

func TestDetailAndSearch(t *testing.T) {
	Convey("Given a videolist endpoint", t, func() {
		a, _ := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("ids") == "404" || r.URL.Query().Get("wd") == "nothing" {
				_, _ = w.Write([]byte(`{"list":[]}`))
				return
			}
			_, _ = w.Write([]byte(detailBody))
		})

		Convey("Then detail for known ids yields items", func() {
			items, err := a.Detail(context.Background(), []string{"77"})
			So(err, ShouldBeNil)
			So(items[0].Name, ShouldEqual, "Deep Space")
		})

		Convey("Then detail for unknown ids reports not found", func() {
			_, err := a.Detail(context.Background(), []string{"404"})
			So(err, ShouldWrap, source.ErrNotFound)
		})

		Convey("Then detail with no ids is a no-op", func() {
			items, err := a.Detail(context.Background(), nil)
			So(err, ShouldBeNil)
			So(items, ShouldBeEmpty)
		})

		Convey("Then an empty search result is not an error", func() {
			items, err := a.Search(context.Background(), "nothing", false)
			So(err, ShouldBeNil)
			So(items, ShouldBeEmpty)
		})
	})

	Convey("Given a site marked unsearchable", t, func() {
		a, _ := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(detailBody))
		})
		a.desc.Searchable = false

		_, err := a.Search(context.Background(), "anything", false)
		So(err, ShouldWrap, source.ErrSearchUnsupported)
	})
}

func TestHomeFilters(t *testing.T) {
	filterExt := []byte(`{"filter": {"1": [
		{"key": "year", "name": "年份", "value": [{"n": "全部", "v": ""}, {"n": "2023", "v": "2023"}]}
	]}}`)

	newAdapter := func(t *testing.T, desc site.Descriptor) *Adapter {
		t.Helper()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(detailBody))
		}))
		t.Cleanup(srv.Close)
		desc.API = srv.URL
		return New(desc, network.New(network.Options{Timeout: 5 * time.Second}, nil, nil))
	}

	Convey("Given a filterable site declaring filter axes in its ext", t, func() {
		a := newAdapter(t, site.Descriptor{Key: "mac", Kind: site.KindJSONAPI, Filterable: true, Ext: filterExt})

		Convey("When filter metadata is requested", func() {
			home, err := a.Home(context.Background(), true)
			So(err, ShouldBeNil)

			Convey("Then declared categories carry their axes", func() {
				So(home.Categories[0].Filters, ShouldHaveLength, 1)
				f := home.Categories[0].Filters[0]
				So(f.Key, ShouldEqual, "year")
				So(f.Values, ShouldHaveLength, 2)
				So(f.Values[1].Value, ShouldEqual, "2023")
			})

			Convey("Then undeclared categories carry none", func() {
				So(home.Categories[1].Filters, ShouldBeEmpty)
			})
		})

		Convey("When filter metadata is not requested", func() {
			home, err := a.Home(context.Background(), false)
			So(err, ShouldBeNil)
			So(home.Categories[0].Filters, ShouldBeEmpty)
		})
	})

	Convey("Given a non-filterable site with the same ext", t, func() {
		a := newAdapter(t, site.Descriptor{Key: "mac", Kind: site.KindJSONAPI, Ext: filterExt})

		home, err := a.Home(context.Background(), true)
		So(err, ShouldBeNil)
		So(home.Categories[0].Filters, ShouldBeEmpty)
	})

	Convey("Given a filterable site with a malformed ext", t, func() {
		a := newAdapter(t, site.Descriptor{Key: "mac", Kind: site.KindJSONAPI, Filterable: true, Ext: []byte(`{nope`)})

		home, err := a.Home(context.Background(), true)
		So(err, ShouldBeNil)
		So(home.Categories[0].Filters, ShouldBeEmpty)
	})
}

func TestPlayer(t *testing.T) {
	Convey("Given a jsonapi adapter", t, func() {
		a, _ := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {})

		Convey("Then a direct media url plays as-is", func() {
			pb, err := a.Player(context.Background(), "m3u8", "https://cdn.example/1.m3u8", nil)
			So(err, ShouldBeNil)
			So(pb.Parse, ShouldBeFalse)
			So(pb.Sniff, ShouldBeFalse)
		})

		Convey("Then a vip flag routes to parsing", func() {
			pb, err := a.Player(context.Background(), "qiyi", "https://www.iqiyi.com/v.html", []string{"qiyi", "qq"})
			So(err, ShouldBeNil)
			So(pb.Parse, ShouldBeTrue)
		})

		Convey("Then a page url needs sniffing", func() {
			pb, err := a.Player(context.Background(), "m3u8", "https://site.example/play/1-1", nil)
			So(err, ShouldBeNil)
			So(pb.Sniff, ShouldBeTrue)
		})
	})
}
