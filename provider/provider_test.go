package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ovod-cli/ovod/filesystem"
	"github.com/ovod-cli/ovod/network"
	"github.com/ovod-cli/ovod/site"
	"github.com/ovod-cli/ovod/source"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

// macPayload fakes a MacCMS videolist response naming the site it came from.
func macPayload(name string) string {
	return fmt.Sprintf(`{"class":[],"list":[
		{"vod_id":1,"vod_name":"%s result","vod_pic":"","vod_remarks":"HD"}
	],"page":1,"pagecount":1,"limit":20,"total":1}`, name)
}

func TestSearchAll(t *testing.T) {
	Convey("Given three searchable sites where one hangs", t, func() {
		fast1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(macPayload("alpha")))
		}))
		defer fast1.Close()
		fast2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(macPayload("beta")))
		}))
		defer fast2.Close()
		slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(5 * time.Second)
		}))
		defer slow.Close()

		config := &site.Config{Sites: []site.Descriptor{
			{Key: "a", Name: "Alpha", Kind: site.KindJSONAPI, API: fast1.URL, Searchable: true},
			{Key: "b", Name: "Beta", Kind: site.KindJSONAPI, API: fast2.URL, Searchable: true},
			{Key: "c", Name: "Slow", Kind: site.KindJSONAPI, API: slow.URL, Searchable: true},
		}}

		client := network.New(network.Options{Timeout: 10 * time.Second}, nil, nil)
		manager := NewManager(config, client, nil, nil, Options{
			SearchConcurrency: 3,
			SiteTimeout:       200 * time.Millisecond,
		})

		Convey("When searching across all sites", func() {
			start := time.Now()
			results := manager.SearchAll(context.Background(), "result")
			elapsed := time.Since(start)

			Convey("Then the aggregate completes without waiting for the slow site", func() {
				So(elapsed, ShouldBeLessThan, 3*time.Second)
			})

			Convey("Then every site yields exactly one result entry", func() {
				So(results, ShouldHaveLength, 3)
			})

			Convey("Then the responsive sites contribute items and the slow one an error", func() {
				byKey := map[string]SiteResult{}
				for _, r := range results {
					byKey[r.SiteKey] = r
				}
				So(byKey["a"].Items, ShouldHaveLength, 1)
				So(byKey["b"].Items, ShouldHaveLength, 1)
				So(byKey["c"].Items, ShouldBeEmpty)
				So(byKey["c"].Err, ShouldNotBeNil)
			})

			Convey("Then items are tagged with their site key", func() {
				for _, r := range results {
					for _, item := range r.Items {
						So(item.SiteKey, ShouldEqual, r.SiteKey)
					}
				}
			})
		})
	})
}

func TestManagerDispatch(t *testing.T) {
	Convey("Given a manager over one JSON site", t, func() {
		var hits int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			_, _ = w.Write([]byte(macPayload("only")))
		}))
		defer srv.Close()

		config := &site.Config{Sites: []site.Descriptor{
			{Key: "only", Name: "Only", Kind: site.KindJSONAPI, API: srv.URL, Searchable: true},
		}}
		client := network.New(network.Options{Timeout: time.Second}, nil, nil)
		manager := NewManager(config, client, nil, nil, Options{})

		Convey("When requesting the same site twice", func() {
			first, err := manager.Source("only")
			So(err, ShouldBeNil)
			second, err := manager.Source("only")
			So(err, ShouldBeNil)

			Convey("Then the adapter instance is reused", func() {
				So(first, ShouldEqual, second)
			})
		})

		Convey("When requesting an unknown site", func() {
			_, err := manager.Source("nope")
			So(err, ShouldNotBeNil)
		})

		Convey("When dispatching home", func() {
			home, err := manager.Home(context.Background(), "only", false)
			So(err, ShouldBeNil)
			So(home.Items, ShouldHaveLength, 1)
		})
	})
}

func itemsNamed(names ...string) []source.Item {
	out := make([]source.Item, 0, len(names))
	for _, n := range names {
		out = append(out, source.Item{Name: n})
	}
	return out
}

func TestRanking(t *testing.T) {
	Convey("Given unranked search results", t, func() {
		items := itemsNamed("Completely Different", "The Matrix Reloaded", "The Matrix")

		Convey("When ranking against a query", func() {
			rankItems(items, "the matrix")

			Convey("Then the closest name comes first", func() {
				So(items[0].Name, ShouldEqual, "The Matrix")
				So(items[1].Name, ShouldEqual, "The Matrix Reloaded")
			})
		})
	})
}
