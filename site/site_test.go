package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ovod-cli/ovod/filesystem"
	"github.com/ovod-cli/ovod/network"
	"github.com/ovod-cli/ovod/where"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

const sampleConfig = `{
	"spider": "https://cdn.example.com/spider.jar",
	"sites": [
		{"key": "rb", "name": "Rule Site", "type": 0, "api": "https://rb.example",
		 "searchable": 1, "quickSearch": 1, "filterable": 1,
		 "ext": {"host": "https://rb.example", "listRule": "div.item"}},
		{"key": "mac", "name": "Json Site", "type": 1, "api": "https://mac.example/api.php/provide/vod",
		 "searchable": 1},
		{"key": "drive", "name": "Drive", "type": 4, "api": "https://alist.example", "searchable": 0},
		{"key": "broken", "name": "Broken", "type": 99, "api": "https://x.example"},
		{"key": "rb", "name": "Duplicate", "type": 0, "api": "https://dupe.example"}
	],
	"parses": [{"name": "json parse", "type": 1, "url": "https://parse.example/?url="}],
	"flags": ["qiyi", "youku"]
}`

func TestParseConfig(t *testing.T) {
	Convey("Given a site config document", t, func() {
		cfg, err := parse([]byte(sampleConfig))

		Convey("Then it parses", func() {
			So(err, ShouldBeNil)
		})

		Convey("Then unknown type codes and duplicate keys are dropped", func() {
			So(cfg.Sites, ShouldHaveLength, 3)
			_, ok := cfg.Site("broken")
			So(ok, ShouldBeFalse)
		})

		Convey("Then type codes map onto kinds", func() {
			rb, _ := cfg.Site("rb")
			So(rb.Kind, ShouldEqual, KindRuleBased)
			mac, _ := cfg.Site("mac")
			So(mac.Kind, ShouldEqual, KindJSONAPI)
			drive, _ := cfg.Site("drive")
			So(drive.Kind, ShouldEqual, KindCloud)
		})

		Convey("Then integer booleans convert", func() {
			rb, _ := cfg.Site("rb")
			So(rb.Searchable, ShouldBeTrue)
			drive, _ := cfg.Site("drive")
			So(drive.Searchable, ShouldBeFalse)
		})

		Convey("Then only searchable sites join federated search", func() {
			keys := make([]string, 0)
			for _, s := range cfg.Searchable() {
				keys = append(keys, s.Key)
			}
			So(keys, ShouldResemble, []string{"rb", "mac"})
		})

		Convey("Then parses and flags survive", func() {
			So(cfg.Parses, ShouldHaveLength, 1)
			So(cfg.Flags, ShouldResemble, []string{"qiyi", "youku"})
		})
	})

	Convey("Given an empty document", t, func() {
		_, err := parse([]byte(`{"sites": []}`))
		So(err, ShouldNotBeNil)
	})

	Convey("Given malformed JSON", t, func() {
		_, err := parse([]byte(`{nope`))
		So(err, ShouldNotBeNil)
	})
}

func TestDecodeRuleSet(t *testing.T) {
	Convey("Given a rule-based descriptor", t, func() {
		cfg, err := parse([]byte(sampleConfig))
		So(err, ShouldBeNil)
		rb, _ := cfg.Site("rb")

		Convey("When decoding its ext blob", func() {
			rs, err := DecodeRuleSet(rb.Ext)
			So(err, ShouldBeNil)
			So(rs.Host, ShouldEqual, "https://rb.example")
			So(rs.ListRule, ShouldEqual, "div.item")
		})
	})

	Convey("Given an empty ext blob", t, func() {
		_, err := DecodeRuleSet(nil)
		So(err, ShouldNotBeNil)
	})

	Convey("Given an ext blob without a host", t, func() {
		_, err := DecodeRuleSet([]byte(`{"listRule": "div"}`))
		So(err, ShouldNotBeNil)
	})
}

func TestLoadFallsBackToMirror(t *testing.T) {
	Convey("Given a reachable config endpoint", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(sampleConfig))
		}))
		defer srv.Close()

		client := network.New(network.Options{Timeout: 5 * time.Second}, nil, nil)

		Convey("When loading succeeds", func() {
			cfg, err := Load(context.Background(), client, srv.URL)
			So(err, ShouldBeNil)
			So(len(cfg.Sites), ShouldEqual, 3)

			Convey("Then the document is mirrored to disk", func() {
				data, err := filesystem.API().ReadFile(where.SiteConfig())
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, sampleConfig)
			})

			Convey("And a later load with a dead endpoint uses the mirror", func() {
				srv.Close()
				cached, err := Load(context.Background(), client, srv.URL)
				So(err, ShouldBeNil)
				So(len(cached.Sites), ShouldEqual, 3)
			})
		})
	})

	Convey("Given a dead endpoint and no mirror", t, func() {
		filesystem.SetMemMapFs()
		client := network.New(network.Options{Timeout: time.Second}, nil, nil)
		_, err := Load(context.Background(), client, "http://127.0.0.1:1/cfg.json")
		So(err, ShouldNotBeNil)
	})
}
