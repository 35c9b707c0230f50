package rule

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	. "github.com/smartystreets/goconvey/convey"
)

const page = `
<html><body>
  <div class="list">
    <div class="item">
      <a href="/detail/1" title="First Movie"><img data-src="/img/1.jpg"></a>
      <span class="note">HD</span>
    </div>
    <div class="item">
      <a href="/detail/2" title="Second Movie"><img data-src="/img/2.jpg"></a>
      <span class="note">EP12</span>
    </div>
  </div>
  <h1 class="title">  Spaced Title  </h1>
</body></html>`

func doc(t *testing.T) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestParse(t *testing.T) {
	Convey("Given rule strings", t, func() {
		Convey("When parsing selector@attribute", func() {
			chain, err := Parse("a.link@href")
			So(err, ShouldBeNil)
			So(chain, ShouldResemble, Chain{{Selector: "a.link", Attr: "href"}})
		})

		Convey("When the attribute is omitted", func() {
			chain, err := Parse("h1.title")
			So(err, ShouldBeNil)
			So(chain[0].Attr, ShouldEqual, attrText)
		})

		Convey("When candidates are pipe-separated", func() {
			chain, err := Parse("div.a, div.b@href || span.c@title")
			So(err, ShouldBeNil)

			Convey("Then commas inside a candidate stay intact", func() {
				So(chain, ShouldHaveLength, 2)
				So(chain[0].Selector, ShouldEqual, "div.a, div.b")
				So(chain[1].Selector, ShouldEqual, "span.c")
			})
		})

		Convey("When candidates are comma-separated without pipes", func() {
			chain, err := Parse("div.a@href, div.b@src")
			So(err, ShouldBeNil)
			So(chain, ShouldHaveLength, 2)
		})

		Convey("When the selector is malformed", func() {
			_, err := Parse("div[unclosed@href")
			So(err, ShouldNotBeNil)
		})

		Convey("When a candidate addresses the scoped element itself", func() {
			chain, err := Parse("@href || Text")
			So(err, ShouldBeNil)
			So(chain, ShouldResemble, Chain{{Selector: "", Attr: "href"}, {Selector: "", Attr: attrText}})
		})

		Convey("When the rule is empty", func() {
			chain, err := Parse("")
			So(err, ShouldBeNil)
			So(chain, ShouldBeNil)
		})
	})
}

func TestExtract(t *testing.T) {
	Convey("Given a parsed page", t, func() {
		d := doc(t)

		Convey("When extracting with a fallback chain where the first candidate misses", func() {
			v, err := Extract(d.Selection, "div.missing@title || div.item a@title")
			So(err, ShouldBeNil)

			Convey("Then the first matching candidate wins", func() {
				So(v, ShouldEqual, "First Movie")
			})
		})

		Convey("When an earlier candidate matches and a later one also would", func() {
			v, err := Extract(d.Selection, "span.note || div.item a@title")
			So(err, ShouldBeNil)

			Convey("Then the later candidate is never consulted", func() {
				So(v, ShouldEqual, "HD")
			})
		})

		Convey("When extracting text", func() {
			v, err := Extract(d.Selection, "h1.title")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "Spaced Title")
		})

		Convey("When extracting from the scoped element itself", func() {
			anchor := d.Find("div.item a").First()
			href, err := Extract(anchor, "@href")
			So(err, ShouldBeNil)
			So(href, ShouldEqual, "/detail/1")
		})

		Convey("When nothing matches", func() {
			v, err := Extract(d.Selection, "div.nope@href")
			So(err, ShouldBeNil)
			So(v, ShouldBeEmpty)
		})
	})
}

func TestExtractAll(t *testing.T) {
	Convey("Given a parsed page", t, func() {
		d := doc(t)

		Convey("When extracting all hrefs", func() {
			values, err := ExtractAll(d.Selection, "div.item a@href")
			So(err, ShouldBeNil)
			So(values, ShouldResemble, []string{"/detail/1", "/detail/2"})
		})

		Convey("When the first candidate matches nothing", func() {
			values, err := ExtractAll(d.Selection, "div.zero@href || span.note")
			So(err, ShouldBeNil)
			So(values, ShouldResemble, []string{"HD", "EP12"})
		})
	})
}

func TestEachContainer(t *testing.T) {
	Convey("Given a page with repeated cells", t, func() {
		d := doc(t)

		Convey("When iterating containers and extracting scoped fields", func() {
			type cell struct{ name, pic, note string }
			var cells []cell

			err := EachContainer(d, "div.item", func(_ int, s *goquery.Selection) {
				name, _ := Extract(s, "a@title")
				pic, _ := Extract(s, "img@data-src")
				note, _ := Extract(s, "span.note")
				cells = append(cells, cell{name, pic, note})
			})
			So(err, ShouldBeNil)

			Convey("Then fields stay aligned per container", func() {
				So(cells, ShouldResemble, []cell{
					{"First Movie", "/img/1.jpg", "HD"},
					{"Second Movie", "/img/2.jpg", "EP12"},
				})
			})
		})
	})
}

func TestAbsURL(t *testing.T) {
	Convey("Given a base URL", t, func() {
		base := "https://site.example/vod/list.html"

		Convey("Then relative paths anchor at the base", func() {
			So(AbsURL(base, "/detail/1"), ShouldEqual, "https://site.example/detail/1")
			So(AbsURL(base, "img/2.jpg"), ShouldEqual, "https://site.example/vod/img/2.jpg")
		})

		Convey("Then absolute URLs pass through", func() {
			So(AbsURL(base, "https://cdn.example/a.jpg"), ShouldEqual, "https://cdn.example/a.jpg")
		})

		Convey("Then protocol-relative URLs adopt the base scheme", func() {
			So(AbsURL(base, "//cdn.example/a.jpg"), ShouldEqual, "https://cdn.example/a.jpg")
		})

		Convey("Then data and magnet URIs are untouched", func() {
			So(AbsURL(base, "data:image/png;base64,xyz"), ShouldEqual, "data:image/png;base64,xyz")
			So(AbsURL(base, "magnet:?xt=urn:btih:abc"), ShouldEqual, "magnet:?xt=urn:btih:abc")
		})

		Convey("Then empty input yields empty output", func() {
			So(AbsURL(base, ""), ShouldBeEmpty)
		})
	})
}
