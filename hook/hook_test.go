package hook

import (
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type renameHook struct {
	name     string
	priority int
	suffix   string
	fail     bool
}

func (h renameHook) Name() string        { return h.name }
func (h renameHook) Priority() int       { return h.priority }
func (renameHook) Matches(Request) bool  { return true }

func (h renameHook) Process(req Request) (Request, error) {
	if h.fail {
		return req, errors.New("boom")
	}
	req.URL += h.suffix
	return req, nil
}

func newRequest(url string) Request {
	return Request{
		Method:  "GET",
		URL:     url,
		Headers: map[string]string{},
		Meta:    map[string]string{},
	}
}

func TestRequestChain(t *testing.T) {
	Convey("Given hooks registered out of priority order", t, func() {
		chain := NewRequestChain(
			renameHook{name: "b", priority: 20, suffix: "/b"},
			renameHook{name: "a", priority: 10, suffix: "/a"},
		)

		Convey("When applying the chain", func() {
			out := chain.Apply(newRequest("x"))

			Convey("Then hooks run in ascending priority", func() {
				So(out.URL, ShouldEqual, "x/a/b")
			})

			Convey("And the stats count the run as modified", func() {
				snap := chain.Stats()
				So(snap.Processed, ShouldEqual, 1)
				So(snap.Modified, ShouldEqual, 1)
				So(snap.Errors, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a chain with a failing hook in the middle", t, func() {
		chain := NewRequestChain(
			renameHook{name: "a", priority: 10, suffix: "/a"},
			renameHook{name: "bad", priority: 20, fail: true},
			renameHook{name: "c", priority: 30, suffix: "/c"},
		)

		Convey("When applying the chain", func() {
			out := chain.Apply(newRequest("x"))

			Convey("Then the failing hook is skipped and later hooks still run", func() {
				So(out.URL, ShouldEqual, "x/a/c")
			})

			Convey("And the failure is counted", func() {
				So(chain.Stats().Errors, ShouldEqual, 1)
			})
		})
	})

	Convey("Given the same input applied twice", t, func() {
		chain := NewRequestChain(DefaultRequestHooks(
			map[string]string{"old.example": "new.example"},
			[]string{"secure.example"},
			[]string{"ref.example"},
		)...)
		req := newRequest("http://old.example/list?utm_source=x&id=1")

		Convey("When applying the chain to each copy", func() {
			first := chain.Apply(req.Clone())
			second := chain.Apply(req.Clone())

			Convey("Then both outputs are identical", func() {
				So(second.URL, ShouldEqual, first.URL)
				So(second.Headers, ShouldResemble, first.Headers)
				So(string(second.Body), ShouldEqual, string(first.Body))
			})
		})
	})

	Convey("Given an input that no hook changes", t, func() {
		chain := NewRequestChain(renameHook{name: "noop", priority: 10, suffix: ""})

		Convey("When applying the chain", func() {
			chain.Apply(newRequest("x"))

			Convey("Then the run is not counted as modified", func() {
				snap := chain.Stats()
				So(snap.Processed, ShouldEqual, 1)
				So(snap.Modified, ShouldEqual, 0)
			})
		})
	})
}

func TestRequestHooks(t *testing.T) {
	Convey("Given the default headers hook", t, func() {
		req := newRequest("https://example.com")
		req.Headers["Accept"] = "application/json"

		Convey("When processing a request with a caller-set header", func() {
			out, err := (DefaultHeaders{}).Process(req)
			So(err, ShouldBeNil)

			Convey("Then the caller's value is kept", func() {
				So(out.Headers["Accept"], ShouldEqual, "application/json")
			})

			Convey("And missing defaults are filled in", func() {
				So(out.Headers["Accept-Language"], ShouldNotBeEmpty)
			})
		})
	})

	Convey("Given the user agent hook", t, func() {
		Convey("When the URL looks like a mobile page", func() {
			out, err := (UserAgent{}).Process(newRequest("https://m.example.com/page"))
			So(err, ShouldBeNil)
			So(out.Headers["User-Agent"], ShouldContainSubstring, "Mobile")
		})

		Convey("When the URL looks like an API endpoint", func() {
			out, err := (UserAgent{}).Process(newRequest("https://example.com/api/list"))
			So(err, ShouldBeNil)
			So(out.Headers["User-Agent"], ShouldEqual, apiUserAgent)
		})

		Convey("When a page merely contains an m-dot-shaped substring", func() {
			out, err := (UserAgent{}).Process(newRequest("https://example.com/film.html"))
			So(err, ShouldBeNil)
			So(out.Headers["User-Agent"], ShouldNotContainSubstring, "Mobile")

			out, err = (UserAgent{}).Process(newRequest("https://example.com.cn/list"))
			So(err, ShouldBeNil)
			So(out.Headers["User-Agent"], ShouldNotContainSubstring, "Mobile")
		})

		Convey("When the mobile marker is a path segment", func() {
			out, err := (UserAgent{}).Process(newRequest("https://example.com/m/detail/1"))
			So(err, ShouldBeNil)
			So(out.Headers["User-Agent"], ShouldContainSubstring, "Mobile")
		})

		Convey("When the URL is a plain page", func() {
			first, err := (UserAgent{}).Process(newRequest("https://video.example.org/detail/1"))
			So(err, ShouldBeNil)
			second, err := (UserAgent{}).Process(newRequest("https://video.example.org/detail/2"))
			So(err, ShouldBeNil)

			Convey("Then the same host always gets the same agent", func() {
				So(second.Headers["User-Agent"], ShouldEqual, first.Headers["User-Agent"])
			})
		})

		Convey("When the caller already set a user agent", func() {
			req := newRequest("https://example.com")
			req.Headers["User-Agent"] = "custom"
			So((UserAgent{}).Matches(req), ShouldBeFalse)
		})
	})

	Convey("Given the HTTPS upgrade hook", t, func() {
		h := HTTPSUpgrade{Hosts: []string{"secure.example"}}

		Convey("When the host is on the allow-list", func() {
			So(h.Matches(newRequest("http://secure.example/a")), ShouldBeTrue)
			out, err := h.Process(newRequest("http://secure.example/a"))
			So(err, ShouldBeNil)
			So(out.URL, ShouldEqual, "https://secure.example/a")
		})

		Convey("When the host is not listed", func() {
			So(h.Matches(newRequest("http://other.example/a")), ShouldBeFalse)
		})

		Convey("When the URL is already https", func() {
			So(h.Matches(newRequest("https://secure.example/a")), ShouldBeFalse)
		})
	})

	Convey("Given the tracking strip hook", t, func() {
		Convey("When the URL carries analytics parameters", func() {
			out, err := (TrackingStrip{}).Process(newRequest("https://example.com/p?id=3&utm_source=feed&fbclid=abc"))
			So(err, ShouldBeNil)
			So(out.URL, ShouldEqual, "https://example.com/p?id=3")
		})
	})

	Convey("Given the cache control hook", t, func() {
		Convey("When the URL points at an image", func() {
			out, err := (CacheControl{}).Process(newRequest("https://cdn.example.com/poster.jpg?v=2"))
			So(err, ShouldBeNil)
			So(out.Headers["Cache-Control"], ShouldEqual, "max-age=86400")
		})

		Convey("When the URL points at a page", func() {
			out, err := (CacheControl{}).Process(newRequest("https://example.com/detail/1"))
			So(err, ShouldBeNil)
			So(out.Headers["Cache-Control"], ShouldEqual, "no-cache")
		})
	})
}

func TestResponseHooks(t *testing.T) {
	Convey("Given the status gate", t, func() {
		Convey("When the response is a 403", func() {
			resp := Response{URL: "https://example.com", StatusCode: 403, Body: []byte("<html>blocked</html>"), Meta: map[string]string{}}
			out, err := (StatusGate{}).Process(resp)
			So(err, ShouldBeNil)

			Convey("Then the body becomes a normalized error document", func() {
				var doc map[string]any
				So(json.Unmarshal(out.Body, &doc), ShouldBeNil)
				So(doc["status"], ShouldEqual, float64(403))
				So(doc["error"], ShouldContainSubstring, "denied")
				So(out.ContentType, ShouldEqual, "application/json")
			})
		})

		Convey("When the response is a 200", func() {
			resp := Response{StatusCode: 200}
			So((StatusGate{}).Matches(resp), ShouldBeFalse)
		})

		Convey("When 404 and 500 are gated", func() {
			out4, err := (StatusGate{}).Process(Response{StatusCode: 404, Meta: map[string]string{}})
			So(err, ShouldBeNil)
			out5, err := (StatusGate{}).Process(Response{StatusCode: 502, Meta: map[string]string{}})
			So(err, ShouldBeNil)

			Convey("Then the messages differ by class", func() {
				So(string(out4.Body), ShouldContainSubstring, "not found")
				So(string(out5.Body), ShouldContainSubstring, "upstream site error")
			})
		})
	})

	Convey("Given the content cleaner on JSON", t, func() {
		body := []byte(`{"list":[{"name":"Movie","token":"abc"}],"session_id":"x","total":1}`)
		resp := Response{StatusCode: 200, ContentType: "application/json", Body: body, Meta: map[string]string{}}

		Convey("When processing", func() {
			out, err := (ContentClean{}).Process(resp)
			So(err, ShouldBeNil)

			var doc map[string]any
			So(json.Unmarshal(out.Body, &doc), ShouldBeNil)

			Convey("Then sensitive keys are removed at every depth", func() {
				So(doc, ShouldNotContainKey, "session_id")
				item := doc["list"].([]any)[0].(map[string]any)
				So(item, ShouldNotContainKey, "token")
			})

			Convey("And ordinary fields survive", func() {
				So(doc["total"], ShouldEqual, float64(1))
				item := doc["list"].([]any)[0].(map[string]any)
				So(item["name"], ShouldEqual, "Movie")
			})
		})
	})

	Convey("Given the content cleaner on HTML", t, func() {
		body := []byte("<html><head><script>evil()</script><style>.a{}</style></head><body><!-- note --><div>hello</div></body></html>")
		resp := Response{StatusCode: 200, ContentType: "text/html", Body: body, Meta: map[string]string{}}

		Convey("When processing", func() {
			out, err := (ContentClean{}).Process(resp)
			So(err, ShouldBeNil)

			Convey("Then script, style and comment blocks are gone", func() {
				So(string(out.Body), ShouldNotContainSubstring, "evil()")
				So(string(out.Body), ShouldNotContainSubstring, ".a{}")
				So(string(out.Body), ShouldNotContainSubstring, "note")
			})

			Convey("And the document structure survives", func() {
				So(string(out.Body), ShouldContainSubstring, "<div>hello</div>")
			})
		})
	})

	Convey("Given a regex filter", t, func() {
		filter, bad := NewRegexFilter([]string{`ad-banner-\d+`, `(unclosed`})

		Convey("Then the invalid pattern is reported", func() {
			So(bad, ShouldResemble, []string{`(unclosed`})
		})

		Convey("When processing a matching body", func() {
			resp := Response{ContentType: "text/html", Body: []byte("before ad-banner-42 after"), Meta: map[string]string{}}
			out, err := filter.Process(resp)
			So(err, ShouldBeNil)
			So(string(out.Body), ShouldEqual, "before  after")
		})
	})

	Convey("Given default hooks built with a broken filter pattern", t, func() {
		hooks := DefaultResponseHooks([]string{`ad-banner-\d+`, `(unclosed`})

		Convey("Then the chain still assembles and the valid pattern applies", func() {
			So(hooks, ShouldHaveLength, 4)
			out := NewResponseChain(hooks...).Apply(Response{
				StatusCode:  200,
				ContentType: "text/html",
				Body:        []byte("before ad-banner-7 after"),
				Headers:     map[string]string{},
				Meta:        map[string]string{},
			})
			So(string(out.Body), ShouldNotContainSubstring, "ad-banner")
		})
	})

	Convey("Given a full response chain", t, func() {
		chain := NewResponseChain(DefaultResponseHooks(nil)...)

		Convey("When applying it to a successful response", func() {
			out := chain.Apply(Response{
				StatusCode:  200,
				ContentType: "application/json",
				Body:        []byte(`{"ok":true}`),
				Headers:     map[string]string{},
				Meta:        map[string]string{},
			})

			Convey("Then processing metadata is stamped", func() {
				So(out.Meta["processed_by"], ShouldEqual, "ovod")
				So(out.Meta["processed_at"], ShouldNotBeEmpty)
			})
		})
	})
}
