package sniff

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestIsMediaURL(t *testing.T) {
	Convey("Given candidate URLs", t, func() {
		Convey("Then direct media links are recognized", func() {
			So(IsMediaURL("https://cdn.example.com/streams/abc123/index.m3u8"), ShouldBeTrue)
			So(IsMediaURL("https://cdn.example.com/files/movie-part1.mp4?sign=xyz"), ShouldBeTrue)
			So(IsMediaURL("rtmp://live.example.com/channel/1"), ShouldBeTrue)
		})

		Convey("Then pages and wrapped URLs are rejected", func() {
			So(IsMediaURL("https://site.example.com/detail/1.html"), ShouldBeFalse)
			So(IsMediaURL("https://parse.example.com/?url=https://v.example.com/x.mp4"), ShouldBeFalse)
			So(IsMediaURL(""), ShouldBeFalse)
		})

		Convey("Then ad hosts are filtered even with media extensions", func() {
			So(IsMediaURL("https://googleads.example.com/preroll/spot.mp4"), ShouldBeFalse)
			So(IsMediaURL("https://cdn.example.com/ads/banner-loop.mp4"), ShouldBeFalse)
		})
	})
}

func TestExtractURL(t *testing.T) {
	Convey("Given free text with an embedded link", t, func() {
		So(ExtractURL("watch this https://v.example.com/play/9 tonight"), ShouldEqual, "https://v.example.com/play/9")
		So(ExtractURL("magnet:?xt=urn:btih:abc"), ShouldEqual, "magnet:?xt=urn:btih:abc")
	})

	Convey("Given already-structured text", t, func() {
		Convey("Then JSON passes through", func() {
			So(ExtractURL(`{"url":"https://x.example/v.mp4"}`), ShouldEqual, `{"url":"https://x.example/v.mp4"}`)
		})

		Convey("Then encoded episode groups pass through", func() {
			So(ExtractURL("EP01$https://x.example/1.m3u8"), ShouldEqual, "EP01$https://x.example/1.m3u8")
		})
	})
}

func TestScan(t *testing.T) {
	Convey("Given a player page body", t, func() {
		body := []byte(`
			<script>
				var main = "https://cdn-a.example.com/vod/12345678/index.m3u8?auth=tok";
				var backup = 'https://cdn-b.example.com/vod/12345678/index.m3u8?auth=tok';
				var ad = "https://googleads.example.com/preroll/clip-long.mp4";
				var again = "https://cdn-a.example.com/vod/12345678/index.m3u8?auth=tok";
			</script>`)

		Convey("When scanning", func() {
			urls := Scan(body)

			Convey("Then media URLs are found once each and ads dropped", func() {
				So(urls, ShouldResemble, []string{
					"https://cdn-a.example.com/vod/12345678/index.m3u8?auth=tok",
					"https://cdn-b.example.com/vod/12345678/index.m3u8?auth=tok",
				})
			})
		})
	})

	Convey("Given a body without media", t, func() {
		So(Scan([]byte("<html><body>nothing here</body></html>")), ShouldBeEmpty)
	})
}
