package source

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFlagCodec(t *testing.T) {
	Convey("Given two flags with episodes", t, func() {
		flags := []Flag{
			{Name: "line A", Episodes: []Episode{
				{Name: "EP01", URL: "https://a.example/1.m3u8"},
				{Name: "EP02", URL: "https://a.example/2.m3u8"},
			}},
			{Name: "line B", Episodes: []Episode{
				{Name: "EP01", URL: "https://b.example/1.m3u8"},
			}},
		}

		Convey("When encoding", func() {
			from, url := EncodeFlags(flags)

			Convey("Then both strings use the wire separators", func() {
				So(from, ShouldEqual, "line A$$$line B")
				So(url, ShouldEqual, "EP01$https://a.example/1.m3u8#EP02$https://a.example/2.m3u8$$$EP01$https://b.example/1.m3u8")
			})

			Convey("And decoding restores the original flags", func() {
				So(DecodeFlags(from, url), ShouldResemble, flags)
			})
		})
	})

	Convey("Given a group without a name separator", t, func() {
		flags := DecodeFlags("direct", "https://x.example/v.mp4")

		Convey("Then the URL doubles as the episode name", func() {
			So(flags, ShouldHaveLength, 1)
			So(flags[0].Episodes[0].Name, ShouldEqual, "https://x.example/v.mp4")
			So(flags[0].Episodes[0].URL, ShouldEqual, "https://x.example/v.mp4")
		})
	})

	Convey("Given mismatched flag and group counts", t, func() {
		flags := DecodeFlags("a$$$b$$$c", "EP01$u1$$$EP01$u2")

		Convey("Then decoding truncates to the shorter side", func() {
			So(flags, ShouldHaveLength, 2)
		})
	})

	Convey("Given empty inputs", t, func() {
		So(DecodeFlags("", ""), ShouldBeNil)
	})
}

func TestFindEpisode(t *testing.T) {
	Convey("Given decoded flags", t, func() {
		flags := DecodeFlags("line A$$$line B", "EP01$u1#EP02$u2$$$EP01$u3")

		Convey("When looking up by URL", func() {
			ep, ok := FindEpisode(flags, "line B", "u3")
			So(ok, ShouldBeTrue)
			So(ep.Name, ShouldEqual, "EP01")
		})

		Convey("When looking up by name", func() {
			ep, ok := FindEpisode(flags, "line A", "EP02")
			So(ok, ShouldBeTrue)
			So(ep.URL, ShouldEqual, "u2")
		})

		Convey("When the flag does not exist", func() {
			_, ok := FindEpisode(flags, "line C", "u1")
			So(ok, ShouldBeFalse)
		})
	})
}
