package history

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ovod-cli/ovod/filesystem"
	"github.com/ovod-cli/ovod/source"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestHistory(t *testing.T) {
	Convey("Given a resolved episode", t, func() {
		item := source.Item{ID: "101", Name: "Deep Space", Pic: "https://img.example/101.jpg"}
		ep1 := source.Episode{Name: "EP01", URL: "https://site.example/play/101-1-1"}
		ep2 := source.Episode{Name: "EP02", URL: "https://site.example/play/101-1-2"}

		Convey("When saving it", func() {
			So(Save("mac", item, "Line A", ep1, 10), ShouldBeNil)

			entries, err := Get()
			So(err, ShouldBeNil)
			entry := entries["101@mac"]
			So(entry, ShouldNotBeNil)
			So(entry.VodName, ShouldEqual, "Deep Space")
			So(entry.EpisodeName, ShouldEqual, "EP01")

			Convey("Then re-watching the same episode never regresses progress", func() {
				So(Save("mac", item, "Line A", ep1, 80), ShouldBeNil)
				So(Save("mac", item, "Line A", ep1, 5), ShouldBeNil)

				entries, err := Get()
				So(err, ShouldBeNil)
				So(entries["101@mac"].WatchedPercentage, ShouldEqual, 80)
			})

			Convey("Then a later episode replaces the title's entry", func() {
				So(Save("mac", item, "Line A", ep2, 1), ShouldBeNil)

				entries, err := Get()
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries["101@mac"].EpisodeName, ShouldEqual, "EP02")
				So(entries["101@mac"].WatchedPercentage, ShouldEqual, 1)
			})

			Convey("Then the same title on another site keeps its own entry", func() {
				So(Save("other", item, "Line A", ep1, 50), ShouldBeNil)

				entries, err := Get()
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
			})

			Convey("Then removing the entry deletes it", func() {
				entries, _ := Get()
				So(Remove(entries["101@mac"]), ShouldBeNil)

				entries, err := Get()
				So(err, ShouldBeNil)
				So(entries["101@mac"], ShouldBeNil)
			})
		})
	})
}
