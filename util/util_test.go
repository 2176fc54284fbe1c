package util

import (
	"testing"

	"github.com/drmplay-cli/drmplay/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestQuantify(t *testing.T) {
	Convey("Quantify", t, func() {
		So(Quantify(1, "entry", "entries"), ShouldEqual, "1 entry")
		So(Quantify(0, "entry", "entries"), ShouldEqual, "0 entries")
		So(Quantify(3, "entry", "entries"), ShouldEqual, "3 entries")
	})
}

func TestCapitalize(t *testing.T) {
	Convey("Capitalize", t, func() {
		So(Capitalize("history file"), ShouldEqual, "History file")
		So(Capitalize(""), ShouldEqual, "")
	})
}

func TestTerminalWidth(t *testing.T) {
	Convey("TerminalWidth falls back when stdout is not a terminal", t, func() {
		So(TerminalWidth(80), ShouldBeGreaterThan, 0)
	})
}

func TestDelete(t *testing.T) {
	Convey("Given a file and a directory", t, func() {
		fs := filesystem.API()
		lo.Must0(fs.MkdirAll("/tmp/drmplay/dir/nested", 0o755))
		lo.Must0(fs.WriteFile("/tmp/drmplay/file.json", []byte("{}"), 0o644))

		Convey("Both are removed", func() {
			So(Delete("/tmp/drmplay/file.json"), ShouldBeNil)
			So(Delete("/tmp/drmplay/dir"), ShouldBeNil)
			So(lo.Must(fs.Exists("/tmp/drmplay/file.json")), ShouldBeFalse)
			So(lo.Must(fs.Exists("/tmp/drmplay/dir")), ShouldBeFalse)
		})

		Convey("A missing path is an error", func() {
			So(Delete("/tmp/drmplay/absent"), ShouldNotBeNil)
		})
	})
}
