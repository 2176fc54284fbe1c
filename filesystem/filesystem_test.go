package filesystem

import (
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestApi(t *testing.T) {
	Convey("Filesystem API", t, func() {
		Convey("Should default to OsFs", func() {
			SetOsFs()
			So(API().Name(), ShouldEqual, "OsFs")
		})

		Convey("Should switch to MemMapFs", func() {
			SetMemMapFs()
			So(API().Name(), ShouldEqual, "MemMapFS")
		})
	})
}

func TestGacheFs(t *testing.T) {
	Convey("Given the in-memory backend", t, func() {
		SetMemMapFs()
		fs := GacheFs{}

		Convey("MkdirAll and OpenFile go through the active backend", func() {
			So(fs.MkdirAll("/state/drmplay", os.ModePerm), ShouldBeNil)

			f, err := fs.OpenFile("/state/drmplay/doc.json", os.O_CREATE|os.O_RDWR, 0o644)
			So(err, ShouldBeNil)
			_, err = f.Write([]byte(`{}`))
			So(err, ShouldBeNil)
			So(f.Close(), ShouldBeNil)

			data, err := API().ReadFile("/state/drmplay/doc.json")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, `{}`)
		})
	})
}
