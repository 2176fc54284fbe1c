package where

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/drmplay-cli/drmplay/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Path functions", t, func() {
		Convey("Config() creates the directory", func() {
			path := Config()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Logs() lives under Config()", func() {
			path := Logs()
			So(filepath.Dir(path), ShouldEqual, Config())
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("History() and Database() are files in Config()", func() {
			So(History(), ShouldEqual, filepath.Join(Config(), "history.json"))
			So(Database(), ShouldEqual, filepath.Join(Config(), "history.db"))
		})

		Convey("Config() honours the override variable", func() {
			custom := filepath.Join(os.TempDir(), "drmplay-where-test")
			So(os.Setenv(EnvConfigPath, custom), ShouldBeNil)
			defer os.Unsetenv(EnvConfigPath)

			So(Config(), ShouldEqual, custom)
			So(lo.Must(filesystem.API().IsDir(custom)), ShouldBeTrue)
		})
	})
}
