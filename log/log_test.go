package log

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/drmplay-cli/drmplay/filesystem"
	"github.com/drmplay-cli/drmplay/key"
	"github.com/drmplay-cli/drmplay/where"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Given logging is disabled", t, func() {
		viper.Set(key.LogsWrite, false)
		So(Setup(), ShouldBeNil)
		So(Enabled(), ShouldBeFalse)

		Convey("Calls are discarded without panicking", func() {
			Info("ignored")
			Warnf("ignored %d", 1)
		})
	})

	Convey("Given logging is enabled", t, func() {
		viper.Set(key.LogsWrite, true)
		viper.Set(key.LogsLevel, "debug")
		viper.Set(key.LogsJson, false)
		defer viper.Set(key.LogsWrite, false)

		So(Setup(), ShouldBeNil)
		So(Enabled(), ShouldBeTrue)

		Convey("Messages land in today's file", func() {
			Infof("resumed %s", "https://cdn.example/video.mp4")

			path := filepath.Join(where.Logs(), time.Now().Format("2006-01-02")+".log")
			data := lo.Must(filesystem.API().ReadFile(path))
			So(strings.Contains(string(data), "resumed https://cdn.example/video.mp4"), ShouldBeTrue)
		})
	})
}
