package descriptor

import (
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given a full descriptor", t, func() {
		raw := "https://cdn.example/live.m3u8|User-Agent=Foo%20Bar|drmScheme=widevine|drmLicense=https://lic.example/w"

		Convey("When parsing it", func() {
			cfg, err := Parse(raw)
			So(err, ShouldBeNil)

			Convey("Then every field is populated", func() {
				So(cfg.URL, ShouldEqual, "https://cdn.example/live.m3u8")
				So(cfg.Headers, ShouldResemble, Headers{"User-Agent": "Foo Bar"})
				So(cfg.DRMType, ShouldEqual, DRMWidevine)
				So(cfg.DRMLicenseURI, ShouldEqual, "https://lic.example/w")
			})

			Convey("And DRMConfig is present", func() {
				drm, ok := cfg.DRMConfig().Get()
				So(ok, ShouldBeTrue)
				So(drm.Type, ShouldEqual, DRMWidevine)
				So(drm.LicenseURI, ShouldEqual, "https://lic.example/w")
			})
		})
	})

	Convey("Given descriptors without a delimiter", t, func() {
		for _, raw := range []string{
			"https://cdn.example/video.mp4",
			"rtmp://origin.example/app/key",
			"no-scheme-at-all",
			" padded ",
			"https://cdn.example/a=b?c=d",
		} {
			Convey("The URL is kept verbatim for "+raw, func() {
				cfg, err := Parse(raw)
				So(err, ShouldBeNil)
				So(cfg.URL, ShouldEqual, raw)
				So(cfg.Headers, ShouldBeEmpty)
				So(cfg.DRMType, ShouldEqual, DRMNone)
				So(cfg.DRMLicenseURI, ShouldBeEmpty)
			})
		}
	})

	Convey("Given blank descriptors", t, func() {
		for _, raw := range []string{"", "   ", "\t\n", "|User-Agent=x", "  |drmScheme=widevine"} {
			Convey("Parse fails with ErrEmptyInput for "+raw, func() {
				_, err := Parse(raw)
				So(errors.Is(err, ErrEmptyInput), ShouldBeTrue)
			})
		}
	})

	Convey("Given DRM keys in any case", t, func() {
		for _, k := range []string{"drmScheme", "DRMSCHEME", "drmscheme", "drmType", "DrMtYpE"} {
			Convey("Key "+k+" selects the scheme", func() {
				cfg, err := Parse("https://a.example/v.mpd|" + k + "=PlayReady|DRMLICENSE=https://lic.example/p")
				So(err, ShouldBeNil)
				So(cfg.DRMType, ShouldEqual, DRMPlayReady)
				So(cfg.DRMLicenseURI, ShouldEqual, "https://lic.example/p")
				So(cfg.Headers, ShouldBeEmpty)
			})
		}
	})

	Convey("Given an unknown DRM scheme", t, func() {
		raw := "https://a.example/v.mpd|drmScheme=fairplay|drmLicense=https://lic.example/f"

		Convey("It maps to unknown without failing", func() {
			cfg, err := Parse(raw)
			So(err, ShouldBeNil)
			So(cfg.DRMType, ShouldEqual, DRMUnknown)
			So(cfg.DRMLicenseURI, ShouldEqual, "https://lic.example/f")
		})

		Convey("It stays inert", func() {
			cfg, _ := Parse(raw)
			So(cfg.DRMConfig().IsAbsent(), ShouldBeTrue)
		})

		Convey("It is reported by Diagnose", func() {
			issues := Diagnose(raw)
			So(issues, ShouldHaveLength, 1)
			So(errors.Is(issues[0], ErrUnsupportedDRMScheme), ShouldBeTrue)
		})
	})

	Convey("Given incomplete DRM settings", t, func() {
		cases := []struct{ name, raw string }{
			{"scheme without license", "https://a.example/v.mpd|drmScheme=widevine"},
			{"license without scheme", "https://a.example/v.mpd|drmLicense=https://lic.example/w"},
			{"explicit none", "https://a.example/v.mpd|drmType=none|drmLicense=https://lic.example/w"},
			{"empty license", "https://a.example/v.mpd|drmScheme=clearkey|drmLicense="},
		}

		for _, c := range cases {
			raw := c.raw
			Convey("DRM is disabled entirely for "+c.name, func() {
				cfg, err := Parse(raw)
				So(err, ShouldBeNil)
				So(cfg.DRMType, ShouldEqual, DRMNone)
				So(cfg.DRMLicenseURI, ShouldBeEmpty)
				So(cfg.DRMConfig().IsAbsent(), ShouldBeTrue)

				issues := Diagnose(raw)
				So(issues, ShouldNotBeEmpty)
				So(errors.Is(issues[len(issues)-1], ErrIncompleteDRM), ShouldBeTrue)
			})
		}
	})

	Convey("Given repeated keys", t, func() {
		Convey("The last header value wins", func() {
			cfg, _ := Parse("https://a.example/v.m3u8|Referer=https://one.example|Referer=https://two.example")
			So(cfg.Headers, ShouldResemble, Headers{"Referer": "https://two.example"})
		})

		Convey("Header names differing only in case collapse to the last spelling", func() {
			cfg, _ := Parse("https://a.example/v.m3u8|user-agent=old|User-Agent=new")
			So(cfg.Headers, ShouldResemble, Headers{"User-Agent": "new"})
		})

		Convey("The last DRM scheme wins", func() {
			cfg, _ := Parse("https://a.example/v.mpd|drmScheme=widevine|drmType=clearkey|drmLicense=https://lic.example/c")
			So(cfg.DRMType, ShouldEqual, DRMClearKey)
		})
	})

	Convey("Given malformed segments", t, func() {
		raw := "https://a.example/v.m3u8|garbage|Referer=https://r.example||=novalue|Cookie=a=b;c=d|"

		Convey("They are skipped and the rest is kept", func() {
			cfg, err := Parse(raw)
			So(err, ShouldBeNil)
			So(cfg.URL, ShouldEqual, "https://a.example/v.m3u8")
			So(cfg.Headers, ShouldResemble, Headers{
				"Referer": "https://r.example",
				"Cookie":  "a=b;c=d",
			})
		})

		Convey("Each skipped segment is reported in order", func() {
			issues := Diagnose(raw)
			So(issues, ShouldHaveLength, 4)

			indexes := make([]int, 0, len(issues))
			for _, issue := range issues {
				So(errors.Is(issue, ErrMalformedSegment), ShouldBeTrue)
				var segErr *SegmentError
				So(errors.As(issue, &segErr), ShouldBeTrue)
				indexes = append(indexes, segErr.Index)
			}
			So(indexes, ShouldResemble, []int{1, 3, 4, 6})
		})
	})

	Convey("Given a value with a broken percent sequence", t, func() {
		raw := "https://a.example/v.m3u8|X-Token=abc%zz|X-Other=ok%21"

		Convey("That value falls back to its raw form", func() {
			cfg, err := Parse(raw)
			So(err, ShouldBeNil)
			So(cfg.Headers["X-Token"], ShouldEqual, "abc%zz")
			So(cfg.Headers["X-Other"], ShouldEqual, "ok!")
		})

		Convey("And it is reported", func() {
			issues := Diagnose(raw)
			So(issues, ShouldHaveLength, 1)
			So(errors.Is(issues[0], ErrUndecodablePercentSequence), ShouldBeTrue)
		})
	})

	Convey("Given the URL segment", t, func() {
		Convey("It is never percent-decoded", func() {
			cfg, _ := Parse("https://a.example/My%20Show.mp4|Referer=x")
			So(cfg.URL, ShouldEqual, "https://a.example/My%20Show.mp4")
		})

		Convey("A plus sign in a value stays literal", func() {
			cfg, _ := Parse("https://a.example/v.mp4|X-Sig=a+b")
			So(cfg.Headers["X-Sig"], ShouldEqual, "a+b")
		})
	})

	Convey("Parse is idempotent", t, func() {
		for _, raw := range []string{
			"https://cdn.example/live.m3u8|User-Agent=Foo%20Bar|drmScheme=widevine|drmLicense=https://lic.example/w",
			"https://a.example/v.m3u8|garbage|Referer=x|=y",
			"https://a.example/v.mpd|drmScheme=fairplay|drmLicense=https://lic.example/f",
		} {
			first, err1 := Parse(raw)
			second, err2 := Parse(raw)
			So(err1, ShouldBeNil)
			So(err2, ShouldBeNil)
			So(first, ShouldResemble, second)
		}
	})

	Convey("DRM type and license are always set together", t, func() {
		for _, raw := range []string{
			"https://a.example/v",
			"https://a.example/v|drmScheme=widevine",
			"https://a.example/v|drmLicense=https://l.example",
			"https://a.example/v|drmScheme=bogus",
			"https://a.example/v|drmScheme=bogus|drmLicense=https://l.example",
			"https://a.example/v|drmScheme=clearkey|drmLicense=https://l.example",
			"https://a.example/v|drmScheme=none",
		} {
			cfg, err := Parse(raw)
			So(err, ShouldBeNil)
			So(cfg.DRMType != DRMNone, ShouldEqual, cfg.DRMLicenseURI != "")
		}
	})
}

func TestDeriveTitle(t *testing.T) {
	Convey("DeriveTitle", t, func() {
		cases := map[string]string{
			"https://cdn.example/video.mp4":           "video.mp4",
			"https://cdn.example/shows/s01/e02.mkv":   "e02.mkv",
			"https://cdn.example/My%20Show.mp4":       "My Show.mp4",
			"https://cdn.example/live.m3u8?token=abc": LiveStreamTitle,
			"https://cdn.example/video.mp4?":          LiveStreamTitle,
			"https://cdn.example/chunk.bin":           LiveStreamTitle,
			"https://cdn.example/CHUNK.BIN":           LiveStreamTitle,
			"https://cdn.example/blob.dat":            LiveStreamTitle,
			"https://cdn.example":                     LiveStreamTitle,
			"https://cdn.example/":                    LiveStreamTitle,
			"https://cdn.example/channel/":            LiveStreamTitle,
			"https://cdn.example/manifest.mpd#t=10":   "manifest.mpd",
			"local/file.webm":                         "file.webm",
			"%zz":                                     LiveStreamTitle,
		}

		for raw, want := range cases {
			So(DeriveTitle(raw), ShouldEqual, want)
		}

		Convey("StreamConfig.Title uses the URL", func() {
			cfg, _ := Parse("https://cdn.example/video.mp4|Referer=x")
			So(cfg.Title(), ShouldEqual, "video.mp4")
		})
	})
}

func TestDescriptorEncoding(t *testing.T) {
	Convey("Given parsed configs", t, func() {
		raws := []string{
			"https://cdn.example/live.m3u8|User-Agent=Foo%20Bar|drmScheme=widevine|drmLicense=https://lic.example/w?a=1&b=2",
			"https://a.example/v.m3u8|Cookie=a=b;%20c=d|X-Pipe=a%7Cb|X-Percent=100%25",
			"https://a.example/v.mpd|drmScheme=fairplay|drmLicense=https://lic.example/f",
			"https://a.example/plain.mp4",
		}

		for _, raw := range raws {
			Convey("Re-encoding round-trips "+raw, func() {
				cfg, err := Parse(raw)
				So(err, ShouldBeNil)

				again, err := Parse(cfg.Descriptor())
				So(err, ShouldBeNil)
				So(again, ShouldResemble, cfg)

				issues := Diagnose(cfg.Descriptor())
				if cfg.DRMType != DRMUnknown {
					So(issues, ShouldBeEmpty)
					return
				}
				// an unknown scheme is kept so the license stays paired with it
				So(issues, ShouldHaveLength, 1)
				So(errors.Is(issues[0], ErrUnsupportedDRMScheme), ShouldBeTrue)
			})
		}

		Convey("Headers are written in sorted order", func() {
			cfg, _ := Parse("https://a.example/v|b=2|A=1")
			So(cfg.Descriptor(), ShouldEqual, "https://a.example/v|A=1|b=2")
		})
	})
}

func TestJSON(t *testing.T) {
	Convey("StreamConfig marshals the DRM type by name", t, func() {
		cfg, _ := Parse("https://a.example/v.mpd|drmScheme=clearkey|drmLicense=https://lic.example/c")
		data, err := json.Marshal(cfg)
		So(err, ShouldBeNil)
		So(string(data), ShouldEqual, `{"url":"https://a.example/v.mpd","headers":{},"drm_type":"clearkey","drm_license_uri":"https://lic.example/c"}`)

		var decoded StreamConfig
		So(json.Unmarshal(data, &decoded), ShouldBeNil)
		So(decoded, ShouldResemble, cfg)
	})
}
