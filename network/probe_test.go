package network

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/drmplay-cli/drmplay/descriptor"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	vodPlaylist    = "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:10,\nseg0.ts\n#EXT-X-ENDLIST\n"
	livePlaylist   = "#EXTM3U\n#EXT-X-TARGETDURATION:6\n#EXT-X-MEDIA-SEQUENCE:120\n#EXTINF:6,\nseg120.ts\n"
	masterPlaylist = "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=800000\nlow.m3u8\n"
	dynamicMPD     = `<?xml version="1.0"?><MPD xmlns="urn:mpeg:dash:schema:mpd:2011" type="dynamic"></MPD>`
	staticMPD      = `<?xml version="1.0"?><MPD xmlns="urn:mpeg:dash:schema:mpd:2011" type="static"></MPD>`
	quotedMPD      = `<?xml version='1.0'?><MPD xmlns='urn:mpeg:dash:schema:mpd:2011' type='dynamic'></MPD>`
	untypedMPD     = `<MPD xmlns="urn:mpeg:dash:schema:mpd:2011" mediaPresentationDuration="PT1H"></MPD>`
)

// longPlaylist returns a finished playlist well past a few hundred KiB.
func longPlaylist(segments int) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:6\n#EXT-X-MEDIA-SEQUENCE:0\n")
	for i := range segments {
		fmt.Fprintf(&b, "#EXTINF:6.000,\nhttps://cdn.example/vod/segment-%06d.ts\n", i)
	}
	b.WriteString("#EXT-X-ENDLIST\n")
	return b.String()
}

func newServer() *httptest.Server {
	mux := http.NewServeMux()
	serve := func(contentType, body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Referer") != "https://ref.example" {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			w.Header().Set("Content-Type", contentType)
			_, _ = w.Write([]byte(body))
		}
	}

	mux.HandleFunc("/vod.m3u8", serve("application/vnd.apple.mpegurl", vodPlaylist))
	mux.HandleFunc("/live", serve("application/x-mpegURL; charset=utf-8", livePlaylist))
	mux.HandleFunc("/master.m3u8", serve("text/plain", masterPlaylist))
	mux.HandleFunc("/live.mpd", serve("application/dash+xml", dynamicMPD))
	mux.HandleFunc("/vod.mpd", serve("application/octet-stream", staticMPD))
	mux.HandleFunc("/movie.mp4", serve("video/mp4", "not really mp4"))
	mux.HandleFunc("/long.m3u8", serve("application/vnd.apple.mpegurl", longPlaylist(5000)))
	mux.HandleFunc("/quoted.mpd", serve("application/dash+xml", quotedMPD))
	mux.HandleFunc("/untyped.mpd", serve("application/dash+xml", untypedMPD))

	return httptest.NewServer(mux)
}

func TestProbe(t *testing.T) {
	Convey("Given a stream server that requires a referer", t, func() {
		server := newServer()
		Reset(server.Close)

		probe := func(p string, withReferer bool) *Result {
			raw := server.URL + p
			if withReferer {
				raw += "|Referer=https%3A%2F%2Fref.example"
			}
			cfg, err := descriptor.Parse(raw)
			So(err, ShouldBeNil)

			result, err := Probe(context.Background(), cfg)
			So(err, ShouldBeNil)
			return result
		}

		Convey("Descriptor headers are sent", func() {
			So(probe("/movie.mp4", true).OK(), ShouldBeTrue)
			So(probe("/movie.mp4", false).StatusCode, ShouldEqual, http.StatusForbidden)
		})

		Convey("Plain files are not manifests", func() {
			result := probe("/movie.mp4", true)
			So(result.Manifest, ShouldEqual, ManifestNone)
			So(result.Live.IsAbsent(), ShouldBeTrue)
		})

		Convey("HLS playlists with an end tag are not live", func() {
			result := probe("/vod.m3u8", true)
			So(result.Manifest, ShouldEqual, ManifestHLS)
			So(result.Live.MustGet(), ShouldBeFalse)
		})

		Convey("HLS playlists are recognised by content type", func() {
			result := probe("/live", true)
			So(result.Manifest, ShouldEqual, ManifestHLS)
			So(result.Live.MustGet(), ShouldBeTrue)
		})

		Convey("Master playlists leave liveness unknown", func() {
			result := probe("/master.m3u8", true)
			So(result.Manifest, ShouldEqual, ManifestHLS)
			So(result.Live.IsAbsent(), ShouldBeTrue)
		})

		Convey("Dynamic DASH manifests are live", func() {
			So(probe("/live.mpd", true).Live.MustGet(), ShouldBeTrue)
			So(probe("/vod.mpd", true).Live.MustGet(), ShouldBeFalse)
		})

		Convey("Long finished playlists are read to the end", func() {
			So(len(longPlaylist(5000)), ShouldBeGreaterThan, 256<<10)
			result := probe("/long.m3u8", true)
			So(result.Live.IsPresent(), ShouldBeTrue)
			So(result.Live.MustGet(), ShouldBeFalse)
		})

		Convey("The MPD type attribute is read whatever its quoting", func() {
			So(probe("/quoted.mpd", true).Live.MustGet(), ShouldBeTrue)
		})

		Convey("MPDs without a type are static", func() {
			So(probe("/untyped.mpd", true).Live.MustGet(), ShouldBeFalse)
		})

		Convey("Rejected manifests are not read", func() {
			result := probe("/vod.m3u8", false)
			So(result.OK(), ShouldBeFalse)
			So(result.Live.IsAbsent(), ShouldBeTrue)
		})
	})

	Convey("Unreachable streams fail", t, func() {
		server := newServer()
		url := server.URL
		server.Close()

		cfg, err := descriptor.Parse(url + "/movie.mp4")
		So(err, ShouldBeNil)
		_, err = Probe(context.Background(), cfg)
		So(err, ShouldNotBeNil)
	})
}

func TestManifestLive(t *testing.T) {
	Convey("HLS liveness comes from the decoded playlist", t, func() {
		So(manifestLive(ManifestHLS, []byte(vodPlaylist)).MustGet(), ShouldBeFalse)
		So(manifestLive(ManifestHLS, []byte(livePlaylist)).MustGet(), ShouldBeTrue)
		So(manifestLive(ManifestHLS, []byte(masterPlaylist)).IsAbsent(), ShouldBeTrue)
		So(manifestLive(ManifestHLS, []byte("<html>not a playlist</html>")).IsAbsent(), ShouldBeTrue)
	})

	Convey("DASH liveness comes from the MPD root", t, func() {
		So(manifestLive(ManifestDASH, []byte(quotedMPD)).MustGet(), ShouldBeTrue)
		So(manifestLive(ManifestDASH, []byte(staticMPD)).MustGet(), ShouldBeFalse)
		So(manifestLive(ManifestDASH, []byte(`<Period type="dynamic"/>`)).IsAbsent(), ShouldBeTrue)
		So(manifestLive(ManifestDASH, []byte("{}")).IsAbsent(), ShouldBeTrue)
	})

	Convey("Oversized manifests are not classified", t, func() {
		_, err := readManifest(strings.NewReader(strings.Repeat("#", manifestLimit+1)))
		So(err, ShouldEqual, errManifestTooLarge)

		body, err := readManifest(strings.NewReader(vodPlaylist))
		So(err, ShouldBeNil)
		So(string(body), ShouldEqual, vodPlaylist)
	})
}
