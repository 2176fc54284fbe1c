package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/drmplay-cli/drmplay/descriptor"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeMPV answers IPC commands on one end of a pipe.
type fakeMPV struct {
	conn       net.Conn
	properties map[string]any
	commands   chan []any
}

func newFakeMPV(properties map[string]any) (*fakeMPV, *ipcClient) {
	server, client := net.Pipe()
	fake := &fakeMPV{
		conn:       server,
		properties: properties,
		commands:   make(chan []any, 16),
	}
	go fake.serve()
	return fake, newIPCClient(client)
}

func (f *fakeMPV) serve() {
	scanner := bufio.NewScanner(f.conn)
	for scanner.Scan() {
		var cmd ipcCommand
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			continue
		}

		select {
		case f.commands <- cmd.Command:
		default:
		}

		reply := map[string]any{"request_id": cmd.RequestID, "error": "success"}
		if cmd.Command[0] == "get_property" {
			if value, ok := f.properties[cmd.Command[1].(string)]; ok {
				reply["data"] = value
			} else {
				reply["error"] = "property unavailable"
			}
		}
		f.send(reply)
	}
}

func (f *fakeMPV) send(msg map[string]any) {
	payload, _ := json.Marshal(msg)
	_, _ = f.conn.Write(append(payload, '\n'))
}

func TestBuildArgs(t *testing.T) {
	Convey("Given media with headers", t, func() {
		media := &Media{
			URL:   "https://cdn.example/live.m3u8",
			Title: "Live\nStream",
			Headers: descriptor.Headers{
				"User-Agent": "Agent/1.0",
				"Referer":    "https://ref.example",
				"Cookie":     "a=1, b=2",
			},
		}

		Convey("Arguments carry the socket, title and headers before the target", func() {
			args, err := buildArgs(media, "/tmp/test.sock")
			So(err, ShouldBeNil)
			So(args, ShouldResemble, []string{
				"--no-terminal",
				"--really-quiet",
				"--input-ipc-server=/tmp/test.sock",
				"--force-media-title=Live Stream",
				"--title=Live Stream",
				"--force-window=yes",
				"--http-header-fields-append=Cookie: a=1, b=2",
				"--http-header-fields-append=Referer: https://ref.example",
				"--user-agent=Agent/1.0",
				"--",
				"https://cdn.example/live.m3u8",
			})
		})

		Convey("IINA receives the same options behind its mpv prefix", func() {
			args, err := buildIINAArgs(media)
			So(err, ShouldBeNil)
			So(args[:4], ShouldResemble, []string{"-W", "-a", "IINA", "--args"})
			So(args, ShouldContain, "--mpv-user-agent=Agent/1.0")
			So(args, ShouldContain, "--mpv-http-header-fields-append=Referer: https://ref.example")
			So(args[len(args)-1], ShouldEqual, "https://cdn.example/live.m3u8")
			So(args, ShouldNotContain, "--")
		})
	})

	Convey("Unsafe targets are rejected", t, func() {
		for _, target := range []string{"", "  ", "--script=evil.lua", "ftp://host/file", "https://a\n.example"} {
			_, err := buildArgs(&Media{URL: target}, "/tmp/test.sock")
			So(err, ShouldNotBeNil)
		}
	})

	Convey("Streaming schemes and local paths are accepted", t, func() {
		for _, target := range []string{"rtmp://host/app/key", "HTTPS://host/a", "./movies/../movie.mkv"} {
			_, err := sanitizeMediaTarget(target)
			So(err, ShouldBeNil)
		}
	})
}

func TestNewMedia(t *testing.T) {
	Convey("Given parsed descriptors", t, func() {
		Convey("A supported DRM scheme maps to its system ID", func() {
			cfg, err := descriptor.Parse("https://a.example/m.mpd|drmScheme=widevine|drmLicense=https%3A%2F%2Flic.example")
			So(err, ShouldBeNil)

			media := NewMedia(cfg, "m.mpd")
			drm, ok := media.DRM.Get()
			So(ok, ShouldBeTrue)
			So(drm.SystemID, ShouldEqual, WidevineSystemID)
			So(drm.LicenseURI, ShouldEqual, "https://lic.example")
		})

		Convey("An unknown scheme plays unprotected", func() {
			cfg, err := descriptor.Parse("https://a.example/m.mpd|drmScheme=fairplay|drmLicense=x")
			So(err, ShouldBeNil)
			So(NewMedia(cfg, "m").DRM.IsAbsent(), ShouldBeTrue)
		})

		Convey("Headers are copied", func() {
			cfg, err := descriptor.Parse("https://a.example/m.mpd|Referer=r")
			So(err, ShouldBeNil)

			media := NewMedia(cfg, "m")
			media.Headers.Set("Referer", "changed")
			So(cfg.Headers["Referer"], ShouldEqual, "r")
		})
	})
}

func TestTranslate(t *testing.T) {
	Convey("mpv events translate to player events", t, func() {
		cases := []struct {
			raw      string
			expected Event
			ok       bool
		}{
			{`{"event":"playback-restart"}`, Event{Kind: EventReady}, true},
			{`{"event":"end-file","reason":"quit"}`, Event{Kind: EventEnd, Reason: "quit"}, true},
			{`{"event":"property-change","id":1,"name":"time-pos","data":12.5}`, Event{Kind: EventPosition, Position: 12500 * time.Millisecond}, true},
			{`{"event":"property-change","id":1,"name":"time-pos"}`, Event{}, false},
			{`{"event":"property-change","id":1,"name":"time-pos","data":null}`, Event{}, false},
			{`{"event":"property-change","id":2,"name":"pause","data":true}`, Event{Kind: EventPause}, true},
			{`{"event":"property-change","id":2,"name":"pause","data":false}`, Event{Kind: EventUnpause}, true},
			{`{"event":"property-change","name":"volume","data":50}`, Event{}, false},
			{`{"event":"seek"}`, Event{}, false},
		}

		for _, c := range cases {
			var raw ipcEvent
			So(json.Unmarshal([]byte(c.raw), &raw), ShouldBeNil)

			event, ok := translate(raw)
			So(ok, ShouldEqual, c.ok)
			So(event, ShouldResemble, c.expected)
		}
	})

	Convey("Negative positions clamp to zero", t, func() {
		So(secondsToDuration(-1), ShouldEqual, 0)
		So(secondsToDuration(1.5), ShouldEqual, 1500*time.Millisecond)
	})
}

func TestIPC(t *testing.T) {
	Convey("Given a connection to mpv", t, func() {
		fake, ipc := newFakeMPV(map[string]any{"time-pos": 42.0})
		Reset(func() {
			_ = ipc.close()
			_ = fake.conn.Close()
		})

		Convey("Replies are matched to their commands", func() {
			data, err := ipc.call("get_property", "time-pos")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "42")
		})

		Convey("mpv errors are returned", func() {
			_, err := ipc.call("get_property", "chapter")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "property unavailable")
		})

		Convey("Calls fail once the connection is gone", func() {
			_ = fake.conn.Close()
			<-ipc.closed()
			_, err := ipc.call("get_property", "time-pos")
			So(err, ShouldEqual, ErrIPCClosed)
		})

		Convey("Subscribing observes properties and forwards events", func() {
			events := make(chan Event, 8)
			So(subscribe(ipc, func(e Event) { events <- e }), ShouldBeNil)

			So(<-fake.commands, ShouldResemble, []any{"observe_property", 1.0, "time-pos"})
			So(<-fake.commands, ShouldResemble, []any{"observe_property", 2.0, "pause"})

			fake.send(map[string]any{"event": "playback-restart"})
			fake.send(map[string]any{"event": "property-change", "name": "pause", "data": true})

			So(<-events, ShouldResemble, Event{Kind: EventReady})
			So(<-events, ShouldResemble, Event{Kind: EventPause})
		})

		Convey("Events may interleave with replies", func() {
			fake.send(map[string]any{"event": "idle"})
			data, err := ipc.call("get_property", "time-pos")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "42")
		})
	})
}

func TestIsLive(t *testing.T) {
	cases := []struct {
		name       string
		properties map[string]any
		live       bool
	}{
		{"unseekable streams", map[string]any{"seekable": false, "duration": 100.0}, true},
		{"streams without a duration", map[string]any{"seekable": true}, true},
		{"seekable files", map[string]any{"seekable": true, "duration": 100.0}, false},
	}

	for _, c := range cases {
		Convey(fmt.Sprintf("Live detection for %s", c.name), t, func() {
			fake, ipc := newFakeMPV(c.properties)
			defer fake.conn.Close()

			live, err := isLive(ipc)
			So(err, ShouldBeNil)
			So(live, ShouldEqual, c.live)
		})
	}
}

func TestNew(t *testing.T) {
	Convey("Players are created by name", t, func() {
		p, err := New("MPV")
		So(err, ShouldBeNil)
		So(p, ShouldHaveSameTypeAs, &MPV{})

		p, err = New(NameIINA)
		So(err, ShouldBeNil)
		So(p, ShouldHaveSameTypeAs, &IINA{})

		_, err = New("vlc")
		So(err, ShouldNotBeNil)

		So(Binary(NameMPV), ShouldEqual, "mpv")
		So(Binary("vlc"), ShouldEqual, "vlc")
	})

	Convey("An idle mpv player refuses IPC", t, func() {
		m := NewMPV()
		So(m.Seek(time.Second), ShouldNotBeNil)
		So(m.Close(), ShouldBeNil)
	})
}
