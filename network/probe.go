package network

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/Eyevinn/hls-m3u8/m3u8"
	"github.com/drmplay-cli/drmplay/constant"
	"github.com/drmplay-cli/drmplay/descriptor"
	"github.com/drmplay-cli/drmplay/log"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

// manifestLimit bounds how much of a manifest is read. Larger manifests are
// not classified, a truncated playlist says nothing about its end.
const manifestLimit = 32 << 20

var errManifestTooLarge = errors.New("manifest too large to classify")

// Manifest kinds recognised by Probe.
const (
	ManifestNone = ""
	ManifestHLS  = "hls"
	ManifestDASH = "dash"
)

// Result describes what the server answered for a stream.
type Result struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Manifest    string `json:"manifest,omitempty"`
	// Live is set for manifests only: HLS playlists without an end tag and dynamic DASH manifests.
	Live mo.Option[bool] `json:"live"`
}

// OK reports a 2xx status.
func (r *Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Probe requests the stream with its headers and classifies the response.
func Probe(ctx context.Context, cfg descriptor.StreamConfig) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", constant.UserAgent)
	for _, name := range cfg.Headers.Names() {
		req.Header.Set(name, cfg.Headers[name])
	}

	resp, err := Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request stream: %w", err)
	}
	defer resp.Body.Close()

	result := &Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Live:        mo.None[bool](),
	}

	result.Manifest = manifestKind(cfg.URL, result.ContentType)
	if result.Manifest != ManifestNone && result.OK() {
		body, err := readManifest(resp.Body)
		switch {
		case errors.Is(err, errManifestTooLarge):
			log.Warnf("network: %s: %s", cfg.URL, err)
		case err != nil:
			return nil, fmt.Errorf("read manifest: %w", err)
		default:
			result.Live = manifestLive(result.Manifest, body)
		}
	}

	log.WithFields(logrus.Fields{
		"url":      cfg.URL,
		"status":   result.StatusCode,
		"manifest": result.Manifest,
	}).Debug("network: probed stream")

	return result, nil
}

func manifestKind(rawURL, contentType string) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch strings.ToLower(mediaType) {
	case "application/vnd.apple.mpegurl", "application/x-mpegurl", "audio/mpegurl":
		return ManifestHLS
	case "application/dash+xml":
		return ManifestDASH
	}

	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".m3u8", ".m3u":
		return ManifestHLS
	case ".mpd":
		return ManifestDASH
	}

	return ManifestNone
}

func readManifest(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, manifestLimit+1))
	if err != nil {
		return nil, err
	}
	if len(body) > manifestLimit {
		return nil, errManifestTooLarge
	}
	return body, nil
}

func manifestLive(kind string, body []byte) mo.Option[bool] {
	switch kind {
	case ManifestHLS:
		return playlistLive(body)
	case ManifestDASH:
		return mpdLive(body)
	default:
		return mo.None[bool]()
	}
}

// playlistLive reports whether an HLS media playlist is still open.
// Master playlists only point at media playlists and leave it unknown.
func playlistLive(body []byte) mo.Option[bool] {
	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		log.Debugf("network: undecodable playlist: %s", err)
		return mo.None[bool]()
	}

	media, ok := playlist.(*m3u8.MediaPlaylist)
	if listType != m3u8.MEDIA || !ok {
		return mo.None[bool]()
	}
	return mo.Some(!media.Closed)
}

// mpdLive reads the type attribute of the MPD root element.
func mpdLive(body []byte) mo.Option[bool] {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	for {
		token, err := decoder.Token()
		if err != nil {
			log.Debugf("network: undecodable mpd: %s", err)
			return mo.None[bool]()
		}

		root, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		if root.Name.Local != "MPD" {
			return mo.None[bool]()
		}

		for _, attr := range root.Attr {
			if attr.Name.Space == "" && attr.Name.Local == "type" {
				return mo.Some(strings.TrimSpace(attr.Value) == "dynamic")
			}
		}
		// static is the default presentation type
		return mo.Some(false)
	}
}
