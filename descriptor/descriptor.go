// Package descriptor parses stream descriptors into playback configurations.
//
// A descriptor is a single string of the form
//
//	URL(|KEY=VALUE)*
//
// where values are percent-encoded. The keys drmScheme and drmType (aliases) select the
// DRM system, drmLicense gives its license endpoint, and every other key becomes an HTTP
// header. Keys are matched case-insensitively. Parsing favours playback over strictness:
// only a blank descriptor is an error, everything else degrades to a best-effort config.
package descriptor

import (
	"net/url"
	"path"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"golang.org/x/exp/slices"
)

// Reserved keys, compared case-insensitively.
const (
	keyDRMScheme  = "drmscheme"
	keyDRMType    = "drmtype"
	keyDRMLicense = "drmlicense"
)

// LiveStreamTitle is the display title used when the URL carries no usable file name.
const LiveStreamTitle = "Live Stream"

var binaryExtensions = []string{".bin", ".dat"}

// StreamConfig is the parsed form of a descriptor. It is built once per playback
// attempt and treated as read-only afterwards.
type StreamConfig struct {
	// URL is the first descriptor segment, verbatim. It is never empty.
	URL string `json:"url" jsonschema:"minLength=1"`
	// Headers are attached to every request for the stream.
	Headers Headers `json:"headers"`
	// DRMType is DRMNone unless a license URI is also present.
	DRMType DRMType `json:"drm_type"`
	// DRMLicenseURI is set if and only if DRMType is not DRMNone.
	DRMLicenseURI string `json:"drm_license_uri,omitempty"`
}

// DRM is the protection a player must set up before playback.
type DRM struct {
	Type       DRMType
	LicenseURI string
}

// Parse builds a StreamConfig from raw. It fails only with ErrEmptyInput.
func Parse(raw string) (StreamConfig, error) {
	cfg, _, err := parse(raw)
	return cfg, err
}

// Diagnose returns the non-fatal conditions Parse silently degrades through,
// each wrapped in a *SegmentError. A blank descriptor yields ErrEmptyInput alone.
func Diagnose(raw string) []error {
	_, issues, err := parse(raw)
	if err != nil {
		return []error{err}
	}
	return lo.Map(issues, func(issue *SegmentError, _ int) error { return issue })
}

func parse(raw string) (StreamConfig, []*SegmentError, error) {
	if strings.TrimSpace(raw) == "" {
		return StreamConfig{}, nil, ErrEmptyInput
	}

	tokens := NewTokenizer(raw)
	if strings.TrimSpace(tokens.URL()) == "" {
		return StreamConfig{}, nil, ErrEmptyInput
	}

	cfg := StreamConfig{
		URL:     tokens.URL(),
		Headers: make(Headers),
	}

	var (
		issues    []*SegmentError
		drmFields []Field
	)

	for field := range tokens.All() {
		switch strings.ToLower(strings.TrimSpace(field.Key)) {
		case keyDRMScheme, keyDRMType:
			cfg.DRMType = ParseDRMType(field.Value)
			if cfg.DRMType == DRMUnknown {
				issues = append(issues, &SegmentError{Index: field.Index, Segment: field.Segment, Err: ErrUnsupportedDRMScheme})
			}
			drmFields = append(drmFields, field)
		case keyDRMLicense:
			cfg.DRMLicenseURI = field.Value
			drmFields = append(drmFields, field)
		default:
			cfg.Headers.Set(field.Key, field.Value)
		}
	}

	if cfg.DRMType == DRMNone || cfg.DRMLicenseURI == "" {
		if cfg.DRMType != DRMNone || cfg.DRMLicenseURI != "" {
			last := drmFields[len(drmFields)-1]
			issues = append(issues, &SegmentError{Index: last.Index, Segment: last.Segment, Err: ErrIncompleteDRM})
		}
		cfg.DRMType = DRMNone
		cfg.DRMLicenseURI = ""
	}

	issues = append(tokens.Issues(), issues...)
	slices.SortStableFunc(issues, func(a, b *SegmentError) int {
		return a.Index - b.Index
	})

	return cfg, issues, nil
}

// DRMConfig returns the DRM to configure, or None when the stream is unprotected
// or declares a scheme no player supports.
func (c StreamConfig) DRMConfig() mo.Option[DRM] {
	if !c.DRMType.Supported() || c.DRMLicenseURI == "" {
		return mo.None[DRM]()
	}
	return mo.Some(DRM{Type: c.DRMType, LicenseURI: c.DRMLicenseURI})
}

// Title derives a display name from the URL's final path segment.
func (c StreamConfig) Title() string {
	return DeriveTitle(c.URL)
}

// DeriveTitle returns the last path segment of rawURL, or LiveStreamTitle when the
// segment is missing, the URL has a query string, or the segment has a generic binary
// extension. Such URLs are usually live manifests rather than named files.
func DeriveTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return LiveStreamTitle
	}

	if u.RawQuery != "" || u.ForceQuery {
		return LiveStreamTitle
	}

	p := u.Path
	if p == "" {
		p = u.Opaque
	}

	if p == "" || strings.HasSuffix(p, "/") {
		return LiveStreamTitle
	}

	name := path.Base(p)
	if name == "." || name == "/" {
		return LiveStreamTitle
	}

	if lo.Contains(binaryExtensions, strings.ToLower(path.Ext(name))) {
		return LiveStreamTitle
	}

	return name
}

// Descriptor encodes c back into canonical descriptor form: headers sorted by name,
// values percent-encoded. Parsing the result yields a config equal to c.
func (c StreamConfig) Descriptor() string {
	var b strings.Builder
	b.WriteString(c.URL)

	for _, name := range c.Headers.Names() {
		writeField(&b, name, c.Headers[name])
	}

	if c.DRMType != DRMNone {
		writeField(&b, "drmScheme", c.DRMType.String())
		writeField(&b, "drmLicense", c.DRMLicenseURI)
	}

	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	b.WriteString(Delimiter)
	b.WriteString(name)
	b.WriteString(Separator)
	b.WriteString(url.PathEscape(value))
}
