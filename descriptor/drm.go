package descriptor

import (
	"strings"

	"github.com/invopop/jsonschema"
)

// DRMType is the protection system a stream declares.
type DRMType int

const (
	DRMNone DRMType = iota
	DRMWidevine
	DRMPlayReady
	DRMClearKey
	// DRMUnknown is any scheme name outside the supported set. It never enables DRM.
	DRMUnknown
)

var drmNames = map[DRMType]string{
	DRMNone:      "none",
	DRMWidevine:  "widevine",
	DRMPlayReady: "playready",
	DRMClearKey:  "clearkey",
	DRMUnknown:   "unknown",
}

// ParseDRMType maps a scheme name case-insensitively. Names outside
// {widevine, playready, clearkey, none} yield DRMUnknown.
func ParseDRMType(name string) DRMType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none":
		return DRMNone
	case "widevine":
		return DRMWidevine
	case "playready":
		return DRMPlayReady
	case "clearkey":
		return DRMClearKey
	default:
		return DRMUnknown
	}
}

func (d DRMType) String() string {
	if name, ok := drmNames[d]; ok {
		return name
	}
	return drmNames[DRMUnknown]
}

// Supported reports whether d names a scheme a player can actually be configured with.
func (d DRMType) Supported() bool {
	return d == DRMWidevine || d == DRMPlayReady || d == DRMClearKey
}

func (d DRMType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DRMType) UnmarshalText(text []byte) error {
	*d = ParseDRMType(string(text))
	return nil
}

func (DRMType) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Enum:        []any{"none", "widevine", "playready", "clearkey", "unknown"},
		Default:     "none",
		Description: "DRM scheme; unknown and none leave playback unprotected",
	}
}
