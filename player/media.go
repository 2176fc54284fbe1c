package player

import (
	"github.com/drmplay-cli/drmplay/descriptor"
	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Protection system IDs as registered with DASH-IF.
var (
	WidevineSystemID  = uuid.MustParse("edef8ba9-79d6-4ace-a3c8-27dcd51d21ed")
	PlayReadySystemID = uuid.MustParse("9a04f079-9840-4286-ab92-e65be0885f95")
	ClearKeySystemID  = uuid.MustParse("e2719d58-a985-b3c9-781a-b030af78d30e")
)

var systemIDs = map[descriptor.DRMType]uuid.UUID{
	descriptor.DRMWidevine:  WidevineSystemID,
	descriptor.DRMPlayReady: PlayReadySystemID,
	descriptor.DRMClearKey:  ClearKeySystemID,
}

// DRMConfiguration tells a player which protection system to open a session with.
type DRMConfiguration struct {
	SystemID   uuid.UUID
	LicenseURI string
}

// Media is what a player is asked to play.
type Media struct {
	URL     string
	Title   string
	Headers descriptor.Headers
	DRM     mo.Option[DRMConfiguration]
}

// NewMedia maps a parsed stream to player media. Streams without a supported DRM scheme
// play unprotected.
func NewMedia(cfg descriptor.StreamConfig, title string) *Media {
	media := &Media{
		URL:     cfg.URL,
		Title:   title,
		Headers: cfg.Headers.Clone(),
		DRM:     mo.None[DRMConfiguration](),
	}

	if drm, ok := cfg.DRMConfig().Get(); ok {
		if id, ok := systemIDs[drm.Type]; ok {
			media.DRM = mo.Some(DRMConfiguration{SystemID: id, LicenseURI: drm.LicenseURI})
		}
	}

	return media
}
