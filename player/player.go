// Package player hands parsed streams to an external media player and reports what it does with them.
// The primary backend drives mpv over its JSON-IPC socket.
package player

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// ErrUnsupported is returned by backends that cannot perform an operation.
var ErrUnsupported = errors.New("operation not supported by this player")

// Player names accepted by player.default.
const (
	NameMPV  = "mpv"
	NameIINA = "iina"
)

// Available lists every supported player.
var Available = []string{NameMPV, NameIINA}

// Player is a running media player session.
type Player interface {
	// Play starts the player with the given media.
	Play(media *Media) error

	// Seek moves playback to an absolute position.
	Seek(position time.Duration) error

	// GetTimePos returns the current playback position.
	GetTimePos() (time.Duration, error)

	// IsLive reports whether the current media has no fixed, seekable timeline.
	IsLive() (bool, error)

	// Subscribe delivers player events to handler until the player exits.
	// Handler is called from a single goroutine.
	Subscribe(handler func(Event)) error

	// Close terminates the player and releases its resources.
	Close() error

	// Wait returns a channel that is closed when the player exits.
	Wait() <-chan struct{}
}

// New returns an idle player by name.
func New(name string) (Player, error) {
	switch strings.ToLower(name) {
	case NameMPV:
		return NewMPV(), nil
	case NameIINA:
		return NewIINA(), nil
	default:
		return nil, fmt.Errorf("unknown player %q, available options are: %s", name, strings.Join(Available, ", "))
	}
}

// Binary returns the executable that must be on PATH for the named player.
func Binary(name string) string {
	binaries := map[string]string{
		NameMPV:  "mpv",
		NameIINA: "open",
	}
	return lo.ValueOr(binaries, strings.ToLower(name), name)
}
