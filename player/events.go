package player

import (
	"encoding/json"
	"math"
	"time"
)

// EventKind identifies what happened in the player.
type EventKind int

const (
	// EventReady is sent once the player can seek in freshly loaded media.
	EventReady EventKind = iota + 1
	// EventPause is sent when playback is suspended.
	EventPause
	// EventUnpause is sent when playback continues after a pause.
	EventUnpause
	// EventPosition carries the latest playback position.
	EventPosition
	// EventEnd is sent when the media stops playing, for whatever reason.
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventPause:
		return "pause"
	case EventUnpause:
		return "unpause"
	case EventPosition:
		return "position"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is a notification from the player.
type Event struct {
	Kind EventKind
	// Position is set for EventPosition.
	Position time.Duration
	// Reason is set for EventEnd when the player reports one.
	Reason string
}

type observedProperty struct {
	id   int
	name string
}

// Observed mpv properties and their observer ids.
var observedProperties = []observedProperty{
	{1, "time-pos"},
	{2, "pause"},
}

// ipcEvent is an unsolicited message from mpv.
type ipcEvent struct {
	Event  string          `json:"event"`
	Name   string          `json:"name"`
	Data   json.RawMessage `json:"data"`
	Reason string          `json:"reason"`
}

// translate maps a raw mpv event to a player event.
func translate(raw ipcEvent) (Event, bool) {
	switch raw.Event {
	case "playback-restart":
		return Event{Kind: EventReady}, true
	case "end-file":
		return Event{Kind: EventEnd, Reason: raw.Reason}, true
	case "property-change":
		return translateProperty(raw.Name, raw.Data)
	default:
		return Event{}, false
	}
}

func translateProperty(name string, data json.RawMessage) (Event, bool) {
	switch name {
	case "time-pos":
		var seconds *float64
		if err := json.Unmarshal(data, &seconds); err != nil || seconds == nil {
			return Event{}, false
		}
		return Event{Kind: EventPosition, Position: secondsToDuration(*seconds)}, true
	case "pause":
		var paused bool
		if err := json.Unmarshal(data, &paused); err != nil {
			return Event{}, false
		}
		if paused {
			return Event{Kind: EventPause}, true
		}
		return Event{Kind: EventUnpause}, true
	default:
		return Event{}, false
	}
}

func secondsToDuration(seconds float64) time.Duration {
	if math.IsNaN(seconds) || seconds < 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
