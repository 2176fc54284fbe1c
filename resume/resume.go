// Package resume applies a stored playback position exactly once per session.
package resume

import (
	"sync"

	"github.com/drmplay-cli/drmplay/log"
	"github.com/sirupsen/logrus"
)

// State of a Restorer.
type State int

const (
	Idle State = iota
	WaitingForReady
	Restored
	Skipped
	Detached
)

var stateNames = map[State]string{
	Idle:            "idle",
	WaitingForReady: "waiting for ready",
	Restored:        "restored",
	Skipped:         "skipped",
	Detached:        "detached",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// PositionLoader reads stored positions in milliseconds.
type PositionLoader interface {
	LoadPosition(key string) int64
}

// Restorer is bound to one stream key for its whole lifetime and never re-arms.
type Restorer struct {
	mu      sync.Mutex
	loader  PositionLoader
	key     string
	state   State
	outcome State
}

// New returns an idle restorer for key.
func New(loader PositionLoader, key string) *Restorer {
	return &Restorer{loader: loader, key: key, state: Idle, outcome: Idle}
}

// Arm starts waiting for the player to become ready. It only has an effect on an idle restorer.
func (r *Restorer) Arm() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Idle {
		r.state = WaitingForReady
	}
}

// Ready is called when the player reports it can seek. The first call on an armed restorer
// returns the position to seek to, if any, and detaches the restorer. Every other call
// returns false.
func (r *Restorer) Ready(live bool) (positionMs int64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != WaitingForReady {
		return 0, false
	}

	fields := logrus.Fields{"key": r.key, "live": live}

	if !live {
		positionMs = r.loader.LoadPosition(r.key)
	}

	if positionMs > 0 {
		r.outcome = Restored
		ok = true
	} else {
		r.outcome = Skipped
		positionMs = 0
	}
	r.state = Detached

	fields["outcome"] = r.outcome.String()
	fields["position_ms"] = positionMs
	log.WithFields(fields).Debug("resume: ready")

	return positionMs, ok
}

// Detach tears the restorer down. A restorer detached before Ready never fires.
func (r *Restorer) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = Detached
}

// State returns the current state.
func (r *Restorer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Outcome returns Restored or Skipped once Ready has fired, and Idle otherwise.
func (r *Restorer) Outcome() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.outcome
}

// Key returns the stream key the restorer is bound to.
func (r *Restorer) Key() string {
	return r.key
}
