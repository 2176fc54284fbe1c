// Package history persists per-stream playback progress so a stream can be resumed.
package history

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/drmplay-cli/drmplay/auth"
	"github.com/drmplay-cli/drmplay/key"
	"github.com/drmplay-cli/drmplay/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
)

// ErrEmptyKey is returned when an entry is addressed by an empty key.
var ErrEmptyKey = errors.New("history key is empty")

// Backend names accepted by history.backend.
const (
	BackendFile   = "file"
	BackendSqlite = "sqlite"
	BackendRedis  = "redis"
)

// Backends lists every available storage backend.
var Backends = []string{BackendFile, BackendSqlite, BackendRedis}

// Entry is a single stream remembered by the history.
type Entry struct {
	Key            string    `json:"key"`
	Title          string    `json:"title"`
	Descriptor     string    `json:"descriptor,omitempty"`
	LastPositionMs int64     `json:"last_position_ms"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (e *Entry) String() string {
	return e.Title
}

// Position returns the stored position as a duration.
func (e *Entry) Position() time.Duration {
	return time.Duration(e.LastPositionMs) * time.Millisecond
}

// Store keeps entries keyed by stream URL. Positions are overwritten, never accumulated.
type Store interface {
	// RecordEntry creates or updates the title of an entry without touching its position.
	RecordEntry(key, title string, opts ...RecordOption) error
	// SavePosition stores the position in milliseconds. Negative values are stored as 0.
	SavePosition(key string, positionMs int64) error
	// LoadPosition returns the stored position, or 0 when nothing usable is stored.
	LoadPosition(key string) int64
	// Get returns the entry stored under key.
	Get(key string) mo.Option[*Entry]
	// Entries returns every entry, most recently updated first.
	Entries() ([]*Entry, error)
	// Remove deletes the entry stored under key. Removing a missing entry is not an error.
	Remove(key string) error
	Close() error
}

type recordOptions struct {
	descriptor mo.Option[string]
}

// RecordOption customizes RecordEntry.
type RecordOption func(*recordOptions)

// WithDescriptor stores the raw descriptor next to the title so the entry can be replayed.
func WithDescriptor(raw string) RecordOption {
	return func(o *recordOptions) {
		o.descriptor = mo.Some(raw)
	}
}

func newRecordOptions(opts []RecordOption) *recordOptions {
	o := &recordOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open returns the store selected by history.backend.
func Open() (Store, error) {
	switch backend := strings.ToLower(viper.GetString(key.HistoryBackend)); backend {
	case "", BackendFile:
		return NewFileStore(where.History()), nil
	case BackendSqlite:
		path := viper.GetString(key.HistorySqlitePath)
		if path == "" {
			path = where.Database()
		}
		return NewSqliteStore(path)
	case BackendRedis:
		password := viper.GetString(key.HistoryRedisPassword)
		if password == "" {
			password, _ = auth.Get(auth.RedisPassword)
		}

		return NewRedisStore(&RedisOptions{
			Addr:     viper.GetString(key.HistoryRedisAddr),
			Password: password,
			DB:       viper.GetInt(key.HistoryRedisDB),
			Prefix:   viper.GetString(key.HistoryRedisPrefix),
		})
	default:
		return nil, fmt.Errorf("unknown history backend %q, available options are: %s", backend, strings.Join(Backends, ", "))
	}
}

func clampPosition(positionMs int64) int64 {
	return lo.Max([]int64{positionMs, 0})
}

func sortEntries(entries []*Entry) []*Entry {
	slices.SortStableFunc(entries, func(a, b *Entry) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return entries
}
