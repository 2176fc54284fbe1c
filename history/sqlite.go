package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/drmplay-cli/drmplay/filesystem"
	"github.com/drmplay-cli/drmplay/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/mo"
)

const sqliteTimeout = 5 * time.Second

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS history (
	key TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	descriptor TEXT NOT NULL DEFAULT '',
	position_ms INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_updated_at ON history(updated_at);
`

// SqliteStore keeps one row per entry in a sqlite database.
type SqliteStore struct {
	db *sql.DB
}

// NewSqliteStore opens, and if needed creates, the database file at path.
func NewSqliteStore(path string) (*SqliteStore, error) {
	if path != ":memory:" {
		if err := filesystem.API().MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Errorf("history: closing database after schema failure: %s", closeErr)
		}
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	log.Infof("history: using sqlite database %s", path)
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) RecordEntry(key, title string, opts ...RecordOption) error {
	if key == "" {
		return ErrEmptyKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	now := time.Now().UnixMilli()
	options := newRecordOptions(opts)

	var err error
	if descriptor, ok := options.descriptor.Get(); ok {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO history (key, title, descriptor, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET title = excluded.title, descriptor = excluded.descriptor, updated_at = excluded.updated_at`,
			key, title, descriptor, now)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO history (key, title, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
			key, title, now)
	}
	if err != nil {
		return fmt.Errorf("record history entry: %w", err)
	}
	return nil
}

func (s *SqliteStore) SavePosition(key string, positionMs int64) error {
	if key == "" {
		return ErrEmptyKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (key, position_ms, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET position_ms = excluded.position_ms, updated_at = excluded.updated_at`,
		key, clampPosition(positionMs), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

func (s *SqliteStore) LoadPosition(key string) int64 {
	entry, ok := s.Get(key).Get()
	if !ok {
		return 0
	}
	return entry.LastPositionMs
}

func (s *SqliteStore) Get(key string) mo.Option[*Entry] {
	if key == "" {
		return mo.None[*Entry]()
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		`SELECT key, title, descriptor, position_ms, updated_at FROM history WHERE key = ?`, key)

	entry, err := scanEntry(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Warnf("history: reading %q: %s", key, err)
		}
		return mo.None[*Entry]()
	}
	return mo.Some(entry)
}

func (s *SqliteStore) Entries() ([]*Entry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, title, descriptor, position_ms, updated_at FROM history ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (s *SqliteStore) Remove(key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove history entry: %w", err)
	}
	return nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		entry     Entry
		updatedAt int64
	)

	if err := row.Scan(&entry.Key, &entry.Title, &entry.Descriptor, &entry.LastPositionMs, &updatedAt); err != nil {
		return nil, err
	}

	entry.UpdatedAt = time.UnixMilli(updatedAt)
	return &entry, nil
}

// sqliteDSN builds a file URI so that '?', '#' and '%' in path stay part of the file name.
func sqliteDSN(path string) string {
	const params = "?_journal_mode=WAL&_busy_timeout=5000"
	if path == ":memory:" {
		return path + params
	}
	return "file:" + (&url.URL{Path: path}).EscapedPath() + params
}
