package history

import (
	"sync"
	"time"

	"github.com/drmplay-cli/drmplay/filesystem"
	"github.com/drmplay-cli/drmplay/log"
	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

type document = gache.Cache[map[string]*Entry]

// FileStore keeps every entry in one JSON document. Every operation re-reads
// the document under a lock file, so several processes can share it.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by the JSON document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// open locks the document and reads it from disk. gache keeps what it read in
// memory, so a fresh cache is built each time to see other writers.
func (s *FileStore) open(fn func(doc *document, saved map[string]*Entry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := lockFile(s.path)
	if err != nil {
		return err
	}
	defer unlock()

	doc := gache.New[map[string]*Entry](&gache.Options{
		Path:       s.path,
		FileSystem: &filesystem.GacheFs{},
	})

	saved, expired, err := doc.Get()
	if err != nil {
		return err
	}
	if expired || saved == nil {
		saved = make(map[string]*Entry)
	}

	return fn(doc, saved)
}

func (s *FileStore) update(key string, fn func(*Entry)) error {
	if key == "" {
		return ErrEmptyKey
	}

	return s.open(func(doc *document, saved map[string]*Entry) error {
		entry, ok := saved[key]
		if !ok {
			entry = &Entry{Key: key}
			saved[key] = entry
		}
		fn(entry)
		entry.UpdatedAt = time.Now()

		return doc.Set(saved)
	})
}

func (s *FileStore) RecordEntry(key, title string, opts ...RecordOption) error {
	options := newRecordOptions(opts)
	return s.update(key, func(e *Entry) {
		e.Title = title
		if descriptor, ok := options.descriptor.Get(); ok {
			e.Descriptor = descriptor
		}
	})
}

func (s *FileStore) SavePosition(key string, positionMs int64) error {
	return s.update(key, func(e *Entry) {
		e.LastPositionMs = clampPosition(positionMs)
	})
}

func (s *FileStore) LoadPosition(key string) int64 {
	entry, ok := s.Get(key).Get()
	if !ok {
		return 0
	}
	return entry.LastPositionMs
}

func (s *FileStore) Get(key string) mo.Option[*Entry] {
	if key == "" {
		return mo.None[*Entry]()
	}

	var entry *Entry
	err := s.open(func(_ *document, saved map[string]*Entry) error {
		entry = saved[key]
		return nil
	})
	if err != nil {
		log.Warnf("history: reading %q: %s", key, err)
		return mo.None[*Entry]()
	}

	return mo.TupleToOption(entry, entry != nil)
}

func (s *FileStore) Entries() ([]*Entry, error) {
	var entries []*Entry
	err := s.open(func(_ *document, saved map[string]*Entry) error {
		entries = lo.Values(saved)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sortEntries(entries), nil
}

func (s *FileStore) Remove(key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	return s.open(func(doc *document, saved map[string]*Entry) error {
		if _, ok := saved[key]; !ok {
			return nil
		}

		delete(saved, key)
		return doc.Set(saved)
	})
}

func (s *FileStore) Close() error {
	return nil
}
