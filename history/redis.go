package history

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/drmplay-cli/drmplay/log"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

const redisTimeout = 5 * time.Second

// ErrEmptyPrefix is returned for a redis store without a key prefix, which would claim the whole database.
var ErrEmptyPrefix = errors.New("redis history prefix must not be empty")

// Hash fields of a stored entry.
const (
	fieldTitle      = "title"
	fieldDescriptor = "descriptor"
	fieldPosition   = "position_ms"
	fieldUpdatedAt  = "updated_at"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every entry key.
	Prefix string
}

// RedisStore keeps one hash per entry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the server described by options.
func NewRedisStore(options *RedisOptions) (*RedisStore, error) {
	if options.Prefix == "" {
		return nil, ErrEmptyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     options.Addr,
		Password: options.Password,
		DB:       options.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", options.Addr, err)
	}

	return newRedisStore(client, options.Prefix), nil
}

func newRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}

func (s *RedisStore) RecordEntry(key, title string, opts ...RecordOption) error {
	if key == "" {
		return ErrEmptyKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	values := []any{
		fieldTitle, title,
		fieldUpdatedAt, time.Now().UnixMilli(),
	}
	if descriptor, ok := newRecordOptions(opts).descriptor.Get(); ok {
		values = append(values, fieldDescriptor, descriptor)
	}

	if err := s.client.HSet(ctx, s.redisKey(key), values...).Err(); err != nil {
		return fmt.Errorf("record history entry: %w", err)
	}
	return nil
}

func (s *RedisStore) SavePosition(key string, positionMs int64) error {
	if key == "" {
		return ErrEmptyKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	err := s.client.HSet(ctx, s.redisKey(key),
		fieldPosition, clampPosition(positionMs),
		fieldUpdatedAt, time.Now().UnixMilli(),
	).Err()
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadPosition(key string) int64 {
	if key == "" {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	position, err := s.client.HGet(ctx, s.redisKey(key), fieldPosition).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warnf("history: loading position of %q: %s", key, err)
		}
		return 0
	}
	return clampPosition(position)
}

func (s *RedisStore) Get(key string) mo.Option[*Entry] {
	if key == "" {
		return mo.None[*Entry]()
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, s.redisKey(key)).Result()
	if err != nil {
		log.Warnf("history: reading %q: %s", key, err)
		return mo.None[*Entry]()
	}

	if len(fields) == 0 {
		return mo.None[*Entry]()
	}

	return mo.Some(entryFromHash(key, fields))
}

func (s *RedisStore) Entries() ([]*Entry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	var entries []*Entry
	cursor := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for cursor.Next(ctx) {
		fields, err := s.client.HGetAll(ctx, cursor.Val()).Result()
		if isWrongType(err) {
			log.Debugf("history: skipping %s, not a hash", cursor.Val())
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read history entry: %w", err)
		}
		if len(fields) == 0 {
			continue
		}
		entries = append(entries, entryFromHash(strings.TrimPrefix(cursor.Val(), s.prefix), fields))
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return sortEntries(entries), nil
}

func (s *RedisStore) Remove(key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("remove history entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// isWrongType reports a reply to a hash command sent to a key of another type.
func isWrongType(err error) bool {
	var redisErr redis.Error
	return errors.As(err, &redisErr) && strings.HasPrefix(redisErr.Error(), "WRONGTYPE")
}

func entryFromHash(key string, fields map[string]string) *Entry {
	parseInt := func(name string) int64 {
		n, err := strconv.ParseInt(fields[name], 10, 64)
		if err != nil {
			return 0
		}
		return n
	}

	return &Entry{
		Key:            key,
		Title:          fields[fieldTitle],
		Descriptor:     fields[fieldDescriptor],
		LastPositionMs: lo.Max([]int64{parseInt(fieldPosition), 0}),
		UpdatedAt:      time.UnixMilli(parseInt(fieldUpdatedAt)),
	}
}
