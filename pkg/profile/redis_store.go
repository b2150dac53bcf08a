package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type hashBackend interface {
	HGet(ctx context.Context, key, field string) (string, error)
	HSet(ctx context.Context, key string, ttl time.Duration, values map[string]string) error
	HDel(ctx context.Context, key string, fields ...string) error
	RPushCapped(ctx context.Context, key string, limit int64, ttl time.Duration, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LPopAll(ctx context.Context, key string, max int) ([]string, error)
	Del(ctx context.Context, keys ...string) error
	ProfileKey(visitorID string) string
	ProfileListKey(visitorID, name string) string
}

// lists are capped on append; this bound only keeps LPOP's count finite
const maxPopEntries = 1 << 12

// RedisStore keeps each visitor profile in one Redis hash plus one list per
// capped collection. Every write refreshes the profile TTL.
type RedisStore struct {
	backend hashBackend
	ttl     time.Duration
}

// NewRedisStore builds a Store over the gateway redis client.
func NewRedisStore(backend hashBackend, ttl time.Duration) *RedisStore {
	return &RedisStore{backend: backend, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, visitorID, key string) (string, error) {
	if err := requireVisitor(visitorID); err != nil {
		return "", err
	}
	value, err := s.backend.HGet(ctx, s.backend.ProfileKey(visitorID), key)
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	return value, err
}

func (s *RedisStore) Set(ctx context.Context, visitorID string, values map[string]string) error {
	if err := requireVisitor(visitorID); err != nil {
		return err
	}
	return s.backend.HSet(ctx, s.backend.ProfileKey(visitorID), s.ttl, values)
}

func (s *RedisStore) Delete(ctx context.Context, visitorID string, keys ...string) error {
	if err := requireVisitor(visitorID); err != nil {
		return err
	}
	return s.backend.HDel(ctx, s.backend.ProfileKey(visitorID), keys...)
}

func (s *RedisStore) Append(ctx context.Context, visitorID, list string, limit int, entries ...string) error {
	if err := requireVisitor(visitorID); err != nil {
		return err
	}
	return s.backend.RPushCapped(ctx, s.backend.ProfileListKey(visitorID, list), int64(limit), s.ttl, entries...)
}

func (s *RedisStore) List(ctx context.Context, visitorID, list string) ([]string, error) {
	if err := requireVisitor(visitorID); err != nil {
		return nil, err
	}
	return s.backend.LRange(ctx, s.backend.ProfileListKey(visitorID, list), 0, -1)
}

func (s *RedisStore) ClearList(ctx context.Context, visitorID, list string) error {
	if err := requireVisitor(visitorID); err != nil {
		return err
	}
	return s.backend.Del(ctx, s.backend.ProfileListKey(visitorID, list))
}

func (s *RedisStore) PopList(ctx context.Context, visitorID, list string) ([]string, error) {
	if err := requireVisitor(visitorID); err != nil {
		return nil, err
	}
	return s.backend.LPopAll(ctx, s.backend.ProfileListKey(visitorID, list), maxPopEntries)
}

func requireVisitor(visitorID string) error {
	if strings.TrimSpace(visitorID) == "" {
		return errMissingVisitor
	}
	return nil
}
