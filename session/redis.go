package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists one session snapshot under a fixed key with a TTL
// equal to the outer expiry, so stale snapshots disappear server-side
// without a sweep.
type RedisStore struct {
	redis       redis.UniversalClient
	key         string
	outerExpiry time.Duration
}

// NewRedisStore creates a RedisStore. key scopes the snapshot to one
// client context; outerExpiry zero selects [DefaultOuterExpiry].
func NewRedisStore(client redis.UniversalClient, key string, outerExpiry time.Duration) *RedisStore {
	if outerExpiry <= 0 {
		outerExpiry = DefaultOuterExpiry
	}
	return &RedisStore{redis: client, key: key, outerExpiry: outerExpiry}
}

func (s *RedisStore) Load() (*Session, error) {
	data, err := s.redis.Get(context.Background(), s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return decodeSnapshot(data, time.Now(), s.outerExpiry), nil
}

func (s *RedisStore) Save(sess *Session) error {
	data, err := encodeSnapshot(sess, time.Now())
	if err != nil {
		return err
	}

	if err := s.redis.Set(context.Background(), s.key, data, s.outerExpiry).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Clear() error {
	if err := s.redis.Del(context.Background(), s.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
