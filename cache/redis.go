package cache

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/geofix/locmgr/location"
)

// RedisStore keeps the position as a JSON value under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
	owned  bool
}

// NewRedis returns a Store backed by client. Closing the store leaves client open.
func NewRedis(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Get returns the stored position.
func (s *RedisStore) Get(ctx context.Context) (*location.CachedPosition, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", s.key)
	}
	var p location.CachedPosition
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", s.key)
	}
	return &p, nil
}

// Set replaces the stored position.
func (s *RedisStore) Set(ctx context.Context, p location.CachedPosition) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return errors.Wrapf(s.client.Set(ctx, s.key, raw, 0).Err(), "writing %s", s.key)
}

// Close closes the client if the store created it.
func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
