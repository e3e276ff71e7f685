// Package cache stores the last known position so that a fresh enough fix can be served without
// waking the receiver.
package cache

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/geofix/locmgr/location"
)

// DefaultRedisKey is the key Open uses for redis stores.
const DefaultRedisKey = "locmgr:position"

// Store holds at most one cached position.
type Store interface {
	// Get returns nil and no error when nothing has been stored yet.
	Get(ctx context.Context) (*location.CachedPosition, error)
	Set(ctx context.Context, p location.CachedPosition) error
	Close() error
}

// Open returns the store described by uri:
//
//	memory:                       in-process, lost on exit (also the empty string)
//	sqlite:/var/lib/locmgr/pos.db SQLite file
//	postgres://user@host/db       PostgreSQL
//	redis://host:6379/0           Redis, under DefaultRedisKey
func Open(ctx context.Context, uri string) (Store, error) {
	switch {
	case uri == "" || uri == "memory:":
		return NewMemory(), nil
	case strings.HasPrefix(uri, "sqlite:"):
		return OpenSQLite(ctx, strings.TrimPrefix(uri, "sqlite:"))
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return OpenPostgres(ctx, uri)
	case strings.HasPrefix(uri, "redis://"), strings.HasPrefix(uri, "rediss://"):
		opts, err := redis.ParseURL(uri)
		if err != nil {
			return nil, errors.Wrap(err, "parsing redis cache uri")
		}
		s := NewRedis(redis.NewClient(opts), DefaultRedisKey)
		s.owned = true
		return s, nil
	default:
		return nil, errors.Errorf("unsupported cache uri %q", uri)
	}
}

type memory struct {
	mu  sync.Mutex
	pos *location.CachedPosition
}

// NewMemory returns a Store that lives as long as the process.
func NewMemory() Store {
	return &memory{}
}

func (m *memory) Get(ctx context.Context) (*location.CachedPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos == nil {
		return nil, nil
	}
	p := *m.pos
	return &p, nil
}

func (m *memory) Set(ctx context.Context, p location.CachedPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = &p
	return nil
}

func (m *memory) Close() error {
	return nil
}
