package cache

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	Dir     string // file and badger
	Redis   RedisOptions
	Prefix  string // redis key prefix
}

// Open creates the configured backend, wrapped with [Instrument].
func Open(ctx context.Context, o Options) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch o.Backend {
	case BackendFile, "":
		c, err = NewFileCache(o.Dir)
	case BackendBadger:
		c, err = OpenBadger(o.Dir)
	case BackendRedis:
		c, err = OpenRedis(ctx, o.Redis, o.Prefix)
	case BackendNone:
		c = NewNullCache()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, o.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", o.Backend, err)
	}
	return Instrument(c), nil
}

// NewNullCache returns a cache that stores nothing; every Get is a miss.
func NewNullCache() Cache { return nullCache{} }

type nullCache struct{}

func (nullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (nullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (nullCache) Delete(context.Context, string) error                     { return nil }
func (nullCache) Close() error                                             { return nil }
