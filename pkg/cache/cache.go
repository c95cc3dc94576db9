// Package cache stores fetched tier datasets and base maps between runs.
//
// All backends implement [Cache], a byte-oriented key/value store with
// per-entry TTL:
//
//   - [FileCache]: JSON entry files under a directory, for the CLI
//   - [BadgerCache]: an embedded Badger database, for long-running servers
//   - [RedisCache]: a shared Redis instance, for several server replicas
//   - [NewNullCache]: stores nothing, for --no-cache
//
// Keys are built by a [Keyer] so that different data sources never share
// entries. [Instrument] wraps any backend with the cache hooks from the
// observability package.
package cache

import (
	"context"
	"time"
)

// Cache is a key/value store for cached payloads. Get reports a miss with
// ok == false and a nil error; expired entries are misses. A ttl of zero
// stores the entry without expiry.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
