package cache

import (
	"context"
	"strings"
	"time"

	"github.com/calavorn/realmmap/pkg/observability"
)

type instrumented struct {
	Cache
}

// Instrument reports hits, misses and writes of c to the registered
// observability cache hooks.
func Instrument(c Cache) Cache {
	return instrumented{Cache: c}
}

func (c instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, keyType(key))
		} else {
			observability.Cache().OnCacheMiss(ctx, keyType(key))
		}
	}
	return data, ok, err
}

func (c instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	}
	return err
}

// keyType finds the payload kind in a possibly scoped key.
func keyType(key string) string {
	for _, part := range strings.Split(key, ":") {
		switch part {
		case "dataset", "basemap", "http":
			return part
		}
	}
	return "other"
}
