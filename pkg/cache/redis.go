package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions describes a Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient opens a client. It returns nil when no address is set.
func NewRedisClient(o RedisOptions) *redis.Client {
	if o.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: o.Addr, Password: o.Password, DB: o.DB})
}

// RedisCache stores entries in Redis under a key prefix, using Redis
// expiry for TTLs.
type RedisCache struct {
	client *redis.Client
	prefix string
	owned  bool
}

// NewRedisCache wraps an existing client. Close leaves the client open.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// OpenRedis connects to Redis and checks the connection with PING.
func OpenRedis(ctx context.Context, o RedisOptions, prefix string) (*RedisCache, error) {
	client := NewRedisClient(o)
	if client == nil {
		return nil, errors.New("redis address not configured")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client, prefix: prefix, owned: true}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

func (c *RedisCache) Close() error {
	if c.owned {
		return c.client.Close()
	}
	return nil
}

var _ Cache = (*RedisCache)(nil)
