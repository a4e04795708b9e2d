package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// RedisCache implements Cache on top of a Redis server, so several runners can share responses.
// Redis enforces the TTL itself; entries are stored in the same envelope as FileCache.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to addr and verifies the server is reachable
func NewRedisCache(ctx context.Context, addr string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", addr)
	}

	return &RedisCache{client: client, prefix: "leadtime:"}, nil
}

// Get retrieves a value from the cache
func (c *RedisCache) Get(ctx context.Context, key string, value interface{}) error {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, "failed to read from redis")
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return errors.Wrap(err, "failed to unmarshal cache entry")
	}

	if err := json.Unmarshal(entry.Data, value); err != nil {
		return errors.Wrap(err, "failed to unmarshal cached data")
	}
	return nil
}

// Set stores a value in the cache; a zero TTL keeps the key until deleted
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	entryData, err := newEntry(value, ttl)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, c.prefix+key, entryData, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to write to redis")
	}
	return nil
}

// Delete removes a value from the cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return errors.Wrap(err, "failed to delete from redis")
	}
	return nil
}

// Close closes the underlying connection pool
func (c *RedisCache) Close() error {
	return c.client.Close()
}
