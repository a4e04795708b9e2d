package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Common cache errors
var (
	ErrCacheMiss = errors.New("cache miss")
)

// Cache defines the interface for all cache implementations
type Cache interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string, value interface{}) error

	// Set stores a value in the cache with an optional TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key string) error

	// Close cleans up the cache resources
	Close() error
}

// Entry represents a cached entry with metadata
type Entry struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsExpired checks if the cache entry has expired
func (e *Entry) IsExpired() bool {
	if e.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*e.ExpiresAt)
}

// CacheKeyBuilder helps build consistent cache keys
type CacheKeyBuilder struct {
	prefix string
}

func NewCacheKeyBuilder(prefix string) *CacheKeyBuilder {
	return &CacheKeyBuilder{prefix: prefix}
}

func (b *CacheKeyBuilder) CommitsListKey(owner, repo string, since, until time.Time) string {
	return b.buildKey("commits_list", owner, repo, formatBound(since), formatBound(until))
}

func (b *CacheKeyBuilder) TagsListKey(owner, repo string) string {
	return b.buildKey("tags_list", owner, repo)
}

// TagHistoryKey identifies the commits reachable from a tag's target since a date.
// Keyed by SHA, so a moved tag never reuses a stale listing.
func (b *CacheKeyBuilder) TagHistoryKey(owner, repo, sha string, since time.Time) string {
	return b.buildKey("tag_history", owner, repo, sha, formatBound(since))
}

func (b *CacheKeyBuilder) CommitKey(owner, repo, sha string) string {
	return b.buildKey("commit", owner, repo, sha)
}

func (b *CacheKeyBuilder) buildKey(parts ...interface{}) string {
	key := b.prefix
	for _, part := range parts {
		key += ":" + toString(part)
	}
	return key
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.UTC().Format(time.RFC3339)
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return fmt.Sprintf("%d", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// NoopCache never stores anything; every Get is a miss
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, key string, value interface{}) error { return ErrCacheMiss }

func (NoopCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (NoopCache) Delete(ctx context.Context, key string) error { return nil }

func (NoopCache) Close() error { return nil }

// Factory function for creating default cache
func NewDefaultCache() (Cache, error) {
	return NewFileCache("leadtime")
}
