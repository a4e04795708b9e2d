package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// FileCache implements Cache interface using the filesystem
type FileCache struct {
	baseDir string
}

// NewFileCache creates a new file-based cache in the OS cache directory
func NewFileCache(appName string) (*FileCache, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user cache directory")
	}

	return NewFileCacheWithDir(filepath.Join(cacheDir, appName))
}

// NewFileCacheWithDir creates a new file-based cache in a specific directory
func NewFileCacheWithDir(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create cache directory %s", dir)
	}

	return &FileCache{baseDir: dir}, nil
}

// Dir is the directory entries are written to
func (c *FileCache) Dir() string {
	return c.baseDir
}

// Get retrieves a value from the cache
func (c *FileCache) Get(ctx context.Context, key string, value interface{}) error {
	filename := c.keyToFilename(key)

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrCacheMiss
		}
		return errors.Wrap(err, "failed to read cache file")
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return errors.Wrap(err, "failed to unmarshal cache entry")
	}

	if entry.IsExpired() {
		_ = c.Delete(ctx, key)
		return ErrCacheMiss
	}

	if err := json.Unmarshal(entry.Data, value); err != nil {
		return errors.Wrap(err, "failed to unmarshal cached data")
	}

	return nil
}

// Set stores a value in the cache with an optional TTL
func (c *FileCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	entryData, err := newEntry(value, ttl)
	if err != nil {
		return err
	}

	filename := c.keyToFilename(key)

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create cache subdirectory")
	}

	// write then rename so a concurrent reader never sees a partial entry
	tmp, err := os.CreateTemp(dir, ".entry-*")
	if err != nil {
		return errors.Wrap(err, "failed to create cache file")
	}
	if _, err := tmp.Write(entryData); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to write cache file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to write cache file")
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to write cache file")
	}

	return nil
}

// Delete removes a value from the cache
func (c *FileCache) Delete(ctx context.Context, key string) error {
	filename := c.keyToFilename(key)
	err := os.Remove(filename)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete cache file")
	}
	return nil
}

// Close cleans up the cache resources (no-op for file cache)
func (c *FileCache) Close() error {
	return nil
}

// keyToFilename converts a cache key to a safe filename
func (c *FileCache) keyToFilename(key string) string {
	hash := sha256.Sum256([]byte(key))
	hashStr := hex.EncodeToString(hash[:])

	// Use first two characters for subdirectory to avoid too many files in one dir
	subdir := hashStr[:2]
	filename := hashStr[2:] + ".json"

	return filepath.Join(c.baseDir, subdir, filename)
}

// newEntry marshals value into an Entry envelope
func newEntry(value interface{}, ttl time.Duration) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal value")
	}

	entry := Entry{
		Data:      data,
		CreatedAt: time.Now(),
	}

	if ttl > 0 {
		expiresAt := time.Now().Add(ttl)
		entry.ExpiresAt = &expiresAt
	}

	entryData, err := json.Marshal(entry)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal cache entry")
	}
	return entryData, nil
}
