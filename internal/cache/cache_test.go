package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	SHA  string    `json:"sha"`
	When time.Time `json:"when"`
}

func testRoundTrip(t *testing.T, c Cache) {
	ctx := context.Background()
	want := []payload{{SHA: "abc123", When: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}

	var got []payload
	require.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", want, time.Hour))
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, want, got)

	require.NoError(t, c.Delete(ctx, "k"))
	require.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)

	// deleting a missing key is not an error
	require.NoError(t, c.Delete(ctx, "k"))
}

func TestFileCache_RoundTrip(t *testing.T) {
	c, err := NewFileCacheWithDir(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	testRoundTrip(t, c)
}

func TestFileCache_Expiry(t *testing.T) {
	c, err := NewFileCacheWithDir(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "short", "value", time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	var got string
	assert.ErrorIs(t, c.Get(ctx, "short", &got), ErrCacheMiss)
	assert.NoFileExists(t, c.keyToFilename("short"))
}

func TestFileCache_NoTTLNeverExpires(t *testing.T) {
	c, err := NewFileCacheWithDir(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "forever", 42, 0))

	var got int
	require.NoError(t, c.Get(ctx, "forever", &got))
	assert.Equal(t, 42, got)
}

func TestRedisCache_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(context.Background(), mr.Addr(), 0)
	require.NoError(t, err)
	defer c.Close()

	testRoundTrip(t, c)
}

func TestRedisCache_Expiry(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(context.Background(), mr.Addr(), 0)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	assert.True(t, mr.Exists("leadtime:k"))

	mr.FastForward(2 * time.Minute)

	var got string
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(context.Background(), addr, 0)
	assert.Error(t, err)
}

func TestNoopCache(t *testing.T) {
	ctx := context.Background()
	var c Cache = NoopCache{}

	require.NoError(t, c.Set(ctx, "k", "v", time.Hour))
	var got string
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestCacheKeyBuilder(t *testing.T) {
	kb := NewCacheKeyBuilder("github")
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("EST", -5*60*60))

	assert.Equal(t, "github:commits_list:acme:api:2024-01-01T05:00:00Z:open",
		kb.CommitsListKey("acme", "api", since, time.Time{}))
	assert.Equal(t, "github:tags_list:acme:api", kb.TagsListKey("acme", "api"))
	assert.Equal(t, "github:tag_history:acme:api:deadbeef:2024-01-01T05:00:00Z",
		kb.TagHistoryKey("acme", "api", "deadbeef", since))
	assert.Equal(t, "github:commit:acme:api:deadbeef", kb.CommitKey("acme", "api", "deadbeef"))
}
