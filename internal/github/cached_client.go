package github

import (
	"context"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"github.com/google/go-github/v39/github"
	"github.com/reillywatson/leadtime/internal/cache"
)

const (
	// anything addressed by SHA never changes
	immutableTTL = 7 * 24 * time.Hour
	// new deploy tags show up at any moment
	tagsListTTL = 5 * time.Minute
)

// CachedGitHubClient wraps a GitHubClientInterface with caching capabilities
type CachedGitHubClient struct {
	client GitHubClientInterface
	cache  cache.Cache
	kb     *cache.CacheKeyBuilder
	logger lager.Logger
}

// NewCachedGitHubClient creates a new GitHub client with caching
func NewCachedGitHubClient(client GitHubClientInterface, cacheImpl cache.Cache, logger lager.Logger) *CachedGitHubClient {
	return &CachedGitHubClient{
		client: client,
		cache:  cacheImpl,
		kb:     cache.NewCacheKeyBuilder("github"),
		logger: logger.Session("github-cache"),
	}
}

// FetchCommits fetches the commit list with caching
func (c *CachedGitHubClient) FetchCommits(ctx context.Context, owner, repo string, since, until time.Time) ([]*github.RepositoryCommit, error) {
	cacheKey := c.kb.CommitsListKey(owner, repo, since, until)
	var cached []*github.RepositoryCommit
	if c.lookup(ctx, cacheKey, &cached) {
		return cached, nil
	}

	commits, err := c.client.FetchCommits(ctx, owner, repo, since, until)
	if err != nil {
		return nil, err
	}

	c.store(ctx, cacheKey, commits, c.calculateCommitListTTL(until))
	return commits, nil
}

// FetchTagHistory fetches commits reachable from a tag with caching
func (c *CachedGitHubClient) FetchTagHistory(ctx context.Context, owner, repo, sha string, since time.Time) ([]*github.RepositoryCommit, error) {
	cacheKey := c.kb.TagHistoryKey(owner, repo, sha, since)
	var cached []*github.RepositoryCommit
	if c.lookup(ctx, cacheKey, &cached) {
		return cached, nil
	}

	commits, err := c.client.FetchTagHistory(ctx, owner, repo, sha, since)
	if err != nil {
		return nil, err
	}

	c.store(ctx, cacheKey, commits, immutableTTL)
	return commits, nil
}

// FetchTags fetches the tag list with a short-lived cache
func (c *CachedGitHubClient) FetchTags(ctx context.Context, owner, repo string) ([]*github.RepositoryTag, error) {
	cacheKey := c.kb.TagsListKey(owner, repo)
	var cached []*github.RepositoryTag
	if c.lookup(ctx, cacheKey, &cached) {
		return cached, nil
	}

	tags, err := c.client.FetchTags(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	c.store(ctx, cacheKey, tags, tagsListTTL)
	return tags, nil
}

// FetchCommit fetches a single commit with caching
func (c *CachedGitHubClient) FetchCommit(ctx context.Context, owner, repo, sha string) (*github.RepositoryCommit, error) {
	cacheKey := c.kb.CommitKey(owner, repo, sha)
	var cached *github.RepositoryCommit
	if c.lookup(ctx, cacheKey, &cached) && cached != nil {
		return cached, nil
	}

	commit, err := c.client.FetchCommit(ctx, owner, repo, sha)
	if err != nil {
		return nil, err
	}

	c.store(ctx, cacheKey, commit, immutableTTL)
	return commit, nil
}

// lookup reports a hit; cache failures are logged and treated as a miss
func (c *CachedGitHubClient) lookup(ctx context.Context, key string, value interface{}) bool {
	err := c.cache.Get(ctx, key, value)
	if err == nil {
		c.logger.Debug("cache-hit", lager.Data{"key": key})
		return true
	}
	if err != cache.ErrCacheMiss {
		c.logger.Error("cache-get-failed", err, lager.Data{"key": key})
	}
	return false
}

func (c *CachedGitHubClient) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := c.cache.Set(ctx, key, value, ttl); err != nil {
		c.logger.Error("cache-set-failed", err, lager.Data{"key": key})
	}
}

// calculateCommitListTTL calculates TTL for commit list cache based on how recent the data is
func (c *CachedGitHubClient) calculateCommitListTTL(until time.Time) time.Duration {
	// an open range keeps growing
	if until.IsZero() {
		return 1 * time.Hour
	}

	daysSinceEnd := time.Since(until).Hours() / 24

	// Historical data (older than 7 days): cache for 24 hours
	if daysSinceEnd > 7 {
		return 24 * time.Hour
	}

	// Recent data (last 7 days): cache for 1 hour
	return 1 * time.Hour
}

// Close cleans up the client
func (c *CachedGitHubClient) Close() error {
	return c.cache.Close()
}
