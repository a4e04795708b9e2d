package github

import (
	"context"
	"net/http"
	"time"

	"github.com/google/go-github/v39/github"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// GitHubClientInterface defines the interface for GitHub operations
type GitHubClientInterface interface {
	FetchCommits(ctx context.Context, owner, repo string, since, until time.Time) ([]*github.RepositoryCommit, error)
	FetchCommit(ctx context.Context, owner, repo, sha string) (*github.RepositoryCommit, error)
	FetchTags(ctx context.Context, owner, repo string) ([]*github.RepositoryTag, error)
	FetchTagHistory(ctx context.Context, owner, repo, sha string, since time.Time) ([]*github.RepositoryCommit, error)
}

type GitHubClient struct {
	client *github.Client
}

func NewGitHubClient(token string) *GitHubClient {
	return &GitHubClient{
		client: github.NewClient(oauthClient(token)),
	}
}

// NewEnterpriseGitHubClient talks to a GitHub Enterprise Server API at baseURL
func NewEnterpriseGitHubClient(token, baseURL string) (*GitHubClient, error) {
	client, err := github.NewEnterpriseClient(baseURL, baseURL, oauthClient(token))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid GitHub base URL %s", baseURL)
	}
	return &GitHubClient{client: client}, nil
}

func oauthClient(token string) *http.Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	return oauth2.NewClient(context.Background(), ts)
}

// FetchCommits lists the default branch history; a zero until leaves the range open
func (c *GitHubClient) FetchCommits(ctx context.Context, owner, repo string, since, until time.Time) ([]*github.RepositoryCommit, error) {
	return c.listCommits(ctx, owner, repo, &github.CommitsListOptions{
		Since:       since,
		Until:       until,
		ListOptions: github.ListOptions{PerPage: 100},
	})
}

// FetchTagHistory lists every commit reachable from sha that was committed after since
func (c *GitHubClient) FetchTagHistory(ctx context.Context, owner, repo, sha string, since time.Time) ([]*github.RepositoryCommit, error) {
	return c.listCommits(ctx, owner, repo, &github.CommitsListOptions{
		SHA:         sha,
		Since:       since,
		ListOptions: github.ListOptions{PerPage: 100},
	})
}

func (c *GitHubClient) listCommits(ctx context.Context, owner, repo string, opts *github.CommitsListOptions) ([]*github.RepositoryCommit, error) {
	var allCommits []*github.RepositoryCommit

	for {
		commits, resp, err := c.client.Repositories.ListCommits(ctx, owner, repo, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch commits for %s/%s", owner, repo)
		}

		allCommits = append(allCommits, commits...)

		// Break if we've processed all pages
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allCommits, nil
}

// FetchTags lists all tags with the commit each one points at
func (c *GitHubClient) FetchTags(ctx context.Context, owner, repo string) ([]*github.RepositoryTag, error) {
	var allTags []*github.RepositoryTag
	opts := &github.ListOptions{PerPage: 100}

	for {
		tags, resp, err := c.client.Repositories.ListTags(ctx, owner, repo, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch tags for %s/%s", owner, repo)
		}

		allTags = append(allTags, tags...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allTags, nil
}

// FetchCommit fetches a single commit
func (c *GitHubClient) FetchCommit(ctx context.Context, owner, repo, sha string) (*github.RepositoryCommit, error) {
	commit, _, err := c.client.Repositories.GetCommit(ctx, owner, repo, sha, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch commit %s", sha)
	}

	return commit, nil
}
