package github

import (
	"context"
	"strings"
	"sync"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"github.com/pkg/errors"
	"github.com/reillywatson/leadtime/internal/leadtime"
)

// Source reads history and tags of a GitHub repository through the REST API.
//
// GitHub has no "tags containing commit" endpoint, so the source inverts the
// question: it lists the history reachable from every tag carrying the
// production prefix (bounded below by the window start) and indexes which
// tags reach which commits. Only prefixed tags are indexed.
type Source struct {
	client    GitHubClientInterface
	owner     string
	repo      string
	tagPrefix string
	logger    lager.Logger

	mu      sync.Mutex
	since   time.Time
	indexed bool
	index   map[string][]string // commit SHA -> tag names
	tagSHAs map[string]string   // tag name -> target commit SHA
}

// NewSource creates a Source for owner/repo
func NewSource(client GitHubClientInterface, owner, repo, tagPrefix string, logger lager.Logger) *Source {
	return &Source{
		client:    client,
		owner:     owner,
		repo:      repo,
		tagPrefix: tagPrefix,
		logger:    logger.Session("github", lager.Data{"repo": owner + "/" + repo}),
	}
}

// ParseRepo splits an owner/repo argument
func ParseRepo(s string) (string, string, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Errorf("invalid repository %q, use 'owner/repo'", s)
	}
	return parts[0], parts[1], nil
}

// Commits lists history committed since the window start; the upper end is left open
// because a commit authored inside the window may be committed after it.
func (s *Source) Commits(ctx context.Context, window leadtime.Window) ([]leadtime.Commit, error) {
	s.mu.Lock()
	s.since = window.Start
	s.mu.Unlock()

	repoCommits, err := s.client.FetchCommits(ctx, s.owner, s.repo, window.Start, time.Time{})
	if err != nil {
		return nil, err
	}

	commits := make([]leadtime.Commit, 0, len(repoCommits))
	for _, rc := range repoCommits {
		commits = append(commits, leadtime.Commit{
			SHA:  rc.GetSHA(),
			Time: rc.GetCommit().GetAuthor().GetDate(),
		})
	}

	s.logger.Debug("fetched-commits", lager.Data{"count": len(commits)})
	return commits, nil
}

// TagsContaining returns the production tags whose history includes sha
func (s *Source) TagsContaining(ctx context.Context, sha string) ([]string, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.index[sha]...), nil
}

// TagTime returns the author time of the commit a tag points at
func (s *Source) TagTime(ctx context.Context, tag string) (time.Time, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return time.Time{}, err
	}

	s.mu.Lock()
	sha, ok := s.tagSHAs[tag]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, errors.Errorf("tag %s not found in %s/%s", tag, s.owner, s.repo)
	}

	commit, err := s.client.FetchCommit(ctx, s.owner, s.repo, sha)
	if err != nil {
		return time.Time{}, err
	}
	return commit.GetCommit().GetAuthor().GetDate(), nil
}

func (s *Source) ensureIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexed {
		return nil
	}

	tags, err := s.client.FetchTags(ctx, s.owner, s.repo)
	if err != nil {
		return err
	}

	index := make(map[string][]string)
	tagSHAs := make(map[string]string)

	for _, tag := range tags {
		name := tag.GetName()
		if !strings.HasPrefix(name, s.tagPrefix) {
			continue
		}

		sha := tag.GetCommit().GetSHA()
		tagSHAs[name] = sha

		history, err := s.client.FetchTagHistory(ctx, s.owner, s.repo, sha, s.since)
		if err != nil {
			return errors.Wrapf(err, "failed to fetch history of tag %s", name)
		}
		for _, commit := range history {
			index[commit.GetSHA()] = append(index[commit.GetSHA()], name)
		}
	}

	s.logger.Info("indexed-tags", lager.Data{"tags": len(tagSHAs), "commits": len(index)})

	s.index = index
	s.tagSHAs = tagSHAs
	s.indexed = true
	return nil
}
