// Package gogit reads a local repository in-process with go-git, without a git binary.
package gogit

import (
	"context"
	"strings"
	"sync"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"
	"github.com/reillywatson/leadtime/internal/leadtime"
)

// Client implements leadtime.Repository over a go-git repository.
// Only tags starting with tagPrefix are considered by TagsContaining.
// Repository access is serialized; concurrent callers queue on mu.
type Client struct {
	repo      *git.Repository
	tagPrefix string
	logger    lager.Logger

	mu   sync.Mutex
	tags map[string]*object.Commit // tag name -> tagged commit, loaded once
}

// Open opens the repository containing path
func Open(path, tagPrefix string, logger lager.Logger) (*Client, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open repository at %s", path)
	}
	return NewClient(repo, tagPrefix, logger), nil
}

// NewClient wraps an already opened repository
func NewClient(repo *git.Repository, tagPrefix string, logger lager.Logger) *Client {
	return &Client{
		repo:      repo,
		tagPrefix: tagPrefix,
		logger:    logger.Session("gogit"),
	}
}

// Commits walks history from HEAD
func (c *Client) Commits(ctx context.Context, window leadtime.Window) ([]leadtime.Commit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	head, err := c.repo.Head()
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve HEAD")
	}

	iter, err := c.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read log")
	}
	defer iter.Close()

	var commits []leadtime.Commit
	err = iter.ForEach(func(commit *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		commits = append(commits, leadtime.Commit{
			SHA:  commit.Hash.String(),
			Time: commit.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk history")
	}

	c.logger.Debug("listed-commits", lager.Data{"count": len(commits)})
	return commits, nil
}

// TagsContaining lists the prefixed tags whose commit has sha as an ancestor
func (c *Client) TagsContaining(ctx context.Context, sha string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tags, err := c.loadTags()
	if err != nil {
		return nil, err
	}

	commit, err := c.repo.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load commit %s", sha)
	}

	var names []string
	for name, tagged := range tags {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := commit.IsAncestor(tagged)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compare %s with tag %s", sha, name)
		}
		if ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// TagTime returns the author time of the tagged commit
func (c *Client) TagTime(ctx context.Context, tag string) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tags, err := c.loadTags()
	if err != nil {
		return time.Time{}, err
	}

	commit, ok := tags[tag]
	if !ok {
		ref, err := c.repo.Tag(tag)
		if err != nil {
			return time.Time{}, errors.Wrapf(err, "failed to find tag %s", tag)
		}
		if commit, err = c.peel(ref); err != nil {
			return time.Time{}, err
		}
	}
	return commit.Author.When, nil
}

// loadTags must be called with mu held
func (c *Client) loadTags() (map[string]*object.Commit, error) {
	if c.tags != nil {
		return c.tags, nil
	}

	iter, err := c.repo.Tags()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tags")
	}
	defer iter.Close()

	tags := make(map[string]*object.Commit)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if !strings.HasPrefix(name, c.tagPrefix) {
			return nil
		}
		commit, err := c.peel(ref)
		if err != nil {
			// tags on trees or blobs can never contain a commit
			c.logger.Debug("skipping-tag", lager.Data{"tag": name, "error": err.Error()})
			return nil
		}
		tags[name] = commit
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read tags")
	}

	c.logger.Debug("loaded-tags", lager.Data{"count": len(tags)})
	c.tags = tags
	return tags, nil
}

// peel resolves annotated and lightweight tags to their commit
func (c *Client) peel(ref *plumbing.Reference) (*object.Commit, error) {
	tagObject, err := c.repo.TagObject(ref.Hash())
	switch err {
	case nil:
		commit, err := tagObject.Commit()
		if err != nil {
			return nil, errors.Wrapf(err, "tag %s does not point at a commit", ref.Name().Short())
		}
		return commit, nil
	case plumbing.ErrObjectNotFound:
		commit, err := c.repo.CommitObject(ref.Hash())
		if err != nil {
			return nil, errors.Wrapf(err, "tag %s does not point at a commit", ref.Name().Short())
		}
		return commit, nil
	default:
		return nil, errors.Wrapf(err, "failed to read tag %s", ref.Name().Short())
	}
}
