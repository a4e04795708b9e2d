// Package gitcli reads a local repository by shelling out to git.
package gitcli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"github.com/pkg/errors"
	"github.com/reillywatson/leadtime/internal/leadtime"
)

// Client implements leadtime.Repository on top of the git command line
type Client struct {
	dir    string
	runner Runner
	logger lager.Logger
}

// NewClient creates a client for the working tree at dir
func NewClient(dir string, runner Runner, logger lager.Logger) *Client {
	return &Client{
		dir:    dir,
		runner: runner,
		logger: logger.Session("gitcli", lager.Data{"dir": dir}),
	}
}

// Commits lists the full HEAD history with author timestamps
func (c *Client) Commits(ctx context.Context, window leadtime.Window) ([]leadtime.Commit, error) {
	out, err := c.runner.Run(ctx, c.dir, "log", "--pretty=format:%H%x09%aI")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list commits")
	}

	commits, err := parseLog(out)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("listed-commits", lager.Data{"count": len(commits)})
	return commits, nil
}

// TagsContaining runs git tag --contains
func (c *Client) TagsContaining(ctx context.Context, sha string) ([]string, error) {
	out, err := c.runner.Run(ctx, c.dir, "tag", "--contains", sha)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list tags containing %s", sha)
	}
	return splitLines(out), nil
}

// TagTime reads the author time of the tagged commit
func (c *Client) TagTime(ctx context.Context, tag string) (time.Time, error) {
	out, err := c.runner.Run(ctx, c.dir, "log", "-1", "--format=%aI", "refs/tags/"+tag)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to read time of tag %s", tag)
	}

	stamp := strings.TrimSpace(string(out))
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "unexpected timestamp %q for tag %s", stamp, tag)
	}
	return t, nil
}

// parseLog reads "<sha>\t<iso8601>" lines
func parseLog(out []byte) ([]leadtime.Commit, error) {
	var commits []leadtime.Commit

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		sha, stamp, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, errors.Errorf("malformed log line %q", line)
		}
		t, err := time.Parse(time.RFC3339, stamp)
		if err != nil {
			return nil, errors.Wrapf(err, "malformed timestamp for commit %s", sha)
		}

		commits = append(commits, leadtime.Commit{SHA: sha, Time: t})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read git log output")
	}
	return commits, nil
}

func splitLines(out []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
