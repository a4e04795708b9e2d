package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/reillywatson/leadtime/internal/config"
	"github.com/reillywatson/leadtime/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepo creates a repository with one commit at 2024-01-01T00:00:00Z
// tagged twice for production and once for staging
func initRepo(t *testing.T) string {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	w, err := repo.Worktree()
	require.NoError(t, err)

	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	hash, err := w.Commit("initial", &git.CommitOptions{Author: sig, Committer: sig, AllowEmptyCommits: true})
	require.NoError(t, err)

	for _, tag := range []string{"prod-v1.0.1-20240102000000", "prod-v1.0.0-20240101120000", "staging-v0.9.0-20240101010000"} {
		_, err := repo.CreateTag(tag, hash, nil)
		require.NoError(t, err)
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRun_GoGitTable(t *testing.T) {
	dir := initRepo(t)

	out, _, err := execute(t,
		"--source", "gogit", "--repo", dir, "--timezone", "UTC",
		"--start-time", "2024-01-01 00:00:00", "--end-time", "2024-01-31 23:59:59",
		"--chart")
	require.NoError(t, err)

	assert.Contains(t, out, report.Title)
	assert.Contains(t, out, "prod-v1.0.0-20240101120000")
	assert.Contains(t, out, "Average Commit-to-Prod Lead Time: 12.00 hours")
	assert.Contains(t, out, "oldest commit first")
}

func TestRun_GoGitJSONWithMetrics(t *testing.T) {
	dir := initRepo(t)
	metrics := filepath.Join(t.TempDir(), "leadtime.prom")

	out, _, err := execute(t,
		"--source", "gogit", "--repo", dir, "--timezone", "UTC",
		"--start-time", "2024-01-01 00:00:00", "--end-time", "2024-01-31 23:59:59",
		"--output", "json", "--metrics-file", metrics, "--workers", "4")
	require.NoError(t, err)

	var decoded struct {
		Summary struct {
			Count     int     `json:"count"`
			MeanHours float64 `json:"mean_hours"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 1, decoded.Summary.Count)
	assert.Equal(t, 12.0, decoded.Summary.MeanHours)

	raw, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "leadtime_commit_to_prod_mean_hours 12")
}

func TestRun_EmptyWindow(t *testing.T) {
	dir := initRepo(t)

	out, _, err := execute(t,
		"--source", "gogit", "--repo", dir, "--timezone", "UTC",
		"--start-time", "2023-01-01 00:00:00", "--end-time", "2023-12-31 23:59:59")
	require.NoError(t, err)
	assert.Contains(t, out, report.NoDataMessage)
}

func TestRun_ConfigFileWithFlagOverride(t *testing.T) {
	dir := initRepo(t)
	cfgPath := filepath.Join(t.TempDir(), "leadtime.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
source: gogit
tags:
  timezone: UTC
  timing: commit
output:
  format: markdown
`), 0o600))

	out, _, err := execute(t,
		"--config", cfgPath, "--repo", dir, "--tag-timing", "embedded",
		"--start-time", "2024-01-01 00:00:00", "--end-time", "2024-01-31 23:59:59")
	require.NoError(t, err)

	assert.Contains(t, out, "# Commit-to-Prod Lead Time Analysis")
	// embedded stamps win over the config file's commit timing
	assert.Contains(t, out, "Average Commit-to-Prod Lead Time: 12.00 hours")
}

func TestRun_ReversedWindowHasNoData(t *testing.T) {
	dir := initRepo(t)

	out, _, err := execute(t,
		"--source", "gogit", "--repo", dir, "--timezone", "UTC",
		"--start-time", "2024-02-01 00:00:00", "--end-time", "2024-01-01 00:00:00")
	require.NoError(t, err)
	assert.Contains(t, out, report.NoDataMessage)
	assert.NotContains(t, out, "Average")
}

func TestRun_JSONWithChartKeepsStdoutJSON(t *testing.T) {
	dir := initRepo(t)

	out, errOut, err := execute(t,
		"--source", "gogit", "--repo", dir, "--timezone", "UTC",
		"--start-time", "2024-01-01 00:00:00", "--end-time", "2024-01-31 23:59:59",
		"--output", "json", "--chart")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded, "summary")
	assert.Contains(t, errOut, "oldest commit first")
}

func TestRun_MarkdownChartIsFenced(t *testing.T) {
	dir := initRepo(t)

	out, _, err := execute(t,
		"--source", "gogit", "--repo", dir, "--timezone", "UTC",
		"--start-time", "2024-01-01 00:00:00", "--end-time", "2024-01-31 23:59:59",
		"--output", "markdown", "--chart")
	require.NoError(t, err)

	assert.Contains(t, out, "```text\n")
	assert.True(t, strings.HasSuffix(out, "```\n"))
	assert.NotContains(t, out, "\x1b[")
}

func TestRun_PipedTableChartHasNoEscapes(t *testing.T) {
	dir := initRepo(t)

	out, _, err := execute(t,
		"--source", "gogit", "--repo", dir, "--timezone", "UTC",
		"--start-time", "2024-01-01 00:00:00", "--end-time", "2024-01-31 23:59:59",
		"--chart")
	require.NoError(t, err)
	assert.Contains(t, out, "oldest commit first")
	assert.NotContains(t, out, "\x1b[")
}

func TestRun_RequiresWindow(t *testing.T) {
	_, _, err := execute(t, "--end-time", "2024-01-01 00:00:00")
	assert.ErrorContains(t, err, "start-time")
}

func TestRun_GitHubNeedsToken(t *testing.T) {
	t.Setenv(config.EnvGitHubToken, "")

	_, _, err := execute(t,
		"--source", "github", "--github-repo", "acme/api",
		"--start-time", "2024-01-01 00:00:00", "--end-time", "2024-01-31 23:59:59")
	assert.ErrorContains(t, err, config.EnvGitHubToken)
}

func TestRun_UnknownOutput(t *testing.T) {
	_, _, err := execute(t,
		"--output", "csv",
		"--start-time", "2024-01-01 00:00:00", "--end-time", "2024-01-31 23:59:59")
	assert.Error(t, err)
}
