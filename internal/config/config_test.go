package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reillywatson/leadtime/internal/leadtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
source: github
github:
  repo: acme/api
tags:
  timezone: UTC
git:
  timeout: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, SourceGitHub, cfg.Source)
	assert.Equal(t, "acme/api", cfg.GitHub.Repo)
	assert.Equal(t, 5*time.Second, cfg.Git.Timeout)
	assert.Equal(t, "prod-", cfg.Tags.Prefix)
	assert.Equal(t, "embedded", cfg.Tags.Timing)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, CacheFile, cfg.Cache.Backend)
	assert.Equal(t, FormatTable, cfg.Output.Format)
	assert.Equal(t, 15, cfg.Output.ChartHeight)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, SourceGit, cfg.Source)
	assert.Equal(t, ".", cfg.Repo)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"source":   "source: svn\n",
		"workers":  "workers: -2\n",
		"timing":   "tags:\n  timing: sometimes\n",
		"timezone": "tags:\n  timezone: Mars/Olympus\n",
		"cache":    "cache:\n  backend: memcached\n",
		"format":   "output:\n  format: csv\n",
		"yaml":     "source: [git\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", data))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvGitHubToken, " secret ")
	t.Setenv(EnvRedisAddr, "redis:6380")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "secret", cfg.GitHub.Token)
	assert.Equal(t, "redis:6380", cfg.Cache.RedisAddr)
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv(EnvGitHubToken, "")
	os.Unsetenv(EnvGitHubToken)
	t.Setenv(EnvRedisAddr, "from-shell:6379")

	path := writeFile(t, ".env", "GITHUB_TOKEN=from-file\nLEADTIME_REDIS_ADDR=from-file:6379\n")
	require.NoError(t, LoadEnvFile(path))

	// variables already set win over the file
	assert.Equal(t, "from-file", os.Getenv(EnvGitHubToken))
	assert.Equal(t, "from-shell:6379", os.Getenv(EnvRedisAddr))

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
	assert.NoError(t, LoadEnvFile(""))
}

func TestValidateGitHubRequirements(t *testing.T) {
	cfg := Default()
	cfg.Source = SourceGitHub
	assert.ErrorContains(t, cfg.Validate(), "repository")

	cfg.GitHub.Repo = "acme/api"
	assert.ErrorContains(t, cfg.Validate(), EnvGitHubToken)

	cfg.GitHub.Token = "t"
	assert.NoError(t, cfg.Validate())
}

func TestTagPolicy(t *testing.T) {
	cfg := Default()
	cfg.Tags.Prefix = "release-"
	cfg.Tags.Timing = "commit"
	cfg.Tags.Timezone = "UTC"

	policy, err := cfg.TagPolicy()
	require.NoError(t, err)
	assert.Equal(t, "release-", policy.Prefix)
	assert.Equal(t, leadtime.TimingCommit, policy.Timing)
	assert.Equal(t, time.UTC, policy.Location)
}

func TestParseWindow(t *testing.T) {
	window, err := ParseWindow("2024-01-01 00:00:00", "2024-01-31 23:59:59", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), window.Start)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), window.End)

	// equal bounds form a one-instant window
	_, err = ParseWindow("2024-01-01 00:00:00", "2024-01-01 00:00:00", time.UTC)
	assert.NoError(t, err)

	// a reversed window parses and contains nothing
	reversed, err := ParseWindow("2024-02-01 00:00:00", "2024-01-01 00:00:00", time.UTC)
	require.NoError(t, err)
	assert.True(t, reversed.Empty())
	assert.False(t, reversed.Contains(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))

	_, err = ParseWindow("2024-01-01", "2024-01-02 00:00:00", time.UTC)
	assert.ErrorContains(t, err, "start time")
}

func TestParseTimestampInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	ts, err := ParseTimestamp("2024-01-01 05:00:00", loc)
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation("Local")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = ParseLocation("utc")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = ParseLocation("Nowhere/Special")
	assert.Error(t, err)
}
