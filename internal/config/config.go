// Package config holds the lead-time tool settings. Values come from an
// optional YAML file, then the environment, then command line flags.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/reillywatson/leadtime/internal/leadtime"
	"gopkg.in/yaml.v3"
)

// Accepted values for the source, cache backend and output format settings,
// and the environment variables read by ApplyEnv.
const (
	SourceGit    = "git"
	SourceGoGit  = "gogit"
	SourceGitHub = "github"

	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"

	FormatTable    = "table"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"

	EnvGitHubToken = "GITHUB_TOKEN"
	EnvRedisAddr   = "LEADTIME_REDIS_ADDR"
)

// Config is the full tool configuration as read from YAML
type Config struct {
	Source  string        `yaml:"source"`
	Repo    string        `yaml:"repo"`
	Workers int           `yaml:"workers"`
	GitHub  GitHubConfig  `yaml:"github"`
	Git     GitConfig     `yaml:"git"`
	Tags    TagsConfig    `yaml:"tags"`
	Cache   CacheConfig   `yaml:"cache"`
	Output  OutputConfig  `yaml:"output"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// GitHubConfig selects the repository for the github source. Token only comes from the environment.
type GitHubConfig struct {
	Repo    string `yaml:"repo"`
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"-"`
}

// GitConfig bounds each git invocation of the git source
type GitConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// TagsConfig describes which tags are production deployments and how their time is read
type TagsConfig struct {
	Prefix   string `yaml:"prefix"`
	Timing   string `yaml:"timing"`
	Timezone string `yaml:"timezone"`
}

// CacheConfig selects the GitHub response cache
type CacheConfig struct {
	Backend   string `yaml:"backend"`
	Dir       string `yaml:"dir"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
}

// OutputConfig controls the report format and the optional chart
type OutputConfig struct {
	Format      string `yaml:"format"`
	Chart       bool   `yaml:"chart"`
	ChartHeight int    `yaml:"chart_height"`
}

// MetricsConfig names the Prometheus textfile to write, if any
type MetricsConfig struct {
	File string `yaml:"file"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file; an empty path yields the defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}

	cfg.applyDefaults()
	if err := cfg.validateFile(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}

	return &cfg, nil
}

// LoadEnvFile loads KEY=value pairs from path without overriding variables
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "failed to load env file %s", path)
	}
	return nil
}

// ApplyEnv overlays settings taken from the environment
func (c *Config) ApplyEnv() {
	if token := strings.TrimSpace(os.Getenv(EnvGitHubToken)); token != "" {
		c.GitHub.Token = token
	}
	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		c.Cache.RedisAddr = addr
	}
}

func (c *Config) applyDefaults() {
	if c.Source == "" {
		c.Source = SourceGit
	}
	if c.Repo == "" {
		c.Repo = "."
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.Git.Timeout == 0 {
		c.Git.Timeout = 30 * time.Second
	}
	if c.Tags.Prefix == "" {
		c.Tags.Prefix = leadtime.DefaultTagPrefix
	}
	if c.Tags.Timing == "" {
		c.Tags.Timing = string(leadtime.TimingEmbedded)
	}
	if c.Tags.Timezone == "" {
		c.Tags.Timezone = "Local"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheFile
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "localhost:6379"
	}
	if c.Output.Format == "" {
		c.Output.Format = FormatTable
	}
	if c.Output.ChartHeight == 0 {
		c.Output.ChartHeight = 15
	}
}

// validateFile checks everything that does not depend on the environment
func (c *Config) validateFile() error {
	switch c.Source {
	case SourceGit, SourceGoGit, SourceGitHub:
	default:
		return errors.Errorf("unknown source %q (want git, gogit or github)", c.Source)
	}
	if c.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Git.Timeout < 0 {
		return errors.Errorf("git.timeout must not be negative, got %s", c.Git.Timeout)
	}
	if _, err := leadtime.ParseTagTiming(c.Tags.Timing); err != nil {
		return err
	}
	if _, err := ParseLocation(c.Tags.Timezone); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case CacheFile, CacheRedis, CacheNone:
	default:
		return errors.Errorf("unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}
	switch c.Output.Format {
	case FormatTable, FormatJSON, FormatMarkdown:
	default:
		return errors.Errorf("unknown output format %q (want table, json or markdown)", c.Output.Format)
	}
	if c.Output.ChartHeight < 1 {
		return errors.Errorf("output.chart_height must be positive, got %d", c.Output.ChartHeight)
	}
	return nil
}

// Validate checks the final configuration once environment and flags are applied
func (c *Config) Validate() error {
	if err := c.validateFile(); err != nil {
		return err
	}
	if c.Source == SourceGitHub {
		if c.GitHub.Repo == "" {
			return errors.New("github source needs a repository (owner/name)")
		}
		if c.GitHub.Token == "" {
			return errors.Errorf("github source needs a token in %s", EnvGitHubToken)
		}
	}
	return nil
}

// TagPolicy builds the tag policy described by the Tags section
func (c *Config) TagPolicy() (leadtime.TagPolicy, error) {
	timing, err := leadtime.ParseTagTiming(c.Tags.Timing)
	if err != nil {
		return leadtime.TagPolicy{}, err
	}
	loc, err := ParseLocation(c.Tags.Timezone)
	if err != nil {
		return leadtime.TagPolicy{}, err
	}
	return leadtime.TagPolicy{Prefix: c.Tags.Prefix, Timing: timing, Location: loc}, nil
}
