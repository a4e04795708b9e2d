package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reillywatson/leadtime/internal/config"
	"github.com/spf13/cobra"
)

type options struct {
	startTime  string
	endTime    string
	configPath string
	envFile    string

	source     string
	repo       string
	githubRepo string
	githubURL  string

	tagPrefix string
	tagTiming string
	timezone  string

	workers    int
	gitTimeout time.Duration

	output      string
	chart       bool
	chartHeight int
	metricsFile string

	cacheBackend string
	cacheDir     string
	redisAddr    string

	verbose bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "lead-time",
		Short: "Measure commit-to-production lead time from deployment tags",
		Long: `lead-time reports how long commits authored in a time window took to reach
production. A commit counts as deployed once a tag carrying the production
prefix (default "prod-") contains it; its lead time runs from the commit's
author time to the earliest such tag.

Tags are named <prefix>v<semver>-<YYYYMMDDHHMMSS>, for example
prod-v1.4.2-20240101120000. With --tag-timing=commit the deploy time is the
author time of the tagged commit instead of the embedded stamp.

Sources:
  git     the git binary on PATH, run inside --repo (default)
  gogit   an in-process reader for the repository at --repo
  github  the GitHub REST API for --github-repo, token from GITHUB_TOKEN`,
		Example: `  lead-time --start-time "2024-01-01 00:00:00" --end-time "2024-01-31 23:59:59"
  lead-time --source github --github-repo acme/api --start-time "2024-01-01 00:00:00" --end-time "2024-02-01 00:00:00" --output markdown`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := buildConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(ctx, cfg, opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVar(&opts.startTime, "start-time", "", `Window start, "YYYY-MM-DD HH:MM:SS" (required)`)
	flags.StringVar(&opts.endTime, "end-time", "", `Window end, "YYYY-MM-DD HH:MM:SS" (required)`)
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Env file loaded before reading the environment (optional)")

	flags.StringVar(&opts.source, "source", config.SourceGit, "History source: git, gogit or github")
	flags.StringVar(&opts.repo, "repo", ".", "Local repository path for the git and gogit sources")
	flags.StringVar(&opts.githubRepo, "github-repo", "", "Repository for the github source, as owner/name")
	flags.StringVar(&opts.githubURL, "github-url", "", "GitHub Enterprise API base URL")

	flags.StringVar(&opts.tagPrefix, "tag-prefix", "prod-", "Prefix identifying production tags")
	flags.StringVar(&opts.tagTiming, "tag-timing", "embedded", "Deploy time source: embedded (stamp in the tag name) or commit (tagged commit author time)")
	flags.StringVar(&opts.timezone, "timezone", "Local", "Zone for the window bounds and embedded tag stamps: Local, UTC or an IANA name")

	flags.IntVar(&opts.workers, "workers", 1, "Concurrent tag lookups")
	flags.DurationVar(&opts.gitTimeout, "git-timeout", 30*time.Second, "Timeout for each git invocation")

	flags.StringVarP(&opts.output, "output", "o", config.FormatTable, "Output format: table, json or markdown")
	flags.BoolVar(&opts.chart, "chart", false, "Plot per-commit lead times below the report")
	flags.IntVar(&opts.chartHeight, "chart-height", 15, "Chart height in rows")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")

	flags.StringVar(&opts.cacheBackend, "cache", config.CacheFile, "GitHub response cache: file, redis or none")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "Directory for the file cache (default: user cache dir)")
	flags.StringVar(&opts.redisAddr, "redis-addr", "", "Redis address for the redis cache (env "+config.EnvRedisAddr+")")

	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging on stderr")

	_ = cmd.MarkFlagRequired("start-time")
	_ = cmd.MarkFlagRequired("end-time")

	return cmd
}

// buildConfig layers defaults, the config file, the environment and flags set
// on the command line, in increasing precedence
func buildConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	changed := cmd.Flags().Changed
	if changed("source") {
		cfg.Source = opts.source
	}
	if changed("repo") {
		cfg.Repo = opts.repo
	}
	if changed("github-repo") {
		cfg.GitHub.Repo = opts.githubRepo
	}
	if changed("github-url") {
		cfg.GitHub.BaseURL = opts.githubURL
	}
	if changed("tag-prefix") {
		cfg.Tags.Prefix = opts.tagPrefix
	}
	if changed("tag-timing") {
		cfg.Tags.Timing = opts.tagTiming
	}
	if changed("timezone") {
		cfg.Tags.Timezone = opts.timezone
	}
	if changed("workers") {
		cfg.Workers = opts.workers
	}
	if changed("git-timeout") {
		cfg.Git.Timeout = opts.gitTimeout
	}
	if changed("output") {
		cfg.Output.Format = opts.output
	}
	if changed("chart") {
		cfg.Output.Chart = opts.chart
	}
	if changed("chart-height") {
		cfg.Output.ChartHeight = opts.chartHeight
	}
	if changed("metrics-file") {
		cfg.Metrics.File = opts.metricsFile
	}
	if changed("cache") {
		cfg.Cache.Backend = opts.cacheBackend
	}
	if changed("cache-dir") {
		cfg.Cache.Dir = opts.cacheDir
	}
	if changed("redis-addr") {
		cfg.Cache.RedisAddr = opts.redisAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
