package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"code.cloudfoundry.org/lager/v3"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/reillywatson/leadtime/internal/cache"
	"github.com/reillywatson/leadtime/internal/config"
	"github.com/reillywatson/leadtime/internal/exporter"
	"github.com/reillywatson/leadtime/internal/gitcli"
	"github.com/reillywatson/leadtime/internal/github"
	"github.com/reillywatson/leadtime/internal/gogit"
	"github.com/reillywatson/leadtime/internal/leadtime"
	"github.com/reillywatson/leadtime/internal/report"
)

func newLogger(w io.Writer, verbose bool) lager.Logger {
	level := lager.INFO
	if verbose {
		level = lager.DEBUG
	}
	logger := lager.NewLogger("lead-time")
	logger.RegisterSink(lager.NewWriterSink(w, level))
	return logger
}

func run(ctx context.Context, cfg *config.Config, opts *options, stdout, stderr io.Writer) error {
	policy, err := cfg.TagPolicy()
	if err != nil {
		return err
	}
	window, err := config.ParseWindow(opts.startTime, opts.endTime, policy.Location)
	if err != nil {
		return err
	}

	logger := newLogger(stderr, opts.verbose)
	if window.Empty() {
		logger.Info("empty-window", lager.Data{"start": opts.startTime, "end": opts.endTime})
	}

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	if cfg.Output.Format == config.FormatTable {
		fmt.Fprintf(stdout, "Analyzing %s commits from %s to %s...\n\n",
			cfg.Source, window.Start.Format(config.TimestampLayout), window.End.Format(config.TimestampLayout))
	}

	analyzer := leadtime.NewAnalyzer(repo, policy, logger)
	analyzer.Workers = cfg.Workers

	samples, err := analyzer.Analyze(ctx, window)
	if err != nil {
		logger.Error("analysis-failed", err)
		return err
	}

	r := report.New(window, samples)
	if err := report.Write(stdout, cfg.Output.Format, r); err != nil {
		return err
	}

	if cfg.Output.Chart && len(samples) > 0 {
		writeChart(stdout, stderr, cfg.Output, samples)
	}

	if cfg.Metrics.File != "" {
		exp := exporter.New()
		if err := exp.Record(window, samples); err != nil {
			return err
		}
		if err := exp.WriteFile(cfg.Metrics.File); err != nil {
			return err
		}
		logger.Info("wrote-metrics", lager.Data{"path": cfg.Metrics.File})
	}

	return nil
}

// writeChart keeps stdout parseable: JSON reports send the chart to stderr,
// markdown reports get it as a fenced block
func writeChart(stdout, stderr io.Writer, out config.OutputConfig, samples []leadtime.Sample) {
	switch out.Format {
	case config.FormatJSON:
		fmt.Fprintf(stderr, "%s\n", report.RenderChart(samples, out.ChartHeight, isTerminal(stderr)))
	case config.FormatMarkdown:
		fmt.Fprintf(stdout, "\n```text\n%s\n```\n", report.RenderChart(samples, out.ChartHeight, false))
	default:
		fmt.Fprintf(stdout, "\n%s\n", report.RenderChart(samples, out.ChartHeight, isTerminal(stdout)))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// openRepository builds the configured history source and a func releasing it
func openRepository(ctx context.Context, cfg *config.Config, logger lager.Logger) (leadtime.Repository, func(), error) {
	switch cfg.Source {
	case config.SourceGit:
		return gitcli.NewClient(cfg.Repo, gitcli.NewExecRunner(cfg.Git.Timeout), logger), func() {}, nil

	case config.SourceGoGit:
		client, err := gogit.Open(cfg.Repo, cfg.Tags.Prefix, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil

	case config.SourceGitHub:
		owner, name, err := github.ParseRepo(cfg.GitHub.Repo)
		if err != nil {
			return nil, nil, err
		}

		var client *github.GitHubClient
		if cfg.GitHub.BaseURL != "" {
			if client, err = github.NewEnterpriseGitHubClient(cfg.GitHub.Token, cfg.GitHub.BaseURL); err != nil {
				return nil, nil, err
			}
		} else {
			client = github.NewGitHubClient(cfg.GitHub.Token)
		}

		cacheImpl, err := openCache(ctx, cfg.Cache)
		if err != nil {
			return nil, nil, err
		}

		cached := github.NewCachedGitHubClient(client, cacheImpl, logger)
		closeFn := func() {
			if err := cached.Close(); err != nil {
				logger.Error("failed-to-close-cache", err)
			}
		}
		return github.NewSource(cached, owner, name, cfg.Tags.Prefix, logger), closeFn, nil

	default:
		return nil, nil, errors.Errorf("unknown source %q", cfg.Source)
	}
}

func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheNone:
		return cache.NoopCache{}, nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisDB)
	case config.CacheFile:
		if cfg.Dir != "" {
			return cache.NewFileCacheWithDir(cfg.Dir)
		}
		return cache.NewDefaultCache()
	default:
		return nil, errors.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
