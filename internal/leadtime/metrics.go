package leadtime

import (
	"context"
	"slices"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Analyzer pairs commits with their first production deployment
type Analyzer struct {
	Repo    Repository
	Policy  TagPolicy
	Workers int // <= 1 means sequential
	Logger  lager.Logger
}

// NewAnalyzer creates a sequential analyzer
func NewAnalyzer(repo Repository, policy TagPolicy, logger lager.Logger) *Analyzer {
	return &Analyzer{
		Repo:    repo,
		Policy:  policy,
		Workers: 1,
		Logger:  logger,
	}
}

// FilterWindow keeps commits whose time falls inside the window, preserving order
func FilterWindow(commits []Commit, window Window) []Commit {
	var selected []Commit
	for _, commit := range commits {
		if window.Contains(commit.Time) {
			selected = append(selected, commit)
		}
	}
	return selected
}

// NewSample computes the lead time between a commit and its deployment.
// The duration is not clamped: a tag older than its commit yields a negative value.
func NewSample(commit Commit, tag DeployTag) Sample {
	leadTime := tag.Time.Sub(commit.Time)

	sample := Sample{
		CommitSHA:  commit.SHA,
		CommitTime: commit.Time,
		Tag:        tag.Name,
		DeployTime: tag.Time,
		LeadTime:   leadTime,
		Hours:      leadTime.Seconds() / 3600,
	}
	if tag.Version != nil {
		sample.TagVersion = tag.Version.String()
	}
	return sample
}

// Analyze returns one sample per commit in the window that reached production.
// Samples keep the history order of their commits. Any repository error aborts the run.
func (a *Analyzer) Analyze(ctx context.Context, window Window) ([]Sample, error) {
	logger := a.Logger.Session("analyze", lager.Data{
		"start": window.Start.Format(time.RFC3339),
		"end":   window.End.Format(time.RFC3339),
	})

	history, err := a.Repo.Commits(ctx, window)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read commit history")
	}

	commits := FilterWindow(history, window)
	logger.Info("commits-in-window", lager.Data{"history": len(history), "selected": len(commits)})

	found := make([]*Sample, len(commits))

	g, gctx := errgroup.WithContext(ctx)
	workers := a.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, commit := range commits {
		i, commit := i, commit
		g.Go(func() error {
			sample, err := a.resolveCommit(gctx, logger, commit)
			if err != nil {
				return err
			}
			found[i] = sample
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var results []Sample
	for _, sample := range found {
		if sample != nil {
			results = append(results, *sample)
		}
	}

	logger.Info("analysis-complete", lager.Data{"samples": len(results)})
	return results, nil
}

func (a *Analyzer) resolveCommit(ctx context.Context, logger lager.Logger, commit Commit) (*Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tags, err := a.Repo.TagsContaining(ctx, commit.SHA)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list tags containing %s", commit.SHA)
	}

	tag, err := a.Policy.Resolve(ctx, a.Repo, tags, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve deployment for %s", commit.SHA)
	}
	if tag == nil {
		logger.Debug("commit-not-deployed", lager.Data{"commit": commit.SHA})
		return nil, nil
	}

	sample := NewSample(commit, *tag)
	if sample.LeadTime < 0 {
		logger.Info("negative-lead-time", lager.Data{
			"commit": commit.SHA,
			"tag":    tag.Name,
			"hours":  sample.Hours,
		})
	}
	return &sample, nil
}

// Summarize calculates mean, median, min and max lead time in hours
func Summarize(samples []Sample) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	hours := make([]float64, 0, len(samples))
	var total float64
	for _, sample := range samples {
		hours = append(hours, sample.Hours)
		total += sample.Hours
	}
	slices.Sort(hours)

	return Summary{
		Count:       len(hours),
		MeanHours:   total / float64(len(hours)),
		MedianHours: calculateMedian(hours),
		MinHours:    hours[0],
		MaxHours:    hours[len(hours)-1],
	}
}

// calculateMedian expects a sorted, non-empty slice
func calculateMedian(sorted []float64) float64 {
	n := len(sorted)

	// If odd, return the middle element
	if n%2 != 0 {
		return sorted[n/2]
	}

	// If even, return the average of the two middle elements
	return (sorted[(n/2)-1] + sorted[n/2]) / 2
}
