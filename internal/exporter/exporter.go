// Package exporter writes run results in the Prometheus text format for
// node_exporter's textfile collector.
package exporter

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/reillywatson/leadtime/internal/leadtime"
)

var leadTimeBuckets = []float64{1, 2, 4, 8, 12, 24, 48, 72, 168, 336, 720}

type Exporter struct {
	registry *prometheus.Registry

	leadTime    prometheus.Histogram
	deployed    prometheus.Gauge
	mean        prometheus.Gauge
	windowStart prometheus.Gauge
	windowEnd   prometheus.Gauge
}

// New registers the lead-time collectors on a private registry
func New() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		leadTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadtime_commit_to_prod_hours",
			Help:    "Hours from commit authoring to the first production tag containing it.",
			Buckets: leadTimeBuckets,
		}),
		deployed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leadtime_deployed_commits",
			Help: "Commits in the window that reached production.",
		}),
		mean: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leadtime_commit_to_prod_mean_hours",
			Help: "Mean commit-to-prod lead time over the window.",
		}),
		windowStart: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leadtime_window_start_timestamp_seconds",
			Help: "Start of the analysed window.",
		}),
		windowEnd: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leadtime_window_end_timestamp_seconds",
			Help: "End of the analysed window.",
		}),
	}

	e.registry.MustRegister(e.leadTime, e.deployed, e.windowStart, e.windowEnd)
	return e
}

// Record observes every sample. The mean gauge is only exported when there
// is at least one sample, so an empty window never reads as a zero lead time.
func (e *Exporter) Record(window leadtime.Window, samples []leadtime.Sample) error {
	for _, s := range samples {
		e.leadTime.Observe(s.Hours)
	}

	summary := leadtime.Summarize(samples)
	e.deployed.Set(float64(summary.Count))
	e.windowStart.Set(float64(window.Start.Unix()))
	e.windowEnd.Set(float64(window.End.Unix()))

	if summary.HasData() {
		e.mean.Set(summary.MeanHours)
		if err := e.registry.Register(e.mean); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return errors.Wrap(err, "failed to register mean gauge")
			}
		}
	}
	return nil
}

// WriteFile atomically replaces path with the current metrics
func (e *Exporter) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", path)
	}
	return nil
}
