package report

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/reillywatson/leadtime/internal/leadtime"
)

// Unit is the scale a chart is drawn in
type Unit struct {
	Name string
	Size time.Duration
}

var (
	Minutes = Unit{Name: "minutes", Size: time.Minute}
	Hours   = Unit{Name: "hours", Size: time.Hour}
	Days    = Unit{Name: "days", Size: 24 * time.Hour}
)

// ChooseUnit picks the unit from the sample with the largest magnitude:
// over a day of minutes means days, over an hour means hours.
func ChooseUnit(samples []leadtime.Sample) Unit {
	var maxMinutes float64
	for _, s := range samples {
		maxMinutes = math.Max(maxMinutes, math.Abs(s.Hours*60))
	}

	switch {
	case maxMinutes > 1440:
		return Days
	case maxMinutes > 60:
		return Hours
	default:
		return Minutes
	}
}

// RenderChart plots per-commit lead times, oldest commit first, with the mean
// drawn as a flat second series. It returns "" when there is nothing to plot.
// Without color the output is plain text with no ANSI escapes.
func RenderChart(samples []leadtime.Sample, height int, color bool) string {
	if len(samples) == 0 {
		return ""
	}

	ordered := make([]leadtime.Sample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CommitTime.Before(ordered[j].CommitTime)
	})

	unit := ChooseUnit(ordered)
	perUnit := float64(unit.Size) / float64(time.Hour)

	values := make([]float64, len(ordered))
	for i, s := range ordered {
		values[i] = s.Hours / perUnit
	}

	mean := leadtime.Summarize(ordered).MeanHours / perUnit
	meanLine := make([]float64, len(values))
	for i := range meanLine {
		meanLine[i] = mean
	}

	options := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Caption(fmt.Sprintf("Commit-to-Prod lead time (%s), oldest commit first, mean %.2f %s", unit.Name, mean, unit.Name)),
	}
	// legends always carry escape codes, so they only come with color
	if color {
		options = append(options,
			asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
			asciigraph.SeriesLegends("lead time", "mean"),
		)
	}

	return asciigraph.PlotMany([][]float64{values, meanLine}, options...)
}
