// Package report renders lead-time samples and their summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/pkg/errors"
	"github.com/reillywatson/leadtime/internal/leadtime"
)

const (
	Title         = "Commit-to-Prod Lead Time Analysis"
	NoDataMessage = "No data available in the given time window."

	timeLayout = "2006-01-02 15:04:05 -0700"
)

// Report is everything a single run produced
type Report struct {
	Window  leadtime.Window   `json:"window"`
	Samples []leadtime.Sample `json:"samples"`
	Summary leadtime.Summary  `json:"summary"`
}

func New(window leadtime.Window, samples []leadtime.Sample) Report {
	if samples == nil {
		samples = []leadtime.Sample{}
	}
	return Report{
		Window:  window,
		Samples: samples,
		Summary: leadtime.Summarize(samples),
	}
}

// Write renders r in the named format (table, json or markdown)
func Write(w io.Writer, format string, r Report) error {
	switch format {
	case "", "table":
		return WriteText(w, r)
	case "json":
		return WriteJSON(w, r)
	case "markdown":
		return WriteMarkdown(w, r)
	default:
		return errors.Errorf("unknown output format %q", format)
	}
}

// SummaryLine is the headline result: the mean, or the no-data sentinel
func SummaryLine(s leadtime.Summary) string {
	if !s.HasData() {
		return NoDataMessage
	}
	return fmt.Sprintf("Average Commit-to-Prod Lead Time: %.2f hours", s.MeanHours)
}

// WriteText prints the sample table followed by summary statistics
func WriteText(w io.Writer, r Report) error {
	fmt.Fprintln(w, Title)
	fmt.Fprintf(w, "Window: %s to %s\n\n", r.Window.Start.Format(timeLayout), r.Window.End.Format(timeLayout))

	table := NewTable(w, "COMMIT", "COMMIT TIME", "TAG", "DEPLOY TIME", "LEAD TIME (HOURS)")
	for _, s := range r.Samples {
		table.AddRow(s.CommitSHA, s.CommitTime.Format(timeLayout), s.Tag, s.DeployTime.Format(timeLayout), fmt.Sprintf("%.2f", s.Hours))
	}
	if err := table.Render(); err != nil {
		return errors.Wrap(err, "failed to write table")
	}
	if len(r.Samples) > 0 {
		fmt.Fprintln(w)
	}

	_, err := fmt.Fprintln(w, SummaryLine(r.Summary))
	if err != nil || !r.Summary.HasData() {
		return err
	}

	fmt.Fprintf(w, "Deployed commits: %d\n", r.Summary.Count)
	fmt.Fprintf(w, "Median: %.2f hours\n", r.Summary.MedianHours)
	_, err = fmt.Fprintf(w, "Min: %.2f hours, Max: %.2f hours\n", r.Summary.MinHours, r.Summary.MaxHours)
	return err
}

type jsonReport struct {
	Report
	Message string `json:"message"`
}

// WriteJSON emits the report as an indented JSON document
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport{Report: r, Message: SummaryLine(r.Summary)}); err != nil {
		return errors.Wrap(err, "failed to encode report")
	}
	return nil
}

// WriteMarkdown renders a markdown document suitable for a PR comment or wiki page
func WriteMarkdown(w io.Writer, r Report) error {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"stamp":   func(t time.Time) string { return t.Format(timeLayout) },
		"hours":   func(h float64) string { return fmt.Sprintf("%.2f", h) },
		"summary": SummaryLine,
	}).Parse(markdownTemplate)
	if err != nil {
		return errors.Wrap(err, "failed to parse markdown template")
	}
	return tmpl.Execute(w, r)
}

const markdownTemplate = `# Commit-to-Prod Lead Time Analysis

**Window:** {{ stamp .Window.Start }} to {{ stamp .Window.End }}
{{- if .Samples }}

| Commit | Commit Time | Tag | Deploy Time | Lead Time (Hours) |
|--------|-------------|-----|-------------|-------------------|
{{- range .Samples }}
| ` + "`{{ .CommitSHA }}`" + ` | {{ stamp .CommitTime }} | {{ .Tag }} | {{ stamp .DeployTime }} | {{ hours .Hours }} |
{{- end }}
{{- end }}

{{ summary .Summary }}
{{- if .Summary.HasData }}

- **Deployed commits:** {{ .Summary.Count }}
- **Median:** {{ hours .Summary.MedianHours }} hours
- **Min:** {{ hours .Summary.MinHours }} hours
- **Max:** {{ hours .Summary.MaxHours }} hours
{{- end }}
`
