package leadtime

import (
	"time"

	"github.com/Masterminds/semver/v3"
)

// Commit is a single entry from the repository history
type Commit struct {
	SHA  string    `json:"sha"`
	Time time.Time `json:"time"` // author timestamp
}

// DeployTag is a production deployment marker resolved to a point in time
type DeployTag struct {
	Name    string
	Version *semver.Version // nil when the name carries no parseable version
	Time    time.Time
}

// Window is an inclusive time range
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls in [Start, End]
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Empty reports whether no instant can fall inside the window
func (w Window) Empty() bool {
	return w.Start.After(w.End)
}

// Sample represents the commit-to-prod lead time for a single commit
type Sample struct {
	CommitSHA  string        `json:"commit"`
	CommitTime time.Time     `json:"commit_time"`
	Tag        string        `json:"tag"`
	TagVersion string        `json:"tag_version,omitempty"`
	DeployTime time.Time     `json:"deploy_time"`
	LeadTime   time.Duration `json:"-"`
	Hours      float64       `json:"lead_time_hours"`
}

// Summary holds aggregate statistics over a set of samples, in hours
type Summary struct {
	Count       int     `json:"count"`
	MeanHours   float64 `json:"mean_hours"`
	MedianHours float64 `json:"median_hours"`
	MinHours    float64 `json:"min_hours"`
	MaxHours    float64 `json:"max_hours"`
}

// HasData is false when no commit in the window reached production
func (s Summary) HasData() bool {
	return s.Count > 0
}
