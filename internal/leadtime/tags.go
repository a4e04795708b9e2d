package leadtime

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// TagTiming selects where a deployment tag's timestamp comes from
type TagTiming string

const (
	// TimingEmbedded reads the 14-digit YYYYMMDDhhmmss suffix of the tag name
	TimingEmbedded TagTiming = "embedded"
	// TimingCommit uses the author time of the commit the tag points at
	TimingCommit TagTiming = "commit"
)

const (
	DefaultTagPrefix = "prod-"
	stampLayout      = "20060102150405"
)

// ParseTagTiming validates a timing name from flags or config
func ParseTagTiming(s string) (TagTiming, error) {
	switch t := TagTiming(strings.ToLower(strings.TrimSpace(s))); t {
	case TimingEmbedded, TimingCommit:
		return t, nil
	default:
		return "", errors.Errorf("unknown tag timing %q (want %q or %q)", s, TimingEmbedded, TimingCommit)
	}
}

// TagPolicy decides which tags count as production deployments and when they happened
type TagPolicy struct {
	Prefix   string
	Timing   TagTiming
	Location *time.Location
}

// DefaultTagPolicy matches prod-v<semver>-<timestamp> tags in local time
func DefaultTagPolicy() TagPolicy {
	return TagPolicy{
		Prefix:   DefaultTagPrefix,
		Timing:   TimingEmbedded,
		Location: time.Local,
	}
}

func (p TagPolicy) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// Matches reports whether the tag name carries the production prefix
func (p TagPolicy) Matches(name string) bool {
	return strings.HasPrefix(name, p.Prefix)
}

// ParseDeployTag parses a <prefix>v<semver>-<YYYYMMDDhhmmss> tag name.
// The timestamp is read in loc.
func ParseDeployTag(name, prefix string, loc *time.Location) (DeployTag, error) {
	if !strings.HasPrefix(name, prefix) {
		return DeployTag{}, errors.Errorf("tag %q does not start with %q", name, prefix)
	}
	m := deployTagPattern.FindStringSubmatch(strings.TrimPrefix(name, prefix))
	if m == nil {
		return DeployTag{}, errors.Errorf("tag %q does not match %sv<semver>-<YYYYMMDDhhmmss>", name, prefix)
	}

	version, err := semver.StrictNewVersion(m[1])
	if err != nil {
		return DeployTag{}, errors.Wrapf(err, "tag %q has an invalid version", name)
	}

	deployTime, err := time.ParseInLocation(stampLayout, m[2], loc)
	if err != nil {
		return DeployTag{}, errors.Wrapf(err, "tag %q has an invalid timestamp", name)
	}

	return DeployTag{Name: name, Version: version, Time: deployTime}, nil
}

// greedy version group so pre-release versions containing '-' still split at the last dash
var deployTagPattern = regexp.MustCompile(`^v(.+)-(\d{14})$`)

// Resolve returns the earliest production tag among names, or nil when none qualifies
func (p TagPolicy) Resolve(ctx context.Context, repo Repository, names []string, logger lager.Logger) (*DeployTag, error) {
	var candidates []DeployTag

	for _, name := range names {
		if !p.Matches(name) {
			continue
		}

		switch p.Timing {
		case TimingCommit:
			tagTime, err := repo.TagTime(ctx, name)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to resolve time of tag %s", name)
			}
			tag := DeployTag{Name: name, Time: tagTime}
			// the version is informational under commit timing
			if parsed, err := ParseDeployTag(name, p.Prefix, p.location()); err == nil {
				tag.Version = parsed.Version
			}
			candidates = append(candidates, tag)
		default:
			tag, err := ParseDeployTag(name, p.Prefix, p.location())
			if err != nil {
				logger.Debug("skipping-malformed-tag", lager.Data{"tag": name, "reason": err.Error()})
				continue
			}
			candidates = append(candidates, tag)
		}
	}

	return EarliestTag(candidates), nil
}

// EarliestTag picks the tag with the minimum time, breaking ties by name
func EarliestTag(tags []DeployTag) *DeployTag {
	if len(tags) == 0 {
		return nil
	}

	sorted := make([]DeployTag, len(tags))
	copy(sorted, tags)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Time.Equal(sorted[j].Time) {
			return sorted[i].Time.Before(sorted[j].Time)
		}
		return sorted[i].Name < sorted[j].Name
	})

	earliest := sorted[0]
	return &earliest
}
