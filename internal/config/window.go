package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/reillywatson/leadtime/internal/leadtime"
)

// TimestampLayout is the format of --start-time and --end-time
const TimestampLayout = "2006-01-02 15:04:05"

// ParseLocation accepts "Local", "UTC" or an IANA zone name
func ParseLocation(name string) (*time.Location, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "local":
		return time.Local, nil
	case "utc":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown timezone %q", name)
	}
	return loc, nil
}

// ParseTimestamp reads a "YYYY-MM-DD HH:MM:SS" wall clock time in loc
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid timestamp %q, expected YYYY-MM-DD HH:MM:SS", s)
	}
	return t, nil
}

// ParseWindow parses both bounds. A start after the end is allowed and
// yields a window that contains nothing.
func ParseWindow(start, end string, loc *time.Location) (leadtime.Window, error) {
	startTime, err := ParseTimestamp(start, loc)
	if err != nil {
		return leadtime.Window{}, errors.Wrap(err, "start time")
	}
	endTime, err := ParseTimestamp(end, loc)
	if err != nil {
		return leadtime.Window{}, errors.Wrap(err, "end time")
	}
	return leadtime.Window{Start: startTime, End: endTime}, nil
}
