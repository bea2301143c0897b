// Package policy holds the filtering and ranking rules shared by all fetchers.
package policy

import "time"

// Common recency windows.
const (
	Day       = 24 * time.Hour
	ThreeDays = 72 * time.Hour
)

// Window is a recency predicate anchored at the fetch-time "now".
type Window struct {
	Length time.Duration
}

// Contains reports whether published lies in [now-Length, now].
// A zero published time is never recent.
func (w Window) Contains(published, now time.Time) bool {
	if published.IsZero() {
		return false
	}
	start := now.Add(-w.Length)
	return !published.Before(start) && !published.After(now)
}

// Start returns the inclusive lower bound of the window.
func (w Window) Start(now time.Time) time.Time {
	return now.Add(-w.Length)
}

// ParseTime tries the layouts seen across sources and reports failure
// instead of substituting the current time.
func ParseTime(value string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339,
		time.RFC3339Nano,
		time.RFC1123Z,
		time.RFC1123,
		"2006-01-02T15:04:05Z0700",
		"2006-01-02 15:04:05",
		"2 Jan 2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FromUnix converts epoch seconds; non-positive values are treated as unparseable.
func FromUnix(seconds float64) (time.Time, bool) {
	if seconds <= 0 {
		return time.Time{}, false
	}
	sec := int64(seconds)
	nsec := int64((seconds - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC(), true
}
