package eventlog

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for interval bounds,
// datestamp keys, and filename dates.
const DateLayout = "2006-01-02"

// Interval is a half-open calendar date range [Start, End). A single
// date parses as the interval covering exactly that day.
type Interval struct {
	start time.Time
	end   time.Time
}

// ParseInterval parses "YYYY-MM-DD" (one day) or
// "YYYY-MM-DD-YYYY-MM-DD" (start inclusive, end exclusive).
func ParseInterval(s string) (Interval, error) {
	switch {
	case len(s) == len(DateLayout):
		start, err := time.Parse(DateLayout, s)
		if err != nil {
			return Interval{}, fmt.Errorf("parse interval %q: %w", s, err)
		}
		return Interval{start: start, end: start.AddDate(0, 0, 1)}, nil

	case len(s) == 2*len(DateLayout)+1 && s[len(DateLayout)] == '-':
		start, err := time.Parse(DateLayout, s[:len(DateLayout)])
		if err != nil {
			return Interval{}, fmt.Errorf("parse interval %q: %w", s, err)
		}
		end, err := time.Parse(DateLayout, s[len(DateLayout)+1:])
		if err != nil {
			return Interval{}, fmt.Errorf("parse interval %q: %w", s, err)
		}
		if !start.Before(end) {
			return Interval{}, fmt.Errorf("interval %q: start is not before end", s)
		}
		return Interval{start: start, end: end}, nil

	default:
		return Interval{}, fmt.Errorf("interval %q: want YYYY-MM-DD or YYYY-MM-DD-YYYY-MM-DD", s)
	}
}

// Start returns the first date of the interval as "YYYY-MM-DD".
func (iv Interval) Start() string {
	return iv.start.Format(DateLayout)
}

// End returns the exclusive end date as "YYYY-MM-DD".
func (iv Interval) End() string {
	return iv.end.Format(DateLayout)
}

// Contains reports whether the given "YYYY-MM-DD" date falls inside the
// interval. Comparison is lexicographic, which matches chronological
// order for this layout.
func (iv Interval) Contains(date string) bool {
	return date >= iv.Start() && date < iv.End()
}

// ContainsTimestamp reports whether the date portion of an ISO-8601
// timestamp falls inside the interval.
func (iv Interval) ContainsTimestamp(ts string) bool {
	if len(ts) < len(DateLayout) {
		return false
	}
	return iv.Contains(ts[:len(DateLayout)])
}

// Expand widens the interval by the given number of days on both ends.
// Filename dates only approximate the dates of the events inside a log
// file, so file selection runs against a widened window while the
// per-event date check stays strict.
func (iv Interval) Expand(days int) Interval {
	if days <= 0 {
		return iv
	}
	return Interval{
		start: iv.start.AddDate(0, 0, -days),
		end:   iv.end.AddDate(0, 0, days),
	}
}

// Dates returns every date of the interval in order.
func (iv Interval) Dates() []string {
	var dates []string
	for d := iv.start; d.Before(iv.end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates
}

func (iv Interval) String() string {
	return iv.Start() + "-" + iv.End()
}

// Datestamp returns the calendar date of an ISO-8601 timestamp.
func Datestamp(ts string) string {
	if i := strings.IndexByte(ts, 'T'); i >= 0 {
		return ts[:i]
	}
	return ts
}
