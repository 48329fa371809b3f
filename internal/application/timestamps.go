package application

import (
	"strings"
	"time"

	"github.com/example/room-booking/internal/scheduler"
)

// Layouts without a zone are read in the configured booking location.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseTimestamp(field, value string, loc *time.Location) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, &TimestampError{Field: field, Value: value}
	}

	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t.UTC(), nil
	}

	if loc == nil {
		loc = time.UTC
	}
	var lastErr error
	for _, layout := range zonelessLayouts {
		t, err := time.ParseInLocation(layout, trimmed, loc)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, &TimestampError{Field: field, Value: value, Err: lastErr}
}

func parseInterval(input IntervalInput, loc *time.Location) (scheduler.Interval, error) {
	start, err := parseTimestamp("start", input.Start, loc)
	if err != nil {
		return scheduler.Interval{}, err
	}
	end, err := parseTimestamp("end", input.End, loc)
	if err != nil {
		return scheduler.Interval{}, err
	}

	interval := scheduler.Interval{Start: start, End: end}
	if !interval.Valid() {
		return scheduler.Interval{}, ErrInvalidInterval
	}
	return interval, nil
}
