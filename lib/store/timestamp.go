package store

import (
	"strings"
	"time"
)

// timestampLayouts are tried in order by ParseTimestamp
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// TimestampLayout is the layout used for generated measurement keys
const TimestampLayout = "2006-01-02T15:04:05"

// ParseTimestamp parses the timestamp part of a measurement key.
// Timestamps without zone information are interpreted as UTC.
func ParseTimestamp(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, ts)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, Errorf(RetCInvalidInput, "invalid timestamp %q: %v", ts, lastErr)
}

// FormatTimestamp formats t in the layout used for generated keys (UTC)
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
