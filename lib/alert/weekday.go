package alert

import (
	"strings"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
)

var weekdays = func() map[string]time.Weekday {
	m := make(map[string]time.Weekday, 14)
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		m[name] = d
		m[name[:3]] = d
	}
	return m
}()

// ParseWeekday parses an English weekday name or its three letter abbreviation.
// Returns an InvalidWeekday error for anything else.
func ParseWeekday(day string) (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(day))]
	if !ok {
		return 0, store.Errorf(store.RetCInvalidWeekday, "invalid weekday %q", day)
	}
	return d, nil
}
