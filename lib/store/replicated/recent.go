package replicated

import (
	"sync"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
)

// DefaultRecentLimit is the default capacity of the recent writes log
const DefaultRecentLimit = 100

// recentLog is a bounded ring buffer of the most recent writes
type recentLog struct {
	mu      sync.Mutex
	entries []store.RecentMeasurement
	next    int
	full    bool
}

func newRecentLog(limit int) *recentLog {
	if limit < 1 {
		limit = DefaultRecentLimit
	}
	return &recentLog{entries: make([]store.RecentMeasurement, limit)}
}

// add appends an entry, overwriting the oldest one if the log is full
func (r *recentLog) add(key string, value float64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = store.RecentMeasurement{Key: key, Value: value, ObservedAt: at}
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

// list returns the entries newest first
func (r *recentLog) list() []store.RecentMeasurement {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.next
	if r.full {
		n = len(r.entries)
	}

	out := make([]store.RecentMeasurement, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.entries)) % len(r.entries)
		out = append(out, r.entries[idx])
	}
	return out
}
