package replicated

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// managerMetrics holds the counters of a single manager. Every manager owns its
// own metrics.Set, so several managers (e.g. in tests) never collide.
type managerMetrics struct {
	set *metrics.Set

	stored          *metrics.Counter
	writeFailures   *metrics.Counter
	reads           *metrics.Counter
	readMisses      *metrics.Counter
	deletes         *metrics.Counter
	alerts          *metrics.Counter
	publishFailures *metrics.Counter
	reconfigs       *metrics.Counter
	writeDuration   *metrics.Histogram
}

func newManagerMetrics(m *Manager) *managerMetrics {
	set := metrics.NewSet()
	mm := &managerMetrics{
		set:             set,
		stored:          set.NewCounter("skv_measurements_stored_total"),
		writeFailures:   set.NewCounter("skv_write_failures_total"),
		reads:           set.NewCounter("skv_measurement_reads_total"),
		readMisses:      set.NewCounter("skv_measurement_read_misses_total"),
		deletes:         set.NewCounter("skv_measurements_deleted_total"),
		alerts:          set.NewCounter("skv_alerts_total"),
		publishFailures: set.NewCounter("skv_publish_failures_total"),
		reconfigs:       set.NewCounter("skv_replication_reconfigurations_total"),
		writeDuration:   set.NewHistogram("skv_write_duration_seconds"),
	}
	set.NewGauge("skv_nodes_alive", func() float64 {
		alive := 0
		for _, n := range m.nodes {
			if n.IsAlive() {
				alive++
			}
		}
		return float64(alive)
	})
	set.NewGauge("skv_nodes_total", func() float64 {
		return float64(len(m.nodes))
	})
	return mm
}

// WritePrometheus writes the metrics of the manager in Prometheus text format
func (m *Manager) WritePrometheus(w io.Writer) {
	m.metrics.set.WritePrometheus(w)
}
