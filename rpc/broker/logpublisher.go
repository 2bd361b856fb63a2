package broker

import (
	"context"

	"github.com/ValentinKolb/sKV/lib/store"
)

// LogPublisher writes every event to the broker log instead of a real broker.
// It is used when no broker is configured but events should stay visible.
type LogPublisher struct{}

// NewLogPublisher creates a new LogPublisher
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(_ context.Context, event store.MeasurementEvent) error {
	log.Infof("event %s = %v (observed %s)", event.Key, event.Value, event.ObservedAt.Format("15:04:05.000"))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
