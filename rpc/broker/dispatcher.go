package broker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/util"
	"github.com/VictoriaMetrics/metrics"
)

// Default settings of the dispatcher
const (
	DefaultPublishTimeout = 5 * time.Second
	DefaultRetries        = 3
	retryBackoff          = 100 * time.Millisecond
)

var (
	publishedTotal     = metrics.NewCounter("skv_broker_published_total")
	publishErrorsTotal = metrics.NewCounter("skv_broker_publish_errors_total")
	publishDuration    = metrics.NewHistogram("skv_broker_publish_duration_seconds")
)

// DispatcherStats is a snapshot of the dispatcher counters
type DispatcherStats struct {
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
	Pending   int    `json:"pending"`
}

// Dispatcher decouples writers from the broker. Publish pushes the event onto a
// lock-free MPSC queue and returns immediately, a single goroutine drains the
// queue into the publisher. It implements store.IEventPublisher.
type Dispatcher struct {
	queue     *util.LockFreeMPSC[store.MeasurementEvent]
	publisher IPublisher
	timeout   time.Duration
	retries   int

	published atomic.Uint64
	failed    atomic.Uint64
	done      chan struct{}
}

var _ store.IEventPublisher = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher and starts its drain goroutine.
// A timeout <= 0 selects DefaultPublishTimeout, retries < 1 selects a single attempt.
func NewDispatcher(publisher IPublisher, timeout time.Duration, retries int) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	if retries < 1 {
		retries = 1
	}
	d := &Dispatcher{
		queue:     util.NewLockFreeMPSC[store.MeasurementEvent](),
		publisher: publisher,
		timeout:   timeout,
		retries:   retries,
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

// Publish hands the event to the drain goroutine. It never blocks.
// Returns ErrClosed after Close.
func (d *Dispatcher) Publish(event store.MeasurementEvent) error {
	if !d.queue.Push(&event) {
		return ErrClosed
	}
	return nil
}

// run drains the queue until it is closed and empty
func (d *Dispatcher) run() {
	defer close(d.done)
	for event := range d.queue.Recv() {
		d.deliver(*event)
	}
}

// deliver publishes a single event, retrying with a linear backoff
func (d *Dispatcher) deliver(event store.MeasurementEvent) {
	var err error
	for attempt := 1; attempt <= d.retries; attempt++ {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err = d.publisher.Publish(ctx, event)
		cancel()
		publishDuration.UpdateDuration(start)

		if err == nil {
			d.published.Add(1)
			publishedTotal.Inc()
			return
		}
		if attempt < d.retries {
			log.Debugf("publish of %s failed (attempt %d/%d): %v", event.Key, attempt, d.retries, err)
			time.Sleep(time.Duration(attempt) * retryBackoff)
		}
	}

	d.failed.Add(1)
	publishErrorsTotal.Inc()
	log.Errorf("dropping event %s after %d attempts: %v", event.Key, d.retries, err)
}

// Stats returns a snapshot of the dispatcher counters
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Published: d.published.Load(),
		Failed:    d.failed.Load(),
		Pending:   d.queue.Len(),
	}
}

// Close stops accepting events, waits until all queued events were handled (or
// ctx is done) and closes the publisher.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.queue.Close()

	select {
	case <-d.done:
	case <-ctx.Done():
		log.Warningf("dispatcher closed with %d pending events", d.queue.Len())
		_ = d.publisher.Close()
		return ctx.Err()
	}
	return d.publisher.Close()
}
