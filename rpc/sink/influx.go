package sink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/broker"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	influxhttp "github.com/influxdata/influxdb-client-go/v2/api/http"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("sink")

// Point layout written for every measurement
const (
	Measurement = "energy"
	SensorTag   = "sensor"
	ValueField  = "value"
)

// InfluxSink writes measurement events to an InfluxDB v2 bucket
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	org      string
	bucket   string
}

var _ broker.ISink = (*InfluxSink)(nil)

// NewInfluxSink creates a sink for the given server, organisation and bucket.
// Points are written with second precision.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().
			SetPrecision(time.Second).
			SetHTTPRequestTimeout(10))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		org:      org,
		bucket:   bucket,
	}
}

// Ping checks that the server is reachable
func (s *InfluxSink) Ping(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influxdb not reachable: %w", err)
	}
	if !ok {
		return errors.New("influxdb not ready")
	}
	return nil
}

// Point converts an event to an InfluxDB point. The time is taken from the key.
func Point(event store.MeasurementEvent) (*write.Point, error) {
	sensorID, ts := store.SplitKey(event.Key)
	if sensorID == "" {
		return nil, fmt.Errorf("event key %q has no sensor id", event.Key)
	}
	at, err := store.ParseTimestamp(ts)
	if err != nil {
		return nil, err
	}
	return influxdb2.NewPoint(Measurement,
		map[string]string{SensorTag: sensorID},
		map[string]interface{}{ValueField: event.Value},
		at.Truncate(time.Second)), nil
}

// Write stores the event. Malformed events and client errors (4xx except 429)
// are permanent, everything else may succeed on retry.
func (s *InfluxSink) Write(ctx context.Context, event store.MeasurementEvent) error {
	p, err := Point(event)
	if err != nil {
		return broker.Permanent(err)
	}

	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		if isPermanentStatus(err) {
			return broker.Permanent(fmt.Errorf("influxdb rejected %s: %w", event.Key, err))
		}
		return fmt.Errorf("failed to write %s to influxdb: %w", event.Key, err)
	}
	log.Debugf("wrote %s to %s/%s", event.Key, s.org, s.bucket)
	return nil
}

// isPermanentStatus returns true for client errors that a retry cannot fix
func isPermanentStatus(err error) bool {
	var httpErr *influxhttp.Error
	if !errors.As(err, &httpErr) {
		return false
	}
	code := httpErr.StatusCode
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}

// Close flushes and closes the client
func (s *InfluxSink) Close() {
	s.client.Close()
}
