package sink

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInflux emulates the InfluxDB v2 write endpoint
type fakeInflux struct {
	mu     sync.Mutex
	lines  []string
	query  string
	status int
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/v2/write" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.query = r.URL.RawQuery
	if f.status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"code":"invalid","message":"rejected"}`))
		return
	}
	f.lines = append(f.lines, strings.TrimSpace(string(body)))
	w.WriteHeader(http.StatusNoContent)
}

func newTestSink(t *testing.T, f *fakeInflux) *InfluxSink {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	s := NewInfluxSink(srv.URL, "token", "org", "bucket")
	t.Cleanup(s.Close)
	return s
}

// TestPoint tests the conversion of events to points
func TestPoint(t *testing.T) {
	p, err := Point(store.MeasurementEvent{Key: "sensor3:2024-03-04T09:15:30", Value: 61.25})
	require.NoError(t, err)

	assert.Equal(t, Measurement, p.Name())
	require.Len(t, p.TagList(), 1)
	assert.Equal(t, SensorTag, p.TagList()[0].Key)
	assert.Equal(t, "sensor3", p.TagList()[0].Value)
	require.Len(t, p.FieldList(), 1)
	assert.Equal(t, 61.25, p.FieldList()[0].Value)
	assert.True(t, p.Time().Equal(time.Date(2024, 3, 4, 9, 15, 30, 0, time.UTC)))

	_, err = Point(store.MeasurementEvent{Key: "sensor3:yesterday"})
	assert.Error(t, err)
	_, err = Point(store.MeasurementEvent{Key: ":2024-03-04T09:15:30"})
	assert.Error(t, err)
}

// TestWrite tests a successful write with second precision
func TestWrite(t *testing.T) {
	f := &fakeInflux{}
	s := newTestSink(t, f)

	err := s.Write(context.Background(), store.MeasurementEvent{Key: "sensor1:2024-03-04T09:00:00", Value: 55.5})
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.lines, 1)
	ts := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, "energy,sensor=sensor1 value=55.5 "+strconv.FormatInt(ts, 10), f.lines[0])
	assert.Contains(t, f.query, "precision=s")
	assert.Contains(t, f.query, "bucket=bucket")
}

// TestWriteErrorClassification tests which errors are permanent
func TestWriteErrorClassification(t *testing.T) {
	event := store.MeasurementEvent{Key: "sensor1:2024-03-04T09:00:00", Value: 1}

	tests := []struct {
		name      string
		status    int
		event     store.MeasurementEvent
		permanent bool
	}{
		{"bad request", http.StatusBadRequest, event, true},
		{"unauthorized", http.StatusUnauthorized, event, true},
		{"too many requests", http.StatusTooManyRequests, event, false},
		{"unavailable", http.StatusServiceUnavailable, event, false},
		{"bad timestamp", 0, store.MeasurementEvent{Key: "sensor1:soon", Value: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSink(t, &fakeInflux{status: tt.status})
			err := s.Write(context.Background(), tt.event)
			require.Error(t, err)
			assert.Equal(t, tt.permanent, broker.IsPermanent(err), "error: %v", err)
		})
	}
}
