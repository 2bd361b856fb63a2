package stats

import (
	"math"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
)

type fakeSource struct {
	data  map[string][]store.Measurement
	calls int
}

func (f *fakeSource) SensorMeasurements(sensorID string) []store.Measurement {
	f.calls++
	return f.data[sensorID]
}

func (f *fakeSource) add(sensorID string, values ...float64) {
	for _, v := range values {
		f.data[sensorID] = append(f.data[sensorID], store.Measurement{Key: sensorID + ":t", Value: v})
	}
}

// TestServiceMeanStd tests mean and sample standard deviation with caching
func TestServiceMeanStd(t *testing.T) {
	src := &fakeSource{data: map[string][]store.Measurement{}}
	src.add("s1", 40, 60)

	clock := &fakeClock{t: time.Unix(0, 0)}
	svc := NewService(src, 300*time.Second)
	svc.means.now = clock.now
	svc.stds.now = clock.now

	mean, cached, err := svc.Mean("s1")
	if err != nil || cached || mean != 50 {
		t.Fatalf("Mean = %v cached=%v err=%v", mean, cached, err)
	}

	std, _, err := svc.Std("s1")
	if err != nil || math.Abs(std-math.Sqrt(200)) > 1e-9 {
		t.Errorf("Std = %v err=%v, want %v", std, err, math.Sqrt(200))
	}

	// new data is not visible inside the TTL
	src.add("s1", 80)
	mean, cached, _ = svc.Mean("s1")
	if !cached || mean != 50 {
		t.Errorf("Expected cached mean 50, got %v cached=%v", mean, cached)
	}

	clock.advance(300 * time.Second)
	mean, cached, _ = svc.Mean("s1")
	if cached || mean != 60 {
		t.Errorf("Expected recomputed mean 60, got %v cached=%v", mean, cached)
	}
}

// TestServiceErrors tests the error kinds of the service
func TestServiceErrors(t *testing.T) {
	src := &fakeSource{data: map[string][]store.Measurement{}}
	src.add("single", 1)
	svc := NewService(src, 0)

	if svc.TTL() != DefaultTTL {
		t.Errorf("Expected default TTL, got %v", svc.TTL())
	}

	if _, _, err := svc.Mean("missing"); store.CodeOf(err) != store.RetCNotFound {
		t.Errorf("Expected NotFound, got %v", err)
	}
	if _, _, err := svc.Std("single"); store.CodeOf(err) != store.RetCInvalidInput {
		t.Errorf("Expected InvalidInput for one value, got %v", err)
	}
	if _, _, err := svc.Mean(""); store.CodeOf(err) != store.RetCInvalidInput {
		t.Errorf("Expected InvalidInput for empty sensor, got %v", err)
	}

	summary, err := svc.Summary("single")
	if err != nil || summary.Count != 1 || summary.Mean != 1 {
		t.Errorf("Unexpected summary %+v err=%v", summary, err)
	}
}
