package serializer

import (
	"math"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IEventSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testEvents creates a set of events covering the interesting field values
func testEvents() []store.MeasurementEvent {
	observed := time.Date(2024, 3, 4, 9, 15, 0, 123456789, time.UTC)
	return []store.MeasurementEvent{
		{Key: "sensor1:2024-03-04T09:15:00", Value: 42.17, ObservedAt: observed},
		{Key: "sensor2:2024-03-04T09:15:00", Value: 0, ObservedAt: observed},
		{Key: "s:t", Value: -273.15},
		{Key: "sensor15:2024-03-04 09:15:00", Value: math.MaxFloat64, ObservedAt: observed},
		{Key: "ünïcödé:2024-03-04T09:15:00+02:00", Value: math.SmallestNonzeroFloat64, ObservedAt: observed},
	}
}

func eventsEqual(a, b store.MeasurementEvent) bool {
	return a.Key == b.Key && a.Value == b.Value && a.ObservedAt.Equal(b.ObservedAt)
}

// TestSerializerRoundTrip tests that events can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := factory()

			for i, event := range testEvents() {
				data, err := s.Serialize(event)
				if err != nil {
					t.Errorf("Failed to serialize event %d: %v", i, err)
					continue
				}

				var result store.MeasurementEvent
				if err := s.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize event %d: %v", i, err)
					continue
				}

				if !eventsEqual(event, result) {
					t.Errorf("Event %d mismatch:\nOriginal: %+v\nResult:   %+v", i, event, result)
				}
			}
		})
	}
}

// TestByName tests serializer selection
func TestByName(t *testing.T) {
	for _, name := range []string{"json", "GOB", "Binary"} {
		s, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q) failed: %v", name, err)
		}
		if s.Name() == "" {
			t.Errorf("Serializer %q has no name", name)
		}
	}
	if _, err := ByName("xml"); err == nil {
		t.Error("Expected error for unknown format")
	}
}

// TestBinaryRejectsCorruptInput tests that truncated or foreign data is rejected
func TestBinaryRejectsCorruptInput(t *testing.T) {
	s := NewBinarySerializer()
	data, err := s.Serialize(testEvents()[0])
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"header only", data[:3]},
		{"truncated value", data[:len(data)-10]},
		{"wrong version", append([]byte{99}, data[1:]...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var event store.MeasurementEvent
			if err := s.Deserialize(tt.data, &event); err == nil {
				t.Error("Expected error for corrupt input")
			}
		})
	}
}

// TestBinaryIsCompact tests that the binary format is the smallest of the three
func TestBinaryIsCompact(t *testing.T) {
	event := testEvents()[0]
	sizes := map[string]int{}
	for name, factory := range testSerializers {
		data, err := factory().Serialize(event)
		if err != nil {
			t.Fatal(err)
		}
		sizes[name] = len(data)
	}
	if sizes["Binary"] >= sizes["JSON"] || sizes["Binary"] >= sizes["GOB"] {
		t.Errorf("Binary should be the most compact format, got %v", sizes)
	}
}
