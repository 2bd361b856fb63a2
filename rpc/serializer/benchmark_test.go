package serializer

import (
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
)

// benchmarkEvents returns a set of events for targeted benchmarking
func benchmarkEvents() map[string]store.MeasurementEvent {
	return map[string]store.MeasurementEvent{
		"Minimal": {
			Key:   "s:t",
			Value: 1,
		},
		"Typical": {
			Key:        "sensor12:2024-03-04T09:15:00",
			Value:      57.31,
			ObservedAt: time.Now(),
		},
		"LongKey": {
			Key:        "building-7-floor-3-room-12-energy-meter-phase-2:2024-03-04T09:15:00.123456789+02:00",
			Value:      1234.5678,
			ObservedAt: time.Now(),
		},
	}
}

// BenchmarkSerialize benchmarks serialization of all formats
func BenchmarkSerialize(b *testing.B) {
	for name, factory := range testSerializers {
		s := factory()
		for eventName, event := range benchmarkEvents() {
			b.Run(name+"/"+eventName, func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, err := s.Serialize(event); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization of all formats
func BenchmarkDeserialize(b *testing.B) {
	for name, factory := range testSerializers {
		s := factory()
		for eventName, event := range benchmarkEvents() {
			data, err := s.Serialize(event)
			if err != nil {
				b.Fatal(err)
			}
			b.Run(name+"/"+eventName, func(b *testing.B) {
				b.ReportAllocs()
				var result store.MeasurementEvent
				for i := 0; i < b.N; i++ {
					if err := s.Deserialize(data, &result); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
