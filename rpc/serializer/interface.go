package serializer

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/sKV/lib/store"
)

// IEventSerializer is the interface for all MeasurementEvent serializers
type IEventSerializer interface {
	// Serialize serializes an event into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(event store.MeasurementEvent) ([]byte, error)
	// Deserialize deserializes a byte array into an event
	// It takes a byte array and a pointer to an event as parameters
	// It returns an error if any
	Deserialize(b []byte, event *store.MeasurementEvent) error
	// Name returns the name of the format (json, gob or binary)
	Name() string
}

// Names of the available formats
const (
	FormatJSON   = "json"
	FormatGOB    = "gob"
	FormatBinary = "binary"
)

// ByName creates the serializer for a format name (case-insensitive)
func ByName(name string) (IEventSerializer, error) {
	switch strings.ToLower(name) {
	case FormatJSON:
		return NewJSONSerializer(), nil
	case FormatGOB:
		return NewGOBSerializer(), nil
	case FormatBinary:
		return NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s (use json, gob or binary)", name)
	}
}
