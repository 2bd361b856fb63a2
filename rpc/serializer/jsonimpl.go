package serializer

import (
	"encoding/json"

	"github.com/ValentinKolb/sKV/lib/store"
)

// NewJSONSerializer creates a new serializer using json encoding.
// The output is readable by any consumer, e.g. {"key":"s1:...","value":42.1,"observed_at":"..."}.
func NewJSONSerializer() IEventSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IEventSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IEventSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(event store.MeasurementEvent) ([]byte, error) {
	return json.Marshal(event)
}

func (j jsonSerializerImpl) Deserialize(b []byte, event *store.MeasurementEvent) error {
	return json.Unmarshal(b, event)
}

func (j jsonSerializerImpl) Name() string { return FormatJSON }
