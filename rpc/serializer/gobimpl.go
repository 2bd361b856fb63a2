package serializer

import (
	"bytes"
	"encoding/gob"

	"github.com/ValentinKolb/sKV/lib/store"
)

// NewGOBSerializer creates a new serializer using Go's binary gob format
func NewGOBSerializer() IEventSerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements the IEventSerializer interface using gob encoding
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IEventSerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl) Serialize(event store.MeasurementEvent) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(event); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g gobSerializerImpl) Deserialize(b []byte, event *store.MeasurementEvent) error {
	buf := bytes.NewBuffer(b)
	dec := gob.NewDecoder(buf)
	return dec.Decode(event)
}

func (g gobSerializerImpl) Name() string { return FormatGOB }
