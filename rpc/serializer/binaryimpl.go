package serializer

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
)

// NewBinarySerializer creates a new serializer using a compact custom binary format
func NewBinarySerializer() IEventSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IEventSerializer using a custom binary format.
//
// Layout (big endian):
//
//	[0]      version
//	[1]      flags
//	[2:6]    key length n
//	[6:6+n]  key
//	[..+8]   value (IEEE 754 bits)
//	[..+8]   observed at (unix nanoseconds), only if hasObservedAt is set
type binarySerializerImpl struct {
}

const binaryVersion byte = 1

// Bit flags to indicate which optional fields are present
const (
	hasObservedAt byte = 1 << 0
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IEventSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(event store.MeasurementEvent) ([]byte, error) {
	keyLen := len(event.Key)
	if keyLen > math.MaxUint32 {
		return nil, fmt.Errorf("key too long: %d bytes", keyLen)
	}

	size := 2 + 4 + keyLen + 8
	var flags byte
	if !event.ObservedAt.IsZero() {
		flags |= hasObservedAt
		size += 8
	}

	result := make([]byte, size)
	result[0] = binaryVersion
	result[1] = flags
	pos := 2

	binary.BigEndian.PutUint32(result[pos:pos+4], uint32(keyLen))
	pos += 4
	copy(result[pos:pos+keyLen], event.Key)
	pos += keyLen

	binary.BigEndian.PutUint64(result[pos:pos+8], math.Float64bits(event.Value))
	pos += 8

	if flags&hasObservedAt != 0 {
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(event.ObservedAt.UnixNano()))
	}

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, event *store.MeasurementEvent) error {
	if len(data) < 2+4 {
		return fmt.Errorf("binary event too short: %d bytes", len(data))
	}
	if data[0] != binaryVersion {
		return fmt.Errorf("unsupported binary event version %d", data[0])
	}
	flags := data[1]
	pos := 2

	keyLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4

	need := pos + keyLen + 8
	if flags&hasObservedAt != 0 {
		need += 8
	}
	if keyLen < 0 || len(data) < need {
		return fmt.Errorf("binary event truncated: need %d bytes, got %d", need, len(data))
	}

	event.Key = string(data[pos : pos+keyLen])
	pos += keyLen

	event.Value = math.Float64frombits(binary.BigEndian.Uint64(data[pos : pos+8]))
	pos += 8

	event.ObservedAt = time.Time{}
	if flags&hasObservedAt != 0 {
		event.ObservedAt = time.Unix(0, int64(binary.BigEndian.Uint64(data[pos:pos+8]))).UTC()
	}

	return nil
}

func (b binarySerializerImpl) Name() string { return FormatBinary }
