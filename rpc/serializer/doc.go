// Package serializer encodes MeasurementEvents for the message broker. It
// defines a common interface and three implementations with different
// trade-offs.
//
// Key Components:
//
//   - IEventSerializer: Core interface that all serializer implementations must satisfy.
//     ByName selects an implementation by its format name.
//
//   - binarySerializerImpl: Compact custom format (version byte, flags, length
//     prefixed key, value bits, optional timestamp). Smallest payload and fastest
//     to encode, only readable by this package.
//
//   - jsonSerializerImpl: JSON encoding. Readable by any downstream consumer and
//     the default for broker payloads.
//
//   - gobSerializerImpl: Go's gob encoding. Self-describing but larger, since
//     every payload carries the type description.
//
// The JetStream publisher stores the format name in a message header so the
// relay can decode payloads without sharing configuration with the server.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
package serializer
