// Package store defines the common vocabulary of the replicated measurement store:
// the IMeasurementStore interface, the value types exchanged with it and a
// unified error type with typed return codes.
//
// Key Components:
//
//   - IMeasurementStore Interface: The operations a replicated measurement store
//     offers. The HTTP server and the CLI only depend on this interface, the
//     replication manager in the "replicated" sub package implements it.
//
//   - Measurement Keys: A measurement key has the form "{sensorId}:{timestamp}".
//     SplitKey cuts a key at the first separator, so timestamps may contain
//     colons themselves.
//
//   - Error System: Every error returned by the store is a *Error carrying a
//     RetCode. Callers use CodeOf (or errors.As) to decide how to react, the HTTP
//     layer maps each code to a status code.
//
//   - IEventPublisher: The outbound hand-off invoked after every successful write.
//     The store never waits for it to succeed.
//
// Implementations:
//
//   - Node Store (node): A single simulated storage node. An in-memory table plus
//     an alive flag. Available in the "github.com/ValentinKolb/sKV/lib/store/node" package.
//
//   - Hash Ring (ring): Maps keys to an ordered list of node ids using virtual
//     nodes. Available in the "github.com/ValentinKolb/sKV/lib/store/ring" package.
//
//   - Replication Manager (replicated): Routes reads and writes to the nodes
//     responsible for a key under the active replication strategy.
//     Available in the "github.com/ValentinKolb/sKV/lib/store/replicated" package.
package store
