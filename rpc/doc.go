// Package rpc contains everything that crosses a process boundary: the HTTP
// API of the measurement store, its client and the event pipeline that ships
// stored measurements to downstream systems.
//
// The package is organized into several subpackages:
//
//   - common: Request and response messages, configuration structures and
//     logging setup shared by server, client and the commands.
//
//   - server: The HTTP API (gorilla/mux) with request ids, optional bearer
//     token authentication, rate limiting and Prometheus metrics.
//
//   - client: A typed HTTP client for every route of the server, with
//     retries on transport errors.
//
//   - serializer: Encoding of measurement events (Binary, JSON, GOB) for the
//     broker.
//
//   - broker: Asynchronous publishing of measurement events (log or NATS
//     JetStream) and the JetStream consumer used by the relay.
//
//   - sink: Writers for consumed events, currently InfluxDB v2.
package rpc
