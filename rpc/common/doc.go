// Package common provides the data structures shared by the HTTP server, the
// HTTP client and the CLI.
//
// The package focuses on:
//   - Typed request and response bodies of the HTTP API
//   - Configuration structures for the server, the relay and the client
//   - Custom logging implementation integrated with the dragonboat logger package
//
// Key Components:
//
//   - Requests: One struct per write operation of the API (IngestRequest,
//     ThresholdRequest, ...). Required numeric fields are pointers, Validate
//     rejects missing or malformed fields with store.RetCInvalidInput before the
//     request reaches the core.
//
//   - Responses: One struct per response shape. Successful responses carry
//     Status "success", failures are always an ErrorResponse.
//
//   - ServerConfig, RelayConfig, ClientConfig: Configuration of the three
//     processes. ServerConfig converts to the replication manager config with
//     ToReplicationConfig. All of them print a readable summary with String().
//
//   - Logger: Custom logger factory for github.com/lni/dragonboat/v4/logger that
//     prints "LEVEL | package | message". InitLoggers installs it and applies the
//     configured level to every package logger.
package common
