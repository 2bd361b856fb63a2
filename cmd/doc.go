// Package cmd implements the command-line interface of sKV. It provides a
// hierarchical command structure for running the server, the broker relay and
// for interacting with a running server as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts the HTTP API with the replicated in-memory nodes
//   - relay: Forwards published measurements from NATS JetStream to InfluxDB
//   - sensor: Ingest, read and analyse measurements, plus a load simulation
//   - node: Fail, recover and inspect nodes, switch the replication strategy
//   - alert: Configure thresholds and list triggered alerts
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See skv -help for a list of all commands.
package cmd
