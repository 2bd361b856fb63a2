// Package server exposes the measurement store over HTTP/JSON.
//
// A Server wires three services behind a gorilla/mux router:
//
//   - store.IMeasurementStore: ingest, reads, deletes, node failure simulation
//     and replication reconfiguration
//   - IAlertService: threshold configuration and the alert log
//   - IStatsService: cached mean and standard deviation per sensor
//
// Every route except /health and /metrics requires "Authorization: Bearer
// <token>" when an API token is configured. Errors are returned as
// common.ErrorResponse with the status derived from the store.RetCode of the
// error (see StatusOf).
//
// Middleware (in order): request ids (X-Request-ID), request logging when the
// log level is debug, an optional global token bucket rate limit.
//
// Usage Example:
//
//	alerts := alert.NewManager(config.RecentAlerts)
//	manager, err := replicated.NewManager(config.ToReplicationConfig(), alerts, dispatcher)
//	if err != nil {
//	  return err
//	}
//
//	s := server.NewServer(config, manager, alerts, stats.NewService(manager, config.StatsTTL()))
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
package server
