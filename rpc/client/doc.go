// Package client implements the HTTP client of the sKV server.
//
// Client wraps every route of the server with a typed method. Requests carry
// the configured bearer token, run with the configured timeout and are retried
// on transport errors and on 429/502/504 responses. Error responses are
// converted back into *store.Error values, so callers can use store.CodeOf
// just like with the in-process store.
//
// Usage Example:
//
//	c := client.NewClient(common.ClientConfig{
//	  Endpoint:      "localhost:8080",
//	  APIToken:      "secret",
//	  TimeoutSecond: 5,
//	  RetryCount:    2,
//	})
//
//	if err := c.Ingest(ctx, "sensor1", "2024-03-04T10:00:00", 42.5); err != nil {
//	  return err
//	}
//
//	m, err := c.Measurement(ctx, "sensor1:2024-03-04T10:00:00")
//	if store.IsCode(err, store.RetCNotFound) {
//	  // not stored or all replicas down
//	}
package client
