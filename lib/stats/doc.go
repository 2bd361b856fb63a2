// Package stats provides cached per sensor statistics.
//
// The Service computes the mean and the sample standard deviation of all
// measurements of a sensor and caches the result for a TTL (300 seconds by
// default). Inside the TTL the cached value is returned even if new
// measurements arrived; after expiry it is recomputed from the store.
//
// The generic Cache keeps its values in an xsync.MapOf and the expiry order in
// a map-heap, so evicting expired entries pops them oldest first.
package stats
