// Package ring implements a consistent hash ring with virtual nodes.
//
// Every physical node is placed on the ring several times (virtual nodes) to
// spread keys evenly. Looking up a key hashes it onto the ring and walks
// clockwise from the first virtual node whose hash is greater than or equal to
// the key hash, collecting distinct physical node ids and wrapping around at the
// end of the ring.
//
// Hashing:
//
//	Keys and virtual nodes are hashed with xxHash64 (github.com/cespare/xxhash/v2).
//	Virtual node v of node n is hashed from "node-{n}#vnode-{v}". Entries with the
//	same hash are ordered by node id, so lookups are deterministic.
//
// A Ring is immutable after Build and can be shared between goroutines. To
// change the topology build a new ring.
package ring
