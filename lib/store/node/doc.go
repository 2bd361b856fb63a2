// Package node implements a single simulated storage node of the replicated
// measurement store. A node is an in-memory key-value table with an identity
// (id and port) and an alive flag. The port is descriptive only, nodes never
// listen on a socket.
//
// Thread Safety:
//
//	The table is an xsync.MapOf and the alive flag is an atomic.Bool, so a
//	NodeStore can be used concurrently without external locking. The replication
//	manager still serializes multi-node writes with its own per-node locks to get
//	a consistent view across replicas.
//
// The alive flag is advisory: the node itself keeps answering Get/Put while
// dead. Skipping dead nodes is the job of the caller.
package node
