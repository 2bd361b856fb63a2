// Package replicated implements the replication manager of the measurement store.
//
// The manager owns a fixed set of in-memory storage nodes (see package node) and
// routes every operation to the nodes responsible for a key under the active
// replication strategy:
//
//   - full: every node is responsible for every key (ids in ascending order)
//   - partitioned: the first min(F, N) distinct nodes found by walking the
//     consistent hash ring (see package ring) clockwise from the key's hash
//
// Accepted strategy names are "full" and "partitioned" with the aliases
// "consistent_hashing", "consistent-hashing" and "partial" (case-insensitive).
//
// Node Failure:
//
//	FailNode and RecoverNode only flip the alive flag of a node. Dead nodes are
//	skipped for reads and writes but keep their data and stay in the responsible
//	set. A recovered node answers with the state it had when it failed, there is
//	no re-sync or read repair.
//
// Writes:
//
//	A write goes to every alive responsible node. If none is alive the write
//	fails with RetCNoAvailableReplica. After a successful write the reading is
//	evaluated by the alert evaluator, appended to the recent writes log and
//	handed to the event publisher. A failing publisher is logged and counted but
//	never fails the write.
//
// Reads:
//
//	Reads query alive responsible nodes in policy order and return the first
//	hit. A miss is reported as RetCNotFound. The message tells whether the key
//	was never written (or deleted) or is only held by dead nodes.
//
// Deletes:
//
//	Deletes remove the key from alive responsible nodes only. Since recovered
//	nodes never re-sync, a dead node keeps its copy and serves it again after
//	recovery.
//
// Thread Safety:
//
//	The replication configuration is an immutable policy snapshot behind an
//	RWMutex. Every request works on the snapshot taken at its start, so a
//	concurrent reconfiguration never changes the nodes an in-flight request
//	targets. Writes lock all target nodes in ascending id order.
//
// Metrics:
//
//	Every manager owns a VictoriaMetrics metrics.Set with write, read, alert and
//	publish counters and the number of alive nodes. Use WritePrometheus to
//	expose them.
package replicated
