package node

import (
	"sort"
	"sync/atomic"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

// NodeStore is a single in-memory storage node
type NodeStore struct {
	id    int
	port  int
	alive atomic.Bool
	table *xsync.MapOf[string, float64]
}

// NewNodeStore creates a new alive node with an empty table
func NewNodeStore(id, port int) *NodeStore {
	n := &NodeStore{
		id:    id,
		port:  port,
		table: xsync.NewMapOf[string, float64](),
	}
	n.alive.Store(true)
	return n
}

// --------------------------------------------------------------------------
// Identity and state
// --------------------------------------------------------------------------

// ID returns the id of the node
func (n *NodeStore) ID() int { return n.id }

// Port returns the descriptive port of the node
func (n *NodeStore) Port() int { return n.port }

// IsAlive returns true if the node is alive
func (n *NodeStore) IsAlive() bool { return n.alive.Load() }

// MarkAlive marks the node as alive. The table is left untouched.
func (n *NodeStore) MarkAlive() { n.alive.Store(true) }

// MarkDead marks the node as dead. The table is left untouched.
func (n *NodeStore) MarkDead() { n.alive.Store(false) }

// Len returns the number of keys stored on the node
func (n *NodeStore) Len() int { return n.table.Size() }

// Status returns the status of the node
func (n *NodeStore) Status() store.NodeStatus {
	return store.NodeStatus{
		NodeID:   n.id,
		Alive:    n.IsAlive(),
		Port:     n.port,
		KeyCount: n.Len(),
	}
}

// --------------------------------------------------------------------------
// Table operations
// --------------------------------------------------------------------------

// Put inserts or overwrites a value
func (n *NodeStore) Put(key string, value float64) {
	n.table.Store(key, value)
}

// Get returns the value for a key or a NotFound error
func (n *NodeStore) Get(key string) (float64, error) {
	value, ok := n.table.Load(key)
	if !ok {
		return 0, store.Errorf(store.RetCNotFound, "key %q not found on node %d", key, n.id)
	}
	return value, nil
}

// Exists returns true if the key is stored on the node
func (n *NodeStore) Exists(key string) bool {
	_, ok := n.table.Load(key)
	return ok
}

// Delete removes a key. Returns a NotFound error if the key was absent.
func (n *NodeStore) Delete(key string) error {
	if _, loaded := n.table.LoadAndDelete(key); !loaded {
		return store.Errorf(store.RetCNotFound, "key %q not found on node %d", key, n.id)
	}
	return nil
}

// AllKeys returns all entries of the node sorted by key
func (n *NodeStore) AllKeys() []store.Measurement {
	entries := make([]store.Measurement, 0, n.table.Size())
	n.table.Range(func(key string, value float64) bool {
		entries = append(entries, store.Measurement{Key: key, Value: value})
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}
