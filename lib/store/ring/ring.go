package ring

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// DefaultVirtualNodes is the number of virtual nodes per physical node
const DefaultVirtualNodes = 100

// Entry is a single virtual node on the ring
type Entry struct {
	Hash   uint64
	NodeID int
}

// Ring is an immutable consistent hash ring
type Ring struct {
	entries      []Entry
	nodes        int
	virtualNodes int
}

// HashKey returns the ring position of a key
func HashKey(key string) uint64 {
	return xxhash.Sum64String(key)
}

// virtualNodeKey returns the string hashed for virtual node v of node n
func virtualNodeKey(nodeID, v int) string {
	return fmt.Sprintf("node-%d#vnode-%d", nodeID, v)
}

// Build creates a ring with virtualNodes entries for every node id.
// A virtualNodes value < 1 falls back to DefaultVirtualNodes. Duplicate ids are
// placed only once.
func Build(nodeIDs []int, virtualNodes int) *Ring {
	if virtualNodes < 1 {
		virtualNodes = DefaultVirtualNodes
	}

	seen := make(map[int]struct{}, len(nodeIDs))
	entries := make([]Entry, 0, len(nodeIDs)*virtualNodes)
	for _, id := range nodeIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		for v := 0; v < virtualNodes; v++ {
			entries = append(entries, Entry{Hash: HashKey(virtualNodeKey(id, v)), NodeID: id})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Hash != entries[j].Hash {
			return entries[i].Hash < entries[j].Hash
		}
		return entries[i].NodeID < entries[j].NodeID
	})

	return &Ring{
		entries:      entries,
		nodes:        len(seen),
		virtualNodes: virtualNodes,
	}
}

// Nodes returns the number of physical nodes on the ring
func (r *Ring) Nodes() int { return r.nodes }

// VirtualNodes returns the number of virtual nodes per physical node
func (r *Ring) VirtualNodes() int { return r.virtualNodes }

// Len returns the number of entries on the ring
func (r *Ring) Len() int { return len(r.entries) }

// Resolve returns all distinct node ids in ring order starting at the key's position
func (r *Ring) Resolve(key string) []int {
	return r.ResolveN(key, r.nodes)
}

// ResolveN returns at most n distinct node ids in ring order starting at the
// key's position. Returns nil for an empty ring or n < 1.
func (r *Ring) ResolveN(key string, n int) []int {
	if len(r.entries) == 0 || n < 1 {
		return nil
	}
	if n > r.nodes {
		n = r.nodes
	}

	h := HashKey(key)
	start := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].Hash >= h
	})

	result := make([]int, 0, n)
	seen := make(map[int]struct{}, n)
	for i := 0; i < len(r.entries) && len(result) < n; i++ {
		e := r.entries[(start+i)%len(r.entries)]
		if _, dup := seen[e.NodeID]; dup {
			continue
		}
		seen[e.NodeID] = struct{}{}
		result = append(result, e.NodeID)
	}
	return result
}
