package replicated

import (
	"strings"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/store/ring"
)

// strategyAliases maps accepted strategy names (lower case) to strategies
var strategyAliases = map[string]store.Strategy{
	"full":               store.StrategyFull,
	"partitioned":        store.StrategyPartitioned,
	"consistent_hashing": store.StrategyPartitioned,
	"consistent-hashing": store.StrategyPartitioned,
	"partial":            store.StrategyPartitioned,
}

// ParseStrategy parses a strategy name (case-insensitive).
// Returns an InvalidConfig error for unknown names.
func ParseStrategy(name string) (store.Strategy, error) {
	s, ok := strategyAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", store.Errorf(store.RetCInvalidConfig,
			"unknown replication strategy %q (use full or partitioned)", name)
	}
	return s, nil
}

// policy is an immutable snapshot of the replication configuration.
// A new policy is created on every reconfiguration, requests keep using the
// snapshot they started with.
type policy struct {
	strategy store.Strategy
	factor   int
	nodeIDs  []int // ascending
	ring     *ring.Ring
}

// newPolicy validates the configuration and builds the ring
func newPolicy(strategy store.Strategy, factor, nodes, virtualNodes int) (*policy, error) {
	if strategy == store.StrategyPartitioned && factor < 1 {
		return nil, store.Errorf(store.RetCInvalidConfig,
			"replication factor must be >= 1 for the partitioned strategy, got %d", factor)
	}

	ids := make([]int, nodes)
	for i := range ids {
		ids[i] = i
	}

	return &policy{
		strategy: strategy,
		factor:   factor,
		nodeIDs:  ids,
		ring:     ring.Build(ids, virtualNodes),
	}, nil
}

// resolve returns the responsible node ids for a key. Under the full strategy
// these are all ids in ascending order, under the partitioned strategy the
// first min(factor, N) distinct ids of the ring walk.
func (p *policy) resolve(key string) []int {
	if p.strategy == store.StrategyFull {
		return append([]int(nil), p.nodeIDs...)
	}
	return p.ring.ResolveN(key, p.factor)
}

// effectiveFactor returns the number of replicas a key gets
func (p *policy) effectiveFactor() int {
	if p.strategy == store.StrategyFull || p.factor > len(p.nodeIDs) {
		return len(p.nodeIDs)
	}
	return p.factor
}
