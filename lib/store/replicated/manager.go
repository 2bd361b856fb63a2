package replicated

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/sKV/lib/alert"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/store/node"
	"github.com/ValentinKolb/sKV/lib/store/ring"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("replication")

// Messages returned by RetrieveMeasurement
const (
	MsgFound       = "value retrieved from node %d"
	MsgNotFound    = "measurement not found"
	MsgUnavailable = "measurement unavailable: all replicas holding it are down"
)

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// Config configures a replication manager
type Config struct {
	Nodes             int    // number of storage nodes, fixed for the lifetime of the manager
	BasePort          int    // node i gets the descriptive port BasePort+i
	Strategy          string // initial strategy name
	ReplicationFactor int    // initial replication factor
	VirtualNodes      int    // virtual nodes per node on the hash ring
	RecentLimit       int    // capacity of the recent writes log
}

// DefaultConfig returns a configuration with five nodes and full replication
func DefaultConfig() Config {
	return Config{
		Nodes:             5,
		BasePort:          5000,
		Strategy:          string(store.StrategyFull),
		ReplicationFactor: 3,
		VirtualNodes:      ring.DefaultVirtualNodes,
		RecentLimit:       DefaultRecentLimit,
	}
}

// IAlertEvaluator is notified synchronously about every stored measurement
type IAlertEvaluator interface {
	Evaluate(sensorID string, value float64, timestamp string) (alert.AlertEvent, bool)
}

// --------------------------------------------------------------------------
// Manager
// --------------------------------------------------------------------------

// Manager routes reads and writes to the nodes responsible for a key under the
// active replication strategy. It implements store.IMeasurementStore.
//
// Locking: the policy pointer is guarded by cfgMu and snapshotted at the start
// of every request. Per-node mutexes serialize writes and fail/recover calls
// and are always acquired in ascending node id order.
type Manager struct {
	cfgMu        sync.RWMutex
	policy       *policy
	virtualNodes int

	nodes []*node.NodeStore
	locks []sync.Mutex

	recent    *recentLog
	alerts    IAlertEvaluator
	publisher store.IEventPublisher
	metrics   *managerMetrics
	now       func() time.Time
}

// NewManager creates a manager with cfg.Nodes alive, empty nodes.
// alerts and publisher may be nil.
func NewManager(cfg Config, alerts IAlertEvaluator, publisher store.IEventPublisher) (*Manager, error) {
	if cfg.Nodes < 1 {
		return nil, store.Errorf(store.RetCInvalidConfig, "at least one node is required, got %d", cfg.Nodes)
	}
	if cfg.VirtualNodes < 1 {
		cfg.VirtualNodes = ring.DefaultVirtualNodes
	}

	strategy, err := ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	factor := cfg.ReplicationFactor
	if strategy == store.StrategyFull && factor < 1 {
		factor = 1
	}
	p, err := newPolicy(strategy, factor, cfg.Nodes, cfg.VirtualNodes)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		policy:       p,
		virtualNodes: cfg.VirtualNodes,
		nodes:        make([]*node.NodeStore, cfg.Nodes),
		locks:        make([]sync.Mutex, cfg.Nodes),
		recent:       newRecentLog(cfg.RecentLimit),
		alerts:       alerts,
		publisher:    publisher,
		now:          time.Now,
	}
	for i := range m.nodes {
		m.nodes[i] = node.NewNodeStore(i, cfg.BasePort+i)
	}
	m.metrics = newManagerMetrics(m)

	log.Infof("replication manager started with %d nodes, strategy %s, factor %d", cfg.Nodes, strategy, factor)
	return m, nil
}

var _ store.IMeasurementStore = (*Manager)(nil)

// snapshot returns the policy active at the start of a request
func (m *Manager) snapshot() *policy {
	m.cfgMu.RLock()
	defer m.cfgMu.RUnlock()
	return m.policy
}

// checkNode validates a node id
func (m *Manager) checkNode(nodeID int) error {
	if nodeID < 0 || nodeID >= len(m.nodes) {
		return store.Errorf(store.RetCNodeNotFound, "node %d does not exist (valid ids 0..%d)", nodeID, len(m.nodes)-1)
	}
	return nil
}

// validateKey checks that the key carries a sensor id
func validateKey(key string) (sensorID, timestamp string, err error) {
	if key == "" {
		return "", "", store.NewError(store.RetCInvalidInput, "key must not be empty")
	}
	sensorID, timestamp = store.SplitKey(key)
	if sensorID == "" {
		return "", "", store.Errorf(store.RetCInvalidInput, "key %q has no sensor id", key)
	}
	return sensorID, timestamp, nil
}

// lockAscending locks the given nodes in ascending id order and returns the
// unlock function
func (m *Manager) lockAscending(ids []int) func() {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	for _, id := range sorted {
		m.locks[id].Lock()
	}
	return func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			m.locks[sorted[i]].Unlock()
		}
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (m *Manager) StoreMeasurement(key string, value float64) error {
	start := m.now()
	sensorID, timestamp, err := validateKey(key)
	if err != nil {
		m.metrics.writeFailures.Inc()
		return err
	}

	p := m.snapshot()
	responsible := p.resolve(key)

	unlock := m.lockAscending(responsible)
	written := make([]int, 0, len(responsible))
	for _, id := range responsible {
		if n := m.nodes[id]; n.IsAlive() {
			n.Put(key, value)
			written = append(written, id)
		}
	}
	unlock()

	if len(written) == 0 {
		m.metrics.writeFailures.Inc()
		log.Warningf("write of %s failed: all responsible nodes %v are down", key, responsible)
		return store.Errorf(store.RetCNoAvailableReplica,
			"no available replica for %q: all responsible nodes %v are down", key, responsible)
	}
	if len(written) < len(responsible) {
		log.Debugf("write of %s reached %d of %d responsible nodes", key, len(written), len(responsible))
	}

	if m.alerts != nil {
		if _, alerted := m.alerts.Evaluate(sensorID, value, timestamp); alerted {
			m.metrics.alerts.Inc()
		}
	}

	observedAt := m.now()
	m.recent.add(key, value, observedAt)
	m.metrics.stored.Inc()
	m.metrics.writeDuration.UpdateDuration(start)

	if m.publisher != nil {
		event := store.MeasurementEvent{Key: key, Value: value, ObservedAt: observedAt}
		if err := m.publisher.Publish(event); err != nil {
			m.metrics.publishFailures.Inc()
			log.Warningf("failed to publish measurement %s: %v", key, err)
		}
	}
	return nil
}

func (m *Manager) RetrieveMeasurement(key string) (store.RetrieveResult, error) {
	if _, _, err := validateKey(key); err != nil {
		return store.RetrieveResult{}, err
	}

	p := m.snapshot()
	m.metrics.reads.Inc()

	heldByDead := false
	for _, id := range p.resolve(key) {
		n := m.nodes[id]

		m.locks[id].Lock()
		alive := n.IsAlive()
		value, err := n.Get(key)
		m.locks[id].Unlock()

		if err != nil {
			continue
		}
		if !alive {
			heldByDead = true
			continue
		}
		return store.RetrieveResult{
			Key:     key,
			Value:   value,
			NodeID:  id,
			Message: fmt.Sprintf(MsgFound, id),
		}, nil
	}

	m.metrics.readMisses.Inc()
	if heldByDead {
		return store.RetrieveResult{Key: key, NodeID: -1, Message: MsgUnavailable},
			store.NewError(store.RetCNotFound, MsgUnavailable)
	}
	return store.RetrieveResult{Key: key, NodeID: -1, Message: MsgNotFound},
		store.NewError(store.RetCNotFound, MsgNotFound)
}

func (m *Manager) MeasurementExists(key string) (bool, error) {
	if _, _, err := validateKey(key); err != nil {
		return false, err
	}

	for _, id := range m.snapshot().resolve(key) {
		n := m.nodes[id]
		m.locks[id].Lock()
		found := n.IsAlive() && n.Exists(key)
		m.locks[id].Unlock()
		if found {
			return true, nil
		}
	}
	return false, nil
}

func (m *Manager) DeleteMeasurement(key string) error {
	if _, _, err := validateKey(key); err != nil {
		return err
	}

	responsible := m.snapshot().resolve(key)

	unlock := m.lockAscending(responsible)
	deleted := 0
	for _, id := range responsible {
		n := m.nodes[id]
		if !n.IsAlive() {
			continue
		}
		if err := n.Delete(key); err == nil {
			deleted++
		}
	}
	unlock()

	if deleted == 0 {
		return store.Errorf(store.RetCNotFound, "measurement %q does not exist", key)
	}
	m.metrics.deletes.Inc()
	log.Debugf("deleted %s from %d nodes", key, deleted)
	return nil
}

func (m *Manager) FailNode(nodeID int) error {
	if err := m.checkNode(nodeID); err != nil {
		return err
	}
	m.locks[nodeID].Lock()
	m.nodes[nodeID].MarkDead()
	m.locks[nodeID].Unlock()
	log.Infof("node %d marked as failed", nodeID)
	return nil
}

func (m *Manager) RecoverNode(nodeID int) error {
	if err := m.checkNode(nodeID); err != nil {
		return err
	}
	m.locks[nodeID].Lock()
	m.nodes[nodeID].MarkAlive()
	m.locks[nodeID].Unlock()
	log.Infof("node %d recovered", nodeID)
	return nil
}

func (m *Manager) StorageStatus() []store.NodeStatus {
	status := make([]store.NodeStatus, len(m.nodes))
	for i, n := range m.nodes {
		status[i] = n.Status()
	}
	return status
}

func (m *Manager) SetReplicationStrategy(name string, factor int) error {
	strategy, err := ParseStrategy(name)
	if err != nil {
		return err
	}

	m.cfgMu.Lock()
	defer m.cfgMu.Unlock()

	// the full strategy ignores the factor, keep the old one for a later switch back
	if strategy == store.StrategyFull {
		factor = m.policy.factor
	}

	p, err := newPolicy(strategy, factor, len(m.nodes), m.virtualNodes)
	if err != nil {
		return err
	}
	m.policy = p
	m.metrics.reconfigs.Inc()
	log.Infof("replication strategy set to %s with factor %d", strategy, p.factor)
	return nil
}

func (m *Manager) ResponsibleNodes(key string) ([]store.NodeStatus, error) {
	if _, _, err := validateKey(key); err != nil {
		return nil, err
	}

	p := m.snapshot()
	if p.strategy != store.StrategyPartitioned {
		return nil, store.Errorf(store.RetCNotApplicable,
			"responsible nodes are only available under the %s strategy", store.StrategyPartitioned)
	}

	ids := p.resolve(key)
	nodes := make([]store.NodeStatus, len(ids))
	for i, id := range ids {
		nodes[i] = m.nodes[id].Status()
	}
	return nodes, nil
}

func (m *Manager) AllMeasurements() map[string]float64 {
	result := make(map[string]float64)
	for _, n := range m.nodes {
		if !n.IsAlive() {
			continue
		}
		for _, e := range n.AllKeys() {
			if _, ok := result[e.Key]; !ok {
				result[e.Key] = e.Value
			}
		}
	}
	return result
}

func (m *Manager) SensorMeasurements(sensorID string) []store.Measurement {
	prefix := sensorID + store.KeySeparator
	var out []store.Measurement
	for key, value := range m.AllMeasurements() {
		if strings.HasPrefix(key, prefix) {
			out = append(out, store.Measurement{Key: key, Value: value})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (m *Manager) RecentMeasurements() []store.RecentMeasurement {
	return m.recent.list()
}

func (m *Manager) NodeContents(nodeID int) (store.NodeContents, error) {
	if err := m.checkNode(nodeID); err != nil {
		return store.NodeContents{}, err
	}
	n := m.nodes[nodeID]
	return store.NodeContents{
		NodeStatus:   n.Status(),
		Measurements: n.AllKeys(),
	}, nil
}

func (m *Manager) Config() store.ReplicationConfig {
	p := m.snapshot()
	return store.ReplicationConfig{
		Strategy:          p.strategy,
		ReplicationFactor: p.factor,
		Nodes:             len(m.nodes),
		VirtualNodes:      m.virtualNodes,
	}
}
