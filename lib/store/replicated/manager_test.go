package replicated

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ValentinKolb/sKV/lib/alert"
	"github.com/ValentinKolb/sKV/lib/store"
)

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

type recordingPublisher struct {
	mu     sync.Mutex
	events []store.MeasurementEvent
	err    error
}

func (p *recordingPublisher) Publish(event store.MeasurementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func newTestManager(t *testing.T, nodes int, strategy string, factor int) *Manager {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Nodes = nodes
	cfg.Strategy = strategy
	cfg.ReplicationFactor = factor
	m, err := NewManager(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func key(i int) string {
	return fmt.Sprintf("sensor%d:2024-03-04T09:%02d:00", i%15, i%60)
}

func expectCode(t *testing.T, err error, code store.RetCode) {
	t.Helper()
	if got := store.CodeOf(err); got != code {
		t.Fatalf("Expected %s, got %s (%v)", code, got, err)
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

// TestNewManager tests construction and validation
func TestNewManager(t *testing.T) {
	m := newTestManager(t, 4, "full", 0)
	status := m.StorageStatus()
	if len(status) != 4 {
		t.Fatalf("Expected 4 nodes, got %d", len(status))
	}
	for i, s := range status {
		if s.NodeID != i || s.Port != 5000+i || !s.Alive || s.KeyCount != 0 {
			t.Errorf("Unexpected status %+v", s)
		}
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"no nodes", Config{Nodes: 0, Strategy: "full"}},
		{"unknown strategy", Config{Nodes: 3, Strategy: "ring"}},
		{"partitioned factor 0", Config{Nodes: 3, Strategy: "partitioned", ReplicationFactor: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(tt.cfg, nil, nil)
			expectCode(t, err, store.RetCInvalidConfig)
		})
	}
}

// TestFullReplication verifies that every alive node holds every key after a write
func TestFullReplication(t *testing.T) {
	m := newTestManager(t, 5, "full", 0)
	if err := m.FailNode(2); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		if err := m.StoreMeasurement(key(i), float64(i)); err != nil {
			t.Fatalf("StoreMeasurement failed: %v", err)
		}
	}

	for id := 0; id < 5; id++ {
		contents, err := m.NodeContents(id)
		if err != nil {
			t.Fatal(err)
		}
		want := len(m.AllMeasurements())
		if id == 2 {
			want = 0
		}
		if len(contents.Measurements) != want {
			t.Errorf("Node %d holds %d keys, want %d", id, len(contents.Measurements), want)
		}
	}

	// reads succeed while at least one node is alive
	for _, id := range []int{0, 1, 3} {
		_ = m.FailNode(id)
	}
	res, err := m.RetrieveMeasurement(key(3))
	if err != nil || res.Value != 3 || res.NodeID != 4 {
		t.Errorf("Expected value 3 from node 4, got %+v err=%v", res, err)
	}
}

// TestPartitionedCardinality verifies F distinct, deterministic responsible nodes
func TestPartitionedCardinality(t *testing.T) {
	for _, factor := range []int{1, 2, 3, 5, 8} {
		t.Run(fmt.Sprintf("F=%d", factor), func(t *testing.T) {
			m := newTestManager(t, 5, "partitioned", factor)
			want := factor
			if want > 5 {
				want = 5
			}
			for i := 0; i < 100; i++ {
				first, err := m.ResponsibleNodes(key(i))
				if err != nil {
					t.Fatal(err)
				}
				second, _ := m.ResponsibleNodes(key(i))
				if len(first) != want {
					t.Fatalf("Expected %d nodes, got %d", want, len(first))
				}
				seen := map[int]bool{}
				for j, n := range first {
					if seen[n.NodeID] {
						t.Fatalf("Duplicate node %d", n.NodeID)
					}
					seen[n.NodeID] = true
					if second[j].NodeID != n.NodeID {
						t.Fatalf("Lookup not deterministic for %s", key(i))
					}
				}
			}
		})
	}
}

// TestPartitionedWritesOnlyResponsible checks that only responsible nodes get a copy
func TestPartitionedWritesOnlyResponsible(t *testing.T) {
	m := newTestManager(t, 5, "partitioned", 2)
	k := key(7)
	if err := m.StoreMeasurement(k, 1.5); err != nil {
		t.Fatal(err)
	}

	responsible, _ := m.ResponsibleNodes(k)
	holders := map[int]bool{}
	for _, n := range responsible {
		holders[n.NodeID] = true
	}
	for id := 0; id < 5; id++ {
		contents, _ := m.NodeContents(id)
		has := len(contents.Measurements) == 1
		if has != holders[id] {
			t.Errorf("Node %d holds key = %v, responsible = %v", id, has, holders[id])
		}
	}
}

// TestFailureIsolation verifies that failing a node keeps its data and recovery restores it
func TestFailureIsolation(t *testing.T) {
	m := newTestManager(t, 3, "full", 0)
	_ = m.StoreMeasurement("s1:t1", 10)

	_ = m.FailNode(0)
	_ = m.StoreMeasurement("s1:t2", 20)

	dead, _ := m.NodeContents(0)
	if dead.Alive || len(dead.Measurements) != 1 {
		t.Fatalf("Dead node should keep exactly its old data, got %+v", dead)
	}

	res, err := m.RetrieveMeasurement("s1:t1")
	if err != nil || res.NodeID == 0 {
		t.Errorf("Dead node must not serve reads, got %+v err=%v", res, err)
	}

	_ = m.RecoverNode(0)
	res, err = m.RetrieveMeasurement("s1:t1")
	if err != nil || res.NodeID != 0 || res.Value != 10 {
		t.Errorf("Recovered node should serve its prior data, got %+v err=%v", res, err)
	}
	// no re-sync
	if contents, _ := m.NodeContents(0); len(contents.Measurements) != 1 {
		t.Errorf("Recovered node must not be re-synced, got %d keys", len(contents.Measurements))
	}
	// other nodes unaffected
	if contents, _ := m.NodeContents(1); len(contents.Measurements) != 2 {
		t.Errorf("Node 1 should hold 2 keys, got %d", len(contents.Measurements))
	}

	expectCode(t, m.FailNode(3), store.RetCNodeNotFound)
	expectCode(t, m.RecoverNode(-1), store.RetCNodeNotFound)
	_, err = m.NodeContents(99)
	expectCode(t, err, store.RetCNodeNotFound)

	// idempotent
	if err := m.RecoverNode(0); err != nil {
		t.Errorf("RecoverNode should be idempotent: %v", err)
	}
}

// TestAllReplicasDown verifies NoAvailableReplica on write and the distinct read message
func TestAllReplicasDown(t *testing.T) {
	m := newTestManager(t, 5, "partitioned", 2)
	k := key(11)
	if err := m.StoreMeasurement(k, 42); err != nil {
		t.Fatal(err)
	}

	responsible, _ := m.ResponsibleNodes(k)
	for _, n := range responsible {
		_ = m.FailNode(n.NodeID)
	}

	expectCode(t, m.StoreMeasurement(k, 43), store.RetCNoAvailableReplica)

	res, err := m.RetrieveMeasurement(k)
	expectCode(t, err, store.RetCNotFound)
	if res.Message != MsgUnavailable {
		t.Errorf("Expected unavailable message, got %q", res.Message)
	}

	_, err = m.RetrieveMeasurement("never:written")
	expectCode(t, err, store.RetCNotFound)
	if !strings.Contains(err.Error(), MsgNotFound) {
		t.Errorf("Expected not found message, got %q", err.Error())
	}
}

// TestDeleteExistsRoundTrip tests store, exists, delete, exists
func TestDeleteExistsRoundTrip(t *testing.T) {
	for _, strategy := range []string{"full", "partitioned"} {
		t.Run(strategy, func(t *testing.T) {
			m := newTestManager(t, 4, strategy, 2)
			k := "s1:2024-03-04T10:00:00"

			if err := m.StoreMeasurement(k, 1); err != nil {
				t.Fatal(err)
			}
			if ok, _ := m.MeasurementExists(k); !ok {
				t.Error("Key should exist after store")
			}
			if err := m.DeleteMeasurement(k); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if ok, _ := m.MeasurementExists(k); ok {
				t.Error("Key should not exist after delete")
			}
			expectCode(t, m.DeleteMeasurement(k), store.RetCNotFound)
		})
	}
}

// TestDeleteSkipsDeadNodes verifies that dead nodes keep their copy on delete
func TestDeleteSkipsDeadNodes(t *testing.T) {
	m := newTestManager(t, 3, "full", 0)
	_ = m.StoreMeasurement("s1:t", 5)
	_ = m.FailNode(1)

	if err := m.DeleteMeasurement("s1:t"); err != nil {
		t.Fatal(err)
	}
	_ = m.RecoverNode(1)

	res, err := m.RetrieveMeasurement("s1:t")
	if err != nil || res.NodeID != 1 {
		t.Errorf("Recovered node should still hold the key, got %+v err=%v", res, err)
	}
}

// TestInvalidInput tests key validation
func TestInvalidInput(t *testing.T) {
	m := newTestManager(t, 2, "full", 0)
	expectCode(t, m.StoreMeasurement("", 1), store.RetCInvalidInput)
	expectCode(t, m.StoreMeasurement(":2024", 1), store.RetCInvalidInput)
	_, err := m.RetrieveMeasurement("")
	expectCode(t, err, store.RetCInvalidInput)
}

// TestSetReplicationStrategy tests strategy names, factors and NotApplicable
func TestSetReplicationStrategy(t *testing.T) {
	m := newTestManager(t, 5, "full", 3)

	_, err := m.ResponsibleNodes("s1:t")
	expectCode(t, err, store.RetCNotApplicable)

	tests := []struct {
		name     string
		strategy string
		factor   int
		code     store.RetCode
		want     store.Strategy
		wantF    int
	}{
		{"alias consistent_hashing", "consistent_hashing", 2, store.RetCSuccess, store.StrategyPartitioned, 2},
		{"alias upper case", "PARTIAL", 4, store.RetCSuccess, store.StrategyPartitioned, 4},
		{"factor zero", "partitioned", 0, store.RetCInvalidConfig, store.StrategyPartitioned, 4},
		{"negative factor", "consistent-hashing", -1, store.RetCInvalidConfig, store.StrategyPartitioned, 4},
		{"unknown", "sharded", 2, store.RetCInvalidConfig, store.StrategyPartitioned, 4},
		{"full keeps factor", "Full", 0, store.RetCSuccess, store.StrategyFull, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectCode(t, m.SetReplicationStrategy(tt.strategy, tt.factor), tt.code)
			cfg := m.Config()
			if cfg.Strategy != tt.want || cfg.ReplicationFactor != tt.wantF {
				t.Errorf("Config = %+v, want %s/%d", cfg, tt.want, tt.wantF)
			}
		})
	}
}

// TestReconfigurationSnapshot verifies that a snapshot taken before a change is unaffected
func TestReconfigurationSnapshot(t *testing.T) {
	m := newTestManager(t, 5, "full", 0)
	k := key(1)

	before := m.snapshot()
	if err := m.SetReplicationStrategy("partitioned", 2); err != nil {
		t.Fatal(err)
	}

	if got := before.resolve(k); len(got) != 5 {
		t.Errorf("In-flight snapshot should still resolve to all nodes, got %v", got)
	}
	if got := m.snapshot().resolve(k); len(got) != 2 {
		t.Errorf("New requests should resolve to 2 nodes, got %v", got)
	}

	if err := m.StoreMeasurement(k, 1); err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, s := range m.StorageStatus() {
		total += s.KeyCount
	}
	if total != 2 {
		t.Errorf("Write after reconfiguration should reach 2 nodes, reached %d", total)
	}
}

// TestAllMeasurementsDeduplicates tests the union over alive nodes
func TestAllMeasurementsDeduplicates(t *testing.T) {
	m := newTestManager(t, 3, "full", 0)
	_ = m.StoreMeasurement("s1:a", 1)
	_ = m.StoreMeasurement("s2:a", 2)
	_ = m.StoreMeasurement("s1:b", 3)

	all := m.AllMeasurements()
	if len(all) != 3 {
		t.Errorf("Expected 3 unique keys, got %d", len(all))
	}

	history := m.SensorMeasurements("s1")
	if len(history) != 2 || history[0].Key != "s1:a" || history[1].Key != "s1:b" {
		t.Errorf("Unexpected history %+v", history)
	}

	for id := 0; id < 3; id++ {
		_ = m.FailNode(id)
	}
	if len(m.AllMeasurements()) != 0 {
		t.Error("Dead nodes must not contribute to AllMeasurements")
	}
}

// TestRecentMeasurements tests newest first ordering and the bound
func TestRecentMeasurements(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecentLimit = 3
	m, err := NewManager(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 5; i++ {
		_ = m.StoreMeasurement(fmt.Sprintf("s1:%d", i), float64(i))
	}

	recent := m.RecentMeasurements()
	if len(recent) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(recent))
	}
	for i, want := range []float64{5, 4, 3} {
		if recent[i].Value != want {
			t.Errorf("recent[%d] = %v, want %v", i, recent[i].Value, want)
		}
	}
}

// TestAlertsAndPublishing tests the write side effects
func TestAlertsAndPublishing(t *testing.T) {
	alerts := alert.NewManager(0)
	if err := alerts.SetThreshold("s1", 60); err != nil {
		t.Fatal(err)
	}
	if err := alerts.SetHourlyThreshold("s1", 8, 10, 50); err != nil {
		t.Fatal(err)
	}

	pub := &recordingPublisher{err: errors.New("broker down")}
	m, err := NewManager(DefaultConfig(), alerts, pub)
	if err != nil {
		t.Fatal(err)
	}

	// publisher failures never fail the write
	if err := m.StoreMeasurement("s1:2024-03-04T09:00:00", 55); err != nil {
		t.Fatalf("Write failed because of publisher: %v", err)
	}
	if err := m.StoreMeasurement("s1:2024-03-04T14:00:00", 55); err != nil {
		t.Fatal(err)
	}

	if got := len(alerts.Alerts()); got != 1 {
		t.Errorf("Expected 1 alert, got %d", got)
	}
	if len(pub.events) != 2 || pub.events[0].Key != "s1:2024-03-04T09:00:00" || pub.events[0].Value != 55 {
		t.Errorf("Unexpected published events %+v", pub.events)
	}
	if m.metrics.publishFailures.Get() != 2 {
		t.Errorf("Expected 2 publish failures, got %d", m.metrics.publishFailures.Get())
	}
}

// TestWritePrometheus tests the metrics output
func TestWritePrometheus(t *testing.T) {
	m := newTestManager(t, 3, "full", 0)
	_ = m.StoreMeasurement("s1:t", 1)
	_ = m.FailNode(0)

	var sb strings.Builder
	m.WritePrometheus(&sb)
	out := sb.String()

	for _, want := range []string{"skv_measurements_stored_total 1", "skv_nodes_alive 2", "skv_nodes_total 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("Metrics output missing %q:\n%s", want, out)
		}
	}
}

// TestConcurrentAccess runs writes, reads, reconfiguration and failures in parallel
func TestConcurrentAccess(t *testing.T) {
	m := newTestManager(t, 5, "partitioned", 3)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := key(w*200 + i)
				if err := m.StoreMeasurement(k, float64(i)); err != nil && store.CodeOf(err) != store.RetCNoAvailableReplica {
					t.Errorf("Unexpected write error: %v", err)
				}
				_, _ = m.RetrieveMeasurement(k)
				_, _ = m.MeasurementExists(k)
			}
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = m.FailNode(i % 5)
			if i%2 == 0 {
				_ = m.SetReplicationStrategy("full", 0)
			} else {
				_ = m.SetReplicationStrategy("partitioned", 1+i%5)
			}
			_ = m.RecoverNode(i % 5)
		}
	}()

	wg.Wait()
	if len(m.StorageStatus()) != 5 {
		t.Error("Node set must never change")
	}
}
