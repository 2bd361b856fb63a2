package alert

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("alert")

// DefaultRecentAlerts is the default number of alerts returned by RecentAlerts
const DefaultRecentAlerts = 10

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// RuleKind names the kind of threshold that triggered an alert
type RuleKind string

const (
	RuleBase    RuleKind = "base"
	RuleWeekday RuleKind = "weekday"
	RuleHourly  RuleKind = "hourly"
)

// HourlyThreshold applies to readings whose hour lies in StartHour..EndHour
type HourlyThreshold struct {
	StartHour int     `json:"start_hour"`
	EndHour   int     `json:"end_hour"`
	Threshold float64 `json:"threshold"`
}

// contains returns true if the hour lies inside the range
func (h HourlyThreshold) contains(hour int) bool {
	return hour >= h.StartHour && hour <= h.EndHour
}

// ThresholdSet is a copy of the thresholds configured for a sensor
type ThresholdSet struct {
	SensorID  string             `json:"sensor_id"`
	Base      *float64           `json:"base,omitempty"`
	ByWeekday map[string]float64 `json:"by_weekday,omitempty"`
	ByHour    []HourlyThreshold  `json:"by_hour,omitempty"`
}

// AlertEvent is a single entry of the alert log
type AlertEvent struct {
	SensorID    string    `json:"sensor_id"`
	Value       float64   `json:"value"`
	Threshold   float64   `json:"threshold"`
	Rule        RuleKind  `json:"rule"`
	Timestamp   string    `json:"timestamp"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// thresholds is the internal per sensor configuration
type thresholds struct {
	base      *float64
	byWeekday map[time.Weekday]float64
	byHour    []HourlyThreshold
}

// --------------------------------------------------------------------------
// Manager
// --------------------------------------------------------------------------

// Manager holds the thresholds of all sensors and the alert log
type Manager struct {
	mu          sync.RWMutex
	sensors     map[string]*thresholds
	alerts      []AlertEvent
	recentLimit int
	now         func() time.Time
}

// NewManager creates an empty alert manager. RecentAlerts returns the last
// recentLimit alerts, a value < 1 selects DefaultRecentAlerts.
func NewManager(recentLimit int) *Manager {
	if recentLimit < 1 {
		recentLimit = DefaultRecentAlerts
	}
	return &Manager{
		sensors:     make(map[string]*thresholds),
		recentLimit: recentLimit,
		now:         time.Now,
	}
}

// sensor returns the thresholds of a sensor, creating them if needed.
// The caller must hold the write lock.
func (m *Manager) sensor(sensorID string) *thresholds {
	t, ok := m.sensors[sensorID]
	if !ok {
		t = &thresholds{byWeekday: make(map[time.Weekday]float64)}
		m.sensors[sensorID] = t
	}
	return t
}

// SetThreshold sets the base threshold of a sensor
func (m *Manager) SetThreshold(sensorID string, threshold float64) error {
	if sensorID == "" {
		return store.NewError(store.RetCInvalidInput, "sensor id must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sensor(sensorID).base = &threshold
	log.Debugf("base threshold of %s set to %v", sensorID, threshold)
	return nil
}

// SetWeekdayThreshold sets the threshold of a sensor for one weekday.
// The day is an English weekday name or its three letter abbreviation (case-insensitive).
func (m *Manager) SetWeekdayThreshold(sensorID, day string, threshold float64) error {
	if sensorID == "" {
		return store.NewError(store.RetCInvalidInput, "sensor id must not be empty")
	}
	weekday, err := ParseWeekday(day)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sensor(sensorID).byWeekday[weekday] = threshold
	log.Debugf("%s threshold of %s set to %v", weekday, sensorID, threshold)
	return nil
}

// SetHourlyThreshold sets the threshold of a sensor for the hours startHour..endHour.
// Both hours must be in [0,24) and startHour < endHour. Setting the same range
// again replaces its threshold and keeps its position.
func (m *Manager) SetHourlyThreshold(sensorID string, startHour, endHour int, threshold float64) error {
	if sensorID == "" {
		return store.NewError(store.RetCInvalidInput, "sensor id must not be empty")
	}
	if startHour < 0 || startHour > 23 || endHour < 0 || endHour > 23 || startHour >= endHour {
		return store.Errorf(store.RetCInvalidRange,
			"invalid hour range %d-%d: hours must be in [0,24) and start < end", startHour, endHour)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.sensor(sensorID)
	for i := range t.byHour {
		if t.byHour[i].StartHour == startHour && t.byHour[i].EndHour == endHour {
			t.byHour[i].Threshold = threshold
			return nil
		}
	}
	t.byHour = append(t.byHour, HourlyThreshold{StartHour: startHour, EndHour: endHour, Threshold: threshold})
	log.Debugf("hourly threshold %d-%d of %s set to %v", startHour, endHour, sensorID, threshold)
	return nil
}

// Thresholds returns a copy of the thresholds configured for a sensor.
// Returns a NotFound error if the sensor has none.
func (m *Manager) Thresholds(sensorID string) (ThresholdSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.sensors[sensorID]
	if !ok {
		return ThresholdSet{}, store.Errorf(store.RetCNotFound, "no thresholds for sensor %q", sensorID)
	}

	set := ThresholdSet{
		SensorID:  sensorID,
		ByWeekday: make(map[string]float64, len(t.byWeekday)),
		ByHour:    append([]HourlyThreshold(nil), t.byHour...),
	}
	if t.base != nil {
		base := *t.base
		set.Base = &base
	}
	for day, v := range t.byWeekday {
		set.ByWeekday[strings.ToLower(day.String())] = v
	}
	return set, nil
}

// --------------------------------------------------------------------------
// Evaluation
// --------------------------------------------------------------------------

// applicable returns the threshold that applies at the given time.
// If the timestamp was not parsed only the base threshold applies.
func (t *thresholds) applicable(at time.Time, parsed bool) (float64, RuleKind, bool) {
	if parsed {
		hour := at.Hour()
		for _, h := range t.byHour {
			if h.contains(hour) {
				return h.Threshold, RuleHourly, true
			}
		}
		if v, ok := t.byWeekday[at.Weekday()]; ok {
			return v, RuleWeekday, true
		}
	}
	if t.base != nil {
		return *t.base, RuleBase, true
	}
	return 0, "", false
}

// Evaluate checks a reading against the most specific threshold of its sensor.
// If the value exceeds the threshold an AlertEvent is appended to the log and
// returned together with true.
func (m *Manager) Evaluate(sensorID string, value float64, timestamp string) (AlertEvent, bool) {
	at, err := store.ParseTimestamp(timestamp)
	parsed := err == nil
	if !parsed {
		log.Debugf("timestamp %q of %s not parsable, using base threshold", timestamp, sensorID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.sensors[sensorID]
	if !ok {
		return AlertEvent{}, false
	}

	threshold, rule, ok := t.applicable(at, parsed)
	if !ok || value <= threshold {
		return AlertEvent{}, false
	}

	event := AlertEvent{
		SensorID:    sensorID,
		Value:       value,
		Threshold:   threshold,
		Rule:        rule,
		Timestamp:   timestamp,
		TriggeredAt: m.now(),
	}
	m.alerts = append(m.alerts, event)
	log.Infof("alert: %s reported %v above %s threshold %v at %s", sensorID, value, rule, threshold, timestamp)
	return event, true
}

// Alerts returns all alerts, oldest first
func (m *Manager) Alerts() []AlertEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]AlertEvent(nil), m.alerts...)
}

// RecentAlerts returns the most recent alerts, oldest first
func (m *Manager) RecentAlerts() []AlertEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := len(m.alerts) - m.recentLimit
	if start < 0 {
		start = 0
	}
	return append([]AlertEvent(nil), m.alerts[start:]...)
}

// Sensors returns the ids of all sensors with thresholds, sorted
func (m *Manager) Sensors() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sensors))
	for id := range m.sensors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
