package alert

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/sKV/lib/store"
)

// 2024-03-04 is a Monday
const monday = "2024-03-04"

func at(day string, hour int) string {
	return fmt.Sprintf("%sT%02d:30:00", day, hour)
}

// TestThresholdPrecedence tests hourly > weekday > base
func TestThresholdPrecedence(t *testing.T) {
	m := NewManager(0)
	must(t, m.SetThreshold("s1", 60))
	must(t, m.SetHourlyThreshold("s1", 8, 10, 50))

	tests := []struct {
		name  string
		value float64
		ts    string
		alert bool
		rule  RuleKind
	}{
		{"hourly applies at 9", 55, at(monday, 9), true, RuleHourly},
		{"base applies at 14", 55, at(monday, 14), false, ""},
		{"hourly applies above base too", 65, at(monday, 9), true, RuleHourly},
		{"end hour is inclusive", 55, at(monday, 10), true, RuleHourly},
		{"equal value does not alert", 60, at(monday, 14), false, ""},
		{"base above threshold", 61, at(monday, 14), true, RuleBase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := m.Evaluate("s1", tt.value, tt.ts)
			if ok != tt.alert {
				t.Fatalf("Evaluate alert = %v, want %v", ok, tt.alert)
			}
			if ok && event.Rule != tt.rule {
				t.Errorf("Rule = %s, want %s", event.Rule, tt.rule)
			}
		})
	}
}

// TestWeekdayOverridesBase tests that a weekday threshold beats the base threshold
func TestWeekdayOverridesBase(t *testing.T) {
	m := NewManager(0)
	must(t, m.SetThreshold("s1", 60))
	must(t, m.SetWeekdayThreshold("s1", "Monday", 40))
	must(t, m.SetHourlyThreshold("s1", 0, 2, 90))

	if event, ok := m.Evaluate("s1", 45, at(monday, 12)); !ok || event.Rule != RuleWeekday || event.Threshold != 40 {
		t.Errorf("Expected weekday alert, got %+v ok=%v", event, ok)
	}
	// Tuesday falls back to base
	if _, ok := m.Evaluate("s1", 45, at("2024-03-05", 12)); ok {
		t.Error("Tuesday reading below base should not alert")
	}
	// hourly beats weekday
	if _, ok := m.Evaluate("s1", 45, at(monday, 1)); ok {
		t.Error("Hourly threshold 90 should apply at 01:30")
	}
}

// TestOverlappingRangesFirstWins tests that the first inserted range wins
func TestOverlappingRangesFirstWins(t *testing.T) {
	m := NewManager(0)
	must(t, m.SetHourlyThreshold("s1", 6, 12, 70))
	must(t, m.SetHourlyThreshold("s1", 8, 10, 30))

	if _, ok := m.Evaluate("s1", 50, at(monday, 9)); ok {
		t.Error("First inserted range (70) should win")
	}

	// upsert keeps the position
	must(t, m.SetHourlyThreshold("s1", 6, 12, 40))
	if event, ok := m.Evaluate("s1", 50, at(monday, 9)); !ok || event.Threshold != 40 {
		t.Errorf("Expected updated first range to apply, got %+v ok=%v", event, ok)
	}

	set, err := m.Thresholds("s1")
	must(t, err)
	if len(set.ByHour) != 2 || set.ByHour[0].StartHour != 6 {
		t.Errorf("Unexpected hourly ranges %+v", set.ByHour)
	}
}

// TestNoThresholdNeverAlerts tests sensors without configuration
func TestNoThresholdNeverAlerts(t *testing.T) {
	m := NewManager(0)
	if _, ok := m.Evaluate("unknown", 1e9, at(monday, 9)); ok {
		t.Error("Sensor without thresholds should never alert")
	}

	// only an hourly threshold, reading outside the range
	must(t, m.SetHourlyThreshold("s2", 8, 10, 1))
	if _, ok := m.Evaluate("s2", 100, at(monday, 20)); ok {
		t.Error("No applicable threshold should not alert")
	}
}

// TestUnparsableTimestampUsesBase tests the fallback to the base threshold
func TestUnparsableTimestampUsesBase(t *testing.T) {
	m := NewManager(0)
	must(t, m.SetThreshold("s1", 60))
	must(t, m.SetHourlyThreshold("s1", 0, 23, 10))

	event, ok := m.Evaluate("s1", 61, "not-a-time")
	if !ok || event.Rule != RuleBase {
		t.Errorf("Expected base alert, got %+v ok=%v", event, ok)
	}
	if _, ok := m.Evaluate("s1", 20, "not-a-time"); ok {
		t.Error("Hourly rule must not apply for unparsable timestamps")
	}
}

// TestValidation tests input validation of the setters
func TestValidation(t *testing.T) {
	m := NewManager(0)

	tests := []struct {
		name string
		err  error
		code store.RetCode
	}{
		{"empty sensor base", m.SetThreshold("", 1), store.RetCInvalidInput},
		{"empty sensor weekday", m.SetWeekdayThreshold("", "monday", 1), store.RetCInvalidInput},
		{"empty sensor hourly", m.SetHourlyThreshold("", 1, 2, 1), store.RetCInvalidInput},
		{"bad weekday", m.SetWeekdayThreshold("s1", "Funday", 1), store.RetCInvalidWeekday},
		{"start equals end", m.SetHourlyThreshold("s1", 5, 5, 1), store.RetCInvalidRange},
		{"start after end", m.SetHourlyThreshold("s1", 10, 5, 1), store.RetCInvalidRange},
		{"end out of range", m.SetHourlyThreshold("s1", 5, 24, 1), store.RetCInvalidRange},
		{"negative start", m.SetHourlyThreshold("s1", -1, 5, 1), store.RetCInvalidRange},
		{"abbreviation", m.SetWeekdayThreshold("s1", "TUE", 1), store.RetCSuccess},
		{"mixed case", m.SetWeekdayThreshold("s1", "wEdNeSdAy", 1), store.RetCSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.CodeOf(tt.err); got != tt.code {
				t.Errorf("Code = %s, want %s (%v)", got, tt.code, tt.err)
			}
		})
	}

	if _, err := m.Thresholds("nobody"); store.CodeOf(err) != store.RetCNotFound {
		t.Errorf("Expected NotFound for unknown sensor, got %v", err)
	}
}

// TestAlertLog tests ordering of Alerts and RecentAlerts
func TestAlertLog(t *testing.T) {
	m := NewManager(3)
	must(t, m.SetThreshold("s1", 0))

	for i := 1; i <= 5; i++ {
		m.Evaluate("s1", float64(i), at(monday, 9))
	}

	all := m.Alerts()
	if len(all) != 5 || all[0].Value != 1 || all[4].Value != 5 {
		t.Fatalf("Alerts not oldest first: %+v", all)
	}

	recent := m.RecentAlerts()
	if len(recent) != 3 || recent[0].Value != 3 || recent[2].Value != 5 {
		t.Errorf("RecentAlerts = %+v, want values 3,4,5", recent)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}
