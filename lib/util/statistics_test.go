package util

import (
	"math"
	"testing"
)

// TestNewStats tests mean and sample standard deviation
func TestNewStats(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		mean    float64
		std     float64
		min     float64
		max     float64
		wantLen int
	}{
		{name: "empty", values: nil},
		{name: "single value", values: []float64{42}, mean: 42, std: 0, min: 42, max: 42, wantLen: 1},
		{name: "two values", values: []float64{40, 60}, mean: 50, std: math.Sqrt(200), min: 40, max: 60, wantLen: 2},
		{name: "series", values: []float64{2, 4, 4, 4, 5, 5, 7, 9}, mean: 5, std: math.Sqrt(32.0 / 7.0), min: 2, max: 9, wantLen: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStats(tt.values)
			if s.Count != tt.wantLen {
				t.Errorf("Count = %d, want %d", s.Count, tt.wantLen)
			}
			if math.Abs(s.Mean-tt.mean) > 1e-9 {
				t.Errorf("Mean = %v, want %v", s.Mean, tt.mean)
			}
			if math.Abs(s.StdDeviation-tt.std) > 1e-9 {
				t.Errorf("StdDeviation = %v, want %v", s.StdDeviation, tt.std)
			}
			if s.Min != tt.min || s.Max != tt.max {
				t.Errorf("Min/Max = %v/%v, want %v/%v", s.Min, s.Max, tt.min, tt.max)
			}
		})
	}
}

// TestNewDistributionStats tests the placement quality score
func TestNewDistributionStats(t *testing.T) {
	even := NewDistributionStats([]float64{10, 10, 10})
	if even.DistributionQuality != 1 {
		t.Errorf("Even distribution should have quality 1, got %v", even.DistributionQuality)
	}

	skewed := NewDistributionStats([]float64{30, 0, 0})
	if skewed.DistributionQuality >= even.DistributionQuality {
		t.Errorf("Skewed distribution should score lower than even, got %v", skewed.DistributionQuality)
	}
}
