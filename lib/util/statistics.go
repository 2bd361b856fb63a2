package util

import (
	"math"
)

// ----------------------------------------------------------------------------
// Sample statistics
// ----------------------------------------------------------------------------

// Stats summarises a series of readings.
// StdDeviation is the sample standard deviation (n-1 in the denominator) and is
// zero for fewer than two values.
type Stats struct {
	Count        int     `json:"count"`
	Mean         float64 `json:"mean"`
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	MinMaxRatio  float64 `json:"min_max_ratio"`
}

// NewStats computes count, mean, sample standard deviation, minimum and maximum
// of the given values.
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	min := values[0]
	max := values[0]

	var sum float64
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	mean := sum / float64(len(values))

	// sum of squared differences from the mean
	var sumSquaredDiffs float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiffs += diff * diff
	}

	var stdDev float64
	if len(values) > 1 {
		stdDev = math.Sqrt(sumSquaredDiffs / float64(len(values)-1))
	}

	minMaxRatio := 1.0
	if max > 0 {
		minMaxRatio = min / max
	}

	return Stats{
		Count:        len(values),
		Mean:         mean,
		StdDeviation: stdDev,
		Min:          min,
		Max:          max,
		MinMaxRatio:  minMaxRatio,
	}
}

// ----------------------------------------------------------------------------
// Placement quality
// ----------------------------------------------------------------------------

// DistributionStats rates how evenly keys are spread over the storage nodes.
type DistributionStats struct {
	Stats
	DistributionQuality float64 `json:"distribution_quality"`
}

// NewDistributionStats computes quality metrics for the given per-node key counts.
// A quality of 1 means every node holds the same number of keys.
func NewDistributionStats(keysPerNode []float64) DistributionStats {
	stats := NewStats(keysPerNode)

	// coefficient of variation
	var cv float64
	if stats.Mean > 0 {
		cv = stats.StdDeviation / stats.Mean
	}

	// lower CV and higher min/max ratio indicate a better distribution
	quality := (1.0-math.Min(1.0, cv))*0.5 + stats.MinMaxRatio*0.5

	return DistributionStats{
		Stats:               stats,
		DistributionQuality: quality,
	}
}
