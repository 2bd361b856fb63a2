// Package alert implements threshold based alerting for sensor measurements.
//
// Every sensor can carry three kinds of thresholds:
//
//   - a base threshold
//   - one threshold per weekday
//   - an ordered list of hourly ranges, each covering the hours start..end (inclusive)
//
// Evaluate picks the most specific threshold for a reading: a matching hourly
// range wins over a weekday threshold, which wins over the base threshold. If
// several hourly ranges contain the hour, the range inserted first wins. A
// reading strictly above the chosen threshold appends an AlertEvent to the
// alert log. Sensors without any threshold never alert, and readings whose
// timestamp cannot be parsed are only checked against the base threshold.
//
// The Manager is safe for concurrent use. Thresholds and alerts live for the
// lifetime of the process.
package alert
