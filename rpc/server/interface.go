package server

import (
	"io"

	"github.com/ValentinKolb/sKV/lib/alert"
	"github.com/ValentinKolb/sKV/lib/util"
)

// IAlertService is the part of the alert manager the HTTP API exposes
type IAlertService interface {
	SetThreshold(sensorID string, threshold float64) error
	SetWeekdayThreshold(sensorID, day string, threshold float64) error
	SetHourlyThreshold(sensorID string, startHour, endHour int, threshold float64) error
	Thresholds(sensorID string) (alert.ThresholdSet, error)
	Alerts() []alert.AlertEvent
	RecentAlerts() []alert.AlertEvent
}

// IStatsService computes (cached) statistics over the readings of a sensor.
// The bool result of Mean and Std reports whether the value came from the cache.
type IStatsService interface {
	Mean(sensorID string) (float64, bool, error)
	Std(sensorID string) (float64, bool, error)
	Summary(sensorID string) (util.Stats, error)
}

// IPrometheusWriter is implemented by components exporting their own metrics set
type IPrometheusWriter interface {
	WritePrometheus(w io.Writer)
}
