package common

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/sKV/lib/alert"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/util"
)

// --------------------------------------------------------------------------
// Requests
// --------------------------------------------------------------------------
//
// Required numeric fields are pointers so that a missing field can be told
// apart from a zero value. Every request has a Validate method returning a
// *store.Error with code RetCInvalidInput.

// IngestRequest stores a single measurement
type IngestRequest struct {
	SensorID  string   `json:"sensor_id"`
	Timestamp string   `json:"timestamp"`
	Value     *float64 `json:"value"`
}

func (r *IngestRequest) Validate() error {
	if strings.TrimSpace(r.SensorID) == "" || strings.TrimSpace(r.Timestamp) == "" || r.Value == nil {
		return store.NewError(store.RetCInvalidInput, "sensor_id, timestamp and value are required")
	}
	if strings.Contains(r.SensorID, store.KeySeparator) {
		return store.Errorf(store.RetCInvalidInput, "sensor_id must not contain %q", store.KeySeparator)
	}
	return nil
}

// Key returns the measurement key of the request
func (r *IngestRequest) Key() string {
	return store.JoinKey(r.SensorID, r.Timestamp)
}

// BulkIngestRequest starts a simulated bulk ingest. Zero values select the defaults.
type BulkIngestRequest struct {
	Sensors     int     `json:"sensors,omitempty"`
	Iterations  int     `json:"iterations,omitempty"`
	DelayMillis int     `json:"delay_ms,omitempty"`
	MinValue    float64 `json:"min_value,omitempty"`
	MaxValue    float64 `json:"max_value,omitempty"`
}

// Defaults of a bulk ingest
const (
	DefaultBulkSensors     = 15
	DefaultBulkIterations  = 3
	DefaultBulkDelayMillis = 2000
	DefaultBulkMinValue    = 40.0
	DefaultBulkMaxValue    = 70.0
)

// WithDefaults returns a copy with all zero fields set to their defaults
func (r BulkIngestRequest) WithDefaults() BulkIngestRequest {
	if r.Sensors == 0 {
		r.Sensors = DefaultBulkSensors
	}
	if r.Iterations == 0 {
		r.Iterations = DefaultBulkIterations
	}
	if r.DelayMillis == 0 {
		r.DelayMillis = DefaultBulkDelayMillis
	}
	if r.MinValue == 0 && r.MaxValue == 0 {
		r.MinValue, r.MaxValue = DefaultBulkMinValue, DefaultBulkMaxValue
	}
	return r
}

func (r *BulkIngestRequest) Validate() error {
	if r.Sensors < 0 || r.Iterations < 0 || r.DelayMillis < 0 {
		return store.NewError(store.RetCInvalidInput, "sensors, iterations and delay_ms must not be negative")
	}
	if r.MinValue > r.MaxValue {
		return store.NewError(store.RetCInvalidInput, "min_value must not be greater than max_value")
	}
	return nil
}

// ThresholdRequest sets the base threshold of a sensor
type ThresholdRequest struct {
	SensorID  string   `json:"sensor_id"`
	Threshold *float64 `json:"threshold"`
}

func (r *ThresholdRequest) Validate() error {
	if strings.TrimSpace(r.SensorID) == "" || r.Threshold == nil {
		return store.NewError(store.RetCInvalidInput, "sensor_id and threshold are required")
	}
	return nil
}

// WeekdayThresholdRequest sets the threshold of a sensor for one weekday
type WeekdayThresholdRequest struct {
	SensorID  string   `json:"sensor_id"`
	Day       string   `json:"day"`
	Threshold *float64 `json:"threshold"`
}

func (r *WeekdayThresholdRequest) Validate() error {
	if strings.TrimSpace(r.SensorID) == "" || strings.TrimSpace(r.Day) == "" || r.Threshold == nil {
		return store.NewError(store.RetCInvalidInput, "sensor_id, day and threshold are required")
	}
	return nil
}

// HourlyThresholdRequest sets the threshold of a sensor for an hour range
type HourlyThresholdRequest struct {
	SensorID  string   `json:"sensor_id"`
	StartHour *int     `json:"start_hour"`
	EndHour   *int     `json:"end_hour"`
	Threshold *float64 `json:"threshold"`
}

func (r *HourlyThresholdRequest) Validate() error {
	if strings.TrimSpace(r.SensorID) == "" || r.StartHour == nil || r.EndHour == nil || r.Threshold == nil {
		return store.NewError(store.RetCInvalidInput, "sensor_id, start_hour, end_hour and threshold are required")
	}
	return nil
}

// ReplicationRequest changes the replication strategy
type ReplicationRequest struct {
	Strategy          string `json:"strategy"`
	ReplicationFactor *int   `json:"replication_factor,omitempty"`
}

func (r *ReplicationRequest) Validate() error {
	if strings.TrimSpace(r.Strategy) == "" {
		return store.NewError(store.RetCInvalidInput, "replication strategy is required")
	}
	return nil
}

// Factor returns the requested factor or fallback if none was given
func (r *ReplicationRequest) Factor(fallback int) int {
	if r.ReplicationFactor == nil {
		return fallback
	}
	return *r.ReplicationFactor
}

// --------------------------------------------------------------------------
// Responses
// --------------------------------------------------------------------------

const StatusSuccess = "success"

// StatusResponse is returned by operations without payload
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewStatusResponse creates a success response with a formatted message
func NewStatusResponse(format string, args ...any) StatusResponse {
	return StatusResponse{Status: StatusSuccess, Message: fmt.Sprintf(format, args...)}
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MeasurementResponse is the result of a single read
type MeasurementResponse struct {
	Status  string  `json:"status"`
	Key     string  `json:"key"`
	Value   float64 `json:"value"`
	NodeID  int     `json:"node_id"`
	Message string  `json:"message"`
}

// MeasurementsResponse maps keys to values
type MeasurementsResponse struct {
	Status       string             `json:"status"`
	Measurements map[string]float64 `json:"measurements"`
}

// RecentMeasurementsResponse lists the recent writes, newest first
type RecentMeasurementsResponse struct {
	Status             string                    `json:"status"`
	RecentMeasurements []store.RecentMeasurement `json:"recent_measurements"`
}

// HistoryResponse lists the measurements of a sensor sorted by key
type HistoryResponse struct {
	Status       string              `json:"status"`
	SensorID     string              `json:"sensor_id"`
	Measurements []store.Measurement `json:"measurements"`
}

// NodesResponse lists node states
type NodesResponse struct {
	Status string             `json:"status"`
	Nodes  []store.NodeStatus `json:"nodes"`
}

// NodeContentsResponse is a debug dump of a node
type NodeContentsResponse struct {
	Status string `json:"status"`
	store.NodeContents
}

// ConfigResponse returns the active replication configuration
type ConfigResponse struct {
	Status string                  `json:"status"`
	Config store.ReplicationConfig `json:"config"`
}

// AlertsResponse lists alerts, oldest first
type AlertsResponse struct {
	Status string             `json:"status"`
	Alerts []alert.AlertEvent `json:"alerts"`
}

// RecentAlertsResponse lists the last alerts, oldest first
type RecentAlertsResponse struct {
	Status       string             `json:"status"`
	RecentAlerts []alert.AlertEvent `json:"recent_alerts"`
}

// ThresholdsResponse returns the thresholds of a sensor
type ThresholdsResponse struct {
	Status     string             `json:"status"`
	Thresholds alert.ThresholdSet `json:"thresholds"`
}

// StatResponse returns a single cached statistic of a sensor
type StatResponse struct {
	SensorID string   `json:"sensor_id"`
	Mean     *float64 `json:"mean,omitempty"`
	Std      *float64 `json:"std,omitempty"`
	Cached   bool     `json:"cached"`
}

// SummaryResponse returns uncached statistics of a sensor
type SummaryResponse struct {
	Status   string     `json:"status"`
	SensorID string     `json:"sensor_id"`
	Stats    util.Stats `json:"stats"`
}

// BulkIngestResponse reports the result of a bulk ingest
type BulkIngestResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Stored  int    `json:"stored"`
	Failed  int    `json:"failed"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status     string `json:"status"`
	AliveNodes int    `json:"alive_nodes"`
	Nodes      int    `json:"nodes"`
}
