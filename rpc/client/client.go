package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ValentinKolb/sKV/lib/alert"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/util"
	"github.com/ValentinKolb/sKV/rpc/common"
)

// DefaultTimeout is used if the config has no timeout
const DefaultTimeout = 5 * time.Second

// Client talks to a sKV server over HTTP/JSON. It is safe for concurrent use.
type Client struct {
	config  common.ClientConfig
	baseURL string
	http    *http.Client
}

// NewClient creates a new client for the configured endpoint
//
// Usage:
//
//	c := client.NewClient(common.ClientConfig{
//		Endpoint:      "localhost:8080",
//		APIToken:      "secret",
//		TimeoutSecond: 5,
//		RetryCount:    2,
//	})
//	err := c.Ingest(ctx, "sensor1", "2024-03-04T10:00:00", 42.5)
func NewClient(config common.ClientConfig) *Client {
	timeout := time.Duration(config.TimeoutSecond) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if config.RetryCount < 0 {
		config.RetryCount = 0
	}
	return &Client{
		config:  config,
		baseURL: baseURL(config.Endpoint),
		http:    &http.Client{Timeout: timeout},
	}
}

// --------------------------------------------------------------------------
// Measurements
// --------------------------------------------------------------------------

func (c *Client) Ingest(ctx context.Context, sensorID, timestamp string, value float64) error {
	req := common.IngestRequest{SensorID: sensorID, Timestamp: timestamp, Value: &value}
	return c.invoke(ctx, http.MethodPost, "/ingest", req, nil)
}

// IngestBulk blocks until the server finished the simulated bulk ingest
func (c *Client) IngestBulk(ctx context.Context, req common.BulkIngestRequest) (common.BulkIngestResponse, error) {
	var resp common.BulkIngestResponse
	err := c.invoke(ctx, http.MethodPost, "/ingest_bulk", req, &resp)
	return resp, err
}

func (c *Client) Measurement(ctx context.Context, key string) (common.MeasurementResponse, error) {
	var resp common.MeasurementResponse
	err := c.invoke(ctx, http.MethodGet, "/measurement/"+url.PathEscape(key), nil, &resp)
	return resp, err
}

func (c *Client) Measurements(ctx context.Context) (map[string]float64, error) {
	var resp common.MeasurementsResponse
	err := c.invoke(ctx, http.MethodGet, "/measurements", nil, &resp)
	return resp.Measurements, err
}

func (c *Client) RecentMeasurements(ctx context.Context) ([]store.RecentMeasurement, error) {
	var resp common.RecentMeasurementsResponse
	err := c.invoke(ctx, http.MethodGet, "/measurements/recent", nil, &resp)
	return resp.RecentMeasurements, err
}

func (c *Client) Delete(ctx context.Context, key string) error {
	return c.invoke(ctx, http.MethodDelete, "/delete/"+url.PathEscape(key), nil, nil)
}

// --------------------------------------------------------------------------
// Nodes & replication
// --------------------------------------------------------------------------

func (c *Client) FailNode(ctx context.Context, nodeID int) error {
	return c.invoke(ctx, http.MethodPost, "/fail_node/"+strconv.Itoa(nodeID), nil, nil)
}

func (c *Client) RecoverNode(ctx context.Context, nodeID int) error {
	return c.invoke(ctx, http.MethodPost, "/recover_node/"+strconv.Itoa(nodeID), nil, nil)
}

func (c *Client) NodesStatus(ctx context.Context) ([]store.NodeStatus, error) {
	var resp common.NodesResponse
	err := c.invoke(ctx, http.MethodGet, "/nodes_status", nil, &resp)
	return resp.Nodes, err
}

// ConfigureReplication changes the strategy. A nil factor keeps the current one.
func (c *Client) ConfigureReplication(ctx context.Context, strategy string, factor *int) (string, error) {
	var resp common.StatusResponse
	req := common.ReplicationRequest{Strategy: strategy, ReplicationFactor: factor}
	err := c.invoke(ctx, http.MethodPost, "/configure_replication", req, &resp)
	return resp.Message, err
}

func (c *Client) Replication(ctx context.Context) (store.ReplicationConfig, error) {
	var resp common.ConfigResponse
	err := c.invoke(ctx, http.MethodGet, "/replication", nil, &resp)
	return resp.Config, err
}

func (c *Client) ReplicaNodes(ctx context.Context, key string) ([]store.NodeStatus, error) {
	var resp common.NodesResponse
	err := c.invoke(ctx, http.MethodGet, "/replica_nodes/"+url.PathEscape(key), nil, &resp)
	return resp.Nodes, err
}

func (c *Client) NodeContents(ctx context.Context, nodeID int) (store.NodeContents, error) {
	var resp common.NodeContentsResponse
	err := c.invoke(ctx, http.MethodGet, "/debug/db/"+strconv.Itoa(nodeID), nil, &resp)
	return resp.NodeContents, err
}

// --------------------------------------------------------------------------
// Alerts
// --------------------------------------------------------------------------

func (c *Client) SetThreshold(ctx context.Context, sensorID string, threshold float64) error {
	req := common.ThresholdRequest{SensorID: sensorID, Threshold: &threshold}
	return c.invoke(ctx, http.MethodPost, "/set_threshold", req, nil)
}

func (c *Client) SetWeekdayThreshold(ctx context.Context, sensorID, day string, threshold float64) error {
	req := common.WeekdayThresholdRequest{SensorID: sensorID, Day: day, Threshold: &threshold}
	return c.invoke(ctx, http.MethodPost, "/set_weekday_threshold", req, nil)
}

func (c *Client) SetHourlyThreshold(ctx context.Context, sensorID string, startHour, endHour int, threshold float64) error {
	req := common.HourlyThresholdRequest{SensorID: sensorID, StartHour: &startHour, EndHour: &endHour, Threshold: &threshold}
	return c.invoke(ctx, http.MethodPost, "/set_hourly_threshold", req, nil)
}

func (c *Client) Thresholds(ctx context.Context, sensorID string) (alert.ThresholdSet, error) {
	var resp common.ThresholdsResponse
	err := c.invoke(ctx, http.MethodGet, "/thresholds/"+url.PathEscape(sensorID), nil, &resp)
	return resp.Thresholds, err
}

func (c *Client) Alerts(ctx context.Context) ([]alert.AlertEvent, error) {
	var resp common.AlertsResponse
	err := c.invoke(ctx, http.MethodGet, "/alerts", nil, &resp)
	return resp.Alerts, err
}

func (c *Client) RecentAlerts(ctx context.Context) ([]alert.AlertEvent, error) {
	var resp common.RecentAlertsResponse
	err := c.invoke(ctx, http.MethodGet, "/alerts/recent", nil, &resp)
	return resp.RecentAlerts, err
}

// --------------------------------------------------------------------------
// Sensor statistics
// --------------------------------------------------------------------------

func (c *Client) History(ctx context.Context, sensorID string) ([]store.Measurement, error) {
	var resp common.HistoryResponse
	err := c.invoke(ctx, http.MethodGet, "/sensor/"+url.PathEscape(sensorID)+"/history", nil, &resp)
	return resp.Measurements, err
}

// Mean returns the mean of a sensor and whether the server answered from its cache
func (c *Client) Mean(ctx context.Context, sensorID string) (float64, bool, error) {
	var resp common.StatResponse
	if err := c.invoke(ctx, http.MethodGet, "/sensor/"+url.PathEscape(sensorID)+"/mean", nil, &resp); err != nil {
		return 0, false, err
	}
	if resp.Mean == nil {
		return 0, false, store.NewError(store.RetCInternalError, "response without mean")
	}
	return *resp.Mean, resp.Cached, nil
}

// Std returns the sample standard deviation of a sensor and whether the server
// answered from its cache
func (c *Client) Std(ctx context.Context, sensorID string) (float64, bool, error) {
	var resp common.StatResponse
	if err := c.invoke(ctx, http.MethodGet, "/sensor/"+url.PathEscape(sensorID)+"/std", nil, &resp); err != nil {
		return 0, false, err
	}
	if resp.Std == nil {
		return 0, false, store.NewError(store.RetCInternalError, "response without std")
	}
	return *resp.Std, resp.Cached, nil
}

func (c *Client) Summary(ctx context.Context, sensorID string) (util.Stats, error) {
	var resp common.SummaryResponse
	err := c.invoke(ctx, http.MethodGet, "/sensor/"+url.PathEscape(sensorID)+"/summary", nil, &resp)
	return resp.Stats, err
}

// Health does not require a token
func (c *Client) Health(ctx context.Context) (common.HealthResponse, error) {
	var resp common.HealthResponse
	err := c.invoke(ctx, http.MethodGet, "/health", nil, &resp)
	return resp, err
}
