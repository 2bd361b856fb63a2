package server

import (
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/gorilla/mux"
)

// --------------------------------------------------------------------------
// Measurements
// --------------------------------------------------------------------------

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req common.IngestRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	key := req.Key()
	if err := s.measurements.StoreMeasurement(key, *req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.NewStatusResponse("Measurement %s stored successfully", key))
}

// handleIngestBulk simulates a set of sensors sending random readings.
// Each iteration writes one reading per sensor, iterations are separated by
// the configured delay.
func (s *Server) handleIngestBulk(w http.ResponseWriter, r *http.Request) {
	var req common.BulkIngestRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req = req.WithDefaults()

	resp := common.BulkIngestResponse{Status: common.StatusSuccess}
	delay := time.Duration(req.DelayMillis) * time.Millisecond

	for i := 0; i < req.Iterations; i++ {
		if i > 0 {
			select {
			case <-r.Context().Done():
				resp.Message = "Bulk ingest cancelled"
				writeJSON(w, http.StatusOK, resp)
				return
			case <-time.After(delay):
			}
		}

		timestamp := store.FormatTimestamp(time.Now())
		for sensor := 1; sensor <= req.Sensors; sensor++ {
			value := req.MinValue + rand.Float64()*(req.MaxValue-req.MinValue)
			value = math.Round(value*100) / 100
			key := store.JoinKey("sensor"+strconv.Itoa(sensor), timestamp)

			if err := s.measurements.StoreMeasurement(key, value); err != nil {
				log.Warningf("[%s] bulk ingest of %s failed: %v", RequestID(r.Context()), key, err)
				resp.Failed++
				continue
			}
			resp.Stored++
		}
	}

	resp.Message = "Bulk measurements sent successfully"
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetMeasurement(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	result, err := s.measurements.RetrieveMeasurement(key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.MeasurementResponse{
		Status:  common.StatusSuccess,
		Key:     result.Key,
		Value:   result.Value,
		NodeID:  result.NodeID,
		Message: result.Message,
	})
}

func (s *Server) handleAllMeasurements(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, common.MeasurementsResponse{
		Status:       common.StatusSuccess,
		Measurements: s.measurements.AllMeasurements(),
	})
}

func (s *Server) handleRecentMeasurements(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, common.RecentMeasurementsResponse{
		Status:             common.StatusSuccess,
		RecentMeasurements: s.measurements.RecentMeasurements(),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if err := s.measurements.DeleteMeasurement(key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.NewStatusResponse("Measurement %s deleted successfully", key))
}

// --------------------------------------------------------------------------
// Nodes & replication
// --------------------------------------------------------------------------

// nodeID parses the {id} path variable
func nodeID(r *http.Request) (int, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, store.Errorf(store.RetCInvalidInput, "invalid node id %q", raw)
	}
	return id, nil
}

func (s *Server) handleFailNode(w http.ResponseWriter, r *http.Request) {
	id, err := nodeID(r)
	if err == nil {
		err = s.measurements.FailNode(id)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.NewStatusResponse("Node %d marked as failed", id))
}

func (s *Server) handleRecoverNode(w http.ResponseWriter, r *http.Request) {
	id, err := nodeID(r)
	if err == nil {
		err = s.measurements.RecoverNode(id)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.NewStatusResponse("Node %d recovered", id))
}

func (s *Server) handleNodesStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, common.NodesResponse{
		Status: common.StatusSuccess,
		Nodes:  s.measurements.StorageStatus(),
	})
}

func (s *Server) handleConfigureReplication(w http.ResponseWriter, r *http.Request) {
	var req common.ReplicationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	factor := req.Factor(s.measurements.Config().ReplicationFactor)
	if err := s.measurements.SetReplicationStrategy(req.Strategy, factor); err != nil {
		writeError(w, err)
		return
	}

	cfg := s.measurements.Config()
	writeJSON(w, http.StatusOK, common.NewStatusResponse("Strategy set to %s with factor %d", cfg.Strategy, cfg.ReplicationFactor))
}

func (s *Server) handleReplicationConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, common.ConfigResponse{
		Status: common.StatusSuccess,
		Config: s.measurements.Config(),
	})
}

func (s *Server) handleReplicaNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.measurements.ResponsibleNodes(mux.Vars(r)["key"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.NodesResponse{Status: common.StatusSuccess, Nodes: nodes})
}

func (s *Server) handleDebugNode(w http.ResponseWriter, r *http.Request) {
	id, err := nodeID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	contents, err := s.measurements.NodeContents(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.NodeContentsResponse{Status: common.StatusSuccess, NodeContents: contents})
}

// --------------------------------------------------------------------------
// Alerts
// --------------------------------------------------------------------------

func (s *Server) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	var req common.ThresholdRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.alerts.SetThreshold(req.SensorID, *req.Threshold); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.NewStatusResponse("Threshold for sensor %s set to %g", req.SensorID, *req.Threshold))
}

func (s *Server) handleSetWeekdayThreshold(w http.ResponseWriter, r *http.Request) {
	var req common.WeekdayThresholdRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.alerts.SetWeekdayThreshold(req.SensorID, req.Day, *req.Threshold); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.NewStatusResponse("Set threshold for %s on %s to %g", req.SensorID, req.Day, *req.Threshold))
}

func (s *Server) handleSetHourlyThreshold(w http.ResponseWriter, r *http.Request) {
	var req common.HourlyThresholdRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.alerts.SetHourlyThreshold(req.SensorID, *req.StartHour, *req.EndHour, *req.Threshold); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.NewStatusResponse("Set hourly threshold %d-%d for %s to %g",
		*req.StartHour, *req.EndHour, req.SensorID, *req.Threshold))
}

func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	set, err := s.alerts.Thresholds(mux.Vars(r)["sensor_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.ThresholdsResponse{Status: common.StatusSuccess, Thresholds: set})
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, common.AlertsResponse{Status: common.StatusSuccess, Alerts: s.alerts.Alerts()})
}

func (s *Server) handleRecentAlerts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, common.RecentAlertsResponse{Status: common.StatusSuccess, RecentAlerts: s.alerts.RecentAlerts()})
}

// --------------------------------------------------------------------------
// Sensor statistics
// --------------------------------------------------------------------------

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sensorID := mux.Vars(r)["sensor_id"]
	writeJSON(w, http.StatusOK, common.HistoryResponse{
		Status:       common.StatusSuccess,
		SensorID:     sensorID,
		Measurements: s.measurements.SensorMeasurements(sensorID),
	})
}

func (s *Server) handleMean(w http.ResponseWriter, r *http.Request) {
	sensorID := mux.Vars(r)["sensor_id"]
	mean, cached, err := s.stats.Mean(sensorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.StatResponse{SensorID: sensorID, Mean: &mean, Cached: cached})
}

func (s *Server) handleStd(w http.ResponseWriter, r *http.Request) {
	sensorID := mux.Vars(r)["sensor_id"]
	std, cached, err := s.stats.Std(sensorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.StatResponse{SensorID: sensorID, Std: &std, Cached: cached})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sensorID := mux.Vars(r)["sensor_id"]
	summary, err := s.stats.Summary(sensorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.SummaryResponse{Status: common.StatusSuccess, SensorID: sensorID, Stats: summary})
}

// --------------------------------------------------------------------------
// Health & metrics
// --------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	nodes := s.measurements.StorageStatus()
	alive := 0
	for _, n := range nodes {
		if n.Alive {
			alive++
		}
	}

	status := "ok"
	if alive == 0 {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, common.HealthResponse{Status: status, AliveNodes: alive, Nodes: len(nodes)})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w, true)
	if pw, ok := s.measurements.(IPrometheusWriter); ok {
		pw.WritePrometheus(w)
	}
}
