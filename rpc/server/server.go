package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/gorilla/mux"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/time/rate"
)

var log = logger.GetLogger("server")

// ShutdownTimeout bounds the graceful shutdown of the HTTP server
const ShutdownTimeout = 5 * time.Second

// Server exposes the measurement store, the alert manager and the statistics
// service over HTTP/JSON.
type Server struct {
	config       common.ServerConfig
	measurements store.IMeasurementStore
	alerts       IAlertService
	stats        IStatsService
	router       *mux.Router
}

// NewServer creates a new server and registers all routes.
//
// Usage:
//
//	s := server.NewServer(config, manager, alerts, stats.NewService(manager, ttl))
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewServer(
	config common.ServerConfig,
	measurements store.IMeasurementStore,
	alerts IAlertService,
	stats IStatsService,
) *Server {
	s := &Server{
		config:       config,
		measurements: measurements,
		alerts:       alerts,
		stats:        stats,
		router:       mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Use(requestIDMiddleware)
	if s.config.LogLevel == "debug" {
		s.router.Use(loggerMiddleware)
	}
	if s.config.RateLimit > 0 {
		burst := s.config.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.router.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(s.config.RateLimit), burst)))
	}

	// unauthenticated
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := s.router.NewRoute().Subrouter()
	api.Use(authMiddleware(s.config.APIToken))

	// measurements
	api.HandleFunc("/ingest", s.handleIngest).Methods(http.MethodPost)
	api.HandleFunc("/ingest_bulk", s.handleIngestBulk).Methods(http.MethodPost)
	api.HandleFunc("/measurement/{key}", s.handleGetMeasurement).Methods(http.MethodGet)
	api.HandleFunc("/measurements", s.handleAllMeasurements).Methods(http.MethodGet)
	api.HandleFunc("/measurements/recent", s.handleRecentMeasurements).Methods(http.MethodGet)
	api.HandleFunc("/delete/{key}", s.handleDelete).Methods(http.MethodDelete)

	// nodes & replication
	api.HandleFunc("/fail_node/{id}", s.handleFailNode).Methods(http.MethodPost)
	api.HandleFunc("/recover_node/{id}", s.handleRecoverNode).Methods(http.MethodPost)
	api.HandleFunc("/nodes_status", s.handleNodesStatus).Methods(http.MethodGet)
	api.HandleFunc("/configure_replication", s.handleConfigureReplication).Methods(http.MethodPost)
	api.HandleFunc("/replication", s.handleReplicationConfig).Methods(http.MethodGet)
	api.HandleFunc("/replica_nodes/{key}", s.handleReplicaNodes).Methods(http.MethodGet)
	api.HandleFunc("/debug/db/{id}", s.handleDebugNode).Methods(http.MethodGet)

	// alerts
	api.HandleFunc("/set_threshold", s.handleSetThreshold).Methods(http.MethodPost)
	api.HandleFunc("/set_weekday_threshold", s.handleSetWeekdayThreshold).Methods(http.MethodPost)
	api.HandleFunc("/set_hourly_threshold", s.handleSetHourlyThreshold).Methods(http.MethodPost)
	api.HandleFunc("/thresholds/{sensor_id}", s.handleThresholds).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.handleAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/recent", s.handleRecentAlerts).Methods(http.MethodGet)

	// sensor statistics
	api.HandleFunc("/sensor/{sensor_id}/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/sensor/{sensor_id}/mean", s.handleMean).Methods(http.MethodGet)
	api.HandleFunc("/sensor/{sensor_id}/std", s.handleStd).Methods(http.MethodGet)
	api.HandleFunc("/sensor/{sensor_id}/summary", s.handleSummary).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse(http.StatusNotFound, "RouteNotFound", "endpoint not found"))
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse(http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed"))
	})
}

// Serve listens on the configured endpoint until ctx is done and then shuts
// the server down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Endpoint,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting HTTP server on %s", s.config.Endpoint)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	log.Infof("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Response helpers
// --------------------------------------------------------------------------

// StatusOf maps an error code to its HTTP status
func StatusOf(code store.RetCode) int {
	switch code {
	case store.RetCSuccess:
		return http.StatusOK
	case store.RetCInvalidInput, store.RetCInvalidConfig, store.RetCInvalidRange,
		store.RetCInvalidWeekday, store.RetCNotApplicable:
		return http.StatusBadRequest
	case store.RetCUnauthorized:
		return http.StatusForbidden
	case store.RetCNodeNotFound, store.RetCNotFound:
		return http.StatusNotFound
	case store.RetCNoAvailableReplica:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(status int, code, msg string) common.ErrorResponse {
	return common.ErrorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Message: msg,
	}
}

// writeError writes err with the status of its code
func writeError(w http.ResponseWriter, err error) {
	code := store.CodeOf(err)
	status := StatusOf(code)

	msg := err.Error()
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		msg = storeErr.Msg
	}
	if status == http.StatusInternalServerError {
		log.Errorf("request failed: %v", err)
	}

	writeJSON(w, status, errorResponse(status, code.String(), msg))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warningf("failed to write response: %v", err)
	}
}

// decode reads a JSON request body into req and validates it
func decode[T interface{ Validate() error }](r *http.Request, req T) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return store.Errorf(store.RetCInvalidInput, "invalid JSON body: %v", err)
	}
	return req.Validate()
}

// decodeOptional is like decode but accepts an empty body
func decodeOptional[T interface{ Validate() error }](r *http.Request, req T) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		return store.Errorf(store.RetCInvalidInput, "invalid JSON body: %v", err)
	}
	return req.Validate()
}
