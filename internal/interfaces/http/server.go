// Package http serves the read-mostly diagnostics surface: health, metrics,
// recent history, the latest anomaly verdict, current tuning state, and an
// on-demand calculation endpoint for the orchestration shell.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/halfpoint/medianengine/internal/engine"
	"github.com/halfpoint/medianengine/internal/models"
	"github.com/halfpoint/medianengine/internal/telemetry/metrics"
)

// Server exposes the diagnostics API over gorilla/mux.
type Server struct {
	engine  *engine.Engine
	metrics *metrics.Registry
	srv     *http.Server
}

// NewServer builds the diagnostics server for an engine. Metrics may be nil;
// the /metrics route is then omitted.
func NewServer(listen string, eng *engine.Engine, reg *metrics.Registry) *Server {
	s := &Server{engine: eng, metrics: reg}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	router.HandleFunc("/verdict", s.handleVerdict).Methods(http.MethodGet)
	router.HandleFunc("/tuning", s.handleTuning).Methods(http.MethodGet)
	router.HandleFunc("/calculate", s.handleCalculate).Methods(http.MethodPost)
	if reg != nil {
		router.Handle("/metrics", promhttp.HandlerFor(reg.Prometheus(), promhttp.HandlerOpts{}))
	}

	s.srv = &http.Server{
		Addr:         listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.srv.Addr).Msg("diagnostics server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"history_size":     s.engine.History().Len(),
		"history_capacity": s.engine.History().Capacity(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.History().Snapshot())
}

func (s *Server) handleVerdict(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.LastVerdict())
}

func (s *Server) handleTuning(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Params().Snapshot())
}

// handleCalculate runs one calculation for a posted score set. Invalid input
// maps to 422, an exhausted fallback chain to 500; both carry the error text.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var set models.ScoreSet
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed score set: " + err.Error()})
		return
	}

	result, verdict, err := s.engine.Calculate(r.Context(), set)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrInvalidInput) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"result":  result,
		"verdict": verdict,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
