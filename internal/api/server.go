// Package api is the query surface: it renders the shared state store and
// service metadata as JSON. It only reads; all state is owned elsewhere.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/alerter"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/store"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/version"
)

// Server provides the HTTP API.
type Server struct {
	store     *store.Store
	engine    *alerter.Engine
	logger    zerolog.Logger
	port      int
	logBuffer *LogBuffer
	startTime time.Time
}

// NewServer creates an API server over the shared state store.
func NewServer(st *store.Store, engine *alerter.Engine, port int, logger zerolog.Logger) *Server {
	return &Server{
		store:     st,
		engine:    engine,
		logger:    logger.With().Str("component", "api").Logger(),
		port:      port,
		startTime: time.Now(),
	}
}

// SetLogBuffer wires in the log ring buffer served by /api/logs.
func (s *Server) SetLogBuffer(lb *LogBuffer) {
	s.logBuffer = lb
}

// Start starts the HTTP server. Blocks until the listener fails.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/api/powertags", s.handlePowertags)
	mux.HandleFunc("/api/alerts", s.handleAlerts)
	mux.HandleFunc("/api/logs", s.handleLogs)
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + strconv.Itoa(s.port)
	s.logger.Info().
		Str("address", addr).
		Msg("Starting API server")

	return http.ListenAndServe(addr, mux)
}

// handleHealth returns service health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus returns a service summary.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"readings":   s.store.Len(),
		"time":       time.Now().UTC().Format(time.RFC3339),
		"uptime":     time.Since(s.startTime).String(),
		"version":    version.GetVersion(),
		"commit":     version.GetCommit(),
		"build_date": version.GetBuildDate(),
	})
}

// handlePowertags renders the latest reading of every (tag, measurement)
// pair, grouped by tag.
func (s *Server) handlePowertags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.ByDevice())
}

// handleAlerts returns the last alert time per (device, measurement).
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.engine.LastAlerts())
}

// handleLogs returns recent log lines.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logBuffer == nil {
		writeJSON(w, []LogEntry{})
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, s.logBuffer.Recent(limit))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
