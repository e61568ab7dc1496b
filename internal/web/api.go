// Package web exposes the runtime over HTTP: a streaming run endpoint,
// a health probe, and Prometheus metrics.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parley-dev/parley/internal/agent"
	"github.com/parley-dev/parley/pkg/models"
)

// Config holds the handler dependencies.
type Config struct {
	// Runtime processes run requests.
	Runtime *agent.Runtime

	// Logger for request logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Handler is the HTTP surface for the runtime.
type Handler struct {
	runtime *agent.Runtime
	logger  *slog.Logger
	mux     *http.ServeMux
}

// NewHandler creates the HTTP handler.
func NewHandler(cfg *Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		runtime: cfg.Runtime,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	h.mux.HandleFunc("POST /v1/runs", h.handleRun)
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	h.mux.Handle("GET /metrics", promhttp.Handler())
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// runRequest is the POST /v1/runs payload.
type runRequest struct {
	// SessionID identifies the conversation. Required; the hosting
	// dispatcher supplies it explicitly.
	SessionID string `json:"session_id"`

	// Input is the ordered message batch for this run.
	Input []models.Message `json:"input"`
}

// handleRun streams run events as NDJSON, one event per line, flushed
// as produced. The stream is finite and closes when the run completes.
func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		h.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if len(req.Input) == 0 {
		h.writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	h.logger.Info("run started", "session_id", req.SessionID, "messages", len(req.Input))

	encoder := json.NewEncoder(w)
	for event := range h.runtime.Process(r.Context(), req.SessionID, req.Input) {
		if err := encoder.Encode(event); err != nil {
			h.logger.Warn("client disconnected mid-stream", "session_id", req.SessionID, "error", err)
			return
		}
		flusher.Flush()
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
