package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/user/intel-pipeline/internal/domain"
)

// HealthReporter exposes the worker's current health evaluation.
type HealthReporter interface {
	Snapshot() domain.WorkerHealthSnapshot
}

// MetricsReader reads per-investigation aggregates.
type MetricsReader interface {
	InvestigationMetrics(ctx context.Context, investigationID string) (domain.InvestigationMetrics, error)
}

// OpsHandler serves the worker's operational read surface: health state and
// investigation metric aggregates.
type OpsHandler struct {
	health  HealthReporter
	metrics MetricsReader
	logger  *slog.Logger
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(health HealthReporter, metrics MetricsReader, logger *slog.Logger) *OpsHandler {
	return &OpsHandler{health: health, metrics: metrics, logger: logger}
}

// Health reports the worker's rolling-window health evaluation. An unhealthy
// worker answers 503 so orchestration probes can rotate it out.
// GET /ops/health
func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	snapshot := h.health.Snapshot()

	code := http.StatusOK
	if snapshot.State == domain.HealthUnhealthy {
		code = http.StatusServiceUnavailable
	}
	h.respondJSON(w, code, snapshot)
}

// InvestigationMetrics returns the live aggregates for one investigation.
// GET /ops/investigations/{investigationID}/metrics
func (h *OpsHandler) InvestigationMetrics(w http.ResponseWriter, r *http.Request) {
	investigationID := r.PathValue("investigationID")
	if investigationID == "" {
		http.Error(w, "investigationID is required", http.StatusBadRequest)
		return
	}

	m, err := h.metrics.InvestigationMetrics(r.Context(), investigationID)
	if err != nil {
		h.logger.Error("failed to read investigation metrics", "investigation_id", investigationID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, m)
}

func (h *OpsHandler) respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}
