package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/user/intel-pipeline/internal/domain"
	"github.com/user/intel-pipeline/internal/domain/mocks"
)

type stubHealth struct {
	snapshot domain.WorkerHealthSnapshot
}

func (s *stubHealth) Snapshot() domain.WorkerHealthSnapshot { return s.snapshot }

func newOpsMux(h *OpsHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ops/health", h.Health)
	mux.HandleFunc("GET /ops/investigations/{investigationID}/metrics", h.InvestigationMetrics)
	return mux
}

func TestOpsHandler_Health(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		state          domain.HealthState
		expectedStatus int
	}{
		{"Healthy", domain.HealthHealthy, http.StatusOK},
		{"Degraded", domain.HealthDegraded, http.StatusOK},
		{"Unhealthy", domain.HealthUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			health := &stubHealth{snapshot: domain.WorkerHealthSnapshot{State: tt.state, Processed: 42}}
			mux := newOpsMux(NewOpsHandler(health, &mocks.MockMetricStore{}, logger))

			req := httptest.NewRequest(http.MethodGet, "/ops/health", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}

			var snapshot domain.WorkerHealthSnapshot
			if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
				t.Fatalf("failed to decode snapshot: %v", err)
			}
			if snapshot.State != tt.state {
				t.Errorf("expected state %q, got %q", tt.state, snapshot.State)
			}
			if snapshot.Processed != 42 {
				t.Errorf("expected processed count in snapshot, got %d", snapshot.Processed)
			}
		})
	}
}

func TestOpsHandler_InvestigationMetrics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &mocks.MockMetricStore{
		Metrics: domain.InvestigationMetrics{InvestigationID: "inv-7", Velocity: 12, EvidenceCount: 5},
	}
	mux := newOpsMux(NewOpsHandler(&stubHealth{}, store, logger))

	req := httptest.NewRequest(http.MethodGet, "/ops/investigations/inv-7/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var m domain.InvestigationMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("failed to decode metrics: %v", err)
	}
	if m.Velocity != 12 || m.EvidenceCount != 5 {
		t.Errorf("unexpected metrics: %+v", m)
	}
}
