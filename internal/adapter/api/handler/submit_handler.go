package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/user/intel-pipeline/internal/adapter/api/middleware"
	"github.com/user/intel-pipeline/internal/adapter/metrics"
	"github.com/user/intel-pipeline/internal/domain"
)

// MessageSubmitter is the submit-path use case surface the handler needs.
type MessageSubmitter interface {
	Submit(ctx context.Context, msg *domain.IngestMessage) (string, error)
}

// SubmitHandler handles HTTP requests for intelligence submission.
type SubmitHandler struct {
	submitter      MessageSubmitter
	logger         *slog.Logger
	maxMessageSize int64
	metrics        *metrics.IngestMetrics
}

// NewSubmitHandler creates a new SubmitHandler.
func NewSubmitHandler(submitter MessageSubmitter, logger *slog.Logger, maxMessageSize int64, m *metrics.IngestMetrics) *SubmitHandler {
	return &SubmitHandler{
		submitter:      submitter,
		logger:         logger,
		maxMessageSize: maxMessageSize,
		metrics:        m,
	}
}

// ServeHTTP processes incoming submissions. A single message is posted as
// application/json and answered with its assigned id; a batch is posted as
// application/x-ndjson, one message per line.
func (h *SubmitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tenantID := middleware.TenantFromContext(r.Context())
	if tenantID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Enforce max body size
	r.Body = http.MaxBytesReader(w, r.Body, h.maxMessageSize)

	switch r.Header.Get("Content-Type") {
	case "application/json":
		h.handleSingleJSON(w, r, tenantID)
	case "application/x-ndjson":
		h.handleNDJSON(w, r, tenantID)
	default:
		http.Error(w, "Unsupported Content-Type", http.StatusUnsupportedMediaType)
	}
}

func (h *SubmitHandler) handleSingleJSON(w http.ResponseWriter, r *http.Request, tenantID string) {
	var msg domain.IngestMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.countMessage("rejected")
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.countMessage("rejected")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	msg.TenantID = tenantID

	id, err := h.submitter.Submit(r.Context(), &msg)
	if err != nil {
		h.countMessage("failed")
		h.logger.Error("failed to submit message", "error", err)
		if errors.Is(err, domain.ErrQueueUnavailable) {
			http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	h.countMessage("accepted")
	if h.metrics != nil {
		h.metrics.BytesTotal.Add(float64(r.ContentLength))
	}
	h.respondJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (h *SubmitHandler) handleNDJSON(w http.ResponseWriter, r *http.Request, tenantID string) {
	var accepted, rejected int
	ids := make([]string, 0, 16)

	scanner := bufio.NewScanner(r.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), int(h.maxMessageSize))
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg domain.IngestMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			// Log the error but continue processing other lines
			h.logger.Warn("failed to unmarshal ndjson line", "error", err)
			h.countMessage("rejected")
			rejected++
			continue
		}
		msg.TenantID = tenantID

		id, err := h.submitter.Submit(r.Context(), &msg)
		if err != nil {
			h.logger.Error("failed to submit message from ndjson stream", "error", err, "message_id", msg.ID)
			h.countMessage("failed")
			rejected++
			continue
		}
		h.countMessage("accepted")
		accepted++
		ids = append(ids, id)
	}

	if err := scanner.Err(); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if h.metrics != nil {
		h.metrics.BytesTotal.Add(float64(r.ContentLength))
	}
	h.respondJSON(w, http.StatusAccepted, map[string]any{
		"accepted": accepted,
		"rejected": rejected,
		"ids":      ids,
	})
}

func (h *SubmitHandler) countMessage(status string) {
	if h.metrics != nil {
		h.metrics.MessagesTotal.WithLabelValues(status).Inc()
	}
}

func (h *SubmitHandler) respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}
