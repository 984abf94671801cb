package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/user/intel-pipeline/internal/usecase"
)

// AdminHandler handles HTTP requests for ingest queue administration.
type AdminHandler struct {
	uc     *usecase.QueueAdminUseCase
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(uc *usecase.QueueAdminUseCase, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{uc: uc, logger: logger}
}

// GroupInfo handles requests to get consumer group info for the ingest queue.
// GET /admin/queue/groups
func (h *AdminHandler) GroupInfo(w http.ResponseWriter, r *http.Request) {
	groups, err := h.uc.GroupInfo(r.Context())
	if err != nil {
		h.logger.Error("failed to get group info", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.respondWithJSON(w, http.StatusOK, groups)
}

// ConsumerInfo handles requests to get consumer info for a group.
// GET /admin/queue/groups/{groupName}/consumers
func (h *AdminHandler) ConsumerInfo(w http.ResponseWriter, r *http.Request) {
	groupName := r.PathValue("groupName")

	consumers, err := h.uc.ConsumerInfo(r.Context(), groupName)
	if err != nil {
		h.logger.Error("failed to get consumer info", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.respondWithJSON(w, http.StatusOK, consumers)
}

// PendingSummary handles requests to get a summary of pending messages.
// GET /admin/queue/groups/{groupName}/pending
func (h *AdminHandler) PendingSummary(w http.ResponseWriter, r *http.Request) {
	groupName := r.PathValue("groupName")

	summary, err := h.uc.PendingSummary(r.Context(), groupName)
	if err != nil {
		h.logger.Error("failed to get pending summary", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.respondWithJSON(w, http.StatusOK, summary)
}

// PendingMessages handles requests to list pending messages.
// GET /admin/queue/groups/{groupName}/pending/messages?consumer={consumerName}&start={startID}&count={count}
func (h *AdminHandler) PendingMessages(w http.ResponseWriter, r *http.Request) {
	groupName := r.PathValue("groupName")
	consumerName := r.URL.Query().Get("consumer")
	startID := r.URL.Query().Get("start")
	countStr := r.URL.Query().Get("count")

	var count int64 = 100 // default
	if countStr != "" {
		var err error
		count, err = strconv.ParseInt(countStr, 10, 64)
		if err != nil {
			http.Error(w, "invalid count parameter", http.StatusBadRequest)
			return
		}
	}

	messages, err := h.uc.PendingMessages(r.Context(), groupName, consumerName, startID, count)
	if err != nil {
		h.logger.Error("failed to get pending messages", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.respondWithJSON(w, http.StatusOK, messages)
}

// ClaimMessages handles requests to claim pending messages for another
// consumer, typically after a worker died with messages in flight.
// POST /admin/queue/groups/{groupName}/claim
func (h *AdminHandler) ClaimMessages(w http.ResponseWriter, r *http.Request) {
	groupName := r.PathValue("groupName")

	var payload struct {
		Consumer    string   `json:"consumer"`
		MinIdleTime string   `json:"min_idle_time"`
		StreamIDs   []string `json:"stream_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	minIdle, err := time.ParseDuration(payload.MinIdleTime)
	if err != nil {
		http.Error(w, "invalid min_idle_time format", http.StatusBadRequest)
		return
	}

	claimed, err := h.uc.ClaimMessages(r.Context(), groupName, payload.Consumer, minIdle, payload.StreamIDs)
	if err != nil {
		h.logger.Error("failed to claim messages", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.respondWithJSON(w, http.StatusOK, claimed)
}

// AcknowledgeMessages handles requests to acknowledge messages.
// POST /admin/queue/groups/{groupName}/ack
func (h *AdminHandler) AcknowledgeMessages(w http.ResponseWriter, r *http.Request) {
	groupName := r.PathValue("groupName")

	var payload struct {
		StreamIDs []string `json:"stream_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if len(payload.StreamIDs) == 0 {
		http.Error(w, "stream_ids cannot be empty", http.StatusBadRequest)
		return
	}

	count, err := h.uc.AcknowledgeMessages(r.Context(), groupName, payload.StreamIDs...)
	if err != nil {
		h.logger.Error("failed to acknowledge messages", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]int64{"acknowledged": count})
}

// TrimStream handles requests to trim the ingest queue.
// POST /admin/queue/trim
func (h *AdminHandler) TrimStream(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MaxLen int64 `json:"maxlen"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if payload.MaxLen <= 0 {
		http.Error(w, "maxlen must be a positive integer", http.StatusBadRequest)
		return
	}

	trimmedCount, err := h.uc.TrimStream(r.Context(), payload.MaxLen)
	if err != nil {
		h.logger.Error("failed to trim stream", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]int64{"trimmed": trimmedCount})
}

func (h *AdminHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
