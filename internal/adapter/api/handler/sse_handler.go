package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/user/intel-pipeline/internal/adapter/api/middleware"
	"github.com/user/intel-pipeline/internal/domain"
)

// ChannelSubscriber opens a relay over the fanout channels. The returned
// close function tears the subscription down; the message channel closes
// after that.
type ChannelSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) (<-chan string, func() error)
}

// SSEHandler bridges the tenant's fanout channels onto a Server-Sent Events
// stream. Each connected dashboard gets its own subscription, scoped to the
// authenticated tenant, carrying both metrics updates and alerts.
type SSEHandler struct {
	subscriber ChannelSubscriber
	logger     *slog.Logger
}

// NewSSEHandler creates a new SSEHandler.
func NewSSEHandler(subscriber ChannelSubscriber, logger *slog.Logger) *SSEHandler {
	return &SSEHandler{subscriber: subscriber, logger: logger}
}

// ServeHTTP streams the tenant's fanout messages as SSE data frames until
// the client disconnects.
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	tenantID := middleware.TenantFromContext(r.Context())
	if tenantID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	msgs, closeSub := h.subscriber.Subscribe(r.Context(),
		domain.MetricsChannel(tenantID), domain.AlertsChannel(tenantID))
	defer closeSub()

	h.logger.Info("SSE client connected", "tenant_id", tenantID)
	defer h.logger.Info("SSE client disconnected", "tenant_id", tenantID)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return // Subscription was closed
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
