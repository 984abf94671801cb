package api

import (
	"log/slog"
	"net/http"

	"github.com/user/intel-pipeline/internal/adapter/api/handler"
	"github.com/user/intel-pipeline/internal/adapter/api/middleware"
	"github.com/user/intel-pipeline/internal/adapter/metrics"
	"github.com/user/intel-pipeline/internal/domain"
	"github.com/user/intel-pipeline/internal/pkg/config"
)

// NewRouter creates and configures the main HTTP router for the submit
// service. Submission and the dashboard stream are tenant-scoped and sit
// behind API key auth.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	apiKeyRepo domain.APIKeyRepository,
	submitter handler.MessageSubmitter,
	m *metrics.IngestMetrics,
	subscriber handler.ChannelSubscriber,
) http.Handler {
	mux := http.NewServeMux()

	submitHandler := handler.NewSubmitHandler(submitter, logger, cfg.MaxMessageSize, m)
	sseHandler := handler.NewSSEHandler(subscriber, logger)

	authMiddleware := middleware.Auth(apiKeyRepo, logger)

	mux.Handle("POST /submit", authMiddleware(submitHandler))
	mux.Handle("GET /stream", authMiddleware(sseHandler))

	// Liveness only; readiness lives on the ops server.
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}
