package api

import (
	"log/slog"
	"net/http"

	"github.com/user/intel-pipeline/internal/adapter/api/handler"
	"github.com/user/intel-pipeline/internal/usecase"
)

// NewOpsRouter creates and configures the HTTP router for the worker's
// operational surface: health, investigation metrics, and queue admin.
// Note: path patterns (e.g. "/{groupName}/") require Go 1.22+.
func NewOpsRouter(
	opsHandler *handler.OpsHandler,
	adminUseCase *usecase.QueueAdminUseCase,
	logger *slog.Logger,
) http.Handler {
	mux := http.NewServeMux()
	adminHandler := handler.NewAdminHandler(adminUseCase, logger)

	mux.HandleFunc("GET /ops/health", opsHandler.Health)
	mux.HandleFunc("GET /ops/investigations/{investigationID}/metrics", opsHandler.InvestigationMetrics)

	// Queue Info
	mux.HandleFunc("GET /admin/queue/groups", adminHandler.GroupInfo)
	mux.HandleFunc("GET /admin/queue/groups/{groupName}/consumers", adminHandler.ConsumerInfo)

	// Pending Messages
	mux.HandleFunc("GET /admin/queue/groups/{groupName}/pending", adminHandler.PendingSummary)
	mux.HandleFunc("GET /admin/queue/groups/{groupName}/pending/messages", adminHandler.PendingMessages)

	// Queue Operations
	mux.HandleFunc("POST /admin/queue/groups/{groupName}/claim", adminHandler.ClaimMessages)
	mux.HandleFunc("POST /admin/queue/groups/{groupName}/ack", adminHandler.AcknowledgeMessages)
	mux.HandleFunc("POST /admin/queue/trim", adminHandler.TrimStream)

	return mux
}
