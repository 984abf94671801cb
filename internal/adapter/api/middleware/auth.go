package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/user/intel-pipeline/internal/domain"
)

const APIKeyHeader = "X-API-Key"

type contextKey string

const tenantContextKey contextKey = "tenant_id"

// TenantFromContext returns the tenant id that Auth resolved for this
// request, or "" when the request did not pass through Auth.
func TenantFromContext(ctx context.Context) string {
	tenantID, _ := ctx.Value(tenantContextKey).(string)
	return tenantID
}

// Auth is a middleware factory that returns a new authentication middleware.
// It resolves the X-API-Key header to a tenant and stores the tenant id in
// the request context for downstream handlers.
func Auth(repo domain.APIKeyRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(APIKeyHeader)
			if apiKey == "" {
				logger.Warn("API key missing from request", "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: API key required", http.StatusUnauthorized)
				return
			}

			tenantID, err := repo.TenantForKey(r.Context(), apiKey)
			if errors.Is(err, domain.ErrNotFound) {
				logger.Warn("invalid API key provided", "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: Invalid API key", http.StatusUnauthorized)
				return
			}
			if err != nil {
				logger.Error("failed to resolve API key", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), tenantContextKey, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
