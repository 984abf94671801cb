package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/user/intel-pipeline/internal/adapter/metrics"
	"github.com/user/intel-pipeline/internal/domain"
)

type keyCacheEntry struct {
	tenantID  string
	found     bool
	expiresAt time.Time
}

// APIKeyRepository implements the domain.APIKeyRepository interface using
// PostgreSQL as the source of truth and an in-memory, time-based cache.
// Missing keys are negatively cached for the same TTL so a flood of bad
// credentials cannot hammer the database.
type APIKeyRepository struct {
	db       *sql.DB
	logger   *slog.Logger
	cache    map[string]keyCacheEntry
	mu       sync.RWMutex
	cacheTTL time.Duration
	metrics  *metrics.IngestMetrics
}

// NewAPIKeyRepository creates a new instance of the PostgreSQL API key repository.
func NewAPIKeyRepository(db *sql.DB, logger *slog.Logger, cacheTTL time.Duration, m *metrics.IngestMetrics) *APIKeyRepository {
	return &APIKeyRepository{
		db:       db,
		logger:   logger,
		cache:    make(map[string]keyCacheEntry),
		cacheTTL: cacheTTL,
		metrics:  m,
	}
}

// TenantForKey resolves an API key to its owning tenant. It first checks a
// local cache and falls back to the database if the key is not found or the
// cache entry has expired. Returns domain.ErrNotFound for unknown, inactive
// or expired keys.
func (r *APIKeyRepository) TenantForKey(ctx context.Context, key string) (string, error) {
	// 1. Check cache with a read lock
	r.mu.RLock()
	entry, found := r.cache[key]
	r.mu.RUnlock()

	if found && time.Now().Before(entry.expiresAt) {
		if r.metrics != nil {
			r.metrics.APIKeyCacheHits.Inc()
		}
		return entry.result()
	}

	// 2. Cache miss or expired, query DB and update cache with a write lock
	if r.metrics != nil {
		r.metrics.APIKeyCacheMisses.Inc()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check cache in case another goroutine populated it while waiting for the lock
	entry, found = r.cache[key]
	if found && time.Now().Before(entry.expiresAt) {
		return entry.result()
	}

	// 3. Query the database. A key resolves if it exists, is active, and has
	// not expired.
	var tenantID string
	query := `SELECT tenant_id FROM api_keys WHERE key = $1 AND is_active = true AND (expires_at IS NULL OR expires_at > NOW())`
	err := r.db.QueryRowContext(ctx, query, key).Scan(&tenantID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		r.cache[key] = keyCacheEntry{found: false, expiresAt: time.Now().Add(r.cacheTTL)}
		return "", domain.ErrNotFound
	case err != nil:
		r.logger.Error("failed to resolve API key in database", "error", err)
		// Don't cache errors, let the next request retry from the DB
		return "", err
	}

	// 4. Update cache
	r.cache[key] = keyCacheEntry{
		tenantID:  tenantID,
		found:     true,
		expiresAt: time.Now().Add(r.cacheTTL),
	}

	return tenantID, nil
}

func (e keyCacheEntry) result() (string, error) {
	if !e.found {
		return "", domain.ErrNotFound
	}
	return e.tenantID, nil
}
