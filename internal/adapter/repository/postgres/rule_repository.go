package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/user/intel-pipeline/internal/domain"
)

type ruleCacheEntry struct {
	rules     []domain.AlertRule
	expiresAt time.Time
}

// RuleRepository implements domain.RuleProvider against PostgreSQL with an
// in-memory, time-based cache per tenant. Rules are read on the hot path of
// every processed message, so the cache TTL bounds both database load and
// how long a rule change takes to reach the workers.
type RuleRepository struct {
	db       *sql.DB
	logger   *slog.Logger
	cache    map[string]ruleCacheEntry
	mu       sync.RWMutex
	cacheTTL time.Duration
}

// NewRuleRepository creates a new PostgreSQL alert rule repository.
func NewRuleRepository(db *sql.DB, logger *slog.Logger, cacheTTL time.Duration) *RuleRepository {
	return &RuleRepository{
		db:       db,
		logger:   logger,
		cache:    make(map[string]ruleCacheEntry),
		cacheTTL: cacheTTL,
	}
}

// RulesForTenant returns the tenant's alert rules in declaration order, or
// domain.ErrNotFound when the tenant has none configured. The empty result is
// cached too, so tenants running on the default rules do not query the
// database per message.
func (r *RuleRepository) RulesForTenant(ctx context.Context, tenantID string) ([]domain.AlertRule, error) {
	r.mu.RLock()
	entry, found := r.cache[tenantID]
	r.mu.RUnlock()

	if found && time.Now().Before(entry.expiresAt) {
		return entry.result()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check in case another goroutine refreshed the tenant while we
	// waited for the lock.
	entry, found = r.cache[tenantID]
	if found && time.Now().Before(entry.expiresAt) {
		return entry.result()
	}

	rules, err := r.queryRules(ctx, tenantID)
	if err != nil {
		r.logger.Error("failed to load alert rules", "tenant_id", tenantID, "error", err)
		// Don't cache errors, let the next request retry from the DB
		return nil, err
	}

	r.cache[tenantID] = ruleCacheEntry{rules: rules, expiresAt: time.Now().Add(r.cacheTTL)}
	if len(rules) == 0 {
		return nil, domain.ErrNotFound
	}
	return rules, nil
}

func (r *RuleRepository) queryRules(ctx context.Context, tenantID string) ([]domain.AlertRule, error) {
	const query = `
		SELECT id, name, metric, condition, threshold, severity, enabled
		FROM alert_rules
		WHERE tenant_id = $1
		ORDER BY position, id`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.AlertRule
	for rows.Next() {
		var rule domain.AlertRule
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Metric, &rule.Condition,
			&rule.Threshold, &rule.Severity, &rule.Enabled); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (e ruleCacheEntry) result() ([]domain.AlertRule, error) {
	if len(e.rules) == 0 {
		return nil, domain.ErrNotFound
	}
	return e.rules, nil
}
