package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/user/intel-pipeline/internal/domain"
)

// AlertContext is the metric snapshot one evaluation runs against.
type AlertContext struct {
	InvestigationID string
	TenantID        string
	Metrics         map[domain.AlertMetric]float64
}

// Alerter evaluates a tenant's threshold rules against current metrics.
// Rule comparison itself is pure; the optional per-rule cooldown is the only
// state it holds, and it exists to stop an above-threshold metric from firing
// the same alert on every single record.
type Alerter struct {
	rules    domain.RuleProvider
	cooldown time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	lastFired map[string]time.Time
}

// NewAlerter creates an Alerter. A cooldown of zero disables suppression.
func NewAlerter(rules domain.RuleProvider, cooldown time.Duration, logger *slog.Logger) *Alerter {
	return &Alerter{
		rules:     rules,
		cooldown:  cooldown,
		logger:    logger,
		lastFired: make(map[string]time.Time),
	}
}

// Evaluate returns one AlertEvent per satisfied rule, in rule declaration
// order. Tenants without configured rules fall back to the default set, as
// does any provider failure: missing configuration must never fail a message.
func (a *Alerter) Evaluate(ctx context.Context, actx AlertContext) []domain.AlertEvent {
	rules, err := a.rules.RulesForTenant(ctx, actx.TenantID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.logger.Warn("rule provider failed, using default rules",
				"tenant_id", actx.TenantID, "error", err)
		}
		rules = domain.DefaultAlertRules()
	}

	now := time.Now().UTC()
	var events []domain.AlertEvent
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		value, ok := actx.Metrics[rule.Metric]
		if !ok {
			// Rules referencing a metric absent from the context are skipped.
			continue
		}
		if !satisfied(rule.Condition, value, rule.Threshold) {
			continue
		}
		if a.onCooldown(actx.TenantID, actx.InvestigationID, rule.ID, now) {
			continue
		}
		events = append(events, domain.AlertEvent{
			RuleID:    rule.ID,
			RuleName:  rule.Name,
			Severity:  rule.Severity,
			Timestamp: now,
			Details: domain.AlertDetails{
				Metric:          rule.Metric,
				Value:           value,
				Threshold:       rule.Threshold,
				InvestigationID: actx.InvestigationID,
			},
		})
	}
	return events
}

func satisfied(cond domain.AlertCondition, value, threshold float64) bool {
	switch cond {
	case domain.ConditionGt:
		return value > threshold
	case domain.ConditionLt:
		return value < threshold
	case domain.ConditionEq:
		return value == threshold
	}
	return false
}

func (a *Alerter) onCooldown(tenantID, investigationID, ruleID string, now time.Time) bool {
	if a.cooldown <= 0 {
		return false
	}
	key := tenantID + "|" + investigationID + "|" + ruleID
	a.mu.Lock()
	defer a.mu.Unlock()
	if fired, ok := a.lastFired[key]; ok && now.Sub(fired) < a.cooldown {
		return true
	}
	a.lastFired[key] = now
	return false
}
