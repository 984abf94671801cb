package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/user/intel-pipeline/internal/domain"
	"github.com/user/intel-pipeline/internal/domain/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAlerter_Evaluate(t *testing.T) {
	velocityRule := domain.AlertRule{
		ID:        "r1",
		Name:      "velocity spike",
		Metric:    domain.MetricVelocity,
		Condition: domain.ConditionGt,
		Threshold: 100,
		Severity:  domain.SeverityHigh,
		Enabled:   true,
	}

	tests := []struct {
		name       string
		rules      []domain.AlertRule
		metrics    map[domain.AlertMetric]float64
		wantEvents int
	}{
		{
			name:       "velocity above threshold fires exactly once",
			rules:      []domain.AlertRule{velocityRule},
			metrics:    map[domain.AlertMetric]float64{domain.MetricVelocity: 150},
			wantEvents: 1,
		},
		{
			name:       "velocity below threshold stays quiet",
			rules:      []domain.AlertRule{velocityRule},
			metrics:    map[domain.AlertMetric]float64{domain.MetricVelocity: 99},
			wantEvents: 0,
		},
		{
			name: "disabled rule is skipped",
			rules: []domain.AlertRule{func() domain.AlertRule {
				r := velocityRule
				r.Enabled = false
				return r
			}()},
			metrics:    map[domain.AlertMetric]float64{domain.MetricVelocity: 150},
			wantEvents: 0,
		},
		{
			name:       "rule referencing absent metric is skipped",
			rules:      []domain.AlertRule{velocityRule},
			metrics:    map[domain.AlertMetric]float64{domain.MetricConfidence: 0.9},
			wantEvents: 0,
		},
		{
			name: "lt condition on confidence",
			rules: []domain.AlertRule{{
				ID: "r2", Name: "low confidence", Metric: domain.MetricConfidence,
				Condition: domain.ConditionLt, Threshold: 0.3,
				Severity: domain.SeverityMedium, Enabled: true,
			}},
			metrics:    map[domain.AlertMetric]float64{domain.MetricConfidence: 0.15},
			wantEvents: 1,
		},
		{
			name: "eq condition",
			rules: []domain.AlertRule{{
				ID: "r3", Name: "exact", Metric: domain.MetricEvidenceCount,
				Condition: domain.ConditionEq, Threshold: 42,
				Severity: domain.SeverityLow, Enabled: true,
			}},
			metrics:    map[domain.AlertMetric]float64{domain.MetricEvidenceCount: 42},
			wantEvents: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mocks.MockRuleProvider{Rules: map[string][]domain.AlertRule{"tenant-a": tt.rules}}
			alerter := NewAlerter(provider, 0, discardLogger())

			events := alerter.Evaluate(context.Background(), AlertContext{
				InvestigationID: "inv-1",
				TenantID:        "tenant-a",
				Metrics:         tt.metrics,
			})

			if len(events) != tt.wantEvents {
				t.Fatalf("got %d events, want %d: %+v", len(events), tt.wantEvents, events)
			}
		})
	}
}

func TestAlerter_EventDetails(t *testing.T) {
	provider := &mocks.MockRuleProvider{Rules: map[string][]domain.AlertRule{
		"tenant-a": {{
			ID: "r1", Name: "velocity spike", Metric: domain.MetricVelocity,
			Condition: domain.ConditionGt, Threshold: 100,
			Severity: domain.SeverityHigh, Enabled: true,
		}},
	}}
	alerter := NewAlerter(provider, 0, discardLogger())

	events := alerter.Evaluate(context.Background(), AlertContext{
		InvestigationID: "inv-7",
		TenantID:        "tenant-a",
		Metrics:         map[domain.AlertMetric]float64{domain.MetricVelocity: 150},
	})

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Severity != domain.SeverityHigh {
		t.Errorf("severity = %s, want high", ev.Severity)
	}
	if ev.Details.Value != 150 || ev.Details.Threshold != 100 {
		t.Errorf("details = %+v, want value 150 threshold 100", ev.Details)
	}
	if ev.Details.InvestigationID != "inv-7" {
		t.Errorf("investigation = %s, want inv-7", ev.Details.InvestigationID)
	}
}

func TestAlerter_DefaultRulesFallback(t *testing.T) {
	t.Run("tenant without rules", func(t *testing.T) {
		alerter := NewAlerter(&mocks.MockRuleProvider{}, 0, discardLogger())

		events := alerter.Evaluate(context.Background(), AlertContext{
			TenantID: "unknown-tenant",
			Metrics:  map[domain.AlertMetric]float64{domain.MetricVelocity: 150},
		})

		if len(events) != 1 {
			t.Fatalf("expected the default velocity rule to fire, got %d events", len(events))
		}
		if events[0].RuleID != "default-velocity-spike" {
			t.Errorf("rule = %s, want default-velocity-spike", events[0].RuleID)
		}
	})

	t.Run("provider failure degrades to defaults", func(t *testing.T) {
		provider := &mocks.MockRuleProvider{RulesErr: errors.New("config store down")}
		alerter := NewAlerter(provider, 0, discardLogger())

		events := alerter.Evaluate(context.Background(), AlertContext{
			TenantID: "tenant-a",
			Metrics:  map[domain.AlertMetric]float64{domain.MetricVelocity: 150},
		})

		if len(events) != 1 {
			t.Fatalf("expected defaults on provider failure, got %d events", len(events))
		}
	})
}

func TestAlerter_Cooldown(t *testing.T) {
	provider := &mocks.MockRuleProvider{Rules: map[string][]domain.AlertRule{
		"tenant-a": {{
			ID: "r1", Name: "velocity spike", Metric: domain.MetricVelocity,
			Condition: domain.ConditionGt, Threshold: 100,
			Severity: domain.SeverityHigh, Enabled: true,
		}},
	}}
	alerter := NewAlerter(provider, time.Minute, discardLogger())
	actx := AlertContext{
		InvestigationID: "inv-1",
		TenantID:        "tenant-a",
		Metrics:         map[domain.AlertMetric]float64{domain.MetricVelocity: 150},
	}

	first := alerter.Evaluate(context.Background(), actx)
	second := alerter.Evaluate(context.Background(), actx)

	if len(first) != 1 {
		t.Fatalf("first evaluation should fire, got %d events", len(first))
	}
	if len(second) != 0 {
		t.Errorf("second evaluation within cooldown should be suppressed, got %d events", len(second))
	}

	// A different investigation is tracked independently.
	other := actx
	other.InvestigationID = "inv-2"
	if events := alerter.Evaluate(context.Background(), other); len(events) != 1 {
		t.Errorf("cooldown must be scoped per investigation, got %d events", len(events))
	}
}
