package domain

import "time"

// AlertMetric names a metric an alert rule can reference.
type AlertMetric string

const (
	MetricVelocity      AlertMetric = "velocity"
	MetricConfidence    AlertMetric = "confidence"
	MetricEvidenceCount AlertMetric = "evidence_count"
)

// AlertCondition is the comparison applied between a metric and a threshold.
type AlertCondition string

const (
	ConditionGt AlertCondition = "gt"
	ConditionLt AlertCondition = "lt"
	ConditionEq AlertCondition = "eq"
)

// AlertSeverity ranks emitted alerts.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertRule is a tenant-scoped threshold rule. Rules are read-only to the
// pipeline; they are managed by an external configuration service.
type AlertRule struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Metric    AlertMetric    `json:"metric"`
	Condition AlertCondition `json:"condition"`
	Threshold float64        `json:"threshold"`
	Severity  AlertSeverity  `json:"severity"`
	Enabled   bool           `json:"enabled"`
}

// AlertEvent is emitted each time a rule's condition holds against the
// current metrics for an investigation.
type AlertEvent struct {
	RuleID    string        `json:"rule_id"`
	RuleName  string        `json:"rule_name"`
	Severity  AlertSeverity `json:"severity"`
	Timestamp time.Time     `json:"timestamp"`
	Details   AlertDetails  `json:"details"`
}

// AlertDetails carries the observation that satisfied the rule.
type AlertDetails struct {
	Metric          AlertMetric `json:"metric"`
	Value           float64     `json:"value"`
	Threshold       float64     `json:"threshold"`
	InvestigationID string      `json:"investigation_id"`
}

// DefaultAlertRules applies when a tenant has no rules of its own.
func DefaultAlertRules() []AlertRule {
	return []AlertRule{
		{
			ID:        "default-velocity-spike",
			Name:      "Ingest velocity spike",
			Metric:    MetricVelocity,
			Condition: ConditionGt,
			Threshold: 100,
			Severity:  SeverityHigh,
			Enabled:   true,
		},
		{
			ID:        "default-low-confidence",
			Name:      "Low confidence submission",
			Metric:    MetricConfidence,
			Condition: ConditionLt,
			Threshold: 0.3,
			Severity:  SeverityMedium,
			Enabled:   true,
		},
		{
			ID:        "default-evidence-volume",
			Name:      "Evidence volume threshold",
			Metric:    MetricEvidenceCount,
			Condition: ConditionGt,
			Threshold: 1000,
			Severity:  SeverityLow,
			Enabled:   true,
		},
	}
}
