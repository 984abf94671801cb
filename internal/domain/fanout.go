package domain

// Pub/sub payload type discriminators.
const (
	FanoutTypeMetrics = "metrics_update"
	FanoutTypeAlert   = "alert"
)

// MetricsChannel is the tenant-scoped dashboard metrics channel.
func MetricsChannel(tenantID string) string {
	return tenantID + ".dashboard.metrics"
}

// AlertsChannel is the tenant-scoped alert channel.
func AlertsChannel(tenantID string) string {
	return tenantID + ".alerts"
}

// MetricsUpdate is the dashboard fanout payload for fresh aggregates.
type MetricsUpdate struct {
	Type            string  `json:"type"`
	InvestigationID string  `json:"investigation_id"`
	Velocity        int64   `json:"velocity"`
	EvidenceCount   int64   `json:"evidence_count"`
	EntityRate      int64   `json:"entity_rate"`
	Confidence      float64 `json:"confidence"`
}

// AlertNotification wraps an AlertEvent for the alert channel.
type AlertNotification struct {
	Type  string     `json:"type"`
	Alert AlertEvent `json:"alert"`
}
