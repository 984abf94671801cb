package domain

import "time"

// HealthState is the advisory condition of a consumer worker. It never halts
// the loop; operational escalation belongs to external tooling.
type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

// WorkerHealthSnapshot is the operational read surface of a worker.
type WorkerHealthSnapshot struct {
	State         HealthState `json:"state"`
	Processed     int64       `json:"processed"`
	Failed        int64       `json:"failed"`
	ErrorRatio    float64     `json:"error_ratio"`
	QueueDepth    int64       `json:"queue_depth"`
	WindowSeconds int64       `json:"window_seconds"`
	EvaluatedAt   time.Time   `json:"evaluated_at"`
}
