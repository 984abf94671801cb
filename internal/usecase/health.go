package usecase

import (
	"sync"
	"time"

	"github.com/user/intel-pipeline/internal/domain"
)

// HealthThresholds tune when a worker's advisory health state downgrades.
type HealthThresholds struct {
	Window         time.Duration
	DegradedRatio  float64
	UnhealthyRatio float64
	ErrorCeiling   int64
	QueueDepthMax  int64
}

// DefaultHealthThresholds match the operational defaults: a 10 second window,
// degraded above 10% errors, unhealthy above 20%.
func DefaultHealthThresholds() HealthThresholds {
	return HealthThresholds{
		Window:         10 * time.Second,
		DegradedRatio:  0.10,
		UnhealthyRatio: 0.20,
		ErrorCeiling:   100,
		QueueDepthMax:  10_000,
	}
}

type healthSample struct {
	at        time.Time
	processed int64
	failed    int64
}

// HealthMonitor tracks rolling processed/failed counts and derives the
// worker's health state. The state is advisory: it never stops the loop.
type HealthMonitor struct {
	thresholds HealthThresholds
	now        func() time.Time

	mu         sync.Mutex
	samples    []healthSample
	queueDepth int64
	state      domain.HealthState
}

// NewHealthMonitor creates a monitor that starts healthy.
func NewHealthMonitor(thresholds HealthThresholds) *HealthMonitor {
	return &HealthMonitor{
		thresholds: thresholds,
		now:        time.Now,
		state:      domain.HealthHealthy,
	}
}

// RecordBatch folds one batch outcome into the rolling window and returns the
// re-derived state.
func (h *HealthMonitor) RecordBatch(processed, failed int) domain.HealthState {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = append(h.samples, healthSample{
		at:        h.now(),
		processed: int64(processed),
		failed:    int64(failed),
	})
	h.evaluate()
	return h.state
}

// ObserveQueueDepth records the latest pending-queue depth.
func (h *HealthMonitor) ObserveQueueDepth(depth int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queueDepth = depth
	h.evaluate()
}

// Snapshot returns the current operational view of the worker.
func (h *HealthMonitor) Snapshot() domain.WorkerHealthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	processed, failed, ratio := h.tally()
	h.evaluate()
	return domain.WorkerHealthSnapshot{
		State:         h.state,
		Processed:     processed,
		Failed:        failed,
		ErrorRatio:    ratio,
		QueueDepth:    h.queueDepth,
		WindowSeconds: int64(h.thresholds.Window.Seconds()),
		EvaluatedAt:   h.now().UTC(),
	}
}

// evaluate recomputes the state from the rolling window. Callers hold h.mu.
func (h *HealthMonitor) evaluate() {
	_, failed, ratio := h.tally()

	switch {
	case ratio > h.thresholds.UnhealthyRatio || failed > h.thresholds.ErrorCeiling:
		h.state = domain.HealthUnhealthy
	case ratio > h.thresholds.DegradedRatio || h.queueDepth > h.thresholds.QueueDepthMax:
		h.state = domain.HealthDegraded
	default:
		h.state = domain.HealthHealthy
	}
}

// tally prunes samples outside the window and sums the remainder.
func (h *HealthMonitor) tally() (processed, failed int64, ratio float64) {
	cutoff := h.now().Add(-h.thresholds.Window)
	kept := h.samples[:0]
	for _, s := range h.samples {
		if s.at.After(cutoff) {
			kept = append(kept, s)
			processed += s.processed
			failed += s.failed
		}
	}
	h.samples = kept

	total := processed + failed
	if total > 0 {
		ratio = float64(failed) / float64(total)
	}
	return processed, failed, ratio
}
