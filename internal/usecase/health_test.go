package usecase

import (
	"testing"
	"time"

	"github.com/user/intel-pipeline/internal/domain"
)

func newTestMonitor() (*HealthMonitor, *time.Time) {
	monitor := NewHealthMonitor(DefaultHealthThresholds())
	now := time.Now()
	monitor.now = func() time.Time { return now }
	return monitor, &now
}

func TestHealthMonitor_Transitions(t *testing.T) {
	t.Run("starts healthy", func(t *testing.T) {
		monitor, _ := newTestMonitor()
		if got := monitor.Snapshot().State; got != domain.HealthHealthy {
			t.Errorf("state = %s, want healthy", got)
		}
	})

	t.Run("degrades above ten percent errors", func(t *testing.T) {
		monitor, _ := newTestMonitor()
		if got := monitor.RecordBatch(8, 2); got != domain.HealthDegraded {
			t.Errorf("state = %s, want degraded at 20%% errors", got)
		}
	})

	t.Run("unhealthy above twenty percent errors", func(t *testing.T) {
		monitor, _ := newTestMonitor()
		if got := monitor.RecordBatch(7, 3); got != domain.HealthUnhealthy {
			t.Errorf("state = %s, want unhealthy at 30%% errors", got)
		}
	})

	t.Run("unhealthy past absolute error ceiling", func(t *testing.T) {
		monitor, _ := newTestMonitor()
		if got := monitor.RecordBatch(2000, 101); got != domain.HealthUnhealthy {
			t.Errorf("state = %s, want unhealthy past error ceiling", got)
		}
	})

	t.Run("degrades on queue depth", func(t *testing.T) {
		monitor, _ := newTestMonitor()
		monitor.RecordBatch(10, 0)
		monitor.ObserveQueueDepth(50_000)
		if got := monitor.Snapshot().State; got != domain.HealthDegraded {
			t.Errorf("state = %s, want degraded on deep queue", got)
		}
	})
}

func TestHealthMonitor_Recovery(t *testing.T) {
	monitor, now := newTestMonitor()

	if got := monitor.RecordBatch(8, 2); got != domain.HealthDegraded {
		t.Fatalf("state = %s, want degraded", got)
	}

	// The failing batch ages out of the window; a clean batch follows.
	*now = now.Add(11 * time.Second)
	if got := monitor.RecordBatch(10, 0); got != domain.HealthHealthy {
		t.Errorf("state = %s, want healthy after clean batch", got)
	}
}

func TestHealthMonitor_Snapshot(t *testing.T) {
	monitor, _ := newTestMonitor()
	monitor.RecordBatch(9, 1)
	monitor.ObserveQueueDepth(42)

	snap := monitor.Snapshot()

	if snap.Processed != 9 || snap.Failed != 1 {
		t.Errorf("processed/failed = %d/%d, want 9/1", snap.Processed, snap.Failed)
	}
	if snap.ErrorRatio != 0.1 {
		t.Errorf("error ratio = %v, want 0.1", snap.ErrorRatio)
	}
	if snap.QueueDepth != 42 {
		t.Errorf("queue depth = %d, want 42", snap.QueueDepth)
	}
	if snap.State != domain.HealthHealthy {
		t.Errorf("state = %s, want healthy at exactly 10%%", snap.State)
	}
}
