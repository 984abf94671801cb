package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/intel-pipeline/internal/domain"
)

const (
	defaultMaxDeliveries = 5
	defaultReapMinIdle   = 1 * time.Minute
)

// PoisonReaper sweeps the consumer group's pending entries and moves
// messages that have exhausted their delivery attempts to the dead-letter
// stream. Everything else stays pending for normal redelivery or operator
// claim via the admin API.
type PoisonReaper struct {
	admin  domain.QueueAdminRepository
	queue  domain.MessageQueue
	logger *slog.Logger

	group         string
	consumer      string
	maxDeliveries int64
	minIdle       time.Duration
}

// ReaperOptions tune the sweep; zero values fall back to defaults.
type ReaperOptions struct {
	Group         string
	Consumer      string
	MaxDeliveries int64
	MinIdle       time.Duration
}

// NewPoisonReaper creates a reaper for one worker's consumer group.
func NewPoisonReaper(admin domain.QueueAdminRepository, queue domain.MessageQueue, logger *slog.Logger, opts ReaperOptions) *PoisonReaper {
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = defaultMaxDeliveries
	}
	if opts.MinIdle <= 0 {
		opts.MinIdle = defaultReapMinIdle
	}
	return &PoisonReaper{
		admin:         admin,
		queue:         queue,
		logger:        logger.With("component", "poison_reaper"),
		group:         opts.Group,
		consumer:      opts.Consumer,
		maxDeliveries: opts.MaxDeliveries,
		minIdle:       opts.MinIdle,
	}
}

// Reap runs one sweep and returns how many messages were dead-lettered.
func (r *PoisonReaper) Reap(ctx context.Context) (int, error) {
	pending, err := r.admin.PendingMessages(ctx, r.group, "", "-", 100)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}

	var poisonIDs []string
	for _, p := range pending {
		if p.RetryCount >= r.maxDeliveries && p.IdleTime >= r.minIdle {
			poisonIDs = append(poisonIDs, p.ID)
		}
	}
	if len(poisonIDs) == 0 {
		return 0, nil
	}

	// Claiming hands the entries to this worker and yields their payloads;
	// entries another worker grabbed in the meantime simply drop out here.
	msgs, err := r.admin.ClaimMessages(ctx, r.group, r.consumer, r.minIdle, poisonIDs)
	if err != nil {
		return 0, fmt.Errorf("claim poison messages: %w", err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	if err := r.queue.MoveToDLQ(ctx, msgs); err != nil {
		// Not acked, so the entries stay pending and the next sweep retries.
		return 0, fmt.Errorf("move to DLQ: %w", err)
	}

	acked := make([]string, len(msgs))
	for i, msg := range msgs {
		acked[i] = msg.StreamMessageID
		r.logger.Warn("dead-lettered poison message",
			"message_id", msg.ID,
			"stream_id", msg.StreamMessageID,
			"correlation_id", msg.CorrelationID,
		)
	}
	if _, err := r.admin.AcknowledgeMessages(ctx, r.group, acked...); err != nil {
		return len(msgs), fmt.Errorf("acknowledge dead-lettered messages: %w", err)
	}
	return len(msgs), nil
}

// Run sweeps on the given interval until the context is cancelled.
func (r *PoisonReaper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := r.Reap(ctx); err != nil {
				r.logger.Error("poison sweep failed", "error", err)
			} else if n > 0 {
				r.logger.Info("poison sweep completed", "dead_lettered", n)
			}
		}
	}
}
