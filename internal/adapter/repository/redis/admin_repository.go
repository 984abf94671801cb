package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/intel-pipeline/internal/domain"
)

// AdminRepository implements domain.QueueAdminRepository for the ingest
// stream: operator introspection of consumer groups and manual recovery of
// pending messages.
type AdminRepository struct {
	client *redis.Client
	logger *slog.Logger
}

// NewAdminRepository creates a new stream admin repository.
func NewAdminRepository(client *redis.Client, logger *slog.Logger) *AdminRepository {
	return &AdminRepository{client: client, logger: logger}
}

// GroupInfo lists all consumer groups on the ingest stream.
func (r *AdminRepository) GroupInfo(ctx context.Context) ([]domain.ConsumerGroupInfo, error) {
	groups, err := r.client.XInfoGroups(ctx, ingestStreamKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get group info: %w", err)
	}

	result := make([]domain.ConsumerGroupInfo, len(groups))
	for i, g := range groups {
		result[i] = domain.ConsumerGroupInfo{
			Name:            g.Name,
			Consumers:       g.Consumers,
			Pending:         g.Pending,
			LastDeliveredID: g.LastDeliveredID,
		}
	}
	return result, nil
}

// ConsumerInfo lists the consumers of a group.
func (r *AdminRepository) ConsumerInfo(ctx context.Context, group string) ([]domain.ConsumerInfo, error) {
	consumers, err := r.client.XInfoConsumers(ctx, ingestStreamKey, group).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get consumer info for group %s: %w", group, err)
	}

	result := make([]domain.ConsumerInfo, len(consumers))
	for i, c := range consumers {
		result[i] = domain.ConsumerInfo{
			Name:    c.Name,
			Pending: c.Pending,
			Idle:    time.Duration(c.Idle) * time.Millisecond,
		}
	}
	return result, nil
}

// PendingSummary summarizes unacknowledged messages for a group.
func (r *AdminRepository) PendingSummary(ctx context.Context, group string) (*domain.PendingSummary, error) {
	pending, err := r.client.XPending(ctx, ingestStreamKey, group).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending summary for group %s: %w", group, err)
	}

	return &domain.PendingSummary{
		Total:          pending.Count,
		FirstMessageID: pending.Lower,
		LastMessageID:  pending.Higher,
		ConsumerTotals: pending.Consumers,
	}, nil
}

// PendingMessages lists unacknowledged messages in detail.
func (r *AdminRepository) PendingMessages(ctx context.Context, group, consumer, startID string, count int64) ([]domain.PendingDetail, error) {
	args := &redis.XPendingExtArgs{
		Stream:   ingestStreamKey,
		Group:    group,
		Start:    startID,
		End:      "+",
		Count:    count,
		Consumer: consumer,
	}

	messages, err := r.client.XPendingExt(ctx, args).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending messages: %w", err)
	}

	result := make([]domain.PendingDetail, len(messages))
	for i, m := range messages {
		result[i] = domain.PendingDetail{
			ID:         m.ID,
			Consumer:   m.Consumer,
			IdleTime:   m.Idle,
			RetryCount: m.RetryCount,
		}
	}
	return result, nil
}

// ClaimMessages reassigns pending messages to a live consumer, typically
// after a worker instance died with messages still unacknowledged.
func (r *AdminRepository) ClaimMessages(ctx context.Context, group, consumer string, minIdle time.Duration, streamIDs []string) ([]domain.IngestMessage, error) {
	claimed, err := r.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   ingestStreamKey,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: streamIDs,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim messages: %w", err)
	}

	msgs := make([]domain.IngestMessage, 0, len(claimed))
	for _, m := range claimed {
		payload, ok := m.Values["payload"].(string)
		if !ok {
			r.logger.Warn("claimed message has no payload field", "stream_id", m.ID)
			continue
		}
		var msg domain.IngestMessage
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			r.logger.Warn("failed to unmarshal claimed message", "stream_id", m.ID, "error", err)
			continue
		}
		msg.StreamMessageID = m.ID
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// AcknowledgeMessages acks messages directly, for poison-message cleanup.
func (r *AdminRepository) AcknowledgeMessages(ctx context.Context, group string, streamIDs ...string) (int64, error) {
	if len(streamIDs) == 0 {
		return 0, errors.New("at least one stream id is required")
	}
	return r.client.XAck(ctx, ingestStreamKey, group, streamIDs...).Result()
}

// TrimStream caps the ingest stream length.
func (r *AdminRepository) TrimStream(ctx context.Context, maxLen int64) (int64, error) {
	return r.client.XTrimMaxLen(ctx, ingestStreamKey, maxLen).Result()
}
