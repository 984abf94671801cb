package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/intel-pipeline/internal/domain"
)

const ingestStreamKey = "ingest_messages"

// ErrRedisNotAvailable signals the queue started in failover mode.
var ErrRedisNotAvailable = errors.New("redis not available")

// QueueRepository implements domain.MessageQueue on Redis Streams. The submit
// side falls back to a local WAL while Redis is unreachable and replays it on
// recovery; consumers read through a consumer group so that many worker
// instances share the pending set without explicit partition assignment.
type QueueRepository struct {
	client       *redis.Client
	logger       *slog.Logger
	wal          domain.WALRepository
	dlqStreamKey string
	pollBlock    time.Duration
	isAvailable  atomic.Bool
}

// NewQueueRepository creates a Redis-backed message queue and ensures the
// consumer group exists. The WAL is optional; pass nil for consumers.
func NewQueueRepository(client *redis.Client, logger *slog.Logger, group, dlqStreamKey string, pollBlock time.Duration, wal domain.WALRepository) (*QueueRepository, error) {
	repo := &QueueRepository{
		client:       client,
		logger:       logger.With("component", "redis_queue"),
		wal:          wal,
		dlqStreamKey: dlqStreamKey,
		pollBlock:    pollBlock,
	}
	repo.isAvailable.Store(true)

	if err := repo.setupConsumerGroup(context.Background(), group); err != nil {
		repo.isAvailable.Store(false)
		repo.logger.Error("failed to setup consumer group, redis may be unavailable on startup", "error", err)
		return repo, ErrRedisNotAvailable
	}
	return repo, nil
}

// StartHealthCheck monitors Redis connectivity and replays the WAL once the
// connection recovers.
func (r *QueueRepository) StartHealthCheck(ctx context.Context, interval time.Duration) {
	if r.wal == nil {
		r.logger.Info("WAL is not configured, skipping health check/replayer")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("starting redis health check and WAL replayer")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping redis health check")
			return
		case <-ticker.C:
			if err := r.client.Ping(ctx).Err(); err != nil {
				if r.isAvailable.CompareAndSwap(true, false) {
					r.logger.Error("redis connection lost", "error", err)
				}
				continue
			}
			if r.isAvailable.CompareAndSwap(false, true) {
				r.logger.Info("redis connection recovered")
				if err := r.ReplayWAL(ctx); err != nil {
					r.logger.Error("failed to replay WAL after redis recovery", "error", err)
					r.isAvailable.Store(false)
				}
			}
		}
	}
}

// ReplayWAL re-enqueues buffered messages and truncates the WAL on success.
func (r *QueueRepository) ReplayWAL(ctx context.Context) error {
	r.logger.Info("replaying WAL to redis")
	if err := r.wal.Replay(ctx, func(msg domain.IngestMessage) error {
		return r.enqueueToRedis(ctx, msg)
	}); err != nil {
		return fmt.Errorf("WAL replay failed: %w", err)
	}
	if err := r.wal.Truncate(ctx); err != nil {
		return fmt.Errorf("failed to truncate WAL after replay: %w", err)
	}
	r.logger.Info("WAL replay completed")
	return nil
}

func (r *QueueRepository) setupConsumerGroup(ctx context.Context, group string) error {
	err := r.client.XGroupCreateMkStream(ctx, ingestStreamKey, group, "0").Err()
	if err != nil && !isBusyGroupError(err) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Enqueue durably appends a message, falling back to the WAL when Redis is
// unavailable.
func (r *QueueRepository) Enqueue(ctx context.Context, msg domain.IngestMessage) error {
	if !r.isAvailable.Load() {
		if r.wal == nil {
			return domain.ErrQueueUnavailable
		}
		r.logger.Warn("redis unavailable, writing to WAL", "message_id", msg.ID)
		return r.wal.Write(ctx, msg)
	}

	if err := r.enqueueToRedis(ctx, msg); err != nil {
		if isNetworkError(err) {
			if r.isAvailable.CompareAndSwap(true, false) {
				r.logger.Error("redis connection lost during enqueue", "error", err)
			}
			if r.wal == nil {
				return fmt.Errorf("%w: %w", domain.ErrQueueUnavailable, err)
			}
			r.logger.Warn("redis became unavailable, writing to WAL", "message_id", msg.ID)
			return r.wal.Write(ctx, msg)
		}
		return err
	}
	return nil
}

func (r *QueueRepository) enqueueToRedis(ctx context.Context, msg domain.IngestMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal ingest message: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: ingestStreamKey,
		Values: map[string]interface{}{"payload": payload},
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to XADD to ingest stream: %w", err)
	}
	return nil
}

// ReadBatch claims up to count messages for the consumer, blocking up to the
// configured poll wait when none are pending.
func (r *QueueRepository) ReadBatch(ctx context.Context, group, consumer string, count int) ([]domain.IngestMessage, error) {
	args := &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{ingestStreamKey, ">"},
		Count:    int64(count),
		Block:    r.pollBlock,
	}

	streams, err := r.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to XREADGROUP: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	raw := streams[0].Messages
	msgs := make([]domain.IngestMessage, 0, len(raw))
	for _, m := range raw {
		payload, ok := m.Values["payload"].(string)
		if !ok {
			r.logger.Warn("invalid message format in stream, skipping", "stream_id", m.ID)
			continue
		}
		var msg domain.IngestMessage
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			r.logger.Warn("failed to unmarshal ingest message, skipping", "stream_id", m.ID, "error", err)
			continue
		}
		msg.StreamMessageID = m.ID
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Acknowledge removes processed messages from the pending set in one call.
func (r *QueueRepository) Acknowledge(ctx context.Context, group string, streamIDs ...string) error {
	if len(streamIDs) == 0 {
		return nil
	}
	if err := r.client.XAck(ctx, ingestStreamKey, group, streamIDs...).Err(); err != nil {
		return fmt.Errorf("failed to XACK messages: %w", err)
	}
	return nil
}

// MoveToDLQ parks messages on the dead-letter stream for inspection.
func (r *QueueRepository) MoveToDLQ(ctx context.Context, msgs []domain.IngestMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, msg := range msgs {
		payload, err := json.Marshal(msg)
		if err != nil {
			r.logger.Error("failed to marshal message for DLQ", "message_id", msg.ID, "error", err)
			continue
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: r.dlqStreamKey,
			Values: map[string]interface{}{
				"payload":         payload,
				"original_stream": ingestStreamKey,
				"original_msg_id": msg.StreamMessageID,
				"failed_at":       time.Now().UTC().Format(time.RFC3339),
			},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute DLQ pipeline: %w", err)
	}
	r.logger.Warn("moved messages to DLQ", "count", len(msgs))
	return nil
}

// QueueDepth reports the stream length for backpressure observation.
func (r *QueueRepository) QueueDepth(ctx context.Context) (int64, error) {
	depth, err := r.client.XLen(ctx, ingestStreamKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to XLEN ingest stream: %w", err)
	}
	return depth, nil
}

func isBusyGroupError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
