package domain

import (
	"context"
	"time"
)

// ConsumerGroupInfo describes one consumer group on the ingest stream.
type ConsumerGroupInfo struct {
	Name            string `json:"name"`
	Consumers       int64  `json:"consumers"`
	Pending         int64  `json:"pending"`
	LastDeliveredID string `json:"last_delivered_id"`
}

// ConsumerInfo describes a single worker inside a group.
type ConsumerInfo struct {
	Name    string        `json:"name"`
	Pending int64         `json:"pending"`
	Idle    time.Duration `json:"idle_ms"`
}

// PendingSummary summarizes unacknowledged messages for a group.
type PendingSummary struct {
	Total          int64            `json:"total"`
	FirstMessageID string           `json:"first_message_id,omitempty"`
	LastMessageID  string           `json:"last_message_id,omitempty"`
	ConsumerTotals map[string]int64 `json:"consumer_totals,omitempty"`
}

// PendingDetail is a single unacknowledged message, typically one whose
// processing failed and which is awaiting redelivery or operator inspection.
type PendingDetail struct {
	ID         string        `json:"id"`
	Consumer   string        `json:"consumer"`
	IdleTime   time.Duration `json:"idle_time_ms"`
	RetryCount int64         `json:"retry_count"`
}

// QueueAdminRepository exposes operator-level introspection and repair of the
// durable log: inspecting pending messages, reassigning them to a live
// consumer, acknowledging poison messages, and trimming the stream.
type QueueAdminRepository interface {
	GroupInfo(ctx context.Context) ([]ConsumerGroupInfo, error)
	ConsumerInfo(ctx context.Context, group string) ([]ConsumerInfo, error)
	PendingSummary(ctx context.Context, group string) (*PendingSummary, error)
	PendingMessages(ctx context.Context, group, consumer, startID string, count int64) ([]PendingDetail, error)
	ClaimMessages(ctx context.Context, group, consumer string, minIdle time.Duration, streamIDs []string) ([]IngestMessage, error)
	AcknowledgeMessages(ctx context.Context, group string, streamIDs ...string) (int64, error)
	TrimStream(ctx context.Context, maxLen int64) (int64, error)
}
