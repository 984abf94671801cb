package domain

import "context"

// MessageQueue is the durable, partitioned, append-only log the pipeline
// consumes from. Delivery is at-least-once through named consumer groups.
type MessageQueue interface {
	// Enqueue durably appends a message and returns once it is persisted.
	Enqueue(ctx context.Context, msg IngestMessage) error

	// ReadBatch pulls up to count unclaimed messages for the given consumer,
	// blocking up to the repository's configured wait when none are pending.
	ReadBatch(ctx context.Context, group, consumer string, count int) ([]IngestMessage, error)

	// Acknowledge removes successfully processed messages from the pending set.
	Acknowledge(ctx context.Context, group string, streamIDs ...string) error

	// MoveToDLQ parks messages that exhausted their retries for inspection.
	MoveToDLQ(ctx context.Context, msgs []IngestMessage) error

	// QueueDepth reports the number of entries currently in the log.
	QueueDepth(ctx context.Context) (int64, error)
}

// EventSink is the append-only time-series store processed records land in.
// Writes must be idempotent keyed by the record's message id.
type EventSink interface {
	WriteRecords(ctx context.Context, records []ProcessedRecord) error
}

// ProvenanceSink is the append-only provenance ledger.
type ProvenanceSink interface {
	WriteEntries(ctx context.Context, entries []ProvenanceEntry) error
}

// MetricStore maintains per-investigation real-time counters. Updates are
// atomic at the storage layer because multiple worker instances share the
// same investigation's buckets.
type MetricStore interface {
	// Record applies all metric updates for one processed record together and
	// returns the updated current-minute velocity.
	Record(ctx context.Context, rec ProcessedRecord) (int64, error)

	// InvestigationMetrics reads the current aggregates for an investigation.
	InvestigationMetrics(ctx context.Context, investigationID string) (InvestigationMetrics, error)
}

// RuleProvider is the read path into alert rule configuration.
type RuleProvider interface {
	// RulesForTenant returns the tenant's rules in declaration order, or
	// ErrNotFound when the tenant has none configured.
	RulesForTenant(ctx context.Context, tenantID string) ([]AlertRule, error)
}

// Publisher fans metric and alert updates out to dashboard subscribers.
// Delivery is fire-and-forget; a failed publish must never block ingestion.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// APIKeyRepository resolves submit credentials to tenants.
type APIKeyRepository interface {
	// TenantForKey returns the tenant owning an active key, or ErrNotFound.
	TenantForKey(ctx context.Context, key string) (string, error)
}

// WALRepository is the local write-ahead failover used by the submit path
// when the message queue is unreachable.
type WALRepository interface {
	Write(ctx context.Context, msg IngestMessage) error
	Replay(ctx context.Context, handler func(msg IngestMessage) error) error
	Truncate(ctx context.Context) error
}
