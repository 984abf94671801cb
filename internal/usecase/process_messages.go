package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/intel-pipeline/internal/adapter/metrics"
	"github.com/user/intel-pipeline/internal/adapter/normalize"
	"github.com/user/intel-pipeline/internal/adapter/redact"
	"github.com/user/intel-pipeline/internal/adapter/score"
	"github.com/user/intel-pipeline/internal/domain"
)

const (
	defaultBatchSize      = 64
	defaultMessageTimeout = 30 * time.Second
	defaultCostThreshold  = 256 * 1024
)

// ProcessMessagesUseCase drives one consumer's pass over the durable log:
// poll a batch, run each message through redaction, normalization, scoring,
// sink writes, metric aggregation, alert evaluation and fanout, then
// acknowledge only the messages that made it all the way through. Failed
// messages stay pending for redelivery or operator inspection.
type ProcessMessagesUseCase struct {
	queue       domain.MessageQueue
	events      domain.EventSink
	provenance  domain.ProvenanceSink
	metricStore domain.MetricStore
	publisher   domain.Publisher
	alerter     *Alerter
	health      *HealthMonitor
	redactor    *redact.Redactor
	scorer      *score.Scorer
	workerStats *metrics.WorkerMetrics
	logger      *slog.Logger

	group          string
	consumer       string
	batchSize      int
	messageTimeout time.Duration
	costThreshold  int
}

// ProcessDeps bundles the collaborators the loop needs.
type ProcessDeps struct {
	Queue       domain.MessageQueue
	Events      domain.EventSink
	Provenance  domain.ProvenanceSink
	MetricStore domain.MetricStore
	Publisher   domain.Publisher
	Alerter     *Alerter
	Health      *HealthMonitor
	Redactor    *redact.Redactor
	Scorer      *score.Scorer
	WorkerStats *metrics.WorkerMetrics
	Logger      *slog.Logger
}

// ProcessOptions tune the loop; zero values fall back to defaults.
type ProcessOptions struct {
	Group          string
	Consumer       string
	BatchSize      int
	MessageTimeout time.Duration
	CostThreshold  int
}

// NewProcessMessagesUseCase wires the consumer loop. All dependencies are
// injected; the use case owns no connections and no global state.
func NewProcessMessagesUseCase(deps ProcessDeps, opts ProcessOptions) *ProcessMessagesUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MessageTimeout <= 0 {
		opts.MessageTimeout = defaultMessageTimeout
	}
	if opts.CostThreshold <= 0 {
		opts.CostThreshold = defaultCostThreshold
	}
	return &ProcessMessagesUseCase{
		queue:          deps.Queue,
		events:         deps.Events,
		provenance:     deps.Provenance,
		metricStore:    deps.MetricStore,
		publisher:      deps.Publisher,
		alerter:        deps.Alerter,
		health:         deps.Health,
		redactor:       deps.Redactor,
		scorer:         deps.Scorer,
		workerStats:    deps.WorkerStats,
		logger:         deps.Logger,
		group:          opts.Group,
		consumer:       opts.Consumer,
		batchSize:      opts.BatchSize,
		messageTimeout: opts.MessageTimeout,
		costThreshold:  opts.CostThreshold,
	}
}

// ProcessBatch runs one Polling → Processing → Acking cycle. It returns the
// processed and failed counts; a non-nil error means a transport-level
// poll or ack failure the caller should back off on. A single message's
// processing error is isolated and never surfaces here.
func (uc *ProcessMessagesUseCase) ProcessBatch(ctx context.Context) (processed, failed int, err error) {
	msgs, err := uc.queue.ReadBatch(ctx, uc.group, uc.consumer, uc.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("poll batch: %w", err)
	}
	if len(msgs) == 0 {
		return 0, 0, nil
	}

	if uc.workerStats != nil {
		uc.workerStats.BatchSize.Observe(float64(len(msgs)))
	}

	// Once a batch is claimed it is drained even through shutdown; only new
	// polling cycles stop. Detaching from cancellation keeps the in-flight
	// Processing/Acking cycle intact.
	workCtx := context.WithoutCancel(ctx)

	acked := make([]string, 0, len(msgs))
	for i := range msgs {
		msg := &msgs[i]
		if procErr := uc.processOne(workCtx, msg); procErr != nil {
			failed++
			if uc.workerStats != nil {
				uc.workerStats.MessagesTotal.WithLabelValues("failed").Inc()
			}
			uc.logger.Error("message processing failed, leaving unacknowledged",
				"message_id", msg.ID,
				"correlation_id", msg.CorrelationID,
				"stream_id", msg.StreamMessageID,
				"error", procErr,
			)
			continue
		}
		processed++
		if uc.workerStats != nil {
			uc.workerStats.MessagesTotal.WithLabelValues("processed").Inc()
		}
		acked = append(acked, msg.StreamMessageID)
	}

	if len(acked) > 0 {
		if ackErr := uc.queue.Acknowledge(workCtx, uc.group, acked...); ackErr != nil {
			// Records are already in the idempotent sinks; redelivery is safe.
			uc.recordHealth(workCtx, processed, failed)
			return processed, failed, fmt.Errorf("acknowledge batch: %w", ackErr)
		}
	}

	uc.recordHealth(workCtx, processed, failed)
	return processed, failed, nil
}

// processOne pushes a single message through the full pipeline. Any error
// aborts only this message.
func (uc *ProcessMessagesUseCase) processOne(ctx context.Context, msg *domain.IngestMessage) error {
	start := time.Now()

	// Runaway guard: a pathological payload gets a hard deadline instead of
	// starving the rest of the batch.
	if uc.estimatedCost(msg) > uc.costThreshold {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.messageTimeout)
		defer cancel()
	}

	red := uc.redactor.Redact(msg.RawPayload)
	normalized := normalize.Normalize(red.Payload, msg.DataType)
	confidence := uc.scorer.Score(normalized, msg.Source, msg.Priority)

	rec := domain.ProcessedRecord{
		ID:                  msg.ID,
		TenantID:            msg.TenantID,
		InvestigationID:     msg.InvestigationID,
		Source:              msg.Source,
		DataType:            msg.DataType,
		SubmittedAt:         msg.SubmittedAt,
		ProcessedAt:         time.Now().UTC(),
		NormalizedPayload:   normalized,
		RedactionApplied:    red.Applied,
		RedactedFieldPaths:  red.Fields,
		Confidence:          confidence,
		CorrelationID:       msg.CorrelationID,
		ProcessingLatencyMs: time.Since(start).Milliseconds(),
	}

	if err := uc.events.WriteRecords(ctx, []domain.ProcessedRecord{rec}); err != nil {
		return fmt.Errorf("event sink write: %w", err)
	}
	if err := uc.provenance.WriteEntries(ctx, []domain.ProvenanceEntry{{
		MessageID:          msg.ID,
		TenantID:           msg.TenantID,
		InvestigationID:    msg.InvestigationID,
		Source:             msg.Source,
		CorrelationID:      msg.CorrelationID,
		RedactedFieldPaths: red.Fields,
		Metadata:           msg.Metadata,
		RecordedAt:         rec.ProcessedAt,
	}}); err != nil {
		return fmt.Errorf("provenance write: %w", err)
	}

	velocity, err := uc.metricStore.Record(ctx, rec)
	if err != nil {
		return fmt.Errorf("metric aggregation: %w", err)
	}

	uc.fanout(ctx, msg, rec, velocity)

	if uc.workerStats != nil {
		uc.workerStats.ProcessingLatency.Observe(time.Since(start).Seconds())
	}
	return nil
}

// fanout evaluates alert rules and publishes dashboard updates. Everything
// here is best-effort: a publish failure is logged and swallowed so dashboard
// consumers can never block ingestion.
func (uc *ProcessMessagesUseCase) fanout(ctx context.Context, msg *domain.IngestMessage, rec domain.ProcessedRecord, velocity int64) {
	alertMetrics := map[domain.AlertMetric]float64{
		domain.MetricVelocity:   float64(velocity),
		domain.MetricConfidence: rec.Confidence,
	}

	inv, err := uc.metricStore.InvestigationMetrics(ctx, msg.InvestigationID)
	if err != nil {
		// Rules referencing evidence_count are skipped when the read fails.
		uc.logger.Warn("failed to read investigation metrics",
			"investigation_id", msg.InvestigationID, "message_id", msg.ID, "error", err)
		inv = domain.InvestigationMetrics{InvestigationID: msg.InvestigationID, Velocity: velocity}
	} else {
		alertMetrics[domain.MetricEvidenceCount] = float64(inv.EvidenceCount)
	}

	update := domain.MetricsUpdate{
		Type:            domain.FanoutTypeMetrics,
		InvestigationID: msg.InvestigationID,
		Velocity:        velocity,
		EvidenceCount:   inv.EvidenceCount,
		EntityRate:      inv.EntityRate,
		Confidence:      rec.Confidence,
	}
	uc.publish(ctx, domain.MetricsChannel(msg.TenantID), update, msg)

	alerts := uc.alerter.Evaluate(ctx, AlertContext{
		InvestigationID: msg.InvestigationID,
		TenantID:        msg.TenantID,
		Metrics:         alertMetrics,
	})
	for _, alert := range alerts {
		uc.publish(ctx, domain.AlertsChannel(msg.TenantID), domain.AlertNotification{
			Type:  domain.FanoutTypeAlert,
			Alert: alert,
		}, msg)
	}
}

func (uc *ProcessMessagesUseCase) publish(ctx context.Context, channel string, payload any, msg *domain.IngestMessage) {
	if err := uc.publisher.Publish(ctx, channel, payload); err != nil {
		if uc.workerStats != nil {
			uc.workerStats.PublishesDropped.Inc()
		}
		uc.logger.Warn("fanout publish dropped",
			"channel", channel,
			"message_id", msg.ID,
			"correlation_id", msg.CorrelationID,
			"error", err,
		)
	}
}

func (uc *ProcessMessagesUseCase) recordHealth(ctx context.Context, processed, failed int) {
	if uc.health == nil {
		return
	}
	state := uc.health.RecordBatch(processed, failed)
	if depth, err := uc.queue.QueueDepth(ctx); err == nil {
		uc.health.ObserveQueueDepth(depth)
		if uc.workerStats != nil {
			uc.workerStats.QueueDepth.Set(float64(depth))
		}
	}
	if uc.workerStats != nil {
		uc.workerStats.SetHealthState(state)
	}
}

// estimatedCost approximates how expensive a payload will be to traverse.
func (uc *ProcessMessagesUseCase) estimatedCost(msg *domain.IngestMessage) int {
	raw, err := json.Marshal(msg.RawPayload)
	if err != nil {
		return 0
	}
	return len(raw)
}
