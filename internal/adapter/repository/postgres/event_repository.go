package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/lib/pq"

	"github.com/user/intel-pipeline/internal/domain"
)

// EventRepository implements domain.EventSink on PostgreSQL. The sink is an
// append-only time-series table; writes are idempotent on message id so that
// at-least-once redelivery never duplicates rows.
type EventRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEventRepository creates a new PostgreSQL event sink.
func NewEventRepository(db *sql.DB, logger *slog.Logger) *EventRepository {
	return &EventRepository{db: db, logger: logger}
}

// WriteRecords writes processed records using the COPY protocol into a temp
// table, then merges into the main table with ON CONFLICT DO NOTHING.
func (r *EventRepository) WriteRecords(ctx context.Context, records []domain.ProcessedRecord) error {
	if len(records) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // no-op after Commit

	tempTable := "processed_records_import"
	_, err = txn.ExecContext(ctx, `CREATE TEMP TABLE `+tempTable+` (LIKE processed_records INCLUDING DEFAULTS) ON COMMIT DROP;`)
	if err != nil {
		return err
	}

	stmt, err := txn.Prepare(pq.CopyIn(tempTable,
		"message_id", "tenant_id", "investigation_id", "source", "data_type",
		"submitted_at", "processed_at", "normalized_payload", "redaction_applied",
		"redacted_field_paths", "confidence", "processing_latency_ms", "correlation_id"))
	if err != nil {
		return err
	}

	for _, rec := range records {
		payload, err := json.Marshal(rec.NormalizedPayload)
		if err != nil {
			_ = stmt.Close()
			return err
		}
		_, err = stmt.ExecContext(ctx,
			rec.ID, rec.TenantID, rec.InvestigationID, rec.Source, string(rec.DataType),
			rec.SubmittedAt, rec.ProcessedAt, payload, rec.RedactionApplied,
			pq.Array(rec.RedactedFieldPaths), rec.Confidence, rec.ProcessingLatencyMs,
			nullable(rec.CorrelationID))
		if err != nil {
			_ = stmt.Close()
			return err
		}
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	_, err = txn.ExecContext(ctx, `
		INSERT INTO processed_records (
			message_id, tenant_id, investigation_id, source, data_type,
			submitted_at, processed_at, normalized_payload, redaction_applied,
			redacted_field_paths, confidence, processing_latency_ms, correlation_id)
		SELECT message_id, tenant_id, investigation_id, source, data_type,
			submitted_at, processed_at, normalized_payload, redaction_applied,
			redacted_field_paths, confidence, processing_latency_ms, correlation_id
		FROM `+tempTable+`
		ON CONFLICT (message_id) DO NOTHING;
	`)
	if err != nil {
		return err
	}

	return txn.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
