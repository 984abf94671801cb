package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/lib/pq"

	"github.com/user/intel-pipeline/internal/domain"
)

// ProvenanceRepository implements domain.ProvenanceSink: an append-only
// ledger of what entered the pipeline and what redaction did to it.
// Entries are idempotent on message id.
type ProvenanceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewProvenanceRepository creates a new PostgreSQL provenance ledger.
func NewProvenanceRepository(db *sql.DB, logger *slog.Logger) *ProvenanceRepository {
	return &ProvenanceRepository{db: db, logger: logger}
}

// WriteEntries appends ledger entries, one statement per batch.
func (r *ProvenanceRepository) WriteEntries(ctx context.Context, entries []domain.ProvenanceEntry) error {
	if len(entries) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	const query = `
		INSERT INTO provenance_ledger (
			message_id, tenant_id, investigation_id, source, correlation_id,
			redacted_field_paths, metadata, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (message_id) DO NOTHING;`

	for _, e := range entries {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		if _, err := txn.ExecContext(ctx, query,
			e.MessageID, e.TenantID, e.InvestigationID, e.Source,
			nullable(e.CorrelationID), pq.Array(e.RedactedFieldPaths),
			metadata, e.RecordedAt); err != nil {
			return err
		}
	}

	return txn.Commit()
}
