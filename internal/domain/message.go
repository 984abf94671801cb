package domain

import "time"

// DataType classifies the canonical shape an ingested payload normalizes into.
type DataType string

const (
	DataTypeEvent        DataType = "event"
	DataTypeEntity       DataType = "entity"
	DataTypeRelationship DataType = "relationship"
	DataTypeDocument     DataType = "document"
)

// EvidenceBearing reports whether records of this type contribute to the
// distinct-evidence count of an investigation.
func (t DataType) EvidenceBearing() bool {
	switch t {
	case DataTypeEvent, DataTypeDocument, DataTypeRelationship:
		return true
	}
	return false
}

// IngestMessage is a raw analyst/collector submission. It is immutable once
// enqueued; delivery is at-least-once, so downstream writes key on ID.
type IngestMessage struct {
	ID              string            `json:"id"`
	TenantID        string            `json:"tenant_id"`
	InvestigationID string            `json:"investigation_id"`
	Source          string            `json:"source,omitempty"`
	SubmittedAt     time.Time         `json:"submitted_at"`
	DataType        DataType          `json:"data_type"`
	RawPayload      map[string]any    `json:"raw_payload"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Priority        int               `json:"priority,omitempty"`
	CorrelationID   string            `json:"correlation_id,omitempty"`

	// StreamMessageID is the durable-log offset, set when the message is read
	// from the stream. Never serialized to the sink.
	StreamMessageID string `json:"-"`
}

// ProcessedRecord is the outcome of one successful processing pass over an
// IngestMessage. It is written to the durable sinks and then discarded.
type ProcessedRecord struct {
	ID                  string         `json:"id"`
	TenantID            string         `json:"tenant_id"`
	InvestigationID     string         `json:"investigation_id"`
	Source              string         `json:"source,omitempty"`
	DataType            DataType       `json:"data_type"`
	SubmittedAt         time.Time      `json:"submitted_at"`
	ProcessedAt         time.Time      `json:"processed_at"`
	NormalizedPayload   map[string]any `json:"normalized_payload"`
	RedactionApplied    bool           `json:"redaction_applied"`
	RedactedFieldPaths  []string       `json:"redacted_field_paths,omitempty"`
	Confidence          float64        `json:"confidence"`
	ProcessingLatencyMs int64          `json:"processing_latency_ms"`
	CorrelationID       string         `json:"correlation_id,omitempty"`
}

// ProvenanceEntry records where a processed record came from and what the
// pipeline did to it, for the append-only provenance ledger.
type ProvenanceEntry struct {
	MessageID          string            `json:"message_id"`
	TenantID           string            `json:"tenant_id"`
	InvestigationID    string            `json:"investigation_id"`
	Source             string            `json:"source,omitempty"`
	CorrelationID      string            `json:"correlation_id,omitempty"`
	RedactedFieldPaths []string          `json:"redacted_field_paths,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	RecordedAt         time.Time         `json:"recorded_at"`
}

// InvestigationMetrics is the read-side aggregate exposed to dashboards.
type InvestigationMetrics struct {
	InvestigationID string  `json:"investigation_id"`
	Velocity        int64   `json:"velocity"`
	EvidenceCount   int64   `json:"evidence_count"`
	EntityRate      int64   `json:"entity_rate"`
	Confidence      float64 `json:"confidence,omitempty"`
}
