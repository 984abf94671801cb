package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/user/intel-pipeline/internal/adapter/redact"
	"github.com/user/intel-pipeline/internal/adapter/score"
	"github.com/user/intel-pipeline/internal/domain"
	"github.com/user/intel-pipeline/internal/domain/mocks"
)

func testBatch(n int) []domain.IngestMessage {
	msgs := make([]domain.IngestMessage, 0, n)
	for i := 1; i <= n; i++ {
		msgs = append(msgs, domain.IngestMessage{
			ID:              fmt.Sprintf("msg-%d", i),
			TenantID:        "tenant-a",
			InvestigationID: "inv-1",
			Source:          "field_analyst",
			DataType:        domain.DataTypeEvent,
			SubmittedAt:     time.Now().UTC(),
			RawPayload:      map[string]any{"note": fmt.Sprintf("event %d", i)},
			StreamMessageID: fmt.Sprintf("stream-%d", i),
		})
	}
	return msgs
}

func newTestUseCase(t *testing.T, queue *mocks.MockMessageQueue, events *mocks.MockEventSink, store *mocks.MockMetricStore, pub *mocks.MockPublisher) (*ProcessMessagesUseCase, *mocks.MockProvenanceSink) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provenance := &mocks.MockProvenanceSink{}
	alerter := NewAlerter(&mocks.MockRuleProvider{}, 0, logger)

	uc := NewProcessMessagesUseCase(ProcessDeps{
		Queue:       queue,
		Events:      events,
		Provenance:  provenance,
		MetricStore: store,
		Publisher:   pub,
		Alerter:     alerter,
		Health:      NewHealthMonitor(DefaultHealthThresholds()),
		Redactor:    redact.NewRedactor(),
		Scorer:      score.NewScorer(nil, 5, 0.1),
		Logger:      logger,
	}, ProcessOptions{Group: "pipeline", Consumer: "worker-1"})
	return uc, provenance
}

func TestProcessBatch_Success(t *testing.T) {
	queue := &mocks.MockMessageQueue{ReadBatchResult: testBatch(3)}
	events := &mocks.MockEventSink{}
	store := &mocks.MockMetricStore{Velocity: 3}
	pub := &mocks.MockPublisher{}
	uc, provenance := newTestUseCase(t, queue, events, store, pub)

	processed, failed, err := uc.ProcessBatch(context.Background())

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if processed != 3 || failed != 0 {
		t.Errorf("processed/failed = %d/%d, want 3/0", processed, failed)
	}
	if len(events.WrittenRecords) != 3 {
		t.Errorf("expected 3 records in sink, got %d", len(events.WrittenRecords))
	}
	if len(provenance.WrittenEntries) != 3 {
		t.Errorf("expected 3 provenance entries, got %d", len(provenance.WrittenEntries))
	}
	if len(queue.AckedStreamIDs) != 3 {
		t.Errorf("expected 3 acks, got %d", len(queue.AckedStreamIDs))
	}
	if len(pub.Published[domain.MetricsChannel("tenant-a")]) != 3 {
		t.Errorf("expected 3 metrics updates published, got %d",
			len(pub.Published[domain.MetricsChannel("tenant-a")]))
	}
}

func TestProcessBatch_SingleFailureIsIsolated(t *testing.T) {
	queue := &mocks.MockMessageQueue{ReadBatchResult: testBatch(10)}
	events := &mocks.MockEventSink{
		FailForIDs: map[string]error{"msg-5": errors.New("malformed payload")},
	}
	store := &mocks.MockMetricStore{Velocity: 1}
	pub := &mocks.MockPublisher{}
	uc, _ := newTestUseCase(t, queue, events, store, pub)

	processed, failed, err := uc.ProcessBatch(context.Background())

	if err != nil {
		t.Fatalf("expected no batch-level error, got %v", err)
	}
	if processed != 9 || failed != 1 {
		t.Errorf("processed/failed = %d/%d, want 9/1", processed, failed)
	}
	if len(queue.AckedStreamIDs) != 9 {
		t.Fatalf("expected 9 acks, got %d", len(queue.AckedStreamIDs))
	}
	for _, id := range queue.AckedStreamIDs {
		if id == "stream-5" {
			t.Error("failed message must remain unacknowledged")
		}
	}
	// Messages after the failed one still go through.
	found := false
	for _, id := range queue.AckedStreamIDs {
		if id == "stream-6" {
			found = true
		}
	}
	if !found {
		t.Error("expected message after the failure to be processed and acked")
	}
}

func TestProcessBatch_PollError(t *testing.T) {
	queue := &mocks.MockMessageQueue{ReadErr: errors.New("redis connection refused")}
	uc, _ := newTestUseCase(t, queue, &mocks.MockEventSink{}, &mocks.MockMetricStore{}, &mocks.MockPublisher{})

	_, _, err := uc.ProcessBatch(context.Background())

	if err == nil {
		t.Fatal("expected a transport error")
	}
}

func TestProcessBatch_AckErrorSurfaces(t *testing.T) {
	queue := &mocks.MockMessageQueue{
		ReadBatchResult: testBatch(2),
		AckErr:          errors.New("ack failed"),
	}
	uc, _ := newTestUseCase(t, queue, &mocks.MockEventSink{}, &mocks.MockMetricStore{}, &mocks.MockPublisher{})

	processed, _, err := uc.ProcessBatch(context.Background())

	if err == nil {
		t.Fatal("expected an error from the failed ack")
	}
	if processed != 2 {
		t.Errorf("processed = %d, want 2 (records are in the idempotent sinks)", processed)
	}
}

func TestProcessBatch_MetricStoreFailureFailsMessage(t *testing.T) {
	queue := &mocks.MockMessageQueue{ReadBatchResult: testBatch(1)}
	store := &mocks.MockMetricStore{RecordErr: errors.New("pipeline exec failed")}
	uc, _ := newTestUseCase(t, queue, &mocks.MockEventSink{}, store, &mocks.MockPublisher{})

	processed, failed, err := uc.ProcessBatch(context.Background())

	if err != nil {
		t.Fatalf("expected no batch-level error, got %v", err)
	}
	if processed != 0 || failed != 1 {
		t.Errorf("processed/failed = %d/%d, want 0/1", processed, failed)
	}
	if len(queue.AckedStreamIDs) != 0 {
		t.Errorf("expected no acks, got %d", len(queue.AckedStreamIDs))
	}
}

func TestProcessBatch_PublishFailureIsSwallowed(t *testing.T) {
	queue := &mocks.MockMessageQueue{ReadBatchResult: testBatch(1)}
	pub := &mocks.MockPublisher{PublishErr: errors.New("subscriber gone")}
	uc, _ := newTestUseCase(t, queue, &mocks.MockEventSink{}, &mocks.MockMetricStore{}, pub)

	processed, failed, err := uc.ProcessBatch(context.Background())

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if processed != 1 || failed != 0 {
		t.Errorf("processed/failed = %d/%d, want 1/0 (fanout is best-effort)", processed, failed)
	}
	if len(queue.AckedStreamIDs) != 1 {
		t.Errorf("expected the message to be acked despite publish failure, got %d acks", len(queue.AckedStreamIDs))
	}
}

func TestProcessBatch_EmptyPoll(t *testing.T) {
	queue := &mocks.MockMessageQueue{}
	events := &mocks.MockEventSink{}
	uc, _ := newTestUseCase(t, queue, events, &mocks.MockMetricStore{}, &mocks.MockPublisher{})

	processed, failed, err := uc.ProcessBatch(context.Background())

	if err != nil || processed != 0 || failed != 0 {
		t.Errorf("empty poll: processed=%d failed=%d err=%v, want 0/0/nil", processed, failed, err)
	}
	if len(events.WrittenRecords) != 0 {
		t.Error("sink should not be touched on an empty poll")
	}
}

func TestProcessBatch_RedactionFlowsToSink(t *testing.T) {
	msgs := testBatch(1)
	msgs[0].RawPayload = map[string]any{"note": "contact a@b.com"}
	queue := &mocks.MockMessageQueue{ReadBatchResult: msgs}
	events := &mocks.MockEventSink{}
	uc, provenance := newTestUseCase(t, queue, events, &mocks.MockMetricStore{}, &mocks.MockPublisher{})

	if _, _, err := uc.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(events.WrittenRecords) != 1 {
		t.Fatalf("expected 1 record, got %d", len(events.WrittenRecords))
	}

	rec := events.WrittenRecords[0]
	if !rec.RedactionApplied {
		t.Error("expected redaction to be applied")
	}
	if len(rec.RedactedFieldPaths) != 1 || rec.RedactedFieldPaths[0] != "note:email" {
		t.Errorf("unexpected redacted paths: %v", rec.RedactedFieldPaths)
	}
	if rec.NormalizedPayload["severity"] != "INFO" {
		t.Errorf("expected normalized severity INFO, got %v", rec.NormalizedPayload["severity"])
	}
	if rec.Confidence < 0.1 || rec.Confidence > 1.0 {
		t.Errorf("confidence %v out of bounds", rec.Confidence)
	}
	if len(provenance.WrittenEntries) != 1 || provenance.WrittenEntries[0].MessageID != rec.ID {
		t.Error("provenance entry should mirror the processed record")
	}
}
