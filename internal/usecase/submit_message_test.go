package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/user/intel-pipeline/internal/domain"
	"github.com/user/intel-pipeline/internal/domain/mocks"
)

func TestSubmitMessageUseCase_Submit(t *testing.T) {
	t.Run("assigns id and timestamp", func(t *testing.T) {
		queue := &mocks.MockMessageQueue{}
		uc := NewSubmitMessageUseCase(queue, discardLogger())

		msg := &domain.IngestMessage{
			TenantID:        "tenant-a",
			InvestigationID: "inv-1",
			DataType:        domain.DataTypeEvent,
		}
		id, err := uc.Submit(context.Background(), msg)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id == "" || msg.ID != id {
			t.Errorf("expected generated id to be returned, got %q", id)
		}
		if msg.SubmittedAt.IsZero() {
			t.Error("expected SubmittedAt to be set")
		}
		if len(queue.EnqueuedMsgs) != 1 {
			t.Fatalf("expected 1 enqueued message, got %d", len(queue.EnqueuedMsgs))
		}
		if queue.EnqueuedMsgs[0].ID != id {
			t.Error("enqueued message id mismatch")
		}
	})

	t.Run("keeps caller-provided id", func(t *testing.T) {
		queue := &mocks.MockMessageQueue{}
		uc := NewSubmitMessageUseCase(queue, discardLogger())

		msg := &domain.IngestMessage{
			ID:              "caller-id",
			TenantID:        "tenant-a",
			InvestigationID: "inv-1",
		}
		id, err := uc.Submit(context.Background(), msg)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "caller-id" {
			t.Errorf("id = %q, want caller-id", id)
		}
	})

	t.Run("rejects missing tenant", func(t *testing.T) {
		uc := NewSubmitMessageUseCase(&mocks.MockMessageQueue{}, discardLogger())

		if _, err := uc.Submit(context.Background(), &domain.IngestMessage{InvestigationID: "inv-1"}); err == nil {
			t.Fatal("expected an error for missing tenant")
		}
	})

	t.Run("rejects missing investigation", func(t *testing.T) {
		uc := NewSubmitMessageUseCase(&mocks.MockMessageQueue{}, discardLogger())

		if _, err := uc.Submit(context.Background(), &domain.IngestMessage{TenantID: "tenant-a"}); err == nil {
			t.Fatal("expected an error for missing investigation")
		}
	})

	t.Run("queue error propagates", func(t *testing.T) {
		queue := &mocks.MockMessageQueue{EnqueueErr: errors.New("stream is down")}
		uc := NewSubmitMessageUseCase(queue, discardLogger())

		msg := &domain.IngestMessage{TenantID: "tenant-a", InvestigationID: "inv-1"}
		if _, err := uc.Submit(context.Background(), msg); err == nil {
			t.Fatal("expected an error, got nil")
		}
	})
}
