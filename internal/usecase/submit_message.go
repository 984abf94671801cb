package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/user/intel-pipeline/internal/domain"
)

// SubmitMessageUseCase handles the synchronous submit path: validate, assign
// identity, and durably append to the message queue. It returns as soon as
// the append is acknowledged; processing happens asynchronously.
type SubmitMessageUseCase struct {
	queue  domain.MessageQueue
	logger *slog.Logger
}

// NewSubmitMessageUseCase creates a new SubmitMessageUseCase.
func NewSubmitMessageUseCase(queue domain.MessageQueue, logger *slog.Logger) *SubmitMessageUseCase {
	return &SubmitMessageUseCase{queue: queue, logger: logger}
}

// Submit enqueues a message and returns its identifier.
func (uc *SubmitMessageUseCase) Submit(ctx context.Context, msg *domain.IngestMessage) (string, error) {
	if msg.TenantID == "" {
		return "", errors.New("tenant id is required")
	}
	if msg.InvestigationID == "" {
		return "", errors.New("investigation id is required")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SubmittedAt.IsZero() {
		msg.SubmittedAt = time.Now().UTC()
	}
	if msg.RawPayload == nil {
		msg.RawPayload = map[string]any{}
	}

	if err := uc.queue.Enqueue(ctx, *msg); err != nil {
		uc.logger.Error("failed to enqueue message",
			"message_id", msg.ID, "correlation_id", msg.CorrelationID, "error", err)
		return "", err
	}
	return msg.ID, nil
}
