package usecase

import (
	"context"
	"time"

	"github.com/user/intel-pipeline/internal/domain"
)

// QueueAdminUseCase provides operator-level introspection of the ingest
// stream: who is consuming, what is pending, and manual claim/ack/trim.
type QueueAdminUseCase struct {
	repo domain.QueueAdminRepository
}

// NewQueueAdminUseCase creates a new QueueAdminUseCase.
func NewQueueAdminUseCase(repo domain.QueueAdminRepository) *QueueAdminUseCase {
	return &QueueAdminUseCase{repo: repo}
}

func (uc *QueueAdminUseCase) GroupInfo(ctx context.Context) ([]domain.ConsumerGroupInfo, error) {
	return uc.repo.GroupInfo(ctx)
}

func (uc *QueueAdminUseCase) ConsumerInfo(ctx context.Context, group string) ([]domain.ConsumerInfo, error) {
	return uc.repo.ConsumerInfo(ctx, group)
}

func (uc *QueueAdminUseCase) PendingSummary(ctx context.Context, group string) (*domain.PendingSummary, error) {
	return uc.repo.PendingSummary(ctx, group)
}

func (uc *QueueAdminUseCase) PendingMessages(ctx context.Context, group, consumer, startID string, count int64) ([]domain.PendingDetail, error) {
	if startID == "" {
		startID = "-"
	}
	if count <= 0 {
		count = 100
	}
	return uc.repo.PendingMessages(ctx, group, consumer, startID, count)
}

func (uc *QueueAdminUseCase) ClaimMessages(ctx context.Context, group, consumer string, minIdle time.Duration, streamIDs []string) ([]domain.IngestMessage, error) {
	return uc.repo.ClaimMessages(ctx, group, consumer, minIdle, streamIDs)
}

func (uc *QueueAdminUseCase) AcknowledgeMessages(ctx context.Context, group string, streamIDs ...string) (int64, error) {
	return uc.repo.AcknowledgeMessages(ctx, group, streamIDs...)
}

func (uc *QueueAdminUseCase) TrimStream(ctx context.Context, maxLen int64) (int64, error) {
	return uc.repo.TrimStream(ctx, maxLen)
}
