package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/user/intel-pipeline/internal/domain"
)

// MockMessageQueue is a hand-rolled domain.MessageQueue for unit tests.
type MockMessageQueue struct {
	mu              sync.Mutex
	EnqueuedMsgs    []domain.IngestMessage
	ReadBatchResult []domain.IngestMessage
	AckedStreamIDs  []string
	DLQMsgs         []domain.IngestMessage
	Depth           int64
	EnqueueErr      error
	ReadErr         error
	AckErr          error
	DLQErr          error
	DepthErr        error
}

func (m *MockMessageQueue) Enqueue(ctx context.Context, msg domain.IngestMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	m.EnqueuedMsgs = append(m.EnqueuedMsgs, msg)
	return nil
}

func (m *MockMessageQueue) ReadBatch(ctx context.Context, group, consumer string, count int) ([]domain.IngestMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return m.ReadBatchResult, nil
}

func (m *MockMessageQueue) Acknowledge(ctx context.Context, group string, streamIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return m.AckErr
	}
	m.AckedStreamIDs = append(m.AckedStreamIDs, streamIDs...)
	return nil
}

func (m *MockMessageQueue) MoveToDLQ(ctx context.Context, msgs []domain.IngestMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DLQErr != nil {
		return m.DLQErr
	}
	m.DLQMsgs = append(m.DLQMsgs, msgs...)
	return nil
}

func (m *MockMessageQueue) QueueDepth(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Depth, m.DepthErr
}

// MockEventSink records written batches and can fail per message id.
type MockEventSink struct {
	mu             sync.Mutex
	WrittenRecords []domain.ProcessedRecord
	WriteErr       error
	FailForIDs     map[string]error
}

func (m *MockEventSink) WriteRecords(ctx context.Context, records []domain.ProcessedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	for _, rec := range records {
		if err, ok := m.FailForIDs[rec.ID]; ok {
			return err
		}
	}
	m.WrittenRecords = append(m.WrittenRecords, records...)
	return nil
}

// MockProvenanceSink records ledger entries.
type MockProvenanceSink struct {
	mu             sync.Mutex
	WrittenEntries []domain.ProvenanceEntry
	WriteErr       error
}

func (m *MockProvenanceSink) WriteEntries(ctx context.Context, entries []domain.ProvenanceEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.WrittenEntries = append(m.WrittenEntries, entries...)
	return nil
}

// MockMetricStore records metric updates and returns a scripted velocity.
type MockMetricStore struct {
	mu        sync.Mutex
	Recorded  []domain.ProcessedRecord
	Velocity  int64
	Metrics   domain.InvestigationMetrics
	RecordErr error
	ReadErr   error
}

func (m *MockMetricStore) Record(ctx context.Context, rec domain.ProcessedRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordErr != nil {
		return 0, m.RecordErr
	}
	m.Recorded = append(m.Recorded, rec)
	return m.Velocity, nil
}

func (m *MockMetricStore) InvestigationMetrics(ctx context.Context, investigationID string) (domain.InvestigationMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return domain.InvestigationMetrics{}, m.ReadErr
	}
	return m.Metrics, nil
}

// MockRuleProvider returns a fixed rule set per tenant.
type MockRuleProvider struct {
	Rules    map[string][]domain.AlertRule
	RulesErr error
}

func (m *MockRuleProvider) RulesForTenant(ctx context.Context, tenantID string) ([]domain.AlertRule, error) {
	if m.RulesErr != nil {
		return nil, m.RulesErr
	}
	rules, ok := m.Rules[tenantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rules, nil
}

// MockPublisher captures published payloads by channel.
type MockPublisher struct {
	mu         sync.Mutex
	Published  map[string][]any
	PublishErr error
}

func (m *MockPublisher) Publish(ctx context.Context, channel string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	if m.Published == nil {
		m.Published = make(map[string][]any)
	}
	m.Published[channel] = append(m.Published[channel], payload)
	return nil
}

// MockAPIKeyRepository maps keys to tenants.
type MockAPIKeyRepository struct {
	Tenants map[string]string
	Err     error
}

func (m *MockAPIKeyRepository) TenantForKey(ctx context.Context, key string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	tenant, ok := m.Tenants[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return tenant, nil
}

// MockWALRepository is an in-memory stand-in for the file WAL.
type MockWALRepository struct {
	mu          sync.Mutex
	WrittenMsgs []domain.IngestMessage
	WriteErr    error
	Truncated   bool
}

func (m *MockWALRepository) Write(ctx context.Context, msg domain.IngestMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.WrittenMsgs = append(m.WrittenMsgs, msg)
	return nil
}

func (m *MockWALRepository) Replay(ctx context.Context, handler func(msg domain.IngestMessage) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.WrittenMsgs {
		if err := handler(msg); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockWALRepository) Truncate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WrittenMsgs = nil
	m.Truncated = true
	return nil
}

// MockQueueAdminRepository scripts the admin surface of the durable log.
type MockQueueAdminRepository struct {
	mu             sync.Mutex
	Groups         []domain.ConsumerGroupInfo
	Consumers      []domain.ConsumerInfo
	Summary        *domain.PendingSummary
	Pending        []domain.PendingDetail
	Claimable      map[string]domain.IngestMessage
	ClaimedIDs     []string
	AckedStreamIDs []string
	TrimmedTo      int64
	PendingErr     error
	ClaimErr       error
	AckErr         error
}

func (m *MockQueueAdminRepository) GroupInfo(ctx context.Context) ([]domain.ConsumerGroupInfo, error) {
	return m.Groups, nil
}

func (m *MockQueueAdminRepository) ConsumerInfo(ctx context.Context, group string) ([]domain.ConsumerInfo, error) {
	return m.Consumers, nil
}

func (m *MockQueueAdminRepository) PendingSummary(ctx context.Context, group string) (*domain.PendingSummary, error) {
	return m.Summary, nil
}

func (m *MockQueueAdminRepository) PendingMessages(ctx context.Context, group, consumer, startID string, count int64) ([]domain.PendingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PendingErr != nil {
		return nil, m.PendingErr
	}
	return m.Pending, nil
}

func (m *MockQueueAdminRepository) ClaimMessages(ctx context.Context, group, consumer string, minIdle time.Duration, streamIDs []string) ([]domain.IngestMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}
	var msgs []domain.IngestMessage
	for _, id := range streamIDs {
		if msg, ok := m.Claimable[id]; ok {
			m.ClaimedIDs = append(m.ClaimedIDs, id)
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

func (m *MockQueueAdminRepository) AcknowledgeMessages(ctx context.Context, group string, streamIDs ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return 0, m.AckErr
	}
	m.AckedStreamIDs = append(m.AckedStreamIDs, streamIDs...)
	return int64(len(streamIDs)), nil
}

func (m *MockQueueAdminRepository) TrimStream(ctx context.Context, maxLen int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TrimmedTo = maxLen
	return 0, nil
}
