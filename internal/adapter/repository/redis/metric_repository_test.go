package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/intel-pipeline/internal/domain"
)

func record(id string, dataType domain.DataType) domain.ProcessedRecord {
	return domain.ProcessedRecord{
		ID:              id,
		TenantID:        "tenant-a",
		InvestigationID: "inv-1",
		DataType:        dataType,
	}
}

func TestMetricRepository_Record(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	repo := NewMetricRepository(client, testLogger(), time.Hour)
	fixed := time.Date(2026, 3, 14, 9, 26, 30, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	v1, err := repo.Record(ctx, record("msg-1", domain.DataTypeEvent))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)

	v2, err := repo.Record(ctx, record("msg-2", domain.DataTypeEvent))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2, "velocity must increment per record in the same minute")
}

func TestMetricRepository_EvidenceDistinctCount(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	repo := NewMetricRepository(client, testLogger(), time.Hour)
	fixed := time.Date(2026, 3, 14, 9, 26, 30, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	// The same message id redelivered twice counts once.
	_, err := repo.Record(ctx, record("msg-1", domain.DataTypeDocument))
	require.NoError(t, err)
	_, err = repo.Record(ctx, record("msg-1", domain.DataTypeDocument))
	require.NoError(t, err)
	_, err = repo.Record(ctx, record("msg-2", domain.DataTypeDocument))
	require.NoError(t, err)

	m, err := repo.InvestigationMetrics(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.EvidenceCount)
}

func TestMetricRepository_EntityRate(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	repo := NewMetricRepository(client, testLogger(), time.Hour)
	fixed := time.Date(2026, 3, 14, 9, 26, 30, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	_, err := repo.Record(ctx, record("msg-1", domain.DataTypeEntity))
	require.NoError(t, err)
	_, err = repo.Record(ctx, record("msg-2", domain.DataTypeEntity))
	require.NoError(t, err)

	m, err := repo.InvestigationMetrics(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.Velocity)
	assert.Equal(t, int64(2), m.EntityRate)
	assert.Equal(t, int64(0), m.EvidenceCount, "entities are not evidence-bearing")
}

func TestMetricRepository_MinuteBuckets(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	repo := NewMetricRepository(client, testLogger(), time.Hour)
	fixed := time.Date(2026, 3, 14, 9, 26, 30, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	_, err := repo.Record(ctx, record("msg-1", domain.DataTypeEvent))
	require.NoError(t, err)

	// A record in the next minute lands in a fresh velocity bucket but the
	// evidence window still spans both buckets.
	repo.now = func() time.Time { return fixed.Add(time.Minute) }
	v, err := repo.Record(ctx, record("msg-2", domain.DataTypeEvent))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v, "new minute starts a new velocity bucket")

	m, err := repo.InvestigationMetrics(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Velocity)
	assert.Equal(t, int64(2), m.EvidenceCount, "evidence spans the retention window")
}

func TestMetricRepository_UnknownInvestigation(t *testing.T) {
	client := newTestClient(t)
	repo := NewMetricRepository(client, testLogger(), time.Hour)

	m, err := repo.InvestigationMetrics(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, m.Velocity)
	assert.Zero(t, m.EvidenceCount)
	assert.Zero(t, m.EntityRate)
}
