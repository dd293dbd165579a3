package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanharb/moneytrail/internal/common"
	"github.com/jordanharb/moneytrail/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "tracker.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()

	tr := New(newTestStore(t))
	tr.now = func() time.Time {
		return time.Date(2021, 7, 1, 12, 0, 0, 0, time.UTC)
	}
	return tr
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := &model.AnalysisRecord{
		PersonID:    7,
		SessionID:   50,
		State:       model.StateGenerated,
		BillIDs:     []int64{100, 101},
		DonationIDs: []int64{1, 2, 3},
		RunCount:    1,
		CreatedAt:   time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC),
		LastRunAt:   time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveRecord(ctx, record))

	got, err := store.GetRecord(ctx, 7, 50)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.StateGenerated, got.State)
	assert.Equal(t, []int64{100, 101}, got.BillIDs)
	assert.Equal(t, []int64{1, 2, 3}, got.DonationIDs)
	assert.Equal(t, 1, got.RunCount)
	assert.True(t, got.CreatedAt.Equal(record.CreatedAt))
}

func TestStoreMissingRecord(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetRecord(context.Background(), 999, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)

	record := &model.AnalysisRecord{
		PersonID: 7, SessionID: 50, State: model.StateGenerated,
		BillIDs: []int64{100}, DonationIDs: []int64{1},
		RunCount: 1, CreatedAt: now, LastRunAt: now,
	}
	require.NoError(t, store.SaveRecord(ctx, record))

	record.State = model.StateValidated
	record.BillIDs = []int64{100, 200}
	record.RunCount = 2
	require.NoError(t, store.SaveRecord(ctx, record))

	got, err := store.GetRecord(ctx, 7, 50)
	require.NoError(t, err)
	assert.Equal(t, model.StateValidated, got.State)
	assert.Equal(t, []int64{100, 200}, got.BillIDs)
	assert.Equal(t, 2, got.RunCount)
}

func TestMigrateIdempotent(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Migrate(context.Background()))
}

func TestRemainingFirstRun(t *testing.T) {
	tr := newTestTracker(t)

	stats, fresh, err := tr.Remaining(context.Background(), 7, 50, []int64{100, 101, 102})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 0, stats.Analyzed)
	assert.Equal(t, 3, stats.Remaining)
	assert.Equal(t, []int64{100, 101, 102}, fresh)
}

func TestRemainingAfterGeneration(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.MarkGenerated(ctx, 7, 50, []int64{100, 101}, []int64{1, 2}))

	stats, fresh, err := tr.Remaining(ctx, 7, 50, []int64{100, 101, 102, 103})
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Analyzed)
	assert.Equal(t, 2, stats.Remaining)
	assert.Equal(t, []int64{102, 103}, fresh)
	assert.Equal(t, 1, stats.RunCount)
}

func TestMarkGeneratedMergesIDs(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.MarkGenerated(ctx, 7, 50, []int64{101, 100}, []int64{2}))
	require.NoError(t, tr.MarkGenerated(ctx, 7, 50, []int64{100, 102}, []int64{1}))

	record, err := tr.store.GetRecord(ctx, 7, 50)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 101, 102}, record.BillIDs)
	assert.Equal(t, []int64{1, 2}, record.DonationIDs)
	assert.Equal(t, 2, record.RunCount)
	assert.Equal(t, model.StateGenerated, record.State)
}

func TestMarkValidatedPromotes(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.MarkGenerated(ctx, 7, 50, []int64{100}, nil))
	require.NoError(t, tr.MarkValidated(ctx, 7, 50))

	_, state, err := tr.Stats(ctx, 7, 50)
	require.NoError(t, err)
	assert.Equal(t, model.StateValidated, state)
}

func TestMarkValidatedWithoutGeneration(t *testing.T) {
	tr := newTestTracker(t)

	err := tr.MarkValidated(context.Background(), 7, 50)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNewBillsDemoteValidatedRecord(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.MarkGenerated(ctx, 7, 50, []int64{100}, nil))
	require.NoError(t, tr.MarkValidated(ctx, 7, 50))

	// A later session of activity introduces a new bill; the pair needs
	// validation again.
	require.NoError(t, tr.MarkGenerated(ctx, 7, 50, []int64{200}, nil))

	_, state, err := tr.Stats(ctx, 7, 50)
	require.NoError(t, err)
	assert.Equal(t, model.StateGenerated, state)
}

func TestRerunWithoutNewBillsKeepsValidatedState(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.MarkGenerated(ctx, 7, 50, []int64{100}, nil))
	require.NoError(t, tr.MarkValidated(ctx, 7, 50))
	require.NoError(t, tr.MarkGenerated(ctx, 7, 50, []int64{100}, nil))

	_, state, err := tr.Stats(ctx, 7, 50)
	require.NoError(t, err)
	assert.Equal(t, model.StateValidated, state)
}

func TestStatsEmpty(t *testing.T) {
	tr := newTestTracker(t)

	stats, state, err := tr.Stats(context.Background(), 7, 50)
	require.NoError(t, err)
	assert.Zero(t, stats.RunCount)
	assert.Empty(t, state)
}

func TestRecordsAreScopedPerPair(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.MarkGenerated(ctx, 7, 50, []int64{100}, nil))
	require.NoError(t, tr.MarkGenerated(ctx, 7, 51, []int64{200}, nil))
	require.NoError(t, tr.MarkGenerated(ctx, 8, 50, []int64{300}, nil))

	record, err := tr.store.GetRecord(ctx, 7, 50)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, record.BillIDs)

	record, err = tr.store.GetRecord(ctx, 8, 50)
	require.NoError(t, err)
	assert.Equal(t, []int64{300}, record.BillIDs)
}
