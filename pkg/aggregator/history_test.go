package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistoryStore(t *testing.T) *HistoryStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewHistoryStore(rdb, "socrates-test:hist", 14)
}

func TestHistoryStoreRecordThenAverage(t *testing.T) {
	h := newTestHistoryStore(t)
	ctx := context.Background()
	day1 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

	require.NoError(t, h.Record(ctx, "bucket-a", 10, day1))
	require.NoError(t, h.Record(ctx, "bucket-a", 20, day2))

	avg, err := h.Get14dDailyAvg(ctx, "bucket-a", day2)
	require.NoError(t, err)
	assert.Equal(t, 15.0, avg)
}

func TestHistoryStoreUnknownBucketReturnsZero(t *testing.T) {
	h := newTestHistoryStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, h.Record(ctx, "bucket-a", 5, now))

	avg, err := h.Get14dDailyAvg(ctx, "bucket-b", now)
	require.NoError(t, err)
	assert.Zero(t, avg)
}

func TestHistoryStoreNoDataReturnsZero(t *testing.T) {
	h := newTestHistoryStore(t)
	avg, err := h.Get14dDailyAvg(context.Background(), "bucket-a", time.Now())
	require.NoError(t, err)
	assert.Zero(t, avg)
}

func TestHistoryStorePrunesDaysOutsideWindow(t *testing.T) {
	h := newTestHistoryStore(t)
	ctx := context.Background()
	stale := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, h.Record(ctx, "bucket-a", 99, stale))

	farFuture := stale.AddDate(0, 0, 40)
	require.NoError(t, h.Record(ctx, "bucket-a", 1, farFuture))

	avg, err := h.Get14dDailyAvg(ctx, "bucket-a", farFuture)
	require.NoError(t, err)
	assert.Equal(t, 1.0, avg)
}
