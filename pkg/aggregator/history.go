package aggregator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// HistoryStore maintains a rolling daily-event-count history per bucket
// key, used to compute the rarity subscore and pruned automatically as
// days age out of the retention window.
type HistoryStore struct {
	rdb         *redis.Client
	keyPrefix   string
	historyDays int
}

// NewHistoryStore builds a HistoryStore. historyDays is the rolling
// window length (the original 14-day default).
func NewHistoryStore(rdb *redis.Client, keyPrefix string, historyDays int) *HistoryStore {
	if historyDays <= 0 {
		historyDays = 14
	}
	return &HistoryStore{rdb: rdb, keyPrefix: keyPrefix, historyDays: historyDays}
}

func (h *HistoryStore) daysIndexKey() string {
	return h.keyPrefix + ":days"
}

func (h *HistoryStore) dailyHashKey(dayKey string) string {
	return h.keyPrefix + ":" + dayKey
}

// Get14dDailyAvg returns the average daily event count for bucketKey over
// the trailing historyDays window ending on now's date (inclusive).
func (h *HistoryStore) Get14dDailyAvg(ctx context.Context, bucketKey string, now time.Time) (float64, error) {
	endDay := truncateToDay(now)
	startDay := endDay.AddDate(0, 0, -(h.historyDays - 1))

	dayKeys, err := h.rdb.ZRangeByScore(ctx, h.daysIndexKey(), &redis.ZRangeBy{
		Min: strconv.FormatInt(startDay.Unix(), 10),
		Max: strconv.FormatInt(endDay.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("history: range days: %w", err)
	}
	if len(dayKeys) == 0 {
		return 0, nil
	}

	pipe := h.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(dayKeys))
	for i, dayKey := range dayKeys {
		cmds[i] = pipe.HGet(ctx, h.dailyHashKey(dayKey), bucketKey)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, fmt.Errorf("history: fetch counts: %w", err)
	}

	var total int64
	for _, cmd := range cmds {
		v, err := cmd.Result()
		if err != nil {
			continue // redis.Nil: bucket had no events that day
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		total += n
	}
	return float64(total) / float64(len(dayKeys)), nil
}

// Record increments bucketKey's count for eventTime's calendar day and
// refreshes the retention TTL, then prunes any day buckets that have
// aged out of the window.
func (h *HistoryStore) Record(ctx context.Context, bucketKey string, count int, eventTime time.Time) error {
	day := truncateToDay(eventTime)
	dayKey := day.Format("2006-01-02")
	hashKey := h.dailyHashKey(dayKey)
	ttl := time.Duration(h.historyDays+2) * 24 * time.Hour

	pipe := h.rdb.Pipeline()
	pipe.HIncrBy(ctx, hashKey, bucketKey, int64(count))
	pipe.ZAdd(ctx, h.daysIndexKey(), redis.Z{Score: float64(day.Unix()), Member: dayKey})
	pipe.Expire(ctx, hashKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("history: record: %w", err)
	}

	return h.pruneOldDays(ctx, eventTime)
}

func (h *HistoryStore) pruneOldDays(ctx context.Context, now time.Time) error {
	cutoff := truncateToDay(now).AddDate(0, 0, -h.historyDays)
	staleDays, err := h.rdb.ZRangeByScore(ctx, h.daysIndexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.Unix(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("history: find stale days: %w", err)
	}
	if len(staleDays) == 0 {
		return nil
	}

	pipe := h.rdb.Pipeline()
	for _, dayKey := range staleDays {
		pipe.Del(ctx, h.dailyHashKey(dayKey))
	}
	pipe.ZRemRangeByScore(ctx, h.daysIndexKey(), "-inf", strconv.FormatInt(cutoff.Unix(), 10))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("history: prune: %w", err)
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
