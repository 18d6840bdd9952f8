package aggregator

import (
	"time"

	"github.com/socrates-project/socrates/pkg/models"
)

// BucketTable holds every bucket currently accumulating alerts, keyed by
// bucket key. Not safe for concurrent use — the stage loop owns it
// single-threaded.
type BucketTable struct {
	windowSeconds int
	maxRefIDs     int
	buckets       map[string]*models.BucketState
}

// NewBucketTable builds an empty table.
func NewBucketTable(windowSeconds, maxRefIDs int) *BucketTable {
	return &BucketTable{
		windowSeconds: windowSeconds,
		maxRefIDs:     maxRefIDs,
		buckets:       make(map[string]*models.BucketState),
	}
}

// Add folds a normalized alert into its bucket, creating one if absent.
func (t *BucketTable) Add(n models.NormalizedAlert) {
	key := n.BucketKey()
	state, ok := t.buckets[key]
	if !ok {
		state = models.NewBucketState(n, t.maxRefIDs)
		t.buckets[key] = state
		return
	}
	state.Add(n)
}

// FlushExpired pops and snapshots every bucket that has been idle (no
// new alert past its window_end) for at least windowSeconds.
func (t *BucketTable) FlushExpired(now time.Time) []models.Snapshot {
	var expired []string
	for key, state := range t.buckets {
		if state.IsExpired(now, t.windowSeconds) {
			expired = append(expired, key)
		}
	}

	snapshots := make([]models.Snapshot, 0, len(expired))
	for _, key := range expired {
		state := t.buckets[key]
		delete(t.buckets, key)
		snapshots = append(snapshots, state.Snapshot())
	}
	return snapshots
}

// ForceFlush snapshots and clears every bucket regardless of idle time,
// used on graceful shutdown so no in-flight bucket is silently dropped.
func (t *BucketTable) ForceFlush() []models.Snapshot {
	snapshots := make([]models.Snapshot, 0, len(t.buckets))
	for _, state := range t.buckets {
		snapshots = append(snapshots, state.Snapshot())
	}
	t.buckets = make(map[string]*models.BucketState)
	return snapshots
}

// Len reports how many buckets are currently accumulating.
func (t *BucketTable) Len() int {
	return len(t.buckets)
}
