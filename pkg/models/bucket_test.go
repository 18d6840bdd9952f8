package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mkNormalized(ts time.Time) NormalizedAlert {
	return NormalizedAlert{
		RawID: "id-" + ts.String(), Timestamp: ts,
		SIP: "1.1.1.1", DIP: "10.0.0.5", Proto: "tcp",
		RuleName: "SQLi", LogType: "waf", URITemplate: "/api/item/<NUM>/detail",
		Severity: 0.8, Confidence: 0.9,
	}
}

func TestBucketKeyDependsOnlyOnKeyFields(t *testing.T) {
	base := time.Now().UTC()
	a := mkNormalized(base)
	b := mkNormalized(base.Add(10 * time.Second))
	b.Severity = 0.1
	b.Confidence = 0.1
	b.RawID = "different"

	assert.Equal(t, a.BucketKey(), b.BucketKey())
}

func TestBucketStateAddAccumulates(t *testing.T) {
	base := time.Now().UTC()
	n1 := mkNormalized(base)
	n2 := mkNormalized(base.Add(10 * time.Second))

	bucket := NewBucketState(n1, 200)
	bucket.Add(n2)

	assert.Equal(t, 2, bucket.Count)
	assert.True(t, bucket.WindowStart.Equal(base))
	assert.True(t, bucket.WindowEnd.Equal(base.Add(10 * time.Second)))
	assert.Len(t, bucket.RawRefIDs, 2)
}

func TestBucketStateRawRefIDsCapped(t *testing.T) {
	base := time.Now().UTC()
	bucket := NewBucketState(mkNormalized(base), 1)
	bucket.Add(mkNormalized(base.Add(time.Second)))
	bucket.Add(mkNormalized(base.Add(2 * time.Second)))

	assert.LessOrEqual(t, len(bucket.RawRefIDs), 1)
}

func TestBucketStateIsExpired(t *testing.T) {
	base := time.Now().UTC()
	bucket := NewBucketState(mkNormalized(base), 200)

	assert.False(t, bucket.IsExpired(base.Add(30*time.Second), 60))
	assert.True(t, bucket.IsExpired(base.Add(66*time.Second), 60))
}

func TestSnapshotRatiosInRange(t *testing.T) {
	base := time.Now().UTC()
	bucket := NewBucketState(mkNormalized(base), 200)
	snap := bucket.Snapshot()

	assert.GreaterOrEqual(t, snap.AvgSeverity, 0.0)
	assert.LessOrEqual(t, snap.AvgSeverity, 1.0)
	assert.GreaterOrEqual(t, snap.DurationSeconds(), 1.0)
}
