package receiver

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socrates-project/socrates/pkg/queue"
)

type fakeSearcher struct {
	mu      sync.Mutex
	pages   [][]Hit
	calls   int
	lastReq SearchRequest
}

func (f *fakeSearcher) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = req
	if f.calls >= len(f.pages) {
		return SearchResponse{}, nil
	}
	page := f.pages[f.calls]
	f.calls++
	return SearchResponse{Hits: page}, nil
}

func newTestQueue(t *testing.T) *queue.Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return queue.New(rdb, "socrates-test")
}

func TestReceiverForwardsHitsInOrder(t *testing.T) {
	q := newTestQueue(t)
	searcher := &fakeSearcher{
		pages: [][]Hit{
			{
				{Source: map[string]any{"sip": "1.1.1.1"}, Sort: []any{1}},
				{Source: map[string]any{"sip": "2.2.2.2"}, Sort: []any{2}},
			},
		},
	}

	r := New(searcher, q, Config{
		Index:        "raw-alerts",
		OutputQueue:  "raw",
		PollInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = r.Run(ctx)

	first, err := q.Pop(context.Background(), "raw", time.Second)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(first), &decoded))
	assert.Equal(t, "1.1.1.1", decoded["sip"])

	second, err := q.Pop(context.Background(), "raw", time.Second)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(second), &decoded))
	assert.Equal(t, "2.2.2.2", decoded["sip"])
}

func TestReceiverSleepsOnEmptyPage(t *testing.T) {
	q := newTestQueue(t)
	searcher := &fakeSearcher{pages: [][]Hit{}}

	r := New(searcher, q, Config{
		Index:        "raw-alerts",
		OutputQueue:  "raw",
		PollInterval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = r.Run(ctx)

	n, err := q.Len(context.Background(), "raw")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReceiverBuildsRangeQueryWhenStartTimeSet(t *testing.T) {
	q := newTestQueue(t)
	searcher := &fakeSearcher{pages: [][]Hit{}}
	r := New(searcher, q, Config{
		Index:        "raw-alerts",
		OutputQueue:  "raw",
		StartTime:    "2026-01-01T00:00:00Z",
		PollInterval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = r.Run(ctx)

	searcher.mu.Lock()
	defer searcher.mu.Unlock()
	rangeQuery, ok := searcher.lastReq.Query["range"]
	require.True(t, ok)
	assert.Contains(t, rangeQuery, "@timestamp")
}
