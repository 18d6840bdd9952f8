package receiver

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/socrates-project/socrates/pkg/queue"
)

const sortField = "@timestamp"

// Config controls one receiver's scan of its raw alert index.
type Config struct {
	Index        string
	BatchSize    int
	PollInterval time.Duration
	StartTime    string // RFC3339; empty means scan from the beginning
	OutputQueue  string
	OutputMaxlen int64
}

// Receiver tails a raw alert index in arrival order and forwards every
// document it sees onto the pipeline's input queue. It never re-delivers
// a document once its sort cursor has advanced past it, and it never
// advances the cursor past a document it failed to enqueue.
type Receiver struct {
	searcher IndexSearcher
	queue    *queue.Queue
	cfg      Config
}

// New builds a Receiver.
func New(searcher IndexSearcher, q *queue.Queue, cfg Config) *Receiver {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Receiver{searcher: searcher, queue: q, cfg: cfg}
}

func (r *Receiver) buildQuery() map[string]any {
	if r.cfg.StartTime == "" {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{
		"range": map[string]any{
			sortField: map[string]any{"gte": r.cfg.StartTime},
		},
	}
}

// Run scans until ctx is cancelled. Each poll either advances the cursor
// and forwards a batch of hits, or — finding nothing, or hitting a
// transient search error — sleeps before retrying without moving the
// cursor.
func (r *Receiver) Run(ctx context.Context) error {
	log := slog.With("stage", "receiver", "index", r.cfg.Index)
	log.Info("receiver started")

	query := r.buildQuery()
	sort := []map[string]string{
		{sortField: "asc"},
		{"_shard_doc": "asc"},
	}
	var searchAfter []any

	for {
		select {
		case <-ctx.Done():
			log.Info("receiver stopping")
			return ctx.Err()
		default:
		}

		resp, err := r.searcher.Search(ctx, SearchRequest{
			Index:       r.cfg.Index,
			Query:       query,
			Sort:        sort,
			Size:        r.cfg.BatchSize,
			SearchAfter: searchAfter,
		})
		if err != nil {
			log.Error("search failed", "error", err)
			if !sleepCtx(ctx, r.cfg.PollInterval) {
				return ctx.Err()
			}
			continue
		}

		if len(resp.Hits) == 0 {
			if !sleepCtx(ctx, r.cfg.PollInterval) {
				return ctx.Err()
			}
			continue
		}

		for _, hit := range resp.Hits {
			payload, err := json.Marshal(hit.Source)
			if err != nil {
				log.Error("dropping unmarshalable hit", "error", err)
				searchAfter = hit.Sort
				continue
			}
			if err := r.queue.Push(ctx, r.cfg.OutputQueue, string(payload), r.cfg.OutputMaxlen); err != nil {
				log.Error("enqueue failed, will retry from this hit", "error", err)
				break
			}
			searchAfter = hit.Sort
		}
	}
}

// sleepCtx waits for d or ctx cancellation, returning false in the latter
// case.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
