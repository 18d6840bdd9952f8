package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/socrates-project/socrates/pkg/config"
	"github.com/socrates-project/socrates/pkg/models"
	"github.com/socrates-project/socrates/pkg/queue"
)

// Pipeline wires the normalizer, bucket table, risk scorer, asset
// catalog, and history store into the Module 1 stage loop: pop one raw
// alert (if any), fold it into its bucket, then flush every idle bucket
// to the high-priority or suppressed queue.
type Pipeline struct {
	cfg     *config.Module1Config
	queue   *queue.Queue
	norm    *Normalizer
	buckets *BucketTable
	scorer  *RiskScorer
	assets  *AssetCatalog
	history *HistoryStore
	clock   models.Clock
}

// NewPipeline assembles a Pipeline from config and its Redis-backed
// collaborators.
func NewPipeline(cfg *config.Module1Config, rdb *redis.Client, q *queue.Queue, assets *AssetCatalog, clock models.Clock) *Pipeline {
	if clock == nil {
		clock = models.SystemClock{}
	}
	return &Pipeline{
		cfg:     cfg,
		queue:   q,
		norm:    NewNormalizer(clock),
		buckets: NewBucketTable(cfg.WindowSeconds, cfg.MaxRawRefIDs),
		scorer: NewRiskScorer(
			ScoringWeights{Freq: cfg.WeightFreq, Rule: cfg.WeightRule, Ctx: cfg.WeightCtx, Rare: cfg.WeightRare},
			ScoringThresholds{Medium: cfg.ThresholdMedium, High: cfg.ThresholdHigh, Critical: cfg.ThresholdCritical},
		),
		assets:  assets,
		history: NewHistoryStore(rdb, cfg.HistoryKeyPrefix, cfg.HistoryDays),
		clock:   clock,
	}
}

// Tick performs one iteration: pop at most one raw alert (non-blocking
// beyond the configured pop timeout), add it to its bucket if present,
// then flush every bucket past its idle window. Mirrors the reference
// pipeline's "pop, then always attempt a flush" loop shape — flush
// cadence rides on however often Tick happens to be called, not a
// separate timer.
func (p *Pipeline) Tick(ctx context.Context) error {
	payload, err := p.queue.Pop(ctx, p.cfg.InputQueue, time.Duration(p.cfg.PopTimeoutSeconds)*time.Second)
	if err != nil && err != queue.ErrNoMessageAvailable {
		return fmt.Errorf("pop raw alert: %w", err)
	}
	if err == nil {
		var raw models.RawAlert
		if unmarshalErr := json.Unmarshal([]byte(payload), &raw); unmarshalErr != nil {
			slog.Error("dropping undecodable raw alert", "error", unmarshalErr)
		} else {
			p.buckets.Add(p.norm.Normalize(raw))
		}
	}

	return p.flushExpired(ctx)
}

func (p *Pipeline) flushExpired(ctx context.Context) error {
	now := p.clock.Now()
	for _, snap := range p.buckets.FlushExpired(now) {
		if err := p.routeSnapshot(ctx, snap); err != nil {
			slog.Error("failed to route flushed bucket", "bucket_key", snap.BucketKey, "error", err)
		}
	}
	return nil
}

// Drain force-flushes every in-progress bucket, used on graceful
// shutdown so accumulated-but-not-yet-idle buckets aren't lost.
func (p *Pipeline) Drain(ctx context.Context) {
	for _, snap := range p.buckets.ForceFlush() {
		if err := p.routeSnapshot(ctx, snap); err != nil {
			slog.Error("failed to route drained bucket", "bucket_key", snap.BucketKey, "error", err)
		}
	}
}

func (p *Pipeline) routeSnapshot(ctx context.Context, snap models.Snapshot) error {
	now := p.clock.Now()
	histAvg, err := p.history.Get14dDailyAvg(ctx, snap.BucketKey, now)
	if err != nil {
		slog.Error("history lookup failed, treating as no history", "error", err)
	}
	asset := p.assets.Resolve(snap.DIP)
	score := p.scorer.Score(snap, histAvg, asset)

	if err := p.history.Record(ctx, snap.BucketKey, snap.Count, snap.WindowEnd); err != nil {
		slog.Error("history record failed", "error", err)
	}

	aggregated := models.AggregatedAlert{
		SIP:             snap.SIP,
		DIP:             snap.DIP,
		Proto:           snap.Proto,
		RuleName:        snap.RuleName,
		LogType:         snap.LogType,
		URITemplate:     snap.URITemplate,
		ReferenceUUIDs:  snap.RawRefIDs,
		AggregatedCount: snap.Count,
		FirstSeen:       snap.WindowStart.Unix(),
		LastSeen:        snap.WindowEnd.Unix(),
		RiskScores:      score,
	}

	payload, err := json.Marshal(aggregated)
	if err != nil {
		return fmt.Errorf("marshal aggregated alert: %w", err)
	}

	if p.scorer.IsHighPriority(score, p.cfg.RoutingThreshold) {
		return p.queue.Push(ctx, p.cfg.OutputQueue, string(payload), p.cfg.OutputMaxlen)
	}
	return p.queue.Push(ctx, p.cfg.SuppressedQueue, string(payload), p.cfg.SuppressedMaxlen)
}
