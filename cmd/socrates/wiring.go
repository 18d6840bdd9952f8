package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"github.com/socrates-project/socrates/pkg/aggregator"
	"github.com/socrates-project/socrates/pkg/audit"
	"github.com/socrates-project/socrates/pkg/bizmatcher"
	"github.com/socrates-project/socrates/pkg/config"
	"github.com/socrates-project/socrates/pkg/healthapi"
	"github.com/socrates-project/socrates/pkg/masking"
	"github.com/socrates-project/socrates/pkg/models"
	"github.com/socrates-project/socrates/pkg/queue"
	"github.com/socrates-project/socrates/pkg/reasoner"
)

// preflightOrFatal runs the connectivity checks once at startup and exits
// the process on the first failure — dependency outages are fatal before a
// stage starts polling, never mid-run.
func preflightOrFatal(ctx context.Context, cfg *config.Config, rdb *redis.Client, esClient *elasticsearch.Client) {
	checks := map[string]healthapi.Checker{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
	if esClient != nil {
		checks["elasticsearch"] = esPingCheck(esClient)
	}
	if err := healthapi.Preflight(ctx, checks); err != nil {
		log.Fatalf("preflight failed: %v", err)
	}
}

func esPingCheck(esClient *elasticsearch.Client) healthapi.Checker {
	return func(ctx context.Context) error {
		res, err := esClient.Ping(esClient.Ping.WithContext(ctx))
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("elasticsearch ping: %s", res.String())
		}
		return nil
	}
}

// startHealthAPI builds the readiness surface and starts it in the
// background. Callers must stopHealthAPI on shutdown. Returns nil if no
// HealthAPIConfig section is configured.
func startHealthAPI(cfg *config.Config, rdb *redis.Client, esClient *elasticsearch.Client, auditClient *audit.Client) *http.Server {
	if cfg.HealthAPI == nil {
		return nil
	}

	opts := []healthapi.Option{
		healthapi.WithCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
	}
	if esClient != nil {
		opts = append(opts, healthapi.WithCheck("elasticsearch", esPingCheck(esClient)))
	}
	if auditClient != nil {
		opts = append(opts, healthapi.WithAuditReader(auditClient, cfg.HealthAPI.RecentVerdictsMax))
	}

	srv := healthapi.New(opts...)
	httpSrv := &http.Server{Addr: cfg.HealthAPI.ListenAddr, Handler: srv.Router()}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("health API exited: %v", err)
		}
	}()
	return httpSrv
}

func stopHealthAPI(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// newModule1Pipeline wires the aggregator + risk-scorer stage.
func newModule1Pipeline(cfg *config.Config, rdb *redis.Client, q *queue.Queue) *aggregator.Pipeline {
	assets, err := aggregator.LoadAssetCatalog(cfg.Module1.AssetTablePath)
	if err != nil {
		log.Fatalf("failed to load module1 asset catalog: %v", err)
	}
	return aggregator.NewPipeline(cfg.Module1, rdb, q, assets, models.SystemClock{})
}

// runTickLoop drives a Pipeline's Tick on a fixed interval until ctx is
// canceled, then force-flushes whatever is left in the aggregation window
// before closing the returned done channel.
func runTickLoop(ctx context.Context, name string, pipeline *aggregator.Pipeline, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				pipeline.Drain(drainCtx)
				cancel()
				return
			case <-ticker.C:
				if err := pipeline.Tick(ctx); err != nil && ctx.Err() == nil {
					log.Printf("%s tick error: %v", name, err)
				}
			}
		}
	}()
	return done
}

// newModule2Runner wires the business-logic matcher stage.
func newModule2Runner(cfg *config.Config, q *queue.Queue) *queue.Runner {
	model, pipeline, threshold, minInstanceCount, err := bizmatcher.LoadModelArtifact(cfg.Module2.ModelPath)
	if err != nil {
		log.Fatalf("failed to load module2 model artifact: %v", err)
	}
	matcher := bizmatcher.NewMatcher(model, pipeline, threshold, minInstanceCount)

	esClient, err := newElasticsearchClient(cfg)
	if err != nil {
		log.Fatalf("failed to build elasticsearch client for module2: %v", err)
	}
	fetcher := bizmatcher.NewElasticRawAlertFetcher(esClient, cfg.Module2.ReferenceIndex, cfg.Module2.BatchSize)

	p := bizmatcher.NewPipeline(q, matcher, fetcher, cfg.Module2.OutputQueue, cfg.Module2.SuppressedQueue, cfg.Module2.OutputMaxlen, cfg.Module2.SuppressedMaxlen)

	// Module2Config has no pop-timeout field of its own; the blocking pop
	// falls back to the shared queue poll interval.
	popTimeout := cfg.Queue.PollInterval
	if popTimeout <= 0 {
		popTimeout = 1 * time.Second
	}
	return queue.NewRunner("module2", q, cfg.Module2.InputQueue, stageConfigFrom(cfg, popTimeout), p.Handle)
}

// newModule3Runner wires the investigation reasoner stage. When auditClient
// is non-nil, terminal verdicts are persisted best-effort alongside routing.
func newModule3Runner(cfg *config.Config, q *queue.Queue, auditClient *audit.Client) *queue.Runner {
	m3 := cfg.Module3

	esClient, err := newElasticsearchClient(cfg)
	if err != nil {
		log.Fatalf("failed to build elasticsearch client for module3: %v", err)
	}

	indices := reasoner.IndexSet{
		WAF:          m3.WAFIndex,
		TianyanAlarm: m3.TianyanAlarmIndex,
		Zhongzi:      m3.ZhongziIndex,
		Nginx:        m3.NginxIndex,
		Huorong:      m3.HuorongIndex,
	}
	internal := reasoner.NewInternalTools(esClient, indices, m3.DefaultSearchSize, m3.CMDBBaseURL, m3.CMDBAPIKey, m3.CMDBTimeout)
	external := reasoner.NewExternalTools(m3.VirusTotalURL, m3.VirusTotalAPIKey, m3.CVESearchURL, m3.CVESearchAPIKey, m3.ExternalTimeout)
	orchestrator := reasoner.NewOrchestrator(internal, external, m3.MaxRowsPerTool)

	llm := reasoner.NewHTTPClient(m3.LLMEndpoint, m3.LLMTimeout)
	prompts := reasoner.LoadPrompts(m3.PromptsDir)
	masker := masking.NewService()

	r := reasoner.New(llm, prompts, orchestrator, masker, models.SystemClock{}, reasoner.Config{
		MaxToolCalls:                    m3.MaxToolCalls,
		ManualReviewConfidenceThreshold: m3.ManualReviewConfidenceThreshold,
	})

	var pipelineOpts []reasoner.PipelineOption
	if auditClient != nil {
		pipelineOpts = append(pipelineOpts, reasoner.WithAuditRecorder(auditRecorderAdapter{auditClient}))
	}
	p := reasoner.NewPipeline(q, r, m3.OutputQueue, m3.ManualReviewQueue, m3.OutputMaxlen, m3.ManualReviewMaxlen, pipelineOpts...)

	popTimeout := time.Duration(m3.PopTimeoutSeconds) * time.Second
	return queue.NewRunner("module3", q, m3.InputQueue, stageConfigFrom(cfg, popTimeout), p.Handle)
}

// auditRecorderAdapter satisfies reasoner.AuditRecorder over *audit.Client
// without pkg/reasoner needing to import pkg/audit directly.
type auditRecorderAdapter struct {
	client *audit.Client
}

func (a auditRecorderAdapter) RecordVerdict(ctx context.Context, v reasoner.AuditVerdictRecord) error {
	return a.client.RecordVerdict(ctx, audit.VerdictRecord{
		SessionID:   v.SessionID,
		BucketKey:   v.BucketKey,
		Severity:    v.Severity,
		RiskScore:   v.RiskScore,
		Verdict:     v.Verdict,
		Confidence:  v.Confidence,
		RoutedQueue: v.RoutedQueue,
		Summary:     v.Summary,
		RawVerdict:  v.RawVerdict,
	})
}

func stageConfigFrom(cfg *config.Config, popTimeout time.Duration) queue.StageConfig {
	return queue.StageConfig{
		PollTimeout:        popTimeout,
		PollIntervalJitter: cfg.Queue.PollIntervalJitter,
		ShutdownTimeout:    cfg.Queue.ShutdownTimeout,
	}
}

func newElasticsearchClient(cfg *config.Config) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
	})
}
