// socrates runs the SOC alert-triage pipeline: a receiver that tails a raw
// alert index, three stage binaries (aggregator/scorer, business matcher,
// investigation reasoner) connected by Redis-backed FIFO queues, and a
// health/readiness HTTP surface alongside each.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/socrates-project/socrates/pkg/audit"
	"github.com/socrates-project/socrates/pkg/config"
	"github.com/socrates-project/socrates/pkg/queue"
	"github.com/socrates-project/socrates/pkg/receiver"
	"github.com/socrates-project/socrates/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	command := os.Args[1]

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := fs.String("config", getEnv("SOCRATES_CONFIG", "./config.json"), "path to the unified JSON config")
	envPath := fs.String("env", getEnv("SOCRATES_ENV_FILE", ".env"), "path to a .env file to load before reading config")
	_ = fs.Parse(os.Args[2:])

	if err := godotenv.Load(*envPath); err != nil {
		log.Printf("no .env file loaded from %s: %v", *envPath, err)
	}

	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config from %s: %v", *configPath, err)
	}

	log.Printf("socrates %s starting, command=%s config=%s", version.Full(), command, *configPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch command {
	case "run-all":
		runAll(ctx, cfg)
	case "run-receiver":
		runReceiverOnly(ctx, cfg)
	case "run-module1":
		runModule1Only(ctx, cfg)
	case "run-module2":
		runModule2Only(ctx, cfg)
	case "run-module3":
		runModule3Only(ctx, cfg)
	case "train-module2":
		trainModule2()
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: socrates <run-all|run-receiver|run-module1|run-module2|run-module3|train-module2> [--config path] [--env path]")
}

// trainModule2 documents that the supervised-model training job is an
// external collaborator this repository only consumes the artifact of —
// out of scope per the pipeline's stated boundaries.
func trainModule2() {
	fmt.Fprintln(os.Stderr, "train-module2: the business-matcher model is trained by an external offline job; "+
		"this binary only loads and scores its JSON artifact. Supply one via module2.model_path.")
	os.Exit(1)
}

func runAll(ctx context.Context, cfg *config.Config) {
	rdb := newRedisClient(cfg)
	defer rdb.Close()
	q := queue.New(rdb, cfg.Redis.Prefix)

	esClient, err := receiver.NewElasticsearchClient(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Username, cfg.Elasticsearch.Password)
	if err != nil {
		log.Fatalf("failed to build elasticsearch client: %v", err)
	}

	preflightOrFatal(ctx, cfg, rdb, esClient)

	auditClient := maybeOpenAudit(ctx, cfg)
	if auditClient != nil {
		defer auditClient.Close()
	}

	health := startHealthAPI(cfg, rdb, esClient, auditClient)
	defer stopHealthAPI(health)

	stageCtx, stopStages := context.WithCancel(ctx)
	defer stopStages()

	recv := receiver.New(receiver.NewElasticsearchSearcher(esClient), q, receiver.Config{
		Index: cfg.Receiver.RawIndex, OutputQueue: cfg.Receiver.AggregatedKey,
	})
	go func() {
		if err := recv.Run(stageCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("receiver exited", "error", err)
		}
	}()

	m1 := newModule1Pipeline(cfg, rdb, q)
	m1Done := runTickLoop(stageCtx, "module1", m1, time.Duration(cfg.Module1.FlushIntervalS)*time.Second)

	m2Runner := newModule2Runner(cfg, q)
	m2Runner.Start(stageCtx)

	m3Runner := newModule3Runner(cfg, q, auditClient)
	m3Runner.Start(stageCtx)

	<-ctx.Done()
	log.Println("shutdown signal received, stopping stages")
	stopStages()
	<-m1Done
	m2Runner.Stop()
	m3Runner.Stop()
}

func runReceiverOnly(ctx context.Context, cfg *config.Config) {
	rdb := newRedisClient(cfg)
	defer rdb.Close()
	q := queue.New(rdb, cfg.Redis.Prefix)

	esClient, err := receiver.NewElasticsearchClient(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Username, cfg.Elasticsearch.Password)
	if err != nil {
		log.Fatalf("failed to build elasticsearch client: %v", err)
	}
	preflightOrFatal(ctx, cfg, rdb, esClient)

	recv := receiver.New(receiver.NewElasticsearchSearcher(esClient), q, receiver.Config{
		Index: cfg.Receiver.RawIndex, OutputQueue: cfg.Receiver.AggregatedKey,
	})
	if err := recv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("receiver exited: %v", err)
	}
}

func runModule1Only(ctx context.Context, cfg *config.Config) {
	rdb := newRedisClient(cfg)
	defer rdb.Close()
	q := queue.New(rdb, cfg.Redis.Prefix)
	preflightOrFatal(ctx, cfg, rdb, nil)

	p := newModule1Pipeline(cfg, rdb, q)
	done := runTickLoop(ctx, "module1", p, time.Duration(cfg.Module1.FlushIntervalS)*time.Second)
	<-ctx.Done()
	<-done
}

func runModule2Only(ctx context.Context, cfg *config.Config) {
	rdb := newRedisClient(cfg)
	defer rdb.Close()
	q := queue.New(rdb, cfg.Redis.Prefix)
	preflightOrFatal(ctx, cfg, rdb, nil)

	runner := newModule2Runner(cfg, q)
	runner.Start(ctx)
	<-ctx.Done()
	runner.Stop()
}

func runModule3Only(ctx context.Context, cfg *config.Config) {
	rdb := newRedisClient(cfg)
	defer rdb.Close()
	q := queue.New(rdb, cfg.Redis.Prefix)
	preflightOrFatal(ctx, cfg, rdb, nil)

	auditClient := maybeOpenAudit(ctx, cfg)
	if auditClient != nil {
		defer auditClient.Close()
	}

	runner := newModule3Runner(cfg, q, auditClient)
	runner.Start(ctx)
	<-ctx.Done()
	runner.Stop()
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
}

func maybeOpenAudit(ctx context.Context, cfg *config.Config) *audit.Client {
	if cfg.Database == nil {
		return nil
	}
	client, err := audit.NewClient(ctx, audit.Config{
		Host: cfg.Database.Host, Port: cfg.Database.Port, User: cfg.Database.User,
		Password: cfg.Database.Password, Database: cfg.Database.Database, SSLMode: cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns, MaxIdleConns: cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("audit log unavailable, verdicts will not be persisted", "error", err)
		return nil
	}
	return client
}
