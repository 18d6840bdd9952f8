package queue

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Handler processes one dequeued payload. A returned error is logged and
// treated as a drop-and-continue per the pipeline's error-handling
// design — it never aborts the stage loop.
type Handler func(ctx context.Context, payload string) error

// StageConfig controls a Runner's poll cadence, grounded on the teacher's
// QueueConfig poll-interval/jitter/shutdown-timeout shape.
type StageConfig struct {
	PollTimeout        time.Duration // Pop's blocking timeout
	PollIntervalJitter time.Duration
	ShutdownTimeout    time.Duration
}

// Runner is the generic "pop one input → process → (push output inside
// handler)" loop shared by all four stages. Each stage's main wires up
// its own Handler and calls Run; there is no internal concurrency within
// a stage (spec §5: single worker per stage process).
type Runner struct {
	name    string
	queue   *Queue
	inputQ  string
	cfg     StageConfig
	handler Handler

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRunner builds a stage runner that pops from inputQueue and invokes
// handler for each payload.
func NewRunner(name string, q *Queue, inputQueue string, cfg StageConfig, handler Handler) *Runner {
	return &Runner{
		name:    name,
		queue:   q,
		inputQ:  inputQueue,
		cfg:     cfg,
		handler: handler,
		stopCh:  make(chan struct{}),
	}
}

// Start begins the poll loop in a goroutine.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.run(ctx)
}

// Stop signals the loop to stop and waits for it to exit, up to
// ShutdownTimeout.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(r.cfg.ShutdownTimeout):
		slog.Warn("stage shutdown timed out", "stage", r.name)
	}
}

func (r *Runner) run(ctx context.Context) {
	defer r.wg.Done()

	log := slog.With("stage", r.name)
	log.Info("stage started")

	for {
		select {
		case <-r.stopCh:
			log.Info("stage stopping")
			return
		case <-ctx.Done():
			log.Info("context cancelled, stage stopping")
			return
		default:
			r.pollAndProcess(ctx, log)
		}
	}
}

func (r *Runner) pollAndProcess(ctx context.Context, log *slog.Logger) {
	payload, err := r.queue.Pop(ctx, r.inputQ, r.cfg.PollTimeout)
	if err != nil {
		if errors.Is(err, ErrNoMessageAvailable) {
			return
		}
		log.Error("queue pop failed", "error", err)
		r.sleep(time.Second)
		return
	}

	if err := r.handler(ctx, payload); err != nil {
		log.Error("handler failed, dropping message", "error", err)
	}
}

// sleep waits for d, jittered, or until stop is signalled.
func (r *Runner) sleep(d time.Duration) {
	if r.cfg.PollIntervalJitter > 0 {
		d += time.Duration(rand.Int64N(int64(r.cfg.PollIntervalJitter)))
	}
	select {
	case <-r.stopCh:
	case <-time.After(d):
	}
}
