package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerProcessesEnqueuedMessages(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, "in", "hello", 0))

	var processed atomic.Value
	runner := NewRunner("test-stage", q, "in", StageConfig{
		PollTimeout:     100 * time.Millisecond,
		ShutdownTimeout: time.Second,
	}, func(ctx context.Context, payload string) error {
		processed.Store(payload)
		return nil
	})

	runner.Start(ctx)
	defer runner.Stop()

	assert.Eventually(t, func() bool {
		v, ok := processed.Load().(string)
		return ok && v == "hello"
	}, time.Second, 10*time.Millisecond)
}

func TestRunnerContinuesAfterHandlerError(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, "in", "bad", 0))
	require.NoError(t, q.Push(ctx, "in", "good", 0))

	var seenGood atomic.Bool
	runner := NewRunner("test-stage", q, "in", StageConfig{
		PollTimeout:     100 * time.Millisecond,
		ShutdownTimeout: time.Second,
	}, func(ctx context.Context, payload string) error {
		if payload == "bad" {
			return errors.New("boom")
		}
		seenGood.Store(true)
		return nil
	})

	runner.Start(ctx)
	defer runner.Stop()

	assert.Eventually(t, func() bool { return seenGood.Load() }, time.Second, 10*time.Millisecond)
}

func TestRunnerStopsPromptly(t *testing.T) {
	q := newTestQueue(t)
	runner := NewRunner("test-stage", q, "idle", StageConfig{
		PollTimeout:     200 * time.Millisecond,
		ShutdownTimeout: time.Second,
	}, func(ctx context.Context, payload string) error { return nil })

	runner.Start(context.Background())

	done := make(chan struct{})
	go func() {
		runner.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return promptly")
	}
}
