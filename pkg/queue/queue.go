// Package queue implements the Redis-backed FIFO primitive shared by all
// four pipeline stages, plus the generic poll loop each stage's binary
// runs on top of it.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoMessageAvailable is returned by Pop when the timeout elapses with
// nothing to dequeue — not an error condition, just "nothing happened".
var ErrNoMessageAvailable = errors.New("queue: no message available")

// Queue is an ordered FIFO of UTF-8 JSON strings persisted in Redis.
// FIFO per key; at-least-once delivery (a crashing consumer between Pop
// and processing loses the message — acceptable per the pipeline's
// non-goals).
type Queue struct {
	rdb    *redis.Client
	prefix string
}

// New wraps an existing Redis client. prefix namespaces every queue key,
// e.g. "socrates".
func New(rdb *redis.Client, prefix string) *Queue {
	return &Queue{rdb: rdb, prefix: prefix}
}

func (q *Queue) key(name string) string {
	return fmt.Sprintf("%s:queue:%s", q.prefix, name)
}

// Push appends payload to the tail of the named queue. If maxlen > 0,
// the queue is atomically trimmed to its newest maxlen entries in the
// same pipeline as the append — no observer ever sees more than maxlen
// entries, implementing the pipeline's lossy-backpressure policy.
func (q *Queue) Push(ctx context.Context, name, payload string, maxlen int64) error {
	key := q.key(name)

	if maxlen <= 0 {
		return q.rdb.RPush(ctx, key, payload).Err()
	}

	_, err := q.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.LTrim(ctx, key, -maxlen, -1)
		return nil
	})
	return err
}

// Pop blocks for up to timeout waiting for the oldest entry in the named
// queue. Returns ErrNoMessageAvailable on timeout.
func (q *Queue) Pop(ctx context.Context, name string, timeout time.Duration) (string, error) {
	key := q.key(name)

	res, err := q.rdb.BLPop(ctx, timeout, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoMessageAvailable
	}
	if err != nil {
		return "", fmt.Errorf("blpop %s: %w", key, err)
	}
	if len(res) != 2 {
		return "", fmt.Errorf("blpop %s: unexpected reply shape", key)
	}
	return res[1], nil
}

// Len reports the current length of the named queue, used by health
// checks to report backlog depth.
func (q *Queue) Len(ctx context.Context, name string) (int64, error) {
	return q.rdb.LLen(ctx, q.key(name)).Result()
}
