package config

import "time"

// DefaultQueueConfig returns the built-in poll-loop defaults shared by
// every stage runner.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		PollInterval:       1 * time.Second,
		PollIntervalJitter: 250 * time.Millisecond,
		ShutdownTimeout:    30 * time.Second,
	}
}
