package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfigJSON() string {
	return `{
		"redis": {"addr": "localhost:6379", "prefix": "socrates"},
		"elasticsearch": {"addresses": ["http://localhost:9200"]},
		"receiver": {"listen_addr": ":8080", "raw_index": "socrates-raw-alerts", "aggregated_key": "socrates:queue:module1"},
		"module1": {
			"input_queue": "socrates:queue:module1", "output_queue": "socrates:queue:module2",
			"suppressed_queue": "socrates:queue:suppressed", "pop_timeout_seconds": 1,
			"window_seconds": 300, "flush_interval_s": 30, "idle_seconds": 60,
			"max_raw_ref_ids": 200, "history_days": 14, "history_key_prefix": "socrates:aggr:hist",
			"online_route_min_severity": "MEDIUM"
		},
		"module2": {
			"input_queue": "socrates:queue:module2", "output_queue": "socrates:queue:module3",
			"model_path": "/etc/socrates/model2.json", "batch_size": 50, "reference_index": "socrates-raw-alerts"
		},
		"module3": {
			"input_queue": "socrates:queue:module3", "output_queue": "socrates:queue:final",
			"manual_review_queue": "socrates:queue:manual_review",
			"llm_endpoint": "http://localhost:9100/generate",
			"log_index_prefix": "socrates-logs"
		}
	}`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	path := writeConfig(t, validConfigJSON())

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, "socrates", cfg.Redis.Prefix)
	assert.Equal(t, 0.35, cfg.Module1.WeightFreq)
	assert.Equal(t, float64(45), cfg.Module1.ThresholdMedium)
	assert.Equal(t, float64(70), cfg.Module1.ThresholdHigh)
	assert.Equal(t, float64(85), cfg.Module1.ThresholdCritical)
	assert.Equal(t, 0.5, cfg.Module2.FPThreshold)
	assert.Equal(t, 6, cfg.Module3.MaxToolCalls)
}

func TestLoadMissingFileReturnsLoadError(t *testing.T) {
	_, err := Load("/nonexistent/config.json")
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.ErrorIs(t, loadErr, ErrConfigNotFound)
}

func TestLoadInvalidJSONReturnsLoadError(t *testing.T) {
	path := writeConfig(t, "{not valid json")

	_, err := Load(path)
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.ErrorIs(t, loadErr, ErrInvalidJSON)
}

func TestLoadMissingRequiredSectionFails(t *testing.T) {
	path := writeConfig(t, `{"redis": {"addr": "localhost:6379", "prefix": "socrates"}}`)

	_, err := Load(path)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestLoadBadThresholdOrderingFails(t *testing.T) {
	bad := `{
		"redis": {"addr": "localhost:6379", "prefix": "socrates"},
		"elasticsearch": {"addresses": ["http://localhost:9200"]},
		"receiver": {"listen_addr": ":8080", "raw_index": "raw", "aggregated_key": "q1"},
		"module1": {
			"input_queue": "q1", "output_queue": "q2", "suppressed_queue": "q2s", "pop_timeout_seconds": 1,
			"window_seconds": 300, "flush_interval_s": 30, "idle_seconds": 60,
			"max_raw_ref_ids": 200, "history_days": 14, "history_key_prefix": "socrates:aggr:hist",
			"threshold_medium": 80, "threshold_high": 70, "threshold_critical": 85,
			"online_route_min_severity": "MEDIUM"
		},
		"module2": {"input_queue": "q2", "output_queue": "q3", "model_path": "m.json", "batch_size": 10, "reference_index": "raw"},
		"module3": {"input_queue": "q3", "output_queue": "q3out", "manual_review_queue": "q3mr", "llm_endpoint": "http://x", "log_index_prefix": "logs"}
	}`
	path := writeConfig(t, bad)

	_, err := Load(path)
	require.Error(t, err)
}

func TestExpandEnvAppliedBeforeParsing(t *testing.T) {
	t.Setenv("SOCRATES_REDIS_ADDR", "redis.internal:6379")
	content := `{
		"redis": {"addr": "${SOCRATES_REDIS_ADDR}", "prefix": "socrates"},
		"elasticsearch": {"addresses": ["http://localhost:9200"]},
		"receiver": {"listen_addr": ":8080", "raw_index": "raw", "aggregated_key": "q1"},
		"module1": {
			"input_queue": "q1", "output_queue": "q2", "suppressed_queue": "q2s", "pop_timeout_seconds": 1,
			"window_seconds": 300, "flush_interval_s": 30, "idle_seconds": 60,
			"max_raw_ref_ids": 200, "history_days": 14, "history_key_prefix": "socrates:aggr:hist",
			"online_route_min_severity": "MEDIUM"
		},
		"module2": {"input_queue": "q2", "output_queue": "q3", "model_path": "m.json", "batch_size": 10, "reference_index": "raw"},
		"module3": {"input_queue": "q3", "output_queue": "q3out", "manual_review_queue": "q3mr", "llm_endpoint": "http://x", "log_index_prefix": "logs"}
	}`
	path := writeConfig(t, content)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
}
