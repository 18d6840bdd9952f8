package config

import "time"

// RedisConfig configures the shared Redis connection used for the FIFO
// queues, bucket state, and rolling history statistics.
type RedisConfig struct {
	Addr     string `json:"addr" validate:"required"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix" validate:"required"` // key namespace, e.g. "socrates"
}

// ElasticsearchConfig configures the client shared by the receiver's index
// write path, Module 2's reference fetch, and Module 3's log-search tools.
type ElasticsearchConfig struct {
	Addresses []string `json:"addresses" validate:"required,min=1"`
	Username  string   `json:"username,omitempty"`
	Password  string   `json:"password,omitempty"`
}

// DatabaseConfig configures the audit-log persistence store.
type DatabaseConfig struct {
	Host            string        `json:"host" validate:"required"`
	Port            int           `json:"port" validate:"required"`
	User            string        `json:"user" validate:"required"`
	Password        string        `json:"password,omitempty"`
	Database        string        `json:"database" validate:"required"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// ReceiverConfig configures the ingest HTTP surface and forward-stream
// target index.
type ReceiverConfig struct {
	ListenAddr    string `json:"listen_addr" validate:"required"`
	RawIndex      string `json:"raw_index" validate:"required"`
	AggregatedKey string `json:"aggregated_key" validate:"required"` // queue name for module1 input
}

// Module1Config configures the aggregator + risk scorer stage.
type Module1Config struct {
	InputQueue        string  `json:"input_queue" validate:"required"` // fed by the receiver
	OutputQueue       string  `json:"output_queue" validate:"required"` // module2 input, high-priority path
	SuppressedQueue   string  `json:"suppressed_queue" validate:"required"` // below routing threshold
	OutputMaxlen      int64   `json:"output_maxlen"`
	SuppressedMaxlen  int64   `json:"suppressed_maxlen"`
	PopTimeoutSeconds int     `json:"pop_timeout_seconds" validate:"required,min=1"`
	WindowSeconds     int     `json:"window_seconds" validate:"required,min=1"`
	FlushIntervalS    int     `json:"flush_interval_s" validate:"required,min=1"`
	IdleSeconds       int     `json:"idle_seconds" validate:"required,min=1"`
	MaxRawRefIDs      int     `json:"max_raw_ref_ids" validate:"required,min=1"`
	HistoryDays       int     `json:"history_days" validate:"required,min=1"`
	HistoryKeyPrefix  string  `json:"history_key_prefix" validate:"required"`
	AssetTablePath    string  `json:"asset_table_path"`
	WeightFreq        float64 `json:"weight_freq"`
	WeightRule        float64 `json:"weight_rule"`
	WeightCtx         float64 `json:"weight_ctx"`
	WeightRare        float64 `json:"weight_rare"`
	RoutingThreshold  float64 `json:"routing_threshold"` // final_score >= this routes to OutputQueue
	ThresholdMedium   float64 `json:"threshold_medium"`
	ThresholdHigh     float64 `json:"threshold_high"`
	ThresholdCritical float64 `json:"threshold_critical"`
	OnlineMinSeverity string  `json:"online_route_min_severity" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
}

// Module2Config configures the business-logic matcher stage.
type Module2Config struct {
	InputQueue       string  `json:"input_queue" validate:"required"`
	OutputQueue      string  `json:"output_queue" validate:"required"` // module3 input
	SuppressedQueue  string  `json:"suppressed_queue" validate:"required"` // biz-suppressed sink
	OutputMaxlen     int64   `json:"output_maxlen"`
	SuppressedMaxlen int64   `json:"suppressed_maxlen"`
	ModelPath        string  `json:"model_path" validate:"required"`
	BatchSize        int     `json:"batch_size" validate:"required,min=1"`
	FPThreshold      float64 `json:"fp_threshold" validate:"min=0,max=1"`
	ReferenceIndex   string  `json:"reference_index" validate:"required"`
}

// Module3Config configures the investigation reasoner stage.
type Module3Config struct {
	InputQueue         string `json:"input_queue" validate:"required"`
	OutputQueue        string `json:"output_queue" validate:"required"`
	ManualReviewQueue  string `json:"manual_review_queue" validate:"required"`
	OutputMaxlen       int64  `json:"output_maxlen"`
	ManualReviewMaxlen int64  `json:"manual_review_maxlen"`
	PopTimeoutSeconds  int    `json:"pop_timeout_seconds" validate:"required,min=1"`

	LLMEndpoint  string        `json:"llm_endpoint" validate:"required"`
	LLMTimeout   time.Duration `json:"llm_timeout"`
	PromptsDir   string        `json:"prompts_dir"`

	MaxToolCalls                    int     `json:"max_tool_calls" validate:"required,min=1"`
	MaxRowsPerTool                  int     `json:"max_rows_per_tool" validate:"required,min=1"`
	ManualReviewConfidenceThreshold float64 `json:"manual_review_confidence_threshold"`

	CMDBBaseURL string        `json:"cmdb_base_url"`
	CMDBAPIKey  string        `json:"cmdb_api_key,omitempty"`
	CMDBTimeout time.Duration `json:"cmdb_timeout"`

	VirusTotalURL    string        `json:"virustotal_url"`
	VirusTotalAPIKey string        `json:"virustotal_api_key,omitempty"`
	CVESearchURL     string        `json:"cve_search_url"`
	CVESearchAPIKey  string        `json:"cve_search_api_key,omitempty"`
	ExternalTimeout  time.Duration `json:"external_timeout"`

	LogIndexPrefix      string `json:"log_index_prefix" validate:"required"`
	WAFIndex            string `json:"waf_index"`
	TianyanAlarmIndex   string `json:"tianyan_alarm_index"`
	ZhongziIndex        string `json:"zhongzi_index"`
	NginxIndex          string `json:"nginx_index"`
	HuorongIndex        string `json:"huorong_index"`
	DefaultSearchSize   int    `json:"default_search_size"`
}

// HealthAPIConfig configures the gin HTTP server exposing /healthz,
// /readyz, and the audit-log read endpoint.
type HealthAPIConfig struct {
	ListenAddr        string `json:"listen_addr" validate:"required"`
	RecentVerdictsMax int    `json:"recent_verdicts_max"`
}

// QueueConfig controls the generic stage-runner poll loop shared by all
// four stages.
type QueueConfig struct {
	PollInterval       time.Duration `json:"poll_interval"`
	PollIntervalJitter time.Duration `json:"poll_interval_jitter"`
	ShutdownTimeout    time.Duration `json:"shutdown_timeout"`
}
