package config

import "time"

// AlertMaskingDefaults holds default alert-payload masking settings,
// applied before any tool result reaches the reasoner's LLM calls.
type AlertMaskingDefaults struct {
	Enabled      bool   `json:"enabled"`
	PatternGroup string `json:"pattern_group"`
}

// applyDefaults fills in the zero-valued fields of a freshly-unmarshaled
// Config with the built-in defaults, mirroring the teacher's layered
// Defaults-then-validate loading order.
func applyDefaults(c *Config) {
	if c.Queue == nil {
		c.Queue = DefaultQueueConfig()
	} else {
		d := DefaultQueueConfig()
		if c.Queue.PollInterval == 0 {
			c.Queue.PollInterval = d.PollInterval
		}
		if c.Queue.PollIntervalJitter == 0 {
			c.Queue.PollIntervalJitter = d.PollIntervalJitter
		}
		if c.Queue.ShutdownTimeout == 0 {
			c.Queue.ShutdownTimeout = d.ShutdownTimeout
		}
	}

	if c.Redis != nil && c.Redis.Prefix == "" {
		c.Redis.Prefix = "socrates"
	}

	if c.Database != nil {
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
		if c.Database.MaxOpenConns == 0 {
			c.Database.MaxOpenConns = 10
		}
		if c.Database.MaxIdleConns == 0 {
			c.Database.MaxIdleConns = 5
		}
		if c.Database.ConnMaxLifetime == 0 {
			c.Database.ConnMaxLifetime = 30 * time.Minute
		}
	}

	if m1 := c.Module1; m1 != nil {
		if m1.WeightFreq == 0 && m1.WeightRule == 0 && m1.WeightCtx == 0 && m1.WeightRare == 0 {
			m1.WeightFreq = 0.35
			m1.WeightRule = 0.25
			m1.WeightCtx = 0.20
			m1.WeightRare = 0.20
		}
		if m1.RoutingThreshold == 0 {
			m1.RoutingThreshold = 50
		}
		if m1.ThresholdMedium == 0 {
			m1.ThresholdMedium = 45
		}
		if m1.ThresholdHigh == 0 {
			m1.ThresholdHigh = 70
		}
		if m1.ThresholdCritical == 0 {
			m1.ThresholdCritical = 85
		}
		if m1.OnlineMinSeverity == "" {
			m1.OnlineMinSeverity = "MEDIUM"
		}
		if m1.HistoryKeyPrefix == "" {
			m1.HistoryKeyPrefix = "socrates:aggr:hist"
		}
		if m1.PopTimeoutSeconds == 0 {
			m1.PopTimeoutSeconds = 1
		}
		if m1.HistoryDays == 0 {
			m1.HistoryDays = 14
		}
		if m1.MaxRawRefIDs == 0 {
			m1.MaxRawRefIDs = 200
		}
	}

	if m2 := c.Module2; m2 != nil && m2.FPThreshold == 0 {
		m2.FPThreshold = 0.5
	}

	if m3 := c.Module3; m3 != nil {
		if m3.LLMTimeout == 0 {
			m3.LLMTimeout = 30 * time.Second
		}
		if m3.MaxToolCalls == 0 {
			m3.MaxToolCalls = 8
		}
		if m3.MaxRowsPerTool == 0 {
			m3.MaxRowsPerTool = 30
		}
		if m3.ManualReviewConfidenceThreshold == 0 {
			m3.ManualReviewConfidenceThreshold = 0.55
		}
		if m3.PopTimeoutSeconds == 0 {
			m3.PopTimeoutSeconds = 1
		}
		if m3.CMDBTimeout == 0 {
			m3.CMDBTimeout = 8 * time.Second
		}
		if m3.ExternalTimeout == 0 {
			m3.ExternalTimeout = 10 * time.Second
		}
		if m3.DefaultSearchSize == 0 {
			m3.DefaultSearchSize = 50
		}
		prefix := m3.LogIndexPrefix
		if m3.WAFIndex == "" {
			m3.WAFIndex = prefix + "waf-*"
		}
		if m3.TianyanAlarmIndex == "" {
			m3.TianyanAlarmIndex = prefix + "tianyan-alarm-*"
		}
		if m3.ZhongziIndex == "" {
			m3.ZhongziIndex = prefix + "zhongzi-*"
		}
		if m3.NginxIndex == "" {
			m3.NginxIndex = prefix + "nginx-*"
		}
		if m3.HuorongIndex == "" {
			m3.HuorongIndex = prefix + "huorong-*"
		}
	}

	if h := c.HealthAPI; h != nil && h.RecentVerdictsMax == 0 {
		h.RecentVerdictsMax = 20
	}
}
