package aggregator

import (
	"math"

	"github.com/socrates-project/socrates/pkg/models"
)

// ScoringWeights are the four composite-score coefficients, read from
// Module1Config.
type ScoringWeights struct {
	Freq, Rule, Ctx, Rare float64
}

// ScoringThresholds are the final_score cut points separating LOW / MEDIUM
// / HIGH / CRITICAL.
type ScoringThresholds struct {
	Medium, High, Critical float64
}

var (
	strongRuleTokens = []string{"rce", "remote code", "deserialization", "sql", "sqli", "command injection"}
	mediumRuleTokens = []string{"xss", "ssrf", "path traversal", "upload", "shell", "webattack"}
)

// RiskScorer computes the four subscores and the final weighted, squashed
// composite for one bucket snapshot.
type RiskScorer struct {
	weights    ScoringWeights
	thresholds ScoringThresholds
}

// NewRiskScorer builds a RiskScorer from config-level weights/thresholds.
func NewRiskScorer(weights ScoringWeights, thresholds ScoringThresholds) *RiskScorer {
	return &RiskScorer{weights: weights, thresholds: thresholds}
}

// Score computes the full breakdown for a flushed bucket, given its
// 14-day historical daily average and the resolved destination asset
// profile.
func (s *RiskScorer) Score(snap models.Snapshot, historicalDailyAvg float64, asset models.AssetProfile) models.ScoreBreakdown {
	sFreq := s.frequencyScore(snap.Count, snap.DurationSeconds())
	sRule := s.ruleScore(snap.AvgSeverity, snap.AvgConfidence, snap.RuleName, snap.LogType)
	sCtx := s.contextScore(snap.SrcExternalRatio, snap.DstSensitiveRatio, asset)
	sRare := s.rarityScore(historicalDailyAvg)

	weighted := s.weights.Freq*sFreq + s.weights.Rule*sRule + s.weights.Ctx*sCtx + s.weights.Rare*sRare
	final := squash(weighted)

	return models.ScoreBreakdown{
		SFreq:      round4(sFreq),
		SRule:      round4(sRule),
		SCtx:       round4(sCtx),
		SRare:      round4(sRare),
		FinalScore: round2(final),
		RiskLevel:  s.riskLevel(final),
	}
}

// IsHighPriority reports whether final_score clears the routing
// threshold that separates the output queue from the suppressed queue.
func (s *RiskScorer) IsHighPriority(score models.ScoreBreakdown, routingThreshold float64) bool {
	return score.FinalScore >= routingThreshold
}

// NormalizeFrequency is the log-scaled base frequency term, also used
// directly by callers wanting just the raw count-pressure signal.
func NormalizeFrequency(count int) float64 {
	v := math.Log1p(float64(count)) / math.Log(51)
	return models.Clamp01(v)
}

func (s *RiskScorer) frequencyScore(count int, durationSeconds float64) float64 {
	base := NormalizeFrequency(count)
	if durationSeconds < 1 {
		durationSeconds = 1
	}
	burst := (float64(count) / durationSeconds) / 2.0
	if burst > 1 {
		burst = 1
	}
	if burst < 0 {
		burst = 0
	}
	return models.Clamp01(0.6*base + 0.4*burst)
}

func (s *RiskScorer) ruleScore(severity, confidence float64, ruleName, logType string) float64 {
	keyword := ruleKeywordWeight(ruleName, logType)
	return models.Clamp01(0.45*severity + 0.35*confidence + 0.20*keyword)
}

func (s *RiskScorer) contextScore(srcExternalRatio, dstSensitiveRatio float64, asset models.AssetProfile) float64 {
	sensitiveFlag := 0.0
	if asset.Sensitive {
		sensitiveFlag = 1.0
	}
	combinedSensitive := math.Max(dstSensitiveRatio, sensitiveFlag)
	return models.Clamp01(0.40*srcExternalRatio + 0.30*asset.Criticality + 0.20*asset.Exposure + 0.10*combinedSensitive)
}

func (s *RiskScorer) rarityScore(historicalDailyAvg float64) float64 {
	return models.Clamp01(1.0 / (1.0 + math.Log1p(historicalDailyAvg+1.0)))
}

func squash(weighted float64) float64 {
	normalized := 1.0 / (1.0 + math.Exp(-7.0*(weighted-0.5)))
	return normalized * 100.0
}

func (s *RiskScorer) riskLevel(final float64) string {
	switch {
	case final >= s.thresholds.Critical:
		return models.SeverityCritical
	case final >= s.thresholds.High:
		return models.SeverityHigh
	case final >= s.thresholds.Medium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func ruleKeywordWeight(ruleName, logType string) float64 {
	text := ruleName + " " + logType
	if models.ContainsAnyToken(text, strongRuleTokens...) {
		return 0.95
	}
	if models.ContainsAnyToken(text, mediumRuleTokens...) {
		return 0.75
	}
	return 0.45
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
