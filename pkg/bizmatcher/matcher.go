package bizmatcher

import (
	"sort"

	"github.com/socrates-project/socrates/pkg/models"
)

// Matcher evaluates a batch of raw alerts belonging to one aggregated
// bucket against the loaded model and decides whether the bucket is a
// recurring business false positive.
type Matcher struct {
	model            Model
	pipeline         FeaturePipeline
	threshold        float64
	minInstanceCount int
}

// NewMatcher builds a Matcher from its trained collaborators.
func NewMatcher(model Model, pipeline FeaturePipeline, threshold float64, minInstanceCount int) *Matcher {
	return &Matcher{model: model, pipeline: pipeline, threshold: threshold, minInstanceCount: minInstanceCount}
}

// Evaluate scores every raw alert against the aggregated alert's bucket
// context and produces the match decision.
func (m *Matcher) Evaluate(aggregated models.AggregatedAlert, context models.RawAlert, rawAlerts []models.RawAlert) models.MatchDecision {
	if len(rawAlerts) == 0 {
		return models.MatchDecision{
			Threshold:        m.threshold,
			MinInstanceCount: m.minInstanceCount,
			InstanceScores:   []float64{},
		}
	}

	features := make([][]float64, len(rawAlerts))
	for i, raw := range rawAlerts {
		features[i] = m.pipeline.TransformOne(raw, context)
	}

	scores, err := m.model.PredictProba(features)
	if err != nil {
		return models.MatchDecision{
			Threshold:        m.threshold,
			MinInstanceCount: m.minInstanceCount,
			InstanceScores:   []float64{},
		}
	}

	aggregateScore := m.aggregateScore(scores)
	isBFP := len(scores) >= m.minInstanceCount && aggregateScore >= m.threshold

	return models.MatchDecision{
		AggregateScore:          aggregateScore,
		Threshold:               m.threshold,
		MinInstanceCount:        m.minInstanceCount,
		InstanceScores:          scores,
		IsBusinessFalsePositive: isBFP,
	}
}

func (m *Matcher) aggregateScore(scores []float64) float64 {
	p95 := percentile(scores, 95)
	mean := meanOf(scores)
	hitRatio := hitRatio(scores, m.threshold)
	return 0.5*p95 + 0.3*mean + 0.2*hitRatio
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func hitRatio(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var hits int
	for _, v := range values {
		if v >= threshold {
			hits++
		}
	}
	return float64(hits) / float64(len(values))
}

// percentile computes the linear-interpolated percentile, matching
// numpy.percentile's default ("linear") method.
func percentile(values []float64, pct float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (pct / 100.0) * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
