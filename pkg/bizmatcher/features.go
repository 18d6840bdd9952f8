// Package bizmatcher implements Module 2: a self-learning business-logic
// matcher that scores each aggregated alert's constituent raw alerts
// against a trained model and flags recurring, low-signal buckets as
// business false positives.
package bizmatcher

import (
	"fmt"
	"strings"
	"time"

	"github.com/socrates-project/socrates/pkg/models"
)

// FeaturePipeline turns one raw alert (plus the aggregated bucket it
// belongs to, as context) into a fixed-length feature vector. The
// production pipeline is StaticFeaturePipeline; tests can substitute a
// stub implementing the same interface.
type FeaturePipeline interface {
	TransformOne(raw models.RawAlert, context models.RawAlert) []float64
	FeatureDim() int
}

// StaticFeaturePipeline extracts structural, semantic, and temporal
// signals without any learned state — the dimensionality and the
// extraction rules are fixed, mirroring the reference implementation's
// three named extractors collapsed into one deterministic vector.
type StaticFeaturePipeline struct {
	businessStartHour int
	businessEndHour   int
}

// NewStaticFeaturePipeline builds the pipeline. Business hours bound the
// temporal "off-hours" feature.
func NewStaticFeaturePipeline(businessStartHour, businessEndHour int) *StaticFeaturePipeline {
	if businessEndHour <= businessStartHour {
		businessStartHour, businessEndHour = 9, 17
	}
	return &StaticFeaturePipeline{businessStartHour: businessStartHour, businessEndHour: businessEndHour}
}

// FeatureDim is the fixed output vector length: 4 structural + 3 semantic
// + 2 temporal.
func (p *StaticFeaturePipeline) FeatureDim() int { return 9 }

// TransformOne builds the feature vector for one raw alert.
func (p *StaticFeaturePipeline) TransformOne(raw models.RawAlert, context models.RawAlert) []float64 {
	return append(append(
		structuralFeatures(raw, context),
		semanticFeatures(raw, context)...),
		p.temporalFeatures(raw, context)...,
	)
}

func structuralFeatures(raw, context models.RawAlert) []float64 {
	severity := lookupScore(raw, context, "severity", "rule.severity", "priority")
	confidence := lookupScore(raw, context, "confidence", "risk_score", "risk.score")
	uri := firstString(raw, context, "url.path", "http.request.uri", "uri")
	return []float64{
		severity,
		confidence,
		float64(len(uri)) / 256.0,
		boolFeature(strings.Contains(strings.ToLower(uri), "admin")),
	}
}

func semanticFeatures(raw, context models.RawAlert) []float64 {
	ruleName := firstString(raw, context, "rule.name", "rule_name", "signature")
	logType := firstString(raw, context, "log_type", "event.dataset", "type")
	text := strings.ToLower(ruleName + " " + logType)
	return []float64{
		boolFeature(models.ContainsAnyToken(text, "scan", "probe", "recon")),
		boolFeature(models.ContainsAnyToken(text, "test", "synthetic", "healthcheck")),
		boolFeature(models.ContainsAnyToken(text, "known", "allowlist", "baseline")),
	}
}

func (p *StaticFeaturePipeline) temporalFeatures(raw, context models.RawAlert) []float64 {
	ts := firstValue(raw, context, "@timestamp", "timestamp", "time")
	t, ok := parseAny(ts)
	if !ok {
		t = time.Now().UTC()
	}
	hour := t.UTC().Hour()
	businessHours := hour >= p.businessStartHour && hour < p.businessEndHour
	weekend := t.UTC().Weekday() == time.Saturday || t.UTC().Weekday() == time.Sunday
	return []float64{boolFeature(!businessHours), boolFeature(weekend)}
}

func boolFeature(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

func firstValue(raw, context models.RawAlert, paths ...string) any {
	if v, ok := raw.LookupFallback(paths...); ok {
		return v
	}
	if v, ok := context.LookupFallback(paths...); ok {
		return v
	}
	return nil
}

func firstString(raw, context models.RawAlert, paths ...string) string {
	v := firstValue(raw, context, paths...)
	if v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}

func lookupScore(raw, context models.RawAlert, paths ...string) float64 {
	v := firstValue(raw, context, paths...)
	f, ok := models.ToFloat64(v)
	if !ok {
		return 0.0
	}
	if f > 1.0 {
		f = f / 100.0
	}
	return models.Clamp01(f)
}

func parseAny(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
	case time.Time:
		return t, true
	}
	return time.Time{}, false
}
