package models

import (
	"strings"
	"time"
)

// NormalizedAlert is the deterministic, schema-fixed projection of a
// RawAlert used by the aggregator.
type NormalizedAlert struct {
	RawID        string
	Timestamp    time.Time // UTC
	SIP          string
	DIP          string
	Proto        string // lowercased
	RuleName     string
	LogType      string
	URITemplate  string
	Severity     float64 // [0,1]
	Confidence   float64 // [0,1]
	SrcExternal  bool
	DstSensitive bool
	Raw          RawAlert
}

// BucketKey is the aggregation key: sip|dip|proto|rule_name|log_type|uri_template.
// It depends only on these six fields — permuting anything else in the
// alert must never change it.
func (n NormalizedAlert) BucketKey() string {
	return strings.Join([]string{n.SIP, n.DIP, n.Proto, n.RuleName, n.LogType, n.URITemplate}, "|")
}

// Clamp01 clamps v into [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
