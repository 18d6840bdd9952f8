package models

// ScoreBreakdown is the risk scorer's output: four subscores plus the
// composite final score and its discretized risk level.
type ScoreBreakdown struct {
	SFreq float64 `json:"s_freq"`
	SRule float64 `json:"s_rule"`
	SCtx  float64 `json:"s_ctx"`
	SRare float64 `json:"s_rare"`

	FinalScore float64 `json:"final_score"` // [0,100]
	RiskLevel  string  `json:"risk_level"`  // LOW | MEDIUM | HIGH | CRITICAL
}

// AssetProfile describes an IP's criticality/exposure/sensitivity as
// resolved from the asset catalog. Process-lifetime, read-only.
type AssetProfile struct {
	Criticality float64 // [0,1]
	Exposure    float64 // [0,1]
	Sensitive   bool
}

// AggregatedAlert is Module 1's output: the external JSON representation
// of a snapshot plus its risk score, progressively annotated by Module 2
// and Module 3.
type AggregatedAlert struct {
	SIP            string          `json:"sip"`
	DIP            string          `json:"dip"`
	Proto          string          `json:"proto"`
	RuleName       string          `json:"rule_name"`
	LogType        string          `json:"log_type"`
	URITemplate    string          `json:"uri_template"`
	ReferenceUUIDs []string        `json:"reference_uuids"`
	AggregatedCount int            `json:"aggregated_count"`
	FirstSeen      int64           `json:"first_seen"` // epoch seconds
	LastSeen       int64           `json:"last_seen"`  // epoch seconds
	RiskScores     ScoreBreakdown  `json:"risk_scores"`

	Module2BusinessMatch *MatchAnnotation     `json:"module2_business_match,omitempty"`
	Module3Investigation *InvestigationAnnotation `json:"module3_investigation,omitempty"`
}

// BucketKey reconstructs the aggregator's bucket key from the alert's
// own fields, used when fetching rolling history at flush time and when
// Module 2/3 need to correlate back to the originating bucket.
func (a AggregatedAlert) BucketKey() string {
	n := NormalizedAlert{SIP: a.SIP, DIP: a.DIP, Proto: a.Proto, RuleName: a.RuleName, LogType: a.LogType, URITemplate: a.URITemplate}
	return n.BucketKey()
}

// MatchDecision is Module 2's per-message output before annotation.
type MatchDecision struct {
	AggregateScore           float64   `json:"aggregate_score"`
	Threshold                float64   `json:"threshold"`
	MinInstanceCount         int       `json:"min_instance_count"`
	InstanceScores           []float64 `json:"instance_scores"`
	IsBusinessFalsePositive  bool      `json:"is_business_false_positive"`
	FetchedInstanceCount     int       `json:"fetched_instance_count"`
}

// MatchAnnotation is the module2_business_match object attached to the
// aggregated alert payload.
type MatchAnnotation struct {
	MatchDecision
	Module  string `json:"module"`
	Version string `json:"version"`
}

// InvestigationVerdict is Module 3's terminal classification.
type InvestigationVerdict struct {
	Verdict            string   `json:"verdict"`  // MALICIOUS | BENIGN | SUSPICIOUS | INCONCLUSIVE
	Severity           string   `json:"severity"` // LOW | MEDIUM | HIGH | CRITICAL
	Confidence         float64  `json:"confidence"`
	ReasoningSummary   string   `json:"reasoning_summary"`
	Evidence           []string `json:"evidence"` // capped at 20
	ToolTrace          []ToolResult `json:"tool_trace"`
	RecommendedAction  string   `json:"recommended_action"`
	TimingMS           int64    `json:"timing_ms"`
}

// InvestigationAnnotation is the module3_investigation object attached to
// the final alert payload.
type InvestigationAnnotation struct {
	InvestigationVerdict
	Module  string `json:"module"`
	Version string `json:"version"`
}

const (
	VerdictMalicious    = "MALICIOUS"
	VerdictBenign       = "BENIGN"
	VerdictSuspicious   = "SUSPICIOUS"
	VerdictInconclusive = "INCONCLUSIVE"

	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// ValidVerdict normalizes a free-form verdict string to the enumerated
// set, defaulting to INCONCLUSIVE.
func ValidVerdict(v string) string {
	switch v {
	case VerdictMalicious, VerdictBenign, VerdictSuspicious, VerdictInconclusive:
		return v
	default:
		return VerdictInconclusive
	}
}

// ValidSeverity normalizes a free-form severity string to the enumerated
// set, defaulting to MEDIUM.
func ValidSeverity(v string) string {
	switch v {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return v
	default:
		return SeverityMedium
	}
}
