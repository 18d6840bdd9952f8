package reasoner

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/socrates-project/socrates/pkg/masking"
	"github.com/socrates-project/socrates/pkg/models"
)

// briefFields is the set of alert payload keys shown to the LLM at every
// stage — the rest of the payload (full risk-score breakdowns, reference
// UUID lists) is never sent to keep prompts small and avoid leaking
// anything beyond what investigation actually needs.
var briefFields = []string{
	"sip", "dip", "proto", "rule_name", "log_type", "uri_template",
	"reference_uuids", "risk_scores", "module2_business_match",
}

// Reasoner drives one investigation end to end: plan, execute, summarize,
// reach a verdict.
type Reasoner struct {
	llm             LLM
	prompts         PromptBundle
	orchestrator    *Orchestrator
	masker          *masking.Service
	clock           models.Clock
	maxToolCalls    int
	manualReviewConfidenceThreshold float64
}

// Config bundles the reasoner's tunables.
type Config struct {
	MaxToolCalls                    int
	ManualReviewConfidenceThreshold float64
}

// New builds a Reasoner.
func New(llm LLM, prompts PromptBundle, orchestrator *Orchestrator, masker *masking.Service, clock models.Clock, cfg Config) *Reasoner {
	maxToolCalls := cfg.MaxToolCalls
	if maxToolCalls <= 0 {
		maxToolCalls = 8
	}
	return &Reasoner{
		llm: llm, prompts: prompts, orchestrator: orchestrator, masker: masker, clock: clock,
		maxToolCalls:                    maxToolCalls,
		manualReviewConfidenceThreshold: cfg.ManualReviewConfidenceThreshold,
	}
}

// alertBrief projects the fields the LLM is allowed to see out of the
// full alert payload.
func alertBrief(payload map[string]any) map[string]any {
	brief := make(map[string]any, len(briefFields))
	for _, key := range briefFields {
		if v, ok := payload[key]; ok {
			brief[key] = v
		}
	}
	return brief
}

// Investigate runs the full plan -> execute -> summarize -> verdict loop
// for one queued alert payload.
func (r *Reasoner) Investigate(ctx context.Context, payload map[string]any) models.InvestigationVerdict {
	started := r.clock.Now()
	brief := alertBrief(payload)

	calls := r.planToolCalls(ctx, brief)
	if len(calls) == 0 {
		calls = fallbackToolCalls(brief)
	}
	if len(calls) > r.maxToolCalls {
		calls = calls[:r.maxToolCalls]
	}

	results := make([]models.ToolResult, 0, len(calls))
	for _, call := range calls {
		result := r.orchestrator.Execute(ctx, call)
		results = append(results, r.summarizeToolResult(ctx, brief, result))
	}

	verdictData := r.finalReasoning(ctx, brief, results)
	finished := r.clock.Now()

	normalized := normalizeVerdict(verdictData)

	return models.InvestigationVerdict{
		Verdict:           normalized.Verdict,
		Severity:          normalized.Severity,
		Confidence:        normalized.Confidence,
		ReasoningSummary:  normalized.ReasoningSummary,
		Evidence:          normalized.Evidence,
		ToolTrace:         results,
		RecommendedAction: normalized.RecommendedAction,
		TimingMS:          finished.Sub(started).Milliseconds(),
	}
}

// summarizeToolResult masks the tool result's raw content before handing
// it to the LLM, then folds the LLM's summary/signals back into the
// result so the rest of the pipeline only ever sees masked data.
func (r *Reasoner) summarizeToolResult(ctx context.Context, brief map[string]any, result models.ToolResult) models.ToolResult {
	masked := r.maskToolResult(result)

	resultJSON, _ := json.Marshal(masked)
	briefJSON, _ := json.Marshal(brief)
	prompt := r.prompts.System + "\n\n" + r.prompts.ToolSummary + "\n\n" +
		"ALERT:\n" + string(briefJSON) + "\n\n" +
		"TOOL_RESULT:\n" + string(resultJSON) + "\n"

	fallback := map[string]any{"summary": masked.Summary, "signals": []any{}}
	summaryJSON := r.llm.GenerateJSON(ctx, prompt, fallback)

	summary := strings.TrimSpace(stringArg(summaryJSON["summary"]))
	if summary != "" {
		masked.Summary = summary
	}
	if signals, ok := summaryJSON["signals"].([]any); ok {
		data, _ := masked.Data.(map[string]any)
		if data == nil {
			data = map[string]any{}
		}
		if len(signals) > 20 {
			signals = signals[:20]
		}
		data["signals"] = signals
		masked.Data = data
	}
	return masked
}

// maskToolResult runs the masking sweep over every string-valued field of
// a tool result, since raw log rows (WAF/nginx/huorong hits) may carry
// embedded credentials the summarizer must never see verbatim.
func (r *Reasoner) maskToolResult(result models.ToolResult) models.ToolResult {
	if r.masker == nil {
		return result
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return result
	}
	maskedJSON := r.masker.MaskToolResult(string(encoded))

	var masked models.ToolResult
	if err := json.Unmarshal([]byte(maskedJSON), &masked); err != nil {
		return result
	}
	return masked
}

func (r *Reasoner) finalReasoning(ctx context.Context, brief map[string]any, results []models.ToolResult) map[string]any {
	fallback := map[string]any{
		"verdict":            "INCONCLUSIVE",
		"severity":           "MEDIUM",
		"confidence":         0.4,
		"reasoning_summary":  "Insufficient evidence for a definitive decision.",
		"evidence":           []any{},
		"recommended_action": "manual_review",
	}

	payload := make([]map[string]any, len(results))
	for i, r := range results {
		encoded, _ := json.Marshal(r)
		var m map[string]any
		_ = json.Unmarshal(encoded, &m)
		payload[i] = m
	}
	payloadJSON, _ := json.Marshal(payload)
	briefJSON, _ := json.Marshal(brief)

	prompt := r.prompts.System + "\n\n" + r.prompts.Final + "\n\n" +
		"ALERT:\n" + string(briefJSON) + "\n\n" +
		"TOOL_SUMMARIES:\n" + string(payloadJSON) + "\n"

	return r.llm.GenerateJSON(ctx, prompt, fallback)
}

// ShouldManualReview reports whether a finished verdict should be routed
// to manual review rather than the terminal output queue: an
// INCONCLUSIVE verdict, or any verdict below the configured confidence
// floor.
func (r *Reasoner) ShouldManualReview(v models.InvestigationVerdict) bool {
	return v.Verdict == models.VerdictInconclusive || v.Confidence < r.manualReviewConfidenceThreshold
}

type normalizedVerdict struct {
	Verdict           string
	Severity          string
	Confidence        float64
	ReasoningSummary  string
	Evidence          []string
	RecommendedAction string
}

func normalizeVerdict(data map[string]any) normalizedVerdict {
	verdict := models.ValidVerdict(strings.ToUpper(strings.TrimSpace(stringArg(data["verdict"]))))
	severity := models.ValidSeverity(strings.ToUpper(strings.TrimSpace(stringArg(data["severity"]))))

	confidence, ok := models.ToFloat64(data["confidence"])
	if !ok {
		confidence = 0.4
	}
	confidence = models.Clamp01(confidence)

	reasoning := strings.TrimSpace(stringArg(data["reasoning_summary"]))
	if reasoning == "" {
		reasoning = "No reasoning summary provided."
	}

	action := strings.TrimSpace(stringArg(data["recommended_action"]))
	if action == "" {
		action = "manual_review"
	}

	var evidence []string
	if rawEvidence, ok := data["evidence"].([]any); ok {
		for _, item := range rawEvidence {
			if len(evidence) >= 20 {
				break
			}
			evidence = append(evidence, stringArg(item))
		}
	}

	return normalizedVerdict{
		Verdict: verdict, Severity: severity, Confidence: confidence,
		ReasoningSummary: reasoning, Evidence: evidence, RecommendedAction: action,
	}
}
