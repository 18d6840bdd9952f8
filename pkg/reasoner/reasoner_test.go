package reasoner

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/socrates-project/socrates/pkg/masking"
	"github.com/socrates-project/socrates/pkg/models"
	"github.com/stretchr/testify/assert"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	client := newTestESClientForReasoner(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hits":{"hits":[{"_source":{"uri":"/admin","token":"Bearer sk-secret-abc123"}}]}}`))
	})
	internal := NewInternalTools(client, IndexSet{WAF: "waf-*"}, 50, "", "", time.Second)
	external := NewExternalTools("", "", "", "", time.Second)
	return NewOrchestrator(internal, external, 30)
}

func TestInvestigateUsesFallbackPlanAndProducesVerdict(t *testing.T) {
	llm := &MockLLM{Responses: []MockResponse{
		{Contains: "FINAL", Result: map[string]any{
			"verdict": "malicious", "severity": "high", "confidence": 0.9,
			"reasoning_summary": "clear attack pattern", "recommended_action": "block_ip",
			"evidence": []any{"waf hit on /admin"},
		}},
	}}

	r := New(llm, PromptBundle{System: "SYS", Planning: "PLANNING", ToolSummary: "SUMMARY", Final: "FINAL"},
		newTestOrchestrator(t), masking.NewService(), models.NewFixedClock(time.Unix(1000, 0)), Config{MaxToolCalls: 8})

	verdict := r.Investigate(t.Context(), map[string]any{"sip": "1.1.1.1", "dip": "2.2.2.2", "rule_name": "generic scan"})

	assert.Equal(t, "MALICIOUS", verdict.Verdict)
	assert.Equal(t, "HIGH", verdict.Severity)
	assert.Equal(t, 0.9, verdict.Confidence)
	assert.Equal(t, "block_ip", verdict.RecommendedAction)
	assert.NotEmpty(t, verdict.ToolTrace)
}

func TestInvestigateMasksToolResultsBeforeSummarizing(t *testing.T) {
	var capturedPrompt string
	llm := &capturingLLM{onGenerateJSON: func(prompt string) { capturedPrompt = prompt }}

	r := New(llm, PromptBundle{System: "SYS", Planning: "PLANNING", ToolSummary: "SUMMARY", Final: "FINAL"},
		newTestOrchestrator(t), masking.NewService(), models.NewFixedClock(time.Unix(0, 0)), Config{})

	r.Investigate(t.Context(), map[string]any{"rule_name": "scan"})

	assert.NotContains(t, capturedPrompt, "sk-secret-abc123")
}

func TestShouldManualReviewFlagsInconclusiveVerdict(t *testing.T) {
	r := New(&MockLLM{}, PromptBundle{}, nil, nil, models.NewFixedClock(time.Unix(0, 0)), Config{ManualReviewConfidenceThreshold: 0.55})
	v := models.InvestigationVerdict{Verdict: models.VerdictInconclusive, Confidence: 0.9}
	assert.True(t, r.ShouldManualReview(v))
}

func TestShouldManualReviewFlagsLowConfidenceVerdict(t *testing.T) {
	r := New(&MockLLM{}, PromptBundle{}, nil, nil, models.NewFixedClock(time.Unix(0, 0)), Config{ManualReviewConfidenceThreshold: 0.55})
	v := models.InvestigationVerdict{Verdict: models.VerdictMalicious, Confidence: 0.3}
	assert.True(t, r.ShouldManualReview(v))
}

func TestShouldManualReviewPassesConfidentDecisiveVerdict(t *testing.T) {
	r := New(&MockLLM{}, PromptBundle{}, nil, nil, models.NewFixedClock(time.Unix(0, 0)), Config{ManualReviewConfidenceThreshold: 0.55})
	v := models.InvestigationVerdict{Verdict: models.VerdictBenign, Confidence: 0.8}
	assert.False(t, r.ShouldManualReview(v))
}

// capturingLLM records the prompt seen by its last GenerateJSON call.
type capturingLLM struct {
	onGenerateJSON func(prompt string)
}

func (c *capturingLLM) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

func (c *capturingLLM) GenerateJSON(ctx context.Context, prompt string, fallback map[string]any) map[string]any {
	if c.onGenerateJSON != nil {
		c.onGenerateJSON(prompt)
	}
	return fallback
}
