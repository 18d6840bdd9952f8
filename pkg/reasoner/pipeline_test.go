package reasoner

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socrates-project/socrates/pkg/models"
	"github.com/socrates-project/socrates/pkg/queue"
)

func newReasonerTestQueue(t *testing.T) *queue.Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return queue.New(rdb, "socrates-test")
}

func newFixedVerdictReasoner(verdict map[string]any) *Reasoner {
	llm := &MockLLM{Responses: []MockResponse{
		{Contains: "FINAL", Result: verdict},
		{Contains: "", Result: map[string]any{"tool_calls": []any{}}},
	}}
	internal := NewInternalTools(nil, IndexSet{}, 50, "", "", time.Second)
	external := NewExternalTools("", "", "", "", time.Second)
	orch := NewOrchestrator(internal, external, 30)
	return New(llm, PromptBundle{System: "SYS", Planning: "PLANNING", ToolSummary: "SUMMARY", Final: "FINAL"},
		orch, nil, models.NewFixedClock(time.Unix(0, 0)), Config{ManualReviewConfidenceThreshold: 0.55})
}

func TestHandleRoutesHighConfidenceVerdictToOutputQueue(t *testing.T) {
	q := newReasonerTestQueue(t)
	reasoner := newFixedVerdictReasoner(map[string]any{
		"verdict": "BENIGN", "severity": "LOW", "confidence": 0.9,
		"reasoning_summary": "no indicators found", "recommended_action": "close",
	})
	p := NewPipeline(q, reasoner, "module3:output", "module3:manual_review", 0, 0)

	payload, err := json.Marshal(map[string]any{"sip": "1.2.3.4", "rule_name": "scan"})
	require.NoError(t, err)

	require.NoError(t, p.Handle(context.Background(), string(payload)))

	out, err := q.Pop(context.Background(), "module3:output", time.Second)
	require.NoError(t, err)

	var annotated map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &annotated))
	investigation := annotated["module3_investigation"].(map[string]any)
	assert.Equal(t, "BENIGN", investigation["verdict"])
	assert.Equal(t, moduleName, investigation["module"])

	_, err = q.Pop(context.Background(), "module3:manual_review", 10*time.Millisecond)
	assert.ErrorIs(t, err, queue.ErrNoMessageAvailable)
}

func TestHandleRoutesLowConfidenceVerdictToManualReviewQueue(t *testing.T) {
	q := newReasonerTestQueue(t)
	reasoner := newFixedVerdictReasoner(map[string]any{
		"verdict": "SUSPICIOUS", "severity": "MEDIUM", "confidence": 0.3,
		"reasoning_summary": "ambiguous signals", "recommended_action": "manual_review",
	})
	p := NewPipeline(q, reasoner, "module3:output", "module3:manual_review", 0, 0)

	payload, err := json.Marshal(map[string]any{"sip": "1.2.3.4"})
	require.NoError(t, err)

	require.NoError(t, p.Handle(context.Background(), string(payload)))

	out, err := q.Pop(context.Background(), "module3:manual_review", time.Second)
	require.NoError(t, err)

	var annotated map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &annotated))
	investigation := annotated["module3_investigation"].(map[string]any)
	assert.Equal(t, "SUSPICIOUS", investigation["verdict"])

	_, err = q.Pop(context.Background(), "module3:output", 10*time.Millisecond)
	assert.ErrorIs(t, err, queue.ErrNoMessageAvailable)
}

func TestHandleRoutesInconclusiveVerdictToManualReviewQueue(t *testing.T) {
	q := newReasonerTestQueue(t)
	reasoner := newFixedVerdictReasoner(map[string]any{
		"verdict": "INCONCLUSIVE", "severity": "MEDIUM", "confidence": 0.95,
	})
	p := NewPipeline(q, reasoner, "module3:output", "module3:manual_review", 0, 0)

	payload, err := json.Marshal(map[string]any{})
	require.NoError(t, err)

	require.NoError(t, p.Handle(context.Background(), string(payload)))

	_, err = q.Pop(context.Background(), "module3:manual_review", time.Second)
	require.NoError(t, err)
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	q := newReasonerTestQueue(t)
	reasoner := newFixedVerdictReasoner(map[string]any{"verdict": "BENIGN", "confidence": 0.9})
	p := NewPipeline(q, reasoner, "module3:output", "module3:manual_review", 0, 0)

	err := p.Handle(context.Background(), "not json")
	assert.Error(t, err)
}

type fakeAuditRecorder struct {
	records []AuditVerdictRecord
}

func (f *fakeAuditRecorder) RecordVerdict(ctx context.Context, v AuditVerdictRecord) error {
	f.records = append(f.records, v)
	return nil
}

func TestHandleRecordsAuditVerdictWhenRecorderWired(t *testing.T) {
	q := newReasonerTestQueue(t)
	reasoner := newFixedVerdictReasoner(map[string]any{
		"verdict": "MALICIOUS", "severity": "HIGH", "confidence": 0.9,
	})
	recorder := &fakeAuditRecorder{}
	p := NewPipeline(q, reasoner, "module3:output", "module3:manual_review", 0, 0, WithAuditRecorder(recorder))

	payload, err := json.Marshal(map[string]any{
		"sip": "1.2.3.4", "dip": "5.6.7.8", "rule_name": "scan",
		"risk_scores": map[string]any{"final_score": 72.5},
	})
	require.NoError(t, err)

	require.NoError(t, p.Handle(context.Background(), string(payload)))

	require.Len(t, recorder.records, 1)
	rec := recorder.records[0]
	assert.Equal(t, "MALICIOUS", rec.Verdict)
	assert.Equal(t, "module3:output", rec.RoutedQueue)
	assert.Equal(t, 72.5, rec.RiskScore)
	assert.Contains(t, rec.BucketKey, "1.2.3.4")
	assert.NotEmpty(t, rec.SessionID)
}

func TestHandleDerivesStableSessionIDFromBucketAndWindow(t *testing.T) {
	q := newReasonerTestQueue(t)
	reasoner := newFixedVerdictReasoner(map[string]any{"verdict": "MALICIOUS", "confidence": 0.9})
	recorder := &fakeAuditRecorder{}
	p := NewPipeline(q, reasoner, "module3:output", "module3:manual_review", 0, 0, WithAuditRecorder(recorder))

	payload, err := json.Marshal(map[string]any{"sip": "1.2.3.4", "rule_name": "scan", "last_seen": float64(1700000000)})
	require.NoError(t, err)
	require.NoError(t, p.Handle(context.Background(), string(payload)))
	require.Len(t, recorder.records, 1)
	first := recorder.records[0].SessionID

	require.NoError(t, p.Handle(context.Background(), string(payload)))
	require.Len(t, recorder.records, 2)
	second := recorder.records[1].SessionID

	assert.Equal(t, first, second)

	otherPayload, err := json.Marshal(map[string]any{"sip": "1.2.3.4", "rule_name": "scan", "last_seen": float64(1700000999)})
	require.NoError(t, err)
	require.NoError(t, p.Handle(context.Background(), string(otherPayload)))
	require.Len(t, recorder.records, 3)
	assert.NotEqual(t, first, recorder.records[2].SessionID)
}

func TestHandleSkipsAuditRecordingWithoutRecorder(t *testing.T) {
	q := newReasonerTestQueue(t)
	reasoner := newFixedVerdictReasoner(map[string]any{"verdict": "BENIGN", "confidence": 0.9})
	p := NewPipeline(q, reasoner, "module3:output", "module3:manual_review", 0, 0)

	payload, err := json.Marshal(map[string]any{"sip": "1.2.3.4"})
	require.NoError(t, err)
	require.NoError(t, p.Handle(context.Background(), string(payload)))
}
