package reasoner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/socrates-project/socrates/pkg/models"
	"github.com/socrates-project/socrates/pkg/queue"
)

const (
	moduleName    = "module_context_enhanced_llm"
	moduleVersion = "1"
)

// AuditRecorder persists a terminal verdict for later review. Wiring one in
// is optional — audit persistence is opt-in per the nilable database config
// section, and a recording failure must never block routing.
type AuditRecorder interface {
	RecordVerdict(ctx context.Context, v AuditVerdictRecord) error
}

// AuditVerdictRecord is the subset of audit.VerdictRecord the pipeline can
// populate from an alert and its verdict, named here so this package does
// not import pkg/audit directly.
type AuditVerdictRecord struct {
	SessionID   string
	BucketKey   string
	Severity    string
	RiskScore   float64
	Verdict     string
	Confidence  float64
	RoutedQueue string
	Summary     string
	RawVerdict  any
}

// Pipeline is the Module 3 stage: pop an investigation-ready alert,
// run the reasoner end to end, annotate, and route to the output or
// manual-review queue.
type Pipeline struct {
	queue             *queue.Queue
	reasoner          *Reasoner
	outputQueue       string
	manualReviewQueue string
	outputMaxlen      int64
	manualReviewMaxlen int64
	auditRecorder     AuditRecorder
}

// PipelineOption configures optional Pipeline behavior.
type PipelineOption func(*Pipeline)

// WithAuditRecorder wires a best-effort audit sink for terminal verdicts.
func WithAuditRecorder(rec AuditRecorder) PipelineOption {
	return func(p *Pipeline) { p.auditRecorder = rec }
}

// NewPipeline assembles a Module 3 Pipeline.
func NewPipeline(q *queue.Queue, reasoner *Reasoner, outputQueue, manualReviewQueue string, outputMaxlen, manualReviewMaxlen int64, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		queue: q, reasoner: reasoner,
		outputQueue: outputQueue, manualReviewQueue: manualReviewQueue,
		outputMaxlen: outputMaxlen, manualReviewMaxlen: manualReviewMaxlen,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle decodes one queued alert payload, investigates it, and pushes it
// onward. Matches the queue.Handler signature so it can drive a
// queue.Runner directly.
func (p *Pipeline) Handle(ctx context.Context, payload string) error {
	var alert map[string]any
	if err := json.Unmarshal([]byte(payload), &alert); err != nil {
		return fmt.Errorf("decode investigation alert: %w", err)
	}

	verdict := p.reasoner.Investigate(ctx, alert)

	annotation := models.InvestigationAnnotation{InvestigationVerdict: verdict, Module: moduleName, Version: moduleVersion}
	alert["module3_investigation"] = annotation
	alert["module"] = moduleName
	alert["version"] = moduleVersion

	out, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal investigated alert: %w", err)
	}

	routedQueue := p.outputQueue
	manualReview := p.reasoner.ShouldManualReview(verdict)
	if manualReview {
		routedQueue = p.manualReviewQueue
	}
	p.recordAudit(ctx, alert, verdict, routedQueue)

	if manualReview {
		return p.queue.Push(ctx, p.manualReviewQueue, string(out), p.manualReviewMaxlen)
	}
	return p.queue.Push(ctx, p.outputQueue, string(out), p.outputMaxlen)
}

// recordAudit best-effort persists the terminal verdict. A failure here
// must never block routing — the queue push already happened or is about
// to happen regardless of audit availability.
func (p *Pipeline) recordAudit(ctx context.Context, alert map[string]any, verdict models.InvestigationVerdict, routedQueue string) {
	if p.auditRecorder == nil {
		return
	}

	bucketKey, _ := alert["bucket_key"].(string)
	if bucketKey == "" {
		bucketKey = fmt.Sprintf("%v|%v|%v|%v", alert["sip"], alert["dip"], alert["proto"], alert["rule_name"])
	}
	var riskScore float64
	if scores, ok := alert["risk_scores"].(map[string]any); ok {
		if fs, ok := scores["final_score"].(float64); ok {
			riskScore = fs
		}
	}

	record := AuditVerdictRecord{
		SessionID:   triageSessionID(bucketKey, alert["last_seen"]),
		BucketKey:   bucketKey,
		Severity:    verdict.Severity,
		RiskScore:   riskScore,
		Verdict:     verdict.Verdict,
		Confidence:  verdict.Confidence,
		RoutedQueue: routedQueue,
		Summary:     verdict.ReasoningSummary,
		RawVerdict:  verdict,
	}
	if err := p.auditRecorder.RecordVerdict(ctx, record); err != nil {
		slog.Error("failed to record audit verdict", "bucket_key", bucketKey, "error", err)
	}
}

// triageSessionID derives a stable identifier for one triage pass over a
// bucket: the closest analogue this domain has to a "session" is the
// aggregation window that produced the alert, so the ID is a hash of the
// bucket key and that window's end, not a freshly generated one.
func triageSessionID(bucketKey string, lastSeen any) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%v", bucketKey, lastSeen)))
	return hex.EncodeToString(sum[:16])
}
