package bizmatcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/socrates-project/socrates/pkg/models"
	"github.com/socrates-project/socrates/pkg/queue"
)

const (
	moduleName    = "module_business_logic_self_learning"
	moduleVersion = "1"
)

// Pipeline is the Module 2 stage: pop an aggregated alert, fetch its
// constituent raw alerts, evaluate the matcher, annotate, and route to
// the output or suppressed queue.
type Pipeline struct {
	queue           *queue.Queue
	matcher         *Matcher
	fetcher         RawAlertFetcher
	outputQueue     string
	suppressedQueue string
	outputMaxlen    int64
	suppressedMaxlen int64
}

// NewPipeline assembles a Module 2 Pipeline.
func NewPipeline(q *queue.Queue, matcher *Matcher, fetcher RawAlertFetcher, outputQueue, suppressedQueue string, outputMaxlen, suppressedMaxlen int64) *Pipeline {
	return &Pipeline{
		queue: q, matcher: matcher, fetcher: fetcher,
		outputQueue: outputQueue, suppressedQueue: suppressedQueue,
		outputMaxlen: outputMaxlen, suppressedMaxlen: suppressedMaxlen,
	}
}

// Handle decodes one queued aggregated alert payload, evaluates it, and
// pushes it onward. Matches the queue.Handler signature so it can drive
// a queue.Runner directly.
func (p *Pipeline) Handle(ctx context.Context, payload string) error {
	var aggregated models.AggregatedAlert
	var rawPayload map[string]any
	if err := json.Unmarshal([]byte(payload), &rawPayload); err != nil {
		return fmt.Errorf("decode aggregated alert envelope: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &aggregated); err != nil {
		return fmt.Errorf("decode aggregated alert: %w", err)
	}

	rawAlerts, err := p.fetcher.FetchByReferenceIDs(ctx, aggregated.ReferenceUUIDs)
	if err != nil {
		return fmt.Errorf("fetch reference raw alerts: %w", err)
	}
	if len(rawAlerts) == 0 {
		rawAlerts = []models.RawAlert{fallbackRawAlert(aggregated)}
	}

	context := models.RawAlert(rawPayload)
	decision := p.matcher.Evaluate(aggregated, context, rawAlerts)
	decision.FetchedInstanceCount = len(rawAlerts)

	annotation := models.MatchAnnotation{MatchDecision: decision, Module: moduleName, Version: moduleVersion}
	rawPayload["module2_business_match"] = annotation

	out, err := json.Marshal(rawPayload)
	if err != nil {
		return fmt.Errorf("marshal annotated alert: %w", err)
	}

	if decision.IsBusinessFalsePositive {
		return p.queue.Push(ctx, p.suppressedQueue, string(out), p.suppressedMaxlen)
	}
	return p.queue.Push(ctx, p.outputQueue, string(out), p.outputMaxlen)
}

func fallbackRawAlert(aggregated models.AggregatedAlert) models.RawAlert {
	return models.RawAlert{
		"@timestamp":     aggregated.LastSeen,
		"source":         map[string]any{"ip": aggregated.SIP},
		"destination":    map[string]any{"ip": aggregated.DIP},
		"proto":          aggregated.Proto,
		"rule_name":      aggregated.RuleName,
		"log_type":       aggregated.LogType,
		"uri_template":   aggregated.URITemplate,
		"reference_uuids": aggregated.ReferenceUUIDs,
	}
}
