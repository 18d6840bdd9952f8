package reasoner

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/socrates-project/socrates/pkg/models"
)

// planToolCalls asks the LLM to produce a tool-call plan for alert,
// rendering the full tool catalog into the prompt. Returns nil (not an
// error) if the LLM's plan is empty, malformed, or entirely filtered out
// by the allowed-tool-name check — callers fall back to the deterministic
// plan in that case.
func (r *Reasoner) planToolCalls(ctx context.Context, alertBrief map[string]any) []models.ToolCall {
	specs := BuildToolSpecs()
	specsJSON, _ := json.Marshal(specs)
	briefJSON, _ := json.Marshal(alertBrief)

	prompt := r.prompts.System + "\n\n" + r.prompts.Planning + "\n\n" +
		"ALERT:\n" + string(briefJSON) + "\n\n" +
		"TOOLS:\n" + string(specsJSON) + "\n"

	fallback := map[string]any{"tool_calls": []any{}}
	planJSON := r.llm.GenerateJSON(ctx, prompt, fallback)

	rawCalls, ok := planJSON["tool_calls"].([]any)
	if !ok {
		return nil
	}

	allowed := allowedToolNames()
	var calls []models.ToolCall
	for _, item := range rawCalls {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := strings.TrimSpace(stringArg(m["tool"]))
		if !allowed[name] {
			continue
		}
		args, _ := m["args"].(map[string]any)
		if args == nil {
			args = map[string]any{}
		}
		calls = append(calls, models.ToolCall{
			Tool:      name,
			Args:      args,
			Rationale: stringArg(m["rationale"]),
		})
	}
	return calls
}

// fallbackToolCalls is the deterministic plan used when the LLM produces
// no usable tool calls: CMDB on dip, VirusTotal reputation on sip, a WAF
// search scoped to rule_name (or match_all), and cve_search appended only
// when rule_name looks like a CVE identifier.
func fallbackToolCalls(alertBrief map[string]any) []models.ToolCall {
	sip := strings.TrimSpace(stringArg(alertBrief["sip"]))
	dip := strings.TrimSpace(stringArg(alertBrief["dip"]))
	ruleName := strings.TrimSpace(stringArg(alertBrief["rule_name"]))

	var calls []models.ToolCall
	if dip != "" {
		calls = append(calls, models.ToolCall{Tool: "get_cmdb_asset", Args: map[string]any{"ip": dip}, Rationale: "asset context"})
	}
	if sip != "" {
		calls = append(calls, models.ToolCall{Tool: "virustotal_ip_reputation", Args: map[string]any{"ip": sip}, Rationale: "source reputation"})
	}

	var query map[string]any
	if ruleName != "" {
		query = map[string]any{"bool": map[string]any{"must": []map[string]any{{"match": map[string]any{"rule_name": ruleName}}}}}
	} else {
		query = map[string]any{"match_all": map[string]any{}}
	}
	calls = append(calls, models.ToolCall{Tool: "search_waf_logs", Args: map[string]any{"query": query, "size": 30}, Rationale: "waf context"})

	if ruleName != "" && strings.Contains(strings.ToUpper(ruleName), "CVE-") {
		calls = append(calls, models.ToolCall{Tool: "cve_search", Args: map[string]any{"query": ruleName}, Rationale: "cve enrichment"})
	}
	return calls
}
