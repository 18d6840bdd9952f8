package reasoner

import (
	"context"
	"fmt"
	"strings"

	"github.com/socrates-project/socrates/pkg/models"
)

// Orchestrator dispatches one planned tool call to the right collaborator
// and applies the single rows-trim choke point every index-search result
// passes through before reaching the summarizer.
type Orchestrator struct {
	internal         *InternalTools
	external         *ExternalTools
	toolResultMaxRows int
}

// NewOrchestrator builds a retrieval orchestrator.
func NewOrchestrator(internal *InternalTools, external *ExternalTools, toolResultMaxRows int) *Orchestrator {
	if toolResultMaxRows <= 0 {
		toolResultMaxRows = 30
	}
	return &Orchestrator{internal: internal, external: external, toolResultMaxRows: toolResultMaxRows}
}

// Execute dispatches call per the fixed 8-tool catalog, returning a
// uniform ToolResult regardless of which family handled it.
func (o *Orchestrator) Execute(ctx context.Context, call models.ToolCall) models.ToolResult {
	name := call.Tool
	args := call.Args

	if internalLogSearchTools[name] {
		query, _ := args["query"].(map[string]any)
		if query == nil {
			query = map[string]any{"match_all": map[string]any{}}
		}
		size := intArg(args["size"])
		return o.trimRows(o.dispatchLogSearch(ctx, name, query, size))
	}

	switch name {
	case "get_cmdb_asset":
		ip := strings.TrimSpace(stringArg(args["ip"]))
		if ip == "" {
			return models.ToolResult{Tool: name, Success: false, Summary: "Missing ip argument.", Error: models.ErrMissingIP}
		}
		return o.internal.GetCMDBAsset(ctx, ip)

	case "virustotal_ip_reputation":
		ip := strings.TrimSpace(stringArg(args["ip"]))
		if ip == "" {
			return models.ToolResult{Tool: name, Success: false, Summary: "Missing ip argument.", Error: models.ErrMissingIP}
		}
		return o.external.VirusTotalIPReputation(ctx, ip)

	case "cve_search":
		query := strings.TrimSpace(stringArg(args["query"]))
		if query == "" {
			return models.ToolResult{Tool: name, Success: false, Summary: "Missing query argument.", Error: models.ErrMissingQuery}
		}
		return o.external.CVESearch(ctx, query)

	default:
		return models.ToolResult{Tool: name, Success: false, Summary: fmt.Sprintf("Unknown tool: %s", name), Error: models.ErrUnknownTool}
	}
}

func (o *Orchestrator) dispatchLogSearch(ctx context.Context, name string, query map[string]any, size int) models.ToolResult {
	switch name {
	case "search_waf_logs":
		return o.internal.SearchWAFLogs(ctx, query, size)
	case "search_tianyan_alarm_logs":
		return o.internal.SearchTianyanAlarmLogs(ctx, query, size)
	case "search_zhongzi_logs":
		return o.internal.SearchZhongziLogs(ctx, query, size)
	case "search_nginx_logs":
		return o.internal.SearchNginxLogs(ctx, query, size)
	case "search_huorong_logs":
		return o.internal.SearchHuorongLogs(ctx, query, size)
	default:
		return models.ToolResult{Tool: name, Success: false, Summary: fmt.Sprintf("Unknown tool: %s", name), Error: models.ErrUnknownTool}
	}
}

// trimRows caps any index-search result's row count at
// toolResultMaxRows, recording that it did so — the single choke point
// every internal log search passes through.
func (o *Orchestrator) trimRows(result models.ToolResult) models.ToolResult {
	data, ok := result.Data.(map[string]any)
	if !ok {
		return result
	}
	rows, ok := data["rows"].([]map[string]any)
	if !ok || len(rows) <= o.toolResultMaxRows {
		return result
	}
	trimmedFrom := len(rows)
	data["rows"] = rows[:o.toolResultMaxRows]
	data["trimmed"] = true
	data["trimmed_from"] = trimmedFrom
	result.Data = data
	return result
}

func stringArg(v any) string {
	s, _ := v.(string)
	return s
}

func intArg(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	default:
		return 0
	}
}
