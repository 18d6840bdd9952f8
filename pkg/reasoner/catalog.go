// Package reasoner implements Module 3: the investigation reasoner that
// plans tool calls, dispatches them through the retrieval orchestrator,
// summarizes each result, and reasons to a final verdict.
package reasoner

// ToolSpec describes one callable tool for the planning prompt: its name,
// a human-readable description, and a JSON-schema-shaped argument
// description the LLM is shown verbatim.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	ArgsSchema  map[string]any `json:"args_schema"`
}

// internalLogSearchTools names the five index-search tools dispatched
// through InternalTools' Elasticsearch family, as opposed to get_cmdb_asset
// (also internal, but an HTTP lookup, not an index search).
var internalLogSearchTools = map[string]bool{
	"search_waf_logs":           true,
	"search_tianyan_alarm_logs": true,
	"search_zhongzi_logs":       true,
	"search_nginx_logs":         true,
	"search_huorong_logs":       true,
}

func queryArgsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "object", "description": "Elasticsearch DSL query"},
			"size":  map[string]any{"type": "integer", "minimum": 1, "maximum": 200},
		},
		"required": []string{"query"},
	}
}

// BuildToolSpecs returns the fixed catalog of 8 tools available to the
// planner, in a stable order so prompts render deterministically.
func BuildToolSpecs() []ToolSpec {
	query := queryArgsSchema()
	ipSchema := func() map[string]any {
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{"ip": map[string]any{"type": "string"}},
			"required":   []string{"ip"},
		}
	}
	return []ToolSpec{
		{"search_waf_logs", "Search WAF logs using Elasticsearch DSL.", query},
		{"search_tianyan_alarm_logs", "Search Tianyan-Alarm logs using Elasticsearch DSL.", query},
		{"search_zhongzi_logs", "Search Zhongzi logs using Elasticsearch DSL.", query},
		{"search_nginx_logs", "Search Nginx logs using Elasticsearch DSL.", query},
		{"search_huorong_logs", "Search Huorong logs using Elasticsearch DSL.", query},
		{"get_cmdb_asset", "Query CMDB asset info by IP.", ipSchema()},
		{"virustotal_ip_reputation", "Query VirusTotal IP reputation.", ipSchema()},
		{"cve_search", "Query CVE details by keyword or CVE ID.", map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		}},
	}
}

// allowedToolNames is the set a planner-proposed tool call must belong to.
func allowedToolNames() map[string]bool {
	out := make(map[string]bool)
	for _, spec := range BuildToolSpecs() {
		out[spec.Name] = true
	}
	return out
}
