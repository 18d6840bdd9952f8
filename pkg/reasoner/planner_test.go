package reasoner

import (
	"testing"
	"time"

	"github.com/socrates-project/socrates/pkg/models"
	"github.com/stretchr/testify/assert"
)

func newTestReasoner(llm LLM) *Reasoner {
	return New(llm, PromptBundle{}, nil, nil, models.NewFixedClock(time.Unix(0, 0)), Config{})
}

func TestPlanToolCallsFiltersDisallowedToolNames(t *testing.T) {
	llm := &MockLLM{Responses: []MockResponse{{Contains: "", Result: map[string]any{
		"tool_calls": []any{
			map[string]any{"tool": "search_waf_logs", "args": map[string]any{}},
			map[string]any{"tool": "rm_rf", "args": map[string]any{}},
		},
	}}}}
	r := newTestReasoner(llm)

	calls := r.planToolCalls(t.Context(), map[string]any{"sip": "1.2.3.4"})
	assert.Len(t, calls, 1)
	assert.Equal(t, "search_waf_logs", calls[0].Tool)
}

func TestPlanToolCallsReturnsNilWhenPlanEmpty(t *testing.T) {
	llm := &MockLLM{Responses: []MockResponse{{Contains: "", Result: map[string]any{"tool_calls": []any{}}}}}
	r := newTestReasoner(llm)

	calls := r.planToolCalls(t.Context(), map[string]any{})
	assert.Nil(t, calls)
}

func TestPlanToolCallsReturnsNilWhenAllFilteredOut(t *testing.T) {
	llm := &MockLLM{Responses: []MockResponse{{Contains: "", Result: map[string]any{
		"tool_calls": []any{map[string]any{"tool": "unknown_thing", "args": map[string]any{}}},
	}}}}
	r := newTestReasoner(llm)

	calls := r.planToolCalls(t.Context(), map[string]any{})
	assert.Nil(t, calls)
}

func TestFallbackToolCallsIncludesCMDBAndVirusTotalWhenIPsPresent(t *testing.T) {
	calls := fallbackToolCalls(map[string]any{"sip": "1.1.1.1", "dip": "2.2.2.2"})

	var tools []string
	for _, c := range calls {
		tools = append(tools, c.Tool)
	}
	assert.Contains(t, tools, "get_cmdb_asset")
	assert.Contains(t, tools, "virustotal_ip_reputation")
	assert.Contains(t, tools, "search_waf_logs")
	assert.NotContains(t, tools, "cve_search")
}

func TestFallbackToolCallsOmitsCMDBAndVirusTotalWhenIPsAbsent(t *testing.T) {
	calls := fallbackToolCalls(map[string]any{})

	var tools []string
	for _, c := range calls {
		tools = append(tools, c.Tool)
	}
	assert.NotContains(t, tools, "get_cmdb_asset")
	assert.NotContains(t, tools, "virustotal_ip_reputation")
	assert.Contains(t, tools, "search_waf_logs")
}

func TestFallbackToolCallsAppendsCVESearchOnlyForCVERuleNames(t *testing.T) {
	calls := fallbackToolCalls(map[string]any{"rule_name": "Apache Struts CVE-2017-5638"})

	found := false
	for _, c := range calls {
		if c.Tool == "cve_search" {
			found = true
			assert.Equal(t, "Apache Struts CVE-2017-5638", c.Args["query"])
		}
	}
	assert.True(t, found)
}

func TestFallbackToolCallsSkipsCVESearchForNonCVERuleNames(t *testing.T) {
	calls := fallbackToolCalls(map[string]any{"rule_name": "sql injection attempt"})

	for _, c := range calls {
		assert.NotEqual(t, "cve_search", c.Tool)
	}
}
