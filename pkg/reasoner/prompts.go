package reasoner

import (
	"os"
	"path/filepath"
)

// PromptBundle holds the four prompt fragments the reasoner composes at
// each stage of an investigation.
type PromptBundle struct {
	System      string
	Planning    string
	ToolSummary string
	Final       string
}

// LoadPrompts reads system_prompt.md/planning_prompt.md/tool_summary_prompt.md/
// final_prompt.md from dir, falling back to a built-in default for any file
// that doesn't exist. An empty dir uses the built-in defaults throughout.
func LoadPrompts(dir string) PromptBundle {
	return PromptBundle{
		System:      readOrDefault(dir, "system_prompt.md", defaultSystemPrompt),
		Planning:    readOrDefault(dir, "planning_prompt.md", defaultPlanningPrompt),
		ToolSummary: readOrDefault(dir, "tool_summary_prompt.md", defaultToolSummaryPrompt),
		Final:       readOrDefault(dir, "final_prompt.md", defaultFinalPrompt),
	}
}

func readOrDefault(dir, filename, fallback string) string {
	if dir == "" {
		return fallback
	}
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return fallback
	}
	return string(data)
}

const (
	defaultSystemPrompt = "You are a SOC investigation assistant. Use only provided tools and evidence. " +
		"Avoid speculation. Always output valid JSON when asked."

	defaultPlanningPrompt = `Given ALERT and available TOOLS, produce a JSON object: {"tool_calls":[{"tool":"tool_name","args":{},"rationale":"..."}]}`

	defaultToolSummaryPrompt = `Summarize tool output into concise evidence JSON: {"summary":"...","signals":[{"type":"...","value":"...","confidence":0.0}]}`

	defaultFinalPrompt = `Produce final verdict JSON: {"verdict":"MALICIOUS|BENIGN|SUSPICIOUS|INCONCLUSIVE","severity":"LOW|MEDIUM|HIGH|CRITICAL","confidence":0.0,"reasoning_summary":"...","evidence":[...],"recommended_action":"..."}`
)
