package reasoner

import (
	"context"
	"strings"
)

// MockLLM is a deterministic LLM stand-in for tests: GenerateJSON returns
// a canned response keyed by a substring match against the prompt, falling
// back to the caller's fallback (or a default) when nothing matches.
type MockLLM struct {
	Responses []MockResponse
	Text      string
}

// MockResponse pairs a prompt substring with the JSON object to return
// when that substring is found.
type MockResponse struct {
	Contains string
	Result   map[string]any
}

// GenerateText returns the configured canned text, or an empty string.
func (m *MockLLM) GenerateText(ctx context.Context, prompt string) (string, error) {
	return m.Text, nil
}

// GenerateJSON returns the first matching canned response, or fallback.
func (m *MockLLM) GenerateJSON(ctx context.Context, prompt string, fallback map[string]any) map[string]any {
	for _, r := range m.Responses {
		if r.Contains == "" || strings.Contains(prompt, r.Contains) {
			return r.Result
		}
	}
	return fallback
}
