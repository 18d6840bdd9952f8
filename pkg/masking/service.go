package masking

import "log/slog"

// Service applies data masking to reasoner tool results and alert
// payloads before either reaches an LLM prompt. Created once at startup
// (singleton); thread-safe and stateless aside from compiled patterns.
type Service struct {
	patterns    []*CompiledPattern
	codeMaskers []Masker
}

// NewService creates a masking service with the built-in regex patterns
// compiled and the structural credential masker registered.
func NewService() *Service {
	s := &Service{
		patterns:    compileBuiltinPatterns(),
		codeMaskers: []Masker{&CredentialFieldMasker{}},
	}

	slog.Info("masking service initialized",
		"patterns", len(s.patterns),
		"code_maskers", len(s.codeMaskers))

	return s
}

// MaskToolResult applies the full masking sweep to a tool result's raw
// content before it is handed to the reasoner's per-tool summarizer.
func (s *Service) MaskToolResult(content string) string {
	return s.apply(content)
}

// MaskAlertData applies the same masking sweep to alert payload data
// before it is logged or persisted.
func (s *Service) MaskAlertData(data string) string {
	return s.apply(data)
}

func (s *Service) apply(content string) string {
	if content == "" {
		return content
	}

	masked := content
	for _, masker := range s.codeMaskers {
		if masker.AppliesTo(masked) {
			masked = masker.Mask(masked)
		}
	}
	for _, pattern := range s.patterns {
		masked = pattern.Regex.ReplaceAllString(masked, pattern.Replacement)
	}
	return masked
}
