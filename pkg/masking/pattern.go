package masking

import "regexp"

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// builtinPatterns is the fixed sweep of regex patterns applied to every tool
// result before it reaches an LLM call, covering the credential/token shapes
// most likely to show up in raw WAF/CMDB/log rows.
var builtinPatterns = []CompiledPattern{
	{Name: "bearer_token", Regex: regexp.MustCompile(`(?i)bearer\s+[a-z0-9._-]{10,}`), Replacement: "Bearer [MASKED]"},
	{Name: "api_key_assignment", Regex: regexp.MustCompile(`(?i)(api[_-]?key|secret|passwd|password)\s*[:=]\s*"?[^\s",}]{6,}"?`), Replacement: "$1=[MASKED]"},
	{Name: "aws_access_key", Regex: regexp.MustCompile(`AKIA[0-9A-Z]{16}`), Replacement: "[MASKED_AWS_KEY]"},
	{Name: "private_key_block", Regex: regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]+?-----END [A-Z ]*PRIVATE KEY-----`), Replacement: "[MASKED_PRIVATE_KEY]"},
	{Name: "jwt", Regex: regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`), Replacement: "[MASKED_JWT]"},
}

func compileBuiltinPatterns() []*CompiledPattern {
	out := make([]*CompiledPattern, len(builtinPatterns))
	for i := range builtinPatterns {
		p := builtinPatterns[i]
		out[i] = &p
	}
	return out
}
