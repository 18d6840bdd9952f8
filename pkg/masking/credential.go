package masking

import (
	"encoding/json"
	"strings"
)

// MaskedCredentialValue replaces the value of any JSON field whose key
// looks like a credential.
const MaskedCredentialValue = "[MASKED_CREDENTIAL]"

var credentialKeyHints = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey",
	"private_key", "access_key", "auth", "credential",
}

// CredentialFieldMasker walks a JSON object (as produced by any of the
// reasoner's tool clients) and masks the value of any field whose key
// looks credential-shaped, regardless of nesting depth. It is the
// structural counterpart to the regex sweep in pattern.go — it catches
// short, low-entropy secrets a generic regex would miss.
type CredentialFieldMasker struct{}

// Name returns the unique identifier for this masker.
func (m *CredentialFieldMasker) Name() string { return "credential_field" }

// AppliesTo is a fast pre-check: does the data look like JSON and mention
// any credential-shaped key at all.
func (m *CredentialFieldMasker) AppliesTo(data string) bool {
	trimmed := strings.TrimSpace(data)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	lower := strings.ToLower(data)
	for _, hint := range credentialKeyHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// Mask parses the JSON value, masks credential-shaped fields recursively,
// and re-serializes. Returns the original data unchanged on any parse
// error (defensive: masking must never corrupt a tool result).
func (m *CredentialFieldMasker) Mask(data string) string {
	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return data
	}

	maskValue(v)

	out, err := json.Marshal(v)
	if err != nil {
		return data
	}
	return string(out)
}

func maskValue(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if looksLikeCredentialKey(k) {
				if _, isString := val.(string); isString {
					t[k] = MaskedCredentialValue
					continue
				}
			}
			maskValue(val)
		}
	case []any:
		for _, item := range t {
			maskValue(item)
		}
	}
}

func looksLikeCredentialKey(key string) bool {
	lower := strings.ToLower(key)
	for _, hint := range credentialKeyHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
