// Package models holds the data types shared across every stage of the
// pipeline: the dynamic raw-alert representation, the normalized alert,
// bucket/snapshot/score types, and the investigation verdict.
package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawAlert is a schemaless mapping of unknown depth, preserved verbatim
// from ingestion through to the final queue consumer. It is represented
// as a recursive dynamic value so normalization and (externally) feature
// extraction can do multi-path lookups without a fixed schema.
type RawAlert map[string]any

// UnmarshalJSON decodes a raw alert straight into the map representation,
// since the wire shape is already exactly "object of arbitrary JSON".
func (r *RawAlert) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*r = m
	return nil
}

// Lookup resolves a dotted path such as "source.ip" against the raw
// alert, first checking a literal top-level key with that exact dotted
// name (some producers flatten paths), then descending through nested
// maps segment by segment. Returns (nil, false) if nothing matches.
func (r RawAlert) Lookup(path string) (any, bool) {
	if v, ok := r[path]; ok {
		return v, true
	}
	return lookupNested(map[string]any(r), strings.Split(path, "."))
}

// LookupFallback tries each path in order, returning the first hit.
func (r RawAlert) LookupFallback(paths ...string) (any, bool) {
	for _, p := range paths {
		if v, ok := r.Lookup(p); ok {
			return v, true
		}
	}
	return nil, false
}

// LookupString is LookupFallback coerced to a trimmed string; returns ""
// when nothing matches or the matched value isn't string-like.
func (r RawAlert) LookupString(paths ...string) string {
	v, ok := r.LookupFallback(paths...)
	if !ok {
		return ""
	}
	return toString(v)
}

// Stable returns a deterministic JSON rendering of the raw alert (keys
// sorted), used as the fallback raw_id hash input when no producer id is
// present.
func (r RawAlert) Stable() string {
	encoded, err := json.Marshal(map[string]any(r))
	if err != nil {
		return ""
	}
	return string(encoded)
}

// LookupStringValue coerces an already-resolved dynamic value (as
// returned by Lookup/LookupFallback) to its trimmed string form.
func LookupStringValue(v any) string {
	return toString(v)
}

func lookupNested(m map[string]any, segments []string) (any, bool) {
	if len(segments) == 0 {
		return nil, false
	}
	v, ok := m[segments[0]]
	if !ok {
		return nil, false
	}
	if len(segments) == 1 {
		return v, true
	}
	next, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return lookupNested(next, segments[1:])
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// ToFloat64 best-effort converts a dynamic value to float64 (JSON numbers
// decode as float64; some producers send numeric strings).
func ToFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ContainsAnyToken reports whether s (case-insensitively) contains any of
// tokens — used by dst_sensitive detection and rule-keyword scoring.
func ContainsAnyToken(s string, tokens ...string) bool {
	lower := strings.ToLower(s)
	for _, t := range tokens {
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
