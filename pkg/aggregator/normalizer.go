// Package aggregator implements Module 1: normalization, time-window
// bucketing, and lightweight risk scoring of raw alerts forwarded by the
// receiver.
package aggregator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/socrates-project/socrates/pkg/models"
)

var (
	uuidRE        = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}\b`)
	shaRE         = regexp.MustCompile(`\b[a-fA-F0-9]{40,64}\b`)
	hexTokenRE    = regexp.MustCompile(`\b[0-9a-fA-F]{12,39}\b`)
	base64TokenRE = regexp.MustCompile(`\b[A-Za-z0-9+_-]{16,}={0,2}\b`)
	ipRE          = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	emailRE       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	timestampRE   = regexp.MustCompile(`\b\d{10,13}\b`)
	longNumRE     = regexp.MustCompile(`\b\d{4,}\b`)
	queryKVRE     = regexp.MustCompile(`([?&])([^=&]+)=([^&]*)`)
	multiSlashRE  = regexp.MustCompile(`/{2,}`)
	longSegmentRE = regexp.MustCompile(`^[A-Za-z0-9_-]{20,}$`)
)

var privateSeverityMap = map[string]float64{
	"critical": 1.0,
	"high":     0.8,
	"medium":   0.5,
	"low":      0.2,
	"info":     0.05,
}

// Normalizer converts a RawAlert into a NormalizedAlert, filling in every
// field the aggregator and scorer depend on via an ordered field-path
// fallback chain.
type Normalizer struct {
	clock models.Clock
}

// NewNormalizer builds a Normalizer. A nil clock defaults to the system
// clock.
func NewNormalizer(clock models.Clock) *Normalizer {
	if clock == nil {
		clock = models.SystemClock{}
	}
	return &Normalizer{clock: clock}
}

// Normalize maps a raw alert document onto the pipeline's fixed schema.
func (n *Normalizer) Normalize(raw models.RawAlert) models.NormalizedAlert {
	timestamp := n.parseTimestamp(firstValue(raw, "@timestamp", "timestamp", "time"))
	sip := stringOrDefault(firstValue(raw, "source.ip", "src_ip", "sip"), "unknown_src")
	dip := stringOrDefault(firstValue(raw, "destination.ip", "dst_ip", "dip"), "unknown_dst")
	proto := strings.ToLower(stringOrDefault(firstValue(raw, "network.transport", "proto", "protocol"), "unknown_proto"))
	ruleName := stringOrDefault(firstValue(raw, "rule.name", "rule_name", "signature", "alert.rule"), "unknown_rule")
	logType := stringOrDefault(firstValue(raw, "log_type", "event.dataset", "type", "event.module"), "unknown_log_type")
	uri := stringOrDefault(firstValue(raw, "url.path", "http.request.uri", "uri"), "-")
	uriTemplate := normalizeURI(uri)

	severity := normalizeScore(firstValue(raw, "severity", "rule.severity", "priority"))
	confidence := normalizeScore(firstValue(raw, "confidence", "risk_score", "risk.score"))
	srcExternal := isExternalIP(sip)
	dstSensitive := isSensitiveAsset(raw)

	return models.NormalizedAlert{
		RawID:        deriveRawID(raw, timestamp),
		Timestamp:    timestamp,
		SIP:          sip,
		DIP:          dip,
		Proto:        proto,
		RuleName:     ruleName,
		LogType:      logType,
		URITemplate:  uriTemplate,
		Severity:     severity,
		Confidence:   confidence,
		SrcExternal:  srcExternal,
		DstSensitive: dstSensitive,
		Raw:          raw,
	}
}

func deriveRawID(raw models.RawAlert, timestamp time.Time) string {
	if v, ok := raw.Lookup("event.id"); ok && isNonEmpty(v) {
		return models.LookupStringValue(v)
	}
	if v, ok := raw.Lookup("id"); ok && isNonEmpty(v) {
		return models.LookupStringValue(v)
	}
	if v, ok := raw.Lookup("alert_id"); ok && isNonEmpty(v) {
		return models.LookupStringValue(v)
	}
	if v, ok := raw.Lookup("_id"); ok && isNonEmpty(v) {
		return models.LookupStringValue(v)
	}

	sum := sha256.Sum256([]byte(timestamp.Format(time.RFC3339Nano) + "|" + raw.Stable()))
	return hex.EncodeToString(sum[:])
}

func isNonEmpty(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

func (n *Normalizer) parseTimestamp(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val.UTC()
	case string:
		if val == "" {
			break
		}
		candidate := strings.ReplaceAll(val, "Z", "+00:00")
		if t, err := time.Parse(time.RFC3339Nano, candidate); err == nil {
			return t.UTC()
		}
		if t, err := time.Parse("2006-01-02T15:04:05.999999-07:00", candidate); err == nil {
			return t.UTC()
		}
	}
	return n.clock.Now()
}

func normalizeURI(uri string) string {
	cleaned := strings.TrimSpace(uri)
	if cleaned == "" {
		cleaned = "-"
	}
	cleaned = queryKVRE.ReplaceAllStringFunc(cleaned, replaceQueryValue)
	cleaned = uuidRE.ReplaceAllString(cleaned, "<UUID>")
	cleaned = shaRE.ReplaceAllString(cleaned, "<HASH>")
	cleaned = hexTokenRE.ReplaceAllString(cleaned, "<TOKEN>")
	cleaned = base64TokenRE.ReplaceAllString(cleaned, "<B64TOKEN>")
	cleaned = emailRE.ReplaceAllString(cleaned, "<EMAIL>")
	cleaned = ipRE.ReplaceAllString(cleaned, "<IP>")
	cleaned = timestampRE.ReplaceAllString(cleaned, "<TIMESTAMP>")
	cleaned = longNumRE.ReplaceAllString(cleaned, "<NUM>")
	cleaned = multiSlashRE.ReplaceAllString(cleaned, "/")
	cleaned = replaceLongSegments(cleaned)
	if len(cleaned) > 2048 {
		cleaned = cleaned[:2048]
	}
	return cleaned
}

// replaceLongSegments redacts each '/'-delimited path segment independently
// instead of scanning the whole string with a consuming regex, so two
// adjacent long opaque segments each get their own match rather than the
// first one's match consuming the separating slash and hiding the second
// from the scanner.
func replaceLongSegments(s string) string {
	segments := strings.Split(s, "/")
	for i, seg := range segments {
		if longSegmentRE.MatchString(seg) {
			segments[i] = "<TOKEN>"
		}
	}
	return strings.Join(segments, "/")
}

func replaceQueryValue(match string) string {
	groups := queryKVRE.FindStringSubmatch(match)
	prefix, rawKey, rawValue := groups[1], groups[2], groups[3]
	key := strings.ToLower(rawKey)
	value := strings.TrimSpace(rawValue)
	if value == "" {
		return fmt.Sprintf("%s%s=", prefix, rawKey)
	}
	if containsAny(key, "token", "session", "auth", "passwd", "password", "secret", "sign") {
		return fmt.Sprintf("%s%s=<SECRET>", prefix, rawKey)
	}
	if containsAny(key, "time", "timestamp", "_dc", "ts", "nonce") {
		return fmt.Sprintf("%s%s=<TIMESTAMP>", prefix, rawKey)
	}
	if len(value) >= 24 {
		return fmt.Sprintf("%s%s=<TOKEN>", prefix, rawKey)
	}
	return fmt.Sprintf("%s%s=%s", prefix, rawKey, value)
}

func containsAny(text string, tokens ...string) bool {
	for _, t := range tokens {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func normalizeScore(raw any) float64 {
	if raw == nil {
		return 0.3
	}
	switch v := raw.(type) {
	case string:
		candidate := strings.ToLower(strings.TrimSpace(v))
		if score, ok := privateSeverityMap[candidate]; ok {
			return score
		}
		f, err := strconv.ParseFloat(candidate, 64)
		if err != nil {
			return 0.3
		}
		return clampScore(f)
	case float64:
		return clampScore(v)
	case int:
		return clampScore(float64(v))
	default:
		return 0.3
	}
}

func clampScore(value float64) float64 {
	if value > 1.0 {
		value = value / 100.0
		if value > 1.0 {
			value = 1.0
		}
	}
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func isExternalIP(ipText string) bool {
	ip := net.ParseIP(ipText)
	if ip == nil {
		return false
	}
	return !(ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast())
}

func isSensitiveAsset(raw models.RawAlert) bool {
	candidates := []any{
		firstValue(raw, "asset.criticality", "destination.asset_tier", "asset.tier"),
		firstValue(raw, "destination.tags", "asset.tags"),
	}
	for _, c := range candidates {
		text := strings.ToLower(models.LookupStringValue(c))
		if containsAny(text, "critical", "prod", "payment", "core") {
			return true
		}
	}
	return false
}

func firstValue(raw models.RawAlert, paths ...string) any {
	for _, path := range paths {
		if v, ok := raw.Lookup(path); ok && isNonEmpty(v) {
			return v
		}
	}
	return nil
}

func stringOrDefault(v any, def string) string {
	if v == nil {
		return def
	}
	text := strings.TrimSpace(models.LookupStringValue(v))
	if text == "" {
		return def
	}
	return text
}
