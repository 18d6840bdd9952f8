package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/socrates-project/socrates/pkg/models"
	"github.com/socrates-project/socrates/pkg/reasoner/tools"
)

// externalCacheTTL bounds how long a VirusTotal/CVE lookup is reused within
// a burst of investigations touching the same IP or CVE ID.
const externalCacheTTL = 5 * time.Minute

// ExternalTools implements the two internet-facing lookups: VirusTotal IP
// reputation and CVE search, both plain HTTP/JSON clients grounded on the
// same content-type-sniffing idiom as InternalTools' CMDB lookup. Responses
// are cached briefly so repeated alerts about the same IP or CVE within a
// burst don't each re-hit the reputation service.
type ExternalTools struct {
	httpClient *http.Client
	vtBaseURL  string
	vtAPIKey   string
	cveBaseURL string
	cveAPIKey  string
	cache      *tools.Cache
}

// NewExternalTools builds the external tool family.
func NewExternalTools(vtBaseURL, vtAPIKey, cveBaseURL, cveAPIKey string, timeout time.Duration) *ExternalTools {
	return &ExternalTools{
		httpClient: &http.Client{Timeout: timeout},
		vtBaseURL:  vtBaseURL,
		vtAPIKey:   vtAPIKey,
		cveBaseURL: cveBaseURL,
		cveAPIKey:  cveAPIKey,
		cache:      tools.NewCache(externalCacheTTL),
	}
}

// VirusTotalIPReputation queries VirusTotal's IP address reputation
// endpoint.
func (t *ExternalTools) VirusTotalIPReputation(ctx context.Context, ip string) models.ToolResult {
	const toolName = "virustotal_ip_reputation"
	url := fmt.Sprintf("%s/ip_addresses/%s", t.vtBaseURL, ip)

	if cached, ok := t.cache.Get(url); ok {
		var result models.ToolResult
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return result
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.ToolResult{Tool: toolName, Success: false, Query: map[string]any{"ip": ip}, Summary: "VirusTotal query failed.", Error: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	if t.vtAPIKey != "" {
		req.Header.Set("X-Apikey", t.vtAPIKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return models.ToolResult{Tool: toolName, Success: false, Query: map[string]any{"ip": ip}, Summary: "VirusTotal query failed.", Error: err.Error()}
	}
	defer resp.Body.Close()

	data, _ := parseHTTPBody(resp)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	result := models.ToolResult{
		Tool:    toolName,
		Success: ok,
		Query:   map[string]any{"ip": ip},
		Summary: fmt.Sprintf("VirusTotal returned status=%d", resp.StatusCode),
		Data:    map[string]any{"status_code": resp.StatusCode, "result": data},
	}
	if !ok {
		result.Error = fmt.Sprintf("http_%d", resp.StatusCode)
	}
	if ok {
		if encoded, err := json.Marshal(result); err == nil {
			t.cache.Set(url, string(encoded))
		}
	}
	return result
}

// CVESearch queries the CVE search endpoint by free-text query or CVE ID.
func (t *ExternalTools) CVESearch(ctx context.Context, query string) models.ToolResult {
	const toolName = "cve_search"
	url := t.cveBaseURL + "/search?q=" + query

	if cached, ok := t.cache.Get(url); ok {
		var result models.ToolResult
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return result
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cveBaseURL+"/search", nil)
	if err != nil {
		return models.ToolResult{Tool: toolName, Success: false, Query: map[string]any{"q": query}, Summary: "CVE query failed.", Error: err.Error()}
	}
	q := req.URL.Query()
	q.Set("q", query)
	req.URL.RawQuery = q.Encode()
	if t.cveAPIKey != "" {
		req.Header.Set("X-Api-Key", t.cveAPIKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return models.ToolResult{Tool: toolName, Success: false, Query: map[string]any{"q": query}, Summary: "CVE query failed.", Error: err.Error()}
	}
	defer resp.Body.Close()

	data, _ := parseHTTPBody(resp)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	result := models.ToolResult{
		Tool:    toolName,
		Success: ok,
		Query:   map[string]any{"q": query},
		Summary: fmt.Sprintf("CVE search returned status=%d", resp.StatusCode),
		Data:    map[string]any{"status_code": resp.StatusCode, "result": data},
	}
	if !ok {
		result.Error = fmt.Sprintf("http_%d", resp.StatusCode)
	}
	if ok {
		if encoded, err := json.Marshal(result); err == nil {
			t.cache.Set(url, string(encoded))
		}
	}
	return result
}
