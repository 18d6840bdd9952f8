package reasoner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/socrates-project/socrates/pkg/models"
)

// IndexSet names the five internal log indices the orchestrator searches.
type IndexSet struct {
	WAF          string
	TianyanAlarm string
	Zhongzi      string
	Nginx        string
	Huorong      string
}

// InternalTools implements the internally-hosted tool family: five
// Elasticsearch log-search tools sharing one dispatch helper, plus the
// HTTP-backed CMDB asset lookup.
type InternalTools struct {
	esClient    *elasticsearch.Client
	indices     IndexSet
	defaultSize int

	httpClient  *http.Client
	cmdbBaseURL string
	cmdbAPIKey  string
}

// NewInternalTools builds the internal tool family. A nil esClient makes
// every index-search tool return a failed ToolResult instead of panicking.
func NewInternalTools(esClient *elasticsearch.Client, indices IndexSet, defaultSize int, cmdbBaseURL, cmdbAPIKey string, cmdbTimeout time.Duration) *InternalTools {
	if defaultSize <= 0 {
		defaultSize = 50
	}
	return &InternalTools{
		esClient:    esClient,
		indices:     indices,
		defaultSize: defaultSize,
		httpClient:  &http.Client{Timeout: cmdbTimeout},
		cmdbBaseURL: cmdbBaseURL,
		cmdbAPIKey:  cmdbAPIKey,
	}
}

// SearchWAFLogs searches the WAF log index.
func (t *InternalTools) SearchWAFLogs(ctx context.Context, query map[string]any, size int) models.ToolResult {
	return t.searchES(ctx, "search_waf_logs", t.indices.WAF, query, size)
}

// SearchTianyanAlarmLogs searches the Tianyan-Alarm log index.
func (t *InternalTools) SearchTianyanAlarmLogs(ctx context.Context, query map[string]any, size int) models.ToolResult {
	return t.searchES(ctx, "search_tianyan_alarm_logs", t.indices.TianyanAlarm, query, size)
}

// SearchZhongziLogs searches the Zhongzi log index.
func (t *InternalTools) SearchZhongziLogs(ctx context.Context, query map[string]any, size int) models.ToolResult {
	return t.searchES(ctx, "search_zhongzi_logs", t.indices.Zhongzi, query, size)
}

// SearchNginxLogs searches the Nginx log index.
func (t *InternalTools) SearchNginxLogs(ctx context.Context, query map[string]any, size int) models.ToolResult {
	return t.searchES(ctx, "search_nginx_logs", t.indices.Nginx, query, size)
}

// SearchHuorongLogs searches the Huorong log index.
func (t *InternalTools) SearchHuorongLogs(ctx context.Context, query map[string]any, size int) models.ToolResult {
	return t.searchES(ctx, "search_huorong_logs", t.indices.Huorong, query, size)
}

func (t *InternalTools) searchES(ctx context.Context, toolName, index string, query map[string]any, size int) models.ToolResult {
	if size <= 0 {
		size = t.defaultSize
	}
	if size > 200 {
		size = 200
	}
	body := map[string]any{"query": query, "size": size}

	if t.esClient == nil {
		return models.ToolResult{Tool: toolName, Success: false, Query: body, Summary: toolName + " failed.", Error: "elasticsearch client not configured"}
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return models.ToolResult{Tool: toolName, Success: false, Query: body, Summary: toolName + " failed.", Error: err.Error()}
	}

	res, err := esapi.SearchRequest{Index: []string{index}, Body: bytes.NewReader(encoded)}.Do(ctx, t.esClient)
	if err != nil {
		return models.ToolResult{Tool: toolName, Success: false, Query: body, Summary: toolName + " failed.", Error: err.Error()}
	}
	defer res.Body.Close()
	if res.IsError() {
		return models.ToolResult{Tool: toolName, Success: false, Query: body, Summary: toolName + " failed.", Error: fmt.Sprintf("es search %s", res.Status())}
	}

	var decoded struct {
		Hits struct {
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return models.ToolResult{Tool: toolName, Success: false, Query: body, Summary: toolName + " failed.", Error: err.Error()}
	}

	rows := make([]map[string]any, 0, len(decoded.Hits.Hits))
	for _, h := range decoded.Hits.Hits {
		if h.Source != nil {
			rows = append(rows, h.Source)
		}
	}
	return models.ToolResult{
		Tool:    toolName,
		Success: true,
		Query:   body,
		Summary: fmt.Sprintf("%s returned %d rows from index=%s.", toolName, len(rows), index),
		Data:    map[string]any{"total": len(rows), "rows": rows},
	}
}

// GetCMDBAsset queries the CMDB HTTP endpoint for asset metadata about ip.
func (t *InternalTools) GetCMDBAsset(ctx context.Context, ip string) models.ToolResult {
	const toolName = "get_cmdb_asset"
	if t.cmdbBaseURL == "" {
		return models.ToolResult{Tool: toolName, Success: false, Summary: "CMDB base URL is not configured.", Error: "cmdb_base_url_missing"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cmdbBaseURL, nil)
	if err != nil {
		return models.ToolResult{Tool: toolName, Success: false, Query: map[string]any{"ip": ip}, Summary: "CMDB query failed.", Error: err.Error()}
	}
	q := req.URL.Query()
	q.Set("ip", ip)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	if t.cmdbAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.cmdbAPIKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return models.ToolResult{Tool: toolName, Success: false, Query: map[string]any{"ip": ip}, Summary: "CMDB query failed.", Error: err.Error()}
	}
	defer resp.Body.Close()

	data, _ := parseHTTPBody(resp)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	result := models.ToolResult{
		Tool:    toolName,
		Success: ok,
		Query:   map[string]any{"ip": ip},
		Summary: fmt.Sprintf("CMDB query returned status=%d", resp.StatusCode),
		Data:    map[string]any{"status_code": resp.StatusCode, "result": data},
	}
	if !ok {
		result.Error = fmt.Sprintf("http_%d", resp.StatusCode)
	}
	return result
}

// parseHTTPBody decodes a response body as JSON when the content type
// says so, falling back to a truncated raw-text envelope otherwise —
// mirroring the teacher's content-type-sniffing idiom in pkg/runbook.
func parseHTTPBody(resp *http.Response) (any, error) {
	contentType := resp.Header.Get("Content-Type")
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if strings.Contains(contentType, "application/json") {
		var decoded any
		if err := json.Unmarshal(body, &decoded); err == nil {
			return decoded, nil
		}
	}
	text := string(body)
	if len(text) > 4000 {
		text = text[:4000]
	}
	return map[string]any{"raw_text": text}, nil
}
