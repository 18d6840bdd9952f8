package reasoner

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestESClientForReasoner(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

func TestSearchWAFLogsReturnsRows(t *testing.T) {
	client := newTestESClientForReasoner(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hits":{"hits":[{"_source":{"uri":"/a"}},{"_source":{"uri":"/b"}}]}}`))
	})

	tools := NewInternalTools(client, IndexSet{WAF: "waf-*"}, 50, "", "", time.Second)
	result := tools.SearchWAFLogs(t.Context(), map[string]any{"match_all": map[string]any{}}, 0)

	assert.True(t, result.Success)
	data := result.Data.(map[string]any)
	assert.EqualValues(t, 2, data["total"])
}

func TestSearchWAFLogsNilClientFails(t *testing.T) {
	tools := NewInternalTools(nil, IndexSet{WAF: "waf-*"}, 50, "", "", time.Second)
	result := tools.SearchWAFLogs(t.Context(), map[string]any{"match_all": map[string]any{}}, 0)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestGetCMDBAssetMissingBaseURLFails(t *testing.T) {
	tools := NewInternalTools(nil, IndexSet{}, 50, "", "", time.Second)
	result := tools.GetCMDBAsset(t.Context(), "10.0.0.1")
	assert.False(t, result.Success)
	assert.Equal(t, "cmdb_base_url_missing", result.Error)
}

func TestGetCMDBAssetSendsBearerAuthAndParsesJSON(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"owner":"team-a"}`))
	}))
	defer server.Close()

	tools := NewInternalTools(nil, IndexSet{}, 50, server.URL, "secret-token", time.Second)
	result := tools.GetCMDBAsset(t.Context(), "10.0.0.1")

	assert.True(t, result.Success)
	assert.Equal(t, "Bearer secret-token", gotAuth)
}

func TestGetCMDBAssetNonJSONFallsBackToRawText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("plain text body"))
	}))
	defer server.Close()

	tools := NewInternalTools(nil, IndexSet{}, 50, server.URL, "", time.Second)
	result := tools.GetCMDBAsset(t.Context(), "10.0.0.1")

	data := result.Data.(map[string]any)
	inner := data["result"].(map[string]any)
	assert.Equal(t, "plain text body", inner["raw_text"])
}

func TestGetCMDBAssetHTTPErrorStatusIsUnsuccessful(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tools := NewInternalTools(nil, IndexSet{}, 50, server.URL, "", time.Second)
	result := tools.GetCMDBAsset(t.Context(), "10.0.0.1")

	assert.False(t, result.Success)
	assert.Equal(t, "http_404", result.Error)
}
