package receiver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchSearcher implements IndexSearcher against a real
// Elasticsearch cluster.
type ElasticsearchSearcher struct {
	client *elasticsearch.Client
}

// NewElasticsearchSearcher wraps an already-configured client.
func NewElasticsearchSearcher(client *elasticsearch.Client) *ElasticsearchSearcher {
	return &ElasticsearchSearcher{client: client}
}

// NewElasticsearchClient builds a client from addresses and optional basic
// auth, mirroring the way every other stage's ES-backed tool connects.
func NewElasticsearchClient(addresses []string, username, password string) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  username,
		Password:  password,
	})
}

type esSearchBody struct {
	Query       map[string]any   `json:"query"`
	Sort        []map[string]string `json:"sort"`
	Size        int              `json:"size"`
	SearchAfter []any            `json:"search_after,omitempty"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
			Sort   []any           `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchSearcher) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	body := esSearchBody{
		Query:       req.Query,
		Sort:        req.Sort,
		Size:        req.Size,
		SearchAfter: req.SearchAfter,
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("encode search body: %w", err)
	}

	res, err := esapi.SearchRequest{
		Index: []string{req.Index},
		Body:  bytes.NewReader(encoded),
	}.Do(ctx, s.client)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("es search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		payload, _ := io.ReadAll(res.Body)
		return SearchResponse{}, fmt.Errorf("es search %s: %s", res.Status(), string(payload))
	}

	var decoded esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return SearchResponse{}, fmt.Errorf("decode es response: %w", err)
	}

	resp := SearchResponse{Hits: make([]Hit, 0, len(decoded.Hits.Hits))}
	for _, h := range decoded.Hits.Hits {
		var source map[string]any
		if err := json.Unmarshal(h.Source, &source); err != nil {
			continue
		}
		resp.Hits = append(resp.Hits, Hit{Source: source, Sort: h.Sort})
	}
	return resp, nil
}
