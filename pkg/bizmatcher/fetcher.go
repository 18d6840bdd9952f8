package bizmatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/socrates-project/socrates/pkg/models"
)

// RawAlertFetcher resolves a bucket's reference_uuids back to their
// source raw alert documents, used to re-derive the per-instance feature
// vectors the matcher needs.
type RawAlertFetcher interface {
	FetchByReferenceIDs(ctx context.Context, ids []string) ([]models.RawAlert, error)
}

// ElasticRawAlertFetcher implements RawAlertFetcher against the same raw
// alert index the receiver tails, matching ids against every plausible
// id field a producer might have used.
type ElasticRawAlertFetcher struct {
	client    *elasticsearch.Client
	index     string
	batchSize int
}

// NewElasticRawAlertFetcher builds a fetcher. A nil client disables
// fetching entirely (every call returns no results), matching the
// reference implementation's "feature disabled" mode.
func NewElasticRawAlertFetcher(client *elasticsearch.Client, index string, batchSize int) *ElasticRawAlertFetcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ElasticRawAlertFetcher{client: client, index: index, batchSize: batchSize}
}

// FetchByReferenceIDs looks up raw alerts in batches, tolerating
// per-batch search failures by skipping that batch and continuing —
// a partial-results-over-total-failure tradeoff carried over unchanged
// from the reference implementation.
func (f *ElasticRawAlertFetcher) FetchByReferenceIDs(ctx context.Context, ids []string) ([]models.RawAlert, error) {
	if f.client == nil || len(ids) == 0 {
		return nil, nil
	}

	var results []models.RawAlert
	for offset := 0; offset < len(ids); offset += f.batchSize {
		end := offset + f.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[offset:end]

		hits, err := f.searchBatch(ctx, batch)
		if err != nil {
			slog.Warn("reference batch fetch failed, skipping batch", "error", err)
			continue
		}
		results = append(results, hits...)
	}
	return results, nil
}

func (f *ElasticRawAlertFetcher) searchBatch(ctx context.Context, batch []string) ([]models.RawAlert, error) {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"should": []map[string]any{
					{"terms": map[string]any{"event.id": batch}},
					{"terms": map[string]any{"id": batch}},
					{"terms": map[string]any{"alert_id": batch}},
					{"ids": map[string]any{"values": batch}},
				},
				"minimum_should_match": 1,
			},
		},
		"size": len(batch),
	}
	encoded, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := esapi.SearchRequest{
		Index: []string{f.index},
		Body:  bytes.NewReader(encoded),
	}.Do(ctx, f.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("es search %s", res.Status())
	}

	var decoded struct {
		Hits struct {
			Hits []struct {
				Source models.RawAlert `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	out := make([]models.RawAlert, 0, len(decoded.Hits.Hits))
	for _, h := range decoded.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
