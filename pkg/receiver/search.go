// Package receiver implements the pipeline's entry stage: a tailing reader
// over the raw alert index that forwards each document onto the Module 1
// input queue, in arrival order, without loss on transient search errors.
package receiver

import (
	"context"
)

// Hit is one matched document: its source body plus the sort values used
// to resume the scan after it (Elasticsearch's search_after cursor).
type Hit struct {
	Source map[string]any
	Sort   []any
}

// SearchRequest describes one search_after page.
type SearchRequest struct {
	Index       string
	Query       map[string]any
	Sort        []map[string]string
	Size        int
	SearchAfter []any
}

// SearchResponse is the decoded page of hits.
type SearchResponse struct {
	Hits []Hit
}

// IndexSearcher is the narrow interface the receiver needs from a search
// backend. ElasticsearchSearcher is the production implementation; tests
// substitute a fake.
type IndexSearcher interface {
	Search(ctx context.Context, req SearchRequest) (SearchResponse, error)
}
