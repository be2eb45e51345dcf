// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve is the Retrieval Port: it queries a web search backend
// and returns ranked source records. An unreachable or unconfigured
// backend degrades to an empty result set rather than an error, so the
// workflow proceeds with reduced literature coverage instead of aborting.
// Implements: prd009-retrieval (R1-R5);
//
//	docs/ARCHITECTURE § Retrieval Port.
package retrieve

import (
	"context"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// Backend searches the web for a query. Implementations must return an
// empty SearchResponse (not an error) when the service is unreachable or
// no API key is configured. Per prd009-retrieval R1.4.
type Backend interface {
	Search(ctx context.Context, query string, maxResults int, includeRaw bool) (types.SearchResponse, error)
}

// Static is a test backend returning a fixed result set for every query.
type Static struct {
	Results []types.SourceRecord
	Queries []string
}

// Search records the query and returns the fixed results.
func (s *Static) Search(_ context.Context, query string, maxResults int, _ bool) (types.SearchResponse, error) {
	s.Queries = append(s.Queries, query)
	results := s.Results
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return types.SearchResponse{Query: query, Results: results}, nil
}
