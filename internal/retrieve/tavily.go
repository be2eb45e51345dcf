// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pdiddy/paper-pipeline/internal/httputil"
	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// tavilyAPIBase is the Tavily search endpoint. Declared as a var so tests
// can substitute an httptest server.
var tavilyAPIBase = "https://api.tavily.com/search"

// TavilyBackend queries the Tavily web search API (R2.1).
type TavilyBackend struct {
	Config types.RetrievalConfig
	Client *http.Client

	// Warnings receives degradation notices. Nil means stderr.
	Warnings *os.File
}

// tavilyRequest is the request body for the Tavily search API.
type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

// tavilyResponse is the response body from the Tavily search API.
type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

// tavilyResult is a single search hit as returned by Tavily.
type tavilyResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	RawContent    string `json:"raw_content"`
	PublishedDate string `json:"published_date"`
}

// Search queries Tavily and maps the hits to SourceRecords. Every failure
// path — missing key, transport error, non-200, bad JSON — returns an
// empty response with a stderr warning so the run degrades instead of
// aborting (R1.4).
func (b *TavilyBackend) Search(ctx context.Context, query string, maxResults int, includeRaw bool) (types.SearchResponse, error) {
	empty := types.SearchResponse{Query: query}

	if b.Config.APIKey == "" {
		b.warn("no tavily API key configured, proceeding without web results")
		return empty, nil
	}

	if maxResults <= 0 {
		maxResults = b.Config.MaxResults
	}
	if maxResults <= 0 {
		maxResults = 3
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:            b.Config.APIKey,
		Query:             query,
		MaxResults:        maxResults,
		IncludeRawContent: includeRaw,
	})
	if err != nil {
		b.warn(fmt.Sprintf("marshaling search request: %v", err))
		return empty, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyAPIBase, bytes.NewReader(body))
	if err != nil {
		b.warn(fmt.Sprintf("creating search request: %v", err))
		return empty, nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", b.Config.UserAgent)

	client := b.Client
	if client == nil {
		client = &http.Client{Timeout: b.timeout()}
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		b.warn(fmt.Sprintf("search request failed: %v", err))
		return empty, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b.warn(fmt.Sprintf("search API returned HTTP %d", resp.StatusCode))
		return empty, nil
	}

	var tResp tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tResp); err != nil {
		b.warn(fmt.Sprintf("parsing search response: %v", err))
		return empty, nil
	}

	out := types.SearchResponse{Query: query}
	for _, r := range tResp.Results {
		if r.URL == "" {
			continue
		}
		out.Results = append(out.Results, types.SourceRecord{
			Title:         r.Title,
			URL:           r.URL,
			Snippet:       r.Content,
			RawContent:    r.RawContent,
			PublishedDate: r.PublishedDate,
		})
	}
	return out, nil
}

func (b *TavilyBackend) timeout() time.Duration {
	if b.Config.Timeout > 0 {
		return b.Config.Timeout
	}
	return 30 * time.Second
}

func (b *TavilyBackend) warn(msg string) {
	w := b.Warnings
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "warning: retrieval: %s\n", msg)
}
