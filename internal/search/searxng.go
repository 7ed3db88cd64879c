// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/bilingual-research/internal/httputil"
	"github.com/pdiddy/bilingual-research/pkg/types"
)

// DefaultSearXNGEndpoint is used when the config names no endpoint.
const DefaultSearXNGEndpoint = "http://localhost:8080/search"

const defaultSearXNGMaxResults = 20

// SearXNGBackend queries a SearXNG instance through its JSON API.
type SearXNGBackend struct {
	Client     *http.Client
	Endpoint   string
	UserAgent  string
	MaxRetries int
}

// NewSearXNGBackend builds a backend from cfg.
func NewSearXNGBackend(cfg types.SearchConfig) *SearXNGBackend {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultSearXNGEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SearXNGBackend{
		Client:     &http.Client{Timeout: timeout},
		Endpoint:   endpoint,
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
	}
}

// Name returns the backend identifier.
func (b *SearXNGBackend) Name() string { return "searxng" }

// Search issues GET <endpoint>?q=&format=json&language=&engines= and maps
// the response. Relevance is the engine score divided by the response's
// highest score; when no result carries a score it falls back to rank
// position.
func (b *SearXNGBackend) Search(ctx context.Context, req Request) ([]types.SearchResult, error) {
	params := url.Values{
		"q":        {req.Query},
		"format":   {"json"},
		"language": {string(req.Language)},
	}
	if len(req.Engines) > 0 {
		params.Set("engines", strings.Join(req.Engines, ","))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if b.UserAgent != "" {
		httpReq.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, httpReq, b.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("SearXNG request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SearXNG returned HTTP %d", resp.StatusCode)
	}

	var sr searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing SearXNG response: %w", err)
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = defaultSearXNGMaxResults
	}
	hits := sr.Results
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}

	var maxScore float64
	for _, h := range hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}

	total := len(hits)
	results := make([]types.SearchResult, 0, total)
	for i, h := range hits {
		r := types.SearchResult{
			Title:   strings.TrimSpace(h.Title),
			URL:     strings.TrimSpace(h.URL),
			Snippet: strings.TrimSpace(h.Content),
			Engine:  h.Engine,
		}
		switch {
		case maxScore > 0:
			r.RawRelevance = h.Score / maxScore
		case total > 1:
			r.RawRelevance = 1.0 - float64(i)/float64(total-1)*0.9
		default:
			r.RawRelevance = 1.0
		}
		results = append(results, r)
	}
	return results, nil
}

// Ping requests the instance's /config document.
func (b *SearXNGBackend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, configURL(b.Endpoint), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("SearXNG health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("SearXNG health check returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// configURL maps the search endpoint to the instance's /config URL.
func configURL(endpoint string) string {
	base := strings.TrimRight(endpoint, "/")
	base = strings.TrimSuffix(base, "/search")
	return base + "/config"
}

// SearXNG JSON structures.
type searxngResponse struct {
	Query   string          `json:"query"`
	Results []searxngResult `json:"results"`
}

type searxngResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Engine  string  `json:"engine"`
	Score   float64 `json:"score"`
}
