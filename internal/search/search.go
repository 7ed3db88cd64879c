// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search runs one language-tagged query against a metasearch
// backend. Search never fails: backend errors and timeouts yield an empty
// result set and a warning.
package search

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/pdiddy/bilingual-research/pkg/types"
)

// DefaultTimeout bounds a single backend call when the config sets none.
const DefaultTimeout = 30 * time.Second

// Default engine lists per language.
var (
	DefaultEnginesZh = []string{"baidu", "so", "google"}
	DefaultEnginesEn = []string{"google", "bing", "duckduckgo"}
)

// Backend is a metasearch service.
type Backend interface {
	Name() string
	Search(ctx context.Context, req Request) ([]types.SearchResult, error)
	Ping(ctx context.Context) error
}

// Request is one backend query.
type Request struct {
	Query    string
	Language types.Language
	Engines  []string

	// MaxResults caps the returned results; zero uses the backend default.
	MaxResults int
}

// Executor tags backend results with language and round.
type Executor struct {
	backend Backend
	cfg     types.SearchConfig
	logger  *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor returns an executor over backend. Empty engine lists in cfg
// take the package defaults.
func NewExecutor(backend Backend, cfg types.SearchConfig, opts ...Option) *Executor {
	if len(cfg.EnginesZh) == 0 {
		cfg.EnginesZh = DefaultEnginesZh
	}
	if len(cfg.EnginesEn) == 0 {
		cfg.EnginesEn = DefaultEnginesEn
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	e := &Executor{
		backend: backend,
		cfg:     cfg,
		logger:  slog.Default().With("component", "search"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search queries the backend with the engine list for lang and tags every
// result with lang and round. Any failure returns an empty slice.
func (e *Executor) Search(ctx context.Context, query string, lang types.Language, round int) []types.SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return []types.SearchResult{}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	results, err := e.backend.Search(ctx, Request{
		Query:      query,
		Language:   lang,
		Engines:    e.cfg.Engines(lang),
		MaxResults: e.cfg.MaxResults,
	})
	if err != nil {
		e.logger.Warn("search backend failed",
			"backend", e.backend.Name(), "language", lang, "round", round, "err", err)
		return []types.SearchResult{}
	}

	out := make([]types.SearchResult, 0, len(results))
	for _, r := range results {
		r.Language = lang
		r.QueryType = lang
		r.Round = round
		r.RawRelevance = clamp01(r.RawRelevance)
		out = append(out, r)
	}
	e.logger.Debug("search complete", "language", lang, "round", round, "results", len(out))
	return out
}

// Ping reports whether the backend is reachable.
func (e *Executor) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	return e.backend.Ping(ctx)
}

// Peak returns the highest raw relevance in results, or zero when empty.
func Peak(results []types.SearchResult) float64 {
	var peak float64
	for _, r := range results {
		if r.RawRelevance > peak {
			peak = r.RawRelevance
		}
	}
	return peak
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
