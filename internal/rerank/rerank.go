// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rerank re-orders fused results by model relevance and can thin
// out near-duplicate snippets.
package rerank

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pdiddy/bilingual-research/internal/provider"
	"github.com/pdiddy/bilingual-research/pkg/types"
)

// DefaultDiversityThreshold is the snippet similarity above which Diversify
// drops a result.
const DefaultDiversityThreshold = 0.7

// Service reranks results through a provider router.
type Service struct {
	reranker provider.Reranker
	opts     []provider.CallOption
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCallOptions applies routing options to every rerank call.
func WithCallOptions(opts ...provider.CallOption) Option {
	return func(s *Service) { s.opts = append(s.opts, opts...) }
}

// NewService returns a rerank service over r.
func NewService(r provider.Reranker, opts ...Option) *Service {
	s := &Service{
		reranker: r,
		logger:   slog.Default().With("component", "rerank"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rerank orders results by relevance to query and keeps at most topK
// (all when topK <= 0). Each kept result carries its RerankScore. On any
// failure the input order is kept, truncated to topK.
func (s *Service) Rerank(ctx context.Context, query string, results []types.SearchResult, topK int) []types.SearchResult {
	if topK <= 0 || topK > len(results) {
		topK = len(results)
	}
	if len(results) == 0 {
		return results
	}

	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = document(r)
	}

	ranked, err := s.reranker.Rerank(ctx, types.TaskRerank, query, docs, topK, s.opts...)
	if err != nil {
		s.logger.Warn("rerank failed, keeping fused order", "err", err)
		return results[:topK]
	}

	out := make([]types.SearchResult, 0, len(ranked))
	for _, rk := range ranked {
		if rk.Index < 0 || rk.Index >= len(results) {
			continue
		}
		r := results[rk.Index]
		score := rk.Score
		r.RerankScore = &score
		out = append(out, r)
	}
	if len(out) == 0 {
		return results[:topK]
	}
	return out
}

func document(r types.SearchResult) string {
	switch {
	case r.Snippet == "":
		return r.Title
	case r.Title == "":
		return r.Snippet
	default:
		return r.Title + "\n" + r.Snippet
	}
}

// Diversify drops any result whose snippet word overlap (Jaccard) with an
// already kept result exceeds threshold. Order is preserved. A threshold
// outside (0, 1] uses DefaultDiversityThreshold.
func Diversify(results []types.SearchResult, threshold float64) []types.SearchResult {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultDiversityThreshold
	}
	var kept []types.SearchResult
	var keptWords []map[string]struct{}
	for _, r := range results {
		words := wordSet(document(r))
		dup := false
		for _, other := range keptWords {
			if jaccard(words, other) > threshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, r)
		keptWords = append(keptWords, words)
	}
	return kept
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
