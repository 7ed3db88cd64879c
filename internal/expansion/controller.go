// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package expansion runs the adaptive bilingual search rounds. Each round
// searches both languages concurrently, compares their peak relevance, and
// either merges the two result sets with language weighting or broadens the
// dominant language with alternate queries.
package expansion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/bilingual-research/internal/search"
	"github.com/pdiddy/bilingual-research/pkg/types"
)

// Defaults applied by NewController to zero config fields.
const (
	DefaultMaxRounds     = 3
	DefaultHighThreshold = 0.7
	DefaultLowThreshold  = 0.3
	DefaultBalance       = 0.5
	DefaultMergeTopK     = 10
	DefaultMaxAlternates = 3
	DefaultConcurrency   = 2
)

// Searcher runs one language-tagged search. It never fails.
type Searcher interface {
	Search(ctx context.Context, query string, lang types.Language, round int) []types.SearchResult
}

// AlternateGenerator produces alternate phrasings of a query.
type AlternateGenerator interface {
	Alternates(ctx context.Context, query string, lang types.Language, n int) ([]string, error)
}

// Controller drives the round loop. It is safe for concurrent use; each
// Run owns its own SearchState.
type Controller struct {
	searcher Searcher
	alts     AlternateGenerator
	cfg      types.ExpansionConfig
	high     float64
	low      float64
	balance  float64
	pool     *ants.Pool
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController returns a controller. Zero counts and nil thresholds or
// balance take the package defaults. Close releases the expansion worker
// pool.
func NewController(searcher Searcher, alts AlternateGenerator, cfg types.ExpansionConfig, opts ...Option) (*Controller, error) {
	cfg = withDefaults(cfg)
	high, low, balance := *cfg.HighThreshold, *cfg.LowThreshold, *cfg.Balance
	if low > high {
		return nil, fmt.Errorf("expansion low threshold %.2f exceeds high threshold %.2f", low, high)
	}
	if balance < 0 || balance > 1 {
		return nil, fmt.Errorf("expansion balance %.2f outside [0, 1]", balance)
	}

	pool, err := ants.NewPool(cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("creating expansion pool: %w", err)
	}
	c := &Controller{
		searcher: searcher,
		alts:     alts,
		cfg:      cfg,
		high:     high,
		low:      low,
		balance:  balance,
		pool:     pool,
		logger:   slog.Default().With("component", "expansion"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func withDefaults(cfg types.ExpansionConfig) types.ExpansionConfig {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.HighThreshold == nil {
		cfg.HighThreshold = types.Float(DefaultHighThreshold)
	}
	if cfg.LowThreshold == nil {
		cfg.LowThreshold = types.Float(DefaultLowThreshold)
	}
	if cfg.Balance == nil {
		cfg.Balance = types.Float(DefaultBalance)
	}
	if cfg.MergeTopK <= 0 {
		cfg.MergeTopK = DefaultMergeTopK
	}
	if cfg.MaxAlternates <= 0 {
		cfg.MaxAlternates = DefaultMaxAlternates
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return cfg
}

// Config returns the effective configuration.
func (c *Controller) Config() types.ExpansionConfig { return c.cfg }

// Close releases the worker pool.
func (c *Controller) Close() {
	c.pool.Release()
}

// Run executes up to MaxRounds rounds, appending each round's contribution
// to state.Accumulated and its decision to state.Decisions. Every round
// starts from state.ZhQuery and state.EnQuery. A cancelled context stops
// the loop early; results gathered so far are kept.
func (c *Controller) Run(ctx context.Context, state *types.SearchState) []types.SearchResult {
	for round := 0; round < c.cfg.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("stopping expansion early", "round", round, "err", err)
			break
		}
		state.Round = round

		zh, en := c.searchBoth(ctx, state.ZhQuery, state.EnQuery, round)
		decision := types.RoundDecision{
			Round:  round,
			ZhPeak: search.Peak(zh),
			EnPeak: search.Peak(en),
		}
		decision.Action = c.decide(decision.ZhPeak, decision.EnPeak)

		var contributed []types.SearchResult
		switch decision.Action {
		case types.ActionExpandEn:
			contributed, decision.Alternates = c.expand(ctx, state.EnQuery, types.LanguageEn, round)
		case types.ActionExpandZh:
			contributed, decision.Alternates = c.expand(ctx, state.ZhQuery, types.LanguageZh, round)
		default:
			contributed = c.merge(zh, en)
		}

		decision.Contributed = len(contributed)
		state.Accumulated = append(state.Accumulated, contributed...)
		state.Decisions = append(state.Decisions, decision)

		c.logger.Info("round complete",
			"round", round, "zh_peak", decision.ZhPeak, "en_peak", decision.EnPeak,
			"action", decision.Action, "contributed", decision.Contributed)
	}
	return state.Accumulated
}

// decide applies the peak rules in order; the first match wins.
func (c *Controller) decide(zhPeak, enPeak float64) types.RoundAction {
	switch {
	case enPeak > c.high && zhPeak < c.low:
		return types.ActionExpandEn
	case zhPeak > c.high && enPeak < c.low:
		return types.ActionExpandZh
	default:
		return types.ActionMerge
	}
}

// searchBoth runs the zh and en searches for a round concurrently.
func (c *Controller) searchBoth(ctx context.Context, zhQuery, enQuery string, round int) (zh, en []types.SearchResult) {
	var g errgroup.Group
	g.Go(func() error {
		zh = c.searcher.Search(ctx, zhQuery, types.LanguageZh, round)
		return nil
	})
	g.Go(func() error {
		en = c.searcher.Search(ctx, enQuery, types.LanguageEn, round)
		return nil
	})
	_ = g.Wait()
	return zh, en
}

// expand searches up to MaxAlternates alternate queries for lang on the
// worker pool and returns their results in alternate order. When no
// alternates can be generated the round contributes nothing.
func (c *Controller) expand(ctx context.Context, query string, lang types.Language, round int) ([]types.SearchResult, []string) {
	alts, err := c.alts.Alternates(ctx, query, lang, c.cfg.MaxAlternates)
	if err != nil || len(alts) == 0 {
		c.logger.Warn("alternate generation failed, round contributes no results",
			"language", lang, "round", round, "err", err)
		return nil, nil
	}
	if len(alts) > c.cfg.MaxAlternates {
		alts = alts[:c.cfg.MaxAlternates]
	}

	perAlt := make([][]types.SearchResult, len(alts))
	var wg sync.WaitGroup
	for i, alt := range alts {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			perAlt[i] = c.searcher.Search(ctx, alt, lang, round)
		}
		if err := c.pool.Submit(task); err != nil {
			// Pool closed or overloaded: run inline.
			task()
		}
	}
	wg.Wait()

	var out []types.SearchResult
	for _, rs := range perAlt {
		out = append(out, rs...)
	}
	return out, alts
}

// merge keeps the first MergeTopK results per language in backend order,
// labels their source type, and sets the language-adjusted score.
func (c *Controller) merge(zh, en []types.SearchResult) []types.SearchResult {
	zhTop := head(zh, c.cfg.MergeTopK)
	enTop := head(en, c.cfg.MergeTopK)

	out := make([]types.SearchResult, 0, len(zhTop)+len(enTop))
	for _, r := range zhTop {
		adj := r.RawRelevance * c.balance
		r.SourceType = types.SourceWebZh
		r.LanguageAdjustedScore = &adj
		out = append(out, r)
	}
	for _, r := range enTop {
		adj := r.RawRelevance * (1 - c.balance)
		r.SourceType = types.SourceWebEn
		r.LanguageAdjustedScore = &adj
		out = append(out, r)
	}
	return out
}

// head returns the first k results.
func head(results []types.SearchResult, k int) []types.SearchResult {
	if len(results) > k {
		return results[:k]
	}
	return results
}
