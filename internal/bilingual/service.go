// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bilingual wires the pipeline stages into one research call:
// classify the query, prepare a Chinese and an English query, run the
// adaptive expansion rounds, fuse, and optionally rerank.
package bilingual

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/bilingual-research/internal/expansion"
	"github.com/pdiddy/bilingual-research/internal/fusion"
	"github.com/pdiddy/bilingual-research/internal/lang"
	"github.com/pdiddy/bilingual-research/internal/provider"
	"github.com/pdiddy/bilingual-research/internal/query"
	"github.com/pdiddy/bilingual-research/internal/rerank"
	"github.com/pdiddy/bilingual-research/internal/search"
	"github.com/pdiddy/bilingual-research/pkg/types"
)

// ErrEmptyQuery is returned by Run for a blank query. It is input
// validation done before any stage runs; callers such as the CLI reject
// blank queries first.
var ErrEmptyQuery = errors.New("query is empty")

// Health status values.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Service runs bilingual research queries. It is safe for concurrent use.
type Service struct {
	cfg        types.PipelineConfig
	router     *provider.Router
	executor   *search.Executor
	preparer   *query.Preparer
	controller *expansion.Controller
	reranker   *rerank.Service
	callOpts   []provider.CallOption
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*settings)

type settings struct {
	logger   *slog.Logger
	provider string
}

// WithLogger sets the logger handed to every stage.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProvider routes every model call to the named provider.
func WithProvider(name string) Option {
	return func(s *settings) { s.provider = name }
}

// New builds a service over a provider router and a search backend.
func New(cfg types.PipelineConfig, router *provider.Router, backend search.Backend, opts ...Option) (*Service, error) {
	st := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&st)
	}
	var callOpts []provider.CallOption
	if st.provider != "" {
		callOpts = append(callOpts, provider.WithProvider(st.provider))
	}

	executor := search.NewExecutor(backend, cfg.Search,
		search.WithLogger(st.logger.With("component", "search")))
	preparer := query.NewPreparer(router,
		query.WithCallOptions(callOpts...),
		query.WithLogger(st.logger.With("component", "query-preparer")))
	controller, err := expansion.NewController(executor, preparer, cfg.Expansion,
		expansion.WithLogger(st.logger.With("component", "expansion")))
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:        cfg,
		router:     router,
		executor:   executor,
		preparer:   preparer,
		controller: controller,
		reranker: rerank.NewService(router,
			rerank.WithCallOptions(callOpts...),
			rerank.WithLogger(st.logger.With("component", "rerank"))),
		callOpts: callOpts,
		logger:   st.logger.With("component", "bilingual"),
	}, nil
}

// Close releases the expansion worker pool.
func (s *Service) Close() {
	s.controller.Close()
}

// Preparer exposes the query preparer for standalone rewrite calls.
func (s *Service) Preparer() *query.Preparer { return s.preparer }

// Run answers query. Model and search failures degrade the output instead
// of failing; only a blank query or a routing ConfigurationError is
// returned as an error.
func (s *Service) Run(ctx context.Context, q string) (*types.Output, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	if err := s.checkRouting(); err != nil {
		return nil, err
	}

	detected := lang.Classify(q)
	state := &types.SearchState{OriginalQuery: q, DetectedLanguage: detected}

	var g errgroup.Group
	g.Go(func() error {
		state.ZhQuery = s.preparer.Prepare(ctx, q, detected, types.LanguageZh)
		return nil
	})
	g.Go(func() error {
		state.EnQuery = s.preparer.Prepare(ctx, q, detected, types.LanguageEn)
		return nil
	})
	_ = g.Wait()

	s.logger.Info("queries prepared",
		"detected", detected, "zh_query", state.ZhQuery, "en_query", state.EnQuery)

	s.controller.Run(ctx, state)
	results := fusion.Fuse(state.Accumulated, s.cfg.Fusion)

	if s.cfg.Rerank.Enabled {
		results = s.reranker.Rerank(ctx, q, results, s.cfg.Rerank.TopK)
		if s.cfg.Rerank.DiversityThreshold > 0 {
			results = rerank.Diversify(results, s.cfg.Rerank.DiversityThreshold)
		}
	}

	out := &types.Output{
		Query:            q,
		DetectedLanguage: detected,
		ZhQuery:          state.ZhQuery,
		EnQuery:          state.EnQuery,
		TotalResults:     len(results),
		Results:          results,
		Decisions:        state.Decisions,
	}
	for _, r := range results {
		switch r.Language {
		case types.LanguageZh:
			out.ZhCount++
		case types.LanguageEn:
			out.EnCount++
		}
	}

	s.logger.Info("research complete",
		"accumulated", len(state.Accumulated), "results", out.TotalResults,
		"zh", out.ZhCount, "en", out.EnCount)
	return out, nil
}

// checkRouting resolves every task the run will route so that a bad
// provider override or an empty provider list fails before any search.
func (s *Service) checkRouting() error {
	tasks := []string{types.TaskTranslate, types.TaskRewrite, types.TaskExpand}
	if s.cfg.Rerank.Enabled {
		tasks = append(tasks, types.TaskRerank)
	}
	for _, task := range tasks {
		if _, _, err := s.router.Resolve(task, s.callOpts...); err != nil {
			return fmt.Errorf("routing %s: %w", task, err)
		}
	}
	return nil
}

// Health reports the search backend and every provider.
type Health struct {
	Search    string          `json:"search" yaml:"search"`
	Providers map[string]bool `json:"providers" yaml:"providers"`
	Overall   string          `json:"overall" yaml:"overall"`
}

// Health probes the search backend and the providers. Overall is healthy
// when search is reachable, regardless of provider state.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{Search: StatusOK, Overall: StatusHealthy}
	if err := s.executor.Ping(ctx); err != nil {
		s.logger.Warn("search backend unreachable", "err", err)
		h.Search = StatusError
		h.Overall = StatusDegraded
	}
	h.Providers = s.router.HealthCheck(ctx)
	return h
}
