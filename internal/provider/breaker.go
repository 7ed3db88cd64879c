// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/pdiddy/bilingual-research/pkg/types"
)

// BreakerBackend wraps a Backend with a circuit breaker. While the breaker
// is open calls fail immediately with gobreaker.ErrOpenState. It never
// retries.
type BreakerBackend struct {
	inner Backend
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerBackend wraps inner using cfg. Zero MaxRequests and Interval
// take gobreaker defaults; Timeout defaults to 30s and ReadyToTripRatio to 0.6.
func NewBreakerBackend(inner Backend, cfg types.CircuitBreakerConfig) *BreakerBackend {
	ratio := cfg.ReadyToTripRatio
	if ratio <= 0 {
		ratio = 0.6
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = breakerTimeout
	}
	logger := slog.Default().With("component", "circuit-breaker")

	st := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= ratio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "provider", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerBackend{inner: inner, cb: gobreaker.NewCircuitBreaker(st)}
}

// Name returns the wrapped provider name.
func (b *BreakerBackend) Name() string { return b.inner.Name() }

// State reports the breaker state.
func (b *BreakerBackend) State() gobreaker.State { return b.cb.State() }

// Complete implements Backend.
func (b *BreakerBackend) Complete(ctx context.Context, model string, messages []types.Message) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Complete(ctx, model, messages)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// Embed implements Backend.
func (b *BreakerBackend) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Embed(ctx, model, texts)
	})
	if err != nil {
		return nil, err
	}
	return out.([][]float32), nil
}

// Ping bypasses the breaker so health checks observe the provider itself.
func (b *BreakerBackend) Ping(ctx context.Context) error {
	return b.inner.Ping(ctx)
}

// rerankingBreaker is a BreakerBackend over a backend with a native rerank
// API. Rerank calls share the breaker with Complete and Embed.
type rerankingBreaker struct {
	*BreakerBackend
	reranker NativeReranker
}

// Rerank implements NativeReranker.
func (b *rerankingBreaker) Rerank(ctx context.Context, model, query string, documents []string, topK int) ([]types.Ranked, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.reranker.Rerank(ctx, model, query, documents, topK)
	})
	if err != nil {
		return nil, err
	}
	return out.([]types.Ranked), nil
}

// WrapBreaker wraps inner with a circuit breaker. When inner implements
// NativeReranker the returned backend does too.
func WrapBreaker(inner Backend, cfg types.CircuitBreakerConfig) Backend {
	b := NewBreakerBackend(inner, cfg)
	if nr, ok := inner.(NativeReranker); ok {
		return &rerankingBreaker{BreakerBackend: b, reranker: nr}
	}
	return b
}

// breakerTimeout is the open-state duration used when none is configured.
const breakerTimeout = 30 * time.Second
