// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/bilingual-research/pkg/types"
)

// Router resolves each task to a provider and model and forwards the call.
// It holds read-only configuration and may be shared across requests.
type Router struct {
	providers []types.ProviderDescriptor
	byName    map[string]types.ProviderDescriptor
	backends  map[string]Backend
	routing   types.TaskRouting
	cache     *embeddingCache
	logger    *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithEmbeddingCacheSize bounds the cache used by embedding-based reranking.
func WithEmbeddingCacheSize(n int) Option {
	return func(r *Router) {
		r.cache = newEmbeddingCache(n)
	}
}

// NewRouter builds a router over already constructed backends. Every
// descriptor must have a backend under the same name. An empty provider
// list is accepted; routed calls then fail with ErrNoProviders.
func NewRouter(providers []types.ProviderDescriptor, backends map[string]Backend, routing types.TaskRouting, opts ...Option) (*Router, error) {
	r := &Router{
		providers: providers,
		byName:    make(map[string]types.ProviderDescriptor, len(providers)),
		backends:  make(map[string]Backend, len(providers)),
		routing:   routing,
		logger:    slog.Default().With("component", "provider-router"),
	}
	for _, d := range providers {
		if d.Name == "" {
			return nil, &ConfigurationError{Reason: "provider with empty name"}
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate provider %q", d.Name)}
		}
		b, ok := backends[d.Name]
		if !ok || b == nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("no backend for provider %q", d.Name)}
		}
		r.byName[d.Name] = d
		r.backends[d.Name] = b
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = newEmbeddingCache(defaultEmbeddingCacheSize)
	}
	return r, nil
}

// New constructs backends for every configured provider and returns a router
// over them.
func New(cfg types.LLMConfig, opts ...Option) (*Router, error) {
	backends := make(map[string]Backend, len(cfg.Providers))
	for _, d := range cfg.Providers {
		b, err := NewBackend(d)
		if err != nil {
			return nil, err
		}
		if cfg.CircuitBreaker.Enabled {
			b = WrapBreaker(b, cfg.CircuitBreaker)
		}
		backends[d.Name] = b
	}
	if cfg.EmbeddingCacheSize > 0 {
		opts = append([]Option{WithEmbeddingCacheSize(cfg.EmbeddingCacheSize)}, opts...)
	}
	return NewRouter(cfg.Providers, backends, cfg.Routing, opts...)
}

// NewBackend returns the backend implementation for a descriptor's kind.
func NewBackend(d types.ProviderDescriptor) (Backend, error) {
	switch d.Kind {
	case types.KindLocalInference:
		return NewOllamaBackend(d)
	case types.KindRemoteCompatible, "":
		return NewOpenAIBackend(d)
	default:
		return nil, &ConfigurationError{Reason: fmt.Sprintf("provider %q has unknown kind %q", d.Name, d.Kind)}
	}
}

// Providers returns the configured provider names in configuration order.
func (r *Router) Providers() []string {
	names := make([]string, len(r.providers))
	for i, d := range r.providers {
		names[i] = d.Name
	}
	return names
}

// route is a resolved call target.
type route struct {
	provider types.ProviderDescriptor
	backend  Backend
	class    string
	model    string
}

// Resolve returns the provider and model a task would be routed to.
func (r *Router) Resolve(task string, opts ...CallOption) (provider, model string, err error) {
	rt, err := r.resolve(task, applyCallOptions(opts))
	if err != nil {
		return "", "", err
	}
	return rt.provider.Name, rt.model, nil
}

func (r *Router) resolve(task string, o callOptions) (route, error) {
	if len(r.providers) == 0 {
		return route{}, ErrNoProviders
	}

	class := r.routing.TaskModelClass[task]
	if class == "" {
		class = types.ModelClassSmallFast
	}

	var d types.ProviderDescriptor
	switch {
	case o.provider != "":
		named, ok := r.byName[o.provider]
		if !ok {
			return route{}, &ConfigurationError{Reason: fmt.Sprintf("unknown provider %q", o.provider)}
		}
		d = named
	default:
		d = r.providers[0]
		if name := r.routing.DefaultProvider[class]; name != "" {
			if def, ok := r.byName[name]; ok {
				d = def
			}
		}
	}

	return route{
		provider: d,
		backend:  r.backends[d.Name],
		class:    class,
		model:    r.modelFor(d.Name, class),
	}, nil
}

// modelFor returns the first model listed for provider and class. Model
// lists may be keyed by the class name or its plural.
func (r *Router) modelFor(provider, class string) string {
	models := r.routing.ProviderModels[provider]
	for _, key := range []string{class, class + "s"} {
		if list := models[key]; len(list) > 0 && list[0] != "" {
			return list[0]
		}
	}
	if r.routing.DefaultModel != "" {
		return r.routing.DefaultModel
	}
	return types.DefaultModel
}

// Complete sends a chat completion for task and returns the response text.
func (r *Router) Complete(ctx context.Context, task string, messages []types.Message, opts ...CallOption) (string, error) {
	rt, err := r.resolve(task, applyCallOptions(opts))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, rt.provider.EffectiveTimeout())
	defer cancel()

	r.logger.Debug("routing completion", "task", task, "provider", rt.provider.Name, "model", rt.model)
	out, err := rt.backend.Complete(ctx, rt.model, messages)
	if err != nil {
		return "", unavailable(rt.provider.Name, "complete", err)
	}
	return out, nil
}

// Embed returns one vector per input text, in input order.
func (r *Router) Embed(ctx context.Context, task string, texts []string, opts ...CallOption) ([][]float32, error) {
	rt, err := r.resolve(task, applyCallOptions(opts))
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return r.embed(ctx, rt, texts)
}

func (r *Router) embed(ctx context.Context, rt route, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, rt.provider.EffectiveTimeout())
	defer cancel()

	r.logger.Debug("routing embedding", "provider", rt.provider.Name, "model", rt.model, "count", len(texts))
	vecs, err := rt.backend.Embed(ctx, rt.model, texts)
	if err != nil {
		return nil, unavailable(rt.provider.Name, "embed", err)
	}
	if len(vecs) != len(texts) {
		return nil, &MalformedResponseError{
			Content: fmt.Sprintf("%d embeddings for %d texts", len(vecs), len(texts)),
		}
	}
	return vecs, nil
}

// HealthCheck probes every provider concurrently. A failed or timed-out
// probe is recorded as false; HealthCheck itself never fails.
func (r *Router) HealthCheck(ctx context.Context) map[string]bool {
	status := make(map[string]bool, len(r.providers))
	var mu sync.Mutex
	var g errgroup.Group

	for _, d := range r.providers {
		b := r.backends[d.Name]
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, d.EffectiveTimeout())
			defer cancel()

			err := b.Ping(pctx)
			if err != nil {
				r.logger.Warn("provider health check failed", "provider", d.Name, "err", err)
			}
			mu.Lock()
			status[d.Name] = err == nil
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return status
}
