// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider routes language-model tasks (completion, embedding,
// reranking) to configured backends. A task resolves to a model class, the
// model class to a provider, and the provider to a concrete model.
package provider

import (
	"context"

	"github.com/pdiddy/bilingual-research/pkg/types"
)

// Backend is one language-model provider. Implementations must be safe for
// concurrent use.
type Backend interface {
	Name() string
	Complete(ctx context.Context, model string, messages []types.Message) (string, error)
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)

	// Ping checks that the provider is reachable.
	Ping(ctx context.Context) error
}

// NativeReranker is implemented by backends with a dedicated rerank API.
// Backends without it are reranked through embedding similarity.
type NativeReranker interface {
	Rerank(ctx context.Context, model, query string, documents []string, topK int) ([]types.Ranked, error)
}

// Completer is the completion capability the query stages depend on.
type Completer interface {
	Complete(ctx context.Context, task string, messages []types.Message, opts ...CallOption) (string, error)
}

// Reranker is the rerank capability used by the post-fusion pass.
type Reranker interface {
	Rerank(ctx context.Context, task, query string, documents []string, topK int, opts ...CallOption) ([]types.Ranked, error)
}

// CallOption adjusts a single routed call.
type CallOption func(*callOptions)

type callOptions struct {
	provider string
}

// WithProvider forces the call onto the named provider. An unknown name
// fails with a ConfigurationError.
func WithProvider(name string) CallOption {
	return func(o *callOptions) { o.provider = name }
}

func applyCallOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
