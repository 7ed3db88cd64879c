// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/pdiddy/bilingual-research/internal/httputil"
	"github.com/pdiddy/bilingual-research/pkg/types"
)

const defaultOllamaEndpoint = "http://localhost:11434"

// OllamaBackend talks to a local Ollama server. Chat and embeddings go
// through Ollama's OpenAI-compatible /v1 API; liveness uses /api/tags.
type OllamaBackend struct {
	name     string
	endpoint string
	token    string
	http     *http.Client
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]*openai.LLM
}

// NewOllamaBackend creates a backend for a local-inference provider.
func NewOllamaBackend(d types.ProviderDescriptor) (*OllamaBackend, error) {
	endpoint := strings.TrimRight(d.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("provider %q: endpoint %q must use http or https", d.Name, d.Endpoint)}
	}
	token := d.APIKey
	if token == "" {
		// Local servers ignore the token but the client requires one.
		token = "none"
	}
	return &OllamaBackend{
		name:     d.Name,
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: d.EffectiveTimeout()},
		logger:   slog.Default().With("component", "ollama-backend", "provider", d.Name),
		clients:  make(map[string]*openai.LLM),
	}, nil
}

// Name returns the provider name.
func (b *OllamaBackend) Name() string { return b.name }

// client returns the cached model client, creating it on first use.
func (b *OllamaBackend) client(model string) (*openai.LLM, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.clients[model]; ok {
		return c, nil
	}
	c, err := openai.New(
		openai.WithBaseURL(b.endpoint+"/v1"),
		openai.WithToken(b.token),
		openai.WithModel(model),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating client for model %s: %w", model, err)
	}
	b.clients[model] = c
	return c, nil
}

// Complete generates a chat response with model.
func (b *OllamaBackend) Complete(ctx context.Context, model string, messages []types.Message) (string, error) {
	c, err := b.client(model)
	if err != nil {
		return "", err
	}

	resp, err := c.GenerateContent(ctx, toLLMMessages(messages), llms.WithModel(model))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("generation returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// Embed returns embeddings for texts in input order.
func (b *OllamaBackend) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	c, err := b.client(model)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(c, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	b.logger.Debug("embedding texts", "model", model, "count", len(texts))
	return embedder.EmbedDocuments(ctx, texts)
}

// Ping checks the server by listing installed models.
func (b *OllamaBackend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := httputil.DoWithRetry(ctx, b.http, req, 1)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func toLLMMessages(messages []types.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case types.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case types.RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}
	return out
}
