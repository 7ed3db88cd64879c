// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/pdiddy/bilingual-research/pkg/types"
)

// OpenAIBackend talks to any OpenAI-compatible HTTP API.
type OpenAIBackend struct {
	name   string
	client *openai.Client
}

// NewOpenAIBackend creates a backend for a remote-compatible provider. An
// endpoint without a path gets "/v1" appended; an empty endpoint uses the
// OpenAI default.
func NewOpenAIBackend(d types.ProviderDescriptor) (*OpenAIBackend, error) {
	cfg := openai.DefaultConfig(d.APIKey)
	if d.Endpoint != "" {
		base, err := apiBaseURL(d.Endpoint)
		if err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("provider %q: %v", d.Name, err)}
		}
		cfg.BaseURL = base
	}
	return &OpenAIBackend{name: d.Name, client: openai.NewClientWithConfig(cfg)}, nil
}

func apiBaseURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("endpoint %q must use http or https", endpoint)
	}
	base := strings.TrimRight(endpoint, "/")
	if u.Path == "" || u.Path == "/" {
		base += "/v1"
	}
	return base, nil
}

// Name returns the provider name.
func (b *OpenAIBackend) Name() string { return b.name }

// Complete sends a chat completion request and returns the first choice.
func (b *OpenAIBackend) Complete(ctx context.Context, model string, messages []types.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
	}
	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed requests embeddings and returns them in input order.
func (b *OpenAIBackend) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	resp, err := b.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, err
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}

// Ping lists models as a liveness probe.
func (b *OpenAIBackend) Ping(ctx context.Context) error {
	_, err := b.client.ListModels(ctx)
	return err
}

func toOpenAIMessages(messages []types.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case types.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case types.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
