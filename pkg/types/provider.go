// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ProviderKind selects the backend implementation for a provider.
type ProviderKind string

const (
	// KindLocalInference is a locally hosted inference server (Ollama).
	KindLocalInference ProviderKind = "local-inference"

	// KindRemoteCompatible is any OpenAI-compatible HTTP API.
	KindRemoteCompatible ProviderKind = "remote-compatible"
)

// Default per-call timeouts by provider kind.
const (
	DefaultLocalTimeout  = 120 * time.Second
	DefaultRemoteTimeout = 60 * time.Second
)

// ProviderDescriptor describes one configured model provider. It is
// immutable after configuration load.
type ProviderDescriptor struct {
	Name     string       `json:"name" yaml:"name" mapstructure:"name"`
	Kind     ProviderKind `json:"kind" yaml:"kind" mapstructure:"kind"`
	Endpoint string       `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// APIKey may be empty for local providers. When empty the secrets
	// loader fills it from .secrets/<name>-api-key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Timeout bounds every backend call. Zero uses the kind default.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// EffectiveTimeout returns Timeout, or the default for the provider kind.
func (d ProviderDescriptor) EffectiveTimeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	if d.Kind == KindLocalInference {
		return DefaultLocalTimeout
	}
	return DefaultRemoteTimeout
}

// Model classes used by task routing.
const (
	ModelClassSmallFast = "small-fast-model"
	ModelClassStronger  = "stronger-model"
	ModelClassEmbedding = "embedding-model"
	ModelClassRerank    = "rerank-model"
)

// Tasks routed by the pipeline.
const (
	TaskTranslate = "bilingual_translation"
	TaskRewrite   = "query_rewrite"
	TaskExpand    = "query_expansion"
	TaskEmbed     = "embedding"
	TaskRerank    = "rerank"
)

// DefaultModel is used when no model list exists for the resolved provider
// and model class.
const DefaultModel = "gpt-3.5-turbo"

// TaskRouting maps tasks to model classes and model classes to concrete
// provider models. It is read-only at runtime.
type TaskRouting struct {
	// TaskModelClass maps a task name to a model class.
	TaskModelClass map[string]string `json:"task_model_class" yaml:"task_model_class" mapstructure:"task_model_class"`

	// ProviderModels maps provider name to model class to candidate models.
	// The first candidate is used.
	ProviderModels map[string]map[string][]string `json:"provider_models" yaml:"provider_models" mapstructure:"provider_models"`

	// DefaultProvider maps a model class to the provider used when the
	// caller does not name one.
	DefaultProvider map[string]string `json:"default_provider" yaml:"default_provider" mapstructure:"default_provider"`

	// DefaultModel overrides the package DefaultModel fallback.
	DefaultModel string `json:"default_model,omitempty" yaml:"default_model,omitempty" mapstructure:"default_model"`
}

// Role is the speaker of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn sent to a completion backend.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Ranked is one reranked document: its index into the input slice and its
// score in [0, 1].
type Ranked struct {
	Index int     `json:"index" yaml:"index"`
	Score float64 `json:"score" yaml:"score"`
}
