// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds each HTTP request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "bilingual-research/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// LogConfig selects the slog handler installed by the CLI.
type LogConfig struct {
	// Level is debug, info, warn, or error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json (default text).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// SearchConfig holds settings for the metasearch backend.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Endpoint is the SearXNG base URL (e.g. "http://localhost:8888/search").
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// MaxResults caps the results kept from one backend response (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// EnginesZh and EnginesEn are the upstream engines used per language.
	EnginesZh []string `json:"engines_zh" yaml:"engines_zh" mapstructure:"engines_zh"`
	EnginesEn []string `json:"engines_en" yaml:"engines_en" mapstructure:"engines_en"`

	// MaxRetries bounds retries on HTTP 429/503 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// Engines returns the engine list configured for lang. Mixed falls back
// to the English list.
func (c SearchConfig) Engines(lang Language) []string {
	if lang == LanguageZh {
		return c.EnginesZh
	}
	return c.EnginesEn
}

// ExpansionConfig holds the adaptive round controller settings.
type ExpansionConfig struct {
	// MaxRounds bounds the number of search rounds (default 3).
	MaxRounds int `json:"max_rounds" yaml:"max_rounds" mapstructure:"max_rounds"`

	// HighThreshold and LowThreshold define a one-sided round: one peak
	// above HighThreshold while the other stays below LowThreshold. Nil
	// takes the default; zero is a valid setting.
	HighThreshold *float64 `json:"high_threshold,omitempty" yaml:"high_threshold,omitempty" mapstructure:"high_threshold"`
	LowThreshold  *float64 `json:"low_threshold,omitempty" yaml:"low_threshold,omitempty" mapstructure:"low_threshold"`

	// Balance weights merged zh results by Balance and en results by
	// 1-Balance. Nil takes the default; zero puts all weight on en.
	Balance *float64 `json:"balance,omitempty" yaml:"balance,omitempty" mapstructure:"balance"`

	// MergeTopK is the number of results per language kept by a merge round.
	MergeTopK int `json:"merge_top_k" yaml:"merge_top_k" mapstructure:"merge_top_k"`

	// MaxAlternates caps the alternate queries generated when expanding.
	MaxAlternates int `json:"max_alternates" yaml:"max_alternates" mapstructure:"max_alternates"`

	// Concurrency caps concurrent alternate-query searches.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// FusionConfig holds settings for the final ranking stage.
type FusionConfig struct {
	// MaxResultsPerLanguage sets the output cap to twice its value (default 30).
	MaxResultsPerLanguage int `json:"max_results_per_language" yaml:"max_results_per_language" mapstructure:"max_results_per_language"`

	// PriorityDomains lists hosts whose results receive BoostPriority. An
	// entry matches the host itself and any subdomain; a bare TLD such as
	// "cn" matches every host under it.
	PriorityDomains []string `json:"priority_domains" yaml:"priority_domains" mapstructure:"priority_domains"`
}

// MaxResults returns the fused output cap.
func (c FusionConfig) MaxResults() int {
	return 2 * c.MaxResultsPerLanguage
}

// CircuitBreakerConfig configures the optional per-provider breaker.
type CircuitBreakerConfig struct {
	Enabled          bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	MaxRequests      uint32        `json:"max_requests" yaml:"max_requests" mapstructure:"max_requests"`
	Interval         time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	ReadyToTripRatio float64       `json:"ready_to_trip_ratio" yaml:"ready_to_trip_ratio" mapstructure:"ready_to_trip_ratio"`
}

// LLMConfig groups provider descriptors and routing.
type LLMConfig struct {
	// Providers are kept in configuration order; the first one is the
	// fallback when routing names no provider.
	Providers      []ProviderDescriptor `json:"providers" yaml:"providers" mapstructure:"providers"`
	Routing        TaskRouting          `json:"routing" yaml:"routing" mapstructure:"routing"`
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker" yaml:"circuit_breaker" mapstructure:"circuit_breaker"`

	// EmbeddingCacheSize bounds the fallback-rerank embedding cache (default 1024).
	EmbeddingCacheSize int `json:"embedding_cache_size" yaml:"embedding_cache_size" mapstructure:"embedding_cache_size"`
}

// RerankConfig controls the optional post-fusion rerank pass.
type RerankConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// TopK truncates the reranked list; zero keeps all.
	TopK int `json:"top_k" yaml:"top_k" mapstructure:"top_k"`

	// DiversityThreshold drops results whose snippet overlaps an earlier
	// one above this Jaccard similarity. Zero disables the filter.
	DiversityThreshold float64 `json:"diversity_threshold" yaml:"diversity_threshold" mapstructure:"diversity_threshold"`
}

// HistoryConfig holds settings for the run history store.
type HistoryConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Dir contains history.db.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// MaxResults is the default retrieve limit (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
	Search    SearchConfig    `json:"search" yaml:"search" mapstructure:"search"`
	Expansion ExpansionConfig `json:"expansion" yaml:"expansion" mapstructure:"expansion"`
	Fusion    FusionConfig    `json:"fusion" yaml:"fusion" mapstructure:"fusion"`
	LLM       LLMConfig       `json:"llm" yaml:"llm" mapstructure:"llm"`
	Rerank    RerankConfig    `json:"rerank" yaml:"rerank" mapstructure:"rerank"`
	History   HistoryConfig   `json:"history" yaml:"history" mapstructure:"history"`
}

// Float returns a pointer to v, for optional float settings.
func Float(v float64) *float64 { return &v }
