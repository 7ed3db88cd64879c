// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads the pipeline configuration from viper, applying
// defaults for every section.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/bilingual-research/internal/expansion"
	"github.com/pdiddy/bilingual-research/internal/fusion"
	"github.com/pdiddy/bilingual-research/internal/history"
	"github.com/pdiddy/bilingual-research/internal/search"
	"github.com/pdiddy/bilingual-research/pkg/types"
)

// Name is the config file base name and EnvPrefix the environment prefix.
const (
	Name      = "bilingual-research"
	EnvPrefix = "BILINGUAL_RESEARCH"
)

// DefaultUserAgent is sent with search requests.
const DefaultUserAgent = "bilingual-research/0.1"

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("search.endpoint", "http://localhost:8080/search")
	v.SetDefault("search.timeout", search.DefaultTimeout)
	v.SetDefault("search.user_agent", DefaultUserAgent)
	v.SetDefault("search.max_results", 20)
	v.SetDefault("search.max_retries", 3)
	v.SetDefault("search.engines_zh", search.DefaultEnginesZh)
	v.SetDefault("search.engines_en", search.DefaultEnginesEn)

	v.SetDefault("expansion.max_rounds", expansion.DefaultMaxRounds)
	v.SetDefault("expansion.high_threshold", expansion.DefaultHighThreshold)
	v.SetDefault("expansion.low_threshold", expansion.DefaultLowThreshold)
	v.SetDefault("expansion.balance", expansion.DefaultBalance)
	v.SetDefault("expansion.merge_top_k", expansion.DefaultMergeTopK)
	v.SetDefault("expansion.max_alternates", expansion.DefaultMaxAlternates)
	v.SetDefault("expansion.concurrency", expansion.DefaultConcurrency)

	v.SetDefault("fusion.max_results_per_language", fusion.DefaultMaxResultsPerLanguage)
	v.SetDefault("fusion.priority_domains", fusion.DefaultPriorityDomains)

	v.SetDefault("llm.providers", []map[string]any{{
		"name":     "ollama",
		"kind":     string(types.KindLocalInference),
		"endpoint": "http://localhost:11434",
	}})
	v.SetDefault("llm.routing.task_model_class", map[string]string{
		types.TaskTranslate: types.ModelClassSmallFast,
		types.TaskRewrite:   types.ModelClassSmallFast,
		types.TaskExpand:    types.ModelClassSmallFast,
		types.TaskEmbed:     types.ModelClassEmbedding,
		types.TaskRerank:    types.ModelClassRerank,
	})
	v.SetDefault("llm.circuit_breaker.enabled", true)
	v.SetDefault("llm.circuit_breaker.max_requests", 1)
	v.SetDefault("llm.circuit_breaker.interval", time.Minute)
	v.SetDefault("llm.circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("llm.circuit_breaker.ready_to_trip_ratio", 0.6)
	v.SetDefault("llm.embedding_cache_size", 1024)

	v.SetDefault("rerank.enabled", false)
	v.SetDefault("rerank.top_k", 0)
	v.SetDefault("rerank.diversity_threshold", 0)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.dir", history.DefaultDir)
	v.SetDefault("history.max_results", 20)
}

// Load applies defaults to v and decodes the full configuration.
func Load(v *viper.Viper) (types.PipelineConfig, error) {
	SetDefaults(v)

	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values that no stage can repair on its own.
func Validate(cfg types.PipelineConfig) error {
	var problems []string
	e := cfg.Expansion
	if e.LowThreshold != nil && e.HighThreshold != nil && *e.LowThreshold > *e.HighThreshold {
		problems = append(problems, fmt.Sprintf("expansion.low_threshold %.2f exceeds expansion.high_threshold %.2f", *e.LowThreshold, *e.HighThreshold))
	}
	if b := e.Balance; b != nil && (*b < 0 || *b > 1) {
		problems = append(problems, fmt.Sprintf("expansion.balance %.2f outside [0, 1]", *b))
	}
	if cfg.Fusion.MaxResultsPerLanguage < 0 {
		problems = append(problems, "fusion.max_results_per_language is negative")
	}
	if t := cfg.Rerank.DiversityThreshold; t < 0 || t > 1 {
		problems = append(problems, fmt.Sprintf("rerank.diversity_threshold %.2f outside [0, 1]", t))
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q: use text or json", cfg.Log.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
