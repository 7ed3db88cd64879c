// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the bilingual research
// pipeline: search results, per-request search state, provider descriptors,
// task routing tables, and stage configuration.
package types

// Language identifies the language of a query or a result set.
type Language string

const (
	LanguageZh    Language = "zh"
	LanguageEn    Language = "en"
	LanguageMixed Language = "mixed"
)

// SourceType labels a result contributed by a merge round.
const (
	SourceWebZh = "web_zh"
	SourceWebEn = "web_en"
)

// Priority boosts applied by fusion.
const (
	BoostNone     = 1.0
	BoostPriority = 1.2
)

// SearchResult is one hit returned by a search backend, tagged with the
// language and round that produced it. Fusion fills in PriorityBoost and
// FinalScore.
type SearchResult struct {
	Title   string `json:"title" yaml:"title"`
	URL     string `json:"url" yaml:"url"`
	Snippet string `json:"snippet" yaml:"snippet"`

	// Engine is the upstream engine name reported by the search backend.
	Engine string `json:"engine" yaml:"engine"`

	Language Language `json:"language" yaml:"language"`
	Round    int      `json:"round" yaml:"round"`

	// QueryType is the language of the query that produced this result.
	QueryType Language `json:"query_type" yaml:"query_type"`

	// SourceType is web_zh or web_en, set only when a merge round kept the result.
	SourceType string `json:"source_type,omitempty" yaml:"source_type,omitempty"`

	// RawRelevance is the backend relevance score in [0, 1].
	RawRelevance float64 `json:"raw_relevance" yaml:"raw_relevance"`

	// LanguageAdjustedScore is set only by merge rounds.
	LanguageAdjustedScore *float64 `json:"language_adjusted_score,omitempty" yaml:"language_adjusted_score,omitempty"`

	PriorityBoost float64  `json:"priority_boost,omitempty" yaml:"priority_boost,omitempty"`
	FinalScore    *float64 `json:"final_score,omitempty" yaml:"final_score,omitempty"`

	// RerankScore is set by the optional rerank post-pass.
	RerankScore *float64 `json:"rerank_score,omitempty" yaml:"rerank_score,omitempty"`
}

// AdjustedOrRaw returns LanguageAdjustedScore when present, else RawRelevance.
func (r SearchResult) AdjustedOrRaw() float64 {
	if r.LanguageAdjustedScore != nil {
		return *r.LanguageAdjustedScore
	}
	return r.RawRelevance
}

// Score returns FinalScore, or zero before fusion.
func (r SearchResult) Score() float64 {
	if r.FinalScore == nil {
		return 0
	}
	return *r.FinalScore
}

// RoundAction is the decision taken after inspecting a round's peaks.
type RoundAction string

const (
	ActionMerge    RoundAction = "merge"
	ActionExpandZh RoundAction = "expand_zh"
	ActionExpandEn RoundAction = "expand_en"
)

// RoundDecision records what one expansion round observed and did.
type RoundDecision struct {
	Round       int         `json:"round" yaml:"round"`
	ZhPeak      float64     `json:"zh_peak" yaml:"zh_peak"`
	EnPeak      float64     `json:"en_peak" yaml:"en_peak"`
	Action      RoundAction `json:"action" yaml:"action"`
	Alternates  []string    `json:"alternates,omitempty" yaml:"alternates,omitempty"`
	Contributed int         `json:"contributed" yaml:"contributed"`
}

// SearchState is the per-request state carried across expansion rounds.
// It is owned by a single request and never shared.
type SearchState struct {
	OriginalQuery    string          `json:"original_query" yaml:"original_query"`
	DetectedLanguage Language        `json:"detected_language" yaml:"detected_language"`
	ZhQuery          string          `json:"zh_query" yaml:"zh_query"`
	EnQuery          string          `json:"en_query" yaml:"en_query"`
	Round            int             `json:"round" yaml:"round"`
	Accumulated      []SearchResult  `json:"accumulated" yaml:"accumulated"`
	Decisions        []RoundDecision `json:"decisions" yaml:"decisions"`
}

// Output is the fused answer to a bilingual research query.
type Output struct {
	Query            string          `json:"query" yaml:"query"`
	DetectedLanguage Language        `json:"detected_language" yaml:"detected_language"`
	ZhQuery          string          `json:"zh_query" yaml:"zh_query"`
	EnQuery          string          `json:"en_query" yaml:"en_query"`
	TotalResults     int             `json:"total_results" yaml:"total_results"`
	ZhCount          int             `json:"zh_count" yaml:"zh_count"`
	EnCount          int             `json:"en_count" yaml:"en_count"`
	Results          []SearchResult  `json:"results" yaml:"results"`
	Decisions        []RoundDecision `json:"decisions,omitempty" yaml:"decisions,omitempty"`
}
