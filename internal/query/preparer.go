// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query turns a user query into search-ready queries for each
// language: translation, structured rewriting, and alternate phrasings for
// expansion rounds. Model failures fall back to the best text already in
// hand and are never returned to the caller.
package query

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/pdiddy/bilingual-research/internal/provider"
	"github.com/pdiddy/bilingual-research/pkg/types"
)

// DefaultDepth is the research depth passed to Rewrite when none is given.
const DefaultDepth = "standard"

// Preparer produces per-language search queries through a completion router.
type Preparer struct {
	llm    provider.Completer
	opts   []provider.CallOption
	logger *slog.Logger
}

// Option configures a Preparer.
type Option func(*Preparer)

// WithLogger sets the preparer logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Preparer) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithCallOptions applies routing options (such as a provider override) to
// every model call.
func WithCallOptions(opts ...provider.CallOption) Option {
	return func(p *Preparer) { p.opts = append(p.opts, opts...) }
}

// NewPreparer returns a Preparer over llm.
func NewPreparer(llm provider.Completer, opts ...Option) *Preparer {
	p := &Preparer{
		llm:    llm,
		logger: slog.Default().With("component", "query-preparer"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// subQueries is the structured rewrite reply.
type subQueries struct {
	SubQueries []string `json:"sub_queries"`
}

// Prepare returns the query to search in target. A query already in target
// is returned unchanged. Otherwise the query is translated and then
// optimized; a failed optimization yields the translation and a failed
// translation yields the original query.
func (p *Preparer) Prepare(ctx context.Context, query string, detected, target types.Language) string {
	if detected == target {
		return query
	}

	translated, err := p.Translate(ctx, query, target)
	if err != nil {
		p.logger.Warn("translation failed, using original query", "target", target, "err", err)
		return query
	}

	content, err := p.llm.Complete(ctx, types.TaskRewrite, optimizeMessages(translated, target), p.opts...)
	if err != nil {
		p.logger.Warn("query optimization failed, using translation", "target", target, "err", err)
		return translated
	}
	decoded := provider.DecodeJSON[subQueries](content)
	if !decoded.OK() {
		p.logger.Warn("query optimization malformed, using translation", "target", target, "err", decoded.Err)
		return translated
	}
	if first := firstNonEmpty(decoded.Value.SubQueries); first != "" {
		return first
	}
	return translated
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Translate returns query translated into target. An empty translation is
// an error.
func (p *Preparer) Translate(ctx context.Context, query string, target types.Language) (string, error) {
	content, err := p.llm.Complete(ctx, types.TaskTranslate, translateMessages(query, target), p.opts...)
	if err != nil {
		return "", err
	}
	out := cleanTranslation(content)
	if out == "" {
		return "", errors.New("empty translation")
	}
	return out, nil
}

func cleanTranslation(s string) string {
	s = thinkBlock.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'“”「」")
	return strings.TrimSpace(s)
}

// Alternates asks for up to n alternate phrasings of query in lang. The
// result is trimmed, deduplicated, and never contains query itself. A
// failed or malformed reply returns an error.
func (p *Preparer) Alternates(ctx context.Context, query string, lang types.Language, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	content, err := p.llm.Complete(ctx, types.TaskExpand, alternatesMessages(query, lang, n), p.opts...)
	if err != nil {
		return nil, err
	}
	decoded := provider.DecodeJSON[subQueries](content)
	if !decoded.OK() {
		return nil, decoded.Err
	}

	seen := map[string]bool{strings.TrimSpace(query): true}
	var out []string
	for _, q := range decoded.Value.SubQueries {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

// Rewrite is a structured analysis of a research query.
type Rewrite struct {
	OriginalQuery string         `json:"original_query" yaml:"original_query"`
	Intent        string         `json:"intent" yaml:"intent"`
	SubQueries    []string       `json:"sub_queries" yaml:"sub_queries"`
	Keywords      []string       `json:"keywords" yaml:"keywords"`
	Strategy      map[string]any `json:"strategy" yaml:"strategy"`

	// Fallback is set when the model reply could not be used.
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// Rewrite analyzes query into intent, sub-queries, keywords, and a search
// strategy. Any failure returns the fallback analysis.
func (p *Preparer) Rewrite(ctx context.Context, query string, lang types.Language, depth string) Rewrite {
	if depth == "" {
		depth = DefaultDepth
	}
	fallback := Rewrite{
		OriginalQuery: query,
		Intent:        "General research",
		SubQueries:    []string{query},
		Keywords:      strings.Fields(query),
		Strategy:      map[string]any{},
		Fallback:      true,
	}

	content, err := p.llm.Complete(ctx, types.TaskRewrite, rewriteMessages(query, lang, depth), p.opts...)
	if err != nil {
		p.logger.Warn("query rewrite failed", "err", err)
		return fallback
	}
	decoded := provider.DecodeJSON[Rewrite](content)
	if !decoded.OK() {
		p.logger.Warn("query rewrite malformed", "err", decoded.Err)
		return fallback
	}

	rw := decoded.Value
	rw.OriginalQuery = query
	if rw.Strategy == nil {
		rw.Strategy = map[string]any{}
	}
	if len(rw.SubQueries) == 0 {
		rw.SubQueries = []string{query}
	}
	return rw
}

func firstNonEmpty(items []string) string {
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
