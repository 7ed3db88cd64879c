// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"fmt"

	"github.com/pdiddy/bilingual-research/pkg/types"
)

// languageName returns the prompt name of a search language.
func languageName(lang types.Language) string {
	switch lang {
	case types.LanguageZh:
		return "Chinese"
	case types.LanguageEn:
		return "English"
	default:
		return "the query's own language"
	}
}

func translateMessages(query string, target types.Language) []types.Message {
	return []types.Message{
		{Role: types.RoleSystem, Content: "You are a professional translator. Translate research queries accurately. Reply with the translation only."},
		{Role: types.RoleUser, Content: fmt.Sprintf("Translate to %s: %s", languageName(target), query)},
	}
}

func optimizeMessages(query string, target types.Language) []types.Message {
	return []types.Message{
		{Role: types.RoleSystem, Content: fmt.Sprintf("You are a query optimizer for %s web search.", languageName(target))},
		{Role: types.RoleUser, Content: fmt.Sprintf(`Optimize this query for %s search: %s

Return JSON only: {"sub_queries": ["<best search query>", ...]}`, languageName(target), query)},
	}
}

func alternatesMessages(query string, lang types.Language, n int) []types.Message {
	return []types.Message{
		{Role: types.RoleSystem, Content: fmt.Sprintf("You are a search expansion specialist for %s.", languageName(lang))},
		{Role: types.RoleUser, Content: fmt.Sprintf(`Generate %d alternative %s search queries for: %s

Return JSON only: {"sub_queries": ["...", "..."]}`, n, languageName(lang), query)},
	}
}

func rewriteMessages(query string, lang types.Language, depth string) []types.Message {
	l := string(lang)
	if l == "" {
		l = "auto"
	}
	return []types.Message{
		{Role: types.RoleSystem, Content: "You are a query rewriting specialist. Analyze the user's research query and generate optimized search queries."},
		{Role: types.RoleUser, Content: fmt.Sprintf(`Original query: %s
Language: %s
Research depth: %s

Provide:
1. Intent: what the user is really asking for.
2. Sub-queries: 3-5 specific queries covering different aspects.
3. Keywords: key terms and synonyms.
4. Strategy: suggested search engines and filters.

Return JSON with keys: intent, sub_queries (list), keywords (list), strategy (object).`, query, l, depth)},
	}
}
