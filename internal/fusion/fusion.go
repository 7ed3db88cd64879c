// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fusion turns the results accumulated across expansion rounds
// into the final ranked list: dedup by URL, priority-source boost,
// composite score, stable sort, and truncation.
package fusion

import (
	"net/url"
	"sort"
	"strings"

	"github.com/pdiddy/bilingual-research/pkg/types"
)

// DefaultMaxResultsPerLanguage is used when the config sets none.
const DefaultMaxResultsPerLanguage = 30

// DefaultPriorityDomains lists hosts whose results are boosted. An entry
// without a dot is a top-level domain.
var DefaultPriorityDomains = []string{
	"arxiv.org",
	"github.com",
	"acm.org",
	"cn",
	"sohu.com",
	"csdn.net",
	"zhihu.com",
}

// Score weights.
const (
	rawWeight      = 0.4
	boostWeight    = 0.3
	adjustedWeight = 0.3
)

// Fuse returns the deduplicated, scored, and sorted results, truncated to
// twice cfg.MaxResultsPerLanguage. The input slice is not modified.
func Fuse(results []types.SearchResult, cfg types.FusionConfig) []types.SearchResult {
	if cfg.MaxResultsPerLanguage <= 0 {
		cfg.MaxResultsPerLanguage = DefaultMaxResultsPerLanguage
	}
	domains := cfg.PriorityDomains
	if len(domains) == 0 {
		domains = DefaultPriorityDomains
	}

	out := Dedupe(results)
	for i := range out {
		r := &out[i]
		r.PriorityBoost = types.BoostNone
		if IsPriority(r.URL, domains) {
			r.PriorityBoost = types.BoostPriority
		}
		score := r.RawRelevance*rawWeight + r.PriorityBoost*boostWeight + r.AdjustedOrRaw()*adjustedWeight
		r.FinalScore = &score
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].FinalScore > *out[j].FinalScore
	})

	if limit := cfg.MaxResults(); len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Dedupe keeps the first result for each URL and drops results without
// one. Order is preserved.
func Dedupe(results []types.SearchResult) []types.SearchResult {
	seen := make(map[string]bool, len(results))
	out := make([]types.SearchResult, 0, len(results))
	for _, r := range results {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}

// IsPriority reports whether rawURL's host is, or is a subdomain of, one
// of domains. Dotless entries match the top-level domain.
func IsPriority(rawURL string, domains []string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, d := range domains {
		d = strings.ToLower(strings.Trim(strings.TrimSpace(d), "."))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if host == "" && u.Scheme == "" {
		// Bare host such as "arxiv.org/abs/1".
		if u, err = url.Parse("//" + rawURL); err == nil {
			host = u.Hostname()
		}
	}
	return strings.TrimSuffix(strings.ToLower(host), ".")
}
