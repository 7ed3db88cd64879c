// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pdiddy/bilingual-research/pkg/types"
)

// QueryOptions holds parameters for history queries.
type QueryOptions struct {
	// Text is a free-text search over result titles and snippets.
	Text string

	// Language filters by result language.
	Language types.Language

	// RunID filters to a single run.
	RunID string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search text or filters.
func (q QueryOptions) IsEmpty() bool {
	return strings.TrimSpace(q.Text) == "" && q.Language == "" && q.RunID == ""
}

// QueryResult is a stored result with the run it came from.
type QueryResult struct {
	types.SearchResult
	RunID    string `json:"run_id" yaml:"run_id"`
	RunQuery string `json:"run_query" yaml:"run_query"`
	Rank     int    `json:"rank" yaml:"rank"`
}

// Retrieve searches stored results. Full-text queries are ordered by FTS
// rank; filter-only queries by newest run, then rank within the run.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		match  = ftsQuery(opts.Text)
		useFTS = match != ""
	)

	const columns = `r.run_id, runs.query, r.rank, r.title, r.url, r.snippet, r.engine, r.language,
			r.round, r.query_type, r.source_type, r.raw_relevance, r.adjusted_score,
			r.priority_boost, r.final_score, r.rerank_score`

	if useFTS {
		qb.WriteString(`SELECT ` + columns + `
			FROM results_fts
			JOIN results r ON r.rowid = results_fts.rowid
			JOIN runs ON runs.id = r.run_id
			WHERE results_fts MATCH ?`)
		args = append(args, match)
	} else {
		qb.WriteString(`SELECT ` + columns + `
			FROM results r
			JOIN runs ON runs.id = r.run_id
			WHERE 1=1`)
	}

	if opts.Language != "" {
		qb.WriteString(` AND r.language = ?`)
		args = append(args, string(opts.Language))
	}
	if opts.RunID != "" {
		qb.WriteString(` AND r.run_id = ?`)
		args = append(args, opts.RunID)
	}

	if useFTS {
		qb.WriteString(` ORDER BY results_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY runs.created_at DESC, runs.rowid DESC, r.rank`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			qr                          QueryResult
			title, snippet, engine      sql.NullString
			lang, queryType, sourceType sql.NullString
			adjusted, final, rerank     sql.NullFloat64
			boost                       sql.NullFloat64
		)
		if err := rows.Scan(
			&qr.RunID, &qr.RunQuery, &qr.Rank, &title, &qr.URL, &snippet, &engine, &lang,
			&qr.Round, &queryType, &sourceType, &qr.RawRelevance, &adjusted,
			&boost, &final, &rerank,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		qr.Title = title.String
		qr.Snippet = snippet.String
		qr.Engine = engine.String
		qr.Language = types.Language(lang.String)
		qr.QueryType = types.Language(queryType.String)
		qr.SourceType = sourceType.String
		qr.PriorityBoost = boost.Float64
		qr.LanguageAdjustedScore = floatPtr(adjusted)
		qr.FinalScore = floatPtr(final)
		qr.RerankScore = floatPtr(rerank)
		results = append(results, qr)
	}
	return results, rows.Err()
}

// ftsQuery quotes each whitespace-separated term so that user text never
// reaches the FTS5 query syntax. Terms are ANDed.
func ftsQuery(text string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(fields, " ")
}
