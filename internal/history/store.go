// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists research runs and their ranked results in a
// local SQLite database with an FTS5 index over result titles and
// snippets.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/bilingual-research/pkg/types"
)

const (
	dbFile = "history.db"

	// DefaultDir holds history.db when the config sets no directory.
	DefaultDir = "data"

	defaultMaxResults = 20

	// timeFmt is fixed width so created_at sorts as text.
	timeFmt = "2006-01-02T15:04:05.000000000Z"
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Store manages the history database.
type Store struct {
	db         *sql.DB
	maxResults int
	now        func() time.Time
}

// NewStore opens or creates dir/history.db and its schema.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{
		db:         db,
		maxResults: maxResults,
		now:        func() time.Time { return time.Now().UTC() },
	}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			detected_language TEXT,
			zh_query TEXT,
			en_query TEXT,
			total INTEGER,
			zh_count INTEGER,
			en_count INTEGER,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			rank INTEGER NOT NULL,
			title TEXT,
			url TEXT NOT NULL,
			snippet TEXT,
			engine TEXT,
			language TEXT,
			round INTEGER,
			query_type TEXT,
			source_type TEXT,
			raw_relevance REAL,
			adjusted_score REAL,
			priority_boost REAL,
			final_score REAL,
			rerank_score REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_language ON results(language)`,
		`CREATE TABLE IF NOT EXISTS decisions (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			round INTEGER NOT NULL,
			zh_peak REAL,
			en_peak REAL,
			action TEXT,
			alternates TEXT,
			contributed INTEGER,
			PRIMARY KEY (run_id, round)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='results_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE results_fts USING fts5(title, snippet, content=results, content_rowid=rowid)`,
		`CREATE TRIGGER results_ai AFTER INSERT ON results BEGIN
			INSERT INTO results_fts(rowid, title, snippet) VALUES (new.rowid, new.title, new.snippet);
		END`,
		`CREATE TRIGGER results_ad AFTER DELETE ON results BEGIN
			INSERT INTO results_fts(results_fts, rowid, title, snippet) VALUES('delete', old.rowid, old.title, old.snippet);
		END`,
		`CREATE TRIGGER results_au AFTER UPDATE ON results BEGIN
			INSERT INTO results_fts(results_fts, rowid, title, snippet) VALUES('delete', old.rowid, old.title, old.snippet);
			INSERT INTO results_fts(rowid, title, snippet) VALUES (new.rowid, new.title, new.snippet);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// Run summarizes one saved research run.
type Run struct {
	ID               string         `json:"id" yaml:"id"`
	Query            string         `json:"query" yaml:"query"`
	DetectedLanguage types.Language `json:"detected_language" yaml:"detected_language"`
	ZhQuery          string         `json:"zh_query" yaml:"zh_query"`
	EnQuery          string         `json:"en_query" yaml:"en_query"`
	Total            int            `json:"total" yaml:"total"`
	ZhCount          int            `json:"zh_count" yaml:"zh_count"`
	EnCount          int            `json:"en_count" yaml:"en_count"`
	CreatedAt        time.Time      `json:"created_at" yaml:"created_at"`
}

// Save writes out and its results in one transaction and returns the new
// run ID.
func (s *Store) Save(ctx context.Context, out *types.Output) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, query, detected_language, zh_query, en_query, total, zh_count, en_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, out.Query, string(out.DetectedLanguage), out.ZhQuery, out.EnQuery,
		out.TotalResults, out.ZhCount, out.EnCount, s.now().Format(timeFmt),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, rank, title, url, snippet, engine, language, round, query_type,
			source_type, raw_relevance, adjusted_score, priority_boost, final_score, rerank_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range out.Results {
		_, err := stmt.ExecContext(ctx,
			runID, i+1, r.Title, r.URL, r.Snippet, r.Engine, string(r.Language), r.Round,
			string(r.QueryType), r.SourceType, r.RawRelevance, nullFloat(r.LanguageAdjustedScore),
			r.PriorityBoost, nullFloat(r.FinalScore), nullFloat(r.RerankScore),
		)
		if err != nil {
			return "", fmt.Errorf("inserting result %s: %w", r.URL, err)
		}
	}

	for _, d := range out.Decisions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO decisions (run_id, round, zh_peak, en_peak, action, alternates, contributed)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, d.Round, d.ZhPeak, d.EnPeak, string(d.Action), strings.Join(d.Alternates, "\n"), d.Contributed,
		)
		if err != nil {
			return "", fmt.Errorf("inserting decision for round %d: %w", d.Round, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// uses the store default.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, detected_language, zh_query, en_query, total, zh_count, en_count, created_at
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run       Run
		lang      sql.NullString
		zh, en    sql.NullString
		createdAt string
	)
	if err := sc.Scan(&run.ID, &run.Query, &lang, &zh, &en,
		&run.Total, &run.ZhCount, &run.EnCount, &createdAt); err != nil {
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	run.DetectedLanguage = types.Language(lang.String)
	run.ZhQuery = zh.String
	run.EnQuery = en.String
	if t, err := time.Parse(timeFmt, createdAt); err == nil {
		run.CreatedAt = t
	}
	return run, nil
}

// Load rebuilds the saved output of a run.
func (s *Store) Load(ctx context.Context, runID string) (*types.Output, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, detected_language, zh_query, en_query, total, zh_count, en_count, created_at
		 FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	hits, err := s.Retrieve(ctx, QueryOptions{RunID: runID, MaxResults: run.Total + 1})
	if err != nil {
		return nil, err
	}
	decisions, err := s.decisions(ctx, runID)
	if err != nil {
		return nil, err
	}

	out := &types.Output{
		Query:            run.Query,
		DetectedLanguage: run.DetectedLanguage,
		ZhQuery:          run.ZhQuery,
		EnQuery:          run.EnQuery,
		TotalResults:     run.Total,
		ZhCount:          run.ZhCount,
		EnCount:          run.EnCount,
		Results:          make([]types.SearchResult, len(hits)),
		Decisions:        decisions,
	}
	for i, h := range hits {
		out.Results[i] = h.SearchResult
	}
	return out, nil
}

func (s *Store) decisions(ctx context.Context, runID string) ([]types.RoundDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT round, zh_peak, en_peak, action, alternates, contributed
		 FROM decisions WHERE run_id = ? ORDER BY round`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var out []types.RoundDecision
	for rows.Next() {
		var (
			d          types.RoundDecision
			action     string
			alternates sql.NullString
		)
		if err := rows.Scan(&d.Round, &d.ZhPeak, &d.EnPeak, &action, &alternates, &d.Contributed); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		d.Action = types.RoundAction(action)
		if alternates.String != "" {
			d.Alternates = strings.Split(alternates.String, "\n")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its results.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
