// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bilingual

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bilingual-research/internal/provider"
	"github.com/pdiddy/bilingual-research/internal/search"
	"github.com/pdiddy/bilingual-research/pkg/types"
)

// --- fakes ---

type fakeLLM struct {
	fail bool
}

func (f *fakeLLM) Name() string { return "local" }

func (f *fakeLLM) Complete(_ context.Context, _ string, messages []types.Message) (string, error) {
	if f.fail {
		return "", errors.New("connection refused")
	}
	if strings.Contains(messages[0].Content, "translator") {
		return "translated query", nil
	}
	return `{"sub_queries": ["optimized query"]}`, nil
}

func (f *fakeLLM) Embed(_ context.Context, _ string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)%7) + 1, 1}
	}
	return out, nil
}

func (f *fakeLLM) Ping(context.Context) error { return nil }

// fakeSearch returns five results per language. URLs repeat across rounds.
type fakeSearch struct {
	mu      sync.Mutex
	queries []search.Request
	pingErr error
}

func (f *fakeSearch) Name() string { return "fake" }

func (f *fakeSearch) Search(_ context.Context, req search.Request) ([]types.SearchResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, req)
	f.mu.Unlock()

	out := make([]types.SearchResult, 5)
	for i := range out {
		out[i] = types.SearchResult{
			Title:        fmt.Sprintf("%s result %d", req.Language, i),
			URL:          fmt.Sprintf("https://%s.example.org/%d", req.Language, i),
			Snippet:      fmt.Sprintf("snippet %s %d", req.Language, i),
			RawRelevance: 0.6 - float64(i)*0.1,
		}
	}
	return out, nil
}

func (f *fakeSearch) Ping(context.Context) error { return f.pingErr }

func testConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Search:    types.SearchConfig{HTTPConfig: types.HTTPConfig{Timeout: time.Second}},
		Expansion: types.ExpansionConfig{MaxRounds: 3},
		Fusion:    types.FusionConfig{MaxResultsPerLanguage: 30},
	}
}

func newTestService(t *testing.T, cfg types.PipelineConfig, llm *fakeLLM, sb *fakeSearch, opts ...Option) *Service {
	t.Helper()
	providers := []types.ProviderDescriptor{{Name: "local", Kind: types.KindLocalInference, Timeout: time.Second}}
	router, err := provider.NewRouter(providers, map[string]provider.Backend{"local": llm}, types.TaskRouting{})
	require.NoError(t, err)

	s, err := New(cfg, router, sb, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// --- tests ---

func TestRunEndToEnd(t *testing.T) {
	sb := &fakeSearch{}
	s := newTestService(t, testConfig(), &fakeLLM{}, sb)

	out, err := s.Run(context.Background(), "量子计算 breakthroughs 2024")
	require.NoError(t, err)

	assert.Equal(t, types.LanguageMixed, out.DetectedLanguage)
	assert.Equal(t, "optimized query", out.ZhQuery)
	assert.Equal(t, "optimized query", out.EnQuery)

	// 3 rounds x (5 zh + 5 en), URLs repeat each round.
	assert.Len(t, sb.queries, 6)
	require.Len(t, out.Decisions, 3)
	for _, d := range out.Decisions {
		assert.Equal(t, types.ActionMerge, d.Action)
		assert.Equal(t, 10, d.Contributed)
	}

	require.Len(t, out.Results, 10)
	assert.Equal(t, 10, out.TotalResults)
	assert.Equal(t, 5, out.ZhCount)
	assert.Equal(t, 5, out.EnCount)

	seen := map[string]bool{}
	for i, r := range out.Results {
		assert.False(t, seen[r.URL], "duplicate %s", r.URL)
		seen[r.URL] = true
		assert.Equal(t, 0, r.Round, "first occurrence kept")
		require.NotNil(t, r.FinalScore)
		assert.LessOrEqual(t, *r.FinalScore, 1.06)
		if i > 0 {
			assert.GreaterOrEqual(t, out.Results[i-1].Score(), r.Score())
		}
	}
}

func TestRunTruncatesToBudget(t *testing.T) {
	cfg := testConfig()
	cfg.Fusion.MaxResultsPerLanguage = 3
	s := newTestService(t, cfg, &fakeLLM{}, &fakeSearch{})

	out, err := s.Run(context.Background(), "quantum computing")
	require.NoError(t, err)
	assert.Len(t, out.Results, 6)
	assert.Equal(t, out.TotalResults, out.ZhCount+out.EnCount)
}

func TestRunModelFailureFallsBackToOriginal(t *testing.T) {
	sb := &fakeSearch{}
	s := newTestService(t, testConfig(), &fakeLLM{fail: true}, sb)

	out, err := s.Run(context.Background(), "quantum computing")
	require.NoError(t, err)
	assert.Equal(t, types.LanguageEn, out.DetectedLanguage)
	assert.Equal(t, "quantum computing", out.ZhQuery)
	assert.Equal(t, "quantum computing", out.EnQuery)
	assert.NotEmpty(t, out.Results)
}

func TestRunEmptyQuery(t *testing.T) {
	s := newTestService(t, testConfig(), &fakeLLM{}, &fakeSearch{})
	_, err := s.Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRunUnknownProviderIsConfigurationError(t *testing.T) {
	sb := &fakeSearch{}
	s := newTestService(t, testConfig(), &fakeLLM{}, sb, WithProvider("ghost"))

	_, err := s.Run(context.Background(), "quantum computing")
	require.Error(t, err)
	assert.True(t, provider.IsConfigurationError(err))
	assert.Empty(t, sb.queries, "no search before routing is valid")
}

func TestRunNoProviders(t *testing.T) {
	router, err := provider.NewRouter(nil, nil, types.TaskRouting{})
	require.NoError(t, err)
	s, err := New(testConfig(), router, &fakeSearch{})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Run(context.Background(), "quantum computing")
	assert.ErrorIs(t, err, provider.ErrNoProviders)
}

func TestRunWithRerank(t *testing.T) {
	cfg := testConfig()
	cfg.Rerank = types.RerankConfig{Enabled: true, TopK: 4}
	s := newTestService(t, cfg, &fakeLLM{}, &fakeSearch{})

	out, err := s.Run(context.Background(), "quantum computing")
	require.NoError(t, err)
	require.Len(t, out.Results, 4)
	for _, r := range out.Results {
		require.NotNil(t, r.RerankScore)
		assert.GreaterOrEqual(t, *r.RerankScore, 0.0)
		assert.LessOrEqual(t, *r.RerankScore, 1.0)
	}
}

func TestHealth(t *testing.T) {
	s := newTestService(t, testConfig(), &fakeLLM{}, &fakeSearch{})
	h := s.Health(context.Background())
	assert.Equal(t, StatusOK, h.Search)
	assert.Equal(t, StatusHealthy, h.Overall)
	assert.Equal(t, map[string]bool{"local": true}, h.Providers)

	s = newTestService(t, testConfig(), &fakeLLM{}, &fakeSearch{pingErr: errors.New("down")})
	h = s.Health(context.Background())
	assert.Equal(t, StatusError, h.Search)
	assert.Equal(t, StatusDegraded, h.Overall)

	var buf bytes.Buffer
	require.NoError(t, FormatHealth(&buf, h))
	assert.Contains(t, buf.String(), "provider local")
	assert.Contains(t, buf.String(), "overall: degraded")
}

func TestFormatTableAndJSON(t *testing.T) {
	s := newTestService(t, testConfig(), &fakeLLM{}, &fakeSearch{})
	out, err := s.Run(context.Background(), "quantum computing")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, FormatTable(&buf, out))
	text := buf.String()
	assert.Contains(t, text, "Query: quantum computing (en)")
	assert.Contains(t, text, "10 results (5 zh, 5 en)")
	assert.Contains(t, text, "Rounds:")

	buf.Reset()
	require.NoError(t, FormatJSON(&buf, out))
	assert.Contains(t, buf.String(), `"detected_language": "en"`)

	buf.Reset()
	require.NoError(t, FormatTable(&buf, &types.Output{Query: "x"}))
	assert.Contains(t, buf.String(), "No results found.")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "量子计...", truncate("量子计算机研究", 6))
}

func TestRunFileRoundTrip(t *testing.T) {
	s := newTestService(t, testConfig(), &fakeLLM{}, &fakeSearch{})
	out, err := s.Run(context.Background(), "quantum computing")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, WriteRunFile(path, testConfig(), out))

	rf, err := ReadRunFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, rf.Config.MaxRounds)
	assert.Equal(t, out.TotalResults, rf.Summary.Total)
	assert.Equal(t, 3, rf.Summary.Rounds)
	require.Len(t, rf.Output.Results, len(out.Results))
	assert.Equal(t, out.Results[0].URL, rf.Output.Results[0].URL)
	assert.InDelta(t, out.Results[0].Score(), rf.Output.Results[0].Score(), 1e-9)

	_, err = ReadRunFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
