// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bilingual-research/internal/history"
	"github.com/pdiddy/bilingual-research/pkg/types"
)

func TestApplySearchFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(searchCmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{"--rounds", "2", "--balance", "0.8", "--rerank"}))

	c := types.PipelineConfig{
		Expansion: types.ExpansionConfig{MaxRounds: 3, Balance: types.Float(0.5)},
		Fusion:    types.FusionConfig{MaxResultsPerLanguage: 30},
	}
	applySearchFlags(cmd, &c)

	assert.Equal(t, 2, c.Expansion.MaxRounds)
	require.NotNil(t, c.Expansion.Balance)
	assert.Equal(t, 0.8, *c.Expansion.Balance)
	assert.Equal(t, 30, c.Fusion.MaxResultsPerLanguage, "unset flag keeps config value")
	assert.True(t, c.Rerank.Enabled)
}

func TestApplySearchFlagsBalanceZero(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Float64("balance", 0.5, "")
	cmd.Flags().Int("rounds", 3, "")
	cmd.Flags().Int("max-per-lang", 30, "")
	cmd.Flags().Bool("rerank", false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--balance", "0"}))

	var c types.PipelineConfig
	applySearchFlags(cmd, &c)
	require.NotNil(t, c.Expansion.Balance)
	assert.Equal(t, 0.0, *c.Expansion.Balance)
}

func TestSearchArgs(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("load", "", "")

	assert.Error(t, searchArgs(cmd, nil))
	assert.Error(t, searchArgs(cmd, []string{"  ", "\t"}))
	assert.NoError(t, searchArgs(cmd, []string{"量子计算"}))

	require.NoError(t, cmd.Flags().Parse([]string{"--load", "run.yaml"}))
	assert.NoError(t, searchArgs(cmd, nil))
}

func TestNewLogger(t *testing.T) {
	l := newLogger(types.LogConfig{Level: "debug", Format: "json"})
	assert.True(t, l.Enabled(context.Background(), slog.LevelDebug))
	_, ok := l.Handler().(*slog.JSONHandler)
	assert.True(t, ok)

	l = newLogger(types.LogConfig{Level: "bogus"})
	assert.False(t, l.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, l.Enabled(context.Background(), slog.LevelInfo))
}

func TestPrintOutput(t *testing.T) {
	out := &types.Output{Query: "q", DetectedLanguage: types.LanguageEn}
	var buf bytes.Buffer
	require.NoError(t, printOutput(&buf, out, true))
	assert.Contains(t, buf.String(), `"query": "q"`)

	buf.Reset()
	require.NoError(t, printOutput(&buf, out, false))
	assert.Contains(t, buf.String(), "No results found.")
}

func TestFormatRetrieveOutput(t *testing.T) {
	score := 0.8
	results := []history.QueryResult{{
		SearchResult: types.SearchResult{Title: "量子计算机研究的最新进展与未来方向以及产业化前景分析报告汇总", URL: "https://zhihu.com/1", Language: types.LanguageZh, FinalScore: &score},
		RunQuery:     "量子计算",
		Rank:         1,
	}}
	var buf bytes.Buffer
	require.NoError(t, formatRetrieveOutput(&buf, results, false))
	assert.Contains(t, buf.String(), "0.800")
	assert.Contains(t, buf.String(), "1 results")

	buf.Reset()
	require.NoError(t, formatRetrieveOutput(&buf, nil, false))
	assert.Contains(t, buf.String(), "No results found.")
}
