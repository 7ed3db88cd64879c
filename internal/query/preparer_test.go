// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bilingual-research/internal/provider"
	"github.com/pdiddy/bilingual-research/pkg/types"
)

// scriptedLLM answers each task with a fixed reply or error.
type scriptedLLM struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []string
	prompts []string
}

func (s *scriptedLLM) Complete(_ context.Context, task string, messages []types.Message, _ ...provider.CallOption) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, task)
	if len(messages) > 0 {
		s.prompts = append(s.prompts, messages[len(messages)-1].Content)
	}
	if err := s.errs[task]; err != nil {
		return "", err
	}
	return s.replies[task], nil
}

func TestPrepareSameLanguageIsUnchanged(t *testing.T) {
	llm := &scriptedLLM{}
	p := NewPreparer(llm)

	got := p.Prepare(context.Background(), "量子计算", types.LanguageZh, types.LanguageZh)
	assert.Equal(t, "量子计算", got)
	assert.Empty(t, llm.calls, "no model calls when already in target language")
}

func TestPrepareTranslateThenOptimize(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{
		types.TaskTranslate: " \"quantum computing breakthroughs\" ",
		types.TaskRewrite:   `{"sub_queries": ["quantum computing breakthroughs 2024", "qubit error correction"]}`,
	}}
	p := NewPreparer(llm)

	got := p.Prepare(context.Background(), "量子计算突破", types.LanguageZh, types.LanguageEn)
	assert.Equal(t, "quantum computing breakthroughs 2024", got)
	assert.Equal(t, []string{types.TaskTranslate, types.TaskRewrite}, llm.calls)
	assert.Contains(t, llm.prompts[1], "quantum computing breakthroughs", "optimizer sees the translation")
}

func TestPrepareFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		replies map[string]string
		errs    map[string]error
		want    string
	}{
		{
			name: "translation failure returns original",
			errs: map[string]error{types.TaskTranslate: errors.New("timeout")},
			want: "quantum computing",
		},
		{
			name:    "empty translation returns original",
			replies: map[string]string{types.TaskTranslate: "  "},
			want:    "quantum computing",
		},
		{
			name:    "malformed rewrite returns translation",
			replies: map[string]string{types.TaskTranslate: "量子计算", types.TaskRewrite: "Sure, here are queries"},
			want:    "量子计算",
		},
		{
			name:    "rewrite backend failure returns translation",
			replies: map[string]string{types.TaskTranslate: "量子计算"},
			errs:    map[string]error{types.TaskRewrite: errors.New("503")},
			want:    "量子计算",
		},
		{
			name:    "empty sub_queries returns translation",
			replies: map[string]string{types.TaskTranslate: "量子计算", types.TaskRewrite: `{"sub_queries": ["", "  "]}`},
			want:    "量子计算",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPreparer(&scriptedLLM{replies: tt.replies, errs: tt.errs})
			got := p.Prepare(context.Background(), "quantum computing", types.LanguageEn, types.LanguageZh)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrepareMixedTranslatesBothWays(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{
		types.TaskTranslate: "translated",
		types.TaskRewrite:   `{"sub_queries": ["optimized"]}`,
	}}
	p := NewPreparer(llm)

	assert.Equal(t, "optimized", p.Prepare(context.Background(), "量子 computing", types.LanguageMixed, types.LanguageZh))
	assert.Equal(t, "optimized", p.Prepare(context.Background(), "量子 computing", types.LanguageMixed, types.LanguageEn))
	assert.Len(t, llm.calls, 4)
}

func TestTranslateStripsThinking(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{types.TaskTranslate: "<think>hmm</think>\n「机器学习」"}}
	got, err := NewPreparer(llm).Translate(context.Background(), "machine learning", types.LanguageZh)
	require.NoError(t, err)
	assert.Equal(t, "机器学习", got)
}

func TestAlternates(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{
		types.TaskExpand: "```json\n{\"sub_queries\": [\"q\", \"alt one\", \" alt two \", \"alt one\", \"alt three\", \"alt four\"]}\n```",
	}}
	p := NewPreparer(llm)

	got, err := p.Alternates(context.Background(), "q", types.LanguageEn, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"alt one", "alt two", "alt three"}, got)
	assert.True(t, strings.Contains(llm.prompts[0], "Generate 3 alternative English"))
}

func TestAlternatesErrors(t *testing.T) {
	p := NewPreparer(&scriptedLLM{replies: map[string]string{types.TaskExpand: "no json here"}})
	_, err := p.Alternates(context.Background(), "q", types.LanguageZh, 3)
	assert.ErrorIs(t, err, &provider.MalformedResponseError{})

	boom := errors.New("down")
	p = NewPreparer(&scriptedLLM{errs: map[string]error{types.TaskExpand: boom}})
	_, err = p.Alternates(context.Background(), "q", types.LanguageZh, 3)
	assert.ErrorIs(t, err, boom)

	got, err := p.Alternates(context.Background(), "q", types.LanguageZh, 0)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestRewrite(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{types.TaskRewrite: `{
		"intent": "survey recent progress",
		"sub_queries": ["quantum error correction 2024", "logical qubit milestones"],
		"keywords": ["quantum", "qubit"],
		"strategy": {"engines": ["google"]}
	}`}}
	rw := NewPreparer(llm).Rewrite(context.Background(), "quantum computing progress", types.LanguageEn, "")

	assert.False(t, rw.Fallback)
	assert.Equal(t, "quantum computing progress", rw.OriginalQuery)
	assert.Equal(t, "survey recent progress", rw.Intent)
	assert.Len(t, rw.SubQueries, 2)
	assert.Equal(t, []string{"quantum", "qubit"}, rw.Keywords)
	assert.Contains(t, rw.Strategy, "engines")
	assert.Contains(t, llm.prompts[0], "Research depth: standard")
}

func TestRewriteFallback(t *testing.T) {
	p := NewPreparer(&scriptedLLM{errs: map[string]error{types.TaskRewrite: errors.New("down")}})
	rw := p.Rewrite(context.Background(), "deep learning compilers", types.LanguageEn, "deep")

	assert.True(t, rw.Fallback)
	assert.Equal(t, "General research", rw.Intent)
	assert.Equal(t, []string{"deep learning compilers"}, rw.SubQueries)
	assert.Equal(t, []string{"deep", "learning", "compilers"}, rw.Keywords)
	assert.NotNil(t, rw.Strategy)
}
