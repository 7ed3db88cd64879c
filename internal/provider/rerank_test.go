// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bilingual-research/pkg/types"
)

// vectorBackend embeds each text to a fixed vector.
func vectorBackend(name string, vectors map[string][]float32) *fakeBackend {
	return &fakeBackend{name: name, embed: func(_ context.Context, _ string, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, t := range texts {
			out[i] = vectors[t]
		}
		return out, nil
	}}
}

func TestRerankEmbeddingFallback(t *testing.T) {
	b := vectorBackend("local", map[string][]float32{
		"query":    {1, 0},
		"orthogon": {0, 2},
		"same":     {3, 0},
		"diagonal": {1, 1},
		"opposite": {-1, 0},
	})
	r := newTestRouter(t, testRouting(), b)

	docs := []string{"orthogon", "same", "diagonal", "opposite"}
	ranked, err := r.Rerank(context.Background(), types.TaskRerank, "query", docs, 0)
	require.NoError(t, err)
	require.Len(t, ranked, 4)

	assert.Equal(t, 1, ranked[0].Index)
	assert.InDelta(t, 1.0, ranked[0].Score, 1e-9)
	assert.Equal(t, 2, ranked[1].Index)
	assert.InDelta(t, 0.7071, ranked[1].Score, 1e-3)
	// Ties at zero keep input order; negative similarity is floored.
	assert.Equal(t, 0, ranked[2].Index)
	assert.Equal(t, 3, ranked[3].Index)
	assert.Equal(t, 0.0, ranked[3].Score)

	for _, rk := range ranked {
		assert.GreaterOrEqual(t, rk.Score, 0.0)
		assert.LessOrEqual(t, rk.Score, 1.0)
	}
}

func TestRerankTopK(t *testing.T) {
	b := vectorBackend("local", map[string][]float32{
		"q": {1, 0}, "a": {0, 1}, "b": {1, 0}, "c": {1, 1},
	})
	r := newTestRouter(t, testRouting(), b)

	ranked, err := r.Rerank(context.Background(), types.TaskRerank, "q", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, []int{1, 2}, []int{ranked[0].Index, ranked[1].Index})
}

func TestRerankEmptyDocumentsMakesNoCalls(t *testing.T) {
	b := &fakeBackend{name: "local"}
	r := newTestRouter(t, testRouting(), b)

	ranked, err := r.Rerank(context.Background(), types.TaskRerank, "q", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, ranked)
	assert.Equal(t, int32(0), atomic.LoadInt32(&b.embedRuns))
}

func TestRerankCachesEmbeddings(t *testing.T) {
	b := vectorBackend("local", map[string][]float32{"q": {1, 0}, "a": {1, 0}, "b": {0, 1}})
	r := newTestRouter(t, testRouting(), b)
	ctx := context.Background()

	_, err := r.Rerank(ctx, types.TaskRerank, "q", []string{"a", "b"}, 0)
	require.NoError(t, err)
	_, err = r.Rerank(ctx, types.TaskRerank, "q", []string{"b", "a"}, 0)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&b.embedRuns), "second rerank served from cache")
}

type nativeBackend struct {
	fakeBackend
	calls int32
}

func (n *nativeBackend) Rerank(_ context.Context, _ string, _ string, documents []string, _ int) ([]types.Ranked, error) {
	atomic.AddInt32(&n.calls, 1)
	out := make([]types.Ranked, len(documents))
	for i := range documents {
		out[i] = types.Ranked{Index: i, Score: float64(i) / 10}
	}
	return out, nil
}

func TestRerankPrefersNativeReranker(t *testing.T) {
	nb := &nativeBackend{fakeBackend: fakeBackend{name: "local"}}
	r, err := NewRouter(descriptors("local"), map[string]Backend{"local": nb}, testRouting())
	require.NoError(t, err)

	ranked, err := r.Rerank(context.Background(), types.TaskRerank, "q", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(1), nb.calls)
	assert.Equal(t, int32(0), nb.embedRuns)
	require.Len(t, ranked, 2)
	assert.Equal(t, 2, ranked[0].Index)
}

func TestBreakerKeepsNativeReranker(t *testing.T) {
	nb := &nativeBackend{fakeBackend: fakeBackend{name: "local"}}
	wrapped := WrapBreaker(nb, types.CircuitBreakerConfig{Enabled: true})
	_, ok := wrapped.(NativeReranker)
	require.True(t, ok)

	r, err := NewRouter(descriptors("local"), map[string]Backend{"local": wrapped}, testRouting())
	require.NoError(t, err)

	ranked, err := r.Rerank(context.Background(), types.TaskRerank, "q", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&nb.calls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&nb.embedRuns))
	require.Len(t, ranked, 2)
	assert.Equal(t, 2, ranked[0].Index)

	_, ok = WrapBreaker(&fakeBackend{name: "plain"}, types.CircuitBreakerConfig{Enabled: true}).(NativeReranker)
	assert.False(t, ok)
}
