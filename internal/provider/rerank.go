// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pdiddy/bilingual-research/pkg/types"
)

const defaultEmbeddingCacheSize = 1024

// Rerank scores documents against query and returns them by descending
// score, truncated to topK (topK <= 0 keeps all). Backends implementing
// NativeReranker are used directly; otherwise scores are the cosine
// similarity of embeddings, floored at zero.
func (r *Router) Rerank(ctx context.Context, task, query string, documents []string, topK int, opts ...CallOption) ([]types.Ranked, error) {
	rt, err := r.resolve(task, applyCallOptions(opts))
	if err != nil {
		return nil, err
	}
	if len(documents) == 0 {
		return []types.Ranked{}, nil
	}

	if nr, ok := rt.backend.(NativeReranker); ok {
		cctx, cancel := context.WithTimeout(ctx, rt.provider.EffectiveTimeout())
		defer cancel()

		ranked, err := nr.Rerank(cctx, rt.model, query, documents, topK)
		if err != nil {
			return nil, unavailable(rt.provider.Name, "rerank", err)
		}
		return sortRanked(ranked, topK), nil
	}
	return r.embeddingRerank(ctx, rt, query, documents, topK)
}

func (r *Router) embeddingRerank(ctx context.Context, rt route, query string, documents []string, topK int) ([]types.Ranked, error) {
	texts := make([]string, 0, len(documents)+1)
	texts = append(texts, query)
	texts = append(texts, documents...)

	vecs, err := r.cachedEmbed(ctx, rt, texts)
	if err != nil {
		return nil, err
	}

	q := normalize(vecs[0])
	ranked := make([]types.Ranked, len(documents))
	for i := range documents {
		sim := dot(q, normalize(vecs[i+1]))
		ranked[i] = types.Ranked{Index: i, Score: math.Max(0, math.Min(1, sim))}
	}
	return sortRanked(ranked, topK), nil
}

// cachedEmbed embeds texts, fetching only cache misses in a single call.
func (r *Router) cachedEmbed(ctx context.Context, rt route, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if vec, ok := r.cache.get(rt.provider.Name, rt.model, t); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := r.embed(ctx, rt, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		r.cache.add(rt.provider.Name, rt.model, texts[i], vecs[j])
	}
	return out, nil
}

func sortRanked(ranked []types.Ranked, topK int) []types.Ranked {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

func normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	var norm float64
	for i, x := range v {
		out[i] = float64(x)
		norm += out[i] * out[i]
	}
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i := range out {
		out[i] /= norm
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}

// embeddingCache memoises embeddings by provider, model, and text.
type embeddingCache struct {
	lru *lru.Cache[string, []float32]
}

func newEmbeddingCache(size int) *embeddingCache {
	if size <= 0 {
		size = defaultEmbeddingCacheSize
	}
	c, _ := lru.New[string, []float32](size)
	return &embeddingCache{lru: c}
}

func (c *embeddingCache) key(provider, model, text string) string {
	h := sha256.Sum256([]byte(provider + "\x00" + model + "\x00" + text))
	return hex.EncodeToString(h[:])
}

func (c *embeddingCache) get(provider, model, text string) ([]float32, bool) {
	return c.lru.Get(c.key(provider, model, text))
}

func (c *embeddingCache) add(provider, model, text string, vec []float32) {
	c.lru.Add(c.key(provider, model, text), vec)
}
