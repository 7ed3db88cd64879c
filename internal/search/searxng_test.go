// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bilingual-research/pkg/types"
)

func newSearXNG(t *testing.T, handler http.HandlerFunc) *SearXNGBackend {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	cfg := testCfg()
	cfg.Endpoint = ts.URL + "/search"
	b := NewSearXNGBackend(cfg)
	b.Client = ts.Client()
	return b
}

func TestSearXNGRequestParams(t *testing.T) {
	var captured *http.Request
	b := newSearXNG(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"query":"q","results":[]}`)
	})

	_, err := b.Search(context.Background(), Request{
		Query:    "量子计算 进展",
		Language: types.LanguageZh,
		Engines:  []string{"baidu", "so", "google"},
	})
	require.NoError(t, err)
	require.NotNil(t, captured)

	q := captured.URL.Query()
	assert.Equal(t, "/search", captured.URL.Path)
	assert.Equal(t, "量子计算 进展", q.Get("q"))
	assert.Equal(t, "json", q.Get("format"))
	assert.Equal(t, "zh", q.Get("language"))
	assert.Equal(t, "baidu,so,google", q.Get("engines"))
	assert.Equal(t, "test/0.1", captured.Header.Get("User-Agent"))
}

func TestSearXNGOmitsEmptyEngines(t *testing.T) {
	var rawQuery string
	b := newSearXNG(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"results":[]}`)
	})

	_, err := b.Search(context.Background(), Request{Query: "q", Language: types.LanguageEn})
	require.NoError(t, err)
	assert.NotContains(t, rawQuery, "engines=")
}

func TestSearXNGScoreNormalization(t *testing.T) {
	b := newSearXNG(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"results":[
			{"title":" Quantum ","url":"https://arxiv.org/abs/1","content":"c1","engine":"google","score":4.0},
			{"title":"Second","url":"https://example.com/2","content":"c2","engine":"bing","score":1.0},
			{"title":"Third","url":"https://example.com/3","content":"c3","engine":"bing"}
		]}`)
	})

	got, err := b.Search(context.Background(), Request{Query: "q", Language: types.LanguageEn})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Quantum", got[0].Title)
	assert.Equal(t, "https://arxiv.org/abs/1", got[0].URL)
	assert.Equal(t, "c1", got[0].Snippet)
	assert.Equal(t, "google", got[0].Engine)
	assert.Equal(t, 1.0, got[0].RawRelevance)
	assert.Equal(t, 0.25, got[1].RawRelevance)
	assert.Equal(t, 0.0, got[2].RawRelevance)
}

func TestSearXNGPositionFallback(t *testing.T) {
	b := newSearXNG(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"results":[{"url":"https://a"},{"url":"https://b"},{"url":"https://c"}]}`)
	})

	got, err := b.Search(context.Background(), Request{Query: "q", Language: types.LanguageEn})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.InDelta(t, 1.0, got[0].RawRelevance, 1e-9)
	assert.InDelta(t, 0.55, got[1].RawRelevance, 1e-9)
	assert.InDelta(t, 0.1, got[2].RawRelevance, 1e-9)
}

func TestSearXNGMaxResults(t *testing.T) {
	b := newSearXNG(t, func(w http.ResponseWriter, _ *http.Request) {
		var items []string
		for i := 0; i < 30; i++ {
			items = append(items, fmt.Sprintf(`{"url":"https://example.com/%d","score":1}`, i))
		}
		fmt.Fprintf(w, `{"results":[%s]}`, strings.Join(items, ","))
	})

	got, err := b.Search(context.Background(), Request{Query: "q", Language: types.LanguageEn, MaxResults: 5})
	require.NoError(t, err)
	assert.Len(t, got, 5)

	got, err = b.Search(context.Background(), Request{Query: "q", Language: types.LanguageEn})
	require.NoError(t, err)
	assert.Len(t, got, defaultSearXNGMaxResults)
}

func TestSearXNGErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{"http error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}, "HTTP 403"},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<html>not json</html>`)
		}, "parsing SearXNG response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newSearXNG(t, tt.handler)
			_, err := b.Search(context.Background(), Request{Query: "q", Language: types.LanguageEn})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSearXNGPing(t *testing.T) {
	var path string
	b := newSearXNG(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if r.URL.Path != "/config" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{}`)
	})
	require.NoError(t, b.Ping(context.Background()))
	assert.Equal(t, "/config", path)
}

func TestConfigURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/config", configURL("http://localhost:8080/search"))
	assert.Equal(t, "http://localhost:8080/config", configURL("http://localhost:8080/search/"))
	assert.Equal(t, "http://searx.local/config", configURL("http://searx.local"))
}

func TestExecutorOverSearXNG(t *testing.T) {
	b := newSearXNG(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"results":[{"url":"https://zhihu.com/q/1","title":"量子","score":2}]}`)
	})
	e := NewExecutor(b, testCfg())

	got := e.Search(context.Background(), "量子计算", types.LanguageZh, 1)
	require.Len(t, got, 1)
	assert.Equal(t, types.LanguageZh, got[0].Language)
	assert.Equal(t, 1, got[0].Round)
	assert.Equal(t, 1.0, got[0].RawRelevance)
	assert.NoError(t, e.Ping(context.Background()))
}
