package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/metrics"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value.([]byte))
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	s.data = make(map[string]string)
	return n, nil
}

type fixture struct {
	handler *Handler
	engine  *indexer.Engine
	mux     *http.ServeMux
}

func newFixture(t *testing.T, withCache bool, collector *analytics.Collector) *fixture {
	t.Helper()
	m := metrics.NewUnregistered()
	engine := indexer.NewEngine(config.IndexerConfig{}, m)
	engine.IndexText("main.rs", "fn main() {\n    println!(\"hi\");\n}\n")
	engine.IndexText("lib.rs", "pub fn helper() {}\nfn main_loop() {}\n")

	var qc *cache.QueryCache
	if withCache {
		qc = cache.New(&memStore{data: make(map[string]string)}, time.Minute, m)
	}
	h := New(executor.New(engine, m), engine, qc, collector, config.SearchConfig{DefaultLimit: 10, MaxResults: 2})
	mux := http.NewServeMux()
	h.Register(mux)
	return &fixture{handler: h, engine: engine, mux: mux}
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestSearch_ReturnsHits(t *testing.T) {
	f := newFixture(t, false, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/search?q=fn+main")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	res := decode[executor.SearchResult](t, rec)
	assert.Equal(t, "fn main", res.Query)
	assert.Equal(t, []string{"fn", "main"}, res.Terms)
	assert.Equal(t, 1, res.TotalHits)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "main.rs:1:1", res.Results[0].Location)
	assert.Equal(t, 3, res.Results[0].Score)
}

func TestSearch_SpanAndBacktrackParameters(t *testing.T) {
	f := newFixture(t, false, nil)

	res := decode[executor.SearchResult](t, f.do(t, http.MethodGet, "/api/v1/search?q=fn+fn&span=none"))
	assert.Equal(t, 1, res.TotalHits)
	assert.Equal(t, "lib.rs:1:5", res.Results[0].Location)

	res = decode[executor.SearchResult](t, f.do(t, http.MethodGet, "/api/v1/search?q=fn+fn&span=0&backtrack=true"))
	assert.Zero(t, res.TotalHits)
	assert.Empty(t, res.Results)
}

func TestSearch_CapsLimitAtMaxResults(t *testing.T) {
	f := newFixture(t, false, nil)
	f.engine.IndexText("more.rs", "fn a fn b fn c")

	res := decode[executor.SearchResult](t, f.do(t, http.MethodGet, "/api/v1/search?q=fn&limit=100"))
	assert.Equal(t, 6, res.TotalHits)
	assert.Len(t, res.Results, 2)
}

func TestSearch_InvalidParameters(t *testing.T) {
	f := newFixture(t, false, nil)
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{name: "missing q", target: "/api/v1/search", want: "query parameter 'q' is required"},
		{name: "bad limit", target: "/api/v1/search?q=fn&limit=0", want: "limit must be a positive integer"},
		{name: "bad span", target: "/api/v1/search?q=fn&span=-1", want: "span must be a non-negative integer"},
		{name: "span word", target: "/api/v1/search?q=fn&span=far", want: "span must be"},
		{name: "bad backtrack", target: "/api/v1/search?q=fn&backtrack=maybe", want: "backtrack must be a boolean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode[map[string]string](t, rec)
			assert.True(t, strings.HasPrefix(body["error"], tt.want), body["error"])
		})
	}
}

func TestSearch_QueryWithoutTokens(t *testing.T) {
	f := newFixture(t, false, nil)
	rec := f.do(t, http.MethodGet, "/api/v1/search?q=%28%29")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[executor.SearchResult](t, rec)
	assert.Empty(t, res.Results)
	assert.Zero(t, res.TotalHits)
}

func TestSearch_UsesCacheKeyedOnGeneration(t *testing.T) {
	f := newFixture(t, true, nil)

	f.do(t, http.MethodGet, "/api/v1/search?q=helper")
	f.do(t, http.MethodGet, "/api/v1/search?q=helper")
	hits, misses := f.handler.cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	f.engine.IndexText("new.rs", "helper")
	res := decode[executor.SearchResult](t, f.do(t, http.MethodGet, "/api/v1/search?q=helper"))
	assert.Equal(t, 2, res.TotalHits)

	stats := decode[map[string]any](t, f.do(t, http.MethodGet, "/api/v1/cache/stats"))
	assert.Equal(t, float64(1), stats["hits"])
	assert.Equal(t, float64(2), stats["misses"])
	assert.Equal(t, "closed", stats["breaker"])

	rec := f.do(t, http.MethodPost, "/api/v1/cache/invalidate")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSearch_TracksAnalytics(t *testing.T) {
	agg := analytics.NewAggregator()
	collector := analytics.NewCollector(agg, nil, config.AnalyticsConfig{})
	collector.Start(context.Background())
	f := newFixture(t, false, collector)

	f.do(t, http.MethodGet, "/api/v1/search?q=fn+main")
	f.do(t, http.MethodGet, "/api/v1/search?q=nothing+here")
	collector.Close()

	stats := agg.Stats()
	assert.Equal(t, int64(2), stats.TotalQueries)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, map[analytics.Source]int64{analytics.SourceHTTP: 2}, stats.QueriesBySource)
}

func TestCacheEndpoints_Disabled(t *testing.T) {
	f := newFixture(t, false, nil)

	stats := decode[map[string]string](t, f.do(t, http.MethodGet, "/api/v1/cache/stats"))
	assert.Equal(t, "disabled", stats["status"])

	rec := f.do(t, http.MethodPost, "/api/v1/cache/invalidate")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIndexStats(t *testing.T) {
	f := newFixture(t, false, nil)
	stats := decode[indexer.IndexStats](t, f.do(t, http.MethodGet, "/api/v1/index/stats"))
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, uint64(2), stats.Generation)
}

func TestParseSpan(t *testing.T) {
	span, err := ParseSpan("none")
	require.NoError(t, err)
	assert.Nil(t, span)

	span, err = ParseSpan("3")
	require.NoError(t, err)
	assert.Equal(t, 3, *span)

	_, err = ParseSpan("-2")
	assert.Error(t, err)
}
