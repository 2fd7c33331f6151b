package executor

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/fuzzy"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/tracing"
)

func newTestExecutor(t *testing.T) (*Executor, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewUnregistered()
	engine := indexer.NewEngine(config.IndexerConfig{}, m)
	engine.IndexText("b.txt", "x y z x y")
	engine.IndexText("a.txt", "x y")
	return New(engine, m), m
}

func TestExecute_ReturnsRankedHits(t *testing.T) {
	ex, m := newTestExecutor(t)

	res, err := ex.Execute(context.Background(), parser.Parse("x y"), Options{})
	require.NoError(t, err)

	assert.Equal(t, "x y", res.Query)
	assert.Equal(t, []string{"x", "y"}, res.Terms)
	assert.Equal(t, 3, res.TotalHits)
	require.Len(t, res.Results, 3)
	assert.Equal(t, Hit{File: "a.txt", Line: 1, Column: 1, Offset: 0, Score: 2, Location: "a.txt:1:1"}, res.Results[0])
	assert.Equal(t, "b.txt:1:1", res.Results[1].Location)
	assert.Equal(t, "b.txt:1:7", res.Results[2].Location)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")))
}

func TestExecute_LimitKeepsTotal(t *testing.T) {
	ex, _ := newTestExecutor(t)

	res, err := ex.Execute(context.Background(), parser.Parse("x y"), Options{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalHits)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "a.txt:1:1", res.Results[0].Location)
}

func TestExecute_EmptyQuery(t *testing.T) {
	ex, m := newTestExecutor(t)

	res, err := ex.Execute(context.Background(), parser.Parse("  ;; "), Options{})
	require.NoError(t, err)
	assert.Zero(t, res.TotalHits)
	assert.Empty(t, res.Results)
	assert.NotNil(t, res.Results)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("empty")))
}

func TestExecute_ZeroResults(t *testing.T) {
	ex, m := newTestExecutor(t)

	res, err := ex.Execute(context.Background(), parser.Parse("y x z"), Options{Fuzzy: fuzzy.Config{LineSpan: fuzzy.Span(0)}})
	require.NoError(t, err)
	assert.Zero(t, res.TotalHits)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("zero_result")))
}

func TestExecute_RecordsSpan(t *testing.T) {
	ex, _ := newTestExecutor(t)

	ctx, root := tracing.StartSpan(context.Background(), "search", "trace-1")
	_, err := ex.Execute(ctx, parser.Parse("x y"), Options{Fuzzy: fuzzy.Config{Backtrack: true}})
	require.NoError(t, err)

	require.Len(t, root.Children(), 1)
	child := root.Children()[0]
	assert.Equal(t, "executor.execute", child.Name)
	assert.Equal(t, "trace-1", child.TraceID)
	assert.Equal(t, "backtrack", child.Attr("mode"))
	assert.Equal(t, int64(3), child.Attr("total_hits"))
}

func TestExecute_CancelledContext(t *testing.T) {
	ex, _ := newTestExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ex.Execute(ctx, parser.Parse("x"), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
