package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/fuzzy"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/tracing"
)

// Hit is one ranked location in a SearchResult.
type Hit struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Offset   int    `json:"offset"`
	Score    int    `json:"score"`
	Location string `json:"location"`
}

type SearchResult struct {
	Query     string   `json:"query"`
	Terms     []string `json:"terms"`
	TotalHits int      `json:"total_hits"`
	Results   []Hit    `json:"results"`
}

// Options tune a single execution. Limit 0 returns every hit.
type Options struct {
	Limit int
	Fuzzy fuzzy.Config
}

type Executor struct {
	engine  *indexer.Engine
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(engine *indexer.Engine, m *metrics.Metrics) *Executor {
	return &Executor{
		engine:  engine,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, opts Options) (*SearchResult, error) {
	_, span := tracing.StartChildSpan(ctx, "executor.execute")
	defer span.End()

	result := &SearchResult{
		Query:   plan.RawQuery,
		Terms:   plan.Terms,
		Results: []Hit{},
	}
	if plan.Empty() {
		e.metrics.SearchQueriesTotal.WithLabelValues("empty").Inc()
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := "greedy"
	if opts.Fuzzy.Backtrack {
		mode = "backtrack"
	}
	start := time.Now()
	matches := e.engine.Search(opts.Fuzzy, plan.Terms)
	elapsed := time.Since(start)

	result.TotalHits = len(matches)
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	for _, m := range matches {
		result.Results = append(result.Results, Hit{
			File:     m.Location.File,
			Line:     m.Location.Pos.Line,
			Column:   m.Location.Pos.Column,
			Offset:   m.Location.Pos.Offset,
			Score:    m.Score,
			Location: m.Location.String(),
		})
	}

	resultType := "hit"
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	e.metrics.SearchLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
	e.metrics.SearchResultsCount.Observe(float64(len(result.Results)))

	span.SetAttr("mode", mode)
	span.SetAttr("terms", len(plan.Terms))
	span.SetAttr("total_hits", result.TotalHits)

	log := e.logger
	if id := logger.RequestID(ctx); id != "" {
		log = log.With("request_id", id)
	}
	log.Info("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"mode", mode,
		"total_hits", result.TotalHits,
		"results", len(result.Results),
		"latency", elapsed,
	)
	return result, nil
}
