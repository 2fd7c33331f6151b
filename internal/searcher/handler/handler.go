package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/fuzzy"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/config"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/wordseek/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/tracing"
)

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, opts executor.Options) (*executor.SearchResult, error)
}

// IndexStats is satisfied by *indexer.Engine.
type IndexStats interface {
	Stats() indexer.IndexStats
}

type Handler struct {
	executor  SearchExecutor
	index     IndexStats
	cache     *cache.QueryCache
	collector *analytics.Collector
	cfg       config.SearchConfig
	logger    *slog.Logger
}

// New builds the search API. queryCache and collector may be nil.
func New(exec SearchExecutor, index IndexStats, queryCache *cache.QueryCache, collector *analytics.Collector, cfg config.SearchConfig) *Handler {
	return &Handler{
		executor:  exec,
		index:     index,
		cache:     queryCache,
		collector: collector,
		cfg:       cfg,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), "search", logger.RequestID(r.Context()))
	defer func() {
		span.End()
		span.Log()
	}()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, pkgerrors.Invalidf("query parameter 'q' is required"))
		return
	}
	opts, err := h.options(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	span.SetAttr("query", query)

	plan := parser.Parse(query)
	if plan.Empty() {
		h.writeJSON(w, http.StatusOK, &executor.SearchResult{
			Query:   query,
			Terms:   plan.Terms,
			Results: []executor.Hit{},
		})
		return
	}

	var result *executor.SearchResult
	cacheHit := false
	if h.cache != nil {
		key := cache.Key{
			Terms:      plan.Terms,
			LineSpan:   opts.Fuzzy.LineSpan,
			Backtrack:  opts.Fuzzy.Backtrack,
			Limit:      opts.Limit,
			Generation: h.index.Stats().Generation,
		}
		result, cacheHit, err = h.cache.GetOrCompute(ctx, key, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, opts)
		})
	} else {
		result, err = h.executor.Execute(ctx, plan, opts)
	}
	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			h.writeError(w, pkgerrors.New(pkgerrors.ErrTimeout, http.StatusGatewayTimeout, "search timed out"))
			return
		}
		h.writeError(w, pkgerrors.New(pkgerrors.ErrInternal, http.StatusInternalServerError, "search failed"))
		return
	}
	span.SetAttr("cache_hit", cacheHit)

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		h.collector.Track(analytics.QueryEvent{
			Query:     query,
			Terms:     plan.Terms,
			TotalHits: result.TotalHits,
			Returned:  len(result.Results),
			LatencyMs: latencyMs,
			CacheHit:  cacheHit,
			Source:    analytics.SourceHTTP,
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, result)
}

// options reads limit, span and backtrack, falling back to the configured
// defaults. limit is capped at MaxResults.
func (h *Handler) options(r *http.Request) (executor.Options, error) {
	q := r.URL.Query()
	opts := executor.Options{
		Limit: h.cfg.DefaultLimit,
		Fuzzy: fuzzy.Config{LineSpan: h.cfg.LineSpan, Backtrack: h.cfg.Backtrack},
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, pkgerrors.Invalidf("limit must be a positive integer, got %q", v)
		}
		opts.Limit = n
	}
	if h.cfg.MaxResults > 0 && (opts.Limit == 0 || opts.Limit > h.cfg.MaxResults) {
		opts.Limit = h.cfg.MaxResults
	}
	if v := q.Get("span"); v != "" {
		span, err := ParseSpan(v)
		if err != nil {
			return opts, pkgerrors.Invalidf("%v", err)
		}
		opts.Fuzzy.LineSpan = span
	}
	if v := q.Get("backtrack"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, pkgerrors.Invalidf("backtrack must be a boolean, got %q", v)
		}
		opts.Fuzzy.Backtrack = b
	}
	return opts, nil
}

// ParseSpan accepts a non-negative line count or "none" for no limit.
func ParseSpan(v string) (*int, error) {
	if v == "none" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("span must be a non-negative integer or \"none\", got %q", v)
	}
	return &n, nil
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.index.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, pkgerrors.New(pkgerrors.ErrUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, pkgerrors.New(pkgerrors.ErrInternal, http.StatusInternalServerError, "cache invalidation failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	message := err.Error()
	var appErr *pkgerrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, pkgerrors.HTTPStatusCode(err), map[string]string{"error": message})
}
