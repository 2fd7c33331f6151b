package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/kafka"
)

// maxLatencySamples bounds the window used for latency percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalQueries      int64            `json:"total_queries"`
	FilesIndexed      int64            `json:"files_indexed"`
	TokensIndexed     int64            `json:"tokens_indexed"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesBySource   map[Source]int64 `json:"queries_by_source"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals over query and index events. It is fed
// in-process by a Collector or from Kafka through HandleMessage.
type Aggregator struct {
	mu                sync.RWMutex
	totalQueries      int64
	filesIndexed      int64
	tokensIndexed     int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	latencies         []int64
	next              int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	bySource          map[Source]int64
	startTime         time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		bySource:          make(map[Source]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Record folds one event into the totals. Unknown event types are ignored.
func (a *Aggregator) Record(event any) {
	switch ev := event.(type) {
	case QueryEvent:
		a.recordQuery(ev)
	case *QueryEvent:
		a.recordQuery(*ev)
	case IndexEvent:
		a.recordIndex(ev)
	case *IndexEvent:
		a.recordIndex(*ev)
	default:
		a.logger.Warn("ignoring unknown analytics event", "type", fmt.Sprintf("%T", event))
	}
}

// HandleMessage decodes a message published by a Collector and records it.
// Undecodable messages are logged and skipped so the consumer keeps moving.
func (a *Aggregator) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	switch string(key) {
	case KeyQuery:
		ev, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			a.logger.Error("failed to decode query event", "error", err)
			return nil
		}
		a.recordQuery(ev)
	case KeyIndex:
		ev, err := kafka.DecodeJSON[IndexEvent](value)
		if err != nil {
			a.logger.Error("failed to decode index event", "error", err)
			return nil
		}
		a.recordIndex(ev)
	default:
		a.logger.Warn("unknown analytics message key", "key", string(key))
	}
	return nil
}

func (a *Aggregator) recordQuery(ev QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalQueries++
	if ev.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if ev.TotalHits == 0 {
		a.zeroResults++
		a.zeroResultQueries[ev.Query]++
	}
	a.queryCounts[ev.Query]++
	if ev.Source != "" {
		a.bySource[ev.Source]++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, ev.LatencyMs)
		return
	}
	a.latencies[a.next] = ev.LatencyMs
	a.next = (a.next + 1) % maxLatencySamples
}

func (a *Aggregator) recordIndex(ev IndexEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filesIndexed += int64(ev.Files)
	a.tokensIndexed += int64(ev.Tokens)
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalQueries:    a.totalQueries,
		FilesIndexed:    a.filesIndexed,
		TokensIndexed:   a.tokensIndexed,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
		QueriesBySource: make(map[Source]int64, len(a.bySource)),
	}
	for k, v := range a.bySource {
		stats.QueriesBySource[k] = v
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

// percentile uses nearest-rank on an ascending slice.
func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then query ascending.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
