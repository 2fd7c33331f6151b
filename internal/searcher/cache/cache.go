// Package cache stores executed search results in Redis, keyed on
// everything that can change the answer, including the index generation so
// a rebuilt index never serves stale hits.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wordseek/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/resilience"
)

const keyPrefix = "wordseek:search:"

// Store is the subset of pkg/redis.Client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies one cacheable execution.
type Key struct {
	Terms      []string
	LineSpan   *int
	Backtrack  bool
	Limit      int
	Generation uint64
}

// String renders the Redis key. Term order is significant.
func (k Key) String() string {
	var b strings.Builder
	for i, t := range k.Terms {
		if i > 0 {
			b.WriteByte(0)
		}
		b.WriteString(t)
	}
	b.WriteString("|span=")
	if k.LineSpan == nil {
		b.WriteString("none")
	} else {
		b.WriteString(strconv.Itoa(*k.LineSpan))
	}
	fmt.Fprintf(&b, "|backtrack=%t|limit=%d|gen=%d", k.Backtrack, k.Limit, k.Generation)
	return fmt.Sprintf("%s%016x", keyPrefix, xxhash.Sum64String(b.String()))
}

const breakerName = "redis-cache"

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	m.CircuitBreakerState.WithLabelValues(breakerName).Set(float64(resilience.StateClosed))
	return &QueryCache{
		store: store,
		ttl:   ttl,
		breaker: resilience.NewCircuitBreaker(breakerName, resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			Cooldown:         15 * time.Second,
			OnStateChange: func(name string, to resilience.State) {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			},
		}),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached result for key. Store failures and an open breaker
// count as misses.
func (c *QueryCache) Get(ctx context.Context, key Key) (*executor.SearchResult, bool) {
	k := key.String()
	var data string
	err := c.breaker.Execute(func() error {
		v, err := c.store.Get(ctx, k)
		if pkgredis.IsNilError(err) {
			return nil
		}
		data = v
		return err
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", k, "error", err)
		c.miss()
		return nil, false
	}
	if data == "" {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", k, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.CacheHitsTotal.Inc()
	c.logger.Debug("cache hit", "key", k)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, key Key, result *executor.SearchResult) {
	k := key.String()
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, k, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached result for key or runs compute, caching
// its result. Concurrent misses for the same key share one compute call.
// The boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key Key,
	compute func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(key.String(), func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate deletes every cached search result.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the state of the circuit guarding the store.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.State()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	c.metrics.CacheMissesTotal.Inc()
}
