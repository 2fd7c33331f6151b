package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wordseek/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/resilience"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Index PATHs and serve the search API over HTTP",
		ArgsUsage: "PATH...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP port (overrides server.port)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		if err := metricsServer.Start(); err != nil {
			return err
		}
		defer metricsServer.Shutdown(context.Background())
	}

	aggregator := analytics.NewAggregator()
	collector, closeCollector := startCollector(ctx, cfg, aggregator)
	defer closeCollector()

	// The index is complete before the listener opens; requests only read it.
	engine, err := buildIndex(ctx, cfg, m, c.Args().Slice(), collector)
	if err != nil {
		return err
	}
	stats := engine.Stats()
	slog.Info("index ready", "files", stats.Files, "terms", stats.Terms, "occurrences", stats.Occurrences)

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		st := engine.Stats()
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d files, %d terms", st.Files, st.Terms)}
	})

	queryCache, closeRedis := connectCache(ctx, cfg, m, checker)
	defer closeRedis()

	var snapshots analytics.SnapshotSource
	if cfg.Postgres.Host != "" {
		db, err := connectPostgres(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
			store := analytics.NewStore(db)
			if err := store.Migrate(ctx); err != nil {
				slog.Warn("analytics snapshot table unavailable", "error", err)
			} else {
				snapshots = store
				done := store.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
				defer func() {
					stop()
					<-done
				}()
			}
			checker.Register("postgres", health.Ping(db.Ping, health.StatusDegraded))
		}
	}

	h := handler.New(executor.New(engine, m), engine, queryCache, collector, cfg.Search)

	mux := http.NewServeMux()
	h.Register(mux)
	analytics.NewHandler(aggregator, snapshots).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mws := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Metrics(m)}
	if len(cfg.Server.CORSOrigins) > 0 {
		mws = append(mws, middleware.CORS(cfg.Server.CORSOrigins))
	}
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		go limiter.RunCleanup(ctx, 5*time.Minute)
		mws = append(mws, middleware.RateLimit(limiter))
	}
	mws = append(mws, middleware.Timeout(cfg.Server.RequestTimeout))
	chain := middleware.Chain(mux, mws...)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return listen(ctx, server, cfg.Server.ShutdownTimeout)
}

// listen serves until ctx is cancelled and then shuts down gracefully.
func listen(ctx context.Context, server *http.Server, shutdownTimeout time.Duration) error {
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("wordseek listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving http: %w", err)
	}
	slog.Info("wordseek stopped")
	return nil
}

// connectCache returns nil when Redis is not configured or unreachable;
// search then runs uncached.
func connectCache(ctx context.Context, cfg *config.Config, m *metrics.Metrics, checker *health.Checker) (*cache.QueryCache, func()) {
	if cfg.Redis.Addr == "" {
		return nil, func() {}
	}
	var client *pkgredis.Client
	err := resilience.Retry(ctx, "redis-connect", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		var err error
		client, err = pkgredis.NewClient(ctx, cfg.Redis)
		return err
	})
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
		checker.Register("redis", func(context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not connected"}
		})
		return nil, func() {}
	}
	checker.Register("redis", health.Ping(client.Ping, health.StatusDegraded))
	slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	return cache.New(client, cfg.Redis.CacheTTL, m), func() { client.Close() }
}

func connectPostgres(ctx context.Context, cfg config.PostgresConfig) (*postgres.Client, error) {
	var db *postgres.Client
	err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		var err error
		db, err = postgres.New(ctx, cfg)
		return err
	})
	return db, err
}
