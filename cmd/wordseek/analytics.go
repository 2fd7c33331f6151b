package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/middleware"
)

func analyticsCommand() *cli.Command {
	return &cli.Command{
		Name:  "analytics",
		Usage: "Aggregate query events published by wordseek instances and serve the totals",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP port (overrides server.port)",
			},
			&cli.BoolFlag{
				Name:  "from-start",
				Usage: "Replay the topic from its first offset for a new consumer group",
			},
		},
		Action: runAnalytics,
	}
}

// runAnalytics consumes the query events topic into an Aggregator,
// snapshots it to Postgres when configured and serves GET /api/v1/analytics.
func runAnalytics(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, c.Bool("from-start"), aggregator.HandleMessage)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	defer func() {
		stop()
		<-consumerDone
	}()
	slog.Info("analytics consumer started", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.QueryEvents)

	checker := health.NewChecker()
	checker.Register("kafka", func(context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("consuming %s", cfg.Kafka.QueryEvents)}
	})
	var snapshots analytics.SnapshotSource
	if cfg.Postgres.Host != "" {
		db, err := connectPostgres(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting analytics store: %w", err)
		}
		defer db.Close()
		store := analytics.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		if last, err := store.LatestSnapshot(ctx); err != nil {
			slog.Warn("reading latest snapshot", "error", err)
		} else if last != nil {
			slog.Info("previous snapshot", "total_queries", last.TotalQueries, "files_indexed", last.FilesIndexed)
		}
		snapshots = store
		done := store.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
		defer func() {
			stop()
			<-done
		}()
		checker.Register("postgres", health.Ping(db.Ping, health.StatusDown))
	}

	mux := http.NewServeMux()
	analytics.NewHandler(aggregator, snapshots).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.RequestID(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return listen(ctx, server, cfg.Server.ShutdownTimeout)
}
