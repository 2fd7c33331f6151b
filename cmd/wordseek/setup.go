package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/fuzzy"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/metrics"
)

// loadConfig reads the config file and environment, lets command-line flags
// override them, and installs the logger.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("include") {
		cfg.Indexer.Include = c.StringSlice("include")
	}
	if c.IsSet("exclude") {
		cfg.Indexer.Exclude = c.StringSlice("exclude")
	}
	if c.IsSet("line-span") {
		span, err := handler.ParseSpan(c.String("line-span"))
		if err != nil {
			return nil, fmt.Errorf("--line-span: %w", err)
		}
		cfg.Search.LineSpan = span
	}
	if c.IsSet("backtrack") {
		cfg.Search.Backtrack = c.Bool("backtrack")
	}
	if c.IsSet("limit") {
		cfg.Search.DefaultLimit = c.Int("limit")
		cfg.Shell.Limit = c.Int("limit")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Logging.Format = c.String("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	return cfg, nil
}

func searchOptions(cfg *config.Config) executor.Options {
	return executor.Options{
		Limit: cfg.Search.DefaultLimit,
		Fuzzy: fuzzy.Config{
			LineSpan:  cfg.Search.LineSpan,
			Backtrack: cfg.Search.Backtrack,
		},
	}
}

// buildIndex indexes paths into a fresh engine and reports the build to
// collector when one is given.
func buildIndex(ctx context.Context, cfg *config.Config, m *metrics.Metrics, paths []string, collector *analytics.Collector) (*indexer.Engine, error) {
	engine := indexer.NewEngine(cfg.Indexer, m)
	if len(paths) == 0 {
		return engine, nil
	}
	report, err := engine.IndexPaths(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	if collector != nil {
		collector.Track(analytics.IndexEvent{
			Files:      report.Files,
			Tokens:     report.Tokens,
			Skipped:    len(report.Skipped),
			DurationMs: report.Duration.Milliseconds(),
			Timestamp:  time.Now().UTC(),
		})
	}
	return engine, nil
}

// startCollector feeds agg and, when analytics publishing is enabled, the
// Kafka query events topic. The returned func flushes and stops both.
func startCollector(ctx context.Context, cfg *config.Config, agg *analytics.Aggregator) (*analytics.Collector, func()) {
	var producer *kafka.Producer
	var publisher analytics.Publisher
	if cfg.Analytics.Publish {
		producer = kafka.NewProducer(cfg.Kafka)
		publisher = producer
		slog.Info("publishing query events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.QueryEvents)
	}
	collector := analytics.NewCollector(agg, publisher, cfg.Analytics)
	collector.Start(ctx)
	return collector, func() {
		collector.Close()
		if producer != nil {
			if err := producer.Close(); err != nil {
				slog.Warn("closing kafka producer", "error", err)
			}
		}
	}
}
