package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/shell"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/metrics"
)

func runShell(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	m := metrics.NewUnregistered()
	collector, closeCollector := startCollector(ctx, cfg, analytics.NewAggregator())
	defer closeCollector()

	engine, err := buildIndex(ctx, cfg, m, c.Args().Slice(), collector)
	if err != nil {
		return err
	}

	term := shell.OpenTerminal(historyPath(cfg.Shell.HistoryFile))
	defer func() {
		if err := term.Close(); err != nil {
			slog.Warn("closing terminal", "error", err)
		}
	}()

	opts := searchOptions(cfg)
	opts.Limit = cfg.Shell.Limit
	sh := shell.New(term, os.Stdout, executor.New(engine, m), engine, collector, cfg.Shell.Prompt, opts)
	return sh.Run(ctx)
}

// historyPath expands a leading ~/ in the configured history file.
func historyPath(p string) string {
	if len(p) < 2 || p[:2] != "~/" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, p[2:])
}
