// Package shell is the interactive query prompt: each line read is either a
// ':' command that adjusts matching options or a query whose ranked
// locations are printed as file:line:column.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/parser"
)

// LineReader is the input side of the prompt. Prompt returns
// liner.ErrPromptAborted on Ctrl-C and io.EOF on Ctrl-D.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, opts executor.Options) (*executor.SearchResult, error)
}

type IndexStats interface {
	Stats() indexer.IndexStats
}

type Shell struct {
	reader    LineReader
	out       io.Writer
	executor  SearchExecutor
	index     IndexStats
	collector *analytics.Collector
	opts      executor.Options
	prompt    string
	logger    *slog.Logger
}

// New builds a Shell that starts from opts. collector may be nil.
func New(reader LineReader, out io.Writer, exec SearchExecutor, index IndexStats, collector *analytics.Collector, prompt string, opts executor.Options) *Shell {
	return &Shell{
		reader:    reader,
		out:       out,
		executor:  exec,
		index:     index,
		collector: collector,
		opts:      opts,
		prompt:    prompt,
		logger:    slog.Default().With("component", "shell"),
	}
}

// Options returns the current matching options.
func (s *Shell) Options() executor.Options {
	return s.opts
}

// Run reads lines until the user quits, aborts, or input ends. Read errors
// other than Ctrl-C and Ctrl-D are printed and end the session without
// being returned.
func (s *Shell) Run(ctx context.Context) error {
	for {
		line, err := s.reader.Prompt(s.prompt)
		switch {
		case err == nil:
		case errors.Is(err, liner.ErrPromptAborted):
			fmt.Fprintln(s.out, "CTRL-C")
			return nil
		case errors.Is(err, io.EOF):
			fmt.Fprintln(s.out, "CTRL-D")
			return nil
		default:
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return nil
		}
		if strings.TrimSpace(line) != "" {
			s.reader.AppendHistory(line)
		}

		if cmd, ok := strings.CutPrefix(strings.TrimSpace(line), ":"); ok {
			if quit := s.command(cmd); quit {
				return nil
			}
			continue
		}
		if err := s.query(ctx, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
}

func (s *Shell) query(ctx context.Context, line string) error {
	start := time.Now()
	plan := parser.Parse(line)
	res, err := s.executor.Execute(ctx, plan, s.opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, "results:")
	for _, hit := range res.Results {
		fmt.Fprintf(s.out, "  %s\n", hit.Location)
	}
	if more := res.TotalHits - len(res.Results); more > 0 {
		fmt.Fprintf(s.out, "  ... %d more (:limit 0 shows all)\n", more)
	}
	if s.collector != nil && !plan.Empty() {
		s.collector.Track(analytics.QueryEvent{
			Query:     line,
			Terms:     plan.Terms,
			TotalHits: res.TotalHits,
			Returned:  len(res.Results),
			LatencyMs: time.Since(start).Milliseconds(),
			Source:    analytics.SourceShell,
			Timestamp: time.Now().UTC(),
		})
	}
	return nil
}

const help = `commands:
  :span N|none       max line distance between consecutive tokens
  :backtrack on|off  exhaustive alignment instead of greedy
  :limit N           max results printed (0 = all)
  :stats             index size
  :help              this text
  :quit              leave
anything else is a query`

// command applies one ':' command and reports whether the shell should exit.
func (s *Shell) command(cmd string) bool {
	name, arg, _ := strings.Cut(strings.TrimSpace(cmd), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "quit", "q", "exit":
		return true
	case "help", "h", "?":
		fmt.Fprintln(s.out, help)
	case "span":
		switch {
		case arg == "":
			fmt.Fprintf(s.out, "span: %s\n", formatSpan(s.opts.Fuzzy.LineSpan))
		case arg == "none":
			s.opts.Fuzzy.LineSpan = nil
			fmt.Fprintln(s.out, "span: none")
		default:
			n, err := strconv.Atoi(arg)
			if err != nil || n < 0 {
				fmt.Fprintf(s.out, "Error: span must be a non-negative integer or none, got %q\n", arg)
				return false
			}
			s.opts.Fuzzy.LineSpan = &n
			fmt.Fprintf(s.out, "span: %d\n", n)
		}
	case "backtrack":
		switch arg {
		case "":
		case "on", "true":
			s.opts.Fuzzy.Backtrack = true
		case "off", "false":
			s.opts.Fuzzy.Backtrack = false
		default:
			fmt.Fprintf(s.out, "Error: backtrack takes on or off, got %q\n", arg)
			return false
		}
		fmt.Fprintf(s.out, "backtrack: %s\n", onOff(s.opts.Fuzzy.Backtrack))
	case "limit":
		if arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil || n < 0 {
				fmt.Fprintf(s.out, "Error: limit must be a non-negative integer, got %q\n", arg)
				return false
			}
			s.opts.Limit = n
		}
		fmt.Fprintf(s.out, "limit: %d\n", s.opts.Limit)
	case "stats":
		st := s.index.Stats()
		fmt.Fprintf(s.out, "files: %d\nterms: %d\noccurrences: %d\n", st.Files, st.Terms, st.Occurrences)
	default:
		fmt.Fprintf(s.out, "unknown command :%s (try :help)\n", name)
	}
	return false
}

func formatSpan(span *int) string {
	if span == nil {
		return "none"
	}
	return strconv.Itoa(*span)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
