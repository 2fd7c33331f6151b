package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/fuzzy"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/metrics"
)

// IndexStats describes the current contents of the index. Generation
// increases with every write so callers can key caches on it.
type IndexStats struct {
	Files       int    `json:"files"`
	Terms       int    `json:"terms"`
	Occurrences int    `json:"occurrences"`
	Generation  uint64 `json:"generation"`
}

// BuildReport summarises one IndexPaths call.
type BuildReport struct {
	Files    int           `json:"files"`
	Tokens   int           `json:"tokens"`
	Skipped  []string      `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Engine owns the inverted index and serialises writers against readers:
// builds take the write lock, searches the read lock.
type Engine struct {
	mu         sync.RWMutex
	index      *index.ReverseIndex
	lexer      *tokenizer.Lexer
	cfg        config.IndexerConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
	generation uint64
}

func NewEngine(cfg config.IndexerConfig, m *metrics.Metrics) *Engine {
	if cfg.ReadConcurrency <= 0 {
		cfg.ReadConcurrency = 1
	}
	return &Engine{
		index:   index.NewReverseIndex(),
		lexer:   tokenizer.New(),
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
}

// Lexer returns the tokenizer used for indexing, so queries can be split
// the same way.
func (e *Engine) Lexer() *tokenizer.Lexer {
	return e.lexer
}

// IndexText indexes text under the file name file and returns the number of
// tokens added.
func (e *Engine) IndexText(file, text string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.indexLocked(file, text)
	e.generation++
	e.metrics.IndexTerms.Set(float64(e.index.Terms()))
	return n
}

// IndexPaths indexes every file named in paths. Directories are walked and
// filtered through the configured include/exclude globs. Files are read
// concurrently but always indexed one at a time in the order given, so the
// postings of each token stay in ascending offset order per file.
func (e *Engine) IndexPaths(ctx context.Context, paths []string) (BuildReport, error) {
	start := time.Now()
	files, err := e.expand(paths)
	if err != nil {
		return BuildReport{}, err
	}
	contents, skipped, err := e.readAll(ctx, files)
	if err != nil {
		return BuildReport{}, err
	}

	report := BuildReport{Skipped: skipped}
	e.mu.Lock()
	for i, file := range files {
		if contents[i] == nil {
			continue
		}
		e.logger.Info("indexing", "file", file)
		report.Tokens += e.indexLocked(file, *contents[i])
		report.Files++
	}
	e.generation++
	terms := e.index.Terms()
	e.mu.Unlock()

	report.Duration = time.Since(start)
	e.metrics.IndexTerms.Set(float64(terms))
	e.metrics.IndexBuildDuration.Observe(report.Duration.Seconds())
	e.logger.Info("index built",
		"files", report.Files,
		"tokens", report.Tokens,
		"terms", terms,
		"skipped", len(report.Skipped),
		"duration", report.Duration,
	)
	return report, nil
}

// Search runs a fuzzy query under the read lock.
func (e *Engine) Search(cfg fuzzy.Config, terms []string) []fuzzy.Match {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fuzzy.Rank(cfg, e.index, terms)
}

// Query returns every location of a single token in index order.
func (e *Engine) Query(token string) []index.Location {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Collect(e.index.Query(token))
}

// Files returns the indexed file names in the order they were first seen.
func (e *Engine) Files() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index.Files()
}

func (e *Engine) Stats() IndexStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return IndexStats{
		Files:       len(e.index.Files()),
		Terms:       e.index.Terms(),
		Occurrences: e.index.Occurrences(),
		Generation:  e.generation,
	}
}

func (e *Engine) indexLocked(file, text string) int {
	before := e.index.Occurrences()
	e.index.AddItems(e.lexer.Locate(file, text))
	n := e.index.Occurrences() - before
	e.metrics.FilesIndexedTotal.Inc()
	e.metrics.TokensIndexedTotal.Add(float64(n))
	e.logger.Debug("file indexed", "file", file, "token_count", n)
	return n
}

// expand turns the argument list into the ordered list of files to index.
// Explicit files are kept as given; directories contribute their matching
// files in lexical walk order.
func (e *Engine) expand(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		walked, err := e.walk(p)
		if err != nil {
			return nil, err
		}
		files = append(files, walked...)
	}
	return files, nil
}

func (e *Engine) walk(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matchAny(e.cfg.Exclude, rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if len(e.cfg.Include) == 0 || matchAny(e.cfg.Include, rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

// readAll reads files concurrently. contents[i] is nil for files skipped
// because they exceed MaxFileSize.
func (e *Engine) readAll(ctx context.Context, files []string) ([]*string, []string, error) {
	contents := make([]*string, len(files))
	oversize := make([]bool, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.ReadConcurrency)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if e.cfg.MaxFileSize > 0 {
				info, err := os.Stat(file)
				if err != nil {
					return fmt.Errorf("reading %s: %w", file, err)
				}
				if info.Size() > e.cfg.MaxFileSize {
					oversize[i] = true
					return nil
				}
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}
			text := string(data)
			contents[i] = &text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	var skipped []string
	for i, file := range files {
		if oversize[i] {
			e.logger.Warn("skipping file over size limit", "file", file, "limit", e.cfg.MaxFileSize)
			skipped = append(skipped, file)
		}
	}
	return contents, skipped, nil
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}
