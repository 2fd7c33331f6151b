package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Nil(t, cfg.Search.LineSpan)
	assert.False(t, cfg.Search.Backtrack)
	assert.Equal(t, ">> ", cfg.Shell.Prompt)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Positive(t, cfg.Indexer.ReadConcurrency)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wordseek.yaml")
	data := []byte(`
search:
  lineSpan: 0
  backtrack: true
  defaultLimit: 5
indexer:
  include: ["**/*.go"]
redis:
  addr: "localhost:6379"
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Search.LineSpan)
	assert.Equal(t, 0, *cfg.Search.LineSpan)
	assert.True(t, cfg.Search.Backtrack)
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, []string{"**/*.go"}, cfg.Indexer.Include)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 1000, cfg.Search.MaxResults, "unset keys keep defaults")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WS_SEARCH_LINE_SPAN", "3")
	t.Setenv("WS_SEARCH_BACKTRACK", "true")
	t.Setenv("WS_INDEXER_EXCLUDE", "a/**,b/**")

	cfg, err := Load("")
	require.NoError(t, err)

	require.NotNil(t, cfg.Search.LineSpan)
	assert.Equal(t, 3, *cfg.Search.LineSpan)
	assert.True(t, cfg.Search.Backtrack)
	assert.Equal(t, []string{"a/**", "b/**"}, cfg.Indexer.Exclude)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  lineSpan: -2\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "lineSpan")
}

func TestLoad_ServerOverrides(t *testing.T) {
	t.Setenv("WS_SERVER_RATE_LIMIT", "120")
	t.Setenv("WS_SERVER_CORS_ORIGINS", "https://a.test,https://b.test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Server.RateLimit)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
}

func TestValidate_RejectsNegativeRateLimit(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.RateLimit = -1
	assert.ErrorContains(t, cfg.Validate(), "rateLimit")
}

func TestLoad_RejectsZeroSnapshotInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zero.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analytics:\n  snapshotInterval: 0s\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "snapshotInterval")
}

func TestDefaults_ShellAndExclude(t *testing.T) {
	cfg := defaultConfig()
	assert.Zero(t, cfg.Shell.Limit)
	assert.Contains(t, cfg.Indexer.Exclude, "**/.git")

	cfg.Shell.Limit = -1
	assert.ErrorContains(t, cfg.Validate(), "shell.limit")
}
