// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Indexer, Search, Shell, Redis, Kafka, Postgres, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Search    SearchConfig    `yaml:"search"`
	Shell     ShellConfig     `yaml:"shell"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings for the serve command.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`

	// RateLimit is requests per minute per client address; 0 disables it.
	RateLimit   int      `yaml:"rateLimit"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// IndexerConfig controls which files are indexed and how they are read.
// Include and Exclude are doublestar globs matched against paths relative
// to each directory argument; they do not apply to files named explicitly.
// A directory matching an Exclude pattern is not descended into.
type IndexerConfig struct {
	Include         []string `yaml:"include"`
	Exclude         []string `yaml:"exclude"`
	ReadConcurrency int      `yaml:"readConcurrency"`
	MaxFileSize     int64    `yaml:"maxFileSize"`
}

// SearchConfig controls matching and result limits. A nil LineSpan means
// unlimited.
type SearchConfig struct {
	LineSpan     *int `yaml:"lineSpan"`
	Backtrack    bool `yaml:"backtrack"`
	DefaultLimit int  `yaml:"defaultLimit"`
	MaxResults   int  `yaml:"maxResults"`
}

// ShellConfig controls the interactive prompt.
type ShellConfig struct {
	Prompt      string `yaml:"prompt"`
	HistoryFile string `yaml:"historyFile"`
	// Limit caps the hits printed per query; 0 prints all of them.
	Limit int `yaml:"limit"`
}

// RedisConfig holds Redis connection and caching parameters. An empty Addr
// disables the query cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	QueryEvents   string   `yaml:"queryEvents"`
	ConsumerGroup string   `yaml:"consumerGroup"`
}

// PostgresConfig holds PostgreSQL connection parameters. An empty Host
// disables analytics snapshots.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// AnalyticsConfig controls query analytics collection. When Publish is set
// events are also written to Kafka in batches of BatchSize, or every
// FlushInterval, whichever comes first.
type AnalyticsConfig struct {
	Publish          bool          `yaml:"publish"`
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level, format and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	if c.Search.LineSpan != nil && *c.Search.LineSpan < 0 {
		return fmt.Errorf("search.lineSpan must be non-negative, got %d", *c.Search.LineSpan)
	}
	if c.Search.DefaultLimit < 0 || c.Search.MaxResults < 0 {
		return fmt.Errorf("search limits must be non-negative")
	}
	if c.Indexer.ReadConcurrency <= 0 {
		return fmt.Errorf("indexer.readConcurrency must be positive, got %d", c.Indexer.ReadConcurrency)
	}
	if c.Shell.Limit < 0 {
		return fmt.Errorf("shell.limit must be non-negative, got %d", c.Shell.Limit)
	}
	if c.Analytics.SnapshotInterval <= 0 {
		return fmt.Errorf("analytics.snapshotInterval must be positive, got %v", c.Analytics.SnapshotInterval)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit must be non-negative, got %d", c.Server.RateLimit)
	}
	return nil
}

// defaultConfig returns a Config suitable for interactive local use.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Indexer: IndexerConfig{
			Include:         []string{"**"},
			Exclude:         []string{"**/.git", "**/node_modules", "**/vendor"},
			ReadConcurrency: 8,
			MaxFileSize:     10 * 1024 * 1024,
		},
		Search: SearchConfig{
			DefaultLimit: 50,
			MaxResults:   1000,
		},
		Shell: ShellConfig{
			Prompt:      ">> ",
			HistoryFile: "~/.wordseek_history",
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			QueryEvents:   "wordseek-query-events",
			ConsumerGroup: "wordseek-analytics",
		},
		Postgres: PostgresConfig{
			Port:            5432,
			Database:        "wordseek",
			User:            "wordseek",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			BufferSize:       1000,
			BatchSize:        100,
			FlushInterval:    5 * time.Second,
			SnapshotInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads WS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WS_SERVER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
	if v := os.Getenv("WS_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("WS_SEARCH_LINE_SPAN"); v != "" {
		if v == "none" {
			cfg.Search.LineSpan = nil
		} else if span, err := strconv.Atoi(v); err == nil {
			cfg.Search.LineSpan = &span
		}
	}
	if v := os.Getenv("WS_SEARCH_BACKTRACK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Search.Backtrack = b
		}
	}
	if v := os.Getenv("WS_INDEXER_INCLUDE"); v != "" {
		cfg.Indexer.Include = strings.Split(v, ",")
	}
	if v := os.Getenv("WS_INDEXER_EXCLUDE"); v != "" {
		cfg.Indexer.Exclude = strings.Split(v, ",")
	}
	if v := os.Getenv("WS_SHELL_HISTORY_FILE"); v != "" {
		cfg.Shell.HistoryFile = v
	}
	if v := os.Getenv("WS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("WS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("WS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("WS_ANALYTICS_PUBLISH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.Publish = b
		}
	}
	if v := os.Getenv("WS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("WS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("WS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("WS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("WS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("WS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
