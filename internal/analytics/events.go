package analytics

import "time"

// Event keys used on the Kafka topic; the consumer dispatches on them.
const (
	KeyQuery = "query"
	KeyIndex = "index"
)

// Source names the front end that ran a query.
type Source string

const (
	SourceHTTP  Source = "http"
	SourceShell Source = "shell"
	SourceCLI   Source = "cli"
)

type QueryEvent struct {
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// IndexEvent is emitted once per completed index build.
type IndexEvent struct {
	Files      int       `json:"files"`
	Tokens     int       `json:"tokens"`
	Skipped    int       `json:"skipped"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
