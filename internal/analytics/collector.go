package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/kafka"
)

// Publisher ships batches of events off-process. *kafka.Producer satisfies it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers events from request paths and applies them in the
// background: every event goes to the Aggregator, and when a Publisher is
// set it is also batched out to Kafka.
type Collector struct {
	aggregator    *Aggregator
	publisher     Publisher
	eventCh       chan any
	batch         []kafka.Event
	batchSize     int
	flushInterval time.Duration
	mu            sync.RWMutex
	closed        bool
	done          chan struct{}
	logger        *slog.Logger
}

// NewCollector builds a Collector. publisher may be nil.
func NewCollector(agg *Aggregator, publisher Publisher, cfg config.AnalyticsConfig) *Collector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	return &Collector{
		aggregator:    agg,
		publisher:     publisher,
		eventCh:       make(chan any, cfg.BufferSize),
		batch:         make([]kafka.Event, 0, cfg.BatchSize),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		done:          make(chan struct{}),
		logger:        slog.Default().With("component", "analytics-collector"),
	}
}

// Start launches the background loop. It stops when ctx is cancelled or
// Close is called, applying whatever is still buffered first.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.flush(context.Background())
					return
				}
				c.apply(ctx, event)
			case <-ticker.C:
				c.flush(ctx)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"publish", c.publisher != nil,
	)
}

// Track queues an event without blocking. Events are dropped when the
// buffer is full or the collector is closed.
func (c *Collector) Track(event any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the loop to finish.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) apply(ctx context.Context, event any) {
	c.aggregator.Record(event)
	if c.publisher == nil {
		return
	}
	c.batch = append(c.batch, kafka.Event{Key: eventKey(event), Value: event})
	if len(c.batch) >= c.batchSize {
		c.flush(ctx)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				c.flush(context.Background())
				return
			}
			c.apply(context.Background(), event)
		default:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			c.flush(ctx)
			cancel()
			return
		}
	}
}

// flush publishes the pending batch. Failed batches are re-queued up to
// three batches' worth; older events beyond that are dropped.
func (c *Collector) flush(ctx context.Context) {
	if c.publisher == nil || len(c.batch) == 0 {
		return
	}
	batch := c.batch
	c.batch = make([]kafka.Event, 0, c.batchSize)
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("batch flush failed", "batch_size", len(batch), "error", err)
		c.batch = append(batch, c.batch...)
		if limit := c.batchSize * 3; len(c.batch) > limit {
			dropped := len(c.batch) - limit
			c.batch = c.batch[dropped:]
			c.logger.Warn("analytics backlog overflow, events dropped", "dropped", dropped)
		}
		return
	}
	c.logger.Debug("batch flushed", "events", len(batch))
}

func eventKey(event any) string {
	switch event.(type) {
	case IndexEvent, *IndexEvent:
		return KeyIndex
	default:
		return KeyQuery
	}
}
