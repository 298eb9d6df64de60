// Package consumer feeds documents into an indexer.Engine, either from
// corpus files or from the Kafka ingest topic, and commits the result.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/metrics"
)

// Runner is satisfied by *kafka.Consumer: Start blocks, dispatching messages
// to the handler the consumer was built with, until ctx ends.
type Runner interface {
	Start(ctx context.Context) error
}

// Builder indexes ingest events into an Engine. The Kafka consumer loop calls
// Handle from a single goroutine, which keeps the engine's build phase
// single-writer.
type Builder struct {
	engine  *indexer.Engine
	idle    time.Duration
	metrics *metrics.Metrics
	events  *collector.BatchCollector
	logger  *slog.Logger

	seen         map[string]struct{}
	indexed      atomic.Int64
	lastActivity atomic.Int64
}

// NewBuilder returns a Builder that considers the topic drained once no
// event has arrived for idle. m and events may be nil.
func NewBuilder(engine *indexer.Engine, idle time.Duration, m *metrics.Metrics, events *collector.BatchCollector) *Builder {
	if idle <= 0 {
		idle = 10 * time.Second
	}
	return &Builder{
		engine:  engine,
		idle:    idle,
		metrics: m,
		events:  events,
		logger:  slog.Default().With("component", "index-consumer"),
		seen:    make(map[string]struct{}),
	}
}

// Handle returns the Kafka MessageHandler. Undecodable events are logged and
// acknowledged; a document name seen before is skipped.
func (b *Builder) Handle() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		b.touch()
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			b.logger.Error("failed to decode ingest event", "error", err, "key", string(key))
			return nil
		}
		if _, dup := b.seen[event.Name]; dup {
			b.logger.Warn("duplicate document skipped", "name", event.Name)
			return nil
		}
		if _, err := indexDocument(b.engine, event.Name, event.Body, b.metrics, b.events); err != nil {
			return err
		}
		b.seen[event.Name] = struct{}{}
		b.indexed.Add(1)
		return nil
	}
}

// Indexed is the number of documents indexed so far.
func (b *Builder) Indexed() int64 {
	return b.indexed.Load()
}

func (b *Builder) touch() {
	b.lastActivity.Store(time.Now().UnixNano())
}

// Run consumes from r until the topic has been idle for the idle timeout and
// then commits. Cancelling ctx aborts the build without committing.
func (b *Builder) Run(ctx context.Context, r Runner) (segment.CommitStats, error) {
	b.touch()
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	go func() {
		ticker := time.NewTicker(b.idle / 4)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				last := time.Unix(0, b.lastActivity.Load())
				if time.Since(last) >= b.idle {
					b.logger.Info("ingest topic idle, finishing build",
						"idle", b.idle,
						"indexed", b.indexed.Load(),
					)
					stop()
					return
				}
			}
		}
	}()

	b.logger.Info("building index from kafka", "idle_timeout", b.idle)
	if err := r.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return segment.CommitStats{}, fmt.Errorf("consuming ingest topic: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return segment.CommitStats{}, fmt.Errorf("build interrupted before commit: %w", err)
	}
	return Commit(b.engine, b.metrics, b.events)
}

func indexDocument(e *indexer.Engine, name, body string, m *metrics.Metrics, events *collector.BatchCollector) (int, error) {
	start := time.Now()
	docID, err := e.IndexDocument(name, body)
	if err != nil {
		return 0, err
	}
	if m != nil {
		m.DocsIndexedTotal.Inc()
	}
	events.Track(name, analytics.IndexEvent{
		Type:       analytics.EventIndexDoc,
		DocName:    name,
		DocID:      docID,
		TokenCount: e.DocLength(docID),
		SizeBytes:  len(body),
		LatencyMs:  time.Since(start).Milliseconds(),
		Timestamp:  time.Now().UTC(),
	})
	return docID, nil
}

// Commit commits e and records the outcome in m and events.
func Commit(e *indexer.Engine, m *metrics.Metrics, events *collector.BatchCollector) (segment.CommitStats, error) {
	start := time.Now()
	stats, err := e.Commit()
	if m != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.IndexCommitsTotal.WithLabelValues(status).Inc()
	}
	if err != nil {
		return stats, err
	}
	if m != nil {
		m.IndexTerms.Set(float64(stats.Terms))
		m.IndexDocs.Set(float64(stats.Docs))
		m.IndexMaxProbe.Set(float64(stats.MaxProbe))
	}
	events.Track("commit", analytics.IndexEvent{
		Type:      analytics.EventCommit,
		Terms:     stats.Terms,
		SizeBytes: int(stats.DataBytes),
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
	})
	slog.Default().With("component", "index-consumer").Info("index committed",
		"terms", stats.Terms,
		"docs", stats.Docs,
		"data_bytes", stats.DataBytes,
		"max_probe", stats.MaxProbe,
		"avg_probe", stats.AvgProbe,
		"load_factor", stats.LoadFactor,
		"duration", time.Since(start),
	)
	return stats, nil
}
