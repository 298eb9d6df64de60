package consumer

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/metrics"
)

// IndexFiles indexes every file matched by patterns, assigning document IDs
// in sorted path order, and returns how many documents were indexed. It does
// not commit.
func IndexFiles(ctx context.Context, e *indexer.Engine, patterns []string, m *metrics.Metrics, events *collector.BatchCollector) (int, error) {
	paths, err := source.Discover(patterns)
	if err != nil {
		return 0, err
	}
	if len(paths) == 0 {
		return 0, fmt.Errorf("no files match %v", patterns)
	}
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		doc, err := source.Read(path)
		if err != nil {
			return i, err
		}
		if _, err := indexDocument(e, doc.Name, doc.Body, m, events); err != nil {
			return i, fmt.Errorf("indexing %s: %w", doc.Name, err)
		}
	}
	return len(paths), nil
}
