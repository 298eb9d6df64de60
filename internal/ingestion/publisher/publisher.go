// Package publisher validates documents and publishes them as ingest events
// to Kafka for the indexer to build from.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/resilience"
)

type Publisher struct {
	producer kafka.Publisher
	retry    resilience.RetryConfig
	logger   *slog.Logger
}

func New(producer kafka.Publisher) *Publisher {
	return &Publisher{
		producer: producer,
		retry: resilience.RetryConfig{
			MaxAttempts:  4,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Retryable: func(err error) bool {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			},
		},
		logger: slog.Default().With("component", "publisher"),
	}
}

// Ingest validates req and publishes it, retrying transient broker failures.
// Events are keyed by document name so re-publishing a name lands on the same
// partition.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	if err := validator.ValidateIngestRequest(req); err != nil {
		return nil, err
	}
	event := kafka.Event{
		Key: req.Name,
		Value: ingestion.IngestEvent{
			Name:       req.Name,
			Body:       req.Body,
			IngestedAt: time.Now().UTC(),
		},
	}
	err := resilience.Retry(ctx, "publish-document", p.retry, func() error {
		return p.producer.Publish(ctx, event)
	})
	if err != nil {
		p.logger.Error("failed to publish document", "name", req.Name, "error", err)
		return nil, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, fmt.Sprintf("publishing %s: %v", req.Name, err))
	}
	p.logger.Debug("document published", "name", req.Name, "size", len(req.Body))
	return &ingestion.IngestResponse{Name: req.Name, Status: "QUEUED"}, nil
}

// PublishFiles publishes every file matched by patterns, in Discover order.
// Files that fail validation are skipped and counted, broker failures abort.
func (p *Publisher) PublishFiles(ctx context.Context, patterns []string) (published, skipped int, err error) {
	paths, err := source.Discover(patterns)
	if err != nil {
		return 0, 0, err
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return published, skipped, err
		}
		doc, err := source.Read(path)
		if err != nil {
			return published, skipped, err
		}
		_, err = p.Ingest(ctx, &ingestion.IngestRequest{Name: doc.Name, Body: doc.Body})
		var verr *validator.ValidationError
		switch {
		case errors.As(err, &verr):
			p.logger.Warn("skipping document", "name", doc.Name, "reason", verr.Error())
			skipped++
		case err != nil:
			return published, skipped, err
		default:
			published++
		}
	}
	p.logger.Info("corpus published", "files", len(paths), "published", published, "skipped", skipped)
	return published, skipped, nil
}
