package publisher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyProducer struct {
	failures int
	events   []kafka.Event
}

func (f *flakyProducer) Publish(_ context.Context, e kafka.Event) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("leader not available")
	}
	f.events = append(f.events, e)
	return nil
}

func (f *flakyProducer) PublishBatch(ctx context.Context, events []kafka.Event) error {
	for _, e := range events {
		if err := f.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func fastPublisher(prod kafka.Publisher) *Publisher {
	p := New(prod)
	p.retry.InitialDelay = time.Millisecond
	p.retry.MaxDelay = time.Millisecond
	return p
}

func TestIngestRetriesTransientFailures(t *testing.T) {
	prod := &flakyProducer{failures: 2}
	resp, err := fastPublisher(prod).Ingest(context.Background(), &ingestion.IngestRequest{Name: "a.txt", Body: "the cat"})
	require.NoError(t, err)
	assert.Equal(t, "QUEUED", resp.Status)
	require.Len(t, prod.events, 1)
	assert.Equal(t, "a.txt", prod.events[0].Key)
	assert.Equal(t, "the cat", prod.events[0].Value.(ingestion.IngestEvent).Body)
}

func TestIngestGivesUp(t *testing.T) {
	prod := &flakyProducer{failures: 100}
	_, err := fastPublisher(prod).Ingest(context.Background(), &ingestion.IngestRequest{Name: "a.txt", Body: "x"})
	require.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Equal(t, 503, apperrors.HTTPStatusCode(err))
}

func TestIngestValidates(t *testing.T) {
	prod := &flakyProducer{}
	_, err := fastPublisher(prod).Ingest(context.Background(), &ingestion.IngestRequest{Name: "", Body: "x"})
	var verr *validator.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, prod.events)
}

func TestPublishFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("the cat"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("   "), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("a dog"), 0644))

	prod := &flakyProducer{}
	published, skipped, err := fastPublisher(prod).PublishFiles(context.Background(), []string{filepath.Join(dir, "*.txt")})
	require.NoError(t, err)
	assert.Equal(t, 2, published)
	assert.Equal(t, 1, skipped)
	require.Len(t, prod.events, 2)
	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, "c.txt")), prod.events[1].Key)
}
