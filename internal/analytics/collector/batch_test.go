package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    bool
}

func (p *recordingPublisher) Publish(ctx context.Context, event kafka.Event) error {
	return p.PublishBatch(ctx, []kafka.Event{event})
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.batches = append(p.batches, events)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestTrackFlushesFullBatch(t *testing.T) {
	pub := &recordingPublisher{}
	bc := NewBatchCollector(pub, 3, time.Hour)
	for i := 0; i < 3; i++ {
		bc.Track("doc", i)
	}
	require.Eventually(t, func() bool { return pub.count() == 3 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, bc.BufferLen())
}

func TestFailedFlushRequeuesWithinLimit(t *testing.T) {
	pub := &recordingPublisher{fail: true}
	bc := NewBatchCollector(pub, 2, time.Hour)
	bc.buffer = append(bc.buffer, make([]kafka.Event, 10)...)

	bc.Flush(context.Background())
	assert.Equal(t, 6, bc.BufferLen())

	pub.fail = false
	bc.Flush(context.Background())
	assert.Equal(t, 0, bc.BufferLen())
	assert.Equal(t, 6, pub.count())
}

func TestStartFlushesOnCancel(t *testing.T) {
	pub := &recordingPublisher{}
	bc := NewBatchCollector(pub, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	bc.Start(ctx)
	bc.Track("doc", "a")
	bc.Track("doc", "b")
	cancel()
	bc.Close()
	assert.Equal(t, 2, pub.count())
}
