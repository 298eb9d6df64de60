package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/errors"
)

func testConfig(t *testing.T) config.IndexerConfig {
	cfg := config.Default().Indexer
	cfg.DataDir = t.TempDir()
	cfg.TableSize = 1009
	return cfg
}

func TestInsertCommitReopen(t *testing.T) {
	cfg := testConfig(t)
	e, err := Create(cfg)
	require.NoError(t, err)

	require.NoError(t, e.Insert("the", 1, 0))
	require.NoError(t, e.Insert("cat", 1, 1))
	require.NoError(t, e.Insert("cat", 2, 4))
	require.NoError(t, e.SetDocInfo(1, "one.txt", 2))
	require.NoError(t, e.SetDocInfo(2, "two.txt", 5))

	stats, err := e.Commit()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Terms)
	require.NoError(t, e.Close())

	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	postings, err := reopened.Lookup("cat")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, postings.DocIDs())
	assert.Equal(t, []int{4}, postings[1].Offsets)

	assert.Equal(t, 2, reopened.TotalDocs())
	assert.Equal(t, "two.txt", reopened.DocName(2))
	assert.Equal(t, 5, reopened.DocLength(2))

	id, ok := reopened.KGrams().ID("cat")
	require.True(t, ok)
	assert.Equal(t, 1, id)
	assert.True(t, reopened.Stats().Committed)
}

func TestInsertOnlyBuildRegistersDocuments(t *testing.T) {
	cfg := testConfig(t)
	e, err := Create(cfg)
	require.NoError(t, err)

	require.NoError(t, e.Insert("cat", 3, 0))
	require.NoError(t, e.Insert("dog", 3, 4))
	require.NoError(t, e.Insert("cat", 5, 1))
	require.NoError(t, e.SetDocInfo(5, "five.txt", 9))
	require.NoError(t, e.Insert("dog", 5, 2))
	assert.Equal(t, 2, e.TotalDocs())

	_, err = e.Commit()
	require.NoError(t, err)
	require.NoError(t, e.Close())

	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 2, reopened.TotalDocs())
	assert.Equal(t, "3", reopened.DocName(3))
	assert.Equal(t, 5, reopened.DocLength(3))
	assert.Equal(t, "five.txt", reopened.DocName(5))
	assert.Equal(t, 9, reopened.DocLength(5))
}

func TestIndexDocumentAssignsSequentialIDs(t *testing.T) {
	e, err := Create(testConfig(t))
	require.NoError(t, err)
	defer e.Close()

	first, err := e.IndexDocument("a.txt", "The quick fox")
	require.NoError(t, err)
	second, err := e.IndexDocument("b.txt", "the lazy dog")
	require.NoError(t, err)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)

	_, err = e.Commit()
	require.NoError(t, err)

	postings, err := e.Lookup("the")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, postings.DocIDs())
	assert.Equal(t, 3, e.DocLength(0))
}

func TestEngineRejectsInvalidTermsAndWritesAfterCommit(t *testing.T) {
	e, err := Create(testConfig(t))
	require.NoError(t, err)
	defer e.Close()

	assert.ErrorIs(t, e.Insert("", 0, 0), apperrors.ErrInvalidTerm)
	assert.ErrorIs(t, e.Insert("a;b", 0, 0), apperrors.ErrInvalidTerm)

	require.NoError(t, e.Insert("ok", 0, 0))
	_, err = e.Commit()
	require.NoError(t, err)
	assert.ErrorIs(t, e.Insert("late", 0, 1), apperrors.ErrReadOnly)
}

func TestOpenEmptyDirectory(t *testing.T) {
	e, err := Open(testConfig(t))
	require.NoError(t, err)
	defer e.Close()

	assert.False(t, e.Stats().Committed)
	postings, err := e.Lookup("anything")
	require.NoError(t, err)
	assert.Nil(t, postings)
}

func TestLookupAfterClose(t *testing.T) {
	e, err := Create(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, e.Close())
	_, err = e.Lookup("x")
	assert.ErrorIs(t, err, apperrors.ErrIndexClosed)
}

func TestReloadPicksUpNewCommit(t *testing.T) {
	cfg := testConfig(t)
	serving, err := Open(cfg)
	require.NoError(t, err)
	defer serving.Close()
	assert.False(t, serving.Stats().Committed)

	builder, err := Create(cfg)
	require.NoError(t, err)
	_, err = builder.IndexDocument("a.txt", "cat dog")
	require.NoError(t, err)
	_, err = builder.Commit()
	require.NoError(t, err)
	require.NoError(t, builder.Close())

	require.NoError(t, serving.Reload())
	postings, err := serving.Lookup("dog")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, postings.DocIDs())
	_, ok := serving.KGrams().ID("cat")
	assert.True(t, ok)

	require.NoError(t, serving.Close())
	assert.ErrorIs(t, serving.Reload(), apperrors.ErrIndexClosed)
}

func TestWatchReloadsOnCommit(t *testing.T) {
	cfg := testConfig(t)
	serving, err := Open(cfg)
	require.NoError(t, err)
	defer serving.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan struct{}, 1)
	go serving.Watch(ctx, func() { reloaded <- struct{}{} })
	time.Sleep(100 * time.Millisecond)

	builder, err := Create(cfg)
	require.NoError(t, err)
	_, err = builder.IndexDocument("a.txt", "cat")
	require.NoError(t, err)
	_, err = builder.Commit()
	require.NoError(t, err)
	builder.Close()

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("index was not reloaded")
	}
	assert.Equal(t, 1, serving.TotalDocs())
}
