package merger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/ranker"
)

func TestBooleanDeduplicates(t *testing.T) {
	a := index.PostingsList{{DocID: 1}, {DocID: 4}}
	b := index.PostingsList{{DocID: 2}, {DocID: 4}}
	assert.Equal(t, []int{1, 2, 4}, Boolean(a, b).DocIDs())
	assert.Empty(t, Boolean())
}

func TestRankedSumsScores(t *testing.T) {
	acc := Ranked(nil,
		[]ranker.ScoredDoc{{DocID: 1, Score: 0.5}, {DocID: 2, Score: 1}},
		[]ranker.ScoredDoc{{DocID: 1, Score: 0.75}},
	)
	docs := acc.Docs()
	assert.Equal(t, []ranker.ScoredDoc{{DocID: 1, Score: 1.25}, {DocID: 2, Score: 1}}, docs)
}

func TestTopK(t *testing.T) {
	docs := []ranker.ScoredDoc{
		{DocID: 1, Score: 0.1},
		{DocID: 2, Score: 0.9},
		{DocID: 3, Score: 0.5},
		{DocID: 4, Score: 0.9},
	}
	top := TopK(docs, 2)
	assert.Equal(t, []ranker.ScoredDoc{{DocID: 2, Score: 0.9}, {DocID: 4, Score: 0.9}}, top)
	assert.Len(t, TopK(docs, 0), 4)
	assert.Equal(t, 0.1, docs[0].Score)
}
