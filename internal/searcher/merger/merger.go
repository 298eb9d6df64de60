// Package merger combines the results of the concrete queries a wildcard
// query expands into, and selects the top results.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/ranker"
)

// Boolean unions result lists by DocID. The first list holding a document
// supplies its entry.
func Boolean(results ...index.PostingsList) index.PostingsList {
	merged := index.PostingsList{}
	for _, r := range results {
		merged = index.Union(merged, r)
	}
	return merged
}

// Ranked sums the scores of documents appearing in several result sets into
// acc.
func Ranked(acc *ranker.Accumulator, results ...[]ranker.ScoredDoc) *ranker.Accumulator {
	if acc == nil {
		acc = ranker.NewAccumulator()
	}
	for _, r := range results {
		for _, d := range r {
			acc.Add(d.DocID, d.Score)
		}
	}
	return acc
}

// TopK returns the limit best documents in ranker.Sort order. limit <= 0
// returns all of them.
func TopK(docs []ranker.ScoredDoc, limit int) []ranker.ScoredDoc {
	if limit <= 0 || len(docs) <= limit {
		out := make([]ranker.ScoredDoc, len(docs))
		copy(out, docs)
		ranker.Sort(out)
		return out
	}
	h := &scoredDocHeap{}
	heap.Init(h)
	for _, doc := range docs {
		heap.Push(h, doc)
		if h.Len() > limit {
			heap.Pop(h)
		}
	}
	result := make([]ranker.ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ranker.ScoredDoc)
	}
	return result
}

// scoredDocHeap is a min-heap: the root is the worst document kept so far.
type scoredDocHeap []ranker.ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].DocID > h[j].DocID
}

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ranker.ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
