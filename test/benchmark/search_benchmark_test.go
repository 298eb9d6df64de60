package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/kgram"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/spell"
)

// BenchmarkQueryParse measures query parsing for queries of varying shape.
func BenchmarkQueryParse(b *testing.B) {
	tok := tokenizer.New(tokenizer.Options{})
	queries := map[string]string{
		"single":   "hashed",
		"multi":    "hashed search engine",
		"wildcard": "hash* s*rch",
		"weighted": "hashed^2 search^0.5 engine",
	}
	for name, q := range queries {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := query.Parse(q, tok); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkExecute measures end-to-end query execution per query type over a
// committed index.
func BenchmarkExecute(b *testing.B) {
	engine := committedEngine(b, 5000)
	exec := executor.New(engine, executor.Options{MaxCombinations: 1024})
	cases := []struct {
		name string
		raw  string
		typ  query.Type
	}{
		{"single", "postings", query.Single},
		{"intersection", "hashed search", query.Intersection},
		{"phrase", "hashed search", query.Phrase},
		{"ranked", "hashed search engine", query.Ranked},
		{"wildcard_intersection", "p* search", query.Intersection},
		{"wildcard_ranked", "word1* engine", query.Ranked},
	}
	for _, c := range cases {
		b.Run(c.name, func(b *testing.B) {
			q, err := query.Parse(c.raw, engine.Tokenizer())
			if err != nil {
				b.Fatal(err)
			}
			req := executor.Request{Query: q, Type: c.typ, Limit: 10}
			if c.typ == query.Ranked {
				req.Ranking = ranker.TFIDF
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := exec.Execute(context.Background(), req); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkIntersect measures the two-pointer merge on lists of growing
// length.
func BenchmarkIntersect(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("len_%d", n), func(b *testing.B) {
			x := make(index.PostingsList, n)
			y := make(index.PostingsList, n)
			for i := 0; i < n; i++ {
				x[i] = index.PostingsEntry{DocID: 2 * i, Offsets: []int{0}}
				y[i] = index.PostingsEntry{DocID: 3 * i, Offsets: []int{1}}
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = index.Intersect(x, y)
			}
		})
	}
}

// BenchmarkPhraseMerge measures adjacency matching with several offsets per
// document.
func BenchmarkPhraseMerge(b *testing.B) {
	const n = 5000
	x := make(index.PostingsList, n)
	y := make(index.PostingsList, n)
	for i := 0; i < n; i++ {
		x[i] = index.PostingsEntry{DocID: i, Offsets: []int{0, 7, 15, 30}}
		y[i] = index.PostingsEntry{DocID: i, Offsets: []int{3, 8, 20, 31}}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = index.PhraseMerge(x, y)
	}
}

// BenchmarkTopK measures heap selection of the best results.
func BenchmarkTopK(b *testing.B) {
	docs := make([]ranker.ScoredDoc, 10000)
	for i := range docs {
		docs[i] = ranker.ScoredDoc{DocID: i, Score: float64((i * 7919) % 10007)}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = merger.TopK(docs, 10)
	}
}

// BenchmarkKGramResolve measures wildcard resolution against a vocabulary.
func BenchmarkKGramResolve(b *testing.B) {
	kg, err := kgram.New(2)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 20000; i++ {
		kg.Insert(fmt.Sprintf("%s%d", vocabulary[i%len(vocabulary)], i))
	}
	for _, pattern := range []string{"hash*", "*ing1*", "s*ch9*", "*"} {
		b.Run(pattern, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = kg.Resolve(pattern)
			}
		})
	}
}

// BenchmarkEditDistance measures the weighted edit distance.
func BenchmarkEditDistance(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = spell.EditDistance("dictionary", "dictoinary")
	}
}

// BenchmarkSpellCheck measures correcting a misspelled two-word query.
func BenchmarkSpellCheck(b *testing.B) {
	engine := committedEngine(b, 2000)
	checker := spell.New(engine, spell.DefaultOptions())
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := checker.Check(context.Background(), []string{"serch", "engin"}, 5); err != nil {
			b.Fatal(err)
		}
	}
}
