// Package benchmark contains Go benchmarks for index building, the hashed
// dictionary lookup path and the query pipeline.
package benchmark

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/config"
)

var vocabulary = []string{
	"hashed", "search", "engine", "inverted", "index", "postings", "dictionary",
	"probe", "kgram", "wildcard", "phrase", "ranked", "spelling", "distance",
	"jaccard", "document", "frequency", "offset", "commit", "query",
}

func indexerConfig(b *testing.B) config.IndexerConfig {
	cfg := config.Default().Indexer
	cfg.DataDir = b.TempDir()
	return cfg
}

func document(i int) string {
	n := len(vocabulary)
	return fmt.Sprintf("%s %s %s %s the %s of %s word%d",
		vocabulary[i%n], vocabulary[(i+3)%n], vocabulary[(i+7)%n],
		vocabulary[(i+1)%n], vocabulary[(i+11)%n], vocabulary[(i+5)%n], i%500)
}

// committedEngine builds and commits an index of docs documents.
func committedEngine(b *testing.B, docs int) *indexer.Engine {
	b.Helper()
	engine, err := indexer.Create(indexerConfig(b))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { engine.Close() })
	for i := 0; i < docs; i++ {
		if _, err := engine.IndexDocument(fmt.Sprintf("doc-%d.txt", i), document(i)); err != nil {
			b.Fatal(err)
		}
	}
	if _, err := engine.Commit(); err != nil {
		b.Fatal(err)
	}
	return engine
}

// BenchmarkMemoryIndexInsert measures per-occurrence insert throughput into
// the build buffer.
func BenchmarkMemoryIndexInsert(b *testing.B) {
	mi := index.NewMemoryIndex()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mi.Insert(vocabulary[i%len(vocabulary)], i/64, i%64)
	}
}

// BenchmarkEngineIndexDocument measures tokenizing and buffering whole
// documents.
func BenchmarkEngineIndexDocument(b *testing.B) {
	engine, err := indexer.Create(indexerConfig(b))
	if err != nil {
		b.Fatal(err)
	}
	defer engine.Close()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.IndexDocument(fmt.Sprintf("doc-%d.txt", i), document(i)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCommit measures writing the data, dictionary and sidecar files at
// various corpus sizes.
func BenchmarkCommit(b *testing.B) {
	for _, docs := range []int{100, 1000, 5000} {
		b.Run(fmt.Sprintf("docs_%d", docs), func(b *testing.B) {
			cfg := indexerConfig(b)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				engine, err := indexer.Create(cfg)
				if err != nil {
					b.Fatal(err)
				}
				for d := 0; d < docs; d++ {
					engine.IndexDocument(fmt.Sprintf("doc-%d.txt", d), document(d))
				}
				b.StartTimer()
				if _, err := engine.Commit(); err != nil {
					b.Fatal(err)
				}
				b.StopTimer()
				engine.Close()
				b.StartTimer()
			}
		})
	}
}

// BenchmarkLookup measures a dictionary probe plus data-file record read.
func BenchmarkLookup(b *testing.B) {
	engine := committedEngine(b, 5000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Lookup(vocabulary[i%len(vocabulary)]); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkLookupParallel measures concurrent lookups against one committed
// index.
func BenchmarkLookupParallel(b *testing.B) {
	engine := committedEngine(b, 5000)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := engine.Lookup(vocabulary[i%len(vocabulary)]); err != nil {
				b.Error(err)
				return
			}
			i++
		}
	})
}

// BenchmarkLookupMiss measures probing for terms that are not indexed.
func BenchmarkLookupMiss(b *testing.B) {
	engine := committedEngine(b, 5000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Lookup("absent"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkHasherSlot measures the rolling polynomial hash.
func BenchmarkHasherSlot(b *testing.B) {
	h, err := segment.NewHasher(131, 611953)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = h.Slot(vocabulary[i%len(vocabulary)])
	}
}
