package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `A hashed index keeps its dictionary in a fixed-size table of slots. Each
        slot holds the offset of a record in the data file, and collisions are
        resolved by probing the next slot. Postings carry the offsets of every
        occurrence, which phrase queries need to check adjacency.`,
	"long": strings.Repeat(`Wildcard queries are answered with a k-gram index that maps
        every k-character fragment of a term, including the boundary markers, to
        the terms containing it. Candidates from the fragment intersection are
        then matched against the full pattern. Spelling suggestions reuse the same
        index and rank candidates by Jaccard overlap and edit distance. `, 20),
	"unicode": "Ｆｕｌｌｗｉｄｔｈ café naïve straße résumé 東京 ﬁle",
}

func BenchmarkTokenize(b *testing.B) {
	tok := tokenizer.New(tokenizer.Options{})
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tok.Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	tok := tokenizer.New(tokenizer.Options{})
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = tok.Tokenize(text)
		}
	})
}

// BenchmarkTokenizeOptions compares the cost of stop-word filtering and
// stemming against plain normalisation.
func BenchmarkTokenizeOptions(b *testing.B) {
	text := sampleTexts["medium"]
	options := map[string]tokenizer.Options{
		"plain":     {},
		"stopwords": {StopWords: true},
		"stemming":  {Stemming: true},
		"both":      {StopWords: true, Stemming: true},
	}
	for name, opts := range options {
		tok := tokenizer.New(opts)
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tok.Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	tok := tokenizer.New(tokenizer.Options{})
	base := "hashed dictionary postings wildcard phrase "
	for _, size := range []int{10, 100, 500, 1000, 5000} {
		text := strings.Repeat(base, size/len(base)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tok.Tokenize(text)
			}
		})
	}
}
