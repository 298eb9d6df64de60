// Package ranker scores documents for ranked queries with tf-idf and blends
// in externally computed document scores such as PageRank.
package ranker

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/errors"
)

type Type string

const (
	TFIDF    Type = "tfidf"
	PageRank Type = "pagerank"
	Combined Type = "combined"
)

// ParseType maps a ranking name to its Type; "" selects TFIDF.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(s)); t {
	case "":
		return TFIDF, nil
	case TFIDF, PageRank, Combined:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown ranking %q", apperrors.ErrInvalidQuery, s)
}

type ScoredDoc struct {
	DocID   int     `json:"doc_id"`
	DocName string  `json:"doc_name,omitempty"`
	Score   float64 `json:"score"`
}

// WeightedPostings is the postings of one query term with the term's weight.
type WeightedPostings struct {
	Term     string
	Weight   float64
	Postings index.PostingsList
}

// IDF is ln(totalDocs/docFreq), 0 for a term in no documents.
func IDF(totalDocs, docFreq int) float64 {
	if docFreq <= 0 || totalDocs <= 0 {
		return 0
	}
	return math.Log(float64(totalDocs) / float64(docFreq))
}

// Accumulator sums per-document scores.
type Accumulator struct {
	scores map[int]float64
}

func NewAccumulator() *Accumulator {
	return &Accumulator{scores: make(map[int]float64)}
}

func (a *Accumulator) Add(docID int, score float64) {
	a.scores[docID] += score
}

func (a *Accumulator) Len() int {
	return len(a.scores)
}

// Docs returns the accumulated documents sorted by Sort.
func (a *Accumulator) Docs() []ScoredDoc {
	docs := make([]ScoredDoc, 0, len(a.scores))
	for id, s := range a.scores {
		docs = append(docs, ScoredDoc{DocID: id, Score: s})
	}
	Sort(docs)
	return docs
}

// Score computes length-normalised tf-idf for one concrete query:
// score(d) = sum(weight * idf(t) * tf(t, d)) / length(d). Each distinct term
// is counted once no matter how often it appears in the query.
func Score(terms []WeightedPostings, totalDocs int, docLength func(int) int) *Accumulator {
	acc := NewAccumulator()
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if _, dup := seen[t.Term]; dup {
			continue
		}
		seen[t.Term] = struct{}{}
		idf := IDF(totalDocs, t.Postings.DocFrequency())
		for _, p := range t.Postings {
			acc.Add(p.DocID, t.Weight*idf*float64(p.TermFrequency()))
		}
	}
	for id, s := range acc.scores {
		if n := docLength(id); n > 0 {
			acc.scores[id] = s / float64(n)
		}
	}
	return acc
}

// Sort orders by score descending, ties by DocID ascending.
func Sort(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].DocID < docs[j].DocID
	})
}

// Blend applies the external scores according to mode and re-sorts. TFIDF
// or a nil score table leave docs untouched.
func Blend(docs []ScoredDoc, mode Type, scores Scores, weight float64) {
	if mode == TFIDF || scores == nil {
		return
	}
	for i := range docs {
		external := scores[docs[i].DocName]
		switch mode {
		case PageRank:
			docs[i].Score = external
		case Combined:
			docs[i].Score += weight * external
		}
	}
	Sort(docs)
}
