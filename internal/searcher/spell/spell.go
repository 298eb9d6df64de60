// Package spell suggests corrections for misspelled query terms. Candidates
// come from the k-gram index, are filtered by k-gram Jaccard similarity and
// weighted edit distance, and multi-word queries are corrected with a beam
// search that keeps the combinations matching the most documents.
package spell

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/kgram"
)

// Index is the read side of the index the checker needs.
type Index interface {
	KGrams() *kgram.Index
	Lookup(term string) (index.PostingsList, error)
}

type Options struct {
	JaccardThreshold  float64
	MaxEditDistance   int
	CandidatesPerTerm int
}

func DefaultOptions() Options {
	return Options{JaccardThreshold: 0.4, MaxEditDistance: 2, CandidatesPerTerm: 10}
}

// Suggestion is one candidate correction of a single term.
type Suggestion struct {
	Term         string  `json:"term"`
	Distance     int     `json:"distance"`
	Jaccard      float64 `json:"jaccard"`
	DocFrequency int     `json:"doc_frequency"`
}

// Correction is a corrected query with the number of documents matching all
// of its terms.
type Correction struct {
	Phrase []string `json:"phrase"`
	Hits   int      `json:"hits"`
}

func (c Correction) String() string {
	return strings.Join(c.Phrase, " ")
}

type Checker struct {
	idx    Index
	opts   Options
	logger *slog.Logger
}

func New(idx Index, opts Options) *Checker {
	return &Checker{
		idx:    idx,
		opts:   opts,
		logger: slog.Default().With("component", "spell"),
	}
}

// CheckTerm returns up to limit suggestions for term ordered by document
// frequency descending, then distance, then term. limit <= 0 returns all.
// Wildcard patterns get no suggestions.
func (c *Checker) CheckTerm(term string, limit int) ([]Suggestion, error) {
	if term == "" || kgram.IsWildcard(term) {
		return nil, nil
	}
	kg := c.idx.KGrams()
	queryGrams := kgram.KGrams(term, kg.K())
	candidates := roaring.New()
	shared := make(map[int]int)
	sizes := make(map[int]int)
	for _, g := range queryGrams {
		postings, _ := kg.Postings(g)
		for _, e := range postings {
			candidates.Add(uint32(e.TermID))
			shared[e.TermID]++
			sizes[e.TermID] = e.NumKGrams
		}
	}

	var suggestions []Suggestion
	it := candidates.Iterator()
	for it.HasNext() {
		id := int(it.Next())
		candidate, ok := kg.Term(id)
		if !ok {
			continue
		}
		jaccard := Jaccard(len(queryGrams), sizes[id], shared[id])
		if jaccard < c.opts.JaccardThreshold {
			continue
		}
		distance := EditDistance(term, candidate)
		if distance > c.opts.MaxEditDistance {
			continue
		}
		postings, err := c.idx.Lookup(candidate)
		if err != nil {
			return nil, fmt.Errorf("looking up candidate %q: %w", candidate, err)
		}
		suggestions = append(suggestions, Suggestion{
			Term:         candidate,
			Distance:     distance,
			Jaccard:      jaccard,
			DocFrequency: postings.DocFrequency(),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.DocFrequency != b.DocFrequency {
			return a.DocFrequency > b.DocFrequency
		}
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		return a.Term < b.Term
	})
	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	c.logger.Debug("term checked",
		"term", term,
		"candidates", candidates.GetCardinality(),
		"suggestions", len(suggestions),
	)
	return suggestions, nil
}

type beam struct {
	phrase []string
	docs   index.PostingsList
}

// Check corrects a query of one or more terms and returns up to limit
// corrections ordered by hits descending, then phrase. A query holding a
// wildcard pattern, or a term without suggestions, yields no corrections.
func (c *Checker) Check(ctx context.Context, terms []string, limit int) ([]Correction, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	candidates := make([][]Suggestion, len(terms))
	for i, t := range terms {
		if kgram.IsWildcard(t) {
			return nil, nil
		}
		s, err := c.CheckTerm(t, c.opts.CandidatesPerTerm)
		if err != nil {
			return nil, err
		}
		if len(s) == 0 {
			return nil, nil
		}
		candidates[i] = s
	}

	if len(terms) == 1 {
		out := make([]Correction, 0, len(candidates[0]))
		for _, s := range candidates[0] {
			out = append(out, Correction{Phrase: []string{s.Term}, Hits: s.DocFrequency})
		}
		return truncate(out, limit), nil
	}

	cache := make(map[string]index.PostingsList)
	lookup := func(term string) (index.PostingsList, error) {
		if p, ok := cache[term]; ok {
			return p, nil
		}
		p, err := c.idx.Lookup(term)
		if err != nil {
			return nil, fmt.Errorf("looking up candidate %q: %w", term, err)
		}
		cache[term] = p
		return p, nil
	}

	var beams []beam
	for _, a := range candidates[0] {
		pa, err := lookup(a.Term)
		if err != nil {
			return nil, err
		}
		for _, b := range candidates[1] {
			pb, err := lookup(b.Term)
			if err != nil {
				return nil, err
			}
			if docs := index.Intersect(pa, pb); len(docs) > 0 {
				beams = append(beams, beam{phrase: []string{a.Term, b.Term}, docs: docs})
			}
		}
	}
	beams = prune(beams, limit)

	for _, next := range candidates[2:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var extended []beam
		for _, bm := range beams {
			for _, s := range next {
				ps, err := lookup(s.Term)
				if err != nil {
					return nil, err
				}
				docs := index.Intersect(bm.docs, ps)
				if len(docs) == 0 {
					continue
				}
				phrase := make([]string, len(bm.phrase), len(bm.phrase)+1)
				copy(phrase, bm.phrase)
				extended = append(extended, beam{phrase: append(phrase, s.Term), docs: docs})
			}
		}
		beams = prune(extended, limit)
	}

	out := make([]Correction, len(beams))
	for i, bm := range beams {
		out[i] = Correction{Phrase: bm.phrase, Hits: len(bm.docs)}
	}
	return out, nil
}

func prune(beams []beam, limit int) []beam {
	sort.Slice(beams, func(i, j int) bool {
		if len(beams[i].docs) != len(beams[j].docs) {
			return len(beams[i].docs) > len(beams[j].docs)
		}
		return strings.Join(beams[i].phrase, " ") < strings.Join(beams[j].phrase, " ")
	})
	if limit > 0 && len(beams) > limit {
		beams = beams[:limit]
	}
	return beams
}

func truncate(c []Correction, limit int) []Correction {
	if limit > 0 && len(c) > limit {
		return c[:limit]
	}
	return c
}
