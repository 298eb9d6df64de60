// Package executor evaluates parsed queries against a committed index.
// Wildcard terms are expanded through the k-gram index into a cross product
// of concrete queries; each is evaluated by query type and the results are
// merged, ranked and truncated.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/kgram"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/tracing"
)

// Index is the read side of the index queries run against.
type Index interface {
	Lookup(term string) (index.PostingsList, error)
	KGrams() *kgram.Index
	TotalDocs() int
	DocLength(docID int) int
	DocName(docID int) string
}

type Options struct {
	MaxCombinations int
	Scores          ranker.Scores
	PageRankWeight  float64
	Metrics         *metrics.Metrics
}

type Request struct {
	Query   *query.Query
	Type    query.Type
	Ranking ranker.Type
	Limit   int
}

type SearchResult struct {
	Query        string              `json:"query"`
	Type         query.Type          `json:"type"`
	Ranking      ranker.Type         `json:"ranking,omitempty"`
	TotalHits    int                 `json:"total_hits"`
	Combinations int                 `json:"combinations"`
	Truncated    bool                `json:"truncated,omitempty"`
	Expansions   map[string][]string `json:"expansions,omitempty"`
	Results      []ranker.ScoredDoc  `json:"results"`
	TookMs       float64             `json:"took_ms"`
}

type Executor struct {
	idx    Index
	opts   Options
	logger *slog.Logger
}

func New(idx Index, opts Options) *Executor {
	return &Executor{
		idx:    idx,
		opts:   opts,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// Execute runs req. Absent terms and empty intersections are empty results,
// not errors. ctx is checked between concrete queries.
func (e *Executor) Execute(ctx context.Context, req Request) (*SearchResult, error) {
	start := time.Now()
	result, err := e.execute(ctx, req)
	e.observe(req.Type, result, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	result.TookMs = float64(time.Since(start).Microseconds()) / 1000
	e.logger.Info("query executed",
		"query", result.Query,
		"type", result.Type,
		"combinations", result.Combinations,
		"truncated", result.Truncated,
		"hits", result.TotalHits,
		"took_ms", result.TookMs,
	)
	return result, nil
}

func (e *Executor) execute(ctx context.Context, req Request) (*SearchResult, error) {
	if req.Query == nil || len(req.Query.Terms) == 0 {
		return nil, fmt.Errorf("%w: empty query", apperrors.ErrInvalidQuery)
	}
	if req.Type == query.Single && len(req.Query.Terms) != 1 {
		return nil, fmt.Errorf("%w: single-term query with %d terms", apperrors.ErrInvalidQuery, len(req.Query.Terms))
	}
	if req.Type == query.Ranked && req.Ranking == "" {
		req.Ranking = ranker.TFIDF
	}
	result := &SearchResult{
		Query:   req.Query.Raw,
		Type:    req.Type,
		Results: []ranker.ScoredDoc{},
	}
	if req.Type == query.Ranked {
		result.Ranking = req.Ranking
	}

	_, span := tracing.StartChildSpan(ctx, "expand")
	choices, expansions := e.expand(req.Query)
	span.SetAttr("expanded_terms", len(expansions))
	span.End()
	if len(expansions) > 0 {
		result.Expansions = expansions
	}

	combos := query.NewCombinations(choices, e.opts.MaxCombinations)
	result.Truncated = combos.Truncated()

	evalCtx, span := tracing.StartChildSpan(ctx, "evaluate")
	defer span.End()
	switch req.Type {
	case query.Ranked:
		acc := ranker.NewAccumulator()
		for {
			combo, ok := combos.Next()
			if !ok {
				break
			}
			if err := evalCtx.Err(); err != nil {
				return nil, err
			}
			docs, err := e.ranked(req.Query, combo)
			if err != nil {
				return nil, err
			}
			merger.Ranked(acc, docs)
		}
		docs := acc.Docs()
		for i := range docs {
			docs[i].DocName = e.idx.DocName(docs[i].DocID)
		}
		ranker.Blend(docs, req.Ranking, e.opts.Scores, e.opts.PageRankWeight)
		result.TotalHits = len(docs)
		result.Results = merger.TopK(docs, req.Limit)

	case query.Single, query.Intersection, query.Phrase:
		merged := index.PostingsList{}
		for {
			combo, ok := combos.Next()
			if !ok {
				break
			}
			if err := evalCtx.Err(); err != nil {
				return nil, err
			}
			postings, err := e.boolean(req.Type, combo)
			if err != nil {
				return nil, err
			}
			merged = merger.Boolean(merged, postings)
		}
		result.TotalHits = len(merged)
		if req.Limit > 0 && len(merged) > req.Limit {
			merged = merged[:req.Limit]
		}
		for _, p := range merged {
			result.Results = append(result.Results, ranker.ScoredDoc{
				DocID:   p.DocID,
				DocName: e.idx.DocName(p.DocID),
			})
		}

	default:
		return nil, fmt.Errorf("%w: unknown query type %q", apperrors.ErrInvalidQuery, req.Type)
	}
	result.Combinations = combos.Produced()
	span.SetAttr("combinations", result.Combinations)
	return result, nil
}

// expand turns every query term into its list of concrete alternatives.
func (e *Executor) expand(q *query.Query) ([][]string, map[string][]string) {
	choices := make([][]string, len(q.Terms))
	var expansions map[string][]string
	for i, t := range q.Terms {
		if !t.IsWildcard() {
			choices[i] = []string{t.Term}
			continue
		}
		matches := e.idx.KGrams().Resolve(t.Term)
		choices[i] = matches
		if expansions == nil {
			expansions = make(map[string][]string)
		}
		expansions[t.Term] = matches
	}
	return choices, expansions
}

func (e *Executor) lookupAll(terms []string) ([]index.PostingsList, error) {
	lists := make([]index.PostingsList, len(terms))
	for i, t := range terms {
		p, err := e.idx.Lookup(t)
		if err != nil {
			return nil, fmt.Errorf("looking up %q: %w", t, err)
		}
		lists[i] = p
	}
	return lists, nil
}

// boolean evaluates one concrete single, intersection or phrase query.
func (e *Executor) boolean(typ query.Type, terms []string) (index.PostingsList, error) {
	lists, err := e.lookupAll(terms)
	if err != nil {
		return nil, err
	}
	for _, l := range lists {
		if len(l) == 0 {
			return index.PostingsList{}, nil
		}
	}
	if len(lists) == 1 {
		return lists[0], nil
	}
	if typ == query.Phrase {
		result := lists[0]
		for _, next := range lists[1:] {
			result = index.PhraseMerge(result, next)
			if len(result) == 0 {
				break
			}
		}
		return result, nil
	}
	return index.IntersectAll(lists...), nil
}

// ranked scores one concrete query with tf-idf. Term weights come from the
// query position each concrete term was expanded from.
func (e *Executor) ranked(q *query.Query, terms []string) ([]ranker.ScoredDoc, error) {
	lists, err := e.lookupAll(terms)
	if err != nil {
		return nil, err
	}
	weighted := make([]ranker.WeightedPostings, len(terms))
	for i, t := range terms {
		weighted[i] = ranker.WeightedPostings{Term: t, Weight: q.Terms[i].Weight, Postings: lists[i]}
	}
	return ranker.Score(weighted, e.idx.TotalDocs(), e.idx.DocLength).Docs(), nil
}

func (e *Executor) observe(typ query.Type, result *SearchResult, err error, took time.Duration) {
	m := e.opts.Metrics
	if m == nil {
		return
	}
	label := string(typ)
	m.SearchLatency.WithLabelValues(label).Observe(took.Seconds())
	switch {
	case err != nil:
		m.SearchQueriesTotal.WithLabelValues(label, "error").Inc()
		return
	case result.TotalHits == 0:
		m.SearchQueriesTotal.WithLabelValues(label, "zero_result").Inc()
	default:
		m.SearchQueriesTotal.WithLabelValues(label, "hit").Inc()
	}
	m.SearchResultsCount.WithLabelValues(label).Observe(float64(result.TotalHits))
	m.QueryCombinations.Observe(float64(result.Combinations))
}
