// Package searcher wires the query executor, spell checker, result cache and
// analytics into the operations served by the search CLI and HTTP API.
package searcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/spell"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/tracing"
	"github.com/google/uuid"
)

// SearchParams are the raw, user-supplied search parameters.
type SearchParams struct {
	Query   string
	Type    string
	Ranking string
	Limit   int
}

type TermSuggestions struct {
	Term        string             `json:"term"`
	Suggestions []spell.Suggestion `json:"suggestions"`
}

type SpellResult struct {
	Query       string             `json:"query"`
	Terms       []TermSuggestions  `json:"terms"`
	Corrections []spell.Correction `json:"corrections"`
	TookMs      float64            `json:"took_ms"`
}

// Dependencies are the optional collaborators of a Service; nil fields are
// disabled.
type Dependencies struct {
	Cache     *cache.QueryCache
	Collector *analytics.Collector
	Metrics   *metrics.Metrics
}

type Service struct {
	engine    *indexer.Engine
	exec      *executor.Executor
	spell     *spell.Checker
	cache     *cache.QueryCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	cfg       *config.Config
	logger    *slog.Logger
}

// New builds a Service over engine. The external score file named by
// cfg.Search.ScoreFile is loaded once here.
func New(engine *indexer.Engine, cfg *config.Config, deps Dependencies) (*Service, error) {
	scores, err := ranker.LoadScores(cfg.Search.ScoreFile)
	if err != nil {
		return nil, err
	}
	return &Service{
		engine: engine,
		exec: executor.New(engine, executor.Options{
			MaxCombinations: cfg.Search.MaxCombinations,
			Scores:          scores,
			PageRankWeight:  cfg.Search.PageRankWeight,
			Metrics:         deps.Metrics,
		}),
		spell: spell.New(engine, spell.Options{
			JaccardThreshold:  cfg.Spell.JaccardThreshold,
			MaxEditDistance:   cfg.Spell.MaxEditDistance,
			CandidatesPerTerm: cfg.Spell.CandidatesPerTerm,
		}),
		cache:     deps.Cache,
		collector: deps.Collector,
		metrics:   deps.Metrics,
		cfg:       cfg,
		logger:    slog.Default().With("component", "search-service"),
	}, nil
}

// Request validates p and turns it into an executor request.
func (s *Service) Request(p SearchParams) (executor.Request, error) {
	qt, err := query.ParseType(p.Type)
	if err != nil {
		return executor.Request{}, err
	}
	var rt ranker.Type
	if qt == query.Ranked {
		name := p.Ranking
		if name == "" {
			name = s.cfg.Search.DefaultRanking
		}
		if rt, err = ranker.ParseType(name); err != nil {
			return executor.Request{}, err
		}
	} else if p.Ranking != "" {
		return executor.Request{}, fmt.Errorf("%w: ranking applies only to ranked queries", apperrors.ErrInvalidQuery)
	}
	if p.Limit < 0 {
		return executor.Request{}, fmt.Errorf("%w: limit must not be negative", apperrors.ErrInvalidQuery)
	}
	limit := p.Limit
	if limit == 0 {
		limit = s.cfg.Search.DefaultLimit
	}
	if maxResults := s.cfg.Search.MaxResults; maxResults > 0 && limit > maxResults {
		limit = maxResults
	}
	q, err := query.Parse(p.Query, s.engine.Tokenizer())
	if err != nil {
		return executor.Request{}, err
	}
	return executor.Request{Query: q, Type: qt, Ranking: rt, Limit: limit}, nil
}

// Search runs a query, through the cache when one is configured, bounded by
// server.requestTimeout. It reports whether the result came from the cache.
func (s *Service) Search(ctx context.Context, p SearchParams) (*executor.SearchResult, bool, error) {
	start := time.Now()
	req, err := s.Request(p)
	if err != nil {
		return nil, false, err
	}
	ctx, span := s.trace(ctx, "search")
	span.SetAttr("type", string(req.Type))

	var (
		result   *executor.SearchResult
		cacheHit bool
	)
	err = resilience.WithTimeout(ctx, s.cfg.Server.RequestTimeout, "search", func(ctx context.Context) error {
		var err error
		if s.cache != nil {
			result, cacheHit, err = s.cache.GetOrCompute(ctx, req, func() (*executor.SearchResult, error) {
				return s.exec.Execute(ctx, req)
			})
			return err
		}
		result, err = s.exec.Execute(ctx, req)
		return err
	})
	if err != nil {
		s.finish(ctx, span)
		return nil, false, err
	}
	span.SetAttr("cache_hit", cacheHit)
	s.finish(ctx, span)

	latency := time.Since(start)
	eventType := analytics.EventCacheMiss
	if cacheHit {
		eventType = analytics.EventCacheHit
	}
	s.collector.Track(analytics.SearchEvent{
		Type:         eventType,
		Query:        p.Query,
		QueryType:    string(req.Type),
		Ranking:      string(req.Ranking),
		Terms:        req.Query.Words(),
		TotalHits:    result.TotalHits,
		Returned:     len(result.Results),
		Combinations: result.Combinations,
		Truncated:    result.Truncated,
		LatencyMs:    latency.Milliseconds(),
		CacheHit:     cacheHit,
		Timestamp:    time.Now().UTC(),
		RequestID:    logger.RequestID(ctx),
	})
	logger.FromContext(ctx).Info("search completed",
		"query", p.Query,
		"type", req.Type,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	return result, cacheHit, nil
}

// Spell suggests corrections for every word of raw and for the query as a
// whole. limit <= 0 selects spell.defaultLimit.
func (s *Service) Spell(ctx context.Context, raw string, limit int) (*SpellResult, error) {
	start := time.Now()
	if limit <= 0 {
		limit = s.cfg.Spell.DefaultLimit
	}
	q, err := query.Parse(raw, s.engine.Tokenizer())
	if err != nil {
		return nil, err
	}
	ctx, span := s.trace(ctx, "spell")

	result := &SpellResult{Query: raw, Terms: []TermSuggestions{}, Corrections: []spell.Correction{}}
	err = resilience.WithTimeout(ctx, s.cfg.Server.RequestTimeout, "spell", func(ctx context.Context) error {
		words := q.Words()
		if q.HasWildcard() {
			return nil
		}
		for _, w := range words {
			suggestions, err := s.spell.CheckTerm(w, limit)
			if err != nil {
				return err
			}
			if suggestions == nil {
				suggestions = []spell.Suggestion{}
			}
			result.Terms = append(result.Terms, TermSuggestions{Term: w, Suggestions: suggestions})
		}
		corrections, err := s.spell.Check(ctx, words, limit)
		if err != nil {
			return err
		}
		if corrections != nil {
			result.Corrections = corrections
		}
		return nil
	})
	if err != nil {
		s.finish(ctx, span)
		return nil, err
	}
	span.SetAttr("corrections", len(result.Corrections))
	s.finish(ctx, span)
	result.TookMs = float64(time.Since(start).Microseconds()) / 1000

	outcome := "none"
	top := ""
	if len(result.Corrections) > 0 {
		outcome = "corrected"
		top = result.Corrections[0].String()
	}
	if s.metrics != nil {
		s.metrics.SpellChecksTotal.WithLabelValues(outcome).Inc()
	}
	s.collector.Track(analytics.SpellEvent{
		Type:        analytics.EventSpell,
		Query:       raw,
		Suggestions: len(result.Corrections),
		Top:         top,
		LatencyMs:   time.Since(start).Milliseconds(),
		Timestamp:   time.Now().UTC(),
		RequestID:   logger.RequestID(ctx),
	})
	logger.FromContext(ctx).Info("spell check completed",
		"query", raw,
		"corrections", len(result.Corrections),
		"top", top,
	)
	return result, nil
}

// IndexReloaded drops cached results computed against the previous index.
func (s *Service) IndexReloaded() {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("cache invalidation after reload failed", "error", err)
	}
}

func (s *Service) Cache() *cache.QueryCache {
	return s.cache
}

func (s *Service) IndexStats() indexer.Stats {
	return s.engine.Stats()
}

func (s *Service) trace(ctx context.Context, name string) (context.Context, *tracing.Span) {
	if !s.cfg.Tracing.Enabled {
		return tracing.StartChildSpan(ctx, name)
	}
	traceID := logger.RequestID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return tracing.StartSpan(ctx, name, traceID)
}

func (s *Service) finish(ctx context.Context, span *tracing.Span) {
	span.End()
	if s.cfg.Tracing.Enabled {
		span.Log(logger.FromContext(ctx))
	}
}
