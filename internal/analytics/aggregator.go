package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/kafka"
)

const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches      int64            `json:"total_searches"`
	TotalSpellChecks   int64            `json:"total_spell_checks"`
	TotalDocIndexed    int64            `json:"total_docs_indexed"`
	TotalCommits       int64            `json:"total_commits"`
	CacheHits          int64            `json:"cache_hits"`
	CacheMisses        int64            `json:"cache_misses"`
	ZeroResultCount    int64            `json:"zero_result_count"`
	TruncatedCount     int64            `json:"truncated_count"`
	SearchesByType     map[string]int64 `json:"searches_by_type"`
	AvgCombinations    float64          `json:"avg_combinations"`
	AvgLatencyMs       float64          `json:"avg_latency_ms"`
	P50LatencyMs       int64            `json:"p50_latency_ms"`
	P95LatencyMs       int64            `json:"p95_latency_ms"`
	P99LatencyMs       int64            `json:"p99_latency_ms"`
	TopQueries         []QueryCount     `json:"top_queries"`
	ZeroResultQueries  []QueryCount     `json:"zero_result_queries"`
	UncorrectedQueries []QueryCount     `json:"uncorrected_queries"`
	QueriesPerMinute   float64          `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds analytics events into running statistics. It keeps the
// most recent maxLatencySamples latencies for percentiles.
type Aggregator struct {
	mu                sync.RWMutex
	base              AggregatedStats
	searches          int64
	spellChecks       int64
	docsIndexed       int64
	commits           int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	truncated         int64
	combinations      int64
	byType            map[string]int64
	latencies         []int64
	nextLatency       int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	uncorrected       map[string]int64
	startTime         time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byType:            make(map[string]int64),
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		uncorrected:       make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Restore seeds the counters from a persisted snapshot so totals survive a
// restart. Percentiles and top lists start fresh.
func (a *Aggregator) Restore(stats AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.base = stats
}

// HandleEvent returns a Kafka handler feeding agg. Undecodable events are
// logged and skipped so they are committed rather than redelivered forever.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := Decode(value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Record folds one decoded event into the statistics.
func (a *Aggregator) Record(event any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch e := event.(type) {
	case *SearchEvent:
		a.recordSearch(e)
	case *SpellEvent:
		a.spellChecks++
		a.observeLatency(e.LatencyMs)
		if e.Suggestions == 0 {
			a.uncorrected[e.Query]++
		}
	case *IndexEvent:
		if e.Type == EventCommit {
			a.commits++
		} else {
			a.docsIndexed++
		}
	}
}

func (a *Aggregator) recordSearch(e *SearchEvent) {
	a.searches++
	if e.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if e.QueryType != "" {
		a.byType[e.QueryType]++
	}
	if e.Truncated {
		a.truncated++
	}
	a.combinations += int64(e.Combinations)
	a.observeLatency(e.LatencyMs)
	a.queryCounts[e.Query]++
	if e.TotalHits == 0 {
		a.zeroResults++
		a.zeroResultQueries[e.Query]++
	}
}

func (a *Aggregator) observeLatency(ms int64) {
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, ms)
		return
	}
	a.latencies[a.nextLatency] = ms
	a.nextLatency = (a.nextLatency + 1) % maxLatencySamples
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:    a.base.TotalSearches + a.searches,
		TotalSpellChecks: a.base.TotalSpellChecks + a.spellChecks,
		TotalDocIndexed:  a.base.TotalDocIndexed + a.docsIndexed,
		TotalCommits:     a.base.TotalCommits + a.commits,
		CacheHits:        a.base.CacheHits + a.cacheHits,
		CacheMisses:      a.base.CacheMisses + a.cacheMisses,
		ZeroResultCount:  a.base.ZeroResultCount + a.zeroResults,
		TruncatedCount:   a.base.TruncatedCount + a.truncated,
		SearchesByType:   make(map[string]int64, len(a.byType)),
	}
	for t, n := range a.base.SearchesByType {
		stats.SearchesByType[t] += n
	}
	for t, n := range a.byType {
		stats.SearchesByType[t] += n
	}
	if a.searches > 0 {
		stats.AvgCombinations = float64(a.combinations) / float64(a.searches)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	stats.UncorrectedQueries = topN(a.uncorrected, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(a.searches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, ties by query ascending.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
