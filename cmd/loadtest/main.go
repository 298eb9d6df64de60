// Command loadtest drives a running search server with a mix of search and
// spell requests and reports throughput, latency percentiles and status
// codes.
//
// Usage:
//
//	loadtest --url http://localhost:8080 --concurrency 10 --duration 30s
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// defaultQueries mixes plain words, phrases, wildcards and misspellings so
// every query path is exercised.
var defaultQueries = []string{
	"search engine",
	"inverted index",
	"hash table",
	"postings list",
	"index*",
	"s*rch",
	"k gram",
	"spell checker",
	"edit distance",
	"serch engin",
	"quer* process*",
	"document frequency",
}

var queryTypes = []string{"intersection", "phrase", "ranked", "ranked"}

type target struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Queries     []string
	SpellEvery  int
}

type result struct {
	latency time.Duration
	status  int
	cached  bool
	err     error
}

type report struct {
	total     atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64

	mu        sync.Mutex
	latencies map[string][]time.Duration
	statuses  map[int]int64
}

func newReport() *report {
	return &report{
		latencies: make(map[string][]time.Duration),
		statuses:  make(map[int]int64),
	}
}

func (r *report) record(endpoint string, res result) {
	r.total.Add(1)
	if res.err != nil || res.status < 200 || res.status >= 300 {
		r.failed.Add(1)
	}
	if res.cached {
		r.cacheHits.Add(1)
	}
	if res.err != nil {
		return
	}
	r.mu.Lock()
	r.latencies[endpoint] = append(r.latencies[endpoint], res.latency)
	r.statuses[res.status]++
	r.mu.Unlock()
}

func main() {
	cmd := &cobra.Command{
		Use:           "loadtest",
		Short:         "Load test a running search server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := target{Queries: defaultQueries}
			t.BaseURL, _ = cmd.Flags().GetString("url")
			t.Concurrency, _ = cmd.Flags().GetInt("concurrency")
			t.Duration, _ = cmd.Flags().GetDuration("duration")
			t.SpellEvery, _ = cmd.Flags().GetInt("spell-every")
			if queries, _ := cmd.Flags().GetStringSlice("query"); len(queries) > 0 {
				t.Queries = queries
			}
			if t.Concurrency <= 0 {
				return fmt.Errorf("--concurrency must be positive")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "=== Hashed Search Load Test ===")
			fmt.Fprintf(out, "Target:      %s\n", t.BaseURL)
			fmt.Fprintf(out, "Concurrency: %d\n", t.Concurrency)
			fmt.Fprintf(out, "Duration:    %s\n", t.Duration)
			fmt.Fprintf(out, "Queries:     %d unique\n\n", len(t.Queries))

			rep := run(cmd.Context(), t)
			return rep.print(out, t.Duration)
		},
	}
	cmd.Flags().String("url", "http://localhost:8080", "base URL of the search server")
	cmd.Flags().Int("concurrency", 10, "number of concurrent workers")
	cmd.Flags().Duration("duration", 30*time.Second, "test duration")
	cmd.Flags().Int("spell-every", 5, "send a spell request every Nth request per worker (0 disables)")
	cmd.Flags().StringSlice("query", nil, "query to send (repeatable, replaces the built-in mix)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func run(parent context.Context, t target) *report {
	rep := newReport()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        t.Concurrency * 2,
			MaxIdleConnsPerHost: t.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	ctx, cancel := context.WithTimeout(parent, t.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < t.Concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := worker; ctx.Err() == nil; i++ {
				q := t.Queries[i%len(t.Queries)]
				endpoint, rawURL := requestURL(t, q, i)
				res := do(ctx, client, rawURL)
				if ctx.Err() != nil && res.err != nil {
					return
				}
				rep.record(endpoint, res)
			}
		}(w)
	}
	wg.Wait()
	return rep
}

func requestURL(t target, q string, i int) (endpoint, rawURL string) {
	v := url.Values{"q": {q}}
	if t.SpellEvery > 0 && i%t.SpellEvery == t.SpellEvery-1 {
		return "spell", t.BaseURL + "/api/v1/spell?" + v.Encode()
	}
	v.Set("type", queryTypes[i%len(queryTypes)])
	v.Set("limit", "10")
	return "search", t.BaseURL + "/api/v1/search?" + v.Encode()
}

func do(ctx context.Context, client *http.Client, rawURL string) result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return result{err: err}
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return result{latency: time.Since(start), err: err}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{
		latency: time.Since(start),
		status:  resp.StatusCode,
		cached:  resp.Header.Get("X-Cache") == "HIT",
	}
}

func (r *report) print(w io.Writer, duration time.Duration) error {
	total := r.total.Load()
	failed := r.failed.Load()
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Failed:          %d\n", failed)
	if total == 0 {
		return fmt.Errorf("no requests completed, is the server running?")
	}
	fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
	fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	fmt.Fprintf(w, "Cache Hits:      %d\n", r.cacheHits.Load())

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, endpoint := range []string{"search", "spell"} {
		lat := slices.Clone(r.latencies[endpoint])
		if len(lat) == 0 {
			continue
		}
		slices.Sort(lat)
		var sum time.Duration
		for _, l := range lat {
			sum += l
		}
		fmt.Fprintf(w, "\n=== Latency: %s (%d) ===\n", endpoint, len(lat))
		fmt.Fprintf(w, "Min:  %s\n", lat[0])
		fmt.Fprintf(w, "Avg:  %s\n", sum/time.Duration(len(lat)))
		fmt.Fprintf(w, "P50:  %s\n", percentile(lat, 50))
		fmt.Fprintf(w, "P95:  %s\n", percentile(lat, 95))
		fmt.Fprintf(w, "P99:  %s\n", percentile(lat, 99))
		fmt.Fprintf(w, "Max:  %s\n", lat[len(lat)-1])
	}

	fmt.Fprintln(w, "\n=== Status Codes ===")
	codes := make([]int, 0, len(r.statuses))
	for c := range r.statuses {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	for _, c := range codes {
		fmt.Fprintf(w, "  %d: %d\n", c, r.statuses[c])
	}
	return nil
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
