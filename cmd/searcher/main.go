// Command searcher answers queries against a committed index, from the
// command line or over HTTP.
//
// Usage:
//
//	searcher query [--type ranked] [--ranking tfidf] [--limit 10] QUERY...
//	searcher spell [--limit 5] QUERY...
//	searcher serve
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/redis"
)

func main() {
	root, app := cli.NewRoot("searcher", "Query the hashed search index")
	root.AddCommand(
		newQueryCommand(app),
		newSpellCommand(app),
		newServeCommand(app),
	)
	cli.Execute(root)
}

// openService opens the committed index and a Service with no cache or
// analytics, for one-shot commands.
func openService(app *cli.App) (*searcher.Service, func(), error) {
	engine, err := indexer.Open(app.Config.Indexer)
	if err != nil {
		return nil, nil, err
	}
	if !engine.Stats().Committed {
		engine.Close()
		return nil, nil, fmt.Errorf("no committed index in %s, run 'indexer build' first", app.Config.Indexer.DataDir)
	}
	svc, err := searcher.New(engine, app.Config, searcher.Dependencies{})
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	return svc, func() { engine.Close() }, nil
}

func newQueryCommand(app *cli.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query QUERY...",
		Short: "Run a search query",
		Long: `Query runs a single, intersection, phrase or ranked query. Words may contain
'*' wildcards, which expand to every indexed term matching the pattern.
Ranked queries accept a per-word weight as word^2.5.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(app)
			if err != nil {
				return err
			}
			defer closeFn()

			typ, _ := cmd.Flags().GetString("type")
			ranking, _ := cmd.Flags().GetString("ranking")
			limit, _ := cmd.Flags().GetInt("limit")
			result, _, err := svc.Search(cmd.Context(), searcher.SearchParams{
				Query:   strings.Join(args, " "),
				Type:    typ,
				Ranking: ranking,
				Limit:   limit,
			})
			if err != nil {
				return err
			}

			p := app.Printer()
			if p.IsJSON() {
				return p.JSON(result)
			}
			rows := make([][]string, 0, len(result.Results))
			for i, d := range result.Results {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					strconv.Itoa(d.DocID),
					d.DocName,
					strconv.FormatFloat(d.Score, 'f', 5, 64),
				})
			}
			if err := p.Table([]string{"#", "DOC", "NAME", "SCORE"}, rows); err != nil {
				return err
			}
			summary := fmt.Sprintf("%d of %d hits, %d combination(s), %.2fms",
				len(result.Results), result.TotalHits, result.Combinations, result.TookMs)
			if result.Truncated {
				summary += " (wildcard expansion truncated)"
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().String("type", "", "query type: single, intersection, phrase or ranked (default intersection)")
	cmd.Flags().String("ranking", "", "ranking for ranked queries: tfidf, pagerank or combined")
	cmd.Flags().Int("limit", 0, "maximum number of results (default search.defaultLimit)")
	return cmd
}

func newSpellCommand(app *cli.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spell QUERY...",
		Short: "Suggest spelling corrections",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(app)
			if err != nil {
				return err
			}
			defer closeFn()

			limit, _ := cmd.Flags().GetInt("limit")
			result, err := svc.Spell(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			p := app.Printer()
			if p.IsJSON() {
				return p.JSON(result)
			}
			var rows [][]string
			for _, c := range result.Corrections {
				rows = append(rows, []string{c.String(), strconv.Itoa(c.Hits)})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no corrections found")
				return nil
			}
			return p.Table([]string{"SUGGESTION", "HITS"}, rows)
		},
	}
	cmd.Flags().Int("limit", 0, "maximum number of suggestions (default spell.defaultLimit)")
	return cmd
}

func newServeCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the search HTTP API",
		Long: `Serve exposes /api/v1/search, /api/v1/spell and /api/v1/stats over HTTP,
reloading the index whenever a new commit lands in indexer.dataDir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), app)
		},
	}
}

func serve(ctx context.Context, app *cli.App) error {
	cfg := app.Config
	m, stopMetrics := app.StartMetrics()
	defer stopMetrics(context.Background())

	engine, err := indexer.Open(cfg.Indexer)
	if err != nil {
		return err
	}
	defer engine.Close()

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		s := engine.Stats()
		if !s.Committed {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no committed index"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d terms, %d docs", s.Terms, s.Docs)}
	})

	deps := searcher.Dependencies{Metrics: m}
	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, serving without result cache", "error", err)
		} else {
			defer rc.Close()
			deps.Cache = cache.New(rc, redis.IsNilError, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.PingCheck(rc.Ping, health.StatusDegraded))
		}
	}
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		deps.Collector = analytics.NewCollector(producer, cfg.Analytics.BufferSize)
		deps.Collector.Start(context.Background())
		defer func() {
			deps.Collector.Close()
			if err := producer.Close(); err != nil {
				slog.Warn("closing analytics producer", "error", err)
			}
		}()
	}

	svc, err := searcher.New(engine, cfg, deps)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	handler.New(svc).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
		go limiter.RunEviction(ctx, time.Minute, 10*time.Minute)
	}
	h := middleware.Chain(mux,
		middleware.RequestID,
		middleware.CORS(cfg.Server.CORSOrigins),
		middleware.Metrics(m),
		middleware.RateLimit(limiter),
		middleware.Timeout(cfg.Server.RequestTimeout),
	)

	go func() {
		if err := engine.Watch(ctx, svc.IndexReloaded); err != nil {
			slog.Error("index watcher stopped", "error", err)
		}
	}()

	return cli.Serve(ctx, "search server", cfg.Server, h)
}
