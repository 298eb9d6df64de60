// Command analytics aggregates search, spell and indexing events from Kafka
// and serves the running statistics at GET /api/v1/analytics. With
// analytics.snapshots enabled the statistics are persisted to PostgreSQL on a
// schedule and restored on start.
//
// Usage:
//
//	analytics serve
//	analytics snapshots [--limit 10]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/postgres"
)

func main() {
	root, app := cli.NewRoot("analytics", "Aggregate search analytics")
	root.AddCommand(newServeCommand(app), newSnapshotsCommand(app))
	cli.Execute(root)
}

func newServeCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume analytics events and serve aggregated statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), app)
		},
	}
}

func serve(ctx context.Context, app *cli.App) error {
	cfg := app.Config
	m, stopMetrics := app.StartMetrics()
	defer stopMetrics(context.Background())

	agg := analytics.NewAggregator()
	checker := health.NewChecker()

	if cfg.Analytics.Snapshots {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		store := aggregator.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		latest, err := store.LatestSnapshot(ctx)
		if err != nil {
			return err
		}
		if latest != nil {
			agg.Restore(*latest)
			slog.Info("restored analytics snapshot", "total_searches", latest.TotalSearches)
		}
		if err := store.Schedule(ctx, agg, cfg.Analytics.SnapshotInterval); err != nil {
			return err
		}
		checker.Register("postgres", health.PingCheck(db.Ping, health.StatusDegraded))
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg),
		kafka.WithGroup(cfg.Kafka.ConsumerGroup+"-analytics"))
	defer consumer.Close()
	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- consumer.Start(ctx)
	}()
	checker.Register("kafka", func(context.Context) health.ComponentHealth {
		select {
		case err := <-consumerErr:
			consumerErr <- err
			return health.ComponentHealth{Status: health.StatusDown, Message: fmt.Sprintf("consumer stopped: %v", err)}
		default:
			return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
		}
	})
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	h := middleware.Chain(mux,
		middleware.RequestID,
		middleware.CORS(cfg.Server.CORSOrigins),
		middleware.Metrics(m),
	)
	return cli.Serve(ctx, "analytics server", cfg.Server, h)
}

func newSnapshotsCommand(app *cli.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List persisted analytics snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			db, err := postgres.New(cmd.Context(), app.Config.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()
			snapshots, err := aggregator.NewStore(db).ListSnapshots(cmd.Context(), limit)
			if err != nil {
				return err
			}
			p := app.Printer()
			if p.IsJSON() {
				return p.JSON(snapshots)
			}
			rows := make([][]string, 0, len(snapshots))
			for _, s := range snapshots {
				rows = append(rows, []string{
					strconv.FormatInt(s.TotalSearches, 10),
					strconv.FormatInt(s.TotalSpellChecks, 10),
					strconv.FormatInt(s.TotalDocIndexed, 10),
					strconv.FormatInt(s.ZeroResultCount, 10),
					strconv.FormatInt(s.P95LatencyMs, 10),
				})
			}
			return p.Table([]string{"SEARCHES", "SPELL", "INDEXED", "ZERO-RESULT", "P95 MS"}, rows)
		},
	}
	cmd.Flags().Int("limit", 10, "number of snapshots to list")
	return cmd
}
