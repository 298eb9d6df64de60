// Command ingestion feeds documents to the indexer through the ingest topic.
//
// Usage:
//
//	ingestion publish [PATTERN...]
//	ingestion serve
package main

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/middleware"
)

func main() {
	root, app := cli.NewRoot("ingestion", "Publish documents for indexing")
	root.AddCommand(newPublishCommand(app), newServeCommand(app))
	cli.Execute(root)
}

func newProducer(app *cli.App) *kafka.Producer {
	return kafka.NewProducer(app.Config.Kafka, app.Config.Kafka.Topics.DocumentIngest)
}

func closeProducer(p *kafka.Producer) {
	if err := p.Close(); err != nil {
		slog.Warn("closing ingest producer", "error", err)
	}
}

func newPublishCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "publish [PATTERN...]",
		Short: "Publish files matching glob patterns to the ingest topic",
		Long: `Publish reads every file matching the patterns (default
indexer.sourcePatterns; '**' matches any number of directories) and
publishes it to the ingest topic keyed by its path. Files failing
validation are skipped and logged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			patterns := args
			if len(patterns) == 0 {
				patterns = app.Config.Indexer.SourcePatterns
			}
			producer := newProducer(app)
			defer closeProducer(producer)

			published, skipped, err := publisher.New(producer).PublishFiles(cmd.Context(), patterns)
			if err != nil {
				return err
			}
			p := app.Printer()
			if p.IsJSON() {
				return p.JSON(map[string]any{
					"topic":     app.Config.Kafka.Topics.DocumentIngest,
					"published": published,
					"skipped":   skipped,
				})
			}
			return p.KV([][2]string{
				{"topic", app.Config.Kafka.Topics.DocumentIngest},
				{"published", strconv.Itoa(published)},
				{"skipped", strconv.Itoa(skipped)},
			})
		},
	}
}

func newServeCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Accept documents over HTTP at POST /api/v1/documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			ctx := cmd.Context()
			m, stopMetrics := app.StartMetrics()
			defer stopMetrics(context.Background())

			producer := newProducer(app)
			defer closeProducer(producer)

			checker := health.NewChecker()
			checker.Register("kafka", func(context.Context) health.ComponentHealth {
				return health.ComponentHealth{Status: health.StatusUp, Message: "producer ready"}
			})

			mux := http.NewServeMux()
			mux.HandleFunc("POST /api/v1/documents", handler.New(publisher.New(producer)).Ingest)
			mux.HandleFunc("GET /health/live", checker.LiveHandler())
			mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

			h := middleware.Chain(mux,
				middleware.RequestID,
				middleware.Metrics(m),
				middleware.Timeout(cfg.Server.RequestTimeout),
			)
			slog.Info("publishing documents", "topic", cfg.Kafka.Topics.DocumentIngest)
			return cli.Serve(ctx, "ingestion server", cfg.Server, h)
		},
	}
}
