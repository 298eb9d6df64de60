// Command indexer builds the hashed on-disk index and inspects a committed one.
//
// Usage:
//
//	indexer build [--files 'corpus/**/*.txt'] [--kafka]
//	indexer stats
//	indexer lookup TERM...
//	indexer expand PATTERN...
package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/kafka"
)

func main() {
	root, app := cli.NewRoot("indexer", "Build and inspect the hashed search index")
	root.AddCommand(
		newBuildCommand(app),
		newStatsCommand(app),
		newLookupCommand(app),
		newExpandCommand(app),
	)
	cli.Execute(root)
}

func newBuildCommand(app *cli.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Index documents and commit a fresh index",
		Long: `Build tokenizes every document, buffers the postings in memory and commits
the dictionary and data files to indexer.dataDir, replacing any index there.

Documents come from files matching --files (default indexer.sourcePatterns)
or, with --kafka, from the ingest topic until it has been idle for
indexer.idleTimeout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			if cmd.Flags().Changed("data-dir") {
				cfg.Indexer.DataDir, _ = cmd.Flags().GetString("data-dir")
			}
			if cmd.Flags().Changed("kgram") {
				cfg.Indexer.KGramSize, _ = cmd.Flags().GetInt("kgram")
			}
			if cmd.Flags().Changed("stem") {
				cfg.Indexer.Stemming, _ = cmd.Flags().GetBool("stem")
			}
			if cmd.Flags().Changed("stopwords") {
				cfg.Indexer.StopWords, _ = cmd.Flags().GetBool("stopwords")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fromKafka, _ := cmd.Flags().GetBool("kafka")
			patterns, _ := cmd.Flags().GetStringSlice("files")
			if len(patterns) == 0 {
				patterns = cfg.Indexer.SourcePatterns
			}

			m, stopMetrics := app.StartMetrics()
			defer stopMetrics(context.Background())

			events, closeEvents := analyticsEvents(cmd.Context(), app)
			defer closeEvents()

			engine, err := indexer.Create(cfg.Indexer)
			if err != nil {
				return err
			}
			defer engine.Close()

			var stats segment.CommitStats
			if fromKafka {
				builder := consumer.NewBuilder(engine, cfg.Indexer.IdleTimeout, m, events)
				// A fresh group has no committed offsets, so every build reads the whole topic.
				group := cfg.Kafka.ConsumerGroup + "-build-" + uuid.NewString()
				c := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, builder.Handle(),
					kafka.WithGroup(group), kafka.FromBeginning())
				defer c.Close()
				slog.Info("building index from kafka",
					"topic", cfg.Kafka.Topics.DocumentIngest,
					"idle_timeout", cfg.Indexer.IdleTimeout,
				)
				if stats, err = builder.Run(cmd.Context(), c); err != nil {
					return err
				}
			} else {
				if _, err := consumer.IndexFiles(cmd.Context(), engine, patterns, m, events); err != nil {
					return err
				}
				if stats, err = consumer.Commit(engine, m, events); err != nil {
					return err
				}
			}
			return printCommit(app.Printer(), cfg.Indexer.DataDir, stats)
		},
	}
	cmd.Flags().StringSlice("files", nil, "glob patterns of documents to index (supports **)")
	cmd.Flags().Bool("kafka", false, "read documents from the ingest topic instead of files")
	cmd.Flags().String("data-dir", "", "override indexer.dataDir")
	cmd.Flags().Int("kgram", 0, "override indexer.kgramSize")
	cmd.Flags().Bool("stem", false, "override indexer.stemming")
	cmd.Flags().Bool("stopwords", false, "override indexer.stopWords")
	cmd.MarkFlagsMutuallyExclusive("files", "kafka")
	return cmd
}

// analyticsEvents starts a batch collector publishing index events when
// analytics is enabled. Both return values are usable when it is not.
func analyticsEvents(ctx context.Context, app *cli.App) (*collector.BatchCollector, func()) {
	cfg := app.Config
	if !cfg.Analytics.Enabled {
		return nil, func() {}
	}
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	bc := collector.NewBatchCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
	ctx, cancel := context.WithCancel(ctx)
	bc.Start(ctx)
	return bc, func() {
		cancel()
		bc.Close()
		if err := producer.Close(); err != nil {
			slog.Warn("closing analytics producer", "error", err)
		}
	}
}

func printCommit(p *cli.Printer, dir string, s segment.CommitStats) error {
	if p.IsJSON() {
		return p.JSON(s)
	}
	return p.KV([][2]string{
		{"dir", dir},
		{"terms", strconv.Itoa(s.Terms)},
		{"docs", strconv.Itoa(s.Docs)},
		{"data bytes", strconv.FormatInt(s.DataBytes, 10)},
		{"load factor", fmt.Sprintf("%.4f", s.LoadFactor)},
		{"max probe", strconv.Itoa(s.MaxProbe)},
		{"avg probe", fmt.Sprintf("%.3f", s.AvgProbe)},
	})
}

func openCommitted(app *cli.App) (*indexer.Engine, error) {
	engine, err := indexer.Open(app.Config.Indexer)
	if err != nil {
		return nil, err
	}
	if !engine.Stats().Committed {
		engine.Close()
		return nil, fmt.Errorf("no committed index in %s, run 'indexer build' first", app.Config.Indexer.DataDir)
	}
	return engine, nil
}

func newStatsCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise the committed index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openCommitted(app)
			if err != nil {
				return err
			}
			defer engine.Close()
			s := engine.Stats()
			p := app.Printer()
			if p.IsJSON() {
				return p.JSON(s)
			}
			return p.KV([][2]string{
				{"dir", s.Dir},
				{"terms", strconv.Itoa(s.Terms)},
				{"docs", strconv.Itoa(s.Docs)},
				{"table size", strconv.FormatUint(s.TableSize, 10)},
				{"multiplier", strconv.FormatUint(s.Multiplier, 10)},
				{"load factor", fmt.Sprintf("%.4f", s.LoadFactor)},
				{"data bytes", strconv.FormatInt(s.DataBytes, 10)},
				{"k", strconv.Itoa(s.KGramSize)},
			})
		},
	}
}

type termPostings struct {
	Term     string         `json:"term"`
	DocFreq  int            `json:"doc_frequency"`
	Postings []docPositions `json:"postings"`
}

type docPositions struct {
	DocID   int    `json:"doc_id"`
	DocName string `json:"doc_name"`
	Offsets []int  `json:"offsets"`
}

func newLookupCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup TERM...",
		Short: "Print the postings of terms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openCommitted(app)
			if err != nil {
				return err
			}
			defer engine.Close()

			var out []termPostings
			for _, arg := range args {
				term, ok := engine.Tokenizer().Term(arg)
				if !ok {
					return fmt.Errorf("%q is not an indexable term", arg)
				}
				postings, err := engine.Lookup(term)
				if err != nil {
					return err
				}
				tp := termPostings{Term: term, DocFreq: postings.DocFrequency(), Postings: []docPositions{}}
				for _, p := range postings {
					tp.Postings = append(tp.Postings, docPositions{DocID: p.DocID, DocName: engine.DocName(p.DocID), Offsets: p.Offsets})
				}
				out = append(out, tp)
			}

			p := app.Printer()
			if p.IsJSON() {
				return p.JSON(out)
			}
			var rows [][]string
			for _, tp := range out {
				for _, d := range tp.Postings {
					rows = append(rows, []string{tp.Term, strconv.Itoa(d.DocID), d.DocName, joinInts(d.Offsets)})
				}
				if len(tp.Postings) == 0 {
					rows = append(rows, []string{tp.Term, "-", "-", "-"})
				}
			}
			return p.Table([]string{"TERM", "DOC", "NAME", "OFFSETS"}, rows)
		},
	}
}

func newExpandCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "expand PATTERN...",
		Short: "Resolve wildcard patterns against the k-gram index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openCommitted(app)
			if err != nil {
				return err
			}
			defer engine.Close()

			expansions := make(map[string][]string, len(args))
			var rows [][]string
			for _, pattern := range args {
				pattern = strings.ToLower(pattern)
				terms := engine.KGrams().Resolve(pattern)
				if terms == nil {
					terms = []string{}
				}
				expansions[pattern] = terms
				rows = append(rows, []string{pattern, strconv.Itoa(len(terms)), strings.Join(terms, " ")})
			}
			p := app.Printer()
			if p.IsJSON() {
				return p.JSON(expansions)
			}
			return p.Table([]string{"PATTERN", "MATCHES", "TERMS"}, rows)
		},
	}
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, n := range v {
		s[i] = strconv.Itoa(n)
	}
	return strings.Join(s, ",")
}
