// Package cli holds the plumbing shared by the hashed-search commands: the
// root command with its persistent flags, config and logger setup, output
// formatting and the HTTP server lifecycle.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/metrics"
)

// App is the state every subcommand shares once the root command has run
// its pre-run hook.
type App struct {
	Config *config.Config

	configPath string
	output     string
	logLevel   string
}

// NewRoot returns a root command carrying --config, --output and --log-level.
// Config is loaded and logging configured before any subcommand runs.
func NewRoot(use, short string) (*cobra.Command, *App) {
	app := &App{}
	root := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.load()
		},
	}
	root.PersistentFlags().StringVar(&app.configPath, "config", os.Getenv("SP_CONFIG"), "path to YAML config file")
	root.PersistentFlags().StringVarP(&app.output, "output", "o", "table", "output format: table or json")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "override logging.level")
	return root, app
}

func (a *App) load() error {
	if a.output != "table" && a.output != "json" {
		return fmt.Errorf("unknown output format %q", a.output)
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	a.Config = cfg
	return nil
}

// Printer writes command results to stdout in the selected format.
func (a *App) Printer() *Printer {
	return NewPrinter(a.output, os.Stdout)
}

// StartMetrics registers the collectors on the default registry and, when
// metrics are enabled, starts the scrape server. The returned shutdown is
// never nil.
func (a *App) StartMetrics() (*metrics.Metrics, func(context.Context) error) {
	m := metrics.New(prometheus.DefaultRegisterer)
	if !a.Config.Metrics.Enabled {
		return m, func(context.Context) error { return nil }
	}
	return m, metrics.StartServer(a.Config.Metrics.Port)
}

// Execute runs root with a context cancelled on SIGINT or SIGTERM and exits
// non-zero on error.
func Execute(root *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// Serve runs an HTTP server on cfg.Port until ctx is done, then drains it
// within cfg.ShutdownTimeout.
func Serve(ctx context.Context, name string, cfg config.ServerConfig, handler http.Handler) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s server: %w", name, err)
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received", "server", name)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down %s: %w", name, err)
	}
	slog.Info(name + " stopped")
	return nil
}
