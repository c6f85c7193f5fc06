// Command combine runs the data-combination half of the analysis: it reads
// the four raw source files, aggregates daily smoke exposure to county-month,
// joins in asthma rates and facility counts for the target state, rolls the
// result up to fire seasons, and writes the combined tables to the output
// directory.
//
// Usage:
//
//	combine -config config.yaml
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/smoke-asthma-etl/internal/config"
	"github.com/couchcryptid/smoke-asthma-etl/internal/observability"
	"github.com/couchcryptid/smoke-asthma-etl/internal/persist"
	"github.com/couchcryptid/smoke-asthma-etl/internal/pipeline"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("combine failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	store, err := persist.NewStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	p := pipeline.New(cfg, store, logger, metrics)
	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("combine complete",
		"monthly_rows", len(result.Monthly),
		"seasonal_rows", len(result.Seasonal),
		"output_dir", cfg.OutputDir,
	)

	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Warn("metrics export failed", "error", err)
	}
	return store.Close()
}
