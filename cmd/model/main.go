// Command model runs the modeling half of the analysis: it reads the
// combined monthly and seasonal tables produced by combine, derives the
// lagged and log-transformed regression inputs, fits three fixed-effects
// Poisson models, and renders the comparison table and diagnostic figures.
//
// The three fits are independent: a fit that fails to converge or has a
// degenerate design is logged and dropped from the report, and the other
// fits still run.
//
// Usage:
//
//	model -config config.yaml
package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/couchcryptid/smoke-asthma-etl/internal/config"
	"github.com/couchcryptid/smoke-asthma-etl/internal/feature"
	"github.com/couchcryptid/smoke-asthma-etl/internal/observability"
	"github.com/couchcryptid/smoke-asthma-etl/internal/persist"
	"github.com/couchcryptid/smoke-asthma-etl/internal/regress"
	"github.com/couchcryptid/smoke-asthma-etl/internal/report"
)

// errNoFits means every regression failed; there is nothing to report.
var errNoFits = errors.New("all model fits failed")

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

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("model failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	monthly, err := persist.ReadMonthlyCSV(cfg.OutputPath(persist.MonthlyCSVName))
	if err != nil {
		return err
	}
	seasonal, err := persist.ReadSeasonalCSV(cfg.OutputPath(persist.SeasonalCSVName))
	if err != nil {
		return err
	}
	logger.Info("combined tables loaded",
		"monthly_rows", len(monthly),
		"seasonal_rows", len(seasonal),
	)

	monthlyRows := feature.MonthlyRows(monthly)
	seasonalRows := feature.SeasonalRows(seasonal)

	fits := fitAll(monthlyRows, seasonalRows, cfg, logger, metrics)
	if len(fits) == 0 {
		return errNoFits
	}

	comparison := report.BuildComparison(fits, cfg.Report.OmitGOF)
	if err := report.WriteMarkdown(cfg.OutputPath(report.ComparisonMDName), comparison); err != nil {
		return err
	}
	if err := report.WriteTablePNG(cfg.OutputPath(report.ComparisonPNGName), comparison); err != nil {
		return err
	}
	if err := report.WriteCoefficientPlots(cfg.OutputPath(report.CoefficientsName), fits); err != nil {
		return err
	}
	if err := report.WriteRateHistogram(cfg.OutputPath(report.RateHistogramName), rawRates(monthlyRows)); err != nil {
		return err
	}

	logger.Info("model complete", "fits", len(fits), "output_dir", cfg.OutputDir)

	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Warn("metrics export failed", "error", err)
	}
	return nil
}

// fitAll attempts the three regressions, keeping whichever succeed.
func fitAll(monthlyRows, seasonalRows []feature.Row, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) []*regress.Fit {
	opts := regress.Options{
		MaxIterations: cfg.Model.MaxIterations,
		Tolerance:     cfg.Model.Tolerance,
	}

	specs := []struct {
		name   string
		design func() (*regress.Design, error)
	}{
		{"monthly", func() (*regress.Design, error) { return regress.MonthlyDesign(monthlyRows) }},
		{"monthly_lagged", func() (*regress.Design, error) { return regress.LaggedMonthlyDesign(monthlyRows) }},
		{"seasonal", func() (*regress.Design, error) { return regress.SeasonalDesign(seasonalRows) }},
	}

	var fits []*regress.Fit
	for _, s := range specs {
		d, err := s.design()
		if err != nil {
			logger.Error("design assembly failed", "model", s.name, "error", err)
			metrics.ModelFits.WithLabelValues(s.name, "error").Inc()
			continue
		}

		fit, err := regress.FitPoisson(d, opts)
		if err != nil {
			logger.Error("fit failed", "model", s.name, "error", err)
			metrics.ModelFits.WithLabelValues(s.name, "error").Inc()
			continue
		}

		metrics.ModelFits.WithLabelValues(s.name, "success").Inc()
		logger.Info("fit converged",
			"model", s.name,
			"observations", fit.NObs,
			"iterations", fit.Iterations,
			"deviance", fit.Deviance,
		)
		fits = append(fits, fit)
	}
	return fits
}

// rawRates collects the untransformed monthly rates for the histogram.
func rawRates(rows []feature.Row) []float64 {
	var rates []float64
	for _, r := range rows {
		if r.Rate != nil {
			rates = append(rates, *r.Rate)
		}
	}
	return rates
}
