package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/smoke-asthma-etl/internal/config"
	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
	"github.com/couchcryptid/smoke-asthma-etl/internal/ingest"
	"github.com/couchcryptid/smoke-asthma-etl/internal/observability"
)

// Persister writes the two combined tables to their output destinations.
type Persister interface {
	PersistMonthly(ctx context.Context, rows []domain.CombinedMonthly) error
	PersistSeasonal(ctx context.Context, rows []domain.Seasonal) error
}

// Result holds the tables produced by one pipeline run.
type Result struct {
	Monthly  []domain.CombinedMonthly
	Seasonal []domain.Seasonal
}

// Pipeline orchestrates the batch ingest-aggregate-join-rollup-persist run.
type Pipeline struct {
	cfg       *config.Config
	persister Persister
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline with the given persister and observability.
func New(cfg *config.Config, persister Persister, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		persister: persister,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run executes the full pipeline once. Stages run sequentially; the county
// count validation failure aborts before any join, and every other error
// propagates immediately.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	// ── Ingest & filter counties ──
	allCounties, err := p.readCounties()
	if err != nil {
		return nil, err
	}

	counties := FilterState(allCounties, p.cfg.Target.FIPS)
	if err := ValidateCountyCount(counties, p.cfg.Target.Name, p.cfg.Target.ExpectedCounties); err != nil {
		p.metrics.ValidationFailures.Inc()
		p.logger.Error("county count validation failed",
			"state", p.cfg.Target.Name,
			"want", p.cfg.Target.ExpectedCounties,
			"error", err,
		)
		return nil, err
	}
	p.logger.Info("counties filtered",
		"state", p.cfg.Target.Name,
		"counties", len(counties),
		"total", len(allCounties),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ── Aggregate daily exposure to county-months ──
	monthly, err := p.aggregateExposure(counties)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ── Join asthma observations and facility counts ──
	combined, err := p.joinSources(monthly, counties)
	if err != nil {
		return nil, err
	}

	// ── Seasonal rollup ──
	seasonal := p.rollup(combined)

	// ── Persist ──
	if err := p.persist(ctx, combined, seasonal); err != nil {
		return nil, err
	}

	return &Result{Monthly: combined, Seasonal: seasonal}, nil
}

func (p *Pipeline) readCounties() ([]domain.County, error) {
	var counties []domain.County
	err := p.timed("ingest_counties", func() error {
		var err error
		counties, err = ingest.ReadCounties(p.cfg.Inputs.CountyBoundaries)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ingest counties: %w", err)
	}
	p.metrics.RowsIngested.WithLabelValues("counties").Add(float64(len(counties)))
	return counties, nil
}

func (p *Pipeline) aggregateExposure(counties []domain.County) ([]domain.MonthlyExposure, error) {
	var daily []domain.DailyExposure
	err := p.timed("ingest_exposure", func() error {
		var err error
		daily, err = ingest.ReadDailyExposure(p.cfg.Inputs.DailyExposure)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ingest daily exposure: %w", err)
	}
	p.metrics.RowsIngested.WithLabelValues("exposure").Add(float64(len(daily)))

	first, last, err := DateRange(daily)
	if err != nil {
		return nil, err
	}
	p.logger.Info("daily exposure ingested",
		"rows", len(daily),
		"first", first.Format("2006-01-02"),
		"last", last.Format("2006-01-02"),
	)

	var monthly []domain.MonthlyExposure
	err = p.timed("monthly_aggregate", func() error {
		var err error
		monthly, err = MonthlyAggregate(daily, counties)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("monthly aggregate: %w", err)
	}
	p.metrics.RowsOut.WithLabelValues("monthly").Add(float64(len(monthly)))
	p.logger.Info("monthly aggregate built", "rows", len(monthly))
	return monthly, nil
}

func (p *Pipeline) joinSources(monthly []domain.MonthlyExposure, counties []domain.County) ([]domain.CombinedMonthly, error) {
	var rates []domain.AsthmaRate
	err := p.timed("ingest_asthma", func() error {
		var err error
		rates, err = ingest.ReadAsthmaRates(p.cfg.Inputs.AsthmaRates)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ingest asthma rates: %w", err)
	}
	p.metrics.RowsIngested.WithLabelValues("asthma").Add(float64(len(rates)))

	var dropped int
	rates, dropped = FilterRatesFrom(rates, p.cfg.AsthmaStartYear)
	if dropped > 0 {
		p.logger.Info("asthma rows before study start dropped",
			"start_year", p.cfg.AsthmaStartYear,
			"dropped", dropped,
		)
	}

	var facilities []domain.Facility
	err = p.timed("ingest_facilities", func() error {
		var err error
		facilities, err = ingest.ReadFacilities(p.cfg.Inputs.Facilities)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ingest facilities: %w", err)
	}
	p.metrics.RowsIngested.WithLabelValues("facilities").Add(float64(len(facilities)))

	facilityCounts := CountFacilities(facilities)

	var (
		combined []domain.CombinedMonthly
		stats    JoinStats
	)
	err = p.timed("join", func() error {
		var err error
		combined, stats, err = JoinMonthly(monthly, counties, rates, facilityCounts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("join monthly: %w", err)
	}

	p.metrics.RowsOut.WithLabelValues("combined").Add(float64(len(combined)))
	p.metrics.JoinMisses.WithLabelValues("asthma").Add(float64(stats.AsthmaMisses))
	p.metrics.JoinMisses.WithLabelValues("facilities").Add(float64(stats.FacilityMisses))

	p.logger.Info("monthly tables joined",
		"rows", len(combined),
		"asthma_misses", stats.AsthmaMisses,
		"facility_misses", stats.FacilityMisses,
	)
	for _, name := range stats.UnmatchedCounties {
		p.logger.Warn("county has no asthma observations in any month", "county", name)
	}
	return combined, nil
}

func (p *Pipeline) rollup(combined []domain.CombinedMonthly) []domain.Seasonal {
	var seasonal []domain.Seasonal
	_ = p.timed("seasonal_rollup", func() error {
		seasonal = SeasonalRollup(combined, p.cfg.SeasonSet())
		return nil
	})
	p.metrics.RowsOut.WithLabelValues("seasonal").Add(float64(len(seasonal)))
	p.logger.Info("seasonal rollup built", "rows", len(seasonal), "months", p.cfg.SeasonMonths)
	return seasonal
}

func (p *Pipeline) persist(ctx context.Context, combined []domain.CombinedMonthly, seasonal []domain.Seasonal) error {
	err := p.timed("persist", func() error {
		if err := p.persister.PersistMonthly(ctx, combined); err != nil {
			return fmt.Errorf("persist monthly: %w", err)
		}
		if err := p.persister.PersistSeasonal(ctx, seasonal); err != nil {
			return fmt.Errorf("persist seasonal: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.logger.Info("tables persisted", "monthly_rows", len(combined), "seasonal_rows", len(seasonal))
	return nil
}

// timed runs fn and records its wall-clock duration under the stage label.
func (p *Pipeline) timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return err
}
