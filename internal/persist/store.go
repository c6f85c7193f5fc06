package persist

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/smoke-asthma-etl/internal/config"
	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
)

// Output file names within the configured output directory.
const (
	MonthlyCSVName     = "combined_monthly.csv"
	MonthlyGeoJSONName = "combined_monthly.geojson"
	SeasonalCSVName    = "combined_seasonal.csv"
)

// Store fans the combined tables out to every configured destination: CSV,
// GeoJSON (monthly only, geometry-preserving), and the SQLite database.
// It implements the pipeline's Persister.
type Store struct {
	cfg    *config.Config
	db     *DB
	logger *slog.Logger

	monthlyRows int
}

// NewStore creates the output directory and opens the SQLite database.
func NewStore(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", cfg.OutputDir, err)
	}

	var db *DB
	if cfg.SQLitePath != "" {
		var err error
		if db, err = OpenDB(cfg.SQLitePath); err != nil {
			return nil, err
		}
	}
	return &Store{cfg: cfg, db: db, logger: logger}, nil
}

// Close closes the SQLite database if one is configured.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PersistMonthly writes the combined monthly table as CSV, GeoJSON, and a
// SQLite table.
func (s *Store) PersistMonthly(ctx context.Context, rows []domain.CombinedMonthly) error {
	csvPath := s.cfg.OutputPath(MonthlyCSVName)
	if err := WriteMonthlyCSV(csvPath, rows); err != nil {
		return err
	}
	s.logger.Info("wrote combined monthly CSV", "path", csvPath, "rows", len(rows))

	geoPath := s.cfg.OutputPath(MonthlyGeoJSONName)
	if err := WriteMonthlyGeoJSON(geoPath, rows); err != nil {
		return err
	}
	s.logger.Info("wrote combined monthly GeoJSON", "path", geoPath)

	if s.db != nil {
		if err := s.db.SaveMonthly(ctx, rows); err != nil {
			return err
		}
	}
	s.monthlyRows = len(rows)
	return nil
}

// PersistSeasonal writes the seasonal table as CSV and a SQLite table, then
// appends a ledger row stamped with the injected clock.
func (s *Store) PersistSeasonal(ctx context.Context, rows []domain.Seasonal) error {
	csvPath := s.cfg.OutputPath(SeasonalCSVName)
	if err := WriteSeasonalCSV(csvPath, rows); err != nil {
		return err
	}
	s.logger.Info("wrote combined seasonal CSV", "path", csvPath, "rows", len(rows))

	if s.db != nil {
		if err := s.db.SaveSeasonal(ctx, rows); err != nil {
			return err
		}
		if err := s.db.RecordRun(ctx, domain.Now(), s.monthlyRows, len(rows)); err != nil {
			return err
		}
	}
	return nil
}
