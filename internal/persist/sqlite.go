package persist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // cgo-free sqlite driver

	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS combined_monthly (
	county_fips TEXT    NOT NULL,
	county      TEXT    NOT NULL,
	year        INTEGER NOT NULL,
	month       INTEGER NOT NULL,
	pm25        REAL    NOT NULL,
	rate        REAL,
	lower_ci    REAL,
	upper_ci    REAL,
	visits      REAL,
	facilities  INTEGER,
	PRIMARY KEY (county_fips, year, month)
);
CREATE TABLE IF NOT EXISTS combined_seasonal (
	county_fips     TEXT    NOT NULL,
	county          TEXT    NOT NULL,
	year            INTEGER NOT NULL,
	pm25            REAL    NOT NULL,
	mean_rate       REAL,
	mean_lower_ci   REAL,
	mean_upper_ci   REAL,
	visits          REAL,
	mean_facilities REAL,
	PRIMARY KEY (county_fips, year)
);
CREATE TABLE IF NOT EXISTS runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	generated_at  TEXT    NOT NULL,
	monthly_rows  INTEGER NOT NULL,
	seasonal_rows INTEGER NOT NULL
);
`

// DB is the SQLite store holding both combined tables and a runs ledger.
// Tables are replaced wholesale on each run; the ledger is append-only.
type DB struct {
	db *sql.DB
}

// OpenDB opens (creating if needed) the SQLite database at path and ensures
// the schema exists.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}

// SaveMonthly replaces the combined_monthly table with rows.
func (d *DB) SaveMonthly(ctx context.Context, rows []domain.CombinedMonthly) error {
	return d.replace(ctx, "combined_monthly",
		`INSERT INTO combined_monthly
		 (county_fips, county, year, month, pm25, rate, lower_ci, upper_ci, visits, facilities)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) []any {
			r := rows[i]
			return []any{
				r.CountyFIPS, r.CountyName, r.Year, r.Month, r.PM25,
				nullFloat(r.Rate), nullFloat(r.RateLower), nullFloat(r.RateUpper),
				nullFloat(r.Visits), nullInt(r.Facilities),
			}
		})
}

// SaveSeasonal replaces the combined_seasonal table with rows.
func (d *DB) SaveSeasonal(ctx context.Context, rows []domain.Seasonal) error {
	return d.replace(ctx, "combined_seasonal",
		`INSERT INTO combined_seasonal
		 (county_fips, county, year, pm25, mean_rate, mean_lower_ci, mean_upper_ci, visits, mean_facilities)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) []any {
			r := rows[i]
			return []any{
				r.CountyFIPS, r.CountyName, r.Year, r.PM25,
				nullFloat(r.MeanRate), nullFloat(r.MeanRateLower), nullFloat(r.MeanRateUpper),
				nullFloat(r.Visits), nullFloat(r.MeanFacilities),
			}
		})
}

// RecordRun appends one row to the runs ledger.
func (d *DB) RecordRun(ctx context.Context, generatedAt time.Time, monthlyRows, seasonalRows int) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO runs (generated_at, monthly_rows, seasonal_rows) VALUES (?, ?, ?)`,
		generatedAt.Format(time.RFC3339), monthlyRows, seasonalRows,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func (d *DB) replace(ctx context.Context, table, insert string, n int, args func(i int) []any) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
