// Package persist writes the combined analysis tables to their flat-file and
// SQLite destinations and reads the CSV forms back for the modeling stage.
package persist

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
)

var monthlyHeader = []string{
	"county_fips", "county", "year", "month",
	"pm25", "rate", "lower_ci", "upper_ci", "visits", "facilities",
}

var seasonalHeader = []string{
	"county_fips", "county", "year",
	"pm25", "mean_rate", "mean_lower_ci", "mean_upper_ci", "visits", "mean_facilities",
}

// WriteMonthlyCSV writes the combined monthly table. Nil fields become empty
// cells so the distinction between a zero and a join miss survives the file.
func WriteMonthlyCSV(path string, rows []domain.CombinedMonthly) error {
	return writeCSV(path, monthlyHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.CountyFIPS,
			r.CountyName,
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Month),
			formatFloat(r.PM25),
			formatNullable(r.Rate),
			formatNullable(r.RateLower),
			formatNullable(r.RateUpper),
			formatNullable(r.Visits),
			formatNullableInt(r.Facilities),
		}
	})
}

// WriteSeasonalCSV writes the seasonal rollup table.
func WriteSeasonalCSV(path string, rows []domain.Seasonal) error {
	return writeCSV(path, seasonalHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.CountyFIPS,
			r.CountyName,
			strconv.Itoa(r.Year),
			formatFloat(r.PM25),
			formatNullable(r.MeanRate),
			formatNullable(r.MeanRateLower),
			formatNullable(r.MeanRateUpper),
			formatNullable(r.Visits),
			formatNullable(r.MeanFacilities),
		}
	})
}

// ReadMonthlyCSV reads a table written by WriteMonthlyCSV. Geometry is not
// round-tripped through CSV; rows come back with nil geometry.
func ReadMonthlyCSV(path string) ([]domain.CombinedMonthly, error) {
	var out []domain.CombinedMonthly
	err := readCSV(path, monthlyHeader, func(rec []string) error {
		year, err := strconv.Atoi(rec[2])
		if err != nil {
			return fmt.Errorf("invalid year %q", rec[2])
		}
		month, err := strconv.Atoi(rec[3])
		if err != nil {
			return fmt.Errorf("invalid month %q", rec[3])
		}
		pm25, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return fmt.Errorf("invalid pm25 %q", rec[4])
		}

		row := domain.CombinedMonthly{
			CountyFIPS: rec[0],
			CountyName: rec[1],
			Year:       year,
			Month:      month,
			PM25:       pm25,
		}
		if row.Rate, err = parseNullable(rec[5], "rate"); err != nil {
			return err
		}
		if row.RateLower, err = parseNullable(rec[6], "lower_ci"); err != nil {
			return err
		}
		if row.RateUpper, err = parseNullable(rec[7], "upper_ci"); err != nil {
			return err
		}
		if row.Visits, err = parseNullable(rec[8], "visits"); err != nil {
			return err
		}
		if row.Facilities, err = parseNullableInt(rec[9], "facilities"); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadSeasonalCSV reads a table written by WriteSeasonalCSV.
func ReadSeasonalCSV(path string) ([]domain.Seasonal, error) {
	var out []domain.Seasonal
	err := readCSV(path, seasonalHeader, func(rec []string) error {
		year, err := strconv.Atoi(rec[2])
		if err != nil {
			return fmt.Errorf("invalid year %q", rec[2])
		}
		pm25, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return fmt.Errorf("invalid pm25 %q", rec[3])
		}

		row := domain.Seasonal{
			CountyFIPS: rec[0],
			CountyName: rec[1],
			Year:       year,
			PM25:       pm25,
		}
		if row.MeanRate, err = parseNullable(rec[4], "mean_rate"); err != nil {
			return err
		}
		if row.MeanRateLower, err = parseNullable(rec[5], "mean_lower_ci"); err != nil {
			return err
		}
		if row.MeanRateUpper, err = parseNullable(rec[6], "mean_upper_ci"); err != nil {
			return err
		}
		if row.Visits, err = parseNullable(rec[7], "visits"); err != nil {
			return err
		}
		if row.MeanFacilities, err = parseNullable(rec[8], "mean_facilities"); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func writeCSV(path string, header []string, n int, record func(i int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for i := 0; i < n; i++ {
		if err := w.Write(record(i)); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func readCSV(path string, header []string, fn func(rec []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	first, err := r.Read()
	if err != nil {
		return fmt.Errorf("%s: read header: %w", path, err)
	}
	if len(first) != len(header) {
		return fmt.Errorf("%s: expected %d columns, got %d", path, len(header), len(first))
	}

	for row := 2; ; row++ {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s row %d: %w", path, row, err)
		}
		if err := fn(rec); err != nil {
			return fmt.Errorf("%s row %d: %w", path, row, err)
		}
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatNullable(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatNullableInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func parseNullable(s, col string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", col, s)
	}
	return domain.Float64(v), nil
}

func parseNullableInt(s, col string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", col, s)
	}
	return domain.Int(v), nil
}
