package ingest

import (
	"fmt"

	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
)

// ReadAsthmaRates reads the monthly asthma rate CSV published by the state
// health department. Columns: county, year, month, rate, lower_ci, upper_ci,
// visits. County names are normalized for the name-based join.
func ReadAsthmaRates(path string) ([]domain.AsthmaRate, error) {
	required := []string{"county", "year", "month", "rate", "lower_ci", "upper_ci", "visits"}

	var out []domain.AsthmaRate
	err := forEachRow(path, required, func(h header, record []string) error {
		name := domain.NormalizeCountyName(h.get(record, "county"))
		if name == "" {
			return fmt.Errorf("empty county name")
		}

		year, err := h.getInt(record, "year")
		if err != nil {
			return err
		}
		month, err := h.getInt(record, "month")
		if err != nil {
			return err
		}
		if month < 1 || month > 12 {
			return fmt.Errorf("invalid month %d", month)
		}

		rate, err := h.getFloat(record, "rate")
		if err != nil {
			return err
		}
		lower, err := h.getFloat(record, "lower_ci")
		if err != nil {
			return err
		}
		upper, err := h.getFloat(record, "upper_ci")
		if err != nil {
			return err
		}
		visits, err := h.getFloat(record, "visits")
		if err != nil {
			return err
		}

		out = append(out, domain.AsthmaRate{
			CountyName: name,
			Year:       year,
			Month:      month,
			Rate:       rate,
			RateLower:  lower,
			RateUpper:  upper,
			Visits:     visits,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
