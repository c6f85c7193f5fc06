package ingest

import (
	"fmt"
	"time"

	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
)

// dateLayout is the calendar-day format used by the exposure source.
const dateLayout = "2006-01-02"

// ReadDailyExposure reads the sparse county-day smoke PM2.5 CSV. The file has
// columns fips, date, pm25 and contains rows only for days on which the smoke
// model detected smoke over the county.
func ReadDailyExposure(path string) ([]domain.DailyExposure, error) {
	var out []domain.DailyExposure

	err := forEachRow(path, []string{"fips", "date", "pm25"}, func(h header, record []string) error {
		fips := h.get(record, "fips")
		if fips == "" {
			return fmt.Errorf("empty fips")
		}

		date, err := time.ParseInLocation(dateLayout, h.get(record, "date"), time.UTC)
		if err != nil {
			return fmt.Errorf("column %q: %w", "date", err)
		}

		pm25, err := h.getFloat(record, "pm25")
		if err != nil {
			return err
		}
		if pm25 < 0 {
			return fmt.Errorf("negative pm25 %v", pm25)
		}

		out = append(out, domain.DailyExposure{CountyFIPS: fips, Date: date, PM25: pm25})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
