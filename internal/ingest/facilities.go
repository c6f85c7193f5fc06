package ingest

import (
	"fmt"

	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
)

// ReadFacilities reads the health-facility address CSV, one row per
// registered facility. The registry spells county names in upper case;
// normalization brings them onto the same join key as the boundary file.
func ReadFacilities(path string) ([]domain.Facility, error) {
	var out []domain.Facility

	err := forEachRow(path, []string{"name", "city", "county"}, func(h header, record []string) error {
		county := domain.NormalizeCountyName(h.get(record, "county"))
		if county == "" {
			return fmt.Errorf("empty county name")
		}

		out = append(out, domain.Facility{
			Name:       h.get(record, "name"),
			City:       h.get(record, "city"),
			CountyName: county,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
