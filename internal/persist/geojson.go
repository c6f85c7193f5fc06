package persist

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
)

// WriteMonthlyGeoJSON writes the combined monthly table as a FeatureCollection
// with one feature per county-month, preserving the county boundary geometry
// alongside the joined attributes. Nil attributes are emitted as JSON null.
func WriteMonthlyGeoJSON(path string, rows []domain.CombinedMonthly) error {
	fc := geojson.NewFeatureCollection()

	for _, r := range rows {
		f := geojson.NewFeature(r.Geometry)
		f.Properties = geojson.Properties{
			"county_fips": r.CountyFIPS,
			"county":      r.CountyName,
			"year":        r.Year,
			"month":       r.Month,
			"pm25":        r.PM25,
			"rate":        nullable(r.Rate),
			"lower_ci":    nullable(r.RateLower),
			"upper_ci":    nullable(r.RateUpper),
			"visits":      nullable(r.Visits),
			"facilities":  nullableInt(r.Facilities),
		}
		fc.Append(f)
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
