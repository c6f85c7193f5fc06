package ingest

import (
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
)

// ReadCounties reads the county boundary GeoJSON. Each feature must carry
// GEOID (5-digit county FIPS), STATEFP (2-digit state FIPS), and NAME
// properties; names are normalized on the way in.
func ReadCounties(path string) ([]domain.County, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	out := make([]domain.County, 0, len(fc.Features))
	for i, f := range fc.Features {
		fips := f.Properties.MustString("GEOID", "")
		state := f.Properties.MustString("STATEFP", "")
		name := f.Properties.MustString("NAME", "")
		if fips == "" || state == "" || name == "" {
			return nil, fmt.Errorf("%s feature %d: missing GEOID, STATEFP, or NAME", path, i)
		}

		out = append(out, domain.County{
			FIPS:      fips,
			StateFIPS: state,
			Name:      domain.NormalizeCountyName(name),
			Geometry:  f.Geometry,
		})
	}
	return out, nil
}
