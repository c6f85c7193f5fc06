// Command genfixtures generates a synthetic but structurally faithful set of
// input files for local runs and demos: a sparse daily exposure CSV, a county
// boundary GeoJSON with the full 64-county Colorado roster, a monthly asthma
// rate CSV, a facility address CSV, and a config.yaml wired to all four.
//
// Output is deterministic for a given seed, so regenerated fixtures diff
// cleanly.
//
// Usage:
//
//	go run ./cmd/genfixtures -out testdata/fixtures -seed 1 -start-year 2018 -end-year 2019
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// coloradoCounties is the real 64-county roster, alphabetical. FIPS codes are
// assigned sequentially odd in that order, mirroring the census convention.
var coloradoCounties = []string{
	"Adams", "Alamosa", "Arapahoe", "Archuleta", "Baca", "Bent", "Boulder",
	"Broomfield", "Chaffee", "Cheyenne", "Clear Creek", "Conejos", "Costilla",
	"Crowley", "Custer", "Delta", "Denver", "Dolores", "Douglas", "Eagle",
	"El Paso", "Elbert", "Fremont", "Garfield", "Gilpin", "Grand", "Gunnison",
	"Hinsdale", "Huerfano", "Jackson", "Jefferson", "Kiowa", "Kit Carson",
	"La Plata", "Lake", "Larimer", "Las Animas", "Lincoln", "Logan", "Mesa",
	"Mineral", "Moffat", "Montezuma", "Montrose", "Morgan", "Otero", "Ouray",
	"Park", "Phillips", "Pitkin", "Prowers", "Pueblo", "Rio Blanco",
	"Rio Grande", "Routt", "Saguache", "San Juan", "San Miguel", "Sedgwick",
	"Summit", "Teller", "Washington", "Weld", "Yuma",
}

const stateFIPS = "08"

type county struct {
	fips string
	name string
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "testdata/fixtures", "output directory for generated fixtures")
	seed := flag.Int64("seed", 1, "random seed")
	startYear := flag.Int("start-year", 2018, "first year of generated data")
	endYear := flag.Int("end-year", 2019, "last year of generated data")
	flag.Parse()

	if *endYear < *startYear {
		return fmt.Errorf("end-year %d precedes start-year %d", *endYear, *startYear)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))

	counties := make([]county, len(coloradoCounties))
	for i, name := range coloradoCounties {
		counties[i] = county{fips: fmt.Sprintf("%s%03d", stateFIPS, 2*i+1), name: name}
	}

	steps := []struct {
		file string
		fn   func(path string) (int, error)
	}{
		{"daily_exposure.csv", func(p string) (int, error) {
			return writeExposure(p, counties, *startYear, *endYear, rng)
		}},
		{"counties.geojson", func(p string) (int, error) {
			return writeCounties(p, counties)
		}},
		{"asthma_rates.csv", func(p string) (int, error) {
			return writeAsthma(p, counties, *startYear, *endYear, rng)
		}},
		{"facilities.csv", func(p string) (int, error) {
			return writeFacilities(p, counties, rng)
		}},
	}

	for _, s := range steps {
		path := filepath.Join(*outDir, s.file)
		n, err := s.fn(path)
		if err != nil {
			return fmt.Errorf("writing %s: %w", s.file, err)
		}
		log.Printf("%s: %d rows", s.file, n)
	}

	configPath := filepath.Join(*outDir, "config.yaml")
	if err := writeConfig(configPath, *outDir); err != nil {
		return fmt.Errorf("writing config.yaml: %w", err)
	}
	log.Printf("wrote %s", configPath)
	return nil
}

// writeExposure emits the sparse smoke-day file: rows exist only on days the
// plume model flagged, clustered in fire season. Everything absent is an
// implicit zero.
func writeExposure(path string, counties []county, startYear, endYear int, rng *rand.Rand) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"fips", "date", "pm25"}); err != nil {
		return 0, err
	}

	n := 0
	start := time.Date(startYear, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(endYear, 12, 31, 0, 0, 0, 0, time.UTC)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		prob := 0.02
		if m := int(day.Month()); m >= 6 && m <= 9 {
			prob = 0.25 // fire season
		}
		for _, c := range counties {
			if rng.Float64() >= prob {
				continue
			}
			pm25 := math.Exp(rng.NormFloat64()*0.8 + 1.2) // right-skewed, median ~3.3
			rec := []string{c.fips, day.Format("2006-01-02"), fmt.Sprintf("%.3f", pm25)}
			if err := w.Write(rec); err != nil {
				return 0, err
			}
			n++
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, err
	}
	return n, f.Close()
}

// writeCounties tiles simple square polygons over the state bounding box.
// Geometry is carried through to the GeoJSON output untouched, so squares
// are enough for fixtures.
func writeCounties(path string, counties []county) (int, error) {
	fc := geojson.NewFeatureCollection()
	for i, c := range counties {
		col, row := i%8, i/8
		minLon := -109.0 + float64(col)*0.875
		minLat := 37.0 + float64(row)*0.5
		ring := orb.Ring{
			{minLon, minLat},
			{minLon + 0.875, minLat},
			{minLon + 0.875, minLat + 0.5},
			{minLon, minLat + 0.5},
			{minLon, minLat},
		}
		feat := geojson.NewFeature(orb.Polygon{ring})
		feat.Properties = geojson.Properties{
			"GEOID":   c.fips,
			"STATEFP": stateFIPS,
			"NAME":    c.name,
		}
		fc.Append(feat)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, err
	}
	return len(fc.Features), nil
}

// writeAsthma emits monthly rates with confidence bounds. County names use
// the upper-case "X COUNTY" form the public health tables ship with, to
// exercise name normalization. A few county-months are withheld to exercise
// the null-preserving join.
func writeAsthma(path string, counties []county, startYear, endYear int, rng *rand.Rand) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"county", "year", "month", "rate", "lower_ci", "upper_ci", "visits"}); err != nil {
		return 0, err
	}

	n := 0
	for _, c := range counties {
		base := 25.0 + rng.Float64()*40.0
		for year := startYear; year <= endYear; year++ {
			for month := 1; month <= 12; month++ {
				if rng.Float64() < 0.05 {
					continue // suppressed small-count cell
				}
				rate := base * (0.85 + rng.Float64()*0.3)
				margin := rate * (0.1 + rng.Float64()*0.1)
				visits := math.Round(rate * (2 + rng.Float64()*8))
				rec := []string{
					strings.ToUpper(c.name) + " COUNTY",
					fmt.Sprintf("%d", year),
					fmt.Sprintf("%d", month),
					fmt.Sprintf("%.2f", rate),
					fmt.Sprintf("%.2f", rate-margin),
					fmt.Sprintf("%.2f", rate+margin),
					fmt.Sprintf("%.0f", visits),
				}
				if err := w.Write(rec); err != nil {
					return 0, err
				}
				n++
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, err
	}
	return n, f.Close()
}

// writeFacilities emits 1-6 facilities per county, none for a handful of
// small counties so the facility join also sees misses.
func writeFacilities(path string, counties []county, rng *rand.Rand) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"name", "city", "county"}); err != nil {
		return 0, err
	}

	kinds := []string{"Medical Center", "Community Clinic", "Family Health", "Urgent Care", "Regional Hospital"}

	n := 0
	for _, c := range counties {
		count := rng.Intn(7)
		for i := 0; i < count; i++ {
			rec := []string{
				fmt.Sprintf("%s %s", c.name, kinds[rng.Intn(len(kinds))]),
				c.name,
				strings.ToUpper(c.name) + " COUNTY",
			}
			if err := w.Write(rec); err != nil {
				return 0, err
			}
			n++
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, err
	}
	return n, f.Close()
}

func writeConfig(path, dir string) error {
	cfg := fmt.Sprintf(`inputs:
  daily_exposure: %[1]s/daily_exposure.csv
  county_boundaries: %[1]s/counties.geojson
  asthma_rates: %[1]s/asthma_rates.csv
  facilities: %[1]s/facilities.csv

output_dir: %[1]s/out

target_state:
  name: Colorado
  fips: "08"
  expected_counties: 64

sqlite_path: %[1]s/out/combined.db
`, dir)
	return os.WriteFile(path, []byte(cfg), 0o644)
}
