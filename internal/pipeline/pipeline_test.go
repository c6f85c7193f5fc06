package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/smoke-asthma-etl/internal/config"
	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
	"github.com/couchcryptid/smoke-asthma-etl/internal/observability"
)

// fakePersister records what the pipeline hands it.
type fakePersister struct {
	monthly  []domain.CombinedMonthly
	seasonal []domain.Seasonal
	err      error
}

func (f *fakePersister) PersistMonthly(_ context.Context, rows []domain.CombinedMonthly) error {
	if f.err != nil {
		return f.err
	}
	f.monthly = rows
	return nil
}

func (f *fakePersister) PersistSeasonal(_ context.Context, rows []domain.Seasonal) error {
	if f.err != nil {
		return f.err
	}
	f.seasonal = rows
	return nil
}

const fixtureCounties = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"GEOID": "08031", "STATEFP": "08", "NAME": "Denver"},
     "geometry": {"type": "Polygon", "coordinates": [[[-105,39.6],[-104.6,39.6],[-104.6,39.9],[-105,39.6]]]}},
    {"type": "Feature", "properties": {"GEOID": "08041", "STATEFP": "08", "NAME": "El Paso"},
     "geometry": {"type": "Polygon", "coordinates": [[[-105,38.5],[-104.2,38.5],[-104.2,39.1],[-105,38.5]]]}},
    {"type": "Feature", "properties": {"GEOID": "06037", "STATEFP": "06", "NAME": "Los Angeles"},
     "geometry": {"type": "Polygon", "coordinates": [[[-119,33.7],[-117.6,33.7],[-117.6,34.8],[-119,33.7]]]}}
  ]
}`

// Two-county scenario: Denver has smoke on 2 of 90 days at 5 µg/m³
// each inside July, El Paso none. Zero-valued sentinel rows pin
// the covered range to June through August.
const fixtureExposure = `fips,date,pm25
08031,2018-06-01,0
08031,2018-07-04,5
08031,2018-07-19,5
08031,2018-08-31,0
`

const fixtureAsthma = `county,year,month,rate,lower_ci,upper_ci,visits
Denver,2018,6,40.0,35.0,45.0,300
Denver,2018,7,45.0,40.0,50.0,330
DENVER,2018,8,42.0,37.0,47.0,310
EL PASO,2018,7,38.0,33.0,43.0,260
`

const fixtureFacilities = `name,city,county
Mercy,Denver,DENVER
Saint Luke,Denver,DENVER
Front Range,Colorado Springs,EL PASO
`

func testConfig(t *testing.T, expectedCounties int) *config.Config {
	t.Helper()
	dir := t.TempDir()

	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	return &config.Config{
		Inputs: config.Inputs{
			DailyExposure:    write("exposure.csv", fixtureExposure),
			CountyBoundaries: write("counties.geojson", fixtureCounties),
			AsthmaRates:      write("asthma.csv", fixtureAsthma),
			Facilities:       write("facilities.csv", fixtureFacilities),
		},
		OutputDir:       dir,
		Target:          config.TargetState{Name: "Colorado", FIPS: "08", ExpectedCounties: expectedCounties},
		SeasonMonths:    []int{5, 6, 7, 8, 9},
		AsthmaStartYear: 2011,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipelineRun_EndToEnd(t *testing.T) {
	cfg := testConfig(t, 2)
	persister := &fakePersister{}
	p := New(cfg, persister, discardLogger(), observability.NewMetrics())

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	// 2 counties x 3 months (June-August 2018).
	require.Len(t, result.Monthly, 6)
	assert.Equal(t, result.Monthly, persister.monthly)
	assert.Equal(t, result.Seasonal, persister.seasonal)

	byMonth := make(map[string]map[int]domain.CombinedMonthly)
	for _, row := range result.Monthly {
		if byMonth[row.CountyName] == nil {
			byMonth[row.CountyName] = make(map[int]domain.CombinedMonthly)
		}
		byMonth[row.CountyName][row.Month] = row
	}

	// Denver: 10 in July, 0 elsewhere; El Paso: 0 everywhere.
	assert.Equal(t, 10.0, byMonth["Denver"][7].PM25)
	assert.Equal(t, 0.0, byMonth["Denver"][6].PM25)
	assert.Equal(t, 0.0, byMonth["Denver"][8].PM25)
	for _, m := range []int{6, 7, 8} {
		assert.Equal(t, 0.0, byMonth["El Paso"][m].PM25, "El Paso month %d", m)
	}

	// Asthma joined through the differently-cased source names.
	require.NotNil(t, byMonth["Denver"][8].Rate)
	assert.Equal(t, 42.0, *byMonth["Denver"][8].Rate)
	require.NotNil(t, byMonth["El Paso"][7].Rate)
	assert.Equal(t, 38.0, *byMonth["El Paso"][7].Rate)

	// El Paso June/August have no asthma observation: nulls, rows kept.
	assert.Nil(t, byMonth["El Paso"][6].Rate)
	assert.Nil(t, byMonth["El Paso"][8].Rate)

	// Facility counts.
	require.NotNil(t, byMonth["Denver"][6].Facilities)
	assert.Equal(t, 2, *byMonth["Denver"][6].Facilities)
	require.NotNil(t, byMonth["El Paso"][6].Facilities)
	assert.Equal(t, 1, *byMonth["El Paso"][6].Facilities)

	// Seasonal rollup: one row per county-year, exposure summed over months 5-9.
	require.Len(t, result.Seasonal, 2)
	denver := result.Seasonal[0]
	assert.Equal(t, "Denver", denver.CountyName)
	assert.Equal(t, 10.0, denver.PM25)
	require.NotNil(t, denver.Visits)
	assert.Equal(t, 940.0, *denver.Visits)
	require.NotNil(t, denver.MeanRate)
	assert.InDelta(t, (40.0+45.0+42.0)/3, *denver.MeanRate, 1e-12)
}

func TestPipelineRun_CountValidationHalts(t *testing.T) {
	cfg := testConfig(t, 64)
	persister := &fakePersister{}
	p := New(cfg, persister, discardLogger(), observability.NewMetrics())

	_, err := p.Run(context.Background())
	require.Error(t, err)

	var cve *CountValidationError
	require.True(t, errors.As(err, &cve))
	assert.Equal(t, 64, cve.Want)
	assert.Equal(t, 2, cve.Got)

	// Nothing was joined or persisted.
	assert.Nil(t, persister.monthly)
	assert.Nil(t, persister.seasonal)
}

func TestPipelineRun_PersistErrorPropagates(t *testing.T) {
	cfg := testConfig(t, 2)
	persister := &fakePersister{err: errors.New("disk full")}
	p := New(cfg, persister, discardLogger(), observability.NewMetrics())

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPipelineRun_CancelledContext(t *testing.T) {
	cfg := testConfig(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(cfg, &fakePersister{}, discardLogger(), observability.NewMetrics()).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPipelineRun_MissingInputFile(t *testing.T) {
	cfg := testConfig(t, 2)
	cfg.Inputs.DailyExposure = filepath.Join(t.TempDir(), "missing.csv")

	_, err := New(cfg, &fakePersister{}, discardLogger(), observability.NewMetrics()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest daily exposure")
}
