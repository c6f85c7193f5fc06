package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadDailyExposure(t *testing.T) {
	path := writeFile(t, "exposure.csv", `fips,date,pm25
08031,2018-08-15,12.5
08041,2018-08-16,0.7
`)

	rows, err := ReadDailyExposure(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "08031", rows[0].CountyFIPS)
	assert.Equal(t, time.Date(2018, 8, 15, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, 12.5, rows[0].PM25)
	assert.Equal(t, "08041", rows[1].CountyFIPS)
}

func TestReadDailyExposure_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing column", "fips,date\n08031,2018-08-15\n", `missing required column "pm25"`},
		{"bad date", "fips,date,pm25\n08031,15/08/2018,1\n", "row 2"},
		{"bad number", "fips,date,pm25\n08031,2018-08-15,abc\n", `invalid number "abc"`},
		{"negative pm25", "fips,date,pm25\n08031,2018-08-15,-1\n", "negative pm25"},
		{"empty fips", "fips,date,pm25\n,2018-08-15,1\n", "empty fips"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDailyExposure(writeFile(t, "exposure.csv", tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReadCounties(t *testing.T) {
	path := writeFile(t, "counties.geojson", `{
	  "type": "FeatureCollection",
	  "features": [
	    {
	      "type": "Feature",
	      "properties": {"GEOID": "08031", "STATEFP": "08", "NAME": "Denver"},
	      "geometry": {"type": "Polygon", "coordinates": [[[-105,39.6],[-104.6,39.6],[-104.6,39.9],[-105,39.9],[-105,39.6]]]}
	    },
	    {
	      "type": "Feature",
	      "properties": {"GEOID": "08041", "STATEFP": "08", "NAME": "EL PASO"},
	      "geometry": {"type": "Polygon", "coordinates": [[[-105,38.5],[-104.2,38.5],[-104.2,39.1],[-105,39.1],[-105,38.5]]]}
	    }
	  ]
	}`)

	counties, err := ReadCounties(path)
	require.NoError(t, err)
	require.Len(t, counties, 2)

	assert.Equal(t, "08031", counties[0].FIPS)
	assert.Equal(t, "08", counties[0].StateFIPS)
	assert.Equal(t, "Denver", counties[0].Name)
	assert.IsType(t, orb.Polygon{}, counties[0].Geometry)

	// Name normalization applies at ingestion.
	assert.Equal(t, "El Paso", counties[1].Name)
}

func TestReadCounties_MissingProperty(t *testing.T) {
	path := writeFile(t, "counties.geojson", `{
	  "type": "FeatureCollection",
	  "features": [
	    {"type": "Feature", "properties": {"GEOID": "08031"}, "geometry": {"type": "Point", "coordinates": [0,0]}}
	  ]
	}`)

	_, err := ReadCounties(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feature 0")
}

func TestReadAsthmaRates(t *testing.T) {
	path := writeFile(t, "asthma.csv", `county,year,month,rate,lower_ci,upper_ci,visits
Denver,2018,8,45.2,40.1,50.3,321
EL PASO COUNTY,2018,8,38.9,33.0,44.8,260
`)

	rates, err := ReadAsthmaRates(path)
	require.NoError(t, err)
	require.Len(t, rates, 2)

	assert.Equal(t, "Denver", rates[0].CountyName)
	assert.Equal(t, 2018, rates[0].Year)
	assert.Equal(t, 8, rates[0].Month)
	assert.Equal(t, 45.2, rates[0].Rate)
	assert.Equal(t, 40.1, rates[0].RateLower)
	assert.Equal(t, 50.3, rates[0].RateUpper)
	assert.Equal(t, 321.0, rates[0].Visits)

	// "EL PASO COUNTY" normalizes onto the boundary-file key.
	assert.Equal(t, "El Paso", rates[1].CountyName)
}

func TestReadAsthmaRates_InvalidMonth(t *testing.T) {
	path := writeFile(t, "asthma.csv", `county,year,month,rate,lower_ci,upper_ci,visits
Denver,2018,13,45.2,40.1,50.3,321
`)

	_, err := ReadAsthmaRates(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid month 13")
}

func TestReadFacilities(t *testing.T) {
	path := writeFile(t, "facilities.csv", `name,city,county
Saint Mary Hospital,Pueblo,PUEBLO
Front Range Clinic,Colorado Springs,EL PASO
Peak Vista Health Center,Colorado Springs,EL PASO
`)

	facilities, err := ReadFacilities(path)
	require.NoError(t, err)
	require.Len(t, facilities, 3)

	assert.Equal(t, "Pueblo", facilities[0].CountyName)
	assert.Equal(t, "El Paso", facilities[1].CountyName)
	assert.Equal(t, "Saint Mary Hospital", facilities[0].Name)
}
