package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
)

func TestJoinMonthly(t *testing.T) {
	counties := []domain.County{
		county("08031", "08", "Denver"),
		county("08041", "08", "El Paso"),
	}
	monthly := []domain.MonthlyExposure{
		{CountyFIPS: "08031", Year: 2018, Month: 7, PM25: 10},
		{CountyFIPS: "08031", Year: 2018, Month: 8, PM25: 0},
		{CountyFIPS: "08041", Year: 2018, Month: 7, PM25: 3},
		{CountyFIPS: "08041", Year: 2018, Month: 8, PM25: 1},
	}
	rates := []domain.AsthmaRate{
		{CountyName: "Denver", Year: 2018, Month: 7, Rate: 45.2, RateLower: 40, RateUpper: 50, Visits: 321},
		{CountyName: "Denver", Year: 2018, Month: 8, Rate: 41.0, RateLower: 36, RateUpper: 46, Visits: 290},
		{CountyName: "El Paso", Year: 2018, Month: 7, Rate: 38.9, RateLower: 33, RateUpper: 45, Visits: 260},
	}
	facilityCounts := map[string]int{"Denver": 42}

	combined, stats, err := JoinMonthly(monthly, counties, rates, facilityCounts)
	require.NoError(t, err)

	// Left join: every exposure row survives.
	require.Len(t, combined, 4)

	// Sorted by (name, year, month): Denver 7, Denver 8, El Paso 7, El Paso 8.
	assert.Equal(t, "Denver", combined[0].CountyName)
	assert.Equal(t, 7, combined[0].Month)
	require.NotNil(t, combined[0].Rate)
	assert.Equal(t, 45.2, *combined[0].Rate)
	assert.Equal(t, 321.0, *combined[0].Visits)
	require.NotNil(t, combined[0].Facilities)
	assert.Equal(t, 42, *combined[0].Facilities)

	// El Paso August has exposure but no asthma match: nil fields, row kept.
	elPasoAug := combined[3]
	assert.Equal(t, "El Paso", elPasoAug.CountyName)
	assert.Equal(t, 8, elPasoAug.Month)
	assert.Equal(t, 1.0, elPasoAug.PM25)
	assert.Nil(t, elPasoAug.Rate)
	assert.Nil(t, elPasoAug.RateLower)
	assert.Nil(t, elPasoAug.RateUpper)
	assert.Nil(t, elPasoAug.Visits)

	// El Paso has no facility rows at all.
	assert.Nil(t, elPasoAug.Facilities)

	assert.Equal(t, 1, stats.AsthmaMisses)
	assert.Equal(t, 2, stats.FacilityMisses)
	// El Paso matched July, so it is not an unmatched county.
	assert.Empty(t, stats.UnmatchedCounties)
}

func TestJoinMonthly_UnmatchedCountyName(t *testing.T) {
	counties := []domain.County{county("08031", "08", "Denver")}
	monthly := []domain.MonthlyExposure{
		{CountyFIPS: "08031", Year: 2018, Month: 7, PM25: 10},
	}
	rates := []domain.AsthmaRate{
		// Name that matches nothing on the exposure side.
		{CountyName: "Adams", Year: 2018, Month: 7, Rate: 30},
	}

	_, stats, err := JoinMonthly(monthly, counties, rates, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Denver"}, stats.UnmatchedCounties)
	assert.Equal(t, 1, stats.AsthmaMisses)
}

func TestJoinMonthly_UnknownFIPS(t *testing.T) {
	monthly := []domain.MonthlyExposure{
		{CountyFIPS: "99999", Year: 2018, Month: 7, PM25: 1},
	}

	_, _, err := JoinMonthly(monthly, []domain.County{county("08031", "08", "Denver")}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown county FIPS 99999")
}

func TestCountFacilities(t *testing.T) {
	facilities := []domain.Facility{
		{Name: "A", CountyName: "El Paso"},
		{Name: "B", CountyName: "El Paso"},
		{Name: "C", CountyName: "Pueblo"},
	}

	counts := CountFacilities(facilities)
	assert.Equal(t, map[string]int{"El Paso": 2, "Pueblo": 1}, counts)
}

func TestCountFacilities_Empty(t *testing.T) {
	assert.Empty(t, CountFacilities(nil))
}

func TestFilterRatesFrom(t *testing.T) {
	rates := []domain.AsthmaRate{
		{CountyName: "Denver", Year: 2009, Month: 3},
		{CountyName: "Denver", Year: 2011, Month: 1},
		{CountyName: "Pueblo", Year: 2010, Month: 12},
		{CountyName: "Pueblo", Year: 2015, Month: 6},
	}

	kept, dropped := FilterRatesFrom(rates, 2011)
	require.Equal(t, 2, dropped)
	require.Len(t, kept, 2)
	assert.Equal(t, 2011, kept[0].Year)
	assert.Equal(t, 2015, kept[1].Year)
}

func TestFilterRatesFrom_Disabled(t *testing.T) {
	rates := []domain.AsthmaRate{{CountyName: "Denver", Year: 1999, Month: 1}}

	kept, dropped := FilterRatesFrom(rates, 0)
	assert.Zero(t, dropped)
	assert.Len(t, kept, 1)
}
