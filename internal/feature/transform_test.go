package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
)

func TestLog1p(t *testing.T) {
	assert.Equal(t, 0.0, Log1p(0))
	assert.InDelta(t, math.Log(2), Log1p(1), 1e-15)
	assert.InDelta(t, math.Log(11.5), Log1p(10.5), 1e-15)
}

func TestMonthlyRows_LagWithinCounty(t *testing.T) {
	monthly := []domain.CombinedMonthly{
		{CountyName: "Denver", Year: 2018, Month: 6, PM25: 1, Rate: domain.Float64(40)},
		{CountyName: "Denver", Year: 2018, Month: 7, PM25: 10, Rate: domain.Float64(45)},
		{CountyName: "Denver", Year: 2018, Month: 8, PM25: 0, Rate: nil},
		{CountyName: "Denver", Year: 2018, Month: 9, PM25: 2, Rate: domain.Float64(42)},
		{CountyName: "El Paso", Year: 2018, Month: 6, PM25: 3, Rate: domain.Float64(38)},
	}

	rows := MonthlyRows(monthly)
	require.Len(t, rows, 5)

	// First row of the table has no prior row.
	assert.Nil(t, rows[0].LagRate)

	// Lag equals the previous row's rate.
	require.NotNil(t, rows[1].LagRate)
	assert.Equal(t, 40.0, *rows[1].LagRate)

	// Previous row's nil rate lags forward as nil.
	require.NotNil(t, rows[2].LagRate)
	assert.Equal(t, 45.0, *rows[2].LagRate)
	assert.Nil(t, rows[3].LagRate)

	// Lag resets at the county boundary: El Paso's first row must not see
	// Denver's September rate.
	assert.Nil(t, rows[4].LagRate)
}

func TestMonthlyRows_LogTransforms(t *testing.T) {
	monthly := []domain.CombinedMonthly{
		{CountyName: "Denver", Year: 2018, Month: 7, PM25: 10, Rate: domain.Float64(45), Facilities: domain.Int(42)},
		{CountyName: "Denver", Year: 2018, Month: 8, PM25: 0, Rate: nil, Facilities: nil},
	}

	rows := MonthlyRows(monthly)
	require.Len(t, rows, 2)

	assert.InDelta(t, math.Log1p(10), rows[0].LogExposure, 1e-15)
	require.NotNil(t, rows[0].LogRate)
	assert.InDelta(t, math.Log1p(45), *rows[0].LogRate, 1e-15)
	require.NotNil(t, rows[0].LogFacilities)
	assert.InDelta(t, math.Log1p(42), *rows[0].LogFacilities, 1e-15)
	require.NotNil(t, rows[0].Facilities)
	assert.Equal(t, 42.0, *rows[0].Facilities)

	// Zero exposure transforms to exactly zero.
	assert.Equal(t, 0.0, rows[1].LogExposure)
	// Missing inputs stay missing through the transform.
	assert.Nil(t, rows[1].LogRate)
	assert.Nil(t, rows[1].LogFacilities)
	// Lagged log of the July rate.
	require.NotNil(t, rows[1].LogLagRate)
	assert.InDelta(t, math.Log1p(45), *rows[1].LogLagRate, 1e-15)
}

func TestSeasonalRows_LagByYear(t *testing.T) {
	seasonal := []domain.Seasonal{
		{CountyName: "Denver", Year: 2018, PM25: 10, MeanRate: domain.Float64(44), MeanFacilities: domain.Float64(42)},
		{CountyName: "Denver", Year: 2019, PM25: 6, MeanRate: domain.Float64(41)},
		{CountyName: "El Paso", Year: 2018, PM25: 2, MeanRate: domain.Float64(38)},
	}

	rows := SeasonalRows(seasonal)
	require.Len(t, rows, 3)

	assert.Equal(t, 0, rows[0].Month)
	assert.Nil(t, rows[0].LagRate)

	require.NotNil(t, rows[1].LagRate)
	assert.Equal(t, 44.0, *rows[1].LagRate)
	require.NotNil(t, rows[1].LogLagRate)
	assert.InDelta(t, math.Log1p(44), *rows[1].LogLagRate, 1e-15)

	// County boundary reset.
	assert.Nil(t, rows[2].LagRate)

	require.NotNil(t, rows[0].LogFacilities)
	assert.InDelta(t, math.Log1p(42), *rows[0].LogFacilities, 1e-15)
	assert.Nil(t, rows[1].LogFacilities)
}
