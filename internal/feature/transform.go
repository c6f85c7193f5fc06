// Package feature derives the regression inputs from the persisted combined
// tables: a one-period lag of the asthma rate and log1p transforms of the
// right-skewed variables.
package feature

import (
	"math"

	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
)

// Row is one modeling observation. Monthly rows carry a 1-12 month; seasonal
// rows use month 0. Nil fields mark values missing at the source (join
// misses), which the design assembly later excludes.
type Row struct {
	CountyName string
	Year       int
	Month      int

	Exposure   float64
	Rate       *float64
	LagRate    *float64
	Facilities *float64

	LogExposure   float64
	LogRate       *float64
	LogLagRate    *float64
	LogFacilities *float64
}

// Log1p is the skew-reducing transform applied before regression:
// ln(x + 1), so a zero input maps to exactly zero.
func Log1p(x float64) float64 {
	return math.Log1p(x)
}

// MonthlyRows derives modeling rows from the combined monthly table. The
// input must keep its upstream order (county name, then year, then month):
// the lag is positional within each county's contiguous run and resets at
// county boundaries, so the last month of one county never bleeds into the
// first month of the next. The first row of each county gets a nil lag.
func MonthlyRows(monthly []domain.CombinedMonthly) []Row {
	out := make([]Row, 0, len(monthly))

	var prevCounty string
	var prevRate *float64
	for _, m := range monthly {
		if m.CountyName != prevCounty {
			prevRate = nil
			prevCounty = m.CountyName
		}

		row := Row{
			CountyName:  m.CountyName,
			Year:        m.Year,
			Month:       m.Month,
			Exposure:    m.PM25,
			Rate:        m.Rate,
			LagRate:     prevRate,
			LogExposure: Log1p(m.PM25),
		}
		if m.Rate != nil {
			row.LogRate = domain.Float64(Log1p(*m.Rate))
		}
		if prevRate != nil {
			row.LogLagRate = domain.Float64(Log1p(*prevRate))
		}
		if m.Facilities != nil {
			row.Facilities = domain.Float64(float64(*m.Facilities))
			row.LogFacilities = domain.Float64(Log1p(float64(*m.Facilities)))
		}

		out = append(out, row)
		prevRate = m.Rate
	}
	return out
}

// SeasonalRows derives modeling rows from the seasonal table, lagging the
// mean rate by one year within each county.
func SeasonalRows(seasonal []domain.Seasonal) []Row {
	out := make([]Row, 0, len(seasonal))

	var prevCounty string
	var prevRate *float64
	for _, s := range seasonal {
		if s.CountyName != prevCounty {
			prevRate = nil
			prevCounty = s.CountyName
		}

		row := Row{
			CountyName:  s.CountyName,
			Year:        s.Year,
			Exposure:    s.PM25,
			Rate:        s.MeanRate,
			LagRate:     prevRate,
			Facilities:  s.MeanFacilities,
			LogExposure: Log1p(s.PM25),
		}
		if s.MeanRate != nil {
			row.LogRate = domain.Float64(Log1p(*s.MeanRate))
		}
		if prevRate != nil {
			row.LogLagRate = domain.Float64(Log1p(*prevRate))
		}
		if s.MeanFacilities != nil {
			row.LogFacilities = domain.Float64(Log1p(*s.MeanFacilities))
		}

		out = append(out, row)
		prevRate = s.MeanRate
	}
	return out
}
