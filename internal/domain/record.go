package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// DailyExposure is one county-day smoke PM2.5 prediction from the upstream
// smoke model. The source is sparse: a row exists only for days on which the
// model detected smoke over the county. Absent (county, date) pairs mean a
// concentration of zero, not a missing value.
type DailyExposure struct {
	CountyFIPS string    // 5-digit county FIPS code, e.g. "08031"
	Date       time.Time // calendar day, UTC midnight
	PM25       float64   // predicted smoke PM2.5, µg/m³
}

// MonthlyExposure is the dense county-month sum of daily smoke PM2.5,
// including the implicit zeros for non-smoke days. Exactly one row exists per
// (county, year, month) across the date range covered by the source.
type MonthlyExposure struct {
	CountyFIPS string
	Year       int
	Month      int // 1-12
	PM25       float64
}

// County identifies one county from the boundary file. Name is the join key
// toward the asthma and facility sources, which carry no FIPS code.
type County struct {
	FIPS      string // 5-digit county FIPS
	StateFIPS string // 2-digit state FIPS
	Name      string // normalized county name, e.g. "El Paso"
	Geometry  orb.Geometry
}

// AsthmaRate is one county-month asthma hospitalization/ED-visit observation.
// Observations begin in 2011; there are no rows for earlier months.
type AsthmaRate struct {
	CountyName string // normalized county name
	Year       int
	Month      int
	Rate       float64 // visits per 100,000 population
	RateLower  float64 // lower 95% confidence bound
	RateUpper  float64 // upper 95% confidence bound
	Visits     float64 // visit count underlying the rate
}

// Facility is one registered health-facility address. Only the county name is
// used downstream; the remaining fields are carried for logging.
type Facility struct {
	Name       string
	City       string
	CountyName string // normalized county name
}

// CombinedMonthly is one county-month row of the joined analysis table.
// Exposure is always present (the exposure side drives the join); the asthma
// and facility fields are nil when no matching source row exists.
type CombinedMonthly struct {
	CountyFIPS string
	CountyName string
	Year       int
	Month      int
	PM25       float64
	Rate       *float64
	RateLower  *float64
	RateUpper  *float64
	Visits     *float64
	Facilities *int
	Geometry   orb.Geometry
}

// Seasonal is one county-year row aggregated over the fire-season months.
// Flow quantities (exposure, visits) are summed; level quantities (rate,
// confidence bounds, facility count) are averaged. Nil inputs are ignored,
// and a field is nil only when every monthly input was nil.
type Seasonal struct {
	CountyFIPS     string
	CountyName     string
	Year           int
	PM25           float64
	MeanRate       *float64
	MeanRateLower  *float64
	MeanRateUpper  *float64
	Visits         *float64
	MeanFacilities *float64
}

// Float64 returns a pointer to v. Convenience for building nullable fields.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
