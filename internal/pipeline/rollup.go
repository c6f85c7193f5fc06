package pipeline

import (
	"sort"

	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
)

// seasonKey groups combined monthly rows into county-years.
type seasonKey struct {
	FIPS string
	Year int
}

// seasonAcc accumulates the mixed per-field aggregation of one county-year.
type seasonAcc struct {
	name string

	pm25 float64

	visitsSum float64
	visitsN   int

	rateSum, rateN             float64
	lowerSum, lowerN           float64
	upperSum, upperN           float64
	facilitiesSum, facilitiesN float64
}

// SeasonalRollup filters the combined monthly table to the fire-season months
// and re-aggregates to one row per (county, year). The per-field policy is
// fixed: exposure and visit counts are flow quantities and are summed; rate,
// confidence bounds, and facility count are level quantities and are
// averaged. Nil inputs are ignored rather than propagated, so a field is nil
// only when every contributing month was nil.
func SeasonalRollup(monthly []domain.CombinedMonthly, season map[int]bool) []domain.Seasonal {
	accs := make(map[seasonKey]*seasonAcc)

	for _, m := range monthly {
		if !season[m.Month] {
			continue
		}

		k := seasonKey{FIPS: m.CountyFIPS, Year: m.Year}
		acc := accs[k]
		if acc == nil {
			acc = &seasonAcc{name: m.CountyName}
			accs[k] = acc
		}

		acc.pm25 += m.PM25
		if m.Visits != nil {
			acc.visitsSum += *m.Visits
			acc.visitsN++
		}
		if m.Rate != nil {
			acc.rateSum += *m.Rate
			acc.rateN++
		}
		if m.RateLower != nil {
			acc.lowerSum += *m.RateLower
			acc.lowerN++
		}
		if m.RateUpper != nil {
			acc.upperSum += *m.RateUpper
			acc.upperN++
		}
		if m.Facilities != nil {
			acc.facilitiesSum += float64(*m.Facilities)
			acc.facilitiesN++
		}
	}

	out := make([]domain.Seasonal, 0, len(accs))
	for k, acc := range accs {
		s := domain.Seasonal{
			CountyFIPS:     k.FIPS,
			CountyName:     acc.name,
			Year:           k.Year,
			PM25:           acc.pm25,
			MeanRate:       mean(acc.rateSum, acc.rateN),
			MeanRateLower:  mean(acc.lowerSum, acc.lowerN),
			MeanRateUpper:  mean(acc.upperSum, acc.upperN),
			MeanFacilities: mean(acc.facilitiesSum, acc.facilitiesN),
		}
		if acc.visitsN > 0 {
			s.Visits = domain.Float64(acc.visitsSum)
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CountyName != b.CountyName {
			return a.CountyName < b.CountyName
		}
		return a.Year < b.Year
	})
	return out
}

func mean(sum, n float64) *float64 {
	if n == 0 {
		return nil
	}
	return domain.Float64(sum / n)
}
