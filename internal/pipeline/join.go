package pipeline

import (
	"fmt"
	"sort"

	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
)

// rateKey is the asthma-side join key. The asthma source has no FIPS code,
// so the join runs on normalized county name plus calendar month.
type rateKey struct {
	Name  string
	Year  int
	Month int
}

// JoinStats summarizes join quality for logging and metrics.
type JoinStats struct {
	AsthmaMisses   int // exposure rows with no matching asthma observation
	FacilityMisses int // exposure rows with no facility count

	// UnmatchedCounties lists counties whose name matches no asthma row at
	// all, in any month. A non-empty list is a data-quality signal: either a
	// normalization gap or a county the health department never reports.
	UnmatchedCounties []string
}

// FilterRatesFrom drops asthma observations earlier than startYear, the first
// year the series is considered reliable. Exposure months before the window
// keep their rows and simply join to nothing. A non-positive startYear keeps
// everything.
func FilterRatesFrom(rates []domain.AsthmaRate, startYear int) (kept []domain.AsthmaRate, dropped int) {
	if startYear <= 0 {
		return rates, 0
	}
	kept = rates[:0]
	for _, r := range rates {
		if r.Year < startYear {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

// JoinMonthly left-joins the asthma observations and facility counts onto the
// dense monthly exposure table. Every exposure row survives; asthma and
// facility fields are nil where no match exists. The result is ordered by
// (county name, year, month), which downstream lag derivation relies on.
func JoinMonthly(
	monthly []domain.MonthlyExposure,
	counties []domain.County,
	rates []domain.AsthmaRate,
	facilityCounts map[string]int,
) ([]domain.CombinedMonthly, JoinStats, error) {
	byFIPS := make(map[string]domain.County, len(counties))
	for _, c := range counties {
		byFIPS[c.FIPS] = c
	}

	byRateKey := make(map[rateKey]domain.AsthmaRate, len(rates))
	rateNames := make(map[string]bool)
	for _, r := range rates {
		byRateKey[rateKey{Name: r.CountyName, Year: r.Year, Month: r.Month}] = r
		rateNames[r.CountyName] = true
	}

	var stats JoinStats
	unmatched := make(map[string]bool)

	out := make([]domain.CombinedMonthly, 0, len(monthly))
	for _, m := range monthly {
		county, ok := byFIPS[m.CountyFIPS]
		if !ok {
			// The aggregator only emits counties from the boundary set, so a
			// miss here is a programming error, not bad data.
			return nil, JoinStats{}, fmt.Errorf("monthly exposure references unknown county FIPS %s", m.CountyFIPS)
		}

		row := domain.CombinedMonthly{
			CountyFIPS: m.CountyFIPS,
			CountyName: county.Name,
			Year:       m.Year,
			Month:      m.Month,
			PM25:       m.PM25,
			Geometry:   county.Geometry,
		}

		if r, ok := byRateKey[rateKey{Name: county.Name, Year: m.Year, Month: m.Month}]; ok {
			row.Rate = domain.Float64(r.Rate)
			row.RateLower = domain.Float64(r.RateLower)
			row.RateUpper = domain.Float64(r.RateUpper)
			row.Visits = domain.Float64(r.Visits)
		} else {
			stats.AsthmaMisses++
			if !rateNames[county.Name] {
				unmatched[county.Name] = true
			}
		}

		if n, ok := facilityCounts[county.Name]; ok {
			row.Facilities = domain.Int(n)
		} else {
			stats.FacilityMisses++
		}

		out = append(out, row)
	}

	for name := range unmatched {
		stats.UnmatchedCounties = append(stats.UnmatchedCounties, name)
	}
	sort.Strings(stats.UnmatchedCounties)

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CountyName != b.CountyName {
			return a.CountyName < b.CountyName
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})
	return out, stats, nil
}

// CountFacilities collapses the facility address list to one count per
// normalized county name.
func CountFacilities(facilities []domain.Facility) map[string]int {
	counts := make(map[string]int)
	for _, f := range facilities {
		counts[f.CountyName]++
	}
	return counts
}
