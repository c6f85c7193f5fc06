package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
)

// monthKey identifies one calendar month.
type monthKey struct {
	Year  int
	Month int
}

func (k monthKey) before(o monthKey) bool {
	return k.Year < o.Year || (k.Year == o.Year && k.Month < o.Month)
}

func (k monthKey) next() monthKey {
	if k.Month == 12 {
		return monthKey{Year: k.Year + 1, Month: 1}
	}
	return monthKey{Year: k.Year, Month: k.Month + 1}
}

// MonthlyAggregate collapses sparse daily exposure observations into a dense
// (county, year, month) sum table covering every listed county and every
// month spanned by the observations. A (county, day) pair absent from the
// input contributes exactly 0 to its monthly sum: the smoke model only emits
// rows for detected-smoke days.
//
// The dense county-by-day grid is never materialized; absence in the keyed
// sum map stands in for the zero days, which keeps peak memory proportional
// to the sparse input plus the dense monthly output.
func MonthlyAggregate(daily []domain.DailyExposure, counties []domain.County) ([]domain.MonthlyExposure, error) {
	if len(daily) == 0 {
		return nil, errors.New("no daily exposure observations")
	}
	if len(counties) == 0 {
		return nil, errors.New("no counties to aggregate")
	}

	known := make(map[string]bool, len(counties))
	for _, c := range counties {
		known[c.FIPS] = true
	}

	// Accumulate sparse sums and track the covered month range.
	sums := make(map[string]map[monthKey]float64, len(counties))
	var first, last monthKey
	haveRange := false

	for _, d := range daily {
		if !known[d.CountyFIPS] {
			// Observations for counties outside the target set (other
			// states) are out of scope for this run.
			continue
		}

		k := monthKey{Year: d.Date.Year(), Month: int(d.Date.Month())}
		if !haveRange {
			first, last = k, k
			haveRange = true
		} else {
			if k.before(first) {
				first = k
			}
			if last.before(k) {
				last = k
			}
		}

		m := sums[d.CountyFIPS]
		if m == nil {
			m = make(map[monthKey]float64)
			sums[d.CountyFIPS] = m
		}
		m[k] += d.PM25
	}

	if !haveRange {
		return nil, errors.New("no daily exposure observations for the selected counties")
	}

	out := make([]domain.MonthlyExposure, 0, len(counties)*monthSpan(first, last))
	for _, c := range counties {
		for k := first; !last.before(k); k = k.next() {
			out = append(out, domain.MonthlyExposure{
				CountyFIPS: c.FIPS,
				Year:       k.Year,
				Month:      k.Month,
				PM25:       sums[c.FIPS][k],
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CountyFIPS != b.CountyFIPS {
			return a.CountyFIPS < b.CountyFIPS
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})
	return out, nil
}

func monthSpan(first, last monthKey) int {
	return (last.Year-first.Year)*12 + last.Month - first.Month + 1
}

// DateRange returns the first and last observation dates of the sparse input,
// for logging the covered span.
func DateRange(daily []domain.DailyExposure) (time.Time, time.Time, error) {
	if len(daily) == 0 {
		return time.Time{}, time.Time{}, errors.New("no daily exposure observations")
	}
	first, last := daily[0].Date, daily[0].Date
	for _, d := range daily[1:] {
		if d.Date.Before(first) {
			first = d.Date
		}
		if d.Date.After(last) {
			last = d.Date
		}
	}
	return first, last, nil
}

// String implements a compact form for log attrs.
func (k monthKey) String() string { return fmt.Sprintf("%04d-%02d", k.Year, k.Month) }
