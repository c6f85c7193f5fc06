// Package regress assembles regression designs from the modeling rows and
// fits fixed-effects Poisson models via iteratively reweighted least squares.
package regress

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/couchcryptid/smoke-asthma-etl/internal/feature"
)

// Design is one assembled regression problem: a response vector and a design
// matrix of intercept, continuous predictors, and year fixed-effect dummies.
type Design struct {
	Model    string   // human-readable model name
	Response string   // response column name, for the report
	Terms    []string // column names of X, starting with (Intercept)
	Y        []float64
	X        *mat.Dense
	NObs     int
	Excluded int // rows dropped because a required field was nil

	// BaselineYear is the fixed-effect reference level absorbed into the
	// intercept.
	BaselineYear int
}

// MonthlyDesign builds model 1: log rate on log exposure and log facility
// count with year fixed effects, over the monthly rows.
func MonthlyDesign(rows []feature.Row) (*Design, error) {
	return assemble("monthly", "log_rate", rows, func(r feature.Row) *float64 {
		return r.LogRate
	})
}

// LaggedMonthlyDesign builds model 2: identical to model 1 but with the
// one-period lagged log rate as the response.
func LaggedMonthlyDesign(rows []feature.Row) (*Design, error) {
	return assemble("monthly_lagged", "log_lag_rate", rows, func(r feature.Row) *float64 {
		return r.LogLagRate
	})
}

// SeasonalDesign builds model 3: log rate on log exposure and log facility
// count with year fixed effects, over the fire-season rows.
func SeasonalDesign(rows []feature.Row) (*Design, error) {
	return assemble("seasonal", "log_rate", rows, func(r feature.Row) *float64 {
		return r.LogRate
	})
}

// assemble drops rows whose response or predictors are nil, then builds the
// dense design. The earliest year is the fixed-effect baseline; every later
// year gets a dummy column.
func assemble(model, response string, rows []feature.Row, resp func(feature.Row) *float64) (*Design, error) {
	type obs struct {
		y             float64
		logExposure   float64
		logFacilities float64
		year          int
	}

	var kept []obs
	years := make(map[int]bool)
	excluded := 0
	for _, r := range rows {
		y := resp(r)
		if y == nil || r.LogFacilities == nil {
			excluded++
			continue
		}
		kept = append(kept, obs{
			y:             *y,
			logExposure:   r.LogExposure,
			logFacilities: *r.LogFacilities,
			year:          r.Year,
		})
		years[r.Year] = true
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("model %s: no complete observations", model)
	}

	sorted := make([]int, 0, len(years))
	for y := range years {
		sorted = append(sorted, y)
	}
	sort.Ints(sorted)
	baseline, dummies := sorted[0], sorted[1:]

	terms := []string{"(Intercept)", "log_exposure", "log_facilities"}
	for _, y := range dummies {
		terms = append(terms, fmt.Sprintf("year=%d", y))
	}

	n, p := len(kept), len(terms)
	if n <= p {
		return nil, fmt.Errorf("model %s: %d observations for %d terms", model, n, p)
	}

	yv := make([]float64, n)
	x := mat.NewDense(n, p, nil)
	for i, o := range kept {
		yv[i] = o.y
		x.Set(i, 0, 1)
		x.Set(i, 1, o.logExposure)
		x.Set(i, 2, o.logFacilities)
		for j, year := range dummies {
			if o.year == year {
				x.Set(i, 3+j, 1)
			}
		}
	}
	return &Design{
		Model:        model,
		Response:     response,
		Terms:        terms,
		Y:            yv,
		X:            x,
		NObs:         n,
		Excluded:     excluded,
		BaselineYear: baseline,
	}, nil
}
