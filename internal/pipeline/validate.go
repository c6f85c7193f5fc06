package pipeline

import (
	"fmt"

	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
)

// CountValidationError reports a post-filter county count that does not match
// the expected constant for the target state. Every downstream join assumes
// complete county coverage, so this halts the pipeline.
type CountValidationError struct {
	State string
	Want  int
	Got   int
}

func (e *CountValidationError) Error() string {
	return fmt.Sprintf("county count validation failed for %s: want %d counties, got %d", e.State, e.Want, e.Got)
}

// FilterState returns the counties whose state FIPS matches stateFIPS.
func FilterState(counties []domain.County, stateFIPS string) []domain.County {
	out := make([]domain.County, 0, len(counties))
	for _, c := range counties {
		if c.StateFIPS == stateFIPS {
			out = append(out, c)
		}
	}
	return out
}

// ValidateCountyCount checks that the filtered county set has exactly the
// expected number of distinct counties (64 for Colorado, 58 for California).
func ValidateCountyCount(counties []domain.County, state string, want int) error {
	distinct := make(map[string]bool, len(counties))
	for _, c := range counties {
		distinct[c.FIPS] = true
	}
	if got := len(distinct); got != want {
		return &CountValidationError{State: state, Want: want, Got: got}
	}
	return nil
}
