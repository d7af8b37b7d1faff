// Package schedule defines annealing schedules: the sequence of inverse
// temperatures (beta values) applied sweep by sweep.
package schedule

import (
	"fmt"
	"math"
)

// InvalidBetaError reports a schedule entry that is not a positive, finite
// number.
type InvalidBetaError struct {
	// Index is the sweep position of the offending entry.
	Index int
	// Beta is the offending value.
	Beta float64
}

func (e *InvalidBetaError) Error() string {
	return fmt.Sprintf("invalid beta %v at sweep %d: must be positive and finite", e.Beta, e.Index)
}

// Schedule is a per-sweep sequence of inverse temperatures. Entry i is the
// beta applied during sweep i, so the schedule length is the sweep count.
// An empty schedule is valid and runs zero sweeps.
type Schedule []float64

// Linear returns n betas evenly spaced from start to end, both inclusive.
// For n == 1 the single entry is start. For n <= 0 the schedule is empty.
func Linear(start, end float64, n int) Schedule {
	if n <= 0 {
		return nil
	}
	s := make(Schedule, n)
	if n == 1 {
		s[0] = start
		return s
	}
	step := (end - start) / float64(n-1)
	for i := range s {
		s[i] = start + float64(i)*step
	}
	// Guard the final entry against accumulated rounding.
	s[n-1] = end
	return s
}

// Geometric returns n betas spaced evenly in log space from start to end,
// both inclusive. Both endpoints must be positive for the result to
// validate. For n == 1 the single entry is start. For n <= 0 the schedule
// is empty.
func Geometric(start, end float64, n int) Schedule {
	if n <= 0 {
		return nil
	}
	s := make(Schedule, n)
	if n == 1 {
		s[0] = start
		return s
	}
	ratio := math.Pow(end/start, 1/float64(n-1))
	beta := start
	for i := range s {
		s[i] = beta
		beta *= ratio
	}
	s[n-1] = end
	return s
}

// Sweeps returns the number of sweeps the schedule drives.
func (s Schedule) Sweeps() int {
	return len(s)
}

// Validate checks every entry and returns an *InvalidBetaError for the first
// entry that is not a positive, finite number.
func (s Schedule) Validate() error {
	for i, beta := range s {
		if math.IsNaN(beta) || math.IsInf(beta, 0) || beta <= 0 {
			return &InvalidBetaError{Index: i, Beta: beta}
		}
	}
	return nil
}
