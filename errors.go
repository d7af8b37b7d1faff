package annealgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/annealgo/ising"
	"github.com/hupe1980/annealgo/schedule"
)

var (
	// ErrInvalidSeed is returned when the seed is zero. Every run must name
	// a positive seed so results are reproducible on purpose, not by luck.
	ErrInvalidSeed = errors.New("seed must be positive")

	// ErrInvalidSampleCount is returned when a negative sample count is requested.
	ErrInvalidSampleCount = errors.New("sample count must be non-negative")

	// ErrInvalidCheckpointCount is returned when a negative checkpoint count is requested.
	ErrInvalidCheckpointCount = errors.New("checkpoint count must be non-negative")

	// ErrInvalidSchedule is returned when a schedule fails validation.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrMalformedProblem is returned when the problem graph cannot be built.
	ErrMalformedProblem = errors.New("malformed problem")
)

// CheckpointRangeError indicates an explicit checkpoint index outside the
// sweep range of the schedule.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type CheckpointRangeError struct {
	Index  int
	Sweeps int
	cause  error
}

func (e *CheckpointRangeError) Error() string {
	return fmt.Sprintf("checkpoint index %d out of range: schedule has %d sweeps", e.Index, e.Sweeps)
}

func (e *CheckpointRangeError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Schedule normalization.
	var ib *schedule.InvalidBetaError
	if errors.As(err, &ib) {
		return fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}

	// Problem shape normalization.
	if errors.Is(err, ising.ErrCouplerLengthMismatch) {
		return fmt.Errorf("%w: %w", ErrMalformedProblem, err)
	}
	var cr *ising.CouplerRangeError
	if errors.As(err, &cr) {
		return fmt.Errorf("%w: %w", ErrMalformedProblem, err)
	}

	return err
}
