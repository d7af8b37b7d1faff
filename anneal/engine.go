package anneal

import (
	"context"
	"math"

	"github.com/hupe1980/annealgo/rng"
	"github.com/hupe1980/annealgo/schedule"
)

// Options configures a single Run.
type Options struct {
	// Checkpoints lists the sweep indices after which the spin state is
	// reported, sorted ascending. Index -1 reports the state before any
	// sweep, which is how a checkpoint request lands on an empty schedule.
	// Repeated indices report the same state repeatedly.
	Checkpoints []int

	// OnCheckpoint receives the ordinal of the checkpoint and the live spin
	// slice. The callback must copy the spins if it retains them.
	OnCheckpoint func(checkpoint int, spins []int8)
}

// Stats reports what a Run did.
type Stats struct {
	// Sweeps is the number of completed sweeps.
	Sweeps int
	// Proposed counts flip proposals, one per variable per sweep.
	Proposed int64
	// Accepted counts accepted flips.
	Accepted int64
}

// Run anneals the state through the schedule, one Metropolis sweep per beta.
//
// Each sweep visits every variable in index order. A flip with a
// non-positive energy delta is always accepted and consumes no randomness; a
// flip with a positive delta consumes exactly one draw u and is accepted iff
// u < exp(-beta*delta). This draw discipline is part of the seeded-output
// contract: changing it changes every reproducible result.
//
// The context is checked between sweeps, never inside one, so cancellation
// cannot leave the state mid-sweep. On cancellation the state is valid but
// incomplete and the returned stats cover the completed sweeps.
func Run(ctx context.Context, st *State, stream *rng.Stream, sched schedule.Schedule, optFns ...func(o *Options)) (Stats, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	var stats Stats

	next := 0
	// Checkpoints at -1 capture the initialization state.
	for next < len(opts.Checkpoints) && opts.Checkpoints[next] < 0 {
		if opts.OnCheckpoint != nil {
			opts.OnCheckpoint(next, st.spins)
		}
		next++
	}

	for i, beta := range sched {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		proposed, accepted := sweep(st, stream, beta)
		stats.Sweeps++
		stats.Proposed += proposed
		stats.Accepted += accepted

		for next < len(opts.Checkpoints) && opts.Checkpoints[next] == i {
			if opts.OnCheckpoint != nil {
				opts.OnCheckpoint(next, st.spins)
			}
			next++
		}
	}

	return stats, nil
}

// sweep proposes one flip per variable in index order at inverse
// temperature beta.
func sweep(st *State, stream *rng.Stream, beta float64) (proposed, accepted int64) {
	for v := range st.spins {
		proposed++
		delta := -2 * float64(st.spins[v]) * st.fields[v]
		if delta > 0 {
			if stream.Float64() >= math.Exp(-beta*delta) {
				continue
			}
		}
		st.flip(v, delta)
		accepted++
	}
	return proposed, accepted
}

// CheckpointIndices spreads count checkpoints evenly over a run of sweeps,
// ending exactly at the final sweep: checkpoint c lands after sweep
// (c+1)*sweeps/count - 1.
//
// With zero sweeps every index is -1, so all checkpoints capture the
// initialization state.
func CheckpointIndices(count, sweeps int) []int {
	if count <= 0 {
		return nil
	}
	idx := make([]int, count)
	for c := range idx {
		idx[c] = (c+1)*sweeps/count - 1
	}
	return idx
}
