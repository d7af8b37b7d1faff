// Package annealgo provides an embedded simulated-annealing sampler.
//
// This file implements a fluent request API for running Sampler instances.
package annealgo

import (
	"context"
	"iter"

	"github.com/hupe1980/annealgo/sampleset"
	"github.com/hupe1980/annealgo/schedule"
)

// Anneal creates a new fluent run builder for the given schedule.
//
// Example:
//
//	set, err := s.Anneal(schedule.Linear(0.1, 3, 1000)).
//	    Samples(100).
//	    Seed(42).
//	    Execute(ctx)
//
//	// Or with streaming:
//	for sample, err := range s.Anneal(sched).Samples(100).Seed(42).Stream(ctx) {
//	    if err != nil { break }
//	    if sample.Energy < target { break }
//	    process(sample)
//	}
func (s *Sampler) Anneal(sched schedule.Schedule) *AnnealBuilder {
	return &AnnealBuilder{
		sampler: s,
		sched:   sched,
		samples: 1, // Default sample count
	}
}

// AnnealBuilder is a fluent builder for constructing sampling runs.
type AnnealBuilder struct {
	sampler *Sampler
	sched   schedule.Schedule
	samples int
	seed    uint64

	// Checkpoints
	numCheckpoints    int
	checkpointIndices []int

	// Options
	maxConcurrency int
}

// Samples sets the number of independent samples to draw.
func (ab *AnnealBuilder) Samples(n int) *AnnealBuilder {
	ab.samples = n
	return ab
}

// Seed sets the batch seed. Required; must be positive.
func (ab *AnnealBuilder) Seed(seed uint64) *AnnealBuilder {
	ab.seed = seed
	return ab
}

// Checkpoints spreads n intermediate snapshots evenly over the schedule.
func (ab *AnnealBuilder) Checkpoints(n int) *AnnealBuilder {
	ab.numCheckpoints = n
	return ab
}

// CheckpointIndices requests snapshots after explicit sweep indices,
// each in [0, sweeps). Overrides Checkpoints.
func (ab *AnnealBuilder) CheckpointIndices(indices ...int) *AnnealBuilder {
	ab.checkpointIndices = indices
	return ab
}

// MaxConcurrency overrides the sampler-level concurrency for this run.
func (ab *AnnealBuilder) MaxConcurrency(n int) *AnnealBuilder {
	ab.maxConcurrency = n
	return ab
}

// Execute runs the batch and returns the sample set.
func (ab *AnnealBuilder) Execute(ctx context.Context) (*sampleset.SampleSet, error) {
	return ab.sampler.Sample(ctx, ab.sched, ab.applyTo)
}

// MustExecute runs the batch, panicking on error.
// Use this only in tests or when you're certain the parameters are valid.
func (ab *AnnealBuilder) MustExecute(ctx context.Context) *sampleset.SampleSet {
	set, err := ab.Execute(ctx)
	if err != nil {
		panic(err)
	}
	return set
}

// Stream returns an iterator over samples for memory-efficient processing.
// Samples are computed sequentially and yielded as they complete, in the
// same order and with the same values as the rows of Execute. The iterator
// supports early termination by breaking from the loop.
//
// Example:
//
//	for sample, err := range s.Anneal(sched).Samples(1000).Seed(7).Stream(ctx) {
//	    if err != nil { break }
//	    if sample.Energy <= target { break } // Early termination
//	    process(sample)
//	}
func (ab *AnnealBuilder) Stream(ctx context.Context) iter.Seq2[StreamedSample, error] {
	return ab.sampler.SampleStream(ctx, ab.sched, ab.applyTo)
}

// Lowest runs the batch and returns only the rows within tolerance of the
// minimum energy found.
func (ab *AnnealBuilder) Lowest(ctx context.Context) (*sampleset.SampleSet, error) {
	set, err := ab.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return set.Lowest(), nil
}

// applyTo copies the builder state onto the run options.
func (ab *AnnealBuilder) applyTo(o *SampleOptions) {
	o.NumSamples = ab.samples
	o.Seed = ab.seed
	o.NumCheckpoints = ab.numCheckpoints
	o.CheckpointIndices = ab.checkpointIndices
	o.MaxConcurrency = ab.maxConcurrency
}
