package annealgo

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/hupe1980/annealgo/anneal"
	"github.com/hupe1980/annealgo/ising"
	"github.com/hupe1980/annealgo/resource"
	"github.com/hupe1980/annealgo/rng"
	"github.com/hupe1980/annealgo/sampleset"
	"github.com/hupe1980/annealgo/schedule"
	"golang.org/x/sync/errgroup"
)

// Sampler draws low-energy samples from a fixed problem graph.
//
// A Sampler is immutable and safe for concurrent use: every run derives its
// state from the call parameters, never from the Sampler itself.
type Sampler struct {
	graph          *ising.Graph
	logger         *Logger
	metrics        MetricsCollector
	maxConcurrency int
	controller     *resource.Controller
}

// New creates a Sampler for the given problem graph.
//
// Most callers use the Ising or QUBO builders instead; New is the plain
// constructor for a graph built elsewhere.
func New(g *ising.Graph, optFns ...Option) (*Sampler, error) {
	if g == nil {
		return nil, errors.New("graph must not be nil")
	}

	o := applyOptions(optFns)

	return &Sampler{
		graph:          g,
		logger:         o.logger,
		metrics:        o.metricsCollector,
		maxConcurrency: o.maxConcurrency,
		controller:     o.controller,
	}, nil
}

// Graph returns the problem graph the sampler was built for.
func (s *Sampler) Graph() *ising.Graph {
	return s.graph
}

// SampleOptions configures a single sampling run.
type SampleOptions struct {
	// NumSamples is the number of independent samples to draw. Zero is valid
	// and yields an empty set.
	NumSamples int

	// Seed is the batch seed. It must be positive; reproducibility is opt-in
	// by construction, never accidental.
	Seed uint64

	// NumCheckpoints spreads this many intermediate snapshots evenly over
	// the schedule (the last one coincides with the final sweep). Ignored
	// when CheckpointIndices is set.
	NumCheckpoints int

	// CheckpointIndices requests snapshots after explicit sweep indices,
	// each in [0, sweeps). The indices are sorted before use; duplicates
	// yield duplicate snapshots.
	CheckpointIndices []int

	// MaxConcurrency overrides the sampler-level concurrency for this run.
	// Zero keeps the sampler default.
	MaxConcurrency int
}

// DefaultSampleOptions holds the per-run defaults applied by Sample.
var DefaultSampleOptions = SampleOptions{
	NumSamples: 1,
}

// Sample runs the annealer and returns one spin row plus energy per sample.
//
// All parameters are validated before any sample executes; a run never
// returns partial output. The only mid-run failure is context cancellation,
// which fails the whole batch.
func (s *Sampler) Sample(ctx context.Context, sched schedule.Schedule, optFns ...func(o *SampleOptions)) (*sampleset.SampleSet, error) {
	opts := DefaultSampleOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	start := time.Now()
	set, err := s.run(ctx, sched, opts)
	duration := time.Since(start)

	s.metrics.RecordBatch(opts.NumSamples, sched.Sweeps(), duration, err)
	s.logger.LogBatch(ctx, opts.NumSamples, sched.Sweeps(), opts.Seed, err)

	if err != nil {
		return nil, translateError(err)
	}
	return set, nil
}

// StreamedSample is one result yielded by SampleStream.
//
// Unlike SampleSet row views, its slices are private copies and stay valid
// after the iteration advances.
type StreamedSample struct {
	// Index is the sample's position within the run. Index k here is
	// bit-identical to row k of the equivalent Sample call.
	Index  int
	Spins  []int8
	Energy float64
	// Intermediates holds one snapshot per requested checkpoint.
	Intermediates [][]int8
}

// SampleStream runs the annealer sequentially and yields each sample as soon
// as it completes. Breaking out of the loop stops the run; samples are never
// computed past the last yield.
//
// Validation failures and context cancellation are yielded as the error of
// the final pair.
func (s *Sampler) SampleStream(ctx context.Context, sched schedule.Schedule, optFns ...func(o *SampleOptions)) iter.Seq2[StreamedSample, error] {
	opts := DefaultSampleOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	return func(yield func(StreamedSample, error) bool) {
		start := time.Now()
		var yielded int
		var runErr error
		defer func() {
			s.metrics.RecordBatch(yielded, sched.Sweeps(), time.Since(start), runErr)
			s.logger.LogStream(ctx, yielded, runErr)
		}()

		checkpoints, err := s.validate(sched, opts)
		if err != nil {
			runErr = translateError(err)
			yield(StreamedSample{}, runErr)
			return
		}

		for k := 0; k < opts.NumSamples; k++ {
			out := StreamedSample{
				Index:         k,
				Spins:         make([]int8, s.graph.NumVars()),
				Intermediates: make([][]int8, len(checkpoints)),
			}
			for c := range out.Intermediates {
				out.Intermediates[c] = make([]int8, s.graph.NumVars())
			}

			if err := s.runSample(ctx, sched, opts.Seed, k, checkpoints, out.Spins, func(c int, spins []int8) {
				copy(out.Intermediates[c], spins)
			}, &out.Energy); err != nil {
				runErr = err
				yield(StreamedSample{}, err)
				return
			}

			yielded++
			if !yield(out, nil) {
				return
			}
		}
	}
}

// validate checks the run parameters and resolves the checkpoint plan.
func (s *Sampler) validate(sched schedule.Schedule, opts SampleOptions) ([]int, error) {
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	if opts.NumSamples < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSampleCount, opts.NumSamples)
	}
	if opts.Seed == 0 {
		return nil, ErrInvalidSeed
	}
	if opts.NumCheckpoints < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCheckpointCount, opts.NumCheckpoints)
	}

	sweeps := sched.Sweeps()
	if len(opts.CheckpointIndices) > 0 {
		idx := slices.Clone(opts.CheckpointIndices)
		slices.Sort(idx)
		for _, i := range idx {
			if i < 0 || i >= sweeps {
				return nil, &CheckpointRangeError{Index: i, Sweeps: sweeps}
			}
		}
		return idx, nil
	}
	return anneal.CheckpointIndices(opts.NumCheckpoints, sweeps), nil
}

func (s *Sampler) run(ctx context.Context, sched schedule.Schedule, opts SampleOptions) (*sampleset.SampleSet, error) {
	checkpoints, err := s.validate(sched, opts)
	if err != nil {
		return nil, err
	}

	numVars := s.graph.NumVars()
	set := sampleset.New(opts.NumSamples, numVars, len(checkpoints))
	if opts.NumSamples == 0 || numVars == 0 {
		return set, nil
	}

	if s.controller != nil {
		if err := s.controller.AcquireBackground(ctx); err != nil {
			return nil, err
		}
		defer s.controller.ReleaseBackground()
	}

	runOne := func(ctx context.Context, k int) error {
		var energy float64
		if err := s.runSample(ctx, sched, opts.Seed, k, checkpoints, set.Row(k), func(c int, spins []int8) {
			copy(set.Intermediate(k, c), spins)
		}, &energy); err != nil {
			return err
		}
		set.SetEnergy(k, energy)
		return nil
	}

	concurrency := opts.MaxConcurrency
	if concurrency <= 0 {
		concurrency = s.maxConcurrency
	}

	if concurrency <= 1 || opts.NumSamples == 1 {
		for k := 0; k < opts.NumSamples; k++ {
			if err := runOne(ctx, k); err != nil {
				return nil, err
			}
		}
		return set, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for k := 0; k < opts.NumSamples; k++ {
		g.Go(func() error {
			return runOne(gctx, k)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}

// runSample anneals sample k into row and reports its final energy.
//
// The sample derives its own stream from (seed, k), so the result does not
// depend on which worker runs it or when.
func (s *Sampler) runSample(ctx context.Context, sched schedule.Schedule, seed uint64, k int, checkpoints []int, row []int8, onCheckpoint func(c int, spins []int8), energy *float64) error {
	// Spin row plus float64 field cache.
	scratch := int64(s.graph.NumVars()) * 9
	if s.controller != nil {
		if err := s.controller.AcquireMemory(ctx, scratch); err != nil {
			return err
		}
		defer s.controller.ReleaseMemory(scratch)
	}

	start := time.Now()
	stream := rng.DeriveStream(seed, uint64(k))
	st := anneal.NewState(s.graph, stream)

	stats, err := anneal.Run(ctx, st, stream, sched, func(o *anneal.Options) {
		o.Checkpoints = checkpoints
		o.OnCheckpoint = onCheckpoint
	})
	if err != nil {
		return err
	}

	copy(row, st.Spins())
	*energy = st.Energy()

	s.metrics.RecordSample(stats.Proposed, stats.Accepted, time.Since(start))
	s.logger.LogSample(ctx, k, st.Energy(), stats.Accepted)
	return nil
}
