// Package annealgo provides an embedded simulated-annealing sampler.
//
// This file implements input-specific fluent builder APIs for creating and configuring Sampler instances.
// Builders are immutable - each method returns a new builder with the updated configuration.
package annealgo

import (
	"github.com/hupe1980/annealgo/ising"
	"github.com/hupe1980/annealgo/resource"
)

// =============================================================================
// Ising Builder (Immutable)
// =============================================================================

// Ising creates a new sampler builder from an Ising problem: linear biases h
// and coupler triples (starts[i], ends[i], weights[i]).
//
// The builder is immutable - each method returns a new builder with the updated configuration.
// This ensures thread-safety and prevents accidental state sharing.
//
// Example:
//
//	s, err := annealgo.Ising(h, starts, ends, weights).
//	    MaxConcurrency(8).
//	    Logger(annealgo.NewTextLogger(slog.LevelInfo)).
//	    Build()
func Ising(h []float64, starts, ends []int, weights []float64) IsingBuilder {
	return IsingBuilder{
		h:       h,
		starts:  starts,
		ends:    ends,
		weights: weights,
	}
}

// IsingBuilder is an immutable fluent builder for creating Ising-based Sampler instances.
// Each method returns a new builder with the updated configuration.
type IsingBuilder struct {
	h       []float64
	starts  []int
	ends    []int
	weights []float64

	maxConcurrency int
	logger         *Logger
	metrics        MetricsCollector
	controller     *resource.Controller
}

// MaxConcurrency sets how many samples of a batch may anneal in parallel.
// Default: runtime.NumCPU(). Results are identical at any value.
func (b IsingBuilder) MaxConcurrency(n int) IsingBuilder {
	b.maxConcurrency = n
	return b
}

// Logger sets the structured logger for run tracing.
func (b IsingBuilder) Logger(l *Logger) IsingBuilder {
	b.logger = l
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b IsingBuilder) Metrics(mc MetricsCollector) IsingBuilder {
	b.metrics = mc
	return b
}

// ResourceController attaches a shared resource controller for global
// worker and memory limits.
func (b IsingBuilder) ResourceController(rc *resource.Controller) IsingBuilder {
	b.controller = rc
	return b
}

// Build validates the problem and creates the Sampler.
func (b IsingBuilder) Build() (*Sampler, error) {
	g, err := ising.NewGraph(b.h, b.starts, b.ends, b.weights)
	if err != nil {
		return nil, translateError(err)
	}
	return New(g, b.samplerOptions()...)
}

// MustBuild creates the Sampler, panicking on error.
func (b IsingBuilder) MustBuild() *Sampler {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func (b IsingBuilder) samplerOptions() []Option {
	var opts []Option
	if b.maxConcurrency > 0 {
		opts = append(opts, WithMaxConcurrency(b.maxConcurrency))
	}
	if b.logger != nil {
		opts = append(opts, WithLogger(b.logger))
	}
	if b.metrics != nil {
		opts = append(opts, WithMetricsCollector(b.metrics))
	}
	if b.controller != nil {
		opts = append(opts, WithResourceController(b.controller))
	}
	return opts
}

// =============================================================================
// QUBO Builder (Immutable)
// =============================================================================

// QUBO creates a new sampler builder from a QUBO problem over binary
// variables. The problem is transformed to spin form on Build; reported
// energies equal the binary objective because the transform's constant is
// folded into the graph offset.
//
// The builder is immutable - each method returns a new builder with the updated configuration.
//
// Example:
//
//	s, err := annealgo.QUBO(ising.QUBO{
//	    {0, 0}: -1,
//	    {1, 1}: -1,
//	    {0, 1}: 2,
//	}).Build()
func QUBO(q ising.QUBO) QUBOBuilder {
	return QUBOBuilder{q: q}
}

// QUBOBuilder is an immutable fluent builder for creating QUBO-based Sampler instances.
// Each method returns a new builder with the updated configuration.
type QUBOBuilder struct {
	q ising.QUBO

	maxConcurrency int
	logger         *Logger
	metrics        MetricsCollector
	controller     *resource.Controller
}

// MaxConcurrency sets how many samples of a batch may anneal in parallel.
// Default: runtime.NumCPU(). Results are identical at any value.
func (b QUBOBuilder) MaxConcurrency(n int) QUBOBuilder {
	b.maxConcurrency = n
	return b
}

// Logger sets the structured logger for run tracing.
func (b QUBOBuilder) Logger(l *Logger) QUBOBuilder {
	b.logger = l
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b QUBOBuilder) Metrics(mc MetricsCollector) QUBOBuilder {
	b.metrics = mc
	return b
}

// ResourceController attaches a shared resource controller for global
// worker and memory limits.
func (b QUBOBuilder) ResourceController(rc *resource.Controller) QUBOBuilder {
	b.controller = rc
	return b
}

// Build transforms the QUBO and creates the Sampler.
func (b QUBOBuilder) Build() (*Sampler, error) {
	g, err := ising.FromQUBO(b.q)
	if err != nil {
		return nil, translateError(err)
	}

	var opts []Option
	if b.maxConcurrency > 0 {
		opts = append(opts, WithMaxConcurrency(b.maxConcurrency))
	}
	if b.logger != nil {
		opts = append(opts, WithLogger(b.logger))
	}
	if b.metrics != nil {
		opts = append(opts, WithMetricsCollector(b.metrics))
	}
	if b.controller != nil {
		opts = append(opts, WithResourceController(b.controller))
	}
	return New(g, opts...)
}

// MustBuild creates the Sampler, panicking on error.
func (b QUBOBuilder) MustBuild() *Sampler {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
