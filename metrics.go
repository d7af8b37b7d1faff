package annealgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    batchCounter   prometheus.Counter
//	    sweepHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordBatch(samples, sweeps int, duration time.Duration, err error) {
//	    p.batchCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordBatch is called after each sampling run.
	// samples is the number of samples requested, sweeps the schedule length,
	// duration the total time taken, and err is nil if successful. Streamed
	// runs report the samples actually yielded.
	RecordBatch(samples, sweeps int, duration time.Duration, err error)

	// RecordSample is called after each completed sample within a run.
	// proposed and accepted count flip proposals and accepted flips,
	// duration is the time spent annealing this sample.
	RecordSample(proposed, accepted int64, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBatch(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSample(int64, int64, time.Duration)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BatchCount       atomic.Int64
	BatchErrors      atomic.Int64
	BatchTotalNanos  atomic.Int64
	SampleCount      atomic.Int64
	SampleTotalNanos atomic.Int64
	SweepCount       atomic.Int64
	FlipsProposed    atomic.Int64
	FlipsAccepted    atomic.Int64
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(samples, sweeps int, duration time.Duration, err error) {
	b.BatchCount.Add(1)
	b.BatchTotalNanos.Add(duration.Nanoseconds())
	b.SweepCount.Add(int64(samples) * int64(sweeps))
	if err != nil {
		b.BatchErrors.Add(1)
	}
}

// RecordSample implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSample(proposed, accepted int64, duration time.Duration) {
	b.SampleCount.Add(1)
	b.SampleTotalNanos.Add(duration.Nanoseconds())
	b.FlipsProposed.Add(proposed)
	b.FlipsAccepted.Add(accepted)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BatchCount:     b.BatchCount.Load(),
		BatchErrors:    b.BatchErrors.Load(),
		BatchAvgNanos:  b.getAvgBatchNanos(),
		SampleCount:    b.SampleCount.Load(),
		SampleAvgNanos: b.getAvgSampleNanos(),
		SweepCount:     b.SweepCount.Load(),
		FlipsProposed:  b.FlipsProposed.Load(),
		FlipsAccepted:  b.FlipsAccepted.Load(),
		AcceptanceRate: b.getAcceptanceRate(),
	}
}

func (b *BasicMetricsCollector) getAvgBatchNanos() int64 {
	count := b.BatchCount.Load()
	if count == 0 {
		return 0
	}
	return b.BatchTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgSampleNanos() int64 {
	count := b.SampleCount.Load()
	if count == 0 {
		return 0
	}
	return b.SampleTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAcceptanceRate() float64 {
	proposed := b.FlipsProposed.Load()
	if proposed == 0 {
		return 0
	}
	return float64(b.FlipsAccepted.Load()) / float64(proposed)
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BatchCount     int64
	BatchErrors    int64
	BatchAvgNanos  int64
	SampleCount    int64
	SampleAvgNanos int64
	SweepCount     int64
	FlipsProposed  int64
	FlipsAccepted  int64
	AcceptanceRate float64
}
