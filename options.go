package annealgo

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/annealgo/resource"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	maxConcurrency   int
	controller       *resource.Controller
}

// Option configures Sampler constructor behavior.
type Option func(*options)

// WithMaxConcurrency configures how many samples of a batch may anneal in
// parallel. Results are bit-identical regardless of the value because every
// sample owns an independent random stream.
//
// Values:
//   - 0 (default): runtime.NumCPU()
//   - 1: fully sequential
//   - n > 1: at most n samples in flight
func WithMaxConcurrency(n int) Option {
	return func(o *options) {
		o.maxConcurrency = n
	}
}

// WithResourceController attaches a shared resource controller.
//
// When set, each batch holds a background-worker slot for its duration and
// each in-flight sample reserves its scratch memory (spins and field cache),
// so several samplers in one process can share global limits. The sweep loop
// itself never blocks on the controller.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithMetricsCollector configures a metrics collector for monitoring runs.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &annealgo.BasicMetricsCollector{}
//	s, _ := annealgo.New(g, annealgo.WithMetricsCollector(metrics))
//	// ... run samples ...
//	stats := metrics.GetStats()
//	fmt.Printf("Batches: %d, acceptance rate: %.2f\n", stats.BatchCount, stats.AcceptanceRate)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for runs.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := annealgo.NewJSONLogger(slog.LevelInfo)
//	s, _ := annealgo.New(g, annealgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.maxConcurrency <= 0 {
		o.maxConcurrency = runtime.NumCPU()
	}
	return o
}
