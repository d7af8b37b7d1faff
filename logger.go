package annealgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with annealgo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithSeed adds a seed field to the logger (useful for tagging runs).
func (l *Logger) WithSeed(seed uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("seed", seed),
	}
}

// WithSamples adds a sample count field to the logger.
func (l *Logger) WithSamples(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("samples", n),
	}
}

// WithSweeps adds a sweep count field to the logger.
func (l *Logger) WithSweeps(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("sweeps", n),
	}
}

// WithVars adds a variable count field to the logger.
func (l *Logger) WithVars(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("vars", n),
	}
}

// LogBatch logs a batch sampling run.
func (l *Logger) LogBatch(ctx context.Context, samples, sweeps int, seed uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "sampling failed",
			"samples", samples,
			"sweeps", sweeps,
			"seed", seed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "sampling completed",
			"samples", samples,
			"sweeps", sweeps,
			"seed", seed,
		)
	}
}

// LogSample logs the completion of one sample within a batch.
func (l *Logger) LogSample(ctx context.Context, index int, energy float64, accepted int64) {
	l.DebugContext(ctx, "sample completed",
		"index", index,
		"energy", energy,
		"accepted_flips", accepted,
	)
}

// LogStream logs a streaming run.
func (l *Logger) LogStream(ctx context.Context, yielded int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "streaming failed",
			"yielded", yielded,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "streaming completed",
			"yielded", yielded,
		)
	}
}
