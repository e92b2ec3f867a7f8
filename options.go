package cohortvalidator

import (
	"runtime"

	"go.uber.org/zap"
)

// Option configures validation behavior.
type Option func(*Options)

// Options holds all configuration for the validation engine.
type Options struct {
	// Logger receives diagnostics. Defaults to a no-op logger; the library
	// never writes to stderr on its own.
	Logger *zap.Logger

	// MaxIssues stops a cohort validation pass after this many issues.
	// Use 0 for unlimited.
	MaxIssues int

	// WorkerCount bounds parallel batch validation.
	WorkerCount int

	// CollectMetrics enables the engine's atomic counters.
	CollectMetrics bool

	// FreshEntryIDs controls whether entries for phenotypes without an id
	// get a generated UUID. Disabled mainly for deterministic tests.
	FreshEntryIDs bool
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		Logger:         zap.NewNop(),
		MaxIssues:      0, // unlimited
		WorkerCount:    runtime.NumCPU(),
		CollectMetrics: true,
		FreshEntryIDs:  true,
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithMaxIssues sets the maximum number of issues before a cohort
// validation pass stops early. Use 0 for unlimited.
func WithMaxIssues(max int) Option {
	return func(o *Options) {
		o.MaxIssues = max
	}
}

// WithWorkerCount sets the number of workers for batch validation.
// Defaults to runtime.NumCPU().
func WithWorkerCount(count int) Option {
	return func(o *Options) {
		if count > 0 {
			o.WorkerCount = count
		}
	}
}

// WithMetrics enables or disables metrics collection.
func WithMetrics(enable bool) Option {
	return func(o *Options) {
		o.CollectMetrics = enable
	}
}

// WithFreshEntryIDs controls UUID assignment for entries whose phenotype
// has no id of its own.
func WithFreshEntryIDs(enable bool) Option {
	return func(o *Options) {
		o.FreshEntryIDs = enable
	}
}
