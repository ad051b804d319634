package instrument

import (
	"time"
)

// DefaultDisableFlag is the environment variable that turns every guard off.
const DefaultDisableFlag = "FLAKIME_DISABLE"

// Options configures the Engine.
type Options struct {
	// DisableFlag is the environment variable read by instrumented tests.
	// When it parses as true, no guard fires.
	DisableFlag string

	// OutputDir receives the instrumented sources, or the patches in dry-run mode.
	OutputDir string

	// ReportDir is where fired guards append their records at test runtime.
	// Defaults to OutputDir.
	ReportDir string

	// DisableReport omits the report append from synthesized guards.
	DisableReport bool

	// DryRun writes patches instead of instrumented sources.
	DryRun bool

	// VariableSuffix makes the injected local names unique.
	// Defaults to the Unix time of the run.
	VariableSuffix string

	// Metrics collects run counters. Nil disables collection.
	Metrics *Metrics

	// Clock returns the current time.
	Clock func() time.Time
}

// Option is a functional option for configuring the Engine.
type Option func(*Options)

// WithDisableFlag sets the disable-flag environment variable name.
// Empty names are ignored.
func WithDisableFlag(name string) Option {
	return func(o *Options) {
		if name != "" {
			o.DisableFlag = name
		}
	}
}

// WithOutputDir sets the directory receiving instrumented sources or patches.
func WithOutputDir(dir string) Option {
	return func(o *Options) {
		o.OutputDir = dir
	}
}

// WithReportDir sets the runtime report directory.
func WithReportDir(dir string) Option {
	return func(o *Options) {
		o.ReportDir = dir
	}
}

// WithReport enables or disables the runtime report append.
// Default: true (enabled).
func WithReport(enabled bool) Option {
	return func(o *Options) {
		o.DisableReport = !enabled
	}
}

// WithDryRun makes the engine write patches instead of sources.
func WithDryRun(enabled bool) Option {
	return func(o *Options) {
		o.DryRun = enabled
	}
}

// WithVariableSuffix sets the suffix of the injected local names.
func WithVariableSuffix(suffix string) Option {
	return func(o *Options) {
		o.VariableSuffix = suffix
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

// WithClock sets the time source.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		if clock != nil {
			o.Clock = clock
		}
	}
}

func applyDefaults(opts *Options) {
	if opts.DisableFlag == "" {
		opts.DisableFlag = DefaultDisableFlag
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.ReportDir == "" {
		opts.ReportDir = opts.OutputDir
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
}
