// Package analysis wires the tokenizer, reference extractor, dynamic
// resolver, DAG builder, anomaly detector, and cost-driver analyzer into a
// single orchestrated pipeline, per the engine's public entry point.
package analysis

import "log/slog"

// Options controls what the orchestrator computes and how.
type Options struct {
	// IncludeValues, if false, strips RawValue from output cells (it is
	// still used internally for flag computation and literal folding).
	IncludeValues bool

	// DetectAnomalies, if false, skips the anomaly pass entirely.
	DetectAnomalies bool

	// IdentifyCostDrivers, if false, skips the cost-driver pass entirely.
	IdentifyCostDrivers bool

	// TopDriversCount is K for the cost-driver pass. Clamped to [1, 500];
	// zero is treated as the default of 50.
	TopDriversCount int

	// FoldStringConcat enables constant-folding of "&"-chained string
	// literals inside INDIRECT's argument. Off by default.
	FoldStringConcat bool

	// Logger receives structured progress/diagnostic events. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger
}

// DefaultOptions returns the engine's default tunables.
func DefaultOptions() Options {
	return Options{
		IncludeValues:       true,
		DetectAnomalies:     true,
		IdentifyCostDrivers: true,
		TopDriversCount:     50,
	}
}

func (o Options) resolvedTopDrivers() int {
	k := o.TopDriversCount
	if k == 0 {
		k = 50
	}
	if k < 1 {
		k = 1
	}
	if k > 500 {
		k = 500
	}
	return k
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
