package metrics

import "time"

// ResultLabel enumerates compiler and cycle result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailure ResultLabel = "failure"
	ResultTimeout ResultLabel = "timeout"
)

// UnitOutcomeLabel enumerates what a session did with one build unit.
type UnitOutcomeLabel string

const (
	UnitExecuted UnitOutcomeLabel = "executed"
	UnitUpToDate UnitOutcomeLabel = "up_to_date"
	UnitFailed   UnitOutcomeLabel = "failed"
)

// Recorder defines observability hooks for compiler and engine metrics. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe for nil receivers
// when using the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveCompileDuration(compiler string, d time.Duration, result ResultLabel)
	IncCompilerInvocation(compiler string, result ResultLabel)
	IncUnitOutcome(outcome UnitOutcomeLabel)
	IncCycleResolution(result ResultLabel, members int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCompileDuration(string, time.Duration, ResultLabel) {}
func (NoopRecorder) IncCompilerInvocation(string, ResultLabel)                 {}
func (NoopRecorder) IncUnitOutcome(UnitOutcomeLabel)                           {}
func (NoopRecorder) IncCycleResolution(ResultLabel, int)                       {}
