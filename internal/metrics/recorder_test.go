package metrics

import (
	"testing"
	"time"
)

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveCompileDuration("javac", time.Millisecond, ResultSuccess)
	r.IncCompilerInvocation("javac", ResultFailure)
	r.IncUnitOutcome(UnitUpToDate)
	r.IncCycleResolution(ResultFailure, 3)
}
