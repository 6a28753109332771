package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	compileDuration    *prom.HistogramVec
	compileInvocations *prom.CounterVec
	unitOutcomes       *prom.CounterVec
	cycleResolutions   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		compileDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "javabuild",
			Name:      "compile_duration_seconds",
			Help:      "Duration of individual compiler invocations",
			Buckets:   prom.DefBuckets,
		}, []string{"compiler", "result"}),
		compileInvocations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "javabuild",
			Name:      "compiler_invocations_total",
			Help:      "Compiler invocations by compiler and result",
		}, []string{"compiler", "result"}),
		unitOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "javabuild",
			Name:      "unit_outcomes_total",
			Help:      "Build units by session outcome",
		}, []string{"outcome"}),
		cycleResolutions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "javabuild",
			Name:      "cycle_resolutions_total",
			Help:      "Compilation cycles merged or rejected, by member count",
		}, []string{"result", "members"}),
	}
	reg.MustRegister(pr.compileDuration, pr.compileInvocations, pr.unitOutcomes, pr.cycleResolutions)
	return pr
}

func (p *PrometheusRecorder) ObserveCompileDuration(compiler string, d time.Duration, result ResultLabel) {
	if p == nil || p.compileDuration == nil {
		return
	}
	p.compileDuration.WithLabelValues(compiler, string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCompilerInvocation(compiler string, result ResultLabel) {
	if p == nil || p.compileInvocations == nil {
		return
	}
	p.compileInvocations.WithLabelValues(compiler, string(result)).Inc()
}

func (p *PrometheusRecorder) IncUnitOutcome(outcome UnitOutcomeLabel) {
	if p == nil || p.unitOutcomes == nil {
		return
	}
	p.unitOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncCycleResolution(result ResultLabel, members int) {
	if p == nil || p.cycleResolutions == nil {
		return
	}
	p.cycleResolutions.WithLabelValues(string(result), strconv.Itoa(members)).Inc()
}
