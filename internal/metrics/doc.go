// Package metrics provides observability hooks for compiler invocations and
// build-unit outcomes.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	builder := javabuild.NewBuilder(compilers).WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// PrometheusRecorder registers its collectors on the registry it is given;
// HTTPHandler exposes that registry for scraping (the watch command serves it
// when metrics are enabled).
package metrics
