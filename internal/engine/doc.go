// Package engine is a pull-based incremental build engine.
//
// A Builder turns a Request into files on disk and declares, through a
// BuildContext, every fact the result depends on: file stamps and the
// successful build of other requests. The engine persists these declarations
// as a Unit and, in later sessions, re-executes a request only when one of
// them no longer holds.
//
// Requests that transitively require one another form a cycle. The engine
// detects cycles while they are pending, unwinds to the request that started
// the cycle and, when the builder implements CycleBuilder and accepts the
// members, builds them together in one execution.
package engine
