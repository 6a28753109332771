// Package javabuild compiles Java sources incrementally on top of the build
// engine. Each compilation declares, from the compiler's verbose output,
// exactly which sources, class files and archives it read, so that a later
// session recompiles a request only when one of them changed.
package javabuild
