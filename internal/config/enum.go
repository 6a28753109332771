package config

import (
	"fmt"
	"slices"
	"strings"
)

// normalizer maps case-folded, trimmed strings to enum values.
type normalizer[T ~string] struct {
	values   map[string]T
	fallback T
}

func newNormalizer[T ~string](fallback T, values ...T) normalizer[T] {
	n := normalizer[T]{values: make(map[string]T, len(values)), fallback: fallback}
	for _, v := range values {
		n.values[clean(string(v))] = v
	}
	return n
}

func clean(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Normalize returns the fallback for unknown input.
func (n normalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[clean(raw)]; ok {
		return v
	}
	return n.fallback
}

// Parse is Normalize that rejects unknown input. Empty input yields the
// fallback.
func (n normalizer[T]) Parse(raw string) (T, error) {
	if clean(raw) == "" {
		return n.fallback, nil
	}
	if v, ok := n.values[clean(raw)]; ok {
		return v, nil
	}
	return "", fmt.Errorf("invalid value %q, valid options: %v", raw, n.keys())
}

func (n normalizer[T]) keys() []string {
	keys := make([]string, 0, len(n.values))
	for k := range n.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// CompilerKind names a compiler dialect.
type CompilerKind string

const (
	CompilerJavac CompilerKind = "javac"
	CompilerEcj   CompilerKind = "ecj"
)

var compilerKinds = newNormalizer(CompilerJavac, CompilerJavac, CompilerEcj)

// NormalizeCompilerKind maps raw input to a CompilerKind, defaulting to javac.
func NormalizeCompilerKind(raw string) CompilerKind { return compilerKinds.Normalize(raw) }

// StoreDriver names a unit store backend.
type StoreDriver string

const (
	StoreSQLite StoreDriver = "sqlite"
	StoreMemory StoreDriver = "memory"
)

var storeDrivers = newNormalizer(StoreSQLite, StoreSQLite, StoreMemory)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevels = newNormalizer(LogLevelInfo, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)

func NormalizeLogLevel(raw string) LogLevel { return logLevels.Normalize(raw) }

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormats = newNormalizer(LogFormatText, LogFormatJSON, LogFormatText)

func NormalizeLogFormat(raw string) LogFormat { return logFormats.Normalize(raw) }
