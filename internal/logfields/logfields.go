package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyUnit        = "unit"
	KeyBuilder     = "builder"
	KeySession     = "session_id"
	KeyExecutionID = "execution_id"
	KeySource      = "source"
	KeyTargetDir   = "target_dir"
	KeyCompiler    = "compiler"
	KeyMainClass   = "main_class"
	KeyPath        = "path"
	KeyStamp       = "stamp"
	KeyCycle       = "cycle"
	KeyCount       = "count"
	KeyDurationMS  = "duration_ms"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Unit(key string) slog.Attr       { return slog.String(KeyUnit, key) }
func Builder(name string) slog.Attr   { return slog.String(KeyBuilder, name) }
func Session(id string) slog.Attr     { return slog.String(KeySession, id) }
func ExecutionID(id string) slog.Attr { return slog.String(KeyExecutionID, id) }
func Source(path string) slog.Attr    { return slog.String(KeySource, path) }
func TargetDir(path string) slog.Attr { return slog.String(KeyTargetDir, path) }
func Compiler(name string) slog.Attr  { return slog.String(KeyCompiler, name) }
func MainClass(n string) slog.Attr    { return slog.String(KeyMainClass, n) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Stamp(kind string) slog.Attr     { return slog.String(KeyStamp, kind) }
func Cycle(keys []string) slog.Attr   { return slog.Any(KeyCycle, keys) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
