package config

import (
	"os"
	"path/filepath"
	"time"

	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
	"git.home.luguber.info/inful/javabuild/internal/util/sets"
)

const (
	DefaultTargetDir     = "build/classes"
	DefaultStorePath     = ".javabuild/units.db"
	DefaultMetricsListen = ":9464"
	DefaultDebounce      = 300 * time.Millisecond
	DefaultTimeout       = 10 * time.Minute
	DefaultRunner        = "java"
)

// normalize case-folds enumerations and rejects unknown values.
func normalize(cfg *Config) error {
	kind, err := compilerKinds.Parse(string(cfg.Compiler.Kind))
	if err != nil {
		return derrors.ValidationFailed("compiler.kind", err.Error())
	}
	cfg.Compiler.Kind = kind

	driver, err := storeDrivers.Parse(string(cfg.Store.Driver))
	if err != nil {
		return derrors.ValidationFailed("store.driver", err.Error())
	}
	cfg.Store.Driver = driver

	level, err := logLevels.Parse(string(cfg.Logging.Level))
	if err != nil {
		return derrors.ValidationFailed("logging.level", err.Error())
	}
	cfg.Logging.Level = level

	format, err := logFormats.Parse(string(cfg.Logging.Format))
	if err != nil {
		return derrors.ValidationFailed("logging.format", err.Error())
	}
	cfg.Logging.Format = format
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Compiler.Kind == "" {
		cfg.Compiler.Kind = CompilerJavac
	}
	if len(cfg.Compiler.Command) == 0 {
		cfg.Compiler.Command = []string{string(cfg.Compiler.Kind)}
	}
	if cfg.Compiler.Timeout == 0 {
		cfg.Compiler.Timeout = DefaultTimeout
	}

	if cfg.Project.TargetDir == "" {
		cfg.Project.TargetDir = DefaultTargetDir
	}
	if len(cfg.Project.SourcePath) == 0 {
		cfg.Project.SourcePath = SourceRoots(cfg.Project.Sources)
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreSQLite
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}

	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = DefaultDebounce
	}

	if len(cfg.Runner.Command) == 0 {
		cfg.Runner.Command = []string{DefaultRunner}
	}
	if cfg.Runner.Timeout == 0 {
		cfg.Runner.Timeout = DefaultTimeout
	}
	if cfg.Runner.WorkingDir == "" {
		cfg.Runner.WorkingDir = "."
	}
}

// SourceRoots returns the directory entries of sources, or the parent of
// a file entry.
func SourceRoots(sources []string) []string {
	var roots []string
	seen := sets.New[string]()
	for _, s := range sources {
		root := s
		if info, err := os.Stat(s); err == nil && !info.IsDir() {
			root = filepath.Dir(s)
		}
		if seen.Add(root) {
			roots = append(roots, root)
		}
	}
	return roots
}

func validate(cfg *Config) error {
	if cfg.Compiler.Timeout < 0 {
		return derrors.ValidationFailed("compiler.timeout", "must not be negative")
	}
	for i, arg := range cfg.Compiler.Command {
		if arg == "" {
			return derrors.ValidationFailed("compiler.command", "empty argument").WithContext("index", i)
		}
	}
	if cfg.Runner.Timeout < 0 {
		return derrors.ValidationFailed("runner.timeout", "must not be negative")
	}
	for i, arg := range cfg.Runner.Command {
		if arg == "" {
			return derrors.ValidationFailed("runner.command", "empty argument").WithContext("index", i)
		}
	}
	if cfg.Store.Driver == StoreSQLite && cfg.Store.Path == "" {
		return derrors.ValidationFailed("store.path", "required for the sqlite driver")
	}
	return nil
}
