package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "javabuild.yaml"

// Config is the javabuild configuration file.
type Config struct {
	Compiler CompilerConfig `yaml:"compiler"`
	Project  ProjectConfig  `yaml:"project"`
	Store    StoreConfig    `yaml:"store"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Watch    WatchConfig    `yaml:"watch"`
	Runner   RunnerConfig   `yaml:"runner"`
}

// CompilerConfig selects and tunes the Java compiler.
type CompilerConfig struct {
	Kind          CompilerKind  `yaml:"kind"`    // javac|ecj
	Command       []string      `yaml:"command"` // argv prefix; defaults to the kind's binary
	Timeout       time.Duration `yaml:"timeout"`
	ExtraArgs     []string      `yaml:"extra_args"`
	SourceRelease string        `yaml:"source_release"`
	TargetRelease string        `yaml:"target_release"`
	// Embedded uses the in-process entry point the program was built with
	// instead of launching Command.
	Embedded bool `yaml:"embedded"`
}

// ProjectConfig describes what is compiled and where class files go.
type ProjectConfig struct {
	Sources    []string `yaml:"sources"`     // source roots or files to compile
	SourcePath []string `yaml:"source_path"` // defaults to the directory sources
	ClassPath  []string `yaml:"class_path"`
	TargetDir  string   `yaml:"target_dir"`
	// Bulk compiles all sources as one unit instead of one unit per file.
	Bulk bool `yaml:"bulk"`
}

// StoreConfig selects where build units are persisted.
type StoreConfig struct {
	Driver StoreDriver `yaml:"driver"` // sqlite|memory
	Path   string      `yaml:"path"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint served by watch.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// WatchConfig tunes the file watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// RunnerConfig controls how compiled main classes are run.
type RunnerConfig struct {
	Command    []string      `yaml:"command"` // argv prefix; defaults to java
	Timeout    time.Duration `yaml:"timeout"`
	VMArgs     []string      `yaml:"vm_args"`
	WorkingDir string        `yaml:"working_dir"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads configPath, expands ${VAR} references, then normalizes,
// defaults and validates the result. Variables from .env files are
// visible to the expansion.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, derrors.ConfigNotFound(configPath)
		}
		return nil, derrors.Wrap(err, derrors.CategoryConfig, derrors.SeverityFatal, "failed to read config file").
			WithContext("path", configPath)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryConfig, derrors.SeverityFatal, "failed to parse config file").
			WithContext("path", configPath)
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configPath, falling back to Default when the file
// does not exist and was not asked for explicitly.
func LoadOrDefault(configPath string, explicit bool) (*Config, error) {
	cfg, err := Load(configPath)
	if err == nil {
		return cfg, nil
	}
	if !explicit && derrors.IsCategory(err, derrors.CategoryConfig) {
		if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
			cfg = Default()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
	}
	return nil, err
}

// Init writes an example configuration to configPath. An existing file is
// only replaced when force is set.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return derrors.New(derrors.CategoryConfig, derrors.SeverityFatal, "configuration file already exists").
			WithContext("path", configPath)
	}
	example := Default()
	example.Project.Sources = []string{"src/main/java"}
	data, err := yaml.Marshal(example)
	if err != nil {
		return derrors.InternalError("failed to marshal example config", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return derrors.FileSystemError("write", configPath, err)
	}
	return nil
}
