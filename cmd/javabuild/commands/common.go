package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/javabuild/internal/build"
	"git.home.luguber.info/inful/javabuild/internal/config"
	"git.home.luguber.info/inful/javabuild/internal/javac"
	"git.home.luguber.info/inful/javabuild/internal/metrics"
	"git.home.luguber.info/inful/javabuild/internal/observability"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"javabuild.yaml" env:"JAVABUILD_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Compile out-of-date sources"`
	Watch WatchCmd `cmd:"" help:"Rebuild whenever sources or class path entries change"`
	Units UnitsCmd `cmd:"" help:"List persisted build units"`
	Run   RunCmd   `cmd:"" help:"Compile, then run a main class unless nothing it loads changed"`
	Clean CleanCmd `cmd:"" help:"Forget every build unit"`
	Init  InitCmd  `cmd:"" help:"Write an example configuration file"`

	cfg    *config.Config
	cfgErr error
	// compilers replaces the configured compilers; tests use it.
	compilers *javac.Registry
	// entry is the in-process compiler selected by compiler.embedded.
	entry  javac.EntryPoint
	stdout io.Writer
	stderr io.Writer
}

// AfterApply runs after flag parsing; loads the configuration and sets up
// logging once. A configuration error is reported by the commands that
// need it, so that init still works next to a broken file.
func (c *CLI) AfterApply() error {
	c.cfg, c.cfgErr = config.LoadOrDefault(c.Config, c.Config != config.DefaultPath)

	logging := config.Default().Logging
	if c.cfg != nil {
		logging = c.cfg.Logging
	}
	slog.SetDefault(newLogger(os.Stderr, logging, c.Verbose))
	return nil
}

func newLogger(w io.Writer, lc config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch lc.Level {
	case config.LogLevelDebug:
		level = slog.LevelDebug
	case config.LogLevelWarn:
		level = slog.LevelWarn
	case config.LogLevelError:
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if lc.Format == config.LogFormatJSON {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(observability.NewContextHandler(h))
}

// LoadConfig returns the configuration loaded in AfterApply.
func (c *CLI) LoadConfig() (*config.Config, error) {
	if c.cfgErr != nil {
		return nil, c.cfgErr
	}
	if c.cfg == nil {
		return config.Default(), nil
	}
	return c.cfg, nil
}

func (c *CLI) out() io.Writer {
	if c.stdout != nil {
		return c.stdout
	}
	return os.Stdout
}

func (c *CLI) errOut() io.Writer {
	if c.stderr != nil {
		return c.stderr
	}
	return os.Stderr
}

// openService wires a build service for the loaded configuration.
func (c *CLI) openService(g *Global, rec metrics.Recorder) (*build.Service, *config.Config, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.Default()
	if g != nil && g.Logger != nil {
		logger = g.Logger
	}
	opts := []build.Option{build.WithLogger(logger)}
	if rec != nil {
		opts = append(opts, build.WithRecorder(rec))
	}
	if c.compilers != nil {
		opts = append(opts, build.WithRegistry(c.compilers))
	}
	if c.entry != nil {
		opts = append(opts, build.WithEntryPoint(c.entry))
	}
	svc, err := build.New(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

func printSummary(w io.Writer, res *build.Result) {
	if res == nil {
		return
	}
	switch res.Status {
	case build.StatusUpToDate:
		_, _ = fmt.Fprintf(w, "Up to date (%d units checked)\n", res.Requests)
	case build.StatusCancelled:
		_, _ = fmt.Fprintln(w, "Build cancelled")
	default:
		_, _ = fmt.Fprintf(w, "Compiled %d source file(s) in %d compiler run(s), %d failed, %s\n",
			res.Compiled(), len(res.Executions), res.Failed, res.Duration.Round(time.Millisecond))
	}
}
