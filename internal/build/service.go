// Package build runs javabuild sessions for the CLI and the watcher. It
// turns the loaded configuration into an engine, a unit store and a
// compiler registry, and turns source lists into build requests.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"git.home.luguber.info/inful/javabuild/internal/config"
	"git.home.luguber.info/inful/javabuild/internal/engine"
	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
	"git.home.luguber.info/inful/javabuild/internal/javabuild"
	"git.home.luguber.info/inful/javabuild/internal/javac"
	"git.home.luguber.info/inful/javabuild/internal/javarun"
	"git.home.luguber.info/inful/javabuild/internal/logfields"
	"git.home.luguber.info/inful/javabuild/internal/metrics"
)

// Request selects what one Run compiles.
type Request struct {
	// Files overrides project.sources when non-empty. Directories are
	// searched for .java files.
	Files []string
	// Bulk compiles every file as one unit.
	Bulk bool
}

// Result is the outcome of one Run.
type Result struct {
	Status     Status
	SessionID  string
	Requests   int
	Executions []engine.Execution
	// Failed counts requests whose unit could not be brought up to date.
	Failed    int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Compiled counts the source files passed to a compiler during the run.
func (r *Result) Compiled() int {
	n := 0
	for _, e := range r.Executions {
		n += len(e.Keys)
	}
	return n
}

// Status is the overall outcome of a Run.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusUpToDate  Status = "up_to_date"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsSuccess reports whether every request ended up consistent.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusUpToDate
}

// Service owns the engine and store for one project.
type Service struct {
	cfg      *config.Config
	store    engine.Store
	engine   *engine.Engine
	builder  *javabuild.Builder
	logger   *slog.Logger
	recorder metrics.Recorder
	registry *javac.Registry
	entry    javac.EntryPoint
}

// Option customizes a Service.
type Option func(*Service)

// WithRegistry replaces the compilers derived from the configuration.
func WithRegistry(r *javac.Registry) Option {
	return func(s *Service) { s.registry = r }
}

// WithStore replaces the store derived from the configuration.
func WithStore(st engine.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithEntryPoint supplies the in-process compiler used when
// compiler.embedded is set.
func WithEntryPoint(ep javac.EntryPoint) Option {
	return func(s *Service) { s.entry = ep }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// New wires a Service for cfg. Close releases the store.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, derrors.ConfigRequired("config")
	}
	s := &Service{cfg: cfg, logger: slog.Default(), recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		reg, err := NewRegistry(cfg.Compiler, s.logger, s.entry)
		if err != nil {
			return nil, err
		}
		s.registry = reg
	}
	if s.store == nil {
		st, err := OpenStore(cfg.Store)
		if err != nil {
			return nil, err
		}
		s.store = st
	}

	eng, err := engine.New(s.store, engine.WithLogger(s.logger), engine.WithRecorder(s.recorder))
	if err != nil {
		_ = s.store.Close()
		return nil, derrors.InternalError("failed to create engine", err)
	}
	s.builder = javabuild.NewBuilder(s.registry,
		javabuild.WithLogger(s.logger), javabuild.WithRecorder(s.recorder))
	eng.Register(s.builder)
	eng.Register(javarun.NewRunner(cfg.Runner.Command,
		javarun.WithTimeout(cfg.Runner.Timeout), javarun.WithLogger(s.logger)))
	s.engine = eng
	return s, nil
}

// NewRegistry registers both compiler dialects. The configured kind is the
// default and runs the configured command, or entry when compiler.embedded
// is set; the other runs its own binary.
func NewRegistry(cc config.CompilerConfig, logger *slog.Logger, entry javac.EntryPoint) (*javac.Registry, error) {
	selected := javac.Dialects[string(cc.Kind)]
	if selected.Name == "" {
		selected = javac.Javac
	}
	process := javac.NewProcessCompiler(selected, cc.Command...)
	process.Logger = logger
	if cc.Timeout > 0 {
		process.Timeout = cc.Timeout
	}
	var primary javac.Compiler = process
	if cc.Embedded {
		if entry == nil {
			return nil, derrors.ValidationFailed("compiler.embedded", "no in-process compiler is available")
		}
		primary = javac.EmbeddedCompiler{Dialect: selected, Entry: entry}
	}
	compilers := []javac.Compiler{primary}
	for _, name := range []string{javac.Javac.Name, javac.Ecj.Name} {
		if name == selected.Name {
			continue
		}
		other := javac.NewProcessCompiler(javac.Dialects[name])
		other.Logger = logger
		other.Timeout = process.Timeout
		compilers = append(compilers, other)
	}
	return javac.NewRegistry(compilers...), nil
}

// OpenStore opens the configured unit store.
func OpenStore(sc config.StoreConfig) (engine.Store, error) {
	switch sc.Driver {
	case config.StoreMemory:
		return engine.NewMemoryStore(), nil
	case config.StoreSQLite, "":
		if dir := filepath.Dir(sc.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, derrors.FileSystemError("mkdir", dir, err)
			}
		}
		st, err := engine.NewSQLiteStore(sc.Path)
		if err != nil {
			return nil, derrors.StoreError("open", err)
		}
		return st, nil
	default:
		return nil, derrors.ValidationFailed("store.driver", fmt.Sprintf("unsupported driver %q", sc.Driver))
	}
}

// Close releases the store.
func (s *Service) Close() error {
	return s.store.Close()
}

// Engine exposes the underlying engine.
func (s *Service) Engine() *engine.Engine { return s.engine }

// Run brings every requested source up to date in one session. Later
// requests are still attempted after a failure; the first failure is
// returned.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{StartTime: time.Now()}
	finish := func(status Status) {
		res.Status = status
		res.EndTime = time.Now()
		res.Duration = res.EndTime.Sub(res.StartTime)
	}

	inputs, err := s.Inputs(req)
	if err != nil {
		finish(StatusFailed)
		return res, err
	}
	res.Requests = len(inputs)

	session := s.engine.NewSession()
	res.SessionID = session.ID()
	log := s.logger.With(logfields.Session(session.ID()))
	log.Info("Starting build", logfields.Count(len(inputs)), slog.Bool("bulk", req.Bulk || s.cfg.Project.Bulk))

	var first error
	for _, in := range inputs {
		if _, err := session.Build(ctx, in); err != nil {
			if ctx.Err() != nil {
				res.Executions = session.Executions()
				finish(StatusCancelled)
				return res, ctx.Err()
			}
			res.Failed++
			log.Debug("Request failed", logfields.Unit(in.Description()), logfields.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	res.Executions = session.Executions()

	switch {
	case first != nil:
		finish(StatusFailed)
	case len(res.Executions) == 0:
		finish(StatusUpToDate)
	default:
		finish(StatusSuccess)
	}
	log.Info("Build finished",
		slog.String("status", string(res.Status)),
		slog.Int("executions", len(res.Executions)),
		slog.Int("failed", res.Failed),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res, first
}

// RunRequest selects the main class RunMain runs and the sources compiled
// before it.
type RunRequest struct {
	MainClass string
	Args      []string
	// VMArgs follow runner.vm_args.
	VMArgs []string
	// WorkingDir overrides runner.working_dir.
	WorkingDir string
	Files      []string
	Bulk       bool
}

// RunResult is the outcome of one RunMain.
type RunResult struct {
	Result
	Output *javarun.Output
	// Replayed is set when the output was recorded by an earlier run.
	Replayed bool
}

// RunMain compiles the requested sources and runs the main class in the
// same session. The program runs again only when a class it may load, or
// its arguments, changed.
func (s *Service) RunMain(ctx context.Context, req RunRequest) (*RunResult, error) {
	res := &RunResult{Result: Result{StartTime: time.Now()}}
	finish := func(status Status) {
		res.Status = status
		res.EndTime = time.Now()
		res.Duration = res.EndTime.Sub(res.StartTime)
	}

	inputs, err := s.Inputs(Request{Files: req.Files, Bulk: req.Bulk})
	if err != nil {
		finish(StatusFailed)
		return res, err
	}
	origin := make([]engine.Request, len(inputs))
	for i, in := range inputs {
		origin[i] = in
	}
	workingDir := req.WorkingDir
	if workingDir == "" {
		workingDir = s.cfg.Runner.WorkingDir
	}
	run, err := javarun.NewInput(req.MainClass,
		javarun.WithWorkingDir(workingDir),
		javarun.WithClassPath(append([]string{s.cfg.Project.TargetDir}, s.cfg.Project.ClassPath...)...),
		javarun.WithVMArgs(append(slices.Clone(s.cfg.Runner.VMArgs), req.VMArgs...)...),
		javarun.WithProgramArgs(req.Args...),
		javarun.WithOrigin(origin...))
	if err != nil {
		finish(StatusFailed)
		return res, err
	}
	res.Requests = 1

	session := s.engine.NewSession()
	res.SessionID = session.ID()
	log := s.logger.With(logfields.Session(session.ID()))
	log.Info("Starting run", logfields.MainClass(req.MainClass), logfields.Count(len(inputs)))

	u, err := session.Build(ctx, run)
	res.Executions = session.Executions()
	if err != nil {
		res.Failed = 1
		if ctx.Err() != nil {
			finish(StatusCancelled)
			return res, ctx.Err()
		}
		finish(StatusFailed)
		return res, err
	}
	out, err := javarun.DecodeOutput(u.Output)
	if err != nil {
		finish(StatusFailed)
		return res, err
	}
	res.Output = out
	res.Replayed = !slices.ContainsFunc(res.Executions, func(e engine.Execution) bool {
		return e.Builder == javarun.BuilderName
	})
	if len(res.Executions) == 0 {
		finish(StatusUpToDate)
	} else {
		finish(StatusSuccess)
	}
	log.Info("Run finished",
		slog.String("status", string(res.Status)),
		slog.Bool("replayed", res.Replayed),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res, nil
}

// Inputs turns a request into build inputs: one per source file, or a
// single input covering all of them in bulk mode.
func (s *Service) Inputs(req Request) ([]*javabuild.Input, error) {
	roots := req.Files
	if len(roots) == 0 {
		roots = s.cfg.Project.Sources
	}
	if len(roots) == 0 {
		return nil, derrors.ValidationFailed("project.sources", "no sources given")
	}
	files, err := CollectSources(roots)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, derrors.ValidationFailed("project.sources", "no .java files found")
	}

	sourcePath := s.cfg.Project.SourcePath
	if len(sourcePath) == 0 {
		sourcePath = config.SourceRoots(roots)
	}
	base := []javabuild.Option{
		javabuild.WithSourcePath(sourcePath...),
		javabuild.WithTargetDir(s.cfg.Project.TargetDir),
		javabuild.WithClassPath(s.cfg.Project.ClassPath...),
		javabuild.WithExtraArgs(s.cfg.Compiler.ExtraArgs...),
		javabuild.WithSourceRelease(s.cfg.Compiler.SourceRelease),
		javabuild.WithTargetRelease(s.cfg.Compiler.TargetRelease),
		javabuild.WithCompiler(string(s.cfg.Compiler.Kind)),
	}

	if req.Bulk || s.cfg.Project.Bulk {
		in, err := javabuild.NewInput(append(base, javabuild.WithInputFiles(files...))...)
		if err != nil {
			return nil, err
		}
		return []*javabuild.Input{in}, nil
	}
	inputs := make([]*javabuild.Input, 0, len(files))
	for _, f := range files {
		in, err := javabuild.NewInput(append(base, javabuild.WithInputFiles(f))...)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// Units lists persisted units.
func (s *Service) Units(ctx context.Context) ([]*engine.Unit, error) {
	return s.engine.Units(ctx)
}

// Clean forgets every unit and optionally removes the target directory.
func (s *Service) Clean(ctx context.Context, removeTarget bool) error {
	if err := s.engine.Forget(ctx); err != nil {
		return err
	}
	if !removeTarget {
		return nil
	}
	target := s.cfg.Project.TargetDir
	if err := os.RemoveAll(target); err != nil {
		return derrors.FileSystemError("remove", target, err)
	}
	s.logger.Info("Removed target directory", logfields.TargetDir(target))
	return nil
}
