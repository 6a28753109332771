package javarun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/javabuild/internal/engine"
	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
	"git.home.luguber.info/inful/javabuild/internal/logfields"
	"git.home.luguber.info/inful/javabuild/internal/stamp"
)

// DefaultTimeout bounds a run when none is configured.
const DefaultTimeout = 10 * time.Minute

// Output is the persisted result of a successful run, one entry per line.
type Output struct {
	Stdout []string `json:"stdout"`
	Stderr []string `json:"stderr"`
}

// DecodeOutput parses a unit's output.
func DecodeOutput(data []byte) (*Output, error) {
	var out Output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, derrors.InternalError("decode run output", err)
	}
	return &out, nil
}

// ExecutionError reports a run that could not start, timed out or exited
// with a non-zero status.
type ExecutionError struct {
	Command  []string
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Cause    error
}

func (e *ExecutionError) Error() string {
	name := e.Command[0]
	switch {
	case e.TimedOut:
		return fmt.Sprintf("%s timed out", name)
	case e.Cause != nil && e.ExitCode == 0:
		return fmt.Sprintf("%s could not be run: %v", name, e.Cause)
	default:
		return fmt.Sprintf("%s exited with status %d", name, e.ExitCode)
	}
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// Details returns the command and everything the program printed.
func (e *ExecutionError) Details() []string {
	details := []string{e.Error(), strings.Join(e.Command, " ")}
	details = append(details, lines(e.Stdout)...)
	return append(details, lines(e.Stderr)...)
}

func (e *ExecutionError) ErrorCategory() derrors.ErrorCategory { return derrors.CategoryProcess }

// Runner is the engine builder for run requests.
type Runner struct {
	command []string
	timeout time.Duration
	logger  *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner returns a runner launching command, "java" when empty.
func NewRunner(command []string, opts ...RunnerOption) *Runner {
	if len(command) == 0 {
		command = []string{"java"}
	}
	r := &Runner{command: command, timeout: DefaultTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Name() string { return BuilderName }

func (r *Runner) Decode(data []byte) (engine.Request, error) {
	return DecodeInput(data)
}

// Build runs the main class of every request.
func (r *Runner) Build(ctx context.Context, bc engine.BuildContext, reqs []engine.Request) error {
	for _, req := range reqs {
		in, ok := req.(*Input)
		if !ok {
			return derrors.InternalError("runner received a foreign request: "+req.Description(), nil)
		}
		if err := r.run(ctx, bc, in); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) run(ctx context.Context, bc engine.BuildContext, in *Input) error {
	for _, origin := range in.Origin {
		if err := bc.RequireBuild(ctx, origin); err != nil {
			return err
		}
	}
	if err := requireClassPath(bc, in); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	argv := append([]string{}, r.command[1:]...)
	argv = append(argv, "-cp", strings.Join(in.ClassPath, string(os.PathListSeparator)))
	argv = append(argv, in.VMArgs...)
	argv = append(argv, in.MainClass)
	argv = append(argv, in.ProgramArgs...)
	command := append([]string{r.command[0]}, argv...)
	r.logger.InfoContext(ctx, "Running main class", logfields.MainClass(in.MainClass), logfields.Path(in.WorkingDir))

	// #nosec G204 -- the command comes from configuration, not from build inputs
	cmd := exec.CommandContext(ctx, r.command[0], argv...)
	cmd.Dir = in.WorkingDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	start := time.Now()
	runErr := cmd.Run()

	fail := &ExecutionError{Command: command, Stdout: stdout.String(), Stderr: stderr.String(), Cause: runErr}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		fail.TimedOut, fail.ExitCode = true, -1
		return fail
	case errors.As(runErr, &exitErr):
		fail.ExitCode = exitErr.ExitCode()
		return fail
	case runErr != nil:
		return fail
	}

	data, err := json.Marshal(Output{Stdout: lines(stdout.String()), Stderr: lines(stderr.String())})
	if err != nil {
		return derrors.InternalError("encode run output", err)
	}
	bc.SetOutput(in, data)
	r.logger.DebugContext(ctx, "Main class finished",
		logfields.MainClass(in.MainClass),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return nil
}

// requireClassPath stamps the archives on the class path and the class file
// of the main class, with every directory searched before it required to
// keep lacking it.
func requireClassPath(bc engine.BuildContext, in *Input) error {
	rel := filepath.FromSlash(strings.ReplaceAll(in.MainClass, ".", "/")) + ".class"
	found := false
	for _, entry := range in.ClassPath {
		info, err := os.Stat(entry)
		switch {
		case isArchive(entry, info, err):
			if err := bc.Require(entry, stamp.Modified); err != nil {
				return err
			}
		case found:
		default:
			candidate := filepath.Join(entry, rel)
			if _, err := os.Stat(candidate); err == nil {
				found = true
				if err := bc.Require(candidate, stamp.Modified); err != nil {
					return err
				}
				continue
			}
			if err := bc.Require(candidate, stamp.Exists); err != nil {
				return err
			}
		}
	}
	return nil
}

func isArchive(entry string, info os.FileInfo, statErr error) bool {
	switch strings.ToLower(filepath.Ext(entry)) {
	case ".jar", ".zip":
		return true
	}
	return statErr == nil && !info.IsDir()
}

func lines(s string) []string {
	s = strings.TrimRight(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
