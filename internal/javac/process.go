package javac

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"

	"git.home.luguber.info/inful/javabuild/internal/logfields"
)

// DefaultTimeout bounds a compiler process when none is configured.
const DefaultTimeout = 10 * time.Minute

// ProcessCompiler runs an external compiler binary speaking Dialect.
type ProcessCompiler struct {
	// Command is the executable followed by leading arguments, e.g.
	// ["java", "-jar", "ecj.jar"].
	Command []string
	Dialect Dialect
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewProcessCompiler returns a compiler running command with dialect d.
func NewProcessCompiler(d Dialect, command ...string) ProcessCompiler {
	if len(command) == 0 {
		command = []string{d.Name}
	}
	return ProcessCompiler{Command: command, Dialect: d, Timeout: DefaultTimeout}
}

func (p ProcessCompiler) Name() string { return p.Dialect.Name }

// Compile runs the process to completion, killing it when the timeout
// expires. The combined output is scanned even when the exit status is
// non-zero so that diagnostics take precedence over the bare status.
func (p ProcessCompiler) Compile(ctx context.Context, inv Invocation) (*Result, error) {
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	base := p.Command
	if len(base) == 0 {
		base = []string{p.Dialect.Name}
	}
	argv := append(append([]string{}, base[1:]...), inv.Args(p.Dialect)...)
	command := append([]string{base[0]}, argv...)
	p.logger().DebugContext(ctx, "Running compiler",
		logfields.Compiler(p.Name()),
		logfields.TargetDir(inv.TargetDir),
		logfields.Count(len(inv.Sources)))

	// #nosec G204 -- the command comes from configuration, not from build inputs
	cmd := exec.CommandContext(ctx, base[0], argv...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = time.Second
	runErr := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, &ProcessError{Command: command, ExitCode: -1, Output: out.String(), TimedOut: true, Cause: ctx.Err()}
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return nil, &ProcessError{Command: command, Output: out.String(), Cause: runErr}
	}

	result, err := inv.Extractor(p.Dialect).Extract(out.String())
	if err != nil {
		return nil, err
	}
	if exitErr != nil {
		return nil, &ProcessError{Command: command, ExitCode: exitErr.ExitCode(), Output: out.String(), Cause: runErr}
	}
	return result, nil
}

func (p ProcessCompiler) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
