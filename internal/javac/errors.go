package javac

import (
	"fmt"
	"strings"

	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
)

// Diagnostic is one compiler error. Line and Column are 1-based.
type Diagnostic struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Column, d.Message)
}

// CompileError reports that the compiler rejected the sources. Diagnostics
// keep the compiler's emission order.
type CompileError struct {
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	switch len(e.Diagnostics) {
	case 0:
		return "compilation failed"
	case 1:
		return "compilation failed: " + e.Diagnostics[0].String()
	default:
		return fmt.Sprintf("compilation failed with %d errors, first: %s", len(e.Diagnostics), e.Diagnostics[0])
	}
}

// Details returns every diagnostic, one per line.
func (e *CompileError) Details() []string {
	out := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		out[i] = d.String()
	}
	return out
}

func (e *CompileError) ErrorCategory() derrors.ErrorCategory { return derrors.CategoryCompile }

// ProcessError reports that the compiler could not be launched, timed out,
// or exited abnormally without diagnostics.
type ProcessError struct {
	Command  []string
	ExitCode int
	Output   string
	TimedOut bool
	Cause    error
}

func (e *ProcessError) Error() string {
	name := "compiler"
	if len(e.Command) > 0 {
		name = e.Command[0]
	}
	switch {
	case e.TimedOut:
		return fmt.Sprintf("%s timed out", name)
	case e.Cause != nil && e.ExitCode == 0:
		return fmt.Sprintf("%s could not be run: %v", name, e.Cause)
	default:
		return fmt.Sprintf("%s exited with status %d and no diagnostics", name, e.ExitCode)
	}
}

func (e *ProcessError) Unwrap() error { return e.Cause }

func (e *ProcessError) ErrorCategory() derrors.ErrorCategory { return derrors.CategoryProcess }

// ParseError reports diagnostic text that did not match the dialect. Raw
// holds the complete compiler output for diagnosis; Diagnostics holds the
// errors recovered before the scan gave up.
type ParseError struct {
	Reason      string
	Line        int
	Raw         string
	Diagnostics []Diagnostic
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("unparseable compiler output at line %d: %s", e.Line, e.Reason)
	}
	return "unparseable compiler output: " + e.Reason
}

// Details returns the recovered diagnostics followed by the raw output.
func (e *ParseError) Details() []string {
	out := make([]string, 0, len(e.Diagnostics)+2)
	out = append(out, e.Error())
	for _, d := range e.Diagnostics {
		out = append(out, d.String())
	}
	if raw := strings.TrimSpace(e.Raw); raw != "" {
		out = append(out, "--- compiler output ---", raw)
	}
	return out
}

func (e *ParseError) ErrorCategory() derrors.ErrorCategory { return derrors.CategoryParse }
