package javac

import (
	"bytes"
	"context"
	"io"
)

// EntryPoint is an in-process batch compiler. It receives the same
// arguments as the command-line tool, writes its verbose output to the given
// writers, and reports whether compilation succeeded.
type EntryPoint func(ctx context.Context, args []string, stdout, stderr io.Writer) bool

// EmbeddedCompiler calls an EntryPoint instead of launching a process.
type EmbeddedCompiler struct {
	CompilerName string
	Dialect      Dialect
	Entry        EntryPoint
}

func (e EmbeddedCompiler) Name() string {
	if e.CompilerName != "" {
		return e.CompilerName
	}
	return e.Dialect.Name
}

func (e EmbeddedCompiler) Compile(ctx context.Context, inv Invocation) (*Result, error) {
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	args := inv.Args(e.Dialect)
	var out bytes.Buffer
	ok := e.Entry(ctx, args, &out, &out)

	result, err := inv.Extractor(e.Dialect).Extract(out.String())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ProcessError{
			Command:  append([]string{e.Name()}, args...),
			ExitCode: 1,
			Output:   out.String(),
		}
	}
	return result, nil
}
