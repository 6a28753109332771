package javac

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
)

// Invocation carries the arguments of one compiler run. All paths should be
// absolute; Sources are compiled in the given order.
type Invocation struct {
	Sources       []string
	TargetDir     string
	SourcePath    []string
	ClassPath     []string
	SourceRelease string
	TargetRelease string
	ExtraArgs     []string
}

// Compiler compiles a batch of sources and reports what the compiler read
// and wrote. Implementations hold no mutable state and are safe for
// concurrent use.
type Compiler interface {
	Name() string
	Compile(ctx context.Context, inv Invocation) (*Result, error)
}

// EffectiveClassPath is the search path handed to the compiler: the target
// directory first, then the configured entries without duplicates.
func (inv Invocation) EffectiveClassPath() []string {
	out := make([]string, 0, len(inv.ClassPath)+1)
	if inv.TargetDir != "" {
		out = append(out, inv.TargetDir)
	}
	for _, cp := range inv.ClassPath {
		if !slices.Contains(out, cp) {
			out = append(out, cp)
		}
	}
	return out
}

// Args renders the command-line arguments for dialect d.
func (inv Invocation) Args(d Dialect) []string {
	sep := string(os.PathListSeparator)
	args := make([]string, 0, 12+len(inv.ExtraArgs)+len(inv.Sources))
	if len(inv.SourcePath) > 0 {
		args = append(args, "-sourcepath", strings.Join(inv.SourcePath, sep))
	}
	if cp := inv.EffectiveClassPath(); len(cp) > 0 {
		args = append(args, "-cp", strings.Join(cp, sep))
	}
	if inv.TargetDir != "" {
		args = append(args, "-d", inv.TargetDir)
	}
	args = append(args, d.Flags...)
	if inv.SourceRelease != "" {
		args = append(args, "-source", inv.SourceRelease)
	}
	if inv.TargetRelease != "" {
		args = append(args, "-target", inv.TargetRelease)
	}
	args = append(args, inv.ExtraArgs...)
	return append(args, inv.Sources...)
}

// Extractor returns the extractor matching this invocation's search paths.
func (inv Invocation) Extractor(d Dialect) Extractor {
	return Extractor{
		Dialect:    d,
		SourcePath: inv.SourcePath,
		TargetDir:  inv.TargetDir,
		ClassPath:  inv.EffectiveClassPath(),
	}
}

// Validate checks the invariants every adapter relies on.
func (inv Invocation) Validate() error {
	if len(inv.Sources) == 0 {
		return derrors.ValidationError("no sources to compile")
	}
	if inv.TargetDir == "" {
		return derrors.ValidationError("target directory is required")
	}
	for _, p := range append(append([]string{inv.TargetDir}, inv.Sources...), inv.SourcePath...) {
		if !filepath.IsAbs(p) {
			return derrors.ValidationError("compiler paths must be absolute").
				WithContext("path", p)
		}
	}
	return nil
}

// Registry selects a compiler by name. It is populated once at start-up and
// read-only afterwards.
type Registry struct {
	compilers map[string]Compiler
	fallback  string
}

// NewRegistry returns a registry whose default compiler is the first one
// given.
func NewRegistry(compilers ...Compiler) *Registry {
	r := &Registry{compilers: make(map[string]Compiler, len(compilers))}
	for _, c := range compilers {
		if r.fallback == "" {
			r.fallback = c.Name()
		}
		r.compilers[c.Name()] = c
	}
	return r
}

// Lookup returns the named compiler; an empty name selects the default.
func (r *Registry) Lookup(name string) (Compiler, error) {
	if name == "" {
		name = r.fallback
	}
	c, ok := r.compilers[name]
	if !ok {
		return nil, derrors.New(derrors.CategoryConfig, derrors.SeverityError,
			fmt.Sprintf("unknown compiler %q", name)).
			WithContext("available", r.Names())
	}
	return c, nil
}

// Names lists the registered compilers.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.compilers))
	for n := range r.compilers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
