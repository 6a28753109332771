package javabuild

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"git.home.luguber.info/inful/javabuild/internal/engine"
	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
)

// BuilderName is the engine builder name of Java compilation requests.
const BuilderName = "java"

// Input is one compilation request. Create it with NewInput so that paths
// are absolute and defaults are applied.
type Input struct {
	InputFiles    []string `json:"input_files"`
	TargetDir     string   `json:"target_dir"`
	SourcePath    []string `json:"source_path"`
	ClassPath     []string `json:"class_path"`
	SourceRelease string   `json:"source_release,omitempty"`
	TargetRelease string   `json:"target_release,omitempty"`
	ExtraArgs     []string `json:"extra_args,omitempty"`
	Compiler      string   `json:"compiler,omitempty"`
	// Injected are requests of any builder brought up to date before the
	// compiler runs, such as source generators.
	Injected []engine.Ref `json:"injected,omitempty"`

	err error
}

// Option configures an Input.
type Option func(*Input)

// WithInputFiles adds source files to compile.
func WithInputFiles(files ...string) Option {
	return func(in *Input) { in.InputFiles = append(in.InputFiles, files...) }
}

// WithTargetDir sets the output directory (default ".").
func WithTargetDir(dir string) Option {
	return func(in *Input) { in.TargetDir = dir }
}

// WithSourcePath appends source path entries, searched in order.
func WithSourcePath(dirs ...string) Option {
	return func(in *Input) { in.SourcePath = append(in.SourcePath, dirs...) }
}

// WithClassPath appends classpath entries, searched in order. When none are
// given the classpath is the target directory.
func WithClassPath(entries ...string) Option {
	return func(in *Input) { in.ClassPath = append(in.ClassPath, entries...) }
}

// WithExtraArgs appends compiler arguments passed verbatim.
func WithExtraArgs(args ...string) Option {
	return func(in *Input) { in.ExtraArgs = append(in.ExtraArgs, args...) }
}

// WithSourceRelease sets the -source release.
func WithSourceRelease(release string) Option {
	return func(in *Input) { in.SourceRelease = release }
}

// WithTargetRelease sets the -target release.
func WithTargetRelease(release string) Option {
	return func(in *Input) { in.TargetRelease = release }
}

// WithCompiler selects a registered compiler by name.
func WithCompiler(name string) Option {
	return func(in *Input) { in.Compiler = name }
}

// WithInjectedDependencies adds requests built before compiling. They are
// also required by every source dependency discovered during the build.
func WithInjectedDependencies(reqs ...engine.Request) Option {
	return func(in *Input) {
		for _, r := range reqs {
			ref, err := engine.NewRef(r)
			if err != nil {
				in.err = errors.Join(in.err, err)
				continue
			}
			in.Injected = appendRef(in.Injected, ref)
		}
	}
}

func appendRef(dst []engine.Ref, refs ...engine.Ref) []engine.Ref {
	for _, ref := range refs {
		if !slices.ContainsFunc(dst, func(r engine.Ref) bool { return r.ID == ref.ID }) {
			dst = append(dst, ref)
		}
	}
	return dst
}

// NewInput builds and validates a request.
func NewInput(opts ...Option) (*Input, error) {
	in := &Input{}
	for _, opt := range opts {
		opt(in)
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	return in, nil
}

func (in *Input) normalize() error {
	if in.err != nil {
		return in.err
	}
	if len(in.InputFiles) == 0 {
		return derrors.ValidationFailed("input_files", "at least one source file is required")
	}
	if len(in.SourcePath) == 0 {
		return derrors.ValidationFailed("source_path", "source path must not be empty")
	}
	if in.TargetDir == "" {
		in.TargetDir = "."
	}

	var err error
	if in.TargetDir, err = absPath(in.TargetDir); err != nil {
		return err
	}
	if in.InputFiles, err = absPaths(in.InputFiles); err != nil {
		return err
	}
	sort.Strings(in.InputFiles)
	in.InputFiles = slices.Compact(in.InputFiles)
	if in.SourcePath, err = absPaths(in.SourcePath); err != nil {
		return err
	}
	if len(in.ClassPath) == 0 {
		in.ClassPath = []string{in.TargetDir}
	}
	if in.ClassPath, err = absPaths(in.ClassPath); err != nil {
		return err
	}
	return nil
}

func absPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", derrors.FileSystemError("resolve path", p, err)
	}
	return abs, nil
}

func absPaths(ps []string) ([]string, error) {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		abs, err := absPath(p)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, abs) {
			out = append(out, abs)
		}
	}
	return out, nil
}

// derive returns a single-file request sharing in's settings and the given
// injected dependencies.
func (in *Input) derive(file string, injected []engine.Ref) *Input {
	return &Input{
		InputFiles:    []string{file},
		TargetDir:     in.TargetDir,
		SourcePath:    slices.Clone(in.SourcePath),
		ClassPath:     slices.Clone(in.ClassPath),
		SourceRelease: in.SourceRelease,
		TargetRelease: in.TargetRelease,
		ExtraArgs:     slices.Clone(in.ExtraArgs),
		Compiler:      in.Compiler,
		Injected:      slices.Clone(injected),
	}
}

// Key identifies the unit by target directory and input files.
func (in *Input) Key() string {
	h := sha256.New()
	h.Write([]byte(in.TargetDir))
	for _, f := range in.InputFiles {
		h.Write([]byte{0})
		h.Write([]byte(f))
	}
	return "java:" + hex.EncodeToString(h.Sum(nil)[:16])
}

func (in *Input) BuilderName() string { return BuilderName }

func (in *Input) Encode() ([]byte, error) { return json.Marshal(in) }

// Description names the inputs relative to the first source path entry.
func (in *Input) Description() string {
	name := in.InputFiles[0]
	if len(in.SourcePath) > 0 {
		if rel, err := filepath.Rel(in.SourcePath[0], name); err == nil && !strings.HasPrefix(rel, "..") {
			name = rel
		}
	}
	if n := len(in.InputFiles); n > 1 {
		return fmt.Sprintf("%s (+%d)", name, n-1)
	}
	return name
}

// DecodeInput parses an encoded Input.
func DecodeInput(data []byte) (*Input, error) {
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, derrors.InternalError("decode java input", err)
	}
	if len(in.InputFiles) == 0 {
		return nil, derrors.InternalError("decode java input: no input files", nil)
	}
	return &in, nil
}
