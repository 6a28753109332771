// Package javarun runs compiled main classes as persisted build units. A run
// is repeated only when its compilation origin, its class path or its
// arguments change; otherwise the recorded output is replayed.
package javarun

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"path/filepath"
	"slices"

	"git.home.luguber.info/inful/javabuild/internal/engine"
	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
)

// BuilderName is the engine builder name of run requests.
const BuilderName = "java-run"

// Input runs MainClass in WorkingDir.
type Input struct {
	MainClass   string   `json:"main_class"`
	WorkingDir  string   `json:"working_dir"`
	ClassPath   []string `json:"class_path"`
	VMArgs      []string `json:"vm_args,omitempty"`
	ProgramArgs []string `json:"program_args,omitempty"`
	Label       string   `json:"description,omitempty"`
	// Origin lists the requests producing the classes; they are brought up
	// to date before every run.
	Origin []engine.Ref `json:"origin,omitempty"`

	err error
}

// Option configures an Input.
type Option func(*Input)

// WithWorkingDir sets the directory the program runs in (default ".").
func WithWorkingDir(dir string) Option {
	return func(in *Input) { in.WorkingDir = dir }
}

// WithClassPath appends class path entries. When none are given the class
// path is the working directory.
func WithClassPath(entries ...string) Option {
	return func(in *Input) { in.ClassPath = append(in.ClassPath, entries...) }
}

// WithVMArgs appends arguments placed before the main class.
func WithVMArgs(args ...string) Option {
	return func(in *Input) { in.VMArgs = append(in.VMArgs, args...) }
}

// WithProgramArgs appends arguments passed to main.
func WithProgramArgs(args ...string) Option {
	return func(in *Input) { in.ProgramArgs = append(in.ProgramArgs, args...) }
}

// WithDescription overrides the default description.
func WithDescription(d string) Option {
	return func(in *Input) { in.Label = d }
}

// WithOrigin adds the requests that compile the classes being run.
func WithOrigin(reqs ...engine.Request) Option {
	return func(in *Input) {
		for _, r := range reqs {
			ref, err := engine.NewRef(r)
			if err != nil {
				in.err = errors.Join(in.err, err)
				continue
			}
			in.Origin = append(in.Origin, ref)
		}
	}
}

// NewInput builds and validates a run request.
func NewInput(mainClass string, opts ...Option) (*Input, error) {
	in := &Input{MainClass: mainClass}
	for _, opt := range opts {
		opt(in)
	}
	if in.err != nil {
		return nil, in.err
	}
	if in.MainClass == "" {
		return nil, derrors.ValidationFailed("main_class", "name of the main class is missing")
	}
	if in.WorkingDir == "" {
		in.WorkingDir = "."
	}
	dir, err := filepath.Abs(in.WorkingDir)
	if err != nil {
		return nil, derrors.FileSystemError("resolve path", in.WorkingDir, err)
	}
	in.WorkingDir = dir
	if len(in.ClassPath) == 0 {
		in.ClassPath = []string{dir}
	}
	cp := make([]string, 0, len(in.ClassPath))
	for _, e := range in.ClassPath {
		abs, err := filepath.Abs(e)
		if err != nil {
			return nil, derrors.FileSystemError("resolve path", e, err)
		}
		if !slices.Contains(cp, abs) {
			cp = append(cp, abs)
		}
	}
	in.ClassPath = cp
	return in, nil
}

// Key identifies the unit by working directory and main class; arguments
// only change the unit's input.
func (in *Input) Key() string {
	h := sha256.New()
	h.Write([]byte(in.WorkingDir))
	h.Write([]byte{0})
	h.Write([]byte(in.MainClass))
	return "run:" + hex.EncodeToString(h.Sum(nil)[:16])
}

func (in *Input) BuilderName() string { return BuilderName }

func (in *Input) Encode() ([]byte, error) { return json.Marshal(in) }

func (in *Input) Description() string {
	if in.Label != "" {
		return in.Label
	}
	return "Run Java class " + in.MainClass
}

// DecodeInput parses an encoded Input.
func DecodeInput(data []byte) (*Input, error) {
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, derrors.InternalError("decode run input", err)
	}
	if in.MainClass == "" {
		return nil, derrors.InternalError("decode run input: no main class", nil)
	}
	return &in, nil
}
