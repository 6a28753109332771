package javabuild

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/javabuild/internal/engine"
	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
	"git.home.luguber.info/inful/javabuild/internal/javac"
	"git.home.luguber.info/inful/javabuild/internal/logfields"
	"git.home.luguber.info/inful/javabuild/internal/metrics"
	"git.home.luguber.info/inful/javabuild/internal/stamp"
)

// Builder compiles Input requests. It holds no per-build state and may run
// many builds concurrently.
type Builder struct {
	compilers *javac.Registry
	logger    *slog.Logger
	recorder  metrics.Recorder
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) BuilderOption {
	return func(b *Builder) { b.recorder = r }
}

// NewBuilder returns a builder selecting compilers from compilers.
func NewBuilder(compilers *javac.Registry, opts ...BuilderOption) *Builder {
	b := &Builder{compilers: compilers, logger: slog.Default(), recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Name() string { return BuilderName }

func (b *Builder) Decode(data []byte) (engine.Request, error) {
	return DecodeInput(data)
}

// Build compiles reqs in one invocation.
func (b *Builder) Build(ctx context.Context, bc engine.BuildContext, reqs []engine.Request) error {
	inputs, err := asInputs(reqs)
	if err != nil {
		return err
	}
	return b.BuildAll(ctx, bc, inputs)
}

// CanBuildCycle accepts cycles whose members can share a compiler invocation.
func (b *Builder) CanBuildCycle(reqs []engine.Request) error {
	inputs, err := asInputs(reqs)
	if err != nil {
		return err
	}
	return CanMerge(inputs)
}

func asInputs(reqs []engine.Request) ([]*Input, error) {
	inputs := make([]*Input, len(reqs))
	for i, r := range reqs {
		in, ok := r.(*Input)
		if !ok {
			return nil, derrors.InternalError("java builder received a foreign request: "+r.Description(), nil)
		}
		inputs[i] = in
	}
	return inputs, nil
}

// batch is the merged view of the inputs of one compiler invocation.
type batch struct {
	base       *Input
	files      []string
	owners     map[string]*Input
	sourcePath []string
	classPath  []string
	// injected merges the injected dependencies of every input.
	injected []engine.Ref
	// archives collects archives to require, in first-use order.
	archives []string
}

func newBatch(inputs []*Input) *batch {
	bt := &batch{base: inputs[0], owners: make(map[string]*Input)}
	for _, in := range inputs {
		for _, f := range in.InputFiles {
			if _, ok := bt.owners[f]; !ok {
				bt.owners[f] = in
				bt.files = append(bt.files, f)
			}
		}
		bt.sourcePath = appendUnique(bt.sourcePath, in.SourcePath...)
		bt.classPath = appendUnique(bt.classPath, in.ClassPath...)
		bt.injected = appendRef(bt.injected, in.Injected...)
	}
	return bt
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		if !slices.Contains(dst, it) {
			dst = append(dst, it)
		}
	}
	return dst
}

func (bt *batch) requireArchive(path string) {
	bt.archives = appendUnique(bt.archives, path)
}

// BuildAll compiles inputs together and declares every dependency the
// compiler reported. Inputs must satisfy CanMerge.
func (b *Builder) BuildAll(ctx context.Context, bc engine.BuildContext, inputs []*Input) error {
	if len(inputs) == 0 {
		return derrors.InternalError("no inputs to build", nil)
	}
	if err := CanMerge(inputs); err != nil {
		return err
	}
	bt := newBatch(inputs)

	for _, dep := range bt.injected {
		if err := bc.RequireBuild(ctx, dep); err != nil {
			return err
		}
	}
	for _, f := range bt.files {
		if err := bc.Require(f, stamp.Content); err != nil {
			return err
		}
	}

	inv := javac.Invocation{
		Sources:       bt.files,
		TargetDir:     bt.base.TargetDir,
		SourcePath:    bt.sourcePath,
		ClassPath:     bt.classPath,
		SourceRelease: bt.base.SourceRelease,
		TargetRelease: bt.base.TargetRelease,
		ExtraArgs:     bt.base.ExtraArgs,
	}
	res, err := b.compile(ctx, bt.base.Compiler, inv)
	if err != nil {
		return err
	}

	for _, src := range res.Sources() {
		owner, ok := bt.owners[src]
		if !ok {
			owner = bt.base
		}
		for _, gen := range res.SourceToGenerated[src] {
			bc.Provide(owner, gen)
		}
	}

	for _, src := range res.Sources() {
		if _, isInput := bt.owners[src]; isInput {
			continue
		}
		if err := b.installSourceDep(ctx, bc, bt, src); err != nil {
			return err
		}
	}

	classPath := inv.EffectiveClassPath()
	for _, cf := range res.LoadedClassFiles {
		if rel, ok := relUnder(bt.base.TargetDir, cf); ok {
			if err := b.installPeerDep(ctx, bc, bt, cf, rel); err != nil {
				return err
			}
			continue
		}
		if err := installBinaryDep(bc, bt, classPath, cf); err != nil {
			return err
		}
	}

	for _, archive := range res.Archives() {
		if err := installArchiveDep(bc, bt, classPath, archive, res.LoadedFromArchive[archive]); err != nil {
			return err
		}
	}
	for _, archive := range bt.archives {
		if err := bc.Require(archive, stamp.Modified); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) compile(ctx context.Context, name string, inv javac.Invocation) (*javac.Result, error) {
	compiler, err := b.compilers.Lookup(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(inv.TargetDir, 0o750); err != nil {
		return nil, derrors.FileSystemError("create target directory", inv.TargetDir, err)
	}

	log := b.logger.With(logfields.Compiler(compiler.Name()), logfields.TargetDir(inv.TargetDir))
	log.DebugContext(ctx, "Compiling", logfields.Count(len(inv.Sources)))
	start := time.Now()
	res, err := compiler.Compile(ctx, inv)
	elapsed := time.Since(start)

	label := metrics.ResultSuccess
	var pe *javac.ProcessError
	switch {
	case errors.As(err, &pe) && pe.TimedOut:
		label = metrics.ResultTimeout
	case err != nil:
		label = metrics.ResultFailure
	}
	b.recorder.IncCompilerInvocation(compiler.Name(), label)
	b.recorder.ObserveCompileDuration(compiler.Name(), elapsed, label)

	if err != nil {
		log.DebugContext(ctx, "Compilation failed", logfields.Error(err))
		return nil, err
	}
	log.DebugContext(ctx, "Compiled",
		logfields.Count(res.GeneratedCount()),
		logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	return res, nil
}

// installSourceDep handles a source the compiler parsed but was not asked to
// compile.
func (b *Builder) installSourceDep(ctx context.Context, bc engine.BuildContext, bt *batch, src string) error {
	for _, sp := range bt.sourcePath {
		if rel, ok := relUnder(sp, src); ok {
			return b.resolveSource(ctx, bc, bt, rel, src)
		}
	}
	return bc.Require(src, stamp.Modified)
}

// installPeerDep handles a class file read back from the target directory:
// the source it was compiled from is brought up to date first.
func (b *Builder) installPeerDep(ctx context.Context, bc engine.BuildContext, bt *batch, classFile, rel string) error {
	if err := b.resolveSource(ctx, bc, bt, sourceNameForClass(rel), ""); err != nil {
		return err
	}
	return bc.Require(classFile, stamp.Modified)
}

// resolveSource walks the source path for rel. Entries searched before the
// match are required absent; a match outside the batch is built first. known
// is a path the compiler reported, required even when the walk finds nothing.
func (b *Builder) resolveSource(ctx context.Context, bc engine.BuildContext, bt *batch, rel, known string) error {
	for _, sp := range bt.sourcePath {
		candidate := filepath.Join(sp, rel)
		if !isFile(candidate) {
			if err := bc.Require(candidate, stamp.Exists); err != nil {
				return err
			}
			continue
		}
		if _, isInput := bt.owners[candidate]; !isInput {
			if err := bc.RequireBuild(ctx, bt.base.derive(candidate, bt.injected)); err != nil {
				return err
			}
		}
		return bc.Require(candidate, stamp.Modified)
	}
	if known != "" {
		return bc.Require(known, stamp.Modified)
	}
	return nil
}

// installBinaryDep handles a class file read from outside the target
// directory. The classpath is searched in order: archives before the match
// are required, directories before it must keep lacking the class.
func installBinaryDep(bc engine.BuildContext, bt *batch, classPath []string, classFile string) error {
	rel := ""
	for _, entry := range classPath {
		if r, ok := relUnder(entry, classFile); ok {
			rel = r
			break
		}
	}
	if rel == "" {
		return bc.Require(classFile, stamp.Modified)
	}

	for _, entry := range classPath {
		if isArchive(entry) {
			bt.requireArchive(entry)
			continue
		}
		candidate := filepath.Join(entry, rel)
		if candidate == classFile {
			return bc.Require(classFile, stamp.Modified)
		}
		if err := bc.Require(candidate, stamp.Exists); err != nil {
			return err
		}
	}
	return bc.Require(classFile, stamp.Modified)
}

// installArchiveDep requires archive and every archive searched before it,
// and for every classpath directory searched before it the continued
// absence of the entries read from it. java.lang entries are also found
// unqualified; other java.* entries cannot be shadowed.
func installArchiveDep(bc engine.BuildContext, bt *batch, classPath []string, archive string, entries *javac.ArchiveEntries) error {
	bt.requireArchive(archive)
	for _, entry := range classPath {
		if entry == archive {
			break
		}
		if isArchive(entry) {
			bt.requireArchive(entry)
			continue
		}
		if entries == nil || entries.All {
			continue
		}
		for _, name := range entries.Entries {
			switch {
			case strings.HasPrefix(name, "java/lang/"):
				name = strings.TrimPrefix(name, "java/lang/")
			case strings.HasPrefix(name, "java/"):
				continue
			}
			if err := bc.Require(filepath.Join(entry, filepath.FromSlash(name)), stamp.Exists); err != nil {
				return err
			}
			if entry != bt.base.TargetDir {
				continue
			}
			src := sourceNameForClass(name)
			for _, sp := range bt.sourcePath {
				if err := bc.Require(filepath.Join(sp, src), stamp.Exists); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// sourceNameForClass maps "p/A$1.class" to "p/A.java".
func sourceNameForClass(rel string) string {
	rel = strings.TrimSuffix(rel, ".class")
	base := filepath.Base(rel)
	if i := strings.IndexByte(base, '$'); i >= 0 {
		rel = rel[:len(rel)-len(base)+i]
	}
	return filepath.FromSlash(rel) + ".java"
}

// relUnder returns path relative to dir when path lies inside dir.
func relUnder(dir, path string) (string, bool) {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

// isArchive reports whether a classpath entry is an archive rather than a
// directory. Missing entries count as directories unless named like archives.
func isArchive(entry string) bool {
	switch strings.ToLower(filepath.Ext(entry)) {
	case ".jar", ".zip":
		return true
	}
	return isFile(entry)
}
