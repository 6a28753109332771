// Package testjavac provides a scripted in-process compiler speaking the
// javac verbose dialect, for tests that must not depend on a JDK.
//
// The compiler understands a toy subset of Java: an optional
// "package a.b;" line and "class Name" declarations, the first of which must
// match the file name (later ones become nested classes). Every other
// capitalised identifier is a reference to a type, resolved the way javac
// does: sources in the batch, then class files and sources on the search
// paths (the newer wins), then the platform. Unresolvable names are reported
// as "cannot find symbol" errors with a column marker.
package testjavac

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"git.home.luguber.info/inful/javabuild/internal/javac"
)

// FailMode defines how the test compiler misbehaves.
type FailMode int

const (
	FailModeNone FailMode = iota
	// FailModeCrash exits unsuccessfully without diagnostics.
	FailModeCrash
	// FailModeNoCaret reports errors without a column marker line.
	FailModeNoCaret
)

// PlatformClasses are the java.lang names resolved from PlatformArchive.
var PlatformClasses = []string{"Object", "String", "Integer", "System", "Runnable"}

// TestJavac records every invocation it receives.
type TestJavac struct {
	// PlatformArchive stands in for the JDK symbol file.
	PlatformArchive string
	FailMode        FailMode

	mu          sync.Mutex
	invocations [][]string
}

// New returns a test compiler whose platform classes live in platformArchive.
func New(platformArchive string) *TestJavac {
	return &TestJavac{PlatformArchive: platformArchive}
}

// Compiler wraps t as an EmbeddedCompiler named "javac".
func (t *TestJavac) Compiler() javac.EmbeddedCompiler {
	return javac.EmbeddedCompiler{Dialect: javac.Javac, Entry: t.Run}
}

// Invocations returns the sources passed to each run, in call order.
func (t *TestJavac) Invocations() [][]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]string, len(t.invocations))
	for i, inv := range t.invocations {
		out[i] = slices.Clone(inv)
	}
	return out
}

// Count returns the number of runs so far.
func (t *TestJavac) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.invocations)
}

// Reset forgets recorded invocations.
func (t *TestJavac) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.invocations = nil
}

type options struct {
	sourcePath []string
	classPath  []string
	targetDir  string
	sources    []string
}

func parseArgs(args []string) options {
	var o options
	for i := 0; i < len(args); i++ {
		switch a := args[i]; a {
		case "-sourcepath":
			i++
			o.sourcePath = filepath.SplitList(args[i])
		case "-cp", "-classpath":
			i++
			o.classPath = filepath.SplitList(args[i])
		case "-d":
			i++
			o.targetDir = args[i]
		case "-source", "-target", "--release":
			i++
		default:
			if !strings.HasPrefix(a, "-") {
				o.sources = append(o.sources, a)
			}
		}
	}
	return o
}

var (
	packageRe = regexp.MustCompile(`^\s*package\s+([\w.]+)\s*;`)
	classRe   = regexp.MustCompile(`\bclass\s+([A-Z]\w*)`)
	typeRe    = regexp.MustCompile(`\b[A-Z]\w*\b`)
)

type unit struct {
	path    string
	pkg     string
	name    string
	lines   []string
	nested  []string
	content []byte
}

func (u *unit) qualified() string {
	if u.pkg == "" {
		return u.name
	}
	return u.pkg + "." + u.name
}

func (u *unit) dir() string { return filepath.FromSlash(strings.ReplaceAll(u.pkg, ".", "/")) }

func readUnit(path string) (*unit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	u := &unit{path: path, content: content, name: strings.TrimSuffix(filepath.Base(path), ".java")}
	u.lines = strings.Split(string(content), "\n")
	for _, line := range u.lines {
		if m := packageRe.FindStringSubmatch(line); m != nil {
			u.pkg = m[1]
		}
		for _, m := range classRe.FindAllStringSubmatch(line, -1) {
			if m[1] != u.name && !slices.Contains(u.nested, m[1]) {
				u.nested = append(u.nested, m[1])
			}
		}
	}
	return u, nil
}

type session struct {
	t      *TestJavac
	o      options
	out    io.Writer
	units  map[string]*unit // qualified name -> batch unit
	parsed map[string]bool
	errors []string
}

// Run is the javac.EntryPoint.
func (t *TestJavac) Run(_ context.Context, args []string, stdout, _ io.Writer) bool {
	o := parseArgs(args)
	t.mu.Lock()
	t.invocations = append(t.invocations, slices.Clone(o.sources))
	mode := t.FailMode
	t.mu.Unlock()

	if mode == FailModeCrash {
		fmt.Fprintln(stdout, "An exception has occurred in the compiler. Please file a bug.")
		return false
	}

	s := &session{t: t, o: o, out: stdout, units: map[string]*unit{}, parsed: map[string]bool{}}
	var batch []*unit
	for _, src := range o.sources {
		s.printf("[parsing started RegularFileObject[%s]]", src)
		u, err := readUnit(src)
		if err != nil {
			s.printf("error: file not found: %s", src)
			return false
		}
		s.parsed[src] = true
		s.units[u.qualified()] = u
		batch = append(batch, u)
		s.printf("[parsing completed 1ms]")
	}
	s.printf("[search path for source files: %s]", strings.Join(o.sourcePath, ","))
	s.printf("[search path for class files: %s]", strings.Join(o.classPath, ","))

	for _, u := range batch {
		s.resolve(u, mode)
	}
	if len(s.errors) > 0 {
		for _, e := range s.errors {
			fmt.Fprint(s.out, e)
		}
		if len(s.errors) == 1 {
			s.printf("1 error")
		} else {
			s.printf("%d errors", len(s.errors))
		}
		return false
	}

	for _, u := range batch {
		s.printf("[checking %s]", u.qualified())
		classes := append([]string{u.name}, prefixed(u.name, u.nested)...)
		for _, c := range classes {
			out := filepath.Join(o.targetDir, u.dir(), c+".class")
			if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
				s.printf("error: %v", err)
				return false
			}
			if err := os.WriteFile(out, u.content, 0o600); err != nil {
				s.printf("error: %v", err)
				return false
			}
			s.printf("[wrote RegularFileObject[%s]]", out)
		}
	}
	s.printf("[total 3ms]")
	return true
}

func prefixed(outer string, nested []string) []string {
	out := make([]string, len(nested))
	for i, n := range nested {
		out[i] = outer + "$" + n
	}
	return out
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *session) resolve(u *unit, mode FailMode) {
	seen := map[string]bool{u.name: true}
	for _, n := range u.nested {
		seen[n] = true
	}
	for i, line := range u.lines {
		if packageRe.MatchString(line) {
			continue
		}
		for _, loc := range typeRe.FindAllStringIndex(line, -1) {
			name := line[loc[0]:loc[1]]
			if seen[name] {
				continue
			}
			seen[name] = true
			if s.lookup(u, name) {
				continue
			}
			msg := fmt.Sprintf("%s:%d: error: cannot find symbol\n%s\n", u.path, i+1, line)
			if mode != FailModeNoCaret {
				msg += strings.Repeat(" ", loc[0]) + "^\n"
			}
			msg += fmt.Sprintf("  symbol:   class %s\n", name)
			s.errors = append(s.errors, msg)
		}
	}
}

// lookup resolves name from u's package, then java.lang.
func (s *session) lookup(u *unit, name string) bool {
	qualified := name
	if u.pkg != "" {
		qualified = u.pkg + "." + name
	}
	if _, ok := s.units[qualified]; ok {
		return true
	}
	rel := filepath.Join(u.dir(), name)

	classFile := s.findClass(rel + ".class")
	source := s.findSource(rel + ".java")
	switch {
	case classFile != "" && (source == "" || !newer(source, classFile)):
		s.printf("[loading RegularFileObject[%s]]", classFile)
		return true
	case source != "":
		if !s.parsed[source] {
			s.parsed[source] = true
			s.printf("[parsing started RegularFileObject[%s]]", source)
			s.printf("[parsing completed 0ms]")
		}
		return true
	}
	if slices.Contains(PlatformClasses, name) {
		s.printf("[loading ZipFileIndexFileObject[%s(META-INF/sym/rt.jar/java/lang/%s.class)]]", s.t.PlatformArchive, name)
		return true
	}
	return false
}

func (s *session) findClass(rel string) string {
	for _, dir := range s.o.classPath {
		p := filepath.Join(dir, rel)
		if isFile(p) {
			return p
		}
	}
	return ""
}

func (s *session) findSource(rel string) string {
	for _, dir := range s.o.sourcePath {
		p := filepath.Join(dir, rel)
		if isFile(p) {
			return p
		}
	}
	return ""
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func newer(a, b string) bool {
	fa, errA := os.Stat(a)
	fb, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return false
	}
	return fa.ModTime().After(fb.ModTime())
}
