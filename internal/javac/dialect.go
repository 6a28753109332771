package javac

import (
	"path/filepath"
	"strings"
	"unicode"
)

// Dialect is the token table for one compiler's verbose output. Supporting a
// further compiler means adding a table, not a code path.
type Dialect struct {
	Name string

	// Flags are passed on every invocation to switch on verbose output and
	// the error format the extractor understands.
	Flags []string

	ParsingPrefixes []string
	UnitPrefixes    []string
	// UnitIsPath is set when the unit marker names a source file rather than
	// a qualified class name.
	UnitIsPath     bool
	OutputPrefixes []string
	// OutputRelativeToTarget is set when written paths are relative to the
	// output directory.
	OutputRelativeToTarget bool
	LoadPrefixes           []string

	// PathTerminators end a marker's path; the earliest occurrence wins.
	PathTerminators []string
	// DirectoryWrappers name file-object wrappers printed as "dir:relative".
	DirectoryWrappers []string
	// PlatformPrefixes mark loaded paths inside the runtime image; they are
	// not files on disk and carry no dependency.
	PlatformPrefixes []string
	// ArchiveSuffixes identify archives inside loaded paths.
	ArchiveSuffixes []string

	ErrorMarker string
	CaretMarker string
}

// Javac is the dialect of the JDK compiler run with -verbose.
var Javac = Dialect{
	Name:              "javac",
	Flags:             []string{"-nowarn", "-verbose", "-implicit:none"},
	ParsingPrefixes:   []string{"[parsing started"},
	UnitPrefixes:      []string{"[checking"},
	OutputPrefixes:    []string{"[wrote", "[writing"},
	LoadPrefixes:      []string{"[loading"},
	PathTerminators:   []string{"]"},
	DirectoryWrappers: []string{"DirectoryFileObject"},
	PlatformPrefixes:  []string{"/modules/"},
	ArchiveSuffixes:   []string{".jar", ".sym"},
	ErrorMarker:       ": error: ",
	CaretMarker:       "^",
}

// Ecj is the dialect of the Eclipse batch compiler run with -verbose -Xemacs.
var Ecj = Dialect{
	Name:                   "ecj",
	Flags:                  []string{"-nowarn", "-verbose", "-Xemacs"},
	ParsingPrefixes:        []string{"[parsing"},
	UnitPrefixes:           []string{"[analyzing"},
	UnitIsPath:             true,
	OutputPrefixes:         []string{"[writing"},
	OutputRelativeToTarget: true,
	LoadPrefixes:           []string{"[reading"},
	PathTerminators:        []string{" - ", "]"},
	ArchiveSuffixes:        []string{".jar", ".sym"},
	ErrorMarker:            ": error: ",
	CaretMarker:            "^",
}

// Dialects lists the built-in dialects by name.
var Dialects = map[string]Dialect{
	Javac.Name: Javac,
	Ecj.Name:   Ecj,
}

func matchPrefix(line string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(line, p) {
			return p, true
		}
	}
	return "", false
}

// markerPath extracts the path carried by a marker line, unwrapping
// "Wrapper[...]" file objects.
func (d Dialect) markerPath(line, prefix string) string {
	rest := strings.TrimLeft(line[len(prefix):], " \t")

	wrapper := ""
	if i := strings.IndexByte(rest, '['); i > 0 && isIdentifier(rest[:i]) {
		wrapper = rest[:i]
		rest = rest[i+1:]
	}

	end := len(rest)
	for _, t := range d.PathTerminators {
		if i := strings.Index(rest, t); i >= 0 && i < end {
			end = i
		}
	}
	path := strings.TrimSpace(rest[:end])

	for _, w := range d.DirectoryWrappers {
		if wrapper != w {
			continue
		}
		if i := strings.LastIndexByte(path, ':'); i > 0 && !isDriveColon(path, i) {
			return filepath.Join(path[:i], filepath.FromSlash(path[i+1:]))
		}
	}
	return path
}

func isIdentifier(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
			return false
		}
	}
	return s != ""
}

// isDriveColon reports whether the colon at i is part of a Windows drive
// prefix such as "C:".
func isDriveColon(path string, i int) bool {
	return i == 1 && len(path) > 2 && (path[2] == '\\' || path[2] == '/')
}

func (d Dialect) isPlatform(path string) bool {
	_, ok := matchPrefix(filepath.ToSlash(path), d.PlatformPrefixes)
	return ok
}

// splitArchive recognises "archive(entry)" and "archive.jar/tail" forms. A
// truncated archive with an empty tail means the whole archive.
func (d Dialect) splitArchive(path string) (archive, entry string, ok bool) {
	if open := strings.IndexByte(path, '('); open > 0 && strings.HasSuffix(path, ")") {
		return path[:open], path[open+1 : len(path)-1], true
	}
	for _, suffix := range d.ArchiveSuffixes {
		i := strings.Index(path, suffix)
		if i < 0 {
			continue
		}
		cut := i + len(suffix)
		if cut < len(path) && path[cut] != '/' && path[cut] != '\\' {
			continue
		}
		return path[:cut], strings.TrimLeft(filepath.ToSlash(path[cut:]), "/"), true
	}
	return "", "", false
}

// normalizeArchiveEntry maps an entry inside a platform symbol file to the
// class path it stands for: "META-INF/sym/rt.jar/java/lang/Object.class" and
// "9ABCDEF/java.base/java/lang/Object.sig" both become
// "java/lang/Object.class".
func normalizeArchiveEntry(archive, entry string) string {
	if !strings.HasSuffix(archive, ".sym") {
		return entry
	}
	if i := strings.Index(entry, ".jar/"); i >= 0 {
		return entry[i+len(".jar/"):]
	}
	if strings.HasSuffix(entry, ".sig") {
		parts := strings.SplitN(entry, "/", 3)
		if len(parts) == 3 {
			entry = parts[2]
		}
		return strings.TrimSuffix(entry, ".sig") + ".class"
	}
	return entry
}
