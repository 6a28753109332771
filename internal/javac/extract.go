package javac

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Extractor turns verbose compiler output into a Result. SourcePath,
// TargetDir and ClassPath must be the values the compiler was invoked with.
type Extractor struct {
	Dialect    Dialect
	SourcePath []string
	TargetDir  string
	ClassPath  []string
}

// scan holds the state of one forward pass over the output.
type scan struct {
	x       Extractor
	raw     string
	result  *Result
	current string
	// parsed maps a slash-separated module name ("p/A") to its source file.
	parsed map[string]string
	diags  []Diagnostic
}

// Extract scans output in emission order. Any error diagnostic yields a
// *CompileError; output the dialect cannot account for yields a *ParseError.
func (x Extractor) Extract(output string) (*Result, error) {
	s := &scan{
		x:      x,
		raw:    output,
		result: NewResult(),
		parsed: make(map[string]string),
	}

	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	for i := 0; i < len(lines); i++ {
		next, err := s.line(lines, i)
		if err != nil {
			return nil, err
		}
		i = next
	}

	if len(s.diags) > 0 {
		return nil, &CompileError{Diagnostics: s.diags}
	}
	return s.result, nil
}

// line handles lines[i] and returns the index of the last line it consumed.
func (s *scan) line(lines []string, i int) (int, error) {
	line := lines[i]
	d := s.x.Dialect

	if p, ok := matchPrefix(line, d.ParsingPrefixes); ok {
		s.parsing(d.markerPath(line, p))
		return i, nil
	}
	if p, ok := matchPrefix(line, d.UnitPrefixes); ok {
		s.unit(d.markerPath(line, p))
		return i, nil
	}
	if p, ok := matchPrefix(line, d.OutputPrefixes); ok {
		return i, s.output(d.markerPath(line, p), i)
	}
	if p, ok := matchPrefix(line, d.LoadPrefixes); ok {
		s.load(d.markerPath(line, p))
		return i, nil
	}
	if d.ErrorMarker != "" && strings.Contains(line, d.ErrorMarker) {
		return s.diagnostic(lines, i)
	}
	return i, nil
}

func (s *scan) parsing(path string) {
	if path == "" {
		return
	}
	path = filepath.Clean(path)
	s.result.AddSourceFile(path)
	for _, sp := range s.x.SourcePath {
		rel, err := filepath.Rel(sp, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
		if _, ok := s.parsed[key]; !ok {
			s.parsed[key] = path
		}
	}
}

func (s *scan) unit(name string) {
	if name == "" {
		return
	}
	if s.x.Dialect.UnitIsPath {
		s.current = filepath.Clean(name)
		s.result.AddSourceFile(s.current)
		return
	}
	if src, ok := s.parsed[strings.ReplaceAll(name, ".", "/")]; ok {
		s.current = src
	}
}

func (s *scan) output(path string, lineNo int) error {
	if path == "" {
		return nil
	}
	if !filepath.IsAbs(path) && (s.x.Dialect.OutputRelativeToTarget || s.x.TargetDir != "") {
		path = filepath.Join(s.x.TargetDir, path)
	}
	path = filepath.Clean(path)

	owner := s.current
	if owner == "" {
		owner = s.ownerByClassName(path)
	}
	if owner == "" {
		return &ParseError{
			Reason: fmt.Sprintf("output %s written outside any compilation unit", path),
			Line:   lineNo + 1,
			Raw:    s.raw,
		}
	}
	s.result.AddGeneratedFile(owner, path)
	return nil
}

// ownerByClassName maps "bin/p/A$1.class" to the parsed source of "p/A".
func (s *scan) ownerByClassName(path string) string {
	rel, err := filepath.Rel(s.x.TargetDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	name := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
	if i := strings.IndexByte(name, '$'); i >= 0 {
		name = name[:i]
	}
	return s.parsed[name]
}

func (s *scan) load(path string) {
	d := s.x.Dialect
	if path == "" || d.isPlatform(path) {
		return
	}
	if archive, entry, ok := d.splitArchive(path); ok {
		archive = filepath.Clean(archive)
		entry = strings.TrimLeft(filepath.ToSlash(entry), "/")
		if entry == "" {
			s.result.AddWholeArchive(archive)
			return
		}
		s.result.AddArchiveEntry(archive, normalizeArchiveEntry(archive, entry))
		return
	}
	if strings.HasSuffix(path, ".java") {
		return
	}
	if !filepath.IsAbs(path) {
		resolved, ok := s.resolveOnClassPath(path)
		if !ok {
			// Names found on no classpath directory come from the platform.
			return
		}
		path = resolved
	}
	s.result.AddLoadedClassFile(filepath.Clean(path))
}

func (s *scan) resolveOnClassPath(rel string) (string, bool) {
	for _, entry := range s.x.ClassPath {
		info, err := os.Stat(entry)
		if err != nil || !info.IsDir() {
			continue
		}
		candidate := filepath.Join(entry, filepath.FromSlash(rel))
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// location is the "file:line" head of an error line.
type location struct {
	file    string
	line    int
	message string
}

// errorLocation splits "file:line: error: message". A non-empty reason
// explains why line is not an error location. Echoed source lines are
// indented or lack a line number, so they never parse.
func (d Dialect) errorLocation(line string) (location, string) {
	at := strings.Index(line, d.ErrorMarker)
	if at < 0 {
		return location{}, "no error marker"
	}
	head, message := line[:at], strings.TrimSpace(line[at+len(d.ErrorMarker):])
	colon := strings.LastIndexByte(head, ':')
	if colon <= 0 || strings.TrimLeft(head, " \t") != head {
		return location{}, "error without file:line location"
	}
	n, err := strconv.Atoi(strings.TrimSpace(head[colon+1:]))
	if err != nil || n <= 0 {
		return location{}, fmt.Sprintf("bad line number %q", head[colon+1:])
	}
	return location{file: filepath.Clean(head[:colon]), line: n, message: message}, ""
}

// diagnostic parses "file:line: error: message" followed, before the next
// error location, by a line holding the column marker. Lines in between
// echo the offending source and may contain anything.
func (s *scan) diagnostic(lines []string, i int) (int, error) {
	d := s.x.Dialect
	loc, reason := d.errorLocation(lines[i])
	if reason != "" {
		return i, s.parseError(i, reason)
	}

	for j := i + 1; j < len(lines); j++ {
		if _, reason := d.errorLocation(lines[j]); reason == "" {
			break
		}
		if strings.HasPrefix(strings.TrimLeft(lines[j], " \t"), d.CaretMarker) {
			s.diags = append(s.diags, Diagnostic{
				File:    loc.file,
				Line:    loc.line,
				Column:  strings.Index(lines[j], d.CaretMarker) + 1,
				Message: loc.message,
			})
			return j, nil
		}
	}
	return i, s.parseError(i, "no column marker after error")
}

func (s *scan) parseError(i int, reason string) error {
	return &ParseError{
		Reason:      reason,
		Line:        i + 1,
		Raw:         s.raw,
		Diagnostics: append([]Diagnostic(nil), s.diags...),
	}
}
