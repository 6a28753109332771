package javac

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(ls ...string) string { return strings.Join(ls, "\n") + "\n" }

func TestExtractJavacLegacyVerboseOutput(t *testing.T) {
	x := Extractor{
		Dialect:    Javac,
		SourcePath: []string{"/w/src"},
		TargetDir:  "/w/bin",
		ClassPath:  []string{"/w/bin", "/w/lib.jar"},
	}
	out := lines(
		"[parsing started RegularFileObject[/w/src/p/A.java]]",
		"[parsing completed 12ms]",
		"[search path for source files: /w/src]",
		"[search path for class files: /jdk/jre/lib/rt.jar,/w/bin,/w/lib.jar]",
		"[loading ZipFileIndexFileObject[/jdk/lib/ct.sym(META-INF/sym/rt.jar/java/lang/Object.class)]]",
		"[loading ZipFileIndexFileObject[/w/lib.jar(q/Q.class)]]",
		"[loading RegularFileObject[/w/bin/p/B.class]]",
		"[parsing started RegularFileObject[/w/src/p/C.java]]",
		"[parsing completed 0ms]",
		"[checking p.A]",
		"[loading ZipFileIndexFileObject[/jdk/lib/ct.sym(META-INF/sym/rt.jar/java/lang/String.class)]]",
		"[wrote RegularFileObject[/w/bin/p/A.class]]",
		"[wrote RegularFileObject[/w/bin/p/A$1.class]]",
		"[total 80ms]",
	)

	res, err := x.Extract(out)
	require.NoError(t, err)

	assert.Equal(t, []string{"/w/bin/p/A.class", "/w/bin/p/A$1.class"}, res.SourceToGenerated["/w/src/p/A.java"])
	assert.Contains(t, res.SourceToGenerated, "/w/src/p/C.java")
	assert.Empty(t, res.SourceToGenerated["/w/src/p/C.java"])
	assert.Equal(t, []string{"/w/bin/p/B.class"}, res.LoadedClassFiles)
	assert.Equal(t, []string{"java/lang/Object.class", "java/lang/String.class"}, res.LoadedFromArchive["/jdk/lib/ct.sym"].Entries)
	assert.Equal(t, []string{"q/Q.class"}, res.LoadedFromArchive["/w/lib.jar"].Entries)
	assert.Equal(t, 2, res.GeneratedCount())
}

func TestExtractJavacModernVerboseOutput(t *testing.T) {
	x := Extractor{
		Dialect:    Javac,
		SourcePath: []string{"/w/src"},
		TargetDir:  "/w/bin",
		ClassPath:  []string{"/w/bin", "/w/libs"},
	}
	out := lines(
		"[parsing started SimpleFileObject[/w/src/A.java]]",
		"[parsing completed 20ms]",
		"[loading /modules/java.base/java/lang/Object.class]",
		"[loading /jdk/lib/ct.sym(9ABCDEFGHIJKLMN/java.base/java/lang/String.sig)]",
		"[loading /w/libs/x.jar(/x/X.class)]",
		"[loading DirectoryFileObject[/w/libs:y/Y.class]]",
		"[checking A]",
		"[wrote DirectoryFileObject[/w/bin:A.class]]",
		"[total 300ms]",
	)

	res, err := x.Extract(out)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.FromSlash("/w/bin/A.class")}, res.SourceToGenerated["/w/src/A.java"])
	assert.Equal(t, []string{filepath.FromSlash("/w/libs/y/Y.class")}, res.LoadedClassFiles)
	assert.Equal(t, []string{"java/lang/String.class"}, res.LoadedFromArchive["/jdk/lib/ct.sym"].Entries)
	assert.Equal(t, []string{"x/X.class"}, res.LoadedFromArchive["/w/libs/x.jar"].Entries)
	assert.Len(t, res.LoadedFromArchive, 2, "platform image paths are not dependencies")
}

func TestExtractArchiveTruncation(t *testing.T) {
	x := Extractor{Dialect: Javac, SourcePath: []string{"/w/src"}, TargetDir: "/w/bin"}
	out := lines(
		"[loading /w/lib/a.jar/p/Q.class]",
		"[loading /w/lib/b.jar]",
		"[loading /w/lib/b.jar(p/R.class)]",
		"[loading /w/src/p/S.java]",
	)

	res, err := x.Extract(out)
	require.NoError(t, err)
	assert.Equal(t, &ArchiveEntries{Entries: []string{"p/Q.class"}}, res.LoadedFromArchive["/w/lib/a.jar"])
	assert.Equal(t, &ArchiveEntries{All: true}, res.LoadedFromArchive["/w/lib/b.jar"], "whole-archive use absorbs entries")
	assert.Empty(t, res.LoadedClassFiles, "sources are never class dependencies")
}

func TestExtractEcjOutput(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	bin := filepath.Join(root, "bin")
	lib := filepath.Join(root, "lib")
	require.NoError(t, os.MkdirAll(filepath.Join(lib, "q"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "q", "Q.class"), []byte("cafebabe"), 0o600))

	x := Extractor{
		Dialect:    Ecj,
		SourcePath: []string{src},
		TargetDir:  bin,
		ClassPath:  []string{bin, lib},
	}
	a := filepath.Join(src, "p", "A.java")
	out := lines(
		"[parsing    "+a+" - #1/1]",
		"[reading    java/lang/Object.class]",
		"[reading    q/Q.class]",
		"[analyzing  "+a+" - #1/1]",
		"[writing    p/A.class - #1]",
		"[completed  "+a+" - #1/1]",
		"[1 unit compiled]",
		"[1 .class file generated]",
	)

	res, err := x.Extract(out)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(bin, "p", "A.class")}, res.SourceToGenerated[a])
	assert.Equal(t, []string{filepath.Join(lib, "q", "Q.class")}, res.LoadedClassFiles)
	assert.Empty(t, res.LoadedFromArchive)
}

func TestExtractCompileErrors(t *testing.T) {
	x := Extractor{Dialect: Javac, SourcePath: []string{"/w/src"}, TargetDir: "/w/bin"}
	out := lines(
		"[parsing started RegularFileObject[/w/src/A.java]]",
		"/w/src/A.java:3: error: cannot find symbol",
		"    B b;",
		"    ^",
		"  symbol:   class B",
		"  location: class A",
		"/w/src/A.java:5: error: ';' expected",
		"  int x = 1",
		"           ^",
		"2 errors",
	)

	_, err := x.Extract(out)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []Diagnostic{
		{File: "/w/src/A.java", Line: 3, Column: 5, Message: "cannot find symbol"},
		{File: "/w/src/A.java", Line: 5, Column: 12, Message: "';' expected"},
	}, ce.Diagnostics)
	assert.Equal(t, []string{
		"/w/src/A.java:3:5: cannot find symbol",
		"/w/src/A.java:5:12: ';' expected",
	}, ce.Details())
}

func TestExtractMissingCaretIsParseError(t *testing.T) {
	x := Extractor{Dialect: Javac, SourcePath: []string{"/w/src"}, TargetDir: "/w/bin"}
	out := lines(
		"/w/src/A.java:3: error: cannot find symbol",
		"/w/src/B.java:4: error: cannot find symbol",
		"    A a;",
		"    ^",
	)

	_, err := x.Extract(out)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Line)
	assert.Equal(t, out, pe.Raw)
	assert.Contains(t, pe.Reason, "column marker")
}

func TestExtractEchoedSourceMayContainErrorMarker(t *testing.T) {
	x := Extractor{Dialect: Javac, SourcePath: []string{"/w/src"}, TargetDir: "/w/bin"}
	out := lines(
		"/w/src/A.java:3: error: incompatible types: String cannot be converted to int",
		`    int s = "a: error: b";`,
		"            ^",
		"/w/src/A.java:4: error: cannot find symbol",
		`    log("/w/src/B.java:9: error: x", q);`,
		"                                     ^",
	)

	_, err := x.Extract(out)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []Diagnostic{
		{File: "/w/src/A.java", Line: 3, Column: 13, Message: "incompatible types: String cannot be converted to int"},
		{File: "/w/src/A.java", Line: 4, Column: 38, Message: "cannot find symbol"},
	}, ce.Diagnostics)
}

func TestErrorLocation(t *testing.T) {
	tests := []struct {
		line   string
		want   location
		reason string
	}{
		{line: "/w/A.java:3: error: boom", want: location{file: "/w/A.java", line: 3, message: "boom"}},
		{line: `    String s = "a: error: b";`, reason: "location"},
		{line: `  x("/w/B.java:9: error: y");`, reason: "location"},
		{line: "/w/A.java:0: error: boom", reason: "bad line number"},
		{line: "plain output", reason: "no error marker"},
	}
	for _, tt := range tests {
		got, reason := Javac.errorLocation(tt.line)
		if tt.reason != "" {
			assert.Contains(t, reason, tt.reason, tt.line)
			continue
		}
		assert.Empty(t, reason, tt.line)
		assert.Equal(t, tt.want, got)
	}
}

func TestExtractBadLineNumberIsParseError(t *testing.T) {
	x := Extractor{Dialect: Javac, SourcePath: []string{"/w/src"}, TargetDir: "/w/bin"}
	_, err := x.Extract(lines("/w/src/A.java:three: error: oops", "^"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Reason, "three")
}

func TestExtractAttributesOrphanOutputByClassName(t *testing.T) {
	x := Extractor{Dialect: Javac, SourcePath: []string{"/w/src"}, TargetDir: "/w/bin"}
	out := lines(
		"[parsing started /w/src/p/A.java]",
		"[wrote /w/bin/p/A$Inner.class]",
	)
	res, err := x.Extract(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"/w/bin/p/A$Inner.class"}, res.SourceToGenerated["/w/src/p/A.java"])
}

func TestExtractUnattributableOutputIsParseError(t *testing.T) {
	x := Extractor{Dialect: Javac, SourcePath: []string{"/w/src"}, TargetDir: "/w/bin"}
	_, err := x.Extract(lines("[wrote /w/bin/Nobody.class]"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Line)
}

func TestExtractUnmatchedUnitKeepsCurrentSource(t *testing.T) {
	x := Extractor{Dialect: Javac, SourcePath: []string{"/w/src"}, TargetDir: "/w/bin"}
	out := lines(
		"[parsing started /w/src/A.java]",
		"[checking A]",
		"[checking elsewhere.Z]",
		"[wrote /w/bin/A.class]",
	)
	res, err := x.Extract(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"/w/bin/A.class"}, res.SourceToGenerated["/w/src/A.java"])
}

func TestNormalizeArchiveEntry(t *testing.T) {
	tests := []struct {
		archive, entry, want string
	}{
		{"/jdk/lib/ct.sym", "META-INF/sym/rt.jar/java/util/List.class", "java/util/List.class"},
		{"/jdk/lib/ct.sym", "8/java.base/java/util/List.sig", "java/util/List.class"},
		{"/w/lib.jar", "p/Q.class", "p/Q.class"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeArchiveEntry(tt.archive, tt.entry), tt.entry)
	}
}
