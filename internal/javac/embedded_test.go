package javac_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/javabuild/internal/javac"
	"git.home.luguber.info/inful/javabuild/internal/testjavac"
)

func writeSource(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEmbeddedCompilerProducesResult(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	bin := filepath.Join(root, "bin")
	ctSym := filepath.Join(root, "jdk", "ct.sym")
	a := writeSource(t, filepath.Join(src, "A.java"), "class A {\n  B b;\n  String s;\n  class Inner {}\n}\n")
	b := writeSource(t, filepath.Join(src, "B.java"), "class B {}\n")

	fake := testjavac.New(ctSym)
	res, err := fake.Compiler().Compile(t.Context(), javac.Invocation{
		Sources:    []string{a},
		TargetDir:  bin,
		SourcePath: []string{src},
		ClassPath:  []string{bin},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(bin, "A.class"), filepath.Join(bin, "A$Inner.class")}, res.SourceToGenerated[a])
	assert.Contains(t, res.SourceToGenerated, b, "implicitly parsed sources are reported without outputs")
	assert.Empty(t, res.SourceToGenerated[b])
	assert.Equal(t, []string{"java/lang/String.class"}, res.LoadedFromArchive[ctSym].Entries)
	assert.FileExists(t, filepath.Join(bin, "A.class"))
	assert.NoFileExists(t, filepath.Join(bin, "B.class"))
	assert.Equal(t, [][]string{{a}}, fake.Invocations())
}

func TestEmbeddedCompilerReportsDiagnostics(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	a := writeSource(t, filepath.Join(src, "A.java"), "class A {\n  Missing m;\n}\n")

	_, err := testjavac.New("/jdk/ct.sym").Compiler().Compile(t.Context(), javac.Invocation{
		Sources:    []string{a},
		TargetDir:  filepath.Join(root, "bin"),
		SourcePath: []string{src},
	})
	var ce *javac.CompileError
	require.ErrorAs(t, err, &ce)
	require.Len(t, ce.Diagnostics, 1)
	assert.Equal(t, javac.Diagnostic{File: a, Line: 2, Column: 3, Message: "cannot find symbol"}, ce.Diagnostics[0])
}

func TestEmbeddedCompilerFailureModes(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	a := writeSource(t, filepath.Join(src, "A.java"), "class A {\n  Missing m;\n}\n")
	inv := javac.Invocation{Sources: []string{a}, TargetDir: filepath.Join(root, "bin"), SourcePath: []string{src}}

	crash := testjavac.New("/jdk/ct.sym")
	crash.FailMode = testjavac.FailModeCrash
	_, err := crash.Compiler().Compile(t.Context(), inv)
	var pe *javac.ProcessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.ExitCode)
	assert.Contains(t, pe.Output, "exception has occurred")

	noCaret := testjavac.New("/jdk/ct.sym")
	noCaret.FailMode = testjavac.FailModeNoCaret
	_, err = noCaret.Compiler().Compile(t.Context(), inv)
	var parseErr *javac.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Raw, "cannot find symbol")
}
