package javac

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
)

func TestInvocationArgs(t *testing.T) {
	inv := Invocation{
		Sources:       []string{"/w/src/A.java", "/w/src/B.java"},
		TargetDir:     "/w/bin",
		SourcePath:    []string{"/w/src", "/w/gen"},
		ClassPath:     []string{"/w/bin", "/w/lib.jar"},
		SourceRelease: "8",
		TargetRelease: "8",
		ExtraArgs:     []string{"-g"},
	}
	sep := string(os.PathListSeparator)

	args := inv.Args(Javac)
	assert.Equal(t, []string{
		"-sourcepath", "/w/src" + sep + "/w/gen",
		"-cp", "/w/bin" + sep + "/w/lib.jar",
		"-d", "/w/bin",
		"-nowarn", "-verbose", "-implicit:none",
		"-source", "8",
		"-target", "8",
		"-g",
		"/w/src/A.java", "/w/src/B.java",
	}, args)

	ecj := strings.Join(inv.Args(Ecj), " ")
	assert.Contains(t, ecj, "-Xemacs")
	assert.NotContains(t, ecj, "-implicit:none")
}

func TestEffectiveClassPathPutsTargetFirst(t *testing.T) {
	inv := Invocation{TargetDir: "/w/bin", ClassPath: []string{"/w/lib", "/w/bin"}}
	assert.Equal(t, []string{"/w/bin", "/w/lib"}, inv.EffectiveClassPath())
}

func TestInvocationValidate(t *testing.T) {
	ok := Invocation{Sources: []string{"/w/A.java"}, TargetDir: "/w/bin", SourcePath: []string{"/w"}}
	require.NoError(t, ok.Validate())

	missing := ok
	missing.Sources = nil
	assert.True(t, derrors.IsCategory(missing.Validate(), derrors.CategoryValidation))

	relative := ok
	relative.TargetDir = "bin"
	assert.Error(t, relative.Validate())
}

func TestRegistryLookup(t *testing.T) {
	javacC := NewProcessCompiler(Javac)
	ecjC := NewProcessCompiler(Ecj, "java", "-jar", "ecj.jar")
	r := NewRegistry(javacC, ecjC)

	c, err := r.Lookup("")
	require.NoError(t, err)
	assert.Equal(t, "javac", c.Name())

	c, err = r.Lookup("ecj")
	require.NoError(t, err)
	assert.Equal(t, []string{"java", "-jar", "ecj.jar"}, c.(ProcessCompiler).Command)

	_, err = r.Lookup("jikes")
	assert.True(t, derrors.IsCategory(err, derrors.CategoryConfig))
	assert.Equal(t, []string{"ecj", "javac"}, r.Names())
}
