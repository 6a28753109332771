package javabuild

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
)

func TestNewInputDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	wd, err := filepath.Abs(".")
	require.NoError(t, err)

	in, err := NewInput(WithInputFiles("src/B.java", "src/A.java", "src/A.java"), WithSourcePath("src"))
	require.NoError(t, err)

	assert.Equal(t, wd, in.TargetDir)
	assert.Equal(t, []string{wd}, in.ClassPath)
	assert.Equal(t, []string{filepath.Join(wd, "src", "A.java"), filepath.Join(wd, "src", "B.java")}, in.InputFiles)
	assert.Equal(t, []string{filepath.Join(wd, "src")}, in.SourcePath)
	assert.Equal(t, "A.java (+1)", in.Description())
}

func TestNewInputRequiresSourcePath(t *testing.T) {
	_, err := NewInput(WithInputFiles("/w/A.java"))
	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryValidation))

	_, err = NewInput(WithSourcePath("/w"))
	require.Error(t, err)
}

func TestInputKey(t *testing.T) {
	a, err := NewInput(WithInputFiles("/w/src/A.java", "/w/src/B.java"), WithSourcePath("/w/src"), WithTargetDir("/w/bin"))
	require.NoError(t, err)
	b, err := NewInput(WithInputFiles("/w/src/B.java", "/w/src/A.java"), WithSourcePath("/w/src", "/w/gen"),
		WithTargetDir("/w/bin"), WithExtraArgs("-g"))
	require.NoError(t, err)
	c, err := NewInput(WithInputFiles("/w/src/A.java", "/w/src/B.java"), WithSourcePath("/w/src"), WithTargetDir("/w/out"))
	require.NoError(t, err)

	assert.Equal(t, a.Key(), b.Key(), "key depends on target and inputs only")
	assert.NotEqual(t, a.Key(), c.Key())
	assert.Contains(t, a.Key(), "java:")
}

func TestInputEncodeDecode(t *testing.T) {
	in, err := NewInput(
		WithInputFiles("/w/src/A.java"),
		WithSourcePath("/w/src"),
		WithTargetDir("/w/bin"),
		WithClassPath("/w/bin", "/w/lib/x.jar"),
		WithSourceRelease("17"),
		WithTargetRelease("17"),
		WithExtraArgs("-g"),
		WithCompiler("ecj"),
	)
	require.NoError(t, err)

	data, err := in.Encode()
	require.NoError(t, err)
	out, err := DecodeInput(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeInput([]byte(`{"target_dir":"/w/bin"}`))
	assert.Error(t, err)
}

func TestCanMerge(t *testing.T) {
	base := func(opts ...Option) *Input {
		in, err := NewInput(append([]Option{
			WithInputFiles("/w/src/A.java"), WithSourcePath("/w/src"), WithTargetDir("/w/bin"),
		}, opts...)...)
		require.NoError(t, err)
		return in
	}

	assert.NoError(t, CanMerge([]*Input{base()}))
	assert.NoError(t, CanMerge([]*Input{base(), base(WithClassPath("/w/lib"))}), "classpaths are merged")

	tests := []struct {
		name    string
		other   *Input
		setting string
	}{
		{"target", base(WithTargetDir("/w/out")), "target directory"},
		{"args", base(WithExtraArgs("-g")), "extra arguments"},
		{"source release", base(WithSourceRelease("8")), "source release"},
		{"target release", base(WithTargetRelease("8")), "target release"},
		{"compiler", base(WithCompiler("ecj")), "compiler"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanMerge([]*Input{base(), tt.other})
			var cu *CycleUnresolvableError
			require.ErrorAs(t, err, &cu)
			assert.Equal(t, tt.setting, cu.Setting)
			assert.Equal(t, derrors.CategoryCycle, derrors.GetCategory(err))
		})
	}
}
