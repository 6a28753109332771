package stamp

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStamper(t *testing.T) *Stamper {
	t.Helper()
	s, err := NewStamper(16)
	require.NoError(t, err)
	return s
}

func TestContentStampFollowsBytes(t *testing.T) {
	s := newStamper(t)
	path := filepath.Join(t.TempDir(), "A.java")
	require.NoError(t, os.WriteFile(path, []byte("class A {}"), 0o600))

	first, err := s.Stamp(path, Content)
	require.NoError(t, err)
	again, err := s.Stamp(path, Content)
	require.NoError(t, err)
	assert.True(t, first.Equal(again))

	require.NoError(t, os.WriteFile(path, []byte("class A { int x; }"), 0o600))
	changed, err := s.Stamp(path, Content)
	require.NoError(t, err)
	assert.False(t, first.Equal(changed))
}

func TestContentStampIgnoresTouchWithoutChange(t *testing.T) {
	s := newStamper(t)
	path := filepath.Join(t.TempDir(), "A.java")
	require.NoError(t, os.WriteFile(path, []byte("class A {}"), 0o600))

	before, err := s.Stamp(path, Content)
	require.NoError(t, err)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	after, err := s.Stamp(path, Content)
	require.NoError(t, err)
	assert.True(t, before.Equal(after), "touching without editing keeps the content stamp")

	modBefore, err := s.Stamp(path, Modified)
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(path, later.Add(time.Hour), later.Add(time.Hour)))
	modAfter, err := s.Stamp(path, Modified)
	require.NoError(t, err)
	assert.False(t, modBefore.Equal(modAfter))
}

func TestMissingFiles(t *testing.T) {
	s := newStamper(t)
	path := filepath.Join(t.TempDir(), "missing.class")

	for _, kind := range []Kind{Content, Modified, Exists} {
		st, err := s.Stamp(path, kind)
		require.NoError(t, err)
		assert.True(t, st.Absent(), "kind %s", kind)
	}

	require.NoError(t, os.WriteFile(path, nil, 0o600))
	st, err := s.Stamp(path, Exists)
	require.NoError(t, err)
	assert.Equal(t, Stamp{Kind: Exists, Value: "true"}, st)
	assert.False(t, st.Absent())
}

func TestUnknownKind(t *testing.T) {
	s := newStamper(t)
	_, err := s.Stamp(t.TempDir(), Kind("bogus"))
	require.Error(t, err)
	assert.False(t, Kind("bogus").Valid())
	assert.True(t, Content.Valid())
}
