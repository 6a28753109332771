package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/javabuild/internal/stamp"
)

func TestRefBuildsDecodedRequest(t *testing.T) {
	dir := t.TempDir()
	a := write(t, filepath.Join(dir, "a.txt"), "hello\n")
	b := newConcatBuilder()
	e := newTestEngine(t, b)

	ref, err := NewRef(concatReq{Path: a})
	require.NoError(t, err)
	assert.Equal(t, "concat:"+a, ref.Key())
	assert.Equal(t, "a.txt", ref.Description())
	same, err := NewRef(ref)
	require.NoError(t, err)
	assert.Equal(t, ref, same)

	u, err := e.NewSession().Build(t.Context(), ref)
	require.NoError(t, err)
	assert.True(t, u.Succeeded())
	assert.Equal(t, 1, b.count("a.txt"))

	_, err = e.NewSession().Build(t.Context(), concatReq{Path: a})
	require.NoError(t, err)
	assert.Equal(t, 1, b.count("a.txt"), "a reference and its request are the same unit")
}

func TestRefWithMismatchedKeyIsRejected(t *testing.T) {
	e := newTestEngine(t, newConcatBuilder())
	ref, err := NewRef(concatReq{Path: "/x/a.txt"})
	require.NoError(t, err)
	ref.ID = "concat:/x/other.txt"

	_, err = e.NewSession().Build(t.Context(), ref)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decodes to key")
}

// outputBuilder persists the number of times it ran as its output.
type outputBuilder struct{ runs int }

func (b *outputBuilder) Name() string { return "concat" }

func (b *outputBuilder) Decode(data []byte) (Request, error) {
	return newConcatBuilder().Decode(data)
}

func (b *outputBuilder) Build(_ context.Context, bc BuildContext, reqs []Request) error {
	b.runs++
	bc.SetOutput(reqs[0], []byte{byte('0' + b.runs)})
	return bc.Require(reqs[0].(concatReq).Path, stamp.Content)
}

func TestUnitOutputIsPersistedAndReplayed(t *testing.T) {
	dir := t.TempDir()
	a := write(t, filepath.Join(dir, "a.txt"), "x\n")
	b := &outputBuilder{}
	e := newTestEngine(t, b)

	u, err := e.NewSession().Build(t.Context(), concatReq{Path: a})
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), u.Output)

	u, err = e.NewSession().Build(t.Context(), concatReq{Path: a})
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), u.Output)
	assert.Equal(t, 1, b.runs)

	touch(t, a, "y\n")
	u, err = e.NewSession().Build(t.Context(), concatReq{Path: a})
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), u.Output)
}
