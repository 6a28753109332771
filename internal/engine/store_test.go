package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/javabuild/internal/stamp"
)

func storeImplementations(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "units.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			_, err := store.Get(ctx, "missing")
			require.ErrorIs(t, err, ErrUnitNotFound)

			u := &Unit{
				Key:       "java:1",
				Builder:   "java",
				Input:     []byte(`{"input_files":["/w/A.java"]}`),
				InputHash: HashInput([]byte(`{"input_files":["/w/A.java"]}`)),
				State:     StateSuccess,
				Requirements: []Requirement{
					{Kind: RequireFile, Path: "/w/A.java", Stamp: stamp.Stamp{Kind: stamp.Content, Value: "abc"}},
					{Kind: RequireBuild, Key: "java:2", Builder: "java", Input: []byte(`{}`)},
				},
				Provides:    []Provision{{Path: "/w/bin/A.class", Stamp: stamp.Stamp{Kind: stamp.Modified, Value: "1/2"}}},
				Output:      []byte("ran"),
				ExecutionID: "exec-1",
				StartedAt:   time.Unix(100, 0).UTC(),
				FinishedAt:  time.Unix(101, 0).UTC(),
			}
			require.NoError(t, store.Put(ctx, u))

			got, err := store.Get(ctx, "java:1")
			require.NoError(t, err)
			assert.Equal(t, u, got)

			u.State = StateFailure
			require.NoError(t, store.Put(ctx, u))
			require.NoError(t, store.Put(ctx, &Unit{Key: "java:0", Builder: "java", State: StateSuccess}))

			all, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "java:0", all[0].Key)
			assert.Equal(t, StateFailure, all[1].State)

			require.NoError(t, store.Delete(ctx, "java:0"))
			_, err = store.Get(ctx, "java:0")
			require.ErrorIs(t, err, ErrUnitNotFound)

			require.NoError(t, store.Clear(ctx))
			all, err = store.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(t.Context(), &Unit{Key: "k", Builder: "b", State: StateSuccess, ExecutionID: "e"}))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	u, err := store.Get(t.Context(), "k")
	require.NoError(t, err)
	assert.Equal(t, "e", u.ExecutionID)
}
