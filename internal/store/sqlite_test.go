package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()
	r := sampleRun(t, "screen", 0)

	require.NoError(t, s.SaveRun(ctx, r))
	got, err := s.GetRun(ctx, r.ID)
	require.NoError(t, err)
	requireSameRun(t, r, got)

	// Replace keeps a single row
	r.Name = "renamed"
	require.NoError(t, s.SaveRun(ctx, r))
	ids, err := s.RunIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{r.ID}, ids)
	got, err = s.GetRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	s := setupSQLiteStore(t)
	_, err := s.GetRun(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.True(t, IsNotFound(err))
}

func TestSQLiteStore_SaveInvalid(t *testing.T) {
	s := setupSQLiteStore(t)
	r := sampleRun(t, "screen", 0)
	r.Destinations = nil
	assert.Error(t, s.SaveRun(context.Background(), r))
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	first := sampleRun(t, "screen", 1000)
	second := sampleRun(t, "other", 2000)
	third := sampleRun(t, "screen", 3000)
	for _, r := range []*Run{third, first, second} {
		require.NoError(t, s.SaveRun(ctx, r))
	}

	runs, err := s.ListRuns(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, first.ID, runs[0].ID)
	assert.Equal(t, third.ID, runs[2].ID)

	runs, err = s.ListRuns(ctx, Filter{UntilMs: 2000})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = s.ListRuns(ctx, Filter{SinceMs: 1500, Name: "screen"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, third.ID, runs[0].ID)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()
	r := sampleRun(t, "screen", 0)

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(ctx, r))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	requireSameRun(t, r, got)
}
