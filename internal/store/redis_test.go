package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a Redis store connected to a miniredis instance
func setupTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s, err := NewRedisStore(&redis.Options{Addr: mr.Addr()}, "test-project")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, mr
}

func TestNewRedisStore(t *testing.T) {
	t.Run("creates store successfully", func(t *testing.T) {
		s, _ := setupTestStore(t)
		assert.Equal(t, "test-project", s.project)
		assert.NoError(t, s.Ping(context.Background()))
	})

	t.Run("rejects empty project name", func(t *testing.T) {
		_, err := NewRedisStore(&redis.Options{Addr: "localhost:6379"}, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "project name cannot be empty")
	})
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "echoplan:p:run:abc", RunKey("p", "abc"))
	assert.Equal(t, "echoplan:p:runs", RunIndexKey("p"))
	assert.Equal(t, "echoplan:p:run_events", RunEventsChannel("p"))
}

func TestRedisStore_SaveAndGet(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()
	r := sampleRun(t, "screen", 0)

	require.NoError(t, s.SaveRun(ctx, r))
	assert.True(t, mr.Exists(RunKey("test-project", r.ID)))
	assert.Equal(t, "screen", mr.HGet(RunKey("test-project", r.ID), "name"))

	got, err := s.GetRun(ctx, r.ID)
	require.NoError(t, err)
	requireSameRun(t, r, got)

	// Saving twice is safe and keeps one index entry
	require.NoError(t, s.SaveRun(ctx, r))
	ids, err := s.RunIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{r.ID}, ids)
}

func TestRedisStore_SaveInvalid(t *testing.T) {
	s, _ := setupTestStore(t)
	r := sampleRun(t, "screen", 0)
	r.ID = "nope"

	err := s.SaveRun(context.Background(), r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid run")
}

func TestRedisStore_GetMissing(t *testing.T) {
	s, _ := setupTestStore(t)
	_, err := s.GetRun(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_ListRuns(t *testing.T) {
	s, mr := setupTestStore(t)
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
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	runs, err = s.ListRuns(ctx, Filter{SinceMs: 1500, UntilMs: 3000})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)

	runs, err = s.ListRuns(ctx, Filter{Name: "screen"})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, third.ID, runs[1].ID)

	// A dangling index entry is skipped
	mr.Del(RunKey("test-project", first.ID))
	runs, err = s.ListRuns(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRedisStore_SubscribeRunEvents(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	sub, err := s.SubscribeRunEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	r := sampleRun(t, "screen", 0)
	require.NoError(t, s.SaveRun(ctx, r))

	select {
	case got := <-sub.Events():
		require.NotNil(t, got)
		requireSameRun(t, r, got)
	case err := <-sub.Errors():
		t.Fatalf("unexpected subscription error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for run event")
	}
}

func TestRedisStore_SubscribeSkipsBadMessages(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()

	sub, err := s.SubscribeRunEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	mr.Publish(RunEventsChannel("test-project"), "not json")

	select {
	case err := <-sub.Errors():
		assert.Contains(t, err.Error(), "failed to unmarshal run event")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscription error")
	}
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	s, _ := setupTestStore(t)
	sub, err := s.SubscribeRunEvents(context.Background())
	require.NoError(t, err)

	assert.NoError(t, sub.Close())
	assert.NoError(t, sub.Close())

	// Events channel closes once the goroutine exits
	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel was not closed")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Options{Backend: BackendNone})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = Open(ctx, Options{Backend: "postgres"})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	s, err := Open(ctx, Options{Backend: BackendRedis, RedisAddr: mr.Addr()})
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.(Watcher)
	assert.True(t, ok)

	sq, err := Open(ctx, Options{Backend: BackendSQLite, SQLitePath: t.TempDir() + "/runs.db"})
	require.NoError(t, err)
	defer sq.Close()
	_, ok = sq.(Watcher)
	assert.False(t, ok)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()

	s, _ := setupTestStore(t)
	sub, err := Subscribe(ctx, s)
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer sq.Close()
	_, err = Subscribe(ctx, sq)
	assert.ErrorIs(t, err, ErrNoEvents)
}
