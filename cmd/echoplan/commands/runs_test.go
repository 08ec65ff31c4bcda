package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/echoplan/internal/store"
	"github.com/dyluth/echoplan/pkg/plate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// planAndSave runs plan --save against the config and returns the saved run ID
func planAndSave(t *testing.T, cfgPath, name string) string {
	t.Helper()
	_, _, err := executeCommand(t, "plan", "--config", cfgPath,
		"--samples", filepath.Join(filepath.Dir(cfgPath), "samples.csv"),
		"--out", t.TempDir(), "--save", "--name", name)
	require.NoError(t, err)

	out, _, err := executeCommand(t, "runs", "--config", cfgPath, "--name", name, "--output", "jsonl")
	require.NoError(t, err)
	var r store.Run
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &r))
	return r.ID
}

func sampleRun(t *testing.T, name string) *store.Run {
	t.Helper()
	p, err := plate.New(plate.Spec{Dimensions: plate.Dimensions{Rows: 16, Columns: 24}, WellCapacity: 65000})
	require.NoError(t, err)
	require.NoError(t, p.FillWell("water", 40000))
	return store.NewRun(name, []*plate.Plate{p}, nil, nil)
}

func sqliteProject(t *testing.T) string {
	t.Helper()
	cfgPath := initProject(t)
	setStore(t, cfgPath, fmt.Sprintf("store:\n  backend: sqlite\n  sqlite_path: %s\n  project: lab\n",
		filepath.Join(t.TempDir(), "runs.db")))
	return cfgPath
}

func TestRuns_NoStoreConfigured(t *testing.T) {
	cfgPath := initProject(t)

	_, errOut, err := executeCommand(t, "runs", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, "no run store configured", err.Error())
	assert.Contains(t, errOut, "store.backend")
}

func TestRuns_InvalidFlags(t *testing.T) {
	_, _, err := executeCommand(t, "runs", "--output", "xml")
	require.Error(t, err)
	assert.Equal(t, "invalid output format", err.Error())

	_, _, err = executeCommand(t, "runs", "--since", "yesterday")
	require.Error(t, err)
	assert.Equal(t, "invalid time filter", err.Error())
}

func TestPlanSaveRunsShow_SQLite(t *testing.T) {
	cfgPath := sqliteProject(t)
	id := planAndSave(t, cfgPath, "screen-1")
	planAndSave(t, cfgPath, "screen-2")

	t.Run("runs lists both", func(t *testing.T) {
		out, _, err := executeCommand(t, "runs", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "Runs for project 'lab'")
		assert.Contains(t, out, "screen-1")
		assert.Contains(t, out, "screen-2")
		assert.Contains(t, out, "2 runs found")
	})

	t.Run("runs filters by time", func(t *testing.T) {
		out, _, err := executeCommand(t, "runs", "--config", cfgPath, "--until", "1h")
		require.NoError(t, err)
		assert.Contains(t, out, "No runs found")
	})

	t.Run("show by prefix", func(t *testing.T) {
		out, _, err := executeCommand(t, "show", "--config", cfgPath, id[:8])
		require.NoError(t, err)
		assert.Contains(t, out, "Run:          "+id)
		assert.Contains(t, out, "Destination[1]")
	})

	t.Run("show as JSON", func(t *testing.T) {
		out, _, err := executeCommand(t, "show", "--config", cfgPath, id, "--json")
		require.NoError(t, err)
		var r store.Run
		require.NoError(t, json.Unmarshal([]byte(out), &r))
		assert.Equal(t, "screen-1", r.Name)
	})

	t.Run("show exports plan files", func(t *testing.T) {
		dir := t.TempDir()
		_, _, err := executeCommand(t, "show", "--config", cfgPath, id[:6], "--export", dir)
		require.NoError(t, err)
		for _, name := range []string{DestinationPlatesFile, SourcePlatesFile, DestinationLayoutFile, SourceLayoutFile, InstructionsFile} {
			assert.FileExists(t, filepath.Join(dir, name))
		}
	})

	t.Run("show unknown and short IDs", func(t *testing.T) {
		_, _, err := executeCommand(t, "show", "--config", cfgPath, "ffffffff")
		require.Error(t, err)
		assert.Equal(t, "run with ID 'ffffffff' not found", err.Error())

		_, _, err = executeCommand(t, "show", "--config", cfgPath, "abc")
		require.Error(t, err)
		assert.Equal(t, "invalid run ID", err.Error())
	})

	t.Run("watch needs a publishing backend", func(t *testing.T) {
		_, errOut, err := executeCommand(t, "watch", "--config", cfgPath)
		require.Error(t, err)
		assert.Equal(t, "run events unavailable", err.Error())
		assert.Contains(t, errOut, "sqlite")
	})

	t.Run("watch --for finds a saved run", func(t *testing.T) {
		out, _, err := executeCommand(t, "watch", "--config", cfgPath, "--for", id, "--timeout", "2s")
		require.NoError(t, err)
		assert.Contains(t, out, "Run:          "+id)
	})

	t.Run("watch --for rejects prefixes", func(t *testing.T) {
		_, _, err := executeCommand(t, "watch", "--config", cfgPath, "--for", id[:8])
		require.Error(t, err)
		assert.Equal(t, "invalid run ID", err.Error())
	})
}

func TestPlanSaveAndWatch_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfgPath := initProject(t)
	setStore(t, cfgPath, fmt.Sprintf("store:\n  backend: redis\n  redis_addr: %s\n  project: lab\n", mr.Addr()))

	// Start watching before saving; Pub/Sub does not replay
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchOut, watchErr := &syncBuffer{}, &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- executeCommandContext(ctx, watchOut, watchErr, "watch", "--config", cfgPath, "--output", "json")
	}()
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(store.RunEventsChannel("lab"))[store.RunEventsChannel("lab")] > 0
	}, 2*time.Second, 10*time.Millisecond)

	// A second command cannot share the global command tree with the watcher, so
	// save through the store directly
	s, err := store.Open(ctx, store.Options{Backend: store.BackendRedis, RedisAddr: mr.Addr(), Project: "lab"})
	require.NoError(t, err)
	defer s.Close()
	run := sampleRun(t, "external")
	require.NoError(t, s.SaveRun(ctx, run))

	require.Eventually(t, func() bool {
		return strings.Contains(watchOut.String(), run.ID)
	}, 2*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	scanner := bufio.NewScanner(strings.NewReader(watchOut.String()))
	require.True(t, scanner.Scan())
	var got store.Run
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)

	// With the watcher stopped, plan --save and runs use the same Redis
	id := planAndSave(t, cfgPath, "redis-run")
	out, _, err := executeCommand(t, "show", "--config", cfgPath, id[:8])
	require.NoError(t, err)
	assert.Contains(t, out, "redis-run")
}

func TestOpenStore_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	cfgPath := initProject(t)
	setStore(t, cfgPath, fmt.Sprintf("store:\n  backend: redis\n  redis_addr: %s\n", addr))

	_, errOut, err := executeCommand(t, "runs", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, "Redis connection failed", err.Error())
	assert.Contains(t, errOut, addr)
}
