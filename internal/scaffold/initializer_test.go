package scaffold

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/echoplan/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	dir := t.TempDir()

	written, err := Initialize(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{config.DefaultPath, SamplesFile}, written)

	cfg, err := config.Load(filepath.Join(dir, config.DefaultPath))
	require.NoError(t, err)
	assert.Equal(t, "water", cfg.Diluent)
	assert.Equal(t, 3, *cfg.Destination.Replicates)
	_, err = cfg.PipelineOptions()
	assert.NoError(t, err)
}

func TestInitialize_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultPath), []byte("old content"), 0644))

	_, err := Initialize(dir, false)
	var existing *ExistingFilesError
	require.True(t, errors.As(err, &existing))
	assert.Equal(t, []string{config.DefaultPath}, existing.Files)

	content, err := os.ReadFile(filepath.Join(dir, config.DefaultPath))
	require.NoError(t, err)
	assert.Equal(t, "old content", string(content))
}

func TestInitialize_Force(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultPath), []byte("old content"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, SamplesFile), []byte("old"), 0644))

	_, err := Initialize(dir, true)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, config.DefaultPath))
	require.NoError(t, err)
	assert.Contains(t, string(content), `version: "1.0"`)
}

func TestInitialize_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "new", "project")
	_, err := Initialize(dir, false)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, SamplesFile))
}

func TestGetTemplateFiles(t *testing.T) {
	files, err := getTemplateFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		assert.NotEmpty(t, f.Content, f.Path)
		assert.Equal(t, os.FileMode(0644), f.Permissions)
	}
}
