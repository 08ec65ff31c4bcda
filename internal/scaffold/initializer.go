// Package scaffold writes a starter echoplan project.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/echoplan/internal/config"
	"github.com/dyluth/echoplan/internal/table"
)

//go:embed templates/*
var templatesFS embed.FS

// SamplesFile is the starter sample table written next to the config.
const SamplesFile = "samples.csv"

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes echoplan.yml and samples.csv into dir.
// If force is true, existing files are replaced.
func Initialize(dir string, force bool) ([]string, error) {
	if !force {
		if err := CheckExisting(dir); err != nil {
			return nil, err
		}
	}

	files, err := getTemplateFiles()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	var written []string
	for _, file := range files {
		path := filepath.Join(dir, file.Path)
		if err := os.WriteFile(path, file.Content, file.Permissions); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
		written = append(written, file.Path)
	}

	if err := validateCreatedFiles(dir); err != nil {
		return nil, err
	}
	return written, nil
}

// getTemplateFiles reads the embedded templates
func getTemplateFiles() ([]FileInfo, error) {
	templates := []struct {
		name string
		path string
	}{
		{"templates/echoplan.yml.tmpl", config.DefaultPath},
		{"templates/samples.csv.tmpl", SamplesFile},
	}

	files := make([]FileInfo, 0, len(templates))
	for _, tmpl := range templates {
		content, err := templatesFS.ReadFile(tmpl.name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s template: %w", tmpl.path, err)
		}
		files = append(files, FileInfo{Path: tmpl.path, Content: content, Permissions: 0644})
	}
	return files, nil
}

// validateCreatedFiles loads the written files the same way plan will
func validateCreatedFiles(dir string) error {
	if _, err := config.Load(filepath.Join(dir, config.DefaultPath)); err != nil {
		return fmt.Errorf("created %s is invalid: %w", config.DefaultPath, err)
	}
	if _, err := table.ReadSamplesFile(filepath.Join(dir, SamplesFile)); err != nil {
		return fmt.Errorf("created %s is invalid: %w", SamplesFile, err)
	}
	return nil
}
