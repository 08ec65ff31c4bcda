package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dyluth/echoplan/internal/config"
)

// CheckExisting returns an error naming any starter file already present in dir
func CheckExisting(dir string) error {
	var existingFiles []string
	for _, name := range []string{config.DefaultPath, SamplesFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			existingFiles = append(existingFiles, name)
		}
	}

	if len(existingFiles) == 0 {
		return nil
	}
	return &ExistingFilesError{Files: existingFiles}
}

// ExistingFilesError reports starter files that init would overwrite
type ExistingFilesError struct {
	Files []string
}

func (e *ExistingFilesError) Error() string {
	return fmt.Sprintf("project already initialized: found %s", strings.Join(e.Files, ", "))
}
