package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckExisting(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		wantErr string
	}{
		{name: "clean directory"},
		{name: "config present", files: []string{"echoplan.yml"}, wantErr: "found echoplan.yml"},
		{name: "both present", files: []string{"echoplan.yml", "samples.csv"}, wantErr: "found echoplan.yml, samples.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0644))
			}
			err := CheckExisting(dir)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
