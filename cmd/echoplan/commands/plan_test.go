package commands

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/echoplan/internal/table"
	"github.com/dyluth/echoplan/pkg/plate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	out, _, err := executeCommand(t, "init", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized echoplan project")
	assert.FileExists(t, filepath.Join(dir, "echoplan.yml"))
	assert.FileExists(t, filepath.Join(dir, "samples.csv"))

	_, errOut, err := executeCommand(t, "init", "--dir", dir)
	require.Error(t, err)
	assert.Equal(t, "project already initialized", err.Error())
	assert.Contains(t, errOut, "echoplan init --force")

	_, _, err = executeCommand(t, "init", "--dir", dir, "--force")
	require.NoError(t, err)
}

func TestPlan(t *testing.T) {
	cfgPath := initProject(t)
	samples := filepath.Join(filepath.Dir(cfgPath), "samples.csv")
	outDir := filepath.Join(t.TempDir(), "out")

	out, _, err := executeCommand(t, "plan", "--config", cfgPath, "--samples", samples, "--out", outDir)
	require.NoError(t, err)

	for _, name := range []string{
		DestinationLayoutFile, SourceLayoutFile, InstructionsFile,
		SummaryFile, DestinationPlatesFile, SourcePlatesFile,
	} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "Planned 4 sample(s) into 1 destination")

	rows := readCSV(t, filepath.Join(outDir, InstructionsFile))
	assert.Equal(t, table.InstructionHeader, rows[0])
	require.Greater(t, len(rows), 1)
	// dispense_order puts water first
	assert.Equal(t, "water", rows[1][len(rows[1])-1])

	dst, err := table.ReadPlatesFile(filepath.Join(outDir, DestinationPlatesFile))
	require.NoError(t, err)
	require.Len(t, dst, 1)
	// 4 samples x 3 replicates
	assert.Equal(t, 12, dst[0].Len())
}

func TestPlan_Groups(t *testing.T) {
	cfgPath := initProject(t)
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	grouped := replaceOnce(t, string(data), "  dispense_order: [water]\n",
		"  dispense_order: [water]\n  groups:\n    - name: salts\n      components: [nacl, kcl]\n")
	require.NoError(t, os.WriteFile(cfgPath, []byte(grouped), 0o644))

	outDir := t.TempDir()
	_, _, err = executeCommand(t, "plan", "--config", cfgPath,
		"--samples", filepath.Join(filepath.Dir(cfgPath), "samples.csv"), "--out", outDir)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(outDir, InstructionsFile))
	salts := readCSV(t, filepath.Join(outDir, "instructions_salts.csv"))
	for _, row := range salts[1:] {
		assert.Contains(t, []string{"nacl", "kcl"}, row[len(row)-1])
	}
	remainder := readCSV(t, filepath.Join(outDir, "instructions_remainder.csv"))
	for _, row := range remainder[1:] {
		assert.Contains(t, []string{"water", "glucose"}, row[len(row)-1])
	}
}

func TestPlan_NegativeDiluent(t *testing.T) {
	cfgPath := initProject(t)
	samples := filepath.Join(t.TempDir(), "big.csv")
	require.NoError(t, os.WriteFile(samples, []byte("sample,nacl\nok,1000\nbig,50000\n"), 0o644))

	t.Run("abort", func(t *testing.T) {
		_, errOut, err := executeCommand(t, "plan", "--config", cfgPath, "--samples", samples, "--out", t.TempDir())
		require.Error(t, err)
		assert.Equal(t, "sample exceeds the target volume", err.Error())
		assert.Contains(t, errOut, "Sample: 2")
		assert.Contains(t, errOut, "on_negative_diluent: drop")
	})

	t.Run("drop", func(t *testing.T) {
		data, err := os.ReadFile(cfgPath)
		require.NoError(t, err)
		dropped := replaceOnce(t, string(data), "on_negative_diluent: abort", "on_negative_diluent: drop")
		dropPath := filepath.Join(t.TempDir(), "echoplan.yml")
		require.NoError(t, os.WriteFile(dropPath, []byte(dropped), 0o644))

		out, _, err := executeCommand(t, "plan", "--config", dropPath, "--samples", samples, "--out", t.TempDir())
		require.NoError(t, err)
		assert.Contains(t, out, "Dropped sample 2")
		assert.Contains(t, out, "Planned 1 sample(s)")
	})
}

func TestPlan_BadSamples(t *testing.T) {
	cfgPath := initProject(t)
	samples := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(samples, []byte("sample,nacl\ns1,-5\n"), 0o644))

	_, _, err := executeCommand(t, "plan", "--config", cfgPath, "--samples", samples)
	require.Error(t, err)
	assert.Equal(t, "failed to read samples", err.Error())
}

func TestPlan_RequiresSamples(t *testing.T) {
	_, _, err := executeCommand(t, "plan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "samples" not set`)
}

func TestCompile_MatchesPlan(t *testing.T) {
	cfgPath := initProject(t)
	planDir := t.TempDir()
	_, _, err := executeCommand(t, "plan", "--config", cfgPath,
		"--samples", filepath.Join(filepath.Dir(cfgPath), "samples.csv"), "--out", planDir)
	require.NoError(t, err)

	compileDir := t.TempDir()
	out, _, err := executeCommand(t, "compile", "--config", cfgPath,
		"--sources", filepath.Join(planDir, SourcePlatesFile),
		"--destinations", filepath.Join(planDir, DestinationPlatesFile),
		"--out", compileDir, "--print")
	require.NoError(t, err)
	assert.Contains(t, out, "transfer(s)")

	planned, err := os.ReadFile(filepath.Join(planDir, InstructionsFile))
	require.NoError(t, err)
	compiled, err := os.ReadFile(filepath.Join(compileDir, InstructionsFile))
	require.NoError(t, err)
	assert.Equal(t, string(planned), string(compiled))
}

func TestCompile_MissingPlates(t *testing.T) {
	cfgPath := initProject(t)
	_, _, err := executeCommand(t, "compile", "--config", cfgPath,
		"--sources", filepath.Join(t.TempDir(), "missing.json"),
		"--destinations", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, "failed to read source plates", err.Error())
}

func TestAllocate(t *testing.T) {
	cfgPath := initProject(t)
	reqs := filepath.Join(t.TempDir(), "requirements.tsv")
	require.NoError(t, os.WriteFile(reqs, []byte("Component\tVolume\nnacl\t30000\nwater\t60000\n"), 0o644))
	outDir := t.TempDir()

	out, _, err := executeCommand(t, "allocate", "--config", cfgPath, "--requirements", reqs, "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Staged 2 component(s) into 1 source plate(s)")

	src, err := table.ReadPlatesFile(filepath.Join(outDir, SourcePlatesFile))
	require.NoError(t, err)
	require.Len(t, src, 1)

	// water is ordered first and spread over twice as many wells: 25000 usable each
	well, ok := src[0].Well(plate.MustParseLabel("A1"))
	require.True(t, ok)
	assert.InDelta(t, 40000, well.Volume("water"), 1e-9)
	// water takes three wells, nacl one
	assert.Len(t, src[0].Wells(), 4)
}

func TestSummary(t *testing.T) {
	cfgPath := initProject(t)
	planDir := t.TempDir()
	_, _, err := executeCommand(t, "plan", "--config", cfgPath,
		"--samples", filepath.Join(filepath.Dir(cfgPath), "samples.csv"), "--out", planDir)
	require.NoError(t, err)

	csvPath := filepath.Join(t.TempDir(), "totals.csv")
	out, _, err := executeCommand(t, "summary", filepath.Join(planDir, DestinationPlatesFile), "--csv", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "nacl")
	// 12 wells at 40000 nL each
	assert.Contains(t, out, "480000.00")

	rows := readCSV(t, csvPath)
	assert.Equal(t, table.SummaryHeader, rows[0])

	_, _, err = executeCommand(t, "summary")
	require.Error(t, err)
}
