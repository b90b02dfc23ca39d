package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxent-labs/gisstore/internal/domain"
)

const nerSnapshot = `
correction_constant: 2
correction_parameter: 0.5
outcomes: [O, PER]
features:
  w=John: {PER: 2.5, O: -1}
  w=the: {O: 0.75}
`

// runCLI executes the root command with a fresh GISSTORE_HOME and flag state.
func runCLI(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GISSTORE_HOME", home)
	persistModel, persistOutput, persistSync = "", "", ""
	serveHost, servePort = "", 0
	configSave, verbose, configPath = false, false, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeSnapshot(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestCLI_PersistVerifyListRm(t *testing.T) {
	home := t.TempDir()
	src := writeSnapshot(t, t.TempDir(), "ner.yaml", nerSnapshot)
	store := filepath.Join(home, "models")

	out, err := runCLI(t, home, "persist", "-m", src)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(store, "ner.db"))
	assert.Contains(t, out, "Parameters: 3")

	out, err = runCLI(t, home, "verify", filepath.Join(store, "ner.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "Predicates:           2")
	assert.Contains(t, out, "OK")

	out, err = runCLI(t, home, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "ner")

	out, err = runCLI(t, home, "rm", "ner")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed ner")
	assert.NoFileExists(t, filepath.Join(store, "ner.db"))

	out, err = runCLI(t, home, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No artifacts")
}

func TestCLI_PersistExplicitOutput(t *testing.T) {
	dir := t.TempDir()
	src := writeSnapshot(t, dir, "ner.yaml", nerSnapshot)
	dest := filepath.Join(dir, "out", "model.db")

	_, err := runCLI(t, t.TempDir(), "persist", "-m", src, "-o", dest, "--synchronous", "FULL")
	require.NoError(t, err)
	assert.FileExists(t, dest)
}

func TestCLI_PersistIntegrityViolation(t *testing.T) {
	dir := t.TempDir()
	src := writeSnapshot(t, dir, "bad.yaml", `
outcomes: [A, B]
patterns: [{outcomes: [2, 0, 1]}]
predicates: [{label: feat1, pattern: 0, count: 3, parameters: [0.5, -0.3]}]
`)
	dest := filepath.Join(dir, "bad.db")

	_, err := runCLI(t, t.TempDir(), "persist", "-m", src, "-o", dest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIntegrityViolation), "error = %v", err)
	assert.NoFileExists(t, dest)
}

func TestCLI_VerifyMissing(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "verify", filepath.Join(t.TempDir(), "absent.db"))
	assert.True(t, errors.Is(err, domain.ErrDestinationUnavailable), "error = %v", err)
}

func TestCLI_Config(t *testing.T) {
	home := t.TempDir()

	out, err := runCLI(t, home, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "[store]")
	assert.Contains(t, out, `synchronous = "NORMAL"`)
	assert.NoFileExists(t, filepath.Join(home, "config.toml"))

	_, err = runCLI(t, home, "config", "--save")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(home, "config.toml"))
}

func TestCLI_BadConfig(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.toml"), []byte("[store]\nbogus = 1\n"), 0o600))

	_, err := runCLI(t, home, "list")
	assert.Error(t, err)
}
