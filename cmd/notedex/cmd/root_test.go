package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the CLI with args, capturing combined output.
func runCommand(args ...string) (string, error) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// chtemp moves the test into a fresh directory so root discovery and
// data paths stay hermetic.
func chtemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	return resolved
}

// writeVault fills dir with a small notes tree. Both files mention
// "capsule" so a single query can hit them all.
func writeVault(t *testing.T, dir string) {
	t.Helper()
	notes := filepath.Join(dir, "notes")
	require.NoError(t, os.MkdirAll(notes, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(notes, "capsule.md"),
		[]byte("# PNG Capsule\n\nThe capsule packs the index into a PNG image with zlib compression applied.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(notes, "sqlite.md"),
		[]byte("# SQLite Store\n\nNotes live in a sqlite database with a capsule export for portability.\n"), 0o644))
}

func TestNewRootCmd_HasSubcommands(t *testing.T) {
	// Given the root command
	cmd := NewRootCmd()

	// When listing subcommands
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	// Then every verb is registered
	for _, want := range []string{
		"init", "index", "search", "status", "serve",
		"note", "capsule", "tui", "logs", "version",
	} {
		assert.Contains(t, names, want)
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"config", "verbose", "quiet", "json"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
}

func TestRootCmd_BareInvocationShowsHelp(t *testing.T) {
	chtemp(t)

	// When running notedex with no arguments
	out, err := runCommand()

	// Then help text is printed instead of an error
	require.NoError(t, err)
	assert.Contains(t, out, "Available Commands")
	assert.Contains(t, out, "search")
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := runCommand("--version")

	require.NoError(t, err)
	assert.Contains(t, out, "notedex version")
}

func TestRootCmd_UnknownCommandFails(t *testing.T) {
	_, err := runCommand("frobnicate")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "frobnicate")
}

func TestRootCmd_ExplicitConfigFile(t *testing.T) {
	// Given a config file outside the discovery chain
	dir := chtemp(t)
	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("search:\n  top_k: 9\n"), 0o644))

	// When any command runs with --config
	_, err := runCommand("--config", cfgPath, "version")

	// Then the file is loaded into the shared config
	require.NoError(t, err)
	assert.Equal(t, 9, appCfg.Search.TopK)
}

func TestRootCmd_ExplicitConfigFileMustExist(t *testing.T) {
	dir := chtemp(t)

	_, err := runCommand("--config", filepath.Join(dir, "missing.yaml"), "version")

	require.Error(t, err)
}

func TestRootCmd_BrokenProjectConfigFallsBack(t *testing.T) {
	// Given a vault whose .notedex.yaml does not parse
	dir := chtemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".notedex.yaml"),
		[]byte("search: [\n"), 0o644))

	// When a command runs without --config
	_, err := runCommand("version")

	// Then defaults are used instead of failing the command
	require.NoError(t, err)
	assert.Equal(t, ".notedex", appCfg.Paths.DataDir)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")

	assert.False(t, fileExists(path))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.True(t, fileExists(path))
}
