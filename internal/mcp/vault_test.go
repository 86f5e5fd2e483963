package mcp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultDetector_Plain(t *testing.T) {
	// Given: a bare directory
	root := t.TempDir()

	// When: detecting
	info := NewVaultDetector(root, nil).Detect()

	// Then: plain vault named after the directory
	assert.Equal(t, "plain", info.Type)
	assert.Equal(t, filepath.Base(root), info.Name)
	assert.Equal(t, root, info.RootPath)
}

func TestVaultDetector_Obsidian(t *testing.T) {
	// Given: a directory with an .obsidian config dir
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".obsidian"), 0o755))

	// When: detecting
	info := NewVaultDetector(root, nil).Detect()

	// Then: obsidian vault
	assert.Equal(t, "obsidian", info.Type)
}

func TestVaultDetector_Notedex(t *testing.T) {
	// Given: a directory with a .notedex.yaml config
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".notedex.yaml"), []byte("server:\n"), 0o644))

	// When: detecting
	info := NewVaultDetector(root, nil).Detect()

	// Then: notedex vault
	assert.Equal(t, "notedex", info.Type)
}

func TestVaultDetector_NotedexYmlVariant(t *testing.T) {
	// Given: a directory with the .yml spelling
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".notedex.yml"), []byte("server:\n"), 0o644))

	// When: detecting
	info := NewVaultDetector(root, nil).Detect()

	// Then: notedex vault
	assert.Equal(t, "notedex", info.Type)
}

func TestVaultDetector_Git(t *testing.T) {
	// Given: a directory with a .git dir
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	// When: detecting
	info := NewVaultDetector(root, nil).Detect()

	// Then: git vault
	assert.Equal(t, "git", info.Type)
}

func TestVaultDetector_ObsidianWinsOverGit(t *testing.T) {
	// Given: a directory that is both an obsidian vault and a git repo
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".obsidian"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	// When: detecting
	info := NewVaultDetector(root, nil).Detect()

	// Then: obsidian takes precedence
	assert.Equal(t, "obsidian", info.Type)
}

func TestVaultDetector_NotedexDirDoesNotCount(t *testing.T) {
	// Given: .notedex.yaml exists but as a directory
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".notedex.yaml"), 0o755))

	// When: detecting
	info := NewVaultDetector(root, nil).Detect()

	// Then: falls back to plain
	assert.Equal(t, "plain", info.Type)
}
