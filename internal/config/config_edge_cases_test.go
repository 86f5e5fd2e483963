package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Edge Case Tests - These test scenarios that could cause silent failures
// or unexpected behavior: marker precedence, merge semantics, unreadable
// files, and path resolution.

// =============================================================================
// FindProjectRoot Edge Cases
// =============================================================================

// TestFindProjectRoot_NonExistentDir_ReturnsPath tests behavior for a
// directory that does not exist.
func TestFindProjectRoot_NonExistentDir_ReturnsPath(t *testing.T) {
	// Given: a path that doesn't exist
	nonExistent := "/nonexistent/path/that/does/not/exist"

	// When: finding project root
	root, err := FindProjectRoot(nonExistent)

	// Then: filepath.Abs succeeds even for non-existent paths, so the
	// walk finds no markers and falls back to the absolute input path
	require.NoError(t, err)
	assert.Equal(t, nonExistent, root)
}

// TestFindProjectRoot_DeepNesting_FindsGitRoot tests that deep nesting
// correctly finds the git root.
func TestFindProjectRoot_DeepNesting_FindsGitRoot(t *testing.T) {
	// Given: a deeply nested directory structure with .git at root
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	deepNested := filepath.Join(tmpDir, "a", "b", "c", "d", "e", "f", "g", "h")
	require.NoError(t, os.Mkdir(gitDir, 0o755))
	require.NoError(t, os.MkdirAll(deepNested, 0o755))

	// When: finding project root from deep nested directory
	root, err := FindProjectRoot(deepNested)

	// Then: git root is returned
	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

// TestFindProjectRoot_RelativePath_ResolvesToAbsolute tests that relative
// paths are resolved to absolute paths.
func TestFindProjectRoot_RelativePath_ResolvesToAbsolute(t *testing.T) {
	// Given: a directory with .git
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	require.NoError(t, os.Mkdir(gitDir, 0o755))

	// Save and restore working directory
	oldWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(oldWd) }()
	require.NoError(t, os.Chdir(tmpDir))

	// When: finding project root with relative path
	root, err := FindProjectRoot(".")

	// Then: absolute path is returned
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(root), "Root should be absolute path")
	// Compare with EvalSymlinks to handle /var -> /private/var on macOS
	expectedRoot, _ := filepath.EvalSymlinks(tmpDir)
	actualRoot, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, expectedRoot, actualRoot)
}

// TestFindProjectRoot_NearestMarkerWins tests that a config file in a
// subdirectory shadows a git root further up.
func TestFindProjectRoot_NearestMarkerWins(t *testing.T) {
	// Given: .git at the top and .notedex.yaml in a vault subdirectory
	tmpDir := t.TempDir()
	vaultDir := filepath.Join(tmpDir, "vault")
	deepDir := filepath.Join(vaultDir, "notes", "daily")
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(deepDir, 0o755))
	err := os.WriteFile(filepath.Join(vaultDir, ".notedex.yaml"), []byte("version: 1"), 0o644)
	require.NoError(t, err)

	// When: finding project root from inside the vault
	root, err := FindProjectRoot(deepDir)

	// Then: the vault root is returned, not the git root above it
	require.NoError(t, err)
	assert.Equal(t, vaultDir, root)
}

// TestFindProjectRoot_YmlMarker_IsRecognized tests that .notedex.yml also
// marks a project root.
func TestFindProjectRoot_YmlMarker_IsRecognized(t *testing.T) {
	// Given: a directory with only a .yml marker
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "notes")
	require.NoError(t, os.MkdirAll(nestedDir, 0o755))
	err := os.WriteFile(filepath.Join(tmpDir, ".notedex.yml"), []byte("version: 1"), 0o644)
	require.NoError(t, err)

	// When: finding project root
	root, err := FindProjectRoot(nestedDir)

	// Then: the marker location is returned
	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

// =============================================================================
// Config Merge Edge Cases
// =============================================================================

// TestLoad_MergeExcludePaths_AppendsToDefaults tests that user exclude paths
// are appended to defaults rather than replacing them.
func TestLoad_MergeExcludePaths_AppendsToDefaults(t *testing.T) {
	// Given: config with custom exclude paths
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	configContent := `
version: 1
paths:
  exclude:
    - "**/drafts/**"
`
	err := os.WriteFile(filepath.Join(tmpDir, ".notedex.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: both default and custom excludes are present
	require.NoError(t, err)
	assert.Contains(t, cfg.Paths.Exclude, "**/node_modules/**", "Default exclude should be preserved")
	assert.Contains(t, cfg.Paths.Exclude, "**/.git/**", "Default exclude should be preserved")
	assert.Contains(t, cfg.Paths.Exclude, "**/drafts/**", "Custom exclude should be added")
}

// TestLoad_ZeroValuesNotMerged tests that explicit zero values in config
// don't override defaults (potential silent failure).
func TestLoad_ZeroValuesNotMerged(t *testing.T) {
	// Given: config with explicit zero values
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	configContent := `
version: 1
index:
  workers: 0
search:
  top_k: 0
  cache_size: 0
`
	err := os.WriteFile(filepath.Join(tmpDir, ".notedex.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: defaults are kept (zero values don't override)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Search.TopK, "Zero should not override default top_k")
	assert.Equal(t, 128, cfg.Search.CacheSize, "Zero should not override default cache_size")
	assert.Positive(t, cfg.Index.Workers, "Zero should not override default workers")
	// Note: This documents the "can't set to zero" limitation
}

// TestMergeWith_WatchEnabled_NotSwitchedOff tests that a merge never turns
// the watcher off. YAML cannot distinguish explicit false from absent, so
// enabled only merges upward.
func TestMergeWith_WatchEnabled_NotSwitchedOff(t *testing.T) {
	// Given: a config with watch enabled
	cfg := NewConfig()
	cfg.Watch.Enabled = true

	// When: merging a config with watch disabled (the zero value)
	cfg.mergeWith(&Config{})

	// Then: watch stays enabled
	assert.True(t, cfg.Watch.Enabled)
}

// TestLoad_ProjectConfigCannotDisableUserWatch tests the same rule across
// the user/project layering.
func TestLoad_ProjectConfigCannotDisableUserWatch(t *testing.T) {
	// Given: user config enables watch, project config is silent about it
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	notedexDir := filepath.Join(configDir, "notedex")
	require.NoError(t, os.MkdirAll(notedexDir, 0o755))
	userConfig := `
version: 1
watch:
  enabled: true
`
	require.NoError(t, os.WriteFile(filepath.Join(notedexDir, "config.yaml"), []byte(userConfig), 0o644))

	projectConfig := `
version: 1
watch:
  debounce: 250ms
`
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".notedex.yaml"), []byte(projectConfig), 0o644))

	// When: loading configuration
	cfg, err := Load(projectDir)

	// Then: watch stays enabled and the project debounce applies
	require.NoError(t, err)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, "250ms", cfg.Watch.Debounce)
}

// =============================================================================
// Config File Permission Edge Cases
// =============================================================================

// TestLoad_UnreadableConfigFile_ReturnsError tests that unreadable config
// files return an error.
func TestLoad_UnreadableConfigFile_ReturnsError(t *testing.T) {
	// Skip on CI or if running as root
	if os.Getuid() == 0 {
		t.Skip("Test requires non-root user")
	}

	// Given: a config file with no read permissions
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	configPath := filepath.Join(tmpDir, ".notedex.yaml")
	err := os.WriteFile(configPath, []byte("version: 1"), 0o000)
	require.NoError(t, err)
	defer func() { _ = os.Chmod(configPath, 0o644) }()

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: error should be returned
	require.Error(t, err, "Load should fail for unreadable config file")
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "read", "Error should mention read failure")
}

// =============================================================================
// Path Resolution Edge Cases
// =============================================================================

// TestResolveDataDir_RelativeJoinsRoot tests that a relative data dir is
// resolved under the project root.
func TestResolveDataDir_RelativeJoinsRoot(t *testing.T) {
	cfg := NewConfig()

	got := cfg.ResolveDataDir("/home/pat/vault")

	assert.Equal(t, filepath.Join("/home/pat/vault", ".notedex"), got)
}

// TestResolveDataDir_AbsolutePassesThrough tests that an absolute data dir
// ignores the project root.
func TestResolveDataDir_AbsolutePassesThrough(t *testing.T) {
	cfg := NewConfig()
	cfg.Paths.DataDir = "/var/lib/notedex"

	got := cfg.ResolveDataDir("/home/pat/vault")

	assert.Equal(t, "/var/lib/notedex", got)
}

// TestResolveStorePath_NestsUnderDataDir tests that a relative store path
// lands inside the resolved data dir.
func TestResolveStorePath_NestsUnderDataDir(t *testing.T) {
	cfg := NewConfig()

	got := cfg.ResolveStorePath("/home/pat/vault")

	assert.Equal(t, filepath.Join("/home/pat/vault", ".notedex", "notedex.db"), got)
}

// TestResolveStorePath_AbsolutePassesThrough tests that an absolute store
// path is used verbatim.
func TestResolveStorePath_AbsolutePassesThrough(t *testing.T) {
	cfg := NewConfig()
	cfg.Store.Path = "/tmp/elsewhere.db"

	got := cfg.ResolveStorePath("/home/pat/vault")

	assert.Equal(t, "/tmp/elsewhere.db", got)
}

// TestResolveCapsulePath_NestsUnderDataDir tests capsule resolution against
// the data dir.
func TestResolveCapsulePath_NestsUnderDataDir(t *testing.T) {
	cfg := NewConfig()

	got := cfg.ResolveCapsulePath("/home/pat/vault")

	assert.Equal(t, filepath.Join("/home/pat/vault", ".notedex", "index.png"), got)
}

// TestResolveCapsulePath_RespectsCustomDataDir tests that a configured data
// dir flows into capsule resolution.
func TestResolveCapsulePath_RespectsCustomDataDir(t *testing.T) {
	cfg := NewConfig()
	cfg.Paths.DataDir = "cache"
	cfg.Index.CapsuleFile = "kb.png"

	got := cfg.ResolveCapsulePath("/home/pat/vault")

	assert.Equal(t, filepath.Join("/home/pat/vault", "cache", "kb.png"), got)
}

// =============================================================================
// Debounce Parsing Edge Cases
// =============================================================================

// TestDebounceDuration_ParsesConfiguredValue tests the normal parse path.
func TestDebounceDuration_ParsesConfiguredValue(t *testing.T) {
	cfg := NewConfig()
	cfg.Watch.Debounce = "250ms"

	assert.Equal(t, 250*time.Millisecond, cfg.DebounceDuration())
}

// TestDebounceDuration_FallsBackOnBadValues tests that unparsable or
// non-positive values fall back to 500ms.
func TestDebounceDuration_FallsBackOnBadValues(t *testing.T) {
	for _, raw := range []string{"", "soon", "-1s", "0s"} {
		cfg := NewConfig()
		cfg.Watch.Debounce = raw

		assert.Equal(t, 500*time.Millisecond, cfg.DebounceDuration(), "debounce %q", raw)
	}
}

// =============================================================================
// DiscoverNotesDirs Edge Cases
// =============================================================================

// TestDiscoverNotesDirs_EmptyDir_ReturnsEmpty tests that empty directories
// return no note dirs.
func TestDiscoverNotesDirs_EmptyDir_ReturnsEmpty(t *testing.T) {
	// Given: an empty directory
	tmpDir := t.TempDir()

	// When: discovering note directories
	dirs := DiscoverNotesDirs(tmpDir)

	// Then: empty slice is returned
	assert.Empty(t, dirs)
}

// TestDiscoverNotesDirs_NonExistentDir_ReturnsEmpty tests that non-existent
// directories return empty (not error).
func TestDiscoverNotesDirs_NonExistentDir_ReturnsEmpty(t *testing.T) {
	// Given: a non-existent directory
	nonExistent := "/nonexistent/path/that/does/not/exist"

	// When: discovering note directories
	dirs := DiscoverNotesDirs(nonExistent)

	// Then: empty slice is returned (not error/panic)
	assert.Empty(t, dirs)
}

// TestDiscoverNotesDirs_FilesNotDirs_NotIncluded tests that files named
// like note dirs are not included.
func TestDiscoverNotesDirs_FilesNotDirs_NotIncluded(t *testing.T) {
	// Given: a directory with a file named "notes" (not a directory)
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "notes"), []byte("not a dir"), 0o644)
	require.NoError(t, err)

	// When: discovering note directories
	dirs := DiscoverNotesDirs(tmpDir)

	// Then: "notes" file is not included
	assert.NotContains(t, dirs, "notes")
}

// =============================================================================
// Config JSON Marshaling Edge Cases
// =============================================================================

// TestConfig_JSON_RoundTrip tests that config can be marshaled to JSON
// and back without data loss. The status API serves the active config as
// JSON, so every field needs a working json tag.
func TestConfig_JSON_RoundTrip(t *testing.T) {
	// Given: a configuration with custom values
	cfg := NewConfig()
	cfg.Paths.DataDir = "kb"
	cfg.Search.TopK = 12
	cfg.Server.RateLimit = 2.5
	cfg.Watch.Enabled = true

	// When: marshaling to JSON and back
	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var parsed Config
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)

	// Then: all values are preserved
	assert.Equal(t, "kb", parsed.Paths.DataDir)
	assert.Equal(t, 12, parsed.Search.TopK)
	assert.Equal(t, 2.5, parsed.Server.RateLimit)
	assert.True(t, parsed.Watch.Enabled)
	assert.Equal(t, cfg.Index.MinChunkLen, parsed.Index.MinChunkLen)
}

// TestConfig_UnmarshalJSON_InvalidJSON_ReturnsError tests that invalid JSON
// returns an error.
func TestConfig_UnmarshalJSON_InvalidJSON_ReturnsError(t *testing.T) {
	// Given: invalid JSON
	invalidJSON := []byte("{invalid json")

	// When: unmarshaling
	var cfg Config
	err := json.Unmarshal(invalidJSON, &cfg)

	// Then: error is returned
	require.Error(t, err, "Unmarshal should fail for invalid JSON")
}
