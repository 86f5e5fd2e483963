package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapsuleInfo_DescribesCapsule(t *testing.T) {
	// Given an indexed vault
	dir := chtemp(t)
	writeVault(t, dir)
	_, err := runCommand("index")
	require.NoError(t, err)

	// When inspecting without a path
	out, err := runCommand("capsule", "info")

	// Then the vault's own capsule is described
	require.NoError(t, err)
	assert.Contains(t, out, "Capsule:")
	assert.Contains(t, out, "Chunks:         2")
	assert.Contains(t, out, "Format version: 1")
}

func TestCapsuleInfo_ExplicitFile(t *testing.T) {
	dir := chtemp(t)
	writeVault(t, dir)
	_, err := runCommand("index", "--output", "moved.png")
	require.NoError(t, err)

	out, err := runCommand("capsule", "info", filepath.Join(dir, "moved.png"))

	require.NoError(t, err)
	assert.Contains(t, out, "moved.png")
	assert.Contains(t, out, "Records:")
}

func TestCapsuleInfo_JSONOutput(t *testing.T) {
	dir := chtemp(t)
	writeVault(t, dir)
	_, err := runCommand("index")
	require.NoError(t, err)

	out, err := runCommand("capsule", "info", "--json")
	require.NoError(t, err)

	var report struct {
		Path         string `json:"path"`
		CapsuleBytes int    `json:"capsule_bytes"`
		Parts        int    `json:"parts"`
		Chunks       int    `json:"chunks"`
		Terms        int    `json:"terms"`
		Version      int    `json:"version"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Positive(t, report.CapsuleBytes)
	assert.Equal(t, 1, report.Parts)
	assert.Equal(t, 2, report.Chunks)
	assert.Positive(t, report.Terms)
	assert.Equal(t, 1, report.Version)
}

func TestCapsuleInfo_MissingFile(t *testing.T) {
	chtemp(t)

	_, err := runCommand("capsule", "info", "nope.png")

	require.Error(t, err)
}

func TestCapsuleVerify_GoodCapsule(t *testing.T) {
	dir := chtemp(t)
	writeVault(t, dir)
	_, err := runCommand("index")
	require.NoError(t, err)

	out, err := runCommand("capsule", "verify")

	require.NoError(t, err)
	assert.Contains(t, out, "OK: 2 chunks")
}

func TestCapsuleVerify_RejectsGarbage(t *testing.T) {
	// Given a file that is not a capsule at all
	dir := chtemp(t)
	path := filepath.Join(dir, "fake.png")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a png"), 0o644))

	// When verifying it
	_, err := runCommand("capsule", "verify", path)

	// Then verification fails
	require.Error(t, err)
}

func TestCapsuleVerify_RejectsTamperedCapsule(t *testing.T) {
	// Given a capsule with a flipped byte in the middle
	dir := chtemp(t)
	writeVault(t, dir)
	_, err := runCommand("index")
	require.NoError(t, err)

	path := filepath.Join(dir, ".notedex", "index.png")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)/2] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))

	// When verifying it
	_, err = runCommand("capsule", "verify")

	// Then the corruption is caught
	require.Error(t, err)
}
