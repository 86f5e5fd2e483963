package mcp

import (
	"log/slog"
	"os"
	"path/filepath"
)

// VaultInfo describes the note tree the server is rooted at.
type VaultInfo struct {
	Name     string `json:"name"`
	RootPath string `json:"root_path"`
	Type     string `json:"type"`
}

// VaultDetector detects what kind of note tree the root directory is.
type VaultDetector struct {
	rootPath string
	logger   *slog.Logger
}

// NewVaultDetector creates a new vault detector.
func NewVaultDetector(rootPath string, logger *slog.Logger) *VaultDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &VaultDetector{
		rootPath: rootPath,
		logger:   logger,
	}
}

// Detect returns vault information for the root directory.
// Detection order: .obsidian -> .notedex.yaml -> .git -> plain.
func (d *VaultDetector) Detect() *VaultInfo {
	info := &VaultInfo{
		RootPath: d.rootPath,
		Name:     filepath.Base(d.rootPath),
		Type:     "plain",
	}

	if dirExists(filepath.Join(d.rootPath, ".obsidian")) {
		info.Type = "obsidian"
		return info
	}

	if fileExists(filepath.Join(d.rootPath, ".notedex.yaml")) ||
		fileExists(filepath.Join(d.rootPath, ".notedex.yml")) {
		info.Type = "notedex"
		return info
	}

	if dirExists(filepath.Join(d.rootPath, ".git")) {
		info.Type = "git"
		return info
	}

	return info
}

func dirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
