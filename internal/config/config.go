package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/notedex/notedex/internal/index"
)

// Config represents the complete notedex configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Paths   PathsConfig   `yaml:"paths" json:"paths"`
	Index   IndexConfig   `yaml:"index" json:"index"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Watch   WatchConfig   `yaml:"watch" json:"watch"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PathsConfig configures which paths to scan and where data lives.
type PathsConfig struct {
	// Include lists the note directories to scan, relative to the
	// project root. Empty means discover common note dirs.
	Include []string `yaml:"include" json:"include"`
	// Exclude lists glob patterns to skip during scanning.
	Exclude []string `yaml:"exclude" json:"exclude"`
	// DataDir is where the store, capsule, and lock files live.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// IndexConfig configures chunking and vector construction.
// The defaults match the fixed constants of the index package.
type IndexConfig struct {
	// MinChunkLen is the byte length under which a chunk merges into
	// its predecessor.
	MinChunkLen int `yaml:"min_chunk_len" json:"min_chunk_len"`
	// MaxChunkLen is the byte length at which paragraphs are hard-split.
	MaxChunkLen int `yaml:"max_chunk_len" json:"max_chunk_len"`
	// VectorTerms is the number of top-weight terms kept per chunk.
	VectorTerms int `yaml:"vector_terms" json:"vector_terms"`
	// SnippetLen is the snippet length in runes.
	SnippetLen int `yaml:"snippet_len" json:"snippet_len"`
	// Workers bounds ingest concurrency.
	Workers int `yaml:"workers" json:"workers"`
	// CapsuleFile is the capsule filename inside the data dir.
	CapsuleFile string `yaml:"capsule_file" json:"capsule_file"`
}

// SearchConfig configures query-time behavior.
type SearchConfig struct {
	// TopK is the default result count.
	TopK int `yaml:"top_k" json:"top_k"`
	// CacheSize is the number of query results kept in the LRU cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// Addr is the listen address (host:port).
	Addr string `yaml:"addr" json:"addr"`
	// RateLimit is the sustained requests-per-second budget per server.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	// RateBurst is the burst allowance on top of RateLimit.
	RateBurst int `yaml:"rate_burst" json:"rate_burst"`
}

// StoreConfig configures the sqlite note store.
type StoreConfig struct {
	// Path is the database filename, resolved inside the data dir
	// unless absolute.
	Path string `yaml:"path" json:"path"`
}

// WatchConfig configures the filesystem watcher.
type WatchConfig struct {
	// Enabled turns on watch-triggered rebuilds under `serve --watch`.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Debounce is how long to coalesce bursts of file events (e.g. "500ms").
	Debounce string `yaml:"debounce" json:"debounce"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" json:"level"`
	// File overrides the log file path. Empty uses the default under
	// ~/.notedex/logs/.
	File string `yaml:"file" json:"file"`
}

// defaultExcludePatterns are always excluded.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/.notedex/**",
	"**/vendor/**",
	"**/dist/**",
	"**/build/**",
	"**/.obsidian/**",
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Include: []string{},
			Exclude: defaultExcludePatterns,
			DataDir: ".notedex",
		},
		Index: IndexConfig{
			MinChunkLen: index.MinChunkLen,
			MaxChunkLen: index.MaxChunkLen,
			VectorTerms: index.MaxVectorTerms,
			SnippetLen:  index.SnippetLen,
			Workers:     runtime.NumCPU(),
			CapsuleFile: "index.png",
		},
		Search: SearchConfig{
			TopK:      index.DefaultTopK,
			CacheSize: 128,
		},
		Server: ServerConfig{
			Addr:      "127.0.0.1:8750",
			RateLimit: 10,
			RateBurst: 20,
		},
		Store: StoreConfig{
			Path: "notedex.db",
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: "500ms",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/notedex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/notedex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "notedex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "notedex", "config.yaml")
	}
	return filepath.Join(home, ".config", "notedex", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil // No user config is fine
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration for the project rooted at dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/notedex/config.yaml)
//  3. Project config (.notedex.yaml in project root)
//  4. Environment variables (NOTEDEX_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFile loads configuration from an explicit YAML file, with
// environment overrides applied on top. Unlike Load it skips both
// discovery and the user config; the file must exist.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .notedex.yaml or .notedex.yml.
func (c *Config) loadFromFile(dir string) error {
	// Try .yaml first (takes precedence)
	yamlPath := filepath.Join(dir, ".notedex.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".notedex.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Merge parsed values with defaults (only non-zero values)
	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Paths
	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		// Merge with defaults rather than replace
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}
	if other.Paths.DataDir != "" {
		c.Paths.DataDir = other.Paths.DataDir
	}

	// Index
	if other.Index.MinChunkLen != 0 {
		c.Index.MinChunkLen = other.Index.MinChunkLen
	}
	if other.Index.MaxChunkLen != 0 {
		c.Index.MaxChunkLen = other.Index.MaxChunkLen
	}
	if other.Index.VectorTerms != 0 {
		c.Index.VectorTerms = other.Index.VectorTerms
	}
	if other.Index.SnippetLen != 0 {
		c.Index.SnippetLen = other.Index.SnippetLen
	}
	if other.Index.Workers != 0 {
		c.Index.Workers = other.Index.Workers
	}
	if other.Index.CapsuleFile != "" {
		c.Index.CapsuleFile = other.Index.CapsuleFile
	}

	// Search
	if other.Search.TopK != 0 {
		c.Search.TopK = other.Search.TopK
	}
	if other.Search.CacheSize != 0 {
		c.Search.CacheSize = other.Search.CacheSize
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.RateLimit != 0 {
		c.Server.RateLimit = other.Server.RateLimit
	}
	if other.Server.RateBurst != 0 {
		c.Server.RateBurst = other.Server.RateBurst
	}

	// Store
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}

	// Watch
	// Enabled can only be switched on by a more specific config; yaml
	// gives no way to tell explicit false from absent.
	if other.Watch.Enabled {
		c.Watch.Enabled = true
	}
	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
}

// applyEnvOverrides applies NOTEDEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NOTEDEX_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("NOTEDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.Workers = n
		}
	}
	if v := os.Getenv("NOTEDEX_CAPSULE_FILE"); v != "" {
		c.Index.CapsuleFile = v
	}
	if v := os.Getenv("NOTEDEX_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.TopK = n
		}
	}
	if v := os.Getenv("NOTEDEX_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.CacheSize = n
		}
	}
	if v := os.Getenv("NOTEDEX_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("NOTEDEX_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f > 0 {
			c.Server.RateLimit = f
		}
	}
	if v := os.Getenv("NOTEDEX_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.RateBurst = n
		}
	}
	if v := os.Getenv("NOTEDEX_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("NOTEDEX_WATCH"); v != "" {
		c.Watch.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("NOTEDEX_WATCH_DEBOUNCE"); v != "" {
		c.Watch.Debounce = v
	}
	if v := os.Getenv("NOTEDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("NOTEDEX_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Index.MinChunkLen <= 0 {
		return fmt.Errorf("index.min_chunk_len must be positive, got %d", c.Index.MinChunkLen)
	}
	if c.Index.MaxChunkLen < c.Index.MinChunkLen {
		return fmt.Errorf("index.max_chunk_len must be at least min_chunk_len, got %d < %d",
			c.Index.MaxChunkLen, c.Index.MinChunkLen)
	}
	if c.Index.VectorTerms <= 0 {
		return fmt.Errorf("index.vector_terms must be positive, got %d", c.Index.VectorTerms)
	}
	if c.Index.SnippetLen <= 0 {
		return fmt.Errorf("index.snippet_len must be positive, got %d", c.Index.SnippetLen)
	}
	if c.Index.Workers <= 0 {
		return fmt.Errorf("index.workers must be positive, got %d", c.Index.Workers)
	}

	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK)
	}
	if c.Search.CacheSize <= 0 {
		return fmt.Errorf("search.cache_size must be positive, got %d", c.Search.CacheSize)
	}

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("server.addr must be host:port, got %q: %w", c.Server.Addr, err)
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("server.rate_limit must be positive, got %f", c.Server.RateLimit)
	}
	if c.Server.RateBurst <= 0 {
		return fmt.Errorf("server.rate_burst must be positive, got %d", c.Server.RateBurst)
	}

	if c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			return fmt.Errorf("watch.debounce must be a duration like \"500ms\", got %q", c.Watch.Debounce)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// DebounceDuration returns the parsed watch debounce, falling back to 500ms.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// ResolveDataDir returns the data directory resolved against the project root.
func (c *Config) ResolveDataDir(root string) string {
	if filepath.IsAbs(c.Paths.DataDir) {
		return c.Paths.DataDir
	}
	return filepath.Join(root, c.Paths.DataDir)
}

// ResolveStorePath returns the sqlite database path resolved against the
// project root's data dir.
func (c *Config) ResolveStorePath(root string) string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(c.ResolveDataDir(root), c.Store.Path)
}

// ResolveCapsulePath returns the capsule path resolved against the project
// root's data dir.
func (c *Config) ResolveCapsulePath(root string) string {
	if filepath.IsAbs(c.Index.CapsuleFile) {
		return c.Index.CapsuleFile
	}
	return filepath.Join(c.ResolveDataDir(root), c.Index.CapsuleFile)
}

// NoteDirs returns the note directories to scan. When paths.include is
// empty, it discovers common note directories under root.
func (c *Config) NoteDirs(root string) []string {
	if len(c.Paths.Include) > 0 {
		return c.Paths.Include
	}
	if found := DiscoverNotesDirs(root); len(found) > 0 {
		return found
	}
	return []string{"."}
}

// FindProjectRoot finds the project root directory.
// It looks for a .notedex.yaml/.yml file or a .git directory by walking up
// the directory tree.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if fileExists(filepath.Join(currentDir, ".notedex.yaml")) ||
			fileExists(filepath.Join(currentDir, ".notedex.yml")) {
			return currentDir, nil
		}

		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root, return original directory
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// DiscoverNotesDirs discovers common note directories in the project.
func DiscoverNotesDirs(dir string) []string {
	commonNoteDirs := []string{"notes", "docs", "content", "posts", "journal"}

	var found []string
	for _, d := range commonNoteDirs {
		if dirExists(filepath.Join(dir, d)) {
			found = append(found, d)
		}
	}

	return found
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
