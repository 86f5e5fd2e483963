// Package ui renders notedex output for humans: an interactive Bubble
// Tea search screen, styled one-shot search results, and index status
// reports. Renderers degrade to plain text for pipes, CI, and NO_COLOR
// terminals.
package ui

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/notedex/notedex/internal/index"
)

// Config configures UI rendering.
type Config struct {
	Output  io.Writer
	NoColor bool
	Limit   int    // results per search
	Root    string // vault root shown in headers
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithLimit sets how many results a search returns.
func WithLimit(limit int) ConfigOption {
	return func(c *Config) {
		if limit > 0 {
			c.Limit = limit
		}
	}
}

// WithRoot sets the vault root path shown in headers.
func WithRoot(root string) ConfigOption {
	return func(c *Config) {
		c.Root = root
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{
		Output: output,
		Limit:  index.DefaultTopK,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}

	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
