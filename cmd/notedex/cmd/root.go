// Package cmd implements the notedex command-line interface.
package cmd

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/notedex/notedex/internal/config"
	"github.com/notedex/notedex/internal/engine"
	"github.com/notedex/notedex/internal/logging"
	"github.com/notedex/notedex/internal/store"
	"github.com/notedex/notedex/internal/ui"
	"github.com/notedex/notedex/pkg/version"
)

// Persistent flags shared by every subcommand.
var (
	flagConfig  string
	flagVerbose bool
	flagQuiet   bool
	flagJSON    bool
)

// Resolved once per invocation in setupEnv.
var (
	appCfg     *config.Config
	appRoot    string
	logCleanup func()
)

// NewRootCmd creates the root command for the notedex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notedex",
		Short: "Local notes search with a portable PNG index",
		Long: `Notedex indexes plain-text notes into a TF-IDF vector index and ships
it inside a PNG capsule that travels with the vault.

Run 'notedex index' in a notes directory, then 'notedex search' or
'notedex tui' to query it. 'notedex serve' exposes the same index over
HTTP or MCP for editors and assistants.`,
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE:  setupEnv,
		PersistentPostRunE: teardownEnv,
	}

	cmd.SetVersionTemplate("notedex version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Explicit config file (skips discovery)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging to stderr")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log errors")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newNoteCmd())
	cmd.AddCommand(newCapsuleCmd())
	cmd.AddCommand(newTUICmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setupEnv resolves the project root, loads configuration, and routes
// logs to the notedex log file before any subcommand runs.
func setupEnv(_ *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	appRoot = root

	var cfgErr error
	if flagConfig != "" {
		// An explicit config file must load; discovery failures below
		// fall back to defaults instead.
		appCfg, err = config.LoadFile(flagConfig)
		if err != nil {
			return err
		}
	} else {
		appCfg, cfgErr = config.Load(root)
		if cfgErr != nil {
			appCfg = config.NewConfig()
		}
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = appCfg.Logging.Level
	logCfg.WriteToStderr = false
	if appCfg.Logging.File != "" {
		logCfg.FilePath = appCfg.Logging.File
	}
	if flagVerbose {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
	}
	if flagQuiet {
		logCfg.Level = "error"
		logCfg.WriteToStderr = false
	}

	// Commands still work when the log file is unwritable.
	if logger, cleanup, err := logging.Setup(logCfg); err == nil {
		logCleanup = cleanup
		slog.SetDefault(logger)
	}

	if cfgErr != nil {
		slog.Warn("config_load_failed",
			slog.String("root", root),
			slog.String("error", cfgErr.Error()))
	}

	return nil
}

// teardownEnv flushes and closes the log file after the subcommand.
func teardownEnv(_ *cobra.Command, _ []string) error {
	if logCleanup != nil {
		logCleanup()
		logCleanup = nil
	}
	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// noColor reports whether styled output should be suppressed for the
// command's stdout.
func noColor(cmd *cobra.Command) bool {
	return !ui.IsTTY(cmd.OutOrStdout()) || ui.DetectNoColor()
}

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// buildEngine constructs an engine rooted at root, attaching the note
// store when one is supplied.
func buildEngine(cfg *config.Config, root string, st store.Store) (*engine.Engine, error) {
	var opts []engine.Option
	if st != nil {
		opts = append(opts, engine.WithStore(st))
	}
	return engine.New(cfg, root, opts...)
}

// openStoreIfPresent opens the note store only when its database file
// already exists, so read-only commands never create the data
// directory as a side effect.
func openStoreIfPresent(cfg *config.Config, root string) store.Store {
	path := cfg.ResolveStorePath(root)
	if !fileExists(path) {
		return nil
	}
	st, err := store.Open(path)
	if err != nil {
		slog.Warn("store_open_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil
	}
	return st
}
