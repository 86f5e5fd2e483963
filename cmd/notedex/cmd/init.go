package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/notedex/notedex/internal/config"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter .notedex.yaml",
		Long: `Write a starter .notedex.yaml into the current directory.

The generated file spells out the default settings so they are easy to
tweak. An existing config is only replaced with --force, and a
timestamped backup is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config (a backup is kept)")

	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	// Init marks the current directory as a vault root, so it must not
	// follow appRoot up to some parent project.
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	path := filepath.Join(cwd, ".notedex.yaml")

	w := cmd.OutOrStdout()

	if fileExists(path) {
		if !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		backup, err := config.BackupFile(path)
		if err != nil {
			return err
		}
		if backup != "" {
			fmt.Fprintf(w, "Backed up existing config to %s\n", backup)
		}
	}

	if err := config.NewConfig().WriteYAML(path); err != nil {
		return err
	}

	fmt.Fprintf(w, "Wrote %s\n", path)
	fmt.Fprintln(w, "Next: run 'notedex index' to build the capsule.")
	return nil
}
