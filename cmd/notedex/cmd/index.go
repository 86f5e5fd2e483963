package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/notedex/notedex/internal/engine"
	"github.com/notedex/notedex/internal/store"
	"github.com/notedex/notedex/internal/ui"
)

type indexOptions struct {
	output string
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Build the index and write the capsule",
		Long: `Build the TF-IDF index for a vault and write it as a PNG capsule.

Without a path the vault root is discovered from the current directory.
Stored notes are indexed alongside the note files.

Examples:
  notedex index
  notedex index ~/notes
  notedex index --output backup.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := appRoot
			if len(args) == 1 {
				abs, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				root = abs
			}
			return runIndex(cmd.Context(), cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Capsule output path (default from config)")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, root string, opts indexOptions) error {
	cfg := appCfg

	slog.Info("index_started", slog.String("root", root))

	st, err := store.Open(cfg.ResolveStorePath(root))
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	eng, err := buildEngine(cfg, root, st)
	if err != nil {
		return err
	}

	stats, err := eng.Rebuild(ctx)
	if err != nil {
		return err
	}

	size, err := eng.SaveCapsule(ctx, opts.output)
	if err != nil {
		return err
	}

	capsulePath := opts.output
	if capsulePath == "" {
		capsulePath = cfg.ResolveCapsulePath(root)
	}

	if flagJSON {
		return printJSON(cmd, struct {
			*engine.BuildStats
			CapsulePath string `json:"capsule_path"`
			CapsuleSize int    `json:"capsule_size"`
		}{stats, capsulePath, size})
	}

	styles := ui.GetStyles(noColor(cmd))
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, styles.Success.Render(fmt.Sprintf(
		"Indexed %d docs into %d chunks (%d terms) in %s",
		stats.Docs, stats.Chunks, stats.Terms, stats.Duration.Round(time.Millisecond))))
	if stats.Notes > 0 {
		fmt.Fprintf(w, "Includes %d note(s) from the store\n", stats.Notes)
	}
	fmt.Fprintf(w, "Capsule: %s (%s)\n", capsulePath, ui.FormatBytes(int64(size)))
	return nil
}
