package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/notedex/notedex/internal/ui"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive search screen",
		Long: `Open the interactive search screen.

Results update on every keystroke; up/down select a result, ctrl+r
rebuilds the index in place, esc clears the query and then quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), cmd)
		},
	}
}

func runTUI(ctx context.Context, _ *cobra.Command) error {
	cfg := appCfg
	root := appRoot

	st := openStoreIfPresent(cfg, root)
	if st != nil {
		defer func() { _ = st.Close() }()
	}

	eng, err := buildEngine(cfg, root, st)
	if err != nil {
		return err
	}

	// Start from the capsule when there is one, otherwise build fresh
	// so the screen never opens empty.
	if _, err := eng.LoadCapsule(ctx, ""); err != nil {
		if _, err := eng.Rebuild(ctx); err != nil {
			return err
		}
	}

	return ui.RunTUI(ctx, eng, ui.NewConfig(os.Stdout,
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithLimit(cfg.Search.TopK),
		ui.WithRoot(root),
	))
}
