package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/notedex/notedex/internal/ui"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index and store health",
		Long: `Show what notedex knows about the current vault: capsule location
and size, index contents, and how many notes the store holds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd)
		},
	}
	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command) error {
	cfg := appCfg
	root := appRoot

	info := ui.StatusInfo{Root: root}

	capsulePath := cfg.ResolveCapsulePath(root)
	if fi, err := os.Stat(capsulePath); err == nil {
		info.CapsulePath = capsulePath
		info.CapsuleSize = fi.Size()

		eng, err := buildEngine(cfg, root, nil)
		if err != nil {
			return err
		}
		// A capsule that exists but fails to load is worth surfacing,
		// not papering over with "no index".
		if _, err := eng.LoadCapsule(ctx, ""); err != nil {
			return err
		}
		st := eng.Status()
		info.Docs = st.Docs
		info.Chunks = st.Chunks
		info.Terms = st.Terms
		info.BuiltAt = st.BuiltAt
	}

	if st := openStoreIfPresent(cfg, root); st != nil {
		defer func() { _ = st.Close() }()
		info.StoreEnabled = true
		if n, err := st.NoteCount(ctx); err == nil {
			info.Notes = n
		}
	}

	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor(cmd))
	if flagJSON {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}
