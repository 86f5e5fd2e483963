package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notedex/notedex/internal/ui"
)

type searchOptions struct {
	limit int
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed vault",
		Long: `Search the vault through the capsule index.

Query terms are TF-IDF weighted and ranked by cosine similarity, so
multi-word queries favor chunks covering all the terms.

Examples:
  notedex search "capsule format"
  notedex search zettelkasten --limit 3
  notedex search "meeting notes" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cfg := appCfg
	root := appRoot

	limit := opts.limit
	if limit <= 0 {
		limit = cfg.Search.TopK
	}

	slog.Info("search_started",
		slog.String("query", query),
		slog.Int("limit", limit))

	capsulePath := cfg.ResolveCapsulePath(root)
	if !fileExists(capsulePath) {
		return fmt.Errorf("no index found at %s. Run 'notedex index' first", capsulePath)
	}

	eng, err := buildEngine(cfg, root, nil)
	if err != nil {
		return err
	}
	if _, err := eng.LoadCapsule(ctx, ""); err != nil {
		return err
	}

	results, err := eng.Search(ctx, query, limit)
	if err != nil {
		return err
	}

	slog.Info("search_complete", slog.Int("results", len(results)))

	renderer := ui.NewSearchRenderer(cmd.OutOrStdout(), noColor(cmd))
	if flagJSON {
		return renderer.RenderJSON(results)
	}
	return renderer.Render(query, results)
}
