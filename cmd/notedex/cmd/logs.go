package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/notedex/notedex/internal/logging"
)

type logsOptions struct {
	lines  int
	follow bool
	level  string
	grep   string
	file   string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View notedex log output",
		Long: `View entries from the rotating log file.

Examples:
  notedex logs
  notedex logs -n 200 --level warn
  notedex logs --grep rebuild -f`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of recent entries to show")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().StringVar(&opts.level, "level", "", "Only show entries at or above this level")
	cmd.Flags().StringVar(&opts.grep, "grep", "", "Only show entries matching this regexp")
	cmd.Flags().StringVar(&opts.file, "file", "", "Log file to read (default: the active log)")

	return cmd
}

func runLogs(ctx context.Context, cmd *cobra.Command, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.file)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.grep != "" {
		pattern, err = regexp.Compile(opts.grep)
		if err != nil {
			return fmt.Errorf("invalid --grep pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: noColor(cmd),
	}, cmd.OutOrStdout())

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)

	if !opts.follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Follow returns nil once ctx is done; it never closes the channel,
	// so the loop has to watch ctx itself.
	ch := make(chan logging.LogEntry, 64)
	errCh := make(chan error, 1)
	go func() { errCh <- viewer.Follow(ctx, path, ch) }()

	for {
		select {
		case entry := <-ch:
			viewer.Print([]logging.LogEntry{entry})
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return nil
		}
	}
}
