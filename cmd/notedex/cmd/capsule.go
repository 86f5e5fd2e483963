package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/notedex/notedex/internal/capsule"
	"github.com/notedex/notedex/internal/ui"
)

func newCapsuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capsule",
		Short: "Inspect and verify capsule files",
	}

	cmd.AddCommand(newCapsuleInfoCmd())
	cmd.AddCommand(newCapsuleVerifyCmd())

	return cmd
}

// capsuleArgPath resolves the optional positional argument against the
// configured capsule location.
func capsuleArgPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return appCfg.ResolveCapsulePath(appRoot)
}

func newCapsuleInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [file]",
		Short: "Describe a capsule's segments and contents",
		Long: `Describe a capsule: its PNG segment layout, compressed payload size,
and the index it carries. Without a file argument the vault's own
capsule is inspected.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := capsuleArgPath(args)

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			report, err := capsule.Inspect(data)
			if err != nil {
				return err
			}
			idx, err := capsule.Decode(data)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(cmd, struct {
					Path         string    `json:"path"`
					CapsuleBytes int       `json:"capsule_bytes"`
					PayloadBytes int       `json:"payload_bytes"`
					Parts        int       `json:"parts"`
					Records      int       `json:"records"`
					Version      int       `json:"version"`
					Chunks       int       `json:"chunks"`
					Terms        int       `json:"terms"`
					BuiltAt      time.Time `json:"built_at"`
				}{
					Path:         path,
					CapsuleBytes: report.CapsuleBytes,
					PayloadBytes: report.PayloadBytes,
					Parts:        report.Parts,
					Records:      report.RecordCount,
					Version:      idx.Version,
					Chunks:       len(idx.Chunks),
					Terms:        len(idx.IDF),
					BuiltAt:      idx.BuiltAt,
				})
			}

			styles := ui.GetStyles(noColor(cmd))
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\n\n", styles.Header.Render("Capsule: "+path))
			fmt.Fprintf(w, "  Size:     %s\n", ui.FormatBytes(int64(report.CapsuleBytes)))
			fmt.Fprintf(w, "  Payload:  %s across %d segment(s)\n",
				ui.FormatBytes(int64(report.PayloadBytes)), report.Parts)
			fmt.Fprintf(w, "  Records:  %d\n", report.RecordCount)
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  Format version: %d\n", idx.Version)
			fmt.Fprintf(w, "  Chunks:         %d\n", len(idx.Chunks))
			fmt.Fprintf(w, "  Terms:          %d\n", len(idx.IDF))
			fmt.Fprintf(w, "  Built:          %s\n", idx.BuiltAt.Format(time.RFC3339))
			return nil
		},
	}
}

func newCapsuleVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [file]",
		Short: "Check a capsule's integrity",
		Long: `Check a capsule's integrity.

Exits non-zero when the file is not a capsule, a segment fails its
checksum, or the decoded index is internally inconsistent.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := capsuleArgPath(args)

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			idx, err := capsule.Decode(data)
			if err != nil {
				return err
			}
			if err := idx.Validate(); err != nil {
				return err
			}

			styles := ui.GetStyles(noColor(cmd))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), styles.Success.Render(fmt.Sprintf(
				"OK: %d chunks, %d terms", len(idx.Chunks), len(idx.IDF))))
			return err
		},
	}
}
