package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notedex/notedex/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var shortOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print version information including git commit, build date, and Go version.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if shortOutput {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Short())
				return err
			}
			if flagJSON {
				return printJSON(cmd, version.GetInfo())
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}

	cmd.Flags().BoolVar(&shortOutput, "short", false, "Output only the version number")

	return cmd
}
