package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notedex/notedex/internal/store"
	"github.com/notedex/notedex/internal/ui"
)

func newNoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage notes in the sqlite store",
		Long: `Manage quick notes stored next to the index.

Stored notes are virtual documents: they are indexed alongside the
note files on the next 'notedex index' run and show up in search
results under /notes/ hrefs.`,
	}

	cmd.AddCommand(newNoteAddCmd())
	cmd.AddCommand(newNoteGetCmd())
	cmd.AddCommand(newNoteListCmd())
	cmd.AddCommand(newNoteRmCmd())

	return cmd
}

// openNoteStore opens the store read-write, creating the data
// directory on first use.
func openNoteStore() (store.Store, error) {
	return store.Open(appCfg.ResolveStorePath(appRoot))
}

func newNoteAddCmd() *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:   "add <key> [body]",
		Short: "Add or update a note",
		Long: `Add or update a note under a key.

The body comes from the second argument, or from stdin when omitted:

  notedex note add groceries "milk, eggs, coffee"
  cat standup.md | notedex note add standup --tags work,daily`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			var body string
			if len(args) == 2 {
				body = args[1]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				body = string(data)
			}

			st, err := openNoteStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			note, err := st.PutNote(cmd.Context(), key, body, tags)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(cmd, note)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved note %q (%d bytes)\n", note.Key, len(note.Body))
			return err
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Comma-separated tags")

	return cmd
}

func newNoteGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a note's body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openNoteStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			note, err := st.GetNote(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(cmd, note)
			}

			w := cmd.OutOrStdout()
			fmt.Fprint(w, note.Body)
			if !strings.HasSuffix(note.Body, "\n") {
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}

func newNoteListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()

			st := openStoreIfPresent(appCfg, appRoot)
			if st == nil {
				if flagJSON {
					return printJSON(cmd, []*store.Note{})
				}
				_, err := fmt.Fprintln(w, "No notes stored yet.")
				return err
			}
			defer func() { _ = st.Close() }()

			notes, err := st.ListNotes(cmd.Context())
			if err != nil {
				return err
			}

			if flagJSON {
				if notes == nil {
					notes = []*store.Note{}
				}
				return printJSON(cmd, notes)
			}

			if len(notes) == 0 {
				_, err := fmt.Fprintln(w, "No notes stored yet.")
				return err
			}

			styles := ui.GetStyles(noColor(cmd))
			for _, n := range notes {
				fmt.Fprintf(w, "%s  %s",
					styles.Selected.Render(n.Key),
					styles.Dim.Render(n.UpdatedAt.Format("2006-01-02")))
				for _, tag := range n.Tags {
					fmt.Fprintf(w, " %s", styles.Tag.Render("#"+tag))
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}

func newNoteRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <key>",
		Aliases: []string{"delete"},
		Short:   "Delete a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openNoteStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.DeleteNote(cmd.Context(), args[0]); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %q\n", args[0])
			return err
		},
	}
}
