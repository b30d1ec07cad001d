package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/flowcanvas/pkg/storage"
)

// NewDraftCommand creates the draft management command
func NewDraftCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Manage local drafts",
		Long: `Local drafts are workflows kept on this machine in drafts.db. They need
no backend and can be reopened in the builder ('d' saves one from the editor).`,
	}

	cmd.AddCommand(newDraftListCommand())
	cmd.AddCommand(newDraftSaveCommand())
	cmd.AddCommand(newDraftOpenCommand())
	cmd.AddCommand(newDraftDeleteCommand())

	return cmd
}

func newDraftListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List local drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openDrafts()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			drafts, err := store.List()
			if err != nil {
				return err
			}
			if len(drafts) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No drafts saved.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tWORKFLOW\tSTEPS\tUPDATED")
			for _, d := range drafts {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					shortID(d.ID),
					truncateString(d.Name, 30),
					dash(d.WorkflowID.String()),
					len(d.Definition.Definition.Steps),
					d.UpdatedAt.Local().Format("2006-01-02 15:04"),
				)
			}
			return w.Flush()
		},
	}
}

func newDraftSaveCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "save <workflow-file>",
		Short: "Save a workflow file as a local draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := LoadDefinitionFile(args[0])
			if err != nil {
				return err
			}

			store, err := openDrafts()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			d := &storage.Draft{Name: name, Definition: *def}
			if err := store.Save(d); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Draft '%s' saved (%s)\n", d.Name, shortID(d.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Draft name (default: the workflow name)")

	return cmd
}

func newDraftOpenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "open <draft>",
		Short: "Open a draft in the builder",
		Long: `Open a draft in the terminal builder. The draft is referenced by id, a
unique id prefix or its exact name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEditor(cmd, editOptions{DraftRef: args[0]})
		},
	}
}

func newDraftDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <draft>",
		Short: "Delete a local draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openDrafts()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			d, err := store.Find(args[0])
			if err != nil {
				return err
			}
			if err := store.Delete(d.ID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Draft '%s' deleted\n", d.Name)
			return nil
		},
	}
}
