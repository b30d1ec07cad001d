package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/flowcanvas/pkg/storage"
	"github.com/dshills/flowcanvas/pkg/workflow"
)

// NewExportCommand creates the export command
func NewExportCommand() *cobra.Command {
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "export <workflow-id> [file]",
		Short: "Export a backend workflow with credentials stripped for sharing",
		Long: `Export a workflow from the backend to YAML with sensitive config values
replaced by a placeholder.

Without a file the export is saved in the exports directory under a name
derived from the workflow name. Recipients must fill in their own
credentials before using it.

Examples:
  flowcanvas export 6f1c2a
  flowcanvas export 6f1c2a shared.yaml
  flowcanvas export 6f1c2a --stdout`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newBackendClient()
			if err != nil {
				return err
			}
			def, err := client.GetWorkflow(contextOrBackground(cmd), workflow.WorkflowID(args[0]))
			if err != nil {
				return fmt.Errorf("failed to fetch workflow: %w", err)
			}

			out := cmd.OutOrStdout()
			if toStdout {
				data, warnings, err := workflow.Export(def)
				if err != nil {
					return fmt.Errorf("failed to export workflow: %w", err)
				}
				_, _ = out.Write(data)
				printCredentialWarnings(cmd.ErrOrStderr(), warnings)
				return nil
			}

			var (
				path     string
				warnings []workflow.CredentialWarning
			)
			if len(args) == 2 {
				path = args[1]
				warnings, err = workflow.ExportFile(def, path)
			} else {
				exports, dirErr := storage.NewExportDirectory(GetConfigDir())
				if dirErr != nil {
					return dirErr
				}
				path, warnings, err = exports.Save(def)
			}
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(out, "✓ Workflow exported successfully to: %s\n", path)
			_, _ = fmt.Fprintln(out, "  Credentials have been stripped for safe sharing")
			printCredentialWarnings(out, warnings)
			return nil
		},
	}

	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Write the export to stdout instead of a file")

	return cmd
}

func printCredentialWarnings(w io.Writer, warnings []workflow.CredentialWarning) {
	if len(warnings) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "\n! %d possible credentials found:\n", len(warnings))
	for _, warn := range warnings {
		_, _ = fmt.Fprintf(w, "  - %s: %s\n", warn.Location, warn.Message)
	}
}

// NewExportsCommand creates the command managing the exports directory
func NewExportsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exports",
		Short: "Manage saved exports",
	}
	cmd.AddCommand(newExportsListCommand())
	cmd.AddCommand(newExportsDeleteCommand())
	return cmd
}

func newExportsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the workflows in the exports directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exports, err := storage.NewExportDirectory(GetConfigDir())
			if err != nil {
				return err
			}
			defs, err := exports.LoadAll()
			if err != nil {
				return err
			}
			if len(defs) == 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No exports in %s\n", exports.Dir())
				return nil
			}
			for _, d := range defs {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-30s %d steps\n", storage.Slug(d.Name), d.Name, len(d.Definition.Steps))
			}
			return nil
		},
	}
}

func newExportsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exports, err := storage.NewExportDirectory(GetConfigDir())
			if err != nil {
				return err
			}
			if err := exports.Delete(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Export '%s' deleted\n", args[0])
			return nil
		},
	}
}
