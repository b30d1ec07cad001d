package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/flowcanvas/pkg/storage"
	"github.com/dshills/flowcanvas/pkg/workflow"
)

// NewImportCommand creates the import command
func NewImportCommand() *cobra.Command {
	var (
		name      string
		update    bool
		asDraft   bool
		allowMiss bool
	)

	cmd := &cobra.Command{
		Use:   "import <workflow-file>",
		Short: "Import a workflow file into the backend",
		Long: `Import a workflow definition from a YAML or JSON file.

This command:
- Parses the file and checks it against the definition schema
- Validates step configurations
- Refuses files that still hold redacted credentials (see --allow-redacted)
- Creates the workflow on the backend, or updates it with --update

A name from the exports directory may be given instead of a path.

Examples:
  flowcanvas import translate.yaml
  flowcanvas import translate.yaml --name "Translate v2"
  flowcanvas import translate.yaml --update
  flowcanvas import translate.yaml --draft`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			def, g, err := LoadGraphFile(args[0])
			if err != nil {
				return err
			}
			if err := workflow.ValidateGraph(g); err != nil {
				return fmt.Errorf("workflow validation failed: %w", err)
			}
			if name != "" {
				def.Name = name
			}

			if locs := workflow.RedactedLocations(def); len(locs) > 0 {
				_, _ = fmt.Fprintf(out, "! %d credential placeholders need values:\n", len(locs))
				for _, loc := range locs {
					_, _ = fmt.Fprintf(out, "  - %s\n", loc)
				}
				if !allowMiss && !asDraft {
					return fmt.Errorf("workflow contains %s placeholders; fill them in or pass --allow-redacted", workflow.RedactedValue)
				}
			}

			if asDraft {
				store, err := openDrafts()
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				d := &storage.Draft{Definition: *def}
				if err := store.Save(d); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "✓ Workflow '%s' saved as draft %s\n", d.Name, shortID(d.ID))
				return nil
			}

			client, err := newBackendClient()
			if err != nil {
				return err
			}
			ctx := contextOrBackground(cmd)

			var saved *workflow.Definition
			if update {
				if def.ID.IsZero() {
					return fmt.Errorf("--update needs a workflow file with an id")
				}
				saved, err = client.UpdateWorkflow(ctx, def.ID, def)
			} else {
				saved, err = client.CreateWorkflow(ctx, def)
			}
			if err != nil {
				return fmt.Errorf("failed to import workflow: %w", err)
			}

			verb := "imported"
			if update {
				verb = "updated"
			}
			_, _ = fmt.Fprintf(out, "✓ Workflow '%s' %s (id %s)\n", saved.Name, verb, saved.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Override the workflow name")
	cmd.Flags().BoolVar(&update, "update", false, "Replace the backend workflow with the file's id")
	cmd.Flags().BoolVar(&asDraft, "draft", false, "Save as a local draft instead of sending to the backend")
	cmd.Flags().BoolVar(&allowMiss, "allow-redacted", false, "Import even if credential placeholders remain")
	cmd.MarkFlagsMutuallyExclusive("update", "draft")

	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
