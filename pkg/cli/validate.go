package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/flowcanvas/pkg/canvas"
	"github.com/dshills/flowcanvas/pkg/workflow"
)

// sampleInput stands in for user input when checking test-run shape
const sampleInput = "sample"

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "validate <workflow-file>",
		Short: "Validate a workflow file",
		Long: `Validate a workflow definition file before importing or testing it.

This checks:
- YAML or JSON syntax and the definition schema
- Step configurations (URLs, methods, condition operators, transform code)
- Connections between existing steps
- The Input → Agent → Output shape needed for a test run

Examples:
  flowcanvas validate translate.yaml
  flowcanvas validate translate.yaml --verbose`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			def, err := LoadDefinitionFile(args[0])
			if err != nil {
				_, _ = fmt.Fprintln(out, "✗ Failed to parse workflow")
				return err
			}
			_, _ = fmt.Fprintln(out, "✓ Workflow parsed and matches the definition schema")

			g, err := workflow.Hydrate(*def)
			if err != nil {
				_, _ = fmt.Fprintln(out, "✗ Workflow graph is invalid")
				return err
			}
			if err := workflow.ValidateGraph(g); err != nil {
				_, _ = fmt.Fprintln(out, "✗ Step configuration invalid")
				return err
			}
			_, _ = fmt.Fprintf(out, "✓ %d steps and %d connections valid\n", g.Len(), len(g.Edges()))

			agent, err := canvas.ValidateForTestRun(g, sampleInput)
			if err != nil {
				_, _ = fmt.Fprintln(out, "✗ Not test-runnable")
				return err
			}
			if agent.AgentID() == "" {
				_, _ = fmt.Fprintf(out, "! Agent step %q has no agent selected\n", agent.Name)
			} else {
				_, _ = fmt.Fprintln(out, "✓ Input → Agent → Output connected")
			}

			if verbose {
				_, _ = fmt.Fprintln(out, "\nSteps:")
				for _, n := range g.Nodes() {
					_, _ = fmt.Fprintf(out, "  %s  %-10s %s\n", n.ID, n.Type, n.Name)
				}
			}

			_, _ = fmt.Fprintf(out, "\n✓ Workflow '%s' is valid\n", def.Name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List the steps of the workflow")

	return cmd
}
