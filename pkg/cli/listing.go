package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewAgentsCommand creates the agents command
func NewAgentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect backend agents",
	}
	cmd.AddCommand(newAgentsListCommand())
	return cmd
}

func newAgentsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the agents configured on the backend",
		Long: `List the agents a workflow's agent step can use.

Examples:
  flowcanvas agents list
  flowcanvas agents list --backend-url http://localhost:8000/api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newBackendClient()
			if err != nil {
				return err
			}
			agents, err := client.ListAgents(contextOrBackground(cmd))
			if err != nil {
				return fmt.Errorf("failed to list agents: %w", err)
			}

			if len(agents) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No agents configured.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tMODEL")
			for _, a := range agents {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Name, dash(a.Provider), dash(a.Model))
			}
			return w.Flush()
		},
	}
}

// NewWorkflowsCommand creates the workflows command
func NewWorkflowsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "Inspect workflows stored on the backend",
	}
	cmd.AddCommand(newWorkflowsListCommand())
	return cmd
}

func newWorkflowsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the workflows stored on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newBackendClient()
			if err != nil {
				return err
			}
			defs, err := client.ListWorkflows(contextOrBackground(cmd))
			if err != nil {
				return fmt.Errorf("failed to list workflows: %w", err)
			}

			if len(defs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No workflows found.")
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nCreate one with: flowcanvas edit")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tVERSION\tSTEPS")
			for _, d := range defs {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", d.ID, d.Name, d.Version, len(d.Definition.Steps))
			}
			return w.Flush()
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
