package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/flowcanvas/pkg/workflow"
)

// NewTemplateCommand creates the template command
func NewTemplateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Start workflows from built-in templates",
	}

	cmd.AddCommand(newTemplateListCommand())
	cmd.AddCommand(newTemplateNewCommand())

	return cmd
}

func newTemplateListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List built-in templates and their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, t := range workflow.Templates() {
				_, _ = fmt.Fprintf(out, "%s\n  %s\n", t.Name, t.Description)
				for _, p := range t.Parameters {
					req := ""
					if p.Required {
						req = " (required)"
					} else if p.Default != nil {
						req = fmt.Sprintf(" (default %v)", p.Default)
					}
					_, _ = fmt.Fprintf(out, "    --param %s=<%s>%s  %s\n", p.Name, p.Type, req, p.Description)
				}
			}
			return nil
		},
	}
}

func newTemplateNewCommand() *cobra.Command {
	var (
		name   string
		params []string
	)

	cmd := &cobra.Command{
		Use:   "new <template> [file]",
		Short: "Create a workflow file from a template",
		Long: `Create a workflow definition from a built-in template. Parameters are
given as --param key=value. Without a file the YAML is written to stdout.

Examples:
  flowcanvas template new translation --name "To French" --param target_language=French
  flowcanvas template new chat chat.yaml --param agent_id=3f2a`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := workflow.TemplateByName(args[0])
			if err != nil {
				return err
			}

			values, err := parseParams(params)
			if err != nil {
				return err
			}
			if name == "" {
				name = tmpl.Name
			}

			def, err := tmpl.Instantiate(name, values)
			if err != nil {
				return fmt.Errorf("failed to instantiate template: %w", err)
			}
			data, err := workflow.ToYAML(def)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				_, _ = cmd.OutOrStdout().Write(data)
				return nil
			}
			if err := os.WriteFile(args[1], data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[1], err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Workflow '%s' written to %s\n", def.Name, args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Workflow name (default: the template name)")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Template parameter as key=value (repeatable)")

	return cmd
}

// parseParams turns key=value flags into template values. Values stay
// strings; the template coerces them to the parameter type.
func parseParams(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q (expected key=value)", pair)
		}
		values[k] = v
	}
	return values, nil
}
