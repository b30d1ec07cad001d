// Command validate-template checks a workflow template file: it must parse,
// instantiate with its parameter defaults and produce a valid graph.
package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/flowcanvas/pkg/workflow"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <template-file> [key=value...]\n", os.Args[0])
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	var template workflow.WorkflowTemplate
	if err := yaml.Unmarshal(data, &template); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing YAML: %v\n", err)
		os.Exit(1)
	}

	if template.Name == "" {
		fmt.Fprintf(os.Stderr, "Error: template name is required\n")
		os.Exit(1)
	}
	if len(template.Definition.Definition.Steps) == 0 {
		fmt.Fprintf(os.Stderr, "Error: definition.steps cannot be empty\n")
		os.Exit(1)
	}

	params := make(map[string]any)
	for _, arg := range os.Args[2:] {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			fmt.Fprintf(os.Stderr, "Error: invalid parameter %q (expected key=value)\n", arg)
			os.Exit(1)
		}
		params[k] = v
	}

	def, err := template.Instantiate(template.Name, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error instantiating template: %v\n", err)
		os.Exit(1)
	}
	g, err := workflow.Hydrate(*def)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building graph: %v\n", err)
		os.Exit(1)
	}
	if err := workflow.ValidateGraph(g); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Template '%s' is valid\n", template.Name)
	fmt.Printf("  - Parameters: %d\n", len(template.Parameters))
	fmt.Printf("  - Steps: %d\n", len(def.Definition.Steps))
	fmt.Printf("  - Connections: %d\n", len(def.Definition.Connections))
}
