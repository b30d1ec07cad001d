package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/dshills/flowcanvas/pkg/storage"
	"github.com/dshills/flowcanvas/pkg/workflow"
)

// LoadDefinitionFile loads a definition from a YAML or JSON file. A name
// that is not a file is looked up in the exports directory.
func LoadDefinitionFile(path string) (*workflow.Definition, error) {
	if _, err := os.Stat(path); err == nil {
		return workflow.ParseFile(path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	exports, err := storage.NewExportDirectory(GetConfigDir())
	if err != nil {
		return nil, err
	}
	def, err := exports.Load(path)
	if errors.Is(err, storage.ErrExportNotFound) {
		return nil, fmt.Errorf("workflow file not found: %s (also looked in %s)", path, exports.Dir())
	}
	if err != nil {
		return nil, err
	}
	return def, nil
}

// LoadGraphFile loads a definition and hydrates its graph
func LoadGraphFile(path string) (*workflow.Definition, *workflow.Graph, error) {
	def, err := LoadDefinitionFile(path)
	if err != nil {
		return nil, nil, err
	}
	g, err := workflow.Hydrate(*def)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return def, g, nil
}
