package workflow

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const definitionSchemaPath = "schemas/workflow-definition-v1.json"

//go:embed schemas/workflow-definition-v1.json
var schemaFiles embed.FS

// DefinitionSchema returns the bundled JSON schema for workflow definitions
func DefinitionSchema() ([]byte, error) {
	data, err := schemaFiles.ReadFile(definitionSchemaPath)
	if err != nil {
		return nil, fmt.Errorf("reading definition schema: %w", err)
	}
	return data, nil
}

// ValidateDefinition checks raw definition JSON against the bundled schema
func ValidateDefinition(raw []byte) error {
	if len(raw) == 0 {
		return errors.New("empty definition")
	}
	schemaBytes, err := DefinitionSchema()
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// DecodeDefinition validates raw JSON and decodes it
func DecodeDefinition(raw []byte) (*Definition, error) {
	if err := ValidateDefinition(raw); err != nil {
		return nil, err
	}
	var def Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}
	return &def, nil
}

// ValidateGraph checks that every node config and edge in g is valid and
// joins all problems into one error
func ValidateGraph(g *Graph) error {
	var errs []error
	for _, n := range g.nodes {
		if err := n.Config.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", n.Name, n.ID, err))
		}
	}
	for _, e := range g.edges {
		if err := e.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
