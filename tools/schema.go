package tools

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateParams compiles and validates params against a tool's JSON
// Schema (spec §4.3 step 2, "schema + visibility check"). A nil or empty
// schema admits any params.
func ValidateParams(schema map[string]any, params map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	const resourceName = "tool-params.json"
	if err := compiler.AddResource(resourceName, schema); err != nil {
		return fmt.Errorf("tools: invalid schema: %w", err)
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return fmt.Errorf("tools: invalid schema: %w", err)
	}

	if err := compiled.Validate(params); err != nil {
		return fmt.Errorf("tools: params failed schema validation: %w", err)
	}
	return nil
}
