package validate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/global-config.schema.json
var globalConfigSchema []byte

const GlobalConfigSchemaName = "global-config.schema.json"

// ValidateAgainstSchema compiles schema under name and validates the JSON
// document data against it. ref selects a sub-schema such as "#/definitions/x".
func ValidateAgainstSchema(name string, schema, data []byte, ref string) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("failed to load schema %s: %w", name, err)
	}
	sch, err := compiler.Compile(name + ref)
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation against %s failed: %w", name, err)
	}
	return nil
}

// ValidateGlobalConfigJSON validates a global config document already
// converted to JSON.
func ValidateGlobalConfigJSON(data []byte) error {
	return ValidateAgainstSchema(GlobalConfigSchemaName, globalConfigSchema, data, "")
}
