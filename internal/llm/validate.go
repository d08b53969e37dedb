package llm

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CompileSchema compiles a schema map once so it can validate many responses.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, errors.Wrap(err, "marshal schema")
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, errors.Wrap(err, "add schema")
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, errors.Wrap(err, "compile schema")
	}
	return schema, nil
}

// ValidateJSONAgainstSchema validates data against a compiled schema.
func ValidateJSONAgainstSchema(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(err, "unmarshal data")
	}
	if err := schema.Validate(v); err != nil {
		return errors.Wrap(err, "json does not match schema")
	}
	return nil
}
