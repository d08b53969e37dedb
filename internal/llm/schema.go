package llm

// BuildResponseSchema returns the JSON Schema (draft 2020-12 subset) every model response must satisfy:
// a single object whose schema fields are null, a bare scalar, or {value, confidence}.
// Unknown keys are tolerated and ignored by the parser.
func BuildResponseSchema(s Schema) map[string]any {
	props := make(map[string]any, len(s))
	for _, f := range s {
		props[f.Name] = fieldProp()
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

func fieldProp() map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": "null"},
			map[string]any{"type": []any{"string", "number", "boolean"}},
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"value":      map[string]any{"type": []any{"string", "number", "boolean", "null"}},
					"confidence": map[string]any{"type": []any{"number", "null"}, "minimum": 0.0, "maximum": 1.0},
				},
				"required": []any{"value"},
			},
		},
	}
}
