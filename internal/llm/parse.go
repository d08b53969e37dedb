package llm

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultFieldConfidence is used when the model returns a bare value instead of {value, confidence}.
const DefaultFieldConfidence = 0.5

// CleanJSONBlock strips markdown code fences and any prose around the outermost JSON object.
func CleanJSONBlock(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// ParseResponse decodes a model response into per-field values and confidences for the schema fields.
// Every schema field is present in the returned values map; missing fields map to nil and carry no
// confidence. Blank strings become nil. Keys outside the schema are ignored. Any failure is marked
// ErrMalformed.
func ParseResponse(content []byte, s Schema) (map[string]any, map[string]float64, error) {
	var data map[string]any
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, nil, errors.Mark(errors.Wrap(err, "decode model json"), ErrMalformed)
	}
	if data == nil {
		return nil, nil, errors.Mark(errors.New("model returned null instead of an object"), ErrMalformed)
	}

	values := make(map[string]any, len(s))
	confidences := make(map[string]float64, len(s))
	for _, f := range s {
		raw, ok := data[f.Name]
		if !ok {
			values[f.Name] = nil
			continue
		}
		v, c := unwrapField(raw)
		values[f.Name] = normalizeValue(v)
		confidences[f.Name] = c
	}
	return values, confidences, nil
}

func unwrapField(raw any) (any, float64) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return raw, DefaultFieldConfidence
	}
	v, hasValue := obj["value"]
	if !hasValue {
		return raw, DefaultFieldConfidence
	}
	c, ok := obj["confidence"].(float64)
	if !ok {
		c = DefaultFieldConfidence
	}
	return v, clampUnit(c)
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			return nil
		}
		return s
	case map[string]any, []any:
		// nested structures are not field values
		return nil
	}
	return v
}

func clampUnit(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
