package llm

import (
	"math"

	"github.com/joseph-ayodele/intake-tracker/constants"
)

// RequiredFieldPolicy picks the fields that count toward completeness, given the schema and the
// extracted values.
type RequiredFieldPolicy func(s Schema, values map[string]any) []string

// DefaultRequiredFields is the document-shape heuristic: once any invoice field is populated the
// invoice fields plus date and client_name are required; otherwise every non-invoice field except
// priority and message is.
func DefaultRequiredFields(s Schema, values map[string]any) []string {
	hasInvoice := false
	for _, name := range constants.InvoiceFields {
		if values[name] != nil {
			hasInvoice = true
			break
		}
	}

	var required []string
	for _, f := range s {
		switch {
		case hasInvoice:
			if constants.IsInvoiceField(f.Name) || f.Name == constants.FieldDate || f.Name == constants.FieldClientName {
				required = append(required, f.Name)
			}
		case !constants.IsInvoiceField(f.Name) && !isOptionalClientField(f.Name):
			required = append(required, f.Name)
		}
	}
	return required
}

func isOptionalClientField(name string) bool {
	for _, f := range constants.OptionalClientFields {
		if f == name {
			return true
		}
	}
	return false
}

// OverallConfidence is 0.7 x the mean confidence of populated schema fields plus 0.3 x the share
// of required fields populated, rounded to three decimals. With no field confidences at all it is
// the share of schema fields populated; with confidences but nothing populated it is 0.
func OverallConfidence(s Schema, values map[string]any, confidences map[string]float64, policy RequiredFieldPolicy) float64 {
	if policy == nil {
		policy = DefaultRequiredFields
	}

	if len(confidences) == 0 {
		if len(s) == 0 {
			return 0
		}
		populated := 0
		for _, f := range s {
			if values[f.Name] != nil {
				populated++
			}
		}
		return Round3(float64(populated) / float64(len(s)))
	}

	var sum float64
	var n int
	for _, f := range s {
		c, ok := confidences[f.Name]
		if !ok || values[f.Name] == nil {
			continue
		}
		sum += c
		n++
	}
	if n == 0 {
		return 0
	}

	required := policy(s, values)
	completeness := 1.0
	if len(required) > 0 {
		populated := 0
		for _, name := range required {
			if values[name] != nil {
				populated++
			}
		}
		completeness = float64(populated) / float64(len(required))
	}

	return Round3(0.7*(sum/float64(n)) + 0.3*completeness)
}

// Round3 rounds half away from zero to three decimals.
func Round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
