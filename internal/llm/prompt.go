package llm

import (
	"strings"
)

// SystemPrompt is sent as the system message on every extraction call.
const SystemPrompt = "You are a data extraction machine. Extract structured data and return only valid JSON."

const defaultInstruction = "Extract structured data from this document."

// BuildUserPrompt lists the schema fields, states the {value, confidence} contract and appends the
// document content.
func BuildUserPrompt(req Request) string {
	instruction := strings.TrimSpace(req.Instruction)
	if instruction == "" {
		instruction = defaultInstruction
	}

	var b strings.Builder
	b.WriteString("You are a data extraction machine. ")
	b.WriteString(instruction)
	b.WriteString("\n\nExtract the following fields from the document:\n")
	for _, f := range req.Schema {
		b.WriteString("- ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Description)
		b.WriteString("\n")
	}
	b.WriteString(`
IMPORTANT INSTRUCTIONS:
1. Return ONLY valid JSON with the exact field names specified above
2. If a field is not found or cannot be determined, use null for that field
3. Include a "confidence" field (0.0-1.0) for EACH extracted value indicating your confidence
4. Use the format: {"field_name": {"value": "extracted_value", "confidence": 0.95}}
5. For missing fields, use: {"field_name": {"value": null, "confidence": 0.0}}
6. Do not include any explanatory text, only the JSON object

Document content:
`)
	b.WriteString(req.Content)
	b.WriteString("\n\nJSON output:")
	return b.String()
}
