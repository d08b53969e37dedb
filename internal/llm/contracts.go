package llm

import (
	"context"

	"github.com/joseph-ayodele/intake-tracker/constants"
)

// SchemaField names one field the model must fill and tells it what the field means.
type SchemaField struct {
	Name        string
	Description string
}

// Schema is an ordered field -> description list; the order is preserved in the prompt.
type Schema []SchemaField

// Names returns the field names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Name
	}
	return out
}

// Has reports whether name is part of the schema.
func (s Schema) Has(name string) bool {
	for _, f := range s {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Request is one structured extraction call.
type Request struct {
	Content      string
	Schema       Schema
	DocumentType constants.RecordType
	// Instruction is the per-type task line placed after the role sentence.
	Instruction string
	SourcePath  string
}

// Result is a successful extraction. Fields holds every schema field; a nil value means not found.
type Result struct {
	Fields           map[string]any
	FieldConfidences map[string]float64
	Confidence       float64
	Raw              []byte
	Attempts         int
}

// Completer sends a system and user prompt to a chat model and returns the assistant's text.
// Implementations mark failures with ErrRateLimited, ErrTimeout or ErrProvider.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// FieldExtractor is what the hybrid selector depends on.
type FieldExtractor interface {
	Extract(ctx context.Context, req Request) (Result, error)
}
