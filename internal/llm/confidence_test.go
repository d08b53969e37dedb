package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var formSchema = Schema{
	{Name: "client_name"}, {Name: "email"}, {Name: "phone"}, {Name: "company"},
	{Name: "service_interest"}, {Name: "priority"}, {Name: "message"}, {Name: "date"},
}

var invoiceSchema = Schema{
	{Name: "invoice_number"}, {Name: "date"}, {Name: "client_name"},
	{Name: "amount"}, {Name: "vat"}, {Name: "total_amount"},
}

func TestOverallConfidence(t *testing.T) {
	tests := []struct {
		name        string
		schema      Schema
		values      map[string]any
		confidences map[string]float64
		want        float64
	}{
		{
			name:   "client fields, optional ones missing",
			schema: formSchema,
			values: map[string]any{
				"client_name": "Maria", "email": "m@x.gr", "phone": "2101234567",
				"company": "Acme", "service_interest": "CRM", "date": "2024-01-15",
			},
			confidences: map[string]float64{
				"client_name": 0.9, "email": 0.9, "phone": 0.9, "company": 0.9,
				"service_interest": 0.9, "date": 0.9, "priority": 0, "message": 0,
			},
			// 0.7*0.9 + 0.3*1.0
			want: 0.93,
		},
		{
			name:   "client fields, half required present",
			schema: formSchema,
			values: map[string]any{"client_name": "Maria", "email": "m@x.gr", "phone": "2101234567"},
			confidences: map[string]float64{
				"client_name": 1, "email": 0.8, "phone": 0.6,
			},
			// 0.7*0.8 + 0.3*(3/6)
			want: 0.71,
		},
		{
			name:   "invoice data switches the required set",
			schema: formSchema,
			values: map[string]any{"client_name": "Maria", "amount": 100.0},
			confidences: map[string]float64{
				"client_name": 0.8, "amount": 0.6,
			},
			// amount is not a schema field so only client_name counts toward the mean;
			// required = {client_name, date}: 0.7*0.8 + 0.3*0.5
			want: 0.71,
		},
		{
			name:   "invoice schema complete",
			schema: invoiceSchema,
			values: map[string]any{
				"invoice_number": "TF-2024-001", "date": "2024-01-21", "client_name": "Acme",
				"amount": 850.0, "vat": 204.0, "total_amount": 1054.0,
			},
			confidences: map[string]float64{
				"invoice_number": 1, "date": 1, "client_name": 1, "amount": 1, "vat": 1, "total_amount": 0.7,
			},
			// 0.7*0.95 + 0.3
			want: 0.965,
		},
		{
			name:        "confidences but nothing populated",
			schema:      invoiceSchema,
			values:      map[string]any{"invoice_number": nil},
			confidences: map[string]float64{"invoice_number": 0},
			want:        0,
		},
		{
			name:        "no confidences falls back to completeness over schema",
			schema:      invoiceSchema,
			values:      map[string]any{"invoice_number": "TF-2024-001", "amount": 1.0, "vat": 0.24},
			confidences: nil,
			want:        0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, OverallConfidence(tt.schema, tt.values, tt.confidences, nil), 1e-9)
		})
	}
}

func TestOverallConfidence_EmptyRequiredSetIsComplete(t *testing.T) {
	s := Schema{{Name: "priority"}, {Name: "message"}}
	got := OverallConfidence(s, map[string]any{"message": "hi"}, map[string]float64{"message": 0.5}, nil)
	// 0.7*0.5 + 0.3*1.0
	assert.InDelta(t, 0.65, got, 1e-9)
}

func TestOverallConfidence_CustomPolicy(t *testing.T) {
	none := func(Schema, map[string]any) []string { return nil }
	got := OverallConfidence(formSchema, map[string]any{"email": "a@b.gr"}, map[string]float64{"email": 0.4}, none)
	assert.InDelta(t, 0.58, got, 1e-9)
}

func TestDefaultRequiredFields(t *testing.T) {
	assert.Equal(t,
		[]string{"client_name", "email", "phone", "company", "service_interest", "date"},
		DefaultRequiredFields(formSchema, map[string]any{}))
	assert.Equal(t,
		[]string{"invoice_number", "date", "client_name", "amount", "vat", "total_amount"},
		DefaultRequiredFields(invoiceSchema, map[string]any{"vat": 24.0}))
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 0.667, Round3(2.0/3.0))
	assert.Equal(t, 0.5, Round3(0.5))
	assert.Equal(t, 0.0, Round3(0.0004))
}
