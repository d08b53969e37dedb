package entity

import (
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/intake-tracker/constants"
)

// Fields carries the extractable client and invoice fields. A nil pointer means absent.
// Both groups may be set at once (an email can carry invoice data).
type Fields struct {
	ClientName      *string `json:"client_name"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	Company         *string `json:"company"`
	ServiceInterest *string `json:"service_interest"`
	Priority        *string `json:"priority"`
	Message         *string `json:"message"`
	Date            *string `json:"date"` // YYYY-MM-DD

	InvoiceNumber *string  `json:"invoice_number"`
	Amount        *float64 `json:"amount"`
	VAT           *float64 `json:"vat"`
	TotalAmount   *float64 `json:"total_amount"`
}

// StringPtr returns nil for blank input, otherwise a pointer to the trimmed string.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 {
	return &f
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (f *Fields) stringField(name string) **string {
	switch name {
	case constants.FieldClientName:
		return &f.ClientName
	case constants.FieldEmail:
		return &f.Email
	case constants.FieldPhone:
		return &f.Phone
	case constants.FieldCompany:
		return &f.Company
	case constants.FieldServiceInterest:
		return &f.ServiceInterest
	case constants.FieldPriority:
		return &f.Priority
	case constants.FieldMessage:
		return &f.Message
	case constants.FieldDate:
		return &f.Date
	case constants.FieldInvoiceNumber:
		return &f.InvoiceNumber
	}
	return nil
}

func (f *Fields) numberField(name string) **float64 {
	switch name {
	case constants.FieldAmount:
		return &f.Amount
	case constants.FieldVAT:
		return &f.VAT
	case constants.FieldTotalAmount:
		return &f.TotalAmount
	}
	return nil
}

// Get returns the value of a named field and whether it is populated.
// Blank strings count as absent.
func (f Fields) Get(name string) (any, bool) {
	if p := f.stringField(name); p != nil {
		if *p == nil || strings.TrimSpace(**p) == "" {
			return nil, false
		}
		return **p, true
	}
	if p := f.numberField(name); p != nil {
		if *p == nil {
			return nil, false
		}
		return **p, true
	}
	return nil, false
}

// Has reports whether the named field is populated.
func (f Fields) Has(name string) bool {
	_, ok := f.Get(name)
	return ok
}

// Set assigns a loosely typed value to a named field. Strings are trimmed; numbers given as
// strings are parsed. It returns false when the name is unknown or the value cannot be coerced,
// leaving the field untouched. NaN and infinities are never stored. A nil value clears the field.
func (f *Fields) Set(name string, v any) bool {
	if p := f.stringField(name); p != nil {
		switch t := v.(type) {
		case nil:
			*p = nil
		case string:
			*p = StringPtr(t)
		case float64:
			*p = StringPtr(strconv.FormatFloat(t, 'f', -1, 64))
		case int:
			*p = StringPtr(strconv.Itoa(t))
		case bool:
			*p = StringPtr(strconv.FormatBool(t))
		default:
			return false
		}
		return true
	}
	if p := f.numberField(name); p != nil {
		switch t := v.(type) {
		case nil:
			*p = nil
		case float64:
			if !finite(t) {
				return false
			}
			*p = FloatPtr(t)
		case int:
			*p = FloatPtr(float64(t))
		case string:
			cleaned := strings.NewReplacer("€", "", " ", "", "EUR", "").Replace(strings.TrimSpace(t))
			if cleaned == "" {
				*p = nil
				return true
			}
			n, err := strconv.ParseFloat(cleaned, 64)
			if err != nil || !finite(n) {
				return false
			}
			*p = FloatPtr(n)
		default:
			return false
		}
		return true
	}
	return false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// HasInvoiceData reports whether any invoice-specific field is populated.
func (f Fields) HasInvoiceData() bool {
	for _, name := range constants.InvoiceFields {
		if f.Has(name) {
			return true
		}
	}
	return false
}

// FieldNames lists every field name in canonical order.
var FieldNames = []string{
	constants.FieldClientName,
	constants.FieldEmail,
	constants.FieldPhone,
	constants.FieldCompany,
	constants.FieldServiceInterest,
	constants.FieldPriority,
	constants.FieldMessage,
	constants.FieldDate,
	constants.FieldInvoiceNumber,
	constants.FieldAmount,
	constants.FieldVAT,
	constants.FieldTotalAmount,
}

// Map snapshots the populated fields; absent fields map to nil.
func (f Fields) Map() map[string]any {
	out := make(map[string]any, len(FieldNames))
	for _, name := range FieldNames {
		v, _ := f.Get(name)
		out[name] = v
	}
	return out
}
