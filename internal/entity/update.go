package entity

import (
	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/common"
)

// RecordUpdate is a typed partial update: only non-nil members are merged.
type RecordUpdate struct {
	ClientName      *string  `json:"client_name,omitempty"`
	Email           *string  `json:"email,omitempty"`
	Phone           *string  `json:"phone,omitempty"`
	Company         *string  `json:"company,omitempty"`
	ServiceInterest *string  `json:"service_interest,omitempty"`
	Priority        *string  `json:"priority,omitempty"`
	Message         *string  `json:"message,omitempty"`
	Date            *string  `json:"date,omitempty"`
	InvoiceNumber   *string  `json:"invoice_number,omitempty"`
	Amount          *float64 `json:"amount,omitempty"`
	VAT             *float64 `json:"vat,omitempty"`
	TotalAmount     *float64 `json:"total_amount,omitempty"`
	Confidence      *float64 `json:"confidence,omitempty"`
}

type updateEntry struct {
	name string
	str  *string
	num  *float64
}

func (u RecordUpdate) entries() []updateEntry {
	return []updateEntry{
		{name: constants.FieldClientName, str: u.ClientName},
		{name: constants.FieldEmail, str: u.Email},
		{name: constants.FieldPhone, str: u.Phone},
		{name: constants.FieldCompany, str: u.Company},
		{name: constants.FieldServiceInterest, str: u.ServiceInterest},
		{name: constants.FieldPriority, str: u.Priority},
		{name: constants.FieldMessage, str: u.Message},
		{name: constants.FieldDate, str: u.Date},
		{name: constants.FieldInvoiceNumber, str: u.InvoiceNumber},
		{name: constants.FieldAmount, num: u.Amount},
		{name: constants.FieldVAT, num: u.VAT},
		{name: constants.FieldTotalAmount, num: u.TotalAmount},
		{name: constants.FieldConfidence, num: u.Confidence},
	}
}

// FieldNames returns the names of the members that are set, in canonical order.
func (u RecordUpdate) FieldNames() []string {
	var names []string
	for _, e := range u.entries() {
		if e.str != nil || e.num != nil {
			names = append(names, e.name)
		}
	}
	return names
}

// IsEmpty is true when nothing would change.
func (u RecordUpdate) IsEmpty() bool {
	return len(u.FieldNames()) == 0
}

// Validate checks formats of the provided members; the error matches common.ErrValidation.
func (u RecordUpdate) Validate() error {
	v := common.NewValidator()
	v.Field(constants.FieldEmail, u.Email, common.Email)
	v.Field(constants.FieldDate, u.Date, common.ISODate)
	v.Field(constants.FieldPriority, u.Priority, common.OneOf(constants.PrioritiesAsStringSlice()...))
	v.Field(constants.FieldMessage, u.Message, common.MaxLength(5000))
	v.Field(constants.FieldAmount, u.Amount, common.NonNegative)
	v.Field(constants.FieldVAT, u.VAT, common.NonNegative)
	v.Field(constants.FieldTotalAmount, u.TotalAmount, common.NonNegative)
	v.Field(constants.FieldConfidence, u.Confidence, common.UnitInterval)
	return v.Error()
}

// Apply returns a copy of r with the provided members merged in. Identity fields
// (id, type, source file, timestamp) are never touched. An empty string clears a text field.
func (u RecordUpdate) Apply(r ExtractionRecord) ExtractionRecord {
	out := r
	for _, e := range u.entries() {
		switch {
		case e.name == constants.FieldConfidence && e.num != nil:
			c := *e.num
			out.Confidence = &c
		case e.str != nil:
			out.Fields.Set(e.name, *e.str)
		case e.num != nil:
			out.Fields.Set(e.name, *e.num)
		}
	}
	return out
}
