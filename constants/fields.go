package constants

// Field names shared by extractors, AI schemas, records and sheet rows.
const (
	FieldClientName      = "client_name"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldCompany         = "company"
	FieldServiceInterest = "service_interest"
	FieldPriority        = "priority"
	FieldMessage         = "message"
	FieldDate            = "date"
	FieldInvoiceNumber   = "invoice_number"
	FieldAmount          = "amount"
	FieldVAT             = "vat"
	FieldTotalAmount     = "total_amount"

	// FieldOverall is the pseudo-field used for whole-record warnings.
	FieldOverall = "overall"
	// FieldConfidence is editable through the review surface.
	FieldConfidence = "confidence"
)

// InvoiceFields are the invoice-specific fields; any one populated marks a document as carrying invoice data.
var InvoiceFields = []string{FieldInvoiceNumber, FieldAmount, FieldVAT, FieldTotalAmount}

// OptionalClientFields never count against completeness for client documents.
var OptionalClientFields = []string{FieldPriority, FieldMessage}

// CompletenessFields is the per-type required-field table used when no AI confidence exists.
var CompletenessFields = map[RecordType][]string{
	RecordTypeForm:    {FieldClientName, FieldEmail},
	RecordTypeEmail:   {FieldClientName, FieldEmail, FieldMessage},
	RecordTypeInvoice: {FieldInvoiceNumber, FieldAmount, FieldVAT, FieldTotalAmount},
}

// IsInvoiceField reports whether name is one of InvoiceFields.
func IsInvoiceField(name string) bool {
	for _, f := range InvoiceFields {
		if f == name {
			return true
		}
	}
	return false
}

// IsNumericField reports whether name holds a currency amount.
func IsNumericField(name string) bool {
	return name == FieldAmount || name == FieldVAT || name == FieldTotalAmount
}
