package hybrid

import (
	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/llm"
)

var formSchema = llm.Schema{
	{Name: constants.FieldClientName, Description: "Full name of the client"},
	{Name: constants.FieldEmail, Description: "Email address"},
	{Name: constants.FieldPhone, Description: "Phone number (Greek format)"},
	{Name: constants.FieldCompany, Description: "Company or organization name"},
	{Name: constants.FieldServiceInterest, Description: "Service or product of interest"},
	{Name: constants.FieldPriority, Description: "Priority level (high, medium, low)"},
	{Name: constants.FieldMessage, Description: "Brief 1-2 sentence summary of the main request or message content"},
	{Name: constants.FieldDate, Description: "Submission date"},
}

var emailSchema = llm.Schema{
	{Name: constants.FieldClientName, Description: "Full name of the client or sender"},
	{Name: constants.FieldEmail, Description: "Email address"},
	{Name: constants.FieldPhone, Description: "Phone number (Greek format)"},
	{Name: constants.FieldCompany, Description: "Company or organization name"},
	{Name: constants.FieldServiceInterest, Description: "Main service, product, or subject of interest"},
	{Name: constants.FieldMessage, Description: "Brief 1-2 sentence summary of the main request or message content"},
	{Name: constants.FieldDate, Description: "Email date"},
}

var invoiceSchema = llm.Schema{
	{Name: constants.FieldInvoiceNumber, Description: "Invoice number in format TF-YYYY-NNN"},
	{Name: constants.FieldDate, Description: "Invoice date"},
	{Name: constants.FieldClientName, Description: "Client or customer name"},
	{Name: constants.FieldAmount, Description: "Base amount before VAT (as a number)"},
	{Name: constants.FieldVAT, Description: "VAT amount (as a number)"},
	{Name: constants.FieldTotalAmount, Description: "Total amount including VAT (as a number)"},
}

var instructions = map[constants.RecordType]string{
	constants.RecordTypeForm:    "This is an HTML contact form. Extract client contact information.",
	constants.RecordTypeEmail:   "This is an email message. Extract relevant client or invoice information.",
	constants.RecordTypeInvoice: "This is an HTML invoice. Extract financial data and validate calculations.",
}

// SchemaFor returns the AI field schema for a record type.
func SchemaFor(t constants.RecordType) llm.Schema {
	switch t {
	case constants.RecordTypeForm:
		return formSchema
	case constants.RecordTypeEmail:
		return emailSchema
	case constants.RecordTypeInvoice:
		return invoiceSchema
	}
	return nil
}

// InstructionFor returns the per-type task line for the AI prompt.
func InstructionFor(t constants.RecordType) string {
	return instructions[t]
}
