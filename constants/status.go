package constants

// RecordStatus is the lifecycle state of an extraction record.
type RecordStatus string

// Stable values (stored verbatim in the queue).
const (
	StatusPending  RecordStatus = "pending"  // produced by the pipeline
	StatusApproved RecordStatus = "approved" // written to the sheet by the review surface
	StatusRejected RecordStatus = "rejected" // discarded by the review surface
)

// RecordType identifies the kind of source document a record came from.
type RecordType string

const (
	RecordTypeForm    RecordType = "FORM"
	RecordTypeEmail   RecordType = "EMAIL"
	RecordTypeInvoice RecordType = "INVOICE"
)

// Valid reports whether t is one of the known record types.
func (t RecordType) Valid() bool {
	switch t {
	case RecordTypeForm, RecordTypeEmail, RecordTypeInvoice:
		return true
	}
	return false
}

// IsClient reports whether records of this type belong on the Clients sheet.
func (t RecordType) IsClient() bool {
	return t == RecordTypeForm || t == RecordTypeEmail
}

// Severity weights a validation warning when scoring confidence.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ExtractionMethod records which extractor produced the accepted fields.
type ExtractionMethod string

const (
	MethodRuleBased        ExtractionMethod = "rule-based"
	MethodLLM              ExtractionMethod = "llm"
	MethodLLMLowConfidence ExtractionMethod = "llm-low-confidence"
)

// IsLLM is true for both accepted AI states.
func (m ExtractionMethod) IsLLM() bool {
	return m == MethodLLM || m == MethodLLMLowConfidence
}
