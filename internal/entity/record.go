package entity

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/intake-tracker/constants"
)

// ValidationWarning is a single finding from a validator.
type ValidationWarning struct {
	Field    string             `json:"field"`
	Message  string             `json:"message"`
	Severity constants.Severity `json:"severity"`
}

// NewError builds an error-severity warning.
func NewError(field, message string) ValidationWarning {
	return ValidationWarning{Field: field, Message: message, Severity: constants.SeverityError}
}

// NewWarning builds a warning-severity warning.
func NewWarning(field, message string) ValidationWarning {
	return ValidationWarning{Field: field, Message: message, Severity: constants.SeverityWarning}
}

// CountBySeverity tallies error- and warning-severity entries.
func CountBySeverity(ws []ValidationWarning) (errs, warns int) {
	for _, w := range ws {
		switch w.Severity {
		case constants.SeverityError:
			errs++
		case constants.SeverityWarning:
			warns++
		}
	}
	return errs, warns
}

// ExtractionRecord is the unit of work awaiting human review.
type ExtractionRecord struct {
	ID                  string                     `json:"id"`
	Type                constants.RecordType       `json:"type"`
	SourceFile          string                     `json:"source_file"`
	ExtractionTimestamp time.Time                  `json:"extraction_timestamp"`
	Status              constants.RecordStatus     `json:"status"`
	Confidence          *float64                   `json:"confidence"`
	Warnings            []ValidationWarning        `json:"warnings"`
	ExtractionMethod    constants.ExtractionMethod `json:"extraction_method,omitempty"`

	Fields

	FieldConfidences map[string]float64 `json:"field_confidences,omitempty"`
	RawExtraction    map[string]any     `json:"raw_extraction,omitempty"`
}

// RecordInput is everything the orchestrator knows about a finished extraction.
type RecordInput struct {
	Type             constants.RecordType
	SourceFile       string
	Fields           Fields
	Confidence       float64
	Warnings         []ValidationWarning
	Method           constants.ExtractionMethod
	FieldConfidences map[string]float64
	RawExtraction    map[string]any
}

// NewExtractionRecord assigns a fresh id and timestamp and returns a PENDING record.
func NewExtractionRecord(in RecordInput) (ExtractionRecord, error) {
	if !in.Type.Valid() {
		return ExtractionRecord{}, errors.Newf("unknown record type %q", in.Type)
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return ExtractionRecord{}, errors.Newf("confidence %v outside [0, 1]", in.Confidence)
	}
	warnings := in.Warnings
	if warnings == nil {
		warnings = []ValidationWarning{}
	}
	conf := in.Confidence
	return ExtractionRecord{
		ID:                  uuid.New().String(),
		Type:                in.Type,
		SourceFile:          in.SourceFile,
		ExtractionTimestamp: time.Now().UTC(),
		Status:              constants.StatusPending,
		Confidence:          &conf,
		Warnings:            warnings,
		ExtractionMethod:    in.Method,
		Fields:              in.Fields,
		FieldConfidences:    in.FieldConfidences,
		RawExtraction:       in.RawExtraction,
	}, nil
}

// Validate checks the record invariants enforced by the queue.
func (r ExtractionRecord) Validate() error {
	if r.ID == "" {
		return errors.New("record id is required")
	}
	if !r.Type.Valid() {
		return errors.Newf("unknown record type %q", r.Type)
	}
	if r.Confidence != nil && (*r.Confidence < 0 || *r.Confidence > 1) {
		return errors.Newf("confidence %v outside [0, 1]", *r.Confidence)
	}
	return nil
}

// ScanResult summarizes one orchestrator scan.
type ScanResult struct {
	ProcessedCount int      `json:"processed_count"`
	NewItemsCount  int      `json:"new_items_count"`
	FailedCount    int      `json:"failed_count"`
	Errors         []string `json:"errors"`
}

// ApprovalResult reports the outcome of approving a record.
type ApprovalResult struct {
	Success  bool   `json:"success"`
	SheetRow *int   `json:"sheet_row,omitempty"`
	Error    string `json:"error,omitempty"`
}
